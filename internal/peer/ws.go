package peer

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/park285/chess-tui-sync/internal/obslog"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

const DefaultWSPath = "/peer"

// WebsocketHandler admits websocket peers into the same roster as TCP peers.
// Each text message carries newline-terminated lines.
func (r *Relay) WebsocketHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		c, err := websocket.Accept(w, req, &websocket.AcceptOptions{
			CompressionMode: websocket.CompressionNoContextTakeover,
		})
		if err != nil {
			obslog.L().Warn("relay_ws_accept_error", zap.String("remote", req.RemoteAddr), zap.Error(err))
			return
		}
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		r.Handle(websocket.NetConn(ctx, c, websocket.MessageText))
	})
}

// ServeWebsocket serves the relay over websocket on addr at path.
func (r *Relay) ServeWebsocket(ctx context.Context, addr, path string) (*http.Server, net.Addr, error) {
	if path == "" {
		path = DefaultWSPath
	}
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, nil, err
	}
	mux := http.NewServeMux()
	mux.Handle(path, r.WebsocketHandler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			obslog.L().Warn("relay_ws_serve_error", zap.Error(err))
		}
	}()
	obslog.L().Info("relay_ws_listen", zap.String("addr", ln.Addr().String()), zap.String("path", path))
	return srv, ln.Addr(), nil
}

func dialWebsocket(ctx context.Context, url string) (net.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	c, _, err := websocket.Dial(dialCtx, url, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		return nil, err
	}
	return websocket.NetConn(context.Background(), c, websocket.MessageText), nil
}
