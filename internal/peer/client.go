package peer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/park285/chess-tui-sync/internal/chess"
	"github.com/park285/chess-tui-sync/internal/obslog"
	"go.uber.org/zap"
)

type DialConfig struct {
	// Addr is host:port for TCP or a ws:// URL for websocket.
	Addr     string
	Attempts int
	Backoff  time.Duration
}

// Client is one player's connection to the relay.
type Client struct {
	conn    *lineConn
	color   chess.Color
	mailbox *Mailbox

	started   chan struct{}
	startOnce sync.Once
	closeOnce sync.Once
}

// Dial connects to the relay, retrying up to cfg.Attempts times, and reads
// the assigned color.
func Dial(ctx context.Context, cfg DialConfig) (*Client, error) {
	attempts := cfg.Attempts
	if attempts <= 0 {
		attempts = defaultAttempts
	}
	backoff := cfg.Backoff
	if backoff <= 0 {
		backoff = 200 * time.Millisecond
	}
	addr := cfg.Addr
	if addr == "" {
		addr = DefaultAddr
	}

	var (
		nc  net.Conn
		err error
	)
	for attempt := 1; attempt <= attempts; attempt++ {
		nc, err = dialOnce(ctx, addr)
		if err == nil {
			break
		}
		obslog.L().Info("peer_dial_retry", zap.String("addr", addr), zap.Int("attempt", attempt), zap.Error(err))
		if attempt == attempts {
			return nil, fmt.Errorf("%w: dial %s after %d attempts: %v", ErrTransport, addr, attempts, err)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}

	c := &Client{
		conn:    newLineConn(nc),
		mailbox: NewMailbox(),
		started: make(chan struct{}),
	}
	if err := c.readColor(ctx); err != nil {
		_ = c.conn.Close()
		return nil, err
	}
	go c.readLoop()
	obslog.L().Info("peer_connected", zap.String("addr", addr), zap.String("color", c.color.Name()))
	return c, nil
}

func dialOnce(ctx context.Context, addr string) (net.Conn, error) {
	if strings.HasPrefix(addr, "ws://") || strings.HasPrefix(addr, "wss://") {
		return dialWebsocket(ctx, addr)
	}
	var d net.Dialer
	dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return d.DialContext(dialCtx, "tcp", addr)
}

func (c *Client) readColor(ctx context.Context) error {
	if dl, ok := ctx.Deadline(); ok {
		_ = c.conn.c.SetReadDeadline(dl)
		defer c.conn.c.SetReadDeadline(time.Time{})
	}
	line, err := c.conn.ReadLine()
	if err != nil {
		return fmt.Errorf("%w: read color: %v", ErrTransport, err)
	}
	msg, err := ParseLine(line)
	if err != nil {
		return err
	}
	if msg.Kind != KindColor {
		return fmt.Errorf("%w: expected color, got %q", ErrProtocol, line)
	}
	c.color = msg.Color
	return nil
}

func (c *Client) readLoop() {
	for {
		line, err := c.conn.ReadLine()
		if err != nil {
			if errors.Is(err, ErrProtocol) {
				obslog.L().Warn("peer_line_dropped", zap.Error(err))
				continue
			}
			c.mailbox.Push(Inbound{Err: fmt.Errorf("%w: %v", ErrTransport, err)})
			c.mailbox.Close()
			_ = c.conn.Close()
			return
		}
		msg, err := ParseLine(line)
		if err != nil {
			obslog.L().Warn("peer_line_dropped", zap.Error(err))
			continue
		}
		switch msg.Kind {
		case KindStart:
			c.startOnce.Do(func() { close(c.started) })
		case KindMove:
			c.mailbox.Push(Inbound{Move: msg.Move})
		case KindEnded:
			c.mailbox.Push(Inbound{Err: ErrGameEnded})
		case KindColor:
			obslog.L().Warn("peer_line_dropped", zap.String("line", line))
		}
	}
}

// Color is the side this client plays.
func (c *Client) Color() chess.Color { return c.color }

// Mailbox holds moves received from the other side.
func (c *Client) Mailbox() *Mailbox { return c.mailbox }

// WaitForStart blocks until the relay reports two players.
func (c *Client) WaitForStart(ctx context.Context) error {
	select {
	case <-c.started:
		return nil
	case <-c.conn.done:
		return fmt.Errorf("%w: connection closed before start", ErrTransport)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SendMove transmits a move in coordinate notation.
func (c *Client) SendMove(_ context.Context, text string) error {
	req, err := chess.ParseMoveText(text)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProtocol, err)
	}
	if err := c.conn.Send(chess.FormatMoveText(req.From, req.To, req.Promotion)); err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	return nil
}

// Close tells the other side the game is over and drops the connection.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		_ = c.conn.Send(EndedLine)
		c.conn.Shutdown()
	})
	return nil
}
