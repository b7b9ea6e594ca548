package peer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/park285/chess-tui-sync/internal/chess"
	"github.com/park285/chess-tui-sync/internal/obslog"
	"go.uber.org/zap"
)

type member struct {
	id    uint64
	color chess.Color
	conn  *lineConn
}

// Relay keeps the roster of connected players and forwards each move to
// everyone except its sender.
type Relay struct {
	hostColor chess.Color

	mu      sync.Mutex
	peers   map[uint64]*member
	nextID  uint64
	started bool
	closed  bool
	ln      net.Listener

	wg sync.WaitGroup
}

func NewRelay(hostColor chess.Color) *Relay {
	return &Relay{hostColor: hostColor, peers: make(map[uint64]*member)}
}

// Listen binds addr and serves TCP peers in the background.
func Listen(ctx context.Context, addr string, hostColor chess.Color) (*Relay, error) {
	if addr == "" {
		addr = DefaultAddr
	}
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("relay listen %s: %w", addr, err)
	}
	r := NewRelay(hostColor)
	r.mu.Lock()
	r.ln = ln
	r.mu.Unlock()
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.serve(ln)
	}()
	obslog.L().Info("relay_listen", zap.String("addr", ln.Addr().String()), zap.String("host_color", hostColor.Name()))
	return r, nil
}

func (r *Relay) Addr() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ln == nil {
		return ""
	}
	return r.ln.Addr().String()
}

func (r *Relay) serve(ln net.Listener) {
	for {
		c, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			obslog.L().Warn("relay_accept_error", zap.Error(err))
			continue
		}
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			r.Handle(c)
		}()
	}
}

// Handle runs one peer connection until it leaves or fails.
func (r *Relay) Handle(c net.Conn) {
	m, err := r.join(c)
	if err != nil {
		_ = c.Close()
		return
	}
	announced := false
	defer func() { r.leave(m, !announced) }()

	for {
		line, err := m.conn.ReadLine()
		if err != nil {
			if errors.Is(err, ErrProtocol) {
				obslog.L().Warn("relay_line_dropped", zap.Uint64("peer", m.id), zap.Error(err))
				continue
			}
			obslog.L().Info("relay_peer_transport", zap.Uint64("peer", m.id), zap.Error(err))
			return
		}
		msg, err := ParseLine(line)
		if err != nil {
			obslog.L().Warn("relay_line_dropped", zap.Uint64("peer", m.id), zap.Error(err))
			continue
		}
		switch msg.Kind {
		case KindMove:
			r.broadcast(m.id, msg.Move)
		case KindEnded:
			r.broadcast(m.id, EndedLine)
			announced = true
			return
		default:
			obslog.L().Warn("relay_line_dropped", zap.Uint64("peer", m.id), zap.String("line", line))
		}
	}
}

func (r *Relay) join(c net.Conn) (*member, error) {
	lc := newLineConn(c)

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		_ = lc.Close()
		return nil, ErrClosed
	}
	color := r.hostColor
	if len(r.peers) > 0 {
		color = r.hostColor.Opposite()
	}
	r.nextID++
	m := &member{id: r.nextID, color: color, conn: lc}
	r.peers[m.id] = m
	// the fresh outbound queue is empty, so these sends cannot block
	_ = lc.Send(color.String())
	var others []*member
	switch {
	case r.started:
		_ = lc.Send(StartLine)
	case len(r.peers) >= 2:
		r.started = true
		_ = lc.Send(StartLine)
		others = r.snapshotLocked(m.id)
	}
	count := len(r.peers)
	r.mu.Unlock()

	for _, p := range others {
		_ = p.conn.Send(StartLine)
	}
	obslog.L().Info("relay_peer_join",
		zap.Uint64("peer", m.id),
		zap.String("addr", lc.RemoteAddr()),
		zap.String("color", color.Name()),
		zap.Int("roster", count))
	return m, nil
}

func (r *Relay) leave(m *member, notify bool) {
	r.mu.Lock()
	_, present := r.peers[m.id]
	delete(r.peers, m.id)
	count := len(r.peers)
	r.mu.Unlock()

	m.conn.Shutdown()
	if !present {
		return
	}
	if notify {
		r.broadcast(m.id, EndedLine)
	}
	obslog.L().Info("relay_peer_leave", zap.Uint64("peer", m.id), zap.Int("roster", count))
}

func (r *Relay) snapshotLocked(except uint64) []*member {
	out := make([]*member, 0, len(r.peers))
	for id, p := range r.peers {
		if id != except {
			out = append(out, p)
		}
	}
	return out
}

func (r *Relay) broadcast(from uint64, line string) {
	r.mu.Lock()
	targets := r.snapshotLocked(from)
	r.mu.Unlock()
	for _, p := range targets {
		if err := p.conn.Send(line); err != nil {
			obslog.L().Debug("relay_send_failed", zap.Uint64("peer", p.id), zap.Error(err))
		}
	}
}

// Peers returns the current roster size.
func (r *Relay) Peers() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.peers)
}

func (r *Relay) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	ln := r.ln
	peers := r.snapshotLocked(0)
	r.mu.Unlock()

	var err error
	if ln != nil {
		err = ln.Close()
	}
	for _, p := range peers {
		_ = p.conn.Close()
	}
	r.wg.Wait()
	return err
}
