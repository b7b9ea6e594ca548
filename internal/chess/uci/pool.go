package uci

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"

	"github.com/park285/chess-tui-sync/internal/obslog"
	"go.uber.org/zap"
)

var ErrPoolClosed = errors.New("engine pool closed")

type PoolConfig struct {
	// EnginePath is the engine command line; arguments are split on whitespace.
	EnginePath string
	// Options are applied once to every session the pool starts.
	Options Options
}

// Pool keeps one warm engine session for a single option set. A session
// returned with an error is killed and the next Acquire starts a fresh one.
type Pool struct {
	enginePath string
	opt        Options

	// turn holds a token while the session is checked out.
	turn chan struct{}

	mu       sync.Mutex
	closed   bool
	idle     *Session
	out      *Session
	restarts int
}

func NewPool(cfg PoolConfig) (*Pool, error) {
	program, _, err := SplitCommand(cfg.EnginePath)
	if err != nil {
		return nil, err
	}
	if _, err := exec.LookPath(program); err != nil {
		return nil, fmt.Errorf("engine binary check: %w", err)
	}
	if err := validateOptions(cfg.Options); err != nil {
		return nil, err
	}
	return &Pool{
		enginePath: cfg.EnginePath,
		opt:        cfg.Options,
		turn:       make(chan struct{}, 1),
	}, nil
}

// Acquire waits until the session is free, then hands it out. A warm session
// that no longer answers isready is replaced before it is returned.
func (p *Pool) Acquire(ctx context.Context) (*Session, error) {
	select {
	case p.turn <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		<-p.turn
		return nil, ErrPoolClosed
	}
	session := p.idle
	p.idle = nil
	p.mu.Unlock()

	if session != nil {
		if err := session.EnsureReady(ctx); err != nil {
			obslog.L().Warn("uci_session_stale", zap.Error(err))
			_ = session.Close()
			session = nil
			p.countRestart()
		}
	}
	if session == nil {
		var err error
		if session, err = NewSession(ctx, p.enginePath, p.opt); err != nil {
			<-p.turn
			return nil, err
		}
	}

	p.mu.Lock()
	p.out = session
	p.mu.Unlock()
	return session, nil
}

// Release hands the session back. A non-nil err marks it broken; so does a
// closed pool. Either way the process is shut down instead of kept warm.
func (p *Pool) Release(session *Session, err error) {
	if session == nil {
		return
	}
	p.mu.Lock()
	if session != p.out {
		p.mu.Unlock()
		_ = session.Close()
		return
	}
	p.out = nil
	keep := err == nil && !p.closed
	if keep {
		p.idle = session
	}
	if err != nil {
		p.restarts++
	}
	p.mu.Unlock()

	if !keep {
		if err != nil {
			obslog.L().Debug("uci_session_discard", zap.Error(err))
		}
		_ = session.Close()
	}
	<-p.turn
}

// Restarts counts sessions thrown away after a failure.
func (p *Pool) Restarts() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.restarts
}

func (p *Pool) countRestart() {
	p.mu.Lock()
	p.restarts++
	p.mu.Unlock()
}

// Close stops the idle session. A session still checked out is stopped when
// it is released.
func (p *Pool) Close() error {
	p.mu.Lock()
	p.closed = true
	idle := p.idle
	p.idle = nil
	p.mu.Unlock()
	if idle == nil {
		return nil
	}
	return idle.Close()
}
