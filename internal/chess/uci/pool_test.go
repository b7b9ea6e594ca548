package uci

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestPool(t *testing.T) *Pool {
	t.Helper()
	p, err := NewPool(PoolConfig{EnginePath: fakeEnginePath(t), Options: Options{Threads: 1}})
	if err != nil {
		t.Fatalf("new pool: %v", err)
	}
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func TestPoolReusesWarmSession(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	p := newTestPool(t)

	first, err := p.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if _, err := first.BestMove(ctx, "startpos", Limits{Depth: 1}); err != nil {
		t.Fatalf("search: %v", err)
	}
	p.Release(first, nil)

	second, err := p.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire again: %v", err)
	}
	defer p.Release(second, nil)
	if second != first {
		t.Fatal("expected the warm session back")
	}
	if p.Restarts() != 0 {
		t.Fatalf("restarts = %d", p.Restarts())
	}
}

func TestPoolDiscardsFailedSession(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	p := newTestPool(t)

	first, err := p.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	p.Release(first, errors.New("search failed"))
	if err := first.EnsureReady(ctx); err == nil {
		t.Fatal("discarded session must be shut down")
	}

	second, err := p.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire after failure: %v", err)
	}
	defer p.Release(second, nil)
	if second == first {
		t.Fatal("expected a restarted session")
	}
	if p.Restarts() != 1 {
		t.Fatalf("restarts = %d", p.Restarts())
	}
	if _, err := second.BestMove(ctx, "startpos", Limits{Depth: 1}); err != nil {
		t.Fatalf("restarted session search: %v", err)
	}
}

func TestPoolReplacesDeadIdleSession(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	p := newTestPool(t)

	first, err := p.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	p.Release(first, nil)
	_ = first.Close()

	second, err := p.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer p.Release(second, nil)
	if second == first || p.Restarts() != 1 {
		t.Fatalf("dead idle session not replaced, restarts = %d", p.Restarts())
	}
}

func TestPoolAcquireWaitsForCheckedOutSession(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	p := newTestPool(t)

	held, err := p.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	short, cancelShort := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancelShort()
	if _, err := p.Acquire(short); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}

	got := make(chan *Session, 1)
	go func() {
		s, err := p.Acquire(ctx)
		if err != nil {
			got <- nil
			return
		}
		got <- s
	}()
	p.Release(held, nil)
	select {
	case s := <-got:
		if s != held {
			t.Fatal("waiter did not receive the released session")
		}
		p.Release(s, nil)
	case <-ctx.Done():
		t.Fatal("waiter never acquired")
	}
}

func TestPoolCloseWhileCheckedOut(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	p := newTestPool(t)

	s, err := p.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := s.EnsureReady(ctx); err != nil {
		t.Fatalf("checked-out session must survive Close until released: %v", err)
	}
	p.Release(s, nil)
	if err := s.EnsureReady(ctx); err == nil {
		t.Fatal("released session must be shut down after Close")
	}
	if _, err := p.Acquire(ctx); !errors.Is(err, ErrPoolClosed) {
		t.Fatalf("expected ErrPoolClosed, got %v", err)
	}
}

func TestNewPoolRejectsBadConfig(t *testing.T) {
	if _, err := NewPool(PoolConfig{EnginePath: "/nonexistent/engine-binary"}); err == nil {
		t.Fatal("expected binary check error")
	}
	if _, err := NewPool(PoolConfig{EnginePath: "  "}); err == nil {
		t.Fatal("expected empty path error")
	}
	if _, err := NewPool(PoolConfig{EnginePath: fakeEnginePath(t), Options: Options{SkillLevel: 99}}); err == nil {
		t.Fatal("expected option validation error")
	}
}
