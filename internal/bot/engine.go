package bot

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/park285/chess-tui-sync/internal/chess/uci"
	"github.com/park285/chess-tui-sync/internal/obslog"
	"go.uber.org/zap"
)

var (
	ErrEngineUnavailable = errors.New("engine unavailable")
	ErrEngineTimeout     = errors.New("engine timed out")
)

type Config struct {
	EnginePath string
	Difficulty Difficulty
	Depth      int
	BookPath   string
	BookMaxPly int
	Seed       int64
}

// Engine answers positions with a move from the opening book or its warm UCI engine.
type Engine struct {
	pool   *uci.Pool
	preset Preset
	book   *Book

	randMu sync.Mutex
	rand   *rand.Rand
}

func NewEngine(cfg Config) (*Engine, error) {
	preset, err := PresetFor(cfg.Difficulty, cfg.Depth)
	if err != nil {
		return nil, err
	}
	if err := ValidatePreset(preset); err != nil {
		return nil, err
	}
	pool, err := uci.NewPool(uci.PoolConfig{EnginePath: cfg.EnginePath, Options: preset.options()})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
	}

	e := &Engine{pool: pool, preset: preset}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	e.rand = rand.New(rand.NewSource(seed))

	if cfg.BookPath != "" {
		book, err := LoadBook(cfg.BookPath, cfg.BookMaxPly)
		if err != nil {
			obslog.L().Warn("bot_book_unavailable", zap.String("path", cfg.BookPath), zap.Error(err))
		} else {
			e.book = book
		}
	}
	return e, nil
}

func (e *Engine) Preset() Preset { return e.preset }

type Result struct {
	Move       string
	FromBook   bool
	Candidates []uci.Candidate
	BestMove   string
	Duration   time.Duration
}

// BestMove returns the move the bot plays in fen.
func (e *Engine) BestMove(ctx context.Context, fen string) (string, error) {
	res, err := e.Evaluate(ctx, fen)
	if err != nil {
		return "", err
	}
	return res.Move, nil
}

func (e *Engine) Evaluate(ctx context.Context, fen string) (Result, error) {
	start := time.Now()
	r := e.random()

	if mv, ok, err := e.book.Pick(fen, r); err != nil {
		obslog.L().Debug("bot_book_lookup_failed", zap.Error(err))
	} else if ok {
		return Result{Move: mv, FromBook: true, BestMove: mv, Duration: time.Since(start)}, nil
	}

	session, err := e.pool.Acquire(ctx)
	if err != nil {
		return Result{}, classify(err)
	}
	var releaseErr error
	defer func() { e.pool.Release(session, releaseErr) }()

	if err := session.NewGame(ctx); err != nil {
		releaseErr = err
		return Result{}, classify(err)
	}
	resp, err := session.Search(ctx, uci.SearchRequest{FEN: fen, Limits: e.preset.limits()})
	if err != nil {
		releaseErr = err
		return Result{}, classify(err)
	}

	chosen := uci.Candidate{Move: resp.BestMove}
	if len(resp.Candidates) > 0 {
		if chosen, err = SelectCandidate(e.preset, resp.Candidates, r); err != nil {
			return Result{}, err
		}
	}
	obslog.L().Debug("bot_move",
		zap.String("preset", e.preset.Name),
		zap.String("move", chosen.Move),
		zap.String("engine_best", resp.BestMove),
		zap.Int("eval_cp", chosen.EvalCP),
		zap.Duration("took", time.Since(start)))

	return Result{
		Move:       chosen.Move,
		Candidates: resp.Candidates,
		BestMove:   resp.BestMove,
		Duration:   time.Since(start),
	}, nil
}

// classify maps engine failures onto the bot's error kinds.
func classify(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", ErrEngineTimeout, err)
	case errors.Is(err, context.Canceled), errors.Is(err, uci.ErrNoBestMove):
		return err
	}
	return fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
}

func (e *Engine) random() *rand.Rand {
	e.randMu.Lock()
	seed := e.rand.Int63()
	e.randMu.Unlock()
	return rand.New(rand.NewSource(seed))
}

func (e *Engine) Close() error {
	if e.pool == nil {
		return nil
	}
	return e.pool.Close()
}
