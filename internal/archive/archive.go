package archive

import (
	"context"

	"github.com/park285/chess-tui-sync/internal/obslog"
	"go.uber.org/zap"
)

// ResultSaver persists finished games. *Repository implements it.
type ResultSaver interface {
	SaveResult(ctx context.Context, rec *Record) error
}

// Archive combines the snapshot store with the optional result repository.
type Archive struct {
	store Store
	repo  ResultSaver
}

func New(store Store, repo ResultSaver) *Archive {
	if store == nil {
		store = NewMemoryStore()
	}
	return &Archive{store: store, repo: repo}
}

func (a *Archive) Store() Store { return a.store }

// Snapshot fills in SAN moves and saves rec.
func (a *Archive) Snapshot(ctx context.Context, rec *Record) error {
	a.fillSAN(rec)
	return a.store.SaveSnapshot(ctx, rec)
}

// Finish marks rec finished and saves the final result.
func (a *Archive) Finish(ctx context.Context, rec *Record) error {
	a.fillSAN(rec)
	rec.Finished = true
	if err := a.store.MarkFinished(ctx, rec); err != nil {
		return err
	}
	if a.repo == nil {
		return nil
	}
	if err := a.repo.SaveResult(ctx, rec); err != nil {
		obslog.L().Error("match_result_persist_error", zap.String("match_id", rec.ID), zap.String("result", rec.Result), zap.Error(err))
		return err
	}
	obslog.L().Info("match_result_persist", zap.String("match_id", rec.ID), zap.String("result", rec.Result), zap.String("termination", rec.Termination))
	return nil
}

func (a *Archive) fillSAN(rec *Record) {
	if rec == nil || len(rec.MovesSAN) == len(rec.MovesUCI) {
		return
	}
	san, err := SANMoves(rec.InitialFEN, rec.MovesUCI)
	if err != nil {
		obslog.L().Warn("match_san_replay_error", zap.String("match_id", rec.ID), zap.Error(err))
		return
	}
	rec.MovesSAN = san
}

func (a *Archive) Close() error {
	return a.store.Close()
}
