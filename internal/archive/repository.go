package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

const schema = `CREATE TABLE IF NOT EXISTS games (
	game_id     TEXT PRIMARY KEY,
	mode        TEXT NOT NULL,
	white_name  TEXT NOT NULL,
	black_name  TEXT NOT NULL,
	local_color TEXT NOT NULL,
	result      TEXT NOT NULL,
	termination TEXT NOT NULL,
	initial_fen TEXT NOT NULL,
	final_fen   TEXT NOT NULL,
	moves_uci   JSONB NOT NULL,
	moves_san   JSONB NOT NULL,
	pgn         TEXT NOT NULL,
	started_at  TIMESTAMPTZ NOT NULL,
	ended_at    TIMESTAMPTZ NOT NULL,
	duration_ms BIGINT NOT NULL
)`

const upsertGame = `INSERT INTO games (
	game_id, mode, white_name, black_name, local_color,
	result, termination, initial_fen, final_fen,
	moves_uci, moves_san, pgn, started_at, ended_at, duration_ms
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15
) ON CONFLICT (game_id) DO UPDATE SET
	mode=EXCLUDED.mode,
	white_name=EXCLUDED.white_name,
	black_name=EXCLUDED.black_name,
	local_color=EXCLUDED.local_color,
	result=EXCLUDED.result,
	termination=EXCLUDED.termination,
	initial_fen=EXCLUDED.initial_fen,
	final_fen=EXCLUDED.final_fen,
	moves_uci=EXCLUDED.moves_uci,
	moves_san=EXCLUDED.moves_san,
	pgn=EXCLUDED.pgn,
	started_at=EXCLUDED.started_at,
	ended_at=EXCLUDED.ended_at,
	duration_ms=EXCLUDED.duration_ms`

// Repository stores finished games in Postgres.
type Repository struct {
	db *sql.DB
}

func NewRepository(databaseURL string) (*Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	r := &Repository{db: db}
	if err := r.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create games table: %w", err)
	}
	return nil
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil { return nil }
	return r.db.Close()
}

// SaveResult upserts a finished game.
func (r *Repository) SaveResult(ctx context.Context, rec *Record) error {
	if r == nil || r.db == nil || rec == nil {
		return nil
	}
	_, err := r.db.ExecContext(ctx, upsertGame, resultArgs(rec)...)
	return err
}

func resultArgs(rec *Record) []any {
	movesUCIRaw, _ := json.Marshal(nonNil(rec.MovesUCI))
	movesSANRaw, _ := json.Marshal(nonNil(rec.MovesSAN))
	duration := rec.UpdatedAt.Sub(rec.CreatedAt).Milliseconds()
	if duration < 0 { duration = 0 }
	return []any{
		rec.ID, rec.Mode, rec.White, rec.Black, rec.LocalColor,
		mapResultToPGN(rec.Result), strings.TrimSpace(rec.Termination), rec.InitialFEN, rec.FEN,
		string(movesUCIRaw), string(movesSANRaw), BuildPGN(rec),
		rec.CreatedAt, rec.UpdatedAt, duration,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
