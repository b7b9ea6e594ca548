package archive

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestSANMoves(t *testing.T) {
	got, err := SANMoves("", []string{"e2e4", "e7e5", "g1f3", "b8c6"})
	if err != nil { t.Fatalf("san: %v", err) }
	if want := []string{"e4", "e5", "Nf3", "Nc6"}; !reflect.DeepEqual(got, want) { t.Fatalf("got %v", got) }

	if _, err := SANMoves("", []string{"e2e5"}); err == nil { t.Fatalf("expected illegal move error") }
}

func TestSANMovesFromCustomPosition(t *testing.T) {
	got, err := SANMoves("4k3/8/8/8/8/8/8/4K2R w K - 0 1", []string{"h1h7"})
	if err != nil { t.Fatalf("san: %v", err) }
	if len(got) != 1 || got[0] != "Rh7" { t.Fatalf("got %v", got) }
}

func TestBuildPGN(t *testing.T) {
	rec := &Record{
		ID: "m1", Mode: ModeBot, White: "me", Black: "stockfish \"hard\"",
		MovesSAN: []string{"e4", "e5", "Nf3"}, Result: ResultWhite, Termination: "Checkmate",
		UpdatedAt: time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC),
	}
	pgn := BuildPGN(rec)
	for _, want := range []string{
		"[Date \"2026.03.09\"]", "[Black \"stockfish 'hard'\"]", "[Result \"1-0\"]",
		"[Termination \"checkmate\"]", "1. e4 e5 2. Nf3 1-0",
	} {
		if !strings.Contains(pgn, want) { t.Fatalf("pgn missing %q:\n%s", want, pgn) }
	}
	if strings.Contains(pgn, "[FEN") { t.Fatalf("standard start must not carry FEN tag") }
}

func TestBuildPGNBlackToMoveFirst(t *testing.T) {
	rec := &Record{InitialFEN: "4k3/8/8/8/8/8/8/4K2R b K - 0 7", MovesSAN: []string{"Kd7", "Rh7+"}}
	pgn := BuildPGN(rec)
	if !strings.Contains(pgn, "[SetUp \"1\"]") || !strings.HasSuffix(pgn, "7... Kd7 8. Rh7+ *") { t.Fatalf("unexpected pgn:\n%s", pgn) }
}

func TestMapResultToPGN(t *testing.T) {
	cases := map[string]string{ResultWhite: "1-0", ResultBlack: "0-1", ResultDraw: "1/2-1/2", "": "*", "aborted": "*"}
	for in, want := range cases {
		if got := mapResultToPGN(in); got != want { t.Fatalf("%q -> %q, want %q", in, got, want) }
	}
}

type recordingSaver struct {
	saved []*Record
	err   error
}

func (r *recordingSaver) SaveResult(_ context.Context, rec *Record) error {
	r.saved = append(r.saved, rec.clone())
	return r.err
}

func TestArchiveFinishFillsSANAndSaves(t *testing.T) {
	saver := &recordingSaver{}
	a := New(NewMemoryStore(), saver)
	ctx := context.Background()
	rec := sampleRecord("f", time.Now())
	if err := a.Snapshot(ctx, rec); err != nil { t.Fatalf("snapshot: %v", err) }
	if len(rec.MovesSAN) != 2 || rec.MovesSAN[1] != "e5" { t.Fatalf("san not filled: %v", rec.MovesSAN) }

	rec.Result = ResultDraw
	if err := a.Finish(ctx, rec); err != nil { t.Fatalf("finish: %v", err) }
	if len(saver.saved) != 1 || !saver.saved[0].Finished { t.Fatalf("result not saved: %+v", saver.saved) }
	active, _ := a.Store().ListActive(ctx)
	if len(active) != 0 { t.Fatalf("finished match still active") }
}

func TestArchiveFinishReportsSaverError(t *testing.T) {
	boom := errors.New("db down")
	a := New(nil, &recordingSaver{err: boom})
	if err := a.Finish(context.Background(), sampleRecord("e", time.Now())); !errors.Is(err, boom) { t.Fatalf("expected saver error, got %v", err) }
}

func TestResultArgs(t *testing.T) {
	now := time.Now()
	rec := &Record{ID: "r", CreatedAt: now, UpdatedAt: now.Add(90 * time.Second), Result: ResultBlack}
	args := resultArgs(rec)
	if len(args) != 15 { t.Fatalf("expected 15 args, got %d", len(args)) }
	if args[5] != "0-1" || args[9] != "[]" || args[14] != int64(90000) { t.Fatalf("unexpected args: %v", args) }
}

func TestLoadPGNRoundTrip(t *testing.T) {
	uci := []string{"f2f3", "e7e5", "g2g4", "d8h4"}
	san, err := SANMoves("", uci)
	if err != nil { t.Fatalf("san: %v", err) }
	src := &Record{Mode: ModeSolo, White: "a", Black: "b", MovesSAN: san, Result: ResultBlack, Termination: "checkmate"}

	rec, err := LoadPGN(strings.NewReader(BuildPGN(src)))
	if err != nil { t.Fatalf("load: %v", err) }
	if !reflect.DeepEqual(rec.MovesUCI, uci) { t.Fatalf("uci = %v", rec.MovesUCI) }
	if !reflect.DeepEqual(rec.MovesSAN, san) { t.Fatalf("san = %v, want %v", rec.MovesSAN, san) }
	if rec.White != "a" || rec.Black != "b" || rec.Mode != ModeSolo { t.Fatalf("tags lost: %+v", rec) }
	if rec.Result != ResultBlack || !rec.Finished || rec.Termination != "checkmate" { t.Fatalf("result lost: %+v", rec) }
	if !strings.HasPrefix(rec.FEN, "rnb1kbnr/pppp1ppp/8/4p3/6Pq/5P2/PPPPP2P/RNBQKBNR w") { t.Fatalf("fen = %s", rec.FEN) }
}

func TestLoadPGNFromSetUpPosition(t *testing.T) {
	fen := "4k3/8/8/8/8/8/4P3/4K3 b - - 0 12"
	src := &Record{InitialFEN: fen, MovesSAN: []string{"Kd7", "e4"}}
	rec, err := LoadPGN(strings.NewReader(BuildPGN(src)))
	if err != nil { t.Fatalf("load: %v", err) }
	if rec.InitialFEN != fen { t.Fatalf("initial fen = %q", rec.InitialFEN) }
	if !reflect.DeepEqual(rec.MovesUCI, []string{"e8d7", "e2e4"}) { t.Fatalf("uci = %v", rec.MovesUCI) }
	if rec.Finished || rec.Result != "" || rec.White != "" { t.Fatalf("unfinished game read as %+v", rec) }
}

func TestLoadPGNErrors(t *testing.T) {
	if _, err := LoadPGN(strings.NewReader("")); err == nil { t.Fatalf("expected error for empty input") }
	if _, err := LoadPGN(strings.NewReader("[Event \"x\"]\n\n1. e5 *")); err == nil { t.Fatalf("expected illegal move error") }
}
