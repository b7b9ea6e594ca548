package archive

import (
	"fmt"
	"io"
	"strings"
	"time"

	nchess "github.com/corentings/chess/v2"
)

// SANMoves replays UCI moves from initialFEN (standard start when empty) and
// returns them in standard algebraic notation.
func SANMoves(initialFEN string, movesUCI []string) ([]string, error) {
	game := nchess.NewGame()
	if strings.TrimSpace(initialFEN) != "" {
		opt, err := nchess.FEN(initialFEN)
		if err != nil { return nil, fmt.Errorf("parse fen %q: %w", initialFEN, err) }
		game = nchess.NewGame(opt)
	}
	out := make([]string, 0, len(movesUCI))
	for i, uci := range movesUCI {
		pos := game.Position()
		mv, err := nchess.UCINotation{}.Decode(pos, strings.ToLower(strings.TrimSpace(uci)))
		if err != nil { return nil, fmt.Errorf("move %d %q: %w", i+1, uci, err) }
		san := nchess.AlgebraicNotation{}.Encode(pos, mv)
		if err := game.Move(mv, nil); err != nil { return nil, fmt.Errorf("move %d %q: %w", i+1, uci, err) }
		out = append(out, san)
	}
	return out, nil
}

func mapResultToPGN(result string) string {
	switch strings.ToLower(strings.TrimSpace(result)) {
	case ResultWhite:
		return "1-0"
	case ResultBlack:
		return "0-1"
	case ResultDraw:
		return "1/2-1/2"
	default:
		return "*"
	}
}

// BuildPGN renders rec with its SAN moves. Black-first custom positions
// start with "1..." as PGN requires.
func BuildPGN(rec *Record) string {
	if rec == nil {
		return ""
	}
	pgnResult := mapResultToPGN(rec.Result)
	date := rec.UpdatedAt
	if date.IsZero() {
		date = time.Now()
	}

	var b strings.Builder
	b.WriteString("[Event \"chess-tui match\"]\n")
	b.WriteString(fmt.Sprintf("[Site \"%s\"]\n", sanitizePGN(rec.Mode)))
	b.WriteString(fmt.Sprintf("[Date \"%04d.%02d.%02d\"]\n", date.Year(), int(date.Month()), date.Day()))
	b.WriteString(fmt.Sprintf("[White \"%s\"]\n", sanitizePGN(orUnknown(rec.White))))
	b.WriteString(fmt.Sprintf("[Black \"%s\"]\n", sanitizePGN(orUnknown(rec.Black))))
	if strings.TrimSpace(rec.InitialFEN) != "" {
		b.WriteString("[SetUp \"1\"]\n")
		b.WriteString(fmt.Sprintf("[FEN \"%s\"]\n", sanitizePGN(rec.InitialFEN)))
	}
	if strings.TrimSpace(rec.Termination) != "" {
		b.WriteString(fmt.Sprintf("[Termination \"%s\"]\n", sanitizePGN(strings.ToLower(rec.Termination))))
	}
	b.WriteString(fmt.Sprintf("[Result \"%s\"]\n\n", pgnResult))

	turn, blackFirst := startOf(rec.InitialFEN)
	moves := rec.MovesSAN
	if blackFirst && len(moves) > 0 {
		b.WriteString(fmt.Sprintf("%d... %s ", turn, strings.TrimSpace(moves[0])))
		moves = moves[1:]
		turn++
	}
	for i := 0; i < len(moves); i += 2 {
		b.WriteString(fmt.Sprintf("%d. %s", turn, strings.TrimSpace(moves[i])))
		if i+1 < len(moves) {
			b.WriteString(" ")
			b.WriteString(strings.TrimSpace(moves[i+1]))
		}
		b.WriteString(" ")
		turn++
	}
	b.WriteString(pgnResult)
	return b.String()
}

// LoadPGN reads the first game of r into a record: players, the SetUp
// position, main-line moves in both notations, the final FEN and, when the
// game carries one, its result. Variations and comments are dropped.
func LoadPGN(r io.Reader) (*Record, error) {
	opt, err := nchess.PGN(r)
	if err != nil { return nil, fmt.Errorf("parse pgn: %w", err) }
	game := nchess.NewGame(opt)

	rec := &Record{
		Mode:        strings.TrimSpace(game.GetTagPair("Site")),
		White:       knownOrEmpty(game.GetTagPair("White")),
		Black:       knownOrEmpty(game.GetTagPair("Black")),
		InitialFEN:  strings.TrimSpace(game.GetTagPair("FEN")),
		Termination: strings.ToLower(strings.TrimSpace(game.GetTagPair("Termination"))),
	}
	positions := game.Positions()
	if len(positions) > 0 {
		rec.FEN = positions[len(positions)-1].String()
	}
	for i, mv := range game.Moves() {
		rec.MovesUCI = append(rec.MovesUCI, mv.String())
		if i < len(positions) {
			rec.MovesSAN = append(rec.MovesSAN, nchess.AlgebraicNotation{}.Encode(positions[i], mv))
		}
	}
	switch game.Outcome() {
	case nchess.WhiteWon:
		rec.Result, rec.Finished = ResultWhite, true
	case nchess.BlackWon:
		rec.Result, rec.Finished = ResultBlack, true
	case nchess.Draw:
		rec.Result, rec.Finished = ResultDraw, true
	}
	return rec, nil
}

func knownOrEmpty(s string) string {
	s = strings.TrimSpace(s)
	if s == "?" {
		return ""
	}
	return s
}

// startOf returns the fullmove number and whether Black moves first.
func startOf(fen string) (int, bool) {
	fields := strings.Fields(fen)
	turn := 1
	if len(fields) >= 6 {
		if _, err := fmt.Sscanf(fields[5], "%d", &turn); err != nil || turn < 1 {
			turn = 1
		}
	}
	return turn, len(fields) >= 2 && fields[1] == "b"
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "?"
	}
	return s
}

func sanitizePGN(s string) string {
	s = strings.ReplaceAll(s, "\\", " ")
	s = strings.ReplaceAll(s, "\"", "'")
	return strings.TrimSpace(s)
}
