package bot

import (
	"fmt"
	"math/rand"
	"os"
	"sort"
	"strconv"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

const defaultBookMaxPly = 12

type BookMove struct {
	Move   string
	Weight uint16
}

// Book is a Polyglot opening book consulted before the engine.
type Book struct {
	book   *nchess.PolyglotBook
	maxPly int
}

func LoadBook(path string, maxPly int) (*Book, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("polyglot book path required")
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open polyglot book %q: %w", path, err)
	}
	defer file.Close()

	book, err := nchess.LoadFromReader(file)
	if err != nil {
		return nil, fmt.Errorf("load polyglot book %q: %w", path, err)
	}
	if maxPly <= 0 {
		maxPly = defaultBookMaxPly
	}
	return &Book{book: book, maxPly: maxPly}, nil
}

// Moves returns the legal book replies for fen, heaviest first.
// Positions past the ply limit have no book moves.
func (b *Book) Moves(fen string) ([]BookMove, error) {
	if b == nil || b.book == nil {
		return nil, nil
	}
	if plyFromFEN(fen) >= b.maxPly {
		return nil, nil
	}

	option, err := nchess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("parse fen %q: %w", fen, err)
	}
	game := nchess.NewGame(option)

	hashStr, err := nchess.NewZobristHasher().HashPosition(game.FEN())
	if err != nil {
		return nil, fmt.Errorf("compute polyglot hash: %w", err)
	}
	entries := b.book.FindMoves(nchess.ZobristHashToUint64(hashStr))

	out := make([]BookMove, 0, len(entries))
	for _, entry := range entries {
		mv := nchess.DecodeMove(entry.Move).ToMove()
		uciMove := mv.String()
		verify := nchess.NewGame(option)
		if err := verify.PushNotationMove(uciMove, nchess.UCINotation{}, nil); err != nil {
			continue
		}
		out = append(out, BookMove{Move: uciMove, Weight: entry.Weight})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Weight > out[j].Weight })
	return out, nil
}

// Pick chooses a book move with probability proportional to its weight.
func (b *Book) Pick(fen string, r *rand.Rand) (string, bool, error) {
	moves, err := b.Moves(fen)
	if err != nil || len(moves) == 0 {
		return "", false, err
	}
	total := 0
	for _, m := range moves {
		total += int(m.Weight)
	}
	if total <= 0 || r == nil {
		return moves[0].Move, true, nil
	}
	roll := r.Intn(total)
	cumulative := 0
	for _, m := range moves {
		cumulative += int(m.Weight)
		if roll < cumulative {
			return m.Move, true, nil
		}
	}
	return moves[len(moves)-1].Move, true, nil
}

// plyFromFEN counts half-moves played from the fullmove field and side to move.
func plyFromFEN(fen string) int {
	fields := strings.Fields(fen)
	if len(fields) < 6 {
		return 0
	}
	full, err := strconv.Atoi(fields[5])
	if err != nil || full < 1 {
		return 0
	}
	ply := (full - 1) * 2
	if fields[1] == "b" {
		ply++
	}
	return ply
}
