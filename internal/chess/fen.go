package chess

import (
	"fmt"
	"strconv"
	"strings"
)

// StartFEN is the standard starting position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// encodeFEN writes the six FEN fields, or the first four when includeCounters is false.
// An en-passant square is written only when side could capture onto it.
func encodeFEN(b *Board, ln line, side Color, includeCounters bool) string {
	var sb strings.Builder
	sb.Grow(90)
	sb.WriteString(b.Placement())
	sb.WriteByte(' ')
	sb.WriteString(side.String())
	sb.WriteByte(' ')
	sb.WriteString(castlingField(b, ln))
	sb.WriteByte(' ')
	if ep, ok := enPassantTarget(ln); ok && ep.Row == epRowFor(side) {
		sb.WriteString(ep.String())
	} else {
		sb.WriteByte('-')
	}
	if includeCounters {
		sb.WriteByte(' ')
		sb.WriteString(strconv.Itoa(halfmoveClock(ln)))
		sb.WriteByte(' ')
		sb.WriteString(strconv.Itoa(fullmoveNumber(ln)))
	}
	return sb.String()
}

// ParsePlacement decodes a FEN piece placement field.
func ParsePlacement(field string) (Board, error) {
	var b Board
	ranks := strings.Split(strings.TrimSpace(field), "/")
	if len(ranks) != 8 {
		return b, fmt.Errorf("fen placement: want 8 ranks, got %d", len(ranks))
	}
	for r, rank := range ranks {
		col := 0
		for i := 0; i < len(rank); i++ {
			ch := rank[i]
			if ch >= '1' && ch <= '8' {
				col += int(ch - '0')
				continue
			}
			p, ok := pieceFromFEN(ch)
			if !ok {
				return b, fmt.Errorf("fen placement: bad piece %q in rank %d", ch, 8-r)
			}
			if col > 7 {
				return b, fmt.Errorf("fen placement: rank %d overflows", 8-r)
			}
			b[r][col] = p
			col++
		}
		if col != 8 {
			return b, fmt.Errorf("fen placement: rank %d has %d files", 8-r, col)
		}
	}
	return b, nil
}

// ParseFEN builds a game board from a FEN record. The castling, en-passant
// and counter fields become the board's Origin; missing trailing fields take
// the DefaultOrigin values. Castling letters whose king or rook is off its
// home square are dropped.
func ParseFEN(fen string) (*GameBoard, Color, error) {
	fields := strings.Fields(fen)
	if len(fields) < 2 || len(fields) > 6 {
		return nil, White, fmt.Errorf("fen: want 2 to 6 fields, got %d", len(fields))
	}
	b, err := ParsePlacement(fields[0])
	if err != nil {
		return nil, White, err
	}
	side, ok := ParseColor(fields[1])
	if !ok || len(fields[1]) != 1 {
		return nil, White, fmt.Errorf("fen: bad side to move %q", fields[1])
	}
	origin := DefaultOrigin(side)
	if len(fields) > 2 {
		if origin.Castling, err = ParseCastlingRights(fields[2]); err != nil {
			return nil, White, err
		}
	}
	if len(fields) > 3 && fields[3] != "-" {
		ep, err := ParseCoord(fields[3])
		if err != nil || ep.Row != epRowFor(side) {
			return nil, White, fmt.Errorf("fen: bad en-passant square %q for %s to move", fields[3], side.Name())
		}
		origin.EnPassant = ep
	}
	if len(fields) > 4 {
		if origin.Halfmove, err = parseCounter(fields[4], 0); err != nil {
			return nil, White, fmt.Errorf("fen: halfmove clock: %w", err)
		}
	}
	if len(fields) > 5 {
		if origin.Fullmove, err = parseCounter(fields[5], 1); err != nil {
			return nil, White, fmt.Errorf("fen: fullmove number: %w", err)
		}
	}
	return NewGameBoardAt(b, origin), side, nil
}

func parseCounter(s string, min int) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n < min {
		return 0, fmt.Errorf("%d is below %d", n, min)
	}
	return n, nil
}
