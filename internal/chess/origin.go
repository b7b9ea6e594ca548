package chess

import (
	"fmt"
	"strings"
)

// CastlingRights is the FEN castling field as a bit set.
type CastlingRights uint8

const (
	WhiteKingSide CastlingRights = 1 << iota
	WhiteQueenSide
	BlackKingSide
	BlackQueenSide

	NoCastling  CastlingRights = 0
	AllCastling                = WhiteKingSide | WhiteQueenSide | BlackKingSide | BlackQueenSide
)

var castlingLetters = [4]struct {
	bit    CastlingRights
	letter byte
}{{WhiteKingSide, 'K'}, {WhiteQueenSide, 'Q'}, {BlackKingSide, 'k'}, {BlackQueenSide, 'q'}}

func (r CastlingRights) String() string {
	var sb strings.Builder
	for _, cl := range castlingLetters {
		if r&cl.bit != 0 {
			sb.WriteByte(cl.letter)
		}
	}
	if sb.Len() == 0 {
		return "-"
	}
	return sb.String()
}

// ParseCastlingRights decodes "-" or any subset of "KQkq".
func ParseCastlingRights(s string) (CastlingRights, error) {
	if s == "-" {
		return NoCastling, nil
	}
	var r CastlingRights
	for i := 0; i < len(s); i++ {
		found := false
		for _, cl := range castlingLetters {
			if s[i] == cl.letter {
				if r&cl.bit != 0 {
					return NoCastling, fmt.Errorf("fen castling: %q repeated", s[i])
				}
				r |= cl.bit
				found = true
				break
			}
		}
		if !found {
			return NoCastling, fmt.Errorf("fen castling: bad field %q", s)
		}
	}
	if r == NoCastling {
		return NoCastling, fmt.Errorf("fen castling: empty field")
	}
	return r, nil
}

func castlingBit(color Color, side castleSide) CastlingRights {
	kingSideWing := side.rookCol == kingSide.rookCol
	switch {
	case color == White && kingSideWing:
		return WhiteKingSide
	case color == White:
		return WhiteQueenSide
	case kingSideWing:
		return BlackKingSide
	default:
		return BlackQueenSide
	}
}

// Origin is the part of a starting position the board cannot carry: the
// side to move, the castling and en-passant fields and both counters.
// A GameBoard fixes its origin at construction; everything after is derived
// from the move history.
type Origin struct {
	ToMove    Color
	Castling  CastlingRights
	EnPassant Coord
	Halfmove  int
	Fullmove  int
}

// DefaultOrigin grants every castling right the board allows, no en-passant
// square and fresh counters.
func DefaultOrigin(toMove Color) Origin {
	return Origin{ToMove: toMove, Castling: AllCastling, EnPassant: Undefined(), Fullmove: 1}
}

// line is a move history anchored at its origin.
type line struct {
	origin Origin
	moves  []Move
}

func lineOf(history []Move) line {
	return line{origin: DefaultOrigin(White), moves: history}
}

// enPassantTarget is the square passed over by the last move when it was a
// two-square pawn advance, or the origin square before any move.
func enPassantTarget(ln line) (Coord, bool) {
	if len(ln.moves) == 0 {
		ep := ln.origin.EnPassant
		return ep, ep.IsValid()
	}
	last := ln.moves[len(ln.moves)-1]
	if !last.isDoublePush() {
		return Undefined(), false
	}
	return Coord{Row: (last.From.Row + last.To.Row) / 2, Col: last.From.Col}, true
}

func halfmoveClock(ln line) int {
	n := 0
	for i := len(ln.moves) - 1; i >= 0; i-- {
		if ln.moves[i].resetsClock() {
			return n
		}
		n++
	}
	return ln.origin.Halfmove + n
}

// fullmoveNumber advances after every Black move.
func fullmoveNumber(ln line) int {
	n := ln.origin.Fullmove
	for _, m := range ln.moves {
		if m.PieceColor == Black {
			n++
		}
	}
	return n
}

func castlingField(b *Board, ln line) string {
	var r CastlingRights
	for _, color := range [2]Color{White, Black} {
		for _, side := range [2]castleSide{kingSide, queenSide} {
			if castlingRight(b, ln, color, side) {
				r |= castlingBit(color, side)
			}
		}
	}
	return r.String()
}

// epRowFor is the row of an en-passant square side may capture onto.
func epRowFor(side Color) int8 {
	if side == White {
		return 2
	}
	return 5
}
