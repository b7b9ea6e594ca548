package chess

import "strings"

// Board is an 8x8 grid indexed by Coord. It is a value type: copies are independent.
type Board [8][8]Piece

var backRank = [8]PieceType{Rook, Knight, Bishop, Queen, King, Bishop, Knight, Rook}

func StartingBoard() Board {
	var b Board
	for col := 0; col < 8; col++ {
		b[0][col] = Piece{Type: backRank[col], Color: Black}
		b[1][col] = Piece{Type: Pawn, Color: Black}
		b[6][col] = Piece{Type: Pawn, Color: White}
		b[7][col] = Piece{Type: backRank[col], Color: White}
	}
	return b
}

// At returns the piece at c, or an empty piece when c is off the board.
func (b *Board) At(c Coord) Piece {
	if !c.IsValid() {
		return Piece{}
	}
	return b[c.Row][c.Col]
}

func (b *Board) Set(c Coord, p Piece) {
	if !c.IsValid() {
		return
	}
	b[c.Row][c.Col] = p
}

// Flipped returns the board rotated by 180 degrees.
func (b Board) Flipped() Board {
	var out Board
	for r := 0; r < 8; r++ {
		for c := 0; c < 8; c++ {
			out[7-r][7-c] = b[r][c]
		}
	}
	return out
}

// KingCoord locates the king of the given color. Undefined when absent.
func (b *Board) KingCoord(color Color) Coord {
	for r := 0; r < 8; r++ {
		for c := 0; c < 8; c++ {
			if p := b[r][c]; p.Type == King && p.Color == color {
				return Coord{Row: int8(r), Col: int8(c)}
			}
		}
	}
	return Undefined()
}

// Placement encodes the FEN piece placement field (rank 8 first).
func (b *Board) Placement() string {
	var sb strings.Builder
	sb.Grow(72)
	for r := 0; r < 8; r++ {
		empty := 0
		for c := 0; c < 8; c++ {
			p := b[r][c]
			if p.IsEmpty() {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteByte(byte('0' + empty))
				empty = 0
			}
			sb.WriteByte(p.FENLetter())
		}
		if empty > 0 {
			sb.WriteByte(byte('0' + empty))
		}
		if r < 7 {
			sb.WriteByte('/')
		}
	}
	return sb.String()
}

// String renders the board as text, rank 8 at the top.
func (b Board) String() string {
	var sb strings.Builder
	for r := 0; r < 8; r++ {
		sb.WriteByte(byte('8' - r))
		sb.WriteByte(' ')
		for c := 0; c < 8; c++ {
			p := b[r][c]
			if p.IsEmpty() {
				sb.WriteByte('.')
			} else {
				sb.WriteByte(p.FENLetter())
			}
			if c < 7 {
				sb.WriteByte(' ')
			}
		}
		sb.WriteByte('\n')
	}
	sb.WriteString("  a b c d e f g h\n")
	return sb.String()
}
