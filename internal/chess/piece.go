package chess

import "strings"

type Color uint8

const (
	White Color = iota
	Black
)

func (c Color) Opposite() Color {
	if c == White {
		return Black
	}
	return White
}

// String returns the FEN side token.
func (c Color) String() string {
	if c == White {
		return "w"
	}
	return "b"
}

func (c Color) Name() string {
	if c == White {
		return "white"
	}
	return "black"
}

// ParseColor accepts "w", "white", "b" and "black".
func ParseColor(s string) (Color, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "w", "white":
		return White, true
	case "b", "black":
		return Black, true
	default:
		return White, false
	}
}

// forward is the row delta of a pawn push.
func (c Color) forward() int {
	if c == White {
		return -1
	}
	return 1
}

func (c Color) homeRow() int8 {
	if c == White {
		return 7
	}
	return 0
}

type PieceType uint8

const (
	NoPieceType PieceType = iota
	Pawn
	Knight
	Bishop
	Rook
	Queen
	King
)

var pieceLetters = [...]byte{NoPieceType: ' ', Pawn: 'p', Knight: 'n', Bishop: 'b', Rook: 'r', Queen: 'q', King: 'k'}

// Letter is the lowercase FEN letter, or 0 for NoPieceType.
func (t PieceType) Letter() byte {
	if t == NoPieceType || int(t) >= len(pieceLetters) {
		return 0
	}
	return pieceLetters[t]
}

func (t PieceType) String() string {
	switch t {
	case Pawn:
		return "pawn"
	case Knight:
		return "knight"
	case Bishop:
		return "bishop"
	case Rook:
		return "rook"
	case Queen:
		return "queen"
	case King:
		return "king"
	default:
		return "none"
	}
}

func pieceTypeFromLetter(b byte) PieceType {
	switch b {
	case 'p', 'P':
		return Pawn
	case 'n', 'N':
		return Knight
	case 'b', 'B':
		return Bishop
	case 'r', 'R':
		return Rook
	case 'q', 'Q':
		return Queen
	case 'k', 'K':
		return King
	default:
		return NoPieceType
	}
}

// Piece is a board occupant. The zero value is an empty square.
type Piece struct {
	Type  PieceType
	Color Color
}

func NewPiece(t PieceType, c Color) Piece { return Piece{Type: t, Color: c} }

func (p Piece) IsEmpty() bool { return p.Type == NoPieceType }

// FENLetter is uppercase for White, lowercase for Black.
func (p Piece) FENLetter() byte {
	l := p.Type.Letter()
	if l == 0 {
		return 0
	}
	if p.Color == White {
		return l - ('a' - 'A')
	}
	return l
}

func pieceFromFEN(b byte) (Piece, bool) {
	t := pieceTypeFromLetter(b)
	if t == NoPieceType {
		return Piece{}, false
	}
	c := Black
	if b >= 'A' && b <= 'Z' {
		c = White
	}
	return Piece{Type: t, Color: c}, true
}
