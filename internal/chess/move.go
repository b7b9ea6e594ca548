package chess

// Move is one entry of the append-only move history.
type Move struct {
	PieceType  PieceType
	PieceColor Color
	From       Coord
	To         Coord

	Promotion        PieceType
	Captured         PieceType
	TwoSquareAdvance bool
	EnPassant        bool
	Castling         bool
}

// MoveRequest is a from/to pair with an optional promotion choice.
// NoPieceType promotes to a queen.
type MoveRequest struct {
	From      Coord
	To        Coord
	Promotion PieceType
}

// Text returns the coordinate notation of the move, e.g. "e7e8q".
func (m Move) Text() string {
	return FormatMoveText(m.From, m.To, m.Promotion)
}

func (m Move) IsCapture() bool { return m.Captured != NoPieceType }

// resetsClock reports whether the move resets the halfmove clock.
func (m Move) resetsClock() bool {
	return m.PieceType == Pawn || m.Captured != NoPieceType
}

// isDoublePush is derived from geometry so hand-built histories work without flags.
func (m Move) isDoublePush() bool {
	if m.PieceType != Pawn || !m.From.IsValid() || !m.To.IsValid() {
		return false
	}
	d := m.To.Row - m.From.Row
	return m.From.Col == m.To.Col && (d == 2 || d == -2)
}

func (m Move) touches(c Coord) bool { return m.From == c || m.To == c }
