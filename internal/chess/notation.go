package chess

import (
	"fmt"
	"strings"
)

// FormatMoveText renders from/to as coordinate notation ("e2e4") with an
// optional promotion suffix (q, r, b or n).
func FormatMoveText(from, to Coord, promo PieceType) string {
	var sb strings.Builder
	sb.Grow(5)
	sb.WriteString(from.String())
	sb.WriteString(to.String())
	switch promo {
	case Queen, Rook, Bishop, Knight:
		sb.WriteByte(promo.Letter())
	}
	return sb.String()
}

// ParseMoveText is the inverse of FormatMoveText. Errors wrap ErrBadNotation.
func ParseMoveText(text string) (MoveRequest, error) {
	t := strings.ToLower(strings.TrimSpace(text))
	if len(t) != 4 && len(t) != 5 {
		return MoveRequest{}, fmt.Errorf("%w: %q", ErrBadNotation, text)
	}
	from, err := ParseCoord(t[0:2])
	if err != nil {
		return MoveRequest{}, err
	}
	to, err := ParseCoord(t[2:4])
	if err != nil {
		return MoveRequest{}, err
	}
	req := MoveRequest{From: from, To: to}
	if len(t) == 5 {
		switch p := pieceTypeFromLetter(t[4]); p {
		case Queen, Rook, Bishop, Knight:
			req.Promotion = p
		default:
			return MoveRequest{}, fmt.Errorf("%w: bad promotion %q", ErrBadNotation, t[4:])
		}
	}
	return req, nil
}
