package chess

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoveTextRoundTripAllPairs(t *testing.T) {
	for a := Square(0); a < 64; a++ {
		for b := Square(0); b < 64; b++ {
			from, to := CoordFromSquare(a), CoordFromSquare(b)
			text := FormatMoveText(from, to, NoPieceType)
			req, err := ParseMoveText(text)
			if err != nil {
				t.Fatalf("parse %q: %v", text, err)
			}
			if req.From != from || req.To != to || req.Promotion != NoPieceType {
				t.Fatalf("round trip %q -> %+v", text, req)
			}
		}
	}
}

func TestMoveTextPromotion(t *testing.T) {
	from, to := NewCoord(1, 4), NewCoord(0, 4)
	for _, pt := range []PieceType{Queen, Rook, Bishop, Knight} {
		text := FormatMoveText(from, to, pt)
		req, err := ParseMoveText(text)
		require.NoError(t, err)
		assert.Equal(t, pt, req.Promotion, text)
	}
	assert.Equal(t, "e7e8q", FormatMoveText(from, to, Queen))
	assert.Equal(t, "e7e8", FormatMoveText(from, to, King), "non-promotable piece has no suffix")
}

func TestParseMoveTextRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "e2", "e2e", "e2e4qq", "z2e4", "e2e9", "e7e8k", "e7e8p", "hello"} {
		_, err := ParseMoveText(in)
		if !errors.Is(err, ErrBadNotation) {
			t.Fatalf("%q: expected ErrBadNotation, got %v", in, err)
		}
	}
}

func TestParseMoveTextTolerance(t *testing.T) {
	req, err := ParseMoveText("  E2E4\n")
	require.NoError(t, err)
	assert.Equal(t, NewCoord(6, 4), req.From)
	assert.Equal(t, NewCoord(4, 4), req.To)
}
