package chess

import (
	"errors"
	"testing"
)

func TestCoordSquareRoundTrip(t *testing.T) {
	for r := 0; r < 8; r++ {
		for c := 0; c < 8; c++ {
			coord := NewCoord(r, c)
			sq, ok := coord.ToSquare()
			if !ok {
				t.Fatalf("ToSquare(%v) not ok", coord)
			}
			if back := CoordFromSquare(sq); back != coord {
				t.Fatalf("round trip %v -> %d -> %v", coord, sq, back)
			}
		}
	}
}

func TestCoordNativeRankFlip(t *testing.T) {
	sq, _ := NewCoord(0, 0).ToSquare()
	if sq != 56 || sq.String() != "a8" {
		t.Fatalf("row 0 col 0 should be a8 (56), got %d %s", sq, sq)
	}
	sq, _ = NewCoord(7, 7).ToSquare()
	if sq != 7 || sq.String() != "h1" {
		t.Fatalf("row 7 col 7 should be h1 (7), got %d %s", sq, sq)
	}
}

func TestUndefinedCoord(t *testing.T) {
	u := Undefined()
	if u.IsValid() {
		t.Fatalf("sentinel must be invalid")
	}
	if _, ok := u.ToSquare(); ok {
		t.Fatalf("sentinel must not convert")
	}
	if NewCoord(8, 0) != u || NewCoord(0, -1) != u {
		t.Fatalf("out of range constructor must yield the sentinel")
	}
	if CoordFromSquare(64) != u || CoordFromSquare(NoSquare) != u {
		t.Fatalf("out of range square must yield the sentinel")
	}
	if u.Reverse() != u {
		t.Fatalf("reverse of sentinel must stay sentinel")
	}
}

func TestCoordReverseAndOrder(t *testing.T) {
	if got := NewCoord(0, 1).Reverse(); got != NewCoord(7, 6) {
		t.Fatalf("reverse: got %v", got)
	}
	if !NewCoord(1, 7).Less(NewCoord(2, 0)) || NewCoord(2, 0).Less(NewCoord(1, 7)) {
		t.Fatalf("row must dominate ordering")
	}
	if !NewCoord(3, 1).Less(NewCoord(3, 2)) {
		t.Fatalf("col breaks ties")
	}
}

func TestParseCoord(t *testing.T) {
	c, err := ParseCoord("e4")
	if err != nil || c != NewCoord(4, 4) {
		t.Fatalf("ParseCoord(e4) = %v, %v", c, err)
	}
	if _, err := ParseCoord("i9"); !errors.Is(err, ErrBadNotation) {
		t.Fatalf("expected ErrBadNotation, got %v", err)
	}
}
