package chess

import (
	"fmt"
	"strings"
)

// Coord addresses a board cell. Row 0 is rank 8, col 0 is file a.
// A Coord is either inside the 8x8 grid or equal to Undefined().
type Coord struct {
	Row int8
	Col int8
}

// Square is the native square index: rank*8 + file, a1 = 0, h8 = 63.
type Square int8

const NoSquare Square = -1

func NewCoord(row, col int) Coord {
	if row < 0 || row > 7 || col < 0 || col > 7 {
		return Undefined()
	}
	return Coord{Row: int8(row), Col: int8(col)}
}

func Undefined() Coord { return Coord{Row: -1, Col: -1} }

func (c Coord) IsValid() bool {
	return c.Row >= 0 && c.Row <= 7 && c.Col >= 0 && c.Col <= 7
}

// Reverse rotates the coordinate by 180 degrees (flipped board perspective).
func (c Coord) Reverse() Coord {
	if !c.IsValid() {
		return Undefined()
	}
	return Coord{Row: 7 - c.Row, Col: 7 - c.Col}
}

func (c Coord) ToSquare() (Square, bool) {
	if !c.IsValid() {
		return NoSquare, false
	}
	return Square(int(7-c.Row)*8 + int(c.Col)), true
}

func CoordFromSquare(sq Square) Coord {
	if sq < 0 || sq > 63 {
		return Undefined()
	}
	return Coord{Row: int8(7 - int(sq)/8), Col: int8(int(sq) % 8)}
}

// Less orders coordinates by row, then column.
func (c Coord) Less(o Coord) bool {
	if c.Row != o.Row {
		return c.Row < o.Row
	}
	return c.Col < o.Col
}

func (c Coord) String() string {
	if !c.IsValid() {
		return "-"
	}
	return string([]byte{byte('a' + c.Col), byte('1' + 7 - c.Row)})
}

func (c Coord) offset(dr, dc int) Coord {
	return NewCoord(int(c.Row)+dr, int(c.Col)+dc)
}

// ParseCoord reads an algebraic square name such as "e4".
func ParseCoord(s string) (Coord, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != 2 || s[0] < 'a' || s[0] > 'h' || s[1] < '1' || s[1] > '8' {
		return Undefined(), fmt.Errorf("%w: bad square %q", ErrBadNotation, s)
	}
	return NewCoord(7-int(s[1]-'1'), int(s[0]-'a')), nil
}

func (s Square) File() int { return int(s) % 8 }
func (s Square) Rank() int { return int(s) / 8 }

func (s Square) String() string { return CoordFromSquare(s).String() }
