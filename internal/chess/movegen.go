package chess

import "sort"

var (
	knightSteps = [8][2]int{{-2, -1}, {-2, 1}, {-1, -2}, {-1, 2}, {1, -2}, {1, 2}, {2, -1}, {2, 1}}
	kingSteps   = [8][2]int{{-1, -1}, {-1, 0}, {-1, 1}, {0, -1}, {0, 1}, {1, -1}, {1, 0}, {1, 1}}
	rookDirs    = [4][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}}
	bishopDirs  = [4][2]int{{-1, -1}, {-1, 1}, {1, -1}, {1, 1}}
	promoOrder  = [4]PieceType{Queen, Rook, Bishop, Knight}
)

// IsAttacked reports whether any piece of color by attacks c.
func (b *Board) IsAttacked(c Coord, by Color) bool {
	if !c.IsValid() {
		return false
	}
	// a pawn of color by attacks from one row behind its push direction
	for _, dc := range [2]int{-1, 1} {
		if p := b.At(c.offset(-by.forward(), dc)); p.Type == Pawn && p.Color == by {
			return true
		}
	}
	for _, s := range knightSteps {
		if p := b.At(c.offset(s[0], s[1])); p.Type == Knight && p.Color == by {
			return true
		}
	}
	for _, s := range kingSteps {
		if p := b.At(c.offset(s[0], s[1])); p.Type == King && p.Color == by {
			return true
		}
	}
	if b.rayHits(c, rookDirs[:], by, Rook) || b.rayHits(c, bishopDirs[:], by, Bishop) {
		return true
	}
	return false
}

// rayHits walks each direction until the first occupant and checks for a slider
// of the given kind (or a queen).
func (b *Board) rayHits(from Coord, dirs [][2]int, by Color, slider PieceType) bool {
	for _, d := range dirs {
		cur := from.offset(d[0], d[1])
		for cur.IsValid() {
			p := b.At(cur)
			if !p.IsEmpty() {
				if p.Color == by && (p.Type == slider || p.Type == Queen) {
					return true
				}
				break
			}
			cur = cur.offset(d[0], d[1])
		}
	}
	return false
}

// InCheck reports whether side's king is attacked. A board without that king is never in check.
func (b *Board) InCheck(side Color) bool {
	k := b.KingCoord(side)
	if !k.IsValid() {
		return false
	}
	return b.IsAttacked(k, side.Opposite())
}

// pseudoMoves lists moves obeying movement, blocking and capture rules for the
// piece at from, without the check-safety filter.
func pseudoMoves(b *Board, ln line, from Coord) []Move {
	p := b.At(from)
	if p.IsEmpty() {
		return nil
	}
	var out []Move
	add := func(to Coord) bool {
		if !to.IsValid() {
			return false
		}
		target := b.At(to)
		if !target.IsEmpty() && (target.Color == p.Color || target.Type == King) {
			return false
		}
		out = append(out, Move{PieceType: p.Type, PieceColor: p.Color, From: from, To: to, Captured: target.Type})
		return target.IsEmpty()
	}
	slide := func(dirs [][2]int) {
		for _, d := range dirs {
			to := from.offset(d[0], d[1])
			for add(to) {
				to = to.offset(d[0], d[1])
			}
		}
	}

	switch p.Type {
	case Pawn:
		out = pawnMoves(b, ln, from, p.Color)
	case Knight:
		for _, s := range knightSteps {
			add(from.offset(s[0], s[1]))
		}
	case Bishop:
		slide(bishopDirs[:])
	case Rook:
		slide(rookDirs[:])
	case Queen:
		slide(rookDirs[:])
		slide(bishopDirs[:])
	case King:
		for _, s := range kingSteps {
			add(from.offset(s[0], s[1]))
		}
		out = append(out, castlingMoves(b, ln, from, p.Color)...)
	}
	return out
}

func pawnMoves(b *Board, ln line, from Coord, color Color) []Move {
	var out []Move
	dir := color.forward()
	lastRow := int8(0)
	startRow := int8(6)
	if color == Black {
		lastRow, startRow = 7, 1
	}
	push := func(m Move) {
		if m.To.Row != lastRow {
			out = append(out, m)
			return
		}
		for _, pt := range promoOrder {
			pm := m
			pm.Promotion = pt
			out = append(out, pm)
		}
	}
	base := Move{PieceType: Pawn, PieceColor: color, From: from}

	one := from.offset(dir, 0)
	if one.IsValid() && b.At(one).IsEmpty() {
		m := base
		m.To = one
		push(m)
		two := from.offset(2*dir, 0)
		if from.Row == startRow && two.IsValid() && b.At(two).IsEmpty() {
			m.To = two
			m.TwoSquareAdvance = true
			out = append(out, m)
		}
	}
	for _, dc := range [2]int{-1, 1} {
		to := from.offset(dir, dc)
		if !to.IsValid() {
			continue
		}
		target := b.At(to)
		if !target.IsEmpty() && target.Color != color && target.Type != King {
			m := base
			m.To = to
			m.Captured = target.Type
			push(m)
		}
	}
	if ep, ok := enPassantTarget(ln); ok && ep.Row == from.Row+int8(dir) {
		dc := int(ep.Col) - int(from.Col)
		victim := b.At(Coord{Row: from.Row, Col: ep.Col})
		if (dc == 1 || dc == -1) && b.At(ep).IsEmpty() && victim.Type == Pawn && victim.Color != color {
			m := base
			m.To = ep
			m.Captured = Pawn
			m.EnPassant = true
			out = append(out, m)
		}
	}
	return out
}

type castleSide struct {
	rookCol   int8
	kingTo    int8
	rookTo    int8
	emptyCols []int8
	safeCols  []int8
}

var (
	kingSide  = castleSide{rookCol: 7, kingTo: 6, rookTo: 5, emptyCols: []int8{5, 6}, safeCols: []int8{5, 6}}
	queenSide = castleSide{rookCol: 0, kingTo: 2, rookTo: 3, emptyCols: []int8{1, 2, 3}, safeCols: []int8{3, 2}}
)

// castlingRight derives a castling right from the origin, board and history:
// the origin must grant it, king and rook must stand on their home squares and
// no history entry may touch either square.
func castlingRight(b *Board, ln line, color Color, side castleSide) bool {
	if ln.origin.Castling&castlingBit(color, side) == 0 {
		return false
	}
	row := color.homeRow()
	kingHome := Coord{Row: row, Col: 4}
	rookHome := Coord{Row: row, Col: side.rookCol}
	if b.At(kingHome) != (Piece{Type: King, Color: color}) || b.At(rookHome) != (Piece{Type: Rook, Color: color}) {
		return false
	}
	for _, m := range ln.moves {
		if m.touches(kingHome) || m.touches(rookHome) {
			return false
		}
	}
	return true
}

func castlingMoves(b *Board, ln line, from Coord, color Color) []Move {
	if from != (Coord{Row: color.homeRow(), Col: 4}) {
		return nil
	}
	enemy := color.Opposite()
	if b.IsAttacked(from, enemy) {
		return nil
	}
	var out []Move
	for _, side := range []castleSide{kingSide, queenSide} {
		if !castlingRight(b, ln, color, side) {
			continue
		}
		ok := true
		for _, col := range side.emptyCols {
			if !b.At(Coord{Row: from.Row, Col: col}).IsEmpty() {
				ok = false
				break
			}
		}
		for _, col := range side.safeCols {
			if !ok {
				break
			}
			if b.IsAttacked(Coord{Row: from.Row, Col: col}, enemy) {
				ok = false
			}
		}
		if ok {
			out = append(out, Move{PieceType: King, PieceColor: color, From: from, To: Coord{Row: from.Row, Col: side.kingTo}, Castling: true})
		}
	}
	return out
}

// applyMove returns the board after m. m must come from pseudoMoves.
func applyMove(b Board, m Move) Board {
	p := b.At(m.From)
	b.Set(m.From, Piece{})
	if m.Promotion != NoPieceType {
		p.Type = m.Promotion
	}
	b.Set(m.To, p)
	if m.EnPassant {
		b.Set(Coord{Row: m.From.Row, Col: m.To.Col}, Piece{})
	}
	if m.Castling {
		side := queenSide
		if m.To.Col == kingSide.kingTo {
			side = kingSide
		}
		rook := b.At(Coord{Row: m.From.Row, Col: side.rookCol})
		b.Set(Coord{Row: m.From.Row, Col: side.rookCol}, Piece{})
		b.Set(Coord{Row: m.From.Row, Col: side.rookTo}, rook)
	}
	return b
}

// legalFrom filters pseudo moves of the piece at from by king safety.
func legalFrom(b *Board, ln line, from Coord) []Move {
	cands := pseudoMoves(b, ln, from)
	out := cands[:0]
	for _, m := range cands {
		next := applyMove(*b, m)
		if !next.InCheck(m.PieceColor) {
			out = append(out, m)
		}
	}
	return out
}

// LegalMoves enumerates every legal move for side, one entry per promotion choice.
// history is read against DefaultOrigin.
func LegalMoves(b Board, history []Move, side Color) []Move {
	return legalMoves(&b, lineOf(history), side)
}

func legalMoves(b *Board, ln line, side Color) []Move {
	var out []Move
	for r := 0; r < 8; r++ {
		for c := 0; c < 8; c++ {
			p := b[r][c]
			if p.IsEmpty() || p.Color != side {
				continue
			}
			out = append(out, legalFrom(b, ln, Coord{Row: int8(r), Col: int8(c)})...)
		}
	}
	return out
}

func hasLegalMove(b *Board, ln line, side Color) bool {
	for r := 0; r < 8; r++ {
		for c := 0; c < 8; c++ {
			p := b[r][c]
			if p.IsEmpty() || p.Color != side {
				continue
			}
			if len(legalFrom(b, ln, Coord{Row: int8(r), Col: int8(c)})) > 0 {
				return true
			}
		}
	}
	return false
}

// Targets lists the distinct legal destinations of the piece at from, sorted.
func Targets(b Board, history []Move, from Coord) []Coord {
	return targets(&b, lineOf(history), from)
}

func targets(b *Board, ln line, from Coord) []Coord {
	seen := make(map[Coord]struct{})
	var out []Coord
	for _, m := range legalFrom(b, ln, from) {
		if _, dup := seen[m.To]; dup {
			continue
		}
		seen[m.To] = struct{}{}
		out = append(out, m.To)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}
