package chess

// GameBoard is the board plus the histories needed for FEN and draw detection.
// position history holds repetition keys (FEN without counters) and always has
// one more entry than the moves played on this board. carried counts history
// entries handed in at construction, which only give en-passant and castling
// context.
//
// view is the position index being browsed, or -1 for the live position.
// Browsing never changes the live board.
type GameBoard struct {
	start     Board
	origin    Origin
	board     Board
	moves     []Move
	positions []string
	taken     []Piece
	carried   int
	turn      Color
	view      int
}

func NewGameBoard() *GameBoard {
	return NewGameBoardAt(StartingBoard(), DefaultOrigin(White))
}

// NewGameBoardFrom seeds a custom layout under DefaultOrigin. history may be
// used to carry en-passant and castling context; toMove is the side on move
// after it.
func NewGameBoardFrom(b Board, history []Move, toMove Color) *GameBoard {
	origin := DefaultOrigin(toMove)
	if len(history) > 0 {
		origin.ToMove = history[0].PieceColor
	}
	gb := &GameBoard{
		start:   b,
		origin:  origin,
		board:   b,
		moves:   append([]Move(nil), history...),
		carried: len(history),
		turn:    toMove,
		view:    -1,
	}
	gb.positions = []string{gb.key()}
	return gb
}

// NewGameBoardAt starts an empty history at b under origin.
func NewGameBoardAt(b Board, origin Origin) *GameBoard {
	gb := &GameBoard{start: b, origin: origin, board: b, turn: origin.ToMove, view: -1}
	gb.positions = []string{gb.key()}
	return gb
}

func (gb *GameBoard) line() line { return line{origin: gb.origin, moves: gb.moves} }

func (gb *GameBoard) key() string { return encodeFEN(&gb.board, gb.line(), gb.turn, false) }

func (gb *GameBoard) Board() Board { return gb.board }

func (gb *GameBoard) Origin() Origin { return gb.origin }

func (gb *GameBoard) MoveHistory() []Move { return append([]Move(nil), gb.moves...) }

func (gb *GameBoard) PositionHistory() []string { return append([]string(nil), gb.positions...) }

// TakenPieces lists captured pieces in capture order.
func (gb *GameBoard) TakenPieces() []Piece { return append([]Piece(nil), gb.taken...) }

func (gb *GameBoard) LastMove() (Move, bool) {
	if len(gb.moves) == 0 {
		return Move{}, false
	}
	return gb.moves[len(gb.moves)-1], true
}

// SideToMove is the side on move in the live position: the origin side on an
// empty history, otherwise the opponent of the last mover unless the turn was
// passed.
func (gb *GameBoard) SideToMove() Color { return gb.turn }

func (gb *GameBoard) HalfmoveClock() int { return halfmoveClock(gb.line()) }

func (gb *GameBoard) FullmoveNumber() int { return fullmoveNumber(gb.line()) }

// FENPosition encodes the board with sideToMove written as given.
// Without counters the result is the repetition key.
func (gb *GameBoard) FENPosition(includeCounters bool, sideToMove Color) string {
	return encodeFEN(&gb.board, gb.line(), sideToMove, includeCounters)
}

func (gb *GameBoard) LegalMoves(side Color) []Move { return legalMoves(&gb.board, gb.line(), side) }

func (gb *GameBoard) Targets(from Coord) []Coord { return targets(&gb.board, gb.line(), from) }

func (gb *GameBoard) IsInCheck(side Color) bool { return gb.board.InCheck(side) }

func (gb *GameBoard) HasLegalMove(side Color) bool { return hasLegalMove(&gb.board, gb.line(), side) }

// IsCheckmate evaluates the side to move.
func (gb *GameBoard) IsCheckmate() bool { return gb.IsCheckmateFor(gb.SideToMove()) }

func (gb *GameBoard) IsCheckmateFor(side Color) bool {
	return gb.IsInCheck(side) && !gb.HasLegalMove(side)
}

func (gb *GameBoard) IsStalemateFor(side Color) bool {
	return !gb.IsInCheck(side) && !gb.HasLegalMove(side)
}

// RepetitionCount counts history entries equal to the current position key.
func (gb *GameBoard) RepetitionCount() int {
	cur := gb.positions[len(gb.positions)-1]
	n := 0
	for _, k := range gb.positions {
		if k == cur {
			n++
		}
	}
	return n
}

// IsDrawByRepetition reports whether any position key occurred three times.
func (gb *GameBoard) IsDrawByRepetition() bool {
	counts := make(map[string]int, len(gb.positions))
	for _, k := range gb.positions {
		counts[k]++
		if counts[k] >= 3 {
			return true
		}
	}
	return false
}

// IsFiftyMoveDraw is true after 50 full moves without a pawn move or capture.
func (gb *GameBoard) IsFiftyMoveDraw() bool { return gb.HalfmoveClock() >= 100 }

// apply executes req for side and appends to both histories.
func (gb *GameBoard) apply(side Color, req MoveRequest) (Move, error) {
	next, mv, err := execute(gb.board, gb.line(), side, req)
	if err != nil {
		return Move{}, err
	}
	gb.push(next, mv)
	return mv, nil
}

func (gb *GameBoard) push(next Board, mv Move) {
	gb.board = next
	gb.moves = append(gb.moves, mv)
	if mv.IsCapture() {
		gb.taken = append(gb.taken, Piece{Type: mv.Captured, Color: mv.PieceColor.Opposite()})
	}
	gb.turn = mv.PieceColor.Opposite()
	gb.view = -1
	gb.positions = append(gb.positions, gb.key())
}

// passTurn hands the move to the other side without a move. The current
// repetition key is rewritten for the new side.
func (gb *GameBoard) passTurn() {
	gb.turn = gb.turn.Opposite()
	gb.positions[len(gb.positions)-1] = gb.key()
}

// ViewIndex is the browsed position index; ok is false on the live position.
func (gb *GameBoard) ViewIndex() (idx int, ok bool) {
	if gb.view < 0 {
		return len(gb.positions) - 1, false
	}
	return gb.view, true
}

// NavigatePrevious steps the view one position back. It reports false at the
// initial position.
func (gb *GameBoard) NavigatePrevious() bool {
	idx, _ := gb.ViewIndex()
	if idx == 0 {
		return false
	}
	gb.view = idx - 1
	return true
}

// NavigateNext steps the view one position forward, returning to the live
// position after the last one. It reports false when already live.
func (gb *GameBoard) NavigateNext() bool {
	if gb.view < 0 {
		return false
	}
	gb.view++
	if gb.view >= len(gb.positions)-1 {
		gb.view = -1
	}
	return true
}

// NavigateLatest leaves browsing.
func (gb *GameBoard) NavigateLatest() { gb.view = -1 }

// ViewedBoard is the layout at the browsed position.
func (gb *GameBoard) ViewedBoard() Board {
	idx, ok := gb.ViewIndex()
	if !ok {
		return gb.board
	}
	return gb.replay(idx)
}

// ViewedSideToMove is the side on move at the browsed position.
func (gb *GameBoard) ViewedSideToMove() Color {
	idx, ok := gb.ViewIndex()
	if !ok || gb.carried+idx == len(gb.moves) {
		return gb.turn
	}
	return gb.moves[gb.carried+idx].PieceColor
}

func (gb *GameBoard) replay(plies int) Board {
	b := gb.start
	for _, m := range gb.moves[gb.carried : gb.carried+plies] {
		b = applyMove(b, m)
	}
	return b
}

// TruncateHistoryAt keeps the first plies moves played on this board and
// drops the rest, leaving browsing. An out-of-range count is ignored.
func (gb *GameBoard) TruncateHistoryAt(plies int) {
	keep := gb.carried + plies
	if plies < 0 || keep > len(gb.moves) {
		return
	}
	sideAt := gb.turn
	if keep < len(gb.moves) {
		sideAt = gb.moves[keep].PieceColor
	}
	gb.board = gb.replay(plies)
	gb.moves = gb.moves[:keep:keep]
	gb.positions = gb.positions[: plies+1 : plies+1]
	gb.taken = gb.taken[:0:0]
	for _, m := range gb.moves[gb.carried:] {
		if m.IsCapture() {
			gb.taken = append(gb.taken, Piece{Type: m.Captured, Color: m.PieceColor.Opposite()})
		}
	}
	gb.turn = sideAt
	gb.view = -1
}

func (gb *GameBoard) Clone() *GameBoard {
	c := *gb
	c.moves = append([]Move(nil), gb.moves...)
	c.positions = append([]string(nil), gb.positions...)
	c.taken = append([]Piece(nil), gb.taken...)
	return &c
}
