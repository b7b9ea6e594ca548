package chess

import "fmt"

type GameState uint8

const (
	Playing GameState = iota
	Check
	Checkmate
	Stalemate
	Draw
	AwaitingOpponent
	TimeUp
)

func (s GameState) String() string {
	switch s {
	case Playing:
		return "playing"
	case Check:
		return "check"
	case Checkmate:
		return "checkmate"
	case Stalemate:
		return "stalemate"
	case Draw:
		return "draw"
	case AwaitingOpponent:
		return "awaiting_opponent"
	case TimeUp:
		return "time_up"
	default:
		return "unknown"
	}
}

func (s GameState) IsTerminal() bool {
	return s == Checkmate || s == Stalemate || s == Draw || s == TimeUp
}

// Game is the turn-keeping state machine. It is not safe for concurrent use;
// callers serialize access behind one lock.
type Game struct {
	board    *GameBoard
	turn     Color
	rules    GameState
	state    GameState
	opponent Opponent
	clock    *Clock
	flagged  Color
}

func NewGame() *Game {
	return NewGameFromBoard(NewGameBoard(), White)
}

// NewGameFromBoard plays on gb with turn on move. The board's side to move is
// brought in line with turn.
func NewGameFromBoard(gb *GameBoard, turn Color) *Game {
	if gb.SideToMove() != turn {
		gb.passTurn()
	}
	g := &Game{board: gb, turn: turn}
	g.recompute()
	return g
}

func (g *Game) Board() *GameBoard { return g.board }

func (g *Game) PlayerTurn() Color { return g.turn }

// State includes AwaitingOpponent when the opponent is on move.
func (g *Game) State() GameState { return g.state }

// RulesState is the verdict of the rules alone, never AwaitingOpponent.
func (g *Game) RulesState() GameState { return g.rules }

// FEN encodes the current position for the side on move.
func (g *Game) FEN() string { return g.board.FENPosition(true, g.turn) }

// ExecuteMove plays from-to for the side on move, promoting to a queen.
func (g *Game) ExecuteMove(from, to Coord) error {
	_, err := g.play(MoveRequest{From: from, To: to}, false)
	return err
}

func (g *Game) ExecutePromotion(from, to Coord, promo PieceType) error {
	_, err := g.play(MoveRequest{From: from, To: to, Promotion: promo}, false)
	return err
}

// Play is ExecuteMove returning the applied record.
func (g *Game) Play(req MoveRequest) (Move, error) {
	return g.play(req, false)
}

// ApplyOpponentMove parses engine or peer notation and plays it for the opponent.
// Parse errors wrap ErrBadNotation, rule violations ErrIllegalMove.
func (g *Game) ApplyOpponentMove(text string) (Move, error) {
	if g.opponent.kind == NoOpponent {
		return Move{}, ErrNoOpponent
	}
	if !g.opponent.Owns(g.turn) {
		return Move{}, fmt.Errorf("%w: opponent plays %s, %s to move", ErrNotYourTurn, g.opponent.color.Name(), g.turn.Name())
	}
	req, err := ParseMoveText(text)
	if err != nil {
		return Move{}, err
	}
	return g.play(req, true)
}

func (g *Game) play(req MoveRequest, remote bool) (Move, error) {
	if idx, browsing := g.board.ViewIndex(); browsing {
		if remote || g.opponent.kind != NoOpponent {
			g.board.NavigateLatest()
		} else {
			g.board.TruncateHistoryAt(idx)
		}
		g.turn = g.board.SideToMove()
		g.recompute()
	}
	g.CheckTime()
	if g.rules.IsTerminal() {
		return Move{}, fmt.Errorf("%w: %s", ErrGameOver, g.rules)
	}
	if !remote && g.opponent.Owns(g.turn) {
		return Move{}, ErrAwaitingOpponent
	}
	mv, err := g.board.apply(g.turn, req)
	if err != nil {
		return Move{}, err
	}
	g.turn = g.turn.Opposite()
	if g.clock != nil {
		g.clock.Press(mv.PieceColor)
	}
	g.recompute()
	return mv, nil
}

// SwitchPlayerTurn hands the move to the other side without playing. The
// board's side to move and its current repetition key follow.
func (g *Game) SwitchPlayerTurn() {
	g.board.passTurn()
	g.turn = g.board.SideToMove()
	if _, running := g.clockRunning(); running {
		g.clock.Start(g.turn)
	}
	g.recompute()
}

// SyncTurnWithPosition puts the side on move of the browsed position on move.
// A local move made while browsing continues the line from there.
func (g *Game) SyncTurnWithPosition() {
	g.turn = g.board.ViewedSideToMove()
	g.refreshState()
}

// AttachClock starts c for the side on move unless the game is over.
func (g *Game) AttachClock(c *Clock) {
	g.clock = c
	if !g.rules.IsTerminal() {
		c.Start(g.turn)
	}
}

func (g *Game) Clock() *Clock { return g.clock }

func (g *Game) clockRunning() (Color, bool) {
	if g.clock == nil {
		return White, false
	}
	return g.clock.Running()
}

// CheckTime ends the game with TimeUp once a clock has run out and reports
// the side that flagged.
func (g *Game) CheckTime() (Color, bool) {
	if g.rules == TimeUp {
		return g.flagged, true
	}
	if g.clock == nil || g.rules.IsTerminal() {
		return White, false
	}
	side, out := g.clock.Flagged()
	if !out {
		return White, false
	}
	g.clock.Stop()
	g.flagged = side
	g.rules = TimeUp
	g.refreshState()
	return side, true
}

// recompute evaluates the rules from the perspective of the side on move.
// TimeUp is final.
func (g *Game) recompute() {
	if g.rules == TimeUp {
		g.refreshState()
		return
	}
	side := g.turn
	inCheck := g.board.IsInCheck(side)
	canMove := g.board.HasLegalMove(side)
	switch {
	case !canMove && inCheck:
		g.rules = Checkmate
	case !canMove:
		g.rules = Stalemate
	case g.board.IsDrawByRepetition() || g.board.IsFiftyMoveDraw():
		g.rules = Draw
	case inCheck:
		g.rules = Check
	default:
		g.rules = Playing
	}
	if g.rules.IsTerminal() && g.clock != nil {
		g.clock.Stop()
	}
	g.refreshState()
}

func (g *Game) refreshState() {
	g.state = g.rules
	if !g.rules.IsTerminal() && g.opponent.Owns(g.turn) {
		g.state = AwaitingOpponent
	}
}
