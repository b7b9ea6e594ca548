package chess

import "context"

// EngineHandle answers a position with a best move in coordinate notation.
type EngineHandle interface {
	BestMove(ctx context.Context, fen string) (string, error)
}

// PeerHandle delivers local moves to a remote player.
type PeerHandle interface {
	SendMove(ctx context.Context, text string) error
	Close() error
}

type OpponentKind uint8

const (
	NoOpponent OpponentKind = iota
	EngineOpponent
	PeerOpponent
)

func (k OpponentKind) String() string {
	switch k {
	case EngineOpponent:
		return "engine"
	case PeerOpponent:
		return "peer"
	default:
		return "none"
	}
}

// Opponent is a tagged variant: at most one of engine or peer is set,
// matching Kind. Color is the side the opponent plays.
type Opponent struct {
	kind   OpponentKind
	color  Color
	engine EngineHandle
	peer   PeerHandle
}

func (o Opponent) Kind() OpponentKind { return o.kind }

func (o Opponent) Color() Color { return o.color }

func (o Opponent) Engine() (EngineHandle, bool) { return o.engine, o.kind == EngineOpponent }

func (o Opponent) Peer() (PeerHandle, bool) { return o.peer, o.kind == PeerOpponent }

// Owns reports whether side is played by this opponent.
func (o Opponent) Owns(side Color) bool { return o.kind != NoOpponent && o.color == side }

// AttachEngine makes the engine play engineColor.
func (g *Game) AttachEngine(h EngineHandle, engineColor Color) {
	g.opponent = Opponent{kind: EngineOpponent, color: engineColor, engine: h}
	g.refreshState()
}

// AttachPeer makes the remote peer authoritative for the side opposite localColor.
func (g *Game) AttachPeer(h PeerHandle, localColor Color) {
	g.opponent = Opponent{kind: PeerOpponent, color: localColor.Opposite(), peer: h}
	g.refreshState()
}

// DetachOpponent drops the opponent and returns what was attached.
func (g *Game) DetachOpponent() Opponent {
	prev := g.opponent
	g.opponent = Opponent{}
	g.refreshState()
	return prev
}

func (g *Game) Opponent() Opponent { return g.opponent }
