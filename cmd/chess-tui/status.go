package main

import (
	"github.com/park285/chess-tui-sync/internal/chess"
	"github.com/park285/chess-tui-sync/internal/msgcat"
	"github.com/park285/chess-tui-sync/internal/service/match"
)

// statusLine renders one update for the terminal.
func statusLine(cat *msgcat.Catalog, up match.Update) string {
	opp := "opponent"
	switch up.Opponent {
	case chess.EngineOpponent:
		opp = "engine"
	case chess.PeerOpponent:
		opp = "peer"
	}
	switch up.Event {
	case match.EventDropped:
		return cat.Text("match.dropped", map[string]string{"Opponent": opp})
	case match.EventOpponentLeft:
		return cat.Text("match.opponent_left", nil)
	case match.EventEngineLost:
		return cat.Text("match.engine_lost", nil)
	case match.EventTimeUp:
		return cat.Text("match.time_up", map[string]string{"Loser": up.Flagged.Name(), "Winner": up.Flagged.Opposite().Name()})
	}

	var head string
	if up.Remote {
		head = cat.Text("match.move_remote", map[string]string{"Opponent": opp, "Move": up.Move.Text()})
	} else {
		head = cat.Text("match.move_local", map[string]string{"Move": up.Move.Text()})
	}
	return head + "; " + stateLine(cat, up.State, up.Turn, opp)
}

func stateLine(cat *msgcat.Catalog, state chess.GameState, turn chess.Color, opp string) string {
	switch state {
	case chess.Check:
		return cat.Text("match.check", map[string]string{"Turn": turn.Name()})
	case chess.Checkmate:
		return cat.Text("match.checkmate", map[string]string{"Winner": turn.Opposite().Name()})
	case chess.Stalemate:
		return cat.Text("match.stalemate", nil)
	case chess.Draw:
		return cat.Text("match.draw", nil)
	case chess.TimeUp:
		return cat.Text("match.time_over", nil)
	case chess.AwaitingOpponent:
		return cat.Text("match.awaiting", map[string]string{"Opponent": opp})
	default:
		return cat.Text("match.turn", map[string]string{"Turn": turn.Name()})
	}
}

// clockLine shows both clocks, or that the game is untimed.
func clockLine(cat *msgcat.Catalog, v match.View) string {
	if v.Clock == nil {
		return cat.Text("match.untimed", nil)
	}
	return cat.Text("match.clock", map[string]string{
		"White": chess.FormatClock(v.Clock.White),
		"Black": chess.FormatClock(v.Clock.Black),
	})
}
