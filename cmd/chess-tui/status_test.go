package main

import (
	"strings"
	"testing"
	"time"

	"github.com/park285/chess-tui-sync/internal/chess"
	"github.com/park285/chess-tui-sync/internal/msgcat"
	"github.com/park285/chess-tui-sync/internal/service/match"
)

func TestStatusLine(t *testing.T) {
	cat, err := msgcat.New("")
	if err != nil { t.Fatalf("catalog: %v", err) }
	req, _ := chess.ParseMoveText("d8h4")
	mv := chess.Move{From: req.From, To: req.To}

	got := statusLine(cat, match.Update{Event: match.EventMove, Move: mv, Remote: true, Opponent: chess.PeerOpponent, State: chess.Checkmate, Turn: chess.White})
	if !strings.Contains(got, "peer played d8h4") || !strings.Contains(got, "black wins") { t.Fatalf("got %q", got) }

	got = statusLine(cat, match.Update{Event: match.EventMove, Move: mv, State: chess.AwaitingOpponent, Opponent: chess.EngineOpponent, Turn: chess.White})
	if !strings.Contains(got, "you played d8h4") || !strings.Contains(got, "waiting for engine") { t.Fatalf("got %q", got) }

	if got := statusLine(cat, match.Update{Event: match.EventOpponentLeft}); got != "opponent left the game" { t.Fatalf("got %q", got) }
}

func TestTimeUpAndClockLines(t *testing.T) {
	cat, err := msgcat.New("")
	if err != nil { t.Fatalf("catalog: %v", err) }
	got := statusLine(cat, match.Update{Event: match.EventTimeUp, Flagged: chess.White, State: chess.TimeUp})
	if got != "white ran out of time, black wins" { t.Fatalf("got %q", got) }

	if got := clockLine(cat, match.View{}); got != "this game is untimed" { t.Fatalf("got %q", got) }
	v := match.View{Clock: &match.ClockView{White: 5 * time.Minute, Black: 42*time.Second + 5*time.Millisecond}}
	if got := clockLine(cat, v); got != "white 05:00  black 42.005" { t.Fatalf("got %q", got) }
}
