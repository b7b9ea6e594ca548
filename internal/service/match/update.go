package match

import (
	"github.com/park285/chess-tui-sync/internal/chess"
	"github.com/park285/chess-tui-sync/internal/obslog"
	"go.uber.org/zap"
)

type Event string

const (
	EventMove         Event = "move"
	EventDropped      Event = "dropped"
	EventOpponentLeft Event = "opponent_left"
	EventEngineLost   Event = "engine_unavailable"
	EventTimeUp       Event = "time_up"
)

// Update is published after every state change of the match.
type Update struct {
	MatchID  string
	Event    Event
	Move     chess.Move
	Remote   bool
	FEN      string
	Turn     chess.Color
	State    chess.GameState
	Opponent chess.OpponentKind
	Ended    bool
	// Flagged is the side out of time on EventTimeUp.
	Flagged chess.Color
	Err     error
}

func (s *Service) updateLocked(ev Event, mv chess.Move, remote bool, err error) Update {
	return Update{
		MatchID:  s.id,
		Event:    ev,
		Move:     mv,
		Remote:   remote,
		FEN:      s.game.FEN(),
		Turn:     s.game.PlayerTurn(),
		State:    s.game.State(),
		Opponent: s.game.Opponent().Kind(),
		Ended:    s.ended,
		Err:      err,
	}
}

// publish never blocks; a consumer that falls behind loses updates but can
// always read the current View.
func (s *Service) publish(up Update) {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()
	if s.pubClosed {
		return
	}
	select {
	case s.updates <- up:
	default:
		obslog.L().Warn("match_update_dropped", zap.String("match_id", s.id), zap.String("event", string(up.Event)))
	}
}
