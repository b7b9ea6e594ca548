package lichess

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/park285/chess-tui-sync/internal/chess"
	"github.com/park285/chess-tui-sync/internal/obslog"
	"github.com/park285/chess-tui-sync/internal/peer"
	"go.uber.org/zap"
)

// Opponent plays a Lichess board game as a network peer. Moves made on
// Lichess by the other player arrive in Mailbox.
type Opponent struct {
	client  *Client
	gameID  string
	color   chess.Color
	info    GameInfo
	mailbox *peer.Mailbox

	mu   sync.Mutex
	seen int

	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

// Join joins gameID as the token's account and starts following the stream.
func Join(ctx context.Context, client *Client, gameID string) (*Opponent, error) {
	profile, err := client.Profile(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch profile: %w", err)
	}
	info, err := client.JoinGame(ctx, gameID)
	if err != nil {
		return nil, err
	}

	var color chess.Color
	switch {
	case strings.EqualFold(info.White.ID, profile.ID):
		color = chess.White
	case strings.EqualFold(info.Black.ID, profile.ID):
		color = chess.Black
	default:
		return nil, ErrNotParticipant
	}

	streamCtx, cancel := context.WithCancel(context.Background())
	o := &Opponent{
		client:  client,
		gameID:  gameID,
		color:   color,
		info:    *info,
		mailbox: peer.NewMailbox(),
		seen:    len(info.State.MoveList()),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go o.follow(streamCtx)
	obslog.L().Info("lichess_joined", zap.String("game", gameID), zap.String("color", color.Name()), zap.Int("moves", o.seen))
	return o, nil
}

// Color is the side the local player has on Lichess.
func (o *Opponent) Color() chess.Color { return o.color }

func (o *Opponent) GameID() string { return o.gameID }

// InitialFEN is empty for games from the standard position.
func (o *Opponent) InitialFEN() string {
	if o.info.InitialFEN == "startpos" {
		return ""
	}
	return o.info.InitialFEN
}

// Moves returns the moves played before joining, to be replayed locally.
func (o *Opponent) Moves() []string { return o.info.State.MoveList() }

func (o *Opponent) Mailbox() *peer.Mailbox { return o.mailbox }

func (o *Opponent) SendMove(ctx context.Context, text string) error {
	if _, err := chess.ParseMoveText(text); err != nil {
		return fmt.Errorf("%w: %v", peer.ErrProtocol, err)
	}
	if err := o.client.MakeMove(ctx, o.gameID, text); err != nil {
		return fmt.Errorf("%w: %v", peer.ErrTransport, err)
	}
	return nil
}

func (o *Opponent) Resign(ctx context.Context) error {
	return o.client.Resign(ctx, o.gameID)
}

// Close stops following the stream. The Lichess game itself is left as is.
func (o *Opponent) Close() error {
	o.closeOnce.Do(func() {
		o.cancel()
		<-o.done
		o.mailbox.Close()
	})
	return nil
}

func (o *Opponent) follow(ctx context.Context) {
	defer close(o.done)
	err := o.client.StreamGame(ctx, o.gameID, o.handle)
	switch {
	case errors.Is(err, peer.ErrGameEnded):
		o.mailbox.Push(peer.Inbound{Err: peer.ErrGameEnded})
	case ctx.Err() != nil:
	default:
		if err == nil {
			err = errors.New("stream closed")
		}
		o.mailbox.Push(peer.Inbound{Err: fmt.Errorf("%w: %v", peer.ErrTransport, err)})
	}
	obslog.L().Info("lichess_stream_end", zap.String("game", o.gameID), zap.Error(err))
}

// handle forwards every not yet seen move made by the other side.
func (o *Opponent) handle(ev Event) error {
	if ev.Type != EventGameFull && ev.Type != EventGameState {
		return nil
	}
	state := ev.CurrentState()
	moves := state.MoveList()
	first := o.firstMover()

	o.mu.Lock()
	start := o.seen
	if len(moves) > o.seen {
		o.seen = len(moves)
	}
	o.mu.Unlock()

	for i := start; i < len(moves); i++ {
		mover := first
		if i%2 == 1 {
			mover = first.Opposite()
		}
		if mover == o.color {
			continue
		}
		o.mailbox.Push(peer.Inbound{Move: moves[i]})
	}
	if state.Finished() {
		return fmt.Errorf("%w: %s", peer.ErrGameEnded, state.Status)
	}
	return nil
}

func (o *Opponent) firstMover() chess.Color {
	fields := strings.Fields(o.InitialFEN())
	if len(fields) > 1 && fields[1] == "b" {
		return chess.Black
	}
	return chess.White
}
