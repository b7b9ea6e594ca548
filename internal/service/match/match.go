package match

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/park285/chess-tui-sync/internal/archive"
	"github.com/park285/chess-tui-sync/internal/bot"
	"github.com/park285/chess-tui-sync/internal/chess"
	"github.com/park285/chess-tui-sync/internal/obslog"
	"github.com/park285/chess-tui-sync/internal/peer"
	"go.uber.org/zap"
)

var (
	ErrMatchClosed = errors.New("match closed")
	ErrMatchEnded  = errors.New("match ended")
)

const (
	defaultEngineTimeout = 30 * time.Second
	updateBuffer         = 64
	persistTimeout       = 3 * time.Second
	clockTick            = 100 * time.Millisecond
)

// TerminationOpponentLeft marks a match whose peer disconnected or resigned.
const TerminationOpponentLeft = "opponent_left"

type Options struct {
	Mode       string
	LocalColor chess.Color
	White      string
	Black      string
	// InitialFEN starts from a custom position; empty means the standard start.
	InitialFEN    string
	EngineTimeout time.Duration
	Archive       *archive.Archive
	// TimeControl puts both sides on a clock with Increment added per move;
	// zero plays untimed.
	TimeControl time.Duration
	Increment   time.Duration
}

// Service owns one game. All access to the game goes through mu; I/O with the
// opponent and the archive happens outside it.
type Service struct {
	id   string
	opts Options

	mu      sync.Mutex
	game    *chess.Game
	rec     *archive.Record
	ended   bool
	closed  bool
	cleanup func()

	mailbox *peer.Mailbox
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	pubMu     sync.Mutex
	pubClosed bool
	updates   chan Update

	// rev counts record changes; persistMu orders archive writes by it.
	rev       int
	persistMu sync.Mutex
	persisted int

	closeOnce sync.Once
}

func New(opts Options) (*Service, error) {
	game := chess.NewGame()
	if fen := strings.TrimSpace(opts.InitialFEN); fen != "" {
		gb, side, err := chess.ParseFEN(fen)
		if err != nil { return nil, fmt.Errorf("initial position: %w", err) }
		game = chess.NewGameFromBoard(gb, side)
	}
	if opts.Mode == "" {
		opts.Mode = archive.ModeSolo
	}
	if opts.EngineTimeout <= 0 {
		opts.EngineTimeout = defaultEngineTimeout
	}

	now := time.Now().UTC()
	ctx, cancel := context.WithCancel(context.Background())
	s := &Service{
		id:      uuid.NewString(),
		opts:    opts,
		game:    game,
		mailbox: peer.NewMailbox(),
		ctx:     ctx,
		cancel:  cancel,
		updates: make(chan Update, updateBuffer),
	}
	s.rec = &archive.Record{
		ID:         s.id,
		Mode:       opts.Mode,
		White:      opts.White,
		Black:      opts.Black,
		LocalColor: opts.LocalColor.String(),
		InitialFEN: strings.TrimSpace(opts.InitialFEN),
		FEN:        game.FEN(),
		State:      game.State().String(),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if opts.TimeControl > 0 {
		game.AttachClock(chess.NewClock(opts.TimeControl, opts.Increment))
		s.wg.Add(1)
		go s.watchClock()
	}
	s.wg.Add(1)
	go s.receiveLoop()
	obslog.L().Info("match_start", zap.String("match_id", s.id), zap.String("mode", opts.Mode), zap.String("local_color", opts.LocalColor.Name()))
	return s, nil
}

func (s *Service) ID() string { return s.id }

func (s *Service) Updates() <-chan Update { return s.updates }

// Replay plays already-agreed moves, e.g. a Lichess game joined mid-way.
// It must be called before an opponent is attached.
func (s *Service) Replay(moves []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.game.Opponent().Kind() != chess.NoOpponent {
		return fmt.Errorf("replay with opponent attached: %w", chess.ErrAwaitingOpponent)
	}
	for i, text := range moves {
		req, err := chess.ParseMoveText(text)
		if err != nil { return fmt.Errorf("replay move %d: %w", i+1, err) }
		mv, err := s.game.Play(req)
		if err != nil { return fmt.Errorf("replay move %d %q: %w", i+1, text, err) }
		s.recordLocked(mv)
	}
	return nil
}

// AttachEngine hands engineColor to h. If the engine is already on move its
// search starts immediately.
func (s *Service) AttachEngine(h chess.EngineHandle, engineColor chess.Color) error {
	s.mu.Lock()
	if s.closed || s.ended {
		s.mu.Unlock()
		return ErrMatchClosed
	}
	s.game.AttachEngine(h, engineColor)
	onMove := s.game.PlayerTurn() == engineColor && !s.game.RulesState().IsTerminal()
	fen := s.game.FEN()
	s.mu.Unlock()

	obslog.L().Info("match_attach_engine", zap.String("match_id", s.id), zap.String("color", engineColor.Name()))
	if onMove {
		s.requestEngine(h, fen)
	}
	return nil
}

// AttachPeer makes h authoritative for the side opposite localColor. Moves
// and failures from inbox are applied in arrival order.
func (s *Service) AttachPeer(h chess.PeerHandle, localColor chess.Color, inbox *peer.Mailbox) error {
	s.mu.Lock()
	if s.closed || s.ended {
		s.mu.Unlock()
		return ErrMatchClosed
	}
	s.game.AttachPeer(h, localColor)
	s.mu.Unlock()

	obslog.L().Info("match_attach_peer", zap.String("match_id", s.id), zap.String("local_color", localColor.Name()))
	if inbox != nil {
		s.wg.Add(1)
		go s.forward(inbox)
	}
	return nil
}

// OnClose registers fn to run once when the match closes, e.g. to stop the
// engine pool or the relay.
func (s *Service) OnClose(fn func()) {
	s.mu.Lock()
	prev := s.cleanup
	s.cleanup = func() {
		if prev != nil {
			prev()
		}
		fn()
	}
	s.mu.Unlock()
}

// PlayMove applies a local move and dispatches it to the opponent.
// Rule violations are returned; opponent failures are reported on Updates.
func (s *Service) PlayMove(ctx context.Context, from, to chess.Coord, promo chess.PieceType) (chess.Move, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return chess.Move{}, ErrMatchClosed
	}
	if s.ended {
		s.mu.Unlock()
		return chess.Move{}, ErrMatchEnded
	}
	mv, err := s.game.Play(chess.MoveRequest{From: from, To: to, Promotion: promo})
	if err != nil {
		s.mu.Unlock()
		if errors.Is(err, chess.ErrGameOver) {
			s.checkClock()
		}
		return chess.Move{}, err
	}
	opp := s.game.Opponent()
	fen := s.game.FEN()
	terminal := s.recordLocked(mv)
	up := s.updateLocked(EventMove, mv, false, nil)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.persist(snap)
	if terminal {
		s.finish(up.State.String())
	}
	s.publish(up)

	switch opp.Kind() {
	case chess.NoOpponent:
	case chess.EngineOpponent:
		if h, ok := opp.Engine(); ok && !terminal {
			s.requestEngine(h, fen)
		}
	case chess.PeerOpponent:
		if h, ok := opp.Peer(); ok {
			if err := h.SendMove(ctx, mv.Text()); err != nil {
				s.dropPeer(h, err)
			}
		}
	}
	return mv, nil
}

// View is a consistent read of the game. Clock is nil for untimed games.
type View struct {
	MatchID  string
	FEN      string
	Turn     chess.Color
	State    chess.GameState
	Opponent chess.OpponentKind
	Moves    []string
	Taken    []chess.Piece
	Ended    bool
	Clock    *ClockView
}

type ClockView struct {
	White time.Duration
	Black time.Duration
}

func (s *Service) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := View{
		MatchID:  s.id,
		FEN:      s.game.FEN(),
		Turn:     s.game.PlayerTurn(),
		State:    s.game.State(),
		Opponent: s.game.Opponent().Kind(),
		Moves:    append([]string(nil), s.rec.MovesUCI...),
		Taken:    s.game.Board().TakenPieces(),
		Ended:    s.ended,
	}
	if c := s.game.Clock(); c != nil {
		v.Clock = &ClockView{White: c.Remaining(chess.White), Black: c.Remaining(chess.Black)}
	}
	return v
}

// Browsed is one position of the played line.
type Browsed struct {
	Ply  int
	Live bool
	// Position is the FEN placement and side to move.
	Position string
}

// Browse steps the view one position back or forward through the line. In a
// game without an opponent the side to move follows the view, so the next
// local move replaces the rest of the line; otherwise the view is read-only
// and the next move returns to the live position. ok is false at either end.
func (s *Service) Browse(back bool) (Browsed, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Browsed{}, false, ErrMatchClosed
	}
	gb := s.game.Board()
	var ok bool
	if back {
		ok = gb.NavigatePrevious()
	} else {
		ok = gb.NavigateNext()
	}
	if s.game.Opponent().Kind() == chess.NoOpponent {
		s.game.SyncTurnWithPosition()
	}
	ply, browsing := gb.ViewIndex()
	b := gb.ViewedBoard()
	return Browsed{Ply: ply, Live: !browsing, Position: b.Placement() + " " + gb.ViewedSideToMove().String()}, ok, nil
}

// Close abandons the match. Pending engine searches are cancelled and the
// peer is closed; blocked reads are not interrupted.
func (s *Service) Close() error {
	var closeErr error
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		prev := s.game.DetachOpponent()
		snap := s.snapshotLocked()
		ended := s.ended
		cleanup := s.cleanup
		s.mu.Unlock()

		s.cancel()
		s.mailbox.Close()
		if h, ok := prev.Peer(); ok {
			closeErr = h.Close()
		}
		s.wg.Wait()
		if !ended {
			s.persist(snap)
		}
		if cleanup != nil {
			cleanup()
		}

		s.pubMu.Lock()
		s.pubClosed = true
		close(s.updates)
		s.pubMu.Unlock()
		obslog.L().Info("match_close", zap.String("match_id", s.id), zap.Bool("ended", ended))
	})
	return closeErr
}

func (s *Service) requestEngine(h chess.EngineHandle, fen string) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(s.ctx, s.opts.EngineTimeout)
		defer cancel()
		start := time.Now()
		text, err := h.BestMove(ctx, fen)
		if err != nil {
			if s.ctx.Err() != nil {
				return
			}
			if !errors.Is(err, bot.ErrEngineUnavailable) && !errors.Is(err, bot.ErrEngineTimeout) {
				err = fmt.Errorf("%w: %v", bot.ErrEngineUnavailable, err)
			}
		}
		obslog.L().Debug("match_engine_reply", zap.String("match_id", s.id), zap.String("move", text), zap.Duration("took", time.Since(start)), zap.Error(err))
		s.mailbox.Push(peer.Inbound{Move: text, Err: err})
	}()
}

// forward moves items from an opponent mailbox into the match mailbox so
// engine replies and network moves share one ordered queue.
func (s *Service) forward(inbox *peer.Mailbox) {
	defer s.wg.Done()
	for {
		in, err := inbox.Receive(s.ctx)
		if err != nil {
			return
		}
		s.mailbox.Push(in)
		if in.Err != nil {
			return
		}
	}
}

func (s *Service) receiveLoop() {
	defer s.wg.Done()
	for {
		in, err := s.mailbox.Receive(s.ctx)
		if err != nil {
			return
		}
		s.handleInbound(in)
	}
}

func (s *Service) handleInbound(in peer.Inbound) {
	if in.Err != nil {
		s.handleFailure(in.Err)
		return
	}

	s.mu.Lock()
	if s.closed || s.ended {
		s.mu.Unlock()
		return
	}
	mv, err := s.game.ApplyOpponentMove(in.Move)
	if err != nil {
		s.mu.Unlock()
		if errors.Is(err, chess.ErrGameOver) && s.checkClock() {
			return
		}
		obslog.L().Warn("match_inbound_dropped", zap.String("match_id", s.id), zap.String("move", in.Move), zap.Error(err))
		s.publish(Update{MatchID: s.id, Event: EventDropped, Err: err})
		return
	}
	terminal := s.recordLocked(mv)
	up := s.updateLocked(EventMove, mv, true, nil)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.persist(snap)
	if terminal {
		s.finish(up.State.String())
	}
	s.publish(up)
}

func (s *Service) handleFailure(err error) {
	switch {
	case errors.Is(err, peer.ErrTransport), errors.Is(err, peer.ErrGameEnded):
		s.mu.Lock()
		opp := s.game.Opponent()
		s.mu.Unlock()
		if h, ok := opp.Peer(); ok {
			s.dropPeer(h, err)
		}
	case errors.Is(err, bot.ErrEngineUnavailable), errors.Is(err, bot.ErrEngineTimeout):
		s.mu.Lock()
		if s.game.Opponent().Kind() != chess.EngineOpponent {
			s.mu.Unlock()
			return
		}
		s.game.DetachOpponent()
		up := s.updateLocked(EventEngineLost, chess.Move{}, false, err)
		s.mu.Unlock()
		obslog.L().Warn("match_engine_detached", zap.String("match_id", s.id), zap.Error(err))
		s.publish(up)
	default:
		obslog.L().Warn("match_inbound_error", zap.String("match_id", s.id), zap.Error(err))
	}
}

// dropPeer detaches h if it is still the attached peer and ends the match.
func (s *Service) dropPeer(h chess.PeerHandle, cause error) {
	s.mu.Lock()
	cur, ok := s.game.Opponent().Peer()
	if !ok || cur != h || s.ended {
		s.mu.Unlock()
		return
	}
	s.game.DetachOpponent()
	s.ended = true
	s.rev++
	if !s.game.RulesState().IsTerminal() {
		s.rec.Termination = TerminationOpponentLeft
	}
	up := s.updateLocked(EventOpponentLeft, chess.Move{}, false, cause)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	obslog.L().Warn("match_peer_detached", zap.String("match_id", s.id), zap.Error(cause))
	if err := h.Close(); err != nil {
		obslog.L().Debug("match_peer_close_error", zap.String("match_id", s.id), zap.Error(err))
	}
	s.finishRecord(snap)
	s.publish(up)
}

// recordLocked appends mv to the record and reports whether the game is over.
// A move played from a browsed position first cuts the record to that line.
func (s *Service) recordLocked(mv chess.Move) bool {
	if played := len(s.game.Board().MoveHistory()) - 1; played < len(s.rec.MovesUCI) {
		s.rec.MovesUCI = s.rec.MovesUCI[:played]
	}
	s.rec.MovesUCI = append(s.rec.MovesUCI, mv.Text())
	s.rev++
	s.rec.FEN = s.game.FEN()
	s.rec.State = s.game.State().String()
	s.rec.UpdatedAt = time.Now().UTC()
	rules := s.game.RulesState()
	if !rules.IsTerminal() {
		return false
	}
	s.ended = true
	s.rec.Termination = rules.String()
	s.rec.Result = resultFor(rules, s.game.PlayerTurn())
	return true
}

// watchClock flags a side that runs out of time while nobody moves.
func (s *Service) watchClock() {
	defer s.wg.Done()
	t := time.NewTicker(clockTick)
	defer t.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-t.C:
			if s.checkClock() {
				return
			}
		}
	}
}

// checkClock ends the match once a clock has run out. It reports whether the
// match is over for any reason.
func (s *Service) checkClock() bool {
	s.mu.Lock()
	if s.closed || s.ended {
		s.mu.Unlock()
		return true
	}
	flagged, out := s.game.CheckTime()
	if !out {
		s.mu.Unlock()
		return false
	}
	s.ended = true
	s.rev++
	s.rec.State = s.game.State().String()
	s.rec.Termination = chess.TimeUp.String()
	s.rec.Result = winner(flagged.Opposite())
	s.rec.UpdatedAt = time.Now().UTC()
	up := s.updateLocked(EventTimeUp, chess.Move{}, false, nil)
	up.Flagged = flagged
	s.mu.Unlock()

	obslog.L().Info("match_time_up", zap.String("match_id", s.id), zap.String("flagged", flagged.Name()))
	s.finish(chess.TimeUp.String())
	s.publish(up)
	return true
}

// resultFor maps a terminal verdict to the winner. On checkmate the side on
// move is the one mated.
func resultFor(state chess.GameState, onMove chess.Color) string {
	if state != chess.Checkmate {
		return archive.ResultDraw
	}
	return winner(onMove.Opposite())
}

func winner(c chess.Color) string {
	if c == chess.White {
		return archive.ResultWhite
	}
	return archive.ResultBlack
}

type snapshot struct {
	rec *archive.Record
	rev int
}

func (s *Service) snapshotLocked() snapshot {
	c := *s.rec
	c.MovesUCI = append([]string(nil), s.rec.MovesUCI...)
	c.MovesSAN = nil
	return snapshot{rec: &c, rev: s.rev}
}

// persist writes snap unless a newer revision was already written.
func (s *Service) persist(snap snapshot) {
	if s.opts.Archive == nil {
		return
	}
	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	if snap.rev < s.persisted {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := s.opts.Archive.Snapshot(ctx, snap.rec); err != nil {
		obslog.L().Warn("match_snapshot_error", zap.String("match_id", s.id), zap.Error(err))
		return
	}
	s.persisted = snap.rev
}

func (s *Service) finish(reason string) {
	s.mu.Lock()
	snap := s.snapshotLocked()
	s.mu.Unlock()
	obslog.L().Info("match_finished", zap.String("match_id", s.id), zap.String("reason", reason), zap.String("result", snap.rec.Result))
	s.finishRecord(snap)
}

func (s *Service) finishRecord(snap snapshot) {
	if s.opts.Archive == nil {
		return
	}
	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := s.opts.Archive.Finish(ctx, snap.rec); err != nil {
		obslog.L().Warn("match_finish_error", zap.String("match_id", s.id), zap.Error(err))
		return
	}
	s.persisted = snap.rev
}
