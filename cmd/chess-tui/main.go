package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/park285/chess-tui-sync/internal/archive"
	"github.com/park285/chess-tui-sync/internal/bot"
	"github.com/park285/chess-tui-sync/internal/chess"
	appcfg "github.com/park285/chess-tui-sync/internal/config"
	"github.com/park285/chess-tui-sync/internal/lichess"
	"github.com/park285/chess-tui-sync/internal/msgcat"
	"github.com/park285/chess-tui-sync/internal/obslog"
	"github.com/park285/chess-tui-sync/internal/peer"
	"github.com/park285/chess-tui-sync/internal/service/match"
	"go.uber.org/zap"
)

func main() {
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("log init error: %v", err)
	}
	defer obslog.Sync()

	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	cat, err := msgcat.New(cfg.MsgcatDir)
	if err != nil {
		log.Fatalf("message catalog error: %v", err)
	}
	arch, err := openArchive(cfg)
	if err != nil {
		log.Fatalf("archive init error: %v", err)
	}
	defer func() { _ = arch.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out := &printer{w: os.Stdout}
	m, err := setupMatch(ctx, cfg, arch, cat, out)
	if err != nil {
		log.Fatalf("match setup error: %v", err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for up := range m.Updates() {
			out.line(statusLine(cat, up))
		}
	}()

	repl(ctx, m, arch, cat, os.Stdin, out)
	_ = m.Close()
	wg.Wait()
	out.line(cat.Text("match.closed", nil))
}

func openArchive(cfg *appcfg.AppConfig) (*archive.Archive, error) {
	var store archive.Store = archive.NewMemoryStore()
	if cfg.RedisURL != "" {
		rs, err := archive.NewRedisStore(cfg.RedisURL, time.Duration(cfg.ArchiveTTLSec)*time.Second)
		if err != nil { return nil, err }
		store = rs
	}
	if cfg.DatabaseURL == "" {
		return archive.New(store, nil), nil
	}
	repo, err := archive.NewRepository(cfg.DatabaseURL)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	a := archive.New(store, repo)
	return a, nil
}

func setupMatch(ctx context.Context, cfg *appcfg.AppConfig, arch *archive.Archive, cat *msgcat.Catalog, out *printer) (*match.Service, error) {
	switch cfg.Mode {
	case appcfg.ModeBot:
		return setupBot(cfg, arch, cat, out)
	case appcfg.ModeHost, appcfg.ModeJoin:
		return setupPeer(ctx, cfg, arch, cat, out)
	case appcfg.ModeLichess:
		return setupLichess(ctx, cfg, arch, cat, out)
	default:
		opts := match.Options{Mode: archive.ModeSolo, LocalColor: chess.White, White: "local", Black: "local", Archive: arch}
		withClock(&opts, cfg)
		m, err := newResumable(cfg, opts)
		if err != nil { return nil, err }
		announce(cat, out, m, archive.ModeSolo, chess.White)
		return m, nil
	}
}

func setupBot(cfg *appcfg.AppConfig, arch *archive.Archive, cat *msgcat.Catalog, out *printer) (*match.Service, error) {
	botColor := mustColor(cfg.BotColor)
	local := botColor.Opposite()
	diff, err := bot.ParseDifficulty(cfg.BotDifficulty)
	if err != nil { return nil, err }

	names := map[chess.Color]string{local: "local", botColor: "engine:" + diff.String()}
	opts := match.Options{Mode: archive.ModeBot, LocalColor: local, White: names[chess.White], Black: names[chess.Black], Archive: arch}
	withClock(&opts, cfg)
	m, err := newResumable(cfg, opts)
	if err != nil { return nil, err }
	announce(cat, out, m, archive.ModeBot, local)

	eng, err := bot.NewEngine(bot.Config{EnginePath: cfg.EnginePath, Difficulty: diff, Depth: cfg.BotDepth, BookPath: cfg.BotBookPath})
	if err != nil {
		if !errors.Is(err, bot.ErrEngineUnavailable) {
			_ = m.Close()
			return nil, err
		}
		obslog.L().Warn("bot_disabled", zap.Error(err))
		out.line(cat.Text("match.engine_lost", nil))
		return m, nil
	}
	m.OnClose(func() { _ = eng.Close() })
	if err := m.AttachEngine(eng, botColor); err != nil {
		_ = m.Close()
		return nil, err
	}
	return m, nil
}

func setupPeer(ctx context.Context, cfg *appcfg.AppConfig, arch *archive.Archive, cat *msgcat.Catalog, out *printer) (*match.Service, error) {
	dialAddr := cfg.PeerAddr
	var shutdown func()
	if cfg.Mode == appcfg.ModeHost {
		addr, stopRelay, err := startRelay(ctx, cfg)
		if err != nil { return nil, fmt.Errorf("relay bind: %w", err) }
		dialAddr = addr
		shutdown = stopRelay
		out.line(cat.Text("peer.hosting", map[string]string{"Addr": addr}))
	} else if cfg.PeerTransport == "ws" {
		dialAddr = "ws://" + cfg.PeerAddr + cfg.PeerWSPath
	}

	client, err := peer.Dial(ctx, peer.DialConfig{Addr: dialAddr, Attempts: cfg.PeerDialAttempts})
	if err != nil {
		if shutdown != nil { shutdown() }
		return nil, err
	}
	out.line(cat.Text("peer.waiting", map[string]string{"Color": client.Color().Name()}))
	if err := client.WaitForStart(ctx); err != nil {
		_ = client.Close()
		if shutdown != nil { shutdown() }
		return nil, err
	}
	out.line(cat.Text("peer.started", nil))

	local := client.Color()
	names := map[chess.Color]string{local: "local", local.Opposite(): "peer"}
	m, err := match.New(match.Options{Mode: archive.ModePeer, LocalColor: local, White: names[chess.White], Black: names[chess.Black], Archive: arch})
	if err != nil {
		_ = client.Close()
		if shutdown != nil { shutdown() }
		return nil, err
	}
	if shutdown != nil {
		m.OnClose(shutdown)
	}
	announce(cat, out, m, archive.ModePeer, local)
	if err := m.AttachPeer(client, local, client.Mailbox()); err != nil {
		_ = m.Close()
		return nil, err
	}
	return m, nil
}

// startRelay binds the relay and returns the address clients dial.
func startRelay(ctx context.Context, cfg *appcfg.AppConfig) (string, func(), error) {
	hostColor := mustColor(cfg.PeerColor)
	if cfg.PeerTransport == "ws" {
		relay := peer.NewRelay(hostColor)
		srv, addr, err := relay.ServeWebsocket(ctx, cfg.PeerAddr, cfg.PeerWSPath)
		if err != nil { return "", nil, err }
		stop := func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = relay.Close()
			if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				obslog.L().Warn("relay_ws_shutdown_error", zap.Error(err))
			}
		}
		return "ws://" + addr.String() + cfg.PeerWSPath, stop, nil
	}
	relay, err := peer.Listen(ctx, cfg.PeerAddr, hostColor)
	if err != nil { return "", nil, err }
	return relay.Addr(), func() { _ = relay.Close() }, nil
}

func setupLichess(ctx context.Context, cfg *appcfg.AppConfig, arch *archive.Archive, cat *msgcat.Catalog, out *printer) (*match.Service, error) {
	client := lichess.NewClient(cfg.LichessBaseURL, cfg.LichessToken)
	opp, err := lichess.Join(ctx, client, cfg.LichessGameID)
	if err != nil { return nil, err }

	local := opp.Color()
	names := map[chess.Color]string{local: "local", local.Opposite(): "lichess:" + opp.GameID()}
	m, err := match.New(match.Options{
		Mode: archive.ModeLichess, LocalColor: local, InitialFEN: opp.InitialFEN(),
		White: names[chess.White], Black: names[chess.Black], Archive: arch,
	})
	if err != nil {
		_ = opp.Close()
		return nil, err
	}
	if err := m.Replay(opp.Moves()); err != nil {
		_ = opp.Close()
		_ = m.Close()
		return nil, err
	}
	out.line(cat.Text("lichess.joined", map[string]string{"ID": opp.GameID(), "Color": local.Name()}))
	announce(cat, out, m, archive.ModeLichess, local)
	if err := m.AttachPeer(opp, local, opp.Mailbox()); err != nil {
		_ = m.Close()
		return nil, err
	}
	return m, nil
}

// newResumable starts a match, continuing the game in cfg.ResumePGN when set.
func newResumable(cfg *appcfg.AppConfig, opts match.Options) (*match.Service, error) {
	if cfg.ResumePGN == "" {
		return match.New(opts)
	}
	f, err := os.Open(cfg.ResumePGN)
	if err != nil { return nil, fmt.Errorf("open resume pgn: %w", err) }
	defer f.Close()
	rec, err := archive.LoadPGN(f)
	if err != nil { return nil, err }
	if rec.Finished {
		return nil, fmt.Errorf("resume pgn: game already ended %s", rec.Result)
	}
	opts.InitialFEN = rec.InitialFEN
	m, err := match.New(opts)
	if err != nil { return nil, err }
	if err := m.Replay(rec.MovesUCI); err != nil {
		_ = m.Close()
		return nil, err
	}
	obslog.L().Info("match_resumed", zap.String("match_id", m.ID()), zap.String("pgn", cfg.ResumePGN), zap.Int("moves", len(rec.MovesUCI)))
	return m, nil
}

// withClock applies the configured time control. Peer and Lichess games are
// untimed locally: each side's clock lives elsewhere.
func withClock(opts *match.Options, cfg *appcfg.AppConfig) {
	opts.TimeControl = time.Duration(cfg.ClockSec) * time.Second
	opts.Increment = time.Duration(cfg.ClockIncrementSec) * time.Second
}

func announce(cat *msgcat.Catalog, out *printer, m *match.Service, mode string, local chess.Color) {
	v := m.View()
	out.line(cat.Text("match.start", map[string]string{"ID": m.ID(), "Mode": mode, "Color": local.Name()}))
	out.line(cat.Text("match.turn", map[string]string{"Turn": v.Turn.Name()}))
}

func repl(ctx context.Context, m *match.Service, arch *archive.Archive, cat *msgcat.Catalog, in io.Reader, out *printer) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()

	out.line(cat.Text("help.usage", nil))
	for {
		var raw string
		select {
		case <-ctx.Done():
			return
		case l, ok := <-lines:
			if !ok { return }
			raw = l
		}
		cmd := strings.ToLower(strings.TrimSpace(raw))
		switch cmd {
		case "":
			continue
		case "quit", "exit":
			return
		case "help":
			out.line(cat.Text("help.usage", nil))
		case "fen":
			out.line(m.View().FEN)
		case "moves":
			out.line(strings.Join(m.View().Moves, " "))
		case "ongoing":
			listOngoing(ctx, arch, cat, out)
		case "back", "next":
			browse(m, cat, out, cmd == "back")
		case "clock":
			out.line(clockLine(cat, m.View()))
		default:
			playText(ctx, m, cat, out, cmd)
		}
	}
}

func playText(ctx context.Context, m *match.Service, cat *msgcat.Catalog, out *printer, text string) {
	req, err := chess.ParseMoveText(text)
	if err == nil {
		_, err = m.PlayMove(ctx, req.From, req.To, req.Promotion)
	}
	if err != nil {
		out.line(cat.Text("match.illegal", map[string]string{"Move": text, "Reason": err.Error()}))
	}
}

func browse(m *match.Service, cat *msgcat.Catalog, out *printer, back bool) {
	b, ok, err := m.Browse(back)
	if err != nil {
		out.line(err.Error())
		return
	}
	if !ok {
		out.line(cat.Text("match.browse_end", nil))
		return
	}
	if b.Live {
		out.line(cat.Text("match.browse_live", map[string]any{"Position": b.Position}))
		return
	}
	out.line(cat.Text("match.browse", map[string]any{"Ply": b.Ply, "Position": b.Position}))
}

func listOngoing(ctx context.Context, arch *archive.Archive, cat *msgcat.Catalog, out *printer) {
	recs, err := arch.Store().ListActive(ctx)
	if err != nil {
		obslog.L().Warn("archive_list_error", zap.Error(err))
		return
	}
	if len(recs) == 0 {
		out.line(cat.Text("archive.none", nil))
		return
	}
	out.line(cat.Text("archive.ongoing_header", nil))
	for _, r := range recs {
		out.line(cat.Text("archive.ongoing_item", map[string]any{"ID": r.ID, "Mode": r.Mode, "White": r.White, "Black": r.Black, "Moves": len(r.MovesUCI)}))
	}
}

func mustColor(s string) chess.Color {
	c, ok := chess.ParseColor(s)
	if !ok {
		log.Fatalf("invalid color %q", s)
	}
	return c
}

type printer struct {
	mu sync.Mutex
	w  io.Writer
}

func (p *printer) line(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.w, s)
}
