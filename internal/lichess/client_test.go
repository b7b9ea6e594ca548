package lichess

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/park285/chess-tui-sync/internal/chess"
	"github.com/park285/chess-tui-sync/internal/peer"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
)

const testToken = "lip_test"

type fakeLichess struct {
	moves       chan string
	streamCalls atomic.Int32
	flaky       atomic.Int32
}

func (f *fakeLichess) handler(ctx *fasthttp.RequestCtx) {
	if string(ctx.Request.Header.Peek("Authorization")) != "Bearer "+testToken {
		ctx.SetStatusCode(fasthttp.StatusUnauthorized)
		return
	}
	path := string(ctx.Path())
	switch {
	case path == "/api/account":
		if f.flaky.Add(-1) >= 0 {
			ctx.SetStatusCode(fasthttp.StatusServiceUnavailable)
			return
		}
		ctx.SetContentType("application/json")
		ctx.SetBodyString(`{"id":"bob","username":"Bob"}`)
	case path == "/api/account/playing":
		ctx.SetContentType("application/json")
		ctx.SetBodyString(`{"nowPlaying":[{"gameId":"g1","fullId":"g1abcd","color":"black","fen":"rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 0 1","opponent":{"id":"alice","username":"Alice","rating":1500},"isMyTurn":true}]}`)
	case path == "/api/challenge/g1/accept":
		ctx.SetStatusCode(fasthttp.StatusNotFound)
	case strings.HasPrefix(path, "/api/board/game/g1/move/"):
		f.moves <- strings.TrimPrefix(path, "/api/board/game/g1/move/")
		ctx.SetBodyString(`{"ok":true}`)
	case path == "/api/board/game/g1/resign":
		ctx.SetBodyString(`{"ok":true}`)
	case path == "/api/board/game/g1/stream":
		call := f.streamCalls.Add(1)
		ctx.SetContentType("application/x-ndjson")
		ctx.SetBodyStreamWriter(func(w *bufio.Writer) {
			writeLine := func(s string) {
				fmt.Fprintln(w, s)
				_ = w.Flush()
			}
			writeLine(`{"type":"gameFull","id":"g1","white":{"id":"alice","name":"Alice"},"black":{"id":"bob","name":"Bob"},"initialFen":"startpos","state":{"type":"gameState","moves":"e2e4","wtime":60000,"btime":60000,"winc":0,"binc":0,"status":"started"}}`)
			if call == 1 {
				return
			}
			writeLine(`{"type":"chatLine","username":"alice","text":"hi","room":"player"}`)
			writeLine(`not json`)
			select {
			case mv := <-f.moves:
				writeLine(`{"type":"gameState","moves":"e2e4 ` + mv + `","status":"started"}`)
			case <-time.After(3 * time.Second):
				return
			}
			writeLine(`{"type":"gameState","moves":"e2e4 e7e5 g1f3","status":"started"}`)
			writeLine(`{"type":"gameState","moves":"e2e4 e7e5 g1f3 b8c6 f1c4","status":"started"}`)
			writeLine(`{"type":"gameState","moves":"e2e4 e7e5 g1f3 b8c6 f1c4","status":"resign","winner":"white"}`)
		})
	default:
		ctx.SetStatusCode(fasthttp.StatusNotFound)
	}
}

func newTestClient(t *testing.T, token string) (*Client, *fakeLichess) {
	t.Helper()
	ln := fasthttputil.NewInmemoryListener()
	fake := &fakeLichess{moves: make(chan string, 4)}
	srv := &fasthttp.Server{Handler: fake.handler}
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = ln.Close() })

	c := NewClient("http://lichess.test", token,
		WithDial(func(string) (net.Conn, error) { return ln.Dial() }),
		WithTimeout(2*time.Second))
	return c, fake
}

func TestProfileAndOngoingGames(t *testing.T) {
	c, _ := newTestClient(t, testToken)
	ctx := context.Background()

	p, err := c.Profile(ctx)
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if p.ID != "bob" || p.Username != "Bob" {
		t.Fatalf("profile = %+v", p)
	}

	games, err := c.OngoingGames(ctx)
	if err != nil {
		t.Fatalf("OngoingGames: %v", err)
	}
	if len(games) != 1 || games[0].GameID != "g1" || !games[0].IsMyTurn || games[0].Opponent.Username != "Alice" {
		t.Fatalf("games = %+v", games)
	}
}

func TestProfileRetriesServerErrors(t *testing.T) {
	c, fake := newTestClient(t, testToken)
	fake.flaky.Store(2)
	if _, err := c.Profile(context.Background()); err != nil {
		t.Fatalf("Profile after retries: %v", err)
	}
}

func TestUnauthorized(t *testing.T) {
	c, _ := newTestClient(t, "wrong")
	_, err := c.Profile(context.Background())
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestJoinGameReadsGameFull(t *testing.T) {
	c, _ := newTestClient(t, testToken)
	info, err := c.JoinGame(context.Background(), "g1")
	if err != nil {
		t.Fatalf("JoinGame: %v", err)
	}
	if info.ID != "g1" || info.White.ID != "alice" || info.Black.ID != "bob" {
		t.Fatalf("info = %+v", info)
	}
	if got := info.State.MoveList(); len(got) != 1 || got[0] != "e2e4" {
		t.Fatalf("moves = %v", got)
	}

	_, err = c.JoinGame(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func receive(t *testing.T, m *peer.Mailbox) peer.Inbound {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	in, err := m.Receive(ctx)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	return in
}

func TestOpponentForwardsOnlyOtherSideMoves(t *testing.T) {
	c, _ := newTestClient(t, testToken)
	ctx := context.Background()

	o, err := Join(ctx, c, "g1")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	t.Cleanup(func() { _ = o.Close() })

	if o.Color() != chess.Black {
		t.Fatalf("color = %v", o.Color())
	}
	if o.InitialFEN() != "" || len(o.Moves()) != 1 {
		t.Fatalf("initial fen %q moves %v", o.InitialFEN(), o.Moves())
	}

	if err := o.SendMove(ctx, "e7e5"); err != nil {
		t.Fatalf("SendMove: %v", err)
	}
	if in := receive(t, o.Mailbox()); in.Move != "g1f3" {
		t.Fatalf("first inbound = %+v", in)
	}
	// b8c6 is ours; only f1c4 is forwarded
	if in := receive(t, o.Mailbox()); in.Move != "f1c4" {
		t.Fatalf("second inbound = %+v", in)
	}
	if in := receive(t, o.Mailbox()); !errors.Is(in.Err, peer.ErrGameEnded) {
		t.Fatalf("expected game ended, got %+v", in)
	}
}

func TestOpponentRejectsBadMoveText(t *testing.T) {
	c, _ := newTestClient(t, testToken)
	o, err := Join(context.Background(), c, "g1")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	t.Cleanup(func() { _ = o.Close() })
	if err := o.SendMove(context.Background(), "O-O"); !errors.Is(err, peer.ErrProtocol) {
		t.Fatalf("expected ErrProtocol, got %v", err)
	}
	if err := o.Resign(context.Background()); err != nil {
		t.Fatalf("Resign: %v", err)
	}
}

func TestOpponentImplementsPeerHandle(t *testing.T) {
	var _ chess.PeerHandle = (*Opponent)(nil)
}

func TestGameStateFinished(t *testing.T) {
	for status, want := range map[string]bool{"started": false, "created": false, "mate": true, "resign": true, "draw": true, "aborted": true} {
		if got := (GameState{Status: status}).Finished(); got != want {
			t.Fatalf("%s: got %v", status, got)
		}
	}
}
