package peer

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/park285/chess-tui-sync/internal/chess"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLine(t *testing.T) {
	msg, err := ParseLine("e2e4\r")
	require.NoError(t, err)
	assert.Equal(t, Message{Kind: KindMove, Move: "e2e4"}, msg)

	msg, err = ParseLine("E7E8Q")
	require.NoError(t, err)
	assert.Equal(t, "e7e8q", msg.Move)

	msg, err = ParseLine("b")
	require.NoError(t, err)
	assert.Equal(t, KindColor, msg.Kind)
	assert.Equal(t, chess.Black, msg.Color)

	for line, kind := range map[string]Kind{"s": KindStart, "ended": KindEnded} {
		msg, err := ParseLine(line)
		require.NoError(t, err)
		assert.Equal(t, kind, msg.Kind)
	}

	for _, bad := range []string{"", "hello", "e2e9", "e2e4e5"} {
		_, err := ParseLine(bad)
		assert.ErrorIs(t, err, ErrProtocol, bad)
	}
}

func TestReadLineTooLongIsDropped(t *testing.T) {
	input := strings.Repeat("x", 2000) + "\n" + strings.Repeat("y", MaxLineLen+5) + "\ne2e4\n"
	r := bufio.NewReaderSize(strings.NewReader(input), 2*MaxLineLen)

	_, err := readLine(r)
	assert.ErrorIs(t, err, ErrProtocol)
	_, err = readLine(r)
	assert.ErrorIs(t, err, ErrProtocol)
	line, err := readLine(r)
	require.NoError(t, err)
	assert.Equal(t, "e2e4", line)
}

func TestMailboxOrder(t *testing.T) {
	m := NewMailbox()
	for _, mv := range []string{"e2e4", "e7e5", "g1f3"} {
		m.Push(Inbound{Move: mv})
	}
	assert.Equal(t, 3, m.Len())
	ctx := context.Background()
	for _, want := range []string{"e2e4", "e7e5", "g1f3"} {
		in, err := m.Receive(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, in.Move)
	}

	ctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err := m.Receive(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMailboxCloseDrainsFirst(t *testing.T) {
	m := NewMailbox()
	m.Push(Inbound{Move: "d2d4"})
	m.Close()
	in, err := m.Receive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "d2d4", in.Move)
	_, err = m.Receive(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestMailboxReceiveWakesOnPush(t *testing.T) {
	m := NewMailbox()
	go func() {
		time.Sleep(10 * time.Millisecond)
		m.Push(Inbound{Move: "c2c4"})
	}()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	in, err := m.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "c2c4", in.Move)
}

func startRelay(t *testing.T, host chess.Color) *Relay {
	t.Helper()
	r, err := Listen(context.Background(), "127.0.0.1:0", host)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func dial(t *testing.T, addr string) *Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err := Dial(ctx, DialConfig{Addr: addr, Backoff: 20 * time.Millisecond})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func receive(t *testing.T, c *Client) Inbound {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	in, err := c.Mailbox().Receive(ctx)
	require.NoError(t, err)
	return in
}

func waitStart(t *testing.T, clients ...*Client) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	for _, c := range clients {
		require.NoError(t, c.WaitForStart(ctx))
	}
}

func TestRelayHandshakeAndBroadcast(t *testing.T) {
	r := startRelay(t, chess.Black)
	host := dial(t, r.Addr())
	guest := dial(t, r.Addr())

	assert.Equal(t, chess.Black, host.Color())
	assert.Equal(t, chess.White, guest.Color())
	waitStart(t, host, guest)

	require.NoError(t, guest.SendMove(context.Background(), "e2e4"))
	assert.Equal(t, "e2e4", receive(t, host).Move)

	require.NoError(t, host.SendMove(context.Background(), "e7e5"))
	assert.Equal(t, "e7e5", receive(t, guest).Move)

	// nothing echoes back to the sender
	assert.Equal(t, 0, host.Mailbox().Len())
	assert.Equal(t, 0, guest.Mailbox().Len())
	assert.Equal(t, 2, r.Peers())
}

func TestRelayLateJoinerGetsStart(t *testing.T) {
	r := startRelay(t, chess.White)
	a := dial(t, r.Addr())
	b := dial(t, r.Addr())
	waitStart(t, a, b)
	spectator := dial(t, r.Addr())
	waitStart(t, spectator)
	assert.Equal(t, chess.Black, spectator.Color())

	require.NoError(t, a.SendMove(context.Background(), "d2d4"))
	assert.Equal(t, "d2d4", receive(t, b).Move)
	assert.Equal(t, "d2d4", receive(t, spectator).Move)
}

func TestRelayDropsMalformedLines(t *testing.T) {
	r := startRelay(t, chess.White)
	a := dial(t, r.Addr())

	raw, err := net.Dial("tcp", r.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = raw.Close() })
	br := bufio.NewReader(raw)
	color, err := br.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "b\n", color)
	waitStart(t, a)

	_, err = raw.Write([]byte("not-a-move\n" + strings.Repeat("z", 600) + "\ne7e5\n"))
	require.NoError(t, err)
	assert.Equal(t, "e7e5", receive(t, a).Move)
	assert.Equal(t, 2, r.Peers(), "malformed input keeps the connection")
}

func TestRelayTransportFailureBroadcastsEnded(t *testing.T) {
	r := startRelay(t, chess.White)
	a := dial(t, r.Addr())

	raw, err := net.Dial("tcp", r.Addr())
	require.NoError(t, err)
	waitStart(t, a)
	require.NoError(t, raw.Close())

	in := receive(t, a)
	assert.ErrorIs(t, in.Err, ErrGameEnded)
	require.Eventually(t, func() bool { return r.Peers() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestClientCloseSendsEnded(t *testing.T) {
	r := startRelay(t, chess.White)
	a := dial(t, r.Addr())
	b := dial(t, r.Addr())
	waitStart(t, a, b)

	require.NoError(t, b.Close())
	in := receive(t, a)
	assert.ErrorIs(t, in.Err, ErrGameEnded)
	require.Eventually(t, func() bool { return r.Peers() == 1 }, 2*time.Second, 10*time.Millisecond)

	// ended is announced once
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, a.Mailbox().Len())
}

func TestRelayCloseFailsClients(t *testing.T) {
	r, err := Listen(context.Background(), "127.0.0.1:0", chess.White)
	require.NoError(t, err)
	a := dial(t, r.Addr())
	require.NoError(t, r.Close())

	in := receive(t, a)
	assert.ErrorIs(t, in.Err, ErrTransport)
}

func TestDialGivesUpAfterAttempts(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	start := time.Now()
	_, err = Dial(context.Background(), DialConfig{Addr: addr, Attempts: 3, Backoff: 10 * time.Millisecond})
	assert.ErrorIs(t, err, ErrTransport)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestSendMoveRejectsBadNotation(t *testing.T) {
	r := startRelay(t, chess.White)
	a := dial(t, r.Addr())
	err := a.SendMove(context.Background(), "castle")
	assert.True(t, errors.Is(err, ErrProtocol), "got %v", err)
}

func TestClientImplementsPeerHandle(t *testing.T) {
	var _ chess.PeerHandle = (*Client)(nil)
}

func TestWebsocketRelay(t *testing.T) {
	r := NewRelay(chess.White)
	srv := httptest.NewServer(r.WebsocketHandler())
	t.Cleanup(srv.Close)
	t.Cleanup(func() { _ = r.Close() })

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	a := dial(t, url)
	b := dial(t, url)
	assert.Equal(t, chess.White, a.Color())
	assert.Equal(t, chess.Black, b.Color())
	waitStart(t, a, b)

	require.NoError(t, a.SendMove(context.Background(), "g1f3"))
	assert.Equal(t, "g1f3", receive(t, b).Move)
	require.NoError(t, b.SendMove(context.Background(), "g8f6"))
	assert.Equal(t, "g8f6", receive(t, a).Move)
}
