package lichess

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/park285/chess-tui-sync/internal/obslog"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

const (
	DefaultBaseURL = "https://lichess.org"
	userAgent      = "chess-tui-sync (https://github.com/park285/chess-tui-sync)"
	maxEventLine   = 64 * 1024
)

var (
	ErrUnauthorized   = errors.New("lichess: invalid or missing token")
	ErrNotFound       = errors.New("lichess: game not found")
	ErrNotParticipant = errors.New("lichess: not a participant in this game")
	ErrNoGameInfo     = errors.New("lichess: stream ended before game information")
)

type Client struct {
	baseURL string
	token   string
	http    *fasthttp.Client
	stream  *fasthttp.Client

	defaultTimeout time.Duration
	retryMax       int
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.defaultTimeout = d }
}

func WithRetry(max int) Option {
	return func(c *Client) { c.retryMax = max }
}

// WithDial routes every connection through dial. Tests use an in-memory listener.
func WithDial(dial func(addr string) (net.Conn, error)) Option {
	return func(c *Client) {
		c.http.Dial = dial
		c.stream.Dial = dial
	}
}

func NewClient(baseURL, token string, opts ...Option) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		token:          token,
		http:           &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 8},
		stream:         &fasthttp.Client{StreamResponseBody: true, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 4},
		defaultTimeout: 10 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Profile(ctx context.Context) (*Profile, error) {
	var p Profile
	if err := c.doJSON(ctx, fasthttp.MethodGet, "/api/account", &p, true); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) OngoingGames(ctx context.Context) ([]OngoingGame, error) {
	var resp ongoingResponse
	if err := c.doJSON(ctx, fasthttp.MethodGet, "/api/account/playing", &resp, true); err != nil {
		return nil, err
	}
	return resp.NowPlaying, nil
}

func (c *Client) AcceptChallenge(ctx context.Context, id string) error {
	return c.doJSON(ctx, fasthttp.MethodPost, "/api/challenge/"+id+"/accept", nil, false)
}

func (c *Client) MakeMove(ctx context.Context, gameID, move string) error {
	return c.doJSON(ctx, fasthttp.MethodPost, "/api/board/game/"+gameID+"/move/"+move, nil, false)
}

func (c *Client) Resign(ctx context.Context, gameID string) error {
	return c.doJSON(ctx, fasthttp.MethodPost, "/api/board/game/"+gameID+"/resign", nil, false)
}

// GameInfo is what the first gameFull event reveals about a joined game.
type GameInfo struct {
	ID         string
	White      Player
	Black      Player
	InitialFEN string
	State      GameState
}

// JoinGame accepts a pending challenge, then reads the game stream until the
// gameFull event arrives.
func (c *Client) JoinGame(ctx context.Context, gameID string) (*GameInfo, error) {
	if err := c.AcceptChallenge(ctx, gameID); err != nil {
		obslog.L().Info("lichess_accept_skipped", zap.String("game", gameID), zap.Error(err))
	}

	var info *GameInfo
	errFound := errors.New("found")
	err := c.StreamGame(ctx, gameID, func(ev Event) error {
		if ev.Type != EventGameFull {
			return nil
		}
		info = &GameInfo{ID: ev.ID, White: ev.White, Black: ev.Black, InitialFEN: ev.InitialFEN, State: ev.CurrentState()}
		return errFound
	})
	if info != nil {
		return info, nil
	}
	if err == nil || errors.Is(err, errFound) {
		err = ErrNoGameInfo
	}
	return nil, err
}

// StreamGame delivers each event of the board stream to fn until the stream
// ends, ctx is done, or fn returns an error.
func (c *Client) StreamGame(ctx context.Context, gameID string, fn func(Event) error) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()
	c.prepare(req, fasthttp.MethodGet, "/api/board/game/"+gameID+"/stream")

	// no deadline: the stream stays open for the whole game
	if err := c.stream.Do(req, resp); err != nil {
		return fmt.Errorf("open game stream: %w", err)
	}
	if err := statusError(resp.StatusCode(), resp.Body()); err != nil {
		_ = resp.CloseBodyStream()
		return err
	}

	body := resp.BodyStream()
	if body == nil {
		return c.scanEvents(ctx, strings.NewReader(string(resp.Body())), fn)
	}
	stop := make(chan struct{})
	watcherDone := make(chan struct{})
	go func() {
		defer close(watcherDone)
		select {
		case <-ctx.Done():
			_ = resp.CloseBodyStream()
		case <-stop:
		}
	}()
	err := c.scanEvents(ctx, body, fn)
	close(stop)
	<-watcherDone
	_ = resp.CloseBodyStream()
	return err
}

func (c *Client) scanEvents(ctx context.Context, r io.Reader, fn func(Event) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), maxEventLine)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var ev Event
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			obslog.L().Warn("lichess_event_parse_error", zap.String("line", truncate(line, 256)), zap.Error(err))
			continue
		}
		if err := fn(ev); err != nil {
			return err
		}
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return sc.Err()
}

func (c *Client) prepare(req *fasthttp.Request, method, path string) {
	req.Header.SetMethod(method)
	req.SetRequestURI(c.baseURL + path)
	req.Header.Set("User-Agent", userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func (c *Client) doJSON(ctx context.Context, method, path string, out any, retry bool) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()
	c.prepare(req, method, path)
	req.Header.Set("Accept", "application/json")

	attempts := 1
	if retry && c.retryMax > 1 {
		attempts = c.retryMax
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx))
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
		} else if err := statusError(resp.StatusCode(), resp.Body()); err != nil {
			if !shouldRetryStatus(resp.StatusCode()) {
				return err
			}
			lastErr = err
		} else {
			if out != nil {
				if err := json.Unmarshal(resp.Body(), out); err != nil {
					return fmt.Errorf("decode response: %w", err)
				}
			}
			return nil
		}
		if attempt == attempts {
			break
		}
		if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
			return lastErr
		}
	}
	return lastErr
}

func statusError(status int, body []byte) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == fasthttp.StatusUnauthorized:
		return ErrUnauthorized
	case status == fasthttp.StatusNotFound:
		return ErrNotFound
	case status == fasthttp.StatusForbidden:
		return ErrNotParticipant
	}
	return fmt.Errorf("lichess api error: status=%d body=%s", status, truncate(string(body), 512))
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(c.defaultTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	return time.Duration(1<<uint(attempt-1)) * 100 * time.Millisecond
}

func shouldRetryStatus(code int) bool {
	switch code {
	case 429, 500, 502, 503, 504:
		return true
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
