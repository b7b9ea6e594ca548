package peer

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/park285/chess-tui-sync/internal/chess"
)

const (
	DefaultAddr     = "127.0.0.1:2308"
	MaxLineLen      = 256
	StartLine       = "s"
	EndedLine       = "ended"
	defaultAttempts = 5
)

var (
	// ErrTransport marks a read or write failure on the connection.
	ErrTransport = errf("peer transport failure")
	// ErrProtocol marks a line that does not parse; it is dropped.
	ErrProtocol = errf("peer protocol violation")
	// ErrGameEnded is delivered when the other side sends "ended".
	ErrGameEnded = errf("peer ended the game")
	ErrClosed    = errf("peer connection closed")
)

type staticErr string

func (e staticErr) Error() string { return string(e) }
func errf(s string) error         { return staticErr(s) }

type Kind int

const (
	KindMove Kind = iota
	KindColor
	KindStart
	KindEnded
)

type Message struct {
	Kind  Kind
	Move  string
	Color chess.Color
}

// ParseLine classifies one received line.
func ParseLine(line string) (Message, error) {
	line = strings.TrimSpace(line)
	switch line {
	case StartLine:
		return Message{Kind: KindStart}, nil
	case EndedLine:
		return Message{Kind: KindEnded}, nil
	case "w", "b":
		c, _ := chess.ParseColor(line)
		return Message{Kind: KindColor, Color: c}, nil
	}
	req, err := chess.ParseMoveText(line)
	if err != nil {
		return Message{}, fmt.Errorf("%w: %q: %v", ErrProtocol, line, err)
	}
	return Message{Kind: KindMove, Move: chess.FormatMoveText(req.From, req.To, req.Promotion)}, nil
}

// readLine reads one newline-terminated line of at most MaxLineLen bytes.
// Longer lines are consumed and reported as ErrProtocol.
func readLine(r *bufio.Reader) (string, error) {
	tooLong := false
	for {
		chunk, err := r.ReadSlice('\n')
		if errors.Is(err, bufio.ErrBufferFull) {
			tooLong = true
			continue
		}
		if err != nil {
			return "", err
		}
		if tooLong || len(chunk) > MaxLineLen+1 {
			return "", fmt.Errorf("%w: line exceeds %d bytes", ErrProtocol, MaxLineLen)
		}
		return strings.TrimRight(string(chunk), "\r\n"), nil
	}
}
