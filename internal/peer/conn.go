package peer

import (
	"bufio"
	"fmt"
	"net"
	"sync"
	"time"
)

const (
	outboundBuffer = 32
	writeTimeout   = 10 * time.Second
)

// lineConn frames a stream connection into lines. Writes go through a
// dedicated goroutine so callers never block on socket I/O.
type lineConn struct {
	c   net.Conn
	r   *bufio.Reader
	out chan string

	done      chan struct{}
	closeOnce sync.Once
	drain     chan struct{}
	drainOnce sync.Once
}

func newLineConn(c net.Conn) *lineConn {
	lc := &lineConn{
		c:     c,
		r:     bufio.NewReaderSize(c, 2*MaxLineLen),
		out:   make(chan string, outboundBuffer),
		done:  make(chan struct{}),
		drain: make(chan struct{}),
	}
	go lc.writeLoop()
	return lc
}

func (lc *lineConn) writeLoop() {
	defer lc.Close()
	for {
		select {
		case <-lc.done:
			return
		case line := <-lc.out:
			if err := lc.write(line); err != nil {
				return
			}
		case <-lc.drain:
			for {
				select {
				case line := <-lc.out:
					if err := lc.write(line); err != nil {
						return
					}
				default:
					return
				}
			}
		}
	}
}

func (lc *lineConn) write(line string) error {
	_ = lc.c.SetWriteDeadline(time.Now().Add(writeTimeout))
	_, err := lc.c.Write([]byte(line + "\n"))
	return err
}

// Send queues one line. It fails once the connection is closed.
func (lc *lineConn) Send(line string) error {
	if len(line) > MaxLineLen {
		return fmt.Errorf("%w: outbound line exceeds %d bytes", ErrProtocol, MaxLineLen)
	}
	select {
	case <-lc.done:
		return ErrClosed
	case <-lc.drain:
		return ErrClosed
	default:
	}
	select {
	case lc.out <- line:
		return nil
	case <-lc.done:
		return ErrClosed
	}
}

// ReadLine must only be called from one goroutine.
func (lc *lineConn) ReadLine() (string, error) {
	line, err := readLine(lc.r)
	if err != nil {
		return "", err
	}
	return line, nil
}

// Shutdown closes the connection after queued lines are written.
func (lc *lineConn) Shutdown() {
	lc.drainOnce.Do(func() { close(lc.drain) })
}

func (lc *lineConn) Close() error {
	var err error
	lc.closeOnce.Do(func() {
		close(lc.done)
		err = lc.c.Close()
	})
	return err
}

func (lc *lineConn) RemoteAddr() string {
	if a := lc.c.RemoteAddr(); a != nil {
		return a.String()
	}
	return ""
}
