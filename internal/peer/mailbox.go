package peer

import (
	"context"
	"sync"
)

// Inbound is one received move or the failure that ended the stream.
type Inbound struct {
	Move string
	Err  error
}

// Mailbox is a FIFO of inbound moves. Producers never block.
type Mailbox struct {
	mu     sync.Mutex
	items  []Inbound
	notify chan struct{}
	done   chan struct{}
	once   sync.Once
}

func NewMailbox() *Mailbox {
	return &Mailbox{
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

func (m *Mailbox) Push(in Inbound) {
	m.mu.Lock()
	m.items = append(m.items, in)
	m.mu.Unlock()
	select {
	case m.notify <- struct{}{}:
	default:
	}
}

func (m *Mailbox) TryPop() (Inbound, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.items) == 0 {
		return Inbound{}, false
	}
	in := m.items[0]
	m.items[0] = Inbound{}
	m.items = m.items[1:]
	return in, true
}

func (m *Mailbox) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// Receive blocks until an item is available. Items queued before Close are
// still delivered.
func (m *Mailbox) Receive(ctx context.Context) (Inbound, error) {
	for {
		if in, ok := m.TryPop(); ok {
			return in, nil
		}
		select {
		case <-m.notify:
		case <-m.done:
			if in, ok := m.TryPop(); ok {
				return in, nil
			}
			return Inbound{}, ErrClosed
		case <-ctx.Done():
			return Inbound{}, ctx.Err()
		}
	}
}

func (m *Mailbox) Close() {
	m.once.Do(func() { close(m.done) })
}
