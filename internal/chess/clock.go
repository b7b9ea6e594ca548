package chess

import (
	"fmt"
	"time"
)

// Clock is a two-sided chess clock with an optional Fischer increment.
// It is not safe for concurrent use; Game serializes access.
type Clock struct {
	remaining [2]time.Duration
	increment time.Duration
	active    Color
	running   bool
	since     time.Time
	now       func() time.Time
}

func NewClock(base, increment time.Duration) *Clock {
	return &Clock{remaining: [2]time.Duration{base, base}, increment: increment, now: time.Now}
}

// Start runs side's clock. A running clock is stopped first.
func (c *Clock) Start(side Color) {
	c.Stop()
	c.active = side
	c.running = true
	c.since = c.now()
}

// Stop charges the elapsed time to the running side.
func (c *Clock) Stop() {
	if !c.running {
		return
	}
	c.remaining[c.active] = c.Remaining(c.active)
	c.running = false
}

// Press ends side's turn: its elapsed time is charged, the increment added
// unless it already flagged, and the opponent's clock starts.
func (c *Clock) Press(side Color) {
	if c.running && c.active == side {
		c.Stop()
	}
	if c.remaining[side] > 0 {
		c.remaining[side] += c.increment
	}
	c.Start(side.Opposite())
}

func (c *Clock) Running() (Color, bool) { return c.active, c.running }

// Remaining is side's time left, counting the running turn. It never goes negative.
func (c *Clock) Remaining(side Color) time.Duration {
	left := c.remaining[side]
	if c.running && c.active == side {
		left -= c.now().Sub(c.since)
	}
	if left < 0 {
		return 0
	}
	return left
}

// Flagged reports the first side out of time, White checked first.
func (c *Clock) Flagged() (Color, bool) {
	for _, side := range [2]Color{White, Black} {
		if c.Remaining(side) == 0 {
			return side, true
		}
	}
	return White, false
}

// FormatClock renders MM:SS, or SS.mmm under one minute.
func FormatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	if d >= time.Minute {
		return fmt.Sprintf("%02d:%02d", int(d/time.Minute), int(d%time.Minute/time.Second))
	}
	return fmt.Sprintf("%02d.%03d", int(d/time.Second), int(d%time.Second/time.Millisecond))
}
