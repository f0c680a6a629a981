// Package debounce contains the debounce policies used to confirm raw line
// samples. This package has NO hardware dependencies; time is always
// injected through time.Time parameters.
//
// Filters are single-owner state machines. They do not allocate or block,
// so they are safe to call from interrupt handlers.
package debounce

import (
	"time"

	"github.com/sweeney/leveled-edge/internal/gpio"
)

// Filter decides whether a raw sample has settled into a new stable level.
type Filter interface {
	// Seed records level as already confirmed at now. Nothing is emitted
	// for a seeded level.
	Seed(level gpio.Level, now time.Time)

	// Observe feeds a raw sample. It returns (level, true) exactly once
	// per confirmed stable run, and (_, false) otherwise.
	Observe(raw gpio.Level, now time.Time) (gpio.Level, bool)
}

// Window confirms a level once the line has stayed at it for at least the
// window duration. Every raw change restarts the settle timer.
type Window struct {
	window     time.Duration
	last       gpio.Level
	lastChange time.Time
	confirmed  bool
}

// NewWindow creates a Window filter. A zero window confirms the first
// sample of every new level; negative windows are treated as zero.
func NewWindow(window time.Duration) *Window {
	if window < 0 {
		window = 0
	}
	return &Window{window: window}
}

// Seed records level as the current, already-confirmed stable run.
func (w *Window) Seed(level gpio.Level, now time.Time) {
	w.last = level
	w.lastChange = now
	w.confirmed = true
}

// Observe processes one raw sample.
func (w *Window) Observe(raw gpio.Level, now time.Time) (gpio.Level, bool) {
	if raw != w.last {
		// Still bouncing: restart the settle timer.
		w.last = raw
		w.lastChange = now
		w.confirmed = false
	}

	if w.confirmed {
		return raw, false
	}
	if now.Sub(w.lastChange) < w.window {
		return raw, false
	}

	w.confirmed = true
	return raw, true
}

// None confirms every change immediately.
type None struct {
	last gpio.Level
}

// NewNone creates a pass-through filter.
func NewNone() *None {
	return &None{}
}

// Seed records level as confirmed.
func (n *None) Seed(level gpio.Level, _ time.Time) {
	n.last = level
}

// Observe confirms raw if it differs from the previous sample.
func (n *None) Observe(raw gpio.Level, _ time.Time) (gpio.Level, bool) {
	if raw == n.last {
		return raw, false
	}
	n.last = raw
	return raw, true
}

// Holdoff accepts a change at most once per window, measured from the last
// accepted change. Samples inside the holdoff are ignored rather than
// recorded, so the first sample after it expires is judged on its own.
type Holdoff struct {
	window       time.Duration
	last         gpio.Level
	lastAccepted time.Time
}

// NewHoldoff creates a Holdoff filter. Negative windows are treated as zero.
func NewHoldoff(window time.Duration) *Holdoff {
	if window < 0 {
		window = 0
	}
	return &Holdoff{window: window}
}

// Seed records level as accepted at now.
func (h *Holdoff) Seed(level gpio.Level, now time.Time) {
	h.last = level
	h.lastAccepted = now
}

// Observe accepts raw when it differs from the last accepted level and the
// holdoff has expired.
func (h *Holdoff) Observe(raw gpio.Level, now time.Time) (gpio.Level, bool) {
	if raw == h.last {
		return raw, false
	}
	if now.Sub(h.lastAccepted) < h.window {
		return raw, false
	}
	h.last = raw
	h.lastAccepted = now
	return raw, true
}

var (
	_ Filter = (*Window)(nil)
	_ Filter = (*None)(nil)
	_ Filter = (*Holdoff)(nil)
)
