// Package edge turns a pin with unreliable edge interrupts into debounced
// level-change callbacks.
//
// The controller arms a level interrupt on the complement of the last
// reported level. Whenever the interrupt fires, for whatever reason, the
// handler re-samples the pin, runs the sample through a debounce filter and,
// on a confirmed change, reports the new level and re-arms on its
// complement. A missed or spurious interrupt therefore never leaves the
// reported level stale: the line keeps asserting the armed level until the
// handler catches up.
package edge

import (
	"errors"
	"fmt"
	"log"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/sweeney/leveled-edge/internal/debounce"
	"github.com/sweeney/leveled-edge/internal/gpio"
)

// Notifier receives confirmed level changes.
//
// Notify runs in interrupt context: it must not block, wait on locks held
// by ordinary code, or do unbounded work. Calls for one controller never
// overlap and arrive in the order the changes happened.
type Notifier interface {
	Notify(level gpio.Level)
}

// NotifyFunc adapts a function to Notifier.
type NotifyFunc func(level gpio.Level)

// Notify calls f(level).
func (f NotifyFunc) Notify(level gpio.Level) { f(level) }

// Stats are running counters for a controller.
type Stats struct {
	Interrupts  uint64 // handler invocations
	Transitions uint64 // confirmed level changes reported
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock sets the time source used for debouncing. Defaults to time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger sets the logger for construction and teardown diagnostics.
// The handler never logs.
func WithLogger(l *log.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logf = l.Printf
		}
	}
}

// Controller owns one pin, its debounce filter and its notifier.
type Controller struct {
	pin    gpio.Pin
	filter debounce.Filter
	n      Notifier
	now    func() time.Time
	logf   func(format string, args ...any)

	// last is written only by the handler once construction completes.
	last gpio.Level

	// Mirrors for readers outside the handler.
	level       atomic.Bool
	trigger     atomic.Uint32
	interrupts  atomic.Uint64
	transitions atomic.Uint64

	closed   atomic.Bool
	inflight atomic.Int32
}

// New takes ownership of pin and starts watching it.
//
// The pin is read once; that level becomes the reported level without a
// callback, seeds the filter, and the interrupt is armed on its complement.
// On error nothing stays registered or enabled and n is never called.
// Input mode and an already programmed trigger are left in place; with the
// interrupt masked and no handler they have no effect, and the pin adapters
// only start edge detection in Enable.
func New(pin gpio.Pin, filter debounce.Filter, n Notifier, opts ...Option) (*Controller, error) {
	if pin == nil || filter == nil || n == nil {
		return nil, &ConfigError{Op: "args", Err: ErrNilArgument}
	}

	c := &Controller{
		pin:    pin,
		filter: filter,
		n:      n,
		now:    time.Now,
		logf:   log.Printf,
	}
	for _, opt := range opts {
		opt(c)
	}

	if err := pin.SetInput(); err != nil {
		return nil, &ConfigError{Op: "input", Err: err}
	}

	initial, err := pin.Read()
	if err != nil {
		return nil, &ConfigError{Op: "read", Err: err}
	}
	c.last = initial
	c.level.Store(bool(initial))
	filter.Seed(initial, c.now())

	t := gpio.TriggerFor(initial)
	if err := pin.SetTrigger(t); err != nil {
		return nil, &ConfigError{Op: "trigger", Err: err}
	}
	c.trigger.Store(uint32(t))

	if err := pin.Register(c.handle); err != nil {
		return nil, &ConfigError{Op: "register", Err: err}
	}

	if err := pin.Enable(); err != nil {
		c.rollback()
		return nil, &ConfigError{Op: "enable", Err: err}
	}

	return c, nil
}

// rollback undoes a partially successful construction.
func (c *Controller) rollback() {
	c.closed.Store(true)
	if err := c.pin.Disable(); err != nil {
		c.logf("edge: rollback disable: %v", err)
	}
	c.drain()
	if err := c.pin.Unregister(); err != nil {
		c.logf("edge: rollback unregister: %v", err)
	}
}

// handle is the interrupt handler. It trusts nothing about why it was
// called and always re-samples the pin.
func (c *Controller) handle() {
	c.inflight.Add(1)
	defer c.inflight.Add(-1)
	if c.closed.Load() {
		return
	}
	c.interrupts.Add(1)

	raw, err := c.pin.Read()
	if err != nil {
		panic(&ReadError{Err: err})
	}

	l, ok := c.filter.Observe(raw, c.now())
	if !ok || l == c.last {
		return
	}

	c.last = l
	c.level.Store(bool(l))
	c.transitions.Add(1)
	c.n.Notify(l)

	t := gpio.TriggerFor(l)
	if err := c.pin.SetTrigger(t); err != nil {
		panic(&TriggerError{Trigger: t, Err: err})
	}
	c.trigger.Store(uint32(t))
}

// drain waits for a handler that started before closed was set.
func (c *Controller) drain() {
	for c.inflight.Load() != 0 {
		runtime.Gosched()
	}
}

// Level returns the last reported level.
func (c *Controller) Level() gpio.Level {
	return gpio.LevelOf(c.level.Load())
}

// Trigger returns the currently armed trigger.
func (c *Controller) Trigger() gpio.Trigger {
	return gpio.Trigger(c.trigger.Load())
}

// Stats returns the running counters.
func (c *Controller) Stats() Stats {
	return Stats{
		Interrupts:  c.interrupts.Load(),
		Transitions: c.transitions.Load(),
	}
}

// Release stops the controller and hands the pin back to the caller.
// It disables the interrupt, waits for an in-flight handler, and removes
// the handler. No callback runs after Release returns. Errors from the pin
// are reported but the controller is stopped regardless.
func (c *Controller) Release() (gpio.Pin, error) {
	if !c.closed.CompareAndSwap(false, true) {
		return nil, ErrClosed
	}

	var errs []error
	if err := c.pin.Disable(); err != nil {
		errs = append(errs, fmt.Errorf("disable: %w", err))
	}
	c.drain()
	if err := c.pin.Unregister(); err != nil {
		errs = append(errs, fmt.Errorf("unregister: %w", err))
	}

	s := c.Stats()
	c.logf("edge: released at %s after %d interrupts, %d transitions", c.Level(), s.Interrupts, s.Transitions)

	return c.pin, errors.Join(errs...)
}

// Close is Release without returning the pin.
func (c *Controller) Close() error {
	_, err := c.Release()
	return err
}
