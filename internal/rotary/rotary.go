// Package rotary decodes a quadrature rotary encoder on top of a leveled-edge
// controller watching the CLK line.
package rotary

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/sweeney/leveled-edge/internal/debounce"
	"github.com/sweeney/leveled-edge/internal/edge"
	"github.com/sweeney/leveled-edge/internal/gpio"
)

// Direction is one detent of rotation.
type Direction string

const (
	Clockwise        Direction = "CW"
	CounterClockwise Direction = "CCW"
)

// Step is one decoded detent and the CLK level it was decoded at.
type Step struct {
	Direction Direction
	Clock     gpio.Level
}

// DefaultDebounce works for typical mechanical encoders.
const DefaultDebounce = 20 * time.Millisecond

// DefaultQueue is the number of directions buffered for the consumer.
const DefaultQueue = 100

type options struct {
	filter debounce.Filter
	queue  int
	clock  func() time.Time
	logger *log.Logger
}

// Option configures an Encoder.
type Option func(*options)

// WithFilter replaces the default 20ms window filter on CLK.
func WithFilter(f debounce.Filter) Option {
	return func(o *options) { o.filter = f }
}

// WithQueue sets the direction buffer size.
func WithQueue(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.queue = n
		}
	}
}

// WithClock sets the debounce time source.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.clock = now }
}

// WithLogger sets the logger passed to the CLK controller.
func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Encoder reports rotation directions.
type Encoder struct {
	dt    gpio.Pin
	out   chan Step
	drops atomic.Uint32
	ctrl  *edge.Controller
}

// New starts decoding. clk is owned by the encoder's controller; dt is only
// read from the CLK callback and must already be usable as an input.
func New(clk, dt gpio.Pin, opts ...Option) (*Encoder, error) {
	if dt == nil {
		return nil, &edge.ConfigError{Op: "args", Err: edge.ErrNilArgument}
	}
	o := options{queue: DefaultQueue}
	for _, opt := range opts {
		opt(&o)
	}
	if o.filter == nil {
		o.filter = debounce.NewWindow(DefaultDebounce)
	}

	if err := dt.SetInput(); err != nil {
		return nil, &edge.ConfigError{Op: "input", Err: fmt.Errorf("dt: %w", err)}
	}

	e := &Encoder{
		dt:  dt,
		out: make(chan Step, o.queue),
	}

	var copts []edge.Option
	if o.clock != nil {
		copts = append(copts, edge.WithClock(o.clock))
	}
	if o.logger != nil {
		copts = append(copts, edge.WithLogger(o.logger))
	}
	ctrl, err := edge.New(clk, o.filter, edge.NotifyFunc(e.onClock), copts...)
	if err != nil {
		return nil, err
	}
	e.ctrl = ctrl
	return e, nil
}

// onClock runs in interrupt context: one read and a non-blocking send.
func (e *Encoder) onClock(clk gpio.Level) {
	dt, err := e.dt.Read()
	if err != nil {
		panic(&edge.ReadError{Err: fmt.Errorf("dt: %w", err)})
	}

	d := CounterClockwise
	if clk != dt {
		d = Clockwise
	}

	select {
	case e.out <- Step{Direction: d, Clock: clk}:
	default:
		e.drops.Add(1)
	}
}

// Directions returns the channel of decoded steps.
func (e *Encoder) Directions() <-chan Step {
	return e.out
}

// Wait blocks until the next step or until ctx is done.
func (e *Encoder) Wait(ctx context.Context) (Step, error) {
	select {
	case s := <-e.out:
		return s, nil
	case <-ctx.Done():
		return Step{}, ctx.Err()
	}
}

// Drops returns the number of directions lost to a full buffer.
func (e *Encoder) Drops() uint32 {
	return e.drops.Load()
}

// Controller exposes the CLK controller for status reporting.
func (e *Encoder) Controller() *edge.Controller {
	return e.ctrl
}

// Close stops decoding. Already buffered directions remain readable.
func (e *Encoder) Close() error {
	return e.ctrl.Close()
}
