package gpio

import (
	"errors"
	"fmt"
	"sync"
	"time"

	pgpio "periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// PeriphPin adapts a periph.io pin. periph exposes edges through a blocking
// WaitForEdge, so a watcher goroutine turns each edge into a dispatcher kick
// and each poll timeout into a level check; the dispatcher supplies the
// level semantics.
type PeriphPin struct {
	pin  pgpio.PinIO
	pull pgpio.Pull
	poll time.Duration
	d    *dispatcher

	mu       sync.Mutex
	watching bool
	stop     chan struct{}
	done     chan struct{}
}

// OpenPeriphPin initialises the periph host drivers and looks up name
// (e.g. "GPIO17") in the pin registry.
func OpenPeriphPin(name string, opts ...Option) (*PeriphPin, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("periph: no pin named %q", name)
	}
	return NewPeriphPin(p, opts...), nil
}

// NewPeriphPin wraps an already resolved periph pin.
func NewPeriphPin(p pgpio.PinIO, opts ...Option) *PeriphPin {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	pp := &PeriphPin{
		pin:  p,
		pull: periphPull(o.bias),
		poll: o.retrigger,
	}
	pp.d = newDispatcher(pp.Read, o.retrigger)
	return pp
}

func periphPull(b Bias) pgpio.Pull {
	switch b {
	case BiasPullUp:
		return pgpio.PullUp
	case BiasPullDown:
		return pgpio.PullDown
	default:
		return pgpio.Float
	}
}

// Name returns the periph pin name.
func (p *PeriphPin) Name() string {
	return p.pin.Name()
}

// SetInput configures the pin as an input watching both edges. Which of
// them counts as an interrupt is decided by the armed trigger.
func (p *PeriphPin) SetInput() error {
	if err := p.pin.In(p.pull, pgpio.BothEdges); err != nil {
		return fmt.Errorf("set %s input: %w", p.pin.Name(), err)
	}
	return nil
}

// Read returns the current raw level.
func (p *PeriphPin) Read() (Level, error) {
	return LevelOf(p.pin.Read() == pgpio.High), nil
}

// SetTrigger arms the pin for t.
func (p *PeriphPin) SetTrigger(t Trigger) error {
	p.d.setTrigger(t)
	return nil
}

// Register installs handler.
func (p *PeriphPin) Register(handler func()) error {
	if handler == nil {
		return errors.New("gpio: nil handler")
	}
	if p.d.registered() {
		return fmt.Errorf("%s: handler already registered", p.pin.Name())
	}
	p.d.setHandler(handler)
	return nil
}

// Unregister removes the handler.
func (p *PeriphPin) Unregister() error {
	if !p.d.registered() {
		return ErrNotRegistered
	}
	p.d.setHandler(nil)
	return nil
}

// Enable starts the edge watcher and unmasks the handler.
func (p *PeriphPin) Enable() error {
	p.mu.Lock()
	if !p.watching {
		p.watching = true
		p.stop = make(chan struct{})
		p.done = make(chan struct{})
		go p.watch(p.stop, p.done)
	}
	p.mu.Unlock()

	p.d.enable()
	return nil
}

func (p *PeriphPin) watch(stop, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-stop:
			return
		default:
		}
		// A held level is re-checked every poll interval even if its edge
		// was never reported.
		if p.pin.WaitForEdge(p.poll) {
			p.d.post()
		} else {
			p.d.poll()
		}
	}
}

// Disable masks the handler, waits for a running invocation and stops the
// edge watcher.
func (p *PeriphPin) Disable() error {
	p.d.disable()

	p.mu.Lock()
	if p.watching {
		p.watching = false
		close(p.stop)
		done := p.done
		p.mu.Unlock()
		<-done
		return nil
	}
	p.mu.Unlock()
	return nil
}

// Close stops the watcher and dispatcher and turns edge detection off.
func (p *PeriphPin) Close() error {
	err := p.Disable()
	p.d.close()
	if inErr := p.pin.In(p.pull, pgpio.NoEdge); inErr != nil {
		err = errors.Join(err, fmt.Errorf("reset %s: %w", p.pin.Name(), inErr))
	}
	return err
}

var _ Pin = (*PeriphPin)(nil)
