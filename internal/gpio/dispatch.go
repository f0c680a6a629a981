package gpio

import (
	"sync"
	"time"
)

// dispatcher gives level-interrupt semantics to drivers that only report
// edges. A single goroutine invokes the handler once for every edge, in
// either direction, so the handler sees the line leave the armed level as
// well as enter it. Level checks (poll timeouts, enable, retrigger ticks)
// only invoke it while the line sits at the armed level, and it keeps
// being re-invoked every retrigger interval for as long as the level stays
// asserted. Kicks of each kind coalesce. Handler invocations never overlap.
type dispatcher struct {
	read      func() (Level, error)
	retrigger time.Duration

	edge  chan struct{}
	check chan struct{}
	stop  chan struct{}
	done  chan struct{}

	// run is held for the duration of a handler invocation.
	run sync.Mutex

	mu      sync.Mutex
	handler func()
	enabled bool
	trigger Trigger
	closed  bool
}

func newDispatcher(read func() (Level, error), retrigger time.Duration) *dispatcher {
	if retrigger <= 0 {
		retrigger = DefaultRetrigger
	}
	d := &dispatcher{
		read:      read,
		retrigger: retrigger,
		edge:      make(chan struct{}, 1),
		check:     make(chan struct{}, 1),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	go d.loop()
	return d
}

// post reports an edge. The handler runs whatever the line reads by then.
// It never blocks, so it is safe to call from driver callbacks.
func (d *dispatcher) post() {
	kick(d.edge)
}

// poll asks for a level check: the handler runs only if the line is at the
// armed level.
func (d *dispatcher) poll() {
	kick(d.check)
}

func kick(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

func (d *dispatcher) loop() {
	defer close(d.done)

	var tick <-chan time.Time
	for {
		edge := false
		select {
		case <-d.stop:
			return
		case <-d.edge:
			edge = true
		case <-d.check:
		case <-tick:
		}
		tick = nil

		if !edge && !d.asserted() {
			continue
		}

		d.run.Lock()
		d.mu.Lock()
		h, on := d.handler, d.enabled
		d.mu.Unlock()
		if on && h != nil {
			h()
		}
		d.run.Unlock()

		if on && d.asserted() {
			tick = time.After(d.retrigger)
		}
	}
}

// asserted reports whether the interrupt would be raised right now.
// A failed read counts as asserted so the handler observes the error.
func (d *dispatcher) asserted() bool {
	d.mu.Lock()
	on, t := d.enabled && d.handler != nil, d.trigger
	d.mu.Unlock()
	if !on {
		return false
	}
	l, err := d.read()
	if err != nil {
		return true
	}
	return l == t.Level()
}

func (d *dispatcher) setHandler(h func()) {
	d.mu.Lock()
	d.handler = h
	d.mu.Unlock()
}

func (d *dispatcher) registered() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.handler != nil
}

func (d *dispatcher) setTrigger(t Trigger) {
	d.mu.Lock()
	d.trigger = t
	d.mu.Unlock()
}

func (d *dispatcher) armed() Trigger {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.trigger
}

func (d *dispatcher) enable() {
	d.mu.Lock()
	d.enabled = true
	d.mu.Unlock()
	d.poll()
}

// disable masks the handler and waits for an in-flight invocation to
// return. It must not be called from inside the handler.
func (d *dispatcher) disable() {
	d.mu.Lock()
	d.enabled = false
	d.mu.Unlock()

	// Wait out any invocation that read enabled before the store above.
	d.run.Lock()
	d.run.Unlock()
}

func (d *dispatcher) close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.enabled = false
	d.mu.Unlock()

	close(d.stop)
	<-d.done
}
