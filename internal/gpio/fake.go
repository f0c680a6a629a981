package gpio

import (
	"errors"
	"sync"
)

// ErrNotRegistered is returned by FakePin when unregistering without a handler.
var ErrNotRegistered = errors.New("gpio: no handler registered")

// FakePin is a test double that behaves like a level-interrupt pin.
// The raw level is set with Set; Fire plays the role of the interrupt
// controller and invokes the handler synchronously.
type FakePin struct {
	// Errors returned by the corresponding operations, if set.
	InputError      error
	ReadError       error
	TriggerError    error
	RegisterError   error
	UnregisterError error
	EnableError     error
	DisableError    error

	mu       sync.Mutex
	level    Level
	input    bool
	enabled  bool
	handler  func()
	trigger  Trigger
	triggers []Trigger
	reads    int
	fires    int
}

// NewFakePin creates a FakePin whose line currently reads level.
func NewFakePin(level Level) *FakePin {
	return &FakePin{level: level}
}

// Set changes the raw level seen by Read. It does not invoke the handler.
func (f *FakePin) Set(level Level) {
	f.mu.Lock()
	f.level = level
	f.mu.Unlock()
}

// SetInput marks the pin as an input.
func (f *FakePin) SetInput() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.InputError != nil {
		return f.InputError
	}
	f.input = true
	return nil
}

// Read returns the current raw level.
func (f *FakePin) Read() (Level, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if f.ReadError != nil {
		return Low, f.ReadError
	}
	return f.level, nil
}

// SetTrigger records the armed trigger.
func (f *FakePin) SetTrigger(t Trigger) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.TriggerError != nil {
		return f.TriggerError
	}
	f.trigger = t
	f.triggers = append(f.triggers, t)
	return nil
}

// Register installs handler.
func (f *FakePin) Register(handler func()) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.RegisterError != nil {
		return f.RegisterError
	}
	f.handler = handler
	return nil
}

// Unregister removes the handler.
func (f *FakePin) Unregister() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.UnregisterError != nil {
		return f.UnregisterError
	}
	if f.handler == nil {
		return ErrNotRegistered
	}
	f.handler = nil
	return nil
}

// Enable unmasks the interrupt.
func (f *FakePin) Enable() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.EnableError != nil {
		return f.EnableError
	}
	f.enabled = true
	return nil
}

// Disable masks the interrupt.
func (f *FakePin) Disable() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.DisableError != nil {
		return f.DisableError
	}
	f.enabled = false
	return nil
}

// Fire invokes the handler if the interrupt is enabled and a handler is
// registered, regardless of the armed trigger (a spurious interrupt).
// Returns whether the handler ran.
func (f *FakePin) Fire() bool {
	f.mu.Lock()
	h := f.handler
	ok := f.enabled && h != nil
	if ok {
		f.fires++
	}
	f.mu.Unlock()

	if ok {
		h()
	}
	return ok
}

// Pending reports whether the line currently sits at the armed level with
// the interrupt enabled, i.e. whether level hardware would be asserting.
func (f *FakePin) Pending() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.enabled && f.handler != nil && f.level == f.trigger.Level()
}

// Settle fires the handler for as long as the level stays asserted, up to
// max times. Returns the number of handler invocations.
func (f *FakePin) Settle(max int) int {
	n := 0
	for n < max && f.Pending() {
		f.Fire()
		n++
	}
	return n
}

// Armed returns the currently armed trigger.
func (f *FakePin) Armed() Trigger {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.trigger
}

// Triggers returns every trigger set so far, oldest first.
func (f *FakePin) Triggers() []Trigger {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Trigger(nil), f.triggers...)
}

// IsInput reports whether SetInput succeeded.
func (f *FakePin) IsInput() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.input
}

// IsEnabled reports whether the interrupt is enabled.
func (f *FakePin) IsEnabled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.enabled
}

// IsRegistered reports whether a handler is installed.
func (f *FakePin) IsRegistered() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.handler != nil
}

// Reads returns the number of Read calls.
func (f *FakePin) Reads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads
}

// Fires returns the number of handler invocations.
func (f *FakePin) Fires() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fires
}

var _ Pin = (*FakePin)(nil)
