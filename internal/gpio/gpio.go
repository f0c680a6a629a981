// Package gpio defines the pin capability used by the leveled-edge controller.
// The cdev implementation uses the Linux GPIO character device.
// The periph implementation uses periph.io drivers.
// The fake implementation allows testing without hardware.
package gpio

import "time"

// Level is the logical value of a line.
type Level bool

const (
	Low  Level = false
	High Level = true
)

// LevelOf converts a raw boolean reading to a Level.
func LevelOf(b bool) Level {
	return Level(b)
}

// Not returns the complement of l.
func (l Level) Not() Level {
	return !l
}

func (l Level) String() string {
	if l {
		return "HIGH"
	}
	return "LOW"
}

// Trigger is the level a line's interrupt is armed to fire on.
type Trigger uint8

const (
	TriggerLow Trigger = iota
	TriggerHigh
)

// TriggerFor returns the trigger that fires on departure from l.
func TriggerFor(l Level) Trigger {
	if l == High {
		return TriggerLow
	}
	return TriggerHigh
}

// Level returns the line level the trigger fires on.
func (t Trigger) Level() Level {
	return t == TriggerHigh
}

func (t Trigger) String() string {
	if t == TriggerHigh {
		return "HIGH_LEVEL"
	}
	return "LOW_LEVEL"
}

// Pin is the capability set the controller needs from a platform pin.
//
// Handlers registered with Register take no arguments: implementations
// must not pass any platform payload through, and callers must not rely on
// one. At most one handler invocation runs at a time for a given pin.
type Pin interface {
	// SetInput puts the line into input mode.
	SetInput() error

	// Read returns the current raw level without blocking.
	Read() (Level, error)

	// SetTrigger arms the level interrupt for t.
	SetTrigger(t Trigger) error

	// Register installs the interrupt handler.
	Register(handler func()) error

	// Unregister removes the interrupt handler.
	Unregister() error

	// Enable unmasks the interrupt line.
	Enable() error

	// Disable masks the interrupt line. No new handler invocation starts
	// after Disable returns.
	Disable() error
}

// Bias is the pull configuration applied to an input line.
type Bias uint8

const (
	BiasNone Bias = iota
	BiasPullUp
	BiasPullDown
)

// ParseBias converts "up", "down" or "none" to a Bias.
func ParseBias(s string) Bias {
	switch s {
	case "up", "UP", "pullup":
		return BiasPullUp
	case "down", "DOWN", "pulldown":
		return BiasPullDown
	default:
		return BiasNone
	}
}

func (b Bias) String() string {
	switch b {
	case BiasPullUp:
		return "up"
	case BiasPullDown:
		return "down"
	default:
		return "none"
	}
}

// DefaultRetrigger is how often an asserted level re-raises the handler
// on drivers that only deliver edges.
const DefaultRetrigger = time.Millisecond

type options struct {
	bias      Bias
	retrigger time.Duration
	consumer  string
}

func defaultOptions() options {
	return options{
		bias:      BiasPullDown,
		retrigger: DefaultRetrigger,
		consumer:  "leveled-edge",
	}
}

// Option configures a hardware pin.
type Option func(*options)

// WithBias sets the input bias. The default is pull-down.
func WithBias(b Bias) Option {
	return func(o *options) { o.bias = b }
}

// WithRetrigger sets the interval at which a still-asserted level
// re-invokes the handler. Values <= 0 select DefaultRetrigger.
func WithRetrigger(d time.Duration) Option {
	return func(o *options) {
		if d <= 0 {
			d = DefaultRetrigger
		}
		o.retrigger = d
	}
}

// WithConsumer sets the consumer label reported to the kernel (cdev only).
func WithConsumer(name string) Option {
	return func(o *options) { o.consumer = name }
}
