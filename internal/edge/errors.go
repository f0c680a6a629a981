package edge

import (
	"errors"
	"fmt"

	"github.com/sweeney/leveled-edge/internal/gpio"
)

var (
	// ErrConfig matches every *ConfigError with errors.Is.
	ErrConfig = errors.New("edge: configuration failed")

	// ErrNilArgument is wrapped by New when a required argument is nil.
	ErrNilArgument = errors.New("edge: nil argument")

	// ErrClosed is returned when tearing down a controller twice.
	ErrClosed = errors.New("edge: controller closed")
)

// ConfigError reports a construction step that failed at the platform
// boundary. Nothing acquired before the failure is left behind.
type ConfigError struct {
	Op  string // "input", "read", "trigger", "register", "enable", "args"
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("edge: configure %s: %v", e.Op, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Is makes every ConfigError match ErrConfig.
func (e *ConfigError) Is(target error) bool { return target == ErrConfig }

// ReadError is the panic value raised when the handler cannot sample the
// line. A handler cannot retry or return an error, and skipping it would
// leave the armed trigger out of step with the reported level.
type ReadError struct {
	Err error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("edge: read in handler: %v", e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// TriggerError is the panic value raised when the handler cannot re-arm
// the trigger after reporting a new level.
type TriggerError struct {
	Trigger gpio.Trigger
	Err     error
}

func (e *TriggerError) Error() string {
	return fmt.Sprintf("edge: arm %s in handler: %v", e.Trigger, e.Err)
}

func (e *TriggerError) Unwrap() error { return e.Err }
