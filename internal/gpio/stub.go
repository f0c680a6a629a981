//go:build !linux

package gpio

import "errors"

var errUnsupported = errors.New("gpio: not supported on this platform (requires Linux)")

// CdevPin is not available on non-Linux platforms.
type CdevPin struct{}

// NewCdevPin returns an error on non-Linux platforms.
func NewCdevPin(chipName string, offset int, opts ...Option) (*CdevPin, error) {
	return nil, errUnsupported
}

func (p *CdevPin) SetInput() error          { return errUnsupported }
func (p *CdevPin) Read() (Level, error)     { return Low, errUnsupported }
func (p *CdevPin) SetTrigger(Trigger) error { return errUnsupported }
func (p *CdevPin) Register(func()) error    { return errUnsupported }
func (p *CdevPin) Unregister() error        { return errUnsupported }
func (p *CdevPin) Enable() error            { return errUnsupported }
func (p *CdevPin) Disable() error           { return errUnsupported }
func (p *CdevPin) Close() error             { return nil }

var _ Pin = (*CdevPin)(nil)
