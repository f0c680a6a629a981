//go:build linux

package gpio

import (
	"errors"
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// CdevPin drives a single line through the Linux GPIO character device.
//
// The kernel only reports edges, so level interrupts are emulated: while
// enabled the line is watched for both edges, every edge runs the handler,
// and the handler is re-raised for as long as the line stays at the armed
// level. Kernel edge detection is off whenever the pin is disabled.
type CdevPin struct {
	chip   *gpiocdev.Chip
	line   *gpiocdev.Line
	offset int
	bias   Bias
	d      *dispatcher
}

// NewCdevPin requests line offset on chipName (e.g. "gpiochip0") as an input.
func NewCdevPin(chipName string, offset int, opts ...Option) (*CdevPin, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	chip, err := gpiocdev.NewChip(chipName, gpiocdev.WithConsumer(o.consumer))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	p := &CdevPin{chip: chip, offset: offset, bias: o.bias}
	p.d = newDispatcher(p.Read, o.retrigger)

	line, err := chip.RequestLine(offset,
		gpiocdev.AsInput,
		cdevBias(o.bias),
		gpiocdev.WithoutEdges,
		gpiocdev.WithEventHandler(p.onEvent))
	if err != nil {
		p.d.close()
		chip.Close()
		return nil, fmt.Errorf("request line %d: %w", offset, err)
	}
	p.line = line

	return p, nil
}

func cdevBias(b Bias) gpiocdev.LineBias {
	switch b {
	case BiasPullUp:
		return gpiocdev.WithPullUp
	case BiasPullDown:
		return gpiocdev.WithPullDown
	default:
		return gpiocdev.WithBiasDisabled
	}
}

// onEvent runs on the gpiocdev watcher goroutine. The event payload is
// deliberately ignored; the handler always re-samples the line.
func (p *CdevPin) onEvent(gpiocdev.LineEvent) {
	p.d.post()
}

// SetInput reconfigures the line as an input with the configured bias.
func (p *CdevPin) SetInput() error {
	if err := p.line.Reconfigure(gpiocdev.AsInput, cdevBias(p.bias)); err != nil {
		return fmt.Errorf("set line %d input: %w", p.offset, err)
	}
	return nil
}

// Read returns the current raw level of the line.
func (p *CdevPin) Read() (Level, error) {
	v, err := p.line.Value()
	if err != nil {
		return Low, fmt.Errorf("read line %d: %w", p.offset, err)
	}
	return LevelOf(v != 0), nil
}

// SetTrigger arms the line for t. Both edges stay watched; t only decides
// when the level counts as asserted.
func (p *CdevPin) SetTrigger(t Trigger) error {
	p.d.setTrigger(t)
	return nil
}

// Register installs handler. Only one handler may be installed.
func (p *CdevPin) Register(handler func()) error {
	if handler == nil {
		return errors.New("gpio: nil handler")
	}
	if p.d.registered() {
		return fmt.Errorf("line %d: handler already registered", p.offset)
	}
	p.d.setHandler(handler)
	return nil
}

// Unregister removes the handler.
func (p *CdevPin) Unregister() error {
	if !p.d.registered() {
		return ErrNotRegistered
	}
	p.d.setHandler(nil)
	return nil
}

// Enable starts delivering interrupts. If the line already sits at the
// armed level the handler runs straight away.
func (p *CdevPin) Enable() error {
	if err := p.line.Reconfigure(gpiocdev.WithBothEdges); err != nil {
		return fmt.Errorf("enable line %d: %w", p.offset, err)
	}
	p.d.enable()
	return nil
}

// Disable stops delivering interrupts and waits for a running handler.
func (p *CdevPin) Disable() error {
	p.d.disable()
	if err := p.line.Reconfigure(gpiocdev.WithoutEdges); err != nil {
		return fmt.Errorf("disable line %d: %w", p.offset, err)
	}
	return nil
}

// Close releases GPIO resources.
// Reconfigures the line to input with pull-down (matching Pi boot defaults)
// before closing to leave a clean state for shutdown/reboot.
func (p *CdevPin) Close() error {
	var errs []error

	p.d.close()
	if p.line != nil {
		if err := p.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown, gpiocdev.WithoutEdges); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure line %d: %w", p.offset, err))
		}
		if err := p.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close line %d: %w", p.offset, err))
		}
	}
	if p.chip != nil {
		if err := p.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	return errors.Join(errs...)
}

var _ Pin = (*CdevPin)(nil)
