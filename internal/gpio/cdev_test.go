//go:build linux

package gpio

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// The options handed to Reconfigure must satisfy both interfaces.
var (
	_ gpiocdev.LineConfigOption = cdevBias(BiasPullUp)
	_ gpiocdev.LineReqOption    = cdevBias(BiasPullUp)
	_ gpiocdev.LineConfigOption = gpiocdev.WithBothEdges
)

func TestCdevBias(t *testing.T) {
	tests := []struct {
		bias Bias
		want gpiocdev.LineBias
	}{
		{BiasPullUp, gpiocdev.WithPullUp},
		{BiasPullDown, gpiocdev.WithPullDown},
		{BiasNone, gpiocdev.WithBiasDisabled},
	}
	for _, tt := range tests {
		if got := cdevBias(tt.bias); got != tt.want {
			t.Errorf("cdevBias(%s): got %v, want %v", tt.bias, got, tt.want)
		}
	}
}

// A falling edge reaches a HIGH_LEVEL handler: the handler has to see the
// line leave the armed level as well as enter it.
func TestCdevPinEventRunsHandlerOnEitherEdge(t *testing.T) {
	ln := &line{l: Low}
	p := &CdevPin{offset: 17, d: newDispatcher(ln.read, time.Millisecond)}
	defer p.d.close()

	var highs, lows atomic.Int32
	p.SetTrigger(TriggerHigh)
	err := p.Register(func() {
		if l, _ := ln.read(); l == High {
			highs.Add(1)
		} else {
			lows.Add(1)
		}
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	p.d.enable()

	ln.set(High)
	p.onEvent(gpiocdev.LineEvent{Offset: 17, Type: gpiocdev.LineEventRisingEdge})
	waitFor(t, "rising edge", func() bool { return highs.Load() >= 1 })

	ln.set(Low)
	p.onEvent(gpiocdev.LineEvent{Offset: 17, Type: gpiocdev.LineEventFallingEdge})
	waitFor(t, "falling edge", func() bool { return lows.Load() == 1 })

	if err := p.Register(func() {}); err == nil {
		t.Error("expected second Register to fail")
	}
	if err := p.Unregister(); err != nil {
		t.Errorf("Unregister: %v", err)
	}
}
