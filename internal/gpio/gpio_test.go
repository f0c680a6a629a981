package gpio

import (
	"errors"
	"testing"
)

func TestLevelNot(t *testing.T) {
	if High.Not() != Low {
		t.Error("High.Not() should be Low")
	}
	if Low.Not() != High {
		t.Error("Low.Not() should be High")
	}
}

func TestLevelString(t *testing.T) {
	if High.String() != "HIGH" {
		t.Errorf("got %q, want HIGH", High.String())
	}
	if Low.String() != "LOW" {
		t.Errorf("got %q, want LOW", Low.String())
	}
}

func TestTriggerForIsComplement(t *testing.T) {
	for _, l := range []Level{Low, High} {
		tr := TriggerFor(l)
		if tr.Level() != l.Not() {
			t.Errorf("TriggerFor(%s) fires on %s, want %s", l, tr.Level(), l.Not())
		}
	}
	if TriggerFor(High) != TriggerLow {
		t.Errorf("TriggerFor(HIGH): got %s, want LOW_LEVEL", TriggerFor(High))
	}
	if TriggerFor(Low) != TriggerHigh {
		t.Errorf("TriggerFor(LOW): got %s, want HIGH_LEVEL", TriggerFor(Low))
	}
}

func TestParseBias(t *testing.T) {
	tests := []struct {
		in   string
		want Bias
	}{
		{"up", BiasPullUp},
		{"pullup", BiasPullUp},
		{"DOWN", BiasPullDown},
		{"none", BiasNone},
		{"", BiasNone},
		{"bogus", BiasNone},
	}
	for _, tt := range tests {
		if got := ParseBias(tt.in); got != tt.want {
			t.Errorf("ParseBias(%q): got %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestFakePinRead(t *testing.T) {
	f := NewFakePin(High)

	l, err := f.Read()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l != High {
		t.Errorf("expected HIGH, got %s", l)
	}

	f.Set(Low)
	l, _ = f.Read()
	if l != Low {
		t.Errorf("expected LOW after Set, got %s", l)
	}
	if f.Reads() != 2 {
		t.Errorf("expected 2 reads, got %d", f.Reads())
	}
}

func TestFakePinReadError(t *testing.T) {
	f := NewFakePin(Low)
	f.ReadError = errors.New("bus fault")

	if _, err := f.Read(); err == nil {
		t.Error("expected read error")
	}
}

func TestFakePinFireRequiresEnabledHandler(t *testing.T) {
	f := NewFakePin(Low)
	calls := 0

	if f.Fire() {
		t.Error("Fire should not run without a handler")
	}

	f.Register(func() { calls++ })
	if f.Fire() {
		t.Error("Fire should not run while disabled")
	}

	f.Enable()
	if !f.Fire() {
		t.Error("Fire should run when enabled and registered")
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}

	f.Disable()
	f.Fire()
	if calls != 1 {
		t.Errorf("expected no call after Disable, got %d", calls)
	}
}

func TestFakePinPendingFollowsArmedLevel(t *testing.T) {
	f := NewFakePin(Low)
	f.SetTrigger(TriggerHigh)
	f.Register(func() {})
	f.Enable()

	if f.Pending() {
		t.Error("LOW line should not assert a HIGH_LEVEL trigger")
	}
	f.Set(High)
	if !f.Pending() {
		t.Error("HIGH line should assert a HIGH_LEVEL trigger")
	}
}

func TestFakePinSettleStopsWhenDeasserted(t *testing.T) {
	f := NewFakePin(High)
	f.SetTrigger(TriggerHigh)
	calls := 0
	f.Register(func() {
		calls++
		if calls == 3 {
			f.SetTrigger(TriggerLow)
		}
	})
	f.Enable()

	n := f.Settle(10)
	if n != 3 {
		t.Errorf("expected 3 invocations, got %d", n)
	}

	got := f.Triggers()
	if len(got) != 2 || got[0] != TriggerHigh || got[1] != TriggerLow {
		t.Errorf("unexpected trigger history: %v", got)
	}
}

func TestFakePinUnregister(t *testing.T) {
	f := NewFakePin(Low)
	if err := f.Unregister(); !errors.Is(err, ErrNotRegistered) {
		t.Errorf("expected ErrNotRegistered, got %v", err)
	}
	f.Register(func() {})
	if !f.IsRegistered() {
		t.Fatal("expected handler registered")
	}
	if err := f.Unregister(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.IsRegistered() {
		t.Error("expected handler removed")
	}
}

func TestFakePinScriptedErrors(t *testing.T) {
	f := NewFakePin(Low)
	boom := errors.New("boom")
	f.InputError = boom
	f.TriggerError = boom
	f.RegisterError = boom
	f.EnableError = boom
	f.DisableError = boom

	if err := f.SetInput(); err != boom {
		t.Errorf("SetInput: got %v", err)
	}
	if err := f.SetTrigger(TriggerHigh); err != boom {
		t.Errorf("SetTrigger: got %v", err)
	}
	if err := f.Register(func() {}); err != boom {
		t.Errorf("Register: got %v", err)
	}
	if err := f.Enable(); err != boom {
		t.Errorf("Enable: got %v", err)
	}
	if err := f.Disable(); err != boom {
		t.Errorf("Disable: got %v", err)
	}
	if f.IsInput() || f.IsRegistered() || f.IsEnabled() || len(f.Triggers()) != 0 {
		t.Error("failed operations must not change pin state")
	}
}
