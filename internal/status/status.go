// Package status provides a thread-safe status tracker for the leveled-edge daemon.
// It is read by HTTP handlers and used to build heartbeat payloads.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/leveled-edge/internal/gpio"
)

// Config contains daemon configuration for display.
type Config struct {
	Mode        string // "level" or "rotary"
	Driver      string
	Chip        string
	Line        string
	Bias        string
	DebounceMs  int64
	RetriggerMs int64
	HeartbeatMs int64
	Broker      string
	HTTPAddr    string
	WSBroker    string // Websocket broker URL for browser MQTT (empty = disabled)
}

// Counts are running event counters.
type Counts struct {
	Interrupts  uint64
	Transitions uint64
	CW          uint64
	CCW         uint64
	Dropped     uint64
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Name          string
	Level         gpio.Level
	Trigger       gpio.Trigger
	Ready         bool
	Counts        Counts
	LastChange    time.Time
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker for the named line.
func NewTracker(name string, startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			Name:      name,
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update sets the line level, armed trigger and counters. The first call
// marks the tracker ready.
func (t *Tracker) Update(level gpio.Level, trig gpio.Trigger, counts Counts) {
	t.mu.Lock()
	t.snap.Level = level
	t.snap.Trigger = trig
	t.snap.Ready = true
	t.snap.Counts = counts
	t.mu.Unlock()
}

// RecordChange notes the time of the latest confirmed event.
func (t *Tracker) RecordChange(at time.Time) {
	t.mu.Lock()
	t.snap.LastChange = at
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
