package status

import (
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sweeney/leveled-edge/internal/gpio"
)

func testConfig() Config {
	return Config{
		Mode:        "level",
		Driver:      "cdev",
		Chip:        "gpiochip0",
		Line:        "17",
		Bias:        "pull-down",
		DebounceMs:  20,
		RetriggerMs: 1,
		HeartbeatMs: 900000,
		Broker:      "tcp://localhost:1883",
		HTTPAddr:    ":8080",
	}
}

func TestNewTracker(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tr := NewTracker("button", start, testConfig())

	snap := tr.Snapshot()
	if !snap.StartTime.Equal(start) {
		t.Errorf("StartTime: got %v, want %v", snap.StartTime, start)
	}
	if snap.Name != "button" {
		t.Errorf("Name: got %q, want button", snap.Name)
	}
	if snap.Config.DebounceMs != 20 {
		t.Errorf("Config.DebounceMs: got %d, want 20", snap.Config.DebounceMs)
	}
	if snap.Ready {
		t.Error("expected Ready=false initially")
	}
	if snap.MQTTConnected {
		t.Error("expected MQTTConnected=false initially")
	}
}

func TestUpdateAndSnapshot(t *testing.T) {
	tr := NewTracker("button", time.Now(), Config{})

	tr.Update(gpio.High, gpio.TriggerLow, Counts{Interrupts: 9, Transitions: 3})

	snap := tr.Snapshot()
	if snap.Level != gpio.High {
		t.Errorf("Level: got %s, want HIGH", snap.Level)
	}
	if snap.Trigger != gpio.TriggerLow {
		t.Errorf("Trigger: got %s, want LOW_LEVEL", snap.Trigger)
	}
	if !snap.Ready {
		t.Error("expected Ready=true after Update")
	}
	if snap.Counts.Interrupts != 9 || snap.Counts.Transitions != 3 {
		t.Errorf("Counts: got %+v", snap.Counts)
	}
}

func TestRecordChange(t *testing.T) {
	tr := NewTracker("button", time.Now(), Config{})
	at := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	tr.RecordChange(at)

	if !tr.Snapshot().LastChange.Equal(at) {
		t.Errorf("LastChange: got %v, want %v", tr.Snapshot().LastChange, at)
	}
}

func TestSetMQTTConnected(t *testing.T) {
	tr := NewTracker("button", time.Now(), Config{})

	tr.SetMQTTConnected(true)
	if !tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=true")
	}

	tr.SetMQTTConnected(false)
	if tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=false")
	}
}

func TestSnapshotUptime(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{StartTime: start, Now: start.Add(90 * time.Second)}
	if snap.Uptime() != 90*time.Second {
		t.Errorf("Uptime: got %v, want 90s", snap.Uptime())
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	tr := NewTracker("button", time.Now(), Config{})
	tr.Update(gpio.High, gpio.TriggerLow, Counts{Transitions: 1})

	snap := tr.Snapshot()
	tr.Update(gpio.Low, gpio.TriggerHigh, Counts{Transitions: 2})

	if snap.Level != gpio.High || snap.Counts.Transitions != 1 {
		t.Error("snapshot should not change after later updates")
	}
}

func TestFormatJSON(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		Name:          "button",
		Level:         gpio.High,
		Trigger:       gpio.TriggerLow,
		Ready:         true,
		Counts:        Counts{Interrupts: 12, Transitions: 5, Dropped: 1},
		StartTime:     start,
		Now:           start.Add(15 * time.Minute),
		MQTTConnected: true,
		Config:        testConfig(),
	}

	data := FormatJSON(snap)

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.Status.Level != "HIGH" {
		t.Errorf("Level: got %q, want HIGH", parsed.Status.Level)
	}
	if parsed.Status.Trigger != "LOW_LEVEL" {
		t.Errorf("Trigger: got %q, want LOW_LEVEL", parsed.Status.Trigger)
	}
	if parsed.Status.UptimeSeconds != 900 {
		t.Errorf("UptimeSeconds: got %d, want 900", parsed.Status.UptimeSeconds)
	}
	if !parsed.Status.MQTT.Connected || parsed.Status.MQTT.Broker != "tcp://localhost:1883" {
		t.Errorf("MQTT: got %+v", parsed.Status.MQTT)
	}
	if parsed.Status.Counts.Transitions != 5 || parsed.Status.Counts.Interrupts != 12 {
		t.Errorf("Counts: got %+v", parsed.Status.Counts)
	}
	if parsed.Status.Config.RetriggerMs != 1 || parsed.Status.Config.Driver != "cdev" {
		t.Errorf("Config: got %+v", parsed.Status.Config)
	}
	// Event and Reason should be omitted
	if parsed.Status.Event != "" || parsed.Status.Reason != "" {
		t.Errorf("expected no event/reason for web format, got %q/%q", parsed.Status.Event, parsed.Status.Reason)
	}
	if strings.Contains(string(data), "last_change") {
		t.Error("last_change should be omitted before any change")
	}
}

func TestFormatJSONUnknownBeforeReady(t *testing.T) {
	snap := Snapshot{
		StartTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Now:       time.Date(2026, 1, 1, 0, 0, 1, 0, time.UTC),
	}

	var parsed StatusJSON
	json.Unmarshal(FormatJSON(snap), &parsed)

	if parsed.Status.Level != "UNKNOWN" {
		t.Errorf("Level: got %q, want UNKNOWN", parsed.Status.Level)
	}
	if parsed.Status.Trigger != "UNKNOWN" {
		t.Errorf("Trigger: got %q, want UNKNOWN", parsed.Status.Trigger)
	}
}

func TestFormatStatusEvent(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		Name:       "button",
		Level:      gpio.Low,
		Trigger:    gpio.TriggerHigh,
		Ready:      true,
		LastChange: start.Add(time.Second),
		StartTime:  start,
		Now:        start.Add(time.Minute),
		Config:     testConfig(),
	}

	data := FormatStatusEvent(snap, "SHUTDOWN", "SIGTERM")
	if strings.Contains(string(data), "\n") {
		t.Error("MQTT payload should be compact")
	}

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Status.Event != "SHUTDOWN" || parsed.Status.Reason != "SIGTERM" {
		t.Errorf("event/reason: got %q/%q", parsed.Status.Event, parsed.Status.Reason)
	}
	if parsed.Status.LastChange != "2026-01-01T00:00:01Z" {
		t.Errorf("LastChange: got %q", parsed.Status.LastChange)
	}
}

func TestFormatStatusEventOmitsReasonWhenEmpty(t *testing.T) {
	snap := Snapshot{StartTime: time.Now(), Now: time.Now()}

	var parsed map[string]map[string]interface{}
	if err := json.Unmarshal(FormatStatusEvent(snap, "HEARTBEAT", ""), &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if _, exists := parsed["status"]["reason"]; exists {
		t.Error("HEARTBEAT should not have reason field")
	}
	if parsed["status"]["event"] != "HEARTBEAT" {
		t.Errorf("event: got %v", parsed["status"]["event"])
	}
}

func TestConcurrentAccess(t *testing.T) {
	tr := NewTracker("button", time.Now(), Config{})
	var wg sync.WaitGroup

	// Writer
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			tr.Update(gpio.LevelOf(i%2 == 0), gpio.TriggerLow, Counts{Transitions: uint64(i)})
			tr.SetMQTTConnected(i%2 == 0)
			tr.RecordChange(time.Now())
		}
	}()

	// Reader
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			snap := tr.Snapshot()
			_ = FormatJSON(snap)
		}
	}()

	wg.Wait()
}
