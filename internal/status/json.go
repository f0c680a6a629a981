package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string     `json:"event,omitempty"`
	Reason        string     `json:"reason,omitempty"`
	Name          string     `json:"name"`
	Level         string     `json:"level"`
	Trigger       string     `json:"trigger"`
	Ready         bool       `json:"ready"`
	LastChange    string     `json:"last_change,omitempty"`
	UptimeSeconds int64      `json:"uptime_seconds"`
	StartTime     string     `json:"start_time"`
	Timestamp     string     `json:"timestamp"`
	MQTT          MQTTStatus `json:"mqtt"`
	Counts        CountsJSON `json:"event_counts"`
	Config        ConfigJSON `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	Interrupts  uint64 `json:"interrupts"`
	Transitions uint64 `json:"transitions"`
	CW          uint64 `json:"cw,omitempty"`
	CCW         uint64 `json:"ccw,omitempty"`
	Dropped     uint64 `json:"dropped"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Mode        string `json:"mode"`
	Driver      string `json:"driver"`
	Chip        string `json:"chip,omitempty"`
	Line        string `json:"line"`
	Bias        string `json:"bias"`
	DebounceMs  int64  `json:"debounce_ms"`
	RetriggerMs int64  `json:"retrigger_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Broker      string `json:"broker"`
	HTTPAddr    string `json:"http_addr"`
	WSBroker    string `json:"ws_broker,omitempty"`
}

func buildInner(snap Snapshot) StatusInner {
	level, trigger := "UNKNOWN", "UNKNOWN"
	if snap.Ready {
		level = snap.Level.String()
		trigger = snap.Trigger.String()
	}

	inner := StatusInner{
		Name:          snap.Name,
		Level:         level,
		Trigger:       trigger,
		Ready:         snap.Ready,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Interrupts:  snap.Counts.Interrupts,
			Transitions: snap.Counts.Transitions,
			CW:          snap.Counts.CW,
			CCW:         snap.Counts.CCW,
			Dropped:     snap.Counts.Dropped,
		},
		Config: ConfigJSON{
			Mode:        snap.Config.Mode,
			Driver:      snap.Config.Driver,
			Chip:        snap.Config.Chip,
			Line:        snap.Config.Line,
			Bias:        snap.Config.Bias,
			DebounceMs:  snap.Config.DebounceMs,
			RetriggerMs: snap.Config.RetriggerMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Broker:      snap.Config.Broker,
			HTTPAddr:    snap.Config.HTTPAddr,
			WSBroker:    snap.Config.WSBroker,
		},
	}
	if !snap.LastChange.IsZero() {
		inner.LastChange = snap.LastChange.UTC().Format(time.RFC3339Nano)
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
