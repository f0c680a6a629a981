// Package mqtt turns line events into JSON and publishes them to a broker.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/leveled-edge/internal/gpio"
)

// TopicPrefix is the root of every topic this daemon publishes to.
const TopicPrefix = "gpio/leveled-edge"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = TopicPrefix + "/system"

// EventTopic returns the topic for events from the named line.
func EventTopic(line string) string {
	return TopicPrefix + "/" + line + "/events"
}

// Publisher is implemented by RealPublisher and FakePublisher.
// Errors are reported to the caller, which logs and carries on.
type Publisher interface {
	Publish(event Event) error
	PublishSystem(event SystemEvent) error
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// EventKind distinguishes the events a line can produce.
type EventKind string

const (
	EventLevel  EventKind = "LEVEL"  // confirmed level change
	EventRotate EventKind = "ROTATE" // encoder detent
)

// Event is a confirmed change on a monitored line.
type Event struct {
	Timestamp time.Time
	Line      string
	Kind      EventKind
	Level     gpio.Level
	Direction string // ROTATE only: "CW" or "CCW"
	Seq       uint64 // per-line sequence number, starting at 1
}

// SystemEvent is a daemon lifecycle message on TopicSystem.
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // STARTUP, SHUTDOWN, HEARTBEAT or RECONNECTED
	Reason     string // SHUTDOWN only
	RawPayload []byte // sent verbatim when non-nil
	Retained   bool
}

// Payload is the JSON body published on EventTopic.
type Payload struct {
	Line LinePayload `json:"line"`
}

type LinePayload struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Name      string `json:"name"`
	Level     string `json:"level"`
	Direction string `json:"direction,omitempty"`
	Seq       uint64 `json:"seq"`
}

// FormatPayload renders event with a UTC nanosecond timestamp.
func FormatPayload(event Event) ([]byte, error) {
	payload := Payload{
		Line: LinePayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339Nano),
			Event:     string(event.Kind),
			Name:      event.Line,
			Level:     event.Level.String(),
			Direction: event.Direction,
			Seq:       event.Seq,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload is the short form of a system message, used for the will
// and RECONNECTED. Snapshot-bearing events go through RawPayload instead.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload returns event.RawPayload if set, else the short form.
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
