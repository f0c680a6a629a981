package main

import (
	"log"
	"os"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/sweeney/leveled-edge/internal/edge"
	"github.com/sweeney/leveled-edge/internal/gpio"
	"github.com/sweeney/leveled-edge/internal/mqtt"
	"github.com/sweeney/leveled-edge/internal/rotary"
	"github.com/sweeney/leveled-edge/internal/status"
)

// queue is the controller's Notifier. It runs in interrupt context, so it
// only stamps the change and hands it to the loop without blocking.
type queue struct {
	name  string
	now   func() time.Time
	ch    chan mqtt.Event
	drops atomic.Uint64
}

func newQueue(name string, size int, now func() time.Time) *queue {
	if size < 1 {
		size = 1
	}
	return &queue{name: name, now: now, ch: make(chan mqtt.Event, size)}
}

// Notify implements edge.Notifier.
func (q *queue) Notify(level gpio.Level) {
	ev := mqtt.Event{Timestamp: q.now(), Line: q.name, Kind: mqtt.EventLevel, Level: level}
	select {
	case q.ch <- ev:
	default:
		q.drops.Add(1)
	}
}

func (q *queue) Events() <-chan mqtt.Event {
	return q.ch
}

func (q *queue) Drops() uint64 {
	return q.drops.Load()
}

// monitor is the read side of a running controller.
type monitor interface {
	Level() gpio.Level
	Trigger() gpio.Trigger
	Stats() edge.Stats
}

// source is what the loop consumes. Exactly one of events and dirs is set;
// a nil channel never becomes ready.
type source struct {
	ctrl   monitor
	events <-chan mqtt.Event
	dirs   <-chan rotary.Step
	drops  func() uint64
}

func (s source) counts(cw, ccw uint64) status.Counts {
	st := s.ctrl.Stats()
	c := status.Counts{Interrupts: st.Interrupts, Transitions: st.Transitions, CW: cw, CCW: ccw}
	if s.drops != nil {
		c.Dropped = s.drops()
	}
	return c
}

// loop publishes events from a source and keeps the tracker current.
type loop struct {
	name       string
	src        source
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus
	tracker    *status.Tracker
	heartbeat  time.Duration
	now        func() time.Time

	seq           uint64
	cw, ccw       uint64
	lastHeartbeat time.Time
}

// run blocks until a signal arrives, then publishes SHUTDOWN and returns.
// tick drives tracker refreshes and heartbeats.
func (l *loop) run(tick <-chan time.Time, sig <-chan os.Signal) error {
	l.lastHeartbeat = l.now()

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			l.drain()
			l.shutdown(signalName(s))
			return nil

		case ev := <-l.src.events:
			l.emit(ev)

		case st := <-l.src.dirs:
			l.rotate(st)

		case <-tick:
			t := l.now()
			l.refresh()
			if l.heartbeat > 0 && t.Sub(l.lastHeartbeat) >= l.heartbeat {
				l.lastHeartbeat = t
				l.sendHeartbeat(t)
			}
		}
	}
}

func (l *loop) emit(ev mqtt.Event) {
	l.seq++
	ev.Seq = l.seq
	if ev.Kind == mqtt.EventRotate {
		log.Printf("event: %s %s %s (seq=%d)", ev.Line, ev.Kind, ev.Direction, ev.Seq)
	} else {
		log.Printf("event: %s %s %s (seq=%d)", ev.Line, ev.Kind, ev.Level, ev.Seq)
	}
	if err := l.publisher.Publish(ev); err != nil {
		log.Printf("publish error: %v", err)
		// Don't crash on publish failure
	}
	if l.tracker != nil {
		l.tracker.RecordChange(ev.Timestamp)
	}
	l.refresh()
}

func (l *loop) rotate(s rotary.Step) {
	if s.Direction == rotary.Clockwise {
		l.cw++
	} else {
		l.ccw++
	}
	l.emit(mqtt.Event{
		Timestamp: l.now(),
		Line:      l.name,
		Kind:      mqtt.EventRotate,
		Level:     s.Clock,
		Direction: string(s.Direction),
	})
}

// drain publishes whatever the handler queued before the signal.
func (l *loop) drain() {
	for {
		select {
		case ev := <-l.src.events:
			l.emit(ev)
		case st := <-l.src.dirs:
			l.rotate(st)
		default:
			return
		}
	}
}

func (l *loop) refresh() {
	if l.tracker == nil {
		return
	}
	l.tracker.Update(l.src.ctrl.Level(), l.src.ctrl.Trigger(), l.src.counts(l.cw, l.ccw))
	if l.mqttStatus != nil {
		l.tracker.SetMQTTConnected(l.mqttStatus.IsConnected())
	}
}

func (l *loop) sendHeartbeat(t time.Time) {
	c := l.src.counts(l.cw, l.ccw)
	log.Printf("heartbeat: level=%s interrupts=%d transitions=%d dropped=%d",
		l.src.ctrl.Level(), c.Interrupts, c.Transitions, c.Dropped)

	hbEvent := mqtt.SystemEvent{Timestamp: t, Event: "HEARTBEAT"}
	if l.tracker != nil {
		hbEvent.RawPayload = status.FormatStatusEvent(l.tracker.Snapshot(), "HEARTBEAT", "")
	}
	if err := l.publisher.PublishSystem(hbEvent); err != nil {
		log.Printf("heartbeat publish error: %v", err)
	}
}

func (l *loop) shutdown(reason string) {
	event := mqtt.SystemEvent{
		Timestamp: l.now(),
		Event:     "SHUTDOWN",
		Reason:    reason,
		Retained:  true,
	}
	if l.tracker != nil {
		l.refresh()
		event.RawPayload = status.FormatStatusEvent(l.tracker.Snapshot(), "SHUTDOWN", reason)
	}
	if err := l.publisher.PublishSystem(event); err != nil {
		log.Printf("failed to publish shutdown event: %v", err)
	} else {
		log.Printf("published shutdown event")
	}
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	default:
		return "UNKNOWN"
	}
}
