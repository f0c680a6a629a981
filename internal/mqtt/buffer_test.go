package mqtt

import (
	"bytes"
	"testing"
)

func seqMsgs(from, to int) []bufferedMsg {
	var out []bufferedMsg
	for i := from; i < to; i++ {
		out = append(out, bufferedMsg{topic: "t", payload: []byte{byte(i)}})
	}
	return out
}

func payloads(msgs []bufferedMsg) []byte {
	var b []byte
	for _, m := range msgs {
		b = append(b, m.payload...)
	}
	return b
}

func TestRingBufferDrainOrder(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		push     []bufferedMsg
		want     []byte
		dropped  int
	}{
		{"empty", 10, nil, nil, 0},
		{"partial", 10, seqMsgs(0, 5), []byte{0, 1, 2, 3, 4}, 0},
		{"exactly full", 4, seqMsgs(0, 4), []byte{0, 1, 2, 3}, 0},
		{"overflow keeps newest", 5, seqMsgs(0, 8), []byte{3, 4, 5, 6, 7}, 3},
		{"zero capacity holds one", 0, seqMsgs(0, 3), []byte{2}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rb := newRingBuffer(tt.capacity)
			for _, m := range tt.push {
				rb.push(m)
			}
			if rb.dropped != tt.dropped {
				t.Errorf("dropped: got %d, want %d", rb.dropped, tt.dropped)
			}

			got := rb.drainAll()
			if tt.want == nil {
				if got != nil {
					t.Fatalf("expected nil drain, got %d items", len(got))
				}
				return
			}
			if p := payloads(got); !bytes.Equal(p, tt.want) {
				t.Errorf("drain: got %v, want %v", p, tt.want)
			}
			if rb.len() != 0 || rb.dropped != 0 {
				t.Errorf("after drain: len=%d dropped=%d", rb.len(), rb.dropped)
			}
			if again := rb.drainAll(); again != nil {
				t.Errorf("second drain returned %d items", len(again))
			}
		})
	}
}

func TestRingBufferReuseAfterWrap(t *testing.T) {
	rb := newRingBuffer(3)
	for _, m := range seqMsgs(0, 5) {
		rb.push(m)
	}
	rb.drainAll()

	for _, m := range seqMsgs(10, 12) {
		rb.push(m)
	}
	if rb.len() != 2 {
		t.Fatalf("len: got %d, want 2", rb.len())
	}
	if p := payloads(rb.drainAll()); !bytes.Equal(p, []byte{10, 11}) {
		t.Errorf("drain after wrap: got %v", p)
	}
}

func TestRingBufferKeepsMessageFields(t *testing.T) {
	in := bufferedMsg{topic: TopicSystem, payload: []byte(`{"system":{}}`), qos: 1, retained: true}
	rb := newRingBuffer(2)
	rb.push(in)

	got := rb.drainAll()
	if len(got) != 1 {
		t.Fatalf("expected 1 message, got %d", len(got))
	}
	m := got[0]
	if m.topic != in.topic || !bytes.Equal(m.payload, in.payload) || m.qos != 1 || !m.retained {
		t.Errorf("got %+v, want %+v", m, in)
	}
}
