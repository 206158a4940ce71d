package diag

import (
	"errors"
	"testing"
)

type recordingSink struct {
	events []Event
}

func (r *recordingSink) Emit(e Event) {
	r.events = append(r.events, e)
}

func TestRecordingSinkCapturesEvent(t *testing.T) {
	var s recordingSink
	id := NewRequestID()
	s.Emit(Event{RequestID: id, Stage: StageOpen, Err: errors.New("boom"), Detail: "probe failed"})
	if len(s.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(s.events))
	}
	if s.events[0].RequestID != id || s.events[0].Stage != StageOpen {
		t.Fatalf("unexpected event: %+v", s.events[0])
	}
}

func TestNoopSinkDiscards(t *testing.T) {
	var s NoopSink
	s.Emit(Event{Stage: StageClose})
}

func TestNewRequestIDIsUnique(t *testing.T) {
	a := NewRequestID()
	b := NewRequestID()
	if a == b {
		t.Fatalf("expected distinct ids, got %q twice", a)
	}
}
