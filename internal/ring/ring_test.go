package ring

import (
	"testing"

	"github.com/go-synth/fluidcore/internal/rvoice"
)

func TestEventRingDrainsInPushOrder(t *testing.T) {
	r := NewEventRing(8)
	for i := 0; i < 5; i++ {
		if !r.Push(Event{Method: MethodNoteOff, IntParam: i}) {
			t.Fatalf("push %d failed unexpectedly", i)
		}
	}

	var got []int
	r.Drain(func(ev Event) { got = append(got, ev.IntParam) })

	for i, v := range got {
		if v != i {
			t.Fatalf("event %d out of order: got %d", i, v)
		}
	}
	if len(got) != 5 {
		t.Fatalf("expected 5 events, got %d", len(got))
	}
}

func TestEventRingFailsWhenFull(t *testing.T) {
	r := NewEventRing(4)
	for i := 0; i < 4; i++ {
		if !r.Push(Event{IntParam: i}) {
			t.Fatalf("push %d should have succeeded", i)
		}
	}
	if r.Push(Event{IntParam: 4}) {
		t.Fatal("5th push into a 4-slot ring should have failed")
	}

	drained := 0
	r.Drain(func(Event) { drained++ })
	if drained != 4 {
		t.Fatalf("expected 4 events after the 5th push was rejected, got %d", drained)
	}
}

func TestEventRingReusesSlotsAfterDrain(t *testing.T) {
	r := NewEventRing(4)
	r.PushAll([]Event{{IntParam: 1}, {IntParam: 2}, {IntParam: 3}, {IntParam: 4}})
	r.Drain(func(Event) {})

	if !r.Push(Event{IntParam: 5}) {
		t.Fatal("ring should accept new events once drained")
	}
	if r.Len() != 1 {
		t.Fatalf("expected 1 pending event, got %d", r.Len())
	}
}

func TestPushAllStopsAtFirstFailure(t *testing.T) {
	r := NewEventRing(2)
	n := r.PushAll([]Event{{IntParam: 1}, {IntParam: 2}, {IntParam: 3}})
	if n != 2 {
		t.Fatalf("expected 2 accepted events, got %d", n)
	}
}

func TestFinishedVoiceRingRoundTrips(t *testing.T) {
	r := NewFinishedVoiceRing(4)
	voices := []*rvoice.Voice{{}, {}, {}}
	for _, v := range voices {
		r.Push(v)
	}

	got := r.Drain()
	if len(got) != len(voices) {
		t.Fatalf("expected %d voices, got %d", len(voices), len(got))
	}
	for i := range voices {
		if got[i] != voices[i] {
			t.Fatalf("voice %d came back out of order", i)
		}
	}

	if empty := r.Drain(); empty != nil {
		t.Fatalf("expected nil from draining an empty ring, got %v", empty)
	}
}

func TestPackNoteRoundTrips(t *testing.T) {
	ch, key, vel := UnpackNote(PackNote(9, 64, 127))
	if ch != 9 || key != 64 || vel != 127 {
		t.Fatalf("got ch=%d key=%d vel=%d", ch, key, vel)
	}
}
