package hotkey

import "testing"

type step struct {
	down    bool
	want    EventType
	wantOut bool
}

func runSteps(t *testing.T, tr *tracker, steps []step) {
	t.Helper()
	for i, s := range steps {
		var got EventType
		var ok bool
		if s.down {
			got, ok = tr.down()
		} else {
			got, ok = tr.up()
		}
		if ok != s.wantOut {
			t.Fatalf("step %d: emitted = %v, want %v", i, ok, s.wantOut)
		}
		if ok && got != s.want {
			t.Fatalf("step %d: event = %v, want %v", i, got, s.want)
		}
	}
}

func TestTrackerHold(t *testing.T) {
	tr := &tracker{}
	runSteps(t, tr, []step{
		{down: true, want: EventStart, wantOut: true},
		{down: true},  // auto-repeat
		{down: true},  // auto-repeat
		{down: false, want: EventStop, wantOut: true},
		{down: false}, // stray release
		{down: true, want: EventStart, wantOut: true},
		{down: false, want: EventStop, wantOut: true},
	})
}

func TestTrackerToggle(t *testing.T) {
	tr := &tracker{toggle: true}
	runSteps(t, tr, []step{
		{down: true, want: EventStart, wantOut: true},
		{down: true}, // auto-repeat
		{down: false},
		{down: true, want: EventStop, wantOut: true},
		{down: false},
		{down: true, want: EventStart, wantOut: true},
	})
}

func TestNewListener(t *testing.T) {
	l := NewListener("  F9 ", "toggle")
	if l.Key() != "f9" {
		t.Errorf("Key() = %q, want %q", l.Key(), "f9")
	}
	if !l.track.toggle {
		t.Error("toggle mode not set")
	}
	if NewListener("f9", "hold").track.toggle {
		t.Error("hold mode should not toggle")
	}
}

func TestListenerEmitsOnEdges(t *testing.T) {
	l := NewListener("f9", "hold")

	l.keyDown()
	l.keyDown()
	l.keyUp()

	if got := len(l.ch); got != 2 {
		t.Fatalf("queued events = %d, want 2", got)
	}
	if ev := <-l.Events(); ev.Type != EventStart {
		t.Errorf("first event = %v, want start", ev.Type)
	}
	if ev := <-l.Events(); ev.Type != EventStop {
		t.Errorf("second event = %v, want stop", ev.Type)
	}
}

func TestEmitDoesNotBlockWhenFull(t *testing.T) {
	l := NewListener("f9", "toggle")
	for i := 0; i < cap(l.ch)+4; i++ {
		l.keyDown()
		l.keyUp()
	}
	if len(l.ch) != cap(l.ch) {
		t.Errorf("queued events = %d, want %d", len(l.ch), cap(l.ch))
	}
}

func TestStopIsIdempotent(t *testing.T) {
	l := NewListener("f9", "hold")
	l.Stop()
	l.Stop()
}
