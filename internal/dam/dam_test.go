package dam

import (
	"testing"
	"time"
)

func TestTryComputeCompletesBeforeEvent(t *testing.T) {
	events := make(chan int)
	stop := make(chan struct{})
	d := New(events, stop)

	res := d.TryCompute(func() any {
		return 42
	})
	if res.Interrupted {
		t.Fatalf("expected completion, got interrupted")
	}
	if res.Value != 42 {
		t.Fatalf("got %v, want 42", res.Value)
	}
}

func TestTryComputeInterruptedByEvent(t *testing.T) {
	events := make(chan int, 1)
	stop := make(chan struct{})
	d := New(events, stop)
	events <- 7

	res := d.TryCompute(func() any {
		time.Sleep(50 * time.Millisecond)
		return "done"
	})
	if !res.Interrupted {
		t.Fatalf("expected interruption")
	}
	if !d.HasEvent() {
		t.Fatalf("expected the interrupting event to be retained")
	}
	ev, ok := d.NextEvent()
	if !ok || ev != 7 {
		t.Fatalf("got event %v, %v, want 7, true", ev, ok)
	}
}

func TestHasEventRetainsAcrossCalls(t *testing.T) {
	events := make(chan int, 1)
	stop := make(chan struct{})
	d := New(events, stop)
	events <- 1

	if !d.HasEvent() {
		t.Fatalf("expected event")
	}
	if !d.HasEvent() {
		t.Fatalf("expected event to remain retained on second check")
	}
	d.Clear()
	if d.HasEvent() {
		t.Fatalf("expected Clear to drop the retained event")
	}
}

func TestTryComputeStopSignal(t *testing.T) {
	events := make(chan int)
	stop := make(chan struct{})
	close(stop)
	d := New(events, stop)

	res := d.TryCompute(func() any {
		time.Sleep(50 * time.Millisecond)
		return 1
	})
	if !res.Interrupted {
		t.Fatalf("expected stop to interrupt computation")
	}
}
