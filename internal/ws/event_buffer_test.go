package ws

import (
	"testing"
	"time"
)

func TestEventBuffer_SinceAndLimit(t *testing.T) {
	eb := NewEventBuffer(3, time.Hour)
	for i := uint64(1); i <= 5; i++ {
		eb.Append(&Event{ID: i, Time: time.Now()})
	}

	if got := eb.OldestID(); got != 3 {
		t.Errorf("OldestID = %d, want 3", got)
	}

	events := eb.Since(3)
	if len(events) != 2 || events[0].ID != 4 || events[1].ID != 5 {
		t.Errorf("Since(3) = %+v", events)
	}

	if events := eb.Since(5); events != nil {
		t.Errorf("Since(5) = %+v, want nil", events)
	}
}

func TestEventBuffer_EvictsExpired(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	eb := NewEventBuffer(10, time.Minute)
	eb.now = func() time.Time { return now }

	// Event 1 is already past the cutoff and goes on the next append.
	eb.Append(&Event{ID: 1, Time: now.Add(-2 * time.Minute)})
	eb.Append(&Event{ID: 2, Time: now})

	if got := eb.Len(); got != 1 {
		t.Fatalf("Len = %d, want 1", got)
	}
	if got := eb.OldestID(); got != 2 {
		t.Errorf("OldestID = %d, want 2", got)
	}

	now = now.Add(30 * time.Second)
	eb.Append(&Event{ID: 3, Time: now})

	if got := eb.Len(); got != 2 {
		t.Fatalf("Len = %d, want 2 while both are inside the window", got)
	}

	now = now.Add(60 * time.Second)
	eb.Append(&Event{ID: 4, Time: now})

	if got := eb.OldestID(); got != 3 {
		t.Errorf("OldestID = %d, want 3", got)
	}
}

func TestEventBuffer_Empty(t *testing.T) {
	eb := NewEventBuffer(10, time.Hour)

	if eb.OldestID() != 0 || eb.Since(0) != nil {
		t.Error("expected empty buffer")
	}
}

func TestEventSequence_Monotonic(t *testing.T) {
	seq := NewEventSequence()
	if a, b := seq.Next(), seq.Next(); a != 1 || b != 2 {
		t.Errorf("got %d, %d", a, b)
	}
}
