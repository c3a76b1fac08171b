package audit

import (
	"context"
	"sync"
)

// RecordingPublisher captures events in memory. Used in tests.
type RecordingPublisher struct {
	mu     sync.Mutex
	events []Event
}

// NewRecordingPublisher creates an in-memory publisher.
func NewRecordingPublisher() *RecordingPublisher {
	return &RecordingPublisher{}
}

func (r *RecordingPublisher) Publish(ctx context.Context, event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *RecordingPublisher) Close() {}

// Captured returns a snapshot of published events.
func (r *RecordingPublisher) Captured() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}
