package testsupport

import (
	"sync"
	"time"

	"murmur/internal/notifications"
	"murmur/internal/operation"
)

// RecordingObserver captures every event it receives.
type RecordingObserver struct {
	mu     sync.Mutex
	events []notifications.Event
	signal chan struct{}
}

// NewRecordingObserver returns an empty observer.
func NewRecordingObserver() *RecordingObserver {
	return &RecordingObserver{signal: make(chan struct{}, 1)}
}

// OperationChanged implements notifications.Observer.
func (r *RecordingObserver) OperationChanged(ev notifications.Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	select {
	case r.signal <- struct{}{}:
	default:
	}
}

// Events returns a copy of everything received so far.
func (r *RecordingObserver) Events() []notifications.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notifications.Event(nil), r.events...)
}

// For returns the events recorded for id.
func (r *RecordingObserver) For(id string) []notifications.Event {
	var out []notifications.Event
	for _, ev := range r.Events() {
		if ev.OperationID == id {
			out = append(out, ev)
		}
	}
	return out
}

// Statuses returns the status sequence recorded for id, skipping progress
// updates.
func (r *RecordingObserver) Statuses(id string) []operation.Status {
	var out []operation.Status
	for _, ev := range r.For(id) {
		if ev.IsTransition() {
			out = append(out, ev.CurrentStatus)
		}
	}
	return out
}

// WaitFor blocks until at least n events arrived or timeout elapses. It
// reports whether the count was reached.
func (r *RecordingObserver) WaitFor(n int, timeout time.Duration) bool {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		r.mu.Lock()
		got := len(r.events)
		r.mu.Unlock()
		if got >= n {
			return true
		}
		select {
		case <-r.signal:
		case <-deadline.C:
			return false
		}
	}
}
