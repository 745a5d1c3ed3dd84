package notifications

import (
	"fmt"
	"time"

	"murmur/internal/operation"
)

// Event describes one state change of an operation. Events carry snapshots;
// nothing in them aliases registry state.
type Event struct {
	Seq              uint64              `json:"seq"`
	OperationID      string              `json:"operation_id"`
	Target           string              `json:"target"`
	Type             operation.Type      `json:"type"`
	PreviousStatus   operation.Status    `json:"previous_status,omitempty"`
	CurrentStatus    operation.Status    `json:"current_status"`
	Timestamp        time.Time           `json:"ts"`
	Progress         *operation.Progress `json:"progress,omitempty"`
	ErrorDescription string              `json:"error,omitempty"`
}

// NewEvent captures op after a change from prev. prev is empty for
// registrations.
func NewEvent(op operation.Operation, prev operation.Status, at time.Time) Event {
	ev := Event{
		OperationID:      op.ID,
		Target:           op.Target(),
		Type:             op.Type,
		PreviousStatus:   prev,
		CurrentStatus:    op.Status,
		Timestamp:        at,
		ErrorDescription: op.ErrorDescription,
	}
	if op.Progress != nil {
		p := op.Progress.Clone()
		ev.Progress = &p
	}
	return ev
}

// IsTransition reports whether the status changed. Progress updates are not
// transitions.
func (e Event) IsTransition() bool {
	return e.PreviousStatus != e.CurrentStatus
}

func (e Event) String() string {
	prev := string(e.PreviousStatus)
	if prev == "" {
		prev = "new"
	}
	return fmt.Sprintf("#%d %s %s: %s -> %s", e.Seq, e.Type, e.OperationID, prev, e.CurrentStatus)
}
