package operation

import (
	"fmt"
	"strings"
	"time"
)

// Status represents the lifecycle of an operation.
type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

var allStatuses = []Status{
	StatusPending,
	StatusActive,
	StatusCompleted,
	StatusFailed,
	StatusCancelled,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var terminalStatuses = map[Status]struct{}{
	StatusCompleted: {},
	StatusFailed:    {},
	StatusCancelled: {},
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether no further transitions are permitted.
func (s Status) IsTerminal() bool {
	_, ok := terminalStatuses[s]
	return ok
}

// CanTransition enforces the monotonic state machine:
// pending -> active -> terminal, or pending -> terminal directly.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusActive || to.IsTerminal()
	case StatusActive:
		return to.IsTerminal()
	default:
		return false
	}
}

// Operation is one unit of coordinated work against a target. Values handed
// out by the registry are snapshots; mutating them has no effect on state.
type Operation struct {
	ID               string     `json:"id"`
	Type             Type       `json:"type"`
	Priority         Priority   `json:"priority"`
	Status           Status     `json:"status"`
	CreatedAt        time.Time  `json:"created_at"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	ErrorDescription string     `json:"error_description,omitempty"`
	Progress         *Progress  `json:"progress,omitempty"`
}

// New builds a pending operation. Priority is derived from the category once.
func New(id string, typ Type, now time.Time) Operation {
	return Operation{
		ID:        id,
		Type:      typ,
		Priority:  typ.Priority(),
		Status:    StatusPending,
		CreatedAt: now,
	}
}

// Target returns the entity the operation acts upon.
func (o Operation) Target() string { return o.Type.Target }

// Category returns the operation category.
func (o Operation) Category() Category { return o.Type.Category }

// IsTerminal reports whether the operation reached completed, failed or cancelled.
func (o Operation) IsTerminal() bool { return o.Status.IsTerminal() }

// IsActive reports whether the operation currently occupies its target.
func (o Operation) IsActive() bool { return o.Status == StatusActive }

// Clone returns a deep copy safe to hand across goroutines.
func (o Operation) Clone() Operation {
	cp := o
	if o.StartedAt != nil {
		ts := *o.StartedAt
		cp.StartedAt = &ts
	}
	if o.CompletedAt != nil {
		ts := *o.CompletedAt
		cp.CompletedAt = &ts
	}
	if o.Progress != nil {
		p := o.Progress.Clone()
		cp.Progress = &p
	}
	return cp
}

// ExecutionTime returns the time between start and completion. The second
// return value is false when the operation never ran to a terminal state.
func (o Operation) ExecutionTime() (time.Duration, bool) {
	if o.StartedAt == nil || o.CompletedAt == nil {
		return 0, false
	}
	return o.CompletedAt.Sub(*o.StartedAt), true
}

// RetentionAnchor is the instant retention age is measured from: completion
// when present, creation otherwise.
func (o Operation) RetentionAnchor() time.Time {
	if o.CompletedAt != nil {
		return *o.CompletedAt
	}
	return o.CreatedAt
}

func (o Operation) String() string {
	return fmt.Sprintf("%s[%s %s]", o.Type, shortID(o.ID), o.Status)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
