package coordinator

import (
	"time"

	"murmur/internal/conflict"
	"murmur/internal/notifications"
	"murmur/internal/operation"
	"murmur/internal/registry"
	"murmur/internal/scheduler"
)

// The helpers in this file run inside registry.Do. They never log; callers
// report outcomes once the lock is released.

type startOutcome int

const (
	startOK startOutcome = iota
	startUnknown
	startNotPending
	startConflicted
	startAtCapacity
)

func (o startOutcome) String() string {
	switch o {
	case startOK:
		return "started"
	case startUnknown:
		return "unknown_operation"
	case startNotPending:
		return "not_pending"
	case startConflicted:
		return "conflict"
	case startAtCapacity:
		return "at_capacity"
	default:
		return "unknown"
	}
}

type startResult struct {
	outcome   startOutcome
	op        operation.Operation
	conflicts []conflict.Conflict
}

// startLocked moves a pending operation to active when its target is clear
// and capacity allows. Refused operations stay pending on the queue list.
func (c *Coordinator) startLocked(tx *registry.Txn, id string, now time.Time) startResult {
	op, ok := tx.Get(id)
	if !ok {
		return startResult{outcome: startUnknown}
	}
	if op.Status != operation.StatusPending {
		return startResult{outcome: startNotPending, op: op}
	}
	if conflicts := conflict.DetectAll(tx.ActiveOn(op.Target()), op.Type); len(conflicts) > 0 {
		tx.Enqueue(id)
		return startResult{outcome: startConflicted, op: op, conflicts: conflicts}
	}
	if tx.ActiveCount() >= c.maxConcurrent {
		tx.Enqueue(id)
		return startResult{outcome: startAtCapacity, op: op}
	}
	started, _ := tx.Mutate(id, func(o *operation.Operation) {
		o.Status = operation.StatusActive
		at := now
		o.StartedAt = &at
	})
	tx.IndexActive(id, started.Target())
	tx.Dequeue(id)
	c.bridge.Enqueue(notifications.NewEvent(started, operation.StatusPending, now))
	return startResult{outcome: startOK, op: started}
}

type finishOutcome int

const (
	finishOK finishOutcome = iota
	finishUnknown
	finishAlreadyTerminal
)

type finishResult struct {
	outcome  finishOutcome
	op       operation.Operation
	previous operation.Status
}

// finishLocked applies a terminal status. It clears the active index and the
// queue entry and records completion time; reason is kept only on failures.
func (c *Coordinator) finishLocked(tx *registry.Txn, id string, status operation.Status, reason string, now time.Time) finishResult {
	op, ok := tx.Get(id)
	if !ok {
		return finishResult{outcome: finishUnknown}
	}
	if op.IsTerminal() || !operation.CanTransition(op.Status, status) {
		return finishResult{outcome: finishAlreadyTerminal, op: op, previous: op.Status}
	}
	finished, _ := tx.Mutate(id, func(o *operation.Operation) {
		o.Status = status
		at := now
		o.CompletedAt = &at
		if status == operation.StatusFailed {
			o.ErrorDescription = reason
		}
	})
	tx.DeindexActive(id, finished.Target())
	tx.Dequeue(id)
	c.bridge.Enqueue(notifications.NewEvent(finished, op.Status, now))
	return finishResult{outcome: finishOK, op: finished, previous: op.Status}
}

// drainLocked makes exactly one admission pass over the queue.
func (c *Coordinator) drainLocked(tx *registry.Txn, now time.Time) scheduler.Result {
	return scheduler.Pass(tx.Queued(), func(op operation.Operation) bool {
		return c.startLocked(tx, op.ID, now).outcome == startOK
	})
}
