package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"murmur/internal/conflict"
	"murmur/internal/logging"
	"murmur/internal/memory"
	"murmur/internal/notifications"
	"murmur/internal/operation"
	"murmur/internal/registry"
	"murmur/internal/scheduler"
)

// Register admits a new operation of typ. It returns false when the global
// capacity is exhausted or typ is malformed. Otherwise the operation is
// recorded and either started, started after replacing lower-priority
// conflicting work, or queued behind the conflicting work.
func (c *Coordinator) Register(ctx context.Context, typ operation.Type) (string, bool) {
	logger := c.opLogger(ctx, "", typ)
	if !typ.Valid() {
		logging.WarnWithContext(logger, "rejected malformed operation type", "invalid_operation_type",
			logging.String("type", typ.String()),
			logging.String(logging.FieldErrorHint, "build types with Recording, Transcription or Analysis"),
		)
		return "", false
	}

	now := c.clock.Now()
	id := c.newID()
	var (
		rejected  bool
		active    int
		strategy  conflict.Strategy
		conflicts []conflict.Conflict
		replaced  []finishResult
		start     startResult
		drained   scheduler.Result
	)
	c.reg.Do(func(tx *registry.Txn) {
		active = tx.ActiveCount()
		if active >= c.maxConcurrent {
			rejected = true
			return
		}
		conflicts = conflict.DetectAll(tx.ActiveOn(typ.Target), typ)
		strategy, _ = conflict.Combined(conflicts)

		op := operation.New(id, typ, now)
		tx.Register(op)
		c.bridge.Enqueue(notifications.NewEvent(op, "", now))

		switch strategy {
		case "":
			start = c.startLocked(tx, id, now)
		case conflict.StrategyReplace:
			for _, cf := range conflicts {
				replaced = append(replaced, c.finishLocked(tx, cf.Existing.ID, operation.StatusCancelled, "", now))
			}
			start = c.startLocked(tx, id, now)
			drained = c.drainLocked(tx, now)
		default:
			tx.Enqueue(id)
		}
	})
	c.bridge.Flush()

	if rejected {
		logging.WarnWithContext(logger, "operation rejected at capacity", "admission_rejected",
			append(logging.DecisionAttrs("admission", "rejected", "capacity"),
				logging.Int("active", active),
				logging.Int("max_concurrent", c.maxConcurrent),
				logging.String(logging.FieldErrorHint, "retry after an operation finishes or raise coordinator.max_concurrent"),
			)...,
		)
		return "", false
	}

	logger = logger.With(logging.String(logging.FieldOperationID, id))
	logger.Info("operation registered",
		logging.String(logging.FieldEventType, "operation_registered"),
		logging.String(logging.FieldPriority, typ.Priority().String()),
	)
	if strategy != "" {
		logger.Info("conflict resolved", logging.Args(
			append(logging.DecisionAttrs("conflict_resolution", string(strategy), describeConflicts(conflicts)),
				logging.String(logging.FieldEventType, "conflict_resolved"),
				logging.Int("conflicts", len(conflicts)),
			)...,
		)...)
	}
	for _, r := range replaced {
		if r.outcome != finishOK {
			continue
		}
		c.logFinished(ctx, r, fmt.Sprintf("replaced by %s", typ))
	}
	c.logStart(logger, start)
	c.logDrain(ctx, drained)
	if len(replaced) > 0 {
		for _, r := range replaced {
			c.sampler.Forget(r.op.ID)
		}
		c.memory.RunPass(ctx, memory.TriggerTerminal)
	}
	return id, true
}

// Start attempts to activate a pending operation. It returns false when the
// operation is unknown, no longer pending, still conflicts with active work
// on its target, or capacity is exhausted; in the last two cases it stays
// pending on the queue.
func (c *Coordinator) Start(ctx context.Context, id string) bool {
	now := c.clock.Now()
	var res startResult
	c.reg.Do(func(tx *registry.Txn) {
		res = c.startLocked(tx, id, now)
	})
	c.bridge.Flush()

	logger := c.opLogger(ctx, id, res.op.Type)
	switch res.outcome {
	case startUnknown:
		logging.WarnWithContext(logger, "start requested for unknown operation", "unknown_operation",
			logging.String(logging.FieldErrorHint, "the operation may have been evicted"),
		)
	case startNotPending:
		logging.WarnWithContext(logger, "start requested for operation that is not pending", "invalid_transition",
			logging.String(logging.FieldStatus, string(res.op.Status)),
		)
	default:
		c.logStart(logger, res)
	}
	return res.outcome == startOK
}

// UpdateProgress replaces the progress of a pending or active operation and
// notifies observers. Unknown and finished operations are ignored.
func (c *Coordinator) UpdateProgress(ctx context.Context, id string, progress operation.Progress) {
	now := c.clock.Now()
	var (
		op      operation.Operation
		found   bool
		applied bool
	)
	c.reg.Do(func(tx *registry.Txn) {
		op, found = tx.Get(id)
		if !found || op.IsTerminal() {
			return
		}
		op, _ = tx.Mutate(id, func(o *operation.Operation) {
			p := progress.Normalize(o.Category())
			o.Progress = &p
		})
		applied = true
		c.bridge.Enqueue(notifications.NewEvent(op, op.Status, now))
	})
	c.bridge.Flush()

	logger := c.opLogger(ctx, id, op.Type)
	switch {
	case !found:
		logging.WarnWithContext(logger, "progress reported for unknown operation", "unknown_operation",
			logging.String(logging.FieldErrorHint, "the operation may have been evicted"),
		)
	case !applied:
		logger.Debug("progress ignored for finished operation",
			logging.String(logging.FieldEventType, "progress_ignored"),
			logging.String(logging.FieldStatus, string(op.Status)),
		)
	case c.sampler.ShouldLog(id, op.Progress.Percentage, op.Progress.CurrentStep):
		logger.Info("operation progress",
			logging.String(logging.FieldEventType, "operation_progress"),
			logging.String("step", op.Progress.CurrentStep),
			logging.Float64("percent", op.Progress.Percentage*100),
		)
	}
}

// Complete marks an operation completed.
func (c *Coordinator) Complete(ctx context.Context, id string) bool {
	return c.finish(ctx, id, operation.StatusCompleted, "")
}

// Fail marks an operation failed with reason.
func (c *Coordinator) Fail(ctx context.Context, id, reason string) bool {
	return c.finish(ctx, id, operation.StatusFailed, strings.TrimSpace(reason))
}

// Cancel marks an operation cancelled. Cancellation is bookkeeping only; the
// worker doing the job is expected to observe the event and stop.
func (c *Coordinator) Cancel(ctx context.Context, id, reason string) bool {
	return c.finish(ctx, id, operation.StatusCancelled, strings.TrimSpace(reason))
}

func (c *Coordinator) finish(ctx context.Context, id string, status operation.Status, reason string) bool {
	now := c.clock.Now()
	var (
		res     finishResult
		drained scheduler.Result
	)
	c.reg.Do(func(tx *registry.Txn) {
		res = c.finishLocked(tx, id, status, reason, now)
		if res.outcome == finishOK {
			drained = c.drainLocked(tx, now)
		}
	})
	c.bridge.Flush()

	switch res.outcome {
	case finishUnknown:
		logging.WarnWithContext(c.opLogger(ctx, id, operation.Type{}), "terminal transition for unknown operation", "unknown_operation",
			logging.String(logging.FieldStatus, string(status)),
			logging.String(logging.FieldErrorHint, "the operation may have been evicted"),
		)
		return false
	case finishAlreadyTerminal:
		c.opLogger(ctx, id, res.op.Type).Debug("operation already finished",
			logging.String(logging.FieldEventType, "double_terminal"),
			logging.String(logging.FieldStatus, string(res.op.Status)),
			logging.String("requested", string(status)),
		)
		return false
	}

	c.logFinished(ctx, res, reason)
	c.logDrain(ctx, drained)
	c.sampler.Forget(id)
	c.memory.RunPass(ctx, memory.TriggerTerminal)
	return true
}

// CancelAllFor cancels every pending or active operation on target.
func (c *Coordinator) CancelAllFor(ctx context.Context, target string) int {
	target = strings.TrimSpace(target)
	return c.cancelMatching(ctx, "target "+target, func(op operation.Operation) bool {
		return op.Target() == target
	})
}

// CancelAllOf cancels every pending or active operation of category.
func (c *Coordinator) CancelAllOf(ctx context.Context, category operation.Category) int {
	return c.cancelMatching(ctx, "category "+string(category), func(op operation.Operation) bool {
		return op.Category() == category
	})
}

// CancelAll cancels every pending or active operation.
func (c *Coordinator) CancelAll(ctx context.Context) int {
	return c.cancelMatching(ctx, "all", nil)
}

// cancelMatching snapshots matching ids under one lock, pending before
// active so queued work cannot be admitted by the drains in between, then
// cancels them one at a time.
func (c *Coordinator) cancelMatching(ctx context.Context, scope string, match func(operation.Operation) bool) int {
	ops := c.reg.Snapshot(func(op operation.Operation) bool {
		if op.IsTerminal() {
			return false
		}
		return match == nil || match(op)
	})
	sort.SliceStable(ops, func(i, j int) bool {
		pi, pj := ops[i].Status == operation.StatusPending, ops[j].Status == operation.StatusPending
		return pi && !pj
	})

	reason := "bulk cancel: " + scope
	cancelled := 0
	for _, op := range ops {
		if c.Cancel(ctx, op.ID, reason) {
			cancelled++
		}
	}
	logging.WithContext(ctx, c.logger).Info("bulk cancel finished",
		logging.String(logging.FieldEventType, "bulk_cancel"),
		logging.String("scope", scope),
		logging.Int("matched", len(ops)),
		logging.Int("cancelled", cancelled),
	)
	return cancelled
}

func (c *Coordinator) opLogger(ctx context.Context, id string, typ operation.Type) *slog.Logger {
	logger := logging.WithContext(ctx, c.logger)
	var attrs []any
	if id != "" {
		attrs = append(attrs, logging.String(logging.FieldOperationID, id))
	}
	if typ.Category != "" {
		attrs = append(attrs,
			logging.String(logging.FieldCategory, string(typ.Category)),
			logging.String(logging.FieldTarget, typ.Target),
		)
	}
	if len(attrs) == 0 {
		return logger
	}
	return logger.With(attrs...)
}

func (c *Coordinator) logStart(logger *slog.Logger, res startResult) {
	switch res.outcome {
	case startOK:
		logger.Info("operation started",
			logging.String(logging.FieldEventType, "operation_started"),
			logging.String(logging.FieldStatus, string(operation.StatusActive)),
		)
	case startConflicted:
		logger.Info("operation queued behind conflicting work", logging.Args(
			append(logging.DecisionAttrs("start", "queued", describeConflicts(res.conflicts)),
				logging.String(logging.FieldEventType, "start_deferred"),
			)...,
		)...)
	case startAtCapacity:
		logger.Info("operation queued at capacity", logging.Args(
			append(logging.DecisionAttrs("start", "queued", "capacity"),
				logging.String(logging.FieldEventType, "start_deferred"),
				logging.Int("max_concurrent", c.maxConcurrent),
			)...,
		)...)
	}
}

func (c *Coordinator) logFinished(ctx context.Context, res finishResult, reason string) {
	logger := c.opLogger(ctx, res.op.ID, res.op.Type)
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "operation_finished"),
		logging.String(logging.FieldStatus, string(res.op.Status)),
		logging.String(logging.FieldPreviousStatus, string(res.previous)),
	}
	if elapsed, ok := res.op.ExecutionTime(); ok {
		attrs = append(attrs, logging.Duration("execution_time", elapsed))
	}
	if reason != "" {
		attrs = append(attrs, logging.String("reason", reason))
	}
	if res.op.Status == operation.StatusFailed {
		attrs = append(attrs, logging.String(logging.FieldErrorHint, "inspect the worker that reported the failure"))
		logging.WarnWithContext(logger, "operation failed", "operation_failed", attrs[1:]...)
		return
	}
	logger.Info("operation finished", logging.Args(attrs...)...)
}

func (c *Coordinator) logDrain(ctx context.Context, res scheduler.Result) {
	if len(res.Admitted) == 0 && len(res.Skipped) == 0 {
		return
	}
	logging.WithContext(ctx, c.logger).Debug("queue drained",
		logging.String(logging.FieldEventType, "queue_drain"),
		logging.Int("admitted", len(res.Admitted)),
		logging.Int("still_queued", len(res.Skipped)),
	)
}

func describeConflicts(conflicts []conflict.Conflict) string {
	parts := make([]string, 0, len(conflicts))
	for _, c := range conflicts {
		parts = append(parts, c.String())
	}
	return strings.Join(parts, "; ")
}
