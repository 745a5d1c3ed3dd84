// Package scheduler decides the order in which queued operations are
// reconsidered once capacity or a conflict clears.
//
// A drain is exactly one pass over a snapshot of the queue sorted by priority
// (highest first) and then creation time (oldest first). Entries that still
// cannot start are skipped in place and stay queued; the pass continues with
// the entries behind them. There is no aging, so a steady stream of
// higher-priority work on a target can starve a queued low-priority entry
// indefinitely. That trade-off is accepted.
package scheduler

import (
	"sort"

	"murmur/internal/operation"
)

// Order returns a copy of ops sorted by (priority desc, createdAt asc, id asc).
func Order(ops []operation.Operation) []operation.Operation {
	out := make([]operation.Operation, len(ops))
	copy(out, ops)
	sort.SliceStable(out, func(i, j int) bool {
		return Less(out[i], out[j])
	})
	return out
}

// Less reports whether a should be admitted before b.
func Less(a, b operation.Operation) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

// Result summarises one drain pass.
type Result struct {
	Admitted []string
	Skipped  []string
}

// Pass attempts tryStart once on each queued operation in admission order.
// Operations that are no longer pending are ignored.
func Pass(queued []operation.Operation, tryStart func(operation.Operation) bool) Result {
	var res Result
	for _, op := range Order(queued) {
		if op.Status != operation.StatusPending {
			continue
		}
		if tryStart(op) {
			res.Admitted = append(res.Admitted, op.ID)
			continue
		}
		res.Skipped = append(res.Skipped, op.ID)
	}
	return res
}

// Position returns the 1-based admission position of id among queued.
func Position(queued []operation.Operation, id string) (int, bool) {
	for i, op := range Order(queued) {
		if op.ID == id {
			return i + 1, true
		}
	}
	return 0, false
}
