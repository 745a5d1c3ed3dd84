package coordinator

import (
	"strings"

	"murmur/internal/conflict"
	"murmur/internal/operation"
	"murmur/internal/registry"
	"murmur/internal/scheduler"
)

// Get returns a snapshot of the operation with id.
func (c *Coordinator) Get(id string) (operation.Operation, bool) {
	return c.reg.Get(id)
}

// ActiveFor returns the active operations on target.
func (c *Coordinator) ActiveFor(target string) []operation.Operation {
	target = strings.TrimSpace(target)
	return c.reg.Snapshot(func(op operation.Operation) bool {
		return op.IsActive() && op.Target() == target
	})
}

// AllFor returns every retained operation on target.
func (c *Coordinator) AllFor(target string) []operation.Operation {
	target = strings.TrimSpace(target)
	return c.reg.Snapshot(func(op operation.Operation) bool {
		return op.Target() == target
	})
}

// AllActive returns every active operation.
func (c *Coordinator) AllActive() []operation.Operation {
	return c.reg.Snapshot(func(op operation.Operation) bool { return op.IsActive() })
}

// All returns every retained operation.
func (c *Coordinator) All() []operation.Operation {
	return c.reg.Snapshot(nil)
}

// ByStatus returns the retained operations in status.
func (c *Coordinator) ByStatus(status operation.Status) []operation.Operation {
	return c.reg.Snapshot(func(op operation.Operation) bool { return op.Status == status })
}

// ByCategoryAndStatus returns the retained operations matching both filters.
func (c *Coordinator) ByCategoryAndStatus(category operation.Category, status operation.Status) []operation.Operation {
	return c.reg.Snapshot(func(op operation.Operation) bool {
		return op.Category() == category && op.Status == status
	})
}

// QueuedInOrder returns queued operations in the order a drain would try
// them.
func (c *Coordinator) QueuedInOrder() []operation.Operation {
	var queued []operation.Operation
	c.reg.Do(func(tx *registry.Txn) { queued = tx.Queued() })
	return scheduler.Order(queued)
}

// QueuePosition returns the 1-based admission position of id.
func (c *Coordinator) QueuePosition(id string) (int, bool) {
	var queued []operation.Operation
	c.reg.Do(func(tx *registry.Txn) { queued = tx.Queued() })
	return scheduler.Position(queued, id)
}

// IsTargetBusy reports whether active work on target would conflict with a
// new operation of category.
func (c *Coordinator) IsTargetBusy(target string, category operation.Category) bool {
	target = strings.TrimSpace(target)
	busy := false
	c.reg.Do(func(tx *registry.Txn) {
		for _, op := range tx.ActiveOn(target) {
			if conflict.Conflicts(op.Category(), category) {
				busy = true
				return
			}
		}
	})
	return busy
}

// Metrics summarizes retained operations.
type Metrics struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Active    int `json:"active"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Cancelled int `json:"cancelled"`
	Queued    int `json:"queued"`
	// SuccessRate is completed over all terminal operations, 0 when none.
	SuccessRate float64 `json:"success_rate"`
	// AverageExecutionTime is in seconds over completed operations that
	// recorded both start and completion.
	AverageExecutionTime float64 `json:"average_execution_time"`
	// Load is active over the concurrency cap.
	Load          float64 `json:"load"`
	MaxConcurrent int     `json:"max_concurrent"`
	UnderPressure bool    `json:"under_pressure"`
}

// Metrics computes counts and rates from one consistent snapshot.
func (c *Coordinator) Metrics() Metrics {
	var (
		ops    []operation.Operation
		queued int
	)
	c.reg.Do(func(tx *registry.Txn) {
		ops = tx.Snapshot(nil)
		queued = len(tx.Queued())
	})

	m := Metrics{
		Total:         len(ops),
		Queued:        queued,
		MaxConcurrent: c.maxConcurrent,
		UnderPressure: c.memory.UnderPressure(),
	}
	var (
		execTotal float64
		execCount int
	)
	for _, op := range ops {
		switch op.Status {
		case operation.StatusPending:
			m.Pending++
		case operation.StatusActive:
			m.Active++
		case operation.StatusCompleted:
			m.Completed++
			if elapsed, ok := op.ExecutionTime(); ok {
				execTotal += elapsed.Seconds()
				execCount++
			}
		case operation.StatusFailed:
			m.Failed++
		case operation.StatusCancelled:
			m.Cancelled++
		}
	}
	if terminal := m.Completed + m.Failed + m.Cancelled; terminal > 0 {
		m.SuccessRate = float64(m.Completed) / float64(terminal)
	}
	if execCount > 0 {
		m.AverageExecutionTime = execTotal / float64(execCount)
	}
	m.Load = float64(m.Active) / float64(c.maxConcurrent)
	return m
}
