package memory

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"murmur/internal/logging"
	"murmur/internal/operation"
)

// Store is the view of the registry the manager needs.
type Store interface {
	Snapshot(keep func(operation.Operation) bool) []operation.Operation
	Evict(ids []string) int
}

// Trigger names what started a cleanup pass.
type Trigger string

const (
	TriggerTimer    Trigger = "timer"
	TriggerTerminal Trigger = "terminal"
	TriggerPressure Trigger = "pressure"
	TriggerManual   Trigger = "manual"
)

// Result summarizes one cleanup pass.
type Result struct {
	Trigger   Trigger
	Pressure  bool
	Before    int
	After     int
	Evicted   int
	Expired   int
	Windowed  int
	Emergency int
}

// Manager bounds operation history. It runs a pass on an adaptive timer,
// after terminal transitions, and immediately on the rising edge of pressure.
type Manager struct {
	store  Store
	policy Policy
	clock  operation.Clock
	logger *slog.Logger

	pressure atomic.Bool
	passMu   sync.Mutex
	wake     chan struct{}

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewManager constructs a manager over store.
func NewManager(store Store, policy Policy, clock operation.Clock, logger *slog.Logger) *Manager {
	if clock == nil {
		clock = operation.SystemClock{}
	}
	return &Manager{
		store:  store,
		policy: policy,
		clock:  clock,
		logger: logging.NewComponentLogger(logger, "memory"),
		wake:   make(chan struct{}, 1),
	}
}

// Policy returns the manager's retention policy.
func (m *Manager) Policy() Policy { return m.policy }

// Start launches the periodic cleanup loop. Calling Start on a running
// manager is a no-op.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	go m.loop(loopCtx, m.done)
}

// Stop halts the cleanup loop and waits for it to exit.
func (m *Manager) Stop() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (m *Manager) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		interval := m.policy.IntervalFor(m.UnderPressure())
		timer := newTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-m.wake:
			// cadence changed; re-arm with the new interval
			timer.Stop()
		case <-timer.C:
			m.RunPass(ctx, TriggerTimer)
		}
	}
}

// UnderPressure reports the latched pressure state.
func (m *Manager) UnderPressure() bool {
	return m.pressure.Load()
}

// SetPressure latches or relieves pressure. The rising edge runs an emergency
// pass immediately. It reports whether the state changed.
func (m *Manager) SetPressure(ctx context.Context, under bool) bool {
	if !m.pressure.CompareAndSwap(!under, under) {
		return false
	}
	select {
	case m.wake <- struct{}{}:
	default:
	}
	logger := logging.WithContext(ctx, m.logger)
	if under {
		logging.WarnWithContext(logger, "memory pressure latched; switching to emergency retention", "memory_pressure",
			logging.Duration("retention", m.policy.PressureRetention),
			logging.Duration("interval", m.policy.PressureInterval),
			logging.String(logging.FieldErrorHint, "free host memory or lower memory.hard_cap"),
			logging.String(logging.FieldImpact, "older terminal operations are evicted aggressively"),
		)
		m.RunPass(ctx, TriggerPressure)
	} else {
		logger.Info("memory pressure relieved",
			logging.String(logging.FieldEventType, "memory_relieved"),
			logging.Duration("interval", m.policy.Interval),
		)
	}
	return true
}

// RunPass computes and applies one cleanup plan. Passes are serialized.
func (m *Manager) RunPass(ctx context.Context, trigger Trigger) Result {
	m.passMu.Lock()
	defer m.passMu.Unlock()

	pressure := m.UnderPressure()
	ops := m.store.Snapshot(nil)
	plan := BuildPlan(ops, m.clock.Now(), pressure, m.policy)

	result := Result{
		Trigger:   trigger,
		Pressure:  pressure,
		Before:    len(ops),
		Expired:   plan.Expired,
		Windowed:  plan.Windowed,
		Emergency: plan.Emergency,
	}
	if !plan.Empty() {
		result.Evicted = m.store.Evict(plan.Evict)
	}
	result.After = result.Before - result.Evicted

	logger := logging.WithContext(ctx, m.logger)
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "memory_cleanup"),
		logging.String("trigger", string(trigger)),
		logging.Bool("pressure", pressure),
		logging.Int("before", result.Before),
		logging.Int("after", result.After),
		logging.Int("evicted", result.Evicted),
		logging.Int("expired", result.Expired),
		logging.Int("windowed", result.Windowed),
		logging.Int("emergency", result.Emergency),
	}
	if result.Evicted > 0 {
		logger.Info("memory cleanup evicted operations", logging.Args(attrs...)...)
	} else {
		logger.Debug("memory cleanup found nothing to evict", logging.Args(attrs...)...)
	}
	return result
}
