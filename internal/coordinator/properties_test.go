package coordinator_test

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"murmur/internal/config"
	"murmur/internal/conflict"
	"murmur/internal/coordinator"
	"murmur/internal/logging"
	"murmur/internal/notifications"
	"murmur/internal/operation"
	"murmur/internal/pressure"
	"murmur/internal/testsupport"
)

func assertNoActiveConflicts(t *testing.T, coord *coordinator.Coordinator) {
	t.Helper()
	active := coord.AllActive()
	require.LessOrEqual(t, len(active), coord.MaxConcurrent())
	for i, a := range active {
		for _, b := range active[i+1:] {
			if a.Target() == b.Target() && conflict.Conflicts(a.Category(), b.Category()) {
				t.Fatalf("conflicting active operations on %s: %s and %s", a.Target(), a, b)
			}
		}
	}
}

func randomType(rng *rand.Rand) operation.Type {
	target := fmt.Sprintf("rec-%d", rng.Intn(4))
	switch rng.Intn(3) {
	case 0:
		return operation.Recording(target)
	case 1:
		return operation.Transcription(target)
	default:
		return operation.Analysis(target, operation.AnalysisSummary)
	}
}

func TestConflictInvariantUnderRandomSequences(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		rng := rand.New(rand.NewSource(seed))
		cfg := testsupport.NewConfig(t, testsupport.WithMaxConcurrent(1+rng.Intn(6)))
		h := newHarness(t, cfg)
		var known []string

		for step := 0; step < 300; step++ {
			h.clock.Advance(time.Duration(rng.Intn(3000)) * time.Millisecond)
			switch roll := rng.Intn(10); {
			case roll < 4 || len(known) == 0:
				if id, ok := h.coord.Register(h.ctx, randomType(rng)); ok {
					known = append(known, id)
				}
			case roll < 6:
				h.coord.Complete(h.ctx, known[rng.Intn(len(known))])
			case roll < 7:
				h.coord.Fail(h.ctx, known[rng.Intn(len(known))], "random failure")
			case roll < 8:
				h.coord.Cancel(h.ctx, known[rng.Intn(len(known))], "random cancel")
			case roll < 9:
				h.coord.Start(h.ctx, known[rng.Intn(len(known))])
			default:
				h.coord.CancelAllFor(h.ctx, fmt.Sprintf("rec-%d", rng.Intn(4)))
			}
			assertNoActiveConflicts(t, h.coord)
		}
	}
}

func TestConcurrentCallersKeepInvariants(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMaxConcurrent(4))
	observer := testsupport.NewRecordingObserver()
	coord := coordinator.New(cfg, logging.NewNop(),
		coordinator.WithExecutor(notifications.NewSerialExecutor()),
	)
	coord.SetObserver(observer)
	ctx := context.Background()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for i := 0; i < 100; i++ {
				id, ok := coord.Register(ctx, randomType(rng))
				if !ok {
					continue
				}
				coord.UpdateProgress(ctx, id, operation.NewProgress(0.5, "working"))
				if rng.Intn(2) == 0 {
					coord.Complete(ctx, id)
				} else {
					coord.Cancel(ctx, id, "worker done")
				}
			}
		}(int64(w))
	}
	wg.Wait()
	assertNoActiveConflicts(t, coord)
	coord.Shutdown()

	events := observer.Events()
	require.NotEmpty(t, events)
	lastStatus := map[string]operation.Status{}
	for i, ev := range events {
		if i > 0 {
			require.Greater(t, ev.Seq, events[i-1].Seq, "observer saw events out of order")
		}
		if prev, seen := lastStatus[ev.OperationID]; seen && prev.IsTerminal() {
			t.Fatalf("event after terminal status for %s: %s", ev.OperationID, ev)
		}
		lastStatus[ev.OperationID] = ev.CurrentStatus
	}
}

func TestTerminalTransitionsBoundHistory(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMemory(func(m *config.Memory) {
		m.HardCap = 6
		m.RecentWindow = 2
		m.KeepCompleted = 1
		m.KeepFailed = 1
		m.EmergencyRecent = 2
	}))
	h := newHarness(t, cfg)

	pending := h.register(t, operation.Recording("rec-keep"))
	h.register(t, operation.Transcription("rec-keep"))
	for i := 0; i < 20; i++ {
		h.clock.Advance(time.Second)
		id := h.register(t, operation.Analysis(fmt.Sprintf("rec-%d", i), operation.AnalysisSummary))
		if i%3 == 0 {
			h.coord.Fail(h.ctx, id, "boom")
		} else {
			h.coord.Complete(h.ctx, id)
		}
		assert.LessOrEqual(t, h.coord.Metrics().Total, 6)
	}
	assert.Equal(t, operation.StatusActive, h.status(t, pending))
	assert.Equal(t, 1, h.coord.Metrics().Queued)
}

func TestTimeBasedEvictionAfterRetention(t *testing.T) {
	h := newHarness(t, nil)
	old := h.register(t, operation.Analysis("rec-1", operation.AnalysisSummary))
	h.coord.Complete(h.ctx, old)

	h.clock.Advance(31 * time.Minute)
	fresh := h.register(t, operation.Analysis("rec-2", operation.AnalysisSummary))
	h.coord.Complete(h.ctx, fresh)

	_, ok := h.coord.Get(old)
	assert.False(t, ok, "completed operation older than retention is evicted by the terminal pass")
	_, ok = h.coord.Get(fresh)
	assert.True(t, ok)
}

func TestPressureLatchRunsEmergencyPass(t *testing.T) {
	h := newHarness(t, nil)
	for i := 0; i < 30; i++ {
		h.clock.Advance(time.Second)
		id := h.register(t, operation.Analysis(fmt.Sprintf("rec-%d", i), operation.AnalysisSummary))
		h.coord.Complete(h.ctx, id)
	}
	live := h.register(t, operation.Recording("rec-live"))

	require.True(t, h.coord.SetPressure(h.ctx, true))
	assert.False(t, h.coord.SetPressure(h.ctx, true))
	assert.True(t, h.coord.UnderPressure())
	assert.True(t, h.coord.Metrics().UnderPressure)

	policy := config.Default().Memory
	assert.LessOrEqual(t, h.coord.Metrics().Total, policy.EmergencyRecent+1)
	assert.Equal(t, operation.StatusActive, h.status(t, live))

	require.True(t, h.coord.SetPressure(h.ctx, false))
	assert.False(t, h.coord.UnderPressure())
}

type stubProbe struct {
	mu        sync.Mutex
	available uint64
}

func (p *stubProbe) set(available uint64) {
	p.mu.Lock()
	p.available = available
	p.mu.Unlock()
}

func (p *stubProbe) Sample(context.Context) (pressure.Sample, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return pressure.Sample{Total: 100, Available: p.available}, nil
}

func TestRunFollowsPressureProbe(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithPressure(func(p *config.Pressure) {
		p.Enabled = true
		p.PollIntervalSeconds = 1
	}))
	probe := &stubProbe{available: 5}
	h := newHarness(t, cfg, coordinator.WithPressureProbe(probe))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, h.coord.Run(ctx))
	require.Error(t, h.coord.Run(ctx), "second Run must fail")

	require.Eventually(t, h.coord.UnderPressure, 2*time.Second, 5*time.Millisecond)

	probe.set(50)
	require.Eventually(t, func() bool { return !h.coord.UnderPressure() }, 3*time.Second, 10*time.Millisecond)

	h.coord.Shutdown()
	h.coord.Shutdown()
	assert.Error(t, h.coord.Run(ctx), "Run after Shutdown must fail")
}

func TestRunWithoutProbe(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.coord.Run(context.Background()))
	id := h.register(t, operation.Recording("rec-1"))
	h.coord.Shutdown()

	// state stays readable after shutdown
	assert.Equal(t, operation.StatusActive, h.status(t, id))
	assert.Equal(t, 1, h.coord.RunCleanup(context.Background()).Before)
}
