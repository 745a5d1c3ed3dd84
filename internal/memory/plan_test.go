package memory_test

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"murmur/internal/memory"
	"murmur/internal/operation"
	"murmur/internal/testsupport"
)

var now = testsupport.Epoch.Add(24 * time.Hour)

func finished(id string, status operation.Status, created, completed time.Duration) operation.Operation {
	op := operation.New(id, operation.Transcription("rec-"+id), now.Add(-created))
	started := op.CreatedAt
	op.StartedAt = &started
	op.Status = status
	if completed >= 0 {
		at := now.Add(-completed)
		op.CompletedAt = &at
	}
	return op
}

func live(id string, status operation.Status, created time.Duration) operation.Operation {
	op := operation.New(id, operation.Recording("rec-"+id), now.Add(-created))
	op.Status = status
	return op
}

func evicted(plan memory.Plan) map[string]bool {
	out := make(map[string]bool, len(plan.Evict))
	for _, id := range plan.Evict {
		out[id] = true
	}
	return out
}

func TestBuildPlanTimeBased(t *testing.T) {
	ops := []operation.Operation{
		finished("old-done", operation.StatusCompleted, 2*time.Hour, 31*time.Minute),
		finished("fresh-done", operation.StatusCompleted, 2*time.Hour, 10*time.Minute),
		finished("never-ran", operation.StatusCancelled, 40*time.Minute, -1),
		live("old-pending", operation.StatusPending, 5*time.Hour),
		live("old-active", operation.StatusActive, 5*time.Hour),
	}
	plan := memory.BuildPlan(ops, now, false, memory.DefaultPolicy())
	got := evicted(plan)

	if !got["old-done"] || !got["never-ran"] {
		t.Fatalf("expected expired terminal ops evicted, got %v", plan.Evict)
	}
	if got["fresh-done"] || got["old-pending"] || got["old-active"] {
		t.Fatalf("unexpected eviction: %v", plan.Evict)
	}
	if plan.Expired != 2 || plan.Windowed != 0 || plan.Emergency != 0 {
		t.Fatalf("unexpected layer counts: %+v", plan)
	}
}

func TestBuildPlanPressureShortensRetention(t *testing.T) {
	ops := []operation.Operation{
		finished("ten-min", operation.StatusCompleted, time.Hour, 10*time.Minute),
	}
	if plan := memory.BuildPlan(ops, now, false, memory.DefaultPolicy()); !plan.Empty() {
		t.Fatalf("normal retention should keep a 10m old op, got %v", plan.Evict)
	}
	policy := memory.DefaultPolicy()
	policy.EmergencyRecent = 0
	plan := memory.BuildPlan(ops, now, true, policy)
	if plan.Expired != 1 {
		t.Fatalf("pressure retention should expire a 10m old op, got %+v", plan)
	}
}

func TestBuildPlanSlidingWindow(t *testing.T) {
	policy := memory.DefaultPolicy()
	policy.HardCap = 10
	policy.RecentWindow = 3
	policy.KeepCompleted = 2
	policy.KeepFailed = 1

	var ops []operation.Operation
	ops = append(ops, live("pending-a", operation.StatusPending, 50*time.Minute))
	ops = append(ops, live("active-b", operation.StatusActive, 49*time.Minute))
	for i := 0; i < 18; i++ {
		status := operation.StatusCompleted
		if i%2 == 1 {
			status = operation.StatusFailed
		}
		age := time.Duration(20-i) * time.Minute
		ops = append(ops, finished(fmt.Sprintf("t%02d", i), status, age, age-30*time.Second))
	}

	plan := memory.BuildPlan(ops, now, false, policy)
	got := evicted(plan)
	if got["pending-a"] || got["active-b"] {
		t.Fatal("window must keep non-terminal operations")
	}
	for _, id := range []string{"t17", "t16", "t15"} {
		if got[id] {
			t.Fatalf("%s is in the recent window and must be kept", id)
		}
	}
	// t14 is the newest completed outside the recent window; t13 the newest failed.
	if got["t14"] {
		t.Fatal("t14 should be kept by keep_completed")
	}
	if len(ops)-len(plan.Evict) > policy.HardCap {
		t.Fatalf("expected size <= hard cap after one pass, kept %d", len(ops)-len(plan.Evict))
	}
	if plan.Windowed != len(plan.Evict) {
		t.Fatalf("all evictions should come from the window layer: %+v", plan)
	}
}

func TestBuildPlanEmergency(t *testing.T) {
	policy := memory.DefaultPolicy()
	policy.EmergencyRecent = 2
	policy.EmergencyFailures = 1
	policy.EmergencyFailureAge = 2 * time.Minute

	ops := []operation.Operation{
		live("active", operation.StatusActive, 4*time.Minute),
		finished("failed-recent", operation.StatusFailed, 3*time.Minute, 30*time.Second),
		finished("failed-older", operation.StatusFailed, 4*time.Minute, 90*time.Second),
		finished("failed-stale", operation.StatusFailed, 4*time.Minute, 3*time.Minute),
		finished("done-1", operation.StatusCompleted, 2*time.Minute, time.Minute),
		finished("done-2", operation.StatusCompleted, time.Minute, 20*time.Second),
		finished("done-3", operation.StatusCompleted, 30*time.Second, 10*time.Second),
	}

	plan := memory.BuildPlan(ops, now, true, policy)
	got := evicted(plan)
	for _, id := range []string{"active", "done-3", "done-2", "failed-recent"} {
		if got[id] {
			t.Fatalf("%s should survive emergency cleanup: %v", id, plan.Evict)
		}
	}
	for _, id := range []string{"failed-older", "failed-stale", "done-1"} {
		if !got[id] {
			t.Fatalf("%s should be evicted in emergency mode: %v", id, plan.Evict)
		}
	}
	if plan.Emergency != 3 {
		t.Fatalf("expected 3 emergency evictions, got %+v", plan)
	}
}

func TestBuildPlanNeverEvictsPendingOrActive(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	statuses := operation.AllStatuses()
	policy := memory.DefaultPolicy()
	policy.HardCap = 40
	policy.RecentWindow = 5
	policy.KeepCompleted = 5
	policy.KeepFailed = 5

	for round := 0; round < 50; round++ {
		var ops []operation.Operation
		for i := 0; i < 200; i++ {
			status := statuses[rng.Intn(len(statuses))]
			age := time.Duration(rng.Intn(7200)) * time.Second
			id := fmt.Sprintf("r%d-%d", round, i)
			if status.IsTerminal() {
				ops = append(ops, finished(id, status, age, age/2))
			} else {
				ops = append(ops, live(id, status, age))
			}
		}
		plan := memory.BuildPlan(ops, now, rng.Intn(2) == 0, policy)
		got := evicted(plan)
		for _, op := range ops {
			if !op.IsTerminal() && got[op.ID] {
				t.Fatalf("round %d evicted %s operation %s", round, op.Status, op.ID)
			}
		}
	}
}
