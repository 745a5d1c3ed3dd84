package main

import (
	"context"
	"testing"

	"murmur/internal/logging"
	"murmur/internal/notifications"
	"murmur/internal/operation"
	"murmur/internal/testsupport"
)

func TestRunStressKeepsConflictInvariant(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMaxConcurrent(6))
	report := runStress(context.Background(), cfg, logging.NewNop(), stressOptions{
		Workers: 6,
		Ops:     60,
		Targets: 2,
		Seed:    42,
	})
	if len(report.Violations) != 0 {
		t.Fatalf("stress run reported violations: %v", report.Violations)
	}
	if report.Registered+report.Rejected != 360 {
		t.Fatalf("expected 360 attempts, got %d registered + %d rejected", report.Registered, report.Rejected)
	}
	if report.Metrics.Active != 0 || report.Metrics.Pending != 0 {
		t.Fatalf("expected every operation to be terminal after the run, got %+v", report.Metrics)
	}
	if report.Events == 0 {
		t.Fatal("expected events to be delivered")
	}
}

func TestConflictAuditorFlagsOverlap(t *testing.T) {
	auditor := newConflictAuditor()
	rec := operation.Recording("rec-1")
	tx := operation.Transcription("rec-1")
	auditor.OperationChanged(notifications.Event{Seq: 1, OperationID: "a", Target: "rec-1", Type: rec, PreviousStatus: operation.StatusPending, CurrentStatus: operation.StatusActive})
	auditor.OperationChanged(notifications.Event{Seq: 2, OperationID: "b", Target: "rec-1", Type: tx, PreviousStatus: operation.StatusPending, CurrentStatus: operation.StatusActive})
	if len(auditor.violations) != 1 {
		t.Fatalf("expected one overlap violation, got %v", auditor.violations)
	}
	auditor.OperationChanged(notifications.Event{Seq: 2, OperationID: "a", Target: "rec-1", Type: rec, PreviousStatus: operation.StatusActive, CurrentStatus: operation.StatusCompleted})
	if len(auditor.violations) != 2 {
		t.Fatalf("expected an ordering violation for a repeated sequence, got %v", auditor.violations)
	}
}

func TestStressCommandValidatesFlags(t *testing.T) {
	configPath := newTestConfigFile(t)
	if _, _, err := runCLI(t, []string{"stress", "--workers", "0"}, configPath); err == nil {
		t.Fatal("expected zero workers to be rejected")
	}
	out, _, err := runCLI(t, []string{"stress", "--workers", "2", "--ops", "10", "--targets", "1", "--seed", "7"}, configPath)
	if err != nil {
		t.Fatalf("stress: %v", err)
	}
	requireContains(t, out, "Seed: 7")
	requireContains(t, out, "Success rate")
}
