package operation_test

import (
	"math"
	"testing"
	"time"

	"murmur/internal/operation"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		input string
		want  operation.Status
		ok    bool
	}{
		{" Active ", operation.StatusActive, true},
		{"cancelled", operation.StatusCancelled, true},
		{"", "", false},
		{"running", "running", false},
	}
	for _, tc := range tests {
		got, ok := operation.ParseStatus(tc.input)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("ParseStatus(%q) = %q,%v want %q,%v", tc.input, got, ok, tc.want, tc.ok)
		}
	}
}

func TestCanTransitionIsMonotonic(t *testing.T) {
	allowed := map[[2]operation.Status]bool{
		{operation.StatusPending, operation.StatusActive}:    true,
		{operation.StatusPending, operation.StatusCompleted}: true,
		{operation.StatusPending, operation.StatusFailed}:    true,
		{operation.StatusPending, operation.StatusCancelled}: true,
		{operation.StatusActive, operation.StatusCompleted}:  true,
		{operation.StatusActive, operation.StatusFailed}:     true,
		{operation.StatusActive, operation.StatusCancelled}:  true,
	}
	for _, from := range operation.AllStatuses() {
		for _, to := range operation.AllStatuses() {
			want := allowed[[2]operation.Status{from, to}]
			if got := operation.CanTransition(from, to); got != want {
				t.Fatalf("CanTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestPriorityTable(t *testing.T) {
	if operation.Recording("a").Priority() != operation.PriorityHigh {
		t.Fatal("recording should be high priority")
	}
	if operation.Transcription("a").Priority() != operation.PriorityMedium {
		t.Fatal("transcription should be medium priority")
	}
	if operation.Analysis("a", operation.AnalysisSummary).Priority() != operation.PriorityLow {
		t.Fatal("analysis should be low priority")
	}
}

func TestNewDerivesPriorityOnce(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	op := operation.New("op-1", operation.Transcription("rec-1"), now)
	if op.Status != operation.StatusPending {
		t.Fatalf("status = %s, want pending", op.Status)
	}
	if op.Priority != operation.PriorityMedium {
		t.Fatalf("priority = %s, want medium", op.Priority)
	}
	if !op.CreatedAt.Equal(now) || op.StartedAt != nil || op.CompletedAt != nil {
		t.Fatalf("unexpected timestamps: %+v", op)
	}
}

func TestParseType(t *testing.T) {
	typ, err := operation.ParseType("Analysis", " rec-9 ", "")
	if err != nil {
		t.Fatalf("ParseType: %v", err)
	}
	if typ.Target != "rec-9" || typ.AnalysisKind != operation.AnalysisSummary {
		t.Fatalf("unexpected type %+v", typ)
	}
	if _, err := operation.ParseType("mixing", "rec-9", ""); err == nil {
		t.Fatal("expected error for unknown category")
	}
	if _, err := operation.ParseType("recording", "  ", ""); err == nil {
		t.Fatal("expected error for empty target")
	}
}

func TestCloneIsDeep(t *testing.T) {
	now := time.Now()
	op := operation.New("op-1", operation.Recording("rec-1"), now)
	started := now.Add(time.Second)
	op.StartedAt = &started
	progress := operation.NewProgress(0.5, "capturing").WithSteps(1, 3).WithDiagnostic("device", "mic0")
	op.Progress = &progress

	cp := op.Clone()
	*cp.StartedAt = now.Add(time.Hour)
	*cp.Progress.StepIndex = 9
	cp.Progress.Diagnostics["device"] = "mic1"

	if !op.StartedAt.Equal(started) {
		t.Fatal("clone shares StartedAt")
	}
	if *op.Progress.StepIndex != 1 {
		t.Fatal("clone shares StepIndex")
	}
	if op.Progress.Diagnostics["device"] != "mic0" {
		t.Fatal("clone shares diagnostics")
	}
}

func TestProgressNormalize(t *testing.T) {
	p := operation.Progress{Percentage: 1.7, Detail: operation.AnalysisDetail{ItemsFound: 2}}
	got := p.Normalize(operation.CategoryRecording)
	if got.Percentage != 1 {
		t.Fatalf("percentage = %v, want 1", got.Percentage)
	}
	if got.Detail != nil {
		t.Fatal("expected mismatched detail to be dropped")
	}
	if operation.NewProgress(math.NaN(), "x").Percentage != 0 {
		t.Fatal("NaN should clamp to 0")
	}

	src := operation.NewProgress(0.5, "decoding").WithSteps(1, 3).WithETA(10).WithDiagnostic("k", "v")
	norm := src.Normalize(operation.CategoryTranscription)
	src.Diagnostics["k"] = "changed"
	*src.ETASeconds = 999
	*src.StepIndex = 7
	if norm.Diagnostics["k"] != "v" || *norm.ETASeconds != 10 || *norm.StepIndex != 1 {
		t.Fatalf("normalized progress shares state with its source: %+v", norm)
	}
}

func TestExecutionTimeAndRetentionAnchor(t *testing.T) {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	op := operation.New("op", operation.Recording("r"), created)
	if _, ok := op.ExecutionTime(); ok {
		t.Fatal("pending operation has no execution time")
	}
	if !op.RetentionAnchor().Equal(created) {
		t.Fatal("anchor should fall back to CreatedAt")
	}
	started := created.Add(2 * time.Second)
	done := created.Add(6 * time.Second)
	op.StartedAt, op.CompletedAt = &started, &done
	d, ok := op.ExecutionTime()
	if !ok || d != 4*time.Second {
		t.Fatalf("execution time = %v,%v want 4s", d, ok)
	}
	if !op.RetentionAnchor().Equal(done) {
		t.Fatal("anchor should be CompletedAt")
	}
}
