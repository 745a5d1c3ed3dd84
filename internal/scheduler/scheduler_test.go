package scheduler_test

import (
	"reflect"
	"testing"
	"time"

	"murmur/internal/operation"
	"murmur/internal/scheduler"
)

var t0 = time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)

func queued(id string, typ operation.Type, offset time.Duration) operation.Operation {
	return operation.New(id, typ, t0.Add(offset))
}

func TestOrderPriorityThenFIFO(t *testing.T) {
	ops := []operation.Operation{
		queued("analysis-old", operation.Analysis("a", operation.AnalysisSummary), 0),
		queued("transcribe-new", operation.Transcription("b"), 3*time.Second),
		queued("record", operation.Recording("c"), 5*time.Second),
		queued("transcribe-old", operation.Transcription("d"), time.Second),
	}
	var got []string
	for _, op := range scheduler.Order(ops) {
		got = append(got, op.ID)
	}
	want := []string{"record", "transcribe-old", "transcribe-new", "analysis-old"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
	if ops[0].ID != "analysis-old" {
		t.Fatal("Order must not reorder its input")
	}
}

func TestPassSkipsInPlaceAndContinues(t *testing.T) {
	ops := []operation.Operation{
		queued("t1", operation.Transcription("busy"), 0),
		queued("t2", operation.Transcription("free"), time.Second),
		queued("a1", operation.Analysis("free", operation.AnalysisKeywords), 2*time.Second),
	}
	var attempts []string
	res := scheduler.Pass(ops, func(op operation.Operation) bool {
		attempts = append(attempts, op.ID)
		return op.Target() != "busy"
	})

	if !reflect.DeepEqual(attempts, []string{"t1", "t2", "a1"}) {
		t.Fatalf("attempt order = %v", attempts)
	}
	if !reflect.DeepEqual(res.Admitted, []string{"t2", "a1"}) {
		t.Fatalf("admitted = %v", res.Admitted)
	}
	if !reflect.DeepEqual(res.Skipped, []string{"t1"}) {
		t.Fatalf("skipped = %v", res.Skipped)
	}
}

func TestPassIsSinglePass(t *testing.T) {
	ops := []operation.Operation{queued("t1", operation.Transcription("x"), 0)}
	calls := 0
	scheduler.Pass(ops, func(operation.Operation) bool {
		calls++
		return false
	})
	if calls != 1 {
		t.Fatalf("tryStart called %d times, want 1", calls)
	}
}

func TestPassIgnoresNonPending(t *testing.T) {
	op := queued("t1", operation.Transcription("x"), 0)
	op.Status = operation.StatusCancelled
	res := scheduler.Pass([]operation.Operation{op}, func(operation.Operation) bool {
		t.Fatal("tryStart should not run for cancelled entries")
		return false
	})
	if len(res.Admitted)+len(res.Skipped) != 0 {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestPosition(t *testing.T) {
	ops := []operation.Operation{
		queued("low", operation.Analysis("a", operation.AnalysisSummary), 0),
		queued("high", operation.Transcription("a"), time.Second),
	}
	if pos, ok := scheduler.Position(ops, "low"); !ok || pos != 2 {
		t.Fatalf("position(low) = %d,%v want 2,true", pos, ok)
	}
	if _, ok := scheduler.Position(ops, "missing"); ok {
		t.Fatal("expected missing id to have no position")
	}
}
