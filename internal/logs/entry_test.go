package logs_test

import (
	"log/slog"
	"strings"
	"testing"

	"murmur/internal/logs"
)

var sampleLines = []string{
	`{"ts":"2026-01-05T09:00:00Z","level":"info","msg":"operation registered","component":"coordinator","operation_id":"3f2a9c10-aaaa","target":"rec-1","event_type":"operation_registered"}`,
	`{"ts":"2026-01-05T09:00:01Z","level":"warn","msg":"operation failed","component":"coordinator","operation_id":"77b0e1d2-bbbb","target":"rec-2","error_hint":"check the model"}`,
	`not json at all`,
	`{"ts":"2026-01-05T09:00:02Z","level":"debug","msg":"memory cleanup found nothing to evict","component":"memory","evicted":0}`,
}

func TestParseEntry(t *testing.T) {
	entry, err := logs.ParseEntry(sampleLines[1])
	if err != nil {
		t.Fatalf("ParseEntry: %v", err)
	}
	if entry.Level != slog.LevelWarn || entry.Message != "operation failed" {
		t.Fatalf("unexpected entry %+v", entry)
	}
	if entry.Field("target") != "rec-2" || entry.Field("ts") != "" {
		t.Fatalf("expected envelope keys stripped and attributes kept: %+v", entry.Fields)
	}
	if _, err := logs.ParseEntry(sampleLines[2]); err == nil {
		t.Fatal("expected plain text to fail decoding")
	}
}

func TestFilterApply(t *testing.T) {
	all := logs.Filter{}.Apply(sampleLines)
	if len(all) != 4 {
		t.Fatalf("empty filter should keep every line, got %d", len(all))
	}

	byOp := logs.Filter{OperationID: "3f2a9c10"}.Apply(sampleLines)
	if len(byOp) != 1 || byOp[0].Field("target") != "rec-1" {
		t.Fatalf("unexpected operation filter result %+v", byOp)
	}

	warnings := logs.Filter{MinLevel: slog.LevelWarn}.Apply(sampleLines)
	if len(warnings) != 1 || warnings[0].Message != "operation failed" {
		t.Fatalf("unexpected level filter result %+v", warnings)
	}

	if got := (logs.Filter{Target: "rec-9"}).Apply(sampleLines); len(got) != 0 {
		t.Fatalf("expected no match, got %+v", got)
	}
}

func TestFormatOrdersFields(t *testing.T) {
	entry, err := logs.ParseEntry(sampleLines[0])
	if err != nil {
		t.Fatalf("ParseEntry: %v", err)
	}
	line := logs.Format(entry)
	if !strings.Contains(line, "INFO  operation registered component=coordinator event_type=operation_registered operation_id=3f2a9c10-aaaa") {
		t.Fatalf("unexpected format %q", line)
	}
	if !strings.HasSuffix(line, "target=rec-1") {
		t.Fatalf("expected target after leading fields, got %q", line)
	}

	raw, _ := logs.ParseEntry(sampleLines[2])
	if logs.Format(raw) != "not json at all" {
		t.Fatalf("raw lines should pass through, got %q", logs.Format(raw))
	}
}
