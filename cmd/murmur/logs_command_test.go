package main

import (
	"strings"
	"testing"

	"murmur/internal/testsupport"
)

func TestLogsFiltersByOperation(t *testing.T) {
	configPath := newTestConfigFile(t, testsupport.WithLogDir())
	scenarioPath := writeScenario(t, replaceScenario)
	if _, _, err := runCLI(t, []string{"simulate", scenarioPath}, configPath); err != nil {
		t.Fatalf("simulate: %v", err)
	}

	out, _, err := runCLI(t, []string{"logs", "--lines", "500", "--operation", "op-2"}, configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	requireContains(t, out, "operation registered")
	requireContains(t, out, "operation_id=op-2")
	if strings.Contains(out, "operation_id=op-1 ") {
		t.Fatalf("expected op-1 lines to be filtered out:\n%s", out)
	}
}

func TestLogsRequiresLogDir(t *testing.T) {
	configPath := newTestConfigFile(t)
	if _, _, err := runCLI(t, []string{"logs"}, configPath); err == nil {
		t.Fatal("expected logs to fail without logging.dir")
	}
}
