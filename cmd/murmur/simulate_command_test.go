package main

import (
	"encoding/json"
	"testing"

	"murmur/internal/operation"
)

const replaceScenario = `
name = "recording preempts transcription"

[[step]]
action = "register"
category = "transcription"
target = "rec-1"
as = "tx"

[[step]]
action = "progress"
ref = "tx"
percent = 40
label = "decoding"

[[step]]
action = "register"
category = "recording"
target = "rec-1"
as = "rec"
advance = "1s"

[[step]]
action = "register"
category = "transcription"
target = "rec-1"
as = "tx2"

[[step]]
action = "complete"
ref = "rec"
advance = "3s"
`

func TestSimulateReplaysScenario(t *testing.T) {
	configPath := newTestConfigFile(t)
	scenarioPath := writeScenario(t, replaceScenario)

	out, _, err := runCLI(t, []string{"simulate", scenarioPath}, configPath)
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	requireContains(t, out, "Scenario: recording preempts transcription")
	requireContains(t, out, "register recording(rec-1) -> active as op-2")
	requireContains(t, out, "op-1 transcription(rec-1) Active -> Cancelled")
	requireContains(t, out, "register transcription(rec-1) -> pending as op-3")
	requireContains(t, out, "op-3 transcription(rec-1) Pending -> Active")
}

func TestSimulateJSONReport(t *testing.T) {
	configPath := newTestConfigFile(t)
	scenarioPath := writeScenario(t, replaceScenario)

	out, _, err := runCLI(t, []string{"simulate", "--json", scenarioPath}, configPath)
	if err != nil {
		t.Fatalf("simulate --json: %v", err)
	}
	var report simulationReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode report: %v\n%s", err, out)
	}
	if len(report.Steps) != 5 {
		t.Fatalf("expected 5 steps, got %d", len(report.Steps))
	}
	statuses := make(map[string]operation.Status)
	for _, op := range report.Operations {
		statuses[op.ID] = op.Status
	}
	want := map[string]operation.Status{
		"op-1": operation.StatusCancelled,
		"op-2": operation.StatusCompleted,
		"op-3": operation.StatusActive,
	}
	for id, status := range want {
		if statuses[id] != status {
			t.Fatalf("%s: expected %s, got %s (all %v)", id, status, statuses[id], statuses)
		}
	}
	if report.Metrics.Completed != 1 || report.Metrics.Cancelled != 1 || report.Metrics.Active != 1 {
		t.Fatalf("unexpected metrics %+v", report.Metrics)
	}
	if report.Metrics.AverageExecutionTime != 3 {
		t.Fatalf("expected 3s average execution, got %v", report.Metrics.AverageExecutionTime)
	}
}

func TestSimulateRejectsUnknownAction(t *testing.T) {
	configPath := newTestConfigFile(t)
	scenarioPath := writeScenario(t, "[[step]]\naction = \"explode\"\n")
	if _, _, err := runCLI(t, []string{"simulate", scenarioPath}, configPath); err == nil {
		t.Fatal("expected unknown action to fail")
	}
}

func TestSimulateRejectsUnknownKeys(t *testing.T) {
	configPath := newTestConfigFile(t)
	scenarioPath := writeScenario(t, "[[step]]\naction = \"wait\"\nduration = \"1s\"\n")
	if _, _, err := runCLI(t, []string{"simulate", scenarioPath}, configPath); err == nil {
		t.Fatal("expected unknown scenario key to fail")
	}
}
