package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/pelletier/go-toml/v2"

	"murmur/internal/config"
	"murmur/internal/coordinator"
	"murmur/internal/notifications"
	"murmur/internal/operation"
)

// simulationEpoch anchors the simulated clock so replays are reproducible.
var simulationEpoch = time.Date(2026, time.January, 5, 9, 0, 0, 0, time.UTC)

type scenario struct {
	Name          string         `toml:"name"`
	MaxConcurrent int            `toml:"max_concurrent"`
	Steps         []scenarioStep `toml:"step"`
}

type scenarioStep struct {
	Action   string  `toml:"action"`
	As       string  `toml:"as"`
	Ref      string  `toml:"ref"`
	Category string  `toml:"category"`
	Target   string  `toml:"target"`
	Kind     string  `toml:"kind"`
	Reason   string  `toml:"reason"`
	Label    string  `toml:"label"`
	Percent  float64 `toml:"percent"`
	Advance  string  `toml:"advance"`
}

type stepResult struct {
	Index   int                   `json:"index"`
	Action  string                `json:"action"`
	Subject string                `json:"subject,omitempty"`
	Outcome string                `json:"outcome"`
	At      time.Time             `json:"at"`
	Events  []notifications.Event `json:"events,omitempty"`
}

type simulationReport struct {
	Name       string                `json:"name,omitempty"`
	Steps      []stepResult          `json:"steps"`
	Operations []operation.Operation `json:"operations"`
	Queue      map[string]int        `json:"queue,omitempty"`
	Metrics    coordinator.Metrics   `json:"metrics"`
}

func loadScenario(path string) (*scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	var sc scenario
	decoder := toml.NewDecoder(strings.NewReader(string(data)))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&sc); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return nil, fmt.Errorf("parse scenario %s: %s", path, strict.String())
		}
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if len(sc.Steps) == 0 {
		return nil, fmt.Errorf("scenario %s has no [[step]] entries", path)
	}
	return &sc, nil
}

// manualClock only moves when a scenario step advances it.
type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type eventLog struct {
	mu     sync.Mutex
	events []notifications.Event
}

func (l *eventLog) OperationChanged(ev notifications.Event) {
	l.mu.Lock()
	l.events = append(l.events, ev)
	l.mu.Unlock()
}

func (l *eventLog) drain() []notifications.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := l.events
	l.events = nil
	return out
}

func runScenario(ctx context.Context, sc *scenario, base *config.Config, logger *slog.Logger) (*simulationReport, error) {
	cfg := *base
	if sc.MaxConcurrent > 0 {
		cfg.Coordinator.MaxConcurrent = sc.MaxConcurrent
	}
	cfg.Notifications.NtfyTopic = ""

	clock := &manualClock{now: simulationEpoch}
	seq := 0
	coord := coordinator.New(&cfg, logger,
		coordinator.WithClock(clock),
		coordinator.WithExecutor(notifications.InlineExecutor{}),
		coordinator.WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("op-%d", seq)
		}),
	)
	defer coord.Shutdown()
	events := &eventLog{}
	coord.SetObserver(events)

	aliases := make(map[string]string)
	resolve := func(step scenarioStep) (string, error) {
		ref := strings.TrimSpace(step.Ref)
		if ref == "" {
			return "", fmt.Errorf("%s requires ref", step.Action)
		}
		if id, ok := aliases[ref]; ok {
			return id, nil
		}
		return ref, nil
	}

	report := &simulationReport{Name: sc.Name}
	for i, step := range sc.Steps {
		if step.Advance != "" {
			d, err := time.ParseDuration(step.Advance)
			if err != nil || d < 0 {
				return nil, fmt.Errorf("step %d: invalid advance %q", i+1, step.Advance)
			}
			clock.advance(d)
		}

		res := stepResult{Index: i + 1, Action: strings.ToLower(strings.TrimSpace(step.Action)), At: clock.Now()}
		switch res.Action {
		case "wait":
			res.Outcome = "clock advanced"
		case "register":
			typ, err := operation.ParseType(step.Category, step.Target, step.Kind)
			if err != nil {
				return nil, fmt.Errorf("step %d: %w", i+1, err)
			}
			res.Subject = typ.String()
			id, ok := coord.Register(ctx, typ)
			if !ok {
				res.Outcome = "rejected"
				break
			}
			if step.As != "" {
				aliases[step.As] = id
			}
			op, _ := coord.Get(id)
			res.Outcome = fmt.Sprintf("%s as %s", op.Status, id)
		case "start", "complete", "fail", "cancel", "progress":
			id, err := resolve(step)
			if err != nil {
				return nil, fmt.Errorf("step %d: %w", i+1, err)
			}
			res.Subject = id
			res.Outcome = applyToOperation(ctx, coord, res.Action, id, step)
		case "cancel_target":
			res.Subject = step.Target
			res.Outcome = fmt.Sprintf("cancelled %d", coord.CancelAllFor(ctx, step.Target))
		case "cancel_category":
			category, ok := operation.ParseCategory(step.Category)
			if !ok {
				return nil, fmt.Errorf("step %d: unknown category %q", i+1, step.Category)
			}
			res.Subject = string(category)
			res.Outcome = fmt.Sprintf("cancelled %d", coord.CancelAllOf(ctx, category))
		case "cancel_all":
			res.Outcome = fmt.Sprintf("cancelled %d", coord.CancelAll(ctx))
		case "pressure", "relieve":
			under := res.Action == "pressure"
			if coord.SetPressure(ctx, under) {
				res.Outcome = map[bool]string{true: "pressure latched", false: "pressure relieved"}[under]
			} else {
				res.Outcome = "unchanged"
			}
		case "cleanup":
			pass := coord.RunCleanup(ctx)
			res.Outcome = fmt.Sprintf("evicted %d (%d -> %d)", pass.Evicted, pass.Before, pass.After)
		default:
			return nil, fmt.Errorf("step %d: unknown action %q", i+1, step.Action)
		}
		res.Events = events.drain()
		report.Steps = append(report.Steps, res)
	}

	report.Operations = coord.All()
	report.Queue = make(map[string]int)
	for i, op := range coord.QueuedInOrder() {
		report.Queue[op.ID] = i + 1
	}
	report.Metrics = coord.Metrics()
	return report, nil
}

func applyToOperation(ctx context.Context, coord *coordinator.Coordinator, action, id string, step scenarioStep) string {
	outcome := func(ok bool, yes, no string) string {
		if ok {
			return yes
		}
		return no
	}
	switch action {
	case "start":
		return outcome(coord.Start(ctx, id), "started", "refused")
	case "complete":
		return outcome(coord.Complete(ctx, id), "completed", "ignored")
	case "fail":
		return outcome(coord.Fail(ctx, id, step.Reason), "failed", "ignored")
	case "cancel":
		return outcome(coord.Cancel(ctx, id, step.Reason), "cancelled", "ignored")
	default:
		coord.UpdateProgress(ctx, id, operation.NewProgress(step.Percent/100, step.Label))
		op, ok := coord.Get(id)
		if !ok || op.IsTerminal() || op.Progress == nil {
			return "ignored"
		}
		return fmt.Sprintf("progress %s", formatPercent(op.Progress.Percentage))
	}
}
