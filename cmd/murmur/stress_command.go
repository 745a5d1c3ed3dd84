package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"murmur/internal/config"
	"murmur/internal/conflict"
	"murmur/internal/coordinator"
	"murmur/internal/notifications"
	"murmur/internal/operation"
)

type stressOptions struct {
	Workers int
	Ops     int
	Targets int
	Seed    int64
}

type stressReport struct {
	Options    stressOptions       `json:"options"`
	Registered int64               `json:"registered"`
	Rejected   int64               `json:"rejected"`
	Events     int                 `json:"events"`
	Violations []string            `json:"violations,omitempty"`
	Elapsed    time.Duration       `json:"elapsed"`
	Metrics    coordinator.Metrics `json:"metrics"`
}

// conflictAuditor replays delivered events and records every moment two
// conflicting operations were active on one target.
type conflictAuditor struct {
	mu         sync.Mutex
	active     map[string]map[string]operation.Category
	lastSeq    uint64
	events     int
	violations []string
}

func newConflictAuditor() *conflictAuditor {
	return &conflictAuditor{active: make(map[string]map[string]operation.Category)}
}

func (a *conflictAuditor) OperationChanged(ev notifications.Event) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events++
	if ev.Seq <= a.lastSeq {
		a.violations = append(a.violations, fmt.Sprintf("event #%d delivered after #%d", ev.Seq, a.lastSeq))
	}
	a.lastSeq = ev.Seq
	if !ev.IsTransition() {
		return
	}
	running := a.active[ev.Target]
	switch {
	case ev.CurrentStatus == operation.StatusActive:
		for id, category := range running {
			if conflict.Conflicts(category, ev.Type.Category) {
				a.violations = append(a.violations, fmt.Sprintf("%s started on %s while %s %s was active", ev.OperationID, ev.Target, category, id))
			}
		}
		if running == nil {
			running = make(map[string]operation.Category)
			a.active[ev.Target] = running
		}
		running[ev.OperationID] = ev.Type.Category
	case ev.CurrentStatus.IsTerminal():
		delete(running, ev.OperationID)
	}
}

func runStress(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts stressOptions) *stressReport {
	auditor := newConflictAuditor()
	exec := notifications.NewSerialExecutor()
	coord := coordinator.New(cfg, logger, coordinator.WithExecutor(exec))
	coord.SetObserver(auditor)

	report := &stressReport{Options: opts}
	started := time.Now()
	var wg sync.WaitGroup
	for w := 0; w < opts.Workers; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(opts.Seed + int64(worker)))
			categories := operation.AllCategories()
			for i := 0; i < opts.Ops; i++ {
				if ctx.Err() != nil {
					return
				}
				target := fmt.Sprintf("rec-%d", rng.Intn(opts.Targets))
				typ, _ := operation.ParseType(string(categories[rng.Intn(len(categories))]), target, string(operation.AnalysisSummary))
				id, ok := coord.Register(ctx, typ)
				if !ok {
					atomic.AddInt64(&report.Rejected, 1)
					continue
				}
				atomic.AddInt64(&report.Registered, 1)
				coord.UpdateProgress(ctx, id, operation.NewProgress(rng.Float64(), "working"))
				switch rng.Intn(4) {
				case 0:
					coord.Fail(ctx, id, "simulated failure")
				case 1:
					coord.Cancel(ctx, id, "simulated cancel")
				default:
					coord.Complete(ctx, id)
				}
			}
		}(w)
	}
	wg.Wait()
	coord.CancelAll(ctx)
	report.Metrics = coord.Metrics()
	coord.Shutdown()
	report.Elapsed = time.Since(started)

	auditor.mu.Lock()
	report.Events = auditor.events
	report.Violations = append(report.Violations, auditor.violations...)
	auditor.mu.Unlock()
	return report
}

func newStressCommand(ctx *commandContext) *cobra.Command {
	opts := stressOptions{Workers: 8, Ops: 200, Targets: 4}
	var output jsonFlag

	cmd := &cobra.Command{
		Use:   "stress",
		Short: "Hammer a coordinator from concurrent goroutines and audit the conflict invariant",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Workers <= 0 || opts.Ops <= 0 || opts.Targets <= 0 {
				return fmt.Errorf("--workers, --ops and --targets must be positive")
			}
			if opts.Seed == 0 {
				opts.Seed = time.Now().UnixNano()
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger()
			if err != nil {
				return err
			}
			local := *cfg
			local.Notifications.NtfyTopic = ""

			report := runStress(cmd.Context(), &local, logger, opts)
			err = output.emit(cmd, report, func(out io.Writer) {
				fmt.Fprintf(out, "Workers: %d  Ops/worker: %d  Targets: %d  Seed: %d\n", opts.Workers, opts.Ops, opts.Targets, opts.Seed)
				fmt.Fprintf(out, "Registered: %d  Rejected: %d  Events: %d  Elapsed: %s\n", report.Registered, report.Rejected, report.Events, formatDuration(report.Elapsed))
				fmt.Fprintln(out, renderMetrics(report.Metrics))
				for _, v := range report.Violations {
					fmt.Fprintf(out, "VIOLATION: %s\n", v)
				}
			})
			if err != nil {
				return err
			}
			if len(report.Violations) > 0 {
				return fmt.Errorf("stress run found %d invariant violations", len(report.Violations))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&opts.Workers, "workers", opts.Workers, "Concurrent goroutines issuing operations")
	cmd.Flags().IntVar(&opts.Ops, "ops", opts.Ops, "Operations registered per worker")
	cmd.Flags().IntVar(&opts.Targets, "targets", opts.Targets, "Distinct recordings the workers contend on")
	cmd.Flags().Int64Var(&opts.Seed, "seed", 0, "Random seed (0 picks one)")
	output.register(cmd, "report")
	return cmd
}
