package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"murmur/internal/config"
	"murmur/internal/notifications"
)

func newSimulateCommand(ctx *commandContext) *cobra.Command {
	var output jsonFlag

	cmd := &cobra.Command{
		Use:   "simulate <scenario.toml>",
		Short: "Replay a scenario of operations against an in-memory coordinator",
		Long: `Replay a TOML scenario against a coordinator driven by a simulated clock.

Each [[step]] names an action (register, start, progress, complete, fail,
cancel, cancel_target, cancel_category, cancel_all, pressure, relieve,
cleanup, wait) and may advance the clock first with advance = "2s".
Registered operations can be named with as = "..." and referenced later
with ref = "...".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger()
			if err != nil {
				return err
			}
			path, err := config.ExpandPath(strings.TrimSpace(args[0]))
			if err != nil {
				return fmt.Errorf("resolve scenario path: %w", err)
			}
			sc, err := loadScenario(path)
			if err != nil {
				return err
			}
			report, err := runScenario(cmd.Context(), sc, cfg, logger)
			if err != nil {
				return err
			}
			return output.emit(cmd, report, func(out io.Writer) {
				printReport(out, report)
			})
		},
	}
	output.register(cmd, "report")
	return cmd
}

func printReport(out io.Writer, report *simulationReport) {
	if report.Name != "" {
		fmt.Fprintf(out, "Scenario: %s\n\n", report.Name)
	}
	start := simulationEpoch
	for _, step := range report.Steps {
		line := fmt.Sprintf("%3d. [+%s] %s", step.Index, formatDuration(step.At.Sub(start)), step.Action)
		if step.Subject != "" {
			line += " " + step.Subject
		}
		fmt.Fprintf(out, "%s -> %s\n", line, step.Outcome)
		for _, ev := range step.Events {
			fmt.Fprintf(out, "       %s\n", describeEvent(ev))
		}
	}
	fmt.Fprintln(out)
	if len(report.Operations) > 0 {
		fmt.Fprintln(out, renderOperations(report.Operations, report.Queue))
	}
	fmt.Fprintln(out, renderMetrics(report.Metrics))
}

func describeEvent(ev notifications.Event) string {
	subject := fmt.Sprintf("#%d %s %s(%s)", ev.Seq, ev.OperationID, ev.Type.Category, ev.Target)
	if !ev.IsTransition() {
		if ev.Progress != nil {
			return fmt.Sprintf("%s progress %s %s", subject, formatPercent(ev.Progress.Percentage), ev.Progress.CurrentStep)
		}
		return subject + " updated"
	}
	return fmt.Sprintf("%s %s -> %s", subject, statusLabel(ev.PreviousStatus), statusLabel(ev.CurrentStatus))
}
