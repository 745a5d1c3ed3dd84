package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"murmur/internal/pressure"
)

type pressureReport struct {
	TotalBytes     uint64  `json:"total_bytes"`
	AvailableBytes uint64  `json:"available_bytes"`
	FreeRatio      float64 `json:"free_ratio"`
	EnterBelow     float64 `json:"enter_below"`
	RelieveAbove   float64 `json:"relieve_above"`
	WouldLatch     bool    `json:"would_latch"`
	MonitorEnabled bool    `json:"monitor_enabled"`
}

func samplePressure(ctx context.Context, probe pressure.Probe, thresholds pressure.Thresholds) (pressureReport, error) {
	sample, err := probe.Sample(ctx)
	if err != nil {
		return pressureReport{}, fmt.Errorf("sample host memory: %w", err)
	}
	ratio := sample.FreeRatio()
	return pressureReport{
		TotalBytes:     sample.Total,
		AvailableBytes: sample.Available,
		FreeRatio:      ratio,
		EnterBelow:     thresholds.Enter,
		RelieveAbove:   thresholds.Exit,
		WouldLatch:     ratio < thresholds.Enter,
	}, nil
}

func newPressureCommand(ctx *commandContext) *cobra.Command {
	var output jsonFlag
	var probe pressure.Probe = pressure.SysinfoProbe{}

	cmd := &cobra.Command{
		Use:   "pressure",
		Short: "Sample host memory against the configured pressure thresholds",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			report, err := samplePressure(cmd.Context(), probe, pressure.ThresholdsFromConfig(cfg.Pressure))
			if err != nil {
				return err
			}
			report.MonitorEnabled = cfg.Pressure.Enabled
			return output.emit(cmd, report, func(out io.Writer) {
				fmt.Fprintf(out, "Host memory:    %d MiB available of %d MiB (%s free)\n", report.AvailableBytes>>20, report.TotalBytes>>20, formatPercent(report.FreeRatio))
				fmt.Fprintf(out, "Thresholds:     latch below %s, relieve above %s\n", formatPercent(report.EnterBelow), formatPercent(report.RelieveAbove))
				fmt.Fprintf(out, "Monitor:        %s\n", enabledLabel(report.MonitorEnabled))
				fmt.Fprintf(out, "Would latch:    %s\n", yesNo(report.WouldLatch))
			})
		},
	}
	output.register(cmd, "sample")
	return cmd
}

func enabledLabel(value bool) string {
	if value {
		return "enabled"
	}
	return "disabled"
}
