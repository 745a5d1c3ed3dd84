package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"murmur/internal/logging"
	"murmur/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var (
		lines   int
		follow  bool
		rawOut  bool
		level   string
		filters logs.Filter
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show coordinator logs written under logging.dir",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			dir := strings.TrimSpace(cfg.Logging.Dir)
			if dir == "" {
				return errors.New("file logging is disabled; set logging.dir to keep a log file")
			}
			if level != "" {
				if err := filters.MinLevel.UnmarshalText([]byte(level)); err != nil {
					return fmt.Errorf("invalid --level %q", level)
				}
			}
			path := filepath.Join(dir, logging.LogFileName)
			return streamLogs(cmd.Context(), cmd.OutOrStdout(), path, lines, follow, rawOut, filters)
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines as they are written")
	cmd.Flags().BoolVar(&rawOut, "raw", false, "Print the JSON lines unchanged")
	cmd.Flags().StringVar(&filters.OperationID, "operation", "", "Only show lines for this operation id (prefix match)")
	cmd.Flags().StringVar(&filters.Target, "target", "", "Only show lines for this recording")
	cmd.Flags().StringVar(&level, "level", "", "Minimum level to show (debug, info, warn, error)")
	return cmd
}

func streamLogs(ctx context.Context, out io.Writer, path string, lines int, follow, raw bool, filter logs.Filter) error {
	opts := logs.TailOptions{Offset: -1, Limit: lines}
	for {
		result, err := logs.Tail(ctx, path, opts)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		for _, entry := range filter.Apply(result.Lines) {
			if raw {
				fmt.Fprintln(out, entry.Raw)
			} else {
				fmt.Fprintln(out, logs.Format(entry))
			}
		}
		if !follow {
			return nil
		}
		opts = logs.TailOptions{Offset: result.Offset, Follow: true, Wait: 5 * time.Second}
	}
}

