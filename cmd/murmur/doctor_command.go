package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"murmur/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	var output jsonFlag

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Run preflight checks against the current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			results := preflight.RunAll(cmd.Context(), cfg, nil)
			err = output.emit(cmd, results, func(out io.Writer) {
				rows := make([][]string, 0, len(results))
				for _, r := range results {
					state := "OK"
					if !r.Passed {
						state = "FAIL"
					}
					rows = append(rows, []string{r.Name, state, r.Detail})
				}
				fmt.Fprintln(out, renderTable([]string{"Check", "Result", "Detail"}, rows, nil))
			})
			if err != nil {
				return err
			}
			if !preflight.AllPassed(results) {
				return fmt.Errorf("one or more preflight checks failed")
			}
			return nil
		},
	}
	output.register(cmd, "results")
	return cmd
}
