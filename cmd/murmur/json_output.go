package main

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"
)

// jsonFlag is the --json switch shared by the report commands.
type jsonFlag struct {
	enabled bool
}

func (f *jsonFlag) register(cmd *cobra.Command, what string) {
	cmd.Flags().BoolVar(&f.enabled, "json", false, "Emit the "+what+" as JSON")
}

// emit writes v as indented JSON when the flag is set, otherwise it hands
// stdout to text.
func (f *jsonFlag) emit(cmd *cobra.Command, v any, text func(io.Writer)) error {
	out := cmd.OutOrStdout()
	if !f.enabled {
		text(out)
		return nil
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
