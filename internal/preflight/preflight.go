package preflight

import (
	"context"

	"murmur/internal/config"
	"murmur/internal/pressure"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// RunAll executes all applicable preflight checks for the given config.
// Checks are only run when the corresponding feature is enabled. A nil
// probe selects the platform default.
func RunAll(ctx context.Context, cfg *config.Config, probe pressure.Probe) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{CheckConfig(cfg)}

	if cfg.Logging.Dir != "" {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Logging.Dir))
	}

	if cfg.Notifications.NtfyTopic != "" {
		results = append(results, CheckNtfy(ctx, cfg.Notifications.NtfyTopic, cfg.RequestTimeout()))
	}

	if cfg.Pressure.Enabled {
		if probe == nil {
			probe = pressure.SysinfoProbe{}
		}
		results = append(results, CheckPressureProbe(ctx, probe, pressure.ThresholdsFromConfig(cfg.Pressure)))
	}

	return results
}

// AllPassed reports whether every result passed.
func AllPassed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return true
}
