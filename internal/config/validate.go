package config

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

var knownStatuses = map[string]struct{}{
	"pending":   {},
	"active":    {},
	"completed": {},
	"failed":    {},
	"cancelled": {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateCoordinator(); err != nil {
		return err
	}
	if err := c.validateMemory(); err != nil {
		return err
	}
	if err := c.validatePressure(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateCoordinator() error {
	if c.Coordinator.MaxConcurrent <= 0 {
		return errors.New("coordinator.max_concurrent must be positive")
	}
	return nil
}

func (c *Config) validateMemory() error {
	m := c.Memory
	if err := ensurePositiveMap(map[string]int{
		"memory.retention_seconds":             m.RetentionSeconds,
		"memory.pressure_retention_seconds":    m.PressureRetentionSeconds,
		"memory.hard_cap":                      m.HardCap,
		"memory.interval_seconds":              m.IntervalSeconds,
		"memory.pressure_interval_seconds":     m.PressureIntervalSeconds,
		"memory.emergency_failure_age_seconds": m.EmergencyFailureAgeSeconds,
	}); err != nil {
		return err
	}
	if err := ensureNonNegativeMap(map[string]int{
		"memory.recent_window":      m.RecentWindow,
		"memory.keep_completed":     m.KeepCompleted,
		"memory.keep_failed":        m.KeepFailed,
		"memory.emergency_recent":   m.EmergencyRecent,
		"memory.emergency_failures": m.EmergencyFailures,
	}); err != nil {
		return err
	}
	if m.PressureRetentionSeconds > m.RetentionSeconds {
		return errors.New("memory.pressure_retention_seconds must not exceed memory.retention_seconds")
	}
	if m.PressureIntervalSeconds > m.IntervalSeconds {
		return errors.New("memory.pressure_interval_seconds must not exceed memory.interval_seconds")
	}
	if m.RecentWindow+m.KeepCompleted+m.KeepFailed > m.HardCap {
		return errors.New("memory.recent_window + keep_completed + keep_failed must not exceed memory.hard_cap")
	}
	if m.EmergencyRecent > m.RecentWindow {
		return errors.New("memory.emergency_recent must not exceed memory.recent_window")
	}
	return nil
}

func (c *Config) validatePressure() error {
	p := c.Pressure
	if !p.Enabled {
		return nil
	}
	if p.PollIntervalSeconds <= 0 {
		return errors.New("pressure.poll_interval_seconds must be positive when pressure.enabled is true")
	}
	if p.FreeRatioThreshold <= 0 || p.FreeRatioThreshold >= 1 {
		return errors.New("pressure.free_ratio_threshold must be between 0 and 1")
	}
	if p.ReliefRatioThreshold <= p.FreeRatioThreshold || p.ReliefRatioThreshold >= 1 {
		return errors.New("pressure.relief_ratio_threshold must be above pressure.free_ratio_threshold and below 1")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	n := c.Notifications
	if n.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	if n.StreamCapacity <= 0 {
		return errors.New("notifications.stream_capacity must be positive")
	}
	if n.SinkBuffer <= 0 {
		return errors.New("notifications.sink_buffer must be positive")
	}
	for _, status := range n.NotifyOn {
		if _, ok := knownStatuses[status]; !ok {
			return fmt.Errorf("notifications.notify_on: unknown status %q", status)
		}
	}
	if n.NtfyTopic != "" && !strings.HasPrefix(n.NtfyTopic, "http://") && !strings.HasPrefix(n.NtfyTopic, "https://") {
		return errors.New("notifications.ntfy_topic must be a full http(s) URL")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for _, key := range sortedKeys(values) {
		if values[key] <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}

func ensureNonNegativeMap(values map[string]int) error {
	for _, key := range sortedKeys(values) {
		if values[key] < 0 {
			return fmt.Errorf("%s must be >= 0", key)
		}
	}
	return nil
}

func sortedKeys(values map[string]int) []string {
	return slices.Sorted(maps.Keys(values))
}
