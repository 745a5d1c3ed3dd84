package memory

import (
	"time"

	"murmur/internal/config"
)

// Policy holds the retention thresholds applied by every cleanup pass. It is
// fixed for the lifetime of a Manager.
type Policy struct {
	Retention         time.Duration
	PressureRetention time.Duration

	HardCap       int
	RecentWindow  int
	KeepCompleted int
	KeepFailed    int

	EmergencyRecent     int
	EmergencyFailures   int
	EmergencyFailureAge time.Duration

	Interval         time.Duration
	PressureInterval time.Duration
}

// DefaultPolicy mirrors the defaults in config.Default.
func DefaultPolicy() Policy {
	cfg := config.Default()
	return PolicyFromConfig(cfg.Memory)
}

// PolicyFromConfig converts the [memory] config section.
func PolicyFromConfig(m config.Memory) Policy {
	return Policy{
		Retention:           seconds(m.RetentionSeconds),
		PressureRetention:   seconds(m.PressureRetentionSeconds),
		HardCap:             m.HardCap,
		RecentWindow:        m.RecentWindow,
		KeepCompleted:       m.KeepCompleted,
		KeepFailed:          m.KeepFailed,
		EmergencyRecent:     m.EmergencyRecent,
		EmergencyFailures:   m.EmergencyFailures,
		EmergencyFailureAge: seconds(m.EmergencyFailureAgeSeconds),
		Interval:            seconds(m.IntervalSeconds),
		PressureInterval:    seconds(m.PressureIntervalSeconds),
	}
}

// RetentionFor returns the time-based retention threshold for the given mode.
func (p Policy) RetentionFor(pressure bool) time.Duration {
	if pressure {
		return p.PressureRetention
	}
	return p.Retention
}

// IntervalFor returns the timer cadence for the given mode.
func (p Policy) IntervalFor(pressure bool) time.Duration {
	if pressure {
		return p.PressureInterval
	}
	return p.Interval
}

func seconds(v int) time.Duration {
	return time.Duration(v) * time.Second
}
