package config

const (
	defaultConfigPath = "~/.config/murmur/config.toml"

	// DefaultMaxConcurrent caps simultaneously active operations.
	DefaultMaxConcurrent = 10

	defaultRetentionSeconds           = 30 * 60
	defaultPressureRetentionSeconds   = 5 * 60
	defaultHardCap                    = 500
	defaultRecentWindow               = 50
	defaultKeepCompleted              = 100
	defaultKeepFailed                 = 50
	defaultEmergencyRecent            = 10
	defaultEmergencyFailures          = 5
	defaultEmergencyFailureAgeSeconds = 120
	defaultMemoryIntervalSeconds      = 60
	defaultPressureIntervalSeconds    = 15

	defaultPressurePollSeconds    = 10
	defaultPressureFreeRatio      = 0.10
	defaultPressureReliefRatio    = 0.20
	defaultNotifyRequestTimeout   = 10
	defaultNotifyStreamCapacity   = 512
	defaultNotifySinkBuffer       = 64
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
	defaultNotifyOnFailedStatuses = "failed"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Coordinator: Coordinator{
			MaxConcurrent: DefaultMaxConcurrent,
		},
		Memory: Memory{
			RetentionSeconds:           defaultRetentionSeconds,
			PressureRetentionSeconds:   defaultPressureRetentionSeconds,
			HardCap:                    defaultHardCap,
			RecentWindow:               defaultRecentWindow,
			KeepCompleted:              defaultKeepCompleted,
			KeepFailed:                 defaultKeepFailed,
			EmergencyRecent:            defaultEmergencyRecent,
			EmergencyFailures:          defaultEmergencyFailures,
			EmergencyFailureAgeSeconds: defaultEmergencyFailureAgeSeconds,
			IntervalSeconds:            defaultMemoryIntervalSeconds,
			PressureIntervalSeconds:    defaultPressureIntervalSeconds,
		},
		Pressure: Pressure{
			Enabled:              false,
			PollIntervalSeconds:  defaultPressurePollSeconds,
			FreeRatioThreshold:   defaultPressureFreeRatio,
			ReliefRatioThreshold: defaultPressureReliefRatio,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			NotifyOn:       []string{defaultNotifyOnFailedStatuses},
			StreamCapacity: defaultNotifyStreamCapacity,
			SinkBuffer:     defaultNotifySinkBuffer,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
