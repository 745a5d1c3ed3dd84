package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Coordinator contains admission settings.
type Coordinator struct {
	MaxConcurrent int `toml:"max_concurrent"`
}

// Memory contains the retention policy for terminal operations.
type Memory struct {
	RetentionSeconds           int `toml:"retention_seconds"`
	PressureRetentionSeconds   int `toml:"pressure_retention_seconds"`
	HardCap                    int `toml:"hard_cap"`
	RecentWindow               int `toml:"recent_window"`
	KeepCompleted              int `toml:"keep_completed"`
	KeepFailed                 int `toml:"keep_failed"`
	EmergencyRecent            int `toml:"emergency_recent"`
	EmergencyFailures          int `toml:"emergency_failures"`
	EmergencyFailureAgeSeconds int `toml:"emergency_failure_age_seconds"`
	IntervalSeconds            int `toml:"interval_seconds"`
	PressureIntervalSeconds    int `toml:"pressure_interval_seconds"`
}

// Pressure contains settings for the host memory pressure probe.
type Pressure struct {
	Enabled              bool    `toml:"enabled"`
	PollIntervalSeconds  int     `toml:"poll_interval_seconds"`
	FreeRatioThreshold   float64 `toml:"free_ratio_threshold"`
	ReliefRatioThreshold float64 `toml:"relief_ratio_threshold"`
}

// Notifications contains settings for the notification bridge and the
// optional ntfy sink.
type Notifications struct {
	NtfyTopic      string   `toml:"ntfy_topic"`
	RequestTimeout int      `toml:"request_timeout"`
	NotifyOn       []string `toml:"notify_on"`
	StreamCapacity int      `toml:"stream_capacity"`
	SinkBuffer     int      `toml:"sink_buffer"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	Dir    string `toml:"dir"`
}

// Config encapsulates all configuration values for murmur.
//
// Configuration sections by subsystem:
//   - Coordinator: global concurrency cap
//   - Memory: retention windows and cleanup cadence
//   - Pressure: host memory pressure probe
//   - Notifications: event stream sizing and ntfy delivery
//   - Logging: log format, level, and optional file output
type Config struct {
	Coordinator   Coordinator   `toml:"coordinator"`
	Memory        Memory        `toml:"memory"`
	Pressure      Pressure      `toml:"pressure"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			var strict *toml.StrictMissingError
			if errors.As(err, &strict) {
				return nil, "", false, fmt.Errorf("parse config: %s", strings.TrimSpace(strict.String()))
			}
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("murmur.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the log directory when file logging is configured.
func (c *Config) EnsureDirectories() error {
	if strings.TrimSpace(c.Logging.Dir) == "" {
		return nil
	}
	if err := os.MkdirAll(c.Logging.Dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", c.Logging.Dir, err)
	}
	return nil
}

// RequestTimeout returns the ntfy request timeout.
func (c *Config) RequestTimeout() time.Duration {
	return seconds(c.Notifications.RequestTimeout)
}

// PressurePollInterval returns how often the pressure probe samples the host.
func (c *Config) PressurePollInterval() time.Duration {
	return seconds(c.Pressure.PollIntervalSeconds)
}

func seconds(v int) time.Duration {
	return time.Duration(v) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders cfg as TOML.
func (c *Config) Encode() (string, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	return string(data), nil
}
