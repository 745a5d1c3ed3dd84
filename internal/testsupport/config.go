package testsupport

import (
	"path/filepath"
	"testing"

	"murmur/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a validated config seeded with a unique temp directory
// per test. It applies any provided options before validating.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Logging.Level = "debug"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return builder.cfg
}

// WithMaxConcurrent overrides the coordinator capacity.
func WithMaxConcurrent(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Coordinator.MaxConcurrent = n
	}
}

// WithLogDir enables file logging inside the test's temp directory.
func WithLogDir() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Logging.Dir = filepath.Join(b.baseDir, "logs")
	}
}

// WithMemory replaces the [memory] section.
func WithMemory(fn func(*config.Memory)) ConfigOption {
	return func(b *configBuilder) {
		fn(&b.cfg.Memory)
	}
}

// WithNtfyTopic points the notification sink at topic.
func WithNtfyTopic(topic string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyTopic = topic
	}
}

// WithPressure adjusts the [pressure] section.
func WithPressure(fn func(*config.Pressure)) ConfigOption {
	return func(b *configBuilder) {
		fn(&b.cfg.Pressure)
	}
}
