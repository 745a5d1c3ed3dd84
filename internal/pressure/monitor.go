package pressure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"murmur/internal/config"
	"murmur/internal/logging"
)

// ErrUnsupported is returned by probes that cannot read host memory on this platform.
var ErrUnsupported = errors.New("memory pressure probe unsupported on this platform")

// Sample is one reading of host memory.
type Sample struct {
	Total     uint64
	Available uint64
}

// FreeRatio returns available/total, or 1 when total is unknown.
func (s Sample) FreeRatio() float64 {
	if s.Total == 0 {
		return 1
	}
	return float64(s.Available) / float64(s.Total)
}

func (s Sample) String() string {
	return fmt.Sprintf("%.1f%% free (%d MiB of %d MiB)", s.FreeRatio()*100, s.Available>>20, s.Total>>20)
}

// Probe reads host memory.
type Probe interface {
	Sample(ctx context.Context) (Sample, error)
}

// SysinfoProbe samples memory through the kernel.
type SysinfoProbe struct{}

// Thresholds configures the hysteresis band. Pressure is entered when the free
// ratio drops below Enter and relieved once it climbs above Exit.
type Thresholds struct {
	Enter float64
	Exit  float64
}

// ThresholdsFromConfig converts the [pressure] config section.
func ThresholdsFromConfig(p config.Pressure) Thresholds {
	return Thresholds{Enter: p.FreeRatioThreshold, Exit: p.ReliefRatioThreshold}
}

// Handler receives pressure edges.
type Handler func(ctx context.Context, under bool)

// Monitor turns periodic samples into edge-triggered pressure signals.
type Monitor struct {
	probe      Probe
	thresholds Thresholds
	interval   time.Duration
	logger     *slog.Logger
	onChange   Handler

	mu       sync.Mutex
	under    bool
	last     Sample
	failures int
}

// NewMonitor constructs a monitor. onChange is invoked only on edges.
func NewMonitor(probe Probe, thresholds Thresholds, interval time.Duration, logger *slog.Logger, onChange Handler) *Monitor {
	if probe == nil {
		probe = SysinfoProbe{}
	}
	return &Monitor{
		probe:      probe,
		thresholds: thresholds,
		interval:   interval,
		logger:     logging.NewComponentLogger(logger, "pressure"),
		onChange:   onChange,
	}
}

// UnderPressure reports the last computed state.
func (m *Monitor) UnderPressure() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.under
}

// Last returns the most recent successful sample.
func (m *Monitor) Last() Sample {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// Observe applies sample to the hysteresis band and reports whether the
// state flipped. The handler runs outside the monitor's lock.
func (m *Monitor) Observe(ctx context.Context, sample Sample) bool {
	ratio := sample.FreeRatio()
	m.mu.Lock()
	m.last = sample
	m.failures = 0
	prev := m.under
	switch {
	case !m.under && ratio < m.thresholds.Enter:
		m.under = true
	case m.under && ratio > m.thresholds.Exit:
		m.under = false
	}
	next := m.under
	m.mu.Unlock()

	if prev == next {
		return false
	}
	m.logger.Info("host memory pressure changed",
		logging.String(logging.FieldEventType, "pressure_edge"),
		logging.Bool("under_pressure", next),
		logging.Float64("free_ratio", ratio),
		logging.String("sample", sample.String()),
	)
	if m.onChange != nil {
		m.onChange(ctx, next)
	}
	return true
}

// Check takes one sample and applies it.
func (m *Monitor) Check(ctx context.Context) (bool, error) {
	sample, err := m.probe.Sample(ctx)
	if err != nil {
		m.mu.Lock()
		m.failures++
		first := m.failures == 1
		m.mu.Unlock()
		if first && !errors.Is(err, context.Canceled) {
			logging.WarnWithContext(m.logger, "memory pressure probe failed; keeping previous state", "pressure_probe_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "disable [pressure] or check platform support"),
				logging.String(logging.FieldImpact, "pressure-driven cleanup will not react to host memory"),
			)
		}
		return false, err
	}
	return m.Observe(ctx, sample), nil
}

// Run samples on the configured interval until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	if m.interval <= 0 {
		return fmt.Errorf("pressure poll interval must be positive, got %s", m.interval)
	}
	if _, err := m.Check(ctx); errors.Is(err, ErrUnsupported) {
		return err
	}
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			_, _ = m.Check(ctx)
		}
	}
}
