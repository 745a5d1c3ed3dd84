package coordinator

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"murmur/internal/config"
	"murmur/internal/logging"
	"murmur/internal/memory"
	"murmur/internal/notifications"
	"murmur/internal/operation"
	"murmur/internal/pressure"
	"murmur/internal/registry"
)

// Coordinator is the only entry point into operation state. Every mutation
// runs under the registry lock; events and log lines are emitted after it
// is released.
type Coordinator struct {
	cfg           *config.Config
	maxConcurrent int
	reg           *registry.Registry
	clock         operation.Clock
	newID         func() string
	logger        *slog.Logger

	bridge  *notifications.Bridge
	memory  *memory.Manager
	monitor *pressure.Monitor
	sampler *logging.ProgressSampler

	mu      sync.Mutex
	running bool
	closed  bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Option configures optional Coordinator collaborators.
type Option func(*options)

type options struct {
	clock    operation.Clock
	executor notifications.Executor
	sink     notifications.Sink
	probe    pressure.Probe
	newID    func() string
}

// WithClock replaces the wall clock.
func WithClock(clock operation.Clock) Option {
	return func(o *options) { o.clock = clock }
}

// WithExecutor sets the executor observer callbacks run on. The default is
// a SerialExecutor.
func WithExecutor(exec notifications.Executor) Option {
	return func(o *options) { o.executor = exec }
}

// WithSink replaces the outbound notification sink built from config.
func WithSink(sink notifications.Sink) Option {
	return func(o *options) { o.sink = sink }
}

// WithPressureProbe replaces the host memory probe used when [pressure] is
// enabled.
func WithPressureProbe(probe pressure.Probe) Option {
	return func(o *options) { o.probe = probe }
}

// WithIDGenerator replaces uuid-based operation ids.
func WithIDGenerator(fn func() string) Option {
	return func(o *options) { o.newID = fn }
}

// New wires a coordinator from cfg. Background work starts with Run.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Coordinator {
	if cfg == nil {
		def := config.Default()
		cfg = &def
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.clock == nil {
		o.clock = operation.SystemClock{}
	}
	if o.executor == nil {
		o.executor = notifications.NewSerialExecutor()
	}
	if o.sink == nil {
		o.sink = notifications.NewSink(cfg, logger)
	}
	if o.newID == nil {
		o.newID = uuid.NewString
	}

	reg := registry.New()
	c := &Coordinator{
		cfg:           cfg,
		maxConcurrent: cfg.Coordinator.MaxConcurrent,
		reg:           reg,
		clock:         o.clock,
		newID:         o.newID,
		logger:        logging.NewComponentLogger(logger, "coordinator"),
		bridge: notifications.NewBridge(
			o.executor,
			notifications.NewHub(cfg.Notifications.StreamCapacity),
			o.sink,
			logger,
		),
		memory:  memory.NewManager(reg, memory.PolicyFromConfig(cfg.Memory), o.clock, logger),
		sampler: logging.NewProgressSampler(0),
	}
	if c.maxConcurrent <= 0 {
		c.maxConcurrent = config.DefaultMaxConcurrent
	}
	if cfg.Pressure.Enabled {
		c.monitor = pressure.NewMonitor(
			o.probe,
			pressure.ThresholdsFromConfig(cfg.Pressure),
			cfg.PressurePollInterval(),
			logger,
			func(ctx context.Context, under bool) { c.SetPressure(ctx, under) },
		)
	}
	return c
}

// MaxConcurrent returns the global active-operation cap.
func (c *Coordinator) MaxConcurrent() int { return c.maxConcurrent }

// Run starts the periodic memory manager and, when enabled, the pressure
// probe. It returns once they are running.
func (c *Coordinator) Run(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("coordinator shut down")
	}
	if c.running {
		return errors.New("coordinator already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.running = true

	c.memory.Start(runCtx)
	if c.monitor != nil {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			if err := c.monitor.Run(runCtx); err != nil {
				logging.WarnWithContext(c.logger, "pressure probe stopped", "pressure_probe_stopped",
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "set pressure.enabled = false on this platform"),
					logging.String(logging.FieldImpact, "cleanup runs on the normal schedule only"),
				)
			}
		}()
	}
	c.logger.Info("coordinator running",
		logging.String(logging.FieldEventType, "coordinator_started"),
		logging.Int("max_concurrent", c.maxConcurrent),
		logging.Int("hard_cap", c.memory.Policy().HardCap),
		logging.Bool("pressure_probe", c.monitor != nil),
	)
	return nil
}

// Shutdown stops background tasks and delivers every event already
// produced. Operations in flight are left as they are. It is safe to call
// more than once.
func (c *Coordinator) Shutdown() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	cancel := c.cancel
	c.cancel = nil
	c.running = false
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.wg.Wait()
	c.memory.Stop()
	c.bridge.Close()
	c.logger.Debug("coordinator stopped", logging.String(logging.FieldEventType, "coordinator_stopped"))
}

// SetObserver installs or replaces the detailed observer. Nil removes it.
func (c *Coordinator) SetObserver(o notifications.Observer) {
	c.bridge.SetObserver(o)
}

// Events exposes the coarse event stream.
func (c *Coordinator) Events() *notifications.Hub {
	return c.bridge.Hub()
}

// SetPressure forwards a host memory pressure signal. The rising edge runs
// an emergency cleanup pass; only an explicit relieve clears the latch.
func (c *Coordinator) SetPressure(ctx context.Context, under bool) bool {
	return c.memory.SetPressure(ctx, under)
}

// UnderPressure reports the latched pressure state.
func (c *Coordinator) UnderPressure() bool {
	return c.memory.UnderPressure()
}

// RunCleanup runs one memory pass on demand.
func (c *Coordinator) RunCleanup(ctx context.Context) memory.Result {
	return c.memory.RunPass(ctx, memory.TriggerManual)
}

// TestNotification sends a probe through the outbound sink.
func (c *Coordinator) TestNotification(ctx context.Context) error {
	return c.bridge.TestSink(ctx)
}
