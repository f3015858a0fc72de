package devs

import (
	"log/slog"
	"math"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"

	"github.com/romain1189/devs/stats"
)

// Listener receives lifecycle callbacks from a RootCoordinator's Run.
// Any field left nil is simply not called; a caller interested only in
// per-step progress sets OnStep and leaves the rest zero.
type Listener struct {
	OnInit     func(t float64)
	OnStep     func(t float64)
	OnTeardown func()
}

type rootConfig struct {
	formalism Formalism
	startTime float64
	endTime   float64
	logger    *slog.Logger
	meter     metric.Meter
	runID     string
}

// RootOption configures a RootCoordinator.
type RootOption func(*rootConfig)

// WithFormalism selects CDEVS or PDEVS semantics for the whole tree.
// The default is PDEVS.
func WithFormalism(f Formalism) RootOption {
	return func(c *rootConfig) { c.formalism = f }
}

// WithStartTime sets the simulation clock's initial value. The default is 0.
func WithStartTime(t float64) RootOption {
	return func(c *rootConfig) { c.startTime = t }
}

// WithEndTime bounds the simulation: Run processes only instants
// strictly before t, stopping once the next imminent time reaches t.
// The default is +Inf, i.e. run until quiescence.
func WithEndTime(t float64) RootOption {
	return func(c *rootConfig) { c.endTime = t }
}

// WithLogger attaches a structured logger; the default is slog.Default().
func WithLogger(logger *slog.Logger) RootOption {
	return func(c *rootConfig) { c.logger = logger }
}

// WithMeter attaches an OpenTelemetry meter so hook invocation counts
// are mirrored to a metrics backend in addition to the in-process tree.
func WithMeter(meter metric.Meter) RootOption {
	return func(c *rootConfig) { c.meter = meter }
}

// WithRunID overrides the random run identifier RootCoordinator
// otherwise generates, tagging logs and OpenTelemetry metrics with a
// known value.
func WithRunID(id string) RootOption {
	return func(c *rootConfig) { c.runID = id }
}

// RootCoordinator is the outermost driver (section 4.4): it owns the
// top-level Processor for a model hierarchy and runs the simulation
// loop to quiescence or until an end time is reached. Unlike a
// Coordinator, it has no parent and nowhere to route its own model's
// output, and it is the only processor that starts the clock (at the
// configured start time, 0 by default) via init and carries a
// termination condition.
type RootCoordinator struct {
	top       Processor
	formalism Formalism
	startTime float64
	endTime   float64
	runID     string

	logger *slog.Logger
	stats  *stats.Collector

	listeners []Listener
}

// NewRootCoordinator builds the processor tree for model and prepares
// it to run, but does not start the clock; call Run to simulate.
func NewRootCoordinator(model Model, opts ...RootOption) (*RootCoordinator, error) {
	cfg := rootConfig{formalism: PDEVS, endTime: math.Inf(1)}
	for _, opt := range opts {
		opt(&cfg)
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}
	runID := cfg.runID
	if runID == "" {
		runID = uuid.NewString()
	}
	logger = logger.With("run_id", runID)

	statsOpts := []stats.Option{stats.WithRunID(runID)}
	if cfg.meter != nil {
		statsOpts = append(statsOpts, stats.WithMeter(cfg.meter))
	}
	collector := stats.NewCollector(statsOpts...)

	top, err := newProcessor(model, cfg.formalism, processorDeps{logger: logger, stats: collector})
	if err != nil {
		return nil, err
	}

	return &RootCoordinator{
		top:       top,
		formalism: cfg.formalism,
		startTime: cfg.startTime,
		endTime:   cfg.endTime,
		runID:     runID,
		logger:    logger,
		stats:     collector,
	}, nil
}

// AddListener registers l to receive lifecycle callbacks during Run.
func (rc *RootCoordinator) AddListener(l Listener) {
	rc.listeners = append(rc.listeners, l)
}

// Top returns the root of the processor tree, for introspection via Walk.
func (rc *RootCoordinator) Top() Processor { return rc.top }

// RunID returns the identifier tagging this run's logs and metrics.
func (rc *RootCoordinator) RunID() string { return rc.runID }

// Stats returns a snapshot of the per-model hook invocation counts
// accumulated so far.
func (rc *RootCoordinator) Stats() map[string]stats.ModelStats {
	return rc.stats.Snapshot()
}

// Run drives the simulation loop: init, then repeatedly collect and
// transition the tree at its next imminent time, until the clock
// reaches quiescence (time_next == +Inf) or EndTime, then tears down.
func (rc *RootCoordinator) Run() error {
	t, err := rc.top.init(rc.startTime)
	if err != nil {
		return err
	}
	rc.logger.Info("simulation started", "formalism", rc.formalism, "t", t)
	rc.notifyInit(t)

	for t < rc.endTime && !math.IsInf(t, 1) {
		if _, err := rc.top.collect(t); err != nil {
			return err
		}
		if err := rc.top.transition(t, nil); err != nil {
			return err
		}
		rc.notifyStep(t)
		t = rc.top.TimeNext()
	}

	rc.top.tearDown()
	rc.logger.Info("simulation quiesced", "t", t)
	rc.notifyTeardown()
	return nil
}

func (rc *RootCoordinator) notifyInit(t float64) {
	for _, l := range rc.listeners {
		if l.OnInit != nil {
			l.OnInit(t)
		}
	}
}

func (rc *RootCoordinator) notifyStep(t float64) {
	for _, l := range rc.listeners {
		if l.OnStep != nil {
			l.OnStep(t)
		}
	}
}

func (rc *RootCoordinator) notifyTeardown() {
	for _, l := range rc.listeners {
		if l.OnTeardown != nil {
			l.OnTeardown()
		}
	}
}
