// Package stats implements the kernel's observability surface: a
// per-model stats tree (section 6 of the design) counting invocations
// of each DEVS hook, with an optional OpenTelemetry mirror for
// exporting the same counts to a metrics backend.
package stats

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// EventKind names a countable kernel event.
type EventKind string

const (
	ExternalTransition  EventKind = "delta_ext"
	InternalTransition  EventKind = "delta_int"
	ConfluentTransition EventKind = "delta_con"
	Output              EventKind = "lambda"
	TimeAdvance         EventKind = "ta"
	Select              EventKind = "select"
)

// ModelStats is the set of invocation counters tracked for a single
// model.
type ModelStats struct {
	ExternalTransitions  uint64
	InternalTransitions  uint64
	ConfluentTransitions uint64
	OutputCalls          uint64
	TimeAdvanceCalls     uint64
	SelectCalls          uint64
}

func (m *ModelStats) record(kind EventKind) {
	switch kind {
	case ExternalTransition:
		m.ExternalTransitions++
	case InternalTransition:
		m.InternalTransitions++
	case ConfluentTransition:
		m.ConfluentTransitions++
	case Output:
		m.OutputCalls++
	case TimeAdvance:
		m.TimeAdvanceCalls++
	case Select:
		m.SelectCalls++
	}
}

// Collector is the root coordinator's single stats() entry point: a
// map keyed by model name, safe for concurrent reads while the
// simulation is paused between steps.
type Collector struct {
	mu     sync.RWMutex
	models map[string]*ModelStats

	meter   metric.Meter
	counter metric.Int64Counter
	runID   string
}

// Option configures a Collector.
type Option func(*Collector)

// WithMeter attaches an OpenTelemetry meter; every recorded event is
// mirrored as an increment on a devs.kernel.events counter with
// "model" and "event" attributes (and "run_id" if WithRunID was also
// given). A meter that fails to produce the counter disables the
// mirror rather than failing construction — the in-process tree
// remains authoritative regardless.
func WithMeter(meter metric.Meter) Option {
	return func(c *Collector) { c.meter = meter }
}

// WithRunID tags every OpenTelemetry data point with a run identifier,
// distinguishing interleaved or sequential simulation runs in one
// process.
func WithRunID(runID string) Option {
	return func(c *Collector) { c.runID = runID }
}

// NewCollector constructs an empty Collector.
func NewCollector(opts ...Option) *Collector {
	c := &Collector{models: make(map[string]*ModelStats)}
	for _, opt := range opts {
		opt(c)
	}
	if c.meter != nil {
		counter, err := c.meter.Int64Counter(
			"devs.kernel.events",
			metric.WithDescription("DEVS kernel hook invocations, by model and event kind"),
		)
		if err == nil {
			c.counter = counter
		} else {
			c.meter = nil
		}
	}
	return c
}

// Record increments the counter for kind on model, and mirrors it to
// OpenTelemetry if configured.
func (c *Collector) Record(model string, kind EventKind) {
	c.mu.Lock()
	m, ok := c.models[model]
	if !ok {
		m = &ModelStats{}
		c.models[model] = m
	}
	m.record(kind)
	c.mu.Unlock()

	if c.counter == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("model", model),
		attribute.String("event", string(kind)),
	}
	if c.runID != "" {
		attrs = append(attrs, attribute.String("run_id", c.runID))
	}
	c.counter.Add(context.Background(), 1, metric.WithAttributes(attrs...))
}

// Snapshot returns a copy of the stats tree, safe to retain after the
// simulation continues running.
func (c *Collector) Snapshot() map[string]ModelStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]ModelStats, len(c.models))
	for name, m := range c.models {
		out[name] = *m
	}
	return out
}
