// Package metrics exposes engine activity as Prometheus metrics.
//
// Features:
//   - Counters for events read and written, taps, layer activations and
//     buffer overflows
//   - A gauge for the current engine state
//   - Optional HTTP endpoint for scraping
//   - Periodic summary in the log
//
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"spacefn/internal/engine"
	"spacefn/internal/input"
)

const namespace = "spacefn"

// Event classes for events_read_total.
const (
	ClassKey   = "key"
	ClassSyn   = "syn"
	ClassOther = "other"
)

// Metrics records engine activity. It implements engine.Observer.
type Metrics struct {
	registry *prometheus.Registry
	log      *slog.Logger

	eventsRead       *prometheus.CounterVec
	eventsWritten    prometheus.Counter
	taps             prometheus.Counter
	layerActivations *prometheus.CounterVec
	bufferOverflows  prometheus.Counter
	state            prometheus.Gauge
}

var _ engine.Observer = (*Metrics)(nil)

// New creates the collectors on a private registry.
func New(logger *slog.Logger) *Metrics {
	if logger == nil {
		logger = slog.Default()
	}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
		log:      logger,

		eventsRead: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_read_total",
			Help:      "Events read from the physical keyboard.",
		}, []string{"class"}),
		eventsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_written_total",
			Help:      "Events written to the virtual keyboard, sync markers excluded.",
		}),
		taps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "taps_total",
			Help:      "Trigger presses resolved as a tap.",
		}),
		layerActivations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "layer_activations_total",
			Help:      "Trigger presses resolved as a layer hold, by cause.",
		}, []string{"cause"}),
		bufferOverflows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "buffer_overflows_total",
			Help:      "Key presses dropped because the pending buffer was full.",
		}),
		state: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "state",
			Help:      "Engine state: 0 idle, 1 deciding, 2 layer active.",
		}),
	}

	m.registry.MustRegister(
		m.eventsRead,
		m.eventsWritten,
		m.taps,
		m.layerActivations,
		m.bufferOverflows,
		m.state,
	)

	// make both causes visible before the first activation
	m.layerActivations.WithLabelValues(engine.CauseRelease)
	m.layerActivations.WithLabelValues(engine.CauseTimeout)

	return m
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// EventRead implements engine.Observer.
func (m *Metrics) EventRead(ev input.Event) {
	if m == nil {
		return
	}
	m.eventsRead.WithLabelValues(classOf(ev)).Inc()
}

// EventWritten implements engine.Observer.
func (m *Metrics) EventWritten(input.Event) {
	if m == nil {
		return
	}
	m.eventsWritten.Inc()
}

// Tap implements engine.Observer.
func (m *Metrics) Tap() {
	if m == nil {
		return
	}
	m.taps.Inc()
}

// LayerActivated implements engine.Observer.
func (m *Metrics) LayerActivated(cause string) {
	if m == nil {
		return
	}
	m.layerActivations.WithLabelValues(cause).Inc()
}

// BufferOverflow implements engine.Observer.
func (m *Metrics) BufferOverflow() {
	if m == nil {
		return
	}
	m.bufferOverflows.Inc()
}

// StateChanged implements engine.Observer.
func (m *Metrics) StateChanged(state int) {
	if m == nil {
		return
	}
	m.state.Set(float64(state))
}

func classOf(ev input.Event) string {
	switch ev.Type {
	case input.TypeKey:
		return ClassKey
	case input.TypeSyn:
		return ClassSyn
	default:
		return ClassOther
	}
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	EventsRead      float64
	EventsWritten   float64
	Taps            float64
	LayerRelease    float64
	LayerTimeout    float64
	BufferOverflows float64
	State           engine.State
}

// Snapshot gathers the registry and sums each metric across its labels.
func (m *Metrics) Snapshot() (Snapshot, error) {
	var s Snapshot
	if m == nil {
		return s, nil
	}

	families, err := m.registry.Gather()
	if err != nil {
		return s, err
	}

	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			v := valueOf(metric)
			switch mf.GetName() {
			case namespace + "_events_read_total":
				s.EventsRead += v
			case namespace + "_events_written_total":
				s.EventsWritten += v
			case namespace + "_taps_total":
				s.Taps += v
			case namespace + "_buffer_overflows_total":
				s.BufferOverflows += v
			case namespace + "_state":
				s.State = engine.State(int(v))
			case namespace + "_layer_activations_total":
				switch label(metric, "cause") {
				case engine.CauseRelease:
					s.LayerRelease += v
				case engine.CauseTimeout:
					s.LayerTimeout += v
				}
			}
		}
	}
	return s, nil
}

func valueOf(m *dto.Metric) float64 {
	if c := m.GetCounter(); c != nil {
		return c.GetValue()
	}
	return m.GetGauge().GetValue()
}

func label(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}
