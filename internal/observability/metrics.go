package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "smartevent_bridge"

// Metrics holds the bridge instruments. A nil *Metrics records nothing.
type Metrics struct {
	Fetches   *prometheus.CounterVec
	Mutations *prometheus.CounterVec
	Discarded *prometheus.CounterVec
	Events    *prometheus.GaugeVec
}

// NewMetrics creates the instruments and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetches_total",
			Help:      "Event list fetches by surface and outcome.",
		}, []string{"surface", "outcome"}),
		Mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mutations_total",
			Help:      "Server-confirmed mutations by kind and outcome.",
		}, []string{"kind", "outcome"}),
		Discarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discarded_results_total",
			Help:      "Results dropped because a newer operation superseded them or the surface was closed.",
		}, []string{"surface", "reason"}),
		Events: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "events",
			Help:      "Events currently held per surface.",
		}, []string{"surface"}),
	}
	if reg != nil {
		reg.MustRegister(m.Fetches, m.Mutations, m.Discarded, m.Events)
	}
	return m
}

func (m *Metrics) RecordFetch(surface string, err error) {
	if m == nil {
		return
	}
	m.Fetches.WithLabelValues(surface, outcome(err)).Inc()
}

func (m *Metrics) RecordMutation(kind string, err error) {
	if m == nil {
		return
	}
	m.Mutations.WithLabelValues(kind, outcome(err)).Inc()
}

func (m *Metrics) RecordDiscard(surface, reason string) {
	if m == nil {
		return
	}
	m.Discarded.WithLabelValues(surface, reason).Inc()
}

func (m *Metrics) SetEvents(surface string, n int) {
	if m == nil {
		return
	}
	m.Events.WithLabelValues(surface).Set(float64(n))
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
