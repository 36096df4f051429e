package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Message outcomes recorded by the consume loops.
const (
	OutcomeOK     = "ok"
	OutcomeError  = "error"
	OutcomeDecode = "decode_error"
)

// Reasons the orchestrator skips an event.
const (
	SkipTerminal     = "terminal"
	SkipDuplicate    = "duplicate"
	SkipNotification = "notification"
)

// Metrics is safe to use as a nil pointer; every method is then a no-op.
type Metrics struct {
	messages      *prometheus.CounterVec
	finalized     *prometheus.CounterVec
	skipped       *prometheus.CounterVec
	compensations prometheus.Counter
	deadLettered  *prometheus.CounterVec
	stalled       prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		messages: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "saga",
			Name:      "messages_total",
			Help:      "Messages handled by a consume loop, by kind and outcome.",
		}, []string{"consumer", "kind", "outcome"}),
		finalized: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "saga",
			Name:      "orders_finalized_total",
			Help:      "Orders moved to a terminal status.",
		}, []string{"status"}),
		skipped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "saga",
			Name:      "skipped_events_total",
			Help:      "Events the orchestrator received but did not act on.",
		}, []string{"reason"}),
		compensations: f.NewCounter(prometheus.CounterOpts{
			Namespace: "saga",
			Name:      "compensations_total",
			Help:      "Refund commands issued by the orchestrator.",
		}),
		deadLettered: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "saga",
			Name:      "dead_lettered_total",
			Help:      "Messages forwarded to the dead-letter topic.",
		}, []string{"topic"}),
		stalled: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "saga",
			Name:      "stalled_orders",
			Help:      "Orders still CREATED after the stall threshold at the last sweep.",
		}),
	}
}

func (m *Metrics) Message(consumer, kind, outcome string) {
	if m == nil {
		return
	}
	m.messages.WithLabelValues(consumer, kind, outcome).Inc()
}

func (m *Metrics) Finalized(status string) {
	if m == nil {
		return
	}
	m.finalized.WithLabelValues(status).Inc()
}

func (m *Metrics) Skipped(reason string) {
	if m == nil {
		return
	}
	m.skipped.WithLabelValues(reason).Inc()
}

func (m *Metrics) Compensation() {
	if m == nil {
		return
	}
	m.compensations.Inc()
}

func (m *Metrics) DeadLettered(topic string) {
	if m == nil {
		return
	}
	m.deadLettered.WithLabelValues(topic).Inc()
}

func (m *Metrics) Stalled(n int) {
	if m == nil {
		return
	}
	m.stalled.Set(float64(n))
}
