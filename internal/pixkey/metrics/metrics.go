package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the key lifecycle engine.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Transitions      *prometheus.CounterVec
	CommandFailures  *prometheus.CounterVec
	VersionConflicts prometheus.Counter
	Callbacks        *prometheus.CounterVec
	Expirations      *prometheus.CounterVec
	Reconciled       *prometheus.CounterVec
	CommandDuration  *prometheus.HistogramVec
}

// New registers the engine metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pixkeys_transitions_total",
			Help: "Committed key state transitions",
		}, []string{"trigger", "from", "to"}),
		CommandFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pixkeys_command_failures_total",
			Help: "Rejected or failed commands by error code",
		}, []string{"trigger", "code"}),
		VersionConflicts: f.NewCounter(prometheus.CounterOpts{
			Name: "pixkeys_version_conflicts_total",
			Help: "Optimistic concurrency conflicts on key saves",
		}),
		Callbacks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pixkeys_directory_callbacks_total",
			Help: "Directory callbacks by type and outcome",
		}, []string{"type", "outcome"}),
		Expirations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pixkeys_deadline_expirations_total",
			Help: "Deadline-driven transitions by expired state",
		}, []string{"state"}),
		Reconciled: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pixkeys_intents_reconciled_total",
			Help: "Pending directory intents resolved by the reconciler",
		}, []string{"outcome"}),
		CommandDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pixkeys_command_duration_seconds",
			Help:    "Duration of engine commands including directory calls",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"trigger"}),
	}
}

func (m *Metrics) IncrementTransition(trigger, from, to string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(trigger, from, to).Inc()
}

func (m *Metrics) IncrementCommandFailure(trigger, code string) {
	if m == nil {
		return
	}
	m.CommandFailures.WithLabelValues(trigger, code).Inc()
}

func (m *Metrics) IncrementVersionConflict() {
	if m == nil {
		return
	}
	m.VersionConflicts.Inc()
}

func (m *Metrics) IncrementCallback(callbackType, outcome string) {
	if m == nil {
		return
	}
	m.Callbacks.WithLabelValues(callbackType, outcome).Inc()
}

func (m *Metrics) IncrementExpiration(state string) {
	if m == nil {
		return
	}
	m.Expirations.WithLabelValues(state).Inc()
}

func (m *Metrics) IncrementReconciled(outcome string) {
	if m == nil {
		return
	}
	m.Reconciled.WithLabelValues(outcome).Inc()
}

// ObserveCommand records the duration of a command started at start.
func (m *Metrics) ObserveCommand(trigger string, start time.Time) {
	if m == nil {
		return
	}
	m.CommandDuration.WithLabelValues(trigger).Observe(time.Since(start).Seconds())
}
