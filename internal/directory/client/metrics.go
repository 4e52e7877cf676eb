package client

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	RequestDuration *prometheus.HistogramVec
	Retries         *prometheus.CounterVec
	BreakerOpen     prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pixkeys_directory_request_duration_seconds",
			Help:    "Directory request latency by action and outcome, retries included",
			Buckets: prometheus.DefBuckets,
		}, []string{"action", "outcome"}),
		Retries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pixkeys_directory_retries_total",
			Help: "Directory request attempts beyond the first",
		}, []string{"action"}),
		BreakerOpen: f.NewGauge(prometheus.GaugeOpts{
			Name: "pixkeys_directory_breaker_open",
			Help: "1 while the directory circuit breaker is open",
		}),
	}
}

func (m *Metrics) observe(action, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(action, outcome).Observe(seconds)
}

func (m *Metrics) retry(action string) {
	if m == nil {
		return
	}
	m.Retries.WithLabelValues(action).Inc()
}

func (m *Metrics) breaker(open bool) {
	if m == nil {
		return
	}
	if open {
		m.BreakerOpen.Set(1)
		return
	}
	m.BreakerOpen.Set(0)
}
