package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for verification code issuance and checks. A nil *Metrics records
// nothing.
type Metrics struct {
	Issued           *prometheus.CounterVec
	VerifyFailures   *prometheus.CounterVec
	RateLimited      *prometheus.CounterVec
	NotifyFailures   prometheus.Counter
	NotifyQueueDrops prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Issued: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pixkeys_codes_issued_total",
			Help: "Verification codes issued by purpose",
		}, []string{"purpose"}),
		VerifyFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pixkeys_code_verify_failures_total",
			Help: "Failed code verifications by purpose and reason",
		}, []string{"purpose", "reason"}),
		RateLimited: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pixkeys_code_rate_limited_total",
			Help: "Code issuance requests refused by the resend interval",
		}, []string{"purpose"}),
		NotifyFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "pixkeys_code_notify_failures_total",
			Help: "Code notifications the delivery channel refused",
		}),
		NotifyQueueDrops: f.NewCounter(prometheus.CounterOpts{
			Name: "pixkeys_code_notify_dropped_total",
			Help: "Code notifications dropped because the dispatch queue was full",
		}),
	}
}

func (m *Metrics) IncrementIssued(purpose string) {
	if m == nil {
		return
	}
	m.Issued.WithLabelValues(purpose).Inc()
}

func (m *Metrics) IncrementVerifyFailure(purpose, reason string) {
	if m == nil {
		return
	}
	m.VerifyFailures.WithLabelValues(purpose, reason).Inc()
}

func (m *Metrics) IncrementRateLimited(purpose string) {
	if m == nil {
		return
	}
	m.RateLimited.WithLabelValues(purpose).Inc()
}

func (m *Metrics) IncrementNotifyFailure() {
	if m == nil {
		return
	}
	m.NotifyFailures.Inc()
}

func (m *Metrics) IncrementNotifyDrop() {
	if m == nil {
		return
	}
	m.NotifyQueueDrops.Inc()
}
