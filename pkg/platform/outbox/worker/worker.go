package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"pixkeys/pkg/platform/circuit"
	"pixkeys/pkg/platform/outbox"
	"pixkeys/pkg/platform/tx"
)

// Metrics for the relay loop.
type Metrics struct {
	Published    prometheus.Counter
	Failures     prometheus.Counter
	BreakerState prometheus.Gauge
	Lag          prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Published: f.NewCounter(prometheus.CounterOpts{
			Name: "pixkeys_outbox_published_total",
			Help: "Total number of outbox entries delivered to the publisher",
		}),
		Failures: f.NewCounter(prometheus.CounterOpts{
			Name: "pixkeys_outbox_publish_failures_total",
			Help: "Total number of failed outbox publish attempts",
		}),
		BreakerState: f.NewGauge(prometheus.GaugeOpts{
			Name: "pixkeys_outbox_circuit_breaker_state",
			Help: "Publisher circuit breaker state (0=closed, 1=open)",
		}),
		Lag: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "pixkeys_outbox_lag_seconds",
			Help:    "Time between appending an entry and publishing it",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
	}
}

// Relay polls the outbox and hands unprocessed entries to the publisher.
// Delivery is at-least-once: an entry is marked processed only after the
// publisher accepted it.
type Relay struct {
	store     outbox.Store
	publisher outbox.Publisher
	tx        tx.Runner
	breaker   *circuit.Breaker
	logger    *slog.Logger
	metrics   *Metrics
	interval  time.Duration
	batch     int
	now       func() time.Time
}

type Option func(*Relay)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) { r.logger = logger }
}

func WithMetrics(m *Metrics) Option {
	return func(r *Relay) { r.metrics = m }
}

func WithInterval(d time.Duration) Option {
	return func(r *Relay) {
		if d > 0 {
			r.interval = d
		}
	}
}

func WithBatchSize(n int) Option {
	return func(r *Relay) {
		if n > 0 {
			r.batch = n
		}
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(r *Relay) { r.breaker = b }
}

func NewRelay(store outbox.Store, publisher outbox.Publisher, runner tx.Runner, opts ...Option) *Relay {
	r := &Relay{
		store:     store,
		publisher: publisher,
		tx:        runner,
		breaker:   circuit.New("outbox-publisher"),
		logger:    slog.Default(),
		interval:  time.Second,
		batch:     100,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run polls until ctx is done.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := r.RelayOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
				r.logger.WarnContext(ctx, "outbox relay pass failed", "error", err)
			}
		}
	}
}

// RelayOnce publishes one batch and returns how many entries were delivered.
// Publishing stops at the first failure so ordering per aggregate holds.
func (r *Relay) RelayOnce(ctx context.Context) (int, error) {
	if !r.breaker.Allow() {
		return 0, nil
	}

	published := 0
	err := r.tx.RunInTx(ctx, func(ctx context.Context) error {
		entries, err := r.store.FetchUnprocessed(ctx, r.batch)
		if err != nil {
			return err
		}

		var done []uuid.UUID
		var publishErr error
		for _, e := range entries {
			if publishErr = r.publisher.Publish(ctx, e); publishErr != nil {
				r.recordFailure(ctx, e, publishErr)
				break
			}
			r.recordSuccess(e)
			done = append(done, e.ID)
		}
		if err := r.store.MarkProcessed(ctx, done, r.now()); err != nil {
			return err
		}
		published = len(done)
		return nil
	})
	return published, err
}

func (r *Relay) recordFailure(ctx context.Context, e outbox.Entry, err error) {
	if r.metrics != nil {
		r.metrics.Failures.Inc()
	}
	if _, change := r.breaker.RecordFailure(); change.Opened {
		r.logger.ErrorContext(ctx, "outbox publisher circuit opened", "error", err)
		if r.metrics != nil {
			r.metrics.BreakerState.Set(1)
		}
	}
	r.logger.WarnContext(ctx, "outbox publish failed",
		"entry_id", e.ID,
		"event_type", e.EventType,
		"aggregate_id", e.AggregateID,
		"error", err,
	)
}

func (r *Relay) recordSuccess(e outbox.Entry) {
	if _, change := r.breaker.RecordSuccess(); change.Closed && r.metrics != nil {
		r.metrics.BreakerState.Set(0)
	}
	if r.metrics != nil {
		r.metrics.Published.Inc()
		r.metrics.Lag.Observe(r.now().Sub(e.CreatedAt).Seconds())
	}
}
