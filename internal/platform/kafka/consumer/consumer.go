package consumer

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// Message is a consumed record detached from the client library.
type Message struct {
	Topic     string
	Partition int32
	Offset    int64
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Timestamp time.Time
}

// Handler processes one message. Returning a backoff.Permanent error skips
// the message; any other error is retried until it succeeds or the consumer
// stops.
type Handler interface {
	Handle(ctx context.Context, msg *Message) error
}

type HandlerFunc func(ctx context.Context, msg *Message) error

func (f HandlerFunc) Handle(ctx context.Context, msg *Message) error { return f(ctx, msg) }

// Consumer reads a consumer group and commits offsets only after the handler
// has succeeded, giving at-least-once delivery.
type Consumer struct {
	client     *kgo.Client
	handler    Handler
	logger     *slog.Logger
	maxBackoff time.Duration
}

type Option func(*Consumer)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Consumer) {
		c.logger = logger
	}
}

// WithMaxBackoff caps the delay between handler retries.
func WithMaxBackoff(d time.Duration) Option {
	return func(c *Consumer) {
		if d > 0 {
			c.maxBackoff = d
		}
	}
}

// ClientOptions returns the group settings a consumer client needs.
func ClientOptions(group string, topics ...string) []kgo.Opt {
	return []kgo.Opt{
		kgo.ConsumerGroup(group),
		kgo.ConsumeTopics(topics...),
		kgo.DisableAutoCommit(),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	}
}

// New wraps a client built with ClientOptions.
func New(client *kgo.Client, handler Handler, opts ...Option) *Consumer {
	c := &Consumer{
		client:     client,
		handler:    handler,
		logger:     slog.Default(),
		maxBackoff: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run polls until ctx is cancelled or the client is closed.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			c.logger.ErrorContext(ctx, "kafka fetch failed",
				"topic", topic,
				"partition", partition,
				"error", err,
			)
		})

		var (
			done    []*kgo.Record
			stopped error
		)
		fetches.EachRecord(func(rec *kgo.Record) {
			if stopped != nil {
				return
			}
			if err := c.process(ctx, rec); err != nil {
				stopped = err
				return
			}
			done = append(done, rec)
		})
		if len(done) > 0 {
			if err := c.client.CommitRecords(ctx, done...); err != nil {
				c.logger.ErrorContext(ctx, "kafka commit failed", "error", err)
			}
		}
		if stopped != nil {
			return stopped
		}
	}
}

// Close leaves the group and releases the client.
func (c *Consumer) Close() {
	c.client.Close()
}

func (c *Consumer) process(ctx context.Context, rec *kgo.Record) error {
	return c.deliver(ctx, toMessage(rec))
}

// deliver retries the handler until it succeeds, fails permanently or ctx
// ends. Only the last case is reported to the caller.
func (c *Consumer) deliver(ctx context.Context, msg *Message) error {
	msgCtx := otel.GetTextMapPropagator().Extract(ctx, propagation.MapCarrier(msg.Headers))

	policy := backoff.NewExponentialBackOff()
	policy.MaxInterval = c.maxBackoff
	policy.MaxElapsedTime = 0
	if policy.InitialInterval > c.maxBackoff {
		policy.InitialInterval = c.maxBackoff
	}

	err := backoff.RetryNotify(func() error {
		return c.handler.Handle(msgCtx, msg)
	}, backoff.WithContext(policy, ctx), func(err error, wait time.Duration) {
		c.logger.WarnContext(msgCtx, "message handler failed, retrying",
			"topic", msg.Topic,
			"offset", msg.Offset,
			"retry_in", wait,
			"error", err,
		)
	})
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	c.logger.ErrorContext(msgCtx, "dropping unprocessable message",
		"topic", msg.Topic,
		"partition", msg.Partition,
		"offset", msg.Offset,
		"key", string(msg.Key),
		"error", err,
	)
	return nil
}

func toMessage(rec *kgo.Record) *Message {
	headers := make(map[string]string, len(rec.Headers))
	for _, h := range rec.Headers {
		headers[h.Key] = string(h.Value)
	}
	return &Message{
		Topic:     rec.Topic,
		Partition: rec.Partition,
		Offset:    rec.Offset,
		Key:       rec.Key,
		Value:     rec.Value,
		Headers:   headers,
		Timestamp: rec.Timestamp,
	}
}
