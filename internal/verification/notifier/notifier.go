package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"pixkeys/internal/verification/metrics"
	"pixkeys/internal/verification/models"
	pstrings "pixkeys/pkg/platform/strings"
)

// ErrQueueFull is returned when the async dispatcher cannot accept more work.
var ErrQueueFull = errors.New("notification queue full")

// Notifier delivers a code to the holder of its destination.
type Notifier interface {
	Notify(ctx context.Context, n models.Notification) error
}

// LogNotifier logs notifications instead of sending them. Codes are logged
// at debug level so local runs can complete the flow.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, note models.Notification) error {
	n.logger.DebugContext(ctx, "verification code issued",
		"key_id", note.KeyID.String(),
		"purpose", note.Purpose,
		"destination", pstrings.Mask(note.Destination),
		"code", note.Code,
		"expires_at", note.ExpiresAt,
	)
	return nil
}

// Sender writes one keyed record to a topic.
type Sender interface {
	Send(ctx context.Context, topic string, key, value []byte, headers map[string]string) error
}

// KafkaNotifier hands notifications to the delivery service through a topic.
type KafkaNotifier struct {
	sender Sender
	topic  string
}

func NewKafkaNotifier(sender Sender, topic string) *KafkaNotifier {
	return &KafkaNotifier{sender: sender, topic: topic}
}

func (n *KafkaNotifier) Notify(ctx context.Context, note models.Notification) error {
	payload, err := json.Marshal(note)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	return n.sender.Send(ctx, n.topic, []byte(note.KeyID.String()), payload, map[string]string{
		"purpose": string(note.Purpose),
	})
}

// Async queues notifications and delivers them from Run, so issuing a code
// never waits on the delivery channel.
type Async struct {
	next    Notifier
	queue   chan models.Notification
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewAsync(next Notifier, capacity int, logger *slog.Logger, m *metrics.Metrics) *Async {
	if capacity <= 0 {
		capacity = 1024
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Async{
		next:    next,
		queue:   make(chan models.Notification, capacity),
		logger:  logger,
		metrics: m,
	}
}

func (a *Async) Notify(_ context.Context, note models.Notification) error {
	select {
	case a.queue <- note:
		return nil
	default:
		a.metrics.IncrementNotifyDrop()
		return ErrQueueFull
	}
}

// Run delivers queued notifications until ctx is cancelled.
func (a *Async) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case note := <-a.queue:
			if err := a.next.Notify(ctx, note); err != nil {
				a.metrics.IncrementNotifyFailure()
				a.logger.ErrorContext(ctx, "code delivery failed",
					"key_id", note.KeyID.String(),
					"purpose", note.Purpose,
					"error", err,
				)
			}
		}
	}
}

// Len reports how many notifications are waiting.
func (a *Async) Len() int {
	return len(a.queue)
}
