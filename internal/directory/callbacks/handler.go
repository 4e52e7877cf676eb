// Package callbacks feeds directory notifications from the callbacks topic
// into the key lifecycle engine.
package callbacks

import (
	"context"
	"log/slog"

	"github.com/cenkalti/backoff/v4"

	"pixkeys/internal/directory/wire"
	"pixkeys/internal/pixkey/models"
	"pixkeys/internal/pixkey/service"
	"pixkeys/internal/platform/kafka/consumer"
	dErrors "pixkeys/pkg/domain-errors"
)

// Processor applies one decoded callback.
type Processor interface {
	OnDirectoryCallback(ctx context.Context, cb models.DirectoryCallback) (*service.CallbackResult, error)
}

// Handler is a consumer.Handler for the callbacks topic.
type Handler struct {
	processor Processor
	logger    *slog.Logger
}

func NewHandler(processor Processor, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{processor: processor, logger: logger}
}

var _ consumer.Handler = (*Handler)(nil)

// Handle decodes and applies a message. Payloads that can never succeed are
// returned as permanent so the consumer commits past them.
func (h *Handler) Handle(ctx context.Context, msg *consumer.Message) error {
	cb, err := wire.DecodeCallback(msg.Value)
	if err != nil {
		h.logger.ErrorContext(ctx, "undecodable directory callback",
			"topic", msg.Topic,
			"offset", msg.Offset,
			"error", err,
		)
		return backoff.Permanent(err)
	}

	res, err := h.processor.OnDirectoryCallback(ctx, cb)
	if err != nil {
		if retryable(err) {
			return err
		}
		h.logger.ErrorContext(ctx, "directory callback refused",
			"event_id", cb.EventID.String(),
			"key_id", cb.KeyID.String(),
			"callback_type", cb.Type,
			"error", err,
		)
		return backoff.Permanent(err)
	}

	h.logger.DebugContext(ctx, "directory callback handled",
		"event_id", cb.EventID.String(),
		"key_id", cb.KeyID.String(),
		"callback_type", cb.Type,
		"outcome", res.Outcome,
	)
	return nil
}

func retryable(err error) bool {
	return dErrors.Retryable(err) || dErrors.CodeOf(err) == dErrors.CodeInternal
}
