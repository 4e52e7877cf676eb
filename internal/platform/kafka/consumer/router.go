package consumer

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
)

// Router is a Handler that picks a handler by record topic. Records on topics
// nobody registered go to the fallback, or are logged and committed.
type Router struct {
	routes   map[string]Handler
	fallback Handler
	logger   *slog.Logger
}

func NewRouter(logger *slog.Logger, fallback Handler) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{routes: make(map[string]Handler), fallback: fallback, logger: logger}
}

// Register routes topic to h. Registering a topic twice panics.
func (r *Router) Register(topic string, h Handler) {
	if _, dup := r.routes[topic]; dup {
		panic(fmt.Sprintf("consumer: topic %q registered twice", topic))
	}
	r.routes[topic] = h
}

// Topics returns the registered topics in order; pass them to ClientOptions.
func (r *Router) Topics() []string {
	return slices.Sorted(maps.Keys(r.routes))
}

func (r *Router) Handle(ctx context.Context, msg *Message) error {
	if h, ok := r.routes[msg.Topic]; ok {
		return h.Handle(ctx, msg)
	}
	if r.fallback != nil {
		return r.fallback.Handle(ctx, msg)
	}
	r.logger.WarnContext(ctx, "skipping record on unrouted topic",
		"topic", msg.Topic,
		"partition", msg.Partition,
		"offset", msg.Offset,
	)
	return nil
}
