package outbox

import (
	"context"
)

// Sender writes one keyed record to a topic.
type Sender interface {
	Send(ctx context.Context, topic string, key, value []byte, headers map[string]string) error
}

// KafkaPublisher relays entries to a topic keyed by aggregate id, so all
// events of one aggregate land on the same partition in order.
type KafkaPublisher struct {
	sender Sender
	topic  string
}

func NewKafkaPublisher(sender Sender, topic string) *KafkaPublisher {
	return &KafkaPublisher{sender: sender, topic: topic}
}

func (p *KafkaPublisher) Publish(ctx context.Context, entry Entry) error {
	return p.sender.Send(ctx, p.topic, []byte(entry.AggregateID), entry.Payload, map[string]string{
		"entry_id":       entry.ID.String(),
		"event_type":     entry.EventType,
		"aggregate_type": entry.AggregateType,
	})
}
