package producer

import (
	"context"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// Producer writes records synchronously so callers learn about broker
// failures before they mark work done.
type Producer struct {
	client *kgo.Client
}

func New(client *kgo.Client) *Producer {
	return &Producer{client: client}
}

// Send writes one record. The active trace context travels in the headers.
func (p *Producer) Send(ctx context.Context, topic string, key, value []byte, headers map[string]string) error {
	carrier := propagation.MapCarrier{}
	for k, v := range headers {
		carrier[k] = v
	}
	otel.GetTextMapPropagator().Inject(ctx, carrier)

	record := &kgo.Record{Topic: topic, Key: key, Value: value}
	for k, v := range carrier {
		record.Headers = append(record.Headers, kgo.RecordHeader{Key: k, Value: []byte(v)})
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce to %s: %w", topic, err)
	}
	return nil
}

// Close flushes buffered records and releases the client.
func (p *Producer) Close(ctx context.Context) error {
	err := p.client.Flush(ctx)
	p.client.Close()
	return err
}
