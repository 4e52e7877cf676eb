package outbox

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRecord struct {
	topic   string
	key     string
	value   string
	headers map[string]string
}

type captureSender struct {
	records []capturedRecord
}

func (s *captureSender) Send(_ context.Context, topic string, key, value []byte, headers map[string]string) error {
	s.records = append(s.records, capturedRecord{topic, string(key), string(value), headers})
	return nil
}

func TestKafkaPublisher_KeysByAggregate(t *testing.T) {
	sender := &captureSender{}
	pub := NewKafkaPublisher(sender, "pix.key.events")
	entry := Entry{
		ID:            uuid.New(),
		AggregateType: "pix_key",
		AggregateID:   "key-1",
		EventType:     "key_confirmed",
		Payload:       []byte(`{"state":"CONFIRMED"}`),
	}

	require.NoError(t, pub.Publish(context.Background(), entry))
	require.Len(t, sender.records, 1)
	got := sender.records[0]
	assert.Equal(t, "pix.key.events", got.topic)
	assert.Equal(t, "key-1", got.key)
	assert.JSONEq(t, `{"state":"CONFIRMED"}`, got.value)
	assert.Equal(t, entry.ID.String(), got.headers["entry_id"])
	assert.Equal(t, "key_confirmed", got.headers["event_type"])
}
