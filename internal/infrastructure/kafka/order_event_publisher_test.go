package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/DRSN-tech/checkout-backend/internal/cfg"
	"github.com/DRSN-tech/checkout-backend/internal/usecase"
	"github.com/DRSN-tech/checkout-backend/pkg/logger"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memWriter struct {
	messages []kafka.Message
	err      error
}

func (m *memWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if m.err != nil {
		return m.err
	}
	m.messages = append(m.messages, msgs...)
	return nil
}

func (m *memWriter) Close() error { return nil }

func TestOrderEventPublisher_Handle(t *testing.T) {
	writer := &memWriter{}
	producer := NewProducerWithWriter(writer, logger.NewNop(), &cfg.KafkaCfg{Topic: "order.created"})
	publisher := NewOrderEventPublisher(producer)

	eventID := uuid.New()
	err := publisher.Handle(context.Background(), &usecase.OutboxEvent{
		EventID:     eventID,
		EventType:   usecase.EventOrderCreated,
		AggregateID: 42,
		Payload:     []byte(`{"order_id":42}`),
	})
	require.NoError(t, err)

	require.Len(t, writer.messages, 1)
	msg := writer.messages[0]
	assert.Equal(t, "42", string(msg.Key))
	assert.JSONEq(t, `{"order_id":42}`, string(msg.Value))

	headers := map[string]string{}
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, eventID.String(), headers["event_id"])
	assert.Equal(t, usecase.EventOrderCreated, headers["event_type"])
}

func TestOrderEventPublisher_PropagatesErrors(t *testing.T) {
	writer := &memWriter{err: errors.New("broker not available")}
	publisher := NewOrderEventPublisher(NewProducerWithWriter(writer, logger.NewNop(), &cfg.KafkaCfg{}))

	err := publisher.Handle(context.Background(), &usecase.OutboxEvent{AggregateID: 1})
	assert.ErrorContains(t, err, "broker not available")
}
