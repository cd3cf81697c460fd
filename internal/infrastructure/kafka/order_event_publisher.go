package kafka

import (
	"context"
	"strconv"

	"github.com/DRSN-tech/checkout-backend/internal/usecase"
)

// OrderEventPublisher публикует события outbox в Kafka.
type OrderEventPublisher struct {
	producer usecase.MessageProducer
}

func NewOrderEventPublisher(producer usecase.MessageProducer) *OrderEventPublisher {
	return &OrderEventPublisher{producer: producer}
}

func (o *OrderEventPublisher) Name() string {
	return "kafka"
}

// Handle отправляет событие как есть. Получатели различают дубли по event_id.
func (o *OrderEventPublisher) Handle(ctx context.Context, event *usecase.OutboxEvent) error {
	return o.producer.WriteMessage(ctx, &usecase.WriteMessageReq{
		Key:     strconv.FormatInt(event.AggregateID, 10),
		Payload: event.Payload,
		Headers: map[string]string{
			"event_id":   event.EventID.String(),
			"event_type": event.EventType,
		},
	})
}
