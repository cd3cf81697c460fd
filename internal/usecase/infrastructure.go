package usecase

import (
	"context"
	"time"
)

type MessageProducer interface {
	WriteMessage(ctx context.Context, req *WriteMessageReq) error
}

// EventHandler обрабатывает событие из outbox. Обработка должна быть идемпотентной:
// после сбоя событие будет доставлено повторно.
type EventHandler interface {
	Name() string
	Handle(ctx context.Context, event *OutboxEvent) error
}

type Metrics interface {
	CheckoutFinished(result string, duration time.Duration)
	CheckoutRetried()
	CartItemAdded(quantity int)
}

type nopMetrics struct{}

func (nopMetrics) CheckoutFinished(string, time.Duration) {}
func (nopMetrics) CheckoutRetried()                       {}
func (nopMetrics) CartItemAdded(int)                      {}

// NopMetrics возвращает реализацию Metrics, которая ничего не делает.
func NopMetrics() Metrics {
	return nopMetrics{}
}
