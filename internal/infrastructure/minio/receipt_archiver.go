package minio

import (
	"context"
	"encoding/json"
	"time"

	"github.com/DRSN-tech/checkout-backend/internal/usecase"
	"github.com/DRSN-tech/checkout-backend/pkg/e"
	"github.com/DRSN-tech/checkout-backend/pkg/logger"
	"github.com/shopspring/decimal"
)

// Receipt - чек заказа в хранилище.
type Receipt struct {
	OrderID  int64           `json:"order_id"`
	UserID   int64           `json:"user_id"`
	IssuedAt time.Time       `json:"issued_at"`
	Lines    []ReceiptLine   `json:"lines"`
	Total    decimal.Decimal `json:"total"`
}

type ReceiptLine struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// ReceiptArchiver сохраняет чек каждого оформленного заказа в MinIO.
type ReceiptArchiver struct {
	repo   usecase.ReceiptRepository
	logger logger.Logger
}

func NewReceiptArchiver(repo usecase.ReceiptRepository, logger logger.Logger) *ReceiptArchiver {
	return &ReceiptArchiver{
		repo:   repo,
		logger: logger,
	}
}

func (r *ReceiptArchiver) Name() string {
	return "receipt-archiver"
}

// Handle строит чек из события order.created. Ключ объекта зависит только от заказа,
// поэтому повторная доставка перезаписывает тот же чек.
func (r *ReceiptArchiver) Handle(ctx context.Context, event *usecase.OutboxEvent) error {
	const op = "ReceiptArchiver.Handle"

	if event.EventType != usecase.EventOrderCreated {
		return nil
	}

	var payload usecase.OrderCreatedPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return e.Wrap(op, err)
	}

	data, err := json.MarshalIndent(NewReceipt(&payload), "", "  ")
	if err != nil {
		return e.Wrap(op, err)
	}

	if err := r.repo.Upload(ctx, usecase.ReceiptKey(payload.UserID, payload.OrderID), data); err != nil {
		return e.Wrap(op, err)
	}

	r.logger.Debugf("receipt for order %d archived", payload.OrderID)
	return nil
}

func NewReceipt(p *usecase.OrderCreatedPayload) *Receipt {
	receipt := &Receipt{
		OrderID:  p.OrderID,
		UserID:   p.UserID,
		IssuedAt: p.CreatedAt,
		Lines:    make([]ReceiptLine, 0, len(p.Lines)),
		Total:    p.Total,
	}
	for _, l := range p.Lines {
		receipt.Lines = append(receipt.Lines, ReceiptLine{
			ProductID: l.ProductID,
			Name:      l.Name,
			Quantity:  l.Quantity,
			Price:     l.Price,
			Subtotal:  l.Price.Mul(decimal.NewFromInt(int64(l.Quantity))),
		})
	}
	return receipt
}
