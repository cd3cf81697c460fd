package usecase

import (
	"context"

	"github.com/DRSN-tech/checkout-backend/internal/domain"
	"github.com/DRSN-tech/checkout-backend/pkg/e"
	"github.com/DRSN-tech/checkout-backend/pkg/logger"
)

// OrderUseCase отдаёт пользователю его заказы и ссылки на чеки.
type OrderUseCase struct {
	orderRepo   OrderRepository
	receiptRepo ReceiptRepository
	logger      logger.Logger
}

func NewOrderUC(orderRepo OrderRepository, receiptRepo ReceiptRepository, logger logger.Logger) *OrderUseCase {
	return &OrderUseCase{
		orderRepo:   orderRepo,
		receiptRepo: receiptRepo,
		logger:      logger,
	}
}

// GetOrder возвращает заказ владельцу. Чужой заказ неотличим от несуществующего.
func (o *OrderUseCase) GetOrder(ctx context.Context, userID, orderID int64) (*CheckoutRes, error) {
	const op = "OrderUseCase.GetOrder"

	order, err := o.ownedOrder(ctx, userID, orderID)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return NewCheckoutRes(order), nil
}

// ListOrders возвращает заказы пользователя, новые первыми.
func (o *OrderUseCase) ListOrders(ctx context.Context, userID int64) ([]CheckoutRes, error) {
	const op = "OrderUseCase.ListOrders"

	orders, err := o.orderRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	result := make([]CheckoutRes, 0, len(orders))
	for i := range orders {
		result = append(result, *NewCheckoutRes(&orders[i]))
	}

	return result, nil
}

// ReceiptURL возвращает временную ссылку на чек заказа.
// Чек архивируется асинхронно, до этого возвращается e.ErrReceiptNotReady.
func (o *OrderUseCase) ReceiptURL(ctx context.Context, userID, orderID int64) (string, error) {
	const op = "OrderUseCase.ReceiptURL"

	if _, err := o.ownedOrder(ctx, userID, orderID); err != nil {
		return "", e.Wrap(op, err)
	}

	key := ReceiptKey(userID, orderID)
	archived, err := o.receiptRepo.Exists(ctx, key)
	if err != nil {
		return "", e.Wrap(op, e.Transient(err))
	}
	if !archived {
		return "", e.Wrap(op, e.ErrReceiptNotReady)
	}

	url, err := o.receiptRepo.PresignedURL(ctx, key)
	if err != nil {
		return "", e.Wrap(op, err)
	}

	return url, nil
}

func (o *OrderUseCase) ownedOrder(ctx context.Context, userID, orderID int64) (*domain.Order, error) {
	order, err := o.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, e.ErrOrderNotFound
	}
	return order, nil
}
