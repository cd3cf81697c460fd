package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/DRSN-tech/checkout-backend/internal/domain"
	"github.com/DRSN-tech/checkout-backend/pkg/e"
	"github.com/DRSN-tech/checkout-backend/pkg/jitter"
	"github.com/DRSN-tech/checkout-backend/pkg/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/DRSN-tech/checkout-backend/internal/usecase"

// Результаты оформления для метрик
const (
	CheckoutResultSuccess           = "success"
	CheckoutResultInsufficientStock = "insufficient_stock"
	CheckoutResultInvalidState      = "invalid_state"
	CheckoutResultError             = "error"
)

// RetryPolicy задаёт повторы транзакции оформления при конфликтах сериализации и дедлоках.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// ProductCacheInvalidator удаляет из кэша товары, остаток которых изменился.
type ProductCacheInvalidator interface {
	InvalidateProducts(ctx context.Context, ids []int64)
}

// CheckoutUseCase превращает активную корзину в заказ.
type CheckoutUseCase struct {
	txManager   TxManager
	cartRepo    CartRepository
	productRepo ProductRepository
	orderRepo   OrderRepository
	outboxRepo  OutboxRepository
	cache       ProductCacheInvalidator
	retry       RetryPolicy
	metrics     Metrics
	logger      logger.Logger
	tracer      trace.Tracer
}

func NewCheckoutUC(
	txManager TxManager,
	cartRepo CartRepository,
	productRepo ProductRepository,
	orderRepo OrderRepository,
	outboxRepo OutboxRepository,
	cache ProductCacheInvalidator,
	retry RetryPolicy,
	metrics Metrics,
	logger logger.Logger,
) *CheckoutUseCase {
	return &CheckoutUseCase{
		txManager:   txManager,
		cartRepo:    cartRepo,
		productRepo: productRepo,
		orderRepo:   orderRepo,
		outboxRepo:  outboxRepo,
		cache:       cache,
		retry:       retry,
		metrics:     metrics,
		logger:      logger,
		tracer:      otel.Tracer(tracerName),
	}
}

// Checkout оформляет активную корзину пользователя.
// Либо создаются заказ, списание остатков и закрытие корзины одновременно, либо не меняется ничего.
func (c *CheckoutUseCase) Checkout(ctx context.Context, userID int64) (*CheckoutRes, error) {
	const op = "CheckoutUseCase.Checkout"

	ctx, span := c.tracer.Start(ctx, op, trace.WithAttributes(attribute.Int64("user.id", userID)))
	defer span.End()

	start := time.Now()
	order, err := c.checkoutWithRetry(ctx, userID)
	result := checkoutResult(err)
	c.metrics.CheckoutFinished(result, time.Since(start))
	span.SetAttributes(attribute.String("checkout.result", result))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, result)

		if result == CheckoutResultError {
			c.logger.Errorf(err, "checkout failed for user %d", userID)
			return nil, e.Wrap(op, e.Transient(err))
		}
		return nil, e.Wrap(op, err)
	}

	span.SetAttributes(attribute.Int64("order.id", order.ID))
	c.logger.Infof("user %d checked out order %d with %d lines", userID, order.ID, len(order.Lines))

	// Остатки изменились, подсказки в кэше устарели
	ids := make([]int64, len(order.Lines))
	for i, l := range order.Lines {
		ids[i] = l.ProductID
	}
	c.cache.InvalidateProducts(ctx, ids)

	return NewCheckoutRes(order), nil
}

func (c *CheckoutUseCase) checkoutWithRetry(ctx context.Context, userID int64) (*domain.Order, error) {
	for attempt := 0; ; attempt++ {
		order, err := c.checkoutOnce(ctx, userID)
		if err == nil || !errors.Is(err, e.ErrSerialization) || attempt >= c.retry.MaxRetries {
			return order, err
		}

		c.metrics.CheckoutRetried()
		delay := jitter.ExponentialBackoff(c.retry.BaseDelay, c.retry.MaxDelay, attempt, jitter.DefaultJitter)
		c.logger.Warnf("checkout for user %d hit a write conflict, retry %d in %s: %v", userID, attempt+1, delay, err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
}

// checkoutOnce выполняет одну попытку оформления в транзакции.
// Сначала проверяются все позиции, записи начинаются только после успешной проверки.
func (c *CheckoutUseCase) checkoutOnce(ctx context.Context, userID int64) (*domain.Order, error) {
	var created *domain.Order

	err := c.txManager.Do(ctx, func(ctx context.Context) error {
		cart, err := c.cartRepo.LockActive(ctx, userID)
		if err != nil {
			if errors.Is(err, e.ErrNotFound) {
				return e.ErrCartEmpty
			}
			return err
		}
		if cart.IsEmpty() {
			return e.ErrCartEmpty
		}

		products, err := c.productRepo.LockForCheckout(ctx, cart.ProductIDs())
		if err != nil {
			return err
		}
		byID := make(map[int64]domain.Product, len(products))
		for _, p := range products {
			byID[p.ID] = p
		}

		// Проверка остатков по всем позициям
		order := &domain.Order{UserID: userID, Lines: make([]domain.OrderLine, 0, len(cart.Lines))}
		for _, line := range cart.Lines {
			p, ok := byID[line.ProductID]
			if !ok {
				return e.ErrProductNotFound
			}
			if !p.HasStock(line.Quantity) {
				return &e.InsufficientStockError{
					ProductID:   p.ID,
					ProductName: p.Name,
					Requested:   line.Quantity,
					Available:   p.Stock,
				}
			}
			order.Lines = append(order.Lines, domain.OrderLine{
				ProductID:   p.ID,
				ProductName: p.Name,
				Quantity:    line.Quantity,
				Price:       p.Price,
			})
		}

		created, err = c.orderRepo.Create(ctx, order)
		if err != nil {
			return err
		}

		for _, line := range created.Lines {
			if err := c.productRepo.DecrementStockIfAvailable(ctx, line.ProductID, line.Quantity); err != nil {
				if errors.Is(err, e.ErrInsufficientStock) {
					return &e.InsufficientStockError{
						ProductID:   line.ProductID,
						ProductName: line.ProductName,
						Requested:   line.Quantity,
						Available:   byID[line.ProductID].Stock,
					}
				}
				return err
			}
		}

		if err := c.cartRepo.MarkCheckedOut(ctx, cart.ID); err != nil {
			return err
		}

		event, err := NewOrderCreatedEvent(created)
		if err != nil {
			return err
		}
		_, err = c.outboxRepo.Create(ctx, event)
		return err
	})
	if err != nil {
		return nil, err
	}

	return created, nil
}

func checkoutResult(err error) string {
	switch {
	case err == nil:
		return CheckoutResultSuccess
	case errors.Is(err, e.ErrInsufficientStock):
		return CheckoutResultInsufficientStock
	case errors.Is(err, e.ErrInvalidState):
		return CheckoutResultInvalidState
	default:
		return CheckoutResultError
	}
}
