package usecase

import (
	"context"

	"github.com/DRSN-tech/checkout-backend/internal/domain"
	"github.com/shopspring/decimal"
)

// TxManager выполняет функцию в одной транзакции хранилища.
type TxManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) (*domain.Product, error)
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
	GetByIDs(ctx context.Context, ids []int64) ([]domain.Product, error)
	List(ctx context.Context) ([]domain.Product, error)
	UpdatePrice(ctx context.Context, id int64, price decimal.Decimal) (*domain.Product, error)
	// LockForCheckout блокирует строки товаров в порядке возрастания id до конца транзакции.
	LockForCheckout(ctx context.Context, ids []int64) ([]domain.Product, error)
	// DecrementStockIfAvailable атомарно списывает qty, только если остатка хватает.
	DecrementStockIfAvailable(ctx context.Context, id int64, qty int) error
}

type CartRepository interface {
	GetOrCreateActive(ctx context.Context, userID int64) (*domain.Cart, error)
	GetActive(ctx context.Context, userID int64) (*domain.Cart, error)
	LockActive(ctx context.Context, userID int64) (*domain.Cart, error)
	AddLine(ctx context.Context, cartID, productID int64, quantity int) error
	Lines(ctx context.Context, cartID int64) ([]domain.CartLine, error)
	MarkCheckedOut(ctx context.Context, cartID int64) error
}

type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) (*domain.Order, error)
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.Order, error)
}

type OutboxRepository interface {
	Create(ctx context.Context, event *OutboxEvent) (*OutboxEvent, error)
	GetAndMarkAsProcessing(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkAsProcessed(ctx context.Context, id int64) error
	Release(ctx context.Context, id int64, reason string) error
	MarkAsFailed(ctx context.Context, id int64, reason string) error
}

type CacheRepository interface {
	GetProducts(ctx context.Context, ids []int64) (map[int64]ProductInfo, error)
	SetProducts(ctx context.Context, products []ProductInfo) error
	DeleteProducts(ctx context.Context, ids []int64) error
}

type ReceiptRepository interface {
	Upload(ctx context.Context, key string, data []byte) error
	PresignedURL(ctx context.Context, key string) (string, error)
	Exists(ctx context.Context, key string) (bool, error)
}
