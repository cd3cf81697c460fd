package e

import (
	"errors"
	"fmt"
)

var (
	// Таксономия ошибок, видимых вызывающей стороне
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrNotFound          = errors.New("not found")
	ErrInvalidState      = errors.New("invalid state")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrForbidden         = errors.New("forbidden")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrTransient         = errors.New("temporary failure, retry later")

	// Конфликт сериализации или дедлок в БД, транзакцию можно повторить
	ErrSerialization = errors.New("serialization failure")

	// Внутренние ошибки с транзакциями
	ErrTransactionNotFound = errors.New("transaction not found")

	// 400 Bad Request
	ErrQuantityMustBePositive = fmt.Errorf("%w: quantity must be a positive integer", ErrInvalidArgument)
	ErrQuantityTooLarge       = fmt.Errorf("%w: quantity of a cart line must not exceed 1000000", ErrInvalidArgument)
	ErrProductNameRequired    = fmt.Errorf("%w: product name is required", ErrInvalidArgument)
	ErrInvalidPrice           = fmt.Errorf("%w: price must be a non-negative number not greater than 1000000000", ErrInvalidArgument)
	ErrPricePrecision         = fmt.Errorf("%w: price must have at most 2 decimal places", ErrInvalidArgument)
	ErrInvalidStock           = fmt.Errorf("%w: stock must be a non-negative integer", ErrInvalidArgument)
	ErrInvalidID              = fmt.Errorf("%w: id must be a positive integer", ErrInvalidArgument)
	ErrInvalidBody            = fmt.Errorf("%w: invalid JSON body", ErrInvalidArgument)

	// 404 Not Found
	ErrProductNotFound = fmt.Errorf("product %w", ErrNotFound)
	ErrCartNotFound    = fmt.Errorf("active cart %w", ErrNotFound)
	ErrOrderNotFound   = fmt.Errorf("order %w", ErrNotFound)
	ErrReceiptNotReady = fmt.Errorf("receipt is not archived yet: %w", ErrNotFound)

	// 409 Conflict
	ErrCartEmpty = fmt.Errorf("%w: no active cart or cart empty", ErrInvalidState)

	// 500
	ErrInternalServerError = errors.New("internal server error")

	// Конфигурация
	ErrIncorrectEnvVariable = errors.New("incorrect environment variable")
)

// InsufficientStockError сообщает, какой товар не удалось зарезервировать.
type InsufficientStockError struct {
	ProductID   int64
	ProductName string
	Requested   int
	Available   int
}

func (i *InsufficientStockError) Error() string {
	return fmt.Sprintf("not enough stock for %s (product %d): requested %d, available %d",
		i.ProductName, i.ProductID, i.Requested, i.Available)
}

func (i *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}

// Wrap оборачивает ошибку
func Wrap(msg string, err error) error {
	return fmt.Errorf("%s: %w", msg, err)
}

// Transient помечает ошибку хранилища как временную, сохраняя исходную причину.
func Transient(err error) error {
	return fmt.Errorf("%w: %w", ErrTransient, err)
}
