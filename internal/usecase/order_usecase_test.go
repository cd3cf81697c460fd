package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/DRSN-tech/checkout-backend/pkg/e"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrders_OwnerOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.store.addProduct("Widget", "3.00", 10)

	f.add(t, 1, p, 1)
	first, err := f.checkout.Checkout(ctx, 1)
	require.NoError(t, err)
	f.add(t, 1, p, 2)
	second, err := f.checkout.Checkout(ctx, 1)
	require.NoError(t, err)

	list, err := f.orders.ListOrders(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.OrderID, list[0].OrderID)
	assert.Equal(t, first.OrderID, list[1].OrderID)

	_, err = f.orders.GetOrder(ctx, 2, first.OrderID)
	assert.ErrorIs(t, err, e.ErrNotFound)

	empty, err := f.orders.ListOrders(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestReceiptURL(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.store.addProduct("Widget", "3.00", 10)
	f.add(t, 9, p, 1)
	order, err := f.checkout.Checkout(ctx, 9)
	require.NoError(t, err)

	// Чек ещё не заархивирован воркером
	_, err = f.orders.ReceiptURL(ctx, 9, order.OrderID)
	require.ErrorIs(t, err, e.ErrReceiptNotReady)
	assert.ErrorIs(t, err, e.ErrNotFound)

	require.NoError(t, f.receipts.Upload(ctx, ReceiptKey(9, order.OrderID), []byte(`{}`)))
	url, err := f.orders.ReceiptURL(ctx, 9, order.OrderID)
	require.NoError(t, err)
	assert.Contains(t, url, ReceiptKey(9, order.OrderID))

	_, err = f.orders.ReceiptURL(ctx, 10, order.OrderID)
	assert.ErrorIs(t, err, e.ErrOrderNotFound)
}

func TestReceiptURL_StorageFailureIsTransient(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.store.addProduct("Widget", "3.00", 10)
	f.add(t, 9, p, 1)
	order, err := f.checkout.Checkout(ctx, 9)
	require.NoError(t, err)

	f.receipts.err = errors.New("minio unavailable")
	_, err = f.orders.ReceiptURL(ctx, 9, order.OrderID)
	assert.ErrorIs(t, err, e.ErrTransient)
}
