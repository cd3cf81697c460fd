package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DRSN-tech/checkout-backend/internal/domain"
	"github.com/DRSN-tech/checkout-backend/pkg/e"
	"github.com/DRSN-tech/checkout-backend/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateProduct(t *testing.T) {
	f := newFixture(t)

	info, err := f.products.CreateProduct(context.Background(), &CreateProductReq{
		Name:        "  Widget ",
		Description: "blue",
		Price:       decimal.RequireFromString("19.99"),
		Stock:       3,
	})
	require.NoError(t, err)
	assert.NotZero(t, info.ID)
	assert.Equal(t, "Widget", info.Name)
	assert.Equal(t, 3, info.Stock)
}

func TestCreateProduct_Validation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name    string
		req     *CreateProductReq
		wantErr error
	}{
		{"empty name", &CreateProductReq{Name: " ", Price: decimal.NewFromInt(1)}, e.ErrProductNameRequired},
		{"negative price", &CreateProductReq{Name: "x", Price: decimal.NewFromInt(-1)}, e.ErrInvalidPrice},
		{"sub-cent price", &CreateProductReq{Name: "x", Price: decimal.RequireFromString("1.005")}, e.ErrPricePrecision},
		{"price above limit", &CreateProductReq{Name: "x", Price: domain.MaxPrice.Add(decimal.RequireFromString("0.01"))}, e.ErrInvalidPrice},
		{"price beyond int64 cents", &CreateProductReq{Name: "x", Price: decimal.RequireFromString("92233720368547758.08")}, e.ErrInvalidPrice},
		{"negative stock", &CreateProductReq{Name: "x", Price: decimal.NewFromInt(1), Stock: -1}, e.ErrInvalidStock},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.products.CreateProduct(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.ErrorIs(t, err, e.ErrInvalidArgument)
		})
	}
}

func TestUpdatePrice_InvalidatesCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.store.addProduct("Widget", "1.00", 1)
	require.NoError(t, f.cache.SetProducts(ctx, []ProductInfo{{ID: p, Name: "Widget", Price: decimal.NewFromInt(1)}}))

	info, err := f.products.UpdatePrice(ctx, &UpdatePriceReq{ProductID: p, Price: decimal.RequireFromString("2.50")})
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("2.50").Equal(info.Price))
	assert.Contains(t, f.cache.deleted, p)

	_, err = f.products.UpdatePrice(ctx, &UpdatePriceReq{ProductID: 404, Price: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, e.ErrNotFound)
}

func TestUpdatePrice_RejectsPriceAboveLimit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.store.addProduct("Widget", "1.00", 1)

	_, err := f.products.UpdatePrice(ctx, &UpdatePriceReq{ProductID: p, Price: decimal.RequireFromString("1e20")})
	assert.ErrorIs(t, err, e.ErrInvalidPrice)

	info, err := f.products.UpdatePrice(ctx, &UpdatePriceReq{ProductID: p, Price: domain.MaxPrice})
	require.NoError(t, err)
	assert.True(t, domain.MaxPrice.Equal(info.Price))
}

func TestGetProductsInfo_CacheAside(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cached := f.store.addProduct("Cached", "1.00", 1)
	fromDB := f.store.addProduct("FromDB", "2.00", 2)
	require.NoError(t, f.cache.SetProducts(ctx, []ProductInfo{{ID: cached, Name: "Cached (cache)", Price: decimal.NewFromInt(1)}}))

	res, err := f.products.GetProductsInfo(ctx, NewGetProductsReq([]int64{cached, fromDB, 777}))
	require.NoError(t, err)

	require.Len(t, res.Products, 2)
	assert.Equal(t, "Cached (cache)", res.Products[0].Name)
	assert.Equal(t, "FromDB", res.Products[1].Name)
	assert.Equal(t, []int64{777}, res.NotFoundProducts)
}

type slowProductRepo struct {
	memProductRepo
	delay time.Duration
}

func (r slowProductRepo) GetByIDs(ctx context.Context, ids []int64) ([]domain.Product, error) {
	time.Sleep(r.delay)
	return r.memProductRepo.GetByIDs(ctx, ids)
}

func TestGetProductsInfo_SlowReadIsNotCached(t *testing.T) {
	f := newFixture(t)
	p := f.store.addProduct("Widget", "1.00", 1)
	uc := NewProductUC(slowProductRepo{memProductRepo{f.store}, cacheWriteTimeout + 50*time.Millisecond}, f.cache, logger.NewNop())

	res, err := uc.GetProductsInfo(context.Background(), NewGetProductsReq([]int64{p}))
	require.NoError(t, err)
	require.Len(t, res.Products, 1)

	assert.Never(t, func() bool {
		cached, _ := f.cache.GetProducts(context.Background(), []int64{p})
		return len(cached) > 0
	}, 200*time.Millisecond, 10*time.Millisecond)
}

func TestGetProductsInfo_CacheFailureFallsBackToDB(t *testing.T) {
	f := newFixture(t)
	p := f.store.addProduct("Widget", "1.00", 1)
	f.cache.err = errors.New("redis down")

	res, err := f.products.GetProductsInfo(context.Background(), NewGetProductsReq([]int64{p}))
	require.NoError(t, err)
	require.Len(t, res.Products, 1)
	assert.Equal(t, "Widget", res.Products[0].Name)
}

func TestListProducts(t *testing.T) {
	f := newFixture(t)
	f.store.addProduct("A", "1.00", 1)
	f.store.addProduct("B", "2.00", 0)

	list, err := f.products.ListProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "A", list[0].Name)
	assert.Equal(t, 0, list[1].Stock)
}
