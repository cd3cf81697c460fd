package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DRSN-tech/checkout-backend/internal/domain"
	"github.com/DRSN-tech/checkout-backend/internal/usecase"
	"github.com/DRSN-tech/checkout-backend/pkg/e"
	"github.com/DRSN-tech/checkout-backend/pkg/logger"
	"github.com/DRSN-tech/checkout-backend/pkg/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeVerifier struct{}

// Токен вида "admin:1" или "user:7".
func (fakeVerifier) Verify(token string) (domain.Identity, error) {
	switch token {
	case "admin:1":
		return domain.Identity{UserID: 1, Role: domain.RoleAdmin}, nil
	case "user:7":
		return domain.Identity{UserID: 7, Role: domain.RoleUser}, nil
	}
	return domain.Identity{}, e.ErrUnauthorized
}

type fakeProducts struct {
	created *usecase.CreateProductReq
	updated *usecase.UpdatePriceReq
}

func (f *fakeProducts) CreateProduct(_ context.Context, req *usecase.CreateProductReq) (*usecase.ProductInfo, error) {
	f.created = req
	return &usecase.ProductInfo{ID: 10, Name: req.Name, Price: req.Price, Stock: req.Stock}, nil
}

func (f *fakeProducts) UpdatePrice(_ context.Context, req *usecase.UpdatePriceReq) (*usecase.ProductInfo, error) {
	if req.ProductID == 404 {
		return nil, e.Wrap("ProductUseCase.UpdatePrice", e.ErrProductNotFound)
	}
	f.updated = req
	return &usecase.ProductInfo{ID: req.ProductID, Name: "Widget", Price: req.Price}, nil
}

func (f *fakeProducts) ListProducts(context.Context) ([]usecase.ProductInfo, error) {
	return []usecase.ProductInfo{{ID: 1, Name: "Widget", Price: decimal.RequireFromString("10.50"), Stock: 3}}, nil
}

func (f *fakeProducts) GetProductsInfo(_ context.Context, req *usecase.GetProductsReq) (*usecase.GetProductsRes, error) {
	res := &usecase.GetProductsRes{}
	for _, id := range req.IDs {
		if id == 1 {
			res.Products = append(res.Products, usecase.ProductInfo{ID: 1, Name: "Widget", Price: decimal.RequireFromString("10.50"), Stock: 3})
		} else {
			res.NotFoundProducts = append(res.NotFoundProducts, id)
		}
	}
	return res, nil
}

type fakeCarts struct {
	added *usecase.AddItemReq
}

func (f *fakeCarts) AddItem(_ context.Context, req *usecase.AddItemReq) (*usecase.CartRes, error) {
	if req.Quantity > domain.MaxLineQuantity {
		return nil, e.Wrap("CartUseCase.AddItem", e.ErrQuantityTooLarge)
	}
	f.added = req
	return &usecase.CartRes{CartID: 3, Lines: []usecase.CartLineInfo{
		{ProductID: req.ProductID, Name: "Widget", Quantity: req.Quantity, UnitPrice: decimal.RequireFromString("2.00"), StockWarning: true},
	}}, nil
}

func (f *fakeCarts) GetActiveCart(context.Context, int64) (*usecase.CartRes, error) {
	return nil, e.Wrap("CartUseCase.GetActiveCart", e.ErrCartNotFound)
}

type fakeCheckout struct {
	err error
}

func (f *fakeCheckout) Checkout(_ context.Context, userID int64) (*usecase.CheckoutRes, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &usecase.CheckoutRes{
		OrderID:   99,
		UserID:    userID,
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Lines:     []usecase.OrderLineInfo{{ProductID: 1, Name: "Widget", Quantity: 2, Price: decimal.RequireFromString("10")}},
		Total:     decimal.RequireFromString("20"),
	}, nil
}

type fakeOrders struct{}

func (fakeOrders) GetOrder(_ context.Context, userID, orderID int64) (*usecase.CheckoutRes, error) {
	if orderID != 99 || userID != 7 {
		return nil, e.ErrOrderNotFound
	}
	return &usecase.CheckoutRes{OrderID: 99, UserID: 7, Total: decimal.RequireFromString("20")}, nil
}

func (fakeOrders) ListOrders(context.Context, int64) ([]usecase.CheckoutRes, error) {
	return []usecase.CheckoutRes{{OrderID: 99}, {OrderID: 98}}, nil
}

func (fakeOrders) ReceiptURL(_ context.Context, userID, orderID int64) (string, error) {
	if orderID == 98 {
		return "", e.Wrap("OrderUseCase.ReceiptURL", e.ErrReceiptNotReady)
	}
	return "http://minio/receipts/7/99.json?X-Amz-Signature=abc", nil
}

type testServer struct {
	handler  http.Handler
	products *fakeProducts
	carts    *fakeCarts
	checkout *fakeCheckout
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{products: &fakeProducts{}, carts: &fakeCarts{}, checkout: &fakeCheckout{}}

	reg := prometheus.NewRegistry()
	r := NewRouter(chi.NewRouter(), logger.NewNop())
	r.Init(Deps{
		Products: ts.products,
		Carts:    ts.carts,
		Checkout: ts.checkout,
		Orders:   fakeOrders{},
		Verifier: fakeVerifier{},
		Metrics:  metrics.NewServerMetrics(reg),
		Gatherer: reg,
	})
	ts.handler = r.Handler()
	return ts
}

func (ts *testServer) do(method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestListProductsIsPublic(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/api/v1/products", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	products := decodeBody[[]ProductResponse](t, rec)
	require.Len(t, products, 1)
	assert.Equal(t, "Widget", products[0].Name)
	assert.True(t, decimal.RequireFromString("10.5").Equal(products[0].Price))
}

func TestGetProductIsPublic(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/api/v1/products/1", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	product := decodeBody[ProductResponse](t, rec)
	assert.Equal(t, "Widget", product.Name)
	assert.Equal(t, 3, product.Stock)

	rec = ts.do(http.MethodGet, "/api/v1/products/2", "", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, e.ErrProductNotFound.Error(), decodeBody[ErrorResponse](t, rec).Message)

	assert.Equal(t, http.StatusBadRequest, ts.do(http.MethodGet, "/api/v1/products/0", "", "").Code)
}

func TestCreateProductRequiresAdmin(t *testing.T) {
	ts := newTestServer(t)
	body := `{"name":"Widget","description":"blue","price":"599.99","stock":5}`

	rec := ts.do(http.MethodPost, "/api/v1/products", "", body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(http.MethodPost, "/api/v1/products", "bogus", body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(http.MethodPost, "/api/v1/products", "user:7", body)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Nil(t, ts.products.created)

	rec = ts.do(http.MethodPost, "/api/v1/products", "admin:1", body)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, ts.products.created)
	assert.Equal(t, "blue", ts.products.created.Description)
	assert.True(t, decimal.RequireFromString("599.99").Equal(ts.products.created.Price))
}

func TestCreateProductAcceptsNumericPrice(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/api/v1/products", "admin:1", `{"name":"Widget","price":600,"stock":1}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, decimal.NewFromInt(600).Equal(ts.products.created.Price))

	rec = ts.do(http.MethodPost, "/api/v1/products", "admin:1", `{"name":"Widget","price":"abc","stock":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdatePrice(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPatch, "/api/v1/products/5/price", "admin:1", `{"price":"12.30"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(5), ts.products.updated.ProductID)

	rec = ts.do(http.MethodPatch, "/api/v1/products/404/price", "admin:1", `{"price":"1"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(http.MethodPatch, "/api/v1/products/x/price", "admin:1", `{"price":"1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAddItemDefaultsQuantityToOne(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/api/v1/cart/items", "user:7", `{"product_id":4}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, &usecase.AddItemReq{UserID: 7, ProductID: 4, Quantity: 1}, ts.carts.added)

	cart := decodeBody[CartResponse](t, rec)
	require.Len(t, cart.Lines, 1)
	assert.True(t, cart.Lines[0].StockWarning)

	rec = ts.do(http.MethodPost, "/api/v1/cart/items", "user:7", `{"product_id":4,"quantity":3}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, ts.carts.added.Quantity)
}

func TestAddItemRejectsOversizedQuantity(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/api/v1/cart/items", "user:7", `{"product_id":4,"quantity":1000001}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, e.ErrQuantityTooLarge.Error(), decodeBody[ErrorResponse](t, rec).Message)

	// Не помещается в int: отвергается ещё при разборе тела
	rec = ts.do(http.MethodPost, "/api/v1/cart/items", "user:7", `{"product_id":4,"quantity":99999999999999999999}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, ts.carts.added)
}

func TestCartRoutesRequireToken(t *testing.T) {
	ts := newTestServer(t)

	assert.Equal(t, http.StatusUnauthorized, ts.do(http.MethodPost, "/api/v1/cart/items", "", `{"product_id":4}`).Code)
	assert.Equal(t, http.StatusUnauthorized, ts.do(http.MethodGet, "/api/v1/cart", "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, ts.do(http.MethodPost, "/api/v1/checkout", "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, ts.do(http.MethodGet, "/api/v1/orders", "", "").Code)
}

func TestGetCartWithoutActiveCart(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/api/v1/cart", "user:7", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, e.ErrCartNotFound.Error(), decodeBody[ErrorResponse](t, rec).Message)
}

func TestCheckoutResponses(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/api/v1/checkout", "user:7", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	order := decodeBody[OrderResponse](t, rec)
	assert.Equal(t, int64(99), order.OrderID)
	assert.True(t, decimal.NewFromInt(20).Equal(order.Total))

	ts.checkout.err = e.Wrap("CheckoutUseCase.Checkout", &e.InsufficientStockError{
		ProductID: 3, ProductName: "Gadget", Requested: 2, Available: 1,
	})
	rec = ts.do(http.MethodPost, "/api/v1/checkout", "user:7", "")
	require.Equal(t, http.StatusConflict, rec.Code)
	body := decodeBody[ErrorResponse](t, rec)
	assert.Equal(t, int64(3), body.ProductID)
	assert.Contains(t, body.Message, "Gadget")

	ts.checkout.err = e.Wrap("CheckoutUseCase.Checkout", e.ErrCartEmpty)
	assert.Equal(t, http.StatusConflict, ts.do(http.MethodPost, "/api/v1/checkout", "user:7", "").Code)

	ts.checkout.err = e.Transient(context.DeadlineExceeded)
	assert.Equal(t, http.StatusServiceUnavailable, ts.do(http.MethodPost, "/api/v1/checkout", "user:7", "").Code)
}

func TestOrderRoutes(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/api/v1/orders", "user:7", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]OrderResponse](t, rec), 2)

	assert.Equal(t, http.StatusOK, ts.do(http.MethodGet, "/api/v1/orders/99", "user:7", "").Code)
	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodGet, "/api/v1/orders/99", "admin:1", "").Code)

	rec = ts.do(http.MethodGet, "/api/v1/orders/99/receipt", "user:7", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, decodeBody[ReceiptResponse](t, rec).URL, "receipts/7/99.json")

	rec = ts.do(http.MethodGet, "/api/v1/orders/98/receipt", "user:7", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, e.ErrReceiptNotReady.Error(), decodeBody[ErrorResponse](t, rec).Message)
}

func TestHealthAndMetrics(t *testing.T) {
	ts := newTestServer(t)

	assert.Equal(t, http.StatusOK, ts.do(http.MethodGet, "/healthz", "", "").Code)
	ts.do(http.MethodGet, "/api/v1/products", "", "")

	rec := ts.do(http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `checkout_http_requests_total{route="/api/v1/products`)
}

func TestToHTTPResponse_HidesInternalErrors(t *testing.T) {
	res := ToHTTPResponse(e.Wrap("OrderRepo.GetByID", context.Canceled))
	assert.Equal(t, http.StatusInternalServerError, res.Code)
	assert.Equal(t, e.ErrInternalServerError.Error(), res.Message)
}
