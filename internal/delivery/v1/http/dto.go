package http

import (
	"encoding/json"
	"time"

	"github.com/DRSN-tech/checkout-backend/internal/usecase"
	"github.com/shopspring/decimal"
)

type CreateProductRequest struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Price       json.Number `json:"price" swaggertype:"string" example:"599.99"`
	Stock       int         `json:"stock"`
}

type UpdatePriceRequest struct {
	Price json.Number `json:"price" swaggertype:"string" example:"649.00"`
}

// AddItemRequest - без quantity добавляется одна единица товара.
type AddItemRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  *int  `json:"quantity,omitempty"`
}

type ProductResponse struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price" swaggertype:"string"`
	Stock       int             `json:"stock"`
}

type CartLineResponse struct {
	ProductID    int64           `json:"product_id"`
	Name         string          `json:"name"`
	Quantity     int             `json:"quantity"`
	Price        decimal.Decimal `json:"price" swaggertype:"string"`
	StockWarning bool            `json:"stock_warning"`
}

type CartResponse struct {
	CartID int64              `json:"cart_id"`
	Lines  []CartLineResponse `json:"lines"`
}

type OrderLineResponse struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price" swaggertype:"string"`
}

type OrderResponse struct {
	OrderID   int64               `json:"order_id"`
	CreatedAt time.Time           `json:"created_at"`
	Lines     []OrderLineResponse `json:"lines"`
	Total     decimal.Decimal     `json:"total" swaggertype:"string"`
}

type ReceiptResponse struct {
	URL string `json:"url"`
}

func newProductResponse(p *usecase.ProductInfo) ProductResponse {
	return ProductResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Stock:       p.Stock,
	}
}

func newCartResponse(c *usecase.CartRes) CartResponse {
	lines := make([]CartLineResponse, 0, len(c.Lines))
	for _, l := range c.Lines {
		lines = append(lines, CartLineResponse{
			ProductID:    l.ProductID,
			Name:         l.Name,
			Quantity:     l.Quantity,
			Price:        l.UnitPrice,
			StockWarning: l.StockWarning,
		})
	}
	return CartResponse{CartID: c.CartID, Lines: lines}
}

func newOrderResponse(o *usecase.CheckoutRes) OrderResponse {
	lines := make([]OrderLineResponse, 0, len(o.Lines))
	for _, l := range o.Lines {
		lines = append(lines, OrderLineResponse{
			ProductID: l.ProductID,
			Name:      l.Name,
			Quantity:  l.Quantity,
			Price:     l.Price,
		})
	}
	return OrderResponse{
		OrderID:   o.OrderID,
		CreatedAt: o.CreatedAt,
		Lines:     lines,
		Total:     o.Total,
	}
}
