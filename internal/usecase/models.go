package usecase

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/DRSN-tech/checkout-backend/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PRODUCT USECASE

// CreateProductReq - запрос на добавление товара в каталог.
type CreateProductReq struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
}

// UpdatePriceReq - запрос на изменение цены товара.
type UpdatePriceReq struct {
	ProductID int64
	Price     decimal.Decimal
}

// GetProductsReq запрос информации о продуктах по их идентификаторам.
type GetProductsReq struct {
	IDs []int64
}

// GetProductsRes - ответ с данными запрошенных продуктов.
type GetProductsRes struct {
	Products         []ProductInfo
	NotFoundProducts []int64
}

// ProductInfo - DTO с информацией о продукте для внешнего использования.
// Stock в кэше может отставать от БД и используется только для подсказок.
type ProductInfo struct {
	ID          int64
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
}

// CART USECASE

type AddItemReq struct {
	UserID    int64
	ProductID int64
	Quantity  int
}

// CartRes - активная корзина с текущими ценами товаров.
type CartRes struct {
	CartID int64
	Lines  []CartLineInfo
}

type CartLineInfo struct {
	ProductID    int64
	Name         string
	Quantity     int
	UnitPrice    decimal.Decimal
	StockWarning bool // в корзине больше, чем сейчас есть на складе
}

// CHECKOUT USECASE

// CheckoutRes - оформленный заказ. Цены позиций взяты на момент оформления.
type CheckoutRes struct {
	OrderID   int64
	UserID    int64
	CreatedAt time.Time
	Lines     []OrderLineInfo
	Total     decimal.Decimal
}

type OrderLineInfo struct {
	ProductID int64
	Name      string
	Quantity  int
	Price     decimal.Decimal
}

// INFRASTRUCTURE

type WriteMessageReq struct {
	Key     string
	Payload []byte
	Headers map[string]string
}

// OUTBOX

type OutboxStatus string

const (
	Pending    OutboxStatus = "pending"
	Processing OutboxStatus = "processing"
	Processed  OutboxStatus = "processed"
	// Failed - попытки доставки исчерпаны, событие ждёт ручного разбора
	Failed OutboxStatus = "failed"
)

// OutboxChannel - канал LISTEN/NOTIFY, в который сообщается о новых событиях.
const OutboxChannel = "outbox_pending"

const EventOrderCreated = "order.created"

// OutboxEvent - событие, сохранённое в той же транзакции, что и изменение данных.
type OutboxEvent struct {
	ID          int64
	EventID     uuid.UUID
	EventType   string
	AggregateID int64
	Payload     []byte
	Status      OutboxStatus
	Attempts    int
	LastError   string
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

// OrderCreatedPayload - тело события order.created.
type OrderCreatedPayload struct {
	EventID   string             `json:"event_id"`
	OrderID   int64              `json:"order_id"`
	UserID    int64              `json:"user_id"`
	CreatedAt time.Time          `json:"created_at"`
	Lines     []OrderCreatedLine `json:"lines"`
	Total     decimal.Decimal    `json:"total"`
}

type OrderCreatedLine struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// MAPPERS

func NewGetProductsRes(pr []ProductInfo, notFoundProducts []int64) *GetProductsRes {
	return &GetProductsRes{
		Products:         pr,
		NotFoundProducts: notFoundProducts,
	}
}

func NewGetProductsReq(ids []int64) *GetProductsReq {
	return &GetProductsReq{ids}
}

func NewProductInfo(p *domain.Product) ProductInfo {
	return ProductInfo{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Stock:       p.Stock,
	}
}

func NewCheckoutRes(o *domain.Order) *CheckoutRes {
	lines := make([]OrderLineInfo, 0, len(o.Lines))
	for _, l := range o.Lines {
		lines = append(lines, OrderLineInfo{
			ProductID: l.ProductID,
			Name:      l.ProductName,
			Quantity:  l.Quantity,
			Price:     l.Price,
		})
	}

	return &CheckoutRes{
		OrderID:   o.ID,
		UserID:    o.UserID,
		CreatedAt: o.CreatedAt,
		Lines:     lines,
		Total:     o.Total(),
	}
}

// NewOrderCreatedEvent собирает событие order.created для outbox.
func NewOrderCreatedEvent(o *domain.Order) (*OutboxEvent, error) {
	eventID := uuid.New()

	lines := make([]OrderCreatedLine, 0, len(o.Lines))
	for _, l := range o.Lines {
		lines = append(lines, OrderCreatedLine{
			ProductID: l.ProductID,
			Name:      l.ProductName,
			Quantity:  l.Quantity,
			Price:     l.Price,
		})
	}

	payload, err := json.Marshal(OrderCreatedPayload{
		EventID:   eventID.String(),
		OrderID:   o.ID,
		UserID:    o.UserID,
		CreatedAt: o.CreatedAt,
		Lines:     lines,
		Total:     o.Total(),
	})
	if err != nil {
		return nil, err
	}

	return &OutboxEvent{
		EventID:     eventID,
		EventType:   EventOrderCreated,
		AggregateID: o.ID,
		Payload:     payload,
		Status:      Pending,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// ReceiptKey возвращает ключ объекта чека заказа в хранилище.
func ReceiptKey(userID, orderID int64) string {
	return "receipts/" + strconv.FormatInt(userID, 10) + "/" + strconv.FormatInt(orderID, 10) + ".json"
}
