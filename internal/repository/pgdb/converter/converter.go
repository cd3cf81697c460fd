package converter

import (
	"github.com/DRSN-tech/checkout-backend/internal/domain"
	"github.com/DRSN-tech/checkout-backend/internal/usecase"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductConverter преобразует сущности Product между domain и моделью PostgreSQL.
type ProductConverter interface {
	ToModel(entity *domain.Product) *ProductModel
	ToEntity(model *ProductModel) *domain.Product
}

// CartConverter преобразует корзину и её позиции.
type CartConverter interface {
	ToEntity(model *CartModel, lines []CartLineModel) *domain.Cart
	ToLineEntities(models []CartLineModel) []domain.CartLine
}

// OrderConverter преобразует заказ и его позиции.
type OrderConverter interface {
	ToLineModels(entity *domain.Order) []OrderLineModel
	ToEntity(model *OrderModel, lines []OrderLineModel) *domain.Order
}

// OutboxEventConverter преобразует сущности OutboxEvent между usecase и моделью PostgreSQL.
type OutboxEventConverter interface {
	ToModel(entity *usecase.OutboxEvent) *OutboxEventModel
	ToEntity(model *OutboxEventModel) *usecase.OutboxEvent
	ToArrEntity(models []*OutboxEventModel) []*usecase.OutboxEvent
}

// PriceToCents переводит цену в копейки. Цена уже проверена на точность до двух знаков.
func PriceToCents(price decimal.Decimal) int64 {
	return price.Shift(2).IntPart()
}

// CentsToPrice переводит копейки в цену.
func CentsToPrice(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

type ProductConverterImpl struct{}

func (ProductConverterImpl) ToModel(entity *domain.Product) *ProductModel {
	if entity == nil {
		return nil
	}
	return &ProductModel{
		ID:          entity.ID,
		Name:        entity.Name,
		Description: entity.Description,
		PriceCents:  PriceToCents(entity.Price),
		Stock:       entity.Stock,
		CreatedAt:   entity.CreatedAt,
		UpdatedAt:   entity.UpdatedAt,
	}
}

func (ProductConverterImpl) ToEntity(model *ProductModel) *domain.Product {
	if model == nil {
		return nil
	}
	return &domain.Product{
		ID:          model.ID,
		Name:        model.Name,
		Description: model.Description,
		Price:       CentsToPrice(model.PriceCents),
		Stock:       model.Stock,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}

type CartConverterImpl struct{}

func (c CartConverterImpl) ToEntity(model *CartModel, lines []CartLineModel) *domain.Cart {
	if model == nil {
		return nil
	}
	return &domain.Cart{
		ID:        model.ID,
		UserID:    model.UserID,
		Status:    domain.CartStatus(model.Status),
		Lines:     c.ToLineEntities(lines),
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}

func (CartConverterImpl) ToLineEntities(models []CartLineModel) []domain.CartLine {
	result := make([]domain.CartLine, 0, len(models))
	for _, m := range models {
		result = append(result, domain.CartLine{CartID: m.CartID, ProductID: m.ProductID, Quantity: m.Quantity})
	}
	return result
}

type OrderConverterImpl struct{}

func (OrderConverterImpl) ToLineModels(entity *domain.Order) []OrderLineModel {
	result := make([]OrderLineModel, 0, len(entity.Lines))
	for _, l := range entity.Lines {
		result = append(result, OrderLineModel{
			OrderID:     entity.ID,
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			Quantity:    l.Quantity,
			PriceCents:  PriceToCents(l.Price),
		})
	}
	return result
}

func (OrderConverterImpl) ToEntity(model *OrderModel, lines []OrderLineModel) *domain.Order {
	if model == nil {
		return nil
	}
	order := &domain.Order{
		ID:        model.ID,
		UserID:    model.UserID,
		CreatedAt: model.CreatedAt,
		Lines:     make([]domain.OrderLine, 0, len(lines)),
	}
	for _, l := range lines {
		order.Lines = append(order.Lines, domain.OrderLine{
			OrderID:     model.ID,
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			Quantity:    l.Quantity,
			Price:       CentsToPrice(l.PriceCents),
		})
	}
	return order
}

type OutboxEventConverterImpl struct{}

func (OutboxEventConverterImpl) ToModel(entity *usecase.OutboxEvent) *OutboxEventModel {
	if entity == nil {
		return nil
	}
	model := &OutboxEventModel{
		ID:          entity.ID,
		EventID:     entity.EventID.String(),
		EventType:   entity.EventType,
		AggregateID: entity.AggregateID,
		Payload:     entity.Payload,
		Status:      string(entity.Status),
		Attempts:    entity.Attempts,
		CreatedAt:   entity.CreatedAt,
		ProcessedAt: entity.ProcessedAt,
	}
	if entity.LastError != "" {
		lastErr := entity.LastError
		model.LastError = &lastErr
	}
	return model
}

func (OutboxEventConverterImpl) ToEntity(model *OutboxEventModel) *usecase.OutboxEvent {
	if model == nil {
		return nil
	}
	// event_id хранится как UUID, поэтому ошибка разбора невозможна
	eventID, _ := uuid.Parse(model.EventID)
	event := &usecase.OutboxEvent{
		ID:          model.ID,
		EventID:     eventID,
		EventType:   model.EventType,
		AggregateID: model.AggregateID,
		Payload:     model.Payload,
		Status:      usecase.OutboxStatus(model.Status),
		Attempts:    model.Attempts,
		CreatedAt:   model.CreatedAt,
		ProcessedAt: model.ProcessedAt,
	}
	if model.LastError != nil {
		event.LastError = *model.LastError
	}
	return event
}

func (c OutboxEventConverterImpl) ToArrEntity(models []*OutboxEventModel) []*usecase.OutboxEvent {
	result := make([]*usecase.OutboxEvent, 0, len(models))
	for _, m := range models {
		result = append(result, c.ToEntity(m))
	}
	return result
}
