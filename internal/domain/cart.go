package domain

import "time"

// MaxLineQuantity ограничивает количество одного товара в корзине, включая сумму повторных добавлений.
const MaxLineQuantity = 1_000_000

type CartStatus string

const (
	CartStatusActive     CartStatus = "active"
	CartStatusCheckedOut CartStatus = "checked_out"
)

// Cart описывает корзину пользователя. У пользователя не больше одной активной корзины.
type Cart struct {
	ID        int64
	UserID    int64
	Status    CartStatus
	Lines     []CartLine
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CartLine - позиция корзины. В пределах корзины одна позиция на товар.
type CartLine struct {
	CartID    int64
	ProductID int64
	Quantity  int
}

func (c *Cart) IsActive() bool {
	return c.Status == CartStatusActive
}

func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// ProductIDs возвращает идентификаторы товаров корзины в порядке позиций.
func (c *Cart) ProductIDs() []int64 {
	ids := make([]int64, len(c.Lines))
	for i, l := range c.Lines {
		ids[i] = l.ProductID
	}
	return ids
}
