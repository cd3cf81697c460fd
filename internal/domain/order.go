package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order - неизменяемый заказ, создаётся только успешным оформлением корзины.
type Order struct {
	ID        int64
	UserID    int64
	Lines     []OrderLine
	CreatedAt time.Time
}

// OrderLine хранит снимок цены на момент оформления, а не ссылку на текущую цену товара.
type OrderLine struct {
	OrderID     int64
	ProductID   int64
	ProductName string
	Quantity    int
	Price       decimal.Decimal
}

// LineTotal возвращает стоимость позиции.
func (l OrderLine) LineTotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Total возвращает сумму заказа по снимкам цен.
func (o *Order) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range o.Lines {
		total = total.Add(l.LineTotal())
	}
	return total
}
