package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MaxPrice - верхняя граница цены товара. В копейках она с запасом помещается в int64.
var MaxPrice = decimal.NewFromInt(1_000_000_000)

// Product описывает товар каталога
type Product struct {
	ID          int64
	Name        string
	Description string
	Price       decimal.Decimal // Цена с точностью до копеек
	Stock       int             // Остаток на складе, никогда не бывает отрицательным
	CreatedAt   time.Time
	UpdatedAt   *time.Time
}

func NewProduct(name, description string, price decimal.Decimal, stock int) *Product {
	return &Product{
		Name:        name,
		Description: description,
		Price:       price,
		Stock:       stock,
	}
}

// HasStock сообщает, хватает ли остатка на qty единиц.
func (p *Product) HasStock(qty int) bool {
	return qty <= p.Stock
}
