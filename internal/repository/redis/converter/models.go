package converter

import "github.com/shopspring/decimal"

// ProductInfoRedisModel - запись товара в кэше. Цена хранится строкой, без потери точности.
type ProductInfoRedisModel struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
}
