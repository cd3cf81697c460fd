package pgdb

import (
	"context"
	"errors"

	"github.com/DRSN-tech/checkout-backend/internal/domain"
	"github.com/DRSN-tech/checkout-backend/internal/repository/pgdb/converter"
	"github.com/DRSN-tech/checkout-backend/pkg/e"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jimlawless/whereami"
	"github.com/shopspring/decimal"
)

const productColumns = `id, name, description, price_cents, stock, created_at, updated_at`

// ProductRepo реализует репозиторий продуктов поверх PostgreSQL.
type ProductRepo struct {
	pool *pgxpool.Pool
	conv converter.ProductConverter
}

func NewProductRepo(pool *pgxpool.Pool, conv converter.ProductConverter) *ProductRepo {
	return &ProductRepo{
		pool: pool,
		conv: conv,
	}
}

func (p *ProductRepo) Create(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	model := p.conv.ToModel(product)
	query := `
		INSERT INTO products (name, description, price_cents, stock)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + productColumns

	created, err := scanProduct(conn(ctx, p.pool).QueryRow(ctx, query,
		model.Name, model.Description, model.PriceCents, model.Stock,
	))
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return p.conv.ToEntity(created), nil
}

func (p *ProductRepo) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	model, err := scanProduct(conn(ctx, p.pool).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, e.ErrProductNotFound
		}
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return p.conv.ToEntity(model), nil
}

func (p *ProductRepo) GetByIDs(ctx context.Context, ids []int64) ([]domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1) ORDER BY id`

	return p.queryProducts(ctx, query, ids)
}

func (p *ProductRepo) List(ctx context.Context) ([]domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products ORDER BY id`

	return p.queryProducts(ctx, query)
}

func (p *ProductRepo) UpdatePrice(ctx context.Context, id int64, price decimal.Decimal) (*domain.Product, error) {
	query := `
		UPDATE products
		SET price_cents = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + productColumns

	model, err := scanProduct(conn(ctx, p.pool).QueryRow(ctx, query, id, converter.PriceToCents(price)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, e.ErrProductNotFound
		}
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return p.conv.ToEntity(model), nil
}

// LockForCheckout блокирует строки товаров FOR UPDATE в порядке возрастания id,
// чтобы параллельные оформления не попадали в дедлок. Требует транзакцию в контексте.
func (p *ProductRepo) LockForCheckout(ctx context.Context, ids []int64) ([]domain.Product, error) {
	if _, err := txOnly(ctx); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	query := `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1) ORDER BY id FOR UPDATE`

	return p.queryProducts(ctx, query, ids)
}

// DecrementStockIfAvailable списывает остаток одним условным UPDATE.
// Если остатка не хватает, строка не обновляется и возвращается e.ErrInsufficientStock.
func (p *ProductRepo) DecrementStockIfAvailable(ctx context.Context, id int64, qty int) error {
	query := `
		UPDATE products
		SET stock = stock - $2, updated_at = NOW()
		WHERE id = $1 AND stock >= $2
	`

	tag, err := conn(ctx, p.pool).Exec(ctx, query, id, qty)
	if err != nil {
		if postgresCheckViolation(err) {
			return e.ErrInsufficientStock
		}
		return e.Wrap(whereami.WhereAmI(), err)
	}

	if tag.RowsAffected() == 0 {
		return e.ErrInsufficientStock
	}

	return nil
}

func (p *ProductRepo) queryProducts(ctx context.Context, query string, args ...any) ([]domain.Product, error) {
	rows, err := conn(ctx, p.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	defer rows.Close()

	result := make([]domain.Product, 0)
	for rows.Next() {
		model, err := scanProduct(rows)
		if err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}
		result = append(result, *p.conv.ToEntity(model))
	}

	if err := rows.Err(); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return result, nil
}

func scanProduct(row pgx.Row) (*converter.ProductModel, error) {
	var model converter.ProductModel
	err := row.Scan(
		&model.ID, &model.Name, &model.Description, &model.PriceCents,
		&model.Stock, &model.CreatedAt, &model.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &model, nil
}
