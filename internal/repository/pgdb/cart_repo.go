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
)

const cartColumns = `id, user_id, status, created_at, updated_at`

// CartRepo хранит корзины и их позиции.
type CartRepo struct {
	pool *pgxpool.Pool
	conv converter.CartConverter
}

func NewCartRepo(pool *pgxpool.Pool, conv converter.CartConverter) *CartRepo {
	return &CartRepo{
		pool: pool,
		conv: conv,
	}
}

// GetOrCreateActive находит или создаёт активную корзину одним запросом.
// Частичный уникальный индекс carts_one_active_per_user сводит параллельные вызовы к одной корзине.
func (c *CartRepo) GetOrCreateActive(ctx context.Context, userID int64) (*domain.Cart, error) {
	query := `
		INSERT INTO carts (user_id, status)
		VALUES ($1, $2)
		ON CONFLICT (user_id) WHERE status = 'active'
		DO UPDATE SET updated_at = NOW()
		RETURNING ` + cartColumns

	model, err := scanCart(conn(ctx, c.pool).QueryRow(ctx, query, userID, domain.CartStatusActive))
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return c.conv.ToEntity(model, nil), nil
}

// GetActive возвращает активную корзину с позициями без блокировки.
func (c *CartRepo) GetActive(ctx context.Context, userID int64) (*domain.Cart, error) {
	query := `SELECT ` + cartColumns + ` FROM carts WHERE user_id = $1 AND status = 'active'`

	return c.getActive(ctx, query, userID)
}

// LockActive блокирует активную корзину FOR UPDATE до конца транзакции.
func (c *CartRepo) LockActive(ctx context.Context, userID int64) (*domain.Cart, error) {
	if _, err := txOnly(ctx); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	query := `SELECT ` + cartColumns + ` FROM carts WHERE user_id = $1 AND status = 'active' FOR UPDATE`

	return c.getActive(ctx, query, userID)
}

// AddLine добавляет товар в корзину. Повторное добавление суммирует количество.
func (c *CartRepo) AddLine(ctx context.Context, cartID, productID int64, quantity int) error {
	query := `
		INSERT INTO cart_lines (cart_id, product_id, quantity)
		VALUES ($1, $2, $3::bigint)
		ON CONFLICT (cart_id, product_id)
		DO UPDATE SET quantity = cart_lines.quantity + EXCLUDED.quantity
	`

	if _, err := conn(ctx, c.pool).Exec(ctx, query, cartID, productID, quantity); err != nil {
		// Количество или его сумма с уже лежащим вне допустимого для позиции диапазона
		if postgresCheckViolation(err) || postgresOutOfRange(err) {
			return e.Wrap(whereami.WhereAmI(), e.ErrQuantityTooLarge)
		}
		return e.Wrap(whereami.WhereAmI(), err)
	}

	if _, err := conn(ctx, c.pool).Exec(ctx, `UPDATE carts SET updated_at = NOW() WHERE id = $1`, cartID); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

func (c *CartRepo) Lines(ctx context.Context, cartID int64) ([]domain.CartLine, error) {
	models, err := c.lines(ctx, cartID)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return c.conv.ToLineEntities(models), nil
}

// MarkCheckedOut переводит корзину active -> checked_out. Повторный переход невозможен.
func (c *CartRepo) MarkCheckedOut(ctx context.Context, cartID int64) error {
	query := `
		UPDATE carts
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'active'
	`

	tag, err := conn(ctx, c.pool).Exec(ctx, query, cartID, domain.CartStatusCheckedOut)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	if tag.RowsAffected() == 0 {
		return e.ErrCartEmpty
	}

	return nil
}

func (c *CartRepo) getActive(ctx context.Context, query string, userID int64) (*domain.Cart, error) {
	model, err := scanCart(conn(ctx, c.pool).QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, e.ErrCartNotFound
		}
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	lines, err := c.lines(ctx, model.ID)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return c.conv.ToEntity(model, lines), nil
}

func (c *CartRepo) lines(ctx context.Context, cartID int64) ([]converter.CartLineModel, error) {
	query := `
		SELECT cart_id, product_id, quantity
		FROM cart_lines
		WHERE cart_id = $1
		ORDER BY product_id
	`

	rows, err := conn(ctx, c.pool).Query(ctx, query, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]converter.CartLineModel, 0)
	for rows.Next() {
		var line converter.CartLineModel
		if err := rows.Scan(&line.CartID, &line.ProductID, &line.Quantity); err != nil {
			return nil, err
		}
		result = append(result, line)
	}

	return result, rows.Err()
}

func scanCart(row pgx.Row) (*converter.CartModel, error) {
	var model converter.CartModel
	if err := row.Scan(&model.ID, &model.UserID, &model.Status, &model.CreatedAt, &model.UpdatedAt); err != nil {
		return nil, err
	}
	return &model, nil
}
