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

// OrderRepo хранит заказы. Заказы только создаются и читаются.
type OrderRepo struct {
	pool *pgxpool.Pool
	conv converter.OrderConverter
}

func NewOrderRepo(pool *pgxpool.Pool, conv converter.OrderConverter) *OrderRepo {
	return &OrderRepo{
		pool: pool,
		conv: conv,
	}
}

// Create сохраняет заказ и его позиции. Позиции вставляются одним batch-запросом.
func (o *OrderRepo) Create(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	tx, err := txOnly(ctx)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	var model converter.OrderModel
	err = tx.QueryRow(ctx,
		`INSERT INTO orders (user_id) VALUES ($1) RETURNING id, user_id, created_at`,
		order.UserID,
	).Scan(&model.ID, &model.UserID, &model.CreatedAt)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	created := *order
	created.ID = model.ID
	lines := o.conv.ToLineModels(&created)

	batch := &pgx.Batch{}
	for _, l := range lines {
		batch.Queue(`
			INSERT INTO order_lines (order_id, product_id, product_name, quantity, price_cents)
			VALUES ($1, $2, $3, $4, $5)`,
			l.OrderID, l.ProductID, l.ProductName, l.Quantity, l.PriceCents,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return o.conv.ToEntity(&model, lines), nil
}

func (o *OrderRepo) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	var model converter.OrderModel
	err := conn(ctx, o.pool).QueryRow(ctx,
		`SELECT id, user_id, created_at FROM orders WHERE id = $1`, id,
	).Scan(&model.ID, &model.UserID, &model.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, e.ErrOrderNotFound
		}
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	lines, err := o.lines(ctx, []int64{id})
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return o.conv.ToEntity(&model, lines[id]), nil
}

// ListByUser возвращает заказы пользователя, новые первыми.
func (o *OrderRepo) ListByUser(ctx context.Context, userID int64) ([]domain.Order, error) {
	rows, err := conn(ctx, o.pool).Query(ctx, `
		SELECT id, user_id, created_at
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	models, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (converter.OrderModel, error) {
		var m converter.OrderModel
		err := row.Scan(&m.ID, &m.UserID, &m.CreatedAt)
		return m, err
	})
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	ids := make([]int64, len(models))
	for i, m := range models {
		ids[i] = m.ID
	}

	lines, err := o.lines(ctx, ids)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	result := make([]domain.Order, 0, len(models))
	for i := range models {
		result = append(result, *o.conv.ToEntity(&models[i], lines[models[i].ID]))
	}

	return result, nil
}

func (o *OrderRepo) lines(ctx context.Context, orderIDs []int64) (map[int64][]converter.OrderLineModel, error) {
	result := make(map[int64][]converter.OrderLineModel, len(orderIDs))
	if len(orderIDs) == 0 {
		return result, nil
	}

	rows, err := conn(ctx, o.pool).Query(ctx, `
		SELECT order_id, product_id, product_name, quantity, price_cents
		FROM order_lines
		WHERE order_id = ANY($1)
		ORDER BY order_id, product_id`, orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var l converter.OrderLineModel
		if err := rows.Scan(&l.OrderID, &l.ProductID, &l.ProductName, &l.Quantity, &l.PriceCents); err != nil {
			return nil, err
		}
		result[l.OrderID] = append(result[l.OrderID], l)
	}

	return result, rows.Err()
}
