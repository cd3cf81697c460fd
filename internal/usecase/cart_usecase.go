package usecase

import (
	"context"

	"github.com/DRSN-tech/checkout-backend/internal/domain"
	"github.com/DRSN-tech/checkout-backend/pkg/e"
	"github.com/DRSN-tech/checkout-backend/pkg/logger"
)

// CartUseCase управляет активной корзиной пользователя.
type CartUseCase struct {
	txManager   TxManager
	cartRepo    CartRepository
	productRepo ProductRepository
	metrics     Metrics
	logger      logger.Logger
}

func NewCartUC(
	txManager TxManager,
	cartRepo CartRepository,
	productRepo ProductRepository,
	metrics Metrics,
	logger logger.Logger,
) *CartUseCase {
	return &CartUseCase{
		txManager:   txManager,
		cartRepo:    cartRepo,
		productRepo: productRepo,
		metrics:     metrics,
		logger:      logger,
	}
}

// AddItem добавляет товар в активную корзину, создавая её при первом добавлении.
// Повторное добавление того же товара увеличивает количество. Остаток здесь не проверяется.
func (c *CartUseCase) AddItem(ctx context.Context, req *AddItemReq) (*CartRes, error) {
	const op = "CartUseCase.AddItem"

	if req.Quantity <= 0 {
		return nil, e.Wrap(op, e.ErrQuantityMustBePositive)
	}
	if req.Quantity > domain.MaxLineQuantity {
		return nil, e.Wrap(op, e.ErrQuantityTooLarge)
	}

	if _, err := c.productRepo.GetByID(ctx, req.ProductID); err != nil {
		return nil, e.Wrap(op, err)
	}

	var (
		cartID int64
		lines  []domain.CartLine
	)
	err := c.txManager.Do(ctx, func(ctx context.Context) error {
		cart, err := c.cartRepo.GetOrCreateActive(ctx, req.UserID)
		if err != nil {
			return err
		}
		cartID = cart.ID

		if err := c.cartRepo.AddLine(ctx, cart.ID, req.ProductID, req.Quantity); err != nil {
			return err
		}

		lines, err = c.cartRepo.Lines(ctx, cart.ID)
		return err
	})
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	c.metrics.CartItemAdded(req.Quantity)
	c.logger.Debugf("user %d added %d x product %d to cart %d", req.UserID, req.Quantity, req.ProductID, cartID)

	return c.buildCartRes(ctx, cartID, lines)
}

// GetActiveCart возвращает активную корзину пользователя с текущими ценами.
func (c *CartUseCase) GetActiveCart(ctx context.Context, userID int64) (*CartRes, error) {
	const op = "CartUseCase.GetActiveCart"

	cart, err := c.cartRepo.GetActive(ctx, userID)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return c.buildCartRes(ctx, cart.ID, cart.Lines)
}

// buildCartRes дополняет позиции корзины названием, текущей ценой и флагом нехватки остатка.
// Цены и остатки читаются из БД, а не из кэша каталога: корзина должна показывать то, по чему пройдёт оформление.
func (c *CartUseCase) buildCartRes(ctx context.Context, cartID int64, lines []domain.CartLine) (*CartRes, error) {
	const op = "CartUseCase.buildCartRes"

	res := &CartRes{CartID: cartID, Lines: make([]CartLineInfo, 0, len(lines))}
	if len(lines) == 0 {
		return res, nil
	}

	ids := make([]int64, len(lines))
	for i, l := range lines {
		ids[i] = l.ProductID
	}

	products, err := c.productRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	byID := make(map[int64]domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	for _, l := range lines {
		p, ok := byID[l.ProductID]
		if !ok {
			// Товары не удаляются, поэтому это признак рассинхронизации
			c.logger.Errorf(e.ErrProductNotFound, "cart %d references unknown product %d", cartID, l.ProductID)
			continue
		}
		res.Lines = append(res.Lines, CartLineInfo{
			ProductID:    l.ProductID,
			Name:         p.Name,
			Quantity:     l.Quantity,
			UnitPrice:    p.Price,
			StockWarning: !p.HasStock(l.Quantity),
		})
	}

	return res, nil
}
