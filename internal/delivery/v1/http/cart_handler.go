package http

import (
	"net/http"

	"github.com/DRSN-tech/checkout-backend/internal/usecase"
	"github.com/DRSN-tech/checkout-backend/pkg/e"
	"github.com/DRSN-tech/checkout-backend/pkg/logger"
)

const defaultQuantity = 1

type CartHandler struct {
	cartUsecase     usecase.CartUC
	checkoutUsecase usecase.CheckoutUC
	logger          logger.Logger
}

func NewCartHandler(cartUsecase usecase.CartUC, checkoutUsecase usecase.CheckoutUC, logger logger.Logger) *CartHandler {
	return &CartHandler{cartUsecase: cartUsecase, checkoutUsecase: checkoutUsecase, logger: logger}
}

// addItem
//
//	@Summary		Добавление товара в корзину
//	@Description	Создаёт активную корзину при первом добавлении. Повторное добавление суммирует количество.
//	@Tags			cart
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			item	body		AddItemRequest	true	"Позиция"
//	@Success		200		{object}	CartResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse	"Товар не найден"
//	@Router			/cart/items [post]
func (c *CartHandler) addItem(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFromCtx(r.Context())
	if !ok {
		respondError(c.logger, w, r, e.ErrUnauthorized)
		return
	}

	var req AddItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(c.logger, w, r, err)
		return
	}
	if req.ProductID <= 0 {
		respondError(c.logger, w, r, e.Wrap("product_id", e.ErrInvalidID))
		return
	}

	quantity := defaultQuantity
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	cart, err := c.cartUsecase.AddItem(r.Context(), &usecase.AddItemReq{
		UserID:    identity.UserID,
		ProductID: req.ProductID,
		Quantity:  quantity,
	})
	if err != nil {
		respondError(c.logger, w, r, err)
		return
	}

	WriteSuccess(w, http.StatusOK, newCartResponse(cart))
}

// getCart
//
//	@Summary	Активная корзина
//	@Tags		cart
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{object}	CartResponse
//	@Failure	404	{object}	ErrorResponse	"Нет активной корзины"
//	@Router		/cart [get]
func (c *CartHandler) getCart(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFromCtx(r.Context())
	if !ok {
		respondError(c.logger, w, r, e.ErrUnauthorized)
		return
	}

	cart, err := c.cartUsecase.GetActiveCart(r.Context(), identity.UserID)
	if err != nil {
		respondError(c.logger, w, r, err)
		return
	}

	WriteSuccess(w, http.StatusOK, newCartResponse(cart))
}

// checkout
//
//	@Summary		Оформление заказа
//	@Description	Атомарно списывает остатки, фиксирует цены и закрывает активную корзину.
//	@Tags			checkout
//	@Produce		json
//	@Security		BearerAuth
//	@Success		201	{object}	OrderResponse
//	@Failure		409	{object}	ErrorResponse	"Корзина пуста или не хватает товара"
//	@Failure		503	{object}	ErrorResponse	"Временная ошибка, можно повторить"
//	@Router			/checkout [post]
func (c *CartHandler) checkout(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFromCtx(r.Context())
	if !ok {
		respondError(c.logger, w, r, e.ErrUnauthorized)
		return
	}

	order, err := c.checkoutUsecase.Checkout(r.Context(), identity.UserID)
	if err != nil {
		respondError(c.logger, w, r, err)
		return
	}

	WriteSuccess(w, http.StatusCreated, newOrderResponse(order))
}
