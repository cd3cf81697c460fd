package http

import (
	"net/http"

	"github.com/DRSN-tech/checkout-backend/internal/usecase"
	"github.com/DRSN-tech/checkout-backend/pkg/e"
	"github.com/DRSN-tech/checkout-backend/pkg/logger"
)

type OrderHandler struct {
	orderUsecase usecase.OrderUC
	logger       logger.Logger
}

func NewOrderHandler(orderUsecase usecase.OrderUC, logger logger.Logger) *OrderHandler {
	return &OrderHandler{orderUsecase: orderUsecase, logger: logger}
}

// listOrders
//
//	@Summary	Заказы пользователя
//	@Description	Сначала новые.
//	@Tags		orders
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{array}	OrderResponse
//	@Router		/orders [get]
func (o *OrderHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFromCtx(r.Context())
	if !ok {
		respondError(o.logger, w, r, e.ErrUnauthorized)
		return
	}

	orders, err := o.orderUsecase.ListOrders(r.Context(), identity.UserID)
	if err != nil {
		respondError(o.logger, w, r, err)
		return
	}

	res := make([]OrderResponse, 0, len(orders))
	for i := range orders {
		res = append(res, newOrderResponse(&orders[i]))
	}
	WriteSuccess(w, http.StatusOK, res)
}

// getOrder
//
//	@Summary	Заказ
//	@Tags		orders
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		int	true	"ID заказа"
//	@Success	200	{object}	OrderResponse
//	@Failure	404	{object}	ErrorResponse
//	@Router		/orders/{id} [get]
func (o *OrderHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFromCtx(r.Context())
	if !ok {
		respondError(o.logger, w, r, e.ErrUnauthorized)
		return
	}

	id, err := parseIDParam(r, "id")
	if err != nil {
		respondError(o.logger, w, r, err)
		return
	}

	order, err := o.orderUsecase.GetOrder(r.Context(), identity.UserID, id)
	if err != nil {
		respondError(o.logger, w, r, err)
		return
	}

	WriteSuccess(w, http.StatusOK, newOrderResponse(order))
}

// getReceipt
//
//	@Summary		Ссылка на чек
//	@Description	Временная ссылка на архивный чек заказа в объектном хранилище.
//	@Tags			orders
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		int	true	"ID заказа"
//	@Success		200	{object}	ReceiptResponse
//	@Failure		404	{object}	ErrorResponse
//	@Router			/orders/{id}/receipt [get]
func (o *OrderHandler) getReceipt(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFromCtx(r.Context())
	if !ok {
		respondError(o.logger, w, r, e.ErrUnauthorized)
		return
	}

	id, err := parseIDParam(r, "id")
	if err != nil {
		respondError(o.logger, w, r, err)
		return
	}

	url, err := o.orderUsecase.ReceiptURL(r.Context(), identity.UserID, id)
	if err != nil {
		respondError(o.logger, w, r, err)
		return
	}

	WriteSuccess(w, http.StatusOK, ReceiptResponse{URL: url})
}
