package http

import (
	"net/http"

	"github.com/DRSN-tech/checkout-backend/internal/usecase"
	"github.com/DRSN-tech/checkout-backend/pkg/e"
	"github.com/DRSN-tech/checkout-backend/pkg/logger"
)

type ProductHandler struct {
	productUsecase usecase.ProductUC
	logger         logger.Logger
}

func NewProductHandler(productUsecase usecase.ProductUC, logger logger.Logger) *ProductHandler {
	return &ProductHandler{productUsecase: productUsecase, logger: logger}
}

// listProducts
//
//	@Summary		Каталог товаров
//	@Tags			products
//	@Produce		json
//	@Success		200	{array}		ProductResponse
//	@Failure		503	{object}	ErrorResponse
//	@Router			/products [get]
func (p *ProductHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := p.productUsecase.ListProducts(r.Context())
	if err != nil {
		respondError(p.logger, w, r, err)
		return
	}

	res := make([]ProductResponse, 0, len(products))
	for i := range products {
		res = append(res, newProductResponse(&products[i]))
	}
	WriteSuccess(w, http.StatusOK, res)
}

// getProduct
//
//	@Summary		Карточка товара
//	@Tags			products
//	@Produce		json
//	@Param			id	path		int	true	"ID товара"
//	@Success		200	{object}	ProductResponse
//	@Failure		400	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Router			/products/{id} [get]
func (p *ProductHandler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondError(p.logger, w, r, err)
		return
	}

	res, err := p.productUsecase.GetProductsInfo(r.Context(), usecase.NewGetProductsReq([]int64{id}))
	if err != nil {
		respondError(p.logger, w, r, err)
		return
	}
	if len(res.Products) == 0 {
		respondError(p.logger, w, r, e.ErrProductNotFound)
		return
	}

	WriteSuccess(w, http.StatusOK, newProductResponse(&res.Products[0]))
}

// createProduct
//
//	@Summary		Добавление товара
//	@Description	Создаёт товар в каталоге. Только для администратора.
//	@Tags			products
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			product	body		CreateProductRequest	true	"Товар"
//	@Success		201		{object}	ProductResponse
//	@Failure		400		{object}	ErrorResponse	"Ошибка валидации"
//	@Failure		401		{object}	ErrorResponse
//	@Failure		403		{object}	ErrorResponse
//	@Router			/products [post]
func (p *ProductHandler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(p.logger, w, r, err)
		return
	}

	price, err := parsePrice(req.Price)
	if err != nil {
		respondError(p.logger, w, r, err)
		return
	}

	product, err := p.productUsecase.CreateProduct(r.Context(), &usecase.CreateProductReq{
		Name:        req.Name,
		Description: req.Description,
		Price:       price,
		Stock:       req.Stock,
	})
	if err != nil {
		respondError(p.logger, w, r, err)
		return
	}

	p.logger.Infof("product %d %q created", product.ID, product.Name)
	WriteSuccess(w, http.StatusCreated, newProductResponse(product))
}

// updatePrice
//
//	@Summary		Изменение цены
//	@Description	Новая цена действует для корзин, но не меняет уже оформленные заказы.
//	@Tags			products
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		int					true	"ID товара"
//	@Param			price	body		UpdatePriceRequest	true	"Новая цена"
//	@Success		200		{object}	ProductResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		403		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Router			/products/{id}/price [patch]
func (p *ProductHandler) updatePrice(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondError(p.logger, w, r, err)
		return
	}

	var req UpdatePriceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(p.logger, w, r, err)
		return
	}

	price, err := parsePrice(req.Price)
	if err != nil {
		respondError(p.logger, w, r, err)
		return
	}

	product, err := p.productUsecase.UpdatePrice(r.Context(), &usecase.UpdatePriceReq{ProductID: id, Price: price})
	if err != nil {
		respondError(p.logger, w, r, err)
		return
	}

	WriteSuccess(w, http.StatusOK, newProductResponse(product))
}
