package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/DRSN-tech/checkout-backend/internal/domain"
	"github.com/DRSN-tech/checkout-backend/pkg/e"
	"github.com/DRSN-tech/checkout-backend/pkg/logger"
	"github.com/shopspring/decimal"
)

// cacheWriteTimeout отсчитывается от начала чтения из БД. Защита от устаревшей записи
// в кэше после инвалидации (RedisCfg.InvalidationGuard) должна жить дольше.
const cacheWriteTimeout = 500 * time.Millisecond

// ProductUseCase реализует бизнес-логику каталога товаров.
type ProductUseCase struct {
	productRepo ProductRepository
	cacheRepo   CacheRepository
	logger      logger.Logger
}

func NewProductUC(
	productRepo ProductRepository,
	cacheRepo CacheRepository,
	logger logger.Logger,
) *ProductUseCase {
	return &ProductUseCase{
		productRepo: productRepo,
		cacheRepo:   cacheRepo,
		logger:      logger,
	}
}

// CreateProduct добавляет товар в каталог.
func (p *ProductUseCase) CreateProduct(ctx context.Context, req *CreateProductReq) (*ProductInfo, error) {
	const op = "ProductUseCase.CreateProduct"

	if err := validateProduct(req); err != nil {
		return nil, e.Wrap(op, err)
	}

	product, err := p.productRepo.Create(ctx, domain.NewProduct(
		strings.TrimSpace(req.Name),
		req.Description,
		req.Price,
		req.Stock,
	))
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	info := NewProductInfo(product)
	return &info, nil
}

// UpdatePrice меняет цену товара. Уже оформленные заказы хранят свою цену и не меняются.
func (p *ProductUseCase) UpdatePrice(ctx context.Context, req *UpdatePriceReq) (*ProductInfo, error) {
	const op = "ProductUseCase.UpdatePrice"

	if err := validatePrice(req.Price); err != nil {
		return nil, e.Wrap(op, err)
	}

	product, err := p.productRepo.UpdatePrice(ctx, req.ProductID, req.Price)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	// Удаление из кэша старой цены
	p.invalidate(ctx, []int64{product.ID})

	info := NewProductInfo(product)
	return &info, nil
}

// ListProducts возвращает все товары каталога.
func (p *ProductUseCase) ListProducts(ctx context.Context) ([]ProductInfo, error) {
	const op = "ProductUseCase.ListProducts"

	products, err := p.productRepo.List(ctx)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	result := make([]ProductInfo, 0, len(products))
	for i := range products {
		result = append(result, NewProductInfo(&products[i]))
	}

	return result, nil
}

// GetProductsInfo возвращает информацию о продуктах по их идентификаторам.
// Сначала читает кэш, недостающие товары берёт из БД и кладёт в кэш в фоне.
func (p *ProductUseCase) GetProductsInfo(ctx context.Context, req *GetProductsReq) (*GetProductsRes, error) {
	const op = "ProductUseCase.GetProductsInfo"

	if len(req.IDs) == 0 {
		return NewGetProductsRes(nil, nil), nil
	}

	// Поиск продуктов в кэше
	cacheProductsMap, err := p.cacheRepo.GetProducts(ctx, req.IDs)
	if err != nil {
		p.logger.Warnf("Failed to read products from cache: %v", e.Wrap(op, err))
		cacheProductsMap = nil
	}

	var nonCacheable []int64
	for _, id := range req.IDs {
		if _, ok := cacheProductsMap[id]; !ok {
			nonCacheable = append(nonCacheable, id)
		}
	}

	// Получение продуктов из БД
	dbProductsMap := make(map[int64]ProductInfo, len(nonCacheable))
	if len(nonCacheable) > 0 {
		readStarted := time.Now()
		products, err := p.productRepo.GetByIDs(ctx, nonCacheable)
		if err != nil {
			return nil, e.Wrap(op, err)
		}

		fromDB := make([]ProductInfo, 0, len(products))
		for i := range products {
			info := NewProductInfo(&products[i])
			fromDB = append(fromDB, info)
			dbProductsMap[info.ID] = info
		}

		if len(fromDB) > 0 {
			go p.cacheInBackground(fromDB, readStarted.Add(cacheWriteTimeout))
		}
	}

	// Формирование результата
	result := make([]ProductInfo, 0, len(req.IDs))
	notFoundProducts := make([]int64, 0)
	for _, id := range req.IDs {
		if pr, ok := cacheProductsMap[id]; ok {
			result = append(result, pr)
		} else if pr, ok := dbProductsMap[id]; ok {
			result = append(result, pr)
		} else {
			notFoundProducts = append(notFoundProducts, id)
		}
	}

	return NewGetProductsRes(result, notFoundProducts), nil
}

// InvalidateProducts удаляет товары из кэша. Ошибки кэша только логируются.
func (p *ProductUseCase) InvalidateProducts(ctx context.Context, ids []int64) {
	p.invalidate(ctx, ids)
}

func (p *ProductUseCase) invalidate(ctx context.Context, ids []int64) {
	if len(ids) == 0 {
		return
	}
	if err := p.cacheRepo.DeleteProducts(ctx, ids); err != nil {
		p.logger.Warnf("Failed to delete products from cache: %v", e.Wrap("ProductUseCase.invalidate", err))
	}
}

// cacheInBackground кладёт прочитанные из БД товары в кэш, если успевает до deadline.
// Поздняя запись могла бы вернуть в кэш цену, которую уже инвалидировали.
func (p *ProductUseCase) cacheInBackground(products []ProductInfo, deadline time.Time) {
	bgCtx, cancel := context.WithDeadline(context.Background(), deadline)
	defer cancel()

	if bgCtx.Err() != nil {
		p.logger.Warnf("Skipping product cache fill: read took longer than %s", cacheWriteTimeout)
		return
	}

	if err := p.cacheRepo.SetProducts(bgCtx, products); err != nil {
		p.logger.Warnf("Failed to cache products in background: %v", err)
	}
}

// validateProduct проверяет корректность входных данных запроса на добавление продукта.
func validateProduct(req *CreateProductReq) error {
	if strings.TrimSpace(req.Name) == "" {
		return e.ErrProductNameRequired
	}

	if err := validatePrice(req.Price); err != nil {
		return err
	}

	if req.Stock < 0 {
		return e.ErrInvalidStock
	}

	return nil
}

func validatePrice(price decimal.Decimal) error {
	if price.IsNegative() || price.GreaterThan(domain.MaxPrice) {
		return e.ErrInvalidPrice
	}
	// Цена хранится в копейках
	if !price.Equal(price.Round(2)) {
		return e.ErrPricePrecision
	}
	return nil
}
