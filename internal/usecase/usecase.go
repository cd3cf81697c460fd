package usecase

import "context"

type ProductUC interface {
	CreateProduct(ctx context.Context, req *CreateProductReq) (*ProductInfo, error)
	UpdatePrice(ctx context.Context, req *UpdatePriceReq) (*ProductInfo, error)
	ListProducts(ctx context.Context) ([]ProductInfo, error)
	GetProductsInfo(ctx context.Context, req *GetProductsReq) (*GetProductsRes, error)
}

type CartUC interface {
	AddItem(ctx context.Context, req *AddItemReq) (*CartRes, error)
	GetActiveCart(ctx context.Context, userID int64) (*CartRes, error)
}

type CheckoutUC interface {
	Checkout(ctx context.Context, userID int64) (*CheckoutRes, error)
}

type OrderUC interface {
	GetOrder(ctx context.Context, userID, orderID int64) (*CheckoutRes, error)
	ListOrders(ctx context.Context, userID int64) ([]CheckoutRes, error)
	ReceiptURL(ctx context.Context, userID, orderID int64) (string, error)
}
