package adapter

import (
	"context"

	"commerce-chat-bot/internal/domain/model"
)

// Narrow read/write boundaries to the catalog/cart/order collaborators. The
// core does not own or cache this data beyond one action execution.

type CatalogService interface {
	ListCategories(ctx context.Context) ([]model.Category, error)
	ListProducts(ctx context.Context, categoryID string) ([]model.Product, error)
	GetProduct(ctx context.Context, productID string) (*model.Product, error)
}

type CartService interface {
	Get(ctx context.Context, customerID string) (*model.Cart, error)
	// SetQuantity sets the absolute quantity for a product/variation pair.
	// Quantity 0 removes the item. Set-not-increment keeps replayed
	// executions idempotent.
	SetQuantity(ctx context.Context, customerID, productID, variationID string, qty int) error
	Clear(ctx context.Context, customerID string) error
}

type OrderService interface {
	Place(ctx context.Context, customerID string, cart *model.Cart, address, payMethod string) (orderID string, err error)
}
