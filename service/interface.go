package service

import (
	"context"

	models "storefront/model"
)

type InventoryServiceInterface interface {
	AddProduct(ctx context.Context, in models.ProductInput) (models.ProductKey, error)
	RemoveProduct(ctx context.Context, pid int64) (int64, error)
	UpdateProduct(ctx context.Context, pid int64, in models.ProductInput) (models.ProductKey, error)
	GetProduct(ctx context.Context, pid int64) (models.Product, error)
	ListProducts(ctx context.Context) ([]models.Product, error)
	DecrementStock(ctx context.Context, pid int64, amount int) (models.Product, error)
	IncrementStock(ctx context.Context, pid int64, amount int) (models.Product, error)
}

type CartServiceInterface interface {
	CreateCart(ctx context.Context, cartID string, owner models.Owner) (models.Cart, error)
	DeleteCart(ctx context.Context, cartID string) (int64, error)
	GetCart(ctx context.Context, cartID string) (models.Cart, error)
	TouchModified(ctx context.Context, cartID string) error

	Lock(ctx context.Context, cartID string) error
	Unlock(ctx context.Context, cartID string) error
	IsLocked(ctx context.Context, cartID string) (bool, error)
	BeginCheckout(ctx context.Context, cartID string) (models.Cart, error)
	AbandonCheckout(ctx context.Context, cartID string) (models.Cart, error)
	CompleteCheckout(ctx context.Context, cartID string) ([]models.CartItem, error)

	AddItem(ctx context.Context, cartID string, pid int64, amount int) (models.CartItem, error)
	ChangeAmount(ctx context.Context, cartID string, pid int64, amount int) (models.CartItem, error)
	RemoveItem(ctx context.Context, cartID string, pid int64) (int64, error)
	EmptyCart(ctx context.Context, cartID string) (int64, error)
	ListItems(ctx context.Context, cartID string) ([]models.CartItem, error)
}

// Observer is told about requests the store turned away for concurrency
// reasons. metrics.Domain implements it.
type Observer interface {
	StockRejected(op string)
	LockContended(op string)
}

type nopObserver struct{}

func (nopObserver) StockRejected(string) {}
func (nopObserver) LockContended(string) {}
