package store

import (
	"context"

	models "storefront/model"
)

// ProductStore is the stock ledger's view of the database.
// Every method is a single atomic statement against the products table.
type ProductStore interface {
	AddProduct(ctx context.Context, p models.Product) (models.ProductKey, error)
	RemoveProduct(ctx context.Context, pid int64) (int64, error)
	UpdateProduct(ctx context.Context, p models.Product) (models.ProductKey, error)
	GetProduct(ctx context.Context, pid int64) (models.Product, error)
	ListProducts(ctx context.Context) ([]models.Product, error)
	DecrementStock(ctx context.Context, pid int64, amount int) (models.Product, error)
	IncrementStock(ctx context.Context, pid int64, amount int) (models.Product, error)
}

// CartStore owns the carts and cart_items tables.
type CartStore interface {
	CreateCart(ctx context.Context, cartID string, owner models.Owner) (models.Cart, error)
	DeleteCart(ctx context.Context, cartID string) (int64, error)
	GetCart(ctx context.Context, cartID string) (models.Cart, error)
	TouchModified(ctx context.Context, cartID string) error

	LockCart(ctx context.Context, cartID string) error
	UnlockCart(ctx context.Context, cartID string) error
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

type Store interface {
	ProductStore
	CartStore

	Ping(ctx context.Context) error
	Close() error
}
