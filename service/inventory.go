package service

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	models "storefront/model"
	"storefront/store"
)

// InventoryService is the stock ledger. It validates input, then hands each
// operation to the store as one atomic statement; it never reads stock to
// decide whether to write it.
type InventoryService struct {
	store store.ProductStore
	opts  options
}

func NewInventoryService(s store.ProductStore, opts ...Option) *InventoryService {
	return &InventoryService{store: s, opts: buildOptions("inventory", opts)}
}

func (s *InventoryService) AddProduct(ctx context.Context, in models.ProductInput) (models.ProductKey, error) {
	if err := in.Validate(true); err != nil {
		return models.ProductKey{}, err
	}
	key, err := s.store.AddProduct(ctx, in.Product(*in.PID))
	if err != nil {
		logFailure(s.opts.log, "add product", err)
		return models.ProductKey{}, err
	}
	s.opts.log.WithField("pid", key.PID).Info("product added")
	return key, nil
}

func (s *InventoryService) RemoveProduct(ctx context.Context, pid int64) (int64, error) {
	if err := requirePID(pid); err != nil {
		return 0, err
	}
	n, err := s.store.RemoveProduct(ctx, pid)
	if err != nil {
		logFailure(s.opts.log, "remove product", err)
		return 0, err
	}
	return n, nil
}

// UpdateProduct replaces the mutable attributes of pid. The pid itself is
// immutable: a body naming another pid is rejected.
func (s *InventoryService) UpdateProduct(ctx context.Context, pid int64, in models.ProductInput) (models.ProductKey, error) {
	if err := requirePID(pid); err != nil {
		return models.ProductKey{}, err
	}
	if err := in.Validate(false); err != nil {
		return models.ProductKey{}, err
	}
	if in.PID != nil && *in.PID != pid {
		return models.ProductKey{}, models.Invalid("pid", "does not match the product being updated")
	}
	key, err := s.store.UpdateProduct(ctx, in.Product(pid))
	if err != nil {
		logFailure(s.opts.log, "update product", err)
		return models.ProductKey{}, err
	}
	return key, nil
}

func (s *InventoryService) GetProduct(ctx context.Context, pid int64) (models.Product, error) {
	if err := requirePID(pid); err != nil {
		return models.Product{}, err
	}
	return s.store.GetProduct(ctx, pid)
}

func (s *InventoryService) ListProducts(ctx context.Context) ([]models.Product, error) {
	ps, err := s.store.ListProducts(ctx)
	if err != nil {
		logFailure(s.opts.log, "list products", err)
		return nil, err
	}
	return ps, nil
}

func (s *InventoryService) DecrementStock(ctx context.Context, pid int64, amount int) (models.Product, error) {
	if err := requirePID(pid); err != nil {
		return models.Product{}, err
	}
	if err := requireAmount(amount); err != nil {
		return models.Product{}, err
	}
	p, err := s.store.DecrementStock(ctx, pid, amount)
	if err != nil {
		if errors.Is(err, models.ErrInsufficientStock) {
			s.opts.observer.StockRejected("decrement")
		}
		logFailure(s.opts.log, "decrement stock", err)
		return models.Product{}, err
	}
	s.opts.log.WithFields(logrus.Fields{"pid": pid, "amount": amount, "in_stock": p.AmountInStock}).
		Debug("stock decremented")
	return p, nil
}

func (s *InventoryService) IncrementStock(ctx context.Context, pid int64, amount int) (models.Product, error) {
	if err := requirePID(pid); err != nil {
		return models.Product{}, err
	}
	if err := requireAmount(amount); err != nil {
		return models.Product{}, err
	}
	p, err := s.store.IncrementStock(ctx, pid, amount)
	if err != nil {
		logFailure(s.opts.log, "increment stock", err)
		return models.Product{}, err
	}
	return p, nil
}
