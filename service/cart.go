package service

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	models "storefront/model"
	"storefront/store"
)

// CartService coordinates the cart lock: editing and checking out a cart
// exclude each other. The lock lives only in the carts row.
type CartService struct {
	store store.CartStore
	opts  options
}

func NewCartService(s store.CartStore, opts ...Option) *CartService {
	return &CartService{store: s, opts: buildOptions("cart", opts)}
}

func (s *CartService) CreateCart(ctx context.Context, cartID string, owner models.Owner) (models.Cart, error) {
	if err := requireCartID(cartID); err != nil {
		return models.Cart{}, err
	}
	if err := owner.Validate(); err != nil {
		return models.Cart{}, err
	}
	c, err := s.store.CreateCart(ctx, cartID, owner)
	if err != nil {
		logFailure(s.opts.log, "create cart", err)
		return models.Cart{}, err
	}
	s.opts.log.WithField("cart_id", cartID).Info("cart created")
	return c, nil
}

func (s *CartService) DeleteCart(ctx context.Context, cartID string) (int64, error) {
	if err := requireCartID(cartID); err != nil {
		return 0, err
	}
	n, err := s.store.DeleteCart(ctx, cartID)
	if err != nil {
		logFailure(s.opts.log, "delete cart", err)
		return 0, err
	}
	return n, nil
}

func (s *CartService) GetCart(ctx context.Context, cartID string) (models.Cart, error) {
	if err := requireCartID(cartID); err != nil {
		return models.Cart{}, err
	}
	return s.store.GetCart(ctx, cartID)
}

func (s *CartService) TouchModified(ctx context.Context, cartID string) error {
	if err := requireCartID(cartID); err != nil {
		return err
	}
	return s.store.TouchModified(ctx, cartID)
}

func (s *CartService) Lock(ctx context.Context, cartID string) error {
	if err := requireCartID(cartID); err != nil {
		return err
	}
	if err := s.store.LockCart(ctx, cartID); err != nil {
		s.contended("lock", err)
		logFailure(s.opts.log, "lock cart", err)
		return err
	}
	return nil
}

func (s *CartService) Unlock(ctx context.Context, cartID string) error {
	if err := requireCartID(cartID); err != nil {
		return err
	}
	if err := s.store.UnlockCart(ctx, cartID); err != nil {
		logFailure(s.opts.log, "unlock cart", err)
		return err
	}
	return nil
}

func (s *CartService) IsLocked(ctx context.Context, cartID string) (bool, error) {
	if err := requireCartID(cartID); err != nil {
		return false, err
	}
	return s.store.IsLocked(ctx, cartID)
}

// BeginCheckout locks the cart and records when checkout started. A cart
// already in checkout fails with ErrAlreadyLocked.
func (s *CartService) BeginCheckout(ctx context.Context, cartID string) (models.Cart, error) {
	if err := requireCartID(cartID); err != nil {
		return models.Cart{}, err
	}
	c, err := s.store.BeginCheckout(ctx, cartID)
	if err != nil {
		s.contended("begin_checkout", err)
		logFailure(s.opts.log, "begin checkout", err)
		return models.Cart{}, err
	}
	s.opts.log.WithField("cart_id", cartID).Info("checkout started")
	return c, nil
}

func (s *CartService) AbandonCheckout(ctx context.Context, cartID string) (models.Cart, error) {
	if err := requireCartID(cartID); err != nil {
		return models.Cart{}, err
	}
	c, err := s.store.AbandonCheckout(ctx, cartID)
	if err != nil {
		logFailure(s.opts.log, "abandon checkout", err)
		return models.Cart{}, err
	}
	s.opts.log.WithField("cart_id", cartID).Info("checkout abandoned")
	return c, nil
}

// CompleteCheckout takes stock for every line of a cart in checkout and
// releases the cart. Nothing is taken unless every line can be served.
func (s *CartService) CompleteCheckout(ctx context.Context, cartID string) ([]models.CartItem, error) {
	if err := requireCartID(cartID); err != nil {
		return nil, err
	}
	items, err := s.store.CompleteCheckout(ctx, cartID)
	if err != nil {
		if errors.Is(err, models.ErrInsufficientStock) {
			s.opts.observer.StockRejected("checkout")
		}
		logFailure(s.opts.log, "complete checkout", err)
		return nil, err
	}
	s.opts.log.WithFields(logrus.Fields{"cart_id": cartID, "lines": len(items)}).Info("checkout completed")
	return items, nil
}

func (s *CartService) AddItem(ctx context.Context, cartID string, pid int64, amount int) (models.CartItem, error) {
	if err := s.validItem(cartID, pid, amount); err != nil {
		return models.CartItem{}, err
	}
	item, err := s.store.AddItem(ctx, cartID, pid, amount)
	if err != nil {
		s.contended("add_item", err)
		logFailure(s.opts.log, "add item", err)
		return models.CartItem{}, err
	}
	return item, nil
}

func (s *CartService) ChangeAmount(ctx context.Context, cartID string, pid int64, amount int) (models.CartItem, error) {
	if err := s.validItem(cartID, pid, amount); err != nil {
		return models.CartItem{}, err
	}
	item, err := s.store.ChangeAmount(ctx, cartID, pid, amount)
	if err != nil {
		s.contended("change_amount", err)
		logFailure(s.opts.log, "change amount", err)
		return models.CartItem{}, err
	}
	return item, nil
}

func (s *CartService) RemoveItem(ctx context.Context, cartID string, pid int64) (int64, error) {
	if err := requireCartID(cartID); err != nil {
		return 0, err
	}
	if err := requirePID(pid); err != nil {
		return 0, err
	}
	n, err := s.store.RemoveItem(ctx, cartID, pid)
	if err != nil {
		s.contended("remove_item", err)
		logFailure(s.opts.log, "remove item", err)
		return 0, err
	}
	return n, nil
}

func (s *CartService) EmptyCart(ctx context.Context, cartID string) (int64, error) {
	if err := requireCartID(cartID); err != nil {
		return 0, err
	}
	n, err := s.store.EmptyCart(ctx, cartID)
	if err != nil {
		s.contended("empty_cart", err)
		logFailure(s.opts.log, "empty cart", err)
		return 0, err
	}
	return n, nil
}

func (s *CartService) ListItems(ctx context.Context, cartID string) ([]models.CartItem, error) {
	if err := requireCartID(cartID); err != nil {
		return nil, err
	}
	return s.store.ListItems(ctx, cartID)
}

func (s *CartService) validItem(cartID string, pid int64, amount int) error {
	if err := requireCartID(cartID); err != nil {
		return err
	}
	if err := requirePID(pid); err != nil {
		return err
	}
	return requireAmount(amount)
}

func (s *CartService) contended(op string, err error) {
	if errors.Is(err, models.ErrAlreadyLocked) || errors.Is(err, models.ErrCartLocked) {
		s.opts.observer.LockContended(op)
	}
}
