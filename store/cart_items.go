package store

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	models "storefront/model"
)

const itemColumns = `cart_id, pid, amount`

const (
	// Holding the cart row for the whole transaction serialises every content
	// change against LockCart and BeginCheckout on the same cart.
	lockCartRowSQL = `SELECT locked FROM carts WHERE cart_id = $1 FOR UPDATE`

	upsertItemSQL = `INSERT INTO cart_items (cart_id, pid, amount)
		VALUES ($1, $2, $3)
		ON CONFLICT (cart_id, pid)
		DO UPDATE SET amount = cart_items.amount + EXCLUDED.amount
		RETURNING ` + itemColumns

	changeAmountSQL = `UPDATE cart_items SET amount = $3 WHERE cart_id = $1 AND pid = $2 RETURNING ` + itemColumns
	removeItemSQL   = `DELETE FROM cart_items WHERE cart_id = $1 AND pid = $2`
	emptyCartSQL    = `DELETE FROM cart_items WHERE cart_id = $1`
	listItemsSQL    = `SELECT ` + itemColumns + ` FROM cart_items WHERE cart_id = $1 ORDER BY pid`

	checkoutStateSQL = `SELECT locked, date_checkout IS NOT NULL AS in_checkout
		FROM carts WHERE cart_id = $1 FOR UPDATE`

	// Same conditional write as DecrementStock, inside the checkout transaction.
	checkoutDecrementSQL = `UPDATE products SET amount_in_stock = amount_in_stock - $2 WHERE pid = $1 AND amount_in_stock >= $2`

	finishCheckoutSQL = `UPDATE carts
		SET locked = false, date_checkout = NULL, date_modified = now()
		WHERE cart_id = $1`
)

// mutateCart runs fn on an unlocked cart inside one transaction and bumps
// date_modified. A locked cart fails with ErrCartLocked before fn runs.
func (s *PostgresStore) mutateCart(ctx context.Context, op, cartID string, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return classify(op, err, nil)
	}
	defer s.rollback(op, tx)

	var locked bool
	s.debug(op, lockCartRowSQL, cartID)
	if err := tx.GetContext(ctx, &locked, lockCartRowSQL, cartID); err != nil {
		return classify(op, err, errors.Wrapf(models.ErrNotFound, "cart %s", cartID))
	}
	if locked {
		return errors.Wrapf(models.ErrCartLocked, "cart %s", cartID)
	}

	if err := fn(tx); err != nil {
		return err
	}

	s.debug(op, touchCartSQL, cartID)
	if _, err := tx.ExecContext(ctx, touchCartSQL, cartID); err != nil {
		return classify(op, err, nil)
	}
	if err := tx.Commit(); err != nil {
		return classify(op, err, nil)
	}
	return nil
}

// AddItem puts amount of pid in the cart, adding to any amount already there.
func (s *PostgresStore) AddItem(ctx context.Context, cartID string, pid int64, amount int) (models.CartItem, error) {
	const op = "add item"
	var item models.CartItem
	err := s.mutateCart(ctx, op, cartID, func(tx *sqlx.Tx) error {
		s.debug(op, upsertItemSQL, cartID, pid, amount)
		return classify(op, tx.GetContext(ctx, &item, upsertItemSQL, cartID, pid, amount), nil)
	})
	return item, err
}

func (s *PostgresStore) ChangeAmount(ctx context.Context, cartID string, pid int64, amount int) (models.CartItem, error) {
	const op = "change amount"
	var item models.CartItem
	err := s.mutateCart(ctx, op, cartID, func(tx *sqlx.Tx) error {
		s.debug(op, changeAmountSQL, cartID, pid, amount)
		err := tx.GetContext(ctx, &item, changeAmountSQL, cartID, pid, amount)
		return classify(op, err, errors.Wrapf(models.ErrNotFound, "product %d in cart %s", pid, cartID))
	})
	return item, err
}

func (s *PostgresStore) RemoveItem(ctx context.Context, cartID string, pid int64) (int64, error) {
	const op = "remove item"
	var n int64
	err := s.mutateCart(ctx, op, cartID, func(tx *sqlx.Tx) error {
		s.debug(op, removeItemSQL, cartID, pid)
		res, err := tx.ExecContext(ctx, removeItemSQL, cartID, pid)
		if err != nil {
			return classify(op, err, nil)
		}
		if n, err = res.RowsAffected(); err != nil {
			return classify(op, err, nil)
		}
		if n == 0 {
			return errors.Wrapf(models.ErrNotFound, "product %d in cart %s", pid, cartID)
		}
		return nil
	})
	return n, err
}

// EmptyCart removes every line but keeps the cart.
func (s *PostgresStore) EmptyCart(ctx context.Context, cartID string) (int64, error) {
	const op = "empty cart"
	var n int64
	err := s.mutateCart(ctx, op, cartID, func(tx *sqlx.Tx) error {
		s.debug(op, emptyCartSQL, cartID)
		res, err := tx.ExecContext(ctx, emptyCartSQL, cartID)
		if err != nil {
			return classify(op, err, nil)
		}
		n, err = res.RowsAffected()
		return classify(op, err, nil)
	})
	return n, err
}

func (s *PostgresStore) ListItems(ctx context.Context, cartID string) ([]models.CartItem, error) {
	const op = "list items"
	out := []models.CartItem{}
	s.debug(op, listItemsSQL, cartID)

	if err := s.DB.SelectContext(ctx, &out, listItemsSQL, cartID); err != nil {
		return nil, classify(op, err, nil)
	}
	if len(out) > 0 {
		return out, nil
	}
	found, err := s.exists(ctx, op, cartExistsSQL, cartID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, errors.Wrapf(models.ErrNotFound, "cart %s", cartID)
	}
	return out, nil
}

// CompleteCheckout finishes a begun checkout: stock for every line is taken
// with a conditional write, the cart is emptied and unlocked. Any short line
// rolls the whole transaction back and the cart stays locked.
func (s *PostgresStore) CompleteCheckout(ctx context.Context, cartID string) ([]models.CartItem, error) {
	const op = "complete checkout"

	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return nil, classify(op, err, nil)
	}
	defer s.rollback(op, tx)

	var state struct {
		Locked     bool `db:"locked"`
		InCheckout bool `db:"in_checkout"`
	}
	s.debug(op, checkoutStateSQL, cartID)
	if err := tx.GetContext(ctx, &state, checkoutStateSQL, cartID); err != nil {
		return nil, classify(op, err, errors.Wrapf(models.ErrNotFound, "cart %s", cartID))
	}
	if !state.Locked || !state.InCheckout {
		return nil, errors.Wrapf(models.ErrCheckoutNotStarted, "cart %s", cartID)
	}

	// ORDER BY pid keeps product row locks in a stable order across checkouts.
	items := []models.CartItem{}
	s.debug(op, listItemsSQL, cartID)
	if err := tx.SelectContext(ctx, &items, listItemsSQL, cartID); err != nil {
		return nil, classify(op, err, nil)
	}
	if len(items) == 0 {
		return nil, errors.Wrapf(models.ErrCartEmpty, "cart %s", cartID)
	}

	stmt, err := tx.PreparexContext(ctx, checkoutDecrementSQL)
	if err != nil {
		return nil, classify(op, err, nil)
	}
	defer stmt.Close()

	for _, it := range items {
		s.debug(op, checkoutDecrementSQL, it.PID, it.Amount)
		res, err := stmt.ExecContext(ctx, it.PID, it.Amount)
		if err != nil {
			return nil, classify(op, err, nil)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, classify(op, err, nil)
		}
		if n == 0 {
			return nil, errors.Wrapf(models.ErrInsufficientStock, "product %d: cannot take %d", it.PID, it.Amount)
		}
	}

	s.debug(op, emptyCartSQL, cartID)
	if _, err := tx.ExecContext(ctx, emptyCartSQL, cartID); err != nil {
		return nil, classify(op, err, nil)
	}
	s.debug(op, finishCheckoutSQL, cartID)
	if _, err := tx.ExecContext(ctx, finishCheckoutSQL, cartID); err != nil {
		return nil, classify(op, err, nil)
	}
	if err := tx.Commit(); err != nil {
		return nil, classify(op, err, nil)
	}
	return items, nil
}
