package store

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"

	models "storefront/model"
)

const cartColumns = `cart_id, uid, sid, locked, date_created, date_modified, date_checkout`

const (
	insertCartSQL = `INSERT INTO carts (cart_id, uid, sid, locked, date_created)
		VALUES ($1, $2, $3, false, now())
		ON CONFLICT (cart_id) DO NOTHING
		RETURNING ` + cartColumns

	// cart_items go with the cart through ON DELETE CASCADE.
	deleteCartSQL = `DELETE FROM carts WHERE cart_id = $1 AND locked = false`

	selectCartSQL = `SELECT ` + cartColumns + ` FROM carts WHERE cart_id = $1`
	cartExistsSQL = `SELECT EXISTS (SELECT 1 FROM carts WHERE cart_id = $1)`
	isLockedSQL   = `SELECT locked FROM carts WHERE cart_id = $1`
	touchCartSQL  = `UPDATE carts SET date_modified = now() WHERE cart_id = $1`
	lockCartSQL   = `UPDATE carts SET locked = true WHERE cart_id = $1 AND locked = false`
	unlockCartSQL = `UPDATE carts SET locked = false WHERE cart_id = $1`

	beginCheckoutSQL = `UPDATE carts
		SET locked = true, date_checkout = now()
		WHERE cart_id = $1 AND locked = false
		RETURNING ` + cartColumns

	abandonCheckoutSQL = `UPDATE carts
		SET locked = false, date_checkout = NULL
		WHERE cart_id = $1
		RETURNING ` + cartColumns
)

func nullString(s string) sql.NullString {
	s = strings.TrimSpace(s)
	return sql.NullString{String: s, Valid: s != ""}
}

func (s *PostgresStore) CreateCart(ctx context.Context, cartID string, owner models.Owner) (models.Cart, error) {
	const op = "create cart"
	var c models.Cart
	uid, sid := nullString(owner.UID), nullString(owner.SID)
	s.debug(op, insertCartSQL, cartID, uid, sid)

	if err := s.DB.GetContext(ctx, &c, insertCartSQL, cartID, uid, sid); err != nil {
		return models.Cart{}, classify(op, err, errors.Wrapf(models.ErrAlreadyExists, "cart %s", cartID))
	}
	return c, nil
}

// DeleteCart removes an unlocked cart together with its contents.
func (s *PostgresStore) DeleteCart(ctx context.Context, cartID string) (int64, error) {
	const op = "delete cart"
	s.debug(op, deleteCartSQL, cartID)

	n, err := s.execAffected(ctx, op, deleteCartSQL, cartID)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, s.whyNotUnlocked(ctx, op, cartID, models.ErrCartLocked)
	}
	return n, nil
}

func (s *PostgresStore) GetCart(ctx context.Context, cartID string) (models.Cart, error) {
	const op = "get cart"
	var c models.Cart
	s.debug(op, selectCartSQL, cartID)

	if err := s.DB.GetContext(ctx, &c, selectCartSQL, cartID); err != nil {
		return models.Cart{}, classify(op, err, errors.Wrapf(models.ErrNotFound, "cart %s", cartID))
	}
	return c, nil
}

func (s *PostgresStore) TouchModified(ctx context.Context, cartID string) error {
	const op = "touch cart"
	s.debug(op, touchCartSQL, cartID)

	n, err := s.execAffected(ctx, op, touchCartSQL, cartID)
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.Wrapf(models.ErrNotFound, "cart %s", cartID)
	}
	return nil
}

// LockCart flips locked from false to true. Of two concurrent callers only
// one sees a row affected; the other gets ErrAlreadyLocked.
func (s *PostgresStore) LockCart(ctx context.Context, cartID string) error {
	const op = "lock cart"
	s.debug(op, lockCartSQL, cartID)

	n, err := s.execAffected(ctx, op, lockCartSQL, cartID)
	if err != nil {
		return err
	}
	if n == 0 {
		return s.whyNotUnlocked(ctx, op, cartID, models.ErrAlreadyLocked)
	}
	return nil
}

func (s *PostgresStore) UnlockCart(ctx context.Context, cartID string) error {
	const op = "unlock cart"
	s.debug(op, unlockCartSQL, cartID)

	n, err := s.execAffected(ctx, op, unlockCartSQL, cartID)
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.Wrapf(models.ErrNotFound, "cart %s", cartID)
	}
	return nil
}

func (s *PostgresStore) IsLocked(ctx context.Context, cartID string) (bool, error) {
	const op = "is locked"
	var locked bool
	s.debug(op, isLockedSQL, cartID)

	if err := s.DB.GetContext(ctx, &locked, isLockedSQL, cartID); err != nil {
		return false, classify(op, err, errors.Wrapf(models.ErrNotFound, "cart %s", cartID))
	}
	return locked, nil
}

// BeginCheckout locks the cart and stamps date_checkout in one statement.
func (s *PostgresStore) BeginCheckout(ctx context.Context, cartID string) (models.Cart, error) {
	const op = "begin checkout"
	var c models.Cart
	s.debug(op, beginCheckoutSQL, cartID)

	err := s.DB.GetContext(ctx, &c, beginCheckoutSQL, cartID)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.Cart{}, classify(op, err, nil)
	}
	return models.Cart{}, s.whyNotUnlocked(ctx, op, cartID, models.ErrAlreadyLocked)
}

// AbandonCheckout clears date_checkout and unlocks. Calling it on a cart that
// is not in checkout is harmless.
func (s *PostgresStore) AbandonCheckout(ctx context.Context, cartID string) (models.Cart, error) {
	const op = "abandon checkout"
	var c models.Cart
	s.debug(op, abandonCheckoutSQL, cartID)

	if err := s.DB.GetContext(ctx, &c, abandonCheckoutSQL, cartID); err != nil {
		return models.Cart{}, classify(op, err, errors.Wrapf(models.ErrNotFound, "cart %s", cartID))
	}
	return c, nil
}

func (s *PostgresStore) execAffected(ctx context.Context, op, query string, args ...interface{}) (int64, error) {
	res, err := s.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, classify(op, err, nil)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, classify(op, err, nil)
	}
	return n, nil
}

// whyNotUnlocked explains a "WHERE locked = false" write that matched nothing:
// either the cart is gone or it is locked, reported as lockedErr.
func (s *PostgresStore) whyNotUnlocked(ctx context.Context, op, cartID string, lockedErr error) error {
	found, err := s.exists(ctx, op, cartExistsSQL, cartID)
	if err != nil {
		return err
	}
	if !found {
		return errors.Wrapf(models.ErrNotFound, "cart %s", cartID)
	}
	return errors.Wrapf(lockedErr, "cart %s", cartID)
}
