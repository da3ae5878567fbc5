package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	models "storefront/model"
)

func TestCreateCart_SuccessAndAlreadyExists(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()
	owner := models.Owner{UID: "u1"}
	uid := sql.NullString{String: "u1", Valid: true}

	mock.ExpectQuery(q(insertCartSQL)).
		WithArgs("c1", uid, sql.NullString{}).
		WillReturnRows(cartRows("c1", false, nil))

	c, err := s.CreateCart(ctx, "c1", owner)
	require.NoError(t, err)
	assert.Equal(t, "c1", c.CartID)
	assert.False(t, c.Locked)
	assert.False(t, c.DateCheckout.Valid)
	assert.Equal(t, owner, c.Owner())

	mock.ExpectQuery(q(insertCartSQL)).
		WithArgs("c1", uid, sql.NullString{}).
		WillReturnRows(sqlmock.NewRows([]string{"cart_id"}))

	_, err = s.CreateCart(ctx, "c1", owner)
	assert.ErrorIs(t, err, models.ErrAlreadyExists)
	assert.ErrorIs(t, err, models.ErrDuplicateIdentity)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLockCart(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()

	t.Run("wins", func(t *testing.T) {
		mock.ExpectExec(q(lockCartSQL)).WithArgs("c1").WillReturnResult(sqlmock.NewResult(0, 1))
		require.NoError(t, s.LockCart(ctx, "c1"))
	})

	t.Run("already locked", func(t *testing.T) {
		mock.ExpectExec(q(lockCartSQL)).WithArgs("c1").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(q(cartExistsSQL)).WithArgs("c1").WillReturnRows(existsRows(true))
		assert.ErrorIs(t, s.LockCart(ctx, "c1"), models.ErrAlreadyLocked)
	})

	t.Run("missing cart", func(t *testing.T) {
		mock.ExpectExec(q(lockCartSQL)).WithArgs("nope").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(q(cartExistsSQL)).WithArgs("nope").WillReturnRows(existsRows(false))
		assert.ErrorIs(t, s.LockCart(ctx, "nope"), models.ErrNotFound)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUnlockCart_IdempotentAndNotFound(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()

	// Postgres counts matched rows, so unlocking an unlocked cart still reports 1
	mock.ExpectExec(q(unlockCartSQL)).WithArgs("c1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q(unlockCartSQL)).WithArgs("c1").WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, s.UnlockCart(ctx, "c1"))
	require.NoError(t, s.UnlockCart(ctx, "c1"))

	mock.ExpectExec(q(unlockCartSQL)).WithArgs("nope").WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, s.UnlockCart(ctx, "nope"), models.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIsLocked(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectQuery(q(isLockedSQL)).WithArgs("c1").WillReturnRows(sqlmock.NewRows([]string{"locked"}).AddRow(true))
	locked, err := s.IsLocked(ctx, "c1")
	require.NoError(t, err)
	assert.True(t, locked)

	mock.ExpectQuery(q(isLockedSQL)).WithArgs("nope").WillReturnRows(sqlmock.NewRows([]string{"locked"}))
	_, err = s.IsLocked(ctx, "nope")
	assert.ErrorIs(t, err, models.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBeginCheckout_SetsTimeAndLosesRace(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()
	now := time.Now()

	mock.ExpectQuery(q(beginCheckoutSQL)).WithArgs("c1").WillReturnRows(cartRows("c1", true, &now))
	c, err := s.BeginCheckout(ctx, "c1")
	require.NoError(t, err)
	assert.True(t, c.Locked)
	assert.True(t, c.DateCheckout.Valid)

	mock.ExpectQuery(q(beginCheckoutSQL)).WithArgs("c1").WillReturnRows(sqlmock.NewRows([]string{"cart_id"}))
	mock.ExpectQuery(q(cartExistsSQL)).WithArgs("c1").WillReturnRows(existsRows(true))
	_, err = s.BeginCheckout(ctx, "c1")
	assert.ErrorIs(t, err, models.ErrAlreadyLocked)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAbandonCheckout(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(q(abandonCheckoutSQL)).WithArgs("c1").WillReturnRows(cartRows("c1", false, nil))
	c, err := s.AbandonCheckout(context.Background(), "c1")
	require.NoError(t, err)
	assert.False(t, c.Locked)
	assert.False(t, c.DateCheckout.Valid)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteCart(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectExec(q(deleteCartSQL)).WithArgs("c1").WillReturnResult(sqlmock.NewResult(0, 1))
	n, err := s.DeleteCart(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	mock.ExpectExec(q(deleteCartSQL)).WithArgs("c2").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(q(cartExistsSQL)).WithArgs("c2").WillReturnRows(existsRows(true))
	_, err = s.DeleteCart(ctx, "c2")
	assert.ErrorIs(t, err, models.ErrCartLocked)

	mock.ExpectExec(q(deleteCartSQL)).WithArgs("c3").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(q(cartExistsSQL)).WithArgs("c3").WillReturnRows(existsRows(false))
	n, err = s.DeleteCart(ctx, "c3")
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.Zero(t, n)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTouchModified(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(q(touchCartSQL)).WithArgs("c1").WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, s.TouchModified(context.Background(), "c1"))

	mock.ExpectExec(q(touchCartSQL)).WithArgs("nope").WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, s.TouchModified(context.Background(), "nope"), models.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func lockedRow(locked bool) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"locked"}).AddRow(locked)
}

func itemRows(items ...models.CartItem) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"cart_id", "pid", "amount"})
	for _, it := range items {
		rows.AddRow(it.CartID, it.PID, it.Amount)
	}
	return rows
}

func TestAddItem_Success(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(q(lockCartRowSQL)).WithArgs("c1").WillReturnRows(lockedRow(false))
	mock.ExpectQuery(q(upsertItemSQL)).WithArgs("c1", int64(3), 2).
		WillReturnRows(itemRows(models.CartItem{CartID: "c1", PID: 3, Amount: 2}))
	mock.ExpectExec(q(touchCartSQL)).WithArgs("c1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	item, err := s.AddItem(context.Background(), "c1", 3, 2)
	require.NoError(t, err)
	assert.Equal(t, models.CartItem{CartID: "c1", PID: 3, Amount: 2}, item)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAddItem_LockedCartWritesNothing(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(q(lockCartRowSQL)).WithArgs("c1").WillReturnRows(lockedRow(true))
	mock.ExpectRollback()

	_, err := s.AddItem(context.Background(), "c1", 3, 2)
	assert.ErrorIs(t, err, models.ErrCartLocked)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAddItem_SucceedsAfterUnlock(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery(q(lockCartRowSQL)).WithArgs("c1").WillReturnRows(lockedRow(true))
	mock.ExpectRollback()

	_, err := s.AddItem(ctx, "c1", 3, 2)
	require.ErrorIs(t, err, models.ErrCartLocked)

	mock.ExpectExec(q(unlockCartSQL)).WithArgs("c1").WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, s.UnlockCart(ctx, "c1"))

	mock.ExpectBegin()
	mock.ExpectQuery(q(lockCartRowSQL)).WithArgs("c1").WillReturnRows(lockedRow(false))
	mock.ExpectQuery(q(upsertItemSQL)).WithArgs("c1", int64(3), 2).
		WillReturnRows(itemRows(models.CartItem{CartID: "c1", PID: 3, Amount: 2}))
	mock.ExpectExec(q(touchCartSQL)).WithArgs("c1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	item, err := s.AddItem(ctx, "c1", 3, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, item.Amount)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAddItem_UnknownProduct(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(q(lockCartRowSQL)).WithArgs("c1").WillReturnRows(lockedRow(false))
	mock.ExpectQuery(q(upsertItemSQL)).WithArgs("c1", int64(99), 1).
		WillReturnError(&pq.Error{Code: codeForeignKeyViolation})
	mock.ExpectRollback()

	_, err := s.AddItem(context.Background(), "c1", 99, 1)
	assert.ErrorIs(t, err, models.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAddItem_MissingCart(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(q(lockCartRowSQL)).WithArgs("nope").WillReturnRows(sqlmock.NewRows([]string{"locked"}))
	mock.ExpectRollback()

	_, err := s.AddItem(context.Background(), "nope", 3, 1)
	assert.ErrorIs(t, err, models.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestChangeAmount_NotInCart(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(q(lockCartRowSQL)).WithArgs("c1").WillReturnRows(lockedRow(false))
	mock.ExpectQuery(q(changeAmountSQL)).WithArgs("c1", int64(3), 4).WillReturnRows(itemRows())
	mock.ExpectRollback()

	_, err := s.ChangeAmount(context.Background(), "c1", 3, 4)
	assert.ErrorIs(t, err, models.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRemoveItemAndEmptyCart(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery(q(lockCartRowSQL)).WithArgs("c1").WillReturnRows(lockedRow(false))
	mock.ExpectExec(q(removeItemSQL)).WithArgs("c1", int64(3)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q(touchCartSQL)).WithArgs("c1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	n, err := s.RemoveItem(ctx, "c1", 3)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	mock.ExpectBegin()
	mock.ExpectQuery(q(lockCartRowSQL)).WithArgs("c1").WillReturnRows(lockedRow(false))
	mock.ExpectExec(q(emptyCartSQL)).WithArgs("c1").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(q(touchCartSQL)).WithArgs("c1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	n, err = s.EmptyCart(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListItems(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectQuery(q(listItemsSQL)).WithArgs("c1").
		WillReturnRows(itemRows(models.CartItem{CartID: "c1", PID: 1, Amount: 2}, models.CartItem{CartID: "c1", PID: 3, Amount: 1}))
	items, err := s.ListItems(ctx, "c1")
	require.NoError(t, err)
	assert.Len(t, items, 2)

	mock.ExpectQuery(q(listItemsSQL)).WithArgs("c2").WillReturnRows(itemRows())
	mock.ExpectQuery(q(cartExistsSQL)).WithArgs("c2").WillReturnRows(existsRows(true))
	items, err = s.ListItems(ctx, "c2")
	require.NoError(t, err)
	assert.Empty(t, items)

	mock.ExpectQuery(q(listItemsSQL)).WithArgs("nope").WillReturnRows(itemRows())
	mock.ExpectQuery(q(cartExistsSQL)).WithArgs("nope").WillReturnRows(existsRows(false))
	_, err = s.ListItems(ctx, "nope")
	assert.ErrorIs(t, err, models.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func checkoutStateRows(locked, inCheckout bool) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"locked", "in_checkout"}).AddRow(locked, inCheckout)
}

func TestCompleteCheckout_Success(t *testing.T) {
	s, mock := newMockStore(t)
	lines := []models.CartItem{{CartID: "c1", PID: 1, Amount: 2}, {CartID: "c1", PID: 2, Amount: 1}}

	mock.ExpectBegin()
	mock.ExpectQuery(q(checkoutStateSQL)).WithArgs("c1").WillReturnRows(checkoutStateRows(true, true))
	mock.ExpectQuery(q(listItemsSQL)).WithArgs("c1").WillReturnRows(itemRows(lines...))
	mock.ExpectPrepare(q(checkoutDecrementSQL))
	mock.ExpectExec(q(checkoutDecrementSQL)).WithArgs(int64(1), 2).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q(checkoutDecrementSQL)).WithArgs(int64(2), 1).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q(emptyCartSQL)).WithArgs("c1").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(q(finishCheckoutSQL)).WithArgs("c1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	items, err := s.CompleteCheckout(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, lines, items)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteCheckout_ShortLineRollsBack(t *testing.T) {
	s, mock := newMockStore(t)
	lines := []models.CartItem{{CartID: "c1", PID: 1, Amount: 2}, {CartID: "c1", PID: 2, Amount: 50}}

	mock.ExpectBegin()
	mock.ExpectQuery(q(checkoutStateSQL)).WithArgs("c1").WillReturnRows(checkoutStateRows(true, true))
	mock.ExpectQuery(q(listItemsSQL)).WithArgs("c1").WillReturnRows(itemRows(lines...))
	mock.ExpectPrepare(q(checkoutDecrementSQL))
	mock.ExpectExec(q(checkoutDecrementSQL)).WithArgs(int64(1), 2).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q(checkoutDecrementSQL)).WithArgs(int64(2), 50).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := s.CompleteCheckout(context.Background(), "c1")
	assert.ErrorIs(t, err, models.ErrInsufficientStock)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteCheckout_NotStarted(t *testing.T) {
	s, mock := newMockStore(t)

	// locked through Lock but never begun: no checkout time
	mock.ExpectBegin()
	mock.ExpectQuery(q(checkoutStateSQL)).WithArgs("c1").WillReturnRows(checkoutStateRows(true, false))
	mock.ExpectRollback()

	_, err := s.CompleteCheckout(context.Background(), "c1")
	assert.ErrorIs(t, err, models.ErrCheckoutNotStarted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteCheckout_EmptyCart(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(q(checkoutStateSQL)).WithArgs("c1").WillReturnRows(checkoutStateRows(true, true))
	mock.ExpectQuery(q(listItemsSQL)).WithArgs("c1").WillReturnRows(itemRows())
	mock.ExpectRollback()

	_, err := s.CompleteCheckout(context.Background(), "c1")
	assert.ErrorIs(t, err, models.ErrCartEmpty)
	require.NoError(t, mock.ExpectationsWereMet())
}
