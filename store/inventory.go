package store

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	models "storefront/model"
)

const productColumns = `pid, pcode, price, sku, amount_in_stock, pname, description, lang`

const (
	insertProductSQL = `INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (pid) DO NOTHING
		RETURNING pid, pname, description`

	deleteProductSQL = `DELETE FROM products WHERE pid = $1`

	updateProductSQL = `UPDATE products
		SET pcode = $2, price = $3, sku = $4, amount_in_stock = $5, pname = $6, description = $7, lang = $8
		WHERE pid = $1
		RETURNING pid, pname, description`

	selectProductSQL = `SELECT ` + productColumns + ` FROM products WHERE pid = $1`
	listProductsSQL  = `SELECT ` + productColumns + ` FROM products ORDER BY pid`
	productExistsSQL = `SELECT EXISTS (SELECT 1 FROM products WHERE pid = $1)`

	// The stock check and the write are one statement, so two concurrent
	// decrements are serialised by the row lock and cannot jointly overdraw.
	decrementStockSQL = `UPDATE products
		SET amount_in_stock = amount_in_stock - $2
		WHERE pid = $1 AND amount_in_stock >= $2
		RETURNING ` + productColumns

	incrementStockSQL = `UPDATE products
		SET amount_in_stock = amount_in_stock + $2
		WHERE pid = $1
		RETURNING ` + productColumns
)

// AddProduct inserts p. A pid that is already taken yields ErrDuplicateIdentity
// and leaves the existing row untouched.
func (s *PostgresStore) AddProduct(ctx context.Context, p models.Product) (models.ProductKey, error) {
	const op = "add product"
	var key models.ProductKey
	args := []interface{}{p.PID, p.PCode, p.Price, p.SKU, p.AmountInStock, p.PName, p.Description, p.Lang}
	s.debug(op, insertProductSQL, args...)

	err := s.DB.GetContext(ctx, &key, insertProductSQL, args...)
	if err != nil {
		return models.ProductKey{}, classify(op, err, errors.Wrapf(models.ErrDuplicateIdentity, "product %d", p.PID))
	}
	return key, nil
}

// RemoveProduct deletes the product and returns how many rows went away.
func (s *PostgresStore) RemoveProduct(ctx context.Context, pid int64) (int64, error) {
	const op = "remove product"
	s.debug(op, deleteProductSQL, pid)

	res, err := s.DB.ExecContext(ctx, deleteProductSQL, pid)
	if err != nil {
		return 0, classify(op, err, nil)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, classify(op, err, nil)
	}
	if n == 0 {
		return 0, errors.Wrapf(models.ErrNotFound, "product %d", pid)
	}
	return n, nil
}

// UpdateProduct replaces every mutable attribute of p.PID.
func (s *PostgresStore) UpdateProduct(ctx context.Context, p models.Product) (models.ProductKey, error) {
	const op = "update product"
	var key models.ProductKey
	args := []interface{}{p.PID, p.PCode, p.Price, p.SKU, p.AmountInStock, p.PName, p.Description, p.Lang}
	s.debug(op, updateProductSQL, args...)

	if err := s.DB.GetContext(ctx, &key, updateProductSQL, args...); err != nil {
		return models.ProductKey{}, classify(op, err, errors.Wrapf(models.ErrNotFound, "product %d", p.PID))
	}
	return key, nil
}

func (s *PostgresStore) GetProduct(ctx context.Context, pid int64) (models.Product, error) {
	const op = "get product"
	var p models.Product
	s.debug(op, selectProductSQL, pid)

	if err := s.DB.GetContext(ctx, &p, selectProductSQL, pid); err != nil {
		return models.Product{}, classify(op, err, errors.Wrapf(models.ErrNotFound, "product %d", pid))
	}
	return p, nil
}

func (s *PostgresStore) ListProducts(ctx context.Context) ([]models.Product, error) {
	const op = "list products"
	out := []models.Product{}
	s.debug(op, listProductsSQL)

	if err := s.DB.SelectContext(ctx, &out, listProductsSQL); err != nil {
		return nil, classify(op, err, nil)
	}
	return out, nil
}

// DecrementStock takes amount out of stock only if that much is on hand.
func (s *PostgresStore) DecrementStock(ctx context.Context, pid int64, amount int) (models.Product, error) {
	const op = "decrement stock"
	var p models.Product
	s.debug(op, decrementStockSQL, pid, amount)

	err := s.DB.GetContext(ctx, &p, decrementStockSQL, pid, amount)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.Product{}, classify(op, err, nil)
	}

	found, err := s.exists(ctx, op, productExistsSQL, pid)
	switch {
	case err != nil:
		return models.Product{}, err
	case !found:
		return models.Product{}, errors.Wrapf(models.ErrNotFound, "product %d", pid)
	default:
		return models.Product{}, errors.Wrapf(models.ErrInsufficientStock, "product %d: cannot take %d", pid, amount)
	}
}

func (s *PostgresStore) IncrementStock(ctx context.Context, pid int64, amount int) (models.Product, error) {
	const op = "increment stock"
	var p models.Product
	s.debug(op, incrementStockSQL, pid, amount)

	if err := s.DB.GetContext(ctx, &p, incrementStockSQL, pid, amount); err != nil {
		return models.Product{}, classify(op, err, errors.Wrapf(models.ErrNotFound, "product %d", pid))
	}
	return p, nil
}
