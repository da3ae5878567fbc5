package models

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Column limits of the products and cart_items tables.
const (
	MaxAmount = math.MaxInt32 // INTEGER
	maxPrice  = 1e10          // NUMERIC(12, 2), exclusive
)

var maxPriceDec = decimal.NewFromInt(maxPrice)

// Product is a row of the products table.
type Product struct {
	PID           int64           `json:"pid" db:"pid"`
	PCode         string          `json:"pcode" db:"pcode"`
	Price         decimal.Decimal `json:"price" db:"price"`
	SKU           string          `json:"sku" db:"sku"`
	AmountInStock int             `json:"amount_in_stock" db:"amount_in_stock"`
	PName         string          `json:"pname" db:"pname"`
	Description   string          `json:"description" db:"description"`
	Lang          string          `json:"lang" db:"lang"`
}

// ProductKey is what add and update hand back to the caller.
type ProductKey struct {
	PID         int64  `json:"pid" db:"pid"`
	PName       string `json:"pname" db:"pname"`
	Description string `json:"description" db:"description"`
}

// ProductInput is the typed request payload for add and update.
// Pointers distinguish a missing field from its zero value.
type ProductInput struct {
	PID           *int64           `json:"pid"`
	PCode         *string          `json:"pcode"`
	Price         *decimal.Decimal `json:"price"`
	SKU           *string          `json:"sku"`
	AmountInStock *int             `json:"amount_in_stock"`
	PName         *string          `json:"pname"`
	Description   *string          `json:"description"`
	Lang          *string          `json:"lang"`
}

// Validate checks that every attribute is present and well formed.
// requirePID is false for updates, where the pid comes from the path.
func (in ProductInput) Validate(requirePID bool) error {
	if requirePID && in.PID == nil {
		return missing("pid")
	}
	if in.PID != nil && *in.PID <= 0 {
		return Invalid("pid", "must be > 0")
	}
	for _, f := range []struct {
		name string
		v    *string
	}{
		{"pcode", in.PCode},
		{"sku", in.SKU},
		{"pname", in.PName},
		{"lang", in.Lang},
	} {
		if f.v == nil || strings.TrimSpace(*f.v) == "" {
			return missing(f.name)
		}
	}
	if in.Description == nil {
		return missing("description")
	}
	if in.Price == nil {
		return missing("price")
	}
	if in.Price.IsNegative() {
		return Invalid("price", "must be >= 0")
	}
	if in.Price.GreaterThanOrEqual(maxPriceDec) {
		return Invalid("price", "must be < 10000000000")
	}
	if !in.Price.Equal(in.Price.Round(2)) {
		return Invalid("price", "at most 2 decimal places")
	}
	if in.AmountInStock == nil {
		return missing("amount_in_stock")
	}
	if *in.AmountInStock < 0 || *in.AmountInStock > MaxAmount {
		return Invalid("amount_in_stock", "must be between 0 and 2147483647")
	}
	return nil
}

// Product builds the record for pid. Call Validate first.
func (in ProductInput) Product(pid int64) Product {
	return Product{
		PID:           pid,
		PCode:         *in.PCode,
		Price:         *in.Price,
		SKU:           *in.SKU,
		AmountInStock: *in.AmountInStock,
		PName:         *in.PName,
		Description:   *in.Description,
		Lang:          *in.Lang,
	}
}
