package models

import (
	"database/sql"
	"strings"
	"time"
)

// Owner identifies who a cart belongs to: a signed-in user or an anonymous session, never both.
type Owner struct {
	UID string `json:"uid,omitempty"`
	SID string `json:"sid,omitempty"`
}

func (o Owner) Validate() error {
	uid, sid := strings.TrimSpace(o.UID), strings.TrimSpace(o.SID)
	switch {
	case uid == "" && sid == "":
		return Invalid("owner", "one of uid or sid is required")
	case uid != "" && sid != "":
		return Invalid("owner", "uid and sid are mutually exclusive")
	}
	return nil
}

// Cart is a row of the carts table.
type Cart struct {
	CartID       string         `json:"cart_id" db:"cart_id"`
	UID          sql.NullString `json:"-" db:"uid"`
	SID          sql.NullString `json:"-" db:"sid"`
	Locked       bool           `json:"locked" db:"locked"`
	DateCreated  time.Time      `json:"date_created" db:"date_created"`
	DateModified sql.NullTime   `json:"-" db:"date_modified"`
	DateCheckout sql.NullTime   `json:"-" db:"date_checkout"`
}

// Owner returns the cart's owner reference.
func (c Cart) Owner() Owner {
	return Owner{UID: c.UID.String, SID: c.SID.String}
}

// CartView is the JSON shape of a cart.
type CartView struct {
	CartID       string     `json:"cart_id"`
	Owner        Owner      `json:"owner"`
	Locked       bool       `json:"locked"`
	DateCreated  time.Time  `json:"date_created"`
	DateModified *time.Time `json:"date_modified"`
	DateCheckout *time.Time `json:"date_checkout"`
}

func (c Cart) View() CartView {
	v := CartView{
		CartID:      c.CartID,
		Owner:       c.Owner(),
		Locked:      c.Locked,
		DateCreated: c.DateCreated,
	}
	if c.DateModified.Valid {
		t := c.DateModified.Time
		v.DateModified = &t
	}
	if c.DateCheckout.Valid {
		t := c.DateCheckout.Time
		v.DateCheckout = &t
	}
	return v
}

// CartItem is one product line of a cart.
type CartItem struct {
	CartID string `json:"cart_id" db:"cart_id"`
	PID    int64  `json:"pid" db:"pid"`
	Amount int    `json:"amount" db:"amount"`
}
