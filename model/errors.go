package models

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrDuplicateIdentity  = errors.New("identity already exists")
	ErrAlreadyExists      = fmt.Errorf("cart %w", ErrDuplicateIdentity)
	ErrNotFound           = errors.New("not found")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrAlreadyLocked      = errors.New("cart already locked")
	ErrCartLocked         = errors.New("cart is locked for checkout")
	ErrCheckoutNotStarted = errors.New("checkout has not been started for this cart")
	ErrCartEmpty          = errors.New("cart is empty")

	// ErrStore matches every *StoreError through errors.Is.
	ErrStore = errors.New("store failure")
)

// ValidationError reports a missing or malformed request field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

func missing(field string) error {
	return Invalid(field, "not specified")
}

// StoreError wraps a database failure that has no domain meaning.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Is(target error) bool { return target == ErrStore }
