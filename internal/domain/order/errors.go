package order

import (
	"fmt"

	"github.com/go-faster/errors"
)

// Sentinel errors for order validation and lifecycle rules.
var (
	ErrEmptyItems = errors.New("at least one item is required")
	ErrNotFound   = errors.New("order not found")
	ErrNotOwner   = errors.New("order does not belong to the requesting user")
	// ErrAlreadyCaptured guards against webhook/callback replays: a second
	// capture of the same order is rejected without any state change.
	ErrAlreadyCaptured = errors.New("payment already captured")
	ErrUnknownStatus   = errors.New("unknown order status")
)

// InvalidQuantityError indicates a line item has a quantity below one.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be at least 1 for product %s", e.ProductID)
}

// ProductNotFoundError indicates a requested product id is stale or deleted.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product not found: %s", e.ProductID)
}

// InsufficientStockError indicates the requested quantity exceeds the
// currently available stock. Title may be empty when raised from the
// storage layer; callers with the product loaded fill it in for the
// user-facing message.
type InsufficientStockError struct {
	ProductID string
	Title     string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	name := e.Title
	if name == "" {
		name = e.ProductID
	}
	if e.Requested > 0 {
		return fmt.Sprintf("insufficient stock for %s. Available: %d, Requested: %d",
			name, e.Available, e.Requested)
	}
	return fmt.Sprintf("insufficient stock for %s", name)
}

// UnsupportedProviderError indicates a payment provider that is accepted by
// the API surface but has no implementation behind it.
type UnsupportedProviderError struct {
	Provider Provider
}

func (e *UnsupportedProviderError) Error() string {
	return fmt.Sprintf("payment provider %s is not supported yet", e.Provider)
}

// InvalidTransitionError indicates a status change the state machine does
// not allow.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot transition order from %s to %s", e.From, e.To)
}

// CancelRejectedError indicates a cancellation attempt on an order that has
// already shipped or been delivered.
type CancelRejectedError struct {
	Status Status
}

func (e *CancelRejectedError) Error() string {
	return fmt.Sprintf("cannot cancel %s orders", e.Status)
}
