package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/maisonverre/storefront-api/internal/domain/user"
)

// Provider enumerates the supported payment providers.
type Provider string

const (
	ProviderRazorpay Provider = "razorpay"
	ProviderStripe   Provider = "stripe"
	ProviderCOD      Provider = "cod"
)

// Valid reports whether p is a known payment provider.
func (p Provider) Valid() bool {
	switch p {
	case ProviderRazorpay, ProviderStripe, ProviderCOD:
		return true
	}
	return false
}

// PaymentStatus enumerates the payment sub-record states.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentCaptured PaymentStatus = "captured"
	PaymentFailed   PaymentStatus = "failed"
)

// Payment is the payment sub-record of an order. Gateway identifiers stay
// empty for cash-on-delivery orders.
type Payment struct {
	Provider         Provider      `json:"provider"`
	GatewayOrderID   string        `json:"gatewayOrderId,omitempty"`
	GatewayPaymentID string        `json:"gatewayPaymentId,omitempty"`
	GatewaySignature string        `json:"gatewaySignature,omitempty"`
	Status           PaymentStatus `json:"status"`
}

// Item is a single order line. PriceAtPurchase is a snapshot of the product
// price at order-creation time, never a live reference and never a
// client-supplied value.
type Item struct {
	ProductID       string          `json:"productId"`
	Qty             int             `json:"qty"`
	PriceAtPurchase decimal.Decimal `json:"priceAtPurchase"`
}

// Order is a customer order. OrderID is the public human-readable
// identifier, immutable after creation. StatusHistory is append-only.
// TrackingID, once assigned, never changes. ShippingAddress is a copy of
// the user's address at order time so later address-book edits do not
// rewrite past orders.
type Order struct {
	ID                string
	OrderID           string
	UserID            string
	Items             []Item
	Subtotal          decimal.Decimal
	Shipping          decimal.Decimal
	Tax               decimal.Decimal
	Total             decimal.Decimal
	Status            Status
	StatusHistory     []StatusEntry
	EstimatedDelivery time.Time
	TrackingID        string
	Payment           Payment
	ShippingAddress   user.Address
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// ItemQty returns the quantity ordered for the given product, zero when the
// product is not part of the order.
func (o *Order) ItemQty(productID string) int {
	for _, it := range o.Items {
		if it.ProductID == productID {
			return it.Qty
		}
	}
	return 0
}

// TrackingInfo is the restricted public projection served by the
// unauthenticated tracking endpoint. It deliberately excludes the address
// (beyond the city), payment details, and user identity.
type TrackingInfo struct {
	OrderID           string
	TrackingID        string
	Status            Status
	StatusHistory     []StatusEntry
	EstimatedDelivery time.Time
	ItemCount         int
	ShippingCity      string
	CreatedAt         time.Time
}

// Repository defines persistence operations for orders. Stock bookkeeping
// that must be atomic with an order write (decrement on confirmed creation,
// capture, and restock on cancel) lives here so implementations can run it
// in one transaction with conditional updates.
type Repository interface {
	// Create persists a new order without touching stock. Used for orders
	// awaiting asynchronous payment.
	Create(ctx context.Context, o *Order) error
	// CreateWithStock persists a new order and decrements stock for every
	// line in the same transaction, using conditional updates that fail
	// with InsufficientStockError instead of driving stock negative.
	CreateWithStock(ctx context.Context, o *Order) error
	// FindByRef resolves an order by surrogate id, public order id, or
	// tracking id.
	FindByRef(ctx context.Context, ref string) (*Order, error)
	// ListByUser returns one page of the user's orders, newest first,
	// along with the total order count.
	ListByUser(ctx context.Context, userID string, offset, limit int) ([]Order, int, error)
	// CountByUser returns the user's total order count.
	CountByUser(ctx context.Context, userID string) (int, error)
	// SaveTransition persists o's status, tracking id, and appended
	// status-history entries.
	SaveTransition(ctx context.Context, o *Order) error
	// CancelAndRestock persists the cancelled state and, when restock is
	// set, increments stock back by the order's quantities in the same
	// transaction.
	CancelAndRestock(ctx context.Context, o *Order, restock bool) error
	// CaptureAndDecrement atomically records the captured payment,
	// confirms the order, and decrements stock for every line. Returns
	// ErrAlreadyCaptured when the payment was captured before.
	CaptureAndDecrement(ctx context.Context, o *Order) error
}
