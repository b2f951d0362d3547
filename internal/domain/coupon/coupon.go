package coupon

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Type enumerates the supported coupon discount strategies.
type Type string

const (
	// TypePercentage discounts a percentage of the eligible cart value,
	// optionally capped at MaximumDiscountAmount.
	TypePercentage Type = "percentage"
	// TypeFixed discounts a fixed amount, never more than the eligible
	// cart value.
	TypeFixed Type = "fixed"
	// TypeFreeShipping waives the shipping fee. Monetary discount is zero;
	// the waiver itself is applied by the checkout, not the evaluator.
	TypeFreeShipping Type = "free_shipping"
)

// Rejection errors, one per failed eligibility check.
var (
	ErrNotFound          = errors.New("invalid coupon code")
	ErrExpired           = errors.New("coupon has expired or is not yet active")
	ErrUsageLimitReached = errors.New("coupon usage limit reached")
	ErrUserLimitReached  = errors.New("you have reached the usage limit for this coupon")
	ErrFirstTimeOnly     = errors.New("this coupon is only for first-time users")
	ErrNoEligibleItems   = errors.New("no items in your cart are eligible for this coupon")
)

// MinimumAmountError indicates the cart total is below the coupon's
// minimum order amount.
type MinimumAmountError struct {
	Minimum decimal.Decimal
}

func (e *MinimumAmountError) Error() string {
	return fmt.Sprintf("minimum order amount of ₹%s required", e.Minimum.String())
}

// Coupon is a discount rule. Codes are stored uppercase and matched
// case-insensitively. Empty allow-lists mean "applies to everything";
// ExcludedProducts always wins over allow-lists.
type Coupon struct {
	ID                    string
	Code                  string
	Description           string
	Type                  Type
	Value                 decimal.Decimal
	MinimumOrderAmount    decimal.Decimal
	MaximumDiscountAmount decimal.Decimal // zero = uncapped
	UsageLimit            int
	UsageCount            int
	UserUsageLimit        int
	ValidFrom             time.Time
	ValidUntil            time.Time
	IsActive              bool
	ApplicableProducts    []string
	ApplicableCategories  []string
	ApplicableBrands      []string
	ExcludedProducts      []string
	FirstTimeUser         bool
	CreatedAt             time.Time
}

// ValidateSpec checks the write-time invariants for creating or updating a
// coupon rule.
func (c *Coupon) ValidateSpec() error {
	code := strings.ToUpper(strings.TrimSpace(c.Code))
	if len(code) < 3 || len(code) > 20 {
		return errors.New("coupon code must be 3 to 20 characters")
	}
	c.Code = code

	if !c.ValidUntil.After(c.ValidFrom) {
		return errors.New("valid until date must be after valid from date")
	}
	if c.UsageLimit < 1 || c.UserUsageLimit < 1 {
		return errors.New("usage limits must be at least 1")
	}

	switch c.Type {
	case TypePercentage:
		one := decimal.NewFromInt(1)
		hundred := decimal.NewFromInt(100)
		if c.Value.LessThan(one) || c.Value.GreaterThan(hundred) {
			return errors.New("percentage value must be between 1 and 100")
		}
	case TypeFixed:
		if !c.Value.IsPositive() {
			return errors.New("fixed discount value must be positive")
		}
	case TypeFreeShipping:
		c.Value = decimal.Zero
	default:
		return errors.Errorf("unsupported coupon type: %q", c.Type)
	}
	return nil
}

// appliesTo reports whether a cart line's product passes the coupon's
// exclusion and allow-list filters.
func (c *Coupon) appliesTo(productID string, category, brand string) bool {
	if slices.Contains(c.ExcludedProducts, productID) {
		return false
	}
	if len(c.ApplicableProducts) > 0 && !slices.Contains(c.ApplicableProducts, productID) {
		return false
	}
	if len(c.ApplicableCategories) > 0 && !slices.Contains(c.ApplicableCategories, category) {
		return false
	}
	if len(c.ApplicableBrands) > 0 && !slices.Contains(c.ApplicableBrands, brand) {
		return false
	}
	return true
}

// Usage is one redemption record: which user spent which coupon on which
// order, and for how much. Enforces per-user limits and audits discount
// totals.
type Usage struct {
	CouponID       string
	UserID         string
	OrderID        string
	DiscountAmount decimal.Decimal
	UsedAt         time.Time
}

// ListFilter narrows administrative coupon listings.
type ListFilter struct {
	IsActive *bool
	Type     Type
	Offset   int
	Limit    int
}

// Repository defines persistence operations for coupons and their usage
// records.
type Repository interface {
	// FindByCode looks up a coupon by code, case-insensitively. Returns
	// ErrNotFound when no coupon exists; the active flag is the
	// evaluator's concern.
	FindByCode(ctx context.Context, code string) (*Coupon, error)
	Create(ctx context.Context, c *Coupon) error
	List(ctx context.Context, f ListFilter) ([]Coupon, int, error)
	// CountUsageByUser returns how many times the user has redeemed the
	// coupon.
	CountUsageByUser(ctx context.Context, couponID, userID string) (int, error)
	// RecordUsage inserts the usage row and increments the coupon's global
	// usage count in one transaction, guarded so the count never exceeds
	// the usage limit. Returns ErrUsageLimitReached when the guard misses.
	RecordUsage(ctx context.Context, u *Usage) error
}
