package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/maisonverre/storefront-api/internal/domain/product"
)

var hundred = decimal.NewFromInt(100)

// CartItem is one cart line as submitted for coupon evaluation. Price here
// is only used to weigh eligible lines; order creation re-snapshots prices
// from the catalog regardless.
type CartItem struct {
	ProductID string
	Qty       int
	Price     decimal.Decimal
}

// Discount describes a successful validation: what the coupon is worth
// against this cart. FreeShipping signals a shipping waiver the checkout
// applies itself.
type Discount struct {
	CouponID        string
	Code            string
	Description     string
	Type            Type
	Amount          decimal.Decimal
	FreeShipping    bool
	ApplicableItems int
	ApplicableTotal decimal.Decimal
}

// OrderCounter reports how many orders a user has placed, for
// first-time-user coupon restrictions.
type OrderCounter interface {
	CountByUser(ctx context.Context, userID string) (int, error)
}

// Evaluator validates coupon codes against carts and records redemptions.
// Validate is pure: it never consumes usage, so repeated calls without an
// intervening Apply return identical results.
type Evaluator struct {
	coupons  Repository
	products product.Repository
	orders   OrderCounter
	now      func() time.Time
}

// NewEvaluator creates a coupon Evaluator.
func NewEvaluator(coupons Repository, products product.Repository, orders OrderCounter) *Evaluator {
	return &Evaluator{
		coupons:  coupons,
		products: products,
		orders:   orders,
		now:      time.Now,
	}
}

// Validate runs the eligibility checks in order, short-circuiting on the
// first failure, and computes the discount against the eligible portion of
// the cart.
func (e *Evaluator) Validate(ctx context.Context, code string, items []CartItem, cartTotal decimal.Decimal, userID string) (*Discount, error) {
	c, err := e.coupons.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if !c.IsActive {
		return nil, ErrNotFound
	}

	now := e.now()
	if now.Before(c.ValidFrom) || now.After(c.ValidUntil) {
		return nil, ErrExpired
	}

	if c.UsageCount >= c.UsageLimit {
		return nil, ErrUsageLimitReached
	}

	userUsage, err := e.coupons.CountUsageByUser(ctx, c.ID, userID)
	if err != nil {
		return nil, errors.Wrap(err, "count user redemptions")
	}
	if userUsage >= c.UserUsageLimit {
		return nil, ErrUserLimitReached
	}

	if cartTotal.LessThan(c.MinimumOrderAmount) {
		return nil, &MinimumAmountError{Minimum: c.MinimumOrderAmount}
	}

	if c.FirstTimeUser {
		placed, err := e.orders.CountByUser(ctx, userID)
		if err != nil {
			return nil, errors.Wrap(err, "count user orders")
		}
		if placed > 0 {
			return nil, ErrFirstTimeOnly
		}
	}

	applicableItems, applicableTotal, err := e.filterApplicable(ctx, c, items)
	if err != nil {
		return nil, err
	}
	if applicableTotal.IsZero() {
		return nil, ErrNoEligibleItems
	}

	d := &Discount{
		CouponID:        c.ID,
		Code:            c.Code,
		Description:     c.Description,
		Type:            c.Type,
		Amount:          decimal.Zero,
		ApplicableItems: applicableItems,
		ApplicableTotal: applicableTotal,
	}

	switch c.Type {
	case TypePercentage:
		amount := applicableTotal.Mul(c.Value).Div(hundred)
		if c.MaximumDiscountAmount.IsPositive() && amount.GreaterThan(c.MaximumDiscountAmount) {
			amount = c.MaximumDiscountAmount
		}
		d.Amount = amount.Round(2)
	case TypeFixed:
		d.Amount = decimal.Min(c.Value, applicableTotal).Round(2)
	case TypeFreeShipping:
		d.FreeShipping = true
	default:
		return nil, errors.Errorf("unsupported coupon type: %q", c.Type)
	}

	return d, nil
}

// filterApplicable sums the cart lines that pass the coupon's product,
// category, and brand filters. Lines whose product no longer exists are
// skipped rather than failing the whole validation.
func (e *Evaluator) filterApplicable(ctx context.Context, c *Coupon, items []CartItem) (int, decimal.Decimal, error) {
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ProductID
	}
	fetched, err := e.products.GetByIDs(ctx, ids)
	if err != nil {
		return 0, decimal.Zero, errors.Wrap(err, "get cart products")
	}
	byID := make(map[string]product.Product, len(fetched))
	for _, p := range fetched {
		byID[p.ID] = p
	}

	count := 0
	total := decimal.Zero
	for _, it := range items {
		p, ok := byID[it.ProductID]
		if !ok {
			continue
		}
		if !c.appliesTo(p.ID, string(p.Family), p.Brand) {
			continue
		}
		count++
		total = total.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Qty))))
	}
	return count, total, nil
}

// Apply spends one redemption: it records the usage row and bumps the
// global usage count atomically. Meant to be called only after the order is
// confirmed, keeping "checking eligibility" separate from "spending" it.
func (e *Evaluator) Apply(ctx context.Context, couponID, userID, orderID string, discountAmount decimal.Decimal) error {
	if discountAmount.IsNegative() {
		return errors.New("discount amount cannot be negative")
	}
	u := &Usage{
		CouponID:       couponID,
		UserID:         userID,
		OrderID:        orderID,
		DiscountAmount: discountAmount,
		UsedAt:         e.now(),
	}
	if err := e.coupons.RecordUsage(ctx, u); err != nil {
		return errors.Wrap(err, "record coupon usage")
	}
	return nil
}
