package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/maisonverre/storefront-api/internal/domain/coupon"
)

const (
	couponColumns = `id, code, description, type, value, minimum_order_amount,
		maximum_discount_amount, usage_limit, usage_count, user_usage_limit,
		valid_from, valid_until, is_active, applicable_products,
		applicable_categories, applicable_brands, excluded_products,
		first_time_user, created_at`

	findCouponByCodeSQL = `SELECT ` + couponColumns + `
		FROM coupons WHERE UPPER(code) = UPPER($1)`

	insertCouponSQL = `INSERT INTO coupons (` + couponColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`

	listCouponsSQL = `SELECT ` + couponColumns + `
		FROM coupons
		WHERE ($1::boolean IS NULL OR is_active = $1)
		  AND ($2::text = '' OR type = $2)
		ORDER BY created_at DESC
		OFFSET $3 LIMIT $4`

	countCouponsSQL = `SELECT count(*) FROM coupons
		WHERE ($1::boolean IS NULL OR is_active = $1)
		  AND ($2::text = '' OR type = $2)`

	countUsageByUserSQL = `SELECT count(*) FROM coupon_usages
		WHERE coupon_id = $1 AND user_id = $2`

	// Guarded so the counter can never overshoot the limit under
	// concurrent redemptions.
	incrementUsageCountSQL = `UPDATE coupons SET usage_count = usage_count + 1
		WHERE id = $1 AND usage_count < usage_limit`

	insertUsageSQL = `INSERT INTO coupon_usages (id, coupon_id, user_id, order_id, discount_amount, used_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// FindByCode looks up a coupon by code, case-insensitively. The active flag
// is returned as stored; eligibility checks belong to the evaluator.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, findCouponByCodeSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}
	return &c, nil
}

// Create inserts a new coupon rule. The caller is expected to have run
// ValidateSpec first.
func (r *CouponRepository) Create(ctx context.Context, c *coupon.Coupon) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}

	var maxDiscount *decimal.Decimal
	if c.MaximumDiscountAmount.IsPositive() {
		maxDiscount = &c.MaximumDiscountAmount
	}

	_, err := r.pool.Exec(ctx, insertCouponSQL,
		c.ID, c.Code, c.Description, string(c.Type), c.Value, c.MinimumOrderAmount,
		maxDiscount, c.UsageLimit, c.UsageCount, c.UserUsageLimit,
		c.ValidFrom, c.ValidUntil, c.IsActive,
		c.ApplicableProducts, c.ApplicableCategories, c.ApplicableBrands, c.ExcludedProducts,
		c.FirstTimeUser, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating coupon %q: %w", c.Code, err)
	}
	return nil
}

// List returns coupons matching the filter, newest first, plus the total
// count before pagination.
func (r *CouponRepository) List(ctx context.Context, f coupon.ListFilter) ([]coupon.Coupon, int, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.pool.Query(ctx, listCouponsSQL, f.IsActive, string(f.Type), f.Offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("listing coupons: %w", err)
	}
	coupons, err := pgx.CollectRows(rows, scanCoupon)
	if err != nil {
		return nil, 0, fmt.Errorf("listing coupons: %w", err)
	}

	var total int
	if err := r.pool.QueryRow(ctx, countCouponsSQL, f.IsActive, string(f.Type)).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting coupons: %w", err)
	}
	return coupons, total, nil
}

// CountUsageByUser returns how many times the user has redeemed the coupon.
func (r *CouponRepository) CountUsageByUser(ctx context.Context, couponID, userID string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, countUsageByUserSQL, couponID, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting usage of coupon %q by user %q: %w", couponID, userID, err)
	}
	return n, nil
}

// RecordUsage increments the coupon's usage counter and inserts the usage
// row in one transaction. The increment is conditional on the counter being
// below the limit; when the guard misses the whole transaction rolls back
// with coupon.ErrUsageLimitReached.
func (r *CouponRepository) RecordUsage(ctx context.Context, u *coupon.Usage) error {
	if u.UsedAt.IsZero() {
		u.UsedAt = time.Now()
	}

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, incrementUsageCountSQL, u.CouponID)
		if err != nil {
			return fmt.Errorf("incrementing usage count for coupon %q: %w", u.CouponID, err)
		}
		if tag.RowsAffected() == 0 {
			return coupon.ErrUsageLimitReached
		}

		_, err = tx.Exec(ctx, insertUsageSQL,
			uuid.NewString(), u.CouponID, u.UserID, u.OrderID, u.DiscountAmount, u.UsedAt)
		if err != nil {
			return fmt.Errorf("recording usage of coupon %q: %w", u.CouponID, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	return nil
}

func scanCoupon(row pgx.CollectableRow) (coupon.Coupon, error) {
	var (
		c           coupon.Coupon
		typ         string
		maxDiscount *decimal.Decimal
	)
	err := row.Scan(
		&c.ID, &c.Code, &c.Description, &typ, &c.Value, &c.MinimumOrderAmount,
		&maxDiscount, &c.UsageLimit, &c.UsageCount, &c.UserUsageLimit,
		&c.ValidFrom, &c.ValidUntil, &c.IsActive,
		&c.ApplicableProducts, &c.ApplicableCategories, &c.ApplicableBrands, &c.ExcludedProducts,
		&c.FirstTimeUser, &c.CreatedAt,
	)
	c.Type = coupon.Type(typ)
	if maxDiscount != nil {
		c.MaximumDiscountAmount = *maxDiscount
	}
	return c, err
}
