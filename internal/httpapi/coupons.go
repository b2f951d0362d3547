package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/maisonverre/storefront-api/internal/domain/coupon"
)

type validateCouponRequest struct {
	Code      string `json:"code"`
	CartItems []struct {
		ProductID string          `json:"productId"`
		Qty       int             `json:"qty"`
		Price     decimal.Decimal `json:"price"`
	} `json:"cartItems"`
	CartTotal decimal.Decimal `json:"cartTotal"`
}

type discountView struct {
	CouponID        string          `json:"couponId"`
	Code            string          `json:"code"`
	Description     string          `json:"description"`
	Type            coupon.Type     `json:"type"`
	Amount          decimal.Decimal `json:"discountAmount"`
	FreeShipping    bool            `json:"freeShipping"`
	ApplicableItems int             `json:"applicableItems"`
	ApplicableTotal decimal.Decimal `json:"applicableTotal"`
}

func (h *Handler) validateCoupon(w http.ResponseWriter, r *http.Request) {
	var req validateCouponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Code == "" {
		writeError(w, http.StatusBadRequest, "coupon code required")
		return
	}
	claims := SessionFromContext(r.Context())

	items := make([]coupon.CartItem, len(req.CartItems))
	for i, it := range req.CartItems {
		items[i] = coupon.CartItem{ProductID: it.ProductID, Qty: it.Qty, Price: it.Price}
	}

	d, err := h.coupons.Validate(r.Context(), req.Code, items, req.CartTotal, claims.UserID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, discountView{
		CouponID:        d.CouponID,
		Code:            d.Code,
		Description:     d.Description,
		Type:            d.Type,
		Amount:          d.Amount,
		FreeShipping:    d.FreeShipping,
		ApplicableItems: d.ApplicableItems,
		ApplicableTotal: d.ApplicableTotal,
	})
}

func (h *Handler) applyCoupon(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CouponID       string          `json:"couponId"`
		OrderID        string          `json:"orderId"`
		DiscountAmount decimal.Decimal `json:"discountAmount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CouponID == "" || req.OrderID == "" {
		writeError(w, http.StatusBadRequest, "couponId and orderId required")
		return
	}
	claims := SessionFromContext(r.Context())

	if err := h.coupons.Apply(r.Context(), req.CouponID, claims.UserID, req.OrderID, req.DiscountAmount); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "applied"})
}

// couponView is the administrative JSON shape of a coupon rule.
type couponView struct {
	ID                    string          `json:"id"`
	Code                  string          `json:"code"`
	Description           string          `json:"description"`
	Type                  coupon.Type     `json:"type"`
	Value                 decimal.Decimal `json:"value"`
	MinimumOrderAmount    decimal.Decimal `json:"minimumOrderAmount"`
	MaximumDiscountAmount decimal.Decimal `json:"maximumDiscountAmount"`
	UsageLimit            int             `json:"usageLimit"`
	UsageCount            int             `json:"usageCount"`
	UserUsageLimit        int             `json:"userUsageLimit"`
	ValidFrom             time.Time       `json:"validFrom"`
	ValidUntil            time.Time       `json:"validUntil"`
	IsActive              bool            `json:"isActive"`
	ApplicableProducts    []string        `json:"applicableProducts"`
	ApplicableCategories  []string        `json:"applicableCategories"`
	ApplicableBrands      []string        `json:"applicableBrands"`
	ExcludedProducts      []string        `json:"excludedProducts"`
	FirstTimeUser         bool            `json:"firstTimeUser"`
	CreatedAt             time.Time       `json:"createdAt"`
}

func toCouponView(c *coupon.Coupon) couponView {
	return couponView{
		ID:                    c.ID,
		Code:                  c.Code,
		Description:           c.Description,
		Type:                  c.Type,
		Value:                 c.Value,
		MinimumOrderAmount:    c.MinimumOrderAmount,
		MaximumDiscountAmount: c.MaximumDiscountAmount,
		UsageLimit:            c.UsageLimit,
		UsageCount:            c.UsageCount,
		UserUsageLimit:        c.UserUsageLimit,
		ValidFrom:             c.ValidFrom,
		ValidUntil:            c.ValidUntil,
		IsActive:              c.IsActive,
		ApplicableProducts:    c.ApplicableProducts,
		ApplicableCategories:  c.ApplicableCategories,
		ApplicableBrands:      c.ApplicableBrands,
		ExcludedProducts:      c.ExcludedProducts,
		FirstTimeUser:         c.FirstTimeUser,
		CreatedAt:             c.CreatedAt,
	}
}

type createCouponRequest struct {
	Code                  string          `json:"code"`
	Description           string          `json:"description"`
	Type                  coupon.Type     `json:"type"`
	Value                 decimal.Decimal `json:"value"`
	MinimumOrderAmount    decimal.Decimal `json:"minimumOrderAmount"`
	MaximumDiscountAmount decimal.Decimal `json:"maximumDiscountAmount"`
	UsageLimit            int             `json:"usageLimit"`
	UserUsageLimit        int             `json:"userUsageLimit"`
	ValidFrom             time.Time       `json:"validFrom"`
	ValidUntil            time.Time       `json:"validUntil"`
	IsActive              *bool           `json:"isActive"`
	ApplicableProducts    []string        `json:"applicableProducts"`
	ApplicableCategories  []string        `json:"applicableCategories"`
	ApplicableBrands      []string        `json:"applicableBrands"`
	ExcludedProducts      []string        `json:"excludedProducts"`
	FirstTimeUser         bool            `json:"firstTimeUser"`
}

func (h *Handler) createCoupon(w http.ResponseWriter, r *http.Request) {
	var req createCouponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	c := &coupon.Coupon{
		Code:                  req.Code,
		Description:           req.Description,
		Type:                  req.Type,
		Value:                 req.Value,
		MinimumOrderAmount:    req.MinimumOrderAmount,
		MaximumDiscountAmount: req.MaximumDiscountAmount,
		UsageLimit:            req.UsageLimit,
		UserUsageLimit:        req.UserUsageLimit,
		ValidFrom:             req.ValidFrom,
		ValidUntil:            req.ValidUntil,
		IsActive:              true,
		ApplicableProducts:    req.ApplicableProducts,
		ApplicableCategories:  req.ApplicableCategories,
		ApplicableBrands:      req.ApplicableBrands,
		ExcludedProducts:      req.ExcludedProducts,
		FirstTimeUser:         req.FirstTimeUser,
	}
	if req.IsActive != nil {
		c.IsActive = *req.IsActive
	}
	if c.UsageLimit == 0 {
		c.UsageLimit = 1
	}
	if c.UserUsageLimit == 0 {
		c.UserUsageLimit = 1
	}

	if err := c.ValidateSpec(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.rules.Create(r.Context(), c); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCouponView(c))
}

func (h *Handler) listCoupons(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit < 1 || limit > 100 {
		limit = 20
	}

	filter := coupon.ListFilter{
		Type:   coupon.Type(q.Get("type")),
		Offset: (page - 1) * limit,
		Limit:  limit,
	}
	if v := q.Get("isActive"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "isActive must be a boolean")
			return
		}
		filter.IsActive = &active
	}

	coupons, total, err := h.rules.List(r.Context(), filter)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	views := make([]couponView, len(coupons))
	for i := range coupons {
		views[i] = toCouponView(&coupons[i])
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"coupons":    views,
		"page":       page,
		"totalPages": (total + limit - 1) / limit,
		"total":      total,
	})
}
