// Package httpapi exposes the storefront over REST: orders, coupons,
// payment verification, tracking, and the administrative surface.
package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/maisonverre/storefront-api/internal/domain/coupon"
	"github.com/maisonverre/storefront-api/internal/domain/order"
	"github.com/maisonverre/storefront-api/internal/domain/payment"
	"github.com/maisonverre/storefront-api/internal/domain/product"
	"github.com/maisonverre/storefront-api/pkg/health"
)

// Alerter sends operator alerts. Satisfied by notify.Queue.
type Alerter interface {
	LowStock(ctx context.Context, productID, title string, stock int) error
}

// Handler holds the services behind the REST API.
type Handler struct {
	orders   *order.Service
	coupons  *coupon.Evaluator
	rules    coupon.Repository
	products product.Repository
	verifier *payment.Verifier
	alerts   Alerter
}

// NewHandler creates the API handler.
func NewHandler(
	orders *order.Service,
	coupons *coupon.Evaluator,
	rules coupon.Repository,
	products product.Repository,
	verifier *payment.Verifier,
	alerts Alerter,
) *Handler {
	return &Handler{
		orders:   orders,
		coupons:  coupons,
		rules:    rules,
		products: products,
		verifier: verifier,
		alerts:   alerts,
	}
}

// NewRouter mounts the API routes. Authentication wraps everything under
// /api except tracking and payment verification, which gateways and
// logged-out customers hit directly.
func NewRouter(h *Handler, sessions *Sessions, hc *health.Health) http.Handler {
	r := chi.NewRouter()

	r.Get("/livez", hc.LiveEndpoint)
	r.Get("/readyz", hc.ReadyEndpoint)

	r.Route("/api", func(r chi.Router) {
		r.Get("/orders/track/{trackingID}", h.trackOrder)
		r.Post("/payments/razorpay/verify", h.verifyPayment)

		r.Group(func(r chi.Router) {
			r.Use(sessions.Authenticate)

			r.Post("/orders", h.createOrder)
			r.Get("/orders", h.listOrders)
			r.Get("/orders/{orderID}", h.getOrder)
			r.Patch("/orders/{orderID}/cancel", h.cancelOrder)

			r.Post("/coupons/validate", h.validateCoupon)
			r.Post("/coupons/apply", h.applyCoupon)

			r.Group(func(r chi.Router) {
				r.Use(RequireAdmin)

				r.Patch("/orders/{orderID}/status", h.updateOrderStatus)
				r.Post("/admin/coupons", h.createCoupon)
				r.Get("/admin/coupons", h.listCoupons)
				r.Get("/admin/inventory/report", h.inventoryReport)
				r.Patch("/admin/inventory/{productID}/stock", h.adjustStock)
			})
		})
	})

	return r
}
