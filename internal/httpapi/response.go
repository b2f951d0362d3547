package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/maisonverre/storefront-api/internal/domain/coupon"
	"github.com/maisonverre/storefront-api/internal/domain/order"
	"github.com/maisonverre/storefront-api/internal/domain/payment"
	"github.com/maisonverre/storefront-api/internal/domain/product"
	"github.com/maisonverre/storefront-api/internal/domain/user"
)

// errorResponse is the error envelope for every non-2xx response.
type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Code: status, Message: message})
}

// writeDomainError maps domain errors onto HTTP statuses: 400 for bad input,
// 404 for unknown resources, 403 for ownership violations, 422 for business
// rule rejections, 500 for everything unexpected. Internal details never
// reach the client.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		qtyErr        *order.InvalidQuantityError
		productErr    *order.ProductNotFoundError
		stockErr      *order.InsufficientStockError
		providerErr   *order.UnsupportedProviderError
		transitionErr *order.InvalidTransitionError
		cancelErr     *order.CancelRejectedError
		minErr        *coupon.MinimumAmountError
	)

	switch {
	case errors.Is(err, order.ErrEmptyItems),
		errors.Is(err, order.ErrUnknownStatus),
		errors.Is(err, user.ErrAddressNotFound),
		errors.As(err, &qtyErr),
		errors.As(err, &providerErr):
		writeError(w, http.StatusBadRequest, err.Error())

	case errors.Is(err, payment.ErrInvalidSignature):
		writeError(w, http.StatusBadRequest, err.Error())

	case errors.Is(err, order.ErrNotFound),
		errors.Is(err, coupon.ErrNotFound),
		errors.Is(err, product.ErrNotFound),
		errors.Is(err, user.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())

	case errors.Is(err, order.ErrNotOwner):
		writeError(w, http.StatusForbidden, "you do not have access to this order")

	case errors.As(err, &productErr),
		errors.As(err, &stockErr),
		errors.As(err, &transitionErr),
		errors.As(err, &cancelErr),
		errors.As(err, &minErr),
		errors.Is(err, order.ErrAlreadyCaptured),
		errors.Is(err, coupon.ErrExpired),
		errors.Is(err, coupon.ErrUsageLimitReached),
		errors.Is(err, coupon.ErrUserLimitReached),
		errors.Is(err, coupon.ErrFirstTimeOnly),
		errors.Is(err, coupon.ErrNoEligibleItems):
		writeError(w, http.StatusUnprocessableEntity, err.Error())

	default:
		zctx.From(r.Context()).Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
