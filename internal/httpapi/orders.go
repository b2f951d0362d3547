package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/maisonverre/storefront-api/internal/domain/order"
	"github.com/maisonverre/storefront-api/internal/domain/user"
)

// orderView is the JSON shape of an order as served to its owner.
type orderView struct {
	ID                string              `json:"id"`
	OrderID           string              `json:"orderId"`
	Items             []order.Item        `json:"items"`
	Subtotal          decimal.Decimal     `json:"subtotal"`
	Shipping          decimal.Decimal     `json:"shipping"`
	Tax               decimal.Decimal     `json:"tax"`
	Total             decimal.Decimal     `json:"total"`
	Status            order.Status        `json:"status"`
	StatusHistory     []order.StatusEntry `json:"statusHistory"`
	EstimatedDelivery time.Time           `json:"estimatedDelivery"`
	TrackingID        string              `json:"trackingId,omitempty"`
	Payment           order.Payment       `json:"payment"`
	ShippingAddress   user.Address        `json:"shippingAddress"`
	CreatedAt         time.Time           `json:"createdAt"`
}

func toOrderView(o *order.Order) orderView {
	return orderView{
		ID:                o.ID,
		OrderID:           o.OrderID,
		Items:             o.Items,
		Subtotal:          o.Subtotal,
		Shipping:          o.Shipping,
		Tax:               o.Tax,
		Total:             o.Total,
		Status:            o.Status,
		StatusHistory:     o.StatusHistory,
		EstimatedDelivery: o.EstimatedDelivery,
		TrackingID:        o.TrackingID,
		Payment:           o.Payment,
		ShippingAddress:   o.ShippingAddress,
		CreatedAt:         o.CreatedAt,
	}
}

type createOrderRequest struct {
	Items []struct {
		ProductID string `json:"productId"`
		Qty       int    `json:"qty"`
	} `json:"items"`
	AddressID string `json:"addressId"`
	Provider  string `json:"paymentProvider"`
}

type gatewayIntentView struct {
	GatewayOrderID string `json:"gatewayOrderId"`
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
}

type createOrderResponse struct {
	Order  orderView          `json:"order"`
	Intent *gatewayIntentView `json:"paymentIntent,omitempty"`
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	claims := SessionFromContext(r.Context())

	items := make([]order.ItemInput, len(req.Items))
	for i, it := range req.Items {
		items[i] = order.ItemInput{ProductID: it.ProductID, Qty: it.Qty}
	}

	res, err := h.orders.Create(r.Context(), order.CreateRequest{
		UserID:    claims.UserID,
		Items:     items,
		AddressID: req.AddressID,
		Provider:  order.Provider(req.Provider),
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	resp := createOrderResponse{Order: toOrderView(res.Order)}
	if res.Intent != nil {
		resp.Intent = &gatewayIntentView{
			GatewayOrderID: res.Intent.GatewayOrderID,
			Amount:         res.Intent.AmountPaise,
			Currency:       res.Intent.Currency,
		}
	}
	writeJSON(w, http.StatusCreated, resp)
}

type orderPageResponse struct {
	Orders     []orderView `json:"orders"`
	Page       int         `json:"page"`
	TotalPages int         `json:"totalPages"`
	HasNext    bool        `json:"hasNext"`
	HasPrev    bool        `json:"hasPrev"`
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	claims := SessionFromContext(r.Context())
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	result, err := h.orders.List(r.Context(), claims.UserID, page, limit)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	views := make([]orderView, len(result.Orders))
	for i := range result.Orders {
		views[i] = toOrderView(&result.Orders[i])
	}
	writeJSON(w, http.StatusOK, orderPageResponse{
		Orders:     views,
		Page:       result.Current,
		TotalPages: result.TotalPages,
		HasNext:    result.HasNext,
		HasPrev:    result.HasPrev,
	})
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	claims := SessionFromContext(r.Context())
	admin := claims.Role == string(user.RoleAdmin)

	o, err := h.orders.Get(r.Context(), claims.UserID, chi.URLParam(r, "orderID"), admin)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderView(o))
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reason string `json:"reason"`
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	claims := SessionFromContext(r.Context())

	o, err := h.orders.Cancel(r.Context(), claims.UserID, chi.URLParam(r, "orderID"), req.Reason)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderView(o))
}

func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status   string `json:"status"`
		Message  string `json:"message"`
		Location string `json:"location"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	o, err := h.orders.UpdateStatus(r.Context(), chi.URLParam(r, "orderID"),
		order.Status(req.Status), req.Message, req.Location)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderView(o))
}

// trackingView is the restricted public projection: no address beyond the
// city, no payment data, no user identity.
type trackingView struct {
	OrderID           string              `json:"orderId"`
	TrackingID        string              `json:"trackingId,omitempty"`
	Status            order.Status        `json:"status"`
	StatusHistory     []order.StatusEntry `json:"statusHistory"`
	EstimatedDelivery time.Time           `json:"estimatedDelivery"`
	ItemCount         int                 `json:"itemCount"`
	ShippingCity      string              `json:"shippingCity"`
	CreatedAt         time.Time           `json:"createdAt"`
}

func (h *Handler) trackOrder(w http.ResponseWriter, r *http.Request) {
	info, err := h.orders.Track(r.Context(), chi.URLParam(r, "trackingID"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trackingView{
		OrderID:           info.OrderID,
		TrackingID:        info.TrackingID,
		Status:            info.Status,
		StatusHistory:     info.StatusHistory,
		EstimatedDelivery: info.EstimatedDelivery,
		ItemCount:         info.ItemCount,
		ShippingCity:      info.ShippingCity,
		CreatedAt:         info.CreatedAt,
	})
}
