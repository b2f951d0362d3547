package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/maisonverre/storefront-api/internal/domain/product"
	"github.com/maisonverre/storefront-api/internal/domain/user"
)

const deliveryEstimate = 7 * 24 * time.Hour

// Gateway creates payment intents with the external payment provider.
// Amounts are in paise (minor currency units).
type Gateway interface {
	CreateOrder(ctx context.Context, amountPaise int64, receipt string, notes map[string]string) (string, error)
}

// Notifier dispatches best-effort customer notifications. Failures are the
// notifier's problem: the pipeline logs them and moves on.
type Notifier interface {
	OrderConfirmed(ctx context.Context, o *Order, email, name string) error
}

// ItemInput is one requested order line: product and quantity only. Prices
// always come from the catalog, server-side.
type ItemInput struct {
	ProductID string
	Qty       int
}

// CreateRequest holds the input for creating an order.
type CreateRequest struct {
	UserID    string
	Items     []ItemInput
	AddressID string
	Provider  Provider
}

// GatewayIntent is returned to the client for async payment providers so it
// can complete the payment against the gateway.
type GatewayIntent struct {
	GatewayOrderID string
	AmountPaise    int64
	Currency       string
}

// CreateResult holds the outcome of order creation.
type CreateResult struct {
	Order  *Order
	Intent *GatewayIntent
}

// Service implements the order pipeline: validation, price snapshotting,
// totals, payment branching, stock bookkeeping, and lifecycle transitions.
type Service struct {
	orders   Repository
	products product.Repository
	users    user.Repository
	gateway  Gateway
	notifier Notifier
	now      func() time.Time
}

// NewService creates an order Service with the required dependencies.
func NewService(
	orders Repository,
	products product.Repository,
	users user.Repository,
	gateway Gateway,
	notifier Notifier,
) *Service {
	return &Service{
		orders:   orders,
		products: products,
		users:    users,
		gateway:  gateway,
		notifier: notifier,
		now:      time.Now,
	}
}

// Create validates the cart against the catalog, snapshots prices, derives
// totals, and persists the order. COD orders are confirmed immediately with
// stock decremented in the same transaction; razorpay orders are persisted
// pending with a gateway intent attached and stock untouched until payment
// capture.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}
	if !req.Provider.Valid() {
		return nil, &UnsupportedProviderError{Provider: req.Provider}
	}

	ids := make([]string, len(req.Items))
	for i, item := range req.Items {
		if item.Qty < 1 {
			return nil, &InvalidQuantityError{ProductID: item.ProductID}
		}
		ids[i] = item.ProductID
	}

	addr, err := s.users.GetAddress(ctx, req.UserID, req.AddressID)
	if err != nil {
		return nil, errors.Wrap(err, "resolve shipping address")
	}

	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}
	productMap := make(map[string]product.Product, len(fetched))
	for _, p := range fetched {
		productMap[p.ID] = p
	}

	// Build line items with snapshotted prices and pre-check stock. The
	// authoritative stock guard is the conditional update inside the order
	// transaction; this check just fails fast with the product title.
	items := make([]Item, len(req.Items))
	subtotal := decimal.Zero
	for i, in := range req.Items {
		p, ok := productMap[in.ProductID]
		if !ok {
			return nil, &ProductNotFoundError{ProductID: in.ProductID}
		}
		if in.Qty > p.Stock {
			return nil, &InsufficientStockError{
				ProductID: p.ID,
				Title:     p.Title,
				Available: p.Stock,
				Requested: in.Qty,
			}
		}
		items[i] = Item{ProductID: p.ID, Qty: in.Qty, PriceAtPurchase: p.Price}
		subtotal = subtotal.Add(p.Price.Mul(decimal.NewFromInt(int64(in.Qty))))
	}

	totals := ComputeTotals(subtotal, req.Provider)
	now := s.now()

	o := &Order{
		ID:       uuid.New().String(),
		OrderID:  NewOrderID(),
		UserID:   req.UserID,
		Items:    items,
		Subtotal: totals.Subtotal,
		Shipping: totals.Shipping,
		Tax:      totals.Tax,
		Total:    totals.Total,
		Status:   StatusPending,
		StatusHistory: []StatusEntry{{
			Status:    StatusPending,
			Timestamp: now,
			Message:   StatusPending.Message(),
		}},
		EstimatedDelivery: now.Add(deliveryEstimate),
		Payment:           Payment{Provider: req.Provider, Status: PaymentPending},
		ShippingAddress:   *addr,
		CreatedAt:         now,
	}

	switch req.Provider {
	case ProviderCOD:
		return s.createCOD(ctx, o, productMap)
	case ProviderRazorpay:
		return s.createRazorpay(ctx, o)
	default:
		return nil, &UnsupportedProviderError{Provider: req.Provider}
	}
}

// createCOD confirms the order immediately: payment is captured on
// delivery, stock is decremented in the same transaction as the insert, and
// a confirmation email is dispatched fire-and-forget.
func (s *Service) createCOD(ctx context.Context, o *Order, products map[string]product.Product) (*CreateResult, error) {
	o.Status = StatusConfirmed
	o.Payment.Status = PaymentCaptured
	o.StatusHistory = append(o.StatusHistory, StatusEntry{
		Status:    StatusConfirmed,
		Timestamp: s.now(),
		Message:   StatusConfirmed.Message(),
	})

	if err := s.orders.CreateWithStock(ctx, o); err != nil {
		var stockErr *InsufficientStockError
		if errors.As(err, &stockErr) {
			if p, ok := products[stockErr.ProductID]; ok {
				stockErr.Title = p.Title
			}
			return nil, stockErr
		}
		return nil, errors.Wrap(err, "create order")
	}

	s.notifyConfirmed(ctx, o)

	return &CreateResult{Order: o}, nil
}

// createRazorpay registers a payment intent with the gateway and persists
// the order pending. Stock is not reserved here: it is decremented only
// at payment capture. A gateway failure fails the whole request, so no
// order exists without a matching intent.
func (s *Service) createRazorpay(ctx context.Context, o *Order) (*CreateResult, error) {
	amountPaise := o.Total.Mul(decimal.NewFromInt(100)).IntPart()

	gatewayOrderID, err := s.gateway.CreateOrder(ctx, amountPaise, uuid.New().String(), map[string]string{
		"orderId": o.ID,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create gateway order")
	}
	o.Payment.GatewayOrderID = gatewayOrderID

	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	return &CreateResult{
		Order: o,
		Intent: &GatewayIntent{
			GatewayOrderID: gatewayOrderID,
			AmountPaise:    amountPaise,
			Currency:       "INR",
		},
	}, nil
}

// notifyConfirmed enqueues the order confirmation email without blocking or
// failing the request. Enqueue errors are logged only.
func (s *Service) notifyConfirmed(ctx context.Context, o *Order) {
	if s.notifier == nil {
		return
	}
	u, err := s.users.GetByID(ctx, o.UserID)
	if err != nil {
		zctx.From(ctx).Warn("skip order confirmation email",
			zap.String("order_id", o.OrderID), zap.Error(err))
		return
	}
	if err := s.notifier.OrderConfirmed(ctx, o, u.Email, u.Name); err != nil {
		zctx.From(ctx).Warn("enqueue order confirmation email failed",
			zap.String("order_id", o.OrderID), zap.Error(err))
	}
}

// Get returns one order resolved by surrogate id, public order id, or
// tracking id, scoped to the owner unless admin is set.
func (s *Service) Get(ctx context.Context, userID, ref string, admin bool) (*Order, error) {
	o, err := s.orders.FindByRef(ctx, ref)
	if err != nil {
		return nil, err
	}
	if !admin && o.UserID != userID {
		return nil, ErrNotOwner
	}
	return o, nil
}

// Page is one page of a user's order history.
type Page struct {
	Orders     []Order
	Current    int
	TotalPages int
	HasNext    bool
	HasPrev    bool
}

// List returns one page of the caller's orders, newest first.
func (s *Service) List(ctx context.Context, userID string, page, limit int) (*Page, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}

	orders, total, err := s.orders.ListByUser(ctx, userID, (page-1)*limit, limit)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}

	totalPages := (total + limit - 1) / limit
	return &Page{
		Orders:     orders,
		Current:    page,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}, nil
}

// Cancel cancels an order that has not yet shipped, restoring exactly the
// quantities that were decremented at confirmation or capture. Orders whose
// stock was never decremented (payment still pending) skip the restock.
func (s *Service) Cancel(ctx context.Context, userID, ref, reason string) (*Order, error) {
	o, err := s.orders.FindByRef(ctx, ref)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, ErrNotOwner
	}
	if !o.Status.Cancellable() {
		return nil, &CancelRejectedError{Status: o.Status}
	}

	// Stock was only taken for captured payments; a pending razorpay order
	// never decremented anything.
	restock := o.Payment.Status == PaymentCaptured

	message := reason
	if message == "" {
		message = "Order cancelled by customer"
	}
	o.Status = StatusCancelled
	o.StatusHistory = append(o.StatusHistory, StatusEntry{
		Status:    StatusCancelled,
		Timestamp: s.now(),
		Message:   message,
	})

	if err := s.orders.CancelAndRestock(ctx, o, restock); err != nil {
		return nil, errors.Wrap(err, "cancel order")
	}
	return o, nil
}

// UpdateStatus applies an administrative status transition, appending a
// status-history entry with the custom message when provided, else the
// canned per-status message. The first transition to shipped assigns the
// tracking id.
func (s *Service) UpdateStatus(ctx context.Context, ref string, next Status, message, location string) (*Order, error) {
	if !next.Valid() {
		return nil, ErrUnknownStatus
	}

	o, err := s.orders.FindByRef(ctx, ref)
	if err != nil {
		return nil, err
	}
	if !o.Status.CanTransitionTo(next) {
		return nil, &InvalidTransitionError{From: o.Status, To: next}
	}

	if message == "" {
		message = next.Message()
	}
	o.Status = next
	o.StatusHistory = append(o.StatusHistory, StatusEntry{
		Status:    next,
		Timestamp: s.now(),
		Message:   message,
		Location:  location,
	})
	if next == StatusShipped && o.TrackingID == "" {
		o.TrackingID = NewTrackingID()
	}

	if err := s.orders.SaveTransition(ctx, o); err != nil {
		return nil, errors.Wrap(err, "save status transition")
	}
	return o, nil
}

// Track resolves an order by public order id or tracking id and returns
// only the privacy-safe projection.
func (s *Service) Track(ctx context.Context, publicID string) (*TrackingInfo, error) {
	o, err := s.orders.FindByRef(ctx, publicID)
	if err != nil {
		return nil, err
	}
	return &TrackingInfo{
		OrderID:           o.OrderID,
		TrackingID:        o.TrackingID,
		Status:            o.Status,
		StatusHistory:     o.StatusHistory,
		EstimatedDelivery: o.EstimatedDelivery,
		ItemCount:         len(o.Items),
		ShippingCity:      o.ShippingAddress.City,
		CreatedAt:         o.CreatedAt,
	}, nil
}
