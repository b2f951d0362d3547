package order

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maisonverre/storefront-api/internal/domain/product"
	"github.com/maisonverre/storefront-api/internal/domain/user"
)

// --- Mock implementations ---

type mockOrderRepo struct {
	created          *Order
	createdWithStock *Order
	saved            *Order
	cancelled        *Order
	cancelRestock    bool
	captured         *Order

	byRef      map[string]*Order
	listOrders []Order
	listTotal  int

	createErr error
	stockErr  error
	captErr   error
}

func (m *mockOrderRepo) Create(_ context.Context, o *Order) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.created = o
	return nil
}

func (m *mockOrderRepo) CreateWithStock(_ context.Context, o *Order) error {
	if m.stockErr != nil {
		return m.stockErr
	}
	m.createdWithStock = o
	return nil
}

func (m *mockOrderRepo) FindByRef(_ context.Context, ref string) (*Order, error) {
	o, ok := m.byRef[ref]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *mockOrderRepo) ListByUser(_ context.Context, _ string, _, _ int) ([]Order, int, error) {
	return m.listOrders, m.listTotal, nil
}

func (m *mockOrderRepo) CountByUser(_ context.Context, _ string) (int, error) {
	return m.listTotal, nil
}

func (m *mockOrderRepo) SaveTransition(_ context.Context, o *Order) error {
	m.saved = o
	return nil
}

func (m *mockOrderRepo) CancelAndRestock(_ context.Context, o *Order, restock bool) error {
	m.cancelled = o
	m.cancelRestock = restock
	return nil
}

func (m *mockOrderRepo) CaptureAndDecrement(_ context.Context, o *Order) error {
	if m.captErr != nil {
		return m.captErr
	}
	m.captured = o
	return nil
}

type mockProductRepo struct {
	byID map[string]product.Product
}

func (m *mockProductRepo) List(_ context.Context) ([]product.Product, error) { return nil, nil }

func (m *mockProductRepo) GetByID(_ context.Context, id string) (*product.Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return &p, nil
}

func (m *mockProductRepo) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	var found []product.Product
	for _, id := range ids {
		if p, ok := m.byID[id]; ok {
			found = append(found, p)
		}
	}
	return found, nil
}

func (m *mockProductRepo) UpdateStock(_ context.Context, _ string, _ product.StockOp, _ int) (*product.StockChange, error) {
	return nil, nil
}

type mockUserRepo struct {
	users     map[string]*user.User
	addresses map[string]*user.Address
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*user.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	return u, nil
}

func (m *mockUserRepo) GetAddress(_ context.Context, _, addressID string) (*user.Address, error) {
	a, ok := m.addresses[addressID]
	if !ok {
		return nil, user.ErrAddressNotFound
	}
	return a, nil
}

type mockGateway struct {
	orderID     string
	err         error
	gotAmount   int64
	gotReceipts []string
}

func (m *mockGateway) CreateOrder(_ context.Context, amountPaise int64, receipt string, _ map[string]string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.gotAmount = amountPaise
	m.gotReceipts = append(m.gotReceipts, receipt)
	return m.orderID, nil
}

type mockNotifier struct {
	confirmed []string
}

func (m *mockNotifier) OrderConfirmed(_ context.Context, o *Order, _, _ string) error {
	m.confirmed = append(m.confirmed, o.OrderID)
	return nil
}

// --- Helpers ---

func testProduct(id, title string, price string, stock int) product.Product {
	return product.Product{
		ID:     id,
		Title:  title,
		Slug:   id,
		Brand:  "Maison Verre",
		Gender: product.GenderUnisex,
		Family: product.FamilyWoody,
		Price:  decimal.RequireFromString(price),
		MRP:    decimal.RequireFromString(price),
		Stock:  stock,
	}
}

type fixture struct {
	orders   *mockOrderRepo
	products *mockProductRepo
	users    *mockUserRepo
	gateway  *mockGateway
	notifier *mockNotifier
	svc      *Service
}

func newFixture(products ...product.Product) *fixture {
	byID := make(map[string]product.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	f := &fixture{
		orders:   &mockOrderRepo{byRef: make(map[string]*Order)},
		products: &mockProductRepo{byID: byID},
		users: &mockUserRepo{
			users: map[string]*user.User{
				"u1": {ID: "u1", Email: "asha@example.com", Name: "Asha", Role: user.RoleCustomer},
			},
			addresses: map[string]*user.Address{
				"a1": {ID: "a1", Label: "Home", Line1: "14 Lake View Road", City: "Bengaluru", State: "Karnataka", Pincode: "560034", Phone: "+919820011223"},
			},
		},
		gateway:  &mockGateway{orderID: "rzp_order_123"},
		notifier: &mockNotifier{},
	}
	f.svc = NewService(f.orders, f.products, f.users, f.gateway, f.notifier)
	return f
}

func codRequest(items ...ItemInput) CreateRequest {
	return CreateRequest{UserID: "u1", Items: items, AddressID: "a1", Provider: ProviderCOD}
}

// --- Create ---

func TestCreate_EmptyItems(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Create(context.Background(), codRequest())
	require.ErrorIs(t, err, ErrEmptyItems)
}

func TestCreate_InvalidProvider(t *testing.T) {
	f := newFixture(testProduct("p1", "Amber Noir", "2499.00", 10))

	req := codRequest(ItemInput{ProductID: "p1", Qty: 1})
	req.Provider = "paypal"
	_, err := f.svc.Create(context.Background(), req)

	var provErr *UnsupportedProviderError
	require.ErrorAs(t, err, &provErr)
}

func TestCreate_StripeNotImplemented(t *testing.T) {
	f := newFixture(testProduct("p1", "Amber Noir", "2499.00", 10))

	req := codRequest(ItemInput{ProductID: "p1", Qty: 1})
	req.Provider = ProviderStripe
	_, err := f.svc.Create(context.Background(), req)

	var provErr *UnsupportedProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, ProviderStripe, provErr.Provider)
}

func TestCreate_InvalidQuantity(t *testing.T) {
	f := newFixture(testProduct("p1", "Amber Noir", "2499.00", 10))

	_, err := f.svc.Create(context.Background(), codRequest(ItemInput{ProductID: "p1", Qty: 0}))

	var qtyErr *InvalidQuantityError
	require.ErrorAs(t, err, &qtyErr)
	assert.Equal(t, "p1", qtyErr.ProductID)
}

func TestCreate_UnknownAddress(t *testing.T) {
	f := newFixture(testProduct("p1", "Amber Noir", "2499.00", 10))

	req := codRequest(ItemInput{ProductID: "p1", Qty: 1})
	req.AddressID = "missing"
	_, err := f.svc.Create(context.Background(), req)
	require.ErrorIs(t, err, user.ErrAddressNotFound)
}

func TestCreate_ProductNotFound(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Create(context.Background(), codRequest(ItemInput{ProductID: "ghost", Qty: 1}))

	var pnfErr *ProductNotFoundError
	require.ErrorAs(t, err, &pnfErr)
	assert.Equal(t, "ghost", pnfErr.ProductID)
}

func TestCreate_InsufficientStockPrecheck(t *testing.T) {
	f := newFixture(testProduct("p1", "Rose Atlas", "3899.00", 2))

	_, err := f.svc.Create(context.Background(), codRequest(ItemInput{ProductID: "p1", Qty: 3}))

	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "Rose Atlas", stockErr.Title)
	assert.Equal(t, 2, stockErr.Available)
	assert.Equal(t, 3, stockErr.Requested)
	assert.Contains(t, err.Error(), "insufficient stock for Rose Atlas. Available: 2, Requested: 3")

	// Nothing persisted.
	assert.Nil(t, f.orders.created)
	assert.Nil(t, f.orders.createdWithStock)
}

func TestCreate_COD(t *testing.T) {
	f := newFixture(
		testProduct("p1", "Citrus Veil", "500.00", 10),
		testProduct("p2", "Sea Glass", "350.00", 10),
	)

	res, err := f.svc.Create(context.Background(), codRequest(
		ItemInput{ProductID: "p1", Qty: 2},
		ItemInput{ProductID: "p2", Qty: 1},
	))
	require.NoError(t, err)
	require.NotNil(t, res.Order)
	assert.Nil(t, res.Intent)

	o := res.Order
	// subtotal 1350 >= 999: free shipping; tax 243; cod fee 25.
	assert.True(t, o.Subtotal.Equal(decimal.RequireFromString("1350")), "subtotal = %s", o.Subtotal)
	assert.True(t, o.Shipping.IsZero())
	assert.True(t, o.Tax.Equal(decimal.RequireFromString("243")), "tax = %s", o.Tax)
	assert.True(t, o.Total.Equal(decimal.RequireFromString("1618")), "total = %s", o.Total)

	assert.Equal(t, StatusConfirmed, o.Status)
	assert.Equal(t, PaymentCaptured, o.Payment.Status)
	assert.Equal(t, ProviderCOD, o.Payment.Provider)
	require.Len(t, o.StatusHistory, 2)
	assert.Equal(t, StatusPending, o.StatusHistory[0].Status)
	assert.Equal(t, StatusConfirmed, o.StatusHistory[1].Status)

	// Price snapshots come from the catalog.
	require.Len(t, o.Items, 2)
	assert.True(t, o.Items[0].PriceAtPurchase.Equal(decimal.RequireFromString("500.00")))

	// Address is copied onto the order.
	assert.Equal(t, "Bengaluru", o.ShippingAddress.City)

	// Stock-decrementing create was used, and the confirmation was sent.
	require.NotNil(t, f.orders.createdWithStock)
	assert.Nil(t, f.orders.created)
	assert.Equal(t, []string{o.OrderID}, f.notifier.confirmed)
}

func TestCreate_CODEstimatedDelivery(t *testing.T) {
	f := newFixture(testProduct("p1", "Citrus Veil", "500.00", 10))
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return base }

	res, err := f.svc.Create(context.Background(), codRequest(ItemInput{ProductID: "p1", Qty: 1}))
	require.NoError(t, err)
	assert.Equal(t, base.AddDate(0, 0, 7), res.Order.EstimatedDelivery)
}

func TestCreate_CODStockConflictFillsTitle(t *testing.T) {
	f := newFixture(testProduct("p1", "Vetiver Line", "1599.00", 5))
	// Conditional update lost the race inside the transaction.
	f.orders.stockErr = &InsufficientStockError{ProductID: "p1", Requested: 2}

	_, err := f.svc.Create(context.Background(), codRequest(ItemInput{ProductID: "p1", Qty: 2}))

	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "Vetiver Line", stockErr.Title)
	assert.Empty(t, f.notifier.confirmed)
}

func TestCreate_Razorpay(t *testing.T) {
	f := newFixture(testProduct("p1", "Amber Noir", "2499.00", 10))

	req := codRequest(ItemInput{ProductID: "p1", Qty: 1})
	req.Provider = ProviderRazorpay
	res, err := f.svc.Create(context.Background(), req)
	require.NoError(t, err)

	o := res.Order
	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, PaymentPending, o.Payment.Status)
	assert.Equal(t, "rzp_order_123", o.Payment.GatewayOrderID)
	require.Len(t, o.StatusHistory, 1)

	// subtotal 2499, shipping 0, tax 450, total 2949 -> 294900 paise.
	require.NotNil(t, res.Intent)
	assert.Equal(t, int64(294900), res.Intent.AmountPaise)
	assert.Equal(t, "INR", res.Intent.Currency)
	assert.Equal(t, int64(294900), f.gateway.gotAmount)

	// Pending orders reserve no stock and send no email.
	require.NotNil(t, f.orders.created)
	assert.Nil(t, f.orders.createdWithStock)
	assert.Empty(t, f.notifier.confirmed)
}

func TestCreate_RazorpayGatewayFailure(t *testing.T) {
	f := newFixture(testProduct("p1", "Amber Noir", "2499.00", 10))
	f.gateway.err = errors.New("gateway timeout")

	req := codRequest(ItemInput{ProductID: "p1", Qty: 1})
	req.Provider = ProviderRazorpay
	_, err := f.svc.Create(context.Background(), req)

	require.Error(t, err)
	assert.Nil(t, f.orders.created, "no order persisted without a gateway intent")
}

// --- Get / List ---

func TestGet_OwnerScoped(t *testing.T) {
	f := newFixture()
	f.orders.byRef["MV1"] = &Order{ID: "id1", OrderID: "MV1", UserID: "u1"}

	o, err := f.svc.Get(context.Background(), "u1", "MV1", false)
	require.NoError(t, err)
	assert.Equal(t, "MV1", o.OrderID)

	_, err = f.svc.Get(context.Background(), "u2", "MV1", false)
	require.ErrorIs(t, err, ErrNotOwner)

	// Admin may read anyone's order.
	_, err = f.svc.Get(context.Background(), "u2", "MV1", true)
	require.NoError(t, err)

	_, err = f.svc.Get(context.Background(), "u1", "missing", false)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestList_Pagination(t *testing.T) {
	f := newFixture()
	f.orders.listOrders = make([]Order, 10)
	f.orders.listTotal = 25

	page, err := f.svc.List(context.Background(), "u1", 2, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Current)
	assert.Equal(t, 3, page.TotalPages)
	assert.True(t, page.HasNext)
	assert.True(t, page.HasPrev)
}

func TestList_DefaultsOutOfRangeInput(t *testing.T) {
	f := newFixture()
	f.orders.listTotal = 5

	page, err := f.svc.List(context.Background(), "u1", -3, 500)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Current)
	assert.Equal(t, 1, page.TotalPages)
	assert.False(t, page.HasPrev)
}

// --- Cancel ---

func TestCancel_Matrix(t *testing.T) {
	tests := []struct {
		status   Status
		accepted bool
	}{
		{StatusPending, true},
		{StatusConfirmed, true},
		{StatusProcessing, false},
		{StatusShipped, false},
		{StatusDelivered, false},
		{StatusCancelled, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			f := newFixture()
			f.orders.byRef["MV1"] = &Order{
				ID: "id1", OrderID: "MV1", UserID: "u1",
				Status:  tt.status,
				Payment: Payment{Provider: ProviderCOD, Status: PaymentCaptured},
			}

			o, err := f.svc.Cancel(context.Background(), "u1", "MV1", "")
			if !tt.accepted {
				var rejErr *CancelRejectedError
				require.ErrorAs(t, err, &rejErr)
				assert.Equal(t, tt.status, rejErr.Status)
				assert.Nil(t, f.orders.cancelled)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, StatusCancelled, o.Status)
			assert.True(t, f.orders.cancelRestock, "captured payment restores stock")
			assert.Equal(t, "Order cancelled by customer", o.StatusHistory[len(o.StatusHistory)-1].Message)
		})
	}
}

func TestCancel_PendingPaymentSkipsRestock(t *testing.T) {
	f := newFixture()
	f.orders.byRef["MV1"] = &Order{
		ID: "id1", OrderID: "MV1", UserID: "u1",
		Status:  StatusPending,
		Payment: Payment{Provider: ProviderRazorpay, Status: PaymentPending},
	}

	_, err := f.svc.Cancel(context.Background(), "u1", "MV1", "changed my mind")
	require.NoError(t, err)
	assert.False(t, f.orders.cancelRestock, "stock was never decremented, nothing to restore")
	assert.Equal(t, "changed my mind", f.orders.cancelled.StatusHistory[len(f.orders.cancelled.StatusHistory)-1].Message)
}

func TestCancel_NotOwner(t *testing.T) {
	f := newFixture()
	f.orders.byRef["MV1"] = &Order{ID: "id1", OrderID: "MV1", UserID: "u1", Status: StatusPending}

	_, err := f.svc.Cancel(context.Background(), "u2", "MV1", "")
	require.ErrorIs(t, err, ErrNotOwner)
}

// --- UpdateStatus ---

func TestUpdateStatus_UnknownStatus(t *testing.T) {
	f := newFixture()

	_, err := f.svc.UpdateStatus(context.Background(), "MV1", "returned", "", "")
	require.ErrorIs(t, err, ErrUnknownStatus)
}

func TestUpdateStatus_IllegalTransition(t *testing.T) {
	f := newFixture()
	f.orders.byRef["MV1"] = &Order{ID: "id1", OrderID: "MV1", UserID: "u1", Status: StatusConfirmed}

	_, err := f.svc.UpdateStatus(context.Background(), "MV1", StatusDelivered, "", "")

	var trErr *InvalidTransitionError
	require.ErrorAs(t, err, &trErr)
	assert.Equal(t, StatusConfirmed, trErr.From)
	assert.Equal(t, StatusDelivered, trErr.To)
	assert.Nil(t, f.orders.saved)
}

func TestUpdateStatus_ShippedAssignsTracking(t *testing.T) {
	f := newFixture()
	f.orders.byRef["MV1"] = &Order{
		ID: "id1", OrderID: "MV1", UserID: "u1", Status: StatusConfirmed,
		StatusHistory: []StatusEntry{{Status: StatusPending}, {Status: StatusConfirmed}},
	}

	o, err := f.svc.UpdateStatus(context.Background(), "MV1", StatusShipped, "", "Bengaluru hub")
	require.NoError(t, err)
	assert.Equal(t, StatusShipped, o.Status)
	assert.NotEmpty(t, o.TrackingID)

	last := o.StatusHistory[len(o.StatusHistory)-1]
	assert.Equal(t, StatusShipped.Message(), last.Message)
	assert.Equal(t, "Bengaluru hub", last.Location)
	require.Len(t, o.StatusHistory, 3, "history is append-only")
}

func TestUpdateStatus_TrackingSetOnce(t *testing.T) {
	f := newFixture()
	f.orders.byRef["MV1"] = &Order{
		ID: "id1", OrderID: "MV1", UserID: "u1",
		Status: StatusShipped, TrackingID: "TRK123",
	}

	o, err := f.svc.UpdateStatus(context.Background(), "MV1", StatusDelivered, "Left at reception", "")
	require.NoError(t, err)
	assert.Equal(t, "TRK123", o.TrackingID, "tracking id never changes once assigned")
	assert.Equal(t, "Left at reception", o.StatusHistory[len(o.StatusHistory)-1].Message)
}

// --- Track ---

func TestTrack_RestrictedProjection(t *testing.T) {
	f := newFixture()
	f.orders.byRef["TRK123"] = &Order{
		ID: "id1", OrderID: "MV1", UserID: "u1",
		Status:     StatusShipped,
		TrackingID: "TRK123",
		Items:      []Item{{ProductID: "p1", Qty: 2}, {ProductID: "p2", Qty: 1}},
		ShippingAddress: user.Address{
			Line1: "14 Lake View Road", City: "Bengaluru", Pincode: "560034", Phone: "+919820011223",
		},
	}

	info, err := f.svc.Track(context.Background(), "TRK123")
	require.NoError(t, err)
	assert.Equal(t, "MV1", info.OrderID)
	assert.Equal(t, "TRK123", info.TrackingID)
	assert.Equal(t, 2, info.ItemCount)
	assert.Equal(t, "Bengaluru", info.ShippingCity)
}
