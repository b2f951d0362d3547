package payment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maisonverre/storefront-api/internal/domain/order"
)

type mockOrderRepo struct {
	byRef    map[string]*order.Order
	captured *order.Order
	captErr  error
}

func (m *mockOrderRepo) Create(_ context.Context, _ *order.Order) error          { return nil }
func (m *mockOrderRepo) CreateWithStock(_ context.Context, _ *order.Order) error { return nil }

func (m *mockOrderRepo) FindByRef(_ context.Context, ref string) (*order.Order, error) {
	o, ok := m.byRef[ref]
	if !ok {
		return nil, order.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *mockOrderRepo) ListByUser(_ context.Context, _ string, _, _ int) ([]order.Order, int, error) {
	return nil, 0, nil
}

func (m *mockOrderRepo) CountByUser(_ context.Context, _ string) (int, error) { return 0, nil }

func (m *mockOrderRepo) SaveTransition(_ context.Context, _ *order.Order) error { return nil }

func (m *mockOrderRepo) CancelAndRestock(_ context.Context, _ *order.Order, _ bool) error {
	return nil
}

func (m *mockOrderRepo) CaptureAndDecrement(_ context.Context, o *order.Order) error {
	if m.captErr != nil {
		return m.captErr
	}
	m.captured = o
	return nil
}

func pendingOrder(id string) *order.Order {
	return &order.Order{
		ID:      id,
		OrderID: "MV" + id,
		UserID:  "u1",
		Status:  order.StatusPending,
		StatusHistory: []order.StatusEntry{
			{Status: order.StatusPending, Message: order.StatusPending.Message()},
		},
		Payment: order.Payment{
			Provider:       order.ProviderRazorpay,
			Status:         order.PaymentPending,
			GatewayOrderID: "rzp_order_1",
		},
	}
}

func TestVerify_ForgedSignature(t *testing.T) {
	repo := &mockOrderRepo{byRef: map[string]*order.Order{"o1": pendingOrder("o1")}}
	v := NewVerifier(repo, []byte("secret123"))

	_, err := v.Verify(context.Background(), "rzp_order_1", "rzp_pay_1", "deadbeef", "o1")
	require.ErrorIs(t, err, ErrInvalidSignature)
	assert.Nil(t, repo.captured, "forged callbacks must not touch the order")
}

func TestVerify_Captures(t *testing.T) {
	repo := &mockOrderRepo{byRef: map[string]*order.Order{"o1": pendingOrder("o1")}}
	v := NewVerifier(repo, []byte("secret123"))

	sig := v.Sign("rzp_order_1", "rzp_pay_1")
	o, err := v.Verify(context.Background(), "rzp_order_1", "rzp_pay_1", sig, "o1")
	require.NoError(t, err)

	assert.Equal(t, order.StatusConfirmed, o.Status)
	assert.Equal(t, order.PaymentCaptured, o.Payment.Status)
	assert.Equal(t, "rzp_pay_1", o.Payment.GatewayPaymentID)
	assert.Equal(t, sig, o.Payment.GatewaySignature)
	require.Len(t, o.StatusHistory, 2)
	assert.Equal(t, order.StatusConfirmed, o.StatusHistory[1].Status)
	require.NotNil(t, repo.captured)
}

func TestVerify_Replay(t *testing.T) {
	captured := pendingOrder("o1")
	captured.Status = order.StatusConfirmed
	captured.Payment.Status = order.PaymentCaptured
	repo := &mockOrderRepo{byRef: map[string]*order.Order{"o1": captured}}
	v := NewVerifier(repo, []byte("secret123"))

	sig := v.Sign("rzp_order_1", "rzp_pay_1")
	_, err := v.Verify(context.Background(), "rzp_order_1", "rzp_pay_1", sig, "o1")
	require.ErrorIs(t, err, order.ErrAlreadyCaptured)
	assert.Nil(t, repo.captured)
}

func TestVerify_UnknownOrder(t *testing.T) {
	repo := &mockOrderRepo{byRef: map[string]*order.Order{}}
	v := NewVerifier(repo, []byte("secret123"))

	sig := v.Sign("rzp_order_1", "rzp_pay_1")
	_, err := v.Verify(context.Background(), "rzp_order_1", "rzp_pay_1", sig, "missing")
	require.ErrorIs(t, err, order.ErrNotFound)
}

func TestVerify_RepositoryGuard(t *testing.T) {
	repo := &mockOrderRepo{
		byRef:   map[string]*order.Order{"o1": pendingOrder("o1")},
		captErr: order.ErrAlreadyCaptured,
	}
	v := NewVerifier(repo, []byte("secret123"))

	sig := v.Sign("rzp_order_1", "rzp_pay_1")
	_, err := v.Verify(context.Background(), "rzp_order_1", "rzp_pay_1", sig, "o1")
	require.ErrorIs(t, err, order.ErrAlreadyCaptured)
}

func TestSign_Deterministic(t *testing.T) {
	v := NewVerifier(nil, []byte("secret123"))

	a := v.Sign("rzp_order_1", "rzp_pay_1")
	b := v.Sign("rzp_order_1", "rzp_pay_1")
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)

	other := NewVerifier(nil, []byte("other-secret"))
	assert.NotEqual(t, a, other.Sign("rzp_order_1", "rzp_pay_1"))
}
