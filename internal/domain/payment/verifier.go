package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/go-faster/errors"

	"github.com/maisonverre/storefront-api/internal/domain/order"
)

// ErrInvalidSignature is returned when the supplied gateway signature does
// not match the locally computed one. No state changes on this path.
var ErrInvalidSignature = errors.New("invalid payment signature")

// Verifier authenticates gateway payment callbacks and finalizes orders.
type Verifier struct {
	orders order.Repository
	secret []byte
	now    func() time.Time
}

// NewVerifier creates a Verifier with the gateway signing secret.
func NewVerifier(orders order.Repository, secret []byte) *Verifier {
	return &Verifier{orders: orders, secret: secret, now: time.Now}
}

// Sign computes the expected signature for a gateway order/payment pair:
// hex HMAC-SHA256 over "<gatewayOrderID>|<gatewayPaymentID>".
func (v *Verifier) Sign(gatewayOrderID, gatewayPaymentID string) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(gatewayOrderID + "|" + gatewayPaymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify validates the callback signature and, on success, captures the
// payment: the order is confirmed and stock decremented, all in one
// transaction. A forged signature never mutates anything; a replay against
// an already-captured order is rejected with order.ErrAlreadyCaptured as a
// no-op.
func (v *Verifier) Verify(ctx context.Context, gatewayOrderID, gatewayPaymentID, signature, localOrderID string) (*order.Order, error) {
	expected := v.Sign(gatewayOrderID, gatewayPaymentID)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return nil, ErrInvalidSignature
	}

	o, err := v.orders.FindByRef(ctx, localOrderID)
	if err != nil {
		return nil, err
	}
	if o.Payment.Status == order.PaymentCaptured {
		return nil, order.ErrAlreadyCaptured
	}

	o.Payment.GatewayPaymentID = gatewayPaymentID
	o.Payment.GatewaySignature = signature
	o.Payment.Status = order.PaymentCaptured
	o.Status = order.StatusConfirmed
	o.StatusHistory = append(o.StatusHistory, order.StatusEntry{
		Status:    order.StatusConfirmed,
		Timestamp: v.now(),
		Message:   order.StatusConfirmed.Message(),
	})

	// The conditional capture in the repository is the authoritative replay
	// guard; the check above just avoids the round trip.
	if err := v.orders.CaptureAndDecrement(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}
