package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"

	"github.com/maisonverre/storefront-api/internal/domain/order"
)

const razorpayBaseURL = "https://api.razorpay.com/v1"

var _ order.Gateway = (*RazorpayGateway)(nil)

// RazorpayGateway creates payment orders against the Razorpay REST API.
// Only the order-creation call the pipeline needs is implemented; the
// gateway is otherwise treated as an opaque external service.
type RazorpayGateway struct {
	keyID   string
	secret  string
	baseURL string
	client  *http.Client
}

// NewRazorpayGateway creates a gateway client with the given API
// credentials.
func NewRazorpayGateway(keyID, secret string) *RazorpayGateway {
	return &RazorpayGateway{
		keyID:   keyID,
		secret:  secret,
		baseURL: razorpayBaseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type razorpayOrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

type razorpayOrderResponse struct {
	ID string `json:"id"`
}

// CreateOrder registers a payment intent and returns the gateway's order
// id. Amount is in paise.
func (g *RazorpayGateway) CreateOrder(ctx context.Context, amountPaise int64, receipt string, notes map[string]string) (string, error) {
	body, err := json.Marshal(razorpayOrderRequest{
		Amount:   amountPaise,
		Currency: "INR",
		Receipt:  receipt,
		Notes:    notes,
	})
	if err != nil {
		return "", errors.Wrap(err, "marshal order request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "build order request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(g.keyID, g.secret)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "call gateway")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", errors.Errorf("gateway returned %d: %s", resp.StatusCode, snippet)
	}

	var out razorpayOrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", errors.Wrap(err, "decode gateway response")
	}
	if out.ID == "" {
		return "", errors.New("gateway response missing order id")
	}
	return out.ID, nil
}
