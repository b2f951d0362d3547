//go:build integration

package integration

import (
	"net/http"
	"strings"
	"testing"
)

func TestCreateOrder_NoAuth(t *testing.T) {
	resp := do(t, http.MethodPost, "/api/orders", "", createOrderRequest{
		Items:           []orderItemRequest{{ProductID: "perf-sea-glass", Qty: 1}},
		AddressID:       "addr-demo-home",
		PaymentProvider: "cod",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestCreateOrder_EmptyItems(t *testing.T) {
	resp := do(t, http.MethodPost, "/api/orders", customerToken(t), createOrderRequest{
		AddressID:       "addr-demo-home",
		PaymentProvider: "cod",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestCreateOrder_UnknownProduct(t *testing.T) {
	resp := do(t, http.MethodPost, "/api/orders", customerToken(t), createOrderRequest{
		Items:           []orderItemRequest{{ProductID: "perf-ghost", Qty: 1}},
		AddressID:       "addr-demo-home",
		PaymentProvider: "cod",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
}

func TestCreateOrder_InsufficientStock(t *testing.T) {
	// Vetiver Line is seeded with 3 units.
	resp := do(t, http.MethodPost, "/api/orders", customerToken(t), createOrderRequest{
		Items:           []orderItemRequest{{ProductID: "perf-vetiver-line", Qty: 4}},
		AddressID:       "addr-demo-home",
		PaymentProvider: "cod",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
	body := decodeJSON[errorResponse](t, resp)
	if !strings.Contains(body.Message, "Vetiver Line") {
		t.Errorf("error message %q does not name the product", body.Message)
	}
}

func TestCreateOrder_CODTotals(t *testing.T) {
	// Sea Glass is 999.00: free shipping boundary, tax 180 (rounded from
	// 179.82), COD fee 25.
	resp := do(t, http.MethodPost, "/api/orders", customerToken(t), createOrderRequest{
		Items:           []orderItemRequest{{ProductID: "perf-sea-glass", Qty: 1}},
		AddressID:       "addr-demo-home",
		PaymentProvider: "cod",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	created := decodeJSON[createOrderResponse](t, resp)
	o := created.Order
	if o.Status != "confirmed" {
		t.Errorf("status: got %q, want confirmed", o.Status)
	}
	if o.Payment.Status != "captured" {
		t.Errorf("payment status: got %q, want captured", o.Payment.Status)
	}
	if o.Shipping != "0" {
		t.Errorf("shipping: got %s, want 0", o.Shipping)
	}
	if o.Tax != "180" {
		t.Errorf("tax: got %s, want 180", o.Tax)
	}
	if o.Total != "1204" {
		t.Errorf("total: got %s, want 1204", o.Total)
	}
	if !strings.HasPrefix(o.OrderID, "MV") {
		t.Errorf("order id %q missing MV prefix", o.OrderID)
	}
	if len(o.StatusHistory) != 2 {
		t.Errorf("status history: got %d entries, want 2", len(o.StatusHistory))
	}
}

func TestCreateOrder_TaxRounding(t *testing.T) {
	// Citrus Veil is 1299.00: tax 233.82 rounds to 234.
	resp := do(t, http.MethodPost, "/api/orders", customerToken(t), createOrderRequest{
		Items:           []orderItemRequest{{ProductID: "perf-citrus-veil", Qty: 1}},
		AddressID:       "addr-demo-home",
		PaymentProvider: "cod",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	created := decodeJSON[createOrderResponse](t, resp)
	// 1299 + 234 tax + 25 COD fee.
	if created.Order.Total != "1558" {
		t.Errorf("total: got %s, want 1558", created.Order.Total)
	}
}

func TestOrderLifecycle(t *testing.T) {
	customer := customerToken(t)
	admin := adminToken(t)

	resp := do(t, http.MethodPost, "/api/orders", customer, createOrderRequest{
		Items:           []orderItemRequest{{ProductID: "perf-amber-noir", Qty: 1}},
		AddressID:       "addr-demo-home",
		PaymentProvider: "cod",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d", resp.StatusCode)
	}
	created := decodeJSON[createOrderResponse](t, resp)
	resp.Body.Close()
	orderID := created.Order.OrderID

	// The owner can read it back.
	resp = do(t, http.MethodGet, "/api/orders/"+orderID, customer, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// A customer cannot drive status transitions.
	resp = do(t, http.MethodPatch, "/api/orders/"+orderID+"/status", customer,
		map[string]string{"status": "shipped"})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("customer status update: expected 403, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Admin ships it; the tracking id is assigned on this transition.
	resp = do(t, http.MethodPatch, "/api/orders/"+orderID+"/status", admin,
		map[string]string{"status": "shipped", "location": "Bengaluru hub"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("ship: expected 200, got %d", resp.StatusCode)
	}
	shipped := decodeJSON[orderResponse](t, resp)
	resp.Body.Close()
	if !strings.HasPrefix(shipped.TrackingID, "TRK") {
		t.Fatalf("tracking id %q missing TRK prefix", shipped.TrackingID)
	}

	// Public tracking works without a session and hides the address.
	resp = do(t, http.MethodGet, "/api/orders/track/"+shipped.TrackingID, "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("track: expected 200, got %d", resp.StatusCode)
	}
	tracked := decodeJSON[trackingResponse](t, resp)
	resp.Body.Close()
	if tracked.OrderID != orderID {
		t.Errorf("tracked order id: got %q, want %q", tracked.OrderID, orderID)
	}
	if tracked.ShippingCity != "Bengaluru" {
		t.Errorf("shipping city: got %q, want Bengaluru", tracked.ShippingCity)
	}
	if tracked.ItemCount != 1 {
		t.Errorf("item count: got %d, want 1", tracked.ItemCount)
	}

	// Shipped orders cannot be cancelled.
	resp = do(t, http.MethodPatch, "/api/orders/"+orderID+"/cancel", customer, map[string]string{})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("cancel shipped: expected 422, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Deliver, then verify the transition chain is closed.
	resp = do(t, http.MethodPatch, "/api/orders/"+orderID+"/status", admin,
		map[string]string{"status": "delivered"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("deliver: expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = do(t, http.MethodPatch, "/api/orders/"+orderID+"/status", admin,
		map[string]string{"status": "shipped"})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("delivered->shipped: expected 422, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestCancelOrder_RestoresStock(t *testing.T) {
	customer := customerToken(t)
	admin := adminToken(t)

	// Rose Atlas starts at 22 in the seed; read the live value instead of
	// assuming no other test touched it.
	before := inventoryStock(t, admin, "perf-rose-atlas")

	resp := do(t, http.MethodPost, "/api/orders", customer, createOrderRequest{
		Items:           []orderItemRequest{{ProductID: "perf-rose-atlas", Qty: 2}},
		AddressID:       "addr-demo-home",
		PaymentProvider: "cod",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d", resp.StatusCode)
	}
	created := decodeJSON[createOrderResponse](t, resp)
	resp.Body.Close()

	if got := inventoryStock(t, admin, "perf-rose-atlas"); got != before-2 {
		t.Fatalf("stock after order: got %d, want %d", got, before-2)
	}

	resp = do(t, http.MethodPatch, "/api/orders/"+created.Order.OrderID+"/cancel", customer,
		map[string]string{"reason": "ordered the wrong size"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("cancel: expected 200, got %d", resp.StatusCode)
	}
	cancelled := decodeJSON[orderResponse](t, resp)
	resp.Body.Close()

	if cancelled.Status != "cancelled" {
		t.Errorf("status: got %q, want cancelled", cancelled.Status)
	}
	last := cancelled.StatusHistory[len(cancelled.StatusHistory)-1]
	if last.Message != "ordered the wrong size" {
		t.Errorf("cancel message: got %q", last.Message)
	}

	if got := inventoryStock(t, admin, "perf-rose-atlas"); got != before {
		t.Errorf("stock after cancel: got %d, want %d", got, before)
	}
}

type inventoryReport struct {
	InStock    []stockLine `json:"inStock"`
	LowStock   []stockLine `json:"lowStock"`
	OutOfStock []stockLine `json:"outOfStock"`
}

type stockLine struct {
	ProductID string `json:"productId"`
	Stock     int    `json:"stock"`
}

func inventoryStock(t *testing.T, admin, productID string) int {
	t.Helper()

	resp := do(t, http.MethodGet, "/api/admin/inventory/report", admin, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("inventory report: expected 200, got %d", resp.StatusCode)
	}

	report := decodeJSON[inventoryReport](t, resp)
	for _, bucket := range [][]stockLine{report.InStock, report.LowStock, report.OutOfStock} {
		for _, line := range bucket {
			if line.ProductID == productID {
				return line.Stock
			}
		}
	}
	t.Fatalf("product %s not in inventory report", productID)
	return 0
}
