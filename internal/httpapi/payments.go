package httpapi

import (
	"encoding/json"
	"net/http"
)

type verifyPaymentRequest struct {
	OrderID      string `json:"orderId"`
	PaymentID    string `json:"paymentId"`
	Signature    string `json:"signature"`
	LocalOrderID string `json:"localOrderId"`
}

func (h *Handler) verifyPayment(w http.ResponseWriter, r *http.Request) {
	var req verifyPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.OrderID == "" || req.PaymentID == "" || req.Signature == "" || req.LocalOrderID == "" {
		writeError(w, http.StatusBadRequest, "orderId, paymentId, signature and localOrderId required")
		return
	}

	o, err := h.verifier.Verify(r.Context(), req.OrderID, req.PaymentID, req.Signature, req.LocalOrderID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderView(o))
}
