package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/maisonverre/storefront-api/internal/domain/product"
)

// lowStockThreshold is the stock level at which an operator alert is
// enqueued after an adjustment.
const lowStockThreshold = 5

type stockLine struct {
	ProductID string          `json:"productId"`
	Title     string          `json:"title"`
	Brand     string          `json:"brand"`
	Stock     int             `json:"stock"`
	Value     decimal.Decimal `json:"value"`
}

type inventoryReportResponse struct {
	Threshold  int             `json:"threshold"`
	InStock    []stockLine     `json:"inStock"`
	LowStock   []stockLine     `json:"lowStock"`
	OutOfStock []stockLine     `json:"outOfStock"`
	TotalValue decimal.Decimal `json:"totalValue"`
}

func (h *Handler) inventoryReport(w http.ResponseWriter, r *http.Request) {
	threshold, _ := strconv.Atoi(r.URL.Query().Get("threshold"))
	if threshold < 1 {
		threshold = lowStockThreshold
	}

	products, err := h.products.List(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	report := inventoryReportResponse{
		Threshold:  threshold,
		InStock:    []stockLine{},
		LowStock:   []stockLine{},
		OutOfStock: []stockLine{},
		TotalValue: decimal.Zero,
	}
	for _, p := range products {
		value := p.Price.Mul(decimal.NewFromInt(int64(p.Stock)))
		line := stockLine{
			ProductID: p.ID,
			Title:     p.Title,
			Brand:     p.Brand,
			Stock:     p.Stock,
			Value:     value,
		}
		report.TotalValue = report.TotalValue.Add(value)
		switch {
		case p.Stock == 0:
			report.OutOfStock = append(report.OutOfStock, line)
		case p.Stock <= threshold:
			report.LowStock = append(report.LowStock, line)
		default:
			report.InStock = append(report.InStock, line)
		}
	}
	writeJSON(w, http.StatusOK, report)
}

type adjustStockRequest struct {
	Operation string `json:"operation"`
	Quantity  int    `json:"quantity"`
	Reason    string `json:"reason"`
}

type adjustStockResponse struct {
	ProductID string `json:"productId"`
	Title     string `json:"title"`
	OldStock  int    `json:"oldStock"`
	NewStock  int    `json:"newStock"`
	Reason    string `json:"reason,omitempty"`
}

func (h *Handler) adjustStock(w http.ResponseWriter, r *http.Request) {
	var req adjustStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	op := product.StockOp(req.Operation)
	switch op {
	case product.StockAdd, product.StockSubtract, product.StockSet:
	default:
		writeError(w, http.StatusBadRequest, "operation must be add, subtract or set")
		return
	}
	if req.Quantity < 0 {
		writeError(w, http.StatusBadRequest, "quantity cannot be negative")
		return
	}

	change, err := h.products.UpdateStock(r.Context(), chi.URLParam(r, "productID"), op, req.Quantity)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	if h.alerts != nil && change.NewStock <= lowStockThreshold {
		if err := h.alerts.LowStock(r.Context(), change.ProductID, change.Title, change.NewStock); err != nil {
			zctx.From(r.Context()).Warn("enqueue low stock alert failed",
				zap.String("product_id", change.ProductID), zap.Error(err))
		}
	}

	writeJSON(w, http.StatusOK, adjustStockResponse{
		ProductID: change.ProductID,
		Title:     change.Title,
		OldStock:  change.OldStock,
		NewStock:  change.NewStock,
		Reason:    req.Reason,
	})
}
