package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/maisonverre/storefront-api/internal/domain/order"
	"github.com/maisonverre/storefront-api/internal/domain/user"
)

const (
	insertOrderSQL = `INSERT INTO orders (id, order_id, user_id, items, subtotal, shipping, tax, total,
		status, status_history, estimated_delivery, tracking_id,
		payment_provider, gateway_order_id, gateway_payment_id, gateway_signature, payment_status,
		shipping_address)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`

	orderColumns = `id, order_id, user_id, items, subtotal, shipping, tax, total,
		status, status_history, estimated_delivery, tracking_id,
		payment_provider, gateway_order_id, gateway_payment_id, gateway_signature, payment_status,
		shipping_address, created_at, updated_at`

	findOrderByRefSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE id = $1 OR order_id = $1 OR tracking_id = $1`

	listOrdersByUserSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE user_id = $1 ORDER BY created_at DESC OFFSET $2 LIMIT $3`

	countOrdersByUserSQL = `SELECT count(*) FROM orders WHERE user_id = $1`

	saveTransitionSQL = `UPDATE orders SET status = $2, status_history = $3, tracking_id = $4,
		updated_at = now() WHERE id = $1`

	// Conditional decrement: refuses to drive stock negative. Zero rows
	// affected means the precondition failed.
	decrementStockSQL = `UPDATE products SET stock = stock - $2 WHERE id = $1 AND stock >= $2`

	restockSQL = `UPDATE products SET stock = stock + $2 WHERE id = $1`

	// Conditional capture: a replayed callback finds payment_status already
	// captured and affects zero rows.
	capturePaymentSQL = `UPDATE orders SET gateway_payment_id = $2, gateway_signature = $3,
		payment_status = 'captured', status = $4, status_history = $5, updated_at = now()
		WHERE id = $1 AND payment_status <> 'captured'`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL. Line
// items, status history, and the shipping-address snapshot are stored as
// JSONB documents on the order row.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a new order without touching stock.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	args, err := insertArgs(o)
	if err != nil {
		return err
	}
	if _, err := r.pool.Exec(ctx, insertOrderSQL, args...); err != nil {
		return fmt.Errorf("creating order %q: %w", o.OrderID, err)
	}
	return nil
}

// CreateWithStock persists a new order and decrements stock for every line
// in one transaction. Any line failing the conditional decrement aborts the
// whole transaction with InsufficientStockError.
func (r *OrderRepository) CreateWithStock(ctx context.Context, o *order.Order) error {
	args, err := insertArgs(o)
	if err != nil {
		return err
	}

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := decrementStock(ctx, tx, o.Items); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, insertOrderSQL, args...); err != nil {
			return fmt.Errorf("creating order %q: %w", o.OrderID, err)
		}
		return nil
	})
}

// FindByRef resolves an order by surrogate id, public order id, or tracking
// id. Returns order.ErrNotFound when nothing matches.
func (r *OrderRepository) FindByRef(ctx context.Context, ref string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, findOrderByRefSQL, ref)
	if err != nil {
		return nil, fmt.Errorf("finding order %q: %w", ref, err)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("finding order %q: %w", ref, err)
	}
	return &o, nil
}

// ListByUser returns one page of the user's orders, newest first, and the
// total count.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string, offset, limit int) ([]order.Order, int, error) {
	rows, err := r.pool.Query(ctx, listOrdersByUserSQL, userID, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("listing orders for user %q: %w", userID, err)
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, 0, fmt.Errorf("listing orders for user %q: %w", userID, err)
	}

	total, err := r.CountByUser(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// CountByUser returns the user's total order count.
func (r *OrderRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, countOrdersByUserSQL, userID).Scan(&total); err != nil {
		return 0, fmt.Errorf("counting orders for user %q: %w", userID, err)
	}
	return total, nil
}

// SaveTransition persists the order's status, tracking id, and status
// history.
func (r *OrderRepository) SaveTransition(ctx context.Context, o *order.Order) error {
	return saveTransition(ctx, r.pool, o)
}

// CancelAndRestock persists the cancelled state and optionally restores the
// decremented stock, all in one transaction.
func (r *OrderRepository) CancelAndRestock(ctx context.Context, o *order.Order, restock bool) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := saveTransition(ctx, tx, o); err != nil {
			return err
		}
		if !restock {
			return nil
		}
		for _, item := range o.Items {
			if _, err := tx.Exec(ctx, restockSQL, item.ProductID, item.Qty); err != nil {
				return fmt.Errorf("restocking product %q: %w", item.ProductID, err)
			}
		}
		return nil
	})
}

// CaptureAndDecrement records the captured payment, confirms the order, and
// decrements stock, all in one transaction. The capture update is
// conditional on the payment not being captured yet, so callback replays
// fail with order.ErrAlreadyCaptured without touching stock.
func (r *OrderRepository) CaptureAndDecrement(ctx context.Context, o *order.Order) error {
	history, err := json.Marshal(o.StatusHistory)
	if err != nil {
		return fmt.Errorf("marshaling status history: %w", err)
	}

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, capturePaymentSQL,
			o.ID, o.Payment.GatewayPaymentID, o.Payment.GatewaySignature, string(o.Status), history,
		)
		if err != nil {
			return fmt.Errorf("capturing payment for order %q: %w", o.OrderID, err)
		}
		if tag.RowsAffected() == 0 {
			return order.ErrAlreadyCaptured
		}
		return decrementStock(ctx, tx, o.Items)
	})
}

// execer covers both pgxpool.Pool and pgx.Tx so helpers can run inside and
// outside transactions.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func saveTransition(ctx context.Context, q execer, o *order.Order) error {
	history, err := json.Marshal(o.StatusHistory)
	if err != nil {
		return fmt.Errorf("marshaling status history: %w", err)
	}
	if _, err := q.Exec(ctx, saveTransitionSQL, o.ID, string(o.Status), history, nullable(o.TrackingID)); err != nil {
		return fmt.Errorf("saving transition for order %q: %w", o.OrderID, err)
	}
	return nil
}

func decrementStock(ctx context.Context, tx pgx.Tx, items []order.Item) error {
	for _, item := range items {
		tag, err := tx.Exec(ctx, decrementStockSQL, item.ProductID, item.Qty)
		if err != nil {
			return fmt.Errorf("decrementing stock for product %q: %w", item.ProductID, err)
		}
		if tag.RowsAffected() == 0 {
			return &order.InsufficientStockError{ProductID: item.ProductID, Requested: item.Qty}
		}
	}
	return nil
}

func insertArgs(o *order.Order) ([]any, error) {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return nil, fmt.Errorf("marshaling order items: %w", err)
	}
	history, err := json.Marshal(o.StatusHistory)
	if err != nil {
		return nil, fmt.Errorf("marshaling status history: %w", err)
	}
	address, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return nil, fmt.Errorf("marshaling shipping address: %w", err)
	}

	return []any{
		o.ID, o.OrderID, o.UserID, items, o.Subtotal, o.Shipping, o.Tax, o.Total,
		string(o.Status), history, o.EstimatedDelivery, nullable(o.TrackingID),
		string(o.Payment.Provider), nullable(o.Payment.GatewayOrderID),
		nullable(o.Payment.GatewayPaymentID), nullable(o.Payment.GatewaySignature),
		string(o.Payment.Status), address,
	}, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o                order.Order
		items            []byte
		history          []byte
		address          []byte
		status           string
		trackingID       *string
		provider         string
		gatewayOrderID   *string
		gatewayPaymentID *string
		gatewaySig       *string
		paymentStatus    string
	)
	err := row.Scan(
		&o.ID, &o.OrderID, &o.UserID, &items, &o.Subtotal, &o.Shipping, &o.Tax, &o.Total,
		&status, &history, &o.EstimatedDelivery, &trackingID,
		&provider, &gatewayOrderID, &gatewayPaymentID, &gatewaySig, &paymentStatus,
		&address, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return o, err
	}

	if err := json.Unmarshal(items, &o.Items); err != nil {
		return o, fmt.Errorf("unmarshaling order items: %w", err)
	}
	if err := json.Unmarshal(history, &o.StatusHistory); err != nil {
		return o, fmt.Errorf("unmarshaling status history: %w", err)
	}
	var addr user.Address
	if err := json.Unmarshal(address, &addr); err != nil {
		return o, fmt.Errorf("unmarshaling shipping address: %w", err)
	}

	o.Status = order.Status(status)
	o.TrackingID = deref(trackingID)
	o.Payment = order.Payment{
		Provider:         order.Provider(provider),
		GatewayOrderID:   deref(gatewayOrderID),
		GatewayPaymentID: deref(gatewayPaymentID),
		GatewaySignature: deref(gatewaySig),
		Status:           order.PaymentStatus(paymentStatus),
	}
	o.ShippingAddress = addr
	return o, nil
}

// nullable maps empty strings to NULL so partial unique indexes and
// "unset" semantics work.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
