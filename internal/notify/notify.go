// Package notify queues customer and operator notifications onto Redis
// lists. Enqueueing is best-effort from the caller's point of view; delivery
// and retries belong to the worker.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/maisonverre/storefront-api/internal/domain/order"
)

const (
	// QueueOrders is the Redis list key for order confirmation jobs.
	QueueOrders = "notify:orders"
	// QueueAlerts is the Redis list key for operator alert jobs.
	QueueAlerts = "notify:alerts"
	// QueueDLQ holds jobs that exhausted their retries.
	QueueDLQ = "notify:dlq"
	// MaxAttempts is how many times a job runs before landing in the DLQ.
	MaxAttempts = 3
	// RetryBackoff is the pause before a failed job is retried.
	RetryBackoff = 10 * time.Second
)

// Kind identifies the job payload type.
type Kind string

const (
	KindOrderConfirmed Kind = "order_confirmed"
	KindLowStock       Kind = "low_stock"
)

// OrderConfirmedPayload carries everything the confirmation email needs, so
// the worker never has to read the database.
type OrderConfirmedPayload struct {
	OrderID           string          `json:"orderId"`
	Email             string          `json:"email"`
	Name              string          `json:"name"`
	Total             decimal.Decimal `json:"total"`
	EstimatedDelivery time.Time       `json:"estimatedDelivery"`
}

// LowStockPayload alerts operators when a product's stock crosses the
// reorder threshold.
type LowStockPayload struct {
	ProductID string `json:"productId"`
	Title     string `json:"title"`
	Stock     int    `json:"stock"`
}

// Job is the envelope pushed onto the Redis lists.
type Job struct {
	ID        string          `json:"id"`
	Kind      Kind            `json:"kind"`
	Payload   json.RawMessage `json:"payload"`
	Attempt   int             `json:"attempt"`
	CreatedAt time.Time       `json:"createdAt"`
}

var _ order.Notifier = (*Queue)(nil)

// Queue enqueues and dequeues notification jobs via Redis lists.
type Queue struct {
	client *redis.Client
}

// NewQueue creates a Redis-backed notification queue.
func NewQueue(client *redis.Client) *Queue {
	return &Queue{client: client}
}

// OrderConfirmed enqueues the order confirmation email job.
func (q *Queue) OrderConfirmed(ctx context.Context, o *order.Order, email, name string) error {
	return q.enqueue(ctx, QueueOrders, KindOrderConfirmed, OrderConfirmedPayload{
		OrderID:           o.OrderID,
		Email:             email,
		Name:              name,
		Total:             o.Total,
		EstimatedDelivery: o.EstimatedDelivery,
	})
}

// LowStock enqueues an operator alert for a product running low.
func (q *Queue) LowStock(ctx context.Context, productID, title string, stock int) error {
	return q.enqueue(ctx, QueueAlerts, KindLowStock, LowStockPayload{
		ProductID: productID,
		Title:     title,
		Stock:     stock,
	})
}

func (q *Queue) enqueue(ctx context.Context, key string, kind Kind, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling %s payload: %w", kind, err)
	}
	job := Job{
		ID:        uuid.NewString(),
		Kind:      kind,
		Payload:   body,
		CreatedAt: time.Now(),
	}
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshaling %s job: %w", kind, err)
	}
	if err := q.client.RPush(ctx, key, raw).Err(); err != nil {
		return fmt.Errorf("enqueueing %s job: %w", kind, err)
	}
	zctx.From(ctx).Debug("notification enqueued",
		zap.String("job_id", job.ID), zap.String("kind", string(kind)))
	return nil
}

// Dequeue blocks until a job arrives on any notification list or ctx is
// done. Malformed entries are dropped with a warning and a nil job.
func (q *Queue) Dequeue(ctx context.Context) (*Job, error) {
	result, err := q.client.BLPop(ctx, 0, QueueOrders, QueueAlerts).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	if len(result) < 2 {
		return nil, nil
	}
	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		zctx.From(ctx).Warn("dropping malformed notification job",
			zap.String("raw", result[1]), zap.Error(err))
		return nil, nil
	}
	return &job, nil
}

// Retry re-enqueues a failed job with its attempt counter bumped, or moves
// it to the DLQ once the attempts run out.
func (q *Queue) Retry(ctx context.Context, job *Job) error {
	job.Attempt++
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshaling retried job: %w", err)
	}

	key := QueueOrders
	if job.Kind == KindLowStock {
		key = QueueAlerts
	}
	if job.Attempt >= MaxAttempts {
		key = QueueDLQ
	}
	if err := q.client.RPush(ctx, key, raw).Err(); err != nil {
		return fmt.Errorf("re-enqueueing job %q: %w", job.ID, err)
	}
	if key == QueueDLQ {
		zctx.From(ctx).Warn("notification job moved to DLQ",
			zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
	}
	return nil
}

// Nop is a Notifier that discards everything. Used when Redis is not
// configured.
type Nop struct{}

func (Nop) OrderConfirmed(context.Context, *order.Order, string, string) error { return nil }

func (Nop) LowStock(context.Context, string, string, int) error { return nil }
