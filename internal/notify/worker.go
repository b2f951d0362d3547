package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// Sender delivers one notification. Implementations talk to the mail or
// messaging provider.
type Sender interface {
	SendOrderConfirmed(ctx context.Context, p OrderConfirmedPayload) error
	SendLowStock(ctx context.Context, p LowStockPayload) error
}

// Worker drains the notification queues and hands jobs to a Sender.
type Worker struct {
	queue  *Queue
	sender Sender
}

// NewWorker creates a notification worker.
func NewWorker(queue *Queue, sender Sender) *Worker {
	return &Worker{queue: queue, sender: sender}
}

// Run blocks draining the queues until ctx is done. Failed jobs are retried
// with backoff and eventually land in the DLQ.
func (w *Worker) Run(ctx context.Context) error {
	lg := zctx.From(ctx)
	for {
		select {
		case <-ctx.Done():
			lg.Info("notification worker stopping")
			return ctx.Err()
		default:
		}

		job, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lg.Warn("dequeue failed", zap.Error(err))
			time.Sleep(RetryBackoff)
			continue
		}
		if job == nil {
			continue
		}

		if err := w.process(ctx, job); err != nil {
			lg.Error("notification job failed",
				zap.String("job_id", job.ID), zap.String("kind", string(job.Kind)), zap.Error(err))
			if retryErr := w.queue.Retry(ctx, job); retryErr != nil {
				lg.Error("retry enqueue failed", zap.Error(retryErr))
			}
			time.Sleep(RetryBackoff)
		}
	}
}

func (w *Worker) process(ctx context.Context, job *Job) error {
	switch job.Kind {
	case KindOrderConfirmed:
		var p OrderConfirmedPayload
		if err := json.Unmarshal(job.Payload, &p); err != nil {
			return fmt.Errorf("unmarshaling payload: %w", err)
		}
		return w.sender.SendOrderConfirmed(ctx, p)
	case KindLowStock:
		var p LowStockPayload
		if err := json.Unmarshal(job.Payload, &p); err != nil {
			return fmt.Errorf("unmarshaling payload: %w", err)
		}
		return w.sender.SendLowStock(ctx, p)
	default:
		return fmt.Errorf("unknown job kind: %s", job.Kind)
	}
}

// LogSender writes notifications to the log instead of delivering them.
// Stands in until a mail provider is wired up.
type LogSender struct{}

func (LogSender) SendOrderConfirmed(ctx context.Context, p OrderConfirmedPayload) error {
	zctx.From(ctx).Info("order confirmation",
		zap.String("order_id", p.OrderID),
		zap.String("email", p.Email),
		zap.String("total", p.Total.String()))
	return nil
}

func (LogSender) SendLowStock(ctx context.Context, p LowStockPayload) error {
	zctx.From(ctx).Info("low stock alert",
		zap.String("product_id", p.ProductID),
		zap.String("title", p.Title),
		zap.Int("stock", p.Stock))
	return nil
}
