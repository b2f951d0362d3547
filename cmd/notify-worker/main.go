// Command notify-worker drains the Redis notification queues and delivers
// jobs through a Sender. Failed jobs are retried with backoff and parked on
// the dead-letter list after three attempts.
package main

import (
	"context"
	"os"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/maisonverre/storefront-api/internal/notify"
)

func main() {
	app.Run(func(ctx context.Context, lg *zap.Logger, _ *app.Telemetry) error {
		redisURL := os.Getenv("VERRE_REDIS_URL")
		if redisURL == "" {
			redisURL = os.Getenv("REDIS_URL")
		}
		if redisURL == "" {
			return errors.New("redis URL is required: set VERRE_REDIS_URL or REDIS_URL")
		}

		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			return errors.Wrap(err, "parse redis url")
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			return errors.Wrap(err, "ping redis")
		}

		lg.Info("notification worker starting")

		worker := notify.NewWorker(notify.NewQueue(rdb), notify.LogSender{})
		if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return errors.Wrap(err, "worker")
		}
		return nil
	})
}
