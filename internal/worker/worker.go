package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"userapi/internal/config"
	"userapi/pkg/logger"
	"userapi/pkg/notifier"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"go.uber.org/zap/exp/zapslog"
)

// Options configure the background job client.
type Options struct {
	// Concurrency is the number of jobs worked at the same time.
	Concurrency int
	// JobTimeout bounds a single notification attempt.
	JobTimeout time.Duration
}

// NewOptions constructs an Options value from the provided application config.
func NewOptions(cfg *config.Config) Options {
	return Options{
		Concurrency: cfg.Worker.Concurrency,
		JobTimeout:  cfg.Notifier.Timeout,
	}
}

// Start registers the workers and starts processing jobs from dbPool.
// Stop the returned client to shut down.
func Start(ctx context.Context,
	dbPool *pgxpool.Pool,
	notifier notifier.Client,
	options Options) (*river.Client[pgx.Tx], error) {
	workers := river.NewWorkers()
	river.AddWorker(workers, NewUserCreatedWorker(notifier, options.JobTimeout))

	riverClient, err := river.NewClient(riverpgxv5.New(dbPool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: options.Concurrency},
		},
		Workers: workers,
		Logger:  slog.New(zapslog.NewHandler(logger.Get(ctx).Core())),
	})
	if err != nil {
		return nil, fmt.Errorf("could not create river queue client: %w", err)
	}

	if err := riverClient.Start(ctx); err != nil {
		return nil, fmt.Errorf("could not start river queue client: %w", err)
	}

	return riverClient, nil
}
