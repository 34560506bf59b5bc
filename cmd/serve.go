package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"userapi/internal/api"
	"userapi/internal/api/handler/v1handler"
	"userapi/internal/config"
	"userapi/internal/users"
	"userapi/internal/worker"
	"userapi/pkg/logger"
	"userapi/pkg/metrics"
	"userapi/pkg/notifier"
	"userapi/pkg/notifier/webhook"
	"userapi/pkg/storage"
	"userapi/pkg/storage/cache"
	"userapi/pkg/storage/memory"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func setupServer(ctx context.Context, cfg *config.Config, svc users.Service) func(ctx context.Context) {
	server, err := api.NewServer(api.Deps{
		Deps: v1handler.Deps{Users: svc},
	}, api.NewOptions(cfg))
	if err != nil {
		logger.Fatal(ctx, "could not create webserver", zap.Error(err))
	}

	go func() {
		logger.Info(ctx, "starting webserver...", zap.String("addr", cfg.HTTP.Addr))
		if err := server.ListenAndServe(); err != nil {
			if !errors.Is(err, http.ErrServerClosed) {
				logger.Error(ctx, "could not start webserver", zap.Error(err))
			}
		}
	}()

	return func(ctx context.Context) {
		logger.Info(ctx, "stopping webserver...")
		if err := server.Shutdown(ctx); err != nil {
			logger.Error(ctx, "could not stop webserver", zap.Error(err))
		}
	}
}

func newNotifier(cfg *config.Config) notifier.Client {
	if cfg.Notifier.WebhookURL == "" {
		return notifier.Noop{}
	}

	return webhook.New(&http.Client{Timeout: cfg.Notifier.Timeout}, cfg.Notifier.WebhookURL, cfg.Notifier.Secret)
}

func serveCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Starts API server and background workers",
		Run: func(cmd *cobra.Command, args []string) {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			mp, err := metrics.NewMeterProvider(prometheus.DefaultRegisterer)
			if err != nil {
				logger.Fatal(ctx, "could not create meter provider", zap.Error(err))
			}
			defer func() { _ = mp.Shutdown(context.Background()) }()

			var strg storage.Storage
			stopWorker := func(context.Context) {}

			switch cfg.Storage.Driver {
			case config.StorageDriverMemory:
				logger.Warn(ctx, "using in-memory storage, users are lost on restart and no notifications are sent")
				strg = memory.New()
			default:
				pgsql, closeStrg := getPostgres(ctx, cfg)
				defer closeStrg()
				strg = pgsql

				jobs, err := worker.Start(ctx, pgsql.Pool, newNotifier(cfg), worker.NewOptions(cfg))
				if err != nil {
					logger.Fatal(ctx, "could not start worker", zap.Error(err))
				}
				stopWorker = func(ctx context.Context) {
					logger.Info(ctx, "stopping worker...")
					if err := jobs.Stop(ctx); err != nil {
						logger.Error(ctx, "could not stop worker", zap.Error(err))
					}
				}
			}

			if cfg.Cache.RedisAddr != "" {
				rdb := redis.NewClient(&redis.Options{
					Addr:     cfg.Cache.RedisAddr,
					Password: cfg.Cache.RedisPassword,
					DB:       cfg.Cache.RedisDB,
				})
				defer func() { _ = rdb.Close() }()
				strg = cache.New(strg, rdb, cache.Options{TTL: cfg.Cache.TTL})
			}

			svc, err := users.New(strg, users.NewOptions(cfg, mp))
			if err != nil {
				logger.Fatal(ctx, "could not create user service", zap.Error(err))
			}

			stopWebserver := setupServer(ctx, cfg, svc)

			// wait for interrupt
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.GracefulShutdownTimeout)
			defer cancel()

			stopWebserver(shutdownCtx)
			stopWorker(shutdownCtx)
		},
	}

	return cmd
}
