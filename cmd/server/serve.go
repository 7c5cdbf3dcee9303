package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Priya8975/webhook-exposee/internal/api"
	"github.com/Priya8975/webhook-exposee/internal/config"
	"github.com/Priya8975/webhook-exposee/internal/engine"
	"github.com/Priya8975/webhook-exposee/internal/metrics"
	"github.com/Priya8975/webhook-exposee/internal/store"
	ws "github.com/Priya8975/webhook-exposee/internal/websocket"
	"github.com/Priya8975/webhook-exposee/internal/worker"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the webhook HTTP server (default)",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry, err := openRegistry(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer registry.Close()

	m := metrics.New()
	hub := ws.NewHub(logger)
	go hub.Run(ctx)

	deps := api.Deps{
		Registry:  registry,
		Hub:       hub,
		Metrics:   m,
		RateLimit: cfg.TriggerRateLimit,
		Logger:    logger,
	}
	dispatcherOpts := []engine.DispatcherOption{
		engine.WithObserver(m),
		engine.WithObserver(hub),
	}

	if cfg.RedisURL != "" {
		redisStore, err := store.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer redisStore.Close()
		logger.Info("connected to Redis")

		deps.Redis = redisStore
		deps.PingStatus = store.NewPingStatusStore(redisStore.Client(), cfg.PingStatusTTL)
		deps.Limiter = engine.NewRateLimiter(redisStore.Client(), logger)
		dispatcherOpts = append(dispatcherOpts, engine.WithPingRecorder(deps.PingStatus))
	} else {
		logger.Info("redis disabled (REDIS_URL not set): no ping status or trigger rate limit")
	}

	delivererOpts := []worker.Option{worker.WithTimeout(cfg.DeliveryTimeout)}
	if cfg.SigningSecret != "" {
		delivererOpts = append(delivererOpts, worker.WithSigningSecret(cfg.SigningSecret))
	}
	deliverer := worker.NewDeliverer(logger, delivererOpts...)
	pool := worker.NewPool(cfg.NumWorkers, logger)
	deps.Dispatcher = engine.NewDispatcher(registry, deliverer, pool, logger, dispatcherOpts...)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      api.NewRouter(deps),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: writeTimeout(cfg),
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			"port", cfg.Port,
			"storage", cfg.StorageDriver,
			"workers", pool.Size(),
			"delivery_timeout", cfg.DeliveryTimeout.String(),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		return err
	}

	logger.Info("server stopped")
	return nil
}

// writeTimeout leaves room for a trigger whose deliveries all run to the
// delivery timeout.
func writeTimeout(cfg *config.Config) time.Duration {
	if t := cfg.DeliveryTimeout + 10*time.Second; t > 15*time.Second {
		return t
	}
	return 15 * time.Second
}
