package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Priya8975/webhook-exposee/internal/receiver"
	"github.com/kelseyhightower/envconfig"
)

type receiverConfig struct {
	Port          string        `envconfig:"PORT" default:"9090"`
	SigningSecret string        `envconfig:"SIGNING_SECRET"`
	SlowDelay     time.Duration `envconfig:"SLOW_DELAY" default:"3s"`
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	var cfg receiverConfig
	if err := envconfig.Process("", &cfg); err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	rc := receiver.New(cfg.SigningSecret, cfg.SlowDelay, logger)
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      rc.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.SlowDelay + 15*time.Second,
	}

	go func() {
		logger.Info("receiver starting",
			"port", cfg.Port,
			"signed", cfg.SigningSecret != "",
			"routes", []string{"POST /webhook/success", "POST /webhook/slow", "POST /webhook/fail", "GET /stats"},
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("receiver forced to shutdown", "error", err)
		os.Exit(1)
	}
	logger.Info("receiver stopped")
}
