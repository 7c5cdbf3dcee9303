package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/Priya8975/webhook-exposee/internal/config"
	"github.com/Priya8975/webhook-exposee/internal/store"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "exposee",
	Short:         "Webhook registry and event dispatcher",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(eventsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
}

// openRegistry connects the configured storage driver and applies its
// migrations.
func openRegistry(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store.Registry, error) {
	switch cfg.StorageDriver {
	case config.DriverPostgres:
		pg, err := store.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		logger.Info("connected to PostgreSQL")
		if err := pg.RunMigrations(ctx); err != nil {
			pg.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
		return pg, nil
	default:
		lite, err := store.NewSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		logger.Info("opened SQLite database", "path", cfg.SQLitePath)
		return lite, nil
	}
}
