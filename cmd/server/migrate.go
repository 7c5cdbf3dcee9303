package main

import (
	"context"
	"time"

	"github.com/Priya8975/webhook-exposee/internal/config"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		logger := newLogger(cfg)

		ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
		defer cancel()

		registry, err := openRegistry(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer registry.Close()

		logger.Info("database migrations applied", "driver", cfg.StorageDriver)
		return nil
	},
}
