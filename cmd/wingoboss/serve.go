package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/wingoboss/wingoboss-api/internal/app/notifier"
	"github.com/wingoboss/wingoboss-api/internal/app/wingoboss"
	"github.com/wingoboss/wingoboss-api/internal/config"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runApp(cmd, "wingoboss api", func(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
				app, err := wingoboss.New(ctx, cfg, logger)
				if err != nil {
					return err
				}
				return app.Run(ctx)
			})
		},
	}
}

func newNotifierCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "notifier",
		Short: "Consume activation events and send receipts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runApp(cmd, "wingoboss notifier", func(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
				app, err := notifier.New(ctx, cfg, logger)
				if err != nil {
					return err
				}
				return app.Run(ctx)
			})
		},
	}
}
