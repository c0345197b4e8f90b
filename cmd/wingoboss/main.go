// Package main WingoBoss API
//
// @title           WingoBoss API
// @version         1.0
// @description     API премиальной подписки WingoBoss: оплата, вход, страницы и админка
// @termsOfService  http://swagger.io/terms/

// @contact.name   API Support
// @contact.url    http://www.swagger.io/support
// @contact.email  support@swagger.io

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wingoboss/wingoboss-api/internal/config"
	"github.com/wingoboss/wingoboss-api/internal/lib/sl"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "wingoboss",
		Short:         "WingoBoss backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newServeCmd(),
		newNotifierCmd(),
		newMigrateCmd(),
		newHashPasswordCmd(),
	)
	return root
}

const (
	envLocal = "local"
	envProd  = "prod"
)

func setupLogger(env string) *slog.Logger {
	switch env {
	case envProd:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	case envLocal:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	default:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
}

// runApp общий запуск долгоживущих команд.
func runApp(cmd *cobra.Command, name string, start func(ctx context.Context, cfg *config.Config, logger *slog.Logger) error) error {
	cfg := config.MustLoad()
	logger := setupLogger(cfg.Env)

	logger.Info("starting "+name, slog.String("env", cfg.Env))
	if err := start(cmd.Context(), cfg, logger); err != nil {
		logger.Error(name+" stopped with error", sl.Err(err))
		return err
	}
	logger.Info(name + " stopped gracefully")
	return nil
}
