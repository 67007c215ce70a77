package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tradewindhq/tradewind/internal/app"
	"github.com/tradewindhq/tradewind/internal/database"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Tradewind HTTP server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	slog.Info("starting Tradewind",
		slog.String("env", cfg.Env),
		slog.Int("port", cfg.Port),
	)

	db, err := database.NewMariaDB(cfg.Database)
	if err != nil {
		return fmt.Errorf("connecting to MariaDB: %w", err)
	}
	defer db.Close()
	slog.Info("connected to MariaDB")

	rdb, err := database.NewRedis(cfg.Redis)
	if err != nil {
		return fmt.Errorf("connecting to Redis: %w", err)
	}
	defer rdb.Close()
	slog.Info("connected to Redis")

	// Apply pending migrations on startup so deploys are one step.
	if err := database.RunMigrations(db, migrationsPath); err != nil {
		return err
	}

	application, err := app.New(cfg, db, rdb)
	if err != nil {
		return fmt.Errorf("wiring application: %w", err)
	}

	// Register all routes (storefront, cart, auth, admin, health).
	application.RegisterRoutes()

	// Background jobs: session refresh sweep and auth event retention.
	jobs := application.StartJobs()
	defer jobs.Stop()

	// Graceful shutdown: listen for interrupt/term signals to drain
	// connections cleanly so container restarts are seamless.
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		slog.Info("shutting down server...")

		// Give in-flight requests 10 seconds to complete.
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := application.Echo.Shutdown(ctx); err != nil {
			slog.Error("server forced shutdown", slog.Any("error", err))
		}
	}()

	if err := application.Start(); err != nil {
		// Echo returns http.ErrServerClosed on graceful shutdown, which is expected.
		slog.Info("server stopped", slog.Any("reason", err))
	}
	return nil
}
