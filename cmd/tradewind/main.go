// Package main is the Tradewind command-line entry point. Subcommands
// cover the HTTP server, database migrations, and catalog seeding.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/tradewindhq/tradewind/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "tradewind",
	Short: "Tradewind storefront server and tooling",
	Long: `Tradewind is an e-commerce storefront backed by a hosted identity
provider, MariaDB, and Redis. Run "tradewind serve" to start the HTTP
server, or use the migrate/seed subcommands for one-off maintenance.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig loads configuration and wires global logging, shared by every
// subcommand that touches infrastructure.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	setupLogging(cfg)
	return cfg, nil
}

// setupLogging configures the global slog logger based on the environment.
// Development uses text format for readability. Production uses JSON for
// structured log aggregation.
func setupLogging(cfg *config.Config) {
	var handler slog.Handler

	if cfg.IsDevelopment() {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: logLevel(cfg.LogLevel, slog.LevelDebug),
		})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: logLevel(cfg.LogLevel, slog.LevelInfo),
		})
	}

	slog.SetDefault(slog.New(handler))
}

// logLevel maps the configured level name to a slog level, falling back
// when the name is unrecognized or empty.
func logLevel(name string, fallback slog.Level) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return fallback
	}
}
