package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/tradewindhq/tradewind/internal/catalog"
	"github.com/tradewindhq/tradewind/internal/database"
)

var seedFile string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load catalog fixtures into the database",
	Long: `Loads product fixtures from a YAML file into the catalog. Products
whose slug already exists are skipped, so the command is safe to re-run.`,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().StringVar(&seedFile, "file", "db/seed/products.yaml", "path to the product fixture file")
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := database.NewMariaDB(cfg.Database)
	if err != nil {
		return fmt.Errorf("connecting to MariaDB: %w", err)
	}
	defer db.Close()

	service := catalog.NewService(catalog.NewRepository(db))

	created, err := catalog.Seed(cmd.Context(), service, seedFile)
	if err != nil {
		return err
	}

	slog.Info("seed complete",
		slog.Int("created", created),
		slog.String("file", seedFile),
	)
	return nil
}
