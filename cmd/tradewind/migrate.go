package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tradewindhq/tradewind/internal/database"
)

// migrationsPath is where the SQL migration files live relative to the
// working directory. Shared by serve (auto-migrate) and the migrate
// subcommand.
const migrationsPath = "db/migrations"

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations and exit",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := database.NewMariaDB(cfg.Database)
	if err != nil {
		return fmt.Errorf("connecting to MariaDB: %w", err)
	}
	defer db.Close()

	return database.RunMigrations(db, migrationsPath)
}
