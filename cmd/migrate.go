package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/podscribe/podscribe-api/internal/database"
)

// migrateCmd applies the database schema
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	Long: `Create or update the SQLite schema for all Podscribe models.

Migration is idempotent: running it against an up-to-date database
makes no changes.`,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := database.Initialize(cfg.Database.Path, cfg.Database.Verbose)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer db.Close()

	if err := db.MigrateAll(); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}

	fmt.Printf("Database schema up to date at %s\n", cfg.Database.Path)
	return nil
}
