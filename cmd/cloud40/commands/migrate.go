package commands

import (
	"context"
	"fmt"

	"github.com/Dreamer0iQ/0x40-cloud/internal/logger"
	"github.com/Dreamer0iQ/0x40-cloud/pkg/config"
	"github.com/Dreamer0iQ/0x40-cloud/pkg/vfs/store"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Long: `Run database migrations for the metadata catalog.

This command applies pending schema changes to the configured catalog database
(SQLite or PostgreSQL). It is required after upgrading 0x40 Cloud when the
schema has changed.

Examples:
  # Run migrations with default config
  cloud40 migrate

  # Run migrations with custom config
  cloud40 migrate --config /etc/cloud40/config.yaml`,
	RunE: runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	if err := InitLogger(cfg); err != nil {
		return err
	}

	logger.Info("Running database migrations", "type", cfg.Database.Type)

	// Opening the store triggers auto-migration.
	ctx := context.Background()
	catalog, err := store.New(&cfg.Database)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	defer func() { _ = catalog.Close() }()

	// Verify the schema is usable by running a trivial query.
	if _, err := catalog.ListUsers(ctx); err != nil {
		return fmt.Errorf("migration verification failed: %w", err)
	}

	fmt.Printf("Migrations completed successfully (database type: %s)\n", cfg.Database.Type)
	return nil
}
