package main

import (
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"jobtrack/internal/db"
)

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long:  `Create or update the users table. With --reset the table is dropped first.`,
		RunE:  runMigrate,
	}
	cmd.Flags().Bool("reset", false, "drop all tables before migrating")
	return cmd
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	reset, err := cmd.Flags().GetBool("reset")
	if err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}

	cmd.Println("Connecting to database...")
	gormDB, err := db.Open(cmd.Context(), cfg.DBDriver, cfg.DatabaseDSN)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	defer func() { _ = db.Close(gormDB) }()

	if reset {
		cmd.Println("Dropping tables...")
	}
	cmd.Println("Running migrations...")
	if err := db.Migrate(gormDB, reset); err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "run migrations").Wrap(err)
	}

	cmd.Println("Migrations completed successfully")
	return nil
}
