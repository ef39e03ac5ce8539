package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"user-auth/internal/config"
	"user-auth/internal/repository/postgres"
)

var migrateDown bool

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the users schema",
		Long: `Apply the embedded migrations for the postgres driver, or create and
upgrade the users table in place for the sqlite driver.`,
		RunE: runMigrate,
	}
	cmd.Flags().BoolVar(&migrateDown, "down", false, "roll back all migrations (postgres only)")
	return cmd
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	switch cfg.Database.Driver {
	case config.DriverPostgres:
		return migratePostgres(cmd, cfg.Database.URL)
	case config.DriverMemory:
		cmd.Println("memory driver keeps no schema, nothing to migrate")
		return nil
	}

	if migrateDown {
		return fmt.Errorf("--down is not supported for the %s driver", cfg.Database.Driver)
	}
	_, closeStore, err := openUserRepository(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	closeStore()
	cmd.Println("Schema is up to date")
	return nil
}

func migratePostgres(cmd *cobra.Command, databaseURL string) error {
	migrator, err := postgres.NewMigrator(databaseURL)
	if err != nil {
		return err
	}
	defer migrator.Close()

	if migrateDown {
		cmd.Println("Rolling back migrations...")
		if err := migrator.Down(); err != nil {
			return err
		}
	} else {
		cmd.Println("Running migrations...")
		if err := migrator.Up(); err != nil {
			return err
		}
	}

	version, dirty, err := migrator.Version()
	if err != nil {
		return err
	}
	cmd.Printf("Schema version %d (dirty: %v)\n", version, dirty)
	return nil
}
