package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/csvload/internal/config"
	"github.com/JonMunkholm/csvload/internal/migrations"
)

func migrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "manage the csvload bookkeeping tables",
	}
	cmd.AddCommand(
		migrateStep("up", "apply all pending migrations", (*migrate.Migrate).Up),
		migrateStep("down", "roll back all migrations", (*migrate.Migrate).Down),
		&cobra.Command{
			Args:  cobra.NoArgs,
			Use:   "version",
			Short: "print the current migration version",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withMigrator(func(m *migrate.Migrate) error {
					version, dirty, err := m.Version()
					if errors.Is(err, migrate.ErrNilVersion) {
						fmt.Fprintln(cmd.OutOrStdout(), "no migrations applied")
						return nil
					}
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", version, dirty)
					return nil
				})
			},
		},
	)
	return cmd
}

func migrateStep(use, short string, step func(*migrate.Migrate) error) *cobra.Command {
	return &cobra.Command{
		Args:  cobra.NoArgs,
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(m *migrate.Migrate) error {
				err := step(m)
				if errors.Is(err, migrate.ErrNoChange) {
					slog.Info("no migration changes")
					return nil
				}
				if err != nil {
					return fmt.Errorf("failed to run %s migrations: %w", use, err)
				}
				slog.Info("migrations completed", "direction", use)
				return nil
			})
		},
	}
}

// withMigrator runs fn with a migrator for the configured database.
func withMigrator(fn func(*migrate.Migrate) error) error {
	var dc config.DatabaseConfig
	if err := config.LoadInto(&dc); err != nil {
		return err
	}
	m, err := migrations.New(dc.Driver, dc.URL)
	if err != nil {
		return err
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if srcErr != nil || dbErr != nil {
			slog.Warn("failed to close migrator", "source_error", srcErr, "database_error", dbErr)
		}
	}()
	return fn(m)
}
