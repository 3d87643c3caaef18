package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newMigrateCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back schema migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(e, func(path string, db migrator) error {
				return db.RunMigrations(path)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the last migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(e, func(path string, db migrator) error {
				return db.MigrateDown(path)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "to <version>",
		Short: "Migrate up or down to a specific version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid version %q: %w", args[0], err)
			}
			return withDB(e, func(path string, db migrator) error {
				return db.MigrateToVersion(path, uint(version))
			})
		},
	})

	return cmd
}

type migrator interface {
	RunMigrations(migrationsPath string) error
	MigrateDown(migrationsPath string) error
	MigrateToVersion(migrationsPath string, version uint) error
}

func withDB(e *env, fn func(path string, db migrator) error) error {
	db, err := e.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := fn(e.cfg.Server.MigrationsPath, db); err != nil {
		return err
	}
	e.log.Info().Str("path", e.cfg.Server.MigrationsPath).Msg("Migrations applied")
	return nil
}
