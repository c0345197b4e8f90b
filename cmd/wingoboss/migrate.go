package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/wingoboss/wingoboss-api/internal/config"
	"github.com/wingoboss/wingoboss-api/internal/migrations"
	"github.com/wingoboss/wingoboss-api/internal/storage/repository"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL schema",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withStorage(cmd, func(db *repository.Storage, path string) error {
					return migrations.Run(db.DB, path)
				})
			},
		},
		&cobra.Command{
			Use:   "down [steps]",
			Short: "Roll back migrations, one step by default",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				steps := 1
				if len(args) == 1 {
					n, err := strconv.Atoi(args[0])
					if err != nil || n <= 0 {
						return fmt.Errorf("steps must be a positive number, got %q", args[0])
					}
					steps = n
				}
				return withStorage(cmd, func(db *repository.Storage, path string) error {
					return migrations.Down(db.DB, path, steps)
				})
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withStorage(cmd, func(db *repository.Storage, path string) error {
					v, dirty, err := migrations.Version(db.DB, path)
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", v, dirty)
					return nil
				})
			},
		},
	)
	return cmd
}

func withStorage(cmd *cobra.Command, fn func(db *repository.Storage, path string) error) error {
	cfg := config.MustLoad()
	if cfg.Driver != "" && cfg.Driver != "postgres" {
		return fmt.Errorf("migrations apply to postgres only, storage driver is %q", cfg.Driver)
	}
	db, err := repository.New(cmd.Context(), cfg.ConnectionString)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(db, cfg.MigrationsPath)
}
