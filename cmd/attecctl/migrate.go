package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/attec/attec-api/internal/repository"
)

func migrateCmd(opts *globalOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withDatabaseURL(cmd.Context(), opts, func(ctx context.Context, url string) error {
					if err := repository.Migrate(ctx, url); err != nil {
						return err
					}
					return printVersion(ctx, cmd, url)
				})
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back every migration (drops all data)",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withDatabaseURL(cmd.Context(), opts, func(ctx context.Context, url string) error {
					if err := repository.MigrateDown(ctx, url); err != nil {
						return err
					}
					return printVersion(ctx, cmd, url)
				})
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withDatabaseURL(cmd.Context(), opts, func(ctx context.Context, url string) error {
					return printVersion(ctx, cmd, url)
				})
			},
		},
	)

	return cmd
}

func withDatabaseURL(parent context.Context, opts *globalOpts, fn func(ctx context.Context, url string) error) error {
	if parent == nil {
		parent = context.Background()
	}
	url, err := opts.resolveDatabaseURL()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(parent, dbTimeout)
	defer cancel()
	return fn(ctx, url)
}

func printVersion(ctx context.Context, cmd *cobra.Command, url string) error {
	v, err := repository.MigrationVersion(ctx, url)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schema version: %d\n", v)
	return nil
}
