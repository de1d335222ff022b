// Package main provides attecctl, the operator CLI for the ATTEC API:
// schema migrations, user provisioning and secret generation.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/attec/attec-api/internal/config"
	"github.com/attec/attec-api/internal/repository"
)

// Version is stamped at build time.
var Version = "dev"

const dbTimeout = 30 * time.Second

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: failed to read .env: %v\n", err)
	}

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type globalOpts struct {
	databaseURL string
}

// resolveDatabaseURL prefers the flag, then DATABASE_URL.
func (o *globalOpts) resolveDatabaseURL() (string, error) {
	if o.databaseURL != "" {
		return o.databaseURL, nil
	}
	return config.LoadDatabase()
}

// openRepository connects to the database named by the options.
func (o *globalOpts) openRepository(ctx context.Context) (*repository.Repository, error) {
	url, err := o.resolveDatabaseURL()
	if err != nil {
		return nil, err
	}
	repo, err := repository.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return repo, nil
}

func rootCmd() *cobra.Command {
	opts := &globalOpts{}

	cmd := &cobra.Command{
		Use:           "attecctl",
		Short:         "Operate the ATTEC API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.databaseURL, "database-url", "", "PostgreSQL connection string (default $DATABASE_URL)")

	cmd.AddCommand(
		migrateCmd(opts),
		createAdminCmd(opts),
		createUserCmd(opts),
		updateUserCmd(opts),
		genSecretCmd(),
		hashPasswordCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "attecctl version %s\n", Version)
			},
		},
	)

	return cmd
}
