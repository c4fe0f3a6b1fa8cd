// Package cli implements doogyctl, the operator command line for schema and data maintenance.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/doogybook/backend/config"
	"github.com/doogybook/backend/pkg/database"
)

type globalOptions struct {
	databaseURL string
	verbose     bool
}

// NewRootCmd builds the doogyctl command tree.
func NewRootCmd(version string) *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:          "doogyctl",
		Short:        "Doogybook operator tools",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.databaseURL, "database-url", "", "PostgreSQL URL (default: DATABASE_URL or DB_* settings)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log to stderr")

	cmd.AddCommand(newMigrateCmd(opts))
	cmd.AddCommand(newReconcileCmd(opts))

	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)

	cmd.SetVersionTemplate("{{.Version}}\n")
	if version != "" {
		cmd.Version = version
	} else {
		cmd.Version = "dev"
	}
	return cmd
}

func (o *globalOptions) logger() *zap.Logger {
	if !o.verbose {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// connect opens a pool using the flag override or the service configuration.
func (o *globalOptions) connect(ctx context.Context) (*pgxpool.Pool, error) {
	dsn := o.databaseURL
	var maxConns int32
	if dsn == "" {
		cfg, err := config.Load()
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		dsn = cfg.Database.DSN()
		maxConns = cfg.Database.MaxConns
	}
	return database.NewPostgresPool(ctx, dsn, maxConns, o.logger())
}
