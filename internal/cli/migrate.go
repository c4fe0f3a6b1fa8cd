package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/doogybook/backend/pkg/database"
)

func newMigrateCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, err := opts.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			applied, err := database.Migrate(cmd.Context(), pool)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(applied) == 0 {
				_, _ = fmt.Fprintln(out, "Schema up to date")
				return nil
			}
			for _, name := range applied {
				_, _ = fmt.Fprintf(out, "applied %s\n", name)
			}
			return nil
		},
	}
}
