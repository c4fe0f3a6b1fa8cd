package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/doogybook/backend/internal/placements"
)

func newReconcileCmd(opts *globalOptions) *cobra.Command {
	var fix, asJSON bool

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Check dogs, foster contacts and placement history for inconsistencies",
		Long: "Reports contacts whose dog count disagrees with their active foster placements, dogs with\n" +
			"more than one active foster placement, adopted dogs still in custody and broken foster pointers.\n" +
			"With --fix, contact dog counts are recomputed from active placements.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			pool, err := opts.connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			snap, err := placements.LoadSnapshot(ctx, pool)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if fix && len(placements.CountFixes(snap)) > 0 {
				n, err := placements.ApplyCountFixes(ctx, pool)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(out, "Recomputed %d contact dog counts\n", n)
				if snap, err = placements.LoadSnapshot(ctx, pool); err != nil {
					return err
				}
			}

			findings := placements.Audit(snap)
			if asJSON {
				if err := writeJSON(out, findings); err != nil {
					return err
				}
			} else {
				writeFindings(out, findings)
			}
			if len(findings) > 0 {
				return fmt.Errorf("%d findings", len(findings))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&fix, "fix", false, "Recompute contact dog counts from active placements")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print findings as JSON")
	return cmd
}

func writeFindings(w io.Writer, findings []placements.Finding) {
	if len(findings) == 0 {
		_, _ = fmt.Fprintln(w, "No inconsistencies found")
		return
	}
	for _, f := range findings {
		_, _ = fmt.Fprintf(w, "%-28s %s  %s\n", f.Kind, f.Subject, f.Detail)
	}
}

func writeJSON(w io.Writer, findings []placements.Finding) error {
	if findings == nil {
		findings = []placements.Finding{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(findings)
}
