package cmd

import (
	"github.com/spf13/cobra"
	"github.com/wesm/aliasvault/internal/bulk"
)

// operationFlags are shared by the mutating commands.
type operationFlags struct {
	filter string
	yes    bool
	dryRun bool
}

func newOperationCmd(mode bulk.Mode, long string) *cobra.Command {
	var f operationFlags
	cmd := &cobra.Command{
		Use:   string(mode),
		Short: mode.Describe(),
		Long:  long,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			r, closeAPI, err := newRunner(f.yes, 0)
			if err != nil {
				return err
			}
			defer closeWith(closeAPI, &err)

			ctx := cmd.Context()
			sum, err := r.run(ctx, bulk.Request{Mode: mode, Filter: f.filter, DryRun: f.dryRun})
			if err != nil {
				return err
			}
			if interrupted(ctx, sum) {
				return errInterrupted
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&f.filter, "filter", "", "case-insensitive substring of address or label")
	cmd.Flags().BoolVarP(&f.yes, "yes", "y", false, "answer yes to every confirmation (dangerous)")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "show what would change and stop")
	return cmd
}

func init() {
	rootCmd.AddCommand(
		newOperationCmd(bulk.ModeDeactivate, `Deactivate active aliases matching an optional filter. Deactivated
aliases stop forwarding mail and can be reactivated later.

Examples:
  aliasvault deactivate --filter newsletter
  aliasvault deactivate --filter shop --dry-run`),
		newOperationCmd(bulk.ModeDelete, `Permanently delete inactive aliases matching an optional filter.
Deletion cannot be undone; you will be asked to confirm twice.

Examples:
  aliasvault delete --filter old
  aliasvault delete --dry-run`),
		newOperationCmd(bulk.ModePurge, `Deactivate matching active aliases, then delete every matching
inactive alias. The delete step only runs if the deactivate step finished.
Without --filter this removes every alias in the account.

Examples:
  aliasvault purge --filter test
  aliasvault purge --dry-run`),
	)
}
