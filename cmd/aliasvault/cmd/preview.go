package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/wesm/aliasvault/internal/bulk"
)

var (
	previewFilter string
	previewScope  string
	previewLimit  int
)

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Show which aliases match a filter without changing anything",
	Long: `Preview aliases matching an optional filter. The filter is a
case-insensitive substring of the address or label.

Examples:
  aliasvault preview
  aliasvault preview --filter amazon --scope active
  aliasvault preview --scope inactive --limit 200`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		scope, err := bulk.ParseScope(previewScope)
		if err != nil {
			return err
		}
		if previewLimit < 0 {
			return fmt.Errorf("--limit must not be negative")
		}

		r, closeAPI, err := newRunner(false, previewLimit)
		if err != nil {
			return err
		}
		defer closeWith(closeAPI, &err)

		_, err = r.run(cmd.Context(), bulk.Request{Mode: bulk.ModePreview, Filter: previewFilter, Scope: scope})
		return err
	},
}

func init() {
	previewCmd.Flags().StringVar(&previewFilter, "filter", "", "case-insensitive substring of address or label")
	previewCmd.Flags().StringVar(&previewScope, "scope", "all", "which aliases: active, inactive, or all")
	previewCmd.Flags().IntVar(&previewLimit, "limit", 0, "maximum aliases to list (default from config)")
	rootCmd.AddCommand(previewCmd)
}
