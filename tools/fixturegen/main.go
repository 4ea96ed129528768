// Command fixturegen writes a synthetic alias set for offline rehearsals
// with aliasvault --fixture.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/wesm/aliasvault/internal/icloud"
)

// maxCount stays well below the number of distinct addresses Generate can form.
const maxCount = 20000

var (
	countFlag    int
	inactiveFlag float64
	seedFlag     uint64
	forceFlag    bool
)

var rootCmd = &cobra.Command{
	Use:   "fixturegen <output.json>",
	Short: "Generate a synthetic alias fixture",
	Long: `fixturegen writes a JSON fixture of made-up Hide My Email aliases so
bulk operations can be rehearsed without touching a real account:

  fixturegen --count 200 aliases.json
  aliasvault --fixture aliases.json --fixture-write purge --filter amazon`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if countFlag <= 0 || countFlag > maxCount {
			return fmt.Errorf("--count must be between 1 and %d, got %d", maxCount, countFlag)
		}
		if inactiveFlag < 0 || inactiveFlag > 1 {
			return fmt.Errorf("--inactive must be between 0 and 1, got %v", inactiveFlag)
		}

		path := args[0]
		if _, err := os.Stat(path); err == nil && !forceFlag {
			return fmt.Errorf("%s exists; use --force to overwrite", path)
		}

		recs := Generate(countFlag, inactiveFlag, seedFlag)
		if err := icloud.NewMockAPI(recs...).SaveFixture(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d aliases to %s\n", len(recs), path)
		return nil
	},
}

func init() {
	rootCmd.Flags().IntVar(&countFlag, "count", 50, "number of aliases")
	rootCmd.Flags().Float64Var(&inactiveFlag, "inactive", 0.3, "fraction of aliases that are inactive")
	rootCmd.Flags().Uint64Var(&seedFlag, "seed", 1, "random seed; the same seed gives the same fixture")
	rootCmd.Flags().BoolVar(&forceFlag, "force", false, "overwrite an existing file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
