package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/wesm/aliasvault/internal/journal"
)

func openJournal() (*journal.Manager, error) {
	m, err := journal.NewManager(cfg.Journal.Dir)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	return m, nil
}

var listRunsCmd = &cobra.Command{
	Use:   "list-runs",
	Short: "List journaled runs",
	Long: `List runs recorded in the journal, newest first.

Runs are journaled only when [journal] enabled = true in config.toml.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := openJournal()
		if err != nil {
			return err
		}
		entries, err := m.List()
		if err != nil {
			return fmt.Errorf("list runs: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(entries) == 0 {
			fmt.Fprintln(out, "No runs recorded.")
			if !cfg.Journal.Enabled {
				fmt.Fprintln(out, "\nEnable the journal with [journal] enabled = true in config.toml.")
			}
			return nil
		}

		fmt.Fprintf(out, "  %-40s  %-11s  %9s  %6s  %9s  %s\n", "ID", "Outcome", "Succeeded", "Failed", "Remaining", "Started")
		fmt.Fprintf(out, "  %-40s  %-11s  %9s  %6s  %9s  %s\n", "--", "-------", "---------", "------", "---------", "-------")
		for _, e := range entries {
			fmt.Fprintf(out, "  %-40s  %-11s  %9d  %6d  %9d  %s\n",
				truncate(e.ID, 40), e.Outcome, e.Succeeded, e.Failed, e.Remaining,
				e.StartedAt.Local().Format("2006-01-02 15:04"))
		}
		return nil
	},
}

var showRunCmd = &cobra.Command{
	Use:   "show-run <run-id>",
	Short: "Show details of a journaled run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := openJournal()
		if err != nil {
			return err
		}
		e, err := m.Get(args[0])
		if err != nil {
			return fmt.Errorf("get run: %w", err)
		}
		fmt.Fprint(cmd.OutOrStdout(), e.FormatSummary())
		return nil
	},
}

// truncate shortens s to max runes, marking the cut with "...".
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}

func init() {
	rootCmd.AddCommand(listRunsCmd)
	rootCmd.AddCommand(showRunCmd)
}
