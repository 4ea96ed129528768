package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/wesm/aliasvault/internal/config"
)

var (
	cfgFile      string
	homeDir      string
	verbose      bool
	fixturePath  string // Offline rehearsal against a JSON fixture
	fixtureWrite bool
	noForms      bool
	cfg          *config.Config
	logger       *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "aliasvault",
	Short: "Bulk lifecycle management for Hide My Email aliases",
	Long: `aliasvault previews, deactivates, and deletes Hide My Email aliases in
bulk. Every change is previewed and confirmed first, runs one alias at a
time with pacing, and can be interrupted safely with Ctrl+C.

Authentication uses the Cookie header of a signed-in icloud.com browser
session, saved to the session file named in config.toml.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Set up logging
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		}))
		slog.SetDefault(logger)

		// --home is passed through so it influences where config.toml is
		// loaded from, like ALIASVAULT_HOME.
		var err error
		cfg, err = config.Load(cfgFile, homeDir)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		if err := cfg.EnsureHomeDir(); err != nil {
			return fmt.Errorf("create home directory %s: %w", cfg.HomeDir, err)
		}
		return nil
	},
}

// ExecuteContext runs the root command with the given context,
// enabling graceful shutdown when the context is cancelled.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.aliasvault/config.toml)")
	rootCmd.PersistentFlags().StringVar(&homeDir, "home", "", "home directory (overrides ALIASVAULT_HOME)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&fixturePath, "fixture", "", "use aliases from a JSON fixture instead of the service")
	rootCmd.PersistentFlags().BoolVar(&fixtureWrite, "fixture-write", false, "write changes back to the --fixture file")
	rootCmd.PersistentFlags().BoolVar(&noForms, "no-forms", false, "use plain line prompts even on a terminal")
}
