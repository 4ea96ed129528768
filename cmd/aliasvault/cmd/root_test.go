package cmd

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/wesm/aliasvault/internal/alias"
	"github.com/wesm/aliasvault/internal/icloud"
	"github.com/wesm/aliasvault/internal/testutil"
)

// newTestRootCmd creates a fresh root command for testing, avoiding mutation
// of the global rootCmd.
func newTestRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "aliasvault",
		Short: "Bulk lifecycle management for Hide My Email aliases",
	}
}

// TestExecuteContext_CancellationPropagates verifies that context cancellation
// from ExecuteContext propagates to command handlers.
func TestExecuteContext_CancellationPropagates(t *testing.T) {
	var contextWasCancelled atomic.Bool
	handlerStarted := make(chan struct{})

	testRoot := newTestRootCmd()
	testRoot.AddCommand(&cobra.Command{
		Use: "test-cancel",
		RunE: func(cmd *cobra.Command, args []string) error {
			close(handlerStarted)
			select {
			case <-cmd.Context().Done():
				contextWasCancelled.Store(true)
				return cmd.Context().Err()
			case <-time.After(5 * time.Second):
				return nil
			}
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		testRoot.SetArgs([]string{"test-cancel"})
		done <- testRoot.ExecuteContext(ctx)
	}()

	select {
	case <-handlerStarted:
	case <-time.After(2 * time.Second):
		t.Fatal("command handler did not start in time")
	}

	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("expected context.Canceled error, got: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("ExecuteContext did not return after context cancellation")
	}

	if !contextWasCancelled.Load() {
		t.Error("command did not observe context cancellation")
	}
}

// TestExecuteContext_PropagatesContext verifies ExecuteContext passes context
// to command handlers.
//
// NOTE: This test modifies the package-level rootCmd variable and must NOT use t.Parallel().
func TestExecuteContext_PropagatesContext(t *testing.T) {
	savedRootCmd := rootCmd
	defer func() { rootCmd = savedRootCmd }()

	testRoot := newTestRootCmd()
	type ctxKey string
	var receivedCtx context.Context
	testRoot.AddCommand(&cobra.Command{
		Use: "test-ctx",
		RunE: func(cmd *cobra.Command, args []string) error {
			receivedCtx = cmd.Context()
			return nil
		},
	})
	rootCmd = testRoot

	ctx := context.WithValue(context.Background(), ctxKey("k"), "v")
	testRoot.SetArgs([]string{"test-ctx"})
	if err := ExecuteContext(ctx); err != nil {
		t.Fatalf("ExecuteContext returned unexpected error: %v", err)
	}
	if receivedCtx == nil || receivedCtx.Value(ctxKey("k")) != "v" {
		t.Error("command did not receive the caller's context")
	}
}

// resetGlobals restores flag-bound globals after a test drives rootCmd.
func resetGlobals(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		cfgFile, homeDir, fixturePath = "", "", ""
		verbose, fixtureWrite, noForms = false, false, false
		cfg, logger = nil, nil
		rootCmd.SetArgs(nil)
	})
}

// TestRootCmd_FixtureDeactivate drives the real command tree against a
// fixture and checks the change is written back.
//
// NOTE: This test uses the package-level rootCmd and must NOT use t.Parallel().
func TestRootCmd_FixtureDeactivate(t *testing.T) {
	resetGlobals(t)

	home := t.TempDir()
	testutil.WriteFile(t, home, "config.toml", "[execution]\nitem_delay = \"0s\"\n")
	fixture := testutil.WriteFile(t, home, "aliases.json", `{
  "aliases": [
    {"address": "shop.amazon@icloud.com", "label": "Amazon Order"},
    {"address": "promo.target@icloud.com", "label": "Target Promo"}
  ]
}`)

	rootCmd.SetArgs([]string{
		"--home", home,
		"--fixture", fixture,
		"--fixture-write",
		"deactivate", "--filter", "amazon", "--yes",
	})
	if err := ExecuteContext(context.Background()); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	m, err := icloud.LoadFixture(fixture)
	testutil.MustNoErr(t, err, "reload fixture")
	got := map[string]alias.Status{}
	for _, a := range m.Aliases() {
		got[a.Address] = a.Status
	}
	if got["shop.amazon@icloud.com"] != alias.StatusInactive {
		t.Errorf("amazon alias = %q, want inactive", got["shop.amazon@icloud.com"])
	}
	if got["promo.target@icloud.com"] != alias.StatusActive {
		t.Errorf("target alias = %q, want active", got["promo.target@icloud.com"])
	}
	testutil.MustNotExist(t, filepath.Join(home, "journal"))
}

// NOTE: This test uses the package-level rootCmd and must NOT use t.Parallel().
func TestRootCmd_FixtureWriteRequiresFixture(t *testing.T) {
	resetGlobals(t)

	rootCmd.SetArgs([]string{"--home", t.TempDir(), "--fixture-write", "preview"})
	if err := ExecuteContext(context.Background()); err == nil {
		t.Fatal("expected error for --fixture-write without --fixture")
	}
}
