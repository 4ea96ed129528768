package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/wesm/aliasvault/internal/bulk"
	"github.com/wesm/aliasvault/internal/prompt"
)

var interactiveCmd = &cobra.Command{
	Use:   "interactive",
	Short: "Choose operations from a menu",
	Long: `Run operations from a menu. After each operation a summary is
printed and you can choose another. Every operation re-reads the aliases
from the service, so earlier changes are always reflected.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		r, closeAPI, err := newRunner(false, 0)
		if err != nil {
			return err
		}
		defer closeWith(closeAPI, &err)

		return interactiveLoop(cmd.Context(), r, r.menu)
	},
}

// interactiveLoop asks for a mode and filter, runs it, and repeats until the
// user exits or the context is cancelled.
func interactiveLoop(ctx context.Context, r *runner, menu prompt.Prompter) error {
	for {
		req, limit, err := askRequest(ctx, menu)
		if errors.Is(err, prompt.ErrExit) {
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return errInterrupted
			}
			return err
		}

		rr := *r
		if limit != 0 {
			rr.render.Limit = limit
		}
		sum, err := rr.run(ctx, req)
		if interrupted(ctx, sum) {
			return errInterrupted
		}
		if err != nil {
			// Nothing changed; report and offer the menu again.
			r.logger.Error("operation failed", "mode", string(req.Mode), "error", err)
			fmt.Fprintf(r.out, "\nError: %v\n", err)
		}

		again, err := menu.Again(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return errInterrupted
			}
			return nil
		}
		if !again {
			return nil
		}
	}
}

// askRequest collects one request. For previews it also returns the list
// size chosen; zero keeps the configured one.
func askRequest(ctx context.Context, menu prompt.Prompter) (bulk.Request, int, error) {
	mode, err := menu.SelectMode(ctx)
	if err != nil {
		return bulk.Request{}, 0, err
	}
	req := bulk.Request{Mode: mode}
	var limit int
	if mode == bulk.ModePreview {
		if req.Scope, err = menu.SelectScope(ctx); err != nil {
			return bulk.Request{}, 0, err
		}
		if limit, err = menu.SelectLimit(ctx); err != nil {
			return bulk.Request{}, 0, err
		}
	}
	if req.Filter, err = menu.FilterTerm(ctx); err != nil {
		return bulk.Request{}, 0, err
	}
	return req, limit, nil
}

func init() {
	rootCmd.AddCommand(interactiveCmd)
}
