// Package prompt implements the interactive front ends: the confirmation
// questions asked by the gate and the menu used by the interactive loop.
package prompt

import (
	"context"
	"errors"
	"io"
	"os"
	"strconv"

	"github.com/mattn/go-isatty"
	"github.com/wesm/aliasvault/internal/bulk"
	"github.com/wesm/aliasvault/internal/confirm"
	"github.com/wesm/aliasvault/internal/preview"
)

// ErrExit is returned by SelectMode when the user chooses to leave the menu.
var ErrExit = errors.New("exit requested")

// Prompter is everything the interactive loop asks of a user.
type Prompter interface {
	confirm.Prompter
	SelectMode(ctx context.Context) (bulk.Mode, error)
	SelectScope(ctx context.Context) (bulk.Scope, error)
	SelectLimit(ctx context.Context) (int, error)
	FilterTerm(ctx context.Context) (string, error)
	Again(ctx context.Context) (bool, error)
}

// Options configures a prompter.
type Options struct {
	In      io.Reader
	Out     io.Writer
	Render  preview.RenderOptions
	NoForms bool
}

// New returns a form prompter when both ends are terminals and forms are
// allowed, and a line prompter otherwise.
func New(opts Options) Prompter {
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if !opts.NoForms && isTerminal(opts.In) && isTerminal(opts.Out) {
		return NewForm(opts.In, opts.Out, opts.Render)
	}
	return NewLine(opts.In, opts.Out, opts.Render)
}

func isTerminal(v any) bool {
	f, ok := v.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// menuModes is the order modes are offered in, followed by an exit entry.
var menuModes = bulk.Modes

var scopes = []bulk.Scope{bulk.ScopeActive, bulk.ScopeInactive, bulk.ScopeAll}

// limits are the preview list sizes offered; preview.Unlimited lists all.
var limits = []int{20, 50, preview.Unlimited}

func limitLabel(n int) string {
	if n == preview.Unlimited {
		return "All"
	}
	return strconv.Itoa(n)
}

func scopeLabel(s bulk.Scope) string {
	switch s {
	case bulk.ScopeActive:
		return "Active only"
	case bulk.ScopeInactive:
		return "Inactive only"
	}
	return "Both active and inactive"
}
