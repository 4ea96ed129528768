package prompt

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/wesm/aliasvault/internal/bulk"
	"github.com/wesm/aliasvault/internal/confirm"
	"github.com/wesm/aliasvault/internal/preview"
)

const exitChoice = bulk.Mode("exit")

// Form asks questions with huh forms. A form dismissed with Ctrl+C or Esc
// counts as a decline, not an error.
type Form struct {
	in     io.Reader
	out    io.Writer
	render preview.RenderOptions
}

var _ Prompter = (*Form)(nil)

// NewForm returns a form prompter.
func NewForm(in io.Reader, out io.Writer, render preview.RenderOptions) *Form {
	return &Form{in: in, out: out, render: render}
}

func (f *Form) run(ctx context.Context, fields ...huh.Field) error {
	form := huh.NewForm(huh.NewGroup(fields...)).
		WithInput(f.in).
		WithOutput(f.out).
		WithShowHelp(false)
	return form.RunWithContext(ctx)
}

// Present prints the preview report above the form.
func (f *Form) Present(r *preview.Report) error {
	return preview.Render(f.out, r, f.render)
}

// Ask shows a confirm with "No" preselected.
func (f *Form) Ask(ctx context.Context, q confirm.Question) (bool, error) {
	var ok bool
	title := "Continue?"
	if q.Stage != confirm.StageProceed {
		title = "This cannot be undone."
	}
	field := huh.NewConfirm().
		Title(title).
		Description(q.Prompt).
		Affirmative("Yes").
		Negative("No").
		Value(&ok)
	if err := f.run(ctx, field); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return false, nil
		}
		return false, err
	}
	return ok, nil
}

// SelectMode shows the operation menu.
func (f *Form) SelectMode(ctx context.Context) (bulk.Mode, error) {
	opts := make([]huh.Option[bulk.Mode], 0, len(menuModes)+1)
	for _, m := range menuModes {
		opts = append(opts, huh.NewOption(m.Describe(), m))
	}
	opts = append(opts, huh.NewOption("Exit", exitChoice))

	var mode bulk.Mode
	field := huh.NewSelect[bulk.Mode]().
		Title("Select an operation").
		Options(opts...).
		Value(&mode)
	if err := f.run(ctx, field); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return "", ErrExit
		}
		return "", err
	}
	if mode == exitChoice {
		return "", ErrExit
	}
	return mode, nil
}

// SelectScope asks which statuses a preview should cover.
func (f *Form) SelectScope(ctx context.Context) (bulk.Scope, error) {
	opts := make([]huh.Option[bulk.Scope], 0, len(scopes))
	for _, s := range scopes {
		opts = append(opts, huh.NewOption(scopeLabel(s), s))
	}
	scope := bulk.ScopeAll
	field := huh.NewSelect[bulk.Scope]().
		Title("Which aliases?").
		Options(opts...).
		Value(&scope)
	if err := f.run(ctx, field); err != nil {
		return "", err
	}
	return scope, nil
}

// SelectLimit asks how many aliases a preview should list.
func (f *Form) SelectLimit(ctx context.Context) (int, error) {
	opts := make([]huh.Option[int], 0, len(limits))
	for _, n := range limits {
		opts = append(opts, huh.NewOption(limitLabel(n), n))
	}
	limit := preview.DefaultLimit
	field := huh.NewSelect[int]().
		Title("How many aliases to list?").
		Options(opts...).
		Value(&limit)
	if err := f.run(ctx, field); err != nil {
		return 0, err
	}
	return limit, nil
}

// FilterTerm reads an optional filter term.
func (f *Form) FilterTerm(ctx context.Context) (string, error) {
	var term string
	field := huh.NewInput().
		Title("Filter by label or address").
		Placeholder("blank for all").
		Value(&term)
	if err := f.run(ctx, field); err != nil {
		return "", err
	}
	return strings.TrimSpace(term), nil
}

// Again asks whether to return to the menu.
func (f *Form) Again(ctx context.Context) (bool, error) {
	var again bool
	field := huh.NewConfirm().
		Title("Perform another operation?").
		Affirmative("Yes").
		Negative("No").
		Value(&again)
	if err := f.run(ctx, field); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return false, nil
		}
		return false, err
	}
	return again, nil
}
