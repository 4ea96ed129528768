package prompt

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/wesm/aliasvault/internal/bulk"
	"github.com/wesm/aliasvault/internal/confirm"
	"github.com/wesm/aliasvault/internal/preview"
)

type lineResult struct {
	text string
	err  error
}

// Line reads one line of input per question. Reads happen on a background
// goroutine so a cancelled context unblocks the caller.
type Line struct {
	out    io.Writer
	render preview.RenderOptions

	in    *bufio.Reader
	start sync.Once
	lines chan lineResult
}

var _ Prompter = (*Line)(nil)

// NewLine returns a line prompter reading from in and writing to out.
func NewLine(in io.Reader, out io.Writer, render preview.RenderOptions) *Line {
	return &Line{
		out:    out,
		render: render,
		in:     bufio.NewReader(in),
		lines:  make(chan lineResult),
	}
}

func (l *Line) readLoop() {
	for {
		s, err := l.in.ReadString('\n')
		if s != "" || err == nil {
			l.lines <- lineResult{text: strings.TrimSpace(s)}
		}
		if err != nil {
			l.lines <- lineResult{err: err}
			return
		}
	}
}

// readLine prints prompt and waits for the next line.
func (l *Line) readLine(ctx context.Context, prompt string) (string, error) {
	l.start.Do(func() { go l.readLoop() })
	fmt.Fprint(l.out, prompt)
	select {
	case <-ctx.Done():
		fmt.Fprintln(l.out)
		return "", ctx.Err()
	case r, ok := <-l.lines:
		if !ok {
			return "", io.EOF
		}
		if r.err != nil {
			// Keep returning the terminal error on later reads.
			close(l.lines)
			return "", r.err
		}
		return r.text, nil
	}
}

// Present prints the preview report.
func (l *Line) Present(r *preview.Report) error {
	return preview.Render(l.out, r, l.render)
}

// Ask prints the question and accepts only "y" or "yes".
func (l *Line) Ask(ctx context.Context, q confirm.Question) (bool, error) {
	answer, err := l.readLine(ctx, q.Prompt+" [y/N]: ")
	if err != nil {
		return false, err
	}
	return isYes(answer), nil
}

func isYes(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "y" || s == "yes"
}

// SelectMode shows the numbered operation menu until a valid choice is made.
func (l *Line) SelectMode(ctx context.Context) (bulk.Mode, error) {
	fmt.Fprintln(l.out, "\nSelect an operation:")
	for i, m := range menuModes {
		fmt.Fprintf(l.out, "  %d) %s\n", i+1, m.Describe())
	}
	exit := len(menuModes) + 1
	fmt.Fprintf(l.out, "  %d) Exit\n", exit)

	n, err := l.choice(ctx, 1, exit)
	if err != nil {
		return "", err
	}
	if n == exit {
		return "", ErrExit
	}
	return menuModes[n-1], nil
}

// SelectScope asks which statuses a preview should cover.
func (l *Line) SelectScope(ctx context.Context) (bulk.Scope, error) {
	fmt.Fprintln(l.out, "\nWhich aliases?")
	for i, s := range scopes {
		fmt.Fprintf(l.out, "  %d) %s\n", i+1, scopeLabel(s))
	}
	n, err := l.choice(ctx, 1, len(scopes))
	if err != nil {
		return "", err
	}
	return scopes[n-1], nil
}

// SelectLimit asks how many aliases a preview should list.
func (l *Line) SelectLimit(ctx context.Context) (int, error) {
	fmt.Fprintln(l.out, "\nHow many aliases to list?")
	for i, n := range limits {
		fmt.Fprintf(l.out, "  %d) %s\n", i+1, limitLabel(n))
	}
	n, err := l.choice(ctx, 1, len(limits))
	if err != nil {
		return 0, err
	}
	return limits[n-1], nil
}

func (l *Line) choice(ctx context.Context, lo, hi int) (int, error) {
	for {
		s, err := l.readLine(ctx, fmt.Sprintf("Choice [%d-%d]: ", lo, hi))
		if err != nil {
			return 0, err
		}
		if n, err := strconv.Atoi(s); err == nil && n >= lo && n <= hi {
			return n, nil
		}
		fmt.Fprintf(l.out, "Please enter a number between %d and %d\n", lo, hi)
	}
}

// FilterTerm reads an optional filter term. Empty means every alias.
func (l *Line) FilterTerm(ctx context.Context) (string, error) {
	return l.readLine(ctx, "Filter by label or address (blank for all): ")
}

// Again asks whether to return to the menu.
func (l *Line) Again(ctx context.Context) (bool, error) {
	answer, err := l.readLine(ctx, "\nPerform another operation? [y/N]: ")
	if err != nil {
		return false, err
	}
	return isYes(answer), nil
}
