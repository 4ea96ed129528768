package preview

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"
	"github.com/wesm/aliasvault/internal/progress"
)

// Display defaults.
const (
	DefaultLimit        = 50
	DefaultSummaryLimit = 10
	DefaultWidth        = 100

	// Unlimited lists every item.
	Unlimited = -1

	addressColumn = 40
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#555555", Dark: "#999999"})
	sectionStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	warnStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#996600", Dark: "#ffcc00"})
)

// RenderOptions bound how much of a report is printed.
type RenderOptions struct {
	Limit        int // items listed before "... and N more"; Unlimited for all
	SummaryLimit int // rows per aggregate
	Width        int // terminal cells per line
}

func (o RenderOptions) withDefaults() RenderOptions {
	if o.Limit == 0 {
		o.Limit = DefaultLimit
	}
	if o.SummaryLimit <= 0 {
		o.SummaryLimit = DefaultSummaryLimit
	}
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	return o
}

// Render writes a human-readable report to w.
func Render(w io.Writer, r *Report, opts RenderOptions) error {
	opts = opts.withDefaults()
	var sb strings.Builder

	sb.WriteString(headerStyle.Render(title(r)))
	sb.WriteString("\n")
	if r.Filter != "" {
		fmt.Fprintf(&sb, "Filter: %q\n", r.Filter)
	}
	if r.Scope != "" {
		fmt.Fprintf(&sb, "Scope:  %s\n", r.Scope)
	}

	if r.Empty {
		if r.Filter != "" {
			fmt.Fprintf(&sb, "No aliases match %q.\n", r.Filter)
		} else {
			sb.WriteString("No aliases to show.\n")
		}
		_, err := io.WriteString(w, sb.String())
		return err
	}

	fmt.Fprintf(&sb, "Matched %d of %d aliases\n\n", r.Total, r.UnfilteredTotal)

	shown := len(r.Items)
	if opts.Limit > 0 {
		shown = min(opts.Limit, shown)
	}
	numWidth := len(fmt.Sprint(shown))
	labelWidth := max(opts.Width-addressColumn-numWidth-4, 10)
	for i, it := range r.Items[:shown] {
		addr := runewidth.FillRight(truncate(it.Address, addressColumn), addressColumn)
		fmt.Fprintf(&sb, "%*d. %s  %s\n", numWidth, i+1, addr, dimStyle.Render(truncate(it.Label, labelWidth)))
	}
	if more := len(r.Items) - shown; more > 0 {
		fmt.Fprintf(&sb, "... and %d more\n", more)
	}

	writeCounts(&sb, "By service", r.ByService, opts)
	writeCounts(&sb, "By label", r.ByLabel, opts)

	if r.Large() {
		sb.WriteString("\n")
		sb.WriteString(warnStyle.Render(fmt.Sprintf(
			"Large operation: %d aliases, estimated %s at the current pace.",
			r.Total, progress.FormatDuration(r.EstimatedDuration))))
		sb.WriteString("\n")
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func title(r *Report) string {
	switch r.Action {
	case ActionDeactivate, ActionPurgeDeactivate:
		return "Aliases to deactivate"
	case ActionDelete, ActionPurgeDelete:
		return "Aliases to delete"
	}
	return "Alias preview"
}

func writeCounts(sb *strings.Builder, heading string, counts []Count, opts RenderOptions) {
	if len(counts) == 0 {
		return
	}
	sb.WriteString("\n")
	sb.WriteString(sectionStyle.Render(heading))
	sb.WriteString("\n")

	rows := counts[:min(opts.SummaryLimit, len(counts))]
	nameWidth := 0
	for _, c := range rows {
		nameWidth = max(nameWidth, runewidth.StringWidth(c.Name))
	}
	nameWidth = min(nameWidth, addressColumn)
	for _, c := range rows {
		fmt.Fprintf(sb, "  %s %5d\n", runewidth.FillRight(truncate(c.Name, nameWidth), nameWidth), c.Count)
	}
	if rest := len(counts) - len(rows); rest > 0 {
		fmt.Fprintf(sb, "  %s\n", dimStyle.Render(fmt.Sprintf("(%d more)", rest)))
	}
}

// truncate fits s into width cells, flattening control characters first.
func truncate(s string, width int) string {
	s = strings.NewReplacer("\n", " ", "\r", "", "\t", " ").Replace(s)
	if ansi.StringWidth(s) <= width {
		return s
	}
	return ansi.Truncate(s, width, "…")
}
