package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/wesm/aliasvault/internal/alias"
	"github.com/wesm/aliasvault/internal/bulk"
	"github.com/wesm/aliasvault/internal/preview"
	"github.com/wesm/aliasvault/internal/progress"
)

// rateEvery is how often, in processed items, the rate line is shown.
const rateEvery = 5

// isTTY reports whether w is connected to a terminal.
func isTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// CLIProgress reports pass progress to the terminal. On a TTY the progress
// line is rewritten in place; otherwise each update is its own line.
type CLIProgress struct {
	out    io.Writer
	tty    bool
	action preview.Action
	total  int
	inLine bool // a progress line is pending on a TTY
}

var _ bulk.Progress = (*CLIProgress)(nil)

// NewCLIProgress returns a reporter writing to out.
func NewCLIProgress(out io.Writer) *CLIProgress {
	return &CLIProgress{out: out, tty: isTTY(out)}
}

func (p *CLIProgress) OnStart(action preview.Action, total int) {
	p.action = action
	p.total = total
	p.inLine = false
	fmt.Fprintf(p.out, "\n%s %d %s...\n", gerund(action), total, aliasNoun(total))
}

func (p *CLIProgress) OnItem(r alias.Record, err error, snap progress.Snapshot) {
	if err != nil {
		p.breakLine()
		fmt.Fprintf(p.out, "  failed: %s: %v\n", r.Address, err)
	}

	p.printLine(p.status(snap))

	if snap.Processed%rateEvery == 0 && snap.Processed < snap.Total {
		p.breakLine()
		fmt.Fprintf(p.out, "  rate: %.1f/min overall, %.1f/min recent\n",
			progress.PerMinute(snap.AverageRate), progress.PerMinute(snap.RecentRate))
	}
}

func (p *CLIProgress) OnComplete(s *bulk.PassSummary) {
	p.breakLine()
	fmt.Fprintf(p.out, "%s %s: %d succeeded, %d failed, %d remaining in %s\n",
		strings.ToUpper(s.Action.Verb()[:1])+s.Action.Verb()[1:], s.State,
		s.Succeeded, s.Failed, s.Remaining(), progress.FormatDuration(s.Elapsed))
}

func (p *CLIProgress) status(snap progress.Snapshot) string {
	status := fmt.Sprintf("  %s %5.1f%%  %d/%d", progressBar(snap.Percent, 30), snap.Percent, snap.Processed, snap.Total)
	if snap.Failed > 0 {
		status += fmt.Sprintf("  (%d failed)", snap.Failed)
	}
	switch {
	case snap.HasETA:
		status += "  " + progress.FormatDuration(snap.ETA) + " remaining"
	case snap.Remaining == 0:
		status += "  " + progress.FormatDuration(snap.Elapsed) + " elapsed"
	default:
		status += "  calculating..."
	}
	return status
}

func (p *CLIProgress) printLine(s string) {
	if p.tty {
		fmt.Fprintf(p.out, "\r\033[K%s", s)
		p.inLine = true
		return
	}
	fmt.Fprintln(p.out, s)
}

// breakLine ends a pending in-place line so the next output starts clean.
func (p *CLIProgress) breakLine() {
	if p.inLine {
		fmt.Fprintln(p.out)
		p.inLine = false
	}
}

func progressBar(pct float64, width int) string {
	filled := int(pct / 100 * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", width-filled) + "]"
}

func gerund(a preview.Action) string {
	switch a.Verb() {
	case "deactivate":
		return "Deactivating"
	case "delete":
		return "Deleting"
	}
	return "Processing"
}

func aliasNoun(n int) string {
	if n == 1 {
		return "alias"
	}
	return "aliases"
}
