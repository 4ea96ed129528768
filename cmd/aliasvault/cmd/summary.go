package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/wesm/aliasvault/internal/bulk"
	"github.com/wesm/aliasvault/internal/progress"
)

// maxFailedShown caps the failed addresses listed in a summary.
const maxFailedShown = 20

var (
	summaryTitle = lipgloss.NewStyle().Bold(true)
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	noticeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
)

// printSummary writes the final report of a mutating run. It is printed
// for every outcome.
func printSummary(w io.Writer, sum *bulk.Summary) {
	var sb strings.Builder

	title := "Summary: " + string(sum.Mode)
	if sum.Filter != "" {
		title += fmt.Sprintf(" (filter %q)", sum.Filter)
	}
	sb.WriteString("\n" + summaryTitle.Render(title) + "\n")

	if len(sum.Passes) > 1 {
		for _, p := range sum.Passes {
			fmt.Fprintf(&sb, "  %-17s %d succeeded, %d failed, %d remaining (%s)\n",
				string(p.Action)+":", p.Succeeded, p.Failed, p.Remaining(), p.State)
		}
	}

	fmt.Fprintf(&sb, "  Succeeded: %s\n", okStyle.Render(fmt.Sprint(sum.Succeeded)))
	failed := fmt.Sprint(sum.Failed)
	if sum.Failed > 0 {
		failed = failStyle.Render(failed)
	}
	fmt.Fprintf(&sb, "  Failed:    %s\n", failed)
	fmt.Fprintf(&sb, "  Remaining: %d\n", sum.Remaining)

	if sum.Elapsed > 0 && sum.Succeeded > 0 {
		rate := float64(sum.Succeeded) / sum.Elapsed.Seconds()
		fmt.Fprintf(&sb, "  Time:      %s (%.1f/min)\n", progress.FormatDuration(sum.Elapsed), progress.PerMinute(rate))
	}

	if addrs := sum.FailedAddresses(); len(addrs) > 0 {
		sb.WriteString("\nFailed aliases:\n")
		for i, a := range addrs {
			if i == maxFailedShown {
				fmt.Fprintf(&sb, "  ... and %d more\n", len(addrs)-maxFailedShown)
				break
			}
			fmt.Fprintf(&sb, "  - %s\n", a)
		}
	}

	switch sum.Outcome() {
	case bulk.StateInterrupted:
		sb.WriteString("\n" + noticeStyle.Render(fmt.Sprintf("Interrupted. %d aliases were not processed; run again to continue.", sum.Remaining)) + "\n")
	case bulk.StateAborted:
		msg := "Cancelled. No aliases were changed."
		if sum.Succeeded+sum.Failed > 0 {
			msg = "Cancelled before the next step."
		}
		sb.WriteString("\n" + noticeStyle.Render(msg) + "\n")
	default:
		if sum.Total == 0 {
			sb.WriteString("\nNo matching aliases; nothing to do.\n")
		}
	}

	fmt.Fprint(w, sb.String())
}
