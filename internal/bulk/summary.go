package bulk

import (
	"time"

	"github.com/wesm/aliasvault/internal/preview"
)

// PassSummary is the outcome of one executor pass.
type PassSummary struct {
	Action          preview.Action
	State           State
	Total           int
	Processed       int
	Succeeded       int
	Failed          int
	FailedAddresses []string
	Elapsed         time.Duration
}

// Remaining is the number of targets never attempted.
func (p *PassSummary) Remaining() int {
	if r := p.Total - p.Processed; r > 0 {
		return r
	}
	return 0
}

// Summary is the outcome of a run. For purge the counts are summed over the
// passes that ran.
type Summary struct {
	Mode        Mode
	Filter      string
	DryRun      bool
	Total       int
	Succeeded   int
	Failed      int
	Remaining   int
	Interrupted bool
	Aborted     bool
	StartedAt   time.Time
	Elapsed     time.Duration
	Passes      []*PassSummary

	// Preview is set for preview and dry runs.
	Preview *preview.Report
}

// FailedAddresses collects failures across passes, in order.
func (s *Summary) FailedAddresses() []string {
	var out []string
	for _, p := range s.Passes {
		out = append(out, p.FailedAddresses...)
	}
	return out
}

// Outcome names how the run ended.
func (s *Summary) Outcome() State {
	switch {
	case s.Interrupted:
		return StateInterrupted
	case s.Aborted:
		return StateAborted
	}
	return StateCompleted
}

func (s *Summary) add(p *PassSummary) {
	s.Passes = append(s.Passes, p)
	s.Total += p.Total
	s.Succeeded += p.Succeeded
	s.Failed += p.Failed
	s.Remaining += p.Remaining()
	switch p.State {
	case StateInterrupted:
		s.Interrupted = true
	case StateAborted:
		s.Aborted = true
	}
}
