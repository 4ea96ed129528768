// Package confirm gates mutating operations behind explicit user consent.
// The gate sees only the preview report it is handed.
package confirm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/wesm/aliasvault/internal/preview"
)

// Decision is the outcome of a gate.
type Decision int

const (
	Abort Decision = iota
	Proceed
)

func (d Decision) String() string {
	if d == Proceed {
		return "proceed"
	}
	return "abort"
}

// Stage identifies one question in a gate.
type Stage int

const (
	StageProceed      Stage = iota // go ahead with the batch at all
	StageIrreversible              // acknowledge deletion of an exact count
	StageEverything                // unfiltered purge of every alias
)

func (s Stage) String() string {
	switch s {
	case StageProceed:
		return "proceed"
	case StageIrreversible:
		return "irreversible"
	case StageEverything:
		return "everything"
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// Question is what a Prompter is asked at one stage.
type Question struct {
	Stage  Stage
	Action preview.Action
	Count  int
	Prompt string
}

// Prompter presents a report and collects yes/no answers. Ask returns true
// only for an explicit affirmative.
type Prompter interface {
	Present(r *preview.Report) error
	Ask(ctx context.Context, q Question) (bool, error)
}

// ErrNothingToConfirm is returned for reports that cannot be gated: empty
// results and non-mutating previews.
var ErrNothingToConfirm = errors.New("nothing to confirm")

// Gate runs the stages for a report through a Prompter.
type Gate struct {
	prompter Prompter
	logger   *slog.Logger
}

// NewGate returns a gate backed by p.
func NewGate(p Prompter) *Gate {
	return &Gate{prompter: p, logger: slog.Default()}
}

// WithLogger sets the logger.
func (g *Gate) WithLogger(l *slog.Logger) *Gate {
	g.logger = l
	return g
}

// Stages returns the questions asked for r, in order.
func Stages(r *preview.Report) []Question {
	verb := r.Action.Verb()
	qs := []Question{{
		Stage:  StageProceed,
		Action: r.Action,
		Count:  r.Total,
		Prompt: fmt.Sprintf("Proceed to %s %s?", verb, plural(r.Total)),
	}}

	switch r.Action {
	case preview.ActionDelete, preview.ActionPurgeDelete:
		qs = append(qs, Question{
			Stage:  StageIrreversible,
			Action: r.Action,
			Count:  r.Total,
			Prompt: fmt.Sprintf("Deleting %s is permanent and cannot be undone. Delete exactly %d?", plural(r.Total), r.Total),
		})
	case preview.ActionPurgeDeactivate:
		qs = append(qs, Question{
			Stage:  StageIrreversible,
			Action: r.Action,
			Count:  r.Total,
			Prompt: fmt.Sprintf("Purge deactivates %s and then permanently deletes them along with every matching inactive alias. This cannot be undone. Continue?", plural(r.Total)),
		})
	}

	if opensPurge(r) && strings.TrimSpace(r.Filter) == "" {
		prompt := fmt.Sprintf("No filter given: this purges ALL %d active aliases and every inactive one. Are you absolutely sure?", r.Total)
		if r.Action == preview.ActionPurgeDelete {
			prompt = fmt.Sprintf("No filter given: this purges ALL %d inactive aliases on the account. Are you absolutely sure?", r.Total)
		}
		qs = append(qs, Question{
			Stage:  StageEverything,
			Action: r.Action,
			Count:  r.Total,
			Prompt: prompt,
		})
	}
	return qs
}

// opensPurge reports whether r is the first gate of a purge.
func opensPurge(r *preview.Report) bool {
	switch r.Action {
	case preview.ActionPurgeDeactivate:
		return true
	case preview.ActionPurgeDelete:
		return r.PurgeStart
	}
	return false
}

// Confirm presents r and asks each stage in turn. It returns Proceed only
// when every stage was answered affirmatively. Prompter failures count as
// a decline; only context cancellation is returned as an error.
func (g *Gate) Confirm(ctx context.Context, r *preview.Report) (Decision, error) {
	if r == nil || r.Empty || !r.Action.Mutates() {
		return Abort, ErrNothingToConfirm
	}

	if err := g.prompter.Present(r); err != nil {
		g.logger.Warn("could not present preview", "error", err)
		return Abort, nil
	}

	for _, q := range Stages(r) {
		ok, err := g.prompter.Ask(ctx, q)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Abort, ctxErr
			}
			g.logger.Warn("confirmation failed", "stage", q.Stage.String(), "error", err)
			return Abort, nil
		}
		if !ok {
			g.logger.Info("confirmation declined", "action", string(r.Action), "stage", q.Stage.String())
			return Abort, nil
		}
	}
	return Proceed, nil
}

// AssumeYes wraps p so that every stage is answered affirmatively. The
// report is still presented.
func AssumeYes(p Prompter, logger *slog.Logger) Prompter {
	if logger == nil {
		logger = slog.Default()
	}
	return &assumeYes{Prompter: p, logger: logger}
}

type assumeYes struct {
	Prompter
	logger *slog.Logger
}

func (a *assumeYes) Ask(_ context.Context, q Question) (bool, error) {
	a.logger.Warn("auto-confirming", "action", string(q.Action), "stage", q.Stage.String(), "total", q.Count)
	return true, nil
}

func plural(n int) string {
	if n == 1 {
		return "1 alias"
	}
	return fmt.Sprintf("%d aliases", n)
}
