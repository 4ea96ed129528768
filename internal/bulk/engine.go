package bulk

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/wesm/aliasvault/internal/alias"
	"github.com/wesm/aliasvault/internal/confirm"
	"github.com/wesm/aliasvault/internal/filter"
	"github.com/wesm/aliasvault/internal/icloud"
	"github.com/wesm/aliasvault/internal/preview"
)

// Engine runs requests end to end: snapshot, filter, preview, gate, execute.
// Each Run takes its own snapshot; nothing is shared between runs.
type Engine struct {
	api      icloud.API
	gate     *confirm.Gate
	logger   *slog.Logger
	progress Progress
	delay    time.Duration
	estimate time.Duration // per-item pace for previews; 0 uses delay
	now      func() time.Time
}

// NewEngine creates an engine that confirms through gate.
func NewEngine(api icloud.API, gate *confirm.Gate) *Engine {
	return &Engine{
		api:      api,
		gate:     gate,
		logger:   slog.Default(),
		progress: NullProgress{},
		delay:    DefaultItemDelay,
		now:      time.Now,
	}
}

// WithLogger sets the logger.
func (e *Engine) WithLogger(logger *slog.Logger) *Engine {
	e.logger = logger
	return e
}

// WithProgress sets the progress reporter for every pass.
func (e *Engine) WithProgress(p Progress) *Engine {
	e.progress = p
	return e
}

// WithDelay sets the spacing between items. Zero disables pacing.
func (e *Engine) WithDelay(d time.Duration) *Engine {
	e.delay = d
	return e
}

// WithEstimate sets the per-item pace used for large-operation estimates.
func (e *Engine) WithEstimate(d time.Duration) *Engine {
	e.estimate = d
	return e
}

// WithClock sets the time source.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// run is the explicit per-run context: the snapshot and the criterion.
type run struct {
	store *alias.Store
	crit  filter.Criterion
}

// Run executes req. Declining at the gate and interruption are not errors:
// they are reported through the summary. An error means the snapshot could
// not be read or the request is invalid, and nothing was changed.
func (e *Engine) Run(ctx context.Context, req Request) (*Summary, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	req.Filter = filter.New(req.Filter).Term

	sum := &Summary{Mode: req.Mode, Filter: req.Filter, DryRun: req.DryRun, StartedAt: e.now()}

	store, err := alias.Load(ctx, e.api)
	if err != nil {
		return nil, err
	}
	r := &run{store: store, crit: filter.New(req.Filter)}

	e.logger.Debug("snapshot loaded",
		"total", store.Len(),
		"active", store.Count(alias.StatusActive),
		"inactive", store.Count(alias.StatusInactive),
	)

	switch {
	case req.Mode == ModePreview:
		scope, _ := ParseScope(string(req.Scope))
		sum.Preview = e.report(r, preview.ActionPreview, string(scope), scope.statuses()...)
		sum.Total = sum.Preview.Total

	case req.DryRun:
		sum.Preview = e.dryRun(r, req.Mode)
		sum.Total = sum.Preview.Total
		sum.Remaining = sum.Total

	case req.Mode == ModeDeactivate:
		sum.add(e.pass(ctx, r, preview.ActionDeactivate, alias.StatusActive, false))

	case req.Mode == ModeDelete:
		sum.add(e.pass(ctx, r, preview.ActionDelete, alias.StatusInactive, false))

	case req.Mode == ModePurge:
		first := e.pass(ctx, r, preview.ActionPurgeDeactivate, alias.StatusActive, true)
		sum.add(first)
		if first.State != StateCompleted {
			e.logger.Info("skipping delete pass", "state", string(first.State))
			break
		}
		// An empty deactivate step never reached its gate, so the delete
		// gate opens the purge.
		sum.add(e.pass(ctx, r, preview.ActionPurgeDelete, alias.StatusInactive, first.Total == 0))
	}

	sum.Elapsed = e.now().Sub(sum.StartedAt)
	return sum, nil
}

// report builds the preview of matching records with the given statuses.
func (e *Engine) report(r *run, action preview.Action, scope string, statuses ...alias.Status) *preview.Report {
	all := r.store.WithStatus(statuses...)
	view := filter.Apply(all, r.crit)
	return preview.Build(view, preview.Options{
		Action:          action,
		Filter:          r.crit.Term,
		Scope:           scope,
		UnfilteredTotal: len(all),
		PerItem:         e.perItem(),
	})
}

func (e *Engine) perItem() time.Duration {
	if e.estimate > 0 {
		return e.estimate
	}
	return e.delay
}

// dryRun previews what mode would act on. For purge that is everything
// that would end up deleted: matching active and inactive aliases.
func (e *Engine) dryRun(r *run, mode Mode) *preview.Report {
	switch mode {
	case ModeDeactivate:
		return e.report(r, preview.ActionDeactivate, "", alias.StatusActive)
	case ModeDelete:
		return e.report(r, preview.ActionDelete, "", alias.StatusInactive)
	}
	return e.report(r, preview.ActionPurgeDelete, "", alias.StatusActive, alias.StatusInactive)
}

// pass runs one gated executor pass over matching records in status.
// purgeStart marks the first gate of a purge.
func (e *Engine) pass(ctx context.Context, r *run, action preview.Action, status alias.Status, purgeStart bool) *PassSummary {
	rep := e.report(r, action, "", status)
	rep.PurgeStart = purgeStart
	if rep.Empty {
		e.logger.Info("no matching aliases", "action", string(action), "filter", r.crit.Term)
		return &PassSummary{Action: action, State: StateCompleted}
	}

	aborted := func() *PassSummary {
		state, _ := transition(StateIdle, StateAborted)
		return &PassSummary{Action: action, State: state, Total: rep.Total}
	}

	decision, err := e.gate.Confirm(ctx, rep)
	if err != nil || decision != confirm.Proceed {
		if err != nil && !errors.Is(err, context.Canceled) {
			e.logger.Warn("confirmation did not complete", "action", string(action), "error", err)
		}
		return aborted()
	}

	targets := filter.Apply(r.store.WithStatus(status), r.crit)
	ps, err := NewExecutor(e.api, r.store).
		WithLogger(e.logger).
		WithProgress(e.progress).
		WithDelay(e.delay).
		WithClock(e.now).
		Execute(ctx, action, targets, decision)
	if err != nil {
		// Only reachable on a programming error; nothing was attempted.
		e.logger.Error("pass could not start", "action", string(action), "error", err)
		return aborted()
	}
	return ps
}
