package bulk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/wesm/aliasvault/internal/alias"
	"github.com/wesm/aliasvault/internal/confirm"
	"github.com/wesm/aliasvault/internal/icloud"
	"github.com/wesm/aliasvault/internal/preview"
	"github.com/wesm/aliasvault/internal/progress"
	"golang.org/x/time/rate"
)

// DefaultItemDelay paces the executor at about 20 aliases per minute.
const DefaultItemDelay = 3 * time.Second

// ErrNotConfirmed is returned when Execute is called without a Proceed
// decision from the gate.
var ErrNotConfirmed = errors.New("operation not confirmed")

// isNotFoundError checks if an error indicates the alias is already gone.
// Treating it as success on delete makes repeated runs idempotent.
func isNotFoundError(err error) bool {
	var notFound *icloud.NotFoundError
	return errors.As(err, &notFound)
}

// Progress observes an executor pass.
type Progress interface {
	OnStart(action preview.Action, total int)
	OnItem(r alias.Record, err error, snap progress.Snapshot)
	OnComplete(p *PassSummary)
}

// NullProgress is a no-op progress reporter.
type NullProgress struct{}

func (NullProgress) OnStart(preview.Action, int)                   {}
func (NullProgress) OnItem(alias.Record, error, progress.Snapshot) {}
func (NullProgress) OnComplete(*PassSummary)                       {}

// Executor applies one action to a list of aliases, one at a time.
type Executor struct {
	api      icloud.AliasMutator
	store    *alias.Store
	logger   *slog.Logger
	progress Progress
	limiter  *rate.Limiter
	now      func() time.Time
}

// NewExecutor creates an executor that records successes in store.
func NewExecutor(api icloud.AliasMutator, store *alias.Store) *Executor {
	return &Executor{
		api:      api,
		store:    store,
		logger:   slog.Default(),
		progress: NullProgress{},
		limiter:  newLimiter(DefaultItemDelay),
		now:      time.Now,
	}
}

// WithLogger sets the logger.
func (e *Executor) WithLogger(logger *slog.Logger) *Executor {
	e.logger = logger
	return e
}

// WithProgress sets the progress reporter.
func (e *Executor) WithProgress(p Progress) *Executor {
	e.progress = p
	return e
}

// WithDelay sets the minimum spacing between items. Zero disables pacing.
func (e *Executor) WithDelay(d time.Duration) *Executor {
	e.limiter = newLimiter(d)
	return e
}

// WithClock sets the time source used for progress and elapsed time.
func (e *Executor) WithClock(now func() time.Time) *Executor {
	e.now = now
	return e
}

func newLimiter(d time.Duration) *rate.Limiter {
	if d <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(d), 1)
}

// Execute runs action over targets in order. It refuses to start without a
// Proceed decision.
//
// Cancellation of ctx is honored only between items: an item whose call has
// started always runs to completion. The returned summary reports how far
// the pass got; it is Interrupted if ctx ended before every target was
// attempted.
func (e *Executor) Execute(ctx context.Context, action preview.Action, targets []alias.Record, decision confirm.Decision) (*PassSummary, error) {
	if decision != confirm.Proceed {
		return nil, ErrNotConfirmed
	}
	if !action.Mutates() {
		return nil, fmt.Errorf("action %q does not change aliases", action)
	}

	state, err := transition(StateIdle, StateRunning)
	if err != nil {
		return nil, err
	}

	start := e.now()
	exec := progress.Start(len(targets), start)
	sum := &PassSummary{Action: action, State: state, Total: len(targets)}

	e.logger.Info("starting pass", "action", string(action), "total", len(targets))
	e.progress.OnStart(action, len(targets))

	// Calls run detached from ctx so interruption never lands mid-item.
	callCtx := context.WithoutCancel(ctx)

	interrupted := false
	for _, rec := range targets {
		if ctx.Err() != nil {
			interrupted = true
			break
		}
		if e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				interrupted = true
				break
			}
		}

		err := e.apply(callCtx, action, rec)
		ok := err == nil
		if !ok {
			e.logger.Warn("alias action failed", "action", string(action), "address", rec.Address, "error", err)
			sum.FailedAddresses = append(sum.FailedAddresses, rec.Address)
		}
		exec.Record(ok, e.now())
		e.progress.OnItem(rec, err, progress.Compute(exec, e.now()))
	}

	final := StateCompleted
	if interrupted {
		final = StateInterrupted
	}
	if sum.State, err = transition(sum.State, final); err != nil {
		return nil, err
	}
	sum.Processed = exec.Processed
	sum.Succeeded = exec.Succeeded
	sum.Failed = exec.Failed
	sum.Elapsed = e.now().Sub(start)

	e.logger.Info("pass finished",
		"action", string(action),
		"state", string(sum.State),
		"total", sum.Total,
		"succeeded", sum.Succeeded,
		"failed", sum.Failed,
	)
	e.progress.OnComplete(sum)
	return sum, nil
}

// apply performs the external call for one alias and records a success in
// the snapshot.
func (e *Executor) apply(ctx context.Context, action preview.Action, r alias.Record) error {
	switch action {
	case preview.ActionDeactivate, preview.ActionPurgeDeactivate:
		if err := e.api.Deactivate(ctx, r); err != nil {
			return err
		}
		e.mark(r, e.store.MarkInactive)

	case preview.ActionDelete, preview.ActionPurgeDelete:
		if err := e.api.Delete(ctx, r); err != nil {
			if !isNotFoundError(err) {
				return err
			}
			e.logger.Debug("alias already deleted", "address", r.Address)
		}
		e.mark(r, e.store.MarkRemoved)

	default:
		return fmt.Errorf("unsupported action %q", action)
	}
	return nil
}

// mark applies a local transition. The service has already changed, so a
// local mismatch is logged rather than counted as a failure.
func (e *Executor) mark(r alias.Record, fn func(address string) error) {
	if err := fn(r.Address); err != nil {
		e.logger.Warn("failed to update snapshot", "address", r.Address, "error", err)
	}
}
