package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/wesm/aliasvault/internal/bulk"
	"github.com/wesm/aliasvault/internal/confirm"
	"github.com/wesm/aliasvault/internal/icloud"
	"github.com/wesm/aliasvault/internal/journal"
	"github.com/wesm/aliasvault/internal/preview"
	"github.com/wesm/aliasvault/internal/prompt"
)

// errInterrupted is returned by commands whose run was cut short by a
// signal, so main exits with the interrupted status.
var errInterrupted = fmt.Errorf("run interrupted: %w", context.Canceled)

// runner executes requests against one API and prints what happened.
type runner struct {
	api      icloud.API
	prompter confirm.Prompter
	menu     prompt.Prompter // unwrapped, for the interactive loop
	out      io.Writer
	logger   *slog.Logger
	progress bulk.Progress
	render   preview.RenderOptions
	delay    time.Duration
	estimate time.Duration
	journal  *journal.Manager // nil when disabled
}

func (r *runner) engine() *bulk.Engine {
	gate := confirm.NewGate(r.prompter).WithLogger(r.logger)
	return bulk.NewEngine(r.api, gate).
		WithLogger(r.logger).
		WithProgress(r.progress).
		WithDelay(r.delay).
		WithEstimate(r.estimate)
}

// run executes req, prints its preview or summary, and journals it.
func (r *runner) run(ctx context.Context, req bulk.Request) (*bulk.Summary, error) {
	r.logger.Debug("starting run", "request", req.String())

	sum, err := r.engine().Run(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", req.Mode, err)
	}

	switch {
	case req.Mode == bulk.ModePreview:
		if err := preview.Render(r.out, sum.Preview, r.render); err != nil {
			return sum, err
		}
	case req.DryRun:
		if err := preview.Render(r.out, sum.Preview, r.render); err != nil {
			return sum, err
		}
		fmt.Fprintln(r.out, "\nDry run - no aliases were changed.")
	default:
		printSummary(r.out, sum)
		r.record(sum)
	}
	return sum, nil
}

// record journals a finished mutating run. Journal failures are logged and
// never change the outcome of the run.
func (r *runner) record(sum *bulk.Summary) {
	if r.journal == nil {
		return
	}
	e, err := r.journal.Record(sum)
	if err != nil {
		r.logger.Warn("could not journal run", "error", err)
		return
	}
	fmt.Fprintf(r.out, "Run recorded as %s\n", e.ID)
}

// interrupted reports whether the command should exit as interrupted.
func interrupted(ctx context.Context, sum *bulk.Summary) bool {
	return ctx.Err() != nil || (sum != nil && sum.Interrupted)
}

// newRunner builds a runner from the loaded configuration and flags. The
// returned close function releases the API.
func newRunner(assumeYes bool, limit int) (*runner, func() error, error) {
	delay, err := cfg.ItemDelay()
	if err != nil {
		return nil, nil, err
	}

	api, closeAPI, err := openAPI()
	if err != nil {
		return nil, nil, err
	}

	render := preview.RenderOptions{Limit: cfg.Execution.PreviewLimit}
	if limit > 0 {
		render.Limit = limit
	}

	menu := prompt.New(prompt.Options{
		Render:  render,
		NoForms: noForms || !cfg.UI.Forms,
	})
	var p confirm.Prompter = menu
	if assumeYes {
		p = confirm.AssumeYes(menu, logger)
	}

	r := &runner{
		api:      api,
		prompter: p,
		menu:     menu,
		out:      os.Stdout,
		logger:   logger,
		progress: NewCLIProgress(os.Stdout),
		render:   render,
		delay:    delay,
		estimate: cfg.PerItemEstimate(),
	}

	if cfg.Journal.Enabled {
		m, err := journal.NewManager(cfg.Journal.Dir)
		if err != nil {
			_ = closeAPI()
			return nil, nil, fmt.Errorf("open journal: %w", err)
		}
		r.journal = m
	}
	return r, closeAPI, nil
}

// closeWith runs closeFn and keeps the first error.
func closeWith(closeFn func() error, err *error) {
	if cerr := closeFn(); cerr != nil && *err == nil {
		*err = cerr
	}
}
