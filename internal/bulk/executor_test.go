package bulk

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/wesm/aliasvault/internal/alias"
	"github.com/wesm/aliasvault/internal/confirm"
	"github.com/wesm/aliasvault/internal/icloud"
	"github.com/wesm/aliasvault/internal/preview"
	"github.com/wesm/aliasvault/internal/progress"
	"github.com/wesm/aliasvault/internal/testutil"
)

// trackingProgress records progress events for testing
type trackingProgress struct {
	mu        sync.Mutex
	starts    []preview.Action
	items     []progress.Snapshot
	itemErrs  []error
	completed []*PassSummary
}

func (p *trackingProgress) OnStart(action preview.Action, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.starts = append(p.starts, action)
}

func (p *trackingProgress) OnItem(r alias.Record, err error, snap progress.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.items = append(p.items, snap)
	p.itemErrs = append(p.itemErrs, err)
}

func (p *trackingProgress) OnComplete(s *PassSummary) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.completed = append(p.completed, s)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestContext encapsulates common test dependencies for executor tests.
type TestContext struct {
	MockAPI  *icloud.MockAPI
	Store    *alias.Store
	Exec     *Executor
	Progress *trackingProgress
	Records  []alias.Record
	t        *testing.T
}

// NewTestContext creates a context over recs with pacing disabled.
func NewTestContext(t *testing.T, recs ...alias.Record) *TestContext {
	t.Helper()
	store, err := alias.NewStore(recs)
	testutil.MustNoErr(t, err, "NewStore")

	mockAPI := icloud.NewMockAPI(recs...)
	tp := &trackingProgress{}
	exec := NewExecutor(mockAPI, store).
		WithLogger(discardLogger()).
		WithProgress(tp).
		WithDelay(0)

	return &TestContext{
		MockAPI:  mockAPI,
		Store:    store,
		Exec:     exec,
		Progress: tp,
		Records:  recs,
		t:        t,
	}
}

// Execute runs action over all records with a Proceed decision.
func (c *TestContext) Execute(ctx context.Context, action preview.Action) *PassSummary {
	c.t.Helper()
	sum, err := c.Exec.Execute(ctx, action, c.Records, confirm.Proceed)
	testutil.MustNoErr(c.t, err, "Execute")
	return sum
}

// AssertStatus verifies the snapshot status of an address.
func (c *TestContext) AssertStatus(address string, want alias.Status) {
	c.t.Helper()
	r, ok := c.Store.Get(address)
	if !ok {
		c.t.Fatalf("%s not in store", address)
	}
	if r.Status != want {
		c.t.Errorf("%s status = %q, want %q", address, r.Status, want)
	}
}

// AssertCounts verifies the pass counters.
func (c *TestContext) AssertCounts(s *PassSummary, total, succeeded, failed int) {
	c.t.Helper()
	if s.Total != total || s.Succeeded != succeeded || s.Failed != failed {
		c.t.Errorf("counts = {total:%d succeeded:%d failed:%d}, want {%d %d %d}",
			s.Total, s.Succeeded, s.Failed, total, succeeded, failed)
	}
}

func TestExecutor_AllSucceed(t *testing.T) {
	c := NewTestContext(t, testutil.Records(3, alias.StatusActive)...)

	s := c.Execute(context.Background(), preview.ActionDeactivate)

	c.AssertCounts(s, 3, 3, 0)
	if s.State != StateCompleted {
		t.Errorf("State = %q, want completed", s.State)
	}
	for _, r := range c.Records {
		c.AssertStatus(r.Address, alias.StatusInactive)
	}
	testutil.AssertStrings(t, c.MockAPI.DeactivateCalls, "a0@x.com", "a1@x.com", "a2@x.com")
	if len(c.Progress.items) != 3 || len(c.Progress.completed) != 1 {
		t.Errorf("progress events: items=%d completed=%d", len(c.Progress.items), len(c.Progress.completed))
	}
}

func TestExecutor_ItemFailureContinues(t *testing.T) {
	c := NewTestContext(t, testutil.Records(3, alias.StatusActive)...)
	c.MockAPI.DeactivateErrors["a1@x.com"] = errors.New("button not found")

	s := c.Execute(context.Background(), preview.ActionDeactivate)

	c.AssertCounts(s, 3, 2, 1)
	if s.State != StateCompleted {
		t.Errorf("State = %q, want completed", s.State)
	}
	testutil.AssertStrings(t, s.FailedAddresses, "a1@x.com")
	c.AssertStatus("a0@x.com", alias.StatusInactive)
	c.AssertStatus("a1@x.com", alias.StatusActive)
	c.AssertStatus("a2@x.com", alias.StatusInactive)
	if c.Progress.itemErrs[1] == nil {
		t.Error("OnItem should receive the failure")
	}
}

func TestExecutor_FailureAtEachPosition(t *testing.T) {
	const n = 5
	for k := range n {
		c := NewTestContext(t, testutil.Records(n, alias.StatusActive)...)
		failing := c.Records[k].Address
		c.MockAPI.DeactivateErrors[failing] = errors.New("fail")

		s := c.Execute(context.Background(), preview.ActionDeactivate)
		c.AssertCounts(s, n, n-1, 1)
		for _, r := range c.Records {
			want := alias.StatusInactive
			if r.Address == failing {
				want = alias.StatusActive
			}
			c.AssertStatus(r.Address, want)
		}
	}
}

func TestExecutor_InterruptBetweenItems(t *testing.T) {
	const n, k = 5, 2
	c := NewTestContext(t, testutil.Records(n, alias.StatusActive)...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	calls := 0
	c.MockAPI.BeforeDeactivate = func(alias.Record) error {
		calls++
		if calls == k {
			cancel() // the in-flight item must still finish
		}
		return nil
	}

	s := c.Execute(ctx, preview.ActionDeactivate)

	if s.State != StateInterrupted {
		t.Errorf("State = %q, want interrupted", s.State)
	}
	if s.Succeeded+s.Failed != k {
		t.Errorf("succeeded+failed = %d, want %d", s.Succeeded+s.Failed, k)
	}
	if s.Remaining() != n-k {
		t.Errorf("Remaining() = %d, want %d", s.Remaining(), n-k)
	}
	for i, r := range c.Records {
		want := alias.StatusActive
		if i < k {
			want = alias.StatusInactive
		}
		c.AssertStatus(r.Address, want)
	}
	if len(c.MockAPI.DeactivateCalls) != k {
		t.Errorf("DeactivateCalls = %d, want %d", len(c.MockAPI.DeactivateCalls), k)
	}
}

func TestExecutor_CancelledBeforeStart(t *testing.T) {
	c := NewTestContext(t, testutil.Records(3, alias.StatusActive)...)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := c.Execute(ctx, preview.ActionDeactivate)
	if s.State != StateInterrupted || s.Processed != 0 || s.Remaining() != 3 {
		t.Errorf("summary = %+v, want interrupted with nothing processed", s)
	}
	if c.MockAPI.MutationCount() != 0 {
		t.Errorf("mutations = %d, want 0", c.MockAPI.MutationCount())
	}
}

func TestExecutor_RequiresProceed(t *testing.T) {
	c := NewTestContext(t, testutil.Records(2, alias.StatusActive)...)

	_, err := c.Exec.Execute(context.Background(), preview.ActionDeactivate, c.Records, confirm.Abort)
	if !errors.Is(err, ErrNotConfirmed) {
		t.Errorf("err = %v, want ErrNotConfirmed", err)
	}
	if c.MockAPI.MutationCount() != 0 {
		t.Errorf("mutations = %d, want 0", c.MockAPI.MutationCount())
	}
	if len(c.Progress.starts) != 0 {
		t.Error("OnStart should not be called for an unconfirmed pass")
	}
}

func TestExecutor_RejectsPreviewAction(t *testing.T) {
	c := NewTestContext(t, testutil.Records(1, alias.StatusActive)...)
	if _, err := c.Exec.Execute(context.Background(), preview.ActionPreview, c.Records, confirm.Proceed); err == nil {
		t.Error("expected error for non-mutating action")
	}
}

func TestExecutor_DeleteNotFoundIsSuccess(t *testing.T) {
	c := NewTestContext(t, testutil.Records(2, alias.StatusInactive)...)
	c.MockAPI.SetNotFoundError("a0@x.com")

	s := c.Execute(context.Background(), preview.ActionDelete)

	c.AssertCounts(s, 2, 2, 0)
	c.AssertStatus("a0@x.com", alias.StatusRemoved)
	c.AssertStatus("a1@x.com", alias.StatusRemoved)
}

func TestExecutor_DeactivateNotFoundIsFailure(t *testing.T) {
	c := NewTestContext(t, testutil.Records(1, alias.StatusActive)...)
	c.MockAPI.SetNotFoundError("a0@x.com")

	s := c.Execute(context.Background(), preview.ActionDeactivate)
	c.AssertCounts(s, 1, 0, 1)
}

func TestExecutor_EmptyTargets(t *testing.T) {
	c := NewTestContext(t)
	s := c.Execute(context.Background(), preview.ActionDelete)
	if s.State != StateCompleted || s.Total != 0 {
		t.Errorf("summary = %+v, want completed with zero total", s)
	}
}

func TestExecutor_ProgressUsesClock(t *testing.T) {
	c := NewTestContext(t, testutil.Records(3, alias.StatusActive)...)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.Exec.WithClock(func() time.Time {
		now = now.Add(time.Second)
		return now
	})

	s := c.Execute(context.Background(), preview.ActionDeactivate)

	if s.Elapsed <= 0 {
		t.Errorf("Elapsed = %v, want > 0", s.Elapsed)
	}
	last := c.Progress.items[len(c.Progress.items)-1]
	if last.Processed != 3 || last.Remaining != 0 {
		t.Errorf("last snapshot = %+v", last)
	}
	if last.AverageRate <= 0 {
		t.Errorf("AverageRate = %v, want > 0", last.AverageRate)
	}
}

func TestExecutor_Pacing(t *testing.T) {
	c := NewTestContext(t, testutil.Records(3, alias.StatusActive)...)
	c.Exec.WithDelay(20 * time.Millisecond)

	start := time.Now()
	c.Execute(context.Background(), preview.ActionDeactivate)
	if elapsed := time.Since(start); elapsed < 35*time.Millisecond {
		t.Errorf("3 items took %v, want at least two delays", elapsed)
	}
}

func TestExecutor_InterruptDuringDelay(t *testing.T) {
	c := NewTestContext(t, testutil.Records(3, alias.StatusActive)...)
	c.Exec.WithDelay(time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	firstDone := make(chan struct{})
	var once sync.Once
	c.MockAPI.BeforeDeactivate = func(alias.Record) error {
		once.Do(func() { close(firstDone) })
		return nil
	}

	done := make(chan *PassSummary, 1)
	go func() {
		s, _ := c.Exec.Execute(ctx, preview.ActionDeactivate, c.Records, confirm.Proceed)
		done <- s
	}()

	<-firstDone
	time.Sleep(20 * time.Millisecond) // let the executor park in the delay
	cancel()

	select {
	case s := <-done:
		if s.State != StateInterrupted || s.Processed != 1 {
			t.Errorf("summary = %+v, want interrupted after 1", s)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("interruption did not cut the inter-item delay short")
	}
}

func TestTransition(t *testing.T) {
	tests := []struct {
		from, to State
		ok       bool
	}{
		{StateIdle, StateRunning, true},
		{StateIdle, StateAborted, true},
		{StateRunning, StateCompleted, true},
		{StateRunning, StateInterrupted, true},
		{StateIdle, StateCompleted, false},
		{StateRunning, StateAborted, false},
		{StateCompleted, StateRunning, false},
		{StateInterrupted, StateRunning, false},
		{StateAborted, StateRunning, false},
	}
	for _, tc := range tests {
		got, err := transition(tc.from, tc.to)
		if tc.ok {
			if err != nil || got != tc.to {
				t.Errorf("transition(%s, %s) = (%s, %v), want ok", tc.from, tc.to, got, err)
			}
			continue
		}
		if !errors.Is(err, ErrInvalidState) || got != tc.from {
			t.Errorf("transition(%s, %s) = (%s, %v), want ErrInvalidState", tc.from, tc.to, got, err)
		}
	}
}
