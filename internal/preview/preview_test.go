package preview

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/go-cmp/cmp"
	"github.com/muesli/termenv"
	"github.com/wesm/aliasvault/internal/alias"
	"github.com/wesm/aliasvault/internal/filter"
	"github.com/wesm/aliasvault/internal/testutil"
)

// plainOutput pins lipgloss to no colors for the duration of the test.
func plainOutput(t *testing.T) {
	t.Helper()
	orig := lipgloss.ColorProfile()
	lipgloss.SetColorProfile(termenv.Ascii)
	t.Cleanup(func() { lipgloss.SetColorProfile(orig) })
}

func sampleRecords() []alias.Record {
	return []alias.Record{
		testutil.NewRecord("shop.amazon@icloud.com").WithLabel("Amazon Order").Build(),
		testutil.NewRecord("promo.target@icloud.com").WithLabel("Target Promo (web)").Build(),
		testutil.NewRecord("news.amazon@icloud.com").WithLabel("Amazon Order (app)").Build(),
		testutil.NewRecord("nolabel@icloud.com").Build(),
	}
}

func TestBuild_AmazonScenario(t *testing.T) {
	recs := []alias.Record{
		testutil.NewRecord("a@x.com").WithLabel("Amazon Order").Build(),
		testutil.NewRecord("b@x.com").WithLabel("Target Promo").Build(),
	}
	view := filter.Apply(recs, filter.New("amazon"))
	r := Build(view, Options{Action: ActionPreview, Filter: "amazon", UnfilteredTotal: len(recs)})

	if r.Total != 1 {
		t.Fatalf("Total = %d, want 1", r.Total)
	}
	want := []Item{{Address: "a@x.com", Label: "Amazon Order"}}
	if diff := cmp.Diff(want, r.Items); diff != "" {
		t.Errorf("Items mismatch (-want +got):\n%s", diff)
	}
	if r.UnfilteredTotal != 2 {
		t.Errorf("UnfilteredTotal = %d, want 2", r.UnfilteredTotal)
	}
}

func TestBuild_Aggregates(t *testing.T) {
	r := Build(sampleRecords(), Options{Action: ActionDeactivate})

	wantService := []Count{{"amazon", 2}, {"nolabel", 1}, {"target", 1}}
	if diff := cmp.Diff(wantService, r.ByService); diff != "" {
		t.Errorf("ByService mismatch (-want +got):\n%s", diff)
	}
	wantLabel := []Count{{"Amazon Order", 2}, {"(no label)", 1}, {"Target Promo", 1}}
	if diff := cmp.Diff(wantLabel, r.ByLabel); diff != "" {
		t.Errorf("ByLabel mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_CountsSumToTotal(t *testing.T) {
	for _, n := range []int{0, 1, 7, 60} {
		recs := testutil.Records(n, alias.StatusActive)
		r := Build(recs, Options{Action: ActionDelete})
		if r.Total != len(recs) || len(r.Items) != r.Total {
			t.Errorf("n=%d: Total=%d Items=%d", n, r.Total, len(r.Items))
		}
		if got := sum(r.ByService); got != r.Total {
			t.Errorf("n=%d: service sum = %d, want %d", n, got, r.Total)
		}
		if got := sum(r.ByLabel); got != r.Total {
			t.Errorf("n=%d: label sum = %d, want %d", n, got, r.Total)
		}
	}
}

func TestBuild_Empty(t *testing.T) {
	r := Build(nil, Options{Action: ActionDelete, Filter: "zzz", UnfilteredTotal: 5})
	if !r.Empty {
		t.Error("Empty = false, want true")
	}
	if r.Total != 0 || len(r.Items) != 0 {
		t.Errorf("Total=%d Items=%d, want 0", r.Total, len(r.Items))
	}
	if r.UnfilteredTotal != 5 {
		t.Errorf("UnfilteredTotal = %d, want 5", r.UnfilteredTotal)
	}
}

func TestBuild_DoesNotMutate(t *testing.T) {
	recs := sampleRecords()
	before := make([]alias.Record, len(recs))
	copy(before, recs)
	_ = Build(recs, Options{Action: ActionPurgeDeactivate})
	if diff := cmp.Diff(before, recs); diff != "" {
		t.Errorf("Build mutated input (-before +after):\n%s", diff)
	}
}

func TestBuild_EstimatedDuration(t *testing.T) {
	r := Build(testutil.Records(25, alias.StatusActive), Options{Action: ActionDeactivate, PerItem: 3 * time.Second})
	if r.EstimatedDuration != 75*time.Second {
		t.Errorf("EstimatedDuration = %v, want 75s", r.EstimatedDuration)
	}
	if !r.Large() {
		t.Error("Large() = false for 25 items")
	}
	r = Build(testutil.Records(25, alias.StatusActive), Options{Action: ActionPreview})
	if r.Large() {
		t.Error("Large() should be false for a non-mutating preview")
	}
}

func TestAction(t *testing.T) {
	tests := []struct {
		a            Action
		mutates      bool
		irreversible bool
		verb         string
	}{
		{ActionPreview, false, false, "preview"},
		{ActionDeactivate, true, false, "deactivate"},
		{ActionDelete, true, true, "delete"},
		{ActionPurgeDeactivate, true, true, "deactivate"},
		{ActionPurgeDelete, true, true, "delete"},
	}
	for _, tc := range tests {
		t.Run(string(tc.a), func(t *testing.T) {
			if got := tc.a.Mutates(); got != tc.mutates {
				t.Errorf("Mutates() = %v, want %v", got, tc.mutates)
			}
			if got := tc.a.Irreversible(); got != tc.irreversible {
				t.Errorf("Irreversible() = %v, want %v", got, tc.irreversible)
			}
			if got := tc.a.Verb(); got != tc.verb {
				t.Errorf("Verb() = %q, want %q", got, tc.verb)
			}
		})
	}
}

func TestRender(t *testing.T) {
	plainOutput(t)
	r := Build(sampleRecords(), Options{Action: ActionDeactivate, Filter: "o", UnfilteredTotal: 10})

	var buf bytes.Buffer
	if err := Render(&buf, r, RenderOptions{}); err != nil {
		t.Fatalf("Render: %v", err)
	}
	testutil.AssertContainsAll(t, buf.String(), []string{
		"Aliases to deactivate",
		`Filter: "o"`,
		"Matched 4 of 10 aliases",
		"1. shop.amazon@icloud.com",
		"Amazon Order",
		"By service",
		"By label",
		"(no label)",
	})
	testutil.AssertNotContains(t, buf.String(), "Large operation")
	testutil.AssertNotContains(t, buf.String(), "more")
}

func TestRender_LimitAndOverflow(t *testing.T) {
	plainOutput(t)
	r := Build(testutil.Records(30, alias.StatusActive), Options{Action: ActionDelete, PerItem: 3 * time.Second})

	var buf bytes.Buffer
	if err := Render(&buf, r, RenderOptions{Limit: 20}); err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := buf.String()
	testutil.AssertContainsAll(t, out, []string{
		"a19@x.com",
		"... and 10 more",
		"Large operation: 30 aliases, estimated 1m30s",
	})
	testutil.AssertNotContains(t, out, "a20@x.com")
}

func TestRender_Unlimited(t *testing.T) {
	plainOutput(t)
	r := Build(testutil.Records(60, alias.StatusActive), Options{Action: ActionPreview})

	var buf bytes.Buffer
	if err := Render(&buf, r, RenderOptions{Limit: Unlimited}); err != nil {
		t.Fatalf("Render: %v", err)
	}
	testutil.AssertContainsAll(t, buf.String(), []string{"a0@x.com", "a59@x.com"})
	testutil.AssertNotContains(t, buf.String(), "more\n")
}

func TestRender_SummaryLimit(t *testing.T) {
	plainOutput(t)
	var recs []alias.Record
	for i := range 12 {
		recs = append(recs, testutil.NewRecord(fmt.Sprintf("x.svc%02d@icloud.com", i)).Build())
	}
	r := Build(recs, Options{Action: ActionPreview})

	var buf bytes.Buffer
	if err := Render(&buf, r, RenderOptions{SummaryLimit: 10}); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(buf.String(), "(2 more)") {
		t.Errorf("expected overflow marker in:\n%s", buf.String())
	}
}

func TestRender_Empty(t *testing.T) {
	plainOutput(t)
	r := Build(nil, Options{Action: ActionDelete, Filter: "nothing"})

	var buf bytes.Buffer
	if err := Render(&buf, r, RenderOptions{}); err != nil {
		t.Fatalf("Render: %v", err)
	}
	testutil.AssertContainsAll(t, buf.String(), []string{`No aliases match "nothing".`})
	testutil.AssertNotContains(t, buf.String(), "By service")
}

func TestRender_TruncatesLongLabels(t *testing.T) {
	plainOutput(t)
	long := strings.Repeat("L", 200)
	r := Build([]alias.Record{testutil.NewRecord("a@x.com").WithLabel(long).Build()}, Options{Action: ActionPreview})

	var buf bytes.Buffer
	if err := Render(&buf, r, RenderOptions{Width: 80}); err != nil {
		t.Fatalf("Render: %v", err)
	}
	for _, line := range strings.Split(buf.String(), "\n") {
		if strings.Contains(line, "a@x.com") && strings.Contains(line, long) {
			t.Errorf("label not truncated: %q", line)
		}
	}
	if !strings.Contains(buf.String(), "…") {
		t.Error("expected truncation marker")
	}
}

// sum adds up the counts of an aggregate.
func sum(counts []Count) int {
	n := 0
	for _, c := range counts {
		n += c.Count
	}
	return n
}
