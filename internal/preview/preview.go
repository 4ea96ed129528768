// Package preview summarizes a filtered set of aliases before anything is
// changed, so the user can review what an operation would touch.
package preview

import (
	"cmp"
	"slices"
	"time"

	"github.com/wesm/aliasvault/internal/alias"
)

// Action names what the previewed records are about to go through.
type Action string

const (
	ActionPreview         Action = "preview"
	ActionDeactivate      Action = "deactivate"
	ActionDelete          Action = "delete"
	ActionPurgeDeactivate Action = "purge-deactivate" // first purge pass
	ActionPurgeDelete     Action = "purge-delete"     // second purge pass
)

// Mutates reports whether the action changes anything on the service.
func (a Action) Mutates() bool {
	return a != ActionPreview && a != ""
}

// Irreversible reports whether the action deletes aliases.
func (a Action) Irreversible() bool {
	switch a {
	case ActionDelete, ActionPurgeDeactivate, ActionPurgeDelete:
		return true
	}
	return false
}

// Verb is the human form of the action used in prompts and headers.
func (a Action) Verb() string {
	switch a {
	case ActionDeactivate, ActionPurgeDeactivate:
		return "deactivate"
	case ActionDelete, ActionPurgeDelete:
		return "delete"
	}
	return "preview"
}

// LargeOperation is the item count above which a time warning is shown.
const LargeOperation = 20

// Item is one previewed alias.
type Item struct {
	Address string
	Label   string
}

// Count is one row of an aggregate.
type Count struct {
	Name  string
	Count int
}

// Report is the reviewable summary of a filtered view.
type Report struct {
	Action          Action
	Filter          string
	Scope           string // preview only: which statuses were included
	Total           int    // always len(Items)
	UnfilteredTotal int
	Items           []Item
	ByService       []Count
	ByLabel         []Count
	Empty           bool

	// PurgeStart marks the first confirmation a purge asks for. It is set
	// on the delete step when the deactivate step had nothing to do.
	PurgeStart bool

	// EstimatedDuration is Total times the configured per-item delay.
	EstimatedDuration time.Duration
}

// Large reports whether the report warrants the large-operation warning.
func (r *Report) Large() bool {
	return r.Action.Mutates() && r.Total > LargeOperation
}

// Options describe the context a view was produced in.
type Options struct {
	Action          Action
	Filter          string
	Scope           string
	UnfilteredTotal int
	PerItem         time.Duration
}

// Build summarizes view. Records are only read.
func Build(view []alias.Record, opts Options) *Report {
	r := &Report{
		Action:            opts.Action,
		Filter:            opts.Filter,
		Scope:             opts.Scope,
		Total:             len(view),
		UnfilteredTotal:   opts.UnfilteredTotal,
		Items:             make([]Item, 0, len(view)),
		Empty:             len(view) == 0,
		EstimatedDuration: time.Duration(len(view)) * opts.PerItem,
	}
	if r.UnfilteredTotal < r.Total {
		r.UnfilteredTotal = r.Total
	}

	services := make(map[string]int)
	labels := make(map[string]int)
	for _, rec := range view {
		r.Items = append(r.Items, Item{Address: rec.Address, Label: rec.Label})
		services[rec.ServiceTag()]++
		labels[rec.LabelTag()]++
	}
	r.ByService = sortedCounts(services)
	r.ByLabel = sortedCounts(labels)
	return r
}

// sortedCounts orders by count descending, then name ascending.
func sortedCounts(m map[string]int) []Count {
	out := make([]Count, 0, len(m))
	for name, n := range m {
		out = append(out, Count{Name: name, Count: n})
	}
	slices.SortFunc(out, func(a, b Count) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return out
}
