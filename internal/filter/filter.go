// Package filter selects aliases whose address or label contains a search
// term, ignoring case.
package filter

import (
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/wesm/aliasvault/internal/alias"
	"golang.org/x/text/cases"
)

// Criterion is an optional search term. The zero value matches everything.
type Criterion struct {
	Term string
}

// New returns a criterion for term with surrounding whitespace removed, so
// a blank term is always the identity filter.
func New(term string) Criterion {
	return Criterion{Term: strings.TrimSpace(term)}
}

// IsZero reports whether the criterion is the identity filter.
func (c Criterion) IsZero() bool {
	return strings.TrimSpace(c.Term) == ""
}

// String returns the normalized term.
func (c Criterion) String() string {
	return c.Term
}

// valid reports whether the term can be matched. Invalid UTF-8 cannot be
// folded reliably and falls back to the identity filter.
func (c Criterion) valid() bool {
	return utf8.ValidString(c.Term)
}

// fold folds s for caseless comparison. A new Caser is built per call since
// cases.Caser is stateful and not safe to share.
func fold(s string) string {
	return cases.Fold().String(s)
}

func matchFolded(r alias.Record, term string) bool {
	return strings.Contains(fold(r.Address), term) || strings.Contains(fold(r.Label), term)
}

// Apply returns the records matching c in input order. The input slice is
// never modified; with the identity criterion a copy of records is returned.
func Apply(records []alias.Record, c Criterion) []alias.Record {
	if !c.IsZero() && !c.valid() {
		slog.Warn("ignoring malformed filter term", "term", c.Term)
	}
	if c.IsZero() || !c.valid() {
		out := make([]alias.Record, len(records))
		copy(out, records)
		return out
	}

	term := fold(strings.TrimSpace(c.Term))
	out := make([]alias.Record, 0, len(records))
	for _, r := range records {
		if matchFolded(r, term) {
			out = append(out, r)
		}
	}
	return out
}
