package testutil

import (
	"fmt"
	"time"

	"github.com/wesm/aliasvault/internal/alias"
)

// RecordBuilder provides a fluent API for constructing alias.Record in tests.
type RecordBuilder struct {
	r alias.Record
}

// NewRecord creates a builder with sensible defaults for the given address.
func NewRecord(address string) *RecordBuilder {
	return &RecordBuilder{
		r: alias.Record{
			ID:        "id-" + address,
			Address:   address,
			Status:    alias.StatusActive,
			ForwardTo: "me@example.com",
			CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	}
}

func (b *RecordBuilder) WithLabel(l string) *RecordBuilder {
	b.r.Label = l
	return b
}

func (b *RecordBuilder) WithNote(n string) *RecordBuilder {
	b.r.Note = n
	return b
}

func (b *RecordBuilder) Inactive() *RecordBuilder {
	b.r.Status = alias.StatusInactive
	return b
}

func (b *RecordBuilder) WithStatus(s alias.Status) *RecordBuilder {
	b.r.Status = s
	return b
}

func (b *RecordBuilder) Build() alias.Record {
	return b.r
}

// Records generates n records named a0@x.com, a1@x.com, ... with the given status.
func Records(n int, status alias.Status) []alias.Record {
	out := make([]alias.Record, n)
	for i := range out {
		out[i] = NewRecord(fmt.Sprintf("a%d@x.com", i)).WithStatus(status).Build()
	}
	return out
}

// Addresses extracts addresses from records, preserving order.
func Addresses(recs []alias.Record) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Address
	}
	return out
}
