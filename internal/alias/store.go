package alias

import (
	"context"
	"fmt"
)

// Loader reads the full set of aliases from the service.
type Loader interface {
	LoadRecords(ctx context.Context) ([]Record, error)
}

// Store is a snapshot of all aliases taken at the start of a run. It is
// mutated only by the executor that owns it, right after each successful
// external action, and is discarded when the run ends.
//
// Store is not safe for concurrent use.
type Store struct {
	records []Record
	index   map[string]int // address -> position in records
}

// Load reads a snapshot through the loader.
func Load(ctx context.Context, l Loader) (*Store, error) {
	recs, err := l.LoadRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aliases: %w", err)
	}
	return NewStore(recs)
}

// NewStore builds a store from records, preserving their order.
func NewStore(recs []Record) (*Store, error) {
	s := &Store{
		records: make([]Record, 0, len(recs)),
		index:   make(map[string]int, len(recs)),
	}
	for _, r := range recs {
		if r.Address == "" {
			return nil, fmt.Errorf("alias %q has no address", r.ID)
		}
		if _, dup := s.index[r.Address]; dup {
			return nil, fmt.Errorf("duplicate alias address %q", r.Address)
		}
		if r.Status == "" {
			r.Status = StatusActive
		}
		s.index[r.Address] = len(s.records)
		s.records = append(s.records, r)
	}
	return s, nil
}

// Len returns the number of records in the snapshot, including removed ones.
func (s *Store) Len() int {
	return len(s.records)
}

// WithStatus returns copies of the records whose status is one of statuses,
// in snapshot order. No statuses means every record that is not removed.
func (s *Store) WithStatus(statuses ...Status) []Record {
	var out []Record
	for _, r := range s.records {
		if len(statuses) == 0 {
			if r.Status != StatusRemoved {
				out = append(out, r)
			}
			continue
		}
		for _, st := range statuses {
			if r.Status == st {
				out = append(out, r)
				break
			}
		}
	}
	return out
}

// Count returns the number of records with the given status.
func (s *Store) Count(status Status) int {
	n := 0
	for _, r := range s.records {
		if r.Status == status {
			n++
		}
	}
	return n
}

// Get returns the record for an address.
func (s *Store) Get(address string) (Record, bool) {
	i, ok := s.index[address]
	if !ok {
		return Record{}, false
	}
	return s.records[i], true
}

// MarkInactive records a successful deactivation.
func (s *Store) MarkInactive(address string) error {
	return s.setStatus(address, StatusInactive)
}

// MarkRemoved records a successful deletion.
func (s *Store) MarkRemoved(address string) error {
	return s.setStatus(address, StatusRemoved)
}

func (s *Store) setStatus(address string, to Status) error {
	i, ok := s.index[address]
	if !ok {
		return fmt.Errorf("alias %q not in snapshot", address)
	}
	if err := transition(s.records[i].Status, to); err != nil {
		return fmt.Errorf("alias %q: %w", address, err)
	}
	s.records[i].Status = to
	return nil
}
