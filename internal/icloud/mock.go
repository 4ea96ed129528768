package icloud

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/wesm/aliasvault/internal/alias"
)

// Operation names used in call tracking.
const (
	CallList       = "list"
	CallDeactivate = "deactivate"
	CallDelete     = "delete"
)

// MockAPI is an in-memory alias service with error injection and call
// tracking. Successful calls change its own copy of the aliases, so a
// second LoadRecords observes the effect of the first run.
type MockAPI struct {
	mu sync.Mutex

	aliases []alias.Record

	// LoadError is returned by LoadRecords when set.
	LoadError error

	// Per-address error injection.
	DeactivateErrors map[string]error
	DeleteErrors     map[string]error

	// Transient errors: fail N times then succeed. Key is the address.
	TransientDeactivateFailures map[string]int
	TransientDeleteFailures     map[string]int

	// Call tracking, by address.
	DeactivateCalls []string
	DeleteCalls     []string
	CallSequence    []Call

	// Hooks run before each mutation. A non-nil error is returned as the
	// call's result.
	BeforeDeactivate func(r alias.Record) error
	BeforeDelete     func(r alias.Record) error
}

// Call is one recorded API call.
type Call struct {
	Operation string
	Address   string
	Error     error
}

// NewMockAPI creates a mock seeded with recs.
func NewMockAPI(recs ...alias.Record) *MockAPI {
	return &MockAPI{
		aliases:                     slices.Clone(recs),
		DeactivateErrors:            make(map[string]error),
		DeleteErrors:                make(map[string]error),
		TransientDeactivateFailures: make(map[string]int),
		TransientDeleteFailures:     make(map[string]int),
	}
}

// LoadRecords returns the current aliases.
func (m *MockAPI) LoadRecords(ctx context.Context) ([]alias.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.recordCall(CallList, "", m.LoadError)
	if m.LoadError != nil {
		return nil, m.LoadError
	}
	return slices.Clone(m.aliases), nil
}

// Deactivate marks the alias inactive.
func (m *MockAPI) Deactivate(ctx context.Context, r alias.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.BeforeDeactivate != nil {
		if err := m.BeforeDeactivate(r); err != nil {
			m.recordCall(CallDeactivate, r.Address, err)
			return err
		}
	}

	m.DeactivateCalls = append(m.DeactivateCalls, r.Address)

	err := m.checkErrors(r.Address, m.TransientDeactivateFailures, m.DeactivateErrors)
	if err == nil {
		err = m.setStatus(r, alias.StatusInactive)
	}
	m.recordCall(CallDeactivate, r.Address, err)
	return err
}

// Delete removes an alias.
func (m *MockAPI) Delete(ctx context.Context, r alias.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.BeforeDelete != nil {
		if err := m.BeforeDelete(r); err != nil {
			m.recordCall(CallDelete, r.Address, err)
			return err
		}
	}

	m.DeleteCalls = append(m.DeleteCalls, r.Address)

	err := m.checkErrors(r.Address, m.TransientDeleteFailures, m.DeleteErrors)
	if err == nil {
		err = m.remove(r)
	}
	m.recordCall(CallDelete, r.Address, err)
	return err
}

// Close is a no-op.
func (m *MockAPI) Close() error {
	return nil
}

// checkErrors must be called with the mutex held.
func (m *MockAPI) checkErrors(address string, transient map[string]int, permanent map[string]error) error {
	if n, ok := transient[address]; ok && n > 0 {
		transient[address] = n - 1
		return fmt.Errorf("transient error (retries remaining: %d)", n-1)
	}
	if err, ok := permanent[address]; ok {
		return err
	}
	return nil
}

// setStatus must be called with the mutex held.
func (m *MockAPI) setStatus(r alias.Record, status alias.Status) error {
	i := m.find(r)
	if i < 0 {
		return &NotFoundError{ID: r.ID}
	}
	m.aliases[i].Status = status
	return nil
}

// remove must be called with the mutex held.
func (m *MockAPI) remove(r alias.Record) error {
	i := m.find(r)
	if i < 0 {
		return &NotFoundError{ID: r.ID}
	}
	if m.aliases[i].Status == alias.StatusActive {
		return &ServiceError{Code: "ACTIVE_ALIAS", Message: "deactivate the alias before deleting it"}
	}
	m.aliases = slices.Delete(m.aliases, i, i+1)
	return nil
}

func (m *MockAPI) find(r alias.Record) int {
	return slices.IndexFunc(m.aliases, func(a alias.Record) bool {
		return a.Address == r.Address
	})
}

// recordCall must be called with the mutex held.
func (m *MockAPI) recordCall(op, address string, err error) {
	m.CallSequence = append(m.CallSequence, Call{Operation: op, Address: address, Error: err})
}

// Aliases returns a copy of the mock's current aliases.
func (m *MockAPI) Aliases() []alias.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.aliases)
}

// SetNotFoundError makes both mutations of address report a missing alias.
func (m *MockAPI) SetNotFoundError(address string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	err := &NotFoundError{ID: "id-" + address}
	m.DeactivateErrors[address] = err
	m.DeleteErrors[address] = err
}

// SetTransientFailure makes address fail n times then succeed.
func (m *MockAPI) SetTransientFailure(address string, n int, forDeactivate bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if forDeactivate {
		m.TransientDeactivateFailures[address] = n
	} else {
		m.TransientDeleteFailures[address] = n
	}
}

// DeactivateCallCount returns the number of deactivate calls for address.
func (m *MockAPI) DeactivateCallCount(address string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return count(m.DeactivateCalls, address)
}

// DeleteCallCount returns the number of delete calls for address.
func (m *MockAPI) DeleteCallCount(address string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return count(m.DeleteCalls, address)
}

// MutationCount returns the total number of deactivate and delete calls.
func (m *MockAPI) MutationCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.DeactivateCalls) + len(m.DeleteCalls)
}

func count(calls []string, address string) int {
	n := 0
	for _, a := range calls {
		if a == address {
			n++
		}
	}
	return n
}

// Ensure MockAPI implements API interface.
var _ API = (*MockAPI)(nil)
