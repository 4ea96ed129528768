// Package alias holds the in-memory snapshot of Hide My Email aliases that a
// single run operates on.
package alias

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Status is the lifecycle state of an alias.
type Status string

const (
	StatusActive   Status = "active"   // Receives mail
	StatusInactive Status = "inactive" // Exists but does not forward mail
	StatusRemoved  Status = "removed"  // Deleted during this run
)

// ErrInvalidTransition is returned when a status change would move a record
// backwards or skip a state.
var ErrInvalidTransition = errors.New("invalid status transition")

const (
	unknownService = "(unknown)"
	noLabel        = "(no label)"
)

// Record is a single alias address and its attributes as last observed from
// the service.
type Record struct {
	ID        string    `json:"id"` // Service handle (anonymousId) used for mutations
	Address   string    `json:"address"`
	Label     string    `json:"label,omitempty"`
	Note      string    `json:"note,omitempty"`
	Status    Status    `json:"status"`
	ForwardTo string    `json:"forward_to,omitempty"`
	CreatedAt time.Time `json:"created_at,omitzero"`
}

// ServiceTag derives an aggregation key from the address. It is the last
// dot-separated segment of the local part, e.g. "shop.amazon@icloud.com"
// yields "amazon".
func (r Record) ServiceTag() string {
	local := r.Address
	if at := strings.LastIndex(local, "@"); at >= 0 {
		local = local[:at]
	}
	if dot := strings.LastIndex(local, "."); dot >= 0 {
		local = local[dot+1:]
	}
	local = strings.TrimSpace(local)
	if local == "" {
		return unknownService
	}
	return local
}

// LabelTag is the label without any trailing "(source)" annotation.
func (r Record) LabelTag() string {
	main, _, _ := strings.Cut(r.Label, "(")
	main = strings.TrimSpace(main)
	if main == "" {
		return noLabel
	}
	return main
}

// transition returns the status reached by applying to, or an error if the
// move is not allowed. Only active->inactive and inactive->removed exist.
func transition(from, to Status) error {
	switch {
	case from == StatusActive && to == StatusInactive:
		return nil
	case from == StatusInactive && to == StatusRemoved:
		return nil
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

// ParseStatus converts a user-supplied status name.
func ParseStatus(s string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case StatusActive:
		return StatusActive, nil
	case StatusInactive:
		return StatusInactive, nil
	case StatusRemoved:
		return StatusRemoved, nil
	}
	return "", fmt.Errorf("unknown status %q", s)
}
