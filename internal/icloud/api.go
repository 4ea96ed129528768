// Package icloud talks to the Hide My Email web service: listing aliases,
// deactivating them, and deleting them. A mock implementation backs tests
// and offline fixture runs.
package icloud

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/wesm/aliasvault/internal/alias"
)

// AliasMutator changes the lifecycle state of a single alias.
type AliasMutator interface {
	// Deactivate stops the alias from forwarding mail. It can be reactivated
	// on the service.
	Deactivate(ctx context.Context, r alias.Record) error

	// Delete permanently removes an inactive alias.
	Delete(ctx context.Context, r alias.Record) error
}

// API is everything a bulk run needs from the alias service.
type API interface {
	alias.Loader
	AliasMutator

	// Close releases any resources held by the client.
	Close() error
}

// ErrSessionExpired is returned when the service rejects the session cookie.
var ErrSessionExpired = eris.New("icloud session expired or invalid")

// NotFoundError indicates the alias no longer exists on the service.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("alias not found: %s", e.ID)
}

// ServiceError is a well-formed response that reports failure.
type ServiceError struct {
	Code    string
	Message string
}

func (e *ServiceError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("service error %s", e.Code)
	}
	return fmt.Sprintf("service error %s: %s", e.Code, e.Message)
}
