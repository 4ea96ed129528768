// Package bulk runs lifecycle operations over many aliases: it filters the
// snapshot, previews the targets, gates on confirmation, and then applies
// one external action per alias with pacing and cooperative interruption.
package bulk

import (
	"fmt"
	"strings"

	"github.com/wesm/aliasvault/internal/alias"
)

// Mode is the operation a run performs.
type Mode string

const (
	ModePreview    Mode = "preview"
	ModeDeactivate Mode = "deactivate"
	ModeDelete     Mode = "delete"
	ModePurge      Mode = "purge" // deactivate, then delete
)

// Modes lists every mode in menu order.
var Modes = []Mode{ModeDeactivate, ModeDelete, ModePurge, ModePreview}

// ParseMode converts a mode name.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	switch m {
	case ModePreview, ModeDeactivate, ModeDelete, ModePurge:
		return m, nil
	}
	return "", fmt.Errorf("unknown mode %q", s)
}

// Describe is a one-line explanation for menus and help.
func (m Mode) Describe() string {
	switch m {
	case ModeDeactivate:
		return "Deactivate active aliases"
	case ModeDelete:
		return "Delete inactive aliases"
	case ModePurge:
		return "Deactivate and then delete aliases"
	case ModePreview:
		return "Preview aliases without changing anything"
	}
	return string(m)
}

// Scope selects which statuses a preview covers.
type Scope string

const (
	ScopeAll      Scope = "all"
	ScopeActive   Scope = "active"
	ScopeInactive Scope = "inactive"
)

// ParseScope converts a scope name. Empty means ScopeAll.
func ParseScope(s string) (Scope, error) {
	switch sc := Scope(strings.ToLower(strings.TrimSpace(s))); sc {
	case "", ScopeAll, "both":
		return ScopeAll, nil
	case ScopeActive, ScopeInactive:
		return sc, nil
	}
	return "", fmt.Errorf("unknown scope %q (want active, inactive, or all)", s)
}

func (s Scope) statuses() []alias.Status {
	switch s {
	case ScopeActive:
		return []alias.Status{alias.StatusActive}
	case ScopeInactive:
		return []alias.Status{alias.StatusInactive}
	}
	return []alias.Status{alias.StatusActive, alias.StatusInactive}
}

// Request describes one run.
type Request struct {
	Mode   Mode
	Filter string
	Scope  Scope // preview only

	// DryRun builds the preview of a mutating mode and stops before the gate.
	DryRun bool
}

func (r Request) validate() error {
	if _, err := ParseMode(string(r.Mode)); err != nil {
		return err
	}
	if _, err := ParseScope(string(r.Scope)); err != nil {
		return err
	}
	return nil
}

// String summarizes the request for logs.
func (r Request) String() string {
	if r.Filter == "" {
		return string(r.Mode)
	}
	return fmt.Sprintf("%s filter=%q", r.Mode, r.Filter)
}
