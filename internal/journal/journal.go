// Package journal keeps a write-only record of finished runs so a user can
// reconcile what happened against the service later. The engine never
// reads it back.
package journal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/wesm/aliasvault/internal/bulk"
	"github.com/wesm/aliasvault/internal/fileutil"
)

// Pass is the journaled outcome of one executor pass.
type Pass struct {
	Action          string   `json:"action"`
	State           string   `json:"state"`
	Total           int      `json:"total"`
	Succeeded       int      `json:"succeeded"`
	Failed          int      `json:"failed"`
	Remaining       int      `json:"remaining"`
	FailedAddresses []string `json:"failed_addresses,omitempty"`
	ElapsedSeconds  float64  `json:"elapsed_seconds"`
}

// Entry is one journaled run.
type Entry struct {
	Version    int       `json:"version"`
	ID         string    `json:"id"`
	Mode       string    `json:"mode"`
	Filter     string    `json:"filter,omitempty"`
	Outcome    string    `json:"outcome"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Total      int       `json:"total"`
	Succeeded  int       `json:"succeeded"`
	Failed     int       `json:"failed"`
	Remaining  int       `json:"remaining"`
	Passes     []Pass    `json:"passes"`
}

// FromSummary converts a run summary into a journal entry.
func FromSummary(s *bulk.Summary) *Entry {
	e := &Entry{
		Version:    1,
		ID:         generateID(s.StartedAt, string(s.Mode), s.Filter),
		Mode:       string(s.Mode),
		Filter:     s.Filter,
		Outcome:    string(s.Outcome()),
		StartedAt:  s.StartedAt,
		FinishedAt: s.StartedAt.Add(s.Elapsed),
		Total:      s.Total,
		Succeeded:  s.Succeeded,
		Failed:     s.Failed,
		Remaining:  s.Remaining,
		Passes:     make([]Pass, 0, len(s.Passes)),
	}
	for _, p := range s.Passes {
		e.Passes = append(e.Passes, Pass{
			Action:          string(p.Action),
			State:           string(p.State),
			Total:           p.Total,
			Succeeded:       p.Succeeded,
			Failed:          p.Failed,
			Remaining:       p.Remaining(),
			FailedAddresses: p.FailedAddresses,
			ElapsedSeconds:  p.Elapsed.Seconds(),
		})
	}
	return e
}

// generateID creates an entry ID from timestamp, mode, and filter.
func generateID(ts time.Time, mode, filter string) string {
	name := mode
	if f := sanitizeForFilename(filter); f != "" {
		if len(f) > 20 {
			f = f[:20]
		}
		name += "-" + f
	}
	return fmt.Sprintf("%s-%s", ts.Format("20060102-150405"), name)
}

// sanitizeForFilename removes characters unsafe for filenames.
func sanitizeForFilename(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '-' || c == '_':
			b.WriteByte(c)
		case c == ' ' || c == '.' || c == '@':
			b.WriteByte('-')
		}
	}
	return b.String()
}

// Load reads an entry from a JSON file.
func Load(path string) (*Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// Save writes the entry to a JSON file readable only by the owner.
func (e *Entry) Save(path string) error {
	if err := fileutil.MkdirPrivate(filepath.Dir(path)); err != nil {
		return err
	}
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return err
	}
	return fileutil.WriteFileAtomic(path, data, fileutil.PrivateFile)
}

// FormatSummary returns a human-readable description of the run.
func (e *Entry) FormatSummary() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Run: %s\n", e.ID)
	fmt.Fprintf(&sb, "Mode: %s\n", e.Mode)
	if e.Filter != "" {
		fmt.Fprintf(&sb, "Filter: %q\n", e.Filter)
	}
	fmt.Fprintf(&sb, "Outcome: %s\n", e.Outcome)
	fmt.Fprintf(&sb, "Started: %s\n", e.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(&sb, "Finished: %s\n", e.FinishedAt.Format(time.RFC3339))
	fmt.Fprintf(&sb, "Succeeded: %d  Failed: %d  Remaining: %d (of %d)\n", e.Succeeded, e.Failed, e.Remaining, e.Total)

	for _, p := range e.Passes {
		fmt.Fprintf(&sb, "\nPass %s: %s\n", p.Action, p.State)
		fmt.Fprintf(&sb, "  Succeeded: %d\n", p.Succeeded)
		fmt.Fprintf(&sb, "  Failed: %d\n", p.Failed)
		fmt.Fprintf(&sb, "  Remaining: %d\n", p.Remaining)
		for _, a := range p.FailedAddresses {
			fmt.Fprintf(&sb, "    failed: %s\n", a)
		}
	}
	return sb.String()
}

// Manager stores entries in one directory per outcome.
type Manager struct {
	baseDir string // ~/.aliasvault/journal
}

var outcomes = []bulk.State{bulk.StateCompleted, bulk.StateInterrupted, bulk.StateAborted}

// NewManager creates a journal manager rooted at baseDir.
func NewManager(baseDir string) (*Manager, error) {
	m := &Manager{baseDir: baseDir}
	for _, o := range outcomes {
		d := m.dir(string(o))
		if err := fileutil.MkdirPrivate(d); err != nil {
			return nil, fmt.Errorf("create %s: %w", d, err)
		}
	}
	return m, nil
}

func (m *Manager) dir(outcome string) string {
	return filepath.Join(m.baseDir, outcome)
}

// Record journals a run summary and returns the entry written.
func (m *Manager) Record(s *bulk.Summary) (*Entry, error) {
	e := FromSummary(s)
	if err := m.Save(e); err != nil {
		return nil, err
	}
	return e, nil
}

// Save writes e into the directory for its outcome.
func (m *Manager) Save(e *Entry) error {
	outcome := e.Outcome
	if outcome == "" {
		outcome = string(bulk.StateCompleted)
	}
	return e.Save(filepath.Join(m.dir(outcome), e.ID+".json"))
}

// List returns every entry, newest first.
func (m *Manager) List() ([]*Entry, error) {
	var all []*Entry
	for _, o := range outcomes {
		entries, err := m.listDir(m.dir(string(o)))
		if err != nil {
			return nil, err
		}
		all = append(all, entries...)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].StartedAt.After(all[j].StartedAt)
	})
	return all, nil
}

func (m *Manager) listDir(dir string) ([]*Entry, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var entries []*Entry
	for _, f := range files {
		if f.IsDir() || filepath.Ext(f.Name()) != ".json" {
			continue
		}
		e, err := Load(filepath.Join(dir, f.Name()))
		if err != nil {
			continue // Skip unreadable entries
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Get loads an entry by ID from any outcome directory.
func (m *Manager) Get(id string) (*Entry, error) {
	if id == "" || id != filepath.Base(id) {
		return nil, fmt.Errorf("invalid run id %q", id)
	}
	for _, o := range outcomes {
		if e, err := Load(filepath.Join(m.dir(string(o)), id+".json")); err == nil {
			return e, nil
		}
	}
	return nil, fmt.Errorf("run %s not found", id)
}
