// Package fileutil writes the files aliasvault keeps on disk: the home
// directory, the run journal, and fixtures written back after a rehearsal.
// Private paths are owner-only; on Windows that is also enforced with a
// DACL, since mode bits alone do not restrict access there.
package fileutil

import (
	"log/slog"
	"os"
	"path/filepath"
)

const (
	PrivateFile os.FileMode = 0600
	PrivateDir  os.FileMode = 0700
)

func isOwnerOnly(perm os.FileMode) bool {
	return perm&0077 == 0
}

// restrictBestEffort applies the platform restriction and only warns on
// failure: the mode bits were already set.
func restrictBestEffort(path string) {
	if err := restrict(path); err != nil {
		slog.Warn("fileutil: best-effort DACL failed", "path", path, "err", err)
	}
}

// MkdirPrivate creates dir and any missing parents as owner-only.
func MkdirPrivate(dir string) error {
	missing := missingDirs(dir)
	if err := os.MkdirAll(dir, PrivateDir); err != nil {
		return err
	}
	for _, d := range missing {
		restrictBestEffort(d)
	}
	return nil
}

// missingDirs lists dir and each ancestor that does not exist yet, leaf first.
func missingDirs(dir string) []string {
	var out []string
	p := filepath.Clean(dir)
	for p != "" && p != "." && p != string(filepath.Separator) {
		if _, err := os.Stat(p); err == nil {
			break
		}
		out = append(out, p)
		parent := filepath.Dir(p)
		if parent == p {
			break
		}
		p = parent
	}
	return out
}

// WriteFileAtomic replaces path with data through a temporary file in the
// same directory, so readers see either the old or the new content. The
// parent directory must exist.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpPath) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		cleanup()
		return err
	}
	if isOwnerOnly(perm) {
		restrictBestEffort(path)
	}
	return nil
}
