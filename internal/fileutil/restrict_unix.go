//go:build !windows

package fileutil

// restrict is a no-op on Unix, where the mode bits are sufficient.
func restrict(string) error { return nil }
