// Package testutil provides test helpers for aliasvault tests.
//
// The package is organized into focused files:
//   - assert.go: assertion helpers (MustNoErr, AssertEqualSlices, etc.)
//   - builders.go: alias record builders
//   - fs_helpers.go: temp file helpers (WriteFile, ReadFile, MustExist)
package testutil
