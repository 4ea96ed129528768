package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/wesm/aliasvault/internal/alias"
	"github.com/wesm/aliasvault/internal/icloud"
)

func TestGenerate_Deterministic(t *testing.T) {
	a := Generate(40, 0.3, 7)
	b := Generate(40, 0.3, 7)
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("same seed gave different output (-first +second):\n%s", diff)
	}
	if cmp.Equal(a, Generate(40, 0.3, 8)) {
		t.Error("different seeds gave identical output")
	}
}

func TestGenerate_Shape(t *testing.T) {
	recs := Generate(200, 0.5, 1)
	if len(recs) != 200 {
		t.Fatalf("len = %d, want 200", len(recs))
	}

	seen := map[string]bool{}
	inactive := 0
	for _, r := range recs {
		if seen[r.Address] {
			t.Errorf("duplicate address %s", r.Address)
		}
		seen[r.Address] = true
		if r.ID == "" {
			t.Errorf("%s has no ID", r.Address)
		}
		if r.Status == alias.StatusInactive {
			inactive++
		}
	}
	if inactive == 0 || inactive == len(recs) {
		t.Errorf("inactive = %d of %d, want a mix", inactive, len(recs))
	}
}

func TestGenerate_AllActive(t *testing.T) {
	for _, r := range Generate(20, 0, 3) {
		if r.Status != alias.StatusActive {
			t.Fatalf("%s is %s, want active", r.Address, r.Status)
		}
	}
}

func TestGenerate_RoundTripsThroughFixture(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aliases.json")
	recs := Generate(10, 0.3, 2)
	if err := icloud.NewMockAPI(recs...).SaveFixture(path); err != nil {
		t.Fatalf("SaveFixture: %v", err)
	}

	m, err := icloud.LoadFixture(path)
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}
	got, err := m.LoadRecords(context.Background())
	if err != nil {
		t.Fatalf("LoadRecords: %v", err)
	}
	if diff := cmp.Diff(recs, got); diff != "" {
		t.Errorf("fixture round trip mismatch (-want +got):\n%s", diff)
	}
}
