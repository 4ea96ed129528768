package main

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/wesm/aliasvault/internal/alias"
)

var services = []struct {
	tag, label string
}{
	{"amazon", "Amazon Order"},
	{"target", "Target Promo"},
	{"netflix", "Netflix"},
	{"github", "GitHub"},
	{"newsletter", "Weekly Newsletter"},
	{"airline", "Flight Booking"},
	{"bank", "Bank Alerts"},
	{"forum", ""},
}

var words = []string{"quiet", "amber", "swift", "lunar", "cedar", "polar", "rusty", "velvet", "mint", "ember"}

// Generate returns n aliases with roughly inactive of them inactive. The
// output depends only on the arguments.
func Generate(n int, inactive float64, seed uint64) []alias.Record {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	base := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)

	out := make([]alias.Record, 0, n)
	seen := make(map[string]bool, n)
	for i := 0; len(out) < n; i++ {
		svc := services[rng.IntN(len(services))]
		addr := fmt.Sprintf("%s_%s_%02d.%s@icloud.com",
			words[rng.IntN(len(words))], words[rng.IntN(len(words))], i%100, svc.tag)
		if seen[addr] {
			continue
		}
		seen[addr] = true

		status := alias.StatusActive
		if rng.Float64() < inactive {
			status = alias.StatusInactive
		}
		out = append(out, alias.Record{
			ID:        fmt.Sprintf("fixture-%04d", len(out)),
			Address:   addr,
			Label:     svc.label,
			Status:    status,
			ForwardTo: "me@example.com",
			CreatedAt: base.Add(time.Duration(rng.IntN(3*365*24)) * time.Hour),
		})
	}
	return out
}
