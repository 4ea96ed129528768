// Package progress tracks the running counters of a bulk pass and derives
// elapsed time, throughput and ETA from them.
package progress

import (
	"fmt"
	"time"
)

// recentWindow is the number of trailing items used for the recent rate.
const recentWindow = 5

// Execution holds the running counters of one executor pass. The executor
// owns it; everything else reads it through Compute.
type Execution struct {
	Total     int
	Processed int
	Succeeded int
	Failed    int
	StartedAt time.Time
	ItemTimes []time.Time // completion time of each processed item
}

// Start returns a fresh Execution for total items beginning at now.
func Start(total int, now time.Time) *Execution {
	return &Execution{
		Total:     total,
		StartedAt: now,
		ItemTimes: make([]time.Time, 0, total),
	}
}

// Record counts one processed item that finished at now.
func (e *Execution) Record(ok bool, now time.Time) {
	e.Processed++
	if ok {
		e.Succeeded++
	} else {
		e.Failed++
	}
	e.ItemTimes = append(e.ItemTimes, now)
}

// Remaining is the number of items not yet processed.
func (e *Execution) Remaining() int {
	if r := e.Total - e.Processed; r > 0 {
		return r
	}
	return 0
}

// Snapshot is a point-in-time projection of an Execution.
type Snapshot struct {
	Total     int
	Processed int
	Succeeded int
	Failed    int
	Remaining int
	Percent   float64

	Elapsed time.Duration

	// AverageRate is succeeded items per second since start.
	AverageRate float64
	// RecentRate is items per second over the last few processed items.
	RecentRate float64

	// ETA is only meaningful when HasETA is true.
	ETA    time.Duration
	HasETA bool
}

// PerMinute converts a per-second rate for display.
func PerMinute(rate float64) float64 {
	return rate * 60
}

// Compute projects e at time now. It never modifies e.
func Compute(e *Execution, now time.Time) Snapshot {
	s := Snapshot{
		Total:     e.Total,
		Processed: e.Processed,
		Succeeded: e.Succeeded,
		Failed:    e.Failed,
		Remaining: e.Remaining(),
	}
	if e.Total > 0 {
		s.Percent = float64(e.Processed) / float64(e.Total) * 100
	}
	if !e.StartedAt.IsZero() && now.After(e.StartedAt) {
		s.Elapsed = now.Sub(e.StartedAt)
	}

	if secs := s.Elapsed.Seconds(); secs > 0 {
		s.AverageRate = float64(e.Succeeded) / secs
	}
	s.RecentRate = recentRate(e)

	if s.AverageRate > 0 && s.Remaining > 0 {
		s.ETA = time.Duration(float64(s.Remaining) / s.AverageRate * float64(time.Second))
		s.HasETA = true
	}
	return s
}

// recentRate measures throughput across the trailing window of item
// completions, anchored at the previous item (or the start time).
func recentRate(e *Execution) float64 {
	n := len(e.ItemTimes)
	if n == 0 {
		return 0
	}
	window := recentWindow
	if window > n {
		window = n
	}
	end := e.ItemTimes[n-1]
	var begin time.Time
	if n > window {
		begin = e.ItemTimes[n-window-1]
	} else {
		begin = e.StartedAt
	}
	span := end.Sub(begin).Seconds()
	if span <= 0 {
		return 0
	}
	return float64(window) / span
}

// FormatDuration renders d for humans: 45s, 3m05s, 1h02m.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh%02dm", int(d.Hours()), int(d.Minutes())%60)
	}
}
