package operations

import (
	"fmt"
	"sync"
	"time"
)

// Snapshot is one point-in-time view of a run's progress. Remaining is
// zero until enough work has completed to support an estimate.
type Snapshot struct {
	Label     string
	Current   int
	Total     int
	Percent   float64
	Message   string
	Elapsed   time.Duration
	Remaining time.Duration
}

// Status renders the snapshot for sink consumption, appending the
// remaining-time estimate once one is available.
func (s Snapshot) Status() string {
	if s.Remaining > 0 {
		return fmt.Sprintf("%s (about %s left)", s.Message, s.Remaining.Round(time.Second))
	}
	return s.Message
}

// ProgressTracker counts completed work items for one run. The total
// may be an approximate caller-supplied estimate; zero means unknown
// and disables the percentage and the remaining-time estimate.
// Increments arrive from concurrently dispatched batch workers and
// must never be lost.
type ProgressTracker struct {
	label string
	total int
	start time.Time

	mu      sync.Mutex
	current int
	message string
}

// NewProgressTracker starts tracking a run of total items.
func NewProgressTracker(label string, total int) *ProgressTracker {
	return &ProgressTracker{
		label: label,
		total: total,
		start: time.Now(),
	}
}

// Increment records one completed item and returns the resulting
// snapshot.
func (p *ProgressTracker) Increment(message string) Snapshot {
	p.mu.Lock()
	p.current++
	current := p.current
	p.message = message
	p.mu.Unlock()

	return p.snapshot(current, message)
}

// Snapshot returns the current progress state.
func (p *ProgressTracker) Snapshot() Snapshot {
	p.mu.Lock()
	current, message := p.current, p.message
	p.mu.Unlock()

	return p.snapshot(current, message)
}

func (p *ProgressTracker) snapshot(current int, message string) Snapshot {
	snap := Snapshot{
		Label:   p.label,
		Current: current,
		Total:   p.total,
		Message: message,
		Elapsed: time.Since(p.start),
	}
	if p.total <= 0 {
		return snap
	}

	snap.Percent = float64(current) / float64(p.total) * 100
	if snap.Percent > 100 {
		snap.Percent = 100
	}
	if current > 0 && current < p.total && snap.Elapsed > 0 {
		perItem := snap.Elapsed / time.Duration(current)
		snap.Remaining = perItem * time.Duration(p.total-current)
	}
	return snap
}
