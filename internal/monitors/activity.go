package monitors

import (
	"sync"
	"time"

	"github.com/vthunder/bud2/internal/clock"
	"github.com/vthunder/bud2/internal/models"
)

// ActivityMonitor tracks the instant of last observed keyboard or mouse
// input, grounded on the mutex-protected last-activity-timestamp idiom in
// the i9wa4-tmux-a2a-postman idle tracker, simplified from its per-node map
// to the single local-user case this spec needs.
type ActivityMonitor struct {
	clock clock.Clock
	mu    sync.Mutex
	last  time.Time
}

// NewActivityMonitor constructs a monitor with its last-activity instant
// seeded to now, so a freshly started process is never immediately idle.
func NewActivityMonitor(c clock.Clock) *ActivityMonitor {
	return &ActivityMonitor{clock: c, last: c.Now()}
}

// RecordActivity is called by the platform input collaborator on any
// keyboard or mouse signal.
func (a *ActivityMonitor) RecordActivity() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.last = a.clock.Now()
}

// IsIdle reports whether the elapsed time since the last recorded activity
// exceeds thresholdSecs.
func (a *ActivityMonitor) IsIdle(thresholdSecs float64) bool {
	a.mu.Lock()
	elapsed := a.clock.Now().Sub(a.last)
	a.mu.Unlock()
	return elapsed.Seconds() > thresholdSecs
}

// IdleDuration returns the elapsed time since the last recorded activity.
func (a *ActivityMonitor) IdleDuration() time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.clock.Now().Sub(a.last)
}

// Sample returns the current IdleState for a given threshold, without
// mutating transition bookkeeping; the scheduler is responsible for
// detecting the false→true and true→false transitions and opening/closing
// the corresponding IdlePeriod in storage (§3 "IdleState" invariant).
func (a *ActivityMonitor) Sample(thresholdSecs float64) models.IdleState {
	d := a.IdleDuration()
	return models.IdleState{
		IsIdle:          d.Seconds() > thresholdSecs,
		IdleDurationSecs: d.Seconds(),
	}
}
