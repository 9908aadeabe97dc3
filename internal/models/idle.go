package models

import "time"

// IdleState is produced by the activity monitor on each tick.
type IdleState struct {
	IsIdle           bool    `json:"is_idle"`
	IdleDurationSecs float64 `json:"idle_duration_secs"`
}

// IdlePeriod is opened when IsIdle transitions false->true (Start=now) and
// closed on the opposite transition. Invariant: at most one open IdlePeriod
// exists at any time (End == nil means open).
type IdlePeriod struct {
	ID           int64      `json:"id"`
	Start        time.Time  `json:"start"`
	End          *time.Time `json:"end,omitempty"`
	DurationSecs *float64   `json:"duration_secs,omitempty"`
}

// Close closes the period at t, setting duration. No-op if already closed.
func (p *IdlePeriod) Close(t time.Time) {
	if p.End != nil {
		return
	}
	end := t
	p.End = &end
	d := end.Sub(p.Start).Seconds()
	p.DurationSecs = &d
}

// IsOpen reports whether the period has not yet been closed.
func (p *IdlePeriod) IsOpen() bool {
	return p.End == nil
}
