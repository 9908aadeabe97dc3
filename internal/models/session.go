package models

import "time"

// Session tracks one process run. Exactly one is active at a time; created
// at startup, closed on graceful shutdown.
type Session struct {
	SessionID          string     `json:"session_id"`
	StartedAt          time.Time  `json:"started_at"`
	EndedAt            *time.Time `json:"ended_at,omitempty"`
	TotalEvents        int64      `json:"total_events"`
	TotalFrames        int64      `json:"total_frames"`
	TotalIdleSecs      float64    `json:"total_idle_secs"`
	ActiveDurationSecs *float64   `json:"active_duration_secs,omitempty"`
}

// Close finalizes the session at t. No-op if already closed.
func (s *Session) Close(t time.Time) {
	if s.EndedAt != nil {
		return
	}
	end := t
	s.EndedAt = &end
	active := end.Sub(s.StartedAt).Seconds() - s.TotalIdleSecs
	if active < 0 {
		active = 0
	}
	s.ActiveDurationSecs = &active
}
