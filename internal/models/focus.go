package models

import "time"

// Category is the behavioral bucket each app name maps to. Unknown apps
// default to CategoryOther.
type Category string

const (
	CategoryDevelopment   Category = "development"
	CategoryCommunication Category = "communication"
	CategoryDocumentation Category = "documentation"
	CategoryBrowser       Category = "browser"
	CategoryDesign        Category = "design"
	CategoryMedia         Category = "media"
	CategorySystem        Category = "system"
	CategoryOther         Category = "other"
)

// AppUsage is a derived per-day, per-app aggregation. Rebuilt by the analyzer
// on demand; not a source of truth.
type AppUsage struct {
	Date        string  `json:"date"`
	AppName     string  `json:"app_name"`
	DurationSecs float64 `json:"duration_secs"`
	EventCount  int64   `json:"event_count"`
	FrameCount  int64   `json:"frame_count"`
}

// FocusMetrics is a derived, per-day rollup.
type FocusMetrics struct {
	Date                string  `json:"date"`
	TotalActiveSecs     float64 `json:"total_active_secs"`
	DeepWorkSecs        float64 `json:"deep_work_secs"`
	CommunicationSecs   float64 `json:"communication_secs"`
	ContextSwitches     int64   `json:"context_switches"`
	InterruptionCount   int64   `json:"interruption_count"`
	AvgFocusDurationSecs float64 `json:"avg_focus_duration_secs"`
	MaxFocusDurationSecs float64 `json:"max_focus_duration_secs"`
	FocusScore          int     `json:"focus_score"`
}

// WorkSessionState is Active or Completed.
type WorkSessionState string

const (
	WorkSessionActive    WorkSessionState = "active"
	WorkSessionCompleted WorkSessionState = "completed"
)

// WorkSession is a derived contiguous period of activity in a single
// behavioral category. Opened when a run of at least MinSessionSecs with a
// single dominant category is detected; invariant: at most one Active
// WorkSession per session_id.
type WorkSession struct {
	ID                string           `json:"id"`
	SessionID         string           `json:"session_id"`
	StartedAt         time.Time        `json:"started_at"`
	EndedAt           *time.Time       `json:"ended_at,omitempty"`
	PrimaryApp        string           `json:"primary_app"`
	Category          Category         `json:"category"`
	State             WorkSessionState `json:"state"`
	InterruptionCount int64            `json:"interruption_count"`
	DeepWorkSecs      float64          `json:"deep_work_secs"`
	CommunicationSecs float64          `json:"communication_secs"`
	DurationSecs      float64          `json:"duration_secs"`
}

// Interruption is a derived record of a communication-category intrusion
// into a deep-work session.
type Interruption struct {
	ID             string     `json:"id"`
	WorkSessionID  string     `json:"work_session_id"`
	InterruptedAt  time.Time  `json:"interrupted_at"`
	FromApp        string     `json:"from_app"`
	FromCategory   Category   `json:"from_category"`
	ToApp          string     `json:"to_app"`
	ToCategory     Category   `json:"to_category"`
	ResumedAt      *time.Time `json:"resumed_at,omitempty"`
	ResumedToApp   string     `json:"resumed_to_app,omitempty"`
	DurationSecs   *float64   `json:"duration_secs,omitempty"`
}

// Close resolves an open interruption at t, returning to the original app.
func (i *Interruption) Close(t time.Time, resumedToApp string) {
	if i.ResumedAt != nil {
		return
	}
	resumed := t
	i.ResumedAt = &resumed
	i.ResumedToApp = resumedToApp
	d := resumed.Sub(i.InterruptedAt).Seconds()
	i.DurationSecs = &d
}

// IsOpen reports whether the interruption has not yet resumed.
func (i *Interruption) IsOpen() bool {
	return i.ResumedAt == nil
}

// EndedAtValue returns EndedAt if the session has closed, else StartedAt —
// a safe fallback timestamp for force-closing a session with no new events.
func (ws *WorkSession) EndedAtValue() time.Time {
	if ws.EndedAt != nil {
		return *ws.EndedAt
	}
	return ws.StartedAt
}

// SuggestionType enumerates the kinds of LocalSuggestion the analyzer emits.
type SuggestionType string

const (
	SuggestionNeedFocusTime         SuggestionType = "need_focus_time"
	SuggestionTakeBreak             SuggestionType = "take_break"
	SuggestionRestoreContext        SuggestionType = "restore_context"
	SuggestionPatternDetected       SuggestionType = "pattern_detected"
	SuggestionExcessiveCommunication SuggestionType = "excessive_communication"
)

// LocalSuggestion is stored with ShownAt=nil initially; transitions are set
// via feedback operations and are append-only for auditability.
type LocalSuggestion struct {
	ID             string         `json:"id"`
	SuggestionType SuggestionType `json:"suggestion_type"`
	Payload        map[string]any `json:"payload,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	ShownAt        *time.Time     `json:"shown_at,omitempty"`
	DismissedAt    *time.Time     `json:"dismissed_at,omitempty"`
	ActedAt        *time.Time     `json:"acted_at,omitempty"`
	Source         string         `json:"source,omitempty"` // "local" or "remote"
}
