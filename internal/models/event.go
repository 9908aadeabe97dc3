// Package models holds the data-model types shared across monitors, storage,
// the capture trigger, the vision pipeline, and the focus analyzer. Types are
// tagged variants: each carries exactly the fields relevant to its kind.
package models

import "time"

// EventType discriminates the kind of observation a ContextEvent carries.
type EventType string

const (
	EventWindowFocus       EventType = "window_focus"
	EventApplicationSwitch EventType = "application_switch"
	EventKeyboardInput     EventType = "keyboard_input"
	EventMouseClick        EventType = "mouse_click"
	EventMouseMove         EventType = "mouse_move"
	EventIdle              EventType = "idle"
	EventSessionStart      EventType = "session_start"
	EventSessionEnd        EventType = "session_end"
	EventUnknown           EventType = "unknown"
)

// ContextEvent is the observed unit: the user's foreground state at a single
// instant. Immutable once created by a monitor.
type ContextEvent struct {
	EventID     string         `json:"event_id"`
	EventType   EventType      `json:"event_type"`
	WindowTitle string         `json:"window_title,omitempty"`
	AppName     string         `json:"app_name,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	SessionID   string         `json:"session_id,omitempty"`
}
