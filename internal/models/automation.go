package models

import "time"

// AuditLevel governs how much detail ExecutionPolicy requires about each
// action taken under it.
type AuditLevel string

const (
	AuditNone     AuditLevel = "none"
	AuditBasic    AuditLevel = "basic"
	AuditDetailed AuditLevel = "detailed"
	AuditFull     AuditLevel = "full"
)

// SandboxProfile governs how permissive the external automation engine's
// sandbox is when executing a preset under this policy. Opaque to the core
// beyond storage and retrieval.
type SandboxProfile string

const (
	SandboxPermissive SandboxProfile = "permissive"
	SandboxStandard   SandboxProfile = "standard"
	SandboxStrict     SandboxProfile = "strict"
)

// ExecutionPolicy is opaque to the core; stored and surfaced read-only. The
// core never executes anything it describes.
type ExecutionPolicy struct {
	ID                   string         `json:"id"`
	ProcessName          string         `json:"process_name"`
	BinaryHash           string         `json:"binary_hash"`
	AllowedArgPatterns   []string       `json:"allowed_arg_patterns"`
	RequiresSudo         bool           `json:"requires_sudo"`
	AuditLevel           AuditLevel     `json:"audit_level"`
	SandboxProfile       SandboxProfile `json:"sandbox_profile"`
}

// AuditEntry is a durable record of an automation action. Written by an
// external automation engine; the core only stores and queries it.
type AuditEntry struct {
	EntryID         string    `json:"entry_id"`
	Timestamp       time.Time `json:"timestamp"`
	SessionID       string    `json:"session_id"`
	CommandID       string    `json:"command_id"`
	ActionType      string    `json:"action_type"`
	Status          string    `json:"status"`
	Details         string    `json:"details,omitempty"`
	ExecutionTimeMs int64     `json:"execution_time_ms"`
}

// PresetCategory groups WorkflowPreset records by purpose.
type PresetCategory string

const (
	PresetProductivity  PresetCategory = "productivity"
	PresetAppManagement PresetCategory = "app_management"
	PresetWorkflow      PresetCategory = "workflow"
	PresetCustom        PresetCategory = "custom"
)

// PresetStep is one ordered step within a WorkflowPreset.
type PresetStep struct {
	Intent        string `json:"intent"`
	DelayMs       int64  `json:"delay_ms"`
	StopOnFailure bool   `json:"stop_on_failure"`
}

// WorkflowPreset is opaque to the core beyond storage and query; execution
// is delegated to an external automation engine.
type WorkflowPreset struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Category    PresetCategory `json:"category"`
	Steps       []PresetStep   `json:"steps"`
	Builtin     bool           `json:"builtin"`
	Platform    string         `json:"platform,omitempty"`
}
