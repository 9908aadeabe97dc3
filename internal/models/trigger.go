package models

// TriggerKind discriminates why the capture trigger decided to capture.
type TriggerKind string

const (
	TriggerErrorDetected     TriggerKind = "error_detected"
	TriggerFormSubmission    TriggerKind = "form_submission"
	TriggerSignificantAction TriggerKind = "significant_action"
	TriggerContextSwitch     TriggerKind = "context_switch"
	TriggerWindowChange      TriggerKind = "window_change"
	TriggerScheduledCheck    TriggerKind = "scheduled_check"
)

// baseImportance is the starting importance for each trigger kind, before
// the error-keyword bonus is applied.
var baseImportance = map[TriggerKind]float64{
	TriggerErrorDetected:     0.9,
	TriggerFormSubmission:    0.8,
	TriggerSignificantAction: 0.7,
	TriggerContextSwitch:     0.6,
	TriggerWindowChange:      0.4,
	TriggerScheduledCheck:    0.2,
}

// BaseImportance returns the base importance for kind, or 0 if unknown.
func BaseImportance(kind TriggerKind) float64 {
	return baseImportance[kind]
}

// CaptureDecision is the trigger's verdict for one ContextEvent. Skip is
// represented by Capture == false; Kind and Importance are meaningless in
// that case.
type CaptureDecision struct {
	Capture    bool        `json:"capture"`
	Kind       TriggerKind `json:"kind,omitempty"`
	Importance float64     `json:"importance,omitempty"`
}
