// Package trigger classifies ContextEvents into capture decisions: whether
// the vision pipeline should run, at what trigger kind, and with what
// importance. It never fails; malformed input degrades to Skip.
package trigger

import (
	"strings"
	"sync"
	"time"

	"github.com/vthunder/bud2/internal/clock"
	"github.com/vthunder/bud2/internal/config"
	"github.com/vthunder/bud2/internal/models"
)

const (
	errorKeywordBonus = 0.2

	defaultThrottle          = 5 * time.Second
	scheduledCheckThrottle   = 60 * time.Second
)

// CaptureTrigger evaluates each incoming ContextEvent against the prior
// event's app (for context-switch detection) and a per-kind throttle,
// producing a CaptureDecision. Grounded on the teacher's reflex engine
// shape (pattern match -> classify -> rate considerations) generalized from
// percept/reflex matching to the telemetry trigger-kind table.
type CaptureTrigger struct {
	clock   clock.Clock
	errKW   *keywordSet
	cfg     func() *config.Config

	mu        sync.Mutex
	lastFired map[models.TriggerKind]time.Time
	prevApp   string
}

// New constructs a trigger. cfgFn is called on every Evaluate so the
// trigger always observes the live configuration (excluded apps/patterns,
// privacy mode), matching the config package's atomic-swap update model.
func New(c clock.Clock, cfgFn func() *config.Config, errorKeywordPatterns []string) (*CaptureTrigger, error) {
	ks, err := newKeywordSet(errorKeywordPatterns)
	if err != nil {
		return nil, err
	}
	return &CaptureTrigger{
		clock:     c,
		errKW:     ks,
		cfg:       cfgFn,
		lastFired: make(map[models.TriggerKind]time.Time),
	}, nil
}

// NewFromKeywordFile constructs a trigger whose error-keyword set is loaded
// from a YAML pattern file (§B domain stack: gopkg.in/yaml.v3), falling back
// to defaultErrorPatterns when path is empty or unreadable so a missing
// optional file never blocks startup.
func NewFromKeywordFile(c clock.Clock, cfgFn func() *config.Config, path string) (*CaptureTrigger, error) {
	if path == "" {
		return New(c, cfgFn, nil)
	}
	ks, err := loadKeywordSetFromYAML(path)
	if err != nil {
		return New(c, cfgFn, nil)
	}
	return &CaptureTrigger{
		clock:     c,
		errKW:     ks,
		cfg:       cfgFn,
		lastFired: make(map[models.TriggerKind]time.Time),
	}, nil
}

// candidate is one trigger kind that matched the event, before throttling
// and tie-break are applied.
type candidate struct {
	kind models.TriggerKind
	base float64
}

// Evaluate classifies one event. It never returns an error; events that
// match nothing, or that are excluded by configuration, yield Skip.
func (t *CaptureTrigger) Evaluate(ev models.ContextEvent) models.CaptureDecision {
	if ev.EventType == models.EventUnknown {
		return models.CaptureDecision{Capture: false}
	}

	cfg := t.cfg()
	if cfg != nil && isExcluded(cfg, ev) {
		t.mu.Lock()
		t.prevApp = ev.AppName
		t.mu.Unlock()
		return models.CaptureDecision{Capture: false}
	}

	t.mu.Lock()
	prevApp := t.prevApp
	t.prevApp = ev.AppName
	t.mu.Unlock()

	candidates := t.classify(ev, prevApp)
	if len(candidates) == 0 {
		return models.CaptureDecision{Capture: false}
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.base > best.base {
			best = c
		}
	}

	if !t.allow(best.kind) {
		return models.CaptureDecision{Capture: false}
	}

	importance := best.base
	if t.errKW.Matches(ev.WindowTitle) {
		importance += errorKeywordBonus
	}
	if importance > 1.0 {
		importance = 1.0
	}

	t.mu.Lock()
	t.lastFired[best.kind] = t.clock.Now()
	t.mu.Unlock()

	return models.CaptureDecision{Capture: true, Kind: best.kind, Importance: importance}
}

// classify returns every trigger kind ev's type and metadata match. Order
// is irrelevant; Evaluate resolves ties by highest base importance.
func (t *CaptureTrigger) classify(ev models.ContextEvent, prevApp string) []candidate {
	var out []candidate

	if t.errKW.Matches(ev.WindowTitle) {
		out = append(out, candidate{models.TriggerErrorDetected, models.BaseImportance(models.TriggerErrorDetected)})
	}

	if isFormSubmission(ev) {
		out = append(out, candidate{models.TriggerFormSubmission, models.BaseImportance(models.TriggerFormSubmission)})
	}

	if isSignificantAction(ev) {
		out = append(out, candidate{models.TriggerSignificantAction, models.BaseImportance(models.TriggerSignificantAction)})
	}

	switch ev.EventType {
	case models.EventApplicationSwitch:
		if prevApp != "" && ev.AppName != "" && ev.AppName != prevApp {
			out = append(out, candidate{models.TriggerContextSwitch, models.BaseImportance(models.TriggerContextSwitch)})
		}
	case models.EventWindowFocus:
		out = append(out, candidate{models.TriggerWindowChange, models.BaseImportance(models.TriggerWindowChange)})
	}

	if isScheduled(ev) {
		out = append(out, candidate{models.TriggerScheduledCheck, models.BaseImportance(models.TriggerScheduledCheck)})
	}

	return out
}

// isFormSubmission reports whether ev is an Enter keypress within an
// input-like control, per the monitor-supplied "input_context" metadata
// convention.
func isFormSubmission(ev models.ContextEvent) bool {
	if ev.EventType != models.EventKeyboardInput {
		return false
	}
	key, _ := ev.Metadata["key"].(string)
	ctx, _ := ev.Metadata["input_context"].(string)
	return key == "Enter" && ctx == "form"
}

// isSignificantAction reports a double-click or context-menu invocation,
// per the monitor-supplied "click_kind" metadata convention.
func isSignificantAction(ev models.ContextEvent) bool {
	if ev.EventType != models.EventMouseClick {
		return false
	}
	kind, _ := ev.Metadata["click_kind"].(string)
	return kind == "double" || kind == "context_menu"
}

// isScheduled reports whether ev is the scheduler's periodic heartbeat
// event rather than an observed input/focus signal.
func isScheduled(ev models.ContextEvent) bool {
	scheduled, _ := ev.Metadata["scheduled"].(bool)
	return scheduled
}

// allow enforces the per-kind throttle: at least 5s between Captures for
// any kind, 60s for ScheduledCheck. Throttling is measured from the last
// emitted Capture, not from the last matching event.
func (t *CaptureTrigger) allow(kind models.TriggerKind) bool {
	window := defaultThrottle
	if kind == models.TriggerScheduledCheck {
		window = scheduledCheckThrottle
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	last, ok := t.lastFired[kind]
	if !ok {
		return true
	}
	return t.clock.Now().Sub(last) >= window
}

// isExcluded reports whether ev's app or title matches the configured
// exclusion list or pattern lists.
func isExcluded(cfg *config.Config, ev models.ContextEvent) bool {
	for _, app := range cfg.Privacy.ExcludedApps {
		if strings.EqualFold(app, ev.AppName) {
			return true
		}
	}
	for _, pat := range cfg.Privacy.ExcludedAppPatterns {
		if matchGlobOrSubstring(pat, ev.AppName) {
			return true
		}
	}
	for _, pat := range cfg.Privacy.ExcludedTitlePatterns {
		if matchGlobOrSubstring(pat, ev.WindowTitle) {
			return true
		}
	}
	return false
}

// matchGlobOrSubstring treats pat as a case-insensitive substring match;
// configured patterns are plain fragments ("Slack", "incognito") rather
// than full regex, matching the spec's "pattern lists" language without
// requiring every user-authored entry to be valid regex.
func matchGlobOrSubstring(pat, s string) bool {
	if pat == "" || s == "" {
		return false
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(pat))
}
