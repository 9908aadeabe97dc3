package focus

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vthunder/bud2/internal/clock"
	"github.com/vthunder/bud2/internal/models"
	"github.com/vthunder/bud2/internal/storage"
)

// analysisLookback bounds how far back the analyzer re-reads events on each
// tick when no session is currently active; it must comfortably exceed
// MinSessionSecs + SessionBreakSecs so a brand new session is never missed.
const analysisLookback = 15 * time.Minute

// Store is the subset of *storage.DB the focus analyzer depends on.
type Store interface {
	QueryEvents(ctx context.Context, r storage.TimeRange, f storage.EventFilter, p storage.Page) ([]models.ContextEvent, storage.Pagination, error)
	ListActiveWorkSession(ctx context.Context, sessionID string) (*models.WorkSession, error)
	UpsertWorkSession(ctx context.Context, ws models.WorkSession) error
	ListWorkSessions(ctx context.Context, r storage.TimeRange, p storage.Page) ([]models.WorkSession, storage.Pagination, error)
	ListOpenInterruptions(ctx context.Context, workSessionID string) ([]models.Interruption, error)
	UpsertInterruption(ctx context.Context, in models.Interruption) error
	UpsertFocusMetrics(ctx context.Context, fm models.FocusMetrics) error
	GetFocusMetrics(ctx context.Context, date string) (*models.FocusMetrics, error)
	HasOpenIdle(ctx context.Context) (bool, error)
	SuggestionStore
}

// Analyzer runs the §4.5 focus analysis periodically. It holds no
// source-of-truth state: active sessions and open interruptions are always
// re-fetched from storage, so a restart never loses track of either. The
// small amount of in-memory state it does keep (continuousActiveSince,
// wasIdle) only smooths suggestion timing between ticks and is safe to
// lose on restart.
type Analyzer struct {
	store      Store
	clock      clock.Clock
	categorize *Categorizer
	reconciler *Reconciler

	continuousActiveSince time.Time
	wasIdle                bool

	// lastProcessed tracks, per session, the point up to which events have
	// already been folded into the carried-over WorkSession/Interruption
	// state. Without it, re-reading the full session history every tick
	// would re-add the same run durations on top of the already-persisted
	// totals. It is in-memory only: after a restart the first tick for a
	// still-open session re-derives its window from the session's
	// StartedAt, which can double-count that one tick's worth of totals.
	lastProcessed map[string]time.Time
}

// New builds an Analyzer. categoryOverrides may be nil.
func New(store Store, c clock.Clock, categoryOverrides map[string]models.Category) *Analyzer {
	cat := NewCategorizer(categoryOverrides)
	return &Analyzer{
		store:      store,
		clock:      c,
		categorize: cat,
		reconciler: &Reconciler{
			Rules:      DefaultSessionRules(),
			Categorize: cat.Category,
			NewID:      func() string { return "ws_" + uuid.New().String() },
		},
		lastProcessed: map[string]time.Time{},
	}
}

// NewFromCategoryFile builds an Analyzer whose category overrides are
// loaded from a YAML `apps: {name: category}` file (§B domain stack:
// gopkg.in/yaml.v3), falling back to the built-in category table when path
// is empty or unreadable so a missing optional file never blocks startup.
func NewFromCategoryFile(store Store, c clock.Clock, path string) (*Analyzer, error) {
	if path == "" {
		return New(store, c, nil), nil
	}
	overrides, err := loadCategoryOverridesFromYAML(path)
	if err != nil {
		return New(store, c, nil), nil
	}
	return New(store, c, overrides), nil
}

// Run performs one analysis tick for sessionID: advances work-session/
// interruption state, recomputes today's FocusMetrics, and emits any local
// suggestions whose conditions are met.
func (a *Analyzer) Run(ctx context.Context, sessionID string) error {
	now := a.clock.Now()

	active, err := a.store.ListActiveWorkSession(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("focus: list active work session: %w", err)
	}

	var openInterruption *models.Interruption
	if active != nil {
		open, err := a.store.ListOpenInterruptions(ctx, active.ID)
		if err != nil {
			return fmt.Errorf("focus: list open interruptions: %w", err)
		}
		if len(open) > 0 {
			openInterruption = &open[0]
		}
	}

	windowStart := now.Add(-analysisLookback)
	if cursor, ok := a.lastProcessed[sessionID]; ok {
		windowStart = cursor
	} else if active != nil && active.StartedAt.Before(windowStart) {
		windowStart = active.StartedAt
	}

	events, err := a.fetchEventsAscending(ctx, sessionID, windowStart, now)
	if err != nil {
		return fmt.Errorf("focus: fetch events: %w", err)
	}
	if len(events) > 0 {
		a.lastProcessed[sessionID] = events[len(events)-1].Timestamp.Add(time.Nanosecond)
	}

	idleOpen, err := a.store.HasOpenIdle(ctx)
	if err != nil {
		return fmt.Errorf("focus: has open idle: %w", err)
	}
	idleBegan := idleOpen && !a.wasIdle

	outcome := a.reconciler.Reconcile(sessionID, events, active, openInterruption, idleBegan, now)
	for _, ws := range outcome.UpsertSessions {
		if err := a.store.UpsertWorkSession(ctx, ws); err != nil {
			return fmt.Errorf("focus: upsert work session: %w", err)
		}
	}
	for _, in := range outcome.UpsertInterruptions {
		if err := a.store.UpsertInterruption(ctx, in); err != nil {
			return fmt.Errorf("focus: upsert interruption: %w", err)
		}
	}

	if idleOpen {
		a.continuousActiveSince = time.Time{}
	} else if a.wasIdle || a.continuousActiveSince.IsZero() {
		a.continuousActiveSince = now
	}
	a.wasIdle = idleOpen

	if err := a.recomputeDailyMetrics(ctx, now); err != nil {
		return err
	}

	return a.evaluateSuggestions(ctx, sessionID, events, outcome, now)
}

// fetchEventsAscending pages through QueryEvents (which orders newest-first)
// and returns events in the range in ascending timestamp order, as the
// session-scan algorithms require.
func (a *Analyzer) fetchEventsAscending(ctx context.Context, sessionID string, from, to time.Time) ([]models.ContextEvent, error) {
	events, _, err := a.store.QueryEvents(ctx, storage.TimeRange{From: from, To: to}, storage.EventFilter{SessionID: sessionID}, storage.Page{Limit: 1000})
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}
	return events, nil
}

// recomputeDailyMetrics rebuilds FocusMetrics for today from the day's
// WorkSessions, mirroring storage.AggregateAppUsage's "rebuild don't
// accumulate" approach so re-running stays idempotent (§8).
func (a *Analyzer) recomputeDailyMetrics(ctx context.Context, now time.Time) error {
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.Add(24 * time.Hour)

	sessions, _, err := a.store.ListWorkSessions(ctx, storage.TimeRange{From: dayStart, To: dayEnd}, storage.Page{Limit: 1000})
	if err != nil {
		return fmt.Errorf("focus: list today's work sessions: %w", err)
	}

	var totalActive, deepWork, comm float64
	var interruptionCount int64
	for _, ws := range sessions {
		totalActive += ws.DurationSecs
		deepWork += ws.DeepWorkSecs
		comm += ws.CommunicationSecs
		interruptionCount += ws.InterruptionCount
	}

	dayEvents, _, err := a.store.QueryEvents(ctx, storage.TimeRange{From: dayStart, To: dayEnd}, storage.EventFilter{}, storage.Page{Limit: 1000})
	if err != nil {
		return fmt.Errorf("focus: query today's events: %w", err)
	}
	for i, j := 0, len(dayEvents)-1; i < j; i, j = i+1, j-1 {
		dayEvents[i], dayEvents[j] = dayEvents[j], dayEvents[i]
	}
	runs := splitRuns(dayEvents, a.categorize.Category)
	contextSwitches := int64(len(runs) - 1)
	if contextSwitches < 0 {
		contextSwitches = 0
	}

	avgFocus, maxFocus := deepWorkDurationStats(sessions)
	score := computeFocusScore(deepWork, totalActive, contextSwitches, interruptionCount)

	return a.store.UpsertFocusMetrics(ctx, models.FocusMetrics{
		Date:                 dayStart.Format("2006-01-02"),
		TotalActiveSecs:      totalActive,
		DeepWorkSecs:         deepWork,
		CommunicationSecs:    comm,
		ContextSwitches:      contextSwitches,
		InterruptionCount:    interruptionCount,
		AvgFocusDurationSecs: avgFocus,
		MaxFocusDurationSecs: maxFocus,
		FocusScore:           score,
	})
}

// evaluateSuggestions checks each §4.5 trigger condition and emits at most
// one suggestion per type per rolling hour.
func (a *Analyzer) evaluateSuggestions(ctx context.Context, sessionID string, events []models.ContextEvent, outcome ReconcileOutcome, now time.Time) error {
	if needsFocusTime(events, a.categorize.Category, now) {
		if err := emitSuggestion(ctx, a.store, newSuggestionID, now, models.SuggestionNeedFocusTime, nil); err != nil {
			return err
		}
	}

	if takeBreakDue(a.continuousActiveSince, now) {
		payload := map[string]any{"continuous_active_since": a.continuousActiveSince}
		if err := emitSuggestion(ctx, a.store, newSuggestionID, now, models.SuggestionTakeBreak, payload); err != nil {
			return err
		}
	}

	if outcome.OpenInterruption != nil && restoreContextDue(*outcome.OpenInterruption, now) {
		payload := map[string]any{"from_app": outcome.OpenInterruption.FromApp, "to_app": outcome.OpenInterruption.ToApp}
		if err := emitSuggestion(ctx, a.store, newSuggestionID, now, models.SuggestionRestoreContext, payload); err != nil {
			return err
		}
	}

	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	recentSessions, _, err := a.store.ListWorkSessions(ctx, storage.TimeRange{From: dayStart, To: now}, storage.Page{Limit: 1000})
	if err != nil {
		return fmt.Errorf("focus: list sessions for suggestions: %w", err)
	}
	if excessiveCommunication(recentSessions, now) {
		if err := emitSuggestion(ctx, a.store, newSuggestionID, now, models.SuggestionExcessiveCommunication, nil); err != nil {
			return err
		}
	}

	dayEvents, _, err := a.store.QueryEvents(ctx, storage.TimeRange{From: dayStart, To: now}, storage.EventFilter{}, storage.Page{Limit: 1000})
	if err != nil {
		return fmt.Errorf("focus: query today's events for pattern detection: %w", err)
	}
	for i, j := 0, len(dayEvents)-1; i < j; i, j = i+1, j-1 {
		dayEvents[i], dayEvents[j] = dayEvents[j], dayEvents[i]
	}
	runs := splitRuns(dayEvents, a.categorize.Category)
	if found, seq := patternDetected(runs); found {
		payload := map[string]any{"sequence": seq}
		if err := emitSuggestion(ctx, a.store, newSuggestionID, now, models.SuggestionPatternDetected, payload); err != nil {
			return err
		}
	}

	return nil
}

func newSuggestionID() string { return "sugg_" + uuid.New().String() }
