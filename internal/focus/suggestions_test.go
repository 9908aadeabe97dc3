package focus

import (
	"context"
	"testing"
	"time"

	"github.com/vthunder/bud2/internal/models"
)

type fakeSuggestionStore struct {
	pending   []models.LocalSuggestion
	inserted  []models.LocalSuggestion
}

func (f *fakeSuggestionStore) ListPendingSuggestions(ctx context.Context, t models.SuggestionType, since time.Time) ([]models.LocalSuggestion, error) {
	var out []models.LocalSuggestion
	for _, s := range f.pending {
		if s.SuggestionType == t && !s.CreatedAt.Before(since) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSuggestionStore) InsertSuggestion(ctx context.Context, s models.LocalSuggestion) error {
	f.inserted = append(f.inserted, s)
	f.pending = append(f.pending, s)
	return nil
}

func TestEmitSuggestion_InsertsWhenNonePending(t *testing.T) {
	store := &fakeSuggestionStore{}
	now := time.Now()
	err := emitSuggestion(context.Background(), store, func() string { return "s1" }, now, models.SuggestionTakeBreak, nil)
	if err != nil {
		t.Fatalf("emitSuggestion: %v", err)
	}
	if len(store.inserted) != 1 {
		t.Fatalf("expected 1 insert, got %d", len(store.inserted))
	}
}

func TestEmitSuggestion_SkipsWithinRollingHour(t *testing.T) {
	now := time.Now()
	store := &fakeSuggestionStore{pending: []models.LocalSuggestion{
		{ID: "existing", SuggestionType: models.SuggestionTakeBreak, CreatedAt: now.Add(-10 * time.Minute)},
	}}
	err := emitSuggestion(context.Background(), store, func() string { return "s2" }, now, models.SuggestionTakeBreak, nil)
	if err != nil {
		t.Fatalf("emitSuggestion: %v", err)
	}
	if len(store.inserted) != 0 {
		t.Fatalf("expected no new insert, got %d", len(store.inserted))
	}
}

func TestNeedsFocusTime_TriggersOnFourSwitchesInWindow(t *testing.T) {
	base := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	events := []models.ContextEvent{
		ev("vscode", base),
		ev("chrome", base.Add(time.Minute)),
		ev("vscode", base.Add(2*time.Minute)),
		ev("chrome", base.Add(3*time.Minute)),
		ev("vscode", base.Add(4*time.Minute)),
	}
	if !needsFocusTime(events, testCategorize, base.Add(5*time.Minute)) {
		t.Error("expected need-focus-time to trigger")
	}
}

func TestNeedsFocusTime_DoesNotTriggerOnStableWork(t *testing.T) {
	base := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	events := []models.ContextEvent{
		ev("vscode", base),
		ev("vscode", base.Add(10*time.Minute)),
	}
	if needsFocusTime(events, testCategorize, base.Add(10*time.Minute)) {
		t.Error("expected no need-focus-time trigger for stable work")
	}
}

func TestTakeBreakDue_TriggersPast90Minutes(t *testing.T) {
	since := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	if !takeBreakDue(since, since.Add(91*time.Minute)) {
		t.Error("expected take-break to be due")
	}
	if takeBreakDue(since, since.Add(89*time.Minute)) {
		t.Error("expected take-break not yet due")
	}
}

func TestTakeBreakDue_ZeroValueNeverTriggers(t *testing.T) {
	if takeBreakDue(time.Time{}, time.Now()) {
		t.Error("expected zero continuousActiveSince to never trigger")
	}
}

func TestExcessiveCommunication_TriggersAboveFortyPercent(t *testing.T) {
	now := time.Now()
	sessions := []models.WorkSession{
		{StartedAt: now.Add(-time.Hour), DurationSecs: 3600, CommunicationSecs: 2000},
	}
	if !excessiveCommunication(sessions, now) {
		t.Error("expected excessive communication to trigger")
	}
}

func TestExcessiveCommunication_NoTriggerBelowThreshold(t *testing.T) {
	now := time.Now()
	sessions := []models.WorkSession{
		{StartedAt: now.Add(-time.Hour), DurationSecs: 3600, CommunicationSecs: 500},
	}
	if excessiveCommunication(sessions, now) {
		t.Error("expected no trigger below threshold")
	}
}

func TestPatternDetected_FindsRepeatedTrigram(t *testing.T) {
	seq := []models.Category{
		models.CategoryDevelopment, models.CategoryCommunication, models.CategoryDevelopment,
		models.CategoryBrowser,
		models.CategoryDevelopment, models.CategoryCommunication, models.CategoryDevelopment,
		models.CategoryMedia,
		models.CategoryDevelopment, models.CategoryCommunication, models.CategoryDevelopment,
	}
	runs := make([]runSpan, len(seq))
	for i, c := range seq {
		runs[i] = runSpan{category: c}
	}
	found, _ := patternDetected(runs)
	if !found {
		t.Error("expected repeated trigram to be detected")
	}
}

func TestPatternDetected_NoRepeatsReturnsFalse(t *testing.T) {
	runs := []runSpan{
		{category: models.CategoryDevelopment}, {category: models.CategoryBrowser}, {category: models.CategoryMedia},
	}
	found, _ := patternDetected(runs)
	if found {
		t.Error("expected no pattern to be detected")
	}
}
