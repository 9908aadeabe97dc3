package focus

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/vthunder/bud2/internal/clock"
	"github.com/vthunder/bud2/internal/models"
	"github.com/vthunder/bud2/internal/storage"
)

type fakeAnalyzerStore struct {
	events        []models.ContextEvent
	sessions      map[string]models.WorkSession
	interruptions map[string]models.Interruption
	metrics       map[string]models.FocusMetrics
	suggestions   []models.LocalSuggestion
	idleOpen      bool
}

func newFakeAnalyzerStore() *fakeAnalyzerStore {
	return &fakeAnalyzerStore{
		sessions:      map[string]models.WorkSession{},
		interruptions: map[string]models.Interruption{},
		metrics:       map[string]models.FocusMetrics{},
	}
}

func (f *fakeAnalyzerStore) QueryEvents(ctx context.Context, r storage.TimeRange, filter storage.EventFilter, p storage.Page) ([]models.ContextEvent, storage.Pagination, error) {
	var out []models.ContextEvent
	for _, e := range f.events {
		if !r.From.IsZero() && e.Timestamp.Before(r.From) {
			continue
		}
		if !r.To.IsZero() && !e.Timestamp.Before(r.To) {
			continue
		}
		if filter.SessionID != "" && e.SessionID != filter.SessionID {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, storage.Pagination{Total: len(out)}, nil
}

func (f *fakeAnalyzerStore) ListActiveWorkSession(ctx context.Context, sessionID string) (*models.WorkSession, error) {
	for _, ws := range f.sessions {
		if ws.SessionID == sessionID && ws.State == models.WorkSessionActive {
			w := ws
			return &w, nil
		}
	}
	return nil, nil
}

func (f *fakeAnalyzerStore) UpsertWorkSession(ctx context.Context, ws models.WorkSession) error {
	f.sessions[ws.ID] = ws
	return nil
}

func (f *fakeAnalyzerStore) ListWorkSessions(ctx context.Context, r storage.TimeRange, p storage.Page) ([]models.WorkSession, storage.Pagination, error) {
	var out []models.WorkSession
	for _, ws := range f.sessions {
		if !r.From.IsZero() && ws.StartedAt.Before(r.From) {
			continue
		}
		if !r.To.IsZero() && !ws.StartedAt.Before(r.To) {
			continue
		}
		out = append(out, ws)
	}
	return out, storage.Pagination{Total: len(out)}, nil
}

func (f *fakeAnalyzerStore) ListOpenInterruptions(ctx context.Context, workSessionID string) ([]models.Interruption, error) {
	var out []models.Interruption
	for _, in := range f.interruptions {
		if in.WorkSessionID == workSessionID && in.IsOpen() {
			out = append(out, in)
		}
	}
	return out, nil
}

func (f *fakeAnalyzerStore) UpsertInterruption(ctx context.Context, in models.Interruption) error {
	f.interruptions[in.ID] = in
	return nil
}

func (f *fakeAnalyzerStore) UpsertFocusMetrics(ctx context.Context, fm models.FocusMetrics) error {
	f.metrics[fm.Date] = fm
	return nil
}

func (f *fakeAnalyzerStore) GetFocusMetrics(ctx context.Context, date string) (*models.FocusMetrics, error) {
	if fm, ok := f.metrics[date]; ok {
		return &fm, nil
	}
	return nil, nil
}

func (f *fakeAnalyzerStore) HasOpenIdle(ctx context.Context) (bool, error) {
	return f.idleOpen, nil
}

func (f *fakeAnalyzerStore) ListPendingSuggestions(ctx context.Context, t models.SuggestionType, since time.Time) ([]models.LocalSuggestion, error) {
	var out []models.LocalSuggestion
	for _, s := range f.suggestions {
		if s.SuggestionType == t && !s.CreatedAt.Before(since) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeAnalyzerStore) InsertSuggestion(ctx context.Context, s models.LocalSuggestion) error {
	f.suggestions = append(f.suggestions, s)
	return nil
}

func TestAnalyzer_Run_OpensSessionAndComputesDailyMetrics(t *testing.T) {
	base := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	store := newFakeAnalyzerStore()
	store.events = []models.ContextEvent{
		{EventID: "1", EventType: models.EventWindowFocus, AppName: "vscode", SessionID: "s1", Timestamp: base},
		{EventID: "2", EventType: models.EventWindowFocus, AppName: "vscode", SessionID: "s1", Timestamp: base.Add(200 * time.Second)},
	}
	c := clock.NewFrozen(base.Add(210 * time.Second))
	overrides := map[string]models.Category{"vscode": models.CategoryDevelopment}
	a := New(store, c, overrides)

	if err := a.Run(context.Background(), "s1"); err != nil {
		t.Fatalf("Run: %v", err)
	}

	active, err := store.ListActiveWorkSession(context.Background(), "s1")
	if err != nil {
		t.Fatalf("ListActiveWorkSession: %v", err)
	}
	if active == nil {
		t.Fatal("expected an active work session after Run")
	}

	fm, err := store.GetFocusMetrics(context.Background(), base.Format("2006-01-02"))
	if err != nil {
		t.Fatalf("GetFocusMetrics: %v", err)
	}
	if fm == nil {
		t.Fatal("expected focus metrics to be persisted")
	}
}

func TestAnalyzer_Run_IdempotentWhenNothingChanges(t *testing.T) {
	base := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	store := newFakeAnalyzerStore()
	store.events = []models.ContextEvent{
		{EventID: "1", EventType: models.EventWindowFocus, AppName: "vscode", SessionID: "s1", Timestamp: base},
		{EventID: "2", EventType: models.EventWindowFocus, AppName: "vscode", SessionID: "s1", Timestamp: base.Add(200 * time.Second)},
	}
	c := clock.NewFrozen(base.Add(210 * time.Second))
	overrides := map[string]models.Category{"vscode": models.CategoryDevelopment}
	a := New(store, c, overrides)

	if err := a.Run(context.Background(), "s1"); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	first, _ := store.GetFocusMetrics(context.Background(), base.Format("2006-01-02"))

	if err := a.Run(context.Background(), "s1"); err != nil {
		t.Fatalf("second Run: %v", err)
	}
	second, _ := store.GetFocusMetrics(context.Background(), base.Format("2006-01-02"))

	if first == nil || second == nil {
		t.Fatal("expected focus metrics on both runs")
	}
	if first.FocusScore != second.FocusScore || first.TotalActiveSecs != second.TotalActiveSecs {
		t.Errorf("expected idempotent metrics, got %+v vs %+v", first, second)
	}
}
