package scheduler

import (
	"context"
	"sort"
	"time"

	"github.com/vthunder/bud2/internal/models"
	"github.com/vthunder/bud2/internal/storage"
)

// fakeSchedulerStore is an in-memory stand-in for *storage.DB satisfying the
// full scheduler Store interface (and, transitively, focus.Store), in the
// same style as internal/focus's fakeAnalyzerStore.
type fakeSchedulerStore struct {
	events        []models.ContextEvent
	metrics       []models.SystemMetricsSnapshot
	processes     []models.ProcessSnapshot
	sessions      map[string]models.WorkSession
	interruptions map[string]models.Interruption
	focusMetrics  map[string]models.FocusMetrics
	suggestions   []models.LocalSuggestion

	idleOpen     bool
	idleOpenedAt time.Time
	idleClosedAt time.Time

	closedSessions []models.Session
	openedSessions []models.Session

	retentionCalls int
	retentionErr   error
}

func newFakeSchedulerStore() *fakeSchedulerStore {
	return &fakeSchedulerStore{
		sessions:      map[string]models.WorkSession{},
		interruptions: map[string]models.Interruption{},
		focusMetrics:  map[string]models.FocusMetrics{},
	}
}

func (f *fakeSchedulerStore) QueryEvents(ctx context.Context, r storage.TimeRange, filter storage.EventFilter, p storage.Page) ([]models.ContextEvent, storage.Pagination, error) {
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

func (f *fakeSchedulerStore) ListActiveWorkSession(ctx context.Context, sessionID string) (*models.WorkSession, error) {
	for _, ws := range f.sessions {
		if ws.SessionID == sessionID && ws.State == models.WorkSessionActive {
			w := ws
			return &w, nil
		}
	}
	return nil, nil
}

func (f *fakeSchedulerStore) UpsertWorkSession(ctx context.Context, ws models.WorkSession) error {
	f.sessions[ws.ID] = ws
	return nil
}

func (f *fakeSchedulerStore) ListWorkSessions(ctx context.Context, r storage.TimeRange, p storage.Page) ([]models.WorkSession, storage.Pagination, error) {
	var out []models.WorkSession
	for _, ws := range f.sessions {
		out = append(out, ws)
	}
	return out, storage.Pagination{Total: len(out)}, nil
}

func (f *fakeSchedulerStore) ListOpenInterruptions(ctx context.Context, workSessionID string) ([]models.Interruption, error) {
	var out []models.Interruption
	for _, in := range f.interruptions {
		if in.WorkSessionID == workSessionID && in.IsOpen() {
			out = append(out, in)
		}
	}
	return out, nil
}

func (f *fakeSchedulerStore) UpsertInterruption(ctx context.Context, in models.Interruption) error {
	f.interruptions[in.ID] = in
	return nil
}

func (f *fakeSchedulerStore) UpsertFocusMetrics(ctx context.Context, fm models.FocusMetrics) error {
	f.focusMetrics[fm.Date] = fm
	return nil
}

func (f *fakeSchedulerStore) GetFocusMetrics(ctx context.Context, date string) (*models.FocusMetrics, error) {
	if fm, ok := f.focusMetrics[date]; ok {
		return &fm, nil
	}
	return nil, nil
}

func (f *fakeSchedulerStore) HasOpenIdle(ctx context.Context) (bool, error) {
	return f.idleOpen, nil
}

func (f *fakeSchedulerStore) ListPendingSuggestions(ctx context.Context, t models.SuggestionType, since time.Time) ([]models.LocalSuggestion, error) {
	var out []models.LocalSuggestion
	for _, s := range f.suggestions {
		if s.SuggestionType == t && !s.CreatedAt.Before(since) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSchedulerStore) InsertSuggestion(ctx context.Context, s models.LocalSuggestion) error {
	f.suggestions = append(f.suggestions, s)
	return nil
}

func (f *fakeSchedulerStore) InsertMetrics(ctx context.Context, m models.SystemMetricsSnapshot) error {
	f.metrics = append(f.metrics, m)
	return nil
}

func (f *fakeSchedulerStore) InsertProcesses(ctx context.Context, p models.ProcessSnapshot) error {
	f.processes = append(f.processes, p)
	return nil
}

func (f *fakeSchedulerStore) InsertEvent(ctx context.Context, e models.ContextEvent) error {
	f.events = append(f.events, e)
	return nil
}

func (f *fakeSchedulerStore) OpenIdle(ctx context.Context, ts time.Time) (int64, error) {
	f.idleOpen = true
	f.idleOpenedAt = ts
	return 1, nil
}

func (f *fakeSchedulerStore) CloseIdle(ctx context.Context, ts time.Time) error {
	f.idleOpen = false
	f.idleClosedAt = ts
	return nil
}

func (f *fakeSchedulerStore) RetentionSweep(ctx context.Context, now time.Time) (storage.DeleteCounts, error) {
	f.retentionCalls++
	if f.retentionErr != nil {
		return storage.DeleteCounts{}, f.retentionErr
	}
	return storage.DeleteCounts{EventsDeleted: int64(len(f.events))}, nil
}

func (f *fakeSchedulerStore) OpenSession(ctx context.Context, s models.Session) error {
	f.openedSessions = append(f.openedSessions, s)
	return nil
}

func (f *fakeSchedulerStore) CloseSession(ctx context.Context, s models.Session) error {
	f.closedSessions = append(f.closedSessions, s)
	return nil
}
