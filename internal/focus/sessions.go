package focus

import (
	"time"

	"github.com/vthunder/bud2/internal/models"
)

// SessionRules are the tunable thresholds governing work-session assembly
// and interruption detection (§4.5).
type SessionRules struct {
	MinSessionSecs   float64
	SessionBreakSecs float64
	ResumeWindowSecs float64
}

// DefaultSessionRules returns the documented defaults: 180s/120s/300s.
func DefaultSessionRules() SessionRules {
	return SessionRules{MinSessionSecs: 180, SessionBreakSecs: 120, ResumeWindowSecs: 300}
}

// categorizeFunc resolves an app name/window title pair to a category.
type categorizeFunc func(appName, windowTitle string) models.Category

// runSpan is one maximal contiguous subsequence of events sharing a category.
type runSpan struct {
	category models.Category
	apps     map[string]int
	start    time.Time
	end      time.Time
}

func (r *runSpan) durationSecs() float64 { return r.end.Sub(r.start).Seconds() }

// dominantApp returns the most frequently observed app name within the run.
func (r *runSpan) dominantApp() string {
	best, bestN := "", -1
	for app, n := range r.apps {
		if n > bestN {
			best, bestN = app, n
		}
	}
	return best
}

// splitRuns groups timestamp-ascending events into maximal contiguous
// same-category spans (§4.5 "group contiguous events ... into a run").
func splitRuns(events []models.ContextEvent, categorize categorizeFunc) []runSpan {
	var runs []runSpan
	for _, ev := range events {
		cat := categorize(ev.AppName, ev.WindowTitle)
		if len(runs) == 0 || runs[len(runs)-1].category != cat {
			runs = append(runs, runSpan{category: cat, apps: map[string]int{ev.AppName: 1}, start: ev.Timestamp, end: ev.Timestamp})
			continue
		}
		last := &runs[len(runs)-1]
		last.end = ev.Timestamp
		last.apps[ev.AppName]++
	}
	return runs
}

// ReconcileOutcome bundles everything that changed while scanning one
// window of events against the carried-over session/interruption state.
type ReconcileOutcome struct {
	UpsertSessions      []models.WorkSession
	UpsertInterruptions []models.Interruption
	ActiveSession       *models.WorkSession
	OpenInterruption    *models.Interruption
	ContextSwitches     int
}

// Reconciler scans a window of events and assembles/advances WorkSessions
// and Interruptions against it, given the state carried over from the prior
// tick (the active session and any still-open interruption, both normally
// fetched fresh from storage so the analyzer itself holds no long-lived
// session state).
type Reconciler struct {
	Rules      SessionRules
	Categorize categorizeFunc
	NewID      func() string
}

// Reconcile processes events (must be timestamp-ascending) against active/
// openInterruption, returning every record that needs to be persisted plus
// the resulting carry-over state. idleBegan signals that an IdlePeriod
// began at or after the last event in this window was observed, which force
// -closes any still-active session per §4.5.
func (r *Reconciler) Reconcile(sessionID string, events []models.ContextEvent, active *models.WorkSession, openInterruption *models.Interruption, idleBegan bool, now time.Time) ReconcileOutcome {
	out := ReconcileOutcome{ActiveSession: active, OpenInterruption: openInterruption}
	if len(events) == 0 {
		if active != nil && idleBegan {
			closed := *active
			closeSession(&closed, now)
			out.UpsertSessions = append(out.UpsertSessions, closed)
			if openInterruption != nil && openInterruption.IsOpen() {
				io := *openInterruption
				io.Close(closed.EndedAtValue(), "")
				out.UpsertInterruptions = append(out.UpsertInterruptions, io)
				out.OpenInterruption = nil
			}
			out.ActiveSession = nil
		}
		return out
	}

	runs := splitRuns(events, r.Categorize)
	if switches := len(runs) - 1; switches > 0 {
		out.ContextSwitches = switches
	}

	var cur *models.WorkSession
	if active != nil {
		c := *active
		cur = &c
	}
	var openInt *models.Interruption
	if openInterruption != nil {
		o := *openInterruption
		openInt = &o
	}

	var lastEnd time.Time
	for _, run := range runs {
		lastEnd = run.end

		if cur == nil {
			if run.durationSecs() >= r.Rules.MinSessionSecs {
				cur = &models.WorkSession{
					ID:         r.NewID(),
					SessionID:  sessionID,
					StartedAt:  run.start,
					PrimaryApp: run.dominantApp(),
					Category:   run.category,
					State:      models.WorkSessionActive,
				}
			}
			continue
		}

		cur.DurationSecs = run.end.Sub(cur.StartedAt).Seconds()
		if run.category == models.CategoryDevelopment || run.category == models.CategoryDocumentation {
			cur.DeepWorkSecs += run.durationSecs()
		}
		if run.category == models.CategoryCommunication {
			cur.CommunicationSecs += run.durationSecs()
		}

		if run.category == cur.Category {
			if openInt != nil && openInt.IsOpen() && run.start.Sub(openInt.InterruptedAt).Seconds() <= r.Rules.ResumeWindowSecs {
				resumed := *openInt
				resumed.Close(run.start, run.dominantApp())
				out.UpsertInterruptions = append(out.UpsertInterruptions, resumed)
				openInt = nil
			}
			continue
		}

		isDeepWork := cur.Category == models.CategoryDevelopment || cur.Category == models.CategoryDocumentation
		if isDeepWork && run.category == models.CategoryCommunication && openInt == nil {
			io := models.Interruption{
				ID:            r.NewID(),
				WorkSessionID: cur.ID,
				InterruptedAt: run.start,
				FromApp:       cur.PrimaryApp,
				FromCategory:  cur.Category,
				ToApp:         run.dominantApp(),
				ToCategory:    run.category,
			}
			openInt = &io
			cur.InterruptionCount++
		}

		if run.durationSecs() >= r.Rules.SessionBreakSecs {
			closeSession(cur, run.start)
			out.UpsertSessions = append(out.UpsertSessions, *cur)
			if openInt != nil && openInt.IsOpen() {
				io := *openInt
				io.Close(cur.EndedAtValue(), "")
				out.UpsertInterruptions = append(out.UpsertInterruptions, io)
				openInt = nil
			}
			cur = nil
			if run.durationSecs() >= r.Rules.MinSessionSecs {
				cur = &models.WorkSession{
					ID:         r.NewID(),
					SessionID:  sessionID,
					StartedAt:  run.start,
					PrimaryApp: run.dominantApp(),
					Category:   run.category,
					State:      models.WorkSessionActive,
					DeepWorkSecs: func() float64 {
						if run.category == models.CategoryDevelopment || run.category == models.CategoryDocumentation {
							return run.durationSecs()
						}
						return 0
					}(),
					CommunicationSecs: func() float64 {
						if run.category == models.CategoryCommunication {
							return run.durationSecs()
						}
						return 0
					}(),
					DurationSecs: run.durationSecs(),
				}
			}
		}
	}

	if cur != nil && idleBegan {
		closeSession(cur, lastEnd)
		out.UpsertSessions = append(out.UpsertSessions, *cur)
		if openInt != nil && openInt.IsOpen() {
			io := *openInt
			io.Close(cur.EndedAtValue(), "")
			out.UpsertInterruptions = append(out.UpsertInterruptions, io)
			openInt = nil
		}
		cur = nil
	}

	if cur != nil {
		out.UpsertSessions = append(out.UpsertSessions, *cur)
	}
	if openInt != nil {
		found := false
		for i := range out.UpsertInterruptions {
			if out.UpsertInterruptions[i].ID == openInt.ID {
				found = true
				break
			}
		}
		if !found {
			out.UpsertInterruptions = append(out.UpsertInterruptions, *openInt)
		}
	}

	out.ActiveSession = cur
	out.OpenInterruption = openInt
	return out
}

func closeSession(ws *models.WorkSession, endedAt time.Time) {
	ws.State = models.WorkSessionCompleted
	t := endedAt
	ws.EndedAt = &t
	ws.DurationSecs = endedAt.Sub(ws.StartedAt).Seconds()
}
