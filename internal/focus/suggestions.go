package focus

import (
	"context"
	"fmt"
	"time"

	"github.com/vthunder/bud2/internal/models"
)

const (
	needFocusWindow      = 20 * time.Minute
	needFocusMinSwitches = 4

	takeBreakThreshold = 90 * time.Minute

	communicationWindow    = 2 * time.Hour
	communicationRatioHigh = 0.4

	patternNGram      = 3
	patternMinRepeats = 3

	suggestionCooldown = time.Hour
)

// SuggestionStore is the subset of storage.DB the suggestion engine needs.
type SuggestionStore interface {
	ListPendingSuggestions(ctx context.Context, t models.SuggestionType, since time.Time) ([]models.LocalSuggestion, error)
	InsertSuggestion(ctx context.Context, s models.LocalSuggestion) error
}

// emitSuggestion inserts one suggestion unless one of the same type created
// within the last rolling hour is still pending, i.e. neither dismissed nor
// acted on (§4.5: "at most one per type per rolling hour").
func emitSuggestion(ctx context.Context, store SuggestionStore, newID func() string, now time.Time, kind models.SuggestionType, payload map[string]any) error {
	pending, err := store.ListPendingSuggestions(ctx, kind, now.Add(-suggestionCooldown))
	if err != nil {
		return fmt.Errorf("focus: list pending suggestions: %w", err)
	}
	if len(pending) > 0 {
		return nil
	}
	return store.InsertSuggestion(ctx, models.LocalSuggestion{
		ID:             newID(),
		SuggestionType: kind,
		Payload:        payload,
		CreatedAt:      now,
		Source:         "local",
	})
}

// needsFocusTime reports whether the last needFocusWindow contains at least
// needFocusMinSwitches category transitions.
func needsFocusTime(events []models.ContextEvent, categorize categorizeFunc, now time.Time) bool {
	cutoff := now.Add(-needFocusWindow)
	var recent []models.ContextEvent
	for _, e := range events {
		if !e.Timestamp.Before(cutoff) {
			recent = append(recent, e)
		}
	}
	runs := splitRuns(recent, categorize)
	return len(runs)-1 >= needFocusMinSwitches
}

// takeBreakDue reports whether the user has been continuously active
// (without any IdlePeriod) for at least takeBreakThreshold.
func takeBreakDue(continuousActiveSince time.Time, now time.Time) bool {
	if continuousActiveSince.IsZero() {
		return false
	}
	return now.Sub(continuousActiveSince) >= takeBreakThreshold
}

// excessiveCommunication reports whether communication time exceeded
// communicationRatioHigh of total active time over the last
// communicationWindow, across the supplied sessions.
func excessiveCommunication(sessions []models.WorkSession, now time.Time) bool {
	cutoff := now.Add(-communicationWindow)
	var total, comm float64
	for _, ws := range sessions {
		if ws.StartedAt.Before(cutoff) {
			continue
		}
		total += ws.DurationSecs
		comm += ws.CommunicationSecs
	}
	if total <= 0 {
		return false
	}
	return comm/total > communicationRatioHigh
}

// patternDetected looks for an n-gram of category transitions that recurred
// at least patternMinRepeats times among today's runs.
func patternDetected(todayRuns []runSpan) (bool, []models.Category) {
	n := patternNGram
	if len(todayRuns) < n {
		return false, nil
	}
	counts := map[string]int{}
	seqs := map[string][]models.Category{}
	for i := 0; i+n <= len(todayRuns); i++ {
		seq := make([]models.Category, n)
		key := ""
		for j := 0; j < n; j++ {
			seq[j] = todayRuns[i+j].category
			key += string(seq[j]) + ">"
		}
		counts[key]++
		seqs[key] = seq
	}
	for key, c := range counts {
		if c >= patternMinRepeats {
			return true, seqs[key]
		}
	}
	return false, nil
}
