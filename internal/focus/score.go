package focus

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/vthunder/bud2/internal/models"
)

// computeFocusScore implements the §4.5 formula exactly: a weighted blend of
// deep-work share, context-switch stability, and interruption protection,
// each ratio falling back to zero when its denominator is zero.
func computeFocusScore(deepWorkSecs, totalActiveSecs float64, contextSwitches, interruptionCount int64) int {
	var deepWorkShare float64
	if totalActiveSecs > 0 {
		deepWorkShare = deepWorkSecs / totalActiveSecs
	}
	stability := 1 - min(1, float64(contextSwitches)/60)
	protection := 1 - min(1, float64(interruptionCount)/20)

	raw := 0.50*deepWorkShare + 0.25*stability + 0.25*protection
	return int(math.Round(clamp01(raw) * 100))
}

func clamp01(v float64) float64 {
	return min(1, max(0, v))
}

// deepWorkDurationStats computes the average and max duration, in seconds,
// of today's deep-work (Development/Documentation) sessions. Uses gonum's
// stat.Mean rather than a hand-rolled accumulator, matching the rest of the
// module's preference for the ecosystem statistics package over ad hoc math.
func deepWorkDurationStats(sessions []models.WorkSession) (avg, max float64) {
	var durations []float64
	for _, ws := range sessions {
		if ws.Category != models.CategoryDevelopment && ws.Category != models.CategoryDocumentation {
			continue
		}
		durations = append(durations, ws.DurationSecs)
		if ws.DurationSecs > max {
			max = ws.DurationSecs
		}
	}
	if len(durations) == 0 {
		return 0, 0
	}
	return stat.Mean(durations, nil), max
}
