package focus

import (
	"time"

	"github.com/vthunder/bud2/internal/models"
)

// restoreContextThresholdSecs is the minimum time an Interruption must stay
// open before the RestoreContext suggestion fires (§4.5).
const restoreContextThresholdSecs = 120

// restoreContextDue reports whether an open interruption has outlasted the
// restore-context threshold as of now.
func restoreContextDue(i models.Interruption, now time.Time) bool {
	return i.IsOpen() && now.Sub(i.InterruptedAt).Seconds() >= restoreContextThresholdSecs
}
