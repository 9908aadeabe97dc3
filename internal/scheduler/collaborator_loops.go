package scheduler

import (
	"context"
	"time"

	"github.com/vthunder/bud2/internal/logging"
)

// batchDrainSize bounds how many items the batch_drain loop pulls from the
// uploader per tick, so a large backlog is handed off incrementally rather
// than all at once.
const batchDrainSize = 256

// heartbeatTick notifies the desktop collaborator of liveness, reporting
// unhealthy if the monitor loop has been blacked out for
// unhealthyAfterTicks consecutive ticks (§7 "Monitor" error kind).
func (s *Scheduler) heartbeatTick(ctx context.Context, _ time.Time) {
	if err := s.notifier.Heartbeat(ctx, !s.unhealthy()); err != nil {
		// CollaboratorError: logged at the boundary, never propagated (§7).
		logging.Warn("scheduler", "notifier heartbeat failed", logging.F("err", err))
	}
}

// batchDrainTick pulls any unsent events/frames from the batch uploader and
// acknowledges them once handed off. With the default no-op uploader this
// is a pure no-op every tick.
func (s *Scheduler) batchDrainTick(ctx context.Context, _ time.Time) {
	items, err := s.uploader.Drain(ctx, batchDrainSize)
	if err != nil {
		logging.Warn("scheduler", "batch drain failed", logging.F("err", err))
		return
	}
	if len(items) == 0 {
		return
	}
	if err := s.uploader.MarkUploaded(ctx, items); err != nil {
		logging.Warn("scheduler", "mark uploaded failed", logging.F("err", err))
	}
}
