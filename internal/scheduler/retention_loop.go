package scheduler

import (
	"context"
	"time"

	"github.com/vthunder/bud2/internal/logging"
)

// retentionTick invokes the storage retention sweep once per hour by
// default. RetentionSweep is itself idempotent and safe under concurrent
// reads, so no additional coordination is needed here.
func (s *Scheduler) retentionTick(ctx context.Context, now time.Time) {
	counts, err := s.store.RetentionSweep(ctx, now)
	if err != nil {
		logging.Warn("scheduler", "retention sweep failed", logging.F("err", err))
		return
	}
	logging.Info("scheduler", "retention sweep complete", logging.F("counts", counts))
}

// analyzerTick rebuilds the derived focus tables for the active session.
func (s *Scheduler) analyzerTick(ctx context.Context, _ time.Time) {
	if err := s.analyzer.Run(ctx, s.sessionID); err != nil {
		logging.Warn("scheduler", "focus analyzer run failed", logging.F("err", err))
	}
}
