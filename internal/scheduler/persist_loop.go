package scheduler

import (
	"context"
	"time"

	"github.com/vthunder/bud2/internal/logging"
)

// metricsPersistTick writes the most recently sampled SystemMetricsSnapshot.
// Sampling happens every monitor tick (for accurate counter deltas); this
// loop decouples the write cadence from the sampling cadence so the metrics
// table isn't churned ten times more often than §4.6 requires.
func (s *Scheduler) metricsPersistTick(ctx context.Context, _ time.Time) {
	s.mu.Lock()
	snap := s.lastMetrics
	s.mu.Unlock()
	if snap == nil {
		return
	}
	if err := s.store.InsertMetrics(ctx, *snap); err != nil {
		logging.Warn("scheduler", "persist metrics failed", logging.F("err", err))
	}
}

// processesPersistTick writes the most recently sampled ProcessSnapshot.
func (s *Scheduler) processesPersistTick(ctx context.Context, _ time.Time) {
	s.mu.Lock()
	snap := s.lastProcesses
	s.mu.Unlock()
	if snap == nil {
		return
	}
	if err := s.store.InsertProcesses(ctx, *snap); err != nil {
		logging.Warn("scheduler", "persist processes failed", logging.F("err", err))
	}
}
