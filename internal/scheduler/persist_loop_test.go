package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/vthunder/bud2/internal/clock"
	"github.com/vthunder/bud2/internal/models"
)

func TestMetricsPersistTick_WritesLastSample(t *testing.T) {
	c := clock.NewFrozen(time.Now())
	store := newFakeSchedulerStore()
	s := newTestScheduler(t, c, store)

	s.metricsPersistTick(context.Background(), c.Now())
	if len(store.metrics) != 0 {
		t.Fatalf("expected no write before any sample is cached, got %d", len(store.metrics))
	}

	snap := models.SystemMetricsSnapshot{Timestamp: c.Now(), CPUUsagePercent: 42}
	s.mu.Lock()
	s.lastMetrics = &snap
	s.mu.Unlock()

	s.metricsPersistTick(context.Background(), c.Now())
	if len(store.metrics) != 1 {
		t.Fatalf("expected 1 metrics row persisted, got %d", len(store.metrics))
	}
	if store.metrics[0].CPUUsagePercent != 42 {
		t.Errorf("expected persisted snapshot to match cached sample, got %+v", store.metrics[0])
	}
}

func TestProcessesPersistTick_WritesLastSample(t *testing.T) {
	c := clock.NewFrozen(time.Now())
	store := newFakeSchedulerStore()
	s := newTestScheduler(t, c, store)

	snap := models.ProcessSnapshot{Timestamp: c.Now(), Processes: []models.ProcessRecord{{PID: 1, Name: "x"}}}
	s.mu.Lock()
	s.lastProcesses = &snap
	s.mu.Unlock()

	s.processesPersistTick(context.Background(), c.Now())
	if len(store.processes) != 1 {
		t.Fatalf("expected 1 process snapshot persisted, got %d", len(store.processes))
	}
}
