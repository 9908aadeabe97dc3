// Package scheduler drives the nine cooperative loops that tick the
// monitors, the capture trigger and vision pipeline, persistence, retention,
// the focus analyzer, and the outbound collaborators. It owns the bounded
// monitor→capture channel and its back-pressure policy (§4.7) and the
// single root cancellation all loops share, grounded on the teacher's
// per-goroutine ticker-and-stopChan idiom in cmd/bud/main.go, generalized
// from one shared stopChan to one context.CancelFunc per loop.
package scheduler

import (
	"context"
	"fmt"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/vthunder/bud2/internal/clock"
	"github.com/vthunder/bud2/internal/collaborators"
	"github.com/vthunder/bud2/internal/config"
	"github.com/vthunder/bud2/internal/focus"
	"github.com/vthunder/bud2/internal/logging"
	"github.com/vthunder/bud2/internal/models"
	"github.com/vthunder/bud2/internal/monitors"
	"github.com/vthunder/bud2/internal/storage"
	"github.com/vthunder/bud2/internal/trigger"
	"github.com/vthunder/bud2/internal/vision"
)

// Store is the storage surface the scheduler needs beyond what the focus
// Analyzer already requires (focus.Store is embedded since the analyzer
// loop calls straight through to it). Satisfied directly by *storage.DB.
type Store interface {
	focus.Store
	InsertMetrics(ctx context.Context, m models.SystemMetricsSnapshot) error
	InsertProcesses(ctx context.Context, p models.ProcessSnapshot) error
	InsertEvent(ctx context.Context, e models.ContextEvent) error
	OpenIdle(ctx context.Context, ts time.Time) (int64, error)
	CloseIdle(ctx context.Context, ts time.Time) error
	HasOpenIdle(ctx context.Context) (bool, error)
	RetentionSweep(ctx context.Context, now time.Time) (storage.DeleteCounts, error)
	OpenSession(ctx context.Context, s models.Session) error
	CloseSession(ctx context.Context, s models.Session) error
}

// Deps bundles every collaborator the scheduler wires together. Notifier,
// Uploader, and Stream default to their collaborators no-op implementations
// when nil, matching §6.4's "contracts only" framing — the scheduler runs
// identically whether or not a real collaborator is plugged in.
type Deps struct {
	Store         Store
	Clock         clock.Clock
	Config        *config.Store
	SystemMonitor *monitors.SystemMetricsMonitor
	ProcessMonitor *monitors.ProcessMonitor
	ActivityMonitor *monitors.ActivityMonitor
	Trigger       *trigger.CaptureTrigger
	Vision        *vision.Pipeline
	Analyzer      *focus.Analyzer
	Notifier      collaborators.DesktopNotifier
	Uploader      collaborators.BatchUploader
	Stream        collaborators.SuggestionStream
	SessionID     string
	Intervals     Intervals
}

// Scheduler drives the nine loops and the bounded monitor→capture queue.
type Scheduler struct {
	store     Store
	clock     clock.Clock
	cfg       *config.Store
	sysMon    *monitors.SystemMetricsMonitor
	procMon   *monitors.ProcessMonitor
	actMon    *monitors.ActivityMonitor
	trig      *trigger.CaptureTrigger
	vis       *vision.Pipeline
	analyzer  *focus.Analyzer
	notifier  collaborators.DesktopNotifier
	uploader  collaborators.BatchUploader
	stream    collaborators.SuggestionStream
	sessionID string
	intervals Intervals

	queue *eventQueue

	mu             sync.Mutex
	lastMetrics    *models.SystemMetricsSnapshot
	lastProcesses  *models.ProcessSnapshot
	prevAppName    string
	wasIdle        bool
	idleBeganAt    time.Time
	blackoutTicks  int

	totalEvents atomic.Int64
	totalFrames atomic.Int64
	idleSecs    atomic.Int64 // accumulated whole seconds, good enough for the session summary

	lastCaptureRun   time.Time
	sessionStartedAt time.Time
}

// New constructs a Scheduler. Any nil collaborator in d falls back to its
// collaborators no-op implementation.
func New(d Deps) *Scheduler {
	notifier := d.Notifier
	if notifier == nil {
		notifier = collaborators.NoOpNotifier{}
	}
	uploader := d.Uploader
	if uploader == nil {
		uploader = collaborators.NoOpUploader{}
	}
	stream := d.Stream
	if stream == nil {
		stream = collaborators.NoOpSuggestionStream{}
	}
	intervals := d.Intervals
	if intervals == (Intervals{}) {
		intervals = DefaultIntervals()
	}
	return &Scheduler{
		store:     d.Store,
		clock:     d.Clock,
		cfg:       d.Config,
		sysMon:    d.SystemMonitor,
		procMon:   d.ProcessMonitor,
		actMon:    d.ActivityMonitor,
		trig:      d.Trigger,
		vis:       d.Vision,
		analyzer:  d.Analyzer,
		notifier:  notifier,
		uploader:  uploader,
		stream:    stream,
		sessionID: d.SessionID,
		intervals: intervals,
		queue:     newEventQueue(),
	}
}

// Run starts all nine loops and blocks until ctx is canceled or SIGINT/
// SIGTERM is received, then drains and cancels per §4.6's shutdown
// sequence, returning once every loop has stopped or the graceful-shutdown
// deadline has elapsed.
func (s *Scheduler) Run(ctx context.Context) error {
	now := s.clock.Now()
	s.sessionStartedAt = now
	if err := s.store.OpenSession(ctx, models.Session{SessionID: s.sessionID, StartedAt: now}); err != nil {
		return fmt.Errorf("scheduler: open session: %w", err)
	}

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loopCtx, cancelLoops := context.WithCancel(sigCtx)

	var wg sync.WaitGroup
	s.startLoop(loopCtx, &wg, "monitor", s.intervals.Monitor, s.monitorTick)
	s.startLoop(loopCtx, &wg, "metrics_persist", s.intervals.MetricsPersist, s.metricsPersistTick)
	s.startLoop(loopCtx, &wg, "processes_persist", s.intervals.ProcessesPersist, s.processesPersistTick)
	s.startLoop(loopCtx, &wg, "retention", s.intervals.Retention, s.retentionTick)
	s.startLoop(loopCtx, &wg, "analyzer", s.intervals.Analyzer, s.analyzerTick)
	s.startLoop(loopCtx, &wg, "heartbeat", s.intervals.Heartbeat, s.heartbeatTick)
	s.startLoop(loopCtx, &wg, "batch_drain", s.intervals.BatchDrain, s.batchDrainTick)
	s.startCaptureLoop(loopCtx, &wg)
	s.startSuggestionStreamLoop(loopCtx, &wg)

	<-sigCtx.Done()
	logging.Info("scheduler", "shutdown signal received, draining loops")

	cancelLoops()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(s.intervals.GracefulShutdown):
		logging.Warn("scheduler", "graceful shutdown deadline exceeded, forcing termination")
	}

	return s.shutdownWatch(context.Background())
}

// startLoop runs tick once per interval on its own goroutine until ctx is
// canceled. Each loop owns its own ticker; there is no shared stopChan.
func (s *Scheduler) startLoop(ctx context.Context, wg *sync.WaitGroup, name string, interval time.Duration, tick func(context.Context, time.Time)) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case t := <-ticker.C:
				tick(ctx, t)
			}
		}
	}()
}

// shutdownWatch is the ninth loop: it never runs on its own ticker, firing
// only once, on the signal that unblocked Run. It drains any still-open
// IdlePeriod and closes the active Session with its final counters.
func (s *Scheduler) shutdownWatch(ctx context.Context) error {
	now := s.clock.Now()

	if open, err := s.store.HasOpenIdle(ctx); err == nil && open {
		if err := s.store.CloseIdle(ctx, now); err != nil {
			logging.Warn("scheduler", "close idle on shutdown failed", logging.F("err", err))
		}
	}

	sess := models.Session{
		SessionID:     s.sessionID,
		StartedAt:     s.sessionStartedAt,
		TotalEvents:   s.totalEvents.Load(),
		TotalFrames:   s.totalFrames.Load(),
		TotalIdleSecs: float64(s.idleSecs.Load()),
	}
	sess.Close(now)
	if err := s.store.CloseSession(ctx, sess); err != nil {
		return fmt.Errorf("scheduler: close session: %w", err)
	}
	return nil
}
