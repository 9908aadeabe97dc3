package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/vthunder/bud2/internal/logging"
	"github.com/vthunder/bud2/internal/models"
)

// monitorTick captures all three monitor samples at one logical instant and
// publishes a single fused ContextEvent (§4.2: "a monitor tick MUST capture
// all three samples at the same logical instant"). SystemMetricsSnapshot
// and ProcessSnapshot are cached for the slower metrics_persist/
// processes_persist loops rather than pushed onto the event queue
// themselves; only the foreground-window/activity fusion becomes a
// ContextEvent.
func (s *Scheduler) monitorTick(ctx context.Context, now time.Time) {
	cfg := s.cfg.Get()

	metrics := s.sysMon.Sample(ctx)
	s.mu.Lock()
	s.lastMetrics = &metrics
	s.mu.Unlock()

	var win *models.WindowInfo
	var procSnap models.ProcessSnapshot
	if cfg == nil || cfg.Monitor.ProcessMonitoring {
		win, procSnap = s.procMon.Sample(ctx)
		s.mu.Lock()
		s.lastProcesses = &procSnap
		s.mu.Unlock()
	}

	s.trackBlackout(win, procSnap)

	idleThreshold := 300.0
	if cfg != nil && cfg.IdleThresholdSecs > 0 {
		idleThreshold = float64(cfg.IdleThresholdSecs)
	}
	idle := s.actMon.Sample(idleThreshold)
	s.handleIdleTransition(ctx, idle, now)

	if cfg != nil && !cfg.CaptureEnabled {
		return
	}

	ev := s.buildContextEvent(win, now)
	if err := s.store.InsertEvent(ctx, ev); err != nil {
		logging.Warn("scheduler", "insert event failed", logging.F("err", err))
		return
	}
	s.totalEvents.Add(1)

	decision := s.trig.Evaluate(ev)
	s.queue.push(queueItem{event: ev, decision: decision})
}

// buildContextEvent fuses the foreground window (if any) into one
// ContextEvent, classifying it as an application switch when the app
// differs from the previous tick's, or a plain window focus otherwise. A
// missing window (platform has no windowing collaborator, or lookup
// failed) still yields an event per §4.2's "if any one sample fails, the
// others are still emitted; the failed field is left null".
func (s *Scheduler) buildContextEvent(win *models.WindowInfo, now time.Time) models.ContextEvent {
	ev := models.ContextEvent{
		EventID:   fmt.Sprintf("evt_%d", now.UnixNano()),
		Timestamp: now,
		SessionID: s.sessionID,
	}

	if win == nil {
		ev.EventType = models.EventUnknown
		return ev
	}

	ev.AppName = win.AppName
	ev.WindowTitle = win.Title

	s.mu.Lock()
	prevApp := s.prevAppName
	s.prevAppName = win.AppName
	s.mu.Unlock()

	if prevApp != "" && win.AppName != "" && win.AppName != prevApp {
		ev.EventType = models.EventApplicationSwitch
	} else {
		ev.EventType = models.EventWindowFocus
	}
	return ev
}

// trackBlackout counts consecutive ticks where neither a window nor any
// process record was observed, the proxy this core uses for "a monitor
// that fails 10 consecutive ticks" (§7) since the monitors themselves never
// return an error for a fully empty sample.
func (s *Scheduler) trackBlackout(win *models.WindowInfo, procSnap models.ProcessSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if win == nil && len(procSnap.Processes) == 0 {
		s.blackoutTicks++
	} else {
		s.blackoutTicks = 0
	}
}

func (s *Scheduler) unhealthy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.blackoutTicks >= unhealthyAfterTicks
}

// handleIdleTransition opens or closes an IdlePeriod on the false<->true
// edges of IdleState.IsIdle, resets the vision pipeline's retained
// previous-full-frame buffer on idle-enter (§4.4 step 7), and accumulates
// the closed period's duration into the session's TotalIdleSecs.
func (s *Scheduler) handleIdleTransition(ctx context.Context, idle models.IdleState, now time.Time) {
	s.mu.Lock()
	wasIdle := s.wasIdle
	s.wasIdle = idle.IsIdle
	s.mu.Unlock()

	if idle.IsIdle && !wasIdle {
		if _, err := s.store.OpenIdle(ctx, now); err != nil {
			logging.Warn("scheduler", "open idle failed", logging.F("err", err))
		}
		s.mu.Lock()
		s.idleBeganAt = now
		s.mu.Unlock()
		if s.vis != nil {
			s.vis.Reset()
		}
		return
	}

	if !idle.IsIdle && wasIdle {
		if err := s.store.CloseIdle(ctx, now); err != nil {
			logging.Warn("scheduler", "close idle failed", logging.F("err", err))
		}
		s.mu.Lock()
		began := s.idleBeganAt
		s.mu.Unlock()
		if !began.IsZero() {
			s.idleSecs.Add(int64(now.Sub(began).Seconds()))
		}
	}
}
