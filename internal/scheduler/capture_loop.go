package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/vthunder/bud2/internal/logging"
)

// startCaptureLoop runs the capture loop, which is both event-driven (woken
// by the queue's notify channel as soon as the monitor loop publishes an
// event) and ticker-backed at its configured interval as a fallback, bounded
// to at most one drain per minCaptureGap to avoid a burst of events driving
// unbounded vision pipeline invocations (§4.6 "minimum 50 ms between
// invocations to bound bursts").
func (s *Scheduler) startCaptureLoop(ctx context.Context, wg *sync.WaitGroup) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(s.intervals.Capture)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.captureTick(ctx)
			case <-s.queue.notify:
				s.captureTick(ctx)
			}
		}
	}()
}

// captureTick drains every item currently queued and dispatches the vision
// pipeline for each Capture-worthy one, in order. The pipeline itself
// processes at most one frame at a time per process (§4.7); calling it
// synchronously in this single loop goroutine is what enforces that.
func (s *Scheduler) captureTick(ctx context.Context) {
	s.mu.Lock()
	sinceLast := time.Since(s.lastCaptureRun)
	s.mu.Unlock()
	if !s.lastCaptureRun.IsZero() && sinceLast < minCaptureGap {
		return
	}

	items := s.queue.drain()
	if len(items) == 0 {
		s.mu.Lock()
		s.lastCaptureRun = time.Now()
		s.mu.Unlock()
		return
	}

	cfg := s.cfg.Get()
	privacyMode := cfg != nil && cfg.Monitor.PrivacyMode

	for _, item := range items {
		if !item.decision.Capture {
			continue
		}
		if err := s.vis.Process(ctx, item.decision, item.event.AppName, item.event.WindowTitle, privacyMode); err != nil {
			logging.Warn("scheduler", "vision process failed", logging.F("err", err))
			continue
		}
		s.totalFrames.Add(1)
	}

	if dropped := s.queue.droppedCount(); dropped > 0 {
		logging.Debug("scheduler", "monitor queue has dropped events under back-pressure", logging.F("dropped", dropped))
	}

	s.mu.Lock()
	s.lastCaptureRun = time.Now()
	s.mu.Unlock()
}
