package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/vthunder/bud2/internal/clock"
	"github.com/vthunder/bud2/internal/models"
	"github.com/vthunder/bud2/internal/vision"
)

// fakeFramePersister satisfies vision.FramePersister without touching disk;
// since every decision used in these tests carries importance below the
// Full/Delta/Thumbnail tiers' floor, the pipeline never reaches the real
// screen capturer, so a nil ScreenCapturer is safe to pass to NewPipeline.
type fakeFramePersister struct {
	frames []models.ProcessedFrame
}

func (f *fakeFramePersister) InsertFrame(ctx context.Context, frame models.ProcessedFrame, artifact []byte) error {
	f.frames = append(f.frames, frame)
	return nil
}

func TestCaptureTick_DispatchesOnlyCaptureWorthyItems(t *testing.T) {
	c := clock.NewFrozen(time.Now())
	store := newFakeSchedulerStore()
	s := newTestScheduler(t, c, store)
	persister := &fakeFramePersister{}
	s.vis = vision.NewPipeline(nil, nil, persister, c)

	s.queue.push(queueItem{event: models.ContextEvent{AppName: "a"}, decision: models.CaptureDecision{Capture: false}})
	s.queue.push(queueItem{event: models.ContextEvent{AppName: "b"}, decision: models.CaptureDecision{Capture: true, Kind: models.TriggerScheduledCheck, Importance: 0.1}})

	s.captureTick(context.Background())

	if len(persister.frames) != 1 {
		t.Fatalf("expected exactly 1 dispatched frame, got %d", len(persister.frames))
	}
	if s.totalFrames.Load() != 1 {
		t.Errorf("expected totalFrames to be 1, got %d", s.totalFrames.Load())
	}
}

func TestCaptureTick_EnforcesMinimumGap(t *testing.T) {
	c := clock.NewFrozen(time.Now())
	store := newFakeSchedulerStore()
	s := newTestScheduler(t, c, store)
	persister := &fakeFramePersister{}
	s.vis = vision.NewPipeline(nil, nil, persister, c)

	s.queue.push(queueItem{decision: models.CaptureDecision{Capture: true, Kind: models.TriggerScheduledCheck, Importance: 0.1}})
	s.captureTick(context.Background())
	if len(persister.frames) != 1 {
		t.Fatalf("expected first tick to dispatch, got %d frames", len(persister.frames))
	}

	s.queue.push(queueItem{decision: models.CaptureDecision{Capture: true, Kind: models.TriggerScheduledCheck, Importance: 0.1}})
	s.captureTick(context.Background())
	if len(persister.frames) != 1 {
		t.Errorf("expected second tick within minCaptureGap to be suppressed, got %d frames", len(persister.frames))
	}
}

func TestCaptureTick_EmptyQueueIsNoOp(t *testing.T) {
	c := clock.NewFrozen(time.Now())
	store := newFakeSchedulerStore()
	s := newTestScheduler(t, c, store)
	persister := &fakeFramePersister{}
	s.vis = vision.NewPipeline(nil, nil, persister, c)

	s.captureTick(context.Background())
	if len(persister.frames) != 0 {
		t.Errorf("expected no frames dispatched from an empty queue, got %d", len(persister.frames))
	}
}
