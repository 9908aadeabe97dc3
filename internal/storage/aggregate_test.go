package storage

import (
	"context"
	"testing"
	"time"

	"github.com/vthunder/bud2/internal/models"
)

func TestAggregateAppUsage_SumsContiguousDuration(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	day := time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)

	events := []models.ContextEvent{
		{EventID: "e1", EventType: models.EventApplicationSwitch, AppName: "Code", Timestamp: day},
		{EventID: "e2", EventType: models.EventWindowFocus, AppName: "Code", Timestamp: day.Add(time.Minute)},
		{EventID: "e3", EventType: models.EventApplicationSwitch, AppName: "Slack", Timestamp: day.Add(2 * time.Minute)},
	}
	if err := db.InsertEvents(ctx, events); err != nil {
		t.Fatalf("InsertEvents failed: %v", err)
	}

	usage, err := db.AggregateAppUsage(ctx, "2026-07-01")
	if err != nil {
		t.Fatalf("AggregateAppUsage failed: %v", err)
	}
	if len(usage) != 2 {
		t.Fatalf("expected 2 apps, got %d", len(usage))
	}
	var code *models.AppUsage
	for i := range usage {
		if usage[i].AppName == "Code" {
			code = &usage[i]
		}
	}
	if code == nil {
		t.Fatal("expected a Code usage entry")
	}
	if code.DurationSecs != 60 {
		t.Errorf("expected 60s of contiguous Code duration, got %v", code.DurationSecs)
	}
	if code.EventCount != 2 {
		t.Errorf("expected 2 Code events, got %d", code.EventCount)
	}
}

func TestTimeline_MergesEventsAndFramesNewestFirst(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if err := db.InsertEvent(ctx, models.ContextEvent{EventID: "e1", EventType: models.EventIdle, AppName: "Code", Timestamp: now}); err != nil {
		t.Fatalf("InsertEvent failed: %v", err)
	}
	if err := db.InsertFrame(ctx, models.ProcessedFrame{FrameID: "f1", AppName: "Slack", Timestamp: now.Add(time.Minute), ImagePayloadKind: models.PayloadNone}, nil); err != nil {
		t.Fatalf("InsertFrame failed: %v", err)
	}

	items, err := db.Timeline(ctx, TimeRange{}, 10)
	if err != nil {
		t.Fatalf("Timeline failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 timeline items, got %d", len(items))
	}
	if items[0].Kind != "frame" || items[0].ID != "f1" {
		t.Errorf("expected the frame (newer) first, got %+v", items[0])
	}
}

func TestHeatmap_CountsEventsPerDay(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if err := db.InsertEvents(ctx, []models.ContextEvent{
		{EventID: "e1", EventType: models.EventIdle, Timestamp: now},
		{EventID: "e2", EventType: models.EventIdle, Timestamp: now.Add(time.Minute)},
	}); err != nil {
		t.Fatalf("InsertEvents failed: %v", err)
	}

	heatmap, err := db.Heatmap(ctx, 7)
	if err != nil {
		t.Fatalf("Heatmap failed: %v", err)
	}
	day := now.Format("2006-01-02")
	if heatmap[day] != 2 {
		t.Errorf("expected 2 events on %s, got %d", day, heatmap[day])
	}
}
