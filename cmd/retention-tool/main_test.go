package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/vthunder/bud2/internal/models"
	"github.com/vthunder/bud2/internal/storage"
)

func TestParseKinds(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"all", nil},
		{"events", []string{"events"}},
		{"events,frames", []string{"events", "frames"}},
	}
	for _, c := range cases {
		got := parseKinds(c.in)
		if len(got) != len(c.want) {
			t.Errorf("parseKinds(%q) = %v, want %v", c.in, got, c.want)
			continue
		}
		for i := range got {
			if got[i] != c.want[i] {
				t.Errorf("parseKinds(%q) = %v, want %v", c.in, got, c.want)
			}
		}
	}
}

func TestRetentionPreview_ViaPureDriver_CountsWithoutDeleting(t *testing.T) {
	dir := t.TempDir()
	db, err := storage.OpenPure(filepath.Join(dir, "bud.db"), filepath.Join(dir, "artifacts"),
		storage.RetentionPolicy{RetentionDays: 1, MaxStorageMB: 500})
	if err != nil {
		t.Fatalf("OpenPure failed: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	old := time.Now().UTC().Add(-48 * time.Hour)
	if err := db.InsertEvent(ctx, models.ContextEvent{EventID: "old", EventType: models.EventWindowFocus, Timestamp: old}); err != nil {
		t.Fatalf("InsertEvent: %v", err)
	}

	counts, err := db.RetentionPreview(ctx, time.Now().UTC(), parseKinds("events"))
	if err != nil {
		t.Fatalf("RetentionPreview: %v", err)
	}
	if counts.EventsDeleted != 1 {
		t.Errorf("expected preview to count 1 stale event, got %d", counts.EventsDeleted)
	}

	all, _, err := db.QueryEvents(ctx, storage.TimeRange{}, storage.EventFilter{}, storage.Page{})
	if err != nil {
		t.Fatalf("QueryEvents: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("expected preview to leave the row in place, found %d rows", len(all))
	}
}
