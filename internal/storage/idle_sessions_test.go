package storage

import (
	"context"
	"testing"
	"time"

	"github.com/vthunder/bud2/internal/models"
)

func TestIdlePeriod_OpenCloseLifecycle(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	has, err := db.HasOpenIdle(ctx)
	if err != nil {
		t.Fatalf("HasOpenIdle failed: %v", err)
	}
	if has {
		t.Fatal("expected no open idle period initially")
	}

	if _, err := db.OpenIdle(ctx, now); err != nil {
		t.Fatalf("OpenIdle failed: %v", err)
	}
	has, err = db.HasOpenIdle(ctx)
	if err != nil {
		t.Fatalf("HasOpenIdle failed: %v", err)
	}
	if !has {
		t.Fatal("expected an open idle period after OpenIdle")
	}

	if err := db.CloseIdle(ctx, now.Add(5*time.Minute)); err != nil {
		t.Fatalf("CloseIdle failed: %v", err)
	}
	has, err = db.HasOpenIdle(ctx)
	if err != nil {
		t.Fatalf("HasOpenIdle failed: %v", err)
	}
	if has {
		t.Fatal("expected no open idle period after CloseIdle")
	}
}

func TestCloseIdle_NoOpWhenNoneOpen(t *testing.T) {
	db := openTestDB(t)
	if err := db.CloseIdle(context.Background(), time.Now()); err != nil {
		t.Fatalf("CloseIdle should be a no-op with nothing open, got error: %v", err)
	}
}

func TestSession_OpenCloseRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	s := models.Session{SessionID: "sess1", StartedAt: now}
	if err := db.OpenSession(ctx, s); err != nil {
		t.Fatalf("OpenSession failed: %v", err)
	}

	got, err := db.GetSession(ctx, "sess1")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got == nil || got.EndedAt != nil {
		t.Fatalf("expected open session with nil EndedAt, got %+v", got)
	}

	s.Close(now.Add(time.Hour))
	s.TotalEvents = 42
	if err := db.CloseSession(ctx, s); err != nil {
		t.Fatalf("CloseSession failed: %v", err)
	}

	got, err = db.GetSession(ctx, "sess1")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got == nil || got.EndedAt == nil || got.TotalEvents != 42 || got.ActiveDurationSecs == nil {
		t.Fatalf("expected closed session with counters populated, got %+v", got)
	}
}
