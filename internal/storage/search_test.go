package storage

import (
	"context"
	"testing"
	"time"

	"github.com/vthunder/bud2/internal/models"
)

func TestSearch_RanksAppNameAboveTitleAboveOCR(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	base := time.Now().UTC().Add(-time.Hour)

	frames := []models.ProcessedFrame{
		{FrameID: "ocr-hit", Timestamp: base, AppName: "Finder", WindowTitle: "Downloads", OCRText: "budget spreadsheet", ImagePayloadKind: models.PayloadNone},
		{FrameID: "title-hit", Timestamp: base.Add(time.Minute), AppName: "Preview", WindowTitle: "budget.pdf", ImagePayloadKind: models.PayloadNone},
		{FrameID: "app-hit", Timestamp: base.Add(2 * time.Minute), AppName: "budget", WindowTitle: "Home", ImagePayloadKind: models.PayloadNone},
	}
	for _, f := range frames {
		if err := db.InsertFrame(ctx, f, nil); err != nil {
			t.Fatalf("InsertFrame(%s) failed: %v", f.FrameID, err)
		}
	}

	results, page, err := db.Search(ctx, "budget", SearchFrames, nil, Page{Limit: 10})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if page.Total != 3 || len(results) != 3 {
		t.Fatalf("expected 3 hits, got %d (%d)", len(results), page.Total)
	}
	if results[0].ID != "app-hit" {
		t.Errorf("expected app_name match to rank first, got %s", results[0].ID)
	}
	if results[1].ID != "title-hit" {
		t.Errorf("expected window_title match to rank second, got %s", results[1].ID)
	}
	if results[2].ID != "ocr-hit" {
		t.Errorf("expected ocr_text match to rank third, got %s", results[2].ID)
	}
}

func TestSearch_TiesBrokenByNewerTimestamp(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	base := time.Now().UTC().Add(-time.Hour)

	frames := []models.ProcessedFrame{
		{FrameID: "older", Timestamp: base, AppName: "notes", ImagePayloadKind: models.PayloadNone},
		{FrameID: "newer", Timestamp: base.Add(time.Minute), AppName: "notes", ImagePayloadKind: models.PayloadNone},
	}
	for _, f := range frames {
		if err := db.InsertFrame(ctx, f, nil); err != nil {
			t.Fatalf("InsertFrame failed: %v", err)
		}
	}

	results, _, err := db.Search(ctx, "notes", SearchFrames, nil, Page{Limit: 10})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ID != "newer" {
		t.Errorf("expected newer timestamp to win the tie, got %s first", results[0].ID)
	}
}

func TestSearch_EmptyQueryReturnsNoResults(t *testing.T) {
	db := openTestDB(t)
	results, page, err := db.Search(context.Background(), "   ", SearchAll, nil, Page{Limit: 10})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 0 || page.Total != 0 {
		t.Errorf("expected empty search to return no results, got %d", len(results))
	}
}

func TestTokenize_Lowercases(t *testing.T) {
	tokens := tokenize("Budget Report")
	if len(tokens) == 0 {
		t.Fatal("expected at least one token")
	}
	for _, tok := range tokens {
		if tok != toLowerASCII(tok) {
			t.Errorf("expected token %q to be lowercased", tok)
		}
	}
}

func toLowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
