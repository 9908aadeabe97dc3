package storage

import (
	"context"
	"testing"
	"time"

	"github.com/vthunder/bud2/internal/models"
)

func TestExecutionPolicy_RoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	p := models.ExecutionPolicy{
		ID:                 "p1",
		ProcessName:        "terminal",
		AllowedArgPatterns: []string{"ls *", "cd *"},
		RequiresSudo:       false,
		AuditLevel:         models.AuditDetailed,
		SandboxProfile:     models.SandboxStandard,
	}
	if err := db.UpsertExecutionPolicy(ctx, p); err != nil {
		t.Fatalf("UpsertExecutionPolicy failed: %v", err)
	}

	got, err := db.GetExecutionPolicy(ctx, "p1")
	if err != nil {
		t.Fatalf("GetExecutionPolicy failed: %v", err)
	}
	if got == nil || len(got.AllowedArgPatterns) != 2 || got.AuditLevel != models.AuditDetailed {
		t.Fatalf("unexpected policy round trip: %+v", got)
	}

	list, err := db.ListExecutionPolicies(ctx)
	if err != nil {
		t.Fatalf("ListExecutionPolicies failed: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 policy, got %d", len(list))
	}

	if err := db.DeleteExecutionPolicy(ctx, "p1"); err != nil {
		t.Fatalf("DeleteExecutionPolicy failed: %v", err)
	}
	got, err = db.GetExecutionPolicy(ctx, "p1")
	if err != nil {
		t.Fatalf("GetExecutionPolicy after delete failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil after delete, got %+v", got)
	}
}

func TestAuditLog_QueryByRangeAndSession(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	entries := []models.AuditEntry{
		{EntryID: "a1", Timestamp: now, SessionID: "s1", ActionType: "launch_app", Status: "success"},
		{EntryID: "a2", Timestamp: now.Add(time.Minute), SessionID: "s2", ActionType: "close_app", Status: "success"},
	}
	for _, e := range entries {
		if err := db.InsertAuditEntry(ctx, e); err != nil {
			t.Fatalf("InsertAuditEntry failed: %v", err)
		}
	}

	got, page, err := db.QueryAuditLog(ctx, TimeRange{}, "s1", Page{Limit: 10})
	if err != nil {
		t.Fatalf("QueryAuditLog failed: %v", err)
	}
	if page.Total != 1 || len(got) != 1 || got[0].EntryID != "a1" {
		t.Fatalf("expected session-filtered result of 1 entry, got %+v", got)
	}
}

func TestWorkflowPreset_RoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	preset := models.WorkflowPreset{
		ID:       "wp1",
		Name:     "Morning standup",
		Category: models.PresetWorkflow,
		Steps: []models.PresetStep{
			{Intent: "open_calendar", DelayMs: 0},
			{Intent: "open_notes", DelayMs: 500, StopOnFailure: true},
		},
		Builtin: true,
	}
	if err := db.UpsertWorkflowPreset(ctx, preset); err != nil {
		t.Fatalf("UpsertWorkflowPreset failed: %v", err)
	}

	list, err := db.ListWorkflowPresets(ctx, models.PresetWorkflow)
	if err != nil {
		t.Fatalf("ListWorkflowPresets failed: %v", err)
	}
	if len(list) != 1 || len(list[0].Steps) != 2 {
		t.Fatalf("expected 1 preset with 2 steps, got %+v", list)
	}

	other, err := db.ListWorkflowPresets(ctx, models.PresetProductivity)
	if err != nil {
		t.Fatalf("ListWorkflowPresets (other category) failed: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("expected no presets in an unrelated category, got %d", len(other))
	}

	if err := db.DeleteWorkflowPreset(ctx, "wp1"); err != nil {
		t.Fatalf("DeleteWorkflowPreset failed: %v", err)
	}
	list, err = db.ListWorkflowPresets(ctx, "")
	if err != nil {
		t.Fatalf("ListWorkflowPresets after delete failed: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("expected no presets after delete, got %d", len(list))
	}
}
