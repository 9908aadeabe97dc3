package monitors

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vthunder/bud2/internal/clock"
	"github.com/vthunder/bud2/internal/models"
)

type fakeWindowProvider struct {
	win *models.WindowInfo
	err error
}

func (f fakeWindowProvider) ForegroundWindow(ctx context.Context) (*models.WindowInfo, error) {
	return f.win, f.err
}

func TestProcessMonitor_NoWindowProviderYieldsNilWindow(t *testing.T) {
	c := clock.NewFrozen(time.Now())
	m := NewProcessMonitor(c, NoWindowProvider{}, 5)

	win, snap := m.Sample(context.Background())
	if win != nil {
		t.Fatalf("expected nil window with NoWindowProvider, got %+v", win)
	}
	if snap.Timestamp.IsZero() {
		t.Error("expected snapshot timestamp to be set")
	}
}

func TestProcessMonitor_UsesProvidedWindow(t *testing.T) {
	c := clock.NewFrozen(time.Now())
	want := &models.WindowInfo{WindowID: "1", Title: "editor", AppName: "code", IsFocused: true}
	m := NewProcessMonitor(c, fakeWindowProvider{win: want}, 5)

	win, _ := m.Sample(context.Background())
	if win == nil || win.AppName != "code" {
		t.Fatalf("expected window %+v, got %+v", want, win)
	}
}

func TestProcessMonitor_WindowProviderErrorLeavesWindowNil(t *testing.T) {
	c := clock.NewFrozen(time.Now())
	m := NewProcessMonitor(c, fakeWindowProvider{err: errors.New("boom")}, 5)

	win, _ := m.Sample(context.Background())
	if win != nil {
		t.Fatalf("expected nil window on provider error, got %+v", win)
	}
}

func TestProcessMonitor_TopNTruncation(t *testing.T) {
	c := clock.NewFrozen(time.Now())
	m := NewProcessMonitor(c, NoWindowProvider{}, 3)

	_, snap := m.Sample(context.Background())
	if len(snap.Processes) > 3 {
		t.Errorf("expected at most 3 processes, got %d", len(snap.Processes))
	}
}

func TestProcessMonitor_DefaultsTopN(t *testing.T) {
	c := clock.NewFrozen(time.Now())
	m := NewProcessMonitor(c, NoWindowProvider{}, 0)
	if m.topN != 20 {
		t.Errorf("expected default topN of 20, got %d", m.topN)
	}
}

func TestProcessScore_OrdersByCombinedCPUAndMemory(t *testing.T) {
	low := models.ProcessRecord{CPUPercent: 1, MemoryBytes: 0}
	high := models.ProcessRecord{CPUPercent: 50, MemoryBytes: 1024 * 1024 * 1024}
	if processScore(high) <= processScore(low) {
		t.Errorf("expected high score (%v) > low score (%v)", processScore(high), processScore(low))
	}
}
