package monitors

import (
	"context"
	"testing"
	"time"

	"github.com/vthunder/bud2/internal/clock"
)

func TestSystemMetricsMonitor_FirstSampleYieldsZeroRates(t *testing.T) {
	c := clock.NewFrozen(time.Now())
	m := NewSystemMetricsMonitor(c, "/", "")

	snap := m.Sample(context.Background())
	if snap.DiskReadBytesPerS != 0 || snap.DiskWriteBytesPerS != 0 {
		t.Errorf("expected zero disk rates on first sample, got read=%v write=%v", snap.DiskReadBytesPerS, snap.DiskWriteBytesPerS)
	}
	if snap.NetUpBytesPerS != 0 || snap.NetDownBytesPerS != 0 {
		t.Errorf("expected zero net rates on first sample, got up=%v down=%v", snap.NetUpBytesPerS, snap.NetDownBytesPerS)
	}
	if snap.Timestamp.IsZero() {
		t.Error("expected timestamp to be set")
	}
}

func TestSystemMetricsMonitor_SecondSampleMarksHasPrev(t *testing.T) {
	c := clock.NewFrozen(time.Now())
	m := NewSystemMetricsMonitor(c, "/", "")

	m.Sample(context.Background())
	if !m.hasPrev {
		t.Fatal("expected hasPrev to be true after first sample")
	}

	c.Advance(5 * time.Second)
	snap := m.Sample(context.Background())
	if snap.Timestamp.Sub(m.prevTime.Add(-5*time.Second)) < 0 {
		t.Error("expected second sample timestamp to reflect clock advance")
	}
}

func TestSystemMetricsMonitor_DefaultsDiskPath(t *testing.T) {
	c := clock.NewFrozen(time.Now())
	m := NewSystemMetricsMonitor(c, "", "")
	if m.diskPath != "/" {
		t.Errorf("expected default disk path '/', got %q", m.diskPath)
	}
}

func TestClampPercent(t *testing.T) {
	cases := []struct {
		in, want float64
	}{
		{-5, 0},
		{0, 0},
		{50, 50},
		{100, 100},
		{150, 100},
	}
	for _, c := range cases {
		if got := clampPercent(c.in); got != c.want {
			t.Errorf("clampPercent(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestRate_TreatsCounterResetAsZero(t *testing.T) {
	if r := rate(5, 100, time.Second); r != 0 {
		t.Errorf("expected 0 on counter reset, got %v", r)
	}
}

func TestRate_ComputesPerSecondDelta(t *testing.T) {
	r := rate(300, 100, 2*time.Second)
	if r != 100 {
		t.Errorf("expected rate 100, got %v", r)
	}
}
