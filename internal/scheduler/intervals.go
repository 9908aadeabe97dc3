package scheduler

import "time"

// Intervals holds the tick period for each of the nine loops (§4.6). All
// but shutdown_watch (signal-driven) and capture (event-driven, see
// minCaptureGap) run on a plain ticker at their configured interval.
type Intervals struct {
	Monitor           time.Duration
	Capture           time.Duration
	MetricsPersist    time.Duration
	ProcessesPersist  time.Duration
	Retention         time.Duration
	Analyzer          time.Duration
	Heartbeat         time.Duration
	BatchDrain        time.Duration
	GracefulShutdown  time.Duration
}

// DefaultIntervals returns the documented defaults.
func DefaultIntervals() Intervals {
	return Intervals{
		Monitor:          1000 * time.Millisecond,
		Capture:          200 * time.Millisecond,
		MetricsPersist:   5000 * time.Millisecond,
		ProcessesPersist: 10000 * time.Millisecond,
		Retention:        3600000 * time.Millisecond,
		Analyzer:         30000 * time.Millisecond,
		Heartbeat:        15000 * time.Millisecond,
		BatchDrain:       10000 * time.Millisecond,
		GracefulShutdown: 10 * time.Second,
	}
}

// minCaptureGap bounds how often the event-driven capture loop may run back
// to back when a burst of events arrives faster than its own ticker.
const minCaptureGap = 50 * time.Millisecond

// unhealthyAfterTicks is how many consecutive blacked-out monitor ticks
// (no window info and no process records) mark the monitor loop unhealthy
// for the heartbeat to report (§7 "Monitor" error kind).
const unhealthyAfterTicks = 10
