package monitors

import (
	"context"
	"errors"
	"sort"

	gopsprocess "github.com/shirou/gopsutil/v3/process"

	"github.com/vthunder/bud2/internal/clock"
	"github.com/vthunder/bud2/internal/logging"
	"github.com/vthunder/bud2/internal/models"
)

// ForegroundWindowProvider is the platform collaborator that identifies the
// currently focused window. Implementations are platform-specific (X11/Win32/
// Cocoa) and live outside this package; ProcessMonitor only depends on the
// interface, matching the spec's "cooperating with platform-specific
// collaborators" language (§4.2).
type ForegroundWindowProvider interface {
	ForegroundWindow(ctx context.Context) (*models.WindowInfo, error)
}

// ProcessMonitor enumerates processes and identifies the foreground window,
// grounded on the teacher's budget/cpuwatcher.go process-enumeration and
// per-process CPU sampling technique, generalized from a Claude-specific
// process filter to a top-N-by-score ranking over every process.
type ProcessMonitor struct {
	clock  clock.Clock
	window ForegroundWindowProvider
	topN   int
}

// NewProcessMonitor constructs a monitor reporting at most topN processes per
// tick, ranked by a combined CPU+memory score. window may be nil on
// platforms with no foreground-window collaborator wired yet; in that case
// WindowInfo is always nil, matching the "if enumeration fails... still
// reports the window info if available" independence the spec requires.
func NewProcessMonitor(c clock.Clock, window ForegroundWindowProvider, topN int) *ProcessMonitor {
	if topN <= 0 {
		topN = 20
	}
	return &ProcessMonitor{clock: c, window: window, topN: topN}
}

// Sample returns the foreground window (nil if unavailable) and the top-N
// process snapshot. Process enumeration failure yields an empty process
// list but never suppresses the window result.
func (m *ProcessMonitor) Sample(ctx context.Context) (*models.WindowInfo, models.ProcessSnapshot) {
	now := m.clock.Now().UTC()
	snap := models.ProcessSnapshot{Timestamp: now}

	var win *models.WindowInfo
	if m.window != nil {
		w, err := m.window.ForegroundWindow(ctx)
		if err != nil && !errors.Is(err, ErrNoWindowProvider) {
			logging.Warn("monitors", "foreground window lookup failed", logging.F("err", err))
		} else {
			win = w
		}
	}

	procs, err := gopsprocess.ProcessesWithContext(ctx)
	if err != nil {
		logging.Warn("monitors", "process enumeration failed", logging.F("err", err))
		return win, snap
	}

	records := make([]models.ProcessRecord, 0, len(procs))
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil {
			continue
		}
		cpuPct, err := p.CPUPercentWithContext(ctx)
		if err != nil {
			cpuPct = 0
		}
		memInfo, err := p.MemoryInfoWithContext(ctx)
		var memBytes uint64
		if err == nil && memInfo != nil {
			memBytes = memInfo.RSS
		}
		records = append(records, models.ProcessRecord{
			PID:         p.Pid,
			Name:        name,
			CPUPercent:  cpuPct,
			MemoryBytes: memBytes,
		})
	}

	sort.Slice(records, func(i, j int) bool {
		return processScore(records[i]) > processScore(records[j])
	})
	if len(records) > m.topN {
		records = records[:m.topN]
	}
	snap.Processes = records
	return win, snap
}

// processScore combines CPU and normalized memory share into one ranking
// value; memory is divided down to a comparable magnitude to CPU percent
// rather than let a large RSS always dominate a brief CPU spike.
func processScore(r models.ProcessRecord) float64 {
	const memoryMBDivisor = 1024 * 1024
	return r.CPUPercent + float64(r.MemoryBytes)/memoryMBDivisor/100
}
