// Command retention-tool runs the retention sweep and VACUUM out of band
// from the running agent, through the pure-Go modernc.org/sqlite driver so
// it never needs cgo. Grounded on the teacher's standalone cmd/cleanup-traces
// tool: open the database directly, report what it finds, and exit.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/vthunder/bud2/internal/logging"
	"github.com/vthunder/bud2/internal/storage"
)

func main() {
	os.Exit(run())
}

// parseKinds splits the -kind flag into the table-name subset RetentionPreview
// understands; "" or "all" means every table (nil, by RetentionPreview's own
// convention).
func parseKinds(kind string) []string {
	if kind == "" || kind == "all" {
		return nil
	}
	return strings.Split(kind, ",")
}

func run() int {
	stateDir := flag.String("state", "state", "state directory containing bud.db")
	retentionDays := flag.Int("retention-days", 30, "retention policy age bound")
	maxStorageMB := flag.Int("max-storage-mb", 500, "retention policy size bound")
	dryRun := flag.Bool("dry-run", false, "report what would be deleted without deleting anything")
	kind := flag.String("kind", "all", "comma-separated subset to sweep: events,frames,metrics,process_snapshots,idle_periods,all")
	flag.Parse()

	kinds := parseKinds(*kind)

	dbPath := filepath.Join(*stateDir, "bud.db")
	artifactDir := filepath.Join(*stateDir, "artifacts")
	policy := storage.RetentionPolicy{RetentionDays: *retentionDays, MaxStorageMB: *maxStorageMB}

	db, err := storage.OpenPure(dbPath, artifactDir, policy)
	if err != nil {
		logging.Error("retention-tool", "open failed", logging.F("path", dbPath), logging.F("err", err))
		return 1
	}
	defer db.Close()

	ctx := context.Background()
	now := time.Now().UTC()

	if *dryRun {
		counts, err := db.RetentionPreview(ctx, now, kinds)
		if err != nil {
			logging.Error("retention-tool", "preview failed", logging.F("err", err))
			return 1
		}
		fmt.Printf("dry run: would delete %d events, %d frames, %d metrics, %d process snapshots, %d idle periods\n",
			counts.EventsDeleted, counts.FramesDeleted, counts.MetricsDeleted,
			counts.ProcessSnapshotsDeleted, counts.IdlePeriodsDeleted)
		return 0
	}

	if len(kinds) > 0 {
		logging.Warn("retention-tool", "per-kind filtering only applies to -dry-run; a live sweep always covers every table")
	}

	counts, err := db.RetentionSweep(ctx, now)
	if err != nil {
		logging.Error("retention-tool", "sweep failed", logging.F("err", err))
		return 1
	}

	size, _ := os.Stat(dbPath)
	var sizeStr string
	if size != nil {
		sizeStr = humanize.Bytes(uint64(size.Size()))
	}
	fmt.Printf("deleted %d events, %d frames, %d metrics, %d process snapshots, %d idle periods (db now %s)\n",
		counts.EventsDeleted, counts.FramesDeleted, counts.MetricsDeleted,
		counts.ProcessSnapshotsDeleted, counts.IdlePeriodsDeleted, sizeStr)
	return 0
}
