package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/vthunder/bud2/internal/models"
)

// AggregateAppUsage rebuilds per-app usage for one UTC date from the event
// log on every call. Not a source of truth; nothing is cached or stored.
func (d *DB) AggregateAppUsage(ctx context.Context, date string) ([]models.AppUsage, error) {
	dayStart, err := time.Parse("2006-01-02", date)
	if err != nil {
		return nil, fmt.Errorf("aggregate_app_usage: parse date: %w", err)
	}
	dayEnd := dayStart.Add(24 * time.Hour)

	rows, err := d.sql.QueryContext(ctx, `SELECT app_name, timestamp FROM events
		WHERE timestamp >= ? AND timestamp < ? AND app_name IS NOT NULL AND app_name != ''
		ORDER BY timestamp ASC`, dayStart.UTC(), dayEnd.UTC())
	if err != nil {
		return nil, fmt.Errorf("aggregate_app_usage: query events: %w", err)
	}
	defer rows.Close()

	type appState struct {
		duration float64
		events   int64
	}
	byApp := map[string]*appState{}
	var prevApp string
	var prevTs time.Time
	hasPrev := false

	for rows.Next() {
		var app string
		var ts time.Time
		if err := rows.Scan(&app, &ts); err != nil {
			return nil, err
		}
		st, ok := byApp[app]
		if !ok {
			st = &appState{}
			byApp[app] = st
		}
		st.events++
		if hasPrev && prevApp == app {
			st.duration += ts.Sub(prevTs).Seconds()
		}
		prevApp = app
		prevTs = ts
		hasPrev = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	frameCounts, err := d.frameCountsByApp(ctx, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}

	var out []models.AppUsage
	for app, st := range byApp {
		out = append(out, models.AppUsage{
			Date:         date,
			AppName:      app,
			DurationSecs: st.duration,
			EventCount:   st.events,
			FrameCount:   frameCounts[app],
		})
	}
	return out, nil
}

func (d *DB) frameCountsByApp(ctx context.Context, from, to time.Time) (map[string]int64, error) {
	rows, err := d.sql.QueryContext(ctx, `SELECT app_name, COUNT(*) FROM frames
		WHERE timestamp >= ? AND timestamp < ? GROUP BY app_name`, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int64{}
	for rows.Next() {
		var app string
		var n int64
		if err := rows.Scan(&app, &n); err != nil {
			return nil, err
		}
		out[app] = n
	}
	return out, rows.Err()
}

// Heatmap returns per-day event counts for the last `days` days, keyed by
// "YYYY-MM-DD" date (a map, so unordered), for dashboard activity-heatmap
// rendering.
func (d *DB) Heatmap(ctx context.Context, days int) (map[string]int64, error) {
	if days <= 0 {
		days = 30
	}
	since := time.Now().UTC().AddDate(0, 0, -days)
	rows, err := d.sql.QueryContext(ctx, `SELECT date(timestamp) as d, COUNT(*) FROM events
		WHERE timestamp >= ? GROUP BY d ORDER BY d`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int64{}
	for rows.Next() {
		var day string
		var n int64
		if err := rows.Scan(&day, &n); err != nil {
			return nil, err
		}
		out[day] = n
	}
	return out, rows.Err()
}

// TimelineItem is one entry in a chronological mixed event/frame timeline.
type TimelineItem struct {
	Kind      string    `json:"kind"` // "event" | "frame"
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	AppName   string    `json:"app_name"`
}

// Timeline returns events and frames in range merged and capped at `limit`
// entries, newest first.
func (d *DB) Timeline(ctx context.Context, r TimeRange, limit int) ([]TimelineItem, error) {
	if limit <= 0 || limit > 5000 {
		limit = 500
	}
	events, _, err := d.QueryEvents(ctx, r, EventFilter{}, Page{Limit: limit})
	if err != nil {
		return nil, err
	}
	frames, _, err := d.QueryFrames(ctx, r, FrameFilter{}, Page{Limit: limit})
	if err != nil {
		return nil, err
	}
	items := make([]TimelineItem, 0, len(events)+len(frames))
	for _, e := range events {
		items = append(items, TimelineItem{Kind: "event", ID: e.EventID, Timestamp: e.Timestamp, AppName: e.AppName})
	}
	for _, f := range frames {
		items = append(items, TimelineItem{Kind: "frame", ID: f.FrameID, Timestamp: f.Timestamp, AppName: f.AppName})
	}
	for i := 1; i < len(items); i++ {
		j := i
		for j > 0 && items[j].Timestamp.After(items[j-1].Timestamp) {
			items[j], items[j-1] = items[j-1], items[j]
			j--
		}
	}
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// HourlyMetrics returns the average cpu_pct and memory used for each of the
// last `hours` hourly buckets, oldest first.
func (d *DB) HourlyMetrics(ctx context.Context, hours int) ([]models.SystemMetricsSnapshot, error) {
	if hours <= 0 {
		hours = 24
	}
	since := time.Now().UTC().Add(-time.Duration(hours) * time.Hour)
	rows, err := d.sql.QueryContext(ctx, `SELECT strftime('%Y-%m-%d %H:00:00', timestamp) as bucket,
		AVG(cpu_pct), AVG(mem_used), AVG(mem_total), AVG(mem_available)
		FROM metrics WHERE timestamp >= ? GROUP BY bucket ORDER BY bucket`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.SystemMetricsSnapshot
	for rows.Next() {
		var bucket string
		var m models.SystemMetricsSnapshot
		var memUsed, memTotal, memAvail float64
		if err := rows.Scan(&bucket, &m.CPUUsagePercent, &memUsed, &memTotal, &memAvail); err != nil {
			return nil, err
		}
		ts, err := time.Parse("2006-01-02 15:04:05", bucket)
		if err != nil {
			return nil, err
		}
		m.Timestamp = ts.UTC()
		m.MemoryUsedBytes = uint64(memUsed)
		m.MemoryTotalBytes = uint64(memTotal)
		m.MemoryAvailBytes = uint64(memAvail)
		out = append(out, m)
	}
	return out, rows.Err()
}
