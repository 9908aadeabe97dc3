package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tsawler/prose/v3"
)

// SearchKind narrows a search to frames, events, or both.
type SearchKind string

const (
	SearchAll    SearchKind = "all"
	SearchFrames SearchKind = "frames"
	SearchEvents SearchKind = "events"
)

// fieldRank orders matched fields: app_name beats window_title beats ocr_text.
const (
	rankApp = iota
	rankTitle
	rankOCR
)

// SearchResult is one ranked hit returned by Search.
type SearchResult struct {
	Kind        string    `json:"kind"` // "frame" | "event"
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	MatchedText string    `json:"matched_text"`
	rank        int
}

// tokenize splits a query into lowercase search tokens using the prose
// tokenizer, falling back to simple whitespace splitting if prose returns an
// error or no tokens. A blank query yields no tokens at all.
func tokenize(q string) []string {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil
	}
	doc, err := prose.NewDocument(q, prose.WithExtraction(false), prose.WithTagging(false))
	if err != nil {
		return strings.Fields(strings.ToLower(q))
	}
	var tokens []string
	for _, tok := range doc.Tokens() {
		t := strings.ToLower(strings.TrimSpace(tok.Text))
		if t != "" {
			tokens = append(tokens, t)
		}
	}
	if len(tokens) == 0 {
		return strings.Fields(strings.ToLower(q))
	}
	return tokens
}

// Search performs substring and tokenized search over app_name, window_title,
// and ocr_text, ranking exact app_name matches above window_title above
// ocr_text, ties broken by newer timestamp first.
func (d *DB) Search(ctx context.Context, query string, kind SearchKind, tagIDs []int64, page Page) ([]SearchResult, Pagination, error) {
	page = page.normalized()
	tokens := tokenize(query)
	if len(tokens) == 0 {
		return nil, makePagination(0, page.Offset, page.Limit), nil
	}

	var results []SearchResult
	if kind == SearchAll || kind == SearchFrames {
		frameHits, err := d.searchFrames(ctx, tokens, tagIDs)
		if err != nil {
			return nil, Pagination{}, err
		}
		results = append(results, frameHits...)
	}
	if kind == SearchAll || kind == SearchEvents {
		eventHits, err := d.searchEvents(ctx, tokens)
		if err != nil {
			return nil, Pagination{}, err
		}
		results = append(results, eventHits...)
	}

	sortResults(results)

	total := len(results)
	start := page.Offset
	if start > total {
		start = total
	}
	end := start + page.Limit
	if end > total {
		end = total
	}
	return results[start:end], makePagination(total, page.Offset, page.Limit), nil
}

func sortResults(results []SearchResult) {
	// Insertion sort: rank ascending, then timestamp descending. Result sets
	// from a single search are small (bounded by in-memory candidate scan),
	// so O(n^2) is acceptable and keeps the comparator simple to audit.
	for i := 1; i < len(results); i++ {
		j := i
		for j > 0 && less(results[j], results[j-1]) {
			results[j], results[j-1] = results[j-1], results[j]
			j--
		}
	}
}

func less(a, b SearchResult) bool {
	if a.rank != b.rank {
		return a.rank < b.rank
	}
	return a.Timestamp.After(b.Timestamp)
}

func (d *DB) searchFrames(ctx context.Context, tokens []string, tagIDs []int64) ([]SearchResult, error) {
	where, args, join := buildFrameWhere(TimeRange{}, FrameFilter{TagIDs: tagIDs})
	query := "SELECT f.frame_id, f.timestamp, f.app_name, f.window_title, f.ocr_text FROM frames f" + join + where
	rows, err := d.sql.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search frames: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var id, app, title, ocr string
		var ts time.Time
		if err := rows.Scan(&id, &ts, &app, &title, &ocr); err != nil {
			return nil, err
		}
		if rank, text, ok := matchFields(tokens, app, title, ocr); ok {
			out = append(out, SearchResult{Kind: "frame", ID: id, Timestamp: ts, MatchedText: text, rank: rank})
		}
	}
	return out, rows.Err()
}

func (d *DB) searchEvents(ctx context.Context, tokens []string) ([]SearchResult, error) {
	rows, err := d.sql.QueryContext(ctx, `SELECT event_id, timestamp, app_name, window_title FROM events`)
	if err != nil {
		return nil, fmt.Errorf("search events: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var id, app, title string
		var ts time.Time
		if err := rows.Scan(&id, &ts, &app, &title); err != nil {
			return nil, err
		}
		if rank, text, ok := matchFields(tokens, app, title, ""); ok {
			out = append(out, SearchResult{Kind: "event", ID: id, Timestamp: ts, MatchedText: text, rank: rank})
		}
	}
	return out, rows.Err()
}

// matchFields checks app/title/ocr in rank order and returns the first
// field any token matches, with its normalized 160-char excerpt.
func matchFields(tokens []string, app, title, ocr string) (int, string, bool) {
	if anyTokenIn(tokens, app) {
		return rankApp, excerpt(app), true
	}
	if anyTokenIn(tokens, title) {
		return rankTitle, excerpt(title), true
	}
	if ocr != "" && anyTokenIn(tokens, ocr) {
		return rankOCR, excerpt(ocr), true
	}
	return 0, "", false
}

func anyTokenIn(tokens []string, field string) bool {
	if field == "" {
		return false
	}
	lower := strings.ToLower(field)
	for _, t := range tokens {
		if strings.Contains(lower, t) {
			return true
		}
	}
	return false
}

func excerpt(field string) string {
	normalized := strings.Join(strings.Fields(field), " ")
	if len(normalized) <= 160 {
		return normalized
	}
	return normalized[:160]
}
