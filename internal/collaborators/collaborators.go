// Package collaborators defines the contracts between the core and the
// external systems that sit outside it: the desktop notification shell, a
// network batch uploader, and an inbound remote-suggestion stream. The core
// never implements these beyond a safe no-op default; a dashboard, tray
// icon, or sync service binds its own implementation at startup.
package collaborators

import (
	"context"

	"github.com/vthunder/bud2/internal/models"
)

// DesktopNotifier is fire-and-forget: the scheduler's heartbeat loop invokes
// Heartbeat and logs any error at the boundary, so a notifier failure never
// interrupts a core loop. No core loop calls Notify; new suggestions are
// only written to storage.
type DesktopNotifier interface {
	Notify(ctx context.Context, suggestion models.LocalSuggestion) error
	Heartbeat(ctx context.Context, healthy bool) error
}

// UploadItem is one element of what BatchUploader.Drain returns: events and
// frame metadata in insertion order, each item tagged with its own kind so
// MarkUploaded can acknowledge a mixed batch by id.
type UploadItem struct {
	Kind string // "event" or "frame"
	ID   string
}

// BatchUploader is pull-based: the scheduler's batch_drain loop calls Drain
// for up to maxN unsent items, hands them to the network collaborator, and
// on confirmation calls MarkUploaded. The core never retries internally —
// an upload failure is logged and the same items are offered again on the
// next drain.
type BatchUploader interface {
	Drain(ctx context.Context, maxN int) ([]UploadItem, error)
	MarkUploaded(ctx context.Context, items []UploadItem) error
}

// SuggestionStream is push-based: a remote source of already-parsed
// suggestion payloads, stored under a source="remote" discriminator
// alongside the analyzer's own local suggestions. The core does not parse
// or validate payload contents beyond what models.LocalSuggestion requires.
type SuggestionStream interface {
	Next(ctx context.Context) (*models.LocalSuggestion, error)
}

// NoOpNotifier is the default DesktopNotifier when no desktop shell is
// wired in: every call succeeds without doing anything, matching the
// teacher's TestEffector no-op-implementation idiom for an absent
// collaborator.
type NoOpNotifier struct{}

func (NoOpNotifier) Notify(ctx context.Context, suggestion models.LocalSuggestion) error { return nil }
func (NoOpNotifier) Heartbeat(ctx context.Context, healthy bool) error                   { return nil }

// NoOpUploader is the default BatchUploader when no network collaborator is
// configured: Drain always returns an empty batch, so the batch_drain loop
// ticks forever without doing any work.
type NoOpUploader struct{}

func (NoOpUploader) Drain(ctx context.Context, maxN int) ([]UploadItem, error) { return nil, nil }
func (NoOpUploader) MarkUploaded(ctx context.Context, items []UploadItem) error { return nil }

// NoOpSuggestionStream is the default SuggestionStream when no remote
// source is configured: Next never yields a suggestion.
type NoOpSuggestionStream struct{}

func (NoOpSuggestionStream) Next(ctx context.Context) (*models.LocalSuggestion, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}
