package collaborators

import (
	"context"
	"testing"
	"time"

	"github.com/vthunder/bud2/internal/models"
)

func TestNoOpNotifier_NeverErrors(t *testing.T) {
	var n DesktopNotifier = NoOpNotifier{}
	if err := n.Notify(context.Background(), models.LocalSuggestion{}); err != nil {
		t.Errorf("expected Notify to never error, got %v", err)
	}
	if err := n.Heartbeat(context.Background(), false); err != nil {
		t.Errorf("expected Heartbeat to never error, got %v", err)
	}
}

func TestNoOpUploader_DrainsNothing(t *testing.T) {
	var u BatchUploader = NoOpUploader{}
	items, err := u.Drain(context.Background(), 100)
	if err != nil {
		t.Errorf("expected Drain to never error, got %v", err)
	}
	if len(items) != 0 {
		t.Errorf("expected no items from the no-op uploader, got %d", len(items))
	}
	if err := u.MarkUploaded(context.Background(), []UploadItem{{Kind: "event", ID: "1"}}); err != nil {
		t.Errorf("expected MarkUploaded to never error, got %v", err)
	}
}

func TestNoOpSuggestionStream_BlocksUntilContextDone(t *testing.T) {
	var s SuggestionStream = NoOpSuggestionStream{}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	suggestion, err := s.Next(ctx)
	if suggestion != nil {
		t.Errorf("expected no suggestion from the no-op stream, got %+v", suggestion)
	}
	if err == nil {
		t.Error("expected an error once the context is done")
	}
}
