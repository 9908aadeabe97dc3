package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/vthunder/bud2/internal/clock"
	"github.com/vthunder/bud2/internal/models"
)

type fakeSuggestionStream struct {
	mu        sync.Mutex
	items     []*models.LocalSuggestion
	afterErr  error
	exhausted chan struct{}
}

func (f *fakeSuggestionStream) Next(ctx context.Context) (*models.LocalSuggestion, error) {
	f.mu.Lock()
	if len(f.items) > 0 {
		item := f.items[0]
		f.items = f.items[1:]
		f.mu.Unlock()
		return item, nil
	}
	f.mu.Unlock()
	if f.exhausted != nil {
		select {
		case f.exhausted <- struct{}{}:
		default:
		}
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestSuggestionStreamLoop_PersistsRemoteSuggestionsWithSourceTag(t *testing.T) {
	c := clock.NewFrozen(time.Now())
	store := newFakeSchedulerStore()
	s := newTestScheduler(t, c, store)
	stream := &fakeSuggestionStream{
		items:     []*models.LocalSuggestion{{SuggestionType: models.SuggestionTakeBreak}},
		exhausted: make(chan struct{}, 1),
	}
	s.stream = stream

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	s.startSuggestionStreamLoop(ctx, &wg)

	select {
	case <-stream.exhausted:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the stream to be drained")
	}

	if len(store.suggestions) != 1 {
		t.Fatalf("expected 1 persisted suggestion, got %d", len(store.suggestions))
	}
	if store.suggestions[0].Source != "remote" {
		t.Errorf("expected source to be tagged remote, got %q", store.suggestions[0].Source)
	}

	cancel()
	wg.Wait()
}
