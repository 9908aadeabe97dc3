package scheduler

import (
	"context"
	"sync"

	"github.com/vthunder/bud2/internal/logging"
)

// startSuggestionStreamLoop ingests the inbound remote SuggestionStream
// (§6.4), storing each payload with source="remote" alongside the
// analyzer's local suggestions. It is not one of the nine ticked loops —
// Next is a blocking receive, not a periodic tick — but it shares the same
// root cancellation and WaitGroup so shutdown still waits for it to drain.
// With the default NoOpSuggestionStream, Next blocks on ctx and the
// goroutine exits the moment loopCtx is canceled.
func (s *Scheduler) startSuggestionStreamLoop(ctx context.Context, wg *sync.WaitGroup) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			suggestion, err := s.stream.Next(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				logging.Warn("scheduler", "suggestion stream read failed", logging.F("err", err))
				continue
			}
			if suggestion == nil {
				continue
			}
			suggestion.Source = "remote"
			if err := s.store.InsertSuggestion(ctx, *suggestion); err != nil {
				logging.Warn("scheduler", "persist remote suggestion failed", logging.F("err", err))
			}
		}
	}()
}
