package scheduler

import (
	"sync"
	"sync/atomic"

	"github.com/vthunder/bud2/internal/models"
)

// queueCapacity is the bounded size of the monitor→capture channel (§4.7).
const queueCapacity = 256

// skipWorthyImportance is the importance ceiling below which a queued item
// is preferred for eviction under back-pressure.
const skipWorthyImportance = 0.3

// queueItem pairs one observed event with the trigger's verdict for it,
// computed eagerly at enqueue time so the bounded queue can apply its
// importance-aware drop policy without re-running the trigger.
type queueItem struct {
	event    models.ContextEvent
	decision models.CaptureDecision
}

func (q queueItem) skipWorthy() bool {
	return !q.decision.Capture || q.decision.Importance < skipWorthyImportance
}

// eventQueue is the bounded MPSC queue between the monitor loop (producer)
// and the capture loop (sole consumer). A mutex-guarded slice is used
// instead of a Go channel because the drop policy needs to evict an
// arbitrary element (the oldest Skip-worthy one), not just the head.
type eventQueue struct {
	mu      sync.Mutex
	items   []queueItem
	dropped int64
	notify  chan struct{}
}

func newEventQueue() *eventQueue {
	return &eventQueue{notify: make(chan struct{}, 1)}
}

// push appends item, applying the overflow drop policy when the queue is
// already at capacity: the oldest Skip-worthy item is evicted first; if
// none is Skip-worthy, the oldest Capture-worthy item is evicted instead.
// Either way exactly one existing item is dropped and the counter bumped.
func (q *eventQueue) push(item queueItem) {
	q.mu.Lock()
	if len(q.items) >= queueCapacity {
		q.evictOne()
	}
	q.items = append(q.items, item)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// evictOne removes exactly one item, assuming q.mu is held.
func (q *eventQueue) evictOne() {
	for i, it := range q.items {
		if it.skipWorthy() {
			q.items = append(q.items[:i], q.items[i+1:]...)
			atomic.AddInt64(&q.dropped, 1)
			return
		}
	}
	if len(q.items) > 0 {
		q.items = q.items[1:]
		atomic.AddInt64(&q.dropped, 1)
	}
}

// drain removes and returns every currently queued item, oldest first.
func (q *eventQueue) drain() []queueItem {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil
	}
	items := q.items
	q.items = nil
	return items
}

// droppedCount returns the running total of items dropped under
// back-pressure since the queue was created.
func (q *eventQueue) droppedCount() int64 {
	return atomic.LoadInt64(&q.dropped)
}
