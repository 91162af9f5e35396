package eventqueue

import (
	"container/heap"
	"sync"
)

// Queue is a thread-safe min-heap over Events, ordered by (time, priority)
// per Event.Less. Adapted from processmgr.scheduler's eventHeap/schedEvent
// shape (internal index field for O(log n) heap.Fix/heap.Remove), extended
// with a sync.Cond so WaitPop can block until an event arrives instead of
// the original's fire-and-forget push/pop pair — the engine's dispatcher
// (spec.md §4.14) needs to sleep rather than spin when the queue is empty.
type Queue struct {
	mu   sync.Mutex
	cond *sync.Cond
	h    eventHeap
}

// New returns an empty Queue.
func New() *Queue {
	q := &Queue{}
	q.cond = sync.NewCond(&q.mu)
	heap.Init(&q.h)
	return q
}

// Push inserts an event and wakes any WaitPop waiter.
func (q *Queue) Push(e *Event) {
	q.mu.Lock()
	heap.Push(&q.h, e)
	q.mu.Unlock()
	q.cond.Signal()
}

// TryPop removes and returns the head event, or ok=false if empty. This
// never blocks — the dispatcher uses it after first checking Peek against
// now (spec.md §4.2: "the queue itself does not gate dispatch by
// event_time <= now(); the dispatcher does").
func (q *Queue) TryPop() (*Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.h.Len() == 0 {
		return nil, false
	}
	return heap.Pop(&q.h).(*Event), true
}

// Peek returns the head event without removing it.
func (q *Queue) Peek() (*Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.h.Len() == 0 {
		return nil, false
	}
	return q.h[0], true
}

// WaitPop blocks until the queue is non-empty, then pops and returns the
// head event. It wakes promptly on Push via the condition variable
// (spec.md §4.2).
func (q *Queue) WaitPop() *Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.h.Len() == 0 {
		q.cond.Wait()
	}
	return heap.Pop(&q.h).(*Event)
}

// Len returns the current queue depth.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.h.Len()
}

// --- heap internals ---------------------------------------------------------

type eventHeap []*Event

func (h eventHeap) Len() int { return len(h) }

func (h eventHeap) Less(i, j int) bool { return h[i].Less(h[j]) }

func (h eventHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index, h[j].index = i, j
}

func (h *eventHeap) Push(x any) {
	e := x.(*Event)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	e.index = -1
	*h = old[:n-1]
	return e
}
