package hmfq

import (
	"sync"

	"github.com/edirooss/airportsim/internal/domain/operation"
)

// inheritanceRecord remembers a holder's original (queue, PIS) before a
// temporary priority boost (spec.md §4.11). tightestQueue is -1 until the
// first boost sets it.
type inheritanceRecord struct {
	holderOpID    int64
	origQueue     int
	origPIS       float64
	tightestQueue int
	highestPIS    float64
}

// InheritanceTable implements spec.md §4.11's priority inheritance: when a
// waiter blocks on a resource held by a lower-priority holder, the holder is
// temporarily boosted to the waiter's (queue, PIS); only one record exists
// per holder, and the stored "original" is set only on the first boost.
type InheritanceTable struct {
	mu      sync.Mutex
	records map[int64]*inheritanceRecord // keyed by holder operation ID
}

func NewInheritanceTable() *InheritanceTable {
	return &InheritanceTable{records: make(map[int64]*inheritanceRecord)}
}

// Boost applies or tightens a boost on holder h because waiter w (with
// q(w) < q(h)) is blocked on a resource h holds. Caller holds h's lock.
func (t *InheritanceTable) Boost(h, w *operation.Operation) {
	if w.CurrentQueue >= h.CurrentQueue {
		return
	}

	t.mu.Lock()
	rec, exists := t.records[h.ID]
	if !exists {
		rec = &inheritanceRecord{
			holderOpID:    h.ID,
			origQueue:     h.CurrentQueue,
			origPIS:       h.PriorityScore,
			tightestQueue: -1,
		}
		t.records[h.ID] = rec
	}
	// Keep the stricter boost: tightest queue, highest PIS (spec.md §4.11).
	if rec.tightestQueue == -1 || w.CurrentQueue < rec.tightestQueue {
		rec.tightestQueue = w.CurrentQueue
	}
	if w.PriorityScore > rec.highestPIS {
		rec.highestPIS = w.PriorityScore
	}
	t.mu.Unlock()

	h.CurrentQueue = rec.tightestQueue
	h.PriorityScore = rec.highestPIS
}

// Restore reverts h to its pre-boost (queue, PIS) when it releases the
// resource, and clears the record. Caller holds h's lock.
func (t *InheritanceTable) Restore(h *operation.Operation) {
	t.mu.Lock()
	rec, ok := t.records[h.ID]
	if ok {
		delete(t.records, h.ID)
	}
	t.mu.Unlock()

	if !ok {
		return
	}
	h.CurrentQueue = rec.origQueue
	h.PriorityScore = rec.origPIS
}

// Has reports whether h currently carries an inheritance boost.
func (t *InheritanceTable) Has(opID int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.records[opID]
	return ok
}
