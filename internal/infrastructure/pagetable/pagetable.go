// Package pagetable tracks the page_fault_count/page_fault_rate metrics
// spec.md §6.1 names in the MetricsSink surface. The original C++
// (original_source/src/memory/PageTable.{h,cpp}) models a full per-process
// virtual-memory table keyed by page id; spec.md's distillation drops the
// paging subsystem entirely except for those two surfaced counters. This
// package keeps just enough of the original to make them real numbers
// instead of stubs: one shared table, faulted on first touch of a
// (flight, page) pair and hit on every subsequent touch, the same
// valid-entry/page_faults/page_hits bookkeeping as PageTable::lookup,
// generalized from one table per flight to one table for the simulation
// (spec.md's scope has no per-flight memory model to hang a table off of).
package pagetable

import "sync"

// entryKey identifies one (flight, virtual page) pair.
type entryKey struct {
	flightID string
	page     int
}

// Table is the simulation-wide page table stand-in (spec.md §6.1).
type Table struct {
	mu      sync.Mutex
	valid   map[entryKey]bool
	faults  int64
	hits    int64
}

// New returns an empty Table.
func New() *Table {
	return &Table{valid: make(map[entryKey]bool)}
}

// Touch looks up (flightID, page); it's a hit if that page was already
// resident for this flight, a fault (and resident-from-now-on) otherwise —
// mirroring PageTable::lookup's valid-entry check plus add_entry on miss.
func (t *Table) Touch(flightID string, page int) (fault bool) {
	key := entryKey{flightID, page}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.valid[key] {
		t.hits++
		return false
	}
	t.valid[key] = true
	t.faults++
	return true
}

// Evict drops every page resident for flightID, once its lifecycle ends
// (PageTable's per-process table would simply be destroyed; here the shared
// table's entries for that flight are removed instead).
func (t *Table) Evict(flightID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for k := range t.valid {
		if k.flightID == flightID {
			delete(t.valid, k)
		}
	}
}

// Counts returns the running fault/hit totals.
func (t *Table) Counts() (faults, hits int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.faults, t.hits
}

// FaultRate reproduces PageTable::get_fault_rate: faults / (faults+hits),
// 0 when nothing has been touched yet.
func (t *Table) FaultRate() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	total := t.faults + t.hits
	if total == 0 {
		return 0
	}
	return float64(t.faults) / float64(total)
}
