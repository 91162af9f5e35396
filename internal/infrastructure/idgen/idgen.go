// Package idgen hands out monotonic operation IDs.
//
// Adapted from processmgr.PIDAllocator's role (an authoritative ID space for
// a live set of units) but simplified from its wraparound/reuse scheme to a
// single atomic counter: operations are never recycled the way PIDs are
// (spec.md's operation model has no "reuse the smallest free ID" rule), so
// the teacher's own atomic.Int64 field on *process (cmd_pid) is the closer
// fit than PIDAllocator's full allocator.
package idgen

import "sync/atomic"

// Sequence is a monotonic, concurrency-safe ID generator.
type Sequence struct {
	next atomic.Int64
}

// Next returns the next ID, starting from 1.
func (s *Sequence) Next() int64 {
	return s.next.Add(1)
}
