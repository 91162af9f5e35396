package hmfq

import (
	"sync"
	"time"

	"github.com/edirooss/airportsim/internal/domain/operation"
)

const numQueues = 5

// CompletionRecord is forwarded to the learning engine on Complete
// (spec.md §4.12: "forwards (remaining_time, wait_time, on_time?)").
type CompletionRecord struct {
	RemainingTime time.Duration
	WaitTime      time.Duration
	OnTime        bool
}

// Scheduler is the five-level MLFQ binding PIS, aging, quantum, preemption,
// and inheritance into one decision loop (spec.md §4.12, C12). One mutex
// covers all five ready queues, per spec.md §5's locking discipline.
//
// Adapted from processmgr.scheduler's push/pop/remove shape, generalized
// from a single time-ordered heap to five priority buckets plus an aging
// pass ahead of each dequeue.
type Scheduler struct {
	mu sync.Mutex

	queues [numQueues][]*operation.Operation

	pis        *Calculator
	aging      *AgingManager
	quantum    *QuantumManager
	preemption *PreemptionManager
	inherit    *InheritanceTable
	learning   *LearningEngine

	cond *sync.Cond // broadcast on enqueue/unblock; no Scheduler method waits on it

	contextSwitches int64
	nowFn           func() time.Time
}

// New builds a Scheduler wired to the five sub-algorithm components.
func New(pis *Calculator, aging *AgingManager, quantum *QuantumManager, preemption *PreemptionManager, inherit *InheritanceTable, learning *LearningEngine) *Scheduler {
	s := &Scheduler{
		pis:        pis,
		aging:      aging,
		quantum:    quantum,
		preemption: preemption,
		inherit:    inherit,
		learning:   learning,
		nowFn:      time.Now,
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

func clampQueue(q int) int {
	if q < 0 {
		return 0
	}
	if q > numQueues-1 {
		return numQueues - 1
	}
	return q
}

// Enqueue clamps the queue index, appends the op, signals waiters, and
// checks for preemption against whatever is currently running
// (spec.md §4.12).
func (s *Scheduler) Enqueue(op *operation.Operation) {
	s.mu.Lock()
	op.CurrentQueue = clampQueue(op.CurrentQueue)
	op.ArrivalTime = s.nowFn()
	s.queues[op.CurrentQueue] = append(s.queues[op.CurrentQueue], op)
	s.mu.Unlock()
	s.cond.Broadcast()

	s.CheckPreemption(op)
}

// Quantum computes the current actual quantum for a running operation,
// delegating to the QuantumManager with the scheduler's live active count
// (spec.md §4.9).
func (s *Scheduler) Quantum(op *operation.Operation) time.Duration {
	return s.quantum.Quantum(op, s.ActiveCount())
}

// Inheritance exposes the shared InheritanceTable so lifecycle code can
// apply/restore priority-inheritance boosts around resource waits
// (spec.md §4.11).
func (s *Scheduler) Inheritance() *InheritanceTable { return s.inherit }

// PIS exposes the shared Calculator, e.g. for the weight-update HTTP
// handler (spec.md §6.3).
func (s *Scheduler) PIS() *Calculator { return s.pis }

// Learning exposes the shared LearningEngine, e.g. for the cooldown HTTP
// handler (spec.md §6.3).
func (s *Scheduler) Learning() *LearningEngine { return s.learning }

// ActiveCount returns the number of currently-running operations, used by
// the quantum manager's load factor.
func (s *Scheduler) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, bucket := range s.queues {
		for _, op := range bucket {
			if op.IsRunning() {
				n++
			}
		}
	}
	return n
}

// applyAgingLocked runs the aging pass over Q1-Q4 (spec.md §4.12 step 1),
// promoting ops whose wait exceeds their guaranteed-service threshold.
// Caller holds s.mu.
func (s *Scheduler) applyAgingLocked(now time.Time) {
	type promoted struct {
		op  *operation.Operation
		old int
		new int
	}
	var toMove []promoted

	for q := 1; q < numQueues; q++ {
		for _, op := range s.queues[q] {
			if op.IsRunning() || op.IsBlocked() || op.IsCompleted() {
				continue
			}
			wait := now.Sub(op.ArrivalTime).Seconds()
			op.WaitTime = time.Duration(wait * float64(time.Second))

			boost, promo := s.aging.Apply(op, wait)
			op.PriorityScore += boost

			if promo.ShouldPromote {
				op.GuaranteedService = true
				toMove = append(toMove, promoted{op: op, old: q, new: promo.NewQueue})
			}
		}
	}

	// Apply moves after the scan completes, so mutating a bucket mid-range
	// never shifts indices out from under the iteration above.
	for _, m := range toMove {
		m.op.CurrentQueue = m.new
		s.moveLocked(m.op, m.old)
	}
}

// moveLocked relocates op out of oldQueue's bucket and into its (already
// updated) op.CurrentQueue bucket. Caller holds s.mu and must pass the
// queue op was filed under *before* any mutation of op.CurrentQueue —
// op.CurrentQueue itself is read only for the destination.
func (s *Scheduler) moveLocked(op *operation.Operation, oldQueue int) {
	newQueue := clampQueue(op.CurrentQueue)
	if oldQueue == newQueue {
		op.CurrentQueue = newQueue
		return
	}
	bucket := s.queues[oldQueue]
	for i, o := range bucket {
		if o == op {
			s.queues[oldQueue] = append(bucket[:i], bucket[i+1:]...)
			break
		}
	}
	op.CurrentQueue = newQueue
	s.queues[newQueue] = append(s.queues[newQueue], op)
}

// recomputePISLocked recomputes PIS for every waiting op (spec.md §4.12
// step 2). inputsFor supplies the simulation-wide facts the calculator
// needs for each op (total flights, total resources, weather, reserve fuel).
func (s *Scheduler) recomputePISLocked(inputsFor func(*operation.Operation) (PISInputs, float64)) {
	for q := 0; q < numQueues; q++ {
		for _, op := range s.queues[q] {
			if op.IsRunning() || op.IsBlocked() || op.IsCompleted() {
				continue
			}
			in, reserveFuel := inputsFor(op)
			op.PriorityScore = s.pis.Score(in, reserveFuel)
		}
	}
}

// Dequeue implements spec.md §4.12's dequeue algorithm: age, recompute PIS,
// scan Q0..Q4 for the first non-empty queue, pick the max-PIS op (ties by
// earlier arrival), mark it running.
func (s *Scheduler) Dequeue(now time.Time, inputsFor func(*operation.Operation) (PISInputs, float64)) *operation.Operation {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.applyAgingLocked(now)
	s.recomputePISLocked(inputsFor)

	for q := 0; q < numQueues; q++ {
		var best *operation.Operation
		for _, op := range s.queues[q] {
			if op.IsRunning() || op.IsBlocked() || op.IsCompleted() {
				continue
			}
			if best == nil {
				best = op
				continue
			}
			if op.PriorityScore > best.PriorityScore ||
				(op.PriorityScore == best.PriorityScore && op.ArrivalTime.Before(best.ArrivalTime)) {
				best = op
			}
		}
		if best != nil {
			best.MarkRunning(now)
			s.contextSwitches++
			return best
		}
	}
	return nil
}

// TryRun ages and recomputes PIS for every queued operation, then checks
// whether op is the single highest-priority ready operation across Q0..Q4
// (spec.md §4.12's scan rule). If so it marks op running and returns true;
// otherwise it leaves every operation untouched and returns false, so the
// caller can retry once whatever is ahead of it clears. Unlike Dequeue,
// this never marks a *different* operation running — each operation's own
// goroutine decides its own fate, so two concurrent callers can never step
// on each other's state.
func (s *Scheduler) TryRun(now time.Time, op *operation.Operation, inputsFor func(*operation.Operation) (PISInputs, float64)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.applyAgingLocked(now)
	s.recomputePISLocked(inputsFor)

	for q := 0; q < numQueues; q++ {
		var best *operation.Operation
		for _, o := range s.queues[q] {
			if o.IsRunning() || o.IsBlocked() || o.IsCompleted() {
				continue
			}
			if best == nil ||
				o.PriorityScore > best.PriorityScore ||
				(o.PriorityScore == best.PriorityScore && o.ArrivalTime.Before(best.ArrivalTime)) {
				best = o
			}
		}
		if best == nil {
			continue
		}
		if best == op {
			best.MarkRunning(now)
			s.contextSwitches++
			return true
		}
		return false
	}
	return false
}

// Block transitions op to blocked (awaiting a resource), per spec.md §4.12's
// state machine (running -> blocked).
func (s *Scheduler) Block(op *operation.Operation) {
	s.mu.Lock()
	op.MarkBlocked()
	s.mu.Unlock()
}

// Unblock transitions op from blocked back to ready (resource granted).
func (s *Scheduler) Unblock(op *operation.Operation, now time.Time) {
	s.mu.Lock()
	op.MarkReady()
	op.ArrivalTime = now // restarts its wait-time accounting in its queue
	s.mu.Unlock()
	s.cond.Broadcast()
}

// Preempt transitions op from running back to ready without completing it
// (quantum expiry or lost a preemption decision upstream).
func (s *Scheduler) Preempt(op *operation.Operation) {
	s.mu.Lock()
	op.MarkReady()
	op.ArrivalTime = s.nowFn()
	s.mu.Unlock()
}

// Complete marks op completed and forwards its completion record to the
// learning engine (spec.md §4.12).
func (s *Scheduler) Complete(op *operation.Operation, onTimeThresholdSecs float64) {
	s.mu.Lock()
	op.MarkCompleted()
	bucket := s.queues[op.CurrentQueue]
	for i, o := range bucket {
		if o == op {
			s.queues[op.CurrentQueue] = append(bucket[:i], bucket[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	rec := CompletionRecord{
		RemainingTime: op.RemainingTime,
		WaitTime:      op.WaitTime,
		OnTime:        op.RemainingTime <= 0,
	}
	if s.learning != nil {
		newWeights := s.learning.Observe(rec, s.pis.Weights())
		s.pis.UpdateWeights(newWeights)
	}
}

// Abort removes op from the scheduler without feeding a completion record
// to the learning engine — used when a lifecycle phase ends in failure
// (divert, persistent gate failure) rather than a genuine completion
// (spec.md §4.13's failure semantics: "operational failures... update
// counters and exit").
func (s *Scheduler) Abort(op *operation.Operation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	op.MarkCompleted()
	bucket := s.queues[op.CurrentQueue]
	for i, o := range bucket {
		if o == op {
			s.queues[op.CurrentQueue] = append(bucket[:i], bucket[i+1:]...)
			break
		}
	}
}

// CheckPreemption compares a newly-enqueued op against every currently
// running op and, when the preemption rule fires, preempts the loser
// (spec.md §4.12's enqueue step, §4.10). Returns true if a preemption
// occurred.
func (s *Scheduler) CheckPreemption(newOp *operation.Operation) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	var losers []*operation.Operation
	for q := 0; q < numQueues; q++ {
		for _, op := range s.queues[q] {
			if !op.IsRunning() || op == newOp {
				continue
			}
			wait := s.nowFn().Sub(newOp.ArrivalTime).Seconds()
			if s.preemption.ShouldPreempt(newOp, op, wait) {
				losers = append(losers, op)
			}
		}
	}

	for _, op := range losers {
		oldQ := op.CurrentQueue
		Apply(op)
		s.moveLocked(op, oldQ)
	}
	return len(losers) > 0
}

// QueueDepths returns a snapshot of each queue's length, for metrics/debug.
func (s *Scheduler) QueueDepths() [numQueues]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	var depths [numQueues]int
	for i, b := range s.queues {
		depths[i] = len(b)
	}
	return depths
}

// ContextSwitches returns the running total of dispatch decisions.
func (s *Scheduler) ContextSwitches() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.contextSwitches
}
