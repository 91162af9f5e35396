package hmfq

import (
	"testing"
	"time"

	"github.com/edirooss/airportsim/internal/config"
	"github.com/edirooss/airportsim/internal/domain/operation"
)

func newTestScheduler() *Scheduler {
	return New(
		NewCalculator(config.DefaultPISWeights()),
		NewAgingManager(config.DefaultAgingConfig()),
		NewQuantumManager(config.DefaultQuantumConfig()),
		NewPreemptionManager(config.DefaultPreemptionConfig()),
		NewInheritanceTable(),
		NewLearningEngine(config.DefaultLearningConfig()),
	)
}

func noopInputs(op *operation.Operation) (PISInputs, float64) {
	return PISInputs{Op: op, TotalFlights: 1, TotalResources: 1}, 60
}

func TestEnqueueDequeuePicksHighestPIS(t *testing.T) {
	s := newTestScheduler()
	low := operation.New(1, "fl-1", operation.Taxiing, operation.Operation{FlightPriority: 80})
	high := operation.New(2, "fl-2", operation.Taxiing, operation.Operation{IsEmergency: true})

	s.Enqueue(low)
	s.Enqueue(high)

	got := s.Dequeue(time.Now(), noopInputs)
	if got == nil || got.FlightID != "fl-2" {
		t.Fatalf("Dequeue() picked %+v, want the emergency op (fl-2)", got)
	}
	if !got.IsRunning() {
		t.Errorf("Dequeue()'d op should be marked running")
	}
}

func TestDequeueEmptyReturnsNil(t *testing.T) {
	s := newTestScheduler()
	if got := s.Dequeue(time.Now(), noopInputs); got != nil {
		t.Errorf("Dequeue() on empty scheduler = %v, want nil", got)
	}
}

func TestDequeueScansQueuesInOrder(t *testing.T) {
	s := newTestScheduler()
	// Op in Q0 should always win over an op in Q4 regardless of PIS score,
	// since Dequeue scans Q0..Q4 and returns the first non-empty bucket's best.
	q4op := operation.New(1, "fl-1", operation.Taxiing, operation.Operation{FlightPriority: 99})
	q0op := operation.New(2, "fl-2", operation.Taxiing, operation.Operation{IsEmergency: true})
	q4op.CurrentQueue = 4
	q0op.CurrentQueue = 0

	s.Enqueue(q4op)
	s.Enqueue(q0op)

	got := s.Dequeue(time.Now(), noopInputs)
	if got == nil || got.FlightID != "fl-2" {
		t.Fatalf("Dequeue() = %+v, want the Q0 op (fl-2)", got)
	}
}

func TestBlockUnblockTransitions(t *testing.T) {
	s := newTestScheduler()
	op := operation.New(1, "fl-1", operation.Taxiing, operation.Operation{})
	s.Enqueue(op)
	op.MarkRunning(time.Now())

	s.Block(op)
	if !op.IsBlocked() {
		t.Fatalf("Block() should mark op blocked")
	}

	s.Unblock(op, time.Now())
	if !op.IsReady() {
		t.Fatalf("Unblock() should mark op ready")
	}
}

func TestCompleteForwardsRecordToLearningAndRemovesFromQueue(t *testing.T) {
	s := newTestScheduler()
	op := operation.New(1, "fl-1", operation.Taxiing, operation.Operation{})
	s.Enqueue(op)
	op.MarkRunning(time.Now())

	// The record is late (60s remaining), so the learning engine shifts
	// weight from Gamma to Eps and the committed weights change.
	before := s.pis.Weights()
	s.Complete(op, 0)
	if s.pis.Weights() == before {
		t.Errorf("Complete() should forward its record to learning and commit shifted weights, got unchanged %+v", before)
	}
	if !op.IsCompleted() {
		t.Errorf("Complete() should mark op completed")
	}
	depths := s.QueueDepths()
	if depths[op.CurrentQueue] != 0 {
		t.Errorf("QueueDepths()[%d] = %d after Complete, want 0", op.CurrentQueue, depths[op.CurrentQueue])
	}
}

func TestAbortRemovesWithoutLearningFeedback(t *testing.T) {
	s := newTestScheduler()
	op := operation.New(1, "fl-1", operation.Taxiing, operation.Operation{})
	s.Enqueue(op)
	op.MarkRunning(time.Now())

	before := s.pis.Weights()
	s.Abort(op)
	after := s.pis.Weights()

	if !op.IsCompleted() {
		t.Errorf("Abort() should mark op completed (terminal)")
	}
	if before != after {
		t.Errorf("Abort() must not feed the learning engine: weights changed from %+v to %+v", before, after)
	}
}

func TestCheckPreemptionPreemptsLowerQueueOp(t *testing.T) {
	s := newTestScheduler()
	running := operation.New(1, "fl-1", operation.Taxiing, operation.Operation{FlightPriority: 90})
	running.CurrentQueue = 4
	s.Enqueue(running)
	running.MarkRunning(time.Now())

	emergency := operation.New(2, "fl-2", operation.Taxiing, operation.Operation{IsEmergency: true})
	emergency.CurrentQueue = 0
	s.Enqueue(emergency) // triggers CheckPreemption internally

	if running.IsRunning() {
		t.Errorf("lower-priority running op should have been preempted")
	}
	if running.PreemptionCount == 0 {
		t.Errorf("preempted op should have PreemptionCount > 0")
	}
}

func TestQueueDepthsAndContextSwitches(t *testing.T) {
	s := newTestScheduler()
	op1 := operation.New(1, "fl-1", operation.Taxiing, operation.Operation{})
	op2 := operation.New(2, "fl-2", operation.Taxiing, operation.Operation{})
	s.Enqueue(op1)
	s.Enqueue(op2)

	if total := sumDepths(s.QueueDepths()); total != 2 {
		t.Fatalf("QueueDepths() total = %d, want 2", total)
	}

	if s.ContextSwitches() != 0 {
		t.Fatalf("ContextSwitches() before any Dequeue = %d, want 0", s.ContextSwitches())
	}
	s.Dequeue(time.Now(), noopInputs)
	if s.ContextSwitches() != 1 {
		t.Errorf("ContextSwitches() after one Dequeue = %d, want 1", s.ContextSwitches())
	}
}

func sumDepths(d [numQueues]int) int {
	total := 0
	for _, n := range d {
		total += n
	}
	return total
}
