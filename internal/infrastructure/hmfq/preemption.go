package hmfq

import (
	"sync"

	"github.com/edirooss/airportsim/internal/config"
	"github.com/edirooss/airportsim/internal/domain/operation"
)

// PreemptionManager implements spec.md §4.10's benefit-vs-cost preemption
// decision. Its only state is the configured benefit multiplier, so the
// methods are pure functions of their arguments plus that one constant.
type PreemptionManager struct {
	mu  sync.Mutex
	cfg config.PreemptionConfig
}

func NewPreemptionManager(cfg config.PreemptionConfig) *PreemptionManager {
	return &PreemptionManager{cfg: cfg}
}

// Urgency computes spec.md §4.10's urgency score for op, given its current
// wait time in seconds.
func Urgency(op *operation.Operation, waitSeconds float64) float64 {
	if op.IsEmergency {
		return 1000
	}
	return float64(4-op.CurrentQueue)*20 + op.PriorityScore*10 + waitSeconds/10
}

// DelayCost computes spec.md §4.10's delay cost for op.
func DelayCost(op *operation.Operation) float64 {
	cost := 1 + float64(op.PassengerCount)/100
	if op.International {
		cost *= 1.5
	}
	if op.IsEmergency {
		cost *= 10
	}
	return cost
}

// Benefit computes Urgency(H) * DelayCost(H) for a candidate new operation H.
func Benefit(h *operation.Operation, waitSeconds float64) float64 {
	return Urgency(h, waitSeconds) * DelayCost(h)
}

// DownstreamImpact computes spec.md §4.10's downstream-impact term for a
// currently-running operation L.
func DownstreamImpact(l *operation.Operation) float64 {
	impact := float64(l.PassengerCount) / 50
	if l.IsGateOp {
		impact += 5
	}
	return impact
}

// Cost computes spec.md §4.10's preemption cost for the running operation L.
func Cost(l *operation.Operation) float64 {
	progressLost := l.Progress()
	return progressLost*5 + 10 + DownstreamImpact(l)
}

// ShouldPreempt applies spec.md §4.10's rule: preempt iff
// Benefit(H) > multiplier*Cost(L) AND q(H) < q(L).
func (p *PreemptionManager) ShouldPreempt(h, l *operation.Operation, hWaitSeconds float64) bool {
	p.mu.Lock()
	mult := p.cfg.BenefitMultiplier
	p.mu.Unlock()

	if h.CurrentQueue >= l.CurrentQueue {
		return false
	}
	return Benefit(h, hWaitSeconds) > mult*Cost(l)
}

// Apply performs the preemption's effects on L (spec.md §4.10): mark not
// running, bump preemption_count, award quantum compensation, and demote
// one queue unless guaranteed_service. Caller holds l's lock.
func Apply(l *operation.Operation) {
	l.MarkReady()
	l.PreemptionCount++
	l.QuantumComp += l.TotalTime / 10
	if !l.GuaranteedService && l.CurrentQueue < 4 {
		l.CurrentQueue++
	}
}
