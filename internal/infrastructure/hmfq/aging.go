package hmfq

import (
	"math"
	"sync"

	"github.com/edirooss/airportsim/internal/config"
	"github.com/edirooss/airportsim/internal/domain/operation"
)

// AgingManager implements spec.md §4.8's exponential starvation-prevention
// boost and guaranteed-service promotion. It is a leaf: Apply only mutates
// the operation handed to it and returns whether a promotion occurred; it
// never touches scheduler queue slices itself (the scheduler's Dequeue owns
// moving a promoted op from its old queue's slice to Q1's).
type AgingManager struct {
	mu  sync.Mutex
	cfg config.AgingConfig
}

func NewAgingManager(cfg config.AgingConfig) *AgingManager {
	return &AgingManager{cfg: cfg}
}

// Promotion describes a guaranteed-service promotion decision.
type Promotion struct {
	ShouldPromote bool
	NewQueue      int
}

// Apply computes the age-based PIS boost for an operation currently waiting
// in queue q for waitSeconds, and reports whether it must now be promoted to
// Q1 with guaranteed_service set (spec.md §4.8). Q0 is exempt from both.
func (a *AgingManager) Apply(op *operation.Operation, waitSeconds float64) (boost float64, promo Promotion) {
	a.mu.Lock()
	cfg := a.cfg
	a.mu.Unlock()

	q := op.CurrentQueue
	if q == 0 {
		return 0, Promotion{}
	}

	t := cfg.T[q]
	if t > 0 {
		ageIncrement := cfg.BaseRate * math.Exp(waitSeconds/t)
		boost = ageIncrement * cfg.AgeWeight
	}

	threshold := cfg.GuaranteedThreshold[q]
	if threshold > 0 && waitSeconds >= threshold && !op.GuaranteedService {
		return boost, Promotion{ShouldPromote: true, NewQueue: 1}
	}
	return boost, Promotion{}
}
