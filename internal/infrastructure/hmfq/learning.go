package hmfq

import (
	"sync"
	"time"

	"github.com/edirooss/airportsim/internal/config"
)

// LearningEngine implements spec.md §4.12.1's EMA feedback loop: it tracks
// exponential moving averages over completion time, wait time, and on-time
// fraction, and nudges the PIS weights toward the factors that correlate
// with the system's actual pain points. Like the other sub-algorithms it is
// a leaf: Observe never calls back into the scheduler.
type LearningEngine struct {
	mu sync.Mutex

	cfg config.LearningConfig

	initialized    bool
	avgCompletion  time.Duration
	avgWait        time.Duration
	onTimeFraction float64

	cooldown int // remaining Observe calls that update the EMAs but skip committing a weight shift
}

func NewLearningEngine(cfg config.LearningConfig) *LearningEngine {
	return &LearningEngine{cfg: cfg}
}

// Cooldown makes the next n Observe calls update the running EMAs without
// committing a weight shift, for an operator who wants to hold the PIS
// weights steady for a while (spec.md §6.3's scheduler/cooldown admin
// control) without stopping EMA tracking itself.
func (l *LearningEngine) Cooldown(n int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if n > l.cooldown {
		l.cooldown = n
	}
}

// Observe folds one completion record into the running EMAs and returns the
// weight set the scheduler should commit (spec.md §4.12.1). The caller
// (Scheduler.Complete) is responsible for actually applying it via
// Calculator.UpdateWeights, which independently re-validates the sum.
func (l *LearningEngine) Observe(rec CompletionRecord, current config.PISWeights) config.PISWeights {
	l.mu.Lock()
	defer l.mu.Unlock()

	onTime := 0.0
	if rec.OnTime {
		onTime = 1.0
	}

	if !l.initialized {
		l.avgCompletion = rec.RemainingTime
		l.avgWait = rec.WaitTime
		l.onTimeFraction = onTime
		l.initialized = true
	} else {
		l.avgCompletion = ema(l.avgCompletion, rec.RemainingTime, l.cfg.AlphaOld, l.cfg.AlphaNew)
		l.avgWait = ema(l.avgWait, rec.WaitTime, l.cfg.AlphaOld, l.cfg.AlphaNew)
		l.onTimeFraction = l.cfg.AlphaOld*l.onTimeFraction + l.cfg.AlphaNew*onTime
	}

	if l.cooldown > 0 {
		l.cooldown--
		return current
	}

	next := current
	step := l.cfg.ShiftStep

	if l.avgWait.Seconds() > l.cfg.WaitThresholdSeconds && next.Alpha < 0.35 {
		next = shiftFromGamma(next, step, func(w *config.PISWeights) *float64 { return &w.Alpha })
	}
	if l.onTimeFraction < l.cfg.OnTimeThreshold && next.Eps < 0.30 {
		next = shiftFromGamma(next, step, func(w *config.PISWeights) *float64 { return &w.Eps })
	}

	// Commit only if the shifted weights remain valid (spec.md §4.12.1).
	if !next.Valid() {
		return current
	}
	return next
}

func ema(old, sample time.Duration, alphaOld, alphaNew float64) time.Duration {
	return time.Duration(alphaOld*float64(old) + alphaNew*float64(sample))
}

// shiftFromGamma moves step from gamma into the weight selected by target,
// leaving the other three weights untouched. Returns w unchanged if gamma
// can't afford the full step.
func shiftFromGamma(w config.PISWeights, step float64, target func(*config.PISWeights) *float64) config.PISWeights {
	if w.Gamma < step {
		return w
	}
	w.Gamma -= step
	*target(&w) += step
	return w
}
