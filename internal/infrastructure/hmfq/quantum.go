package hmfq

import (
	"sync"
	"time"

	"github.com/edirooss/airportsim/internal/config"
	"github.com/edirooss/airportsim/internal/domain/operation"
)

// QuantumManager implements spec.md §4.9's load- and complexity-adjusted
// time slice.
type QuantumManager struct {
	mu  sync.Mutex
	cfg config.QuantumConfig
}

func NewQuantumManager(cfg config.QuantumConfig) *QuantumManager {
	return &QuantumManager{cfg: cfg}
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (m *QuantumManager) complexityFactor(c operation.Complexity, cfg config.QuantumConfig) float64 {
	switch c {
	case operation.Simple:
		return cfg.Simple
	case operation.Complex:
		return cfg.Complex
	default:
		return cfg.MediumFactor
	}
}

// Quantum computes the actual quantum for an operation about to run, given
// the current count of active (running) operations (spec.md §4.9). Q0 runs
// to completion (no quantum).
func (m *QuantumManager) Quantum(op *operation.Operation, activeCount int) time.Duration {
	m.mu.Lock()
	cfg := m.cfg
	m.mu.Unlock()

	if op.CurrentQueue == 0 {
		return 0 // "run to completion"
	}

	base := cfg.Base[op.CurrentQueue]
	loadRatio := 1.0
	if cfg.MaxActive > 0 {
		r := float64(activeCount) / float64(cfg.MaxActive)
		loadRatio = clampF(1-r*r, 0.4, 1.0)
	}
	complexity := m.complexityFactor(op.Complexity, cfg)

	secs := base*loadRatio*complexity + op.QuantumComp.Seconds()
	if secs < cfg.MinQuantum {
		secs = cfg.MinQuantum
	}
	return time.Duration(secs * float64(time.Second))
}
