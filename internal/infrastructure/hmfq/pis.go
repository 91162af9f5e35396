// Package hmfq implements the Hybrid Multi-Feedback Queue scheduler with
// Preemptive Priority Recalculation (spec.md §4.6-§4.12.1, C6-C12).
//
// Each sub-algorithm (PIS, aging, quantum, preemption, inheritance) is its
// own file with its own lock, a leaf that never calls back into the
// scheduler under its lock (spec.md §5's locking discipline) — grounded on
// the single-responsibility, single-mutex shape of processmgr.PIDAllocator
// and processmgr.slotPool.
package hmfq

import (
	"sync"

	"github.com/edirooss/airportsim/internal/config"
	"github.com/edirooss/airportsim/internal/domain/operation"
)

// PISInputs carries the per-operation facts the five factors need, since
// Operation itself doesn't know about total_flights/total_resources/weather
// (those are simulation-wide facts supplied by the caller each recompute).
type PISInputs struct {
	Op *operation.Operation

	TotalFlights   int
	TotalResources int

	WaitSeconds float64

	WeatherSeverity float64 // 0..1, from the crisis surface (spec.md §6.3)
	WeatherWindow   float64 // time_window factor
	IsOutdoor       bool

	EmergencyThresholdMinutes float64
}

// Calculator computes the PIS (spec.md §4.7). It owns the weight vector
// behind its own lock, since weights change at runtime (learning feedback,
// §4.12.1; manual updates via the control HTTP surface, §6.3).
type Calculator struct {
	mu      sync.Mutex
	weights config.PISWeights
}

// NewCalculator starts from the given weights (validated to sum to 1±0.01).
func NewCalculator(w config.PISWeights) *Calculator {
	if !w.Valid() {
		w = config.DefaultPISWeights()
	}
	return &Calculator{weights: w}
}

// Weights returns a copy of the current weight vector.
func (c *Calculator) Weights() config.PISWeights {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.weights
}

// UpdateWeights applies a proposed weight vector iff it sums to 1±0.01
// (spec.md §4.7, §7 "Invalid weight update... silently rejected"). Returns
// whether the update was applied.
func (c *Calculator) UpdateWeights(w config.PISWeights) bool {
	if !w.Valid() {
		return false
	}
	c.mu.Lock()
	c.weights = w
	c.mu.Unlock()
	return true
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// dpf computes the delay-propagation factor (spec.md §4.7).
func dpf(in PISInputs) float64 {
	var affected float64
	switch {
	case in.Op.IsEmergency:
		affected = 10
	case in.Op.International:
		affected = 5 + in.WaitSeconds/60
	default:
		affected = 2 + in.WaitSeconds/120
	}
	if in.TotalFlights <= 0 {
		return 0
	}
	return clamp01(affected / float64(in.TotalFlights))
}

// crf computes the connection-risk factor (spec.md §4.7).
func crf(in PISInputs) float64 {
	pax := float64(in.Op.ConnectingPax)
	var atRisk float64
	switch {
	case in.WaitSeconds > 90:
		atRisk = pax
	case in.WaitSeconds > 60:
		atRisk = 0.5 * pax
	case in.WaitSeconds > 30:
		atRisk = 0.25 * pax
	default:
		atRisk = 0
	}
	total := float64(in.Op.ConnectingPax)
	if total <= 0 {
		return 0
	}
	return clamp01(atRisk / total)
}

// rui computes the resource-utilization-impact factor (spec.md §4.7).
func rui(in PISInputs) float64 {
	var blocked float64
	switch in.Op.Type {
	case operation.Landing, operation.Takeoff:
		blocked = 10
	case operation.GateArrival, operation.GateDeparture:
		blocked = 5
	case operation.Refueling:
		blocked = 3
	case operation.Cleaning, operation.Catering:
		blocked = 2
	default:
		blocked = 1
	}
	if in.TotalResources <= 0 {
		return 0
	}
	return clamp01(blocked / float64(in.TotalResources))
}

// wrf computes the weather-risk factor (spec.md §4.7).
func wrf(in PISInputs) float64 {
	if in.TotalResources <= 0 {
		return 0
	}
	outdoorMul := 1.0
	if in.IsOutdoor {
		outdoorMul = 1.5
	}
	return clamp01(in.WeatherSeverity * in.WeatherWindow * outdoorMul / float64(in.TotalResources))
}

// Score computes the 5-factor weighted PIS (spec.md §4.7). reserveFuelMin is
// the flight's reserve_fuel_minutes, carried separately since Operation
// doesn't duplicate flight-level fuel state.
func (c *Calculator) Score(in PISInputs, reserveFuelMin float64) float64 {
	w := c.Weights()

	fcfVal := 0.0
	if reserveFuelMin > 0 {
		fcfVal = clamp01(1 - (reserveFuelMin-in.EmergencyThresholdMinutes)/reserveFuelMin)
	}

	return w.Alpha*dpf(in) + w.Beta*crf(in) + w.Gamma*rui(in) + w.Delta*wrf(in) + w.Eps*fcfVal
}
