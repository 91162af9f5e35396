// Package lifecycle implements the per-flight lifecycle driver (spec.md
// §4.13, C13): one task per flight, idempotent and isolated from other
// flights except through the shared pools and scheduler.
//
// Grounded on processmgr.ProcessManager2.superviseInstance's phase-by-phase
// select/acquire/release structure (preflight -> onflight -> release),
// generalized from a two-phase process supervisor to the airport's
// ten-phase runway -> taxi -> gate -> ground-services -> pushback ->
// departure chain.
package lifecycle

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/edirooss/airportsim/internal/config"
	"github.com/edirooss/airportsim/internal/domain/flight"
	"github.com/edirooss/airportsim/internal/domain/operation"
	"github.com/edirooss/airportsim/internal/domain/taxiway"
	"github.com/edirooss/airportsim/internal/infrastructure/clock"
	"github.com/edirooss/airportsim/internal/infrastructure/gatepool"
	"github.com/edirooss/airportsim/internal/infrastructure/hmfq"
	"github.com/edirooss/airportsim/internal/infrastructure/idgen"
	"github.com/edirooss/airportsim/internal/infrastructure/obslog"
	"github.com/edirooss/airportsim/internal/infrastructure/pagetable"
	"github.com/edirooss/airportsim/internal/infrastructure/resourcepool"
	"github.com/edirooss/airportsim/internal/infrastructure/runwaypool"
	"github.com/edirooss/airportsim/internal/service/external"
)

// emergencyThresholdMinutes is the FCF factor's reserve-fuel cutoff
// (spec.md §4.7 names the term but not its value; 45 min is the FAA
// domestic-reserve ballpark this repo settles on — see DESIGN.md).
const emergencyThresholdMinutes = 45.0

// Context supplies the simulation-wide facts the PIS calculator needs that
// no single operation or flight carries on its own (spec.md §4.7).
type Context struct {
	TotalFlights   func() int
	TotalResources func() int
}

// Driver runs flight lifecycles against the shared resource pools and
// scheduler. One Driver serves every flight concurrently; per-flight state
// lives on the Flight/Operation values passed to Run.
type Driver struct {
	log *zap.Logger
	obs *obslog.Manager
	clk *clock.Clock

	runways  *runwaypool.Pool
	gates    *gatepool.Pool
	vehicles *resourcepool.Fleet
	taxi     *taxiway.Graph
	sched    *hmfq.Scheduler
	opIDs    *idgen.Sequence

	crisis     external.CrisisSource
	accountant external.Accountant
	pages      *pagetable.Table

	cfg config.LifecycleConfig
	ctx Context

	holders holderTable
}

// New builds a Driver wired to the shared infrastructure.
func New(
	log *zap.Logger,
	obs *obslog.Manager,
	clk *clock.Clock,
	runways *runwaypool.Pool,
	gates *gatepool.Pool,
	vehicles *resourcepool.Fleet,
	taxi *taxiway.Graph,
	sched *hmfq.Scheduler,
	opIDs *idgen.Sequence,
	crisis external.CrisisSource,
	accountant external.Accountant,
	pages *pagetable.Table,
	cfg config.LifecycleConfig,
	pisCtx Context,
) *Driver {
	return &Driver{
		log:        log.Named("lifecycle"),
		obs:        obs,
		clk:        clk,
		runways:    runways,
		gates:      gates,
		vehicles:   vehicles,
		taxi:       taxi,
		sched:      sched,
		opIDs:      opIDs,
		crisis:     crisis,
		accountant: accountant,
		pages:      pages,
		cfg:        cfg,
		ctx:        pisCtx,
		holders:    newHolderTable(),
	}
}

// holderTable tracks which Operation currently holds each physical runway
// or gate slot, so a waiter blocked on that slot can apply priority
// inheritance to its holder (spec.md §4.11). Resource pools themselves only
// know the occupying flight ID, not the operation object, so the driver -
// the one place that knows both - keeps this side table.
type holderTable struct {
	mu     sync.Mutex
	runway map[int]*operation.Operation
	gate   map[int]*operation.Operation
}

func newHolderTable() holderTable {
	return holderTable{runway: make(map[int]*operation.Operation), gate: make(map[int]*operation.Operation)}
}

func (h *holderTable) setRunway(id int, op *operation.Operation) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.runway[id] = op
}

func (h *holderTable) clearRunway(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.runway, id)
}

func (h *holderTable) setGate(id int, op *operation.Operation) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.gate[id] = op
}

// popGate removes and returns the operation recorded as holding gate id, or
// nil if none is recorded.
func (h *holderTable) popGate(id int) *operation.Operation {
	h.mu.Lock()
	defer h.mu.Unlock()
	op := h.gate[id]
	delete(h.gate, id)
	return op
}

// snapshotGateHolders returns every operation currently recorded as holding
// a gate, for priority-inheritance boosting (spec.md §4.11).
func (h *holderTable) snapshotGateHolders() []*operation.Operation {
	h.mu.Lock()
	defer h.mu.Unlock()
	ops := make([]*operation.Operation, 0, len(h.gate))
	for _, op := range h.gate {
		ops = append(ops, op)
	}
	return ops
}

// severityFactor maps the crisis surface's discrete severity level to the
// [0,1] scale the WRF factor expects (spec.md §4.7).
func severityFactor(s external.Severity) float64 {
	switch s {
	case external.Clear:
		return 0
	case external.Light:
		return 0.25
	case external.Moderate:
		return 0.5
	case external.Severe:
		return 0.85
	case external.Extreme:
		return 1.0
	default:
		return 0
	}
}

// inputsFor builds a hmfq.PISInputs/reserveFuelMin pair for op, pulling in
// the live crisis surface and the driver's simulation-wide totals. fl and
// isOutdoor are captured by the closure the phase helpers build.
func (d *Driver) inputsFor(fl *flight.Flight, op *operation.Operation, isOutdoor bool) (hmfq.PISInputs, float64) {
	severity, window := d.crisis.Weather()
	wait := op.WaitTime.Seconds()
	return hmfq.PISInputs{
		Op:                        op,
		TotalFlights:              d.ctx.TotalFlights(),
		TotalResources:            d.ctx.TotalResources(),
		WaitSeconds:               wait,
		WeatherSeverity:           severityFactor(severity),
		WeatherWindow:             window,
		IsOutdoor:                 isOutdoor,
		EmergencyThresholdMinutes: emergencyThresholdMinutes,
	}, fl.ReserveFuelMinutes
}

// newOp creates and enqueues an operation for the current phase, carrying
// the PIS context fields from the flight (spec.md §4.6, §4.7).
func (d *Driver) newOp(fl *flight.Flight, t operation.Type) *operation.Operation {
	op := operation.New(d.opIDs.Next(), fl.ID, t, operation.Operation{
		FlightPriority: fl.InitialPriority,
		IsEmergency:    fl.Aircraft.Spec.IsEmergency,
		International:  fl.Type == flight.International,
		PassengerCount: fl.PassengerCount,
		ConnectingPax:  fl.ConnectingPax,
	})
	d.sched.Enqueue(op)
	return op
}

// runOp admits op into the scheduler's priority order and then walks the
// cooperative quantum loop until it completes, calling work for each
// granted slice. work should reduce op.RemainingTime and return true when
// the phase is fully done. ctx cancellation aborts the wait (shutdown).
func (d *Driver) runOp(ctx context.Context, fl *flight.Flight, op *operation.Operation, isOutdoor bool, work func() bool) bool {
	inputsFor := func(o *operation.Operation) (hmfq.PISInputs, float64) { return d.inputsFor(fl, o, isOutdoor) }

	for {
		if ctx.Err() != nil {
			return false
		}
		if !d.admit(ctx, op, inputsFor) {
			return false
		}

		done := work()
		if done {
			d.sched.Complete(op, d.cfg.OnTimeTurnaroundSecs)
			return true
		}

		// Quantum expired without finishing (long phases re-enter the
		// ready queue so higher-priority work can interleave).
		d.sched.Preempt(op)
	}
}

// releaseGate hands gateID back to the gate pool and restores its recorded
// holder's pre-boost priority, if inheritance was ever applied to it
// (spec.md §4.11).
func (d *Driver) releaseGate(gateID int) {
	if holder := d.holders.popGate(gateID); holder != nil {
		d.sched.Inheritance().Restore(holder)
	}
	d.gates.Release(gateID)
}

// admit blocks (polling the scheduler at a short interval) until op is the
// scheduler's chosen next-to-run operation, or ctx is canceled.
func (d *Driver) admit(ctx context.Context, op *operation.Operation, inputsFor func(*operation.Operation) (hmfq.PISInputs, float64)) bool {
	const pollInterval = 25 * time.Millisecond
	for {
		if d.sched.TryRun(time.Now(), op, inputsFor) {
			if d.pages != nil {
				d.pages.Touch(op.FlightID, int(op.Type))
			}
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(pollInterval):
		}
	}
}
