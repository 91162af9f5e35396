package lifecycle

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/edirooss/airportsim/internal/domain/flight"
	"github.com/edirooss/airportsim/internal/domain/operation"
	"github.com/edirooss/airportsim/internal/infrastructure/gatepool"
	"github.com/edirooss/airportsim/internal/infrastructure/obslog"
	"github.com/edirooss/airportsim/internal/infrastructure/resourcepool"
	"github.com/edirooss/airportsim/internal/infrastructure/runwaypool"
	"github.com/edirooss/airportsim/internal/service/external"
)

// outcome is the terminal result of one flight's lifecycle, for logging and
// metrics (spec.md §4.13's three exits: serviced, diverted, failed).
type outcome int

const (
	outcomeServiced outcome = iota
	outcomeDiverted
	outcomeFailed
)

// Run drives one flight through the ten phases of spec.md §4.13. It is
// meant to be launched as its own goroutine by the engine's dispatcher, one
// per admitted flight; it never touches another flight's state.
func (d *Driver) Run(ctx context.Context, fl *flight.Flight) {
	log := d.log.With(zap.String("flight_id", fl.ID))

	result := d.runPhases(ctx, fl, log)
	if d.pages != nil {
		d.pages.Evict(fl.ID)
	}

	switch result {
	case outcomeServiced:
		d.obs.Log(obslog.Scheduling, "flight serviced", zap.String("flight_id", fl.ID))
	case outcomeDiverted:
		d.obs.Log(obslog.Scheduling, "flight diverted", zap.String("flight_id", fl.ID), zap.Int("go_arounds", fl.GoAroundCount))
	case outcomeFailed:
		d.obs.Log(obslog.Scheduling, "flight failed", zap.String("flight_id", fl.ID))
	}
}

func (d *Driver) runPhases(ctx context.Context, fl *flight.Flight, log *zap.Logger) outcome {
	// --- Phase 1: approach ---
	if err := fl.SetStatus(flight.Approaching); err != nil {
		log.Error("status transition failed", zap.Error(err))
		return outcomeFailed
	}
	landingOp := d.newOp(fl, operation.Landing)

	weightClass := fl.Aircraft.Spec.WeightClass

	// --- Phase 2: runway request with go-around ---
	runwayID, diverted := d.acquireRunway(ctx, fl, log)
	if diverted {
		d.sched.Abort(landingOp)
		return outcomeDiverted
	}
	if ctx.Err() != nil {
		d.sched.Abort(landingOp)
		return outcomeFailed
	}
	d.holders.setRunway(runwayID, landingOp)
	if err := fl.AssignRunway(runwayID); err != nil {
		log.Error("runway assignment invariant violated", zap.Error(err))
	}

	// --- Phase 3: landing ---
	if err := fl.SetStatus(flight.Landing); err != nil {
		log.Error("status transition failed", zap.Error(err))
	}
	if !d.runQuantum(ctx, fl, landingOp, true) {
		d.holders.clearRunway(runwayID)
		d.runways.Release(runwayID, weightClass)
		return outcomeFailed
	}
	fl.ActualArrival = time.Now()

	// --- Phase 4: runway release ---
	d.holders.clearRunway(runwayID)
	d.runways.Release(runwayID, weightClass)
	if err := fl.AssignRunway(-1); err != nil {
		log.Error("runway release invariant violated", zap.Error(err))
	}

	// --- Phase 5: taxi to gate ---
	if err := fl.SetStatus(flight.TaxiingToGate); err != nil {
		log.Error("status transition failed", zap.Error(err))
	}
	taxiOpIn := d.newOp(fl, operation.Taxiing)
	d.taxiPhase(ctx, fl, taxiOpIn, 5 /* runway-hold */, 0 /* apron */)

	// --- Phase 6: gate request ---
	gateArrivalOp := d.newOp(fl, operation.GateArrival)
	gateID, ok := d.acquireGate(ctx, fl, gateArrivalOp, log)
	if !ok {
		d.sched.Abort(gateArrivalOp)
		return outcomeFailed
	}
	d.holders.setGate(gateID, gateArrivalOp)
	if !d.runQuantum(ctx, fl, gateArrivalOp, false) {
		d.releaseGate(gateID)
		return outcomeFailed
	}
	if err := fl.AssignGate(gateID); err != nil {
		log.Error("gate assignment invariant violated", zap.Error(err))
	}
	if err := fl.SetStatus(flight.AtGate); err != nil {
		log.Error("status transition failed", zap.Error(err))
	}
	gateHeldAt := time.Now()

	// --- Phase 7: at-gate servicing ---
	if err := fl.SetStatus(flight.Servicing); err != nil {
		log.Error("status transition failed", zap.Error(err))
	}
	gpuID, err := d.acquireVehicleRetry(ctx, resourcepool.GroundPowerUnit, fl, log)
	if err != nil {
		d.releaseGate(gateID)
		return outcomeFailed
	}

	fuelGallons := 0.6 * fl.Aircraft.Spec.FuelCapacityGal
	if !d.runGroundService(ctx, fl, operation.Refueling, resourcepool.FuelTruck, log) ||
		!d.runGroundService(ctx, fl, operation.Catering, resourcepool.Catering, log) ||
		!d.runGroundService(ctx, fl, operation.Cleaning, resourcepool.CleaningCrew, log) ||
		!d.runGroundService(ctx, fl, operation.Baggage, resourcepool.BaggageCart, log) {
		d.vehicles.Release(resourcepool.GroundPowerUnit, gpuID)
		d.releaseGate(gateID)
		return outcomeFailed
	}

	if err := fl.SetStatus(flight.Boarding); err != nil {
		log.Error("status transition failed", zap.Error(err))
	}
	boardingOp := d.newOp(fl, operation.Boarding)
	if !d.runQuantum(ctx, fl, boardingOp, false) {
		d.vehicles.Release(resourcepool.GroundPowerUnit, gpuID)
		d.releaseGate(gateID)
		return outcomeFailed
	}

	// --- Phase 8: pushback ---
	tugID, err := d.acquireVehicleRetry(ctx, resourcepool.Tug, fl, log)
	if err != nil {
		d.vehicles.Release(resourcepool.GroundPowerUnit, gpuID)
		d.releaseGate(gateID)
		return outcomeFailed
	}
	d.vehicles.Release(resourcepool.GroundPowerUnit, gpuID)

	gateDepartureOp := d.newOp(fl, operation.GateDeparture)
	if !d.runQuantum(ctx, fl, gateDepartureOp, false) {
		d.vehicles.Release(resourcepool.Tug, tugID)
		d.releaseGate(gateID)
		return outcomeFailed
	}
	d.vehicles.Release(resourcepool.Tug, tugID)
	gateHours := time.Since(gateHeldAt).Hours()
	d.releaseGate(gateID)

	// --- taxi to runway (phase 8/9 boundary) ---
	if err := fl.SetStatus(flight.TaxiingToRunway); err != nil {
		log.Error("status transition failed", zap.Error(err))
	}
	taxiOpOut := d.newOp(fl, operation.Taxiing)
	d.taxiPhase(ctx, fl, taxiOpOut, 0, 5)

	// --- Phase 9: departure ---
	if err := fl.SetStatus(flight.Departing); err != nil {
		log.Error("status transition failed", zap.Error(err))
	}
	takeoffOp := d.newOp(fl, operation.Takeoff)
	d.runQuantum(ctx, fl, takeoffOp, true)
	fl.ActualDeparture = time.Now()
	if err := fl.SetStatus(flight.Departed); err != nil {
		log.Error("status transition failed", zap.Error(err))
	}

	// --- Phase 10: bookkeeping ---
	turnaround := fl.Turnaround()
	onTime := turnaround <= d.cfg.OnTimeTurnaroundSecs
	d.obs.Log(obslog.Performance, "turnaround", zap.String("flight_id", fl.ID),
		zap.Float64("turnaround_seconds", turnaround), zap.Bool("on_time", onTime))

	delayMinutes := fl.ActualArrival.Sub(fl.ScheduledArrival).Minutes()
	if delayMinutes < 0 {
		delayMinutes = 0
	}
	d.accountant.RecordFuel(fl.ID, fuelGallons+float64(fl.GoAroundCount)*d.cfg.GoAroundFuelGallons)
	d.accountant.RecordGate(fl.ID, gateHours)
	d.accountant.RecordDelay(fl.ID, delayMinutes, fl.PassengerCount)
	d.accountant.RecordLanding(fl.ID, fl.Aircraft.Spec.CargoCapacityTons, fl.Type == flight.International)
	d.accountant.RecordPassengers(fl.ID, fl.PassengerCount)

	return outcomeServiced
}

// runQuantum runs op to completion through the scheduler's quantum loop
// (spec.md §4.9/§4.12): each admitted slice burns min(quantum, remaining),
// Q0 operations run to completion in one slice. Returns false if ctx is
// canceled before completion.
func (d *Driver) runQuantum(ctx context.Context, fl *flight.Flight, op *operation.Operation, isOutdoor bool) bool {
	return d.runOp(ctx, fl, op, isOutdoor, func() bool {
		quantum := d.sched.Quantum(op)
		slice := op.RemainingTime
		if quantum > 0 && quantum < slice {
			slice = quantum
		}
		if !d.clk.Sleep(ctx, slice.Seconds()) {
			return false
		}
		op.RemainingTime -= slice
		return op.RemainingTime <= 0
	})
}

// acquireRunway implements spec.md §4.13 step 2: poll for a runway,
// go-around on persistent failure or bad weather, divert after
// MAX_GO_AROUNDS. Returns (runwayID, diverted).
func (d *Driver) acquireRunway(ctx context.Context, fl *flight.Flight, log *zap.Logger) (int, bool) {
	weightClass := fl.Aircraft.Spec.WeightClass
	for {
		if ctx.Err() != nil {
			return -1, false
		}

		severity, _ := d.crisis.Weather()
		blocked := severity >= external.Severe || d.crisis.GroundStop()

		if !blocked {
			if id, err := d.runways.Reserve(ctx, fl.ID, weightClass); err == nil {
				return id, false
			} else if err != runwaypool.ErrNoRunway {
				return -1, false
			}
		}

		if err := fl.SetStatus(flight.GoAround); err != nil {
			// Already diverted or cap exceeded upstream; treat as divert.
			return -1, true
		}
		log.Info("go-around", zap.Int("count", fl.GoAroundCount))

		if !d.clk.Sleep(ctx, d.cfg.GoAroundPenalty.Seconds()) {
			return -1, false
		}
		if err := fl.SetStatus(flight.Approaching); err != nil {
			log.Error("status transition failed", zap.Error(err))
		}

		if fl.GoAroundCount >= flight.MaxGoArounds {
			return -1, true
		}
	}
}

// acquireGate implements spec.md §4.13 step 6. While waiting it applies
// priority inheritance (spec.md §4.11) to whatever operation the holder
// table says currently occupies each gate, using the docking operation as a
// stand-in for the flight's entire at-gate hold.
func (d *Driver) acquireGate(ctx context.Context, fl *flight.Flight, waiter *operation.Operation, log *zap.Logger) (int, bool) {
	req := gatepool.ReserveRequest{
		FlightID:      fl.ID,
		AircraftType:  fl.Aircraft.Spec.Type,
		International: fl.Type == flight.International,
	}
	for attempt := 0; attempt < d.cfg.GateRetryAttempts; attempt++ {
		if ctx.Err() != nil {
			return -1, false
		}
		id, err := d.gates.Reserve(req)
		if err == nil {
			return id, true
		}
		d.boostGateHolders(waiter)
		d.gates.WaitForChange(ctx, d.cfg.GateRetrySpacing)
	}
	log.Warn("gate request exhausted retries")
	return -1, false
}

// boostGateHolders applies priority inheritance to every operation currently
// recorded as holding a gate, on behalf of waiter (spec.md §4.11).
func (d *Driver) boostGateHolders(waiter *operation.Operation) {
	for _, holder := range d.holders.snapshotGateHolders() {
		d.sched.Inheritance().Boost(holder, waiter)
	}
}

// acquireVehicleRetry polls the fleet for one vehicle of kind, bounded by
// the gate retry budget (spec.md §4.13 step 7: "each with its own retry
// budget").
func (d *Driver) acquireVehicleRetry(ctx context.Context, kind resourcepool.Kind, fl *flight.Flight, log *zap.Logger) (int, error) {
	var lastErr error
	for attempt := 0; attempt < d.cfg.GateRetryAttempts; attempt++ {
		if ctx.Err() != nil {
			return -1, ctx.Err()
		}
		id, err := d.vehicles.Allocate(kind, fl.ID, time.Now(), 0)
		if err == nil {
			return id, nil
		}
		lastErr = err
		if !d.clk.Sleep(ctx, d.cfg.GateRetrySpacing.Seconds()) {
			return -1, ctx.Err()
		}
	}
	log.Warn("vehicle request exhausted retries", zap.String("kind", kind.String()))
	return -1, lastErr
}

// runGroundService acquires one vehicle kind, runs its operation to
// completion, and releases the vehicle (spec.md §4.13 step 7: "sequentially
// acquire/release ... each with its own retry budget").
func (d *Driver) runGroundService(ctx context.Context, fl *flight.Flight, opType operation.Type, kind resourcepool.Kind, log *zap.Logger) bool {
	vehID, err := d.acquireVehicleRetry(ctx, kind, fl, log)
	if err != nil {
		return false
	}
	op := d.newOp(fl, opType)
	ok := d.runQuantum(ctx, fl, op, false)
	d.vehicles.Release(kind, vehID)
	return ok
}

// taxiPhase sleeps the taxi duration, consulting the taxiway graph for a
// real path-weighted duration where available (spec.md §8 supplement),
// falling back to the flat configured interval.
func (d *Driver) taxiPhase(ctx context.Context, fl *flight.Flight, op *operation.Operation, from, to int) {
	duration := d.cfg.DefaultTaxiInterval
	if path, seconds, ok := d.taxi.ShortestPath(from, to); ok && len(path) > 0 {
		if d.taxi.TryReservePath(path, fl.ID) {
			defer d.taxi.ReleasePath(path)
			duration = time.Duration(seconds * float64(time.Second))
		}
	}
	op.RemainingTime = duration
	op.TotalTime = duration
	d.runQuantum(ctx, fl, op, true)
}
