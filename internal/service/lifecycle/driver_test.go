package lifecycle

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/edirooss/airportsim/internal/config"
	"github.com/edirooss/airportsim/internal/domain/aircraft"
	"github.com/edirooss/airportsim/internal/domain/flight"
	"github.com/edirooss/airportsim/internal/domain/taxiway"
	"github.com/edirooss/airportsim/internal/infrastructure/clock"
	"github.com/edirooss/airportsim/internal/infrastructure/gatepool"
	"github.com/edirooss/airportsim/internal/infrastructure/hmfq"
	"github.com/edirooss/airportsim/internal/infrastructure/idgen"
	"github.com/edirooss/airportsim/internal/infrastructure/obslog"
	"github.com/edirooss/airportsim/internal/infrastructure/resourcepool"
	"github.com/edirooss/airportsim/internal/infrastructure/runwaypool"
	"github.com/edirooss/airportsim/internal/service/external"
)

// testHarness wires one Driver against real pool/scheduler infrastructure,
// sized for a single flight at a time, plus a background goroutine that
// races the simulated clock forward so runQuantum's sleeps settle in a few
// milliseconds of wall time regardless of how many simulated seconds a
// phase bills.
type testHarness struct {
	driver *Driver
	clk    *clock.Clock
	crisis *external.InMemoryCrisis
	stop   chan struct{}
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()
	logDir := t.TempDir()
	log := zap.NewNop()
	obs, err := obslog.New(log, logDir)
	if err != nil {
		t.Fatalf("obslog.New: %v", err)
	}
	t.Cleanup(func() { _ = obs.Close() })

	clk := clock.New()
	runways := runwaypool.New(1, clk)
	gates := gatepool.New([]gatepool.Spec{{Type: gatepool.DomesticOnly, Size: gatepool.MediumSize, Jetbridge: true}})
	vehicles := resourcepool.NewFleet(map[resourcepool.Kind]int{
		resourcepool.FuelTruck:       1,
		resourcepool.Catering:        1,
		resourcepool.BaggageCart:     1,
		resourcepool.CleaningCrew:    1,
		resourcepool.Bus:             1,
		resourcepool.Tug:             1,
		resourcepool.GroundPowerUnit: 1,
	})
	taxi := taxiway.Default()

	sched := hmfq.New(
		hmfq.NewCalculator(config.DefaultPISWeights()),
		hmfq.NewAgingManager(config.DefaultAgingConfig()),
		hmfq.NewQuantumManager(config.DefaultQuantumConfig()),
		hmfq.NewPreemptionManager(config.DefaultPreemptionConfig()),
		hmfq.NewInheritanceTable(),
		hmfq.NewLearningEngine(config.DefaultLearningConfig()),
	)

	crisis := external.NewInMemoryCrisis()
	accountant := external.NewLoggingAccountant(log)

	cfg := config.DefaultLifecycleConfig()
	cfg.GoAroundPenalty = 10 * time.Millisecond
	cfg.GateRetrySpacing = 10 * time.Millisecond

	pisCtx := Context{TotalFlights: func() int { return 1 }, TotalResources: func() int { return 1 }}

	d := New(log, obs, clk, runways, gates, vehicles, taxi, sched, &idgen.Sequence{}, crisis, accountant, nil, cfg, pisCtx)

	h := &testHarness{driver: d, clk: clk, crisis: crisis, stop: make(chan struct{})}
	go func() {
		ticker := time.NewTicker(2 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-h.stop:
				return
			case <-ticker.C:
				clk.Advance(2000)
			}
		}
	}()
	t.Cleanup(func() { close(h.stop) })
	return h
}

func newTestFlight(t *testing.T, id string) *flight.Flight {
	t.Helper()
	ac, ok := aircraft.New(id+"-ac", aircraft.B737)
	if !ok {
		t.Fatalf("aircraft.New(B737) failed")
	}
	now := time.Now()
	fl := flight.New(id, ac, flight.Domestic, now, now.Add(time.Hour), rand.New(rand.NewSource(1)))
	return fl
}

func TestRunHappyPathReachesDeparted(t *testing.T) {
	h := newTestHarness(t)
	fl := newTestFlight(t, "fl-happy")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	h.driver.Run(ctx, fl)

	if fl.Status() != flight.Departed {
		t.Fatalf("Status() = %v, want Departed", fl.Status())
	}
	if fl.AssignedRunwayID != -1 {
		t.Errorf("AssignedRunwayID = %d after departure, want -1 (released)", fl.AssignedRunwayID)
	}
	if fl.AssignedGateID != -1 {
		t.Errorf("AssignedGateID = %d after departure, want -1 (released)", fl.AssignedGateID)
	}
	if fl.ActualArrival.IsZero() || fl.ActualDeparture.IsZero() {
		t.Errorf("expected both ActualArrival and ActualDeparture to be set")
	}
}

func TestRunDivertsAfterGroundStopExhaustsGoArounds(t *testing.T) {
	h := newTestHarness(t)
	h.crisis.Report(external.Clear, 1.0, true) // ground stop: runway never available

	fl := newTestFlight(t, "fl-divert")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	h.driver.Run(ctx, fl)

	// acquireRunway resets status back to Approaching after each go-around's
	// penalty wait before checking the cap, so the terminal status on divert
	// is Approaching, not GoAround.
	if fl.Status() != flight.Approaching {
		t.Errorf("Status() = %v, want Approaching (diverted after go-around cap)", fl.Status())
	}
	if fl.GoAroundCount != flight.MaxGoArounds {
		t.Errorf("GoAroundCount = %d, want %d (cap reached before divert)", fl.GoAroundCount, flight.MaxGoArounds)
	}
}

func TestRunFailsWhenGateRetriesExhausted(t *testing.T) {
	h := newTestHarness(t)
	cfg := h.driver.cfg
	cfg.GateRetryAttempts = 2
	cfg.GateRetrySpacing = 5 * time.Millisecond
	h.driver.cfg = cfg

	// Occupy the only gate with a different flight first.
	occupied, err := h.driver.gates.Reserve(gatepool.ReserveRequest{FlightID: "fl-occupant", AircraftType: aircraft.B737})
	if err != nil {
		t.Fatalf("occupying gate: %v", err)
	}
	defer h.driver.gates.Release(occupied)

	fl := newTestFlight(t, "fl-no-gate")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	h.driver.Run(ctx, fl)

	// Landing/taxi succeed (no gate needed yet); gate request exhausts
	// retries, so the flight never reaches AtGate or Departed.
	if fl.Status() == flight.Departed {
		t.Fatalf("Status() = Departed, want a status earlier than gate assignment")
	}
	if fl.AssignedGateID != -1 {
		t.Errorf("AssignedGateID = %d, want -1 (never acquired)", fl.AssignedGateID)
	}
}
