// Package engine implements the engine orchestrator (spec.md §4.14, C14):
// it owns the clock, event queue, resource pools, and scheduler, and runs
// the dispatcher/generator/metrics-sampler workers plus the clock's own
// ticker.
//
// Grounded on processmgr.ProcessManager2's cooperative-loop shape
// (mainloop + a handful of cooperating goroutines sharing one mutex-guarded
// table), generalized from one worker to four coordinated ones via
// golang.org/x/sync/errgroup — the pack's own concurrency-utility
// dependency (golang.org/x/sync is already a direct dep for singleflight)
// once there's more than one worker to supervise, instead of PM2's ad hoc
// `go m.mainloop()` plus hand-rolled signal channel.
package engine

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/edirooss/airportsim/internal/config"
	"github.com/edirooss/airportsim/internal/domain/aircraft"
	"github.com/edirooss/airportsim/internal/domain/flight"
	"github.com/edirooss/airportsim/internal/domain/taxiway"
	"github.com/edirooss/airportsim/internal/infrastructure/clock"
	"github.com/edirooss/airportsim/internal/infrastructure/eventqueue"
	"github.com/edirooss/airportsim/internal/infrastructure/gatepool"
	"github.com/edirooss/airportsim/internal/infrastructure/hmfq"
	"github.com/edirooss/airportsim/internal/infrastructure/idgen"
	"github.com/edirooss/airportsim/internal/infrastructure/obslog"
	"github.com/edirooss/airportsim/internal/infrastructure/pagetable"
	"github.com/edirooss/airportsim/internal/infrastructure/resourcepool"
	"github.com/edirooss/airportsim/internal/infrastructure/runwaypool"
	"github.com/edirooss/airportsim/internal/service/external"
	"github.com/edirooss/airportsim/internal/service/lifecycle"
)

// defaultGateLayout is the fixed gate set the engine stands up, sized so
// scenario 3 of spec.md §8 (5 A380s against 2 LARGE INTERNATIONAL gates)
// is reachable: exactly 2 LARGE/INTERNATIONAL gates plus a realistic mix of
// the remaining sizes.
var defaultGateLayout = []gatepool.Spec{
	{Type: gatepool.International, Size: gatepool.Large, Jetbridge: true},
	{Type: gatepool.International, Size: gatepool.Large, Jetbridge: true},
	{Type: gatepool.International, Size: gatepool.HeavySize, Jetbridge: true},
	{Type: gatepool.DomesticOnly, Size: gatepool.HeavySize, Jetbridge: true},
	{Type: gatepool.DomesticOnly, Size: gatepool.MediumSize, Jetbridge: false},
	{Type: gatepool.DomesticOnly, Size: gatepool.MediumSize, Jetbridge: false},
	{Type: gatepool.International, Size: gatepool.Regional, Jetbridge: false},
	{Type: gatepool.DomesticOnly, Size: gatepool.Small, Jetbridge: false},
}

// defaultVehicleCounts sizes the ground-service fleet.
var defaultVehicleCounts = map[resourcepool.Kind]int{
	resourcepool.FuelTruck:       3,
	resourcepool.Catering:        3,
	resourcepool.BaggageCart:     4,
	resourcepool.CleaningCrew:    3,
	resourcepool.Bus:             2,
	resourcepool.Tug:             3,
	resourcepool.GroundPowerUnit: 4,
}

const runwayCount = 4

// Engine owns every long-lived piece of simulator state and runs the
// dispatcher/generator/metrics-sampler/clock workers (spec.md §4.14).
type Engine struct {
	log *zap.Logger
	obs *obslog.Manager
	cfg config.Config

	clk    *clock.Clock
	events *eventqueue.Queue

	runways   *runwaypool.Pool
	gates     *gatepool.Pool
	vehicles  *resourcepool.Fleet
	resources *resourcepool.Banker
	taxi      *taxiway.Graph
	pages     *pagetable.Table

	sched *hmfq.Scheduler

	opIDs *idgen.Sequence

	crisis     *external.InMemoryCrisis
	accountant external.Accountant

	driver *lifecycle.Driver

	rngMu sync.Mutex
	rng   *rand.Rand

	registry flightRegistry
	stats    stats

	onEvent func(kind string, payload any) // optional telemetry hook (internal/telemetry/feed)
}

// flightRegistry tracks every currently-admitted flight, so the metrics
// snapshot can classify active flights by status (spec.md §6.1).
type flightRegistry struct {
	mu    sync.Mutex
	byID  map[string]*flight.Flight
}

func newFlightRegistry() flightRegistry {
	return flightRegistry{byID: make(map[string]*flight.Flight)}
}

func (r *flightRegistry) add(f *flight.Flight) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[f.ID] = f
}

func (r *flightRegistry) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, id)
}

func (r *flightRegistry) snapshot() []*flight.Flight {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*flight.Flight, 0, len(r.byID))
	for _, f := range r.byID {
		out = append(out, f)
	}
	return out
}

func (r *flightRegistry) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

// stats holds the atomic counters spec.md §5 calls for ("Atomic counters
// carry metrics without locks"): totals are plain int64 counters; the
// turnaround sum is kept in milliseconds so it fits an int64 counter too.
type stats struct {
	totalHandled      atomic.Int64
	onTimeCount       atomic.Int64
	turnaroundSumMs   atomic.Int64
	turnaroundSamples atomic.Int64
}

// New builds an Engine from cfg, wiring every sub-component the same way
// main would, minus actually starting the workers (call Run for that).
func New(log *zap.Logger, obs *obslog.Manager, cfg config.Config, seed int64) *Engine {
	log = log.Named("engine")

	pis := hmfq.NewCalculator(cfg.PIS)
	aging := hmfq.NewAgingManager(cfg.Aging)
	quantum := hmfq.NewQuantumManager(cfg.Quantum)
	preempt := hmfq.NewPreemptionManager(cfg.Preemption)
	inherit := hmfq.NewInheritanceTable()
	learning := hmfq.NewLearningEngine(cfg.Learning)
	sched := hmfq.New(pis, aging, quantum, preempt, inherit, learning)

	clk := clock.New()
	e := &Engine{
		log:        log,
		obs:        obs,
		cfg:        cfg,
		clk:        clk,
		events:     eventqueue.New(),
		runways:    runwaypool.New(runwayCount, clk),
		gates:      gatepool.New(defaultGateLayout),
		vehicles:   resourcepool.NewFleet(defaultVehicleCounts),
		resources:  resourcepool.NewBanker(resourcepool.CapacityFromCounts(defaultVehicleCounts)),
		taxi:       taxiway.Default(),
		pages:      pagetable.New(),
		sched:      sched,
		opIDs:      &idgen.Sequence{},
		crisis:     external.NewInMemoryCrisis(),
		accountant: external.NewLoggingAccountant(log),
		rng:        rand.New(rand.NewSource(seed)), // spec.md §9: one seeded generator per worker
		registry:   newFlightRegistry(),
	}

	pisCtx := lifecycle.Context{
		TotalFlights:   e.registry.count,
		TotalResources: e.totalResources,
	}
	e.driver = lifecycle.New(log, obs, e.clk, e.runways, e.gates, e.vehicles, e.taxi, sched,
		e.opIDs, e.crisis, e.accountant, e.pages, cfg.Lifecycle, pisCtx)

	return e
}

// totalResources is the RUI factor's denominator: runways + gates + every
// ground-service vehicle (spec.md §4.7).
func (e *Engine) totalResources() int {
	total := e.runways.Total() + e.gates.Total()
	for k := resourcepool.FuelTruck; k < resourcepool.Kind(resourcepool.NumKinds()); k++ {
		total += e.vehicles.Total(k)
	}
	return total
}

// Scheduler exposes the shared scheduler, e.g. for the control HTTP
// surface's weight-update handler (spec.md §6.3).
func (e *Engine) Scheduler() *hmfq.Scheduler { return e.sched }

// Crisis exposes the shared crisis surface (spec.md §6.3).
func (e *Engine) Crisis() *external.InMemoryCrisis { return e.crisis }

// Logs exposes the channel log manager (spec.md §6.5/§6.6).
func (e *Engine) Logs() *obslog.Manager { return e.obs }

// Resources exposes the Banker's-algorithm resource pool for the control
// HTTP surface's safety-check diagnostic (spec.md §4.5, C5).
func (e *Engine) Resources() *resourcepool.Banker { return e.resources }

// OnEvent registers a hook invoked for every dispatched event and
// completion, used by internal/telemetry/feed's optional Redis publisher.
// Must be called before Run.
func (e *Engine) OnEvent(fn func(kind string, payload any)) { e.onEvent = fn }

func (e *Engine) emit(kind string, payload any) {
	if e.onEvent != nil {
		e.onEvent(kind, payload)
	}
}

// Run starts the dispatcher, generator, metrics-sampler, and clock workers
// under an errgroup.Group sharing ctx, and blocks until ctx is canceled or
// one worker returns an error (spec.md §4.14's shutdown: "a cancellation
// flag stops all workers cooperatively").
func (e *Engine) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { e.runClockLoop(ctx); return nil })
	g.Go(func() error { e.runDispatcher(ctx); return nil })
	g.Go(func() error { e.runGenerator(ctx); return nil })
	g.Go(func() error { e.runMetricsSampler(ctx); return nil })

	return g.Wait()
}

// metricsSample is the lightweight snapshot the metrics-sampler worker emits
// every MetricsSampleInterval, distinct from internal/api/metrics.Service's
// pull-based, singleflight-coalesced HTTP snapshot: this one is push-only,
// feeding internal/telemetry/feed's optional Redis publisher the same way
// dispatch already feeds it flight_arrival/flight_departed events.
type metricsSample struct {
	SimTime         int64
	ActiveFlights   int
	HandledTotal    int64
	OnTimeCount     int64
	MeanTurnaround  float64
	QueueDepths     [5]int
	ContextSwitches int64
}

// runMetricsSampler implements spec.md §4.14's metrics-sampler worker: every
// MetricsSampleInterval, push a snapshot through the telemetry hook.
func (e *Engine) runMetricsSampler(ctx context.Context) {
	ticker := time.NewTicker(e.cfg.Engine.MetricsSampleInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			handled, onTime, mean := e.HandledTotals()
			e.emit("metrics_sample", metricsSample{
				SimTime:         e.SimTime(),
				ActiveFlights:   e.registry.count(),
				HandledTotal:    handled,
				OnTimeCount:     onTime,
				MeanTurnaround:  mean,
				QueueDepths:     e.QueueDepths(),
				ContextSwitches: e.ContextSwitches(),
			})
		}
	}
}

func (e *Engine) runClockLoop(ctx context.Context) {
	ticker := time.NewTicker(e.cfg.Engine.ClockTick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.clk.Advance(1)
		}
	}
}

// runDispatcher implements spec.md §4.14's dispatcher: peek the queue, pop
// and process due events, else sleep a short interval.
func (e *Engine) runDispatcher(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		head, ok := e.events.Peek()
		if !ok || head.At.After(time.Now()) {
			select {
			case <-ctx.Done():
				return
			case <-time.After(e.cfg.Engine.DispatcherPollInterval):
			}
			continue
		}
		ev, ok := e.events.TryPop()
		if !ok {
			continue
		}
		e.dispatch(ctx, ev)
	}
}

// dispatch implements the sum-type event dispatch spec.md §9 calls for
// ("a sum type over event kinds + a central dispatch(event, engine)
// function") in place of the original's virtual Event::process().
func (e *Engine) dispatch(ctx context.Context, ev *eventqueue.Event) {
	switch ev.Kind {
	case eventqueue.FlightArrival:
		fl, ok := ev.Payload.(*flight.Flight)
		if !ok {
			return
		}
		e.registry.add(fl)
		e.emit("flight_arrival", fl.ID)
		go func() {
			defer e.registry.remove(fl.ID)
			e.driver.Run(ctx, fl)
			e.recordCompletion(fl)
			e.emit("flight_departed", fl.ID)
		}()
	case eventqueue.CrisisUpdate:
		// Payload shape is owned by the crisis surface's push handler
		// (spec.md §6.3); nothing further to do here, the handler already
		// mutated e.crisis directly.
	default:
		e.log.Warn("unknown event kind", zap.Int("kind", int(ev.Kind)))
	}
}

func (e *Engine) recordCompletion(fl *flight.Flight) {
	if fl.Status() != flight.Departed {
		return // diverted or failed before reaching departure
	}
	turnaround := fl.Turnaround()
	e.stats.totalHandled.Add(1)
	e.stats.turnaroundSumMs.Add(int64(turnaround * 1000))
	e.stats.turnaroundSamples.Add(1)
	if turnaround <= e.cfg.Lifecycle.OnTimeTurnaroundSecs {
		e.stats.onTimeCount.Add(1)
	}
}

// runGenerator implements spec.md §4.14's flight generator: every
// [GeneratorMinInterval, GeneratorMaxInterval), if active flight count is
// below the admission cap, create a flight and push a FlightArrivalEvent.
func (e *Engine) runGenerator(ctx context.Context) {
	for {
		interval := e.randInterval(e.cfg.Engine.GeneratorMinInterval, e.cfg.Engine.GeneratorMaxInterval)
		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
		if e.registry.count() >= e.cfg.Engine.MaxActiveFlights {
			continue
		}
		fl := e.generateFlight()
		ev := &eventqueue.Event{
			Kind:     eventqueue.FlightArrival,
			At:       fl.ScheduledArrival,
			Priority: eventPriority(fl.InitialPriority),
			Payload:  fl,
		}
		e.events.Push(ev)
		e.obs.Log(obslog.Events, "flight generated", zap.String("flight_id", fl.ID))
	}
}

// eventPriority maps a flight's "lower number is more urgent" priority
// convention onto the event queue's "higher wins" convention (spec.md
// §6.2's documented inversion), at event-creation time as the spec
// prescribes.
func eventPriority(flightPriority int) int {
	return 1000 - flightPriority
}

func (e *Engine) randInterval(lo, hi time.Duration) time.Duration {
	e.rngMu.Lock()
	defer e.rngMu.Unlock()
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(e.rng.Int63n(int64(hi-lo)))
}

// generateFlight samples a random airline/aircraft/route-type flight
// arriving 5-30s in the future with a departure 120-300s after that
// (spec.md §4.14). Every use of e.rng, including flight.New's own
// pax/fuel sampling, happens while rngMu is held — math/rand.Rand is not
// safe for concurrent use, and the generator is the only place that
// touches this particular generator (spec.md §9: "one seeded generator
// per worker").
func (e *Engine) generateFlight() *flight.Flight {
	e.rngMu.Lock()
	defer e.rngMu.Unlock()

	types := aircraft.All()
	t := types[e.rng.Intn(len(types))]
	isIntl := e.rng.Intn(2) == 0
	arrivalOffset := 5 + e.rng.Intn(26)
	departureOffset := 120 + e.rng.Intn(181)

	ac, ok := aircraft.New(uuid.NewString(), t)
	if !ok {
		ac, _ = aircraft.New(uuid.NewString(), aircraft.A320)
	}

	ftype := flight.Domestic
	if isIntl {
		ftype = flight.International
	}

	now := time.Now()
	scheduledArrival := now.Add(time.Duration(arrivalOffset) * time.Second)
	scheduledDeparture := scheduledArrival.Add(time.Duration(departureOffset) * time.Second)

	id := fmt.Sprintf("FL-%s", uuid.NewString()[:8])
	return flight.New(id, ac, ftype, scheduledArrival, scheduledDeparture, e.rng)
}

// --- accessors for internal/api/metrics.Source ---------------------------

// ActiveFlights returns every flight currently admitted to the engine.
func (e *Engine) ActiveFlights() []*flight.Flight { return e.registry.snapshot() }

// SimTime returns the current simulated clock value.
func (e *Engine) SimTime() int64 { return e.clk.Now() }

// RunwayCounts returns (available, total) runways.
func (e *Engine) RunwayCounts() (available, total int) {
	return e.runways.AvailableCount(), e.runways.Total()
}

// GateCounts returns (available, total) gates.
func (e *Engine) GateCounts() (available, total int) {
	return e.gates.AvailableCount(), e.gates.Total()
}

// HandledTotals returns the completion counters accumulated so far:
// total flights handled, how many were on time, and the mean turnaround in
// seconds (0 if none have completed yet).
func (e *Engine) HandledTotals() (handled, onTime int64, meanTurnaroundSecs float64) {
	handled = e.stats.totalHandled.Load()
	onTime = e.stats.onTimeCount.Load()
	samples := e.stats.turnaroundSamples.Load()
	if samples == 0 {
		return handled, onTime, 0
	}
	meanTurnaroundSecs = float64(e.stats.turnaroundSumMs.Load()) / float64(samples) / 1000.0
	return handled, onTime, meanTurnaroundSecs
}

// PageFaults returns the simulation-wide page fault/hit counters and rate
// (spec.md §6.1).
func (e *Engine) PageFaults() (faults, hits int64, rate float64) {
	faults, hits = e.pages.Counts()
	return faults, hits, e.pages.FaultRate()
}

// QueueDepths returns each scheduler queue's current length (Q0..Q4).
func (e *Engine) QueueDepths() [5]int { return e.sched.QueueDepths() }

// ContextSwitches returns the scheduler's running dispatch-decision total.
func (e *Engine) ContextSwitches() int64 { return e.sched.ContextSwitches() }

// debugState is everything internal/debug.DumpState prints on SIGUSR1.
type debugState struct {
	SimTime          int64
	ActiveFlightIDs  []string
	QueueDepths      [5]int
	ContextSwitches  int64
	HandledTotal     int64
	OnTimeCount      int64
	MeanTurnaround   float64
	PageFaults       int64
	PageHits         int64
	PageFaultRate    float64
	AvailableRunways int
	AvailableGates   int
}

// DebugState implements internal/debug.Dumper.
func (e *Engine) DebugState() any {
	flights := e.registry.snapshot()
	ids := make([]string, len(flights))
	for i, f := range flights {
		ids[i] = fmt.Sprintf("%s:%s", f.ID, f.Status())
	}
	handled, onTime, mean := e.HandledTotals()
	faults, hits, rate := e.PageFaults()
	availRwy, _ := e.RunwayCounts()
	availGate, _ := e.GateCounts()

	return debugState{
		SimTime:          e.SimTime(),
		ActiveFlightIDs:  ids,
		QueueDepths:      e.QueueDepths(),
		ContextSwitches:  e.ContextSwitches(),
		HandledTotal:     handled,
		OnTimeCount:      onTime,
		MeanTurnaround:   mean,
		PageFaults:       faults,
		PageHits:         hits,
		PageFaultRate:    rate,
		AvailableRunways: availRwy,
		AvailableGates:   availGate,
	}
}
