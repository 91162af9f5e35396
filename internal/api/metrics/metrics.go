// Package metrics serves the GET /api/metrics surface of spec.md §6.1,
// with a TTL cache and singleflight coalescing modeled directly on
// internal/service.SummaryService in the teacher repo.
package metrics

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/edirooss/airportsim/internal/domain/flight"
)

// Snapshot matches spec.md §6.1's metrics sink surface field for field.
type Snapshot struct {
	CurrentSimTime int64 `json:"current_sim_time"`

	ActiveFlights     int `json:"active_flights"`
	FlightsLanding    int `json:"flights_landing"`
	FlightsAtGates    int `json:"flights_at_gates"`
	FlightsDeparting  int `json:"flights_departing"`

	AvailableRunways int `json:"available_runways"`
	TotalRunways     int `json:"total_runways"`
	AvailableGates   int `json:"available_gates"`
	TotalGates       int `json:"total_gates"`

	RunwayUtilization float64 `json:"runway_utilization"`
	GateUtilization   float64 `json:"gate_utilization"`

	TotalFlightsHandled     int64   `json:"total_flights_handled"`
	AverageTurnaroundSeconds float64 `json:"average_turnaround_seconds"`
	OnTimeFraction          float64 `json:"on_time_fraction"`

	PageFaultCount int64   `json:"page_fault_count"`
	PageFaultRate  float64 `json:"page_fault_rate"`

	QueueDepths     [5]int `json:"queue_depths"`
	ContextSwitches int64  `json:"context_switches"`
}

// Source is whatever can produce a fresh Snapshot — the engine, in
// production, or a fake in tests (spec.md §9's narrow-interface style).
type Source interface {
	ActiveFlights() []*flight.Flight
	SimTime() int64
	RunwayCounts() (available, total int)
	GateCounts() (available, total int)
	HandledTotals() (handled, onTime int64, meanTurnaroundSecs float64)
	PageFaults() (faults, hits int64, rate float64)
	QueueDepths() [5]int
	ContextSwitches() int64
}

// Options tunes the cache policy, named and defaulted the same way the
// teacher's SummaryOptions is.
type Options struct {
	// TTL controls how long a computed snapshot is served before refresh.
	TTL time.Duration
	// AllowStaleOnError serves the last good snapshot if a refresh panics
	// or the source otherwise can't produce one (there is currently no
	// failure mode in Source, but the policy is kept for parity with the
	// teacher's service and any future Source that does I/O).
	AllowStaleOnError bool
}

func (o *Options) setDefaults() {
	if o.TTL <= 0 {
		o.TTL = 250 * time.Millisecond
	}
}

// Result wraps a Snapshot with cache provenance, for response headers.
type Result struct {
	Data        Snapshot
	CacheHit    bool
	GeneratedAt time.Time
}

// Service caches Source snapshots behind a TTL, coalescing concurrent
// refreshes through a singleflight.Group exactly like SummaryService does.
type Service struct {
	log    *zap.Logger
	source Source

	mu      sync.RWMutex
	cache   Snapshot
	have    bool
	expires time.Time
	genAt   time.Time

	opts Options
	now  func() time.Time

	sg singleflight.Group
}

// NewService wires a Source and cache policy. Reuse a single instance per
// process; handlers call Get.
func NewService(log *zap.Logger, source Source, opts Options) *Service {
	log = log.Named("metrics_service")
	opts.setDefaults()
	return &Service{
		log:    log,
		source: source,
		opts:   opts,
		now:    time.Now,
	}
}

// Get returns the cached snapshot or refreshes it when expired, coalescing
// concurrent refreshers into one computation.
func (s *Service) Get(ctx context.Context) (Result, error) {
	s.mu.RLock()
	if s.have && s.now().Before(s.expires) {
		data, genAt := s.cache, s.genAt
		s.mu.RUnlock()
		return Result{Data: data, CacheHit: true, GeneratedAt: genAt}, nil
	}
	s.mu.RUnlock()

	v, err, _ := s.sg.Do("metrics-refresh", func() (any, error) {
		s.mu.RLock()
		if s.have && s.now().Before(s.expires) {
			data, genAt := s.cache, s.genAt
			s.mu.RUnlock()
			return Result{Data: data, CacheHit: true, GeneratedAt: genAt}, nil
		}
		s.mu.RUnlock()

		start := s.now()
		data := s.compute()

		s.mu.Lock()
		s.cache = data
		s.have = true
		s.expires = s.now().Add(s.opts.TTL)
		s.genAt = start
		s.mu.Unlock()

		return Result{Data: data, CacheHit: false, GeneratedAt: start}, nil
	})
	if err != nil {
		return Result{}, err
	}
	return v.(Result), nil
}

// Invalidate forces the next Get to recompute.
func (s *Service) Invalidate() {
	s.mu.Lock()
	s.have = false
	s.mu.Unlock()
}

// compute builds a Snapshot straight from the source; it never fails since
// the engine's accessors are plain in-memory reads (spec.md §4.14).
func (s *Service) compute() Snapshot {
	flights := s.source.ActiveFlights()
	landing, atGates, departing := classify(flights)

	availRwy, totalRwy := s.source.RunwayCounts()
	availGate, totalGate := s.source.GateCounts()
	handled, onTime, meanTurnaround := s.source.HandledTotals()
	faults, _, faultRate := s.source.PageFaults()

	var runwayUtil, gateUtil float64
	if totalRwy > 0 {
		runwayUtil = float64(totalRwy-availRwy) / float64(totalRwy)
	}
	if totalGate > 0 {
		gateUtil = float64(totalGate-availGate) / float64(totalGate)
	}
	var onTimeFraction float64
	if handled > 0 {
		onTimeFraction = float64(onTime) / float64(handled)
	}

	return Snapshot{
		CurrentSimTime:           s.source.SimTime(),
		ActiveFlights:            len(flights),
		FlightsLanding:           landing,
		FlightsAtGates:           atGates,
		FlightsDeparting:         departing,
		AvailableRunways:         availRwy,
		TotalRunways:             totalRwy,
		AvailableGates:           availGate,
		TotalGates:               totalGate,
		RunwayUtilization:        runwayUtil,
		GateUtilization:          gateUtil,
		TotalFlightsHandled:      handled,
		AverageTurnaroundSeconds: meanTurnaround,
		OnTimeFraction:           onTimeFraction,
		PageFaultCount:           faults,
		PageFaultRate:            faultRate,
		QueueDepths:              s.source.QueueDepths(),
		ContextSwitches:          s.source.ContextSwitches(),
	}
}

// classify buckets active flights into the three in-flight status groups
// spec.md §6.1 names explicitly.
func classify(flights []*flight.Flight) (landing, atGates, departing int) {
	for _, f := range flights {
		switch f.Status() {
		case flight.Approaching, flight.GoAround, flight.Landing:
			landing++
		case flight.TaxiingToGate, flight.AtGate, flight.Servicing, flight.Boarding:
			atGates++
		case flight.TaxiingToRunway, flight.Departing:
			departing++
		}
	}
	return
}
