// Package resourcepool implements the ground-service-vehicle pool: a full
// Banker's-algorithm safety check (spec.md §4.5, C5) plus the simpler
// single-vehicle allocator the lifecycle driver actually uses today, per
// spec.md §4.5's "the Banker's interface remains available for future use."
package resourcepool

import (
	"errors"
	"sync"
	"time"
)

// Kind is a ground-service vehicle type.
type Kind int

const (
	FuelTruck Kind = iota
	Catering
	BaggageCart
	CleaningCrew
	Bus
	Tug
	GroundPowerUnit
	numKinds
)

func (k Kind) String() string {
	switch k {
	case FuelTruck:
		return "FUEL_TRUCK"
	case Catering:
		return "CATERING"
	case BaggageCart:
		return "BAGGAGE_CART"
	case CleaningCrew:
		return "CLEANING_CREW"
	case Bus:
		return "BUS"
	case Tug:
		return "TUG"
	case GroundPowerUnit:
		return "GROUND_POWER_UNIT"
	default:
		return "UNKNOWN"
	}
}

var (
	// ErrUnsafeOrUnavailable is returned when a Banker's request would
	// exceed need/availability or leave the system in an unsafe state
	// (spec.md §4.5, §7).
	ErrUnsafeOrUnavailable = errors.New("resourcepool: unsafe or unavailable")
	// ErrNoVehicle is returned by the simple allocator when no unit of a
	// kind is free.
	ErrNoVehicle = errors.New("resourcepool: no vehicle available")
)

// --- Banker's algorithm ------------------------------------------------

// Banker maintains, for N kinds and the currently registered flights, the
// available/max_need/allocation/need matrices of spec.md §4.5.
type Banker struct {
	mu sync.Mutex

	available [numKinds]int
	maxNeed   map[string][numKinds]int
	alloc     map[string][numKinds]int
}

// CapacityFromCounts builds a Banker capacity vector from the same
// per-kind vehicle-count map NewFleet takes, so a caller can size both
// pools from one configuration (spec.md §4.5). The two pools keep separate
// counts: allocating from one does not change the other.
func CapacityFromCounts(counts map[Kind]int) [numKinds]int {
	var capacity [numKinds]int
	for k, n := range counts {
		capacity[k] = n
	}
	return capacity
}

// NewBanker builds a Banker's pool with the given per-kind capacities.
func NewBanker(capacity [numKinds]int) *Banker {
	return &Banker{
		available: capacity,
		maxNeed:   make(map[string][numKinds]int),
		alloc:     make(map[string][numKinds]int),
	}
}

// Register declares a flight's maximum simultaneous need per kind. Must be
// called before Request for that flight.
func (b *Banker) Register(flightID string, maxNeed [numKinds]int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.maxNeed[flightID] = maxNeed
	if _, ok := b.alloc[flightID]; !ok {
		b.alloc[flightID] = [numKinds]int{}
	}
}

// Unregister removes a flight's bookkeeping entirely (its lifecycle ended).
func (b *Banker) Unregister(flightID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.maxNeed, flightID)
	delete(b.alloc, flightID)
}

// need returns flightID's remaining need per kind. Caller holds b.mu.
func (b *Banker) need(flightID string) [numKinds]int {
	max := b.maxNeed[flightID]
	cur := b.alloc[flightID]
	var n [numKinds]int
	for i := range n {
		n[i] = max[i] - cur[i]
	}
	return n
}

// Request admits k units of kind for flightID iff k <= need, k <= available,
// and the tentative post-allocation state is safe (spec.md §4.5).
func (b *Banker) Request(flightID string, kind Kind, k int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	need := b.need(flightID)
	if k > need[kind] || k > b.available[kind] {
		return ErrUnsafeOrUnavailable
	}

	// Tentatively allocate.
	b.available[kind] -= k
	alloc := b.alloc[flightID]
	alloc[kind] += k
	b.alloc[flightID] = alloc

	if b.isSafeLocked() {
		return nil
	}

	// Roll back.
	b.available[kind] += k
	alloc[kind] -= k
	b.alloc[flightID] = alloc
	return ErrUnsafeOrUnavailable
}

// Release returns k units of kind from flightID, restoring need.
func (b *Banker) Release(flightID string, kind Kind, k int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	alloc := b.alloc[flightID]
	if k > alloc[kind] {
		k = alloc[kind]
	}
	alloc[kind] -= k
	b.alloc[flightID] = alloc
	b.available[kind] += k
}

// isSafeLocked runs the Banker's safety check: find a permutation of
// flights whose remaining need fits in a running work vector, returning
// its allocation to work once "finished". Caller holds b.mu.
func (b *Banker) isSafeLocked() bool {
	flights := make([]string, 0, len(b.maxNeed))
	for f := range b.maxNeed {
		flights = append(flights, f)
	}

	work := b.available
	finished := make(map[string]bool, len(flights))

	for progressed := true; progressed && len(finished) < len(flights); {
		progressed = false
		for _, f := range flights {
			if finished[f] {
				continue
			}
			need := b.need(f)
			fits := true
			for i := range need {
				if need[i] > work[i] {
					fits = false
					break
				}
			}
			if !fits {
				continue
			}
			alloc := b.alloc[f]
			for i := range work {
				work[i] += alloc[i]
			}
			finished[f] = true
			progressed = true
		}
	}

	return len(finished) == len(flights)
}

// IsSafe reports whether the current global state is safe (spec.md §8 P4).
func (b *Banker) IsSafe() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.isSafeLocked()
}

// --- Simple single-vehicle allocator ------------------------------------

type vehicle struct {
	mu               sync.Mutex
	id               int
	kind             Kind
	available        bool
	flightID         string
	assignedAt       time.Time
	expectedDuration time.Duration
}

// Fleet is the simple per-vehicle reservation pool the lifecycle driver
// actually calls (spec.md §4.5: "bypasses Banker's and uses per-vehicle
// reservation; it is what the lifecycle driver actually uses today").
type Fleet struct {
	vehicles map[Kind][]*vehicle
}

// NewFleet builds a Fleet with counts[k] vehicles of each kind.
func NewFleet(counts map[Kind]int) *Fleet {
	f := &Fleet{vehicles: make(map[Kind][]*vehicle)}
	for kind, n := range counts {
		vs := make([]*vehicle, n)
		for i := range vs {
			vs[i] = &vehicle{id: i, kind: kind, available: true}
		}
		f.vehicles[kind] = vs
	}
	return f
}

// Allocate reserves the first available vehicle of kind for flightID.
func (f *Fleet) Allocate(kind Kind, flightID string, now time.Time, expectedDuration time.Duration) (int, error) {
	for _, v := range f.vehicles[kind] {
		v.mu.Lock()
		if v.available {
			v.available = false
			v.flightID = flightID
			v.assignedAt = now
			v.expectedDuration = expectedDuration
			v.mu.Unlock()
			return v.id, nil
		}
		v.mu.Unlock()
	}
	return -1, ErrNoVehicle
}

// Release frees a vehicle of kind by id.
func (f *Fleet) Release(kind Kind, id int) {
	vs := f.vehicles[kind]
	if id < 0 || id >= len(vs) {
		return
	}
	v := vs[id]
	v.mu.Lock()
	v.available = true
	v.flightID = ""
	v.mu.Unlock()
}

// AvailableCount returns the free-vehicle count for a kind (for metrics).
func (f *Fleet) AvailableCount(kind Kind) int {
	n := 0
	for _, v := range f.vehicles[kind] {
		v.mu.Lock()
		if v.available {
			n++
		}
		v.mu.Unlock()
	}
	return n
}

// Total returns the configured vehicle count for a kind.
func (f *Fleet) Total(kind Kind) int { return len(f.vehicles[kind]) }

// NumKinds exposes the fixed kind count for callers building capacity maps.
func NumKinds() int { return int(numKinds) }
