// Package flight holds the Flight record and its status state machine
// (spec.md §3).
package flight

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/edirooss/airportsim/internal/domain/aircraft"
)

// Type is the flight's route class.
type Type int

const (
	Domestic Type = iota
	International
)

// Status is the flight's lifecycle status (spec.md §3).
type Status int

const (
	Scheduled Status = iota
	Approaching
	GoAround
	Landing
	TaxiingToGate
	AtGate
	Servicing
	Boarding
	TaxiingToRunway
	Departing
	Departed
)

func (s Status) String() string {
	switch s {
	case Scheduled:
		return "SCHEDULED"
	case Approaching:
		return "APPROACHING"
	case GoAround:
		return "GO_AROUND"
	case Landing:
		return "LANDING"
	case TaxiingToGate:
		return "TAXIING_TO_GATE"
	case AtGate:
		return "AT_GATE"
	case Servicing:
		return "SERVICING"
	case Boarding:
		return "BOARDING"
	case TaxiingToRunway:
		return "TAXIING_TO_RUNWAY"
	case Departing:
		return "DEPARTING"
	case Departed:
		return "DEPARTED"
	default:
		return "UNKNOWN"
	}
}

// Initial priority classes (spec.md §3).
const (
	PriorityEmergency = 0
	PriorityNormal    = 50
	PriorityCargo      = 60
	PriorityPrivate    = 80
)

// Flight is the mutable per-arrival record. It owns its Aircraft for the
// duration of its lifecycle task (spec.md §9's ownership-arena strategy:
// lifecycle tasks hold the owning handle, everyone else looks up by ID
// under the owner's lock).
type Flight struct {
	mu sync.Mutex

	ID       string
	Aircraft *aircraft.Aircraft
	Type     Type

	status Status

	ScheduledArrival   time.Time
	ActualArrival      time.Time
	ScheduledDeparture time.Time
	ActualDeparture    time.Time

	PassengerCount      int
	ConnectingPax        int
	ReserveFuelMinutes   float64
	InitialPriority      int
	GoAroundCount        int

	AssignedRunwayID int // -1 when none
	AssignedGateID   int // -1 when none
}

// New constructs a flight with the randomized attributes of spec.md §3.
// rng must be a per-worker generator (spec.md §9: "one seeded generator per
// worker", never a shared/global one).
func New(id string, ac *aircraft.Aircraft, typ Type, scheduledArrival, scheduledDeparture time.Time, rng *rand.Rand) *Flight {
	capacity := ac.Spec.PassengerCapacity
	pax := int(float64(capacity) * uniform(rng, 0.70, 1.00))
	connecting := int(float64(pax) * 0.15)

	priority := PriorityNormal
	switch {
	case ac.Spec.IsEmergency:
		priority = PriorityEmergency
	case ac.Spec.IsCargo:
		priority = PriorityCargo
	case ac.Spec.IsPrivate:
		priority = PriorityPrivate
	}

	return &Flight{
		ID:                 id,
		Aircraft:           ac,
		Type:               typ,
		status:             Scheduled,
		ScheduledArrival:   scheduledArrival,
		ScheduledDeparture: scheduledDeparture,
		PassengerCount:     pax,
		ConnectingPax:      connecting,
		ReserveFuelMinutes: uniform(rng, 30, 60),
		InitialPriority:    priority,
		AssignedRunwayID:   -1,
		AssignedGateID:     -1,
	}
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

// Status returns the current status under lock.
func (f *Flight) Status() Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

// validTransitions enumerates the monotone status arc plus the GO_AROUND
// retry arc (spec.md §3 invariant, §8 P8).
var validTransitions = map[Status][]Status{
	Scheduled:       {Approaching},
	Approaching:     {GoAround, Landing},
	GoAround:        {Approaching},
	Landing:         {TaxiingToGate},
	TaxiingToGate:   {AtGate},
	AtGate:          {Servicing},
	Servicing:       {Boarding},
	Boarding:        {TaxiingToRunway},
	TaxiingToRunway: {Departing},
	Departing:       {Departed},
}

// MaxGoArounds bounds the GO_AROUND retry arc (spec.md §4.13, §9).
const MaxGoArounds = 3

// SetStatus transitions the flight, enforcing monotonicity (spec.md §3, P8).
func (f *Flight) SetStatus(s Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if s == GoAround {
		if f.status != Approaching {
			return fmt.Errorf("flight %s: GO_AROUND only valid from APPROACHING, was %s", f.ID, f.status)
		}
		if f.GoAroundCount >= MaxGoArounds {
			return fmt.Errorf("flight %s: go-around cap (%d) exceeded", f.ID, MaxGoArounds)
		}
		f.GoAroundCount++
		f.status = GoAround
		return nil
	}

	allowed := validTransitions[f.status]
	for _, a := range allowed {
		if a == s {
			f.status = s
			return nil
		}
	}
	return fmt.Errorf("flight %s: invalid transition %s -> %s", f.ID, f.status, s)
}

// AssignRunway records the runway id and enforces the at-most-one invariant.
func (f *Flight) AssignRunway(id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.AssignedRunwayID != -1 && id != -1 {
		return fmt.Errorf("flight %s already holds runway %d", f.ID, f.AssignedRunwayID)
	}
	f.AssignedRunwayID = id
	return nil
}

// AssignGate records the gate id and enforces the at-most-one invariant.
func (f *Flight) AssignGate(id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.AssignedGateID != -1 && id != -1 {
		return fmt.Errorf("flight %s already holds gate %d", f.ID, f.AssignedGateID)
	}
	f.AssignedGateID = id
	return nil
}

// Turnaround computes actual_departure - actual_arrival in seconds.
func (f *Flight) Turnaround() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ActualDeparture.Sub(f.ActualArrival).Seconds()
}
