// Package gatepool implements the compatibility-checked gate reservation
// pool (spec.md §4.4, C4). Per spec.md §9's design note, the original C++
// GateManager carried an always-true Banker's safety scaffold that is not
// meaningful for gates; this pool intentionally implements only
// compatibility + reservation, no Banker's check.
package gatepool

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/edirooss/airportsim/internal/domain/aircraft"
)

// ErrNoGate is returned when no compatible gate is available.
var ErrNoGate = errors.New("gatepool: no compatible gate available")

// GateType is the gate's route-class restriction.
type GateType int

const (
	International GateType = iota
	DomesticOnly
)

// Size is the gate's physical size class.
type Size int

const (
	Large Size = iota
	HeavySize
	MediumSize
	Regional
	Small
)

// compatibleSizes maps aircraft type -> acceptable gate sizes (spec.md §4.4).
var compatibleSizes = map[aircraft.Type][]Size{
	aircraft.A380:      {Large},
	aircraft.B777:      {Large, HeavySize},
	aircraft.B747F:     {Large, HeavySize},
	aircraft.B777F:     {Large, HeavySize},
	aircraft.B737:      {HeavySize, MediumSize},
	aircraft.A320:      {HeavySize, MediumSize},
	aircraft.G650:      {Small, Regional},
	aircraft.Falcon7X:  {Small, Regional},
	aircraft.Emergency: {MediumSize, HeavySize},
}

// Compatible reports whether a gate of the given size can host the aircraft
// type (spec.md §4.4 step 2).
func Compatible(t aircraft.Type, size Size) bool {
	for _, s := range compatibleSizes[t] {
		if s == size {
			return true
		}
	}
	return false
}

type gate struct {
	mu sync.Mutex

	id         int
	gateType   GateType
	size       Size
	jetbridge  bool
	available  bool
	flightID   string
}

// Pool owns a fixed, insertion-ordered set of gates.
type Pool struct {
	mu      sync.Mutex // guards gates slice identity and changed
	gates   []*gate
	changed chan struct{} // closed and replaced on every Release, broadcasting to WaitForChange
}

// Spec describes one gate to create.
type Spec struct {
	Type      GateType
	Size      Size
	Jetbridge bool
}

// New builds a Pool from a list of gate specs, preserving insertion order
// (spec.md §4.4 step 3: "the tie-breaker is insertion order").
func New(specs []Spec) *Pool {
	gates := make([]*gate, len(specs))
	for i, s := range specs {
		gates[i] = &gate{id: i, gateType: s.Type, size: s.Size, jetbridge: s.Jetbridge, available: true}
	}
	return &Pool{gates: gates, changed: make(chan struct{})}
}

// ReserveRequest carries the fields Reserve needs to check compatibility.
type ReserveRequest struct {
	FlightID      string
	AircraftType  aircraft.Type
	International bool
}

// Reserve implements spec.md §4.4's try_reserve: international flights
// require an INTERNATIONAL gate, then size compatibility, then first
// compatible available gate wins by insertion order.
func (p *Pool) Reserve(req ReserveRequest) (int, error) {
	for _, g := range p.gates {
		g.mu.Lock()
		ok := g.available &&
			(!req.International || g.gateType == International) &&
			Compatible(req.AircraftType, g.size)
		if ok {
			g.available = false
			g.flightID = req.FlightID
		}
		g.mu.Unlock()
		if ok {
			return g.id, nil
		}
	}
	return -1, ErrNoGate
}

// Release frees the gate and broadcasts to any WaitForChange waiters
// (spec.md §4.4: "release() marks available and broadcasts").
func (p *Pool) Release(gateID int) {
	if gateID < 0 || gateID >= len(p.gates) {
		return
	}
	g := p.gates[gateID]
	g.mu.Lock()
	g.available = true
	g.flightID = ""
	g.mu.Unlock()

	p.mu.Lock()
	ch := p.changed
	p.changed = make(chan struct{})
	p.mu.Unlock()
	close(ch) // wakes every current WaitForChange waiter; none can miss this
}

// WaitForChange blocks until some gate is released, ctx is canceled, or d
// elapses — whichever first. The lifecycle driver's gate-request retry loop
// (spec.md §4.13 step 6) uses this between poll attempts instead of a flat
// sleep, so a release wakes a waiter immediately rather than after the rest
// of its retry spacing.
//
// Grabbing the current changed channel under p.mu before waiting on it, and
// replacing (not closing in place) that channel on every Release, makes the
// wakeup impossible to miss: there's no window between "start waiting" and
// "register as a waiter" the way a bare sync.Cond.Wait()/Broadcast() pair
// has, so no waiter goroutine can be left blocked past this call.
func (p *Pool) WaitForChange(ctx context.Context, d time.Duration) {
	p.mu.Lock()
	ch := p.changed
	p.mu.Unlock()

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ch:
	case <-timer.C:
	case <-ctx.Done():
	}
}

// AvailableCount returns the number of free gates (for metrics).
func (p *Pool) AvailableCount() int {
	n := 0
	for _, g := range p.gates {
		g.mu.Lock()
		if g.available {
			n++
		}
		g.mu.Unlock()
	}
	return n
}

// Total returns the configured gate count.
func (p *Pool) Total() int { return len(p.gates) }

// Matrix validates that a successful reservation satisfied the compatibility
// matrix (spec.md §8 P3) — exposed for tests.
func Matrix() map[aircraft.Type][]Size { return compatibleSizes }
