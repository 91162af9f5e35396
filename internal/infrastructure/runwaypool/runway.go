// Package runwaypool implements the runway reservation pool with
// wake-turbulence separation (spec.md §4.3, C3).
//
// Each runway carries its own mutex, the same per-resource locking shape as
// processmgr.slotPool, generalized from a counting semaphore to a
// single-owner reservation; the separation wait blocks on the shared
// simulated clock rather than a per-runway condition variable.
package runwaypool

import (
	"context"
	"errors"
	"sync"

	"github.com/edirooss/airportsim/internal/config"
	"github.com/edirooss/airportsim/internal/infrastructure/clock"
)

// ErrNoRunway is returned when no runway is available after the caller's
// retry budget (spec.md §4.3 "Failures").
var ErrNoRunway = errors.New("runwaypool: no runway available")

// runway is one physical runway.
type runway struct {
	mu sync.Mutex

	id        int
	name      string
	available bool
	flightID  string // current occupant, "" if none

	lastDepartureAt int64 // simulated seconds
	lastClass       config.WeightClass
	hasLastClass    bool
}

// Pool owns a fixed set of runways. Separation is timed against clk, the
// same simulated clock the rest of the lifecycle driver runs on, so the
// wait scales with the engine's configured tick cadence instead of wall time.
type Pool struct {
	runways []*runway
	clk     *clock.Clock
}

// New builds a Pool with n runways named "A-0", "B-1", "C-2", ... (a letter
// cycling through A-Z, then the index), timed against clk.
func New(n int, clk *clock.Clock) *Pool {
	rs := make([]*runway, n)
	for i := range rs {
		rs[i] = &runway{id: i, name: runwayName(i), available: true}
	}
	return &Pool{runways: rs, clk: clk}
}

func runwayName(i int) string {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	return string(letters[i%len(letters)]) + "-" + itoa(i)
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var buf [20]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		pos--
		buf[pos] = '-'
	}
	return string(buf[pos:])
}

// Reserve attempts to reserve any available runway for flightID, honoring
// wake-turbulence separation against that runway's last departure, timed on
// the pool's simulated clock (spec.md §4.3 steps 1-4).
//
// The pool scans runways for a cheap-available candidate, then hands off to
// that runway's own reserve path; if the race is lost, it returns
// ErrNoRunway and the caller (the lifecycle driver) retries, exactly as
// spec.md §4.3's last paragraph describes.
func (p *Pool) Reserve(ctx context.Context, flightID string, weightClass config.WeightClass) (int, error) {
	for _, r := range p.runways {
		if ok := r.tryReserve(ctx, p.clk, flightID, weightClass); ok {
			return r.id, nil
		}
	}
	return -1, ErrNoRunway
}

// tryReserve implements spec.md §4.3 steps 1-4 for a single runway.
func (r *runway) tryReserve(ctx context.Context, clk *clock.Clock, flightID string, weightClass config.WeightClass) bool {
	r.mu.Lock()

	if !r.available {
		r.mu.Unlock()
		return false
	}

	if r.hasLastClass {
		sep := config.WakeSeparationSeconds[r.lastClass][weightClass]
		elapsed := float64(clk.Now() - r.lastDepartureAt)
		if elapsed < sep {
			remaining := sep - elapsed
			r.mu.Unlock()
			// Block on the simulated clock, not wall time, so separation
			// scales with the engine's configured tick cadence (spec.md
			// §4.3 step 3: "block... up to S-elapsed").
			if !clk.Sleep(ctx, remaining) {
				return false
			}
			r.mu.Lock()
			// Re-check availability after waking (spec.md §4.3 step 3).
			if !r.available {
				r.mu.Unlock()
				return false
			}
		}
	}

	r.available = false
	r.flightID = flightID
	r.mu.Unlock()
	return true
}

// Release frees runway runwayID, whatever flight occupies it, recording the departure
// time and weight class for the next wake-separation check (spec.md §4.3).
func (p *Pool) Release(runwayID int, weightClass config.WeightClass) {
	if runwayID < 0 || runwayID >= len(p.runways) {
		return
	}
	r := p.runways[runwayID]
	r.mu.Lock()
	r.available = true
	r.flightID = ""
	r.lastDepartureAt = p.clk.Now()
	r.lastClass = weightClass
	r.hasLastClass = true
	r.mu.Unlock()
}

// AvailableCount returns the number of runways currently free (for metrics).
func (p *Pool) AvailableCount() int {
	n := 0
	for _, r := range p.runways {
		r.mu.Lock()
		if r.available {
			n++
		}
		r.mu.Unlock()
	}
	return n
}

// Total returns the configured runway count.
func (p *Pool) Total() int { return len(p.runways) }

// OccupantOf reports the flight currently on a runway, for invariant
// checks (spec.md §8 P1).
func (p *Pool) OccupantOf(runwayID int) (string, bool) {
	if runwayID < 0 || runwayID >= len(p.runways) {
		return "", false
	}
	r := p.runways[runwayID]
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.available {
		return "", false
	}
	return r.flightID, true
}
