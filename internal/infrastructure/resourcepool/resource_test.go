package resourcepool

import (
	"testing"
	"time"
)

func TestFleetAllocateAndRelease(t *testing.T) {
	f := NewFleet(map[Kind]int{FuelTruck: 2})
	if f.Total(FuelTruck) != 2 {
		t.Fatalf("Total(FuelTruck) = %d, want 2", f.Total(FuelTruck))
	}
	id, err := f.Allocate(FuelTruck, "fl-1", time.Now(), time.Minute)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if f.AvailableCount(FuelTruck) != 1 {
		t.Fatalf("AvailableCount after allocate = %d, want 1", f.AvailableCount(FuelTruck))
	}
	f.Release(FuelTruck, id)
	if f.AvailableCount(FuelTruck) != 2 {
		t.Fatalf("AvailableCount after release = %d, want 2", f.AvailableCount(FuelTruck))
	}
}

func TestFleetAllocateFailsWhenExhausted(t *testing.T) {
	f := NewFleet(map[Kind]int{Tug: 1})
	if _, err := f.Allocate(Tug, "fl-1", time.Now(), time.Minute); err != nil {
		t.Fatalf("first Allocate: %v", err)
	}
	if _, err := f.Allocate(Tug, "fl-2", time.Now(), time.Minute); err != ErrNoVehicle {
		t.Errorf("second Allocate on exhausted kind = %v, want ErrNoVehicle", err)
	}
}

func TestFleetReleaseOutOfRangeIsNoop(t *testing.T) {
	f := NewFleet(map[Kind]int{Bus: 1})
	f.Release(Bus, 99) // must not panic
	if f.AvailableCount(Bus) != 1 {
		t.Errorf("AvailableCount after no-op release = %d, want 1", f.AvailableCount(Bus))
	}
}

func capacity(vals ...int) [numKinds]int {
	var c [numKinds]int
	copy(c[:], vals)
	return c
}

func TestBankerRequestWithinNeedAndAvailable(t *testing.T) {
	b := NewBanker(capacity(3, 3, 3, 3, 3, 3, 3))
	b.Register("fl-1", capacity(2, 0, 0, 0, 0, 0, 0))
	if err := b.Request("fl-1", FuelTruck, 2); err != nil {
		t.Fatalf("Request within need/available: %v", err)
	}
	if !b.IsSafe() {
		t.Errorf("state should be safe after a single satisfiable allocation")
	}
}

func TestBankerRequestExceedingMaxNeedRejected(t *testing.T) {
	b := NewBanker(capacity(3, 3, 3, 3, 3, 3, 3))
	b.Register("fl-1", capacity(1, 0, 0, 0, 0, 0, 0))
	if err := b.Request("fl-1", FuelTruck, 2); err != ErrUnsafeOrUnavailable {
		t.Errorf("Request(2) with max_need=1 = %v, want ErrUnsafeOrUnavailable", err)
	}
}

func TestBankerRequestExceedingAvailableRejected(t *testing.T) {
	b := NewBanker(capacity(1, 0, 0, 0, 0, 0, 0))
	b.Register("fl-1", capacity(2, 0, 0, 0, 0, 0, 0))
	if err := b.Request("fl-1", FuelTruck, 2); err != ErrUnsafeOrUnavailable {
		t.Errorf("Request(2) with available=1 = %v, want ErrUnsafeOrUnavailable", err)
	}
}

func TestBankerRejectsUnsafeAllocationAndRollsBack(t *testing.T) {
	// Classic unsafe scenario: two flights each need up to 3 of 4 units of a
	// scarce resource; granting one partial allocation too many leaves
	// neither able to finish regardless of ordering.
	b := NewBanker(capacity(4, 0, 0, 0, 0, 0, 0))
	b.Register("fl-1", capacity(3, 0, 0, 0, 0, 0, 0))
	b.Register("fl-2", capacity(3, 0, 0, 0, 0, 0, 0))

	if err := b.Request("fl-1", FuelTruck, 2); err != nil {
		t.Fatalf("fl-1 Request(2): %v", err)
	}

	// After the grant: available=1, fl-1 need=1, fl-2 need=2: fl-1 can still
	// finish (1<=1), freeing its 2 back to work=3, which covers fl-2's need
	// of 2 — safe.
	if err := b.Request("fl-2", FuelTruck, 1); err != nil {
		t.Fatalf("fl-2 Request(1) should be safe (fl-1 can finish first): %v", err)
	}

	// After this grant: available=0, fl-1 need=1, fl-2 need=1: neither can
	// finish — unsafe. The request must be rejected and fully rolled back.
	if err := b.Request("fl-2", FuelTruck, 1); err != ErrUnsafeOrUnavailable {
		t.Fatalf("fl-2 Request(1) from unsafe state = %v, want ErrUnsafeOrUnavailable", err)
	}
	if b.available[FuelTruck] != 1 {
		t.Errorf("available[FuelTruck] after rejected request = %d, want 1 (rolled back to pre-attempt value)", b.available[FuelTruck])
	}
	if alloc := b.alloc["fl-2"]; alloc[FuelTruck] != 1 {
		t.Errorf("fl-2 alloc[FuelTruck] after rejected request = %d, want 1 (unchanged)", alloc[FuelTruck])
	}
}

func TestBankerReleaseRestoresAvailability(t *testing.T) {
	b := NewBanker(capacity(2, 0, 0, 0, 0, 0, 0))
	b.Register("fl-1", capacity(2, 0, 0, 0, 0, 0, 0))
	if err := b.Request("fl-1", FuelTruck, 2); err != nil {
		t.Fatalf("Request: %v", err)
	}
	b.Release("fl-1", FuelTruck, 2)
	if err := b.Request("fl-1", FuelTruck, 2); err != nil {
		t.Fatalf("Request after release: %v", err)
	}
}

func TestBankerUnregisterRemovesBookkeeping(t *testing.T) {
	b := NewBanker(capacity(1, 0, 0, 0, 0, 0, 0))
	b.Register("fl-1", capacity(1, 0, 0, 0, 0, 0, 0))
	b.Request("fl-1", FuelTruck, 1)
	b.Unregister("fl-1")
	if !b.IsSafe() {
		t.Errorf("state with no registered flights should be trivially safe")
	}
}

func TestNumKinds(t *testing.T) {
	if NumKinds() != int(numKinds) {
		t.Errorf("NumKinds() = %d, want %d", NumKinds(), numKinds)
	}
}
