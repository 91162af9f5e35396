package aircraft

import (
	"testing"

	"github.com/edirooss/airportsim/internal/config"
)

func TestLookupKnownTypes(t *testing.T) {
	for _, ty := range All() {
		spec, ok := Lookup(ty)
		if !ok {
			t.Fatalf("Lookup(%s) missing from catalogue", ty)
		}
		if spec.Type != ty {
			t.Errorf("Lookup(%s).Type = %s, want %s", ty, spec.Type, ty)
		}
		if spec.BaselineServiceMin <= 0 {
			t.Errorf("Lookup(%s).BaselineServiceMin = %v, want > 0", ty, spec.BaselineServiceMin)
		}
	}
}

func TestLookupUnknownType(t *testing.T) {
	if _, ok := Lookup(Type("NOPE")); ok {
		t.Fatalf("Lookup(NOPE) = ok, want not found")
	}
}

func TestCargoAircraftHaveNoPassengers(t *testing.T) {
	for _, ty := range []Type{B747F, B777F} {
		spec, _ := Lookup(ty)
		if !spec.IsCargo {
			t.Errorf("%s.IsCargo = false, want true", ty)
		}
		if spec.PassengerCapacity != 0 {
			t.Errorf("%s.PassengerCapacity = %d, want 0", ty, spec.PassengerCapacity)
		}
		if spec.WeightClass != config.Heavy {
			t.Errorf("%s.WeightClass = %v, want Heavy", ty, spec.WeightClass)
		}
	}
}

func TestPrivateAircraftAreLight(t *testing.T) {
	for _, ty := range []Type{G650, Falcon7X} {
		spec, _ := Lookup(ty)
		if !spec.IsPrivate {
			t.Errorf("%s.IsPrivate = false, want true", ty)
		}
		if spec.WeightClass != config.Light {
			t.Errorf("%s.WeightClass = %v, want Light", ty, spec.WeightClass)
		}
	}
}

func TestNewUnknownTypeFails(t *testing.T) {
	if ac, ok := New("ac-1", Type("NOPE")); ok || ac != nil {
		t.Fatalf("New(NOPE) = (%v, %v), want (nil, false)", ac, ok)
	}
}

func TestNewKnownType(t *testing.T) {
	ac, ok := New("ac-1", B737)
	if !ok {
		t.Fatalf("New(B737) failed")
	}
	if ac.ID != "ac-1" || ac.Spec.Type != B737 {
		t.Errorf("New(B737) = %+v, want ID=ac-1 Spec.Type=B737", ac)
	}
}

func TestAllReturnsEveryType(t *testing.T) {
	all := All()
	if len(all) != len(catalogue) {
		t.Fatalf("All() returned %d types, want %d", len(all), len(catalogue))
	}
	seen := make(map[Type]bool, len(all))
	for _, ty := range all {
		seen[ty] = true
	}
	for ty := range catalogue {
		if !seen[ty] {
			t.Errorf("All() missing %s", ty)
		}
	}
}
