// Package aircraft holds the table-driven aircraft type catalogue
// (spec.md §3: "All of these are table-driven from the type tag; the table
// is the single source of truth").
package aircraft

import "github.com/edirooss/airportsim/internal/config"

// Type is the aircraft type tag.
type Type string

const (
	A380      Type = "A380"
	B777      Type = "B777"
	B747F     Type = "B747F"
	B777F     Type = "B777F"
	B737      Type = "B737"
	A320      Type = "A320"
	G650      Type = "G650"
	Falcon7X  Type = "Falcon7X"
	Emergency Type = "Emergency"
)

// Spec is the immutable catalogue entry for one aircraft type.
type Spec struct {
	Type               Type
	WeightClass        config.WeightClass
	PassengerCapacity  int
	FuelCapacityGal    float64
	CargoCapacityTons  float64
	BaselineServiceMin float64
	IsCargo            bool
	IsPrivate          bool
	IsEmergency        bool
}

// catalogue is the single source of truth for every aircraft type tag.
var catalogue = map[Type]Spec{
	A380: {Type: A380, WeightClass: config.Heavy, PassengerCapacity: 525, FuelCapacityGal: 85500, BaselineServiceMin: 90},
	B777: {Type: B777, WeightClass: config.Heavy, PassengerCapacity: 396, FuelCapacityGal: 47900, BaselineServiceMin: 75},
	B747F: {Type: B747F, WeightClass: config.Heavy, PassengerCapacity: 0, FuelCapacityGal: 63500, CargoCapacityTons: 134,
		BaselineServiceMin: 80, IsCargo: true},
	B777F: {Type: B777F, WeightClass: config.Heavy, PassengerCapacity: 0, FuelCapacityGal: 47900, CargoCapacityTons: 102,
		BaselineServiceMin: 80, IsCargo: true},
	B737:     {Type: B737, WeightClass: config.Medium, PassengerCapacity: 189, FuelCapacityGal: 6875, BaselineServiceMin: 45},
	A320:     {Type: A320, WeightClass: config.Medium, PassengerCapacity: 180, FuelCapacityGal: 6400, BaselineServiceMin: 45},
	G650:     {Type: G650, WeightClass: config.Light, PassengerCapacity: 18, FuelCapacityGal: 4160, BaselineServiceMin: 30, IsPrivate: true},
	Falcon7X: {Type: Falcon7X, WeightClass: config.Light, PassengerCapacity: 14, FuelCapacityGal: 3200, BaselineServiceMin: 30, IsPrivate: true},
	Emergency: {Type: Emergency, WeightClass: config.Medium, PassengerCapacity: 150, FuelCapacityGal: 6000,
		BaselineServiceMin: 30, IsEmergency: true},
}

// Lookup returns the catalogue entry for a type tag.
func Lookup(t Type) (Spec, bool) {
	s, ok := catalogue[t]
	return s, ok
}

// All returns every known type tag, for generator sampling.
func All() []Type {
	out := make([]Type, 0, len(catalogue))
	for t := range catalogue {
		out = append(out, t)
	}
	return out
}

// Aircraft is an immutable instance of a catalogue entry, created once per
// flight by the generator (spec.md §3 "Aircraft (immutable once created)").
type Aircraft struct {
	ID   string
	Spec Spec
}

// New creates an immutable Aircraft from a known type tag.
func New(id string, t Type) (*Aircraft, bool) {
	spec, ok := Lookup(t)
	if !ok {
		return nil, false
	}
	return &Aircraft{ID: id, Spec: spec}, true
}
