package external

import "go.uber.org/zap"

// Accountant receives the lifecycle driver's bookkeeping push calls
// (spec.md §6.4). Cost/revenue accounting itself is out of scope (spec.md
// §1 Non-goals); this interface exists only so C13's bookkeeping phase has
// something concrete to call.
type Accountant interface {
	RecordFuel(flightID string, gallons float64)
	RecordGate(flightID string, hours float64)
	RecordDelay(flightID string, minutes float64, passengers int)
	RecordLanding(flightID string, tons float64, international bool)
	RecordPassengers(flightID string, count int)
}

// LoggingAccountant is the default Accountant: it just logs structured
// records, grounded on the teacher's pervasive "log the domain event,
// don't simulate the domain" style for out-of-scope subsystems.
type LoggingAccountant struct {
	log *zap.Logger
}

func NewLoggingAccountant(log *zap.Logger) *LoggingAccountant {
	return &LoggingAccountant{log: log.Named("accountant")}
}

func (a *LoggingAccountant) RecordFuel(flightID string, gallons float64) {
	a.log.Info("fuel", zap.String("flight_id", flightID), zap.Float64("gallons", gallons))
}

func (a *LoggingAccountant) RecordGate(flightID string, hours float64) {
	a.log.Info("gate", zap.String("flight_id", flightID), zap.Float64("hours", hours))
}

func (a *LoggingAccountant) RecordDelay(flightID string, minutes float64, passengers int) {
	a.log.Info("delay", zap.String("flight_id", flightID), zap.Float64("minutes", minutes), zap.Int("passengers", passengers))
}

func (a *LoggingAccountant) RecordLanding(flightID string, tons float64, international bool) {
	a.log.Info("landing", zap.String("flight_id", flightID), zap.Float64("tons", tons), zap.Bool("international", international))
}

func (a *LoggingAccountant) RecordPassengers(flightID string, count int) {
	a.log.Info("passengers", zap.String("flight_id", flightID), zap.Int("count", count))
}
