// Package config centralizes the simulator's tunables.
//
// Defaults mirror spec.md's tables exactly; everything here is a value, never
// a package-level singleton, and is threaded through constructors the way
// the teacher repo threads *zap.Logger through every service constructor.
package config

import "time"

// WeightClass is the aircraft wake-turbulence category.
type WeightClass int

const (
	Heavy WeightClass = iota
	Medium
	Light
)

func (w WeightClass) String() string {
	switch w {
	case Heavy:
		return "HEAVY"
	case Medium:
		return "MEDIUM"
	case Light:
		return "LIGHT"
	default:
		return "UNKNOWN"
	}
}

// WakeSeparationSeconds is S[leading][trailing] in seconds (spec.md §4.3).
var WakeSeparationSeconds = [3][3]float64{
	Heavy:  {Heavy: 90, Medium: 120, Light: 180},
	Medium: {Heavy: 60, Medium: 60, Light: 90},
	Light:  {Heavy: 60, Medium: 60, Light: 60},
}

// PISWeights are the 5-factor PIS weights (spec.md §4.7). Must sum to 1 ± 0.01.
type PISWeights struct {
	Alpha float64 // DPF
	Beta  float64 // CRF
	Gamma float64 // RUI
	Delta float64 // WRF
	Eps   float64 // FCF
}

// DefaultPISWeights matches spec.md §4.7's stated defaults.
func DefaultPISWeights() PISWeights {
	return PISWeights{Alpha: 0.25, Beta: 0.20, Gamma: 0.15, Delta: 0.20, Eps: 0.20}
}

// Sum returns the total of the five weights.
func (w PISWeights) Sum() float64 {
	return w.Alpha + w.Beta + w.Gamma + w.Delta + w.Eps
}

// Valid reports whether the weights sum to 1 within ±0.01 (spec.md §4.7, P7).
func (w PISWeights) Valid() bool {
	s := w.Sum()
	return s >= 0.99 && s <= 1.01
}

// AgingConfig holds the per-queue aging time constants (spec.md §4.8).
type AgingConfig struct {
	// BaseRate scales age_increment = BaseRate * exp(wait / T[q]).
	BaseRate float64
	// AgeWeight scales the PIS boost applied from the age increment.
	AgeWeight float64
	// T[q] in seconds; T[0] is unused (Q0 never ages).
	T [5]float64
	// GuaranteedThreshold[q] in seconds; index 0 and 1 unused.
	GuaranteedThreshold [5]float64
}

func DefaultAgingConfig() AgingConfig {
	return AgingConfig{
		BaseRate:  1.0,
		AgeWeight: 0.1,
		T:         [5]float64{0, 480, 300, 180, 120},
		GuaranteedThreshold: [5]float64{
			0, 0, 1800, 1200, 900,
		},
	}
}

// QuantumConfig holds base quanta and complexity factors (spec.md §4.9).
type QuantumConfig struct {
	// Base[q] in seconds; Base[0] <= 0 means "run to completion".
	Base [5]float64
	// Complexity factors, indexed by operation.Complexity.
	Simple, MediumFactor, Complex float64
	MinQuantum                   float64
	MaxActive                    int
}

func DefaultQuantumConfig() QuantumConfig {
	return QuantumConfig{
		Base:         [5]float64{0, 200, 150, 100, 50},
		Simple:       0.7,
		MediumFactor: 1.0,
		Complex:      1.3,
		MinQuantum:   10,
		MaxActive:    8,
	}
}

// PreemptionConfig tunes the benefit/cost preemption decision (spec.md §4.10).
type PreemptionConfig struct {
	// BenefitMultiplier is the "1.5" in Benefit > 1.5*Cost.
	BenefitMultiplier float64
}

func DefaultPreemptionConfig() PreemptionConfig {
	return PreemptionConfig{BenefitMultiplier: 1.5}
}

// LearningConfig tunes the EMA feedback loop (spec.md §4.12.1).
type LearningConfig struct {
	AlphaOld, AlphaNew   float64
	WaitThresholdSeconds float64
	OnTimeThreshold      float64
	ShiftStep            float64
}

func DefaultLearningConfig() LearningConfig {
	return LearningConfig{
		AlphaOld:             0.7,
		AlphaNew:             0.3,
		WaitThresholdSeconds: 50,
		OnTimeThreshold:      0.85,
		ShiftStep:            0.01,
	}
}

// LifecycleConfig tunes the flight lifecycle driver (spec.md §4.13).
type LifecycleConfig struct {
	RunwayRetryAttempts  int
	RunwayRetrySpacing   time.Duration
	GateRetryAttempts    int
	GateRetrySpacing     time.Duration
	MaxGoArounds         int
	GoAroundFuelGallons  float64 // ~143 gal per spec.md §9
	GoAroundPenalty      time.Duration
	LandingInterval      time.Duration
	DefaultTaxiInterval  time.Duration
	PushbackInterval     time.Duration
	OnTimeTurnaroundSecs float64
}

func DefaultLifecycleConfig() LifecycleConfig {
	return LifecycleConfig{
		RunwayRetryAttempts:  30,
		RunwayRetrySpacing:   time.Second,
		GateRetryAttempts:    30,
		GateRetrySpacing:     time.Second,
		MaxGoArounds:         3,
		GoAroundFuelGallons:  143,
		GoAroundPenalty:      2 * time.Second,
		LandingInterval:      90 * time.Second,
		DefaultTaxiInterval:  60 * time.Second,
		PushbackInterval:     30 * time.Second,
		OnTimeTurnaroundSecs: 120,
	}
}

// EngineConfig tunes the orchestrator's worker cadences (spec.md §4.14).
type EngineConfig struct {
	ClockTick              time.Duration // wall-clock cadence per simulated unit
	MaxActiveFlights       int
	GeneratorMinInterval   time.Duration
	GeneratorMaxInterval   time.Duration
	MetricsSampleInterval  time.Duration
	DispatcherPollInterval time.Duration
}

func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		ClockTick:              100 * time.Millisecond,
		MaxActiveFlights:       8,
		GeneratorMinInterval:   2 * time.Second,
		GeneratorMaxInterval:   5 * time.Second,
		MetricsSampleInterval:  500 * time.Millisecond,
		DispatcherPollInterval: 50 * time.Millisecond,
	}
}

// Option mutates a Config during construction, mirroring the
// SummaryOptions/setDefaults idiom from internal/service/channel_summary.go
// in the teacher repo, generalized to the simulator's larger tunable set.
type Option func(*Config)

// Config is the simulator's full tunable surface.
type Config struct {
	PIS        PISWeights
	Aging      AgingConfig
	Quantum    QuantumConfig
	Preemption PreemptionConfig
	Learning   LearningConfig
	Lifecycle  LifecycleConfig
	Engine     EngineConfig

	// RedisAddr, when non-empty, enables the optional telemetry feed
	// publisher (internal/telemetry/feed). Empty disables it.
	RedisAddr string

	// HTTPAddr is the control-surface listen address.
	HTTPAddr string

	// LogDir is where per-channel log files are written (spec.md §6.5/§6.6).
	LogDir string
}

// New builds a Config from defaults, applying any overrides.
func New(opts ...Option) Config {
	c := Config{
		PIS:        DefaultPISWeights(),
		Aging:      DefaultAgingConfig(),
		Quantum:    DefaultQuantumConfig(),
		Preemption: DefaultPreemptionConfig(),
		Learning:   DefaultLearningConfig(),
		Lifecycle:  DefaultLifecycleConfig(),
		Engine:     DefaultEngineConfig(),
		HTTPAddr:   ":8080",
		LogDir:     "logs",
	}
	for _, o := range opts {
		o(&c)
	}
	return c
}

func WithRedisAddr(addr string) Option { return func(c *Config) { c.RedisAddr = addr } }
func WithHTTPAddr(addr string) Option  { return func(c *Config) { c.HTTPAddr = addr } }
func WithLogDir(dir string) Option     { return func(c *Config) { c.LogDir = dir } }
