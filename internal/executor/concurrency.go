package executor

// ConcurrencyConfig configures how many tasks a stage may run at once.
type ConcurrencyConfig struct {
	Strategy         string  `json:"strategy" yaml:"strategy"` // "adaptive" or "fixed"
	MinConcurrency   int     `json:"min_concurrency" yaml:"min_concurrency"`
	MaxConcurrency   int     `json:"max_concurrency" yaml:"max_concurrency"`
	BaseConcurrency  int     `json:"base_concurrency" yaml:"base_concurrency"`
	CPUThresholdLow  float64 `json:"cpu_threshold_low" yaml:"cpu_threshold_low"`
	CPUThresholdHigh float64 `json:"cpu_threshold_high" yaml:"cpu_threshold_high"`
	Fixed            int     `json:"fixed,omitempty" yaml:"fixed,omitempty"`
}

// DefaultConcurrencyConfig returns the adaptive default.
func DefaultConcurrencyConfig() ConcurrencyConfig {
	return ConcurrencyConfig{
		Strategy:         "adaptive",
		MinConcurrency:   2,
		MaxConcurrency:   32,
		BaseConcurrency:  8,
		CPUThresholdLow:  50.0,
		CPUThresholdHigh: 80.0,
	}
}

// ConcurrencyContext is the runtime snapshot a concurrency strategy uses
// to decide how many tasks to run in parallel.
type ConcurrencyContext struct {
	CPUUsage        float64
	AvailableCPUs   int
	MemoryUsage     float64
	ActiveTasks     int
	BaseConcurrency int
}

// ConcurrencyStrategy computes the number of tasks a stage may run
// concurrently given the current runtime context.
type ConcurrencyStrategy interface {
	Name() string
	Calculate(ctx ConcurrencyContext) int
}

// NewConcurrencyStrategy builds the strategy named by cfg.Strategy,
// defaulting to adaptive for an empty or unrecognized name.
func NewConcurrencyStrategy(cfg ConcurrencyConfig) ConcurrencyStrategy {
	switch cfg.Strategy {
	case "fixed":
		fixed := cfg.Fixed
		if fixed < 1 {
			fixed = 1
		}
		return &FixedStrategy{fixed: fixed}
	default:
		return &AdaptiveStrategy{cfg: cfg}
	}
}

// AdaptiveStrategy starts from base_concurrency, halves it (clamped to
// min) when CPU usage is at or above the high threshold, doubles it
// (clamped to max) when at or below the low threshold, then clamps the
// result into [min,max] and finally into [1, available_cpus].
type AdaptiveStrategy struct {
	cfg ConcurrencyConfig
}

func (s *AdaptiveStrategy) Name() string { return "adaptive" }

func (s *AdaptiveStrategy) Calculate(ctx ConcurrencyContext) int {
	desired := ctx.BaseConcurrency
	if desired <= 0 {
		desired = s.cfg.BaseConcurrency
	}

	switch {
	case ctx.CPUUsage >= s.cfg.CPUThresholdHigh:
		desired = desired / 2
		if desired < s.cfg.MinConcurrency {
			desired = s.cfg.MinConcurrency
		}
	case ctx.CPUUsage <= s.cfg.CPUThresholdLow:
		desired = desired * 2
		if desired > s.cfg.MaxConcurrency {
			desired = s.cfg.MaxConcurrency
		}
	}

	desired = clamp(desired, s.cfg.MinConcurrency, s.cfg.MaxConcurrency)

	available := ctx.AvailableCPUs
	if available < 1 {
		available = 1
	}
	return clamp(desired, 1, available)
}

// FixedStrategy always runs the configured number of tasks concurrently,
// regardless of runtime context.
type FixedStrategy struct {
	fixed int
}

func (s *FixedStrategy) Name() string { return "fixed" }

func (s *FixedStrategy) Calculate(ConcurrencyContext) int {
	if s.fixed < 1 {
		return 1
	}
	return s.fixed
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
