package optimization

import (
	"math"
)

// Config contains configuration for a single optimization run.
// It is read once when a run starts and never changes afterwards.
type Config struct {
	// Param is the initial point. Required.
	Param []float64 `json:"param" yaml:"param"`

	// MaxIters bounds the number of outer iterations. Zero means unbounded.
	MaxIters int `json:"max_iters,omitempty" yaml:"max_iters,omitempty"`

	// TargetCost stops the run once the current cost is at or below it.
	// Nil disables the check.
	TargetCost *float64 `json:"target_cost,omitempty" yaml:"target_cost,omitempty"`

	// GradTolerance stops the run once the gradient norm drops below it.
	// A gradient of exactly zero always stops the run.
	GradTolerance float64 `json:"grad_tolerance,omitempty" yaml:"grad_tolerance,omitempty"`
}

// Float returns a pointer to v, for optional fields such as TargetCost.
func Float(v float64) *float64 {
	return &v
}

// Validate checks the configuration before a run.
func (c Config) Validate() error {
	if len(c.Param) == 0 {
		return ErrMissingInitialParam
	}
	if c.MaxIters < 0 {
		return NewErrorf(KindInvalidConfig, "max_iters must be non-negative, got %d", c.MaxIters).WithComponent("config")
	}
	if c.GradTolerance < 0 || math.IsNaN(c.GradTolerance) {
		return NewErrorf(KindInvalidConfig, "grad_tolerance must be non-negative, got %v", c.GradTolerance).WithComponent("config")
	}
	if c.TargetCost != nil && math.IsNaN(*c.TargetCost) {
		return NewError(KindInvalidConfig, "target_cost must not be NaN").WithComponent("config")
	}
	for i, v := range c.Param {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return NewErrorf(KindInvalidConfig, "param[%d] is not finite", i).WithComponent("config")
		}
	}
	return nil
}

// IterationLimit returns the effective iteration cap.
func (c Config) IterationLimit() int {
	if c.MaxIters == 0 {
		return math.MaxInt
	}
	return c.MaxIters
}
