package linesearch

import (
	"math"

	"github.com/copyleftdev/descent/internal/optimization"
)

// Params tunes a line search.
type Params struct {
	// C1 is the sufficient decrease constant.
	C1 float64 `json:"c1" yaml:"c1"`
	// C2 is the curvature constant. Backtracking ignores it.
	C2 float64 `json:"c2" yaml:"c2"`
	// InitialStep is the first trial step.
	InitialStep float64 `json:"initial_step" yaml:"initial_step"`
	// MaxSteps bounds the number of trial steps.
	MaxSteps int `json:"max_steps" yaml:"max_steps"`
	// StepMin and StepMax bound every trial step.
	StepMin float64 `json:"step_min" yaml:"step_min"`
	StepMax float64 `json:"step_max" yaml:"step_max"`
	// XTol is the relative bracket width below which the search gives up.
	XTol float64 `json:"xtol" yaml:"xtol"`
}

// DefaultParams returns c1=1e-4, c2=0.9, an initial step of 1 and at most
// 100 trial steps.
func DefaultParams() Params {
	return Params{
		C1:          1e-4,
		C2:          0.9,
		InitialStep: 1.0,
		MaxSteps:    100,
		StepMin:     1e-20,
		StepMax:     1e20,
		XTol:        1e-10,
	}
}

// WithDefaults fills zero fields from DefaultParams.
func (p Params) WithDefaults() Params {
	d := DefaultParams()
	if p.C1 == 0 {
		p.C1 = d.C1
	}
	if p.C2 == 0 {
		p.C2 = d.C2
	}
	if p.InitialStep == 0 {
		p.InitialStep = d.InitialStep
	}
	if p.MaxSteps == 0 {
		p.MaxSteps = d.MaxSteps
	}
	if p.StepMin == 0 {
		p.StepMin = d.StepMin
	}
	if p.StepMax == 0 {
		p.StepMax = d.StepMax
	}
	if p.XTol == 0 {
		p.XTol = d.XTol
	}
	return p
}

// Validate checks 0 < c1 < c2 < 1 and the step bounds.
func (p Params) Validate() error {
	invalid := func(format string, args ...interface{}) error {
		return optimization.NewErrorf(optimization.KindInvalidConfig, format, args...).
			WithComponent("linesearch").WithOperation("Validate")
	}
	switch {
	case !(p.C1 > 0 && p.C1 < 1):
		return invalid("c1 must be in (0, 1), got %v", p.C1)
	case !(p.C2 > p.C1 && p.C2 < 1):
		return invalid("c2 must be in (c1, 1), got %v", p.C2)
	case p.MaxSteps <= 0:
		return invalid("max_steps must be positive, got %d", p.MaxSteps)
	case !(p.StepMin >= 0) || !(p.StepMax > p.StepMin) || math.IsInf(p.StepMin, 0):
		return invalid("step bounds must satisfy 0 <= step_min < step_max, got [%v, %v]", p.StepMin, p.StepMax)
	case !(p.InitialStep > 0) || math.IsInf(p.InitialStep, 0):
		return invalid("initial_step must be positive and finite, got %v", p.InitialStep)
	case !(p.XTol >= 0):
		return invalid("xtol must be non-negative, got %v", p.XTol)
	}
	return nil
}
