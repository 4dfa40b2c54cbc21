// Package kernels provides stationary covariance functions for Gaussian
// process models. Hyperparameters are exposed in log space so they can be
// fitted by unconstrained minimization.
package kernels

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Kernel is a covariance function k(x1, x2) with two hyperparameters, a
// length scale and a signal variance.
type Kernel interface {
	// Eval computes the kernel value between two points x1 and x2
	Eval(x1, x2 []float64) float64

	// LogGradient returns ∂k/∂log(lengthScale) and ∂k/∂log(signalVar) at
	// (x1, x2).
	LogGradient(x1, x2 []float64) [2]float64

	// LogHyperparameters returns log(lengthScale), log(signalVar).
	LogHyperparameters() []float64

	// SetLogHyperparameters sets the hyperparameters from their logarithms.
	SetLogHyperparameters(params []float64) error

	Name() string
}

// New builds the named kernel ("rbf" or "matern52").
func New(name string, lengthScale, signalVar float64) (Kernel, error) {
	if !(lengthScale > 0) || !(signalVar > 0) || math.IsInf(lengthScale, 0) || math.IsInf(signalVar, 0) {
		return nil, fmt.Errorf("kernel hyperparameters must be positive and finite, got lengthScale=%v signalVar=%v",
			lengthScale, signalVar)
	}
	p := params{lengthScale: lengthScale, signalVar: signalVar}
	switch name {
	case "rbf":
		return &RBFKernel{p}, nil
	case "matern52":
		return &Matern52Kernel{p}, nil
	default:
		return nil, fmt.Errorf("unknown kernel %q", name)
	}
}

type params struct {
	// Length scale parameter (larger = smoother function)
	lengthScale float64
	// Signal variance (controls the amplitude of the function)
	signalVar float64
}

func (p *params) LogHyperparameters() []float64 {
	return []float64{math.Log(p.lengthScale), math.Log(p.signalVar)}
}

func (p *params) SetLogHyperparameters(logParams []float64) error {
	if len(logParams) != 2 {
		return fmt.Errorf("expected 2 hyperparameters, got %d", len(logParams))
	}
	ls, sv := math.Exp(logParams[0]), math.Exp(logParams[1])
	if !(ls > 0) || !(sv > 0) || math.IsInf(ls, 0) || math.IsInf(sv, 0) {
		return fmt.Errorf("hyperparameters out of range: log values %v", logParams)
	}
	p.lengthScale, p.signalVar = ls, sv
	return nil
}

// LengthScale returns the length scale.
func (p *params) LengthScale() float64 { return p.lengthScale }

// SignalVar returns the signal variance.
func (p *params) SignalVar() float64 { return p.signalVar }

func sqDist(x1, x2 []float64) float64 {
	d := floats.Distance(x1, x2, 2)
	return d * d
}

// RBFKernel implements the Radial Basis Function (squared exponential) kernel
//
//	k(x1, x2) = σ² exp(-|x1 - x2|² / 2ℓ²)
type RBFKernel struct {
	params
}

// Name implements Kernel.
func (k *RBFKernel) Name() string { return "rbf" }

// Eval computes the RBF kernel value between x1 and x2
func (k *RBFKernel) Eval(x1, x2 []float64) float64 {
	r2 := sqDist(x1, x2) / (k.lengthScale * k.lengthScale)
	return k.signalVar * math.Exp(-r2/2)
}

// LogGradient implements Kernel.
func (k *RBFKernel) LogGradient(x1, x2 []float64) [2]float64 {
	r2 := sqDist(x1, x2) / (k.lengthScale * k.lengthScale)
	v := k.signalVar * math.Exp(-r2/2)
	return [2]float64{v * r2, v}
}

// Matern52Kernel implements the Matérn 5/2 kernel
//
//	k(x1, x2) = σ² (1 + s + s²/3) exp(-s),  s = √5 |x1 - x2| / ℓ
type Matern52Kernel struct {
	params
}

// Name implements Kernel.
func (k *Matern52Kernel) Name() string { return "matern52" }

func (k *Matern52Kernel) scaled(x1, x2 []float64) float64 {
	return math.Sqrt(5*sqDist(x1, x2)) / k.lengthScale
}

// Eval computes the Matérn 5/2 kernel value between x1 and x2
func (k *Matern52Kernel) Eval(x1, x2 []float64) float64 {
	s := k.scaled(x1, x2)
	return k.signalVar * (1 + s + s*s/3) * math.Exp(-s)
}

// LogGradient implements Kernel.
func (k *Matern52Kernel) LogGradient(x1, x2 []float64) [2]float64 {
	s := k.scaled(x1, x2)
	e := math.Exp(-s)
	return [2]float64{
		k.signalVar * s * s * (1 + s) / 3 * e,
		k.signalVar * (1 + s + s*s/3) * e,
	}
}
