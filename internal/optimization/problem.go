package optimization

import (
	"gonum.org/v1/gonum/mat"
)

// CostFunction evaluates the objective at a point.
type CostFunction interface {
	// Cost returns f(x). Implementations must not modify x.
	Cost(x []float64) (float64, error)
}

// Gradienter evaluates the gradient of the objective at a point.
type Gradienter interface {
	// Gradient returns a newly allocated ∇f(x) with len(x) elements.
	Gradient(x []float64) ([]float64, error)
}

// Hessianer evaluates the Hessian of the objective at a point. It is an
// optional capability: steepest descent never asks for it, but Newton-type
// callers can discover it with a type assertion.
type Hessianer interface {
	Hessian(x []float64) (*mat.SymDense, error)
}

// Problem is what a first-order solver needs from the caller.
// Evaluations must be pure: the same x always yields the same result.
type Problem interface {
	CostFunction
	Gradienter
}

// Func adapts plain functions to Problem (and Hessianer when Hess is set).
type Func struct {
	CostFunc func(x []float64) (float64, error)
	GradFunc func(x []float64) ([]float64, error)
	HessFunc func(x []float64) (*mat.SymDense, error)
}

// Cost implements CostFunction.
func (f Func) Cost(x []float64) (float64, error) {
	if f.CostFunc == nil {
		return 0, NewError(KindEvaluation, "cost function not set").WithComponent("problem")
	}
	return f.CostFunc(x)
}

// Gradient implements Gradienter.
func (f Func) Gradient(x []float64) ([]float64, error) {
	if f.GradFunc == nil {
		return nil, NewError(KindEvaluation, "gradient function not set").WithComponent("problem")
	}
	return f.GradFunc(x)
}

// Hessian implements Hessianer.
func (f Func) Hessian(x []float64) (*mat.SymDense, error) {
	if f.HessFunc == nil {
		return nil, NewError(KindEvaluation, "hessian function not set").WithComponent("problem")
	}
	return f.HessFunc(x)
}
