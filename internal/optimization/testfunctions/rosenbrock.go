// Package testfunctions holds standard objective functions with analytic
// gradients and Hessians, used by the CLI, the server and the tests.
package testfunctions

import (
	"gonum.org/v1/gonum/mat"

	"github.com/copyleftdev/descent/internal/optimization"
)

// Rosenbrock is the chained Rosenbrock function
//
//	f(x) = Σ (a - xᵢ)² + b (xᵢ₊₁ - xᵢ²)²,  i = 0..n-2
//
// For n = 2 this is the classic banana function with its minimum of 0 at
// (a, a²).
type Rosenbrock struct {
	A float64
	B float64
}

// NewRosenbrock returns the usual a=1, b=100 parameterisation.
func NewRosenbrock() Rosenbrock {
	return Rosenbrock{A: 1, B: 100}
}

func (r Rosenbrock) check(op string, x []float64) error {
	if len(x) < 2 {
		return optimization.NewErrorf(optimization.KindDimensionMismatch,
			"needs at least 2 dimensions, got %d", len(x)).
			WithComponent("rosenbrock").WithOperation(op)
	}
	return nil
}

// Cost implements optimization.CostFunction.
func (r Rosenbrock) Cost(x []float64) (float64, error) {
	if err := r.check("Cost", x); err != nil {
		return 0, err
	}
	sum := 0.0
	for i := 0; i < len(x)-1; i++ {
		t0 := r.A - x[i]
		t1 := x[i+1] - x[i]*x[i]
		sum += t0*t0 + r.B*t1*t1
	}
	return sum, nil
}

// Gradient implements optimization.Gradienter.
func (r Rosenbrock) Gradient(x []float64) ([]float64, error) {
	if err := r.check("Gradient", x); err != nil {
		return nil, err
	}
	grad := make([]float64, len(x))
	for i := 0; i < len(x)-1; i++ {
		t1 := x[i+1] - x[i]*x[i]
		grad[i] += -2*(r.A-x[i]) - 4*r.B*x[i]*t1
		grad[i+1] += 2 * r.B * t1
	}
	return grad, nil
}

// Hessian implements optimization.Hessianer.
func (r Rosenbrock) Hessian(x []float64) (*mat.SymDense, error) {
	if err := r.check("Hessian", x); err != nil {
		return nil, err
	}
	n := len(x)
	h := mat.NewSymDense(n, nil)
	for i := 0; i < n-1; i++ {
		h.SetSym(i, i, h.At(i, i)+2-4*r.B*x[i+1]+12*r.B*x[i]*x[i])
		h.SetSym(i, i+1, h.At(i, i+1)-4*r.B*x[i])
		h.SetSym(i+1, i+1, h.At(i+1, i+1)+2*r.B)
	}
	return h, nil
}
