package optimization

import (
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
)

// NumericalGradient turns a cost-only function into a Problem by
// approximating derivatives with central finite differences.
type NumericalGradient struct {
	// Fn is the objective. A non-nil error from Fn aborts the approximation.
	Fn CostFunction
	// Step is the finite-difference step. Zero selects the fd default.
	Step float64
}

// Cost implements CostFunction.
func (n *NumericalGradient) Cost(x []float64) (float64, error) {
	return n.Fn.Cost(x)
}

// Gradient implements Gradienter.
func (n *NumericalGradient) Gradient(x []float64) ([]float64, error) {
	f, errp := n.wrapped()
	grad := fd.Gradient(nil, f, x, &fd.Settings{
		Formula: fd.Central,
		Step:    n.Step,
	})
	if *errp != nil {
		return nil, WrapError(*errp, KindEvaluation, "numerical gradient").WithComponent("problem").WithPoint(x)
	}
	return grad, nil
}

// Hessian implements Hessianer.
func (n *NumericalGradient) Hessian(x []float64) (*mat.SymDense, error) {
	f, errp := n.wrapped()
	hess := mat.NewSymDense(len(x), nil)
	fd.Hessian(hess, f, x, &fd.Settings{
		Formula: fd.Central,
		Step:    n.Step,
	})
	if *errp != nil {
		return nil, WrapError(*errp, KindEvaluation, "numerical hessian").WithComponent("problem").WithPoint(x)
	}
	return hess, nil
}

// wrapped adapts Fn to the error-free signature fd expects. The first
// evaluation error is kept and every later evaluation returns NaN.
func (n *NumericalGradient) wrapped() (func([]float64) float64, *error) {
	var firstErr error
	f := func(x []float64) float64 {
		if firstErr != nil {
			return math.NaN()
		}
		v, err := n.Fn.Cost(x)
		if err != nil {
			firstErr = err
			return math.NaN()
		}
		return v
	}
	return f, &firstErr
}
