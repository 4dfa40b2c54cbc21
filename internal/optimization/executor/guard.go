package executor

import (
	"math"

	"github.com/copyleftdev/descent/internal/optimization"
	"github.com/copyleftdev/descent/internal/optimization/vector"
)

// guard sits between the solver and the caller's problem. It counts
// evaluations, hands the problem private copies of every point, copies
// every gradient it returns, and turns wrong lengths and non-finite values
// into typed errors.
type guard struct {
	problem   optimization.Problem
	dim       int
	funcEvals int
	gradEvals int
}

func newGuard(p optimization.Problem, dim int) *guard {
	return &guard{problem: p, dim: dim}
}

func (g *guard) checkPoint(op string, x []float64) error {
	if len(x) != g.dim {
		return optimization.NewErrorf(optimization.KindDimensionMismatch,
			"point has length %d, problem has dimension %d", len(x), g.dim).
			WithComponent("executor").WithOperation(op)
	}
	return nil
}

func evalError(op string, err error, x []float64) error {
	if optimization.KindOf(err) != optimization.KindUnknown {
		return err
	}
	return optimization.WrapError(err, optimization.KindEvaluation, "problem returned an error").
		WithComponent("executor").WithOperation(op).WithPoint(x)
}

// Cost implements optimization.CostFunction.
func (g *guard) Cost(x []float64) (float64, error) {
	const op = "Cost"
	if err := g.checkPoint(op, x); err != nil {
		return 0, err
	}
	g.funcEvals++
	v, err := g.problem.Cost(vector.Clone(x))
	if err != nil {
		return 0, evalError(op, err, x)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, optimization.NewErrorf(optimization.KindEvaluation, "non-finite cost %v", v).
			WithComponent("executor").WithOperation(op).WithPoint(x)
	}
	return v, nil
}

// Gradient implements optimization.Gradienter.
func (g *guard) Gradient(x []float64) ([]float64, error) {
	const op = "Gradient"
	if err := g.checkPoint(op, x); err != nil {
		return nil, err
	}
	g.gradEvals++
	grad, err := g.problem.Gradient(vector.Clone(x))
	if err != nil {
		return nil, evalError(op, err, x)
	}
	if len(grad) != g.dim {
		return nil, optimization.NewErrorf(optimization.KindDimensionMismatch,
			"gradient has length %d at a point of dimension %d", len(grad), g.dim).
			WithComponent("executor").WithOperation(op)
	}
	if !vector.IsFinite(grad) {
		return nil, optimization.NewError(optimization.KindEvaluation, "non-finite gradient").
			WithComponent("executor").WithOperation(op).WithPoint(x)
	}
	return vector.Clone(grad), nil
}
