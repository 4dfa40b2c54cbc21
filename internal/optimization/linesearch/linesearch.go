// Package linesearch finds step lengths along a descent direction.
//
// MoreThuente returns steps satisfying the strong Wolfe conditions
//
//	f(x + α·d) ≤ f(x) + c1·α·(∇f(x)·d)
//	|∇f(x + α·d)·d| ≤ c2·|∇f(x)·d|
//
// and Backtracking returns steps satisfying only the first (Armijo) one.
package linesearch

import (
	"fmt"
	"math"

	"github.com/copyleftdev/descent/internal/optimization"
	"github.com/copyleftdev/descent/internal/optimization/vector"
)

// Searcher picks a step length along d starting from x, where f0 and g0
// are the cost and gradient already known at x.
type Searcher interface {
	Search(p optimization.Problem, x, d []float64, f0 float64, g0 []float64) (*Result, error)
	Name() string
}

// Result is the accepted step together with the values at the new point.
// Param, Cost and Grad come from evaluating p at x + Step·d, so callers can
// adopt them without evaluating again.
type Result struct {
	Step  float64
	Param []float64
	Cost  float64
	Grad  []float64

	Iterations int
	FuncEvals  int
	GradEvals  int
}

// BracketError describes the state of a failed search.
type BracketError struct {
	Reason     string
	Step       float64
	Lo, Hi     float64
	Bracketed  bool
	Iterations int
}

func (e *BracketError) Error() string {
	return fmt.Sprintf("%s (step=%g bracket=[%g, %g] bracketed=%t iterations=%d)",
		e.Reason, e.Step, e.Lo, e.Hi, e.Bracketed, e.Iterations)
}

func failure(op string, be *BracketError) error {
	return optimization.WrapError(be, optimization.KindLineSearchFailure, "no admissible step").
		WithComponent("linesearch").WithOperation(op)
}

// trial is one evaluated point along the search line.
type trial struct {
	step float64
	x    []float64
	f    float64
	g    []float64
	dg   float64
}

// evaluate computes cost, gradient and directional derivative at x + step·d.
// needGrad=false skips the gradient.
func evaluate(op string, p optimization.Problem, x, d []float64, step float64, needGrad bool) (trial, error) {
	xt, err := vector.AXPY(x, step, d)
	if err != nil {
		return trial{}, err
	}
	t := trial{step: step, x: xt}

	t.f, err = p.Cost(xt)
	if err != nil {
		return t, wrapEval(op, err, xt)
	}
	if math.IsNaN(t.f) || math.IsInf(t.f, 0) {
		return t, wrapEval(op, optimization.NewErrorf(optimization.KindEvaluation, "non-finite cost %v", t.f).WithPoint(xt), xt)
	}
	if !needGrad {
		return t, nil
	}

	t.g, err = p.Gradient(xt)
	if err != nil {
		return t, wrapEval(op, err, xt)
	}
	if len(t.g) != len(xt) {
		return t, optimization.NewErrorf(optimization.KindDimensionMismatch,
			"gradient has length %d at a point of length %d", len(t.g), len(xt)).
			WithComponent("linesearch").WithOperation(op)
	}
	if !vector.IsFinite(t.g) {
		return t, wrapEval(op, optimization.NewError(optimization.KindEvaluation, "non-finite gradient").WithPoint(xt), xt)
	}
	t.dg, _ = vector.Dot(t.g, d)
	return t, nil
}

// wrapEval reports an evaluation problem as a line search failure so both
// ErrLineSearchFailure and ErrEvaluation match.
func wrapEval(op string, err error, x []float64) error {
	if optimization.KindOf(err) != optimization.KindEvaluation {
		err = optimization.WrapError(err, optimization.KindEvaluation, "evaluation failed").WithPoint(x)
	}
	return optimization.WrapError(err, optimization.KindLineSearchFailure, "evaluation aborted search").
		WithComponent("linesearch").WithOperation(op)
}

// checkInputs validates the common Search arguments and returns g0·d.
func checkInputs(op string, x, d, g0 []float64) (float64, error) {
	if err := vector.CheckDims(op, x, d); err != nil {
		return 0, err
	}
	if err := vector.CheckDims(op, x, g0); err != nil {
		return 0, err
	}
	dg0, _ := vector.Dot(g0, d)
	if !(dg0 < 0) {
		return dg0, failure(op, &BracketError{Reason: fmt.Sprintf("not a descent direction (g·d = %g)", dg0)})
	}
	return dg0, nil
}
