package linesearch

import (
	"github.com/copyleftdev/descent/internal/optimization"
)

// contraction is the factor applied to the step after every rejected trial.
const contraction = 0.5

// Backtracking shrinks the step geometrically until the sufficient
// decrease (Armijo) condition holds. It does not enforce the curvature
// condition.
type Backtracking struct {
	params Params
}

// NewBacktracking creates a backtracking search. Zero fields of params take
// their default values.
func NewBacktracking(params Params) (*Backtracking, error) {
	params = params.WithDefaults()
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Backtracking{params: params}, nil
}

// Name implements Searcher.
func (b *Backtracking) Name() string {
	return "Backtracking"
}

// Search implements Searcher.
func (b *Backtracking) Search(p optimization.Problem, x, d []float64, f0 float64, g0 []float64) (*Result, error) {
	const op = "Backtracking.Search"

	dg0, err := checkInputs(op, x, d, g0)
	if err != nil {
		return nil, err
	}

	stp := b.params.InitialStep
	if stp > b.params.StepMax {
		stp = b.params.StepMax
	}
	for iter := 1; iter <= b.params.MaxSteps; iter++ {
		if stp < b.params.StepMin {
			return nil, failure(op, &BracketError{
				Reason:     "step fell below minimum",
				Step:       stp,
				Hi:         stp / contraction,
				Iterations: iter - 1,
			})
		}

		t, err := evaluate(op, p, x, d, stp, false)
		if err != nil {
			return nil, err
		}
		if t.f <= f0+b.params.C1*stp*dg0 {
			t, err = evaluate(op, p, x, d, stp, true)
			if err != nil {
				return nil, err
			}
			return &Result{
				Step:       stp,
				Param:      t.x,
				Cost:       t.f,
				Grad:       t.g,
				Iterations: iter,
				FuncEvals:  iter + 1,
				GradEvals:  1,
			}, nil
		}
		stp *= contraction
	}

	return nil, failure(op, &BracketError{
		Reason:     "maximum number of steps exceeded",
		Step:       stp,
		Hi:         stp / contraction,
		Iterations: b.params.MaxSteps,
	})
}
