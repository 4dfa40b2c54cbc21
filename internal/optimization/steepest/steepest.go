// Package steepest implements steepest descent: every iteration moves along
// the negative gradient by a step chosen with a line search.
package steepest

import (
	"go.uber.org/zap"

	"github.com/copyleftdev/descent/internal/optimization"
	"github.com/copyleftdev/descent/internal/optimization/linesearch"
	"github.com/copyleftdev/descent/internal/optimization/vector"
)

// SteepestDescent is a first-order solver driven by a line search.
type SteepestDescent struct {
	searcher linesearch.Searcher
	logger   *zap.Logger
}

// New creates a steepest descent solver using searcher for step lengths.
func New(searcher linesearch.Searcher) *SteepestDescent {
	return &SteepestDescent{
		searcher: searcher,
		logger:   zap.NewNop(),
	}
}

// NewDefault creates a solver with a More–Thuente search using default
// parameters.
func NewDefault() *SteepestDescent {
	ls, err := linesearch.NewMoreThuente(linesearch.DefaultParams())
	if err != nil {
		// DefaultParams always validates.
		panic(err)
	}
	return New(ls)
}

// WithLogger sets the solver logger.
func (s *SteepestDescent) WithLogger(logger *zap.Logger) *SteepestDescent {
	if logger != nil {
		s.logger = logger.Named("steepest_descent")
	}
	return s
}

// Name returns the solver name.
func (s *SteepestDescent) Name() string {
	return "Steepest Descent"
}

// LineSearch returns the line search in use.
func (s *SteepestDescent) LineSearch() linesearch.Searcher {
	return s.searcher
}

// Init evaluates cost and gradient at the initial point.
func (s *SteepestDescent) Init(p optimization.Problem, state *optimization.IterState) error {
	const op = "SteepestDescent.Init"

	if len(state.Param) == 0 {
		return optimization.NewError(optimization.KindMissingInitialParam,
			"steepest descent requires an initial parameter vector").
			WithComponent("steepest").WithOperation(op)
	}

	param := vector.Clone(state.Param)
	cost, err := p.Cost(param)
	if err != nil {
		return err
	}
	grad, err := p.Gradient(param)
	if err != nil {
		return err
	}
	if err := vector.CheckDims(op, param, grad); err != nil {
		return err
	}

	state.Update(param, cost, grad)
	s.logger.Debug("initialised",
		zap.Int("dim", len(param)),
		zap.Float64("cost", cost),
		zap.Float64("grad_norm", vector.Norm(grad)),
	)
	return nil
}

// Next performs one iteration: d = −∇f(x), x ← x + α·d with α from the
// line search. The line search has already evaluated the problem at the
// new point, so its cost and gradient are adopted directly. A line search
// failure is returned unchanged and the state is left as it was.
func (s *SteepestDescent) Next(p optimization.Problem, state *optimization.IterState) error {
	const op = "SteepestDescent.Next"

	direction := vector.Scale(state.Grad, -1)
	if err := vector.CheckDims(op, state.Param, direction); err != nil {
		return err
	}

	res, err := s.searcher.Search(p, state.Param, direction, state.Cost, state.Grad)
	if err != nil {
		s.logger.Debug("line search failed",
			zap.Int("iteration", state.Iter),
			zap.Error(err),
		)
		return err
	}

	state.Iter++
	state.LastStep = res.Step
	state.Update(res.Param, res.Cost, res.Grad)

	s.logger.Debug("iteration",
		zap.Int("iteration", state.Iter),
		zap.Float64("step", res.Step),
		zap.Float64("cost", res.Cost),
		zap.Int("line_search_steps", res.Iterations),
	)
	return nil
}
