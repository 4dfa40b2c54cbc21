// Package executor drives a solver over a problem from a configuration to a
// terminal result.
package executor

import (
	"time"

	"go.uber.org/zap"

	"github.com/copyleftdev/descent/internal/optimization"
	"github.com/copyleftdev/descent/internal/optimization/vector"
)

// Solver advances an IterState. Init prepares the state at the initial
// point; each Next call performs exactly one iteration and increments
// state.Iter by one.
type Solver interface {
	Name() string
	Init(p optimization.Problem, state *optimization.IterState) error
	Next(p optimization.Problem, state *optimization.IterState) error
}

// Observer receives a snapshot after initialisation and after every
// iteration.
type Observer interface {
	Observe(s optimization.Snapshot)
}

// Finisher is implemented by observers that want the final outcome.
// result is nil when the run failed before its first iteration.
type Finisher interface {
	Finish(result *optimization.OptimizationResult, err error)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(s optimization.Snapshot)

// Observe implements Observer.
func (f ObserverFunc) Observe(s optimization.Snapshot) { f(s) }

type phase int

const (
	phaseInit phase = iota
	phaseIterating
	phaseDone
)

// Executor runs one optimization. It owns the iteration state for the
// lifetime of the run and is not safe for concurrent use; concurrent runs
// need one Executor each.
type Executor struct {
	problem   optimization.Problem
	solver    Solver
	cfg       optimization.Config
	logger    *zap.Logger
	observers []Observer

	phase   phase
	state   *optimization.IterState
	guard   *guard
	history []optimization.Diagnostic
	result  *optimization.OptimizationResult
	err     error
	start   time.Time
}

// New creates an executor. cfg is copied and fixed for the run.
func New(p optimization.Problem, solver Solver, cfg optimization.Config) *Executor {
	cfg.Param = vector.Clone(cfg.Param)
	if cfg.TargetCost != nil {
		cfg.TargetCost = optimization.Float(*cfg.TargetCost)
	}
	return &Executor{
		problem: p,
		solver:  solver,
		cfg:     cfg,
		logger:  zap.NewNop(),
	}
}

// WithLogger sets the run logger.
func (e *Executor) WithLogger(logger *zap.Logger) *Executor {
	if logger != nil {
		e.logger = logger.Named("executor")
	}
	return e
}

// AddObserver registers an observer.
func (e *Executor) AddObserver(o Observer) *Executor {
	e.observers = append(e.observers, o)
	return e
}

// Run drives the solver to a terminal state.
//
// Configuration, dimension and initial evaluation errors are returned with
// a nil result. An error during the iterations (a failed line search or
// evaluation) is returned together with a result whose Reason is Failed
// and which still reports the best point found. Calling Run again returns
// the same outcome.
func (e *Executor) Run() (*optimization.OptimizationResult, error) {
	if e.phase == phaseDone {
		return e.result, e.err
	}
	e.start = time.Now()

	if err := e.initialise(); err != nil {
		return e.finish(nil, err)
	}

	e.phase = phaseIterating
	for !e.state.Reason.Terminated() {
		if err := e.step(); err != nil {
			e.state.Terminate(optimization.Failed, err.Error())
			return e.finish(e.buildResult(), err)
		}
	}
	return e.finish(e.buildResult(), nil)
}

func (e *Executor) initialise() error {
	if e.problem == nil || e.solver == nil {
		return optimization.NewError(optimization.KindInvalidConfig, "problem and solver are required").
			WithComponent("executor").WithOperation("Run")
	}
	if err := e.cfg.Validate(); err != nil {
		return err
	}

	e.state = optimization.NewIterState(e.cfg)
	e.guard = newGuard(e.problem, e.state.Dim())

	e.logger.Info("starting run",
		zap.String("solver", e.solver.Name()),
		zap.Int("dim", e.state.Dim()),
		zap.Int("max_iters", e.cfg.MaxIters),
	)

	if err := e.solver.Init(e.guard, e.state); err != nil {
		return err
	}
	if err := e.checkInvariants(); err != nil {
		return err
	}
	e.syncCounters()
	e.record()
	e.checkTermination()
	return nil
}

func (e *Executor) step() error {
	prevIter := e.state.Iter
	prevBest := e.state.BestCost

	err := e.solver.Next(e.guard, e.state)
	e.syncCounters()
	if err != nil {
		return err
	}

	if e.state.Iter != prevIter+1 {
		return optimization.NewErrorf(optimization.KindInvalidConfig,
			"solver advanced iteration counter from %d to %d", prevIter, e.state.Iter).
			WithComponent("executor").WithOperation("step")
	}
	if e.state.BestCost > prevBest {
		return optimization.NewErrorf(optimization.KindInvalidConfig,
			"best cost increased from %v to %v", prevBest, e.state.BestCost).
			WithComponent("executor").WithOperation("step")
	}
	if err := e.checkInvariants(); err != nil {
		return err
	}

	e.record()
	e.checkTermination()
	return nil
}

// checkInvariants verifies that point and gradient still have dimension N.
func (e *Executor) checkInvariants() error {
	n := e.state.Dim()
	if len(e.state.Param) != n || len(e.state.Grad) != n {
		return optimization.NewErrorf(optimization.KindDimensionMismatch,
			"state holds point of length %d and gradient of length %d, want %d",
			len(e.state.Param), len(e.state.Grad), n).
			WithComponent("executor").WithOperation("checkInvariants")
	}
	return nil
}

func (e *Executor) syncCounters() {
	e.state.FuncEvals = e.guard.funcEvals
	e.state.GradEvals = e.guard.gradEvals
}

// checkTermination applies, in order: target cost, gradient tolerance,
// iteration limit.
func (e *Executor) checkTermination() {
	s := e.state
	if tc := s.Config.TargetCost; tc != nil && s.Cost <= *tc {
		s.Terminate(optimization.Converged, "target cost reached")
		return
	}
	if gn := vector.Norm(s.Grad); gn == 0 || gn < s.Config.GradTolerance {
		s.Terminate(optimization.Converged, "gradient norm below tolerance")
		return
	}
	if s.Iter >= s.Config.IterationLimit() {
		s.Terminate(optimization.MaxIterExceeded, "maximum number of iterations reached")
	}
}

// record appends to the history and notifies observers.
func (e *Executor) record() {
	s := e.state
	gradNorm := vector.Norm(s.Grad)
	e.history = append(e.history, optimization.Diagnostic{
		Iteration: s.Iter,
		Cost:      s.Cost,
		BestCost:  s.BestCost,
		GradNorm:  gradNorm,
		Step:      s.LastStep,
		FuncEvals: s.FuncEvals,
		GradEvals: s.GradEvals,
	})

	e.logger.Debug("iteration",
		zap.Int("iteration", s.Iter),
		zap.Float64("cost", s.Cost),
		zap.Float64("best_cost", s.BestCost),
		zap.Float64("grad_norm", gradNorm),
		zap.Float64("step", s.LastStep),
	)

	if len(e.observers) == 0 {
		return
	}
	snap := optimization.Snapshot{
		Iter:      s.Iter,
		Param:     vector.Clone(s.Param),
		Cost:      s.Cost,
		GradNorm:  gradNorm,
		BestParam: vector.Clone(s.BestParam),
		BestCost:  s.BestCost,
		Step:      s.LastStep,
		FuncEvals: s.FuncEvals,
		GradEvals: s.GradEvals,
		Reason:    s.Reason,
	}
	for _, o := range e.observers {
		o.Observe(snap)
	}
}

func (e *Executor) buildResult() *optimization.OptimizationResult {
	s := e.state
	return &optimization.OptimizationResult{
		Solver:       e.solver.Name(),
		BestParam:    vector.Clone(s.BestParam),
		BestCost:     s.BestCost,
		LastBestIter: s.LastBestIter,
		Param:        vector.Clone(s.Param),
		Cost:         s.Cost,
		GradNorm:     vector.Norm(s.Grad),
		Iterations:   s.Iter,
		Reason:       s.Reason,
		Message:      s.Message,
		FuncEvals:    s.FuncEvals,
		GradEvals:    s.GradEvals,
		History:      append([]optimization.Diagnostic(nil), e.history...),
		Elapsed:      time.Since(e.start),
	}
}

func (e *Executor) finish(result *optimization.OptimizationResult, err error) (*optimization.OptimizationResult, error) {
	e.phase = phaseDone
	e.result, e.err = result, err

	if err != nil {
		fields := []zap.Field{zap.Error(err)}
		if result != nil {
			fields = append(fields,
				zap.Int("iterations", result.Iterations),
				zap.Float64("best_cost", result.BestCost),
			)
		}
		e.logger.Warn("run failed", fields...)
	} else {
		e.logger.Info("run finished",
			zap.Stringer("reason", result.Reason),
			zap.String("message", result.Message),
			zap.Int("iterations", result.Iterations),
			zap.Float64("best_cost", result.BestCost),
			zap.Int("func_evals", result.FuncEvals),
			zap.Int("grad_evals", result.GradEvals),
			zap.Duration("elapsed", result.Elapsed),
		)
	}

	for _, o := range e.observers {
		if f, ok := o.(Finisher); ok {
			f.Finish(result, err)
		}
	}
	return result, err
}
