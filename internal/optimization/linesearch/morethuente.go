package linesearch

import (
	"math"

	"go.uber.org/zap"

	"github.com/copyleftdev/descent/internal/optimization"
)

const (
	stageArmijo = 1
	stageWolfe  = 2
)

// MoreThuente is a bracketing line search with safeguarded cubic and
// quadratic interpolation that terminates on the strong Wolfe conditions.
type MoreThuente struct {
	params Params
	logger *zap.Logger
}

// NewMoreThuente creates a More–Thuente search. Zero fields of params take
// their default values.
func NewMoreThuente(params Params) (*MoreThuente, error) {
	params = params.WithDefaults()
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &MoreThuente{
		params: params,
		logger: zap.NewNop(),
	}, nil
}

// WithLogger sets the logger used for per-step debug output.
func (m *MoreThuente) WithLogger(logger *zap.Logger) *MoreThuente {
	if logger != nil {
		m.logger = logger.Named("morethuente")
	}
	return m
}

// Params returns the effective parameters.
func (m *MoreThuente) Params() Params {
	return m.params
}

// Name implements Searcher.
func (m *MoreThuente) Name() string {
	return "MoreThuente"
}

// Search implements Searcher.
func (m *MoreThuente) Search(p optimization.Problem, x, d []float64, f0 float64, g0 []float64) (*Result, error) {
	const op = "MoreThuente.Search"

	dg0, err := checkInputs(op, x, d, g0)
	if err != nil {
		return nil, err
	}

	prm := m.params
	fTestSlope := prm.C1 * dg0
	curvature := prm.C2 * math.Abs(dg0)

	iv := interval{
		lo: endpoint{stp: 0, f: f0, g: dg0},
		hi: endpoint{stp: 0, f: f0, g: dg0},
	}
	stage := stageArmijo
	width := prm.StepMax - prm.StepMin
	prevWidth := 2 * width

	stp := math.Max(prm.StepMin, math.Min(prm.InitialStep, prm.StepMax))
	stmin, stmax := 0.0, stp+extrapUpper*stp

	fail := func(reason string, iter int) error {
		lo, hi := iv.bounds()
		m.logger.Debug("line search failed",
			zap.String("reason", reason),
			zap.Float64("step", stp),
			zap.Float64("lo", lo),
			zap.Float64("hi", hi),
			zap.Int("iterations", iter),
		)
		return failure(op, &BracketError{
			Reason:     reason,
			Step:       stp,
			Lo:         lo,
			Hi:         hi,
			Bracketed:  iv.bracketed,
			Iterations: iter,
		})
	}

	for iter := 1; iter <= prm.MaxSteps; iter++ {
		t, err := evaluate(op, p, x, d, stp, true)
		if err != nil {
			return nil, err
		}

		fTest := f0 + stp*fTestSlope
		m.logger.Debug("trial step",
			zap.Int("iteration", iter),
			zap.Float64("step", stp),
			zap.Float64("cost", t.f),
			zap.Float64("slope", t.dg),
			zap.Bool("bracketed", iv.bracketed),
		)

		if t.f <= fTest && math.Abs(t.dg) <= curvature {
			return &Result{
				Step:       stp,
				Param:      t.x,
				Cost:       t.f,
				Grad:       t.g,
				Iterations: iter,
				FuncEvals:  iter,
				GradEvals:  iter,
			}, nil
		}

		switch {
		case iv.bracketed && (stp <= stmin || stp >= stmax):
			return nil, fail("rounding errors prevent progress", iter)
		case iv.bracketed && stmax-stmin <= prm.XTol*stmax:
			return nil, fail("bracket width below tolerance", iter)
		case stp == prm.StepMax && t.f <= fTest && t.dg <= fTestSlope:
			return nil, fail("step reached upper bound", iter)
		case stp == prm.StepMin && (t.f > fTest || t.dg >= fTestSlope):
			return nil, fail("step reached lower bound", iter)
		}

		if stage == stageArmijo && t.f <= fTest && t.dg >= 0 {
			stage = stageWolfe
		}

		cur := endpoint{stp: stp, f: t.f, g: t.dg}
		if stage == stageArmijo && t.f <= iv.lo.f && t.f > fTest {
			// Work on ψ(α) = f(α) − f(0) − c1·α·f′(0) until a step with
			// ψ ≤ 0 and f′ ≥ 0 is found.
			shifted := interval{
				lo:        psi(iv.lo, fTestSlope),
				hi:        psi(iv.hi, fTestSlope),
				bracketed: iv.bracketed,
			}
			stp = shifted.update(psi(cur, fTestSlope), stmin, stmax)
			iv.lo = unpsi(shifted.lo, fTestSlope)
			iv.hi = unpsi(shifted.hi, fTestSlope)
			iv.bracketed = shifted.bracketed
		} else {
			stp = iv.update(cur, stmin, stmax)
		}

		if iv.bracketed {
			w := math.Abs(iv.hi.stp - iv.lo.stp)
			if w >= shrinkFactor*prevWidth {
				stp = iv.lo.stp + 0.5*(iv.hi.stp-iv.lo.stp)
			}
			prevWidth = width
			width = w
		}

		if iv.bracketed {
			stmin, stmax = iv.bounds()
		} else {
			stmin = stp + extrapLower*(stp-iv.lo.stp)
			stmax = stp + extrapUpper*(stp-iv.lo.stp)
		}

		stp = math.Max(prm.StepMin, math.Min(stp, prm.StepMax))

		if iv.bracketed {
			if stmax-stmin <= prm.XTol*stmax {
				return nil, fail("bracket width below tolerance", iter)
			}
			// The interpolant left the bracket: fall back to bisection.
			if !(stp > stmin && stp < stmax) {
				stp = stmin + 0.5*(stmax-stmin)
			}
		} else if math.IsNaN(stp) {
			stp = math.Min(stmax, prm.StepMax)
		}
	}

	return nil, fail("maximum number of steps exceeded", prm.MaxSteps)
}

// psi maps an endpoint of f onto the auxiliary function ψ.
func psi(e endpoint, slope float64) endpoint {
	return endpoint{stp: e.stp, f: e.f - e.stp*slope, g: e.g - slope}
}

// unpsi is the inverse of psi.
func unpsi(e endpoint, slope float64) endpoint {
	return endpoint{stp: e.stp, f: e.f + e.stp*slope, g: e.g + slope}
}
