package linesearch

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/copyleftdev/descent/internal/optimization"
	"github.com/copyleftdev/descent/internal/optimization/testfunctions"
	"github.com/copyleftdev/descent/internal/optimization/vector"
)

// assertWolfe checks both strong Wolfe inequalities for res by evaluating
// the problem directly.
func assertWolfe(t *testing.T, p optimization.Problem, x, d []float64, params Params, res *Result) {
	t.Helper()
	const tol = 1e-6

	f0, err := p.Cost(x)
	require.NoError(t, err)
	g0, err := p.Gradient(x)
	require.NoError(t, err)
	dg0, err := vector.Dot(g0, d)
	require.NoError(t, err)

	xn, err := vector.AXPY(x, res.Step, d)
	require.NoError(t, err)
	fn, err := p.Cost(xn)
	require.NoError(t, err)
	gn, err := p.Gradient(xn)
	require.NoError(t, err)
	dgn, err := vector.Dot(gn, d)
	require.NoError(t, err)

	assert.Greater(t, res.Step, 0.0)
	assert.LessOrEqual(t, fn, f0+params.C1*res.Step*dg0+tol, "sufficient decrease")
	assert.LessOrEqual(t, math.Abs(dgn), params.C2*math.Abs(dg0)+tol, "curvature")

	// The returned values must be what the problem reports at the new point.
	assert.Equal(t, fn, res.Cost)
	assert.Equal(t, gn, res.Grad)
	assert.Equal(t, xn, res.Param)
}

func steepest(t *testing.T, p optimization.Problem, x []float64) (float64, []float64, []float64) {
	t.Helper()
	f, err := p.Cost(x)
	require.NoError(t, err)
	g, err := p.Gradient(x)
	require.NoError(t, err)
	return f, g, vector.Scale(g, -1)
}

func anisotropic(t *testing.T) optimization.Problem {
	t.Helper()
	q, err := testfunctions.NewQuadratic(mat.NewSymDense(2, []float64{1, 0, 0, 10}), nil)
	require.NoError(t, err)
	return q
}

func TestMoreThuenteSatisfiesStrongWolfe(t *testing.T) {
	tests := []struct {
		name        string
		problem     optimization.Problem
		x           []float64
		initialStep float64
		c2          float64
	}{
		{"quadratic unit step", anisotropic(t), []float64{1, 1}, 1, 0.9},
		{"quadratic tiny step extrapolates", anisotropic(t), []float64{1, 1}, 1e-4, 0.9},
		{"quadratic huge step interpolates", anisotropic(t), []float64{1, 1}, 100, 0.9},
		{"quadratic tight curvature", anisotropic(t), []float64{1, 1}, 1, 0.1},
		{"sphere", testfunctions.Sphere{}, []float64{5, -3}, 1, 0.9},
		{"rosenbrock start", testfunctions.NewRosenbrock(), []float64{1, -2}, 1, 0.9},
		{"rosenbrock classic start", testfunctions.NewRosenbrock(), []float64{-1.2, 1}, 1, 0.9},
		{"rosenbrock tight curvature", testfunctions.NewRosenbrock(), []float64{-1.2, 1}, 1, 0.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := DefaultParams()
			params.InitialStep = tt.initialStep
			params.C2 = tt.c2
			ls, err := NewMoreThuente(params)
			require.NoError(t, err)

			f0, g0, d := steepest(t, tt.problem, tt.x)
			res, err := ls.Search(tt.problem, tt.x, d, f0, g0)
			require.NoError(t, err)
			require.NotNil(t, res)

			assertWolfe(t, tt.problem, tt.x, d, ls.Params(), res)
			assert.Equal(t, res.Iterations, res.FuncEvals)
			assert.Equal(t, res.Iterations, res.GradEvals)
		})
	}
}

func TestMoreThuenteSphereFindsExactMinimiser(t *testing.T) {
	ls, err := NewMoreThuente(Params{})
	require.NoError(t, err)

	p := testfunctions.Sphere{}
	x := []float64{5, -3}
	f0, g0, d := steepest(t, p, x)

	res, err := ls.Search(p, x, d, f0, g0)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, res.Step, 1e-3)
	assert.Less(t, res.Cost, 1e-5)
	assert.Equal(t, []float64{5, -3}, x, "input point must not change")
}

func TestMoreThuenteFailures(t *testing.T) {
	p := testfunctions.Sphere{}
	x := []float64{5, -3}
	f0, g0, d := steepest(t, p, x)

	t.Run("ascent direction", func(t *testing.T) {
		ls, err := NewMoreThuente(Params{})
		require.NoError(t, err)
		_, err = ls.Search(p, x, g0, f0, g0)
		require.Error(t, err)
		assert.True(t, errors.Is(err, optimization.ErrLineSearchFailure))

		var be *BracketError
		require.True(t, errors.As(err, &be))
		assert.Contains(t, be.Reason, "descent direction")
	})

	t.Run("step budget exhausted", func(t *testing.T) {
		ls, err := NewMoreThuente(Params{MaxSteps: 1})
		require.NoError(t, err)
		_, err = ls.Search(p, x, d, f0, g0)
		require.Error(t, err)
		assert.ErrorIs(t, err, optimization.ErrLineSearchFailure)

		var be *BracketError
		require.True(t, errors.As(err, &be))
		assert.Equal(t, 1, be.Iterations)
		assert.True(t, be.Bracketed)
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		ls, err := NewMoreThuente(Params{})
		require.NoError(t, err)
		_, err = ls.Search(p, x, []float64{-1, 1, 0}, f0, g0)
		assert.ErrorIs(t, err, optimization.ErrDimensionMismatch)
	})

	t.Run("non-finite cost", func(t *testing.T) {
		nan := optimization.Func{
			CostFunc: func(x []float64) (float64, error) {
				if x[0] < 0 {
					return math.NaN(), nil
				}
				return p.Cost(x)
			},
			GradFunc: p.Gradient,
		}
		ls, err := NewMoreThuente(Params{})
		require.NoError(t, err)
		_, err = ls.Search(nan, x, d, f0, g0)
		require.Error(t, err)
		assert.ErrorIs(t, err, optimization.ErrLineSearchFailure)
		assert.ErrorIs(t, err, optimization.ErrEvaluation)

		var oe *optimization.Error
		require.True(t, errors.As(err, &oe))
	})
}

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(p *Params)
		wantErr bool
	}{
		{"defaults", func(p *Params) {}, false},
		{"c1 zero", func(p *Params) { p.C1 = 0 }, true},
		{"c2 below c1", func(p *Params) { p.C1 = 0.5; p.C2 = 0.4 }, true},
		{"c2 one", func(p *Params) { p.C2 = 1 }, true},
		{"no steps", func(p *Params) { p.MaxSteps = 0 }, true},
		{"negative initial step", func(p *Params) { p.InitialStep = -1 }, true},
		{"inverted bounds", func(p *Params) { p.StepMin = 2; p.StepMax = 1 }, true},
		{"nan xtol", func(p *Params) { p.XTol = math.NaN() }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			tt.modify(&p)
			err := p.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, optimization.ErrInvalidConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDefaultParams(t *testing.T) {
	assert.Equal(t, Params{
		C1:          1e-4,
		C2:          0.9,
		InitialStep: 1,
		MaxSteps:    100,
		StepMin:     1e-20,
		StepMax:     1e20,
		XTol:        1e-10,
	}, DefaultParams())
	require.NoError(t, DefaultParams().Validate())

	// A zero StepMin is unset, never a literal zero lower bound.
	assert.Equal(t, 1e-20, Params{StepMax: 10}.WithDefaults().StepMin)
}

func TestWithDefaults(t *testing.T) {
	assert.Equal(t, DefaultParams(), Params{}.WithDefaults())

	p := Params{C2: 0.5, MaxSteps: 7}.WithDefaults()
	assert.Equal(t, 0.5, p.C2)
	assert.Equal(t, 7, p.MaxSteps)
	assert.Equal(t, 1e-4, p.C1)

	_, err := NewMoreThuente(Params{C1: 0.95})
	assert.ErrorIs(t, err, optimization.ErrInvalidConfig)
}

func TestBacktracking(t *testing.T) {
	params := DefaultParams()
	ls, err := NewBacktracking(params)
	require.NoError(t, err)
	assert.Equal(t, "Backtracking", ls.Name())

	p := testfunctions.NewRosenbrock()
	x := []float64{-1.2, 1}
	f0, g0, d := steepest(t, p, x)
	dg0, err := vector.Dot(g0, d)
	require.NoError(t, err)

	res, err := ls.Search(p, x, d, f0, g0)
	require.NoError(t, err)
	assert.LessOrEqual(t, res.Cost, f0+params.C1*res.Step*dg0)
	assert.Less(t, res.Step, 1.0)
	assert.Equal(t, 1, res.GradEvals)

	want, err := p.Gradient(res.Param)
	require.NoError(t, err)
	assert.Equal(t, want, res.Grad)

	short, err := NewBacktracking(Params{MaxSteps: 2})
	require.NoError(t, err)
	_, err = short.Search(p, x, d, f0, g0)
	assert.ErrorIs(t, err, optimization.ErrLineSearchFailure)
}

func TestNewByName(t *testing.T) {
	s, err := NewByName("", Params{})
	require.NoError(t, err)
	assert.Equal(t, "MoreThuente", s.Name())

	s, err = NewByName(MethodBacktracking, Params{})
	require.NoError(t, err)
	assert.Equal(t, "Backtracking", s.Name())

	_, err = NewByName("golden-section", Params{})
	assert.True(t, errors.Is(err, optimization.ErrInvalidConfig))

	_, err = NewByName(MethodMoreThuente, Params{C1: 0.5, C2: 0.1})
	assert.True(t, errors.Is(err, optimization.ErrInvalidConfig))
}
