package testfunctions

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"

	"github.com/copyleftdev/descent/internal/optimization"
)

// mustCost adapts a problem to the error-free signature fd expects.
func mustCost(t *testing.T, p optimization.CostFunction) func([]float64) float64 {
	return func(x []float64) float64 {
		v, err := p.Cost(x)
		require.NoError(t, err)
		return v
	}
}

type fullProblem interface {
	optimization.Problem
	optimization.Hessianer
}

func TestDerivativesMatchFiniteDifferences(t *testing.T) {
	a := mat.NewSymDense(3, []float64{
		4, 1, 0,
		1, 3, -1,
		0, -1, 2,
	})
	quad, err := NewQuadratic(a, []float64{1, -2, 0.5})
	require.NoError(t, err)

	tests := []struct {
		name    string
		problem fullProblem
		x       []float64
	}{
		{"rosenbrock 2d", NewRosenbrock(), []float64{1, -2}},
		{"rosenbrock 2d near min", NewRosenbrock(), []float64{0.9, 0.8}},
		{"rosenbrock 4d", Rosenbrock{A: 1, B: 10}, []float64{-1.2, 1, 0.5, 2}},
		{"sphere", Sphere{}, []float64{5, -3}},
		{"quadratic", quad, []float64{0.3, -0.7, 1.1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := mustCost(t, tt.problem)

			grad, err := tt.problem.Gradient(tt.x)
			require.NoError(t, err)
			want := fd.Gradient(nil, f, tt.x, &fd.Settings{Formula: fd.Central})
			for i := range want {
				assert.InDelta(t, want[i], grad[i], 1e-4*math.Max(1, math.Abs(want[i])), "gradient[%d]", i)
			}

			hess, err := tt.problem.Hessian(tt.x)
			require.NoError(t, err)
			wantH := mat.NewSymDense(len(tt.x), nil)
			fd.Hessian(wantH, f, tt.x, nil)
			n := len(tt.x)
			for i := 0; i < n; i++ {
				for j := 0; j < n; j++ {
					w := wantH.At(i, j)
					assert.InDelta(t, w, hess.At(i, j), 1e-2*math.Max(1, math.Abs(w)), "hessian[%d,%d]", i, j)
				}
			}
		})
	}
}

func TestRosenbrockValues(t *testing.T) {
	r := NewRosenbrock()

	v, err := r.Cost([]float64{1, 1})
	require.NoError(t, err)
	assert.Equal(t, 0.0, v)

	v, err = r.Cost([]float64{1, -2})
	require.NoError(t, err)
	assert.Equal(t, 900.0, v)

	g, err := r.Gradient([]float64{1, 1})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0}, g)

	_, err = r.Cost([]float64{1})
	assert.ErrorIs(t, err, optimization.ErrDimensionMismatch)
}

func TestEvaluationsAreIdempotent(t *testing.T) {
	problems := map[string]optimization.Problem{
		"rosenbrock": NewRosenbrock(),
		"sphere":     Sphere{},
	}
	x := []float64{0.123456789, -1.987654321}

	for name, p := range problems {
		t.Run(name, func(t *testing.T) {
			c1, err := p.Cost(x)
			require.NoError(t, err)
			c2, err := p.Cost(x)
			require.NoError(t, err)
			assert.Equal(t, math.Float64bits(c1), math.Float64bits(c2))

			g1, err := p.Gradient(x)
			require.NoError(t, err)
			g2, err := p.Gradient(x)
			require.NoError(t, err)
			for i := range g1 {
				assert.Equal(t, math.Float64bits(g1[i]), math.Float64bits(g2[i]))
			}
		})
	}
}

func TestQuadraticDimensionChecks(t *testing.T) {
	a := mat.NewSymDense(2, []float64{1, 0, 0, 1})
	_, err := NewQuadratic(a, []float64{1, 2, 3})
	assert.ErrorIs(t, err, optimization.ErrDimensionMismatch)

	q, err := NewQuadratic(a, nil)
	require.NoError(t, err)
	_, err = q.Gradient([]float64{1, 2, 3})
	assert.ErrorIs(t, err, optimization.ErrDimensionMismatch)
}

func TestLookup(t *testing.T) {
	assert.Equal(t, []string{"gp-matern52", "gp-rbf", "rosenbrock", "sphere"}, Names())
	assert.NotEmpty(t, Describe("rosenbrock"))

	p, err := Lookup("rosenbrock", map[string]float64{"a": 2, "b": 50})
	require.NoError(t, err)
	assert.Equal(t, Rosenbrock{A: 2, B: 50}, p)

	_, err = Lookup("rosenbrock", map[string]float64{"c": 1})
	assert.ErrorIs(t, err, optimization.ErrInvalidConfig)
	assert.Contains(t, err.Error(), `rosenbrock: unknown parameter "c"`)

	_, err = Lookup("sphere", map[string]float64{"r": 1})
	assert.ErrorIs(t, err, optimization.ErrInvalidConfig)

	_, err = Lookup("himmelblau", nil)
	assert.ErrorIs(t, err, optimization.ErrInvalidConfig)
	assert.Equal(t, optimization.KindInvalidConfig, optimization.KindOf(err))

	p, err = Lookup("sphere", nil)
	require.NoError(t, err)
	assert.Equal(t, Sphere{}, p)
}
