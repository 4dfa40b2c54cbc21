package optimization

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestErrorString(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{"message only", NewError(KindEvaluation, "bad"), "bad"},
		{"component", NewError(KindEvaluation, "bad").WithComponent("guard"), "guard: bad"},
		{"operation", NewError(KindEvaluation, "bad").WithOperation("Cost"), "Cost: bad"},
		{"both", NewError(KindEvaluation, "bad").WithComponent("guard").WithOperation("Cost"), "guard: Cost: bad"},
		{"point", NewError(KindEvaluation, "non-finite cost").WithPoint([]float64{1, 2}), "non-finite cost at [1 2]"},
		{"wrapped", WrapError(errors.New("boom"), KindEvaluation, "cost failed"), "cost failed: boom"},
		{"wrapped with prefix", WrapErrorf(errors.New("boom"), KindEvaluation, "step %d", 3).WithComponent("ls"), "ls: step 3: boom"},
		{"nil", nil, "<nil>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestErrorMatching(t *testing.T) {
	inner := NewError(KindDimensionMismatch, "len 3 vs 2")
	wrapped := fmt.Errorf("evaluating: %w", WrapError(inner, KindLineSearchFailure, "search"))

	assert.ErrorIs(t, wrapped, ErrLineSearchFailure)
	assert.ErrorIs(t, wrapped, ErrDimensionMismatch)
	assert.NotErrorIs(t, wrapped, ErrEvaluation)
	assert.Equal(t, KindLineSearchFailure, KindOf(wrapped))
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	assert.Equal(t, KindUnknown, KindOf(nil))

	assert.False(t, NewError(KindUnknown, "x").Is(&Error{}))
	assert.Nil(t, WrapError(nil, KindEvaluation, "x"))
	assert.Nil(t, WrapErrorf(nil, KindEvaluation, "x"))

	e, ok := IsOptimizationError(inner)
	assert.True(t, ok)
	assert.Same(t, inner, e)
	_, ok = IsOptimizationError(wrapped)
	assert.False(t, ok)
	assert.Equal(t, "DimensionMismatch", KindDimensionMismatch.String())
}

func TestWithPointCopies(t *testing.T) {
	x := []float64{1, 2}
	err := NewError(KindEvaluation, "bad").WithPoint(x)
	x[0] = 99
	assert.Equal(t, []float64{1, 2}, err.Point)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		kind ErrorKind
	}{
		{"ok", Config{Param: []float64{1}}, KindUnknown},
		{"missing param", Config{}, KindMissingInitialParam},
		{"negative iters", Config{Param: []float64{1}, MaxIters: -1}, KindInvalidConfig},
		{"negative tolerance", Config{Param: []float64{1}, GradTolerance: -1}, KindInvalidConfig},
		{"nan tolerance", Config{Param: []float64{1}, GradTolerance: math.NaN()}, KindInvalidConfig},
		{"nan target", Config{Param: []float64{1}, TargetCost: Float(math.NaN())}, KindInvalidConfig},
		{"infinite param", Config{Param: []float64{math.Inf(-1)}}, KindInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.kind == KindUnknown {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.kind, KindOf(err))
		})
	}

	assert.Equal(t, math.MaxInt, Config{}.IterationLimit())
	assert.Equal(t, 7, Config{MaxIters: 7}.IterationLimit())
}

func TestIterState(t *testing.T) {
	target := 1.0
	cfg := Config{Param: []float64{1, 2}, TargetCost: &target}
	s := NewIterState(cfg)

	cfg.Param[0] = 50
	target = 2
	assert.Equal(t, []float64{1, 2}, s.Param)
	assert.Equal(t, 1.0, *s.Config.TargetCost)
	assert.Equal(t, 2, s.Dim())
	assert.True(t, math.IsInf(s.BestCost, 1))

	s.Update([]float64{1, 2}, 5, []float64{0, 1})
	assert.Equal(t, 5.0, s.BestCost)

	s.Iter = 1
	s.Update([]float64{0, 1}, 7, []float64{0, 1})
	assert.Equal(t, 5.0, s.BestCost)
	assert.Equal(t, []float64{1, 2}, s.BestParam)
	assert.Equal(t, 0, s.LastBestIter)

	s.Iter = 2
	s.Update([]float64{0, 0}, 3, []float64{0, 0})
	assert.Equal(t, 3.0, s.BestCost)
	assert.Equal(t, 2, s.LastBestIter)

	assert.False(t, s.Reason.Terminated())
	s.Terminate(Converged, "target cost reached")
	assert.True(t, s.Reason.Terminated())
	assert.Equal(t, "target cost reached", s.Message)
}

func TestReasonText(t *testing.T) {
	for _, r := range []Reason{NotTerminated, Converged, MaxIterExceeded, Failed} {
		b, err := json.Marshal(r)
		require.NoError(t, err)
		assert.Equal(t, `"`+r.String()+`"`, string(b))

		var got Reason
		require.NoError(t, json.Unmarshal(b, &got))
		assert.Equal(t, r, got)
	}

	var r Reason
	assert.Error(t, r.UnmarshalText([]byte("Exploded")))
	assert.Equal(t, "Unknown", Reason(42).String())
}

func TestFuncAdapter(t *testing.T) {
	var empty Func
	_, err := empty.Cost([]float64{1})
	assert.ErrorIs(t, err, ErrEvaluation)
	_, err = empty.Gradient([]float64{1})
	assert.ErrorIs(t, err, ErrEvaluation)
	_, err = empty.Hessian([]float64{1})
	assert.ErrorIs(t, err, ErrEvaluation)

	f := Func{
		CostFunc: func(x []float64) (float64, error) { return x[0] * x[0], nil },
		GradFunc: func(x []float64) ([]float64, error) { return []float64{2 * x[0]}, nil },
		HessFunc: func(x []float64) (*mat.SymDense, error) { return mat.NewSymDense(1, []float64{2}), nil },
	}
	var _ Problem = f
	var _ Hessianer = f

	c, err := f.Cost([]float64{3})
	require.NoError(t, err)
	assert.Equal(t, 9.0, c)
	g, err := f.Gradient([]float64{3})
	require.NoError(t, err)
	assert.Equal(t, []float64{6}, g)
}

func TestNumericalGradient(t *testing.T) {
	// f(x, y) = x² + 3xy + 2y²
	n := &NumericalGradient{Fn: Func{CostFunc: func(x []float64) (float64, error) {
		return x[0]*x[0] + 3*x[0]*x[1] + 2*x[1]*x[1], nil
	}}}

	g, err := n.Gradient([]float64{1, -1})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{-1, -1}, g, 1e-6)

	h, err := n.Hessian([]float64{1, -1})
	require.NoError(t, err)
	assert.InDelta(t, 2.0, h.At(0, 0), 1e-3)
	assert.InDelta(t, 3.0, h.At(0, 1), 1e-3)
	assert.InDelta(t, 4.0, h.At(1, 1), 1e-3)

	failing := &NumericalGradient{Fn: Func{CostFunc: func(x []float64) (float64, error) {
		return 0, errors.New("no cost today")
	}}}
	_, err = failing.Gradient([]float64{1})
	assert.ErrorIs(t, err, ErrEvaluation)
	_, err = failing.Hessian([]float64{1})
	assert.ErrorIs(t, err, ErrEvaluation)
}
