package vector

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/descent/internal/optimization"
)

func TestDot(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float64
		expected float64
		wantErr  bool
	}{
		{name: "orthogonal", a: []float64{1, 0}, b: []float64{0, 1}, expected: 0},
		{name: "parallel", a: []float64{1, 2, 3}, b: []float64{4, 5, 6}, expected: 32},
		{name: "empty", a: []float64{}, b: []float64{}, expected: 0},
		{name: "mismatch", a: []float64{1, 2, 3}, b: []float64{1, 2}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Dot(tt.a, tt.b)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, optimization.ErrDimensionMismatch))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestNorm(t *testing.T) {
	assert.Equal(t, 5.0, Norm([]float64{3, -4}))
	assert.Equal(t, 0.0, Norm(nil))
	assert.InDelta(t, math.Sqrt(3), Norm([]float64{1, 1, 1}), 1e-15)
}

func TestScaleDoesNotAlias(t *testing.T) {
	a := []float64{1, -2}
	got := Scale(a, -3)
	assert.Equal(t, []float64{-3, 6}, got)
	assert.Equal(t, []float64{1, -2}, a, "input must not change")

	got[0] = 100
	assert.Equal(t, 1.0, a[0])
}

func TestAXPY(t *testing.T) {
	a := []float64{1, 2}
	b := []float64{10, 20}

	got, err := AXPY(a, 0.5, b)
	require.NoError(t, err)
	assert.Equal(t, []float64{6, 12}, got)
	assert.Equal(t, []float64{1, 2}, a)
	assert.Equal(t, []float64{10, 20}, b)

	_, err = AXPY(a, 1, []float64{1, 2, 3})
	require.Error(t, err)
	assert.ErrorIs(t, err, optimization.ErrDimensionMismatch)
}

func TestIsFinite(t *testing.T) {
	assert.True(t, IsFinite([]float64{0, -1, 1e300}))
	assert.False(t, IsFinite([]float64{0, math.NaN()}))
	assert.False(t, IsFinite([]float64{math.Inf(-1)}))
	assert.True(t, IsFinite(nil))
}

func TestClone(t *testing.T) {
	assert.Nil(t, Clone(nil))
	a := []float64{1, 2}
	c := Clone(a)
	c[0] = 5
	assert.Equal(t, 1.0, a[0])
}
