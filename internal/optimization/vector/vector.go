// Package vector provides the dense vector operations used by the solvers.
// Every function returns freshly allocated slices and leaves its inputs
// untouched.
package vector

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/copyleftdev/descent/internal/optimization"
)

// CheckDims returns ErrDimensionMismatch unless a and b have equal length.
func CheckDims(op string, a, b []float64) error {
	if len(a) != len(b) {
		return optimization.NewErrorf(optimization.KindDimensionMismatch,
			"length %d does not match length %d", len(a), len(b)).
			WithComponent("vector").WithOperation(op)
	}
	return nil
}

// Dot returns the inner product a·b.
func Dot(a, b []float64) (float64, error) {
	if err := CheckDims("Dot", a, b); err != nil {
		return 0, err
	}
	return floats.Dot(a, b), nil
}

// Norm returns the Euclidean norm of a.
func Norm(a []float64) float64 {
	if len(a) == 0 {
		return 0
	}
	return floats.Norm(a, 2)
}

// Scale returns s·a.
func Scale(a []float64, s float64) []float64 {
	dst := make([]float64, len(a))
	floats.ScaleTo(dst, s, a)
	return dst
}

// AXPY returns a + s·b.
func AXPY(a []float64, s float64, b []float64) ([]float64, error) {
	if err := CheckDims("AXPY", a, b); err != nil {
		return nil, err
	}
	dst := make([]float64, len(a))
	floats.AddScaledTo(dst, a, s, b)
	return dst, nil
}

// Clone returns a copy of a.
func Clone(a []float64) []float64 {
	if a == nil {
		return nil
	}
	return append(make([]float64, 0, len(a)), a...)
}

// IsFinite reports whether every element of a is neither NaN nor ±Inf.
func IsFinite(a []float64) bool {
	for _, v := range a {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
