package testfunctions

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/copyleftdev/descent/internal/optimization"
)

// Sphere is f(x) = |x|², minimised at the origin.
type Sphere struct{}

// Cost implements optimization.CostFunction.
func (Sphere) Cost(x []float64) (float64, error) {
	return floats.Dot(x, x), nil
}

// Gradient implements optimization.Gradienter.
func (Sphere) Gradient(x []float64) ([]float64, error) {
	grad := make([]float64, len(x))
	floats.ScaleTo(grad, 2, x)
	return grad, nil
}

// Hessian implements optimization.Hessianer.
func (Sphere) Hessian(x []float64) (*mat.SymDense, error) {
	h := mat.NewSymDense(len(x), nil)
	for i := range x {
		h.SetSym(i, i, 2)
	}
	return h, nil
}

// Quadratic is f(x) = ½ xᵀAx − bᵀx. With A positive definite the minimum
// is at A⁻¹b.
type Quadratic struct {
	A *mat.SymDense
	B []float64
}

// NewQuadratic builds a quadratic from a symmetric matrix and a linear term.
// A nil b means the zero vector.
func NewQuadratic(a *mat.SymDense, b []float64) (*Quadratic, error) {
	n := a.SymmetricDim()
	if b == nil {
		b = make([]float64, n)
	}
	if len(b) != n {
		return nil, optimization.NewErrorf(optimization.KindDimensionMismatch,
			"linear term has length %d, matrix is %dx%d", len(b), n, n).
			WithComponent("quadratic").WithOperation("NewQuadratic")
	}
	return &Quadratic{A: a, B: append([]float64(nil), b...)}, nil
}

func (q *Quadratic) check(op string, x []float64) error {
	if len(x) != len(q.B) {
		return optimization.NewErrorf(optimization.KindDimensionMismatch,
			"point has length %d, problem has dimension %d", len(x), len(q.B)).
			WithComponent("quadratic").WithOperation(op)
	}
	return nil
}

// Cost implements optimization.CostFunction.
func (q *Quadratic) Cost(x []float64) (float64, error) {
	if err := q.check("Cost", x); err != nil {
		return 0, err
	}
	xv := mat.NewVecDense(len(x), append([]float64(nil), x...))
	return 0.5*mat.Inner(xv, q.A, xv) - floats.Dot(q.B, x), nil
}

// Gradient implements optimization.Gradienter.
func (q *Quadratic) Gradient(x []float64) ([]float64, error) {
	if err := q.check("Gradient", x); err != nil {
		return nil, err
	}
	var ax mat.VecDense
	ax.MulVec(q.A, mat.NewVecDense(len(x), append([]float64(nil), x...)))
	grad := make([]float64, len(x))
	floats.SubTo(grad, ax.RawVector().Data, q.B)
	return grad, nil
}

// Hessian implements optimization.Hessianer.
func (q *Quadratic) Hessian(x []float64) (*mat.SymDense, error) {
	if err := q.check("Hessian", x); err != nil {
		return nil, err
	}
	h := mat.NewSymDense(len(x), nil)
	h.CopySym(q.A)
	return h, nil
}
