package testfunctions

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/copyleftdev/descent/internal/optimization"
	"github.com/copyleftdev/descent/internal/optimization/kernels"
)

// jitter is added to the diagonal of the covariance, relative to the signal
// variance, so the Cholesky factorization stays well conditioned.
const jitter = 1e-8

// GPLikelihood is the negative log marginal likelihood of a zero-mean
// Gaussian process regression model over a fixed dataset, as a function of
//
//	θ = [log ℓ, log σf², log σn²]
//
// (kernel length scale, signal variance and noise variance):
//
//	f(θ) = ½ yᵀK⁻¹y + ½ log|K| + (n/2) log 2π,  K = K_f(θ) + σn² I
type GPLikelihood struct {
	Kernel string
	X      [][]float64
	Y      []float64
}

// NewGPLikelihood fits the named kernel to (x, y).
func NewGPLikelihood(kernel string, x [][]float64, y []float64) (*GPLikelihood, error) {
	if len(x) != len(y) {
		return nil, optimization.NewErrorf(optimization.KindDimensionMismatch,
			"%d inputs but %d targets", len(x), len(y)).WithComponent("gp")
	}
	if len(y) < 2 {
		return nil, optimization.NewError(optimization.KindInvalidConfig,
			"needs at least 2 observations").WithComponent("gp")
	}
	// Fail early on an unknown kernel name.
	if _, err := kernels.New(kernel, 1, 1); err != nil {
		return nil, optimization.WrapError(err, optimization.KindInvalidConfig, "bad kernel").WithComponent("gp")
	}
	return &GPLikelihood{Kernel: kernel, X: x, Y: y}, nil
}

// SyntheticData returns n evenly spaced points on [0, 1] sampled from a
// sine wave with a deterministic high-frequency perturbation.
func SyntheticData(n int) ([][]float64, []float64) {
	x := make([][]float64, n)
	y := make([]float64, n)
	for i := range n {
		xi := float64(i) / float64(n-1)
		x[i] = []float64{xi}
		y[i] = math.Sin(2*math.Pi*xi) + 0.1*math.Sin(17*xi)
	}
	return x, y
}

type gpFit struct {
	kernel kernels.Kernel
	noise  float64
	chol   mat.Cholesky
	alpha  *mat.VecDense
}

func (g *GPLikelihood) fit(op string, theta []float64) (*gpFit, error) {
	if len(theta) != 3 {
		return nil, optimization.NewErrorf(optimization.KindDimensionMismatch,
			"expected 3 log hyperparameters, got %d", len(theta)).
			WithComponent("gp").WithOperation(op)
	}
	k, err := kernels.New(g.Kernel, 1, 1)
	if err != nil {
		return nil, optimization.WrapError(err, optimization.KindInvalidConfig, "bad kernel").
			WithComponent("gp").WithOperation(op)
	}
	if err := k.SetLogHyperparameters(theta[:2]); err != nil {
		return nil, optimization.WrapError(err, optimization.KindEvaluation, "invalid hyperparameters").
			WithComponent("gp").WithOperation(op).WithPoint(theta)
	}
	noise := math.Exp(theta[2])
	if math.IsInf(noise, 0) {
		return nil, optimization.NewError(optimization.KindEvaluation, "noise variance overflow").
			WithComponent("gp").WithOperation(op).WithPoint(theta)
	}
	signal := math.Exp(theta[1])

	n := len(g.Y)
	cov := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := k.Eval(g.X[i], g.X[j])
			if i == j {
				v += noise + jitter*signal
			}
			cov.SetSym(i, j, v)
		}
	}

	f := &gpFit{kernel: k, noise: noise, alpha: mat.NewVecDense(n, nil)}
	if ok := f.chol.Factorize(cov); !ok {
		return nil, optimization.NewError(optimization.KindEvaluation, "covariance is not positive definite").
			WithComponent("gp").WithOperation(op).WithPoint(theta)
	}
	y := mat.NewVecDense(n, append([]float64(nil), g.Y...))
	if err := f.chol.SolveVecTo(f.alpha, y); err != nil {
		return nil, optimization.WrapError(err, optimization.KindEvaluation, "covariance solve failed").
			WithComponent("gp").WithOperation(op).WithPoint(theta)
	}
	return f, nil
}

// Cost implements optimization.CostFunction.
func (g *GPLikelihood) Cost(theta []float64) (float64, error) {
	f, err := g.fit("Cost", theta)
	if err != nil {
		return 0, err
	}
	n := float64(len(g.Y))
	return 0.5*floats.Dot(g.Y, f.alpha.RawVector().Data) + 0.5*f.chol.LogDet() + 0.5*n*math.Log(2*math.Pi), nil
}

// Gradient implements optimization.Gradienter using
//
//	∂f/∂θⱼ = ½ tr((K⁻¹ - ααᵀ) ∂K/∂θⱼ),  α = K⁻¹y
func (g *GPLikelihood) Gradient(theta []float64) ([]float64, error) {
	f, err := g.fit("Gradient", theta)
	if err != nil {
		return nil, err
	}
	var inv mat.SymDense
	if err := f.chol.InverseTo(&inv); err != nil {
		return nil, optimization.WrapError(err, optimization.KindEvaluation, "covariance inverse failed").
			WithComponent("gp").WithOperation("Gradient").WithPoint(theta)
	}

	signal := math.Exp(theta[1])
	grad := make([]float64, 3)
	n := len(g.Y)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			w := inv.At(i, j) - f.alpha.AtVec(i)*f.alpha.AtVec(j)
			dk := f.kernel.LogGradient(g.X[i], g.X[j])
			grad[0] += w * dk[0]
			grad[1] += w * dk[1]
			if i == j {
				grad[1] += w * jitter * signal
				grad[2] += w * f.noise
			}
		}
	}
	floats.Scale(0.5, grad)
	return grad, nil
}
