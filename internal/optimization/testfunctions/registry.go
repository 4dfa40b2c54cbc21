package testfunctions

import (
	"math"
	"sort"

	"github.com/copyleftdev/descent/internal/optimization"
)

type factory func(params map[string]float64) (optimization.Problem, error)

var registry = map[string]struct {
	description string
	build       factory
}{
	"rosenbrock": {
		description: "chained Rosenbrock (a - x)² + b(y - x²)², params a (1), b (100)",
		build: func(params map[string]float64) (optimization.Problem, error) {
			r := NewRosenbrock()
			for k, v := range params {
				switch k {
				case "a":
					r.A = v
				case "b":
					r.B = v
				default:
					return nil, invalidParams("rosenbrock", "unknown parameter %q", k)
				}
			}
			return r, nil
		},
	},
	"sphere": {
		description: "sum of squares |x|², no params",
		build: func(params map[string]float64) (optimization.Problem, error) {
			if len(params) > 0 {
				return nil, invalidParams("sphere", "takes no parameters")
			}
			return Sphere{}, nil
		},
	},
	"gp-rbf": {
		description: "GP negative log marginal likelihood, RBF kernel, θ = [log ℓ, log σf², log σn²], param n (20)",
		build:       gpFactory("rbf"),
	},
	"gp-matern52": {
		description: "GP negative log marginal likelihood, Matérn 5/2 kernel, θ = [log ℓ, log σf², log σn²], param n (20)",
		build:       gpFactory("matern52"),
	},
}

const maxGPSamples = 500

func gpFactory(kernel string) factory {
	return func(params map[string]float64) (optimization.Problem, error) {
		n := 20
		for k, v := range params {
			switch k {
			case "n":
				if v != math.Trunc(v) || v < 2 || v > maxGPSamples {
					return nil, invalidParams("gp-"+kernel, "n must be an integer in [2, %d], got %v", maxGPSamples, v)
				}
				n = int(v)
			default:
				return nil, invalidParams("gp-"+kernel, "unknown parameter %q", k)
			}
		}
		x, y := SyntheticData(n)
		return NewGPLikelihood(kernel, x, y)
	}
}

func invalidParams(problem, format string, args ...interface{}) error {
	return optimization.NewErrorf(optimization.KindInvalidConfig, problem+": "+format, args...).
		WithComponent("testfunctions").WithOperation("Lookup")
}

// Lookup builds the named test problem.
func Lookup(name string, params map[string]float64) (optimization.Problem, error) {
	entry, ok := registry[name]
	if !ok {
		return nil, optimization.NewErrorf(optimization.KindInvalidConfig,
			"unknown problem %q (available: %v)", name, Names()).WithComponent("testfunctions").WithOperation("Lookup")
	}
	return entry.build(params)
}

// Names lists the registered problems in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Describe returns the one-line description of a registered problem.
func Describe(name string) string {
	return registry[name].description
}
