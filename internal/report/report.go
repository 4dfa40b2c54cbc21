// Package report renders optimization results for people and machines.
package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/copyleftdev/descent/internal/optimization"
)

// Options controls the text report.
type Options struct {
	// Elapsed adds the wall time line.
	Elapsed bool
	// History appends the per-iteration table.
	History bool
}

// WriteText writes a human-readable summary of res.
func WriteText(w io.Writer, res *optimization.OptimizationResult, opts Options) error {
	ew := &errWriter{w: w}

	ew.printf("OptimizationResult:\n")
	ew.printf("    Solver:        %s\n", res.Solver)
	ew.printf("    param (best):  %v\n", res.BestParam)
	ew.printf("    cost (best):   %v\n", res.BestCost)
	ew.printf("    iters (best):  %d\n", res.LastBestIter)
	ew.printf("    iters (total): %d\n", res.Iterations)
	if res.Message != "" {
		ew.printf("    termination:   %s (%s)\n", res.Reason, res.Message)
	} else {
		ew.printf("    termination:   %s\n", res.Reason)
	}
	ew.printf("    evaluations:   cost=%d gradient=%d\n", res.FuncEvals, res.GradEvals)
	ew.printf("    grad norm:     %v\n", res.GradNorm)
	if opts.Elapsed {
		ew.printf("    time:          %s\n", res.Elapsed)
	}

	if opts.History && len(res.History) > 0 {
		ew.printf("\n%5s  %-13s  %-13s  %-13s  %s\n", "iter", "cost", "best_cost", "grad_norm", "step")
		for _, d := range res.History {
			ew.printf("%5d  %-13.6e  %-13.6e  %-13.6e  %.6e\n", d.Iteration, d.Cost, d.BestCost, d.GradNorm, d.Step)
		}
	}
	return ew.err
}

// WriteJSON writes res as a single JSON document.
func WriteJSON(w io.Writer, res *optimization.OptimizationResult, indent bool) error {
	enc := json.NewEncoder(w)
	if indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(res); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return nil
}

// errWriter keeps the first write error so the report can be written
// without checking every line.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...interface{}) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
