package optimization

import (
	"time"
)

// Diagnostic is one entry of the per-iteration history.
type Diagnostic struct {
	Iteration int     `json:"iteration"`
	Cost      float64 `json:"cost"`
	BestCost  float64 `json:"best_cost"`
	GradNorm  float64 `json:"grad_norm"`
	Step      float64 `json:"step"`
	FuncEvals int     `json:"func_evals"`
	GradEvals int     `json:"grad_evals"`
}

// OptimizationResult contains the result of an optimization run
type OptimizationResult struct {
	Solver string `json:"solver"`

	BestParam    []float64 `json:"best_param"`
	BestCost     float64   `json:"best_cost"`
	LastBestIter int       `json:"last_best_iter"`

	Param    []float64 `json:"param"`
	Cost     float64   `json:"cost"`
	GradNorm float64   `json:"grad_norm"`

	Iterations int    `json:"iterations"`
	Reason     Reason `json:"termination_reason"`
	Message    string `json:"message,omitempty"`
	FuncEvals  int    `json:"func_evals"`
	GradEvals  int    `json:"grad_evals"`

	History []Diagnostic  `json:"history,omitempty"`
	Elapsed time.Duration `json:"elapsed"`
}
