package optimization

import (
	"fmt"
	"math"
)

// Reason describes why a run stopped.
type Reason int

const (
	// NotTerminated marks a run that is still iterating.
	NotTerminated Reason = iota
	// Converged means the target cost or gradient tolerance was met.
	Converged
	// MaxIterExceeded means the iteration limit was hit first.
	MaxIterExceeded
	// Failed means the run was aborted by an error.
	Failed
)

func (r Reason) String() string {
	switch r {
	case NotTerminated:
		return "NotTerminated"
	case Converged:
		return "Converged"
	case MaxIterExceeded:
		return "MaxIterExceeded"
	case Failed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (r Reason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Reason) UnmarshalText(text []byte) error {
	for _, c := range []Reason{NotTerminated, Converged, MaxIterExceeded, Failed} {
		if c.String() == string(text) {
			*r = c
			return nil
		}
	}
	return fmt.Errorf("unknown termination reason %q", text)
}

// Terminated reports whether r is a terminal reason.
func (r Reason) Terminated() bool {
	return r != NotTerminated
}

// IterState is the mutable state of one run. It is owned by a single
// executor and must not be shared between runs.
type IterState struct {
	Config Config

	Param []float64
	Cost  float64
	Grad  []float64

	BestParam    []float64
	BestCost     float64
	LastBestIter int

	Iter      int
	LastStep  float64
	FuncEvals int
	GradEvals int

	Reason  Reason
	Message string
}

// NewIterState creates a state from cfg. Costs start at +Inf so the first
// evaluated point always becomes the best one.
func NewIterState(cfg Config) *IterState {
	cfg.Param = append([]float64(nil), cfg.Param...)
	if cfg.TargetCost != nil {
		cfg.TargetCost = Float(*cfg.TargetCost)
	}
	return &IterState{
		Config:   cfg,
		Param:    append([]float64(nil), cfg.Param...),
		Cost:     math.Inf(1),
		BestCost: math.Inf(1),
	}
}

// Dim returns the problem dimension.
func (s *IterState) Dim() int {
	return len(s.Config.Param)
}

// Update replaces the current point and keeps the running minimum.
// The state takes ownership of param and grad.
func (s *IterState) Update(param []float64, cost float64, grad []float64) {
	s.Param = param
	s.Cost = cost
	s.Grad = grad
	if cost < s.BestCost || s.BestParam == nil {
		s.BestCost = cost
		s.BestParam = append([]float64(nil), param...)
		s.LastBestIter = s.Iter
	}
}

// Terminate records a terminal reason.
func (s *IterState) Terminate(reason Reason, message string) {
	s.Reason = reason
	s.Message = message
}

// Snapshot is a read-only copy of the state handed to observers.
type Snapshot struct {
	Iter      int
	Param     []float64
	Cost      float64
	GradNorm  float64
	BestParam []float64
	BestCost  float64
	Step      float64
	FuncEvals int
	GradEvals int
	Reason    Reason
}
