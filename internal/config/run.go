package config

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/copyleftdev/descent/internal/optimization"
	"github.com/copyleftdev/descent/internal/optimization/linesearch"
	"github.com/copyleftdev/descent/internal/optimization/testfunctions"
)

// Run describes one optimization run: which problem, where to start and when
// to stop. It is read from YAML run files by the CLI and from JSON request
// bodies by the server.
type Run struct {
	Problem       Problem    `json:"problem" yaml:"problem"`
	InitParam     []float64  `json:"init_param" yaml:"init_param"`
	MaxIters      int        `json:"max_iters" yaml:"max_iters"`
	TargetCost    *float64   `json:"target_cost,omitempty" yaml:"target_cost"`
	GradTolerance float64    `json:"grad_tolerance" yaml:"grad_tolerance"`
	LineSearch    LineSearch `json:"line_search" yaml:"line_search"`
}

// Problem names a registered test problem and its parameters.
type Problem struct {
	Name   string             `json:"name" yaml:"name"`
	Params map[string]float64 `json:"params,omitempty" yaml:"params,omitempty"`
}

// LineSearch selects the line search method and its parameters.
type LineSearch struct {
	Method            string `json:"method" yaml:"method"`
	linesearch.Params `yaml:",inline"`
}

// DefaultRun minimizes the 2-D Rosenbrock function (a=1, b=100) from
// (1, -2) for at most 1000 iterations with a target cost of 0.
func DefaultRun() Run {
	return Run{
		Problem:    Problem{Name: "rosenbrock"},
		InitParam:  []float64{1, -2},
		MaxIters:   1000,
		TargetCost: optimization.Float(0),
		LineSearch: LineSearch{
			Method: linesearch.MethodMoreThuente,
			Params: linesearch.DefaultParams(),
		},
	}
}

// LoadRun reads a YAML run file. Fields missing from the file keep the values
// of DefaultRun.
func LoadRun(path string) (Run, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Run{}, fmt.Errorf("read run file: %w", err)
	}
	run, err := DecodeRun(bytes.NewReader(data), DefaultRun())
	if err != nil {
		return Run{}, fmt.Errorf("%s: %w", path, err)
	}
	return run, nil
}

// DecodeRun decodes YAML on top of base. Unknown keys are rejected.
func DecodeRun(r io.Reader, base Run) (Run, error) {
	run := base
	if run.TargetCost != nil {
		run.TargetCost = optimization.Float(*run.TargetCost)
	}
	// A new problem name must not inherit the previous problem's params.
	run.Problem.Params = nil

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&run); err != nil && err != io.EOF {
		return Run{}, fmt.Errorf("decode run: %w", err)
	}
	return run, nil
}

// EncodeRun writes run as YAML.
func EncodeRun(w io.Writer, run Run) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(run); err != nil {
		return err
	}
	return enc.Close()
}

// Config converts the run into the executor configuration.
func (r Run) Config() optimization.Config {
	cfg := optimization.Config{
		Param:         append([]float64(nil), r.InitParam...),
		MaxIters:      r.MaxIters,
		GradTolerance: r.GradTolerance,
	}
	if r.TargetCost != nil {
		cfg.TargetCost = optimization.Float(*r.TargetCost)
	}
	return cfg
}

// Resolve builds the problem and line search the run names and validates the
// resulting configuration.
func (r Run) Resolve() (optimization.Problem, linesearch.Searcher, optimization.Config, error) {
	cfg := r.Config()

	p, err := testfunctions.Lookup(r.Problem.Name, r.Problem.Params)
	if err != nil {
		return nil, nil, cfg, err
	}
	ls, err := linesearch.NewByName(r.LineSearch.Method, r.LineSearch.Params)
	if err != nil {
		return nil, nil, cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, cfg, err
	}
	return p, ls, cfg, nil
}
