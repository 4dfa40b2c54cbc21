package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/copyleftdev/descent/internal/config"
	"github.com/copyleftdev/descent/internal/optimization"
	"github.com/copyleftdev/descent/internal/optimization/executor"
	"github.com/copyleftdev/descent/internal/optimization/linesearch"
	"github.com/copyleftdev/descent/internal/optimization/steepest"
	"github.com/copyleftdev/descent/internal/report"
)

type runOptions struct {
	root *rootOptions

	configPath  string
	problem     string
	params      map[string]string
	init        []float64
	maxIters    int
	targetCost  string
	gradTol     float64
	lineSearch  string
	c1          float64
	c2          float64
	initialStep float64
	maxSteps    int

	output      string
	history     bool
	elapsed     bool
	tracePath   string
	traceParams bool
}

func newRunCommand(root *rootOptions) *cobra.Command {
	o := &runOptions{root: root}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one optimization",
		Long: `Runs steepest descent on a built-in problem and prints the result.

Without flags this minimizes the 2-D Rosenbrock function (a=1, b=100) from
(1, -2) with at most 1000 iterations and a target cost of 0. A YAML run file
given with --config replaces those defaults; flags override both.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := o.buildRun(cmd)
			if err != nil {
				return err
			}
			return o.execute(cmd, run)
		},
	}

	f := cmd.Flags()
	f.StringVar(&o.configPath, "config", "", "YAML run file")
	f.StringVar(&o.problem, "problem", "", "Problem name (see 'descent problems')")
	f.StringToStringVar(&o.params, "param", nil, "Problem parameter, e.g. --param a=1,b=100")
	f.Float64SliceVar(&o.init, "init", nil, "Initial point, e.g. --init 1,-2")
	f.IntVar(&o.maxIters, "max-iters", 0, "Maximum iterations (0 = unbounded)")
	f.StringVar(&o.targetCost, "target-cost", "", "Stop once the cost reaches this value ('none' disables)")
	f.Float64Var(&o.gradTol, "grad-tol", 0, "Stop once the gradient norm drops below this value")
	f.StringVar(&o.lineSearch, "line-search", "", "Line search: "+strings.Join(linesearch.Methods(), ", "))
	f.Float64Var(&o.c1, "c1", 0, "Sufficient decrease constant")
	f.Float64Var(&o.c2, "c2", 0, "Curvature constant")
	f.Float64Var(&o.initialStep, "initial-step", 0, "First trial step of each line search")
	f.IntVar(&o.maxSteps, "max-ls-steps", 0, "Maximum trial steps per line search")
	f.StringVarP(&o.output, "output", "o", "text", "Output format: text, json")
	f.BoolVar(&o.history, "history", false, "Include the per-iteration history")
	f.BoolVar(&o.elapsed, "elapsed", false, "Include the wall time in the text report")
	f.StringVar(&o.tracePath, "trace", "", "Write a JSONL trace of every iteration to this file")
	f.BoolVar(&o.traceParams, "trace-params", false, "Include the current point in trace entries")

	return cmd
}

// buildRun starts from the default run or the run file and applies the flags
// that were set explicitly.
func (o *runOptions) buildRun(cmd *cobra.Command) (config.Run, error) {
	run := config.DefaultRun()
	if o.configPath != "" {
		var err error
		if run, err = config.LoadRun(o.configPath); err != nil {
			return run, err
		}
	}

	f := cmd.Flags()
	if f.Changed("problem") {
		run.Problem = config.Problem{Name: o.problem}
	}
	if f.Changed("param") {
		params := make(map[string]float64, len(o.params))
		for k, v := range o.params {
			x, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return run, fmt.Errorf("--param %s: %w", k, err)
			}
			params[k] = x
		}
		run.Problem.Params = params
	}
	if f.Changed("init") {
		run.InitParam = o.init
	}
	if f.Changed("max-iters") {
		run.MaxIters = o.maxIters
	}
	if f.Changed("target-cost") {
		if o.targetCost == "none" {
			run.TargetCost = nil
		} else {
			x, err := strconv.ParseFloat(o.targetCost, 64)
			if err != nil {
				return run, fmt.Errorf("--target-cost: %w", err)
			}
			run.TargetCost = optimization.Float(x)
		}
	}
	if f.Changed("grad-tol") {
		run.GradTolerance = o.gradTol
	}
	if f.Changed("line-search") {
		run.LineSearch.Method = o.lineSearch
	}
	if f.Changed("c1") {
		run.LineSearch.C1 = o.c1
	}
	if f.Changed("c2") {
		run.LineSearch.C2 = o.c2
	}
	if f.Changed("initial-step") {
		run.LineSearch.InitialStep = o.initialStep
	}
	if f.Changed("max-ls-steps") {
		run.LineSearch.MaxSteps = o.maxSteps
	}
	return run, nil
}

func (o *runOptions) execute(cmd *cobra.Command, run config.Run) (err error) {
	if o.output != "text" && o.output != "json" {
		return fmt.Errorf("--output must be text or json, got %q", o.output)
	}

	p, ls, cfg, err := run.Resolve()
	if err != nil {
		return err
	}

	if mt, ok := ls.(*linesearch.MoreThuente); ok {
		mt.WithLogger(o.root.zap)
	}
	solver := steepest.New(ls).WithLogger(o.root.zap)
	exec := executor.New(p, solver, cfg).WithLogger(o.root.zap)

	if o.tracePath != "" {
		tw, terr := report.CreateTrace(o.tracePath, o.traceParams)
		if terr != nil {
			return terr
		}
		defer func() {
			if cerr := tw.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}()
		exec.AddObserver(tw)
	}

	o.root.logger.Info("starting optimization", map[string]interface{}{
		"problem":     run.Problem.Name,
		"line_search": ls.Name(),
		"max_iters":   run.MaxIters,
	})

	res, runErr := exec.Run()
	if res != nil {
		if !o.history {
			res.History = nil
		}
		var werr error
		if o.output == "json" {
			werr = report.WriteJSON(cmd.OutOrStdout(), res, true)
		} else {
			werr = report.WriteText(cmd.OutOrStdout(), res, report.Options{History: o.history, Elapsed: o.elapsed})
		}
		if werr != nil && runErr == nil {
			return werr
		}
	}
	if runErr != nil {
		return fmt.Errorf("optimization failed: %w", runErr)
	}
	return nil
}
