// Package metrics exports solver runs as Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/copyleftdev/descent/internal/optimization"
)

const namespace = "descent"

// Metrics holds the collectors shared by all runs.
type Metrics struct {
	runs        *prometheus.CounterVec
	iterations  *prometheus.CounterVec
	evaluations *prometheus.CounterVec
	steps       *prometheus.HistogramVec
	duration    *prometheus.HistogramVec
	bestCost    *prometheus.GaugeVec
	activeRuns  prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Finished optimization runs by solver and termination reason.",
		}, []string{"solver", "reason"}),
		iterations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "iterations_total",
			Help:      "Completed solver iterations.",
		}, []string{"solver"}),
		evaluations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluations_total",
			Help:      "Problem evaluations by kind (cost, gradient).",
		}, []string{"solver", "kind"}),
		steps: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "step_length",
			Help:      "Step lengths accepted by the line search.",
			Buckets:   prometheus.ExponentialBuckets(1e-8, 10, 12),
		}, []string{"solver"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of finished runs.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"solver"}),
		bestCost: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_best_cost",
			Help:      "Best cost of the most recently finished run.",
		}, []string{"solver"}),
		activeRuns: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_runs",
			Help:      "Runs currently executing.",
		}),
	}
}

// Run returns an observer for a single run. It counts the run as active until
// Finish is called.
func (m *Metrics) Run(solver string) *RunObserver {
	m.activeRuns.Inc()
	return &RunObserver{metrics: m, solver: solver}
}

// RunObserver feeds one run's snapshots into the shared collectors. It is
// used by a single executor and is not safe for concurrent use.
type RunObserver struct {
	metrics *Metrics
	solver  string

	lastIter      int
	lastFuncEvals int
	lastGradEvals int
	finished      bool
}

// Observe records the work done since the previous snapshot.
func (o *RunObserver) Observe(s optimization.Snapshot) {
	m := o.metrics

	if d := s.Iter - o.lastIter; d > 0 {
		m.iterations.WithLabelValues(o.solver).Add(float64(d))
		m.steps.WithLabelValues(o.solver).Observe(s.Step)
	}
	if d := s.FuncEvals - o.lastFuncEvals; d > 0 {
		m.evaluations.WithLabelValues(o.solver, "cost").Add(float64(d))
	}
	if d := s.GradEvals - o.lastGradEvals; d > 0 {
		m.evaluations.WithLabelValues(o.solver, "gradient").Add(float64(d))
	}

	o.lastIter = s.Iter
	o.lastFuncEvals = s.FuncEvals
	o.lastGradEvals = s.GradEvals
}

// Finish records the outcome. Runs that failed before their first iteration
// are counted with reason Failed. Calls after the first are ignored.
func (o *RunObserver) Finish(result *optimization.OptimizationResult, err error) {
	if o.finished {
		return
	}
	o.finished = true
	m := o.metrics
	m.activeRuns.Dec()

	if result == nil {
		m.runs.WithLabelValues(o.solver, optimization.Failed.String()).Inc()
		return
	}

	m.runs.WithLabelValues(o.solver, result.Reason.String()).Inc()
	m.duration.WithLabelValues(o.solver).Observe(result.Elapsed.Seconds())
	m.bestCost.WithLabelValues(o.solver).Set(result.BestCost)
}

// Abandon releases the active-run slot for a run that will never report.
func (o *RunObserver) Abandon() {
	if o.finished {
		return
	}
	o.finished = true
	o.metrics.activeRuns.Dec()
}
