// Package config loads service settings from the environment and solver
// runs from YAML files.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"

	"github.com/copyleftdev/descent/internal/optimization/linesearch"
)

type Config struct {
	Environment string `env:"ENV" envDefault:"development"`
	HTTP        struct {
		Port            int           `env:"HTTP_PORT" envDefault:"8080"`
		ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
		WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
		IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
		ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	}
	Logging struct {
		Level  string `env:"LOG_LEVEL" envDefault:"info"`
		Format string `env:"LOG_FORMAT" envDefault:"json"`
		Output string `env:"LOG_OUTPUT" envDefault:"stderr"`
	}
	// Solver holds the defaults applied to runs that leave a field unset.
	Solver struct {
		MaxIters      int     `env:"SOLVER_MAX_ITERS" envDefault:"1000"`
		MaxItersLimit int     `env:"SOLVER_MAX_ITERS_LIMIT" envDefault:"1000000"`
		GradTolerance float64 `env:"SOLVER_GRAD_TOLERANCE" envDefault:"0"`
		LineSearch    string  `env:"SOLVER_LINE_SEARCH" envDefault:"more-thuente"`
		C1            float64 `env:"SOLVER_C1" envDefault:"1e-4"`
		C2            float64 `env:"SOLVER_C2" envDefault:"0.9"`
		InitialStep   float64 `env:"SOLVER_INITIAL_STEP" envDefault:"1"`
		MaxSteps      int     `env:"SOLVER_MAX_LINE_SEARCH_STEPS" envDefault:"100"`
	}
	Jobs struct {
		WorkerCount int           `env:"JOB_WORKER_COUNT" envDefault:"10"`
		SubmitRate  float64       `env:"JOB_SUBMIT_RATE" envDefault:"50"`
		SubmitBurst int           `env:"JOB_SUBMIT_BURST" envDefault:"100"`
		Retention   time.Duration `env:"JOB_RETENTION" envDefault:"1h"`
	}
}

// Load reads the configuration from the process environment.
func Load() (*Config, error) {
	return LoadFrom(environ())
}

// LoadFrom reads the configuration from the given variables instead of the
// process environment.
func LoadFrom(vars map[string]string) (*Config, error) {
	cfg := &Config{}

	if err := env.ParseWithOptions(cfg, env.Options{Environment: vars}); err != nil {
		return nil, err
	}

	// Development defaults to verbose logs unless asked otherwise.
	if cfg.Environment == "development" {
		if _, set := vars["LOG_LEVEL"]; !set {
			cfg.Logging.Level = "debug"
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func environ() map[string]string {
	vars := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			vars[k] = v
		}
	}
	return vars
}

// Validate checks the settings that cannot be caught by parsing alone.
func (c *Config) Validate() error {
	switch {
	case c.HTTP.Port <= 0 || c.HTTP.Port > 65535:
		return fmt.Errorf("config: HTTP_PORT out of range: %d", c.HTTP.Port)
	case c.Solver.MaxIters < 0:
		return fmt.Errorf("config: SOLVER_MAX_ITERS must not be negative: %d", c.Solver.MaxIters)
	case c.Solver.MaxItersLimit <= 0:
		return fmt.Errorf("config: SOLVER_MAX_ITERS_LIMIT must be positive: %d", c.Solver.MaxItersLimit)
	case c.Jobs.WorkerCount <= 0:
		return fmt.Errorf("config: JOB_WORKER_COUNT must be positive: %d", c.Jobs.WorkerCount)
	case c.Jobs.SubmitRate <= 0 || c.Jobs.SubmitBurst <= 0:
		return fmt.Errorf("config: JOB_SUBMIT_RATE and JOB_SUBMIT_BURST must be positive")
	}

	if _, err := linesearch.NewByName(c.Solver.LineSearch, c.LineSearchParams()); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// LineSearchParams returns the configured line search parameters with the
// remaining fields defaulted.
func (c *Config) LineSearchParams() linesearch.Params {
	return linesearch.Params{
		C1:          c.Solver.C1,
		C2:          c.Solver.C2,
		InitialStep: c.Solver.InitialStep,
		MaxSteps:    c.Solver.MaxSteps,
	}.WithDefaults()
}

// BaseRun returns a run carrying the solver defaults and no problem or
// starting point. Request bodies are decoded on top of it.
func (c *Config) BaseRun() Run {
	return Run{
		MaxIters:      c.Solver.MaxIters,
		GradTolerance: c.Solver.GradTolerance,
		LineSearch: LineSearch{
			Method: c.Solver.LineSearch,
			Params: c.LineSearchParams(),
		},
	}
}
