package server

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/copyleftdev/descent/internal/config"
	apperrors "github.com/copyleftdev/descent/internal/errors"
	"github.com/copyleftdev/descent/internal/optimization"
	"github.com/copyleftdev/descent/internal/optimization/executor"
	"github.com/copyleftdev/descent/internal/optimization/linesearch"
	"github.com/copyleftdev/descent/internal/optimization/steepest"
)

// Status is the lifecycle state of a job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further transitions can happen.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// job is the server-side record of one optimization run. All fields are
// guarded by Server.mu; the executor itself is only touched by the job's
// goroutine.
type job struct {
	id          string
	run         config.Run
	status      Status
	submittedAt time.Time
	startedAt   *time.Time
	endedAt     *time.Time
	lastUpdated time.Time

	iter     int
	bestCost float64
	hasCost  bool

	result *optimization.OptimizationResult
	err    *apperrors.Error
	cancel context.CancelFunc
}

// ErrorInfo is the client-facing form of a job failure.
type ErrorInfo struct {
	Code    apperrors.Code `json:"code"`
	Message string         `json:"message"`
}

// JobStatus is the status document returned by the REST and JSON-RPC APIs.
type JobStatus struct {
	ID          string                           `json:"optimization_id"`
	Status      Status                           `json:"status"`
	Problem     string                           `json:"problem"`
	Iteration   int                              `json:"iteration"`
	MaxIters    int                              `json:"max_iters"`
	Progress    float64                          `json:"progress"`
	BestCost    *float64                         `json:"best_cost,omitempty"`
	SubmittedAt time.Time                        `json:"submitted_at"`
	StartedAt   *time.Time                       `json:"started_at,omitempty"`
	EndedAt     *time.Time                       `json:"ended_at,omitempty"`
	LastUpdated time.Time                        `json:"last_updated"`
	Result      *optimization.OptimizationResult `json:"result,omitempty"`
	Error       *ErrorInfo                       `json:"error,omitempty"`
}

// Submission is returned when a job is accepted.
type Submission struct {
	ID     string `json:"optimization_id"`
	Status Status `json:"status"`
}

// submit validates run, registers a pending job and starts it in the
// background.
func (s *Server) submit(run config.Run) (*Submission, error) {
	if !s.limiter.Allow() {
		return nil, apperrors.New(apperrors.CodeRateLimited, "too many submissions, retry later")
	}

	limit := s.cfg.Solver.MaxItersLimit
	if run.MaxIters <= 0 || run.MaxIters > limit {
		return nil, apperrors.Errorf(apperrors.CodeInvalidRequest,
			"max_iters must be between 1 and %d, got %d", limit, run.MaxIters)
	}

	p, ls, cfg, err := run.Resolve()
	if err != nil {
		return nil, apperrors.Wrap(err, "invalid run")
	}

	ctx, cancel := context.WithCancel(s.baseCtx)
	j := &job{
		id:     uuid.NewString(),
		run:    run,
		status: StatusPending,
		cancel: cancel,
	}

	s.mu.Lock()
	now := s.now()
	j.submittedAt = now
	j.lastUpdated = now
	s.pruneLocked(now)
	s.jobs[j.id] = j
	s.mu.Unlock()

	s.logger.Info("job submitted", map[string]interface{}{
		"optimization_id": j.id,
		"problem":         run.Problem.Name,
		"dim":             len(cfg.Param),
		"line_search":     ls.Name(),
	})

	s.wg.Add(1)
	go s.execute(ctx, j, p, ls, cfg)

	return &Submission{ID: j.id, Status: StatusPending}, nil
}

// execute waits for a worker slot and runs the job to completion.
func (s *Server) execute(ctx context.Context, j *job, p optimization.Problem, ls linesearch.Searcher, cfg optimization.Config) {
	defer s.wg.Done()
	defer j.cancel()

	if err := s.sem.Acquire(ctx, 1); err != nil {
		s.mu.Lock()
		s.finishLocked(j, StatusCancelled)
		s.mu.Unlock()
		return
	}
	defer s.sem.Release(1)

	s.mu.Lock()
	if j.status.Terminal() {
		s.mu.Unlock()
		return
	}
	now := s.now()
	j.status = StatusRunning
	j.startedAt = &now
	j.lastUpdated = now
	s.mu.Unlock()

	zl := s.solverLog.With(zap.String("optimization_id", j.id))
	if mt, ok := ls.(*linesearch.MoreThuente); ok {
		mt.WithLogger(zl)
	}
	solver := steepest.New(ls).WithLogger(zl)

	exec := executor.New(p, solver, cfg).
		WithLogger(zl).
		AddObserver(executor.ObserverFunc(func(snap optimization.Snapshot) {
			s.mu.Lock()
			j.iter = snap.Iter
			j.bestCost = snap.BestCost
			j.hasCost = true
			j.lastUpdated = s.now()
			s.mu.Unlock()
		}))
	if s.metrics != nil {
		exec.AddObserver(s.metrics.Run(solver.Name()))
	}

	res, err := exec.Run()

	s.mu.Lock()
	defer s.mu.Unlock()

	if j.status == StatusCancelled {
		s.logger.Info("discarding result of cancelled job", map[string]interface{}{
			"optimization_id": j.id,
		})
		return
	}

	j.result = res
	if err != nil {
		j.err = apperrors.Wrap(err, "optimization failed")
		s.logger.Warn("job failed", map[string]interface{}{
			"optimization_id": j.id,
			"error":           err.Error(),
		})
		s.finishLocked(j, StatusFailed)
		return
	}
	s.finishLocked(j, StatusCompleted)
}

// cancelJob marks a pending or running job cancelled. A running executor
// cannot be interrupted; its result is discarded when it returns.
func (s *Server) cancelJob(id string) (*Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return nil, apperrors.Errorf(apperrors.CodeNotFound, "optimization %s not found", id)
	}
	if j.status.Terminal() {
		return nil, apperrors.Errorf(apperrors.CodeConflict,
			"cannot cancel optimization with status %s", j.status)
	}

	j.cancel()
	s.finishLocked(j, StatusCancelled)

	s.logger.Info("job cancelled", map[string]interface{}{
		"optimization_id": id,
	})
	return &Submission{ID: id, Status: StatusCancelled}, nil
}

// status returns the job's status document.
func (s *Server) status(id string, withHistory bool) (*JobStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	j, ok := s.jobs[id]
	if !ok {
		return nil, apperrors.Errorf(apperrors.CodeNotFound, "optimization %s not found", id)
	}

	st := &JobStatus{
		ID:          j.id,
		Status:      j.status,
		Problem:     j.run.Problem.Name,
		Iteration:   j.iter,
		MaxIters:    j.run.MaxIters,
		SubmittedAt: j.submittedAt,
		StartedAt:   j.startedAt,
		EndedAt:     j.endedAt,
		LastUpdated: j.lastUpdated,
	}
	if j.run.MaxIters > 0 {
		st.Progress = float64(j.iter) / float64(j.run.MaxIters)
	}
	if j.status == StatusCompleted {
		st.Progress = 1
	}
	if j.hasCost {
		st.BestCost = optimization.Float(j.bestCost)
	}
	if j.result != nil {
		res := *j.result
		if !withHistory {
			res.History = nil
		}
		st.Result = &res
	}
	if j.err != nil {
		st.Error = &ErrorInfo{Code: j.err.Code, Message: j.err.Error()}
	}
	return st, nil
}

func (s *Server) finishLocked(j *job, status Status) {
	if j.status.Terminal() {
		return
	}
	now := s.now()
	j.status = status
	j.endedAt = &now
	j.lastUpdated = now
}

// pruneLocked forgets finished jobs older than the retention period.
func (s *Server) pruneLocked(now time.Time) {
	retention := s.cfg.Jobs.Retention
	if retention <= 0 {
		return
	}
	for id, j := range s.jobs {
		if j.status.Terminal() && j.endedAt != nil && now.Sub(*j.endedAt) > retention {
			delete(s.jobs, id)
		}
	}
}
