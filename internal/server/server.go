// Package server exposes steepest descent runs as background jobs over REST
// and JSON-RPC 2.0.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/copyleftdev/descent/internal/config"
	apperrors "github.com/copyleftdev/descent/internal/errors"
	"github.com/copyleftdev/descent/internal/logging"
	"github.com/copyleftdev/descent/internal/metrics"
	"github.com/copyleftdev/descent/internal/optimization/linesearch"
	"github.com/copyleftdev/descent/internal/optimization/testfunctions"
)

// Logger defines the logging interface used by the server
// This allows us to be flexible with our logging implementation
type Logger interface {
	Debug(msg string, fields ...map[string]interface{})
	Info(msg string, fields ...map[string]interface{})
	Warn(msg string, fields ...map[string]interface{})
	Error(msg string, fields ...map[string]interface{})
	Fatal(msg string, fields ...map[string]interface{})
	WithFields(fields map[string]interface{}) *logging.Logger
}

// Server implements the HTTP and JSON-RPC server for the optimization service.
// It manages optimization jobs and provides endpoints to start, monitor, and cancel them.
type Server struct {
	cfg       *config.Config
	logger    Logger
	solverLog *zap.Logger
	metrics   *metrics.Metrics

	sem     *semaphore.Weighted
	limiter *rate.Limiter

	baseCtx context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup
	now     func() time.Time

	jobs map[string]*job
	mu   sync.RWMutex // Protects jobs and every job's fields
}

// NewServer creates a new server instance with the given config and logger.
// m may be nil to disable metrics.
func NewServer(cfg *config.Config, logger Logger, m *metrics.Metrics) *Server {
	ctx, stop := context.WithCancel(context.Background())
	return &Server{
		cfg:       cfg,
		logger:    logger,
		solverLog: logging.NewZapLogger(logger.WithFields(map[string]interface{}{"component": "solver"})),
		metrics:   m,
		sem:       semaphore.NewWeighted(int64(cfg.Jobs.WorkerCount)),
		limiter:   rate.NewLimiter(rate.Limit(cfg.Jobs.SubmitRate), cfg.Jobs.SubmitBurst),
		baseCtx:   ctx,
		stop:      stop,
		now:       time.Now,
		jobs:      make(map[string]*job),
	}
}

func (s *Server) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/optimize", s.handleOptimize)
		r.Get("/status/{id}", s.handleStatus)
		r.Delete("/optimization/{id}", s.handleCancel)
		r.Get("/problems", s.handleProblems)
	})

	// JSON-RPC 2.0 endpoint
	r.Post("/rpc", s.handleJSONRPC)
}

// Close aborts pending jobs and waits for running ones until ctx expires.
func (s *Server) Close(ctx context.Context) error {
	s.stop()

	s.mu.Lock()
	for _, j := range s.jobs {
		if j.status == StatusPending {
			s.finishLocked(j, StatusCancelled)
		}
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// decodeRun decodes a run from body on top of the configured defaults.
func (s *Server) decodeRun(data []byte) (config.Run, error) {
	run := s.cfg.BaseRun()
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&run); err != nil {
		return config.Run{}, apperrors.Errorf(apperrors.CodeInvalidRequest, "invalid run: %v", err)
	}
	return run, nil
}

// handleOptimize handles POST /api/v1/optimize.
func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		apperrors.WriteHTTP(w, apperrors.Errorf(apperrors.CodeInvalidRequest, "invalid request body: %v", err))
		return
	}

	run, err := s.decodeRun(raw)
	if err != nil {
		apperrors.WriteHTTP(w, err)
		return
	}

	sub, err := s.submit(run)
	if err != nil {
		apperrors.WriteHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, sub)
}

// handleStatus handles GET /api/v1/status/{id}. ?history=true includes the
// per-iteration history of finished jobs.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	withHistory, _ := strconv.ParseBool(r.URL.Query().Get("history"))

	st, err := s.status(chi.URLParam(r, "id"), withHistory)
	if err != nil {
		apperrors.WriteHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// handleCancel handles DELETE /api/v1/optimization/{id}.
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	sub, err := s.cancelJob(chi.URLParam(r, "id"))
	if err != nil {
		apperrors.WriteHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

// ProblemInfo describes one entry of the problem catalog.
type ProblemInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// handleProblems lists the registered problems and line searches.
func (s *Server) handleProblems(w http.ResponseWriter, r *http.Request) {
	names := testfunctions.Names()
	problems := make([]ProblemInfo, 0, len(names))
	for _, name := range names {
		problems = append(problems, ProblemInfo{Name: name, Description: testfunctions.Describe(name)})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"problems":      problems,
		"line_searches": linesearch.Methods(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
