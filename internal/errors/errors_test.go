package errors

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/descent/internal/logging"
	"github.com/copyleftdev/descent/internal/optimization"
)

func TestWrapClassifiesOptimizationErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		code   Code
		status int
		rpc    int
	}{
		{
			name:   "dimension mismatch",
			err:    optimization.NewError(optimization.KindDimensionMismatch, "gradient has length 2, want 3"),
			code:   CodeDimensionMismatch,
			status: http.StatusBadRequest,
			rpc:    RPCInvalidParams,
		},
		{
			name:   "missing param",
			err:    optimization.ErrMissingInitialParam,
			code:   CodeMissingInitialParam,
			status: http.StatusBadRequest,
			rpc:    RPCInvalidParams,
		},
		{
			name:   "line search failure wrapping evaluation",
			err:    optimization.WrapError(optimization.NewError(optimization.KindEvaluation, "non-finite cost"), optimization.KindLineSearchFailure, "trial point"),
			code:   CodeLineSearchFailure,
			status: http.StatusUnprocessableEntity,
			rpc:    RPCSolverFailure,
		},
		{
			name:   "invalid config behind fmt wrap",
			err:    fmt.Errorf("job: %w", optimization.NewError(optimization.KindInvalidConfig, "negative max_iters")),
			code:   CodeInvalidRequest,
			status: http.StatusBadRequest,
			rpc:    RPCInvalidParams,
		},
		{
			name:   "plain error",
			err:    stderrors.New("disk on fire"),
			code:   CodeInternal,
			status: http.StatusInternalServerError,
			rpc:    RPCInternalError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := Wrap(tt.err, "optimize")
			require.NotNil(t, e)
			assert.Equal(t, tt.code, e.Code)
			assert.Equal(t, tt.status, e.HTTPStatus())
			assert.Equal(t, tt.rpc, e.RPCCode())
			assert.True(t, stderrors.Is(e, tt.err))
			assert.NotEmpty(t, e.StackTrace())
		})
	}
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, "noop"))
}

func TestWrapKeepsExistingCode(t *testing.T) {
	inner := New(CodeNotFound, "job not found")
	outer := Wrap(fmt.Errorf("status: %w", inner), "lookup")
	assert.Equal(t, CodeNotFound, outer.Code)
	assert.Equal(t, http.StatusNotFound, outer.HTTPStatus())
}

func TestErrorString(t *testing.T) {
	e := Errorf(CodeConflict, "job %s already finished", "j1").WithOperation("cancel")
	assert.Equal(t, "job j1 already finished: operation=cancel", e.Error())
}

func TestWriteHTTP(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteHTTP(rec, New(CodeRateLimited, "too many submissions"))

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, CodeRateLimited, resp.Error.Code)
	assert.Equal(t, "too many submissions", resp.Error.Message)
}

func TestRecoveryMiddleware(t *testing.T) {
	var logs bytes.Buffer
	h := RecoveryMiddleware(logging.New(logging.InfoLevel, &logs))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("solver exploded")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/optimize", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), string(CodeInternal))
	assert.Contains(t, logs.String(), "solver exploded")
}
