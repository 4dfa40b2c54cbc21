package report

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/copyleftdev/descent/internal/optimization"
)

// TraceEntry is one line of a JSONL trace.
type TraceEntry struct {
	Iteration int       `json:"iteration"`
	Cost      float64   `json:"cost"`
	BestCost  float64   `json:"best_cost"`
	GradNorm  float64   `json:"grad_norm"`
	Step      float64   `json:"step"`
	FuncEvals int       `json:"func_evals"`
	GradEvals int       `json:"grad_evals"`
	Timestamp time.Time `json:"timestamp,omitzero"`

	// Params is the current point. Omitted unless the writer includes params.
	Params []float64 `json:"params,omitempty"`
}

// TraceWriter streams trace entries as JSON lines. It implements the
// executor's Observer so a run can be traced while it executes.
type TraceWriter struct {
	mu            sync.Mutex
	writer        *bufio.Writer
	closer        io.Closer
	includeParams bool
	now           func() time.Time
	err           error
}

// NewTraceWriter writes to w. Close flushes but does not close w.
func NewTraceWriter(w io.Writer, includeParams bool) *TraceWriter {
	return &TraceWriter{
		writer:        bufio.NewWriterSize(w, 64*1024),
		includeParams: includeParams,
		now:           time.Now,
	}
}

// CreateTrace creates (or truncates) the file at path and writes to it.
func CreateTrace(path string, includeParams bool) (*TraceWriter, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace file: %w", err)
	}
	tw := NewTraceWriter(file, includeParams)
	tw.closer = file
	return tw, nil
}

// Write appends one entry.
func (tw *TraceWriter) Write(entry TraceEntry) error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if tw.err != nil {
		return tw.err
	}
	data, err := json.Marshal(entry)
	if err != nil {
		tw.err = fmt.Errorf("failed to marshal trace entry: %w", err)
		return tw.err
	}
	data = append(data, '\n')
	if _, err := tw.writer.Write(data); err != nil {
		tw.err = fmt.Errorf("failed to write trace entry: %w", err)
	}
	return tw.err
}

// Observe records a snapshot. Write errors are kept and reported by Err and
// Close.
func (tw *TraceWriter) Observe(s optimization.Snapshot) {
	entry := TraceEntry{
		Iteration: s.Iter,
		Cost:      s.Cost,
		BestCost:  s.BestCost,
		GradNorm:  s.GradNorm,
		Step:      s.Step,
		FuncEvals: s.FuncEvals,
		GradEvals: s.GradEvals,
		Timestamp: tw.now().UTC(),
	}
	if tw.includeParams {
		entry.Params = s.Param
	}
	_ = tw.Write(entry)
}

// Err returns the first error encountered while writing.
func (tw *TraceWriter) Err() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	return tw.err
}

// Close flushes buffered entries and closes the file opened by CreateTrace.
func (tw *TraceWriter) Close() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if err := tw.writer.Flush(); err != nil && tw.err == nil {
		tw.err = fmt.Errorf("failed to flush trace: %w", err)
	}
	if tw.closer != nil {
		if err := tw.closer.Close(); err != nil && tw.err == nil {
			tw.err = fmt.Errorf("failed to close trace file: %w", err)
		}
		tw.closer = nil
	}
	return tw.err
}

// WriteHistory writes a finished run's history as JSON lines.
func WriteHistory(w io.Writer, history []optimization.Diagnostic) error {
	tw := NewTraceWriter(w, false)
	for _, d := range history {
		if err := tw.Write(TraceEntry{
			Iteration: d.Iteration,
			Cost:      d.Cost,
			BestCost:  d.BestCost,
			GradNorm:  d.GradNorm,
			Step:      d.Step,
			FuncEvals: d.FuncEvals,
			GradEvals: d.GradEvals,
		}); err != nil {
			return err
		}
	}
	return tw.Close()
}

// ReadTrace reads every entry of a JSONL trace.
func ReadTrace(r io.Reader) ([]TraceEntry, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var entries []TraceEntry
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var entry TraceEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			return nil, fmt.Errorf("failed to unmarshal trace entry %d: %w", len(entries)+1, err)
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan trace: %w", err)
	}
	return entries, nil
}
