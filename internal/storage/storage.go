package storage

import (
	"context"
	"time"

	"github.com/michaelbrown/explorer/internal/sandbox"
)

// Run is the journal record of one snippet execution.
type Run struct {
	ID         string          `json:"id"`
	Source     string          `json:"source"`
	Outcome    sandbox.Outcome `json:"outcome"`
	Output     string          `json:"output"`
	Message    string          `json:"message,omitempty"`
	Truncated  bool            `json:"truncated,omitempty"`
	Backend    string          `json:"backend"`
	DurationMS int64           `json:"duration_ms"`
	CreatedAt  time.Time       `json:"created_at"`
}

// NewRun builds a journal record from an execution result.
func NewRun(id, backend, source string, res sandbox.Result) *Run {
	return &Run{
		ID:         id,
		Source:     source,
		Outcome:    res.Outcome,
		Output:     res.Output,
		Message:    res.Message,
		Truncated:  res.Truncated,
		Backend:    backend,
		DurationMS: res.Duration.Milliseconds(),
	}
}

// Result converts the record back into the executor's result shape.
func (r *Run) Result() sandbox.Result {
	return sandbox.Result{
		Outcome:   r.Outcome,
		Output:    r.Output,
		Message:   r.Message,
		Truncated: r.Truncated,
		Duration:  time.Duration(r.DurationMS) * time.Millisecond,
	}
}

// RunListOptions controls filtering and pagination for ListRuns.
type RunListOptions struct {
	Outcome sandbox.Outcome
	Limit   int
	Offset  int
}

// Store is the persistence interface for the run journal.
type Store interface {
	// RecordRun inserts a run. The ID field must be set by the caller.
	RecordRun(ctx context.Context, r *Run) error

	// GetRun returns a run by ID or unique ID prefix.
	GetRun(ctx context.Context, id string) (*Run, error)

	// ListRuns returns runs ordered by created_at descending.
	ListRuns(ctx context.Context, opts RunListOptions) ([]Run, error)

	// DeleteRun removes a run.
	DeleteRun(ctx context.Context, id string) error

	// Close releases resources.
	Close() error
}
