package storage

import (
	"context"
	"fmt"
)

// Discard is a Store that keeps nothing. It is used when the journal is
// disabled.
type Discard struct{}

func (Discard) RecordRun(context.Context, *Run) error { return nil }

func (Discard) GetRun(_ context.Context, id string) (*Run, error) {
	return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
}

func (Discard) ListRuns(context.Context, RunListOptions) ([]Run, error) { return nil, nil }

func (Discard) DeleteRun(_ context.Context, id string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}

func (Discard) Close() error { return nil }
