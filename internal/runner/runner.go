// Package runner executes snippets through a sandbox and records every
// execution in the run journal.
package runner

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/michaelbrown/explorer/internal/sandbox"
	"github.com/michaelbrown/explorer/internal/storage"
)

// Runner is safe for concurrent use as long as its sandbox and store are;
// every run gets its own output sink.
type Runner struct {
	sandbox sandbox.Sandbox
	store   storage.Store
	log     *zap.Logger
}

// New creates a Runner. A nil store disables the journal and a nil logger
// discards log output.
func New(sb sandbox.Sandbox, store storage.Store, log *zap.Logger) *Runner {
	if store == nil {
		store = storage.Discard{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{sandbox: sb, store: store, log: log}
}

// Backend returns the name of the sandbox in use.
func (r *Runner) Backend() string {
	return r.sandbox.Name()
}

// Sandbox returns the underlying execution backend.
func (r *Runner) Sandbox() sandbox.Sandbox {
	return r.sandbox
}

// Store returns the run journal.
func (r *Runner) Store() storage.Store {
	return r.store
}

// Run executes code and journals the result. onOutput may be nil.
// Journal failures are logged and do not affect the returned run.
func (r *Runner) Run(ctx context.Context, code string, onOutput func(string)) *storage.Run {
	id := uuid.New().String()
	res := r.sandbox.Exec(ctx, sandbox.ExecOpts{Code: code, OnOutput: onOutput})

	run := storage.NewRun(id, r.sandbox.Name(), code, res)
	run.CreatedAt = time.Now().UTC()

	log := r.log.With(
		zap.String("run_id", id),
		zap.String("backend", run.Backend),
		zap.String("outcome", string(res.Outcome)),
		zap.Duration("duration", res.Duration),
	)
	if res.OK() {
		log.Info("run finished", zap.Int("output_bytes", len(res.Output)), zap.Bool("truncated", res.Truncated))
	} else {
		log.Info("run failed", zap.String("message", res.Message))
	}

	// The journal write outlives a cancelled request.
	if err := r.store.RecordRun(context.WithoutCancel(ctx), run); err != nil {
		log.Warn("recording run", zap.Error(err))
	}
	return run
}
