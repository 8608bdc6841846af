package sandbox

import (
	"context"
	"fmt"
	"time"

	"go.starlark.net/resolve"
	"go.starlark.net/starlark"
)

func init() {
	// Beginner snippets are scripts: top-level loops, reassignment and
	// while statements must resolve the way they do in Python.
	resolve.AllowGlobalReassign = true
	resolve.AllowRecursion = true
	resolve.AllowSet = true
}

var _ Sandbox = (*StarlarkSandbox)(nil)

// snippetFile is the filename reported in syntax and resolve errors.
const snippetFile = "snippet.star"

// checkInterval is the number of steps between call-depth and step-limit
// checks. A recursive call costs at least one step, so the stack can
// outgrow the depth limit by at most this many frames.
const checkInterval = 64

// Cancellation reasons reported in failure messages.
const (
	reasonDepth = "maximum recursion depth exceeded"
	reasonSteps = "too many steps"
)

// StarlarkSandbox evaluates snippets in-process with a Starlark interpreter.
// The interpreter has no access to the file system, network or process
// environment; print output goes to a per-call sink instead of os.Stdout.
type StarlarkSandbox struct {
	Policy Policy

	builtins starlark.StringDict // nil means predeclared()
}

// NewStarlarkSandbox creates a sandbox with the given policy.
func NewStarlarkSandbox(policy Policy) *StarlarkSandbox {
	return &StarlarkSandbox{Policy: policy}
}

func (s *StarlarkSandbox) Name() string { return "starlark" }

func (s *StarlarkSandbox) Exec(ctx context.Context, opts ExecOpts) (res Result) {
	start := time.Now()
	out := &outputSink{limit: s.Policy.MaxOutput, onChunk: opts.OnOutput}

	thread := &starlark.Thread{
		Name: "snippet",
		Print: func(_ *starlark.Thread, msg string) {
			out.WriteString(msg + "\n")
		},
	}
	limitThread(thread, s.Policy.MaxSteps, s.Policy.CallDepth())

	if s.Policy.MaxTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Policy.MaxTimeout)
		defer cancel()
	}

	// The watcher must exit on every return path, including panics.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			thread.Cancel(ctx.Err().Error())
		case <-done:
		}
	}()

	defer func() {
		if r := recover(); r != nil {
			res = Failure(fmt.Sprintf("internal error: %v", r))
		}
		res.Duration = time.Since(start)
	}()

	builtins := s.builtins
	if builtins == nil {
		builtins = predeclared()
	}
	if _, err := starlark.ExecFile(thread, snippetFile, opts.Code, builtins); err != nil {
		return Failure(err.Error())
	}

	res = Success(out.String())
	res.Truncated = out.truncated
	return res
}

// limitThread bounds the thread's call depth and, when maxSteps > 0, its
// step count. Unbounded recursion would otherwise exhaust the goroutine
// stack, which is fatal to the process rather than a recoverable panic.
func limitThread(thread *starlark.Thread, maxSteps uint64, maxDepth int) {
	next := func(steps uint64) uint64 {
		n := steps + checkInterval
		if maxSteps > 0 && n > maxSteps {
			n = maxSteps
		}
		return n
	}

	thread.SetMaxExecutionSteps(next(0))
	thread.OnMaxSteps = func(thread *starlark.Thread) {
		switch {
		case thread.CallStackDepth() > maxDepth:
			thread.Cancel(reasonDepth)
		case maxSteps > 0 && thread.ExecutionSteps() >= maxSteps:
			thread.Cancel(reasonSteps)
		default:
			thread.SetMaxExecutionSteps(next(thread.ExecutionSteps()))
		}
	}
}
