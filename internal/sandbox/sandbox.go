package sandbox

import (
	"context"
	"fmt"
	"time"
)

// Outcome tags which variant a Result holds.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// ExecOpts describes a code execution request.
type ExecOpts struct {
	Code     string             // Source code to execute
	OnOutput func(chunk string) // Optional, receives captured output as it is written
}

// Result is the outcome of a sandboxed execution. Output is meaningful for
// OutcomeSuccess, Message for OutcomeFailure.
type Result struct {
	Outcome   Outcome       `json:"outcome"`
	Output    string        `json:"output"`
	Message   string        `json:"message,omitempty"`
	Truncated bool          `json:"truncated,omitempty"`
	Duration  time.Duration `json:"-"`
}

// Success wraps captured output.
func Success(output string) Result {
	return Result{Outcome: OutcomeSuccess, Output: output}
}

// Failure wraps a fault description. The message is never empty.
func Failure(msg string) Result {
	if msg == "" {
		msg = "unknown error"
	}
	return Result{Outcome: OutcomeFailure, Message: msg}
}

// OK reports whether the execution succeeded.
func (r Result) OK() bool {
	return r.Outcome == OutcomeSuccess
}

// Sandbox runs code in an isolated environment.
//
// Exec never returns an error and never panics: every fault raised while
// evaluating the code, including cancellation, comes back as a Failure.
type Sandbox interface {
	Name() string
	Exec(ctx context.Context, opts ExecOpts) Result
}

// New returns the backend registered under name.
func New(name string, policy Policy, image string) (Sandbox, error) {
	switch name {
	case "", "starlark":
		return NewStarlarkSandbox(policy), nil
	case "docker":
		return NewDockerSandbox(policy, image), nil
	default:
		return nil, fmt.Errorf("unknown sandbox backend %q", name)
	}
}
