package sandbox

import (
	"slices"
	"time"
)

// DefaultCallDepth is the Starlark call-depth limit used when a policy
// does not set one. It matches CPython's default recursion limit.
const DefaultCallDepth = 1000

// Policy defines resource limits for sandbox execution. A zero value for a
// limit disables it, except MaxDepth: recursion is always bounded.
//
// The Starlark backend has no memory bound; a single step such as
// [0] * 100000000 allocates what it asks for. Deployments serving untrusted
// users should select the docker backend, whose MaxMemory is enforced.
type Policy struct {
	MaxTimeout time.Duration // Wall-clock bound per execution
	MaxSteps   uint64        // Starlark execution steps
	MaxDepth   int           // Starlark call depth; zero means DefaultCallDepth
	MaxOutput  int           // Captured output bytes; the rest is discarded
	MaxMemory  string        // Docker memory limit (e.g. "256m")
	Network    bool          // Whether docker containers get network access
	Images     []string      // Allowed Docker images
}

// DefaultPolicy returns safe defaults for code execution.
func DefaultPolicy() Policy {
	return Policy{
		MaxTimeout: 5 * time.Second,
		MaxSteps:   10_000_000,
		MaxDepth:   DefaultCallDepth,
		MaxOutput:  64 << 10,
		MaxMemory:  "256m",
		Network:    false,
		Images: []string{
			"python:3.12-slim",
			"python:3.13-slim",
		},
	}
}

// CallDepth returns the effective Starlark call-depth limit.
func (p Policy) CallDepth() int {
	if p.MaxDepth <= 0 {
		return DefaultCallDepth
	}
	return p.MaxDepth
}

// IsImageAllowed reports whether image is on the allowlist. An empty
// allowlist admits nothing.
func (p Policy) IsImageAllowed(image string) bool {
	return slices.Contains(p.Images, image)
}
