package sandbox

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

var _ Sandbox = (*DockerSandbox)(nil)

// DefaultImage is the container image used when none is configured.
const DefaultImage = "python:3.12-slim"

// DockerSandbox runs snippets with CPython inside a throwaway container.
type DockerSandbox struct {
	Policy Policy
	Image  string
}

// NewDockerSandbox creates a sandbox with the given policy.
func NewDockerSandbox(policy Policy, image string) *DockerSandbox {
	if image == "" {
		image = DefaultImage
	}
	return &DockerSandbox{Policy: policy, Image: image}
}

func (d *DockerSandbox) Name() string { return "docker" }

func (d *DockerSandbox) Exec(ctx context.Context, opts ExecOpts) (res Result) {
	start := time.Now()
	defer func() {
		res.Duration = time.Since(start)
	}()

	if !d.Policy.IsImageAllowed(d.Image) {
		return Failure(fmt.Sprintf("image %q not in allowlist", d.Image))
	}

	// Create a temp dir for the code file
	tmpDir, err := os.MkdirTemp("", "explorer-sandbox-*")
	if err != nil {
		return Failure(fmt.Sprintf("creating temp dir: %v", err))
	}
	defer os.RemoveAll(tmpDir)

	codePath := filepath.Join(tmpDir, "code")
	if err := os.WriteFile(codePath, []byte(opts.Code), 0o644); err != nil {
		return Failure(fmt.Sprintf("writing code file: %v", err))
	}

	if d.Policy.MaxTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.Policy.MaxTimeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, "docker", d.args(tmpDir)...)

	stdout := &outputSink{limit: d.Policy.MaxOutput, onChunk: opts.OnOutput}
	stderr := &outputSink{limit: d.Policy.MaxOutput}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	err = cmd.Run()
	if ctx.Err() != nil {
		return Failure(fmt.Sprintf("execution cancelled: %v", ctx.Err()))
	}
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return Failure(fmt.Sprintf("running docker: %v", err))
		}
		if msg := lastLine(stderr.String()); msg != "" {
			return Failure(msg)
		}
		return Failure(fmt.Sprintf("exit code %d", exitErr.ExitCode()))
	}

	res = Success(stdout.String())
	res.Truncated = stdout.truncated
	return res
}

func (d *DockerSandbox) args(workspace string) []string {
	args := []string{"run", "--rm", "-i"}
	if d.Policy.MaxMemory != "" {
		args = append(args, "--memory", d.Policy.MaxMemory)
	}
	if d.Policy.MaxTimeout > 0 {
		args = append(args, "--stop-timeout", fmt.Sprintf("%d", int(d.Policy.MaxTimeout.Seconds())))
	}
	args = append(args,
		"-v", workspace+":/workspace:ro",
		"-w", "/workspace",
	)
	if !d.Policy.Network {
		args = append(args, "--network=none")
	}
	return append(args, d.Image, "python", "/workspace/code")
}

// lastLine returns the last non-blank line of a traceback, which for
// CPython is the "ExceptionType: message" summary.
func lastLine(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return ""
}
