package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/michaelbrown/explorer/internal/runner"
	"github.com/michaelbrown/explorer/internal/sandbox"
)

func tempStderr(t *testing.T) *os.File {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "stderr")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { f.Close() })
	return f
}

func readAll(t *testing.T, f *os.File) string {
	t.Helper()
	data, err := os.ReadFile(f.Name())
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func newPad(t *testing.T) (*scratchpad, *bytes.Buffer, *os.File) {
	t.Helper()
	var out bytes.Buffer
	errOut := tempStderr(t)
	r := runner.New(sandbox.NewStarlarkSandbox(sandbox.DefaultPolicy()), nil, nil)
	return &scratchpad{runner: r, out: &out, errOut: errOut}, &out, errOut
}

func TestScratchpadRunsBlockOnEmptyLine(t *testing.T) {
	pad, out, _ := newPad(t)

	pad.handleLine("x = 1")
	pad.handleLine("print(x + 2)")
	if out.Len() != 0 {
		t.Fatalf("ran before the empty line: %q", out)
	}
	pad.handleLine("")

	if got := out.String(); got != "3\n\n" {
		t.Errorf("output = %q", got)
	}
	if len(pad.block) != 0 {
		t.Error("block not reset after run")
	}
}

func TestScratchpadBlocksAreIndependent(t *testing.T) {
	pad, _, errOut := newPad(t)

	for _, line := range []string{"x = 1", "", "print(x)", ""} {
		pad.handleLine(line)
	}
	if got := readAll(t, errOut); !strings.Contains(got, "undefined: x") {
		t.Errorf("stderr = %q, want undefined name error", got)
	}
}

func TestScratchpadCommands(t *testing.T) {
	pad, out, _ := newPad(t)

	if pad.handleLine("") {
		t.Error("empty line should not quit")
	}

	pad.handleLine("/help")
	if !strings.Contains(out.String(), "/example") {
		t.Errorf("help = %q", out)
	}

	pad.block = []string{"print(1)"}
	// Slash lines inside a block are code, not commands.
	pad.handleLine("/clear")
	if len(pad.block) != 2 {
		t.Errorf("block = %q", pad.block)
	}
	pad.block = nil

	out.Reset()
	pad.handleLine("/example")
	if !strings.Contains(out.String(), "Average grade: 88.8") {
		t.Errorf("example output = %q", out)
	}

	for _, cmd := range []string{"/quit", "/exit", "/q"} {
		if !pad.handleLine(cmd) {
			t.Errorf("%s did not quit", cmd)
		}
	}
}

func TestReadSource(t *testing.T) {
	got, err := readSource(nil, strings.NewReader(`print("stdin")`))
	if err != nil || got != `print("stdin")` {
		t.Errorf("stdin: got %q, %v", got, err)
	}

	got, err = readSource([]string{"-"}, strings.NewReader("x = 1"))
	if err != nil || got != "x = 1" {
		t.Errorf("dash: got %q, %v", got, err)
	}

	path := filepath.Join(t.TempDir(), "snippet.star")
	os.WriteFile(path, []byte(`print("file")`), 0o644)
	got, err = readSource([]string{path}, nil)
	if err != nil || got != `print("file")` {
		t.Errorf("file: got %q, %v", got, err)
	}

	if _, err := readSource([]string{filepath.Join(t.TempDir(), "missing")}, nil); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestReport(t *testing.T) {
	var out bytes.Buffer
	errOut := tempStderr(t)

	if err := report(&out, errOut, sandbox.Success("hi\n")); err != nil {
		t.Errorf("success returned %v", err)
	}
	if out.String() != "hi\n" {
		t.Errorf("stdout = %q", out.String())
	}

	err := report(&out, errOut, sandbox.Failure("boom"))
	var exit exitError
	if !errors.As(err, &exit) {
		t.Fatalf("failure returned %v, want exitError", err)
	}
	// Not a terminal, so no color codes.
	if got := readAll(t, errOut); got != "Error: boom\n" {
		t.Errorf("stderr = %q", got)
	}
}

func TestFirstLine(t *testing.T) {
	tests := []struct {
		code string
		want string
	}{
		{"\n\n  print(1)\nprint(2)", "print(1)"},
		{"", "(empty)"},
		{strings.Repeat("a", 50), strings.Repeat("a", 10) + ".."},
	}
	for _, tt := range tests {
		if got := firstLine(tt.code, 10); got != tt.want {
			t.Errorf("firstLine(%q) = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestTimeAgo(t *testing.T) {
	now := time.Now()
	tests := []struct {
		t    time.Time
		want string
	}{
		{now, "just now"},
		{now.Add(-5 * time.Minute), "5m ago"},
		{now.Add(-3 * time.Hour), "3h ago"},
		{now.Add(-49 * time.Hour), "2d ago"},
	}
	for _, tt := range tests {
		if got := timeAgo(tt.t); got != tt.want {
			t.Errorf("timeAgo(%v) = %q, want %q", tt.t, got, tt.want)
		}
	}
}

func TestShortID(t *testing.T) {
	if got := shortID("0123456789"); got != "01234567" {
		t.Errorf("shortID = %q", got)
	}
	if got := shortID("abc"); got != "abc" {
		t.Errorf("shortID = %q", got)
	}
}

func TestWarnUnbounded(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	logger := zap.New(core)

	warnUnbounded(logger, sandbox.NewDockerSandbox(sandbox.DefaultPolicy(), ""))
	if logs.Len() != 0 {
		t.Fatalf("docker backend logged %d warnings, want 0", logs.Len())
	}

	warnUnbounded(logger, sandbox.NewStarlarkSandbox(sandbox.DefaultPolicy()))
	if got := logs.FilterMessageSnippet("no memory limit").Len(); got != 1 {
		t.Errorf("starlark backend logged %d memory warnings, want 1", got)
	}
}
