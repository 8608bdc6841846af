package main

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/michaelbrown/explorer/internal/lessons"
	"github.com/michaelbrown/explorer/internal/runner"
	"github.com/michaelbrown/explorer/internal/sandbox"
)

func testHandlers(t *testing.T, policy sandbox.Policy) *handlers {
	t.Helper()
	content, err := lessons.Load()
	if err != nil {
		t.Fatal(err)
	}
	return &handlers{
		runner:  runner.New(sandbox.NewStarlarkSandbox(policy), nil, nil),
		lessons: content,
	}
}

func call(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) != 1 {
		t.Fatalf("got %d content items, want 1", len(res.Content))
	}
	tc, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T, want TextContent", res.Content[0])
	}
	return tc.Text
}

func TestHandleRunSnippet(t *testing.T) {
	h := testHandlers(t, sandbox.DefaultPolicy())

	tests := []struct {
		name    string
		args    map[string]any
		want    string
		isError bool
	}{
		{"output", map[string]any{"code": `print("hello")`}, "hello\n", false},
		{"empty", map[string]any{"code": ""}, "(no output)", false},
		{"failure", map[string]any{"code": "print(1/0)"}, "error: ", true},
		{"missing code", map[string]any{}, "error: 'code' argument must be a string", true},
		{"wrong type", map[string]any{"code": 42}, "error: 'code' argument must be a string", true},
		{"no arguments", nil, "error: invalid arguments", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := h.handleRunSnippet(context.Background(), call(tt.args))
			if err != nil {
				t.Fatalf("handler returned error: %v", err)
			}
			if res.IsError != tt.isError {
				t.Errorf("IsError = %v, want %v", res.IsError, tt.isError)
			}
			if got := resultText(t, res); !strings.HasPrefix(got, tt.want) {
				t.Errorf("text = %q, want prefix %q", got, tt.want)
			}
		})
	}
}

func TestHandleRunSnippetCapsText(t *testing.T) {
	h := testHandlers(t, sandbox.Policy{})

	res, _ := h.handleRunSnippet(context.Background(), call(map[string]any{
		"code": `print("x" * 5000)`,
	}))
	got := resultText(t, res)
	if !strings.HasSuffix(got, "... (output truncated)") {
		t.Errorf("expected truncation marker, got suffix %q", got[len(got)-30:])
	}
	if len(got) > maxResultText+len("\n... (output truncated)") {
		t.Errorf("text is %d bytes, over the cap", len(got))
	}
}

func TestHandleLesson(t *testing.T) {
	h := testHandlers(t, sandbox.DefaultPolicy())

	res, _ := h.handleLesson(context.Background(), call(map[string]any{"section": "sequences"}))
	if res.IsError {
		t.Fatalf("unexpected error: %s", resultText(t, res))
	}
	if got := resultText(t, res); !strings.Contains(got, "coordinates = (10, 20)") {
		t.Errorf("text = %q", got)
	}

	res, _ = h.handleLesson(context.Background(), call(map[string]any{"section": "nope"}))
	if !res.IsError {
		t.Error("expected error for unknown section")
	}
}

func TestNewServerRegistersTools(t *testing.T) {
	h := testHandlers(t, sandbox.DefaultPolicy())
	if s := newServer(h); s == nil {
		t.Fatal("newServer returned nil")
	}
}
