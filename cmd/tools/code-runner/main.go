package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/michaelbrown/explorer/internal/config"
	"github.com/michaelbrown/explorer/internal/lessons"
	"github.com/michaelbrown/explorer/internal/logging"
	"github.com/michaelbrown/explorer/internal/runner"
	"github.com/michaelbrown/explorer/internal/storage"
	"github.com/michaelbrown/explorer/internal/storage/sqlite"
)

// maxResultText caps the text returned to the calling agent.
const maxResultText = 4000

func main() {
	if err := serve(); err != nil {
		fmt.Fprintf(os.Stderr, "code-runner: %v\n", err)
		os.Exit(1)
	}
}

func serve() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// stdout belongs to the MCP protocol; zap writes to stderr.
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer logger.Sync()

	sb, err := cfg.NewSandbox()
	if err != nil {
		return err
	}

	var store storage.Store = storage.Discard{}
	if cfg.Journal.Enabled {
		db, err := sqlite.Open(cfg.Journal.DBPath)
		if err != nil {
			logger.Warn("run journal unavailable", zap.Error(err))
		} else {
			store = db
		}
	}
	defer store.Close()

	content, err := lessons.Load()
	if err != nil {
		return err
	}

	h := &handlers{runner: runner.New(sb, store, logger), lessons: content}
	return server.ServeStdio(newServer(h))
}

func newServer(h *handlers) *server.MCPServer {
	s := server.NewMCPServer("explorer-code-runner", "0.1.0")

	s.AddTool(mcp.Tool{
		Name: "run_snippet",
		Description: fmt.Sprintf("Run a Python-style snippet in the %s sandbox and return everything it printed. "+
			"Failures return the error message.", h.runner.Backend()),
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"code": map[string]any{
					"type":        "string",
					"description": "Source code to execute",
				},
			},
			Required: []string{"code"},
		},
	}, h.handleRunSnippet)

	var ids []string
	for _, sec := range h.lessons.Sections {
		ids = append(ids, sec.ID)
	}
	s.AddTool(mcp.Tool{
		Name:        "lesson",
		Description: fmt.Sprintf("Return the explanation and example code of a lesson section. Sections: %s.", strings.Join(ids, ", ")),
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"section": map[string]any{
					"type":        "string",
					"description": "Section id",
				},
			},
			Required: []string{"section"},
		},
	}, h.handleLesson)

	return s
}

type handlers struct {
	runner  *runner.Runner
	lessons *lessons.Content
}

func (h *handlers) handleRunSnippet(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]any)
	if args == nil {
		return errResult("error: invalid arguments"), nil
	}

	code, ok := args["code"].(string)
	if !ok {
		return errResult("error: 'code' argument must be a string"), nil
	}

	run := h.runner.Run(ctx, code, nil)

	text := run.Output
	if !run.Result().OK() {
		text = "error: " + run.Message
	} else if text == "" {
		text = "(no output)"
	}
	if run.Truncated {
		text += "\n... (output truncated)"
	}
	if len(text) > maxResultText {
		text = text[:maxResultText] + "\n... (output truncated)"
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: text}},
		IsError: !run.Result().OK(),
	}, nil
}

func (h *handlers) handleLesson(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]any)
	id, _ := args["section"].(string)
	if id == "" {
		return errResult("error: 'section' is required"), nil
	}

	sec, ok := h.lessons.Section(id)
	if !ok {
		return errResult(fmt.Sprintf("error: unknown section %q", id)), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n%s", sec.Title, sec.Body)
	if sec.Example != "" {
		fmt.Fprintf(&b, "\nExample:\n\n%s", sec.Example)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: b.String()}},
	}, nil
}

func errResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: text}},
		IsError: true,
	}
}
