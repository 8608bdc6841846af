// Package assistant asks an OpenAI-compatible model to explain a failed
// snippet to a beginner.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const systemPrompt = `You are a patient tutor helping a beginner learn Python basics.
The student's code runs in Starlark, a small dialect of Python without f-strings, classes or imports.
Explain in two or three short sentences why the error happened and how to fix it.
Do not rewrite the whole program.`

// ErrDisabled is returned when no model is configured.
var ErrDisabled = errors.New("assistant is not configured")

// Explainer turns a failed run into a plain-language explanation.
type Explainer interface {
	Explain(ctx context.Context, code, message string) (string, error)
}

// Client works with any OpenAI-compatible API (OpenAI, Ollama, Gemini).
type Client struct {
	client *openai.Client
	model  string
}

var _ Explainer = (*Client)(nil)

// NewClient creates a client for the given endpoint and model.
func NewClient(baseURL, apiKey, model string) *Client {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)
	return &Client{client: &client, model: model}
}

func (c *Client) Explain(ctx context.Context, code, message string) (string, error) {
	if c == nil || c.model == "" {
		return "", ErrDisabled
	}

	params := openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(prompt(code, message)),
		},
	}

	var completion *openai.ChatCompletion
	var err error
	for attempt := range 3 {
		completion, err = c.client.Chat.Completions.New(ctx, params)
		if err == nil {
			break
		}
		if !strings.Contains(err.Error(), "429") || attempt == 2 {
			return "", fmt.Errorf("chat completion: %w", err)
		}
		wait := time.Duration(2<<attempt) * time.Second // 2s, 4s
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return "", fmt.Errorf("chat completion: %w", ctx.Err())
		}
	}

	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}
	return strings.TrimSpace(completion.Choices[0].Message.Content), nil
}

func prompt(code, message string) string {
	var b strings.Builder
	b.WriteString("My code:\n```python\n")
	b.WriteString(strings.TrimRight(code, "\n"))
	b.WriteString("\n```\n\nIt failed with:\n")
	b.WriteString(message)
	return b.String()
}
