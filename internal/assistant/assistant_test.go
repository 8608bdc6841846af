package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestExplain(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 0,
			"model": "tutor",
			"choices": [{
				"index": 0,
				"finish_reason": "stop",
				"message": {"role": "assistant", "content": "  You divided by zero.  "}
			}]
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/v1/", "test", "tutor")
	got, err := c.Explain(context.Background(), "print(1/0)", "floating-point division by zero")
	if err != nil {
		t.Fatalf("Explain: %v", err)
	}
	if got != "You divided by zero." {
		t.Errorf("Explain = %q", got)
	}

	if gotBody["model"] != "tutor" {
		t.Errorf("model = %v, want tutor", gotBody["model"])
	}
	msgs, _ := gotBody["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	user, _ := msgs[1].(map[string]any)
	if content, _ := user["content"].(string); !strings.Contains(content, "print(1/0)") {
		t.Errorf("user message = %v, want to include the code", user["content"])
	}
}

func TestExplainServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"message": "bad model"}}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/v1/", "test", "tutor")
	if _, err := c.Explain(context.Background(), "x", "y"); err == nil {
		t.Fatal("expected error from failing server")
	}
}

func TestExplainDisabled(t *testing.T) {
	var c *Client
	if _, err := c.Explain(context.Background(), "x", "y"); !errors.Is(err, ErrDisabled) {
		t.Errorf("nil client err = %v, want ErrDisabled", err)
	}

	c = NewClient("", "", "")
	if _, err := c.Explain(context.Background(), "x", "y"); !errors.Is(err, ErrDisabled) {
		t.Errorf("no model err = %v, want ErrDisabled", err)
	}
}

func TestPrompt(t *testing.T) {
	p := prompt("x = 1\n", "undefined: y")
	if !strings.Contains(p, "```python\nx = 1\n```") || !strings.HasSuffix(p, "undefined: y") {
		t.Errorf("prompt = %q", p)
	}
}
