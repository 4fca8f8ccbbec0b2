package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"jobhelper/internal/llm"
)

func withServer(t *testing.T, handler http.HandlerFunc) {
	t.Helper()
	server := httptest.NewServer(handler)
	oldURL := apiURL
	apiURL = server.URL
	t.Cleanup(func() {
		apiURL = oldURL
		server.Close()
	})
}

func TestCompleteSendsMultiModalRequest(t *testing.T) {
	var mu sync.Mutex
	var lastBody map[string]any
	var lastAuth string

	withServer(t, func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		mu.Lock()
		lastBody = payload
		lastAuth = r.Header.Get("Authorization")
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":" {\"qaPair\":[]} "}}],"usage":{"prompt_tokens":10,"completion_tokens":3,"total_tokens":13}}`))
	})

	client, err := NewClient("test-key", "gpt-4o", 1000, 0)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	req := llm.Assemble("resume", "website", []string{"data:image/png;base64,AAA", "data:image/png;base64,BBB"})
	out, err := client.Complete(context.Background(), req)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out != `{"qaPair":[]}` {
		t.Fatalf("unexpected content %q", out)
	}

	mu.Lock()
	defer mu.Unlock()
	if lastAuth != "Bearer test-key" {
		t.Fatalf("unexpected auth header %q", lastAuth)
	}
	if lastBody["model"] != "gpt-4o" {
		t.Fatalf("unexpected model %v", lastBody["model"])
	}
	if lastBody["max_tokens"] != float64(1000) {
		t.Fatalf("unexpected max_tokens %v", lastBody["max_tokens"])
	}
	messages := lastBody["messages"].([]any)
	if len(messages) != 2 {
		t.Fatalf("expected system and user messages, got %d", len(messages))
	}
	system := messages[0].(map[string]any)
	if system["role"] != "system" || system["content"] != llm.SystemInstruction {
		t.Fatalf("unexpected system message %v", system)
	}
	parts := messages[1].(map[string]any)["content"].([]any)
	if len(parts) != 3 {
		t.Fatalf("expected 3 parts, got %d", len(parts))
	}
	first := parts[0].(map[string]any)
	if first["type"] != "image_url" || first["image_url"].(map[string]any)["url"] != "data:image/png;base64,AAA" {
		t.Fatalf("unexpected first part %v", first)
	}
	last := parts[2].(map[string]any)
	if last["type"] != "text" || !strings.Contains(last["text"].(string), "resume") {
		t.Fatalf("unexpected text part %v", last)
	}
}

func TestCompleteErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{name: "api error", status: http.StatusUnauthorized, body: `{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`, wantErr: "Incorrect API key provided"},
		{name: "non json 500", status: http.StatusInternalServerError, body: `upstream down`, wantErr: "openai http status 500"},
		{name: "no choices", status: http.StatusOK, body: `{"choices":[]}`, wantErr: "missing choices"},
		{name: "empty content", status: http.StatusOK, body: `{"choices":[{"message":{"content":"  "}}]}`, wantErr: "empty content"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			withServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			client, err := NewClient("test-key", "gpt-4o", 0, 0)
			if err != nil {
				t.Fatalf("NewClient: %v", err)
			}
			_, err = client.Complete(context.Background(), llm.Assemble("", "", nil))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestNewClientRequiresKeyAndModel(t *testing.T) {
	if _, err := NewClient("", "gpt-4o", 0, 0); err == nil {
		t.Fatal("expected error for missing key")
	}
	if _, err := NewClient("k", " ", 0, 0); err == nil {
		t.Fatal("expected error for missing model")
	}
	c, err := NewClient("k", "gpt-4o", 0, 0)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if c.maxTokens != defaultMaxTokens {
		t.Fatalf("expected default max tokens, got %d", c.maxTokens)
	}
}

func TestCompleteUsesConfiguredEndpoint(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`))
	}))
	defer server.Close()

	client, err := NewClient("test-key", "gpt-4o", 0, 0)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	out, err := client.WithEndpoint(" "+server.URL+" ").Complete(context.Background(), llm.Assemble("r", "w", nil))
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out != "ok" || hits.Load() != 1 {
		t.Fatalf("unexpected out=%q hits=%d", out, hits.Load())
	}
	if got := client.WithEndpoint("").url(); got != apiURL {
		t.Fatalf("expected default endpoint, got %q", got)
	}
}
