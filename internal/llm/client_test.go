package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lazypower/lexloop/internal/config"
)

func TestNewClientClaudeCLI(t *testing.T) {
	cfg := config.LLMConfig{Provider: "claude-cli", Model: "haiku"}
	client, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, ok := client.(*ClaudeCLI); !ok {
		t.Errorf("expected *ClaudeCLI, got %T", client)
	}
}

func TestNewClientAnthropic(t *testing.T) {
	cfg := config.LLMConfig{Provider: "anthropic", AnthropicKey: "test-key"}
	client, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	a, ok := client.(*Anthropic)
	if !ok {
		t.Fatalf("expected *Anthropic, got %T", client)
	}
	if a.model != "claude-haiku-4-5-20251001" {
		t.Errorf("default model = %q", a.model)
	}
}

func TestNewClientAnthropicMissingKey(t *testing.T) {
	cfg := config.LLMConfig{Provider: "anthropic"}
	_, err := NewClient(cfg)
	if err == nil {
		t.Error("expected error for missing API key")
	}
}

func TestNewClientOllama(t *testing.T) {
	cfg := config.LLMConfig{Provider: "ollama", OllamaModel: "llama3.2"}
	client, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	o, ok := client.(*Ollama)
	if !ok {
		t.Fatalf("expected *Ollama, got %T", client)
	}
	if o.url != "http://localhost:11434" {
		t.Errorf("default url = %q", o.url)
	}
}

func TestNewClientUnknown(t *testing.T) {
	cfg := config.LLMConfig{Provider: "gpt"}
	_, err := NewClient(cfg)
	if err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestClaudeCLIArgs(t *testing.T) {
	c := NewClaudeCLI("haiku")
	args := c.args(Request{System: "be terse"})
	last := args[len(args)-2:]
	if last[0] != "--system-prompt" || last[1] != "be terse" {
		t.Errorf("args = %v, want trailing --system-prompt", args)
	}
	if got := c.args(Request{}); len(got) != 5 {
		t.Errorf("args without system = %v", got)
	}
}

func TestOllamaComplete(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("path = %s, want /api/generate", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"response":          "<konzept>gehen --- to go</konzept>",
			"prompt_eval_count": 10,
			"eval_count":        5,
		})
	}))
	defer srv.Close()

	o := NewOllama(srv.URL, "llama3.2")
	resp, err := o.Complete(context.Background(), Request{System: "sys", Prompt: "gehen", Temperature: 0.1})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != "<konzept>gehen --- to go</konzept>" {
		t.Errorf("content = %q", resp.Content)
	}
	if resp.TokensUsed != 15 {
		t.Errorf("tokens = %d, want 15", resp.TokensUsed)
	}
	if got["system"] != "sys" || got["prompt"] != "gehen" || got["model"] != "llama3.2" {
		t.Errorf("request body = %v", got)
	}
}

func TestOllamaCompleteErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	o := NewOllama(srv.URL, "missing")
	if _, err := o.Complete(context.Background(), Request{Prompt: "x"}); err == nil {
		t.Error("expected error for 404")
	}
}

func TestAnthropicComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "k" {
			t.Errorf("x-api-key = %q", r.Header.Get("x-api-key"))
		}
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["system"] != "sys" {
			t.Errorf("system = %v", body["system"])
		}
		json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]string{{"text": "ok"}},
			"usage":   map[string]int{"input_tokens": 3, "output_tokens": 4},
		})
	}))
	defer srv.Close()

	a := NewAnthropic("k", "claude-haiku-4-5-20251001")
	a.url = srv.URL
	resp, err := a.Complete(context.Background(), Request{System: "sys", Prompt: "p"})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != "ok" || resp.TokensUsed != 7 || resp.Provider != "anthropic" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestMockClient(t *testing.T) {
	mock := &MockClient{
		Response: &Response{Content: "test response", Provider: "mock"},
	}

	resp, err := mock.Complete(context.Background(), Request{Prompt: "test prompt"})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != "test response" {
		t.Errorf("content = %q, want %q", resp.Content, "test response")
	}
	if len(mock.Calls) != 1 {
		t.Errorf("expected 1 call, got %d", len(mock.Calls))
	}
	if mock.Calls[0].Prompt != "test prompt" {
		t.Errorf("call[0] = %q, want %q", mock.Calls[0].Prompt, "test prompt")
	}
}
