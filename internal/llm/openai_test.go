package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOpenAIGenerate(t *testing.T) {
	var gotAuth string
	var gotReq map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotReq)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": "gpt-4o-mini",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "  A good fit.  "}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 9, "completion_tokens": 4, "total_tokens": 13}
		}`))
	}))
	defer server.Close()

	p, err := NewOpenAI(Config{APIKey: "test-key", Model: "gpt-4o-mini", BaseURL: server.URL + "/v1", Timeout: 5})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	resp, err := p.Generate(context.Background(), Request{System: "Judge fit.", Prompt: "Rate this.", MaxTokens: 50})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if gotAuth != "Bearer test-key" {
		t.Errorf("auth header = %q", gotAuth)
	}
	if resp.Text != "A good fit." {
		t.Errorf("text = %q, want trimmed content", resp.Text)
	}
	if resp.TokensUsed != 13 {
		t.Errorf("tokens = %d, want 13", resp.TokensUsed)
	}

	msgs, ok := gotReq["messages"].([]any)
	if !ok || len(msgs) != 2 {
		t.Fatalf("messages = %v, want system + user", gotReq["messages"])
	}
	first := msgs[0].(map[string]any)
	if first["role"] != "system" || first["content"] != "Judge fit." {
		t.Errorf("system message = %v", first)
	}
}

func TestOpenAIGenerateServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error": {"message": "overloaded", "type": "server_error"}}`))
	}))
	defer server.Close()

	p, err := NewOpenAI(Config{APIKey: "test-key", BaseURL: server.URL + "/v1", Timeout: 5})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	_, err = p.Generate(context.Background(), Request{Prompt: "hi"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsTransient(err) {
		t.Errorf("5xx should be transient, got %v", err)
	}
}

func TestOpenAIGenerateAuthError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": {"message": "bad key", "type": "invalid_request_error"}}`))
	}))
	defer server.Close()

	p, err := NewOpenAI(Config{APIKey: "wrong", BaseURL: server.URL + "/v1", Timeout: 5})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	_, err = p.Generate(context.Background(), Request{Prompt: "hi"})
	if !errors.Is(err, ErrBadRequest) {
		t.Errorf("err = %v, want ErrBadRequest", err)
	}
	if IsTransient(err) {
		t.Error("auth failure must not be retried")
	}
}

func TestNewOpenAIRequiresKey(t *testing.T) {
	if _, err := NewOpenAI(Config{}); !errors.Is(err, ErrBadRequest) {
		t.Errorf("err = %v, want ErrBadRequest", err)
	}
}
