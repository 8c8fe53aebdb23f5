package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOllamaGenerate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("path = %s", r.URL.Path)
		}

		var req ollamaRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Stream {
			t.Error("streaming requested")
		}
		if req.Model != "llama3.1" {
			t.Errorf("model = %s", req.Model)
		}

		_ = json.NewEncoder(w).Encode(ollamaResponse{
			Model:           "llama3.1",
			Response:        "A plausible fit.",
			Done:            true,
			PromptEvalCount: 10,
			EvalCount:       20,
		})
	}))
	defer server.Close()

	p, err := NewOllama(Config{BaseURL: server.URL, Model: "llama3.1", Timeout: 5})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	resp, err := p.Generate(context.Background(), Request{Prompt: "Rate this."})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if resp.Text != "A plausible fit." {
		t.Errorf("text = %q", resp.Text)
	}
	if resp.TokensUsed != 30 {
		t.Errorf("tokens = %d, want 30", resp.TokensUsed)
	}
}

func TestOllamaGenerateServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error": "model not loaded"}`))
	}))
	defer server.Close()

	p, err := NewOllama(Config{BaseURL: server.URL, Model: "llama3.1", Timeout: 5})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	_, err = p.Generate(context.Background(), Request{Prompt: "hi"})
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("err = %v, want ErrUnavailable", err)
	}
}

func TestOllamaGenerateEmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(ollamaResponse{Model: "llama3.1", Response: "   ", Done: true})
	}))
	defer server.Close()

	p, err := NewOllama(Config{BaseURL: server.URL, Model: "llama3.1", Timeout: 5})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	_, err = p.Generate(context.Background(), Request{Prompt: "hi"})
	if !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("err = %v, want ErrEmptyResponse", err)
	}
}

func TestNewOllamaRequiresModel(t *testing.T) {
	if _, err := NewOllama(Config{}); !errors.Is(err, ErrBadRequest) {
		t.Errorf("err = %v, want ErrBadRequest", err)
	}
}
