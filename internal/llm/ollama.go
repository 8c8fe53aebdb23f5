package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Ollama generates text through a local Ollama server
type Ollama struct {
	baseURL    string
	httpClient *http.Client
	config     Config
}

type ollamaRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	System  string        `json:"system,omitempty"`
	Options ollamaOptions `json:"options,omitempty"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"` // max tokens
}

type ollamaResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`

	// Token counts, only present when done=true
	PromptEvalCount int `json:"prompt_eval_count,omitempty"`
	EvalCount       int `json:"eval_count,omitempty"`
}

type ollamaError struct {
	Error string `json:"error"`
}

// NewOllama creates the Ollama client
func NewOllama(config Config) (*Ollama, error) {
	if config.Model == "" {
		return nil, fmt.Errorf("ollama: %w: model must be specified (e.g. llama3.1:8b)", ErrBadRequest)
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	timeout := callTimeout(config.Timeout)
	if config.Timeout <= 0 {
		// Local models are slower than hosted APIs.
		timeout *= 2
	}

	return &Ollama{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		config:     config,
	}, nil
}

// Name returns the provider name
func (p *Ollama) Name() string {
	return "ollama"
}

// Generate performs one completion against /api/generate
func (p *Ollama) Generate(ctx context.Context, req Request) (*Response, error) {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.config.MaxTokens
	}
	if maxTokens == 0 {
		maxTokens = 1000
	}

	apiReq := ollamaRequest{
		Model:  p.config.Model,
		Prompt: req.Prompt,
		Stream: false,
		System: req.System,
		Options: ollamaOptions{
			Temperature: 0.3,
			NumPredict:  maxTokens,
		},
	}

	resp, err := p.makeRequest(ctx, apiReq)
	if err != nil {
		return nil, fmt.Errorf("ollama: %w", err)
	}

	text := strings.TrimSpace(resp.Response)
	if text == "" {
		return nil, fmt.Errorf("ollama: %w", ErrEmptyResponse)
	}

	tokensUsed := resp.PromptEvalCount + resp.EvalCount
	if tokensUsed == 0 {
		// Some models report no counts; estimate at 4 characters per token.
		tokensUsed = (len(req.Prompt) + len(text)) / 4
	}

	return &Response{
		Text:       text,
		Model:      resp.Model,
		TokensUsed: tokensUsed,
	}, nil
}

func (p *Ollama) makeRequest(ctx context.Context, apiReq ollamaRequest) (*ollamaResponse, error) {
	body, err := json.Marshal(apiReq)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}

	if httpResp.StatusCode != http.StatusOK {
		detail := string(respBody)
		var apiErr ollamaError
		if err := json.Unmarshal(respBody, &apiErr); err == nil && apiErr.Error != "" {
			detail = apiErr.Error
		}
		return nil, classifyStatus(httpResp.StatusCode, detail)
	}

	var resp ollamaResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("%w: unmarshal response: %v", ErrEmptyResponse, err)
	}
	return &resp, nil
}
