package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAI generates text through the Chat Completions API
type OpenAI struct {
	client *openai.Client
	config Config
}

// NewOpenAI creates the OpenAI client
func NewOpenAI(config Config) (*OpenAI, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("openai: %w: API key is required", ErrBadRequest)
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	return &OpenAI{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
	}, nil
}

// Name returns the provider name
func (p *OpenAI) Name() string {
	return "openai"
}

// Generate performs one chat completion
func (p *OpenAI) Generate(ctx context.Context, req Request) (*Response, error) {
	model := p.config.Model
	if model == "" {
		model = openai.GPT4oMini
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.config.MaxTokens
	}
	if maxTokens == 0 {
		maxTokens = 1000
	}

	ctx, cancel := context.WithTimeout(ctx, callTimeout(p.config.Timeout))
	defer cancel()

	var messages []openai.ChatCompletionMessage
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: 0.3,
	})
	if err != nil {
		return nil, fmt.Errorf("openai: %w", wrapOpenAIError(err))
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai: %w", ErrEmptyResponse)
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return nil, fmt.Errorf("openai: %w", ErrEmptyResponse)
	}

	return &Response{
		Text:       text,
		Model:      resp.Model,
		TokensUsed: resp.Usage.TotalTokens,
	}, nil
}

func wrapOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return classifyStatus(apiErr.HTTPStatusCode, apiErr.Message)
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

func callTimeout(seconds int) time.Duration {
	if seconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(seconds) * time.Second
}
