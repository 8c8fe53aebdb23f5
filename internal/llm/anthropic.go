package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultAnthropicModel = "claude-3-5-sonnet-20241022"

// anthropicMessager is the slice of the SDK surface Generate needs,
// separated so tests can stand in for the API
type anthropicMessager interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// Anthropic generates text through the Messages API
type Anthropic struct {
	messages anthropicMessager
	config   Config
}

// NewAnthropic creates the Anthropic client
func NewAnthropic(config Config) (*Anthropic, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("anthropic: %w: API key is required", ErrBadRequest)
	}

	opts := []option.RequestOption{option.WithAPIKey(config.APIKey)}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}
	client := anthropic.NewClient(opts...)

	return &Anthropic{
		messages: &client.Messages,
		config:   config,
	}, nil
}

// Name returns the provider name
func (p *Anthropic) Name() string {
	return "anthropic"
}

// Generate performs one message completion
func (p *Anthropic) Generate(ctx context.Context, req Request) (*Response, error) {
	model := p.config.Model
	if model == "" {
		model = defaultAnthropicModel
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

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
		Temperature: anthropic.Float(0.3),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	msg, err := p.messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic: %w", wrapAnthropicError(err))
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return nil, fmt.Errorf("anthropic: %w", ErrEmptyResponse)
	}

	return &Response{
		Text:       text,
		Model:      string(msg.Model),
		TokensUsed: int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
	}, nil
}

func wrapAnthropicError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return classifyStatus(apiErr.StatusCode, apiErr.Error())
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
