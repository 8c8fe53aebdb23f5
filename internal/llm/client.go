package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/mfadeev/grantmatch/internal/model"
)

// Sentinel failures surfaced by providers. Callers branch on these to decide
// whether retrying can help.
var (
	// ErrUnavailable marks transport failures, timeouts, 429 and 5xx responses
	ErrUnavailable = errors.New("text-generation service unavailable")

	// ErrEmptyResponse marks a well-formed reply with no usable text
	ErrEmptyResponse = errors.New("text-generation response empty")

	// ErrBadRequest marks failures a retry cannot fix (auth, malformed request)
	ErrBadRequest = errors.New("text-generation request rejected")
)

// Client is one text-generation backend. A Generate call performs exactly one
// request with a bounded timeout and no internal retry; retry policy lives in
// Caller.
type Client interface {
	Name() string
	Generate(ctx context.Context, req Request) (*Response, error)
}

// Request is one prompt for the service
type Request struct {
	System    string // optional system directive
	Prompt    string
	MaxTokens int // 0 uses the configured default
}

// Response carries the generated text
type Response struct {
	Text       string
	Model      string
	TokensUsed int
}

// Config holds provider settings
type Config struct {
	Provider  string // "openai", "anthropic", "ollama"; empty disables
	Model     string
	APIKey    string
	BaseURL   string
	Timeout   int // seconds per call
	MaxTokens int
}

// DefaultConfig returns provider-independent defaults
func DefaultConfig() Config {
	return Config{
		Timeout:   30,
		MaxTokens: 700,
	}
}

// ConfigFromModel converts the engine configuration section. A disabled
// section maps to an empty provider, which the factory turns into no client.
func ConfigFromModel(mc model.LLMConfig) Config {
	cfg := Config{
		Provider:  mc.Provider,
		Model:     mc.Model,
		APIKey:    mc.APIKey,
		BaseURL:   mc.BaseURL,
		Timeout:   mc.Timeout,
		MaxTokens: mc.MaxTokens,
	}
	if !mc.Enabled {
		cfg.Provider = ""
	}
	return cfg
}

// IsTransient reports whether a failed call may succeed on retry
func IsTransient(err error) bool {
	if errors.Is(err, ErrUnavailable) || errors.Is(err, ErrEmptyResponse) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// classifyStatus wraps an HTTP-level failure with the matching sentinel:
// 429 and 5xx are worth retrying, everything else is not
func classifyStatus(status int, detail string) error {
	if status == 429 || status >= 500 {
		return fmt.Errorf("%w: status %d: %s", ErrUnavailable, status, detail)
	}
	return fmt.Errorf("%w: status %d: %s", ErrBadRequest, status, detail)
}

// StripCodeFences removes a surrounding markdown fence, which models add
// around JSON output despite instructions
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if parts := strings.SplitN(s, "\n", 2); len(parts) == 2 {
		s = parts[1]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimPrefix(s, "json")
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}
