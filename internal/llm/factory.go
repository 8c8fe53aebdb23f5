package llm

import (
	"fmt"
	"strings"
)

// NewClient creates the configured text-generation client. An empty provider
// returns (nil, nil): text generation is off and the pipeline runs
// similarity-only.
func NewClient(config Config) (Client, error) {
	switch strings.ToLower(config.Provider) {
	case "openai":
		return NewOpenAI(config)

	case "anthropic", "claude":
		return NewAnthropic(config)

	case "ollama":
		return NewOllama(config)

	case "":
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown text-generation provider: %s (supported: openai, anthropic, ollama)", config.Provider)
	}
}
