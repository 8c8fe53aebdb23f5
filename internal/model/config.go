package model

import "time"

// Config carries every engine setting. Start from DefaultConfig and override
// individual fields; the engine is supplied a finished Config and performs no
// loading of its own.
type Config struct {
	Concurrency ConcurrencyConfig `yaml:"concurrency" json:"concurrency"`
	Embedding   EmbeddingConfig   `yaml:"embedding" json:"embedding"`
	LLM         LLMConfig         `yaml:"llm" json:"llm"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit" json:"rate_limit"`
	Judge       JudgeConfig       `yaml:"judge" json:"judge"`
	Filters     FilterConfig      `yaml:"filters" json:"filters"`
	Eligibility EligibilityConfig `yaml:"eligibility" json:"eligibility"`
	Cache       CacheConfig       `yaml:"cache" json:"cache"`
	Output      OutputConfig      `yaml:"output" json:"output"`
}

// ConcurrencyConfig bounds parallel work inside the engine
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" json:"workers"` // scoring, judging and draft batch parallelism
}

// EmbeddingConfig selects how topic vectors are computed
type EmbeddingConfig struct {
	Provider   string `yaml:"provider" json:"provider"` // "hashing" (deterministic, default) or "openai"
	Dimensions int    `yaml:"dimensions" json:"dimensions"`
	Model      string `yaml:"model" json:"model"` // openai embedding model name
	APIKey     string `yaml:"-" json:"-"`         // environment only, never persisted
}

// LLMConfig configures the text-generation service used by judge and draft
type LLMConfig struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	Provider  string `yaml:"provider" json:"provider"` // openai, anthropic, ollama
	Model     string `yaml:"model" json:"model"`
	APIKey    string `yaml:"-" json:"-"` // environment only, never persisted
	BaseURL   string `yaml:"base_url,omitempty" json:"base_url,omitempty"`
	Timeout   int    `yaml:"timeout" json:"timeout"` // per-call bound, seconds
	MaxTokens int    `yaml:"max_tokens" json:"max_tokens"`
}

// RateLimitConfig bounds outstanding calls to the text-generation service.
// One gate built from these values is shared by the judge and the draft
// generator so a single external quota is respected.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" json:"requests_per_second"` // 0 disables rate smoothing
	Burst             int     `yaml:"burst" json:"burst"`
	MaxConcurrent     int     `yaml:"max_concurrent" json:"max_concurrent"`
}

// JudgeConfig caps the fit-judge step
type JudgeConfig struct {
	MaxLLMCalls int `yaml:"max_llm_calls" json:"max_llm_calls"` // per-session budget, 0 skips judging entirely
}

// FilterConfig is the hard eligibility filter applied before ranking.
// Nil fields disable the corresponding rule; opportunities that do not state
// the filtered attribute are kept.
type FilterConfig struct {
	MinAwardCeiling   *float64 `yaml:"min_award_ceiling,omitempty" json:"min_award_ceiling,omitempty"`
	MaxDaysToDeadline *int     `yaml:"max_days_to_deadline,omitempty" json:"max_days_to_deadline,omitempty"`
	MinFinalScore     *float64 `yaml:"min_final_score,omitempty" json:"min_final_score,omitempty"`
}

// EligibilityConfig drives the career-stage penalty in the similarity scorer
type EligibilityConfig struct {
	CareerStage string `yaml:"career_stage" json:"career_stage"`

	// Disqualifiers maps a career stage onto eligibility-text phrases that
	// rule the stage out. Empty means built-in defaults.
	Disqualifiers map[string][]string `yaml:"disqualifiers,omitempty" json:"disqualifiers,omitempty"`
}

// CacheConfig controls embedding memoization
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" json:"enabled"`
	Dir       string        `yaml:"dir,omitempty" json:"dir,omitempty"` // empty keeps the cache memory-only
	MemoryTTL time.Duration `yaml:"memory_ttl" json:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" json:"disk_ttl"`
}

// OutputConfig controls logging behavior
type OutputConfig struct {
	Verbose  bool `yaml:"verbose" json:"verbose"`
	JSONLogs bool `yaml:"json_logs" json:"json_logs"`
}

// DefaultConfig returns a working configuration: deterministic hashing
// embedder, text generation disabled, moderate concurrency
func DefaultConfig() Config {
	return Config{
		Concurrency: ConcurrencyConfig{
			Workers: 8,
		},
		Embedding: EmbeddingConfig{
			Provider:   "hashing",
			Dimensions: 256,
			Model:      "text-embedding-3-small",
		},
		LLM: LLMConfig{
			Enabled:   false,
			Provider:  "openai",
			Model:     "gpt-4o-mini",
			Timeout:   30,
			MaxTokens: 700,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 2,
			Burst:             2,
			MaxConcurrent:     4,
		},
		Judge: JudgeConfig{
			MaxLLMCalls: 10,
		},
		Eligibility: EligibilityConfig{
			CareerStage:   string(CareerFaculty),
			Disqualifiers: DefaultDisqualifiers(),
		},
		Cache: CacheConfig{
			Enabled:   true,
			MemoryTTL: time.Hour,
			DiskTTL:   24 * time.Hour,
		},
	}
}

// DefaultDisqualifiers is the built-in table of hard-disqualifying
// eligibility phrases per career stage
func DefaultDisqualifiers() map[string][]string {
	return map[string][]string{
		string(CareerFaculty): {
			"postdoctoral researchers only",
			"postdoctoral-only",
			"postdoc-only",
			"graduate students only",
			"students only",
		},
		string(CareerPostdoc): {
			"faculty only",
			"tenure-track faculty only",
			"tenured faculty only",
			"graduate students only",
			"students only",
		},
		string(CareerStudent): {
			"faculty only",
			"tenure-track faculty only",
			"postdoctoral researchers only",
			"postdoctoral-only",
		},
	}
}
