package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ChugThaJug/hellfast/core"
)

// TokenPrice is the per-token price pair for one model.
type TokenPrice struct {
	Input  float64 `yaml:"input"`
	Output float64 `yaml:"output"`
}

// Cost computes the rounded price of one call under this rate.
func (p TokenPrice) Cost(inputTokens, outputTokens int) float64 {
	total := float64(inputTokens)*p.Input + float64(outputTokens)*p.Output
	// Same 6-decimal rounding the usage tally applies.
	return float64(int64(total*1e6+0.5)) / 1e6
}

type Config struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`

	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float32 `yaml:"temperature"`

	// Pipeline tuning. ContextWindow and MinChunkSuccess carry the values
	// observed to work in production; they are configurable, not tuned.
	ChunkSize       int     `yaml:"chunk_size"`
	ContextWindow   int     `yaml:"context_window"`
	MinChunkSuccess float64 `yaml:"min_chunk_success"`

	MaxRetries        int `yaml:"max_retries"`
	RetryDelaySeconds int `yaml:"retry_delay_seconds"`

	MaxConcurrentJobs int `yaml:"max_concurrent_jobs"`

	PostgresURL string `yaml:"postgres_url"`

	TokenPrices map[string]TokenPrice `yaml:"token_prices"`
	Prompts     map[string]string     `yaml:"prompts"`
}

var globalConfig *Config

// LoadConfig loads config.yaml if present, then applies environment variable
// overrides. A .env file in the working directory is folded into the
// environment first. The loaded config is cached for the process lifetime.
func LoadConfig() (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	// Missing .env is fine; environment may already be set.
	_ = godotenv.Load()

	config := defaults()

	if data, err := os.ReadFile("config.yaml"); err == nil {
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("parse config.yaml: %w", err)
		}
	}

	applyEnvOverrides(config)
	fillDefaults(config)

	globalConfig = config
	return globalConfig, nil
}

func applyEnvOverrides(config *Config) {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		config.APIKey = key
	}
	if url := os.Getenv("OPENAI_BASE_URL"); url != "" {
		config.BaseURL = url
	}
	if model := os.Getenv("MODEL"); model != "" {
		config.Model = model
	}
	if url := os.Getenv("POSTGRES_URL"); url != "" {
		config.PostgresURL = url
	}
	if v := os.Getenv("CHUNK_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.ChunkSize = n
		}
	}
	if v := os.Getenv("MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.MaxRetries = n
		}
	}
	if v := os.Getenv("RETRY_DELAY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.RetryDelaySeconds = n
		}
	}
	if v := os.Getenv("MAX_CONCURRENT_JOBS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.MaxConcurrentJobs = n
		}
	}
}

func defaults() *Config {
	return &Config{
		Model:             "gpt-4o-mini",
		MaxTokens:         4000,
		Temperature:       0.7,
		ChunkSize:         1000,
		ContextWindow:     100,
		MinChunkSuccess:   0.5,
		MaxRetries:        3,
		RetryDelaySeconds: 1,
		MaxConcurrentJobs: 5,
	}
}

// fillDefaults restores zero-valued fields a partial config.yaml may have
// cleared, and installs the built-in price table and prompts.
func fillDefaults(config *Config) {
	d := defaults()
	if config.Model == "" {
		config.Model = d.Model
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = d.MaxTokens
	}
	if config.Temperature == 0 {
		config.Temperature = d.Temperature
	}
	if config.ChunkSize == 0 {
		config.ChunkSize = d.ChunkSize
	}
	if config.ContextWindow == 0 {
		config.ContextWindow = d.ContextWindow
	}
	if config.MinChunkSuccess == 0 {
		config.MinChunkSuccess = d.MinChunkSuccess
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = d.MaxRetries
	}
	if config.RetryDelaySeconds == 0 {
		config.RetryDelaySeconds = d.RetryDelaySeconds
	}
	if config.MaxConcurrentJobs == 0 {
		config.MaxConcurrentJobs = d.MaxConcurrentJobs
	}
	if config.TokenPrices == nil {
		config.TokenPrices = defaultTokenPrices()
	}
	if config.Prompts == nil {
		config.Prompts = map[string]string{}
	}
	for style, prompt := range defaultPrompts {
		if _, ok := config.Prompts[style]; !ok {
			config.Prompts[style] = prompt
		}
	}
}

func (c *Config) Validate() error {
	var errors []string

	if strings.TrimSpace(c.APIKey) == "" {
		errors = append(errors, "API key is required (OPENAI_API_KEY or config.yaml api_key)")
	}
	if strings.TrimSpace(c.Model) == "" {
		errors = append(errors, "model is required")
	}
	if c.ChunkSize <= 0 {
		errors = append(errors, "chunk_size must be positive")
	}
	if c.MinChunkSuccess <= 0 || c.MinChunkSuccess > 1 {
		errors = append(errors, "min_chunk_success must be in (0, 1]")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errors, "; "))
	}
	return nil
}

// RetryPolicy builds the fixed-delay retry policy the pipeline stages use.
func (c *Config) RetryPolicy() core.RetryPolicy {
	return core.RetryPolicy{
		MaxAttempts: c.MaxRetries,
		Delay:       time.Duration(c.RetryDelaySeconds) * time.Second,
	}
}

// PriceFor returns the token price pair for a model, falling back to the
// default rate for unknown models.
func (c *Config) PriceFor(model string) TokenPrice {
	if price, ok := c.TokenPrices[model]; ok {
		return price
	}
	return defaultTokenPrice
}

// PromptFor returns the base system prompt for an output style.
func (c *Config) PromptFor(style core.OutputStyle) string {
	if prompt, ok := c.Prompts[string(style)]; ok {
		return prompt
	}
	return defaultPrompts[string(core.StyleStepByStep)]
}
