// Package config loads Verdure configuration from YAML with environment
// overrides. Every knob has a default so the core runs with no config file
// at all.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all Verdure configuration.
type Config struct {
	// Scoring clamps and cutoffs
	Scoring ScoringConfig `yaml:"scoring"`

	// Router batch sizes and timeouts
	Router RouterConfig `yaml:"router"`

	// Completion service configuration
	LLM LLMConfig `yaml:"llm"`

	// Rule persistence
	Store StoreConfig `yaml:"store"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// ScoringConfig tunes the scoring engine's clamps and thresholds.
type ScoringConfig struct {
	ScoreCapMax       int `yaml:"score_cap_max"`
	ScoreCapMin       int `yaml:"score_cap_min"`
	PriorityThreshold int `yaml:"priority_threshold"`
	CriticalThreshold int `yaml:"critical_threshold"`
}

// RouterConfig tunes the intent router.
type RouterConfig struct {
	// QueryItemLimit caps how many ranked notifications the query path embeds
	// in its prompt. Chosen to stay inside the completion service's practical
	// input budget.
	QueryItemLimit int `yaml:"query_item_limit"`

	// CompletionTimeout bounds each completion-service call. Parsed as a Go
	// duration string.
	CompletionTimeout string `yaml:"completion_timeout"`
}

// LLMConfig configures the completion service client.
type LLMConfig struct {
	Provider string `yaml:"provider"` // gemini
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
	Timeout  string `yaml:"timeout"`
}

// StoreConfig configures rule persistence.
type StoreConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// LoggingConfig configures the categorized file logger.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Level      string          `yaml:"level"`
	Categories map[string]bool `yaml:"categories"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Scoring: ScoringConfig{
			ScoreCapMax:       24,
			ScoreCapMin:       -5,
			PriorityThreshold: 2,
			CriticalThreshold: 15,
		},
		Router: RouterConfig{
			QueryItemLimit:    8,
			CompletionTimeout: "30s",
		},
		LLM: LLMConfig{
			Provider: "gemini",
			Model:    "gemini-3-flash-preview",
			BaseURL:  "https://generativelanguage.googleapis.com/v1beta",
			Timeout:  "30s",
		},
		Store: StoreConfig{
			DatabasePath: ".verdure/rules.db",
		},
		Logging: LoggingConfig{
			DebugMode: false,
			Level:     "info",
		},
	}
}

// Load reads the config at path, falling back to defaults when the file is
// absent. Missing fields keep their defaults; environment overrides apply
// last.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(cfg)
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// applyEnvOverrides lets the API key come from the environment so it never
// has to live in the YAML file.
func applyEnvOverrides(cfg *Config) {
	if key := os.Getenv("VERDURE_GEMINI_API_KEY"); key != "" {
		cfg.LLM.APIKey = key
	}
	if model := os.Getenv("VERDURE_MODEL"); model != "" {
		cfg.LLM.Model = model
	}
}

// CompletionTimeout parses the router's completion timeout, defaulting to
// 30 seconds on empty or malformed values.
func (c *Config) CompletionTimeout() time.Duration {
	d, err := time.ParseDuration(c.Router.CompletionTimeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// LLMTimeout parses the client-level HTTP timeout, defaulting to 30 seconds.
func (c *Config) LLMTimeout() time.Duration {
	d, err := time.ParseDuration(c.LLM.Timeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}
