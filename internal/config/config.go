// Package config loads codetutor configuration from a TOML file with
// sensible defaults and environment-based API key resolution.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config represents the top-level application configuration.
type Config struct {
	Provider  ProviderConfig  `toml:"provider"`
	Scanner   ScannerConfig   `toml:"scanner"`
	Extractor ExtractorConfig `toml:"extractor"`
	Generator GeneratorConfig `toml:"generator"`
	Output    OutputConfig    `toml:"output"`
}

// ProviderConfig holds settings for LLM provider selection and configuration.
type ProviderConfig struct {
	Default           string                   `toml:"default"`
	Model             string                   `toml:"model"`
	MaxTokens         int                      `toml:"max_tokens"`
	RequestsPerSecond float64                  `toml:"requests_per_second"`
	Anthropic         AnthropicProviderConfig  `toml:"anthropic"`
	Ollama            OllamaProviderConfig     `toml:"ollama"`
	OpenAI            []OpenAICompatibleConfig `toml:"openai_compatible"`
}

// AnthropicProviderConfig holds Anthropic-specific provider settings.
type AnthropicProviderConfig struct {
	APIKeySource string `toml:"api_key_source"`
	APIKey       string `toml:"api_key"`
}

// OllamaProviderConfig holds Ollama-specific provider settings.
type OllamaProviderConfig struct {
	BaseURL string `toml:"base_url"`
}

// OpenAICompatibleConfig holds settings for an OpenAI-compatible provider.
type OpenAICompatibleConfig struct {
	Name         string            `toml:"name"`
	BaseURL      string            `toml:"base_url"`
	APIKeySource string            `toml:"api_key_source"`
	APIKey       string            `toml:"api_key"`
	ExtraHeaders map[string]string `toml:"extra_headers"`
}

// ScannerConfig holds file discovery settings.
type ScannerConfig struct {
	Include     []string `toml:"include"`
	Exclude     []string `toml:"exclude"`
	MaxFileSize int64    `toml:"max_file_size"`
}

// ExtractorConfig holds concept extraction settings.
type ExtractorConfig struct {
	Concurrency int `toml:"concurrency"`
	MaxRetries  int `toml:"max_retries"`
}

// GeneratorConfig holds chapter generation settings.
type GeneratorConfig struct {
	Concurrency int  `toml:"concurrency"`
	MaxRetries  int  `toml:"max_retries"`
	MaxExamples int  `toml:"max_examples"`
	Strict      bool `toml:"strict"`
}

// OutputConfig holds artifact emission settings.
type OutputConfig struct {
	Dir string `toml:"dir"`
}

// DefaultConfig returns a Config populated with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderConfig{
			Default:           "anthropic",
			Model:             "claude-sonnet-4-5",
			MaxTokens:         4096,
			RequestsPerSecond: 2,
			Anthropic: AnthropicProviderConfig{
				APIKeySource: "env",
			},
		},
		Scanner: ScannerConfig{
			MaxFileSize: 512 * 1024,
		},
		Extractor: ExtractorConfig{
			Concurrency: 5,
			MaxRetries:  2,
		},
		Generator: GeneratorConfig{
			Concurrency: 4,
			MaxRetries:  2,
			MaxExamples: 2,
		},
		Output: OutputConfig{
			Dir: "docs/tutorial",
		},
	}
}

// Load reads the config file at path, layering it over DefaultConfig. A
// missing file is not an error: defaults are returned unchanged.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return cfg, nil
}
