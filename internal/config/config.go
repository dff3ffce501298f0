package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"chatai-router/internal/models"
)

const (
	// EnvOpenAIKey overrides providers.openai.api_key.
	EnvOpenAIKey = "OPENAI_API_KEY"
	// EnvAnthropicKey overrides providers.anthropic.api_key.
	EnvAnthropicKey = "ANTHROPIC_API_KEY"

	defaultPort             = 3001
	defaultOpenAIBaseURL    = "https://api.openai.com/v1"
	defaultAnthropicBaseURL = "https://api.anthropic.com"
	defaultProviderTimeout  = 60 * time.Second
)

// Config represents the application configuration parsed from YAML.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
	Retry     RetryConfig     `yaml:"retry"`
	Providers ProvidersConfig `yaml:"providers"`
}

// ServerConfig defines listener configuration.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig controls the process logger.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// RetryConfig tunes the backoff applied to non-streaming provider calls.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay"`
}

// ProvidersConfig catalogues configured upstream provider families.
type ProvidersConfig struct {
	OpenAI    *ProviderConfig `yaml:"openai"`
	Anthropic *ProviderConfig `yaml:"anthropic"`
}

// ProviderConfig captures credentials and routing info for a provider family.
type ProviderConfig struct {
	APIKey  string        `yaml:"api_key"`
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
	Headers Headers       `yaml:"headers"`
	Models  []ModelConfig `yaml:"models"`
}

// Headers contains additional HTTP headers to send with a provider request.
type Headers map[string]string

// ModelConfig describes a model exposed by a provider. Name, Pricing and
// Capabilities override the built-in catalog when set.
type ModelConfig struct {
	ID           string               `yaml:"id"`
	Name         string               `yaml:"name"`
	Pricing      *models.Pricing      `yaml:"pricing"`
	Capabilities *models.Capabilities `yaml:"capabilities"`
}

// Default returns the configuration used when no file is supplied.
func Default() Config {
	return Config{
		Server:  ServerConfig{Port: defaultPort},
		Logging: LoggingConfig{Level: "info"},
		Providers: ProvidersConfig{
			OpenAI: &ProviderConfig{
				BaseURL: defaultOpenAIBaseURL,
				Models: []ModelConfig{
					{ID: "gpt-4"},
					{ID: "gpt-4-turbo"},
					{ID: "gpt-3.5-turbo"},
				},
			},
			Anthropic: &ProviderConfig{
				BaseURL: defaultAnthropicBaseURL,
				Models: []ModelConfig{
					{ID: "claude-3-5-sonnet-20241022"},
					{ID: "claude-3-opus"},
				},
			},
		},
	}
}

// Load reads YAML configuration from disk, applies defaults and the
// credential environment overlay, and validates the result. An empty path
// yields the default configuration.
func Load(path string, envFiles ...string) (Config, error) {
	cfg := Default()

	if path != "" {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return Config{}, &Error{Op: "resolve", Err: err}
		}

		data, err := os.ReadFile(absPath)
		if err != nil {
			return Config{}, &Error{Op: "read", Err: fmt.Errorf("read config file %q: %w", absPath, err)}
		}

		cfg = Config{}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, &Error{Op: "parse", Err: fmt.Errorf("parse config file %q: %w", absPath, err)}
		}
		cfg.applyDefaults()
	}

	if err := loadEnvFiles(envFiles...); err != nil {
		return Config{}, &Error{Op: "env", Err: err}
	}
	cfg.applyEnv(os.Getenv)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadEnvFiles(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load env file %q: %w", file, err)
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = defaultPort
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Providers.OpenAI != nil && c.Providers.OpenAI.BaseURL == "" {
		c.Providers.OpenAI.BaseURL = defaultOpenAIBaseURL
	}
	if c.Providers.Anthropic != nil && c.Providers.Anthropic.BaseURL == "" {
		c.Providers.Anthropic.BaseURL = defaultAnthropicBaseURL
	}
}

func (c *Config) applyEnv(getenv func(string) string) {
	if key := strings.TrimSpace(getenv(EnvOpenAIKey)); key != "" && c.Providers.OpenAI != nil {
		c.Providers.OpenAI.APIKey = key
	}
	if key := strings.TrimSpace(getenv(EnvAnthropicKey)); key != "" && c.Providers.Anthropic != nil {
		c.Providers.Anthropic.APIKey = key
	}
}

// ProviderTimeout returns the client timeout for a provider family.
func (p ProviderConfig) ProviderTimeout() time.Duration {
	if p.Timeout > 0 {
		return p.Timeout
	}
	return defaultProviderTimeout
}

// Validate performs strict sanity checks on the configuration. Missing
// credentials are not a validation error; they fail adapter initialization.
func (c Config) Validate() error {
	var problems []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("server.port must be a valid TCP port, got %d", c.Server.Port))
	}
	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Sprintf("logging.level %q must be one of debug, info, warn, error", c.Logging.Level))
	}
	if c.Retry.MaxAttempts < 0 {
		problems = append(problems, "retry.max_attempts must not be negative")
	}
	if c.Retry.BaseDelay < 0 {
		problems = append(problems, "retry.base_delay must not be negative")
	}
	if c.Providers.OpenAI == nil && c.Providers.Anthropic == nil {
		problems = append(problems, "at least one provider must be configured")
	}

	seen := make(map[string]string)
	providers := map[string]*ProviderConfig{
		"openai":    c.Providers.OpenAI,
		"anthropic": c.Providers.Anthropic,
	}
	for _, name := range []string{"openai", "anthropic"} {
		provider := providers[name]
		if provider == nil {
			continue
		}
		problems = append(problems, validateProvider(name, *provider, seen)...)
	}

	if len(problems) > 0 {
		return &ValidationError{Errors: problems}
	}
	return nil
}

func validateProvider(name string, provider ProviderConfig, seen map[string]string) []string {
	var problems []string

	if strings.TrimSpace(provider.BaseURL) == "" {
		problems = append(problems, fmt.Sprintf("provider %s: base_url must be provided", name))
	}
	if len(provider.Models) == 0 {
		problems = append(problems, fmt.Sprintf("provider %s: at least one model must be configured", name))
	}

	for _, model := range provider.Models {
		id := strings.TrimSpace(model.ID)
		if id == "" {
			problems = append(problems, fmt.Sprintf("provider %s: model id must not be empty", name))
			continue
		}
		if owner, dup := seen[id]; dup {
			problems = append(problems, fmt.Sprintf("provider %s: model %q already configured by provider %s", name, id, owner))
			continue
		}
		seen[id] = name

		if model.Pricing != nil && (model.Pricing.Input < 0 || model.Pricing.Output < 0) {
			problems = append(problems, fmt.Sprintf("provider %s: model %q pricing must not be negative", name, id))
		}
	}

	for headerKey := range provider.Headers {
		if !isCanonicalHTTPHeader(headerKey) {
			problems = append(problems, fmt.Sprintf("provider %s: header %q is not a valid canonical HTTP header", name, headerKey))
		}
	}

	return problems
}

// Warnings lists non-fatal configuration issues worth surfacing at startup.
func (c Config) Warnings() []string {
	var warnings []string

	openaiKey := c.Providers.OpenAI != nil && c.Providers.OpenAI.APIKey != ""
	anthropicKey := c.Providers.Anthropic != nil && c.Providers.Anthropic.APIKey != ""
	if !openaiKey && !anthropicKey {
		warnings = append(warnings, "no provider API keys configured - models will fail to initialize")
	}
	return warnings
}

func isCanonicalHTTPHeader(header string) bool {
	if header == "" {
		return false
	}

	for _, r := range header {
		if !(r == '-' || (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z')) {
			return false
		}
	}
	return true
}
