package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"jobhelper/internal/shared/apperr"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Config holds application configuration.
type Config struct {
	Env             string        `envconfig:"ENV" default:"dev"`
	Port            string        `envconfig:"PORT" default:"8080"`
	CORSAllowOrigin []string      `envconfig:"CORS_ALLOW_ORIGINS" default:"http://localhost:5173"`
	LLMProvider     string        `envconfig:"LLM_PROVIDER" default:"openai"`
	LLMModel        string        `envconfig:"LLM_MODEL"`
	LLMMaxTokens    int           `envconfig:"LLM_MAX_TOKENS" default:"1000"`
	LLMTimeout      time.Duration `envconfig:"LLM_TIMEOUT" default:"0s"`
	OpenAIAPIKey    string        `envconfig:"OPENAI_API_KEY"`
	OpenAIAPIURL    string        `envconfig:"OPENAI_API_URL"`
	GeminiAPIKey    string        `envconfig:"GEMINI_API_KEY"`
	RelayURL        string        `envconfig:"RELAY_URL" default:"https://cors-anywhere.herokuapp.com/"`
	FetchTimeout    time.Duration `envconfig:"FETCH_TIMEOUT" default:"0s"`
	FetchUserAgent  string        `envconfig:"FETCH_USER_AGENT" default:"Mozilla/5.0 (X11; Linux x86_64) jobhelper/1.0"`
	RevealTick      time.Duration `envconfig:"REVEAL_TICK" default:"5ms"`
}

// Load reads configuration from environment variables with sensible defaults.
// A malformed variable is reported instead of being replaced by its default.
func Load() (Config, error) {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg.normalized(), nil
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		Env:             "dev",
		Port:            "8080",
		CORSAllowOrigin: []string{"http://localhost:5173"},
		LLMProvider:     ProviderOpenAI,
		LLMMaxTokens:    1000,
		RelayURL:        "https://cors-anywhere.herokuapp.com/",
		FetchUserAgent:  "Mozilla/5.0 (X11; Linux x86_64) jobhelper/1.0",
		RevealTick:      5 * time.Millisecond,
	}
}

func (c Config) normalized() Config {
	c.Env = normalizeEnv(c.Env)
	c.LLMProvider = normalizeProvider(c.LLMProvider)
	c.CORSAllowOrigin = trimAll(c.CORSAllowOrigin)
	if strings.TrimSpace(c.LLMModel) == "" {
		c.LLMModel = DefaultModel(c.LLMProvider)
	}
	if c.LLMMaxTokens <= 0 {
		c.LLMMaxTokens = 1000
	}
	if c.RevealTick <= 0 {
		c.RevealTick = 5 * time.Millisecond
	}
	return c
}

// APIKey returns the secret for the configured provider.
func (c Config) APIKey() string {
	switch c.LLMProvider {
	case ProviderGemini:
		return strings.TrimSpace(c.GeminiAPIKey)
	default:
		return strings.TrimSpace(c.OpenAIAPIKey)
	}
}

// RequireAPIKey fails with a ConfigError when the provider key is absent.
func (c Config) RequireAPIKey() error {
	if c.APIKey() != "" {
		return nil
	}
	name := "OPENAI_API_KEY"
	if c.LLMProvider == ProviderGemini {
		name = "GEMINI_API_KEY"
	}
	return apperr.Config("API key not configured. Please set " + name + " in your environment.")
}

// DefaultModel returns the model used when LLM_MODEL is empty.
func DefaultModel(provider string) string {
	if provider == ProviderGemini {
		return "gemini-2.5-flash"
	}
	return "gpt-4o"
}

func trimAll(in []string) []string {
	var out []string
	for _, p := range in {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeProvider(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "gemini", "google":
		return ProviderGemini
	default:
		return ProviderOpenAI
	}
}
