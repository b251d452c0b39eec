// Package config provides application settings loaded from environment
// variables.
//
// Settings are created via New() which handles:
// - Environment variable parsing with validation
// - Default value application
// - Provider-specific configuration lookup
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Settings holds all application configuration.
type Settings struct {
	LLM   LLMConfig
	Agent AgentConfig
}

// LLMConfig holds LLM provider configuration.
type LLMConfig struct {
	Provider    string
	Model       string
	APIKey      string
	MaxTokens   int64
	Temperature float64
}

// AgentConfig holds agent execution configuration.
type AgentConfig struct {
	MaxToolIterations int
	ThinkingBudget    int64
	Streaming         bool
	SessionRoot       string
	Debug             bool
}

// providerInfo holds configuration for a specific LLM provider.
type providerInfo struct {
	modelEnv     string
	defaultModel string
	apiKeyEnv    string
}

// Supported providers and their configuration.
var providers = map[string]providerInfo{
	"anthropic": {"ANTHROPIC_MODEL", "claude-sonnet-4-20250514", "ANTHROPIC_API_KEY"},
	"openai":    {"OPENAI_MODEL", "gpt-4o", "OPENAI_API_KEY"},
	"gemini":    {"GEMINI_MODEL", "gemini-2.5-flash", "GEMINI_API_KEY"},
}

// Provider aliases map to canonical names.
var providerAliases = map[string]string{
	"claude": "anthropic",
	"google": "gemini",
	"gpt":    "openai",
}

// New creates settings for the specified provider, loading values from
// environment variables. Returns an error for unknown providers or
// invalid values.
func New(provider string) (Settings, error) {
	provider = normalizeProvider(provider)

	info, ok := providers[provider]
	if !ok {
		return Settings{}, fmt.Errorf("unknown provider %q (supported: %s)",
			provider, strings.Join(providerNames(), ", "))
	}

	maxTokens, err := getEnvInt64("LLM_MAX_TOKENS", 16000)
	if err != nil {
		return Settings{}, err
	}
	temperature, err := getEnvFloat64("LLM_TEMPERATURE", 0.7)
	if err != nil {
		return Settings{}, err
	}
	maxToolIterations, err := getEnvInt("AGENT_MAX_TOOL_ITERATIONS", 25)
	if err != nil {
		return Settings{}, err
	}
	thinkingBudget, err := getEnvInt64("AGENT_THINKING_BUDGET", 0)
	if err != nil {
		return Settings{}, err
	}
	streaming, err := getEnvBool("AGENT_STREAMING", true)
	if err != nil {
		return Settings{}, err
	}
	debug, err := getEnvBool("AGENT_DEBUG", false)
	if err != nil {
		return Settings{}, err
	}

	if thinkingBudget > 0 && maxTokens <= thinkingBudget {
		return Settings{}, fmt.Errorf(
			"LLM_MAX_TOKENS (%d) must exceed AGENT_THINKING_BUDGET (%d)",
			maxTokens, thinkingBudget)
	}

	model := os.Getenv(info.modelEnv)
	if model == "" {
		model = info.defaultModel
	}

	sessionRoot := os.Getenv("AGENT_SESSION_ROOT")
	if sessionRoot == "" {
		sessionRoot = "sessions"
	}

	return Settings{
		LLM: LLMConfig{
			Provider:    provider,
			Model:       model,
			APIKey:      os.Getenv(info.apiKeyEnv),
			MaxTokens:   maxTokens,
			Temperature: temperature,
		},
		Agent: AgentConfig{
			MaxToolIterations: maxToolIterations,
			ThinkingBudget:    thinkingBudget,
			Streaming:         streaming,
			SessionRoot:       sessionRoot,
			Debug:             debug,
		},
	}, nil
}

// MustNew creates settings, panicking on configuration errors. Use only
// when such errors should be fatal.
func MustNew(provider string) Settings {
	settings, err := New(provider)
	if err != nil {
		panic(err)
	}
	return settings
}

func normalizeProvider(provider string) string {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if canonical, ok := providerAliases[provider]; ok {
		return canonical
	}
	return provider
}

func providerNames() []string {
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	return names
}

func getEnvInt(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", key, raw, err)
	}
	return value, nil
}

func getEnvInt64(key string, fallback int64) (int64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", key, raw, err)
	}
	return value, nil
}

func getEnvFloat64(key string, fallback float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", key, raw, err)
	}
	return value, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s=%q: %w", key, raw, err)
	}
	return value, nil
}
