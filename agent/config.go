// Package agent provides the standard agent loop: receive input, expand
// attachments, call the model (streaming or blocking), execute tools
// under hooks and permissions, persist the session, and stream output
// chunks to subscribers.
//
// Information Hiding:
// - Loop internals hidden
// - LLM communication hidden
// - Tool execution coordination hidden
package agent

import (
	"github.com/HourSense/shadow-agent-framework/hooks"
	"github.com/HourSense/shadow-agent-framework/llm"
	"github.com/HourSense/shadow-agent-framework/tools"
)

// DefaultMaxToolIterations caps model/tool round-trips within one turn.
const DefaultMaxToolIterations = 25

// Config configures a StandardAgent.
//
// Use the builder methods:
//
//	config := agent.NewConfig("You are a helpful assistant").
//		WithTools(registry).
//		WithHooks(hookRegistry).
//		WithStreaming(true).
//		WithThinking(16000).
//		WithPromptCaching(true).
//		WithAutoName(namer)
type Config struct {
	// SystemPrompt for the model.
	SystemPrompt string

	// Tools available to the agent (optional).
	Tools *tools.Registry

	// Injections applied to the message list before each model call.
	Injections *InjectionChain

	// Hooks intercepting tool execution and prompt submission.
	Hooks *hooks.Registry

	// MaxToolIterations caps model calls within one turn.
	MaxToolIterations int

	// AutoSaveSession rewrites the session after each turn.
	AutoSaveSession bool

	// Streaming toggles streamed model responses.
	Streaming bool

	// Thinking enables extended thinking with a token budget.
	Thinking *llm.ThinkingConfig

	// PromptCaching places the standard cache breakpoints on requests.
	PromptCaching bool

	// MaxTokens per model call; the provider default applies when zero.
	MaxTokens int64

	// Temperature when thinking is off.
	Temperature *float64

	// Namer generates a conversation name after the first turn.
	Namer *ConversationNamer

	// Debug enables per-session request/response/tool logging.
	Debug bool
}

// NewConfig creates a configuration with defaults.
func NewConfig(systemPrompt string) *Config {
	return &Config{
		SystemPrompt:      systemPrompt,
		Injections:        NewInjectionChain(),
		MaxToolIterations: DefaultMaxToolIterations,
		AutoSaveSession:   true,
	}
}

// WithTools sets the tool registry.
func (c *Config) WithTools(registry *tools.Registry) *Config {
	c.Tools = registry
	return c
}

// WithInjectionChain sets the context injection chain.
func (c *Config) WithInjectionChain(chain *InjectionChain) *Config {
	c.Injections = chain
	return c
}

// WithInjection appends an injection to the chain.
func (c *Config) WithInjection(injection Injection) *Config {
	c.Injections.Add(injection)
	return c
}

// WithHooks sets the hook registry.
func (c *Config) WithHooks(registry *hooks.Registry) *Config {
	c.Hooks = registry
	return c
}

// WithMaxToolIterations caps model calls per turn.
func (c *Config) WithMaxToolIterations(max int) *Config {
	c.MaxToolIterations = max
	return c
}

// WithAutoSave toggles session rewrite after each turn.
func (c *Config) WithAutoSave(autoSave bool) *Config {
	c.AutoSaveSession = autoSave
	return c
}

// WithStreaming toggles streamed responses.
func (c *Config) WithStreaming(streaming bool) *Config {
	c.Streaming = streaming
	return c
}

// WithThinking enables extended thinking with a token budget. Requests
// with thinking run at temperature 1 and need MaxTokens above the budget.
func (c *Config) WithThinking(budgetTokens int64) *Config {
	c.Thinking = llm.ThinkingEnabled(budgetTokens)
	return c
}

// WithPromptCaching toggles the standard cache breakpoints.
func (c *Config) WithPromptCaching(enabled bool) *Config {
	c.PromptCaching = enabled
	return c
}

// WithMaxTokens sets the per-call token limit.
func (c *Config) WithMaxTokens(maxTokens int64) *Config {
	c.MaxTokens = maxTokens
	return c
}

// WithTemperature sets the sampling temperature (ignored with thinking).
func (c *Config) WithTemperature(temperature float64) *Config {
	c.Temperature = &temperature
	return c
}

// WithAutoName generates a conversation name after the first turn.
func (c *Config) WithAutoName(namer *ConversationNamer) *Config {
	c.Namer = namer
	return c
}

// WithDebug enables per-session debug logging.
func (c *Config) WithDebug(enabled bool) *Config {
	c.Debug = enabled
	return c
}

// ToolDefinitions returns the tool definitions, or nil without tools.
func (c *Config) ToolDefinitions() []llm.ToolDefinition {
	if c.Tools == nil {
		return nil
	}
	return c.Tools.Definitions()
}
