// Tool management and registration.
//
// Information Hiding:
// - Tool storage and lookup implementation hidden
// - Tool lifecycle management hidden
// - Registration and discovery mechanisms abstracted

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/HourSense/shadow-agent-framework/core"
	"github.com/HourSense/shadow-agent-framework/llm"
	"github.com/HourSense/shadow-agent-framework/runtime"
)

// Registry manages available tools with dynamic registration.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string
}

// NewRegistry creates a new empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a new tool to the registry.
// Returns an error if a tool with the same name already exists.
func (r *Registry) Register(tool Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := tool.Name()
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %q already registered", name)
	}
	r.tools[name] = tool
	r.order = append(r.order, name)
	return nil
}

// RegisterAll registers every tool, stopping at the first error.
func (r *Registry) RegisterAll(tools ...Tool) error {
	for _, tool := range tools {
		if err := r.Register(tool); err != nil {
			return err
		}
	}
	return nil
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, exists := r.tools[name]
	return tool, exists
}

// Has checks if a tool exists in the registry.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.tools[name]
	return exists
}

// Names returns all registered tool names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Definitions returns the tool definitions in registration order, for
// handing to the model.
func (r *Registry) Definitions() []llm.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]llm.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].Definition())
	}
	return defs
}

// RequiresPermission reports whether a tool needs a permission decision.
// Unknown tools require permission.
func (r *Registry) RequiresPermission(name string) bool {
	tool, ok := r.Get(name)
	if !ok {
		return true
	}
	return tool.RequiresPermission()
}

// Info returns invocation info for permission prompts.
func (r *Registry) Info(name string, input json.RawMessage) (ToolInfo, bool) {
	tool, ok := r.Get(name)
	if !ok {
		return ToolInfo{}, false
	}
	return tool.Info(input), true
}

// Execute dispatches a tool by name.
func (r *Registry) Execute(ctx context.Context, name string, input json.RawMessage, internals *runtime.AgentInternals) (core.ToolResult, error) {
	tool, ok := r.Get(name)
	if !ok {
		return core.ToolResult{}, fmt.Errorf("tool %q not found", name)
	}
	return tool.Execute(ctx, input, internals)
}

// Provider is a pluggable tool source (e.g. MCP servers).
type Provider interface {
	// GetTools returns the current tool set of the source.
	GetTools(ctx context.Context) ([]Tool, error)

	// Refresh re-synchronizes with the source.
	Refresh(ctx context.Context) error

	// Name identifies the provider for logging.
	Name() string

	// IsDynamic reports whether the tool set can change between calls.
	IsDynamic() bool
}

// RegisterProvider fetches a provider's tools and registers them all.
func (r *Registry) RegisterProvider(ctx context.Context, provider Provider) error {
	providerTools, err := provider.GetTools(ctx)
	if err != nil {
		return fmt.Errorf("get tools from %s: %w", provider.Name(), err)
	}
	return r.RegisterAll(providerTools...)
}
