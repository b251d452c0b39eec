// Package tools provides the tool system for agents.
//
// Information Hiding:
// - Tool execution details hidden behind interface
// - Tool parameters and schemas hidden in implementations
// - Registry implementation details hidden from consumers
// - Error handling internalized per tool
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	invopop "github.com/invopop/jsonschema"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/HourSense/shadow-agent-framework/core"
	"github.com/HourSense/shadow-agent-framework/llm"
	"github.com/HourSense/shadow-agent-framework/runtime"
)

// ToolInfo describes what a specific tool invocation will do, for
// permission prompts.
type ToolInfo struct {
	Name              string
	ActionDescription string
	Details           string
}

// Tool is the interface all tools implement.
type Tool interface {
	// Name returns the tool name exposed to the model.
	Name() string

	// Description returns the tool description.
	Description() string

	// Definition returns the tool definition for the model.
	Definition() llm.ToolDefinition

	// Info describes what this invocation will do, for permission prompts.
	Info(input json.RawMessage) ToolInfo

	// RequiresPermission reports whether execution needs a permission
	// decision.
	RequiresPermission() bool

	// Execute runs the tool. The internals give tools access to the
	// agent's session, context, output channel and subagent spawning.
	Execute(ctx context.Context, input json.RawMessage, internals *runtime.AgentInternals) (core.ToolResult, error)
}

// CommandField extracts the conventional "command" string field from a
// tool input, used for prefix permission rules.
func CommandField(input json.RawMessage) string {
	var payload struct {
		Command string `json:"command"`
	}
	if err := json.Unmarshal(input, &payload); err != nil {
		return ""
	}
	return payload.Command
}

// ReflectSchema derives a tool input schema from a Go struct type using
// its json tags.
func ReflectSchema[T any]() llm.ToolInputSchema {
	reflector := &invopop.Reflector{
		DoNotReference: true,
		Anonymous:      true,
	}
	var zero T
	schema := reflector.Reflect(&zero)

	raw, err := json.Marshal(schema)
	if err != nil {
		return llm.ToolInputSchema{Type: "object"}
	}

	var parsed struct {
		Properties json.RawMessage `json:"properties"`
		Required   []string        `json:"required"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return llm.ToolInputSchema{Type: "object"}
	}

	return llm.ToolInputSchema{
		Type:       "object",
		Properties: parsed.Properties,
		Required:   parsed.Required,
	}
}

var schemaCache sync.Map

// ValidateInput checks a tool input payload against the tool's input
// schema. Compiled schemas are cached per schema document.
func ValidateInput(schema llm.ToolInputSchema, input json.RawMessage) error {
	doc, err := json.Marshal(schema)
	if err != nil {
		return fmt.Errorf("encode schema: %w", err)
	}

	compiled, err := compileSchema(string(doc))
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}

	payload := input
	if len(payload) == 0 {
		payload = json.RawMessage(`{}`)
	}
	var decoded any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return fmt.Errorf("decode input: %w", err)
	}

	if err := compiled.Validate(decoded); err != nil {
		return fmt.Errorf("input invalid: %w", err)
	}
	return nil
}

func compileSchema(doc string) (*jsonschema.Schema, error) {
	if cached, ok := schemaCache.Load(doc); ok {
		if compiled, ok := cached.(*jsonschema.Schema); ok {
			return compiled, nil
		}
	}
	compiled, err := jsonschema.CompileString("tool.schema.json", doc)
	if err != nil {
		return nil, err
	}
	schemaCache.Store(doc, compiled)
	return compiled, nil
}
