// MCP Tool Adapter - Makes MCP tools usable in the agent system.
//
// Information Hiding:
// - Server routing hidden
// - Schema parsing hidden
// - Content part mapping hidden

package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/HourSense/shadow-agent-framework/core"
	"github.com/HourSense/shadow-agent-framework/llm"
	"github.com/HourSense/shadow-agent-framework/runtime"
	"github.com/HourSense/shadow-agent-framework/tools"
)

// namespaceSeparator joins server id and tool name in the exposed name.
const namespaceSeparator = "__"

// NamespacedName returns the model-facing name of an MCP tool.
func NamespacedName(serverID, toolName string) string {
	return serverID + namespaceSeparator + toolName
}

// SplitNamespacedName splits a model-facing name into server id and tool
// name. Returns false for names without a namespace.
func SplitNamespacedName(name string) (serverID, toolName string, ok bool) {
	parts := strings.SplitN(name, namespaceSeparator, 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// ToolAdapter exposes one MCP server tool as an agent tool.
type ToolAdapter struct {
	manager  *Manager
	serverID string
	info     ToolInfo
}

// NewToolAdapter creates an adapter for a server tool.
func NewToolAdapter(manager *Manager, serverID string, info ToolInfo) *ToolAdapter {
	return &ToolAdapter{manager: manager, serverID: serverID, info: info}
}

func (a *ToolAdapter) Name() string {
	return NamespacedName(a.serverID, a.info.Name)
}

func (a *ToolAdapter) Description() string {
	return a.info.Description
}

func (a *ToolAdapter) Definition() llm.ToolDefinition {
	schema := llm.ToolInputSchema{Type: "object"}
	if len(a.info.InputSchema) > 0 {
		var parsed struct {
			Type       string          `json:"type"`
			Properties json.RawMessage `json:"properties"`
			Required   []string        `json:"required"`
		}
		if err := json.Unmarshal(a.info.InputSchema, &parsed); err == nil {
			if parsed.Type != "" {
				schema.Type = parsed.Type
			}
			schema.Properties = parsed.Properties
			schema.Required = parsed.Required
		}
	}
	return llm.ToolDefinition{
		Name:        a.Name(),
		Description: a.info.Description,
		InputSchema: schema,
	}
}

func (a *ToolAdapter) Info(input json.RawMessage) tools.ToolInfo {
	return tools.ToolInfo{
		Name:              a.Name(),
		ActionDescription: fmt.Sprintf("Call MCP tool %s on server %s", a.info.Name, a.serverID),
		Details:           string(input),
	}
}

func (a *ToolAdapter) RequiresPermission() bool { return true }

func (a *ToolAdapter) Execute(ctx context.Context, input json.RawMessage, _ *runtime.AgentInternals) (core.ToolResult, error) {
	result, err := a.manager.Call(ctx, a.serverID, a.info.Name, input)
	if err != nil {
		return core.ErrorResult(err.Error()), nil
	}
	return convertCallResult(result), nil
}

// convertCallResult maps MCP content parts to a tool result. The first
// image part becomes the media payload; text parts concatenate.
func convertCallResult(result *CallResult) core.ToolResult {
	var text strings.Builder
	var media *core.MediaOutput

	for _, part := range result.Content {
		switch part.Type {
		case "text":
			if text.Len() > 0 {
				text.WriteString("\n")
			}
			text.WriteString(part.Text)
		case "image":
			if media == nil {
				media = &core.MediaOutput{
					Kind:      core.MediaImage,
					MediaType: part.MIMEType,
					Data:      part.Data,
				}
			}
		}
	}

	out := core.ToolResult{
		Output:  text.String(),
		IsError: result.IsError,
		Media:   media,
	}
	if out.Output == "" && media == nil {
		out.Output = "(empty result)"
	}
	return out
}

var _ tools.Tool = (*ToolAdapter)(nil)

// Provider exposes all tools of a manager's servers as agent tools.
type Provider struct {
	manager *Manager
}

// NewProvider creates a tool provider backed by a manager.
func NewProvider(manager *Manager) *Provider {
	return &Provider{manager: manager}
}

func (p *Provider) GetTools(ctx context.Context) ([]tools.Tool, error) {
	serverTools := p.manager.ListAllTools(ctx)
	out := make([]tools.Tool, 0, len(serverTools))
	for _, st := range serverTools {
		out = append(out, NewToolAdapter(p.manager, st.ServerID, st.Info))
	}
	return out, nil
}

func (p *Provider) Refresh(_ context.Context) error {
	// Tools are re-fetched on each GetTools call.
	return nil
}

func (p *Provider) Name() string { return "MCP" }

func (p *Provider) IsDynamic() bool { return true }

var _ tools.Provider = (*Provider)(nil)
