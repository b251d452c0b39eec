// Tool Executor.
//
// Handles permission-aware tool execution with hooks:
//  1. Run PreToolUse hooks (can block, allow, or rewrite the input)
//  2. Check permission rules (unless a hook already decided)
//  3. Ask the user through the output channel when no rule matches
//  4. Execute, with input validated against the tool's schema
//  5. Run PostToolUse or PostToolUseFailure hooks

package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/HourSense/shadow-agent-framework/core"
	"github.com/HourSense/shadow-agent-framework/hooks"
	"github.com/HourSense/shadow-agent-framework/llm"
	"github.com/HourSense/shadow-agent-framework/permissions"
	"github.com/HourSense/shadow-agent-framework/runtime"
	"github.com/HourSense/shadow-agent-framework/tools"
)

// ToolExecutor runs one tool_use block through hooks, permissions and
// dispatch.
type ToolExecutor struct {
	registry *tools.Registry
	hooks    *hooks.Registry
}

// NewToolExecutor creates an executor over a tool registry. The hook
// registry may be nil.
func NewToolExecutor(registry *tools.Registry, hookRegistry *hooks.Registry) *ToolExecutor {
	return &ToolExecutor{registry: registry, hooks: hookRegistry}
}

// Execute runs one tool use. The returned result is always usable as a
// tool_result block; failures and denials become error results, not Go
// errors. core.ErrShutdown / core.ErrInterrupted are returned when the
// wait for a permission decision is preempted.
func (e *ToolExecutor) Execute(ctx context.Context, internals *runtime.AgentInternals, toolName, toolUseID string, input json.RawMessage) (core.ToolResult, error) {
	currentInput := input

	// PreToolUse hooks run before the permission check and may rewrite
	// the input or short-circuit the decision.
	if e.hooks != nil {
		hookCtx := hooks.NewPreToolUse(internals, toolName, currentInput, toolUseID)
		result := e.hooks.Run(hookCtx)
		if hookCtx.ToolInput != nil {
			currentInput = hookCtx.ToolInput
		}

		switch result.Decision {
		case hooks.DecisionDeny:
			reason := result.Reason
			if reason == "" {
				reason = "Blocked by hook"
			}
			slog.Info("hook denied tool", "tool", toolName, "reason", reason)
			denied := core.ErrorResult(fmt.Sprintf("Hook denied: %s", reason))
			internals.SendToolEnd(toolUseID, denied)
			return denied, nil
		case hooks.DecisionAllow:
			slog.Info("hook allowed tool, skipping permission check", "tool", toolName)
			return e.run(ctx, internals, toolName, toolUseID, currentInput)
		}
	}

	if !e.requiresPermission(internals, toolName) {
		return e.run(ctx, internals, toolName, toolUseID, currentInput)
	}

	command := tools.CommandField(currentInput)
	switch internals.CheckPermission(toolName, command) {
	case permissions.Allowed:
		return e.run(ctx, internals, toolName, toolUseID, currentInput)

	case permissions.Denied:
		slog.Info("permission denied", "tool", toolName)
		denied := core.ErrorResult(fmt.Sprintf("Permission denied for tool: %s", toolName))
		internals.SendToolEnd(toolUseID, denied)
		return denied, nil

	default:
		return e.askAndRun(ctx, internals, toolName, toolUseID, currentInput, command)
	}
}

// requiresPermission consults the tool and the session's dangerous-skip
// override. Hooks still run either way.
func (e *ToolExecutor) requiresPermission(internals *runtime.AgentInternals, toolName string) bool {
	if !e.registry.RequiresPermission(toolName) {
		return false
	}
	metadata := internals.SessionMetadataSnapshot()
	if raw, ok := metadata.GetCustom("dangerous_skip_permissions"); ok {
		var enabled bool
		if json.Unmarshal(raw, &enabled) == nil && enabled {
			return false
		}
	}
	return true
}

// askAndRun prompts the user and executes on approval.
func (e *ToolExecutor) askAndRun(ctx context.Context, internals *runtime.AgentInternals, toolName, toolUseID string, input json.RawMessage, command string) (core.ToolResult, error) {
	action := fmt.Sprintf("Execute %s", toolName)
	details := ""
	if info, ok := e.registry.Info(toolName, input); ok {
		action = info.ActionDescription
		details = info.Details
	}

	internals.SendPermissionRequest(toolName, action, string(input), details)
	internals.SetWaitingForPermission()

	for {
		msg, err := internals.Receive(ctx)
		if err != nil {
			return core.ErrorResult("Channel closed"), err
		}

		switch msg.Kind {
		case core.InputPermissionResponse:
			if msg.ToolName != toolName {
				slog.Warn("permission response mismatch", "expected", toolName, "got", msg.ToolName)
				mismatch := core.ErrorResult("Permission response mismatch")
				internals.SendToolEnd(toolUseID, mismatch)
				return mismatch, nil
			}

			if msg.Remember && msg.Allowed {
				slog.Info("remembering allow rule", "tool", toolName)
				internals.Permissions.RememberAllow(toolName, command, permissions.ScopeSession)
			}

			if msg.Allowed {
				return e.run(ctx, internals, toolName, toolUseID, input)
			}
			denied := core.ErrorResult(fmt.Sprintf("User denied permission for: %s", toolName))
			internals.SendToolEnd(toolUseID, denied)
			return denied, nil

		case core.InputInterrupt:
			slog.Info("interrupted while waiting for permission", "tool", toolName)
			return core.ErrorResult("Interrupted"), core.ErrInterrupted

		case core.InputShutdown:
			slog.Info("shutdown while waiting for permission", "tool", toolName)
			return core.ErrorResult("Shutdown"), core.ErrShutdown

		default:
			// Responses for requests we are not awaiting are dropped.
		}
	}
}

// run executes the tool with post hooks and lifecycle notifications.
func (e *ToolExecutor) run(ctx context.Context, internals *runtime.AgentInternals, toolName, toolUseID string, input json.RawMessage) (core.ToolResult, error) {
	internals.Context.CurrentToolUseID = toolUseID
	defer func() { internals.Context.CurrentToolUseID = "" }()

	internals.SetExecutingTool(toolName, toolUseID)
	internals.SendToolStart(toolUseID, toolName, input)

	if debugger, ok := core.Resource[*Debugger](internals.Context.Resources); ok {
		debugger.LogToolCall(toolName, toolUseID, input)
	}

	result, err := e.dispatch(ctx, internals, toolName, toolUseID, input)
	if err != nil {
		// Preempted waits propagate so the loop can end the turn.
		if errors.Is(err, core.ErrInterrupted) || errors.Is(err, core.ErrShutdown) {
			return result, err
		}

		message := fmt.Sprintf("Tool execution failed: %v", err)
		if e.hooks != nil {
			e.hooks.Run(hooks.NewPostToolUseFailure(internals, toolName, input, toolUseID, message))
		}
		result = core.ErrorResult(message)
	} else if e.hooks != nil {
		if result.IsError {
			e.hooks.Run(hooks.NewPostToolUseFailure(internals, toolName, input, toolUseID, result.Output))
		} else {
			e.hooks.Run(hooks.NewPostToolUse(internals, toolName, input, toolUseID, result))
		}
	}

	if debugger, ok := core.Resource[*Debugger](internals.Context.Resources); ok {
		debugger.LogToolResult(toolName, toolUseID, result)
	}

	internals.SendToolEnd(toolUseID, result)
	return result, nil
}

// dispatch validates the input against the tool's schema and invokes it.
func (e *ToolExecutor) dispatch(ctx context.Context, internals *runtime.AgentInternals, toolName, toolUseID string, input json.RawMessage) (core.ToolResult, error) {
	tool, ok := e.registry.Get(toolName)
	if !ok {
		return core.ErrorResult(fmt.Sprintf("Tool not found: %s", toolName)), nil
	}

	if err := tools.ValidateInput(tool.Definition().InputSchema, input); err != nil {
		return core.ErrorResult(fmt.Sprintf("Invalid input for %s: %v", toolName, err)), nil
	}

	return tool.Execute(ctx, input, internals)
}

// ResultBlock converts a tool result into the tool_result block
// appended to history. Media payloads nest inside the tool_result as a
// description text block plus the image or document block.
func ResultBlock(toolUseID string, result core.ToolResult) llm.ContentBlock {
	if result.Media == nil {
		return llm.ToolResultBlock(toolUseID, result.Output, result.IsError)
	}

	inner := []llm.ContentBlock{llm.Text(result.Media.Description)}
	switch result.Media.Kind {
	case core.MediaDocument:
		inner = append(inner, llm.Document(result.Media.Data, result.Media.MediaType))
	default:
		inner = append(inner, llm.Image(result.Media.Data, result.Media.MediaType))
	}
	return llm.ToolResultBlocks(toolUseID, inner, result.IsError)
}
