// Package hooks provides ordered, pattern-matched interception of agent
// lifecycle events. Hooks can block or allow tools before execution,
// observe results, and rewrite tool inputs, the user prompt, or the
// conversation history.
package hooks

import (
	"encoding/json"

	"github.com/HourSense/shadow-agent-framework/core"
	"github.com/HourSense/shadow-agent-framework/llm"
	"github.com/HourSense/shadow-agent-framework/runtime"
	"github.com/HourSense/shadow-agent-framework/storage"
)

// Event is a hook lifecycle event.
type Event string

const (
	// PreToolUse runs before the permission check; it can short-circuit
	// with Allow or Deny and may rewrite the tool input.
	PreToolUse Event = "PreToolUse"
	// PostToolUse runs after a successful execution (observation only).
	PostToolUse Event = "PostToolUse"
	// PostToolUseFailure runs after a failed execution (observation only).
	PostToolUseFailure Event = "PostToolUseFailure"
	// UserPromptSubmit runs on each external user message prior to
	// attachment expansion; it may rewrite the prompt.
	UserPromptSubmit Event = "UserPromptSubmit"
)

// Decision is a permission decision from a PreToolUse hook.
type Decision int

const (
	// DecisionNone continues with the default behavior.
	DecisionNone Decision = iota
	// DecisionAllow permits the tool call, skipping the permission check.
	DecisionAllow
	// DecisionDeny blocks the tool call; an error result goes to the LLM.
	DecisionDeny
	// DecisionAsk forces the normal permission flow.
	DecisionAsk
)

// Result is returned from a hook.
type Result struct {
	Decision Decision
	Reason   string
}

// Allow permits the operation, skipping the permission check.
func Allow() Result { return Result{Decision: DecisionAllow} }

// Deny blocks the operation with a reason.
func Deny(reason string) Result { return Result{Decision: DecisionDeny, Reason: reason} }

// Ask forces the normal permission flow.
func Ask() Result { return Result{Decision: DecisionAsk} }

// None continues with the default behavior.
func None() Result { return Result{} }

// Context is the mutable context passed to hooks. Tool hooks see the
// tool fields; UserPromptSubmit sees the prompt. Mutations to ToolInput
// and UserPrompt are observed by the caller.
type Context struct {
	Event     Event
	Internals *runtime.AgentInternals

	// Tool hooks
	ToolName  string
	ToolInput json.RawMessage
	ToolUseID string

	// PostToolUse
	ToolResult *core.ToolResult

	// PostToolUseFailure
	Error string

	// UserPromptSubmit
	UserPrompt string
}

// NewPreToolUse creates a context for a PreToolUse hook run.
func NewPreToolUse(internals *runtime.AgentInternals, toolName string, input json.RawMessage, toolUseID string) *Context {
	return &Context{
		Event:     PreToolUse,
		Internals: internals,
		ToolName:  toolName,
		ToolInput: input,
		ToolUseID: toolUseID,
	}
}

// NewPostToolUse creates a context for a PostToolUse hook run.
func NewPostToolUse(internals *runtime.AgentInternals, toolName string, input json.RawMessage, toolUseID string, result core.ToolResult) *Context {
	return &Context{
		Event:      PostToolUse,
		Internals:  internals,
		ToolName:   toolName,
		ToolInput:  input,
		ToolUseID:  toolUseID,
		ToolResult: &result,
	}
}

// NewPostToolUseFailure creates a context for a PostToolUseFailure hook run.
func NewPostToolUseFailure(internals *runtime.AgentInternals, toolName string, input json.RawMessage, toolUseID, errMessage string) *Context {
	return &Context{
		Event:     PostToolUseFailure,
		Internals: internals,
		ToolName:  toolName,
		ToolInput: input,
		ToolUseID: toolUseID,
		Error:     errMessage,
	}
}

// NewUserPromptSubmit creates a context for a UserPromptSubmit hook run.
func NewUserPromptSubmit(internals *runtime.AgentInternals, prompt string) *Context {
	return &Context{
		Event:      UserPromptSubmit,
		Internals:  internals,
		UserPrompt: prompt,
	}
}

// Messages returns a snapshot of the conversation history.
func (c *Context) Messages() []llm.Message {
	return c.Internals.History()
}

// MutateMessages rewrites the conversation history in place. The change
// is persisted before the next model call.
func (c *Context) MutateMessages(fn func(messages *[]llm.Message)) error {
	return c.Internals.WithSession(func(session *storage.AgentSession) error {
		fn(&session.Messages)
		return session.Save()
	})
}

// SessionID returns the agent's session ID.
func (c *Context) SessionID() string {
	return c.Internals.SessionID()
}

// AgentType returns the agent type.
func (c *Context) AgentType() string {
	return c.Internals.AgentType()
}

// CurrentTurn returns the turn counter.
func (c *Context) CurrentTurn() int {
	return c.Internals.Context.CurrentTurn
}

// GetMetadata returns an agent context metadata value.
func (c *Context) GetMetadata(key string) (json.RawMessage, bool) {
	return c.Internals.Context.GetMetadata(key)
}

// SetMetadata stores an agent context metadata value.
func (c *Context) SetMetadata(key string, value json.RawMessage) {
	c.Internals.Context.SetMetadata(key, value)
}
