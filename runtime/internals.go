// AgentInternals - Internal state passed to agent functions.
//
// The internals are what an agent function receives when spawned: the
// session, the tool context, the permission manager, the receiving half
// of the input queue and the sending half of the output broadcast. The
// loop goroutine is the sole owner; all session mutations happen through
// it, with a short-held lock shared with the handle for metadata reads.

package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/HourSense/shadow-agent-framework/core"
	"github.com/HourSense/shadow-agent-framework/llm"
	"github.com/HourSense/shadow-agent-framework/permissions"
	"github.com/HourSense/shadow-agent-framework/storage"
)

// AgentFn is the function executed as the agent task.
type AgentFn func(ctx context.Context, internals *AgentInternals) error

// AgentInternals is the private side of a running agent.
type AgentInternals struct {
	// Context is the per-agent state passed to tools.
	Context *core.AgentContext

	// Permissions is this agent's three-tier permission evaluator.
	Permissions *permissions.Manager

	session   *storage.AgentSession
	sessionMu *sync.RWMutex

	channels *agentChannels
}

// NewAgentPair wires the input queue, output broadcast, shared state
// cell and session lock for one agent and returns both sides. This is
// typically called by AgentRuntime.Spawn, not directly.
func NewAgentPair(session *storage.AgentSession, agentContext *core.AgentContext, perms *permissions.Manager) (*AgentInternals, *AgentHandle) {
	channels := newAgentChannels()
	sessionMu := &sync.RWMutex{}

	internals := &AgentInternals{
		Context:     agentContext,
		Permissions: perms,
		session:     session,
		sessionMu:   sessionMu,
		channels:    channels,
	}
	handle := &AgentHandle{
		sessionID: agentContext.SessionID,
		session:   session,
		sessionMu: sessionMu,
		channels:  channels,
		closed:    make(chan struct{}),
	}
	return internals, handle
}

// SessionID returns the agent's session ID.
func (in *AgentInternals) SessionID() string {
	return in.Context.SessionID
}

// AgentType returns the agent type.
func (in *AgentInternals) AgentType() string {
	return in.Context.AgentType
}

// NextTurn increments the turn counter.
func (in *AgentInternals) NextTurn() {
	in.Context.NextTurn()
}

// Receive blocks until the next input message is available. Returns
// core.ErrChannelClosed when the context ends.
func (in *AgentInternals) Receive(ctx context.Context) (core.InputMessage, error) {
	select {
	case msg := <-in.channels.input:
		return msg, nil
	case <-ctx.Done():
		return core.InputMessage{}, core.ErrChannelClosed
	}
}

// TryReceive returns the next input message without blocking.
func (in *AgentInternals) TryReceive() (core.InputMessage, bool) {
	select {
	case msg := <-in.channels.input:
		return msg, true
	default:
		return core.InputMessage{}, false
	}
}

// InputChan exposes the input queue for select statements, so stream
// consumption can race model events against interrupts.
func (in *AgentInternals) InputChan() <-chan core.InputMessage {
	return in.channels.input
}

// Send delivers an output chunk to all subscribers. Returns the number
// of subscribers that received it; zero subscribers is not an error.
func (in *AgentInternals) Send(chunk core.OutputChunk) int {
	return in.channels.output.Send(chunk)
}

// SendText sends a text delta.
func (in *AgentInternals) SendText(text string) int {
	return in.Send(core.TextDelta(text))
}

// SendTextComplete signals a completed text block.
func (in *AgentInternals) SendTextComplete(text string) int {
	return in.Send(core.TextComplete(text))
}

// SendThinking sends a thinking delta.
func (in *AgentInternals) SendThinking(text string) int {
	return in.Send(core.ThinkingDelta(text))
}

// SendThinkingComplete signals a completed thinking block.
func (in *AgentInternals) SendThinkingComplete(text string) int {
	return in.Send(core.ThinkingComplete(text))
}

// SendStatus sends a status update.
func (in *AgentInternals) SendStatus(status string) int {
	return in.Send(core.Status(status))
}

// SendError sends an error chunk.
func (in *AgentInternals) SendError(message string) int {
	return in.Send(core.ErrorChunk(message))
}

// SendDone signals turn completion.
func (in *AgentInternals) SendDone() int {
	return in.Send(core.DoneChunk())
}

// SendToolStart announces a tool execution.
func (in *AgentInternals) SendToolStart(id, name string, input json.RawMessage) int {
	return in.Send(core.ToolStart(id, name, input))
}

// SendToolEnd announces a tool completion.
func (in *AgentInternals) SendToolEnd(id string, result core.ToolResult) int {
	return in.Send(core.ToolEnd(id, result))
}

// SendPermissionRequest asks subscribers for a permission decision.
func (in *AgentInternals) SendPermissionRequest(toolName, action, input, details string) int {
	return in.Send(core.PermissionRequest(toolName, action, input, details))
}

// SubscriberCount returns the number of output subscribers.
func (in *AgentInternals) SubscriberCount() int {
	return in.channels.output.SubscriberCount()
}

// SetState updates the shared state cell and notifies subscribers.
func (in *AgentInternals) SetState(state core.AgentState) {
	in.channels.state.set(state)
	in.Send(core.StateChange(state))
}

// SetStateSilent updates the state without notifying subscribers.
func (in *AgentInternals) SetStateSilent(state core.AgentState) {
	in.channels.state.set(state)
}

// State returns the current agent state.
func (in *AgentInternals) State() core.AgentState {
	return in.channels.state.get()
}

// SetIdle sets the Idle state.
func (in *AgentInternals) SetIdle() { in.SetState(core.Idle()) }

// SetProcessing sets the Processing state.
func (in *AgentInternals) SetProcessing() { in.SetState(core.Processing()) }

// SetDone sets the Done state.
func (in *AgentInternals) SetDone() { in.SetState(core.Done()) }

// SetError sets the Error state.
func (in *AgentInternals) SetError(message string) { in.SetState(core.ErrorState(message)) }

// SetWaitingForPermission sets the permission-wait state.
func (in *AgentInternals) SetWaitingForPermission() { in.SetState(core.WaitingForPermission()) }

// SetExecutingTool sets the tool-execution state.
func (in *AgentInternals) SetExecutingTool(toolName, toolUseID string) {
	in.SetState(core.ExecutingTool(toolName, toolUseID))
}

// SetWaitingForSubAgent sets the subagent-wait state.
func (in *AgentInternals) SetWaitingForSubAgent(sessionID string) {
	in.SetState(core.WaitingForSubAgent(sessionID))
}

// SetWaitingForUserInput sets the user-question-wait state.
func (in *AgentInternals) SetWaitingForUserInput(requestID string) {
	in.SetState(core.WaitingForUserInput(requestID))
}

// AddMessage appends a message to the session, persisting it before
// returning. Output chunks referencing the message must be emitted after
// this call so the append is durable first.
func (in *AgentInternals) AddMessage(message llm.Message) error {
	in.sessionMu.Lock()
	defer in.sessionMu.Unlock()
	return in.session.AddMessage(message)
}

// History returns a snapshot of the conversation history.
func (in *AgentInternals) History() []llm.Message {
	in.sessionMu.RLock()
	defer in.sessionMu.RUnlock()
	out := make([]llm.Message, len(in.session.Messages))
	copy(out, in.session.Messages)
	return out
}

// SaveSession rewrites the session's metadata and history.
func (in *AgentInternals) SaveSession() error {
	in.sessionMu.Lock()
	defer in.sessionMu.Unlock()
	return in.session.Save()
}

// WithSession runs fn with exclusive access to the session. Used by
// hooks that rewrite history in place.
func (in *AgentInternals) WithSession(fn func(session *storage.AgentSession) error) error {
	in.sessionMu.Lock()
	defer in.sessionMu.Unlock()
	return fn(in.session)
}

// SessionMetadataSnapshot returns a copy of the session metadata.
func (in *AgentInternals) SessionMetadataSnapshot() storage.SessionMetadata {
	in.sessionMu.RLock()
	defer in.sessionMu.RUnlock()
	return *in.session.Metadata
}

// ContextForTool returns a copy of the agent context with the current
// tool use id set, for handing to an executing tool.
func (in *AgentInternals) ContextForTool(toolUseID string) core.AgentContext {
	ctx := *in.Context
	ctx.CurrentToolUseID = toolUseID
	return ctx
}

// CheckPermission evaluates the permission tiers for a tool invocation.
func (in *AgentInternals) CheckPermission(toolName, command string) permissions.CheckResult {
	return in.Permissions.Check(toolName, command)
}

// AddPermissionRule adds a rule at the given scope.
func (in *AgentInternals) AddPermissionRule(rule permissions.Rule, scope permissions.Scope) {
	in.Permissions.AddRule(rule, scope)
}

// Interactive reports whether permission prompts may reach a user.
func (in *AgentInternals) Interactive() bool {
	return in.Permissions.Interactive()
}

// SetInteractive toggles interactive mode; when false, unanswered
// permission checks deny instead of prompting.
func (in *AgentInternals) SetInteractive(interactive bool) {
	in.Permissions.SetInteractive(interactive)
}

// RequestPermission checks the rules and, when no rule matches, prompts
// the user through the output channel and waits for the response on the
// input queue. Remember-allow answers add a session rule. Returns
// whether the tool may run.
func (in *AgentInternals) RequestPermission(ctx context.Context, toolName, actionDescription, command string) (bool, error) {
	switch in.Permissions.Check(toolName, command) {
	case permissions.Allowed:
		return true, nil
	case permissions.Denied:
		return false, nil
	}

	in.SendPermissionRequest(toolName, actionDescription, command, "")
	in.SetWaitingForPermission()

	for {
		msg, err := in.Receive(ctx)
		if err != nil {
			return false, err
		}
		switch msg.Kind {
		case core.InputPermissionResponse:
			if msg.ToolName != toolName {
				slog.Warn("permission response for unexpected tool",
					"expected", toolName, "got", msg.ToolName)
				return false, nil
			}
			if msg.Remember && msg.Allowed {
				in.Permissions.RememberAllow(toolName, command, permissions.ScopeSession)
			}
			return msg.Allowed, nil
		case core.InputShutdown:
			return false, core.ErrShutdown
		case core.InputInterrupt:
			return false, core.ErrInterrupted
		default:
			// Responses keyed to requests we are not awaiting are dropped.
		}
	}
}

// Runtime returns the owning runtime from the context resources.
func (in *AgentInternals) Runtime() (*AgentRuntime, bool) {
	return core.Resource[*AgentRuntime](in.Context.Resources)
}

// SpawnSubagent spawns a subagent through the owning runtime, registers
// it with this agent's SubAgentManager and notifies subscribers with a
// SubAgentSpawned chunk.
func (in *AgentInternals) SpawnSubagent(ctx context.Context, sessionID, agentType, name, description, toolUseID string, agentFn AgentFn) (*AgentHandle, error) {
	rt, ok := in.Runtime()
	if !ok {
		return nil, fmt.Errorf("runtime not found in agent context")
	}

	handle, err := rt.SpawnSubagent(ctx, SubagentSpec{
		SessionID:       sessionID,
		AgentType:       agentType,
		Name:            name,
		Description:     description,
		ParentSessionID: in.SessionID(),
		ParentToolUseID: toolUseID,
	}, agentFn)
	if err != nil {
		return nil, err
	}

	if manager, ok := core.Resource[*SubAgentManager](in.Context.Resources); ok {
		manager.Register(sessionID, agentType, handle)
	}

	in.Send(core.SubAgentSpawned(sessionID, agentType))
	slog.Info("spawned subagent",
		"session_id", in.SessionID(), "subagent", sessionID, "agent_type", agentType)

	return handle, nil
}

// SubAgentManager returns this agent's subagent registry, if any
// subagent support was set up.
func (in *AgentInternals) SubAgentManager() (*SubAgentManager, bool) {
	return core.Resource[*SubAgentManager](in.Context.Resources)
}

// MarkSubagentCompleted records a subagent result and notifies
// subscribers with a SubAgentComplete chunk.
func (in *AgentInternals) MarkSubagentCompleted(sessionID string, summary *string, success bool, errMessage string) {
	if manager, ok := in.SubAgentManager(); ok {
		manager.MarkCompleted(sessionID, summary, success, errMessage)
	}
	in.Send(core.SubAgentComplete(sessionID, summary))
}
