// AgentHandle - External interface for communicating with a running agent.
//
// The handle is what external code (console, parent agent, tests) uses to
// interact with a running agent: send input, subscribe to output, read
// state, request interrupt or shutdown. Handles are cheap to copy and
// safe to share across goroutines.

package runtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/HourSense/shadow-agent-framework/core"
	"github.com/HourSense/shadow-agent-framework/storage"
)

// completionPollInterval is how often polling waits re-check agent state.
const completionPollInterval = 50 * time.Millisecond

// AgentHandle is the external, shareable reference to a running agent.
type AgentHandle struct {
	sessionID string

	session   *storage.AgentSession
	sessionMu *sync.RWMutex

	channels *agentChannels
	closed   chan struct{}
}

// SessionID returns the agent's session ID.
func (h *AgentHandle) SessionID() string {
	return h.sessionID
}

// Send enqueues any input message, waiting for queue capacity. Returns
// core.ErrChannelClosed once the agent has terminated.
func (h *AgentHandle) Send(ctx context.Context, message core.InputMessage) error {
	select {
	case <-h.closed:
		return core.ErrChannelClosed
	default:
	}

	select {
	case h.channels.input <- message:
		return nil
	case <-h.closed:
		return core.ErrChannelClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TrySend enqueues an input message without waiting. Returns false when
// the queue is full or the agent has terminated.
func (h *AgentHandle) TrySend(message core.InputMessage) bool {
	select {
	case <-h.closed:
		return false
	default:
	}

	select {
	case h.channels.input <- message:
		return true
	default:
		return false
	}
}

// SendInput sends user input text to the agent.
func (h *AgentHandle) SendInput(ctx context.Context, text string) error {
	return h.Send(ctx, core.UserInput(text))
}

// SendToolResult reports an asynchronous tool completion.
func (h *AgentHandle) SendToolResult(ctx context.Context, toolUseID string, result core.ToolResult) error {
	return h.Send(ctx, core.AsyncToolResult(toolUseID, result))
}

// SendPermissionResponse answers a pending permission request.
func (h *AgentHandle) SendPermissionResponse(ctx context.Context, toolName string, allowed, remember bool) error {
	return h.Send(ctx, core.PermissionResponse(toolName, allowed, remember))
}

// SendUserQuestionResponse answers a pending AskUserQuestion request.
func (h *AgentHandle) SendUserQuestionResponse(ctx context.Context, requestID string, answers map[string]string) error {
	return h.Send(ctx, core.UserQuestionResponse(requestID, answers))
}

// SendSubAgentComplete notifies the agent that a subagent finished.
func (h *AgentHandle) SendSubAgentComplete(ctx context.Context, sessionID string, summary *string) error {
	return h.Send(ctx, core.SubAgentCompleteInput(sessionID, summary))
}

// Interrupt requests a graceful interrupt; the agent stops at the next
// safe point. A running tool is never preempted.
func (h *AgentHandle) Interrupt(ctx context.Context) error {
	return h.Send(ctx, core.Interrupt())
}

// Shutdown requests agent termination.
func (h *AgentHandle) Shutdown(ctx context.Context) error {
	return h.Send(ctx, core.Shutdown())
}

// Subscribe returns a receiver for all output chunks from this point
// forward. Multiple subscribers can exist simultaneously.
func (h *AgentHandle) Subscribe() *Subscriber {
	return h.channels.output.Subscribe()
}

// SubscriberCount returns the number of current subscribers.
func (h *AgentHandle) SubscriberCount() int {
	return h.channels.output.SubscriberCount()
}

// State returns the current agent state.
func (h *AgentHandle) State() core.AgentState {
	return h.channels.state.get()
}

// IsIdle reports whether the agent is waiting for input.
func (h *AgentHandle) IsIdle() bool {
	return h.State().Kind == core.StateIdle
}

// IsProcessing reports whether the agent is processing a turn.
func (h *AgentHandle) IsProcessing() bool {
	return h.State().Kind == core.StateProcessing
}

// IsDone reports whether the agent reached the Done state.
func (h *AgentHandle) IsDone() bool {
	return h.State().Kind == core.StateDone
}

// IsRunning reports whether the agent is in a non-terminal state.
func (h *AgentHandle) IsRunning() bool {
	return !h.State().IsTerminal()
}

// WaitForCompletion polls until the agent reaches a terminal state or the
// context ends. For event-driven waiting, subscribe to output and wait
// for a Done or Error chunk.
func (h *AgentHandle) WaitForCompletion(ctx context.Context) error {
	ticker := time.NewTicker(completionPollInterval)
	defer ticker.Stop()
	for {
		if !h.IsRunning() {
			return nil
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// SetCustomMetadata stores a custom metadata value on the session and
// persists it. Safe to call while the agent is running; the write goes
// through the shared session lock so the in-memory copy stays
// authoritative.
func (h *AgentHandle) SetCustomMetadata(key string, value any) error {
	h.sessionMu.Lock()
	defer h.sessionMu.Unlock()
	return h.session.SetCustom(key, value)
}

// GetCustomMetadata returns a custom metadata value from the session.
func (h *AgentHandle) GetCustomMetadata(key string) (json.RawMessage, bool) {
	h.sessionMu.RLock()
	defer h.sessionMu.RUnlock()
	return h.session.GetCustom(key)
}

// ConversationName returns the session's conversation name.
func (h *AgentHandle) ConversationName() string {
	h.sessionMu.RLock()
	defer h.sessionMu.RUnlock()
	return h.session.ConversationName()
}

// SetConversationName stores the conversation name.
func (h *AgentHandle) SetConversationName(name string) error {
	h.sessionMu.Lock()
	defer h.sessionMu.Unlock()
	return h.session.SetConversationName(name)
}

// SetDangerousSkipPermissions toggles permission checks at runtime. When
// enabled, tools execute without asking for user permission; hooks still
// run and can block operations. Use with extreme caution.
func (h *AgentHandle) SetDangerousSkipPermissions(enabled bool) error {
	if enabled {
		slog.Warn("dangerous mode enabled: permission checks disabled", "session_id", h.sessionID)
	} else {
		slog.Info("permission checks re-enabled", "session_id", h.sessionID)
	}
	return h.SetCustomMetadata(dangerousSkipPermissionsKey, enabled)
}

// DangerousSkipPermissionsEnabled reports whether permission checks are
// currently bypassed.
func (h *AgentHandle) DangerousSkipPermissionsEnabled() bool {
	raw, ok := h.GetCustomMetadata(dangerousSkipPermissionsKey)
	if !ok {
		return false
	}
	var enabled bool
	if err := json.Unmarshal(raw, &enabled); err != nil {
		return false
	}
	return enabled
}

const dangerousSkipPermissionsKey = "dangerous_skip_permissions"
