// AgentRuntime - Spawns and manages agent tasks.
//
// The runtime maintains a registry of running agents keyed by session ID
// and shares one GlobalPermissions across all of them: a rule added at
// global scope is immediately visible to every running agent.

package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/HourSense/shadow-agent-framework/core"
	"github.com/HourSense/shadow-agent-framework/permissions"
	"github.com/HourSense/shadow-agent-framework/storage"
)

// AgentRuntime spawns agents as goroutines and tracks their handles.
type AgentRuntime struct {
	mu     sync.RWMutex
	agents map[string]*AgentHandle

	globalPermissions *permissions.Global
}

// NewRuntime creates a runtime with empty global permissions.
func NewRuntime() *AgentRuntime {
	return &AgentRuntime{
		agents:            make(map[string]*AgentHandle),
		globalPermissions: permissions.NewGlobal(),
	}
}

// NewRuntimeWithGlobalRules creates a runtime seeded with global rules.
func NewRuntimeWithGlobalRules(rules []permissions.Rule) *AgentRuntime {
	return &AgentRuntime{
		agents:            make(map[string]*AgentHandle),
		globalPermissions: permissions.NewGlobalWithRules(rules),
	}
}

// GlobalPermissions returns the rule set shared by all spawned agents.
func (rt *AgentRuntime) GlobalPermissions() *permissions.Global {
	return rt.globalPermissions
}

// Spawn starts an agent task for the session and returns its handle.
// The agent function runs on its own goroutine; when it returns, the
// agent is removed from the registry and its handle stops accepting input.
func (rt *AgentRuntime) Spawn(ctx context.Context, session *storage.AgentSession, agentFn AgentFn) *AgentHandle {
	return rt.SpawnWithLocalRules(ctx, session, nil, agentFn)
}

// SpawnWithLocalRules is Spawn with agent-specific permission rules.
func (rt *AgentRuntime) SpawnWithLocalRules(ctx context.Context, session *storage.AgentSession, localRules []permissions.Rule, agentFn AgentFn) *AgentHandle {
	sessionID := session.SessionID()
	agentType := session.AgentType()

	agentContext := core.NewAgentContext(sessionID, agentType, session.Name(), session.Description())
	if session.Metadata.ParentSessionID != "" {
		agentContext.ParentSessionID = session.Metadata.ParentSessionID
		agentContext.ParentToolUseID = session.Metadata.ParentToolUseID
	}
	agentContext.Resources.Put(NewSubAgentManager())
	agentContext.Resources.Put(rt)

	perms := permissions.NewManagerWithLocalRules(rt.globalPermissions, agentType, localRules)
	internals, handle := NewAgentPair(session, agentContext, perms)

	rt.mu.Lock()
	rt.agents[sessionID] = handle
	rt.mu.Unlock()

	go func() {
		if err := agentFn(ctx, internals); err != nil {
			slog.Error("agent task errored", "session_id", sessionID, "error", err)
		}

		close(handle.closed)
		internals.channels.output.Close()

		rt.mu.Lock()
		delete(rt.agents, sessionID)
		rt.mu.Unlock()

		slog.Debug("agent task completed", "session_id", sessionID)
	}()

	return handle
}

// SubagentSpec describes a subagent to spawn.
type SubagentSpec struct {
	SessionID       string
	AgentType       string
	Name            string
	Description     string
	ParentSessionID string
	ParentToolUseID string
}

// SpawnSubagent creates a subagent session linked to its parent in both
// directions and spawns it like any other agent. The parent's storage is
// reused so the lineage lives in one place.
func (rt *AgentRuntime) SpawnSubagent(ctx context.Context, spec SubagentSpec, agentFn AgentFn) (*AgentHandle, error) {
	parent := rt.Get(spec.ParentSessionID)
	if parent == nil {
		return nil, fmt.Errorf("%w: parent %s", core.ErrAgentNotRunning, spec.ParentSessionID)
	}

	parent.sessionMu.RLock()
	store := parent.session.Storage()
	parent.sessionMu.RUnlock()

	session, err := storage.NewSubagentSession(
		spec.SessionID, spec.AgentType, spec.Name, spec.Description,
		spec.ParentSessionID, spec.ParentToolUseID, store,
	)
	if err != nil {
		return nil, fmt.Errorf("create subagent session: %w", err)
	}

	// Refresh the parent's in-memory child list to match disk.
	parent.sessionMu.Lock()
	parent.session.Metadata.AddChild(spec.SessionID)
	parent.sessionMu.Unlock()

	return rt.Spawn(ctx, session, agentFn), nil
}

// Get returns the handle of a running agent, or nil.
func (rt *AgentRuntime) Get(sessionID string) *AgentHandle {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return rt.agents[sessionID]
}

// IsRunning reports whether an agent is in the registry.
func (rt *AgentRuntime) IsRunning(sessionID string) bool {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	_, ok := rt.agents[sessionID]
	return ok
}

// Count returns the number of running agents.
func (rt *AgentRuntime) Count() int {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return len(rt.agents)
}

// ListRunning returns the session IDs of all running agents.
func (rt *AgentRuntime) ListRunning() []string {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	ids := make([]string, 0, len(rt.agents))
	for id := range rt.agents {
		ids = append(ids, id)
	}
	return ids
}

// Shutdown sends a shutdown request to an agent.
func (rt *AgentRuntime) Shutdown(ctx context.Context, sessionID string) error {
	handle := rt.Get(sessionID)
	if handle == nil {
		return fmt.Errorf("%w: %s", core.ErrAgentNotRunning, sessionID)
	}
	return handle.Shutdown(ctx)
}

// Interrupt sends an interrupt request to an agent.
func (rt *AgentRuntime) Interrupt(ctx context.Context, sessionID string) error {
	handle := rt.Get(sessionID)
	if handle == nil {
		return fmt.Errorf("%w: %s", core.ErrAgentNotRunning, sessionID)
	}
	return handle.Interrupt(ctx)
}

// ShutdownAll requests shutdown of every running agent and returns the
// per-agent send results.
func (rt *AgentRuntime) ShutdownAll(ctx context.Context) map[string]error {
	results := make(map[string]error)
	for _, sessionID := range rt.ListRunning() {
		results[sessionID] = rt.Shutdown(ctx, sessionID)
	}
	return results
}

// WaitFor polls until an agent leaves the registry.
func (rt *AgentRuntime) WaitFor(ctx context.Context, sessionID string) error {
	ticker := time.NewTicker(completionPollInterval)
	defer ticker.Stop()
	for {
		if !rt.IsRunning(sessionID) {
			return nil
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// WaitAll polls until the registry is empty.
func (rt *AgentRuntime) WaitAll(ctx context.Context) error {
	ticker := time.NewTicker(completionPollInterval)
	defer ticker.Stop()
	for {
		if rt.Count() == 0 {
			return nil
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
