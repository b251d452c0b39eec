// SubAgentManager - Tracks subagents spawned by a parent agent.
//
// The manager lives in the parent's context resources. It keeps handles
// of active subagents for monitoring and records completed subagents
// with their final results.

package runtime

import (
	"log/slog"
	"sync"
)

// CompletedSubAgent is the record of a finished subagent.
type CompletedSubAgent struct {
	SessionID string
	AgentType string
	Result    *string
	Success   bool
	Error     string
}

// SubAgentManager tracks the subagents of one parent agent.
type SubAgentManager struct {
	mu        sync.RWMutex
	active    map[string]*AgentHandle
	types     map[string]string
	completed map[string]CompletedSubAgent
}

// NewSubAgentManager creates an empty manager.
func NewSubAgentManager() *SubAgentManager {
	return &SubAgentManager{
		active:    make(map[string]*AgentHandle),
		types:     make(map[string]string),
		completed: make(map[string]CompletedSubAgent),
	}
}

// Register records a spawned subagent. Called by the runtime when a
// subagent is spawned through the parent's internals.
func (m *SubAgentManager) Register(sessionID, agentType string, handle *AgentHandle) {
	slog.Debug("registering subagent", "session_id", sessionID, "agent_type", agentType)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active[sessionID] = handle
	m.types[sessionID] = agentType
}

// Get returns the handle of an active subagent.
func (m *SubAgentManager) Get(sessionID string) (*AgentHandle, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	handle, ok := m.active[sessionID]
	return handle, ok
}

// IsActive reports whether a subagent is still running.
func (m *SubAgentManager) IsActive(sessionID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.active[sessionID]
	return ok
}

// Exists reports whether a subagent is known, active or completed.
func (m *SubAgentManager) Exists(sessionID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.active[sessionID]; ok {
		return true
	}
	_, ok := m.completed[sessionID]
	return ok
}

// ActiveSessionIDs returns the session IDs of running subagents.
func (m *SubAgentManager) ActiveSessionIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.active))
	for id := range m.active {
		ids = append(ids, id)
	}
	return ids
}

// ActiveCount returns the number of running subagents.
func (m *SubAgentManager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.active)
}

// MarkCompleted moves a subagent from active to completed and stores its
// result.
func (m *SubAgentManager) MarkCompleted(sessionID string, result *string, success bool, errMessage string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	agentType := m.types[sessionID]
	delete(m.active, sessionID)
	delete(m.types, sessionID)
	m.completed[sessionID] = CompletedSubAgent{
		SessionID: sessionID,
		AgentType: agentType,
		Result:    result,
		Success:   success,
		Error:     errMessage,
	}
}

// Completed returns the record of a finished subagent.
func (m *SubAgentManager) Completed(sessionID string) (CompletedSubAgent, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	record, ok := m.completed[sessionID]
	return record, ok
}

// CompletedCount returns the number of finished subagents.
func (m *SubAgentManager) CompletedCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.completed)
}
