// Package storage persists agent sessions: a metadata JSON document and
// an append-only JSONL history per session, plus an optional SQLite index
// for fast listing and search.
//
// Information Hiding:
// - On-disk layout and atomic write strategy
// - JSONL append/replay details
// - SQLite schema
package storage

import (
	"encoding/json"
	"time"
)

// SessionMetadata is the identity, lineage and configuration of one
// session, persisted separately from the message history for quick access.
type SessionMetadata struct {
	// Identity
	SessionID   string `json:"session_id"`
	AgentType   string `json:"agent_type"`
	Name        string `json:"name"`
	Description string `json:"description"`

	// Auto-generated name, set after the first turn by the conversation namer.
	ConversationName string `json:"conversation_name,omitempty"`

	// Lineage
	ParentSessionID string   `json:"parent_session_id,omitempty"`
	ParentToolUseID string   `json:"parent_tool_use_id,omitempty"`
	ChildSessionIDs []string `json:"child_session_ids"`

	// LLM configuration (informational)
	Model    string `json:"model"`
	Provider string `json:"provider"`

	// Timestamps
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Extensible metadata
	Custom map[string]json.RawMessage `json:"custom"`
}

// NewMetadata creates metadata for a root session.
func NewMetadata(sessionID, agentType, name, description string) *SessionMetadata {
	now := time.Now().UTC()
	return &SessionMetadata{
		SessionID:       sessionID,
		AgentType:       agentType,
		Name:            name,
		Description:     description,
		ChildSessionIDs: []string{},
		CreatedAt:       now,
		UpdatedAt:       now,
		Custom:          make(map[string]json.RawMessage),
	}
}

// NewSubagentMetadata creates metadata for a subagent session.
func NewSubagentMetadata(sessionID, agentType, name, description, parentSessionID, parentToolUseID string) *SessionMetadata {
	m := NewMetadata(sessionID, agentType, name, description)
	m.ParentSessionID = parentSessionID
	m.ParentToolUseID = parentToolUseID
	return m
}

// IsSubagent reports whether both parent links are set.
func (m *SessionMetadata) IsSubagent() bool {
	return m.ParentSessionID != "" && m.ParentToolUseID != ""
}

// Touch advances UpdatedAt. The timestamp never moves backwards, even if
// the wall clock does.
func (m *SessionMetadata) Touch() {
	now := time.Now().UTC()
	if now.After(m.UpdatedAt) {
		m.UpdatedAt = now
	}
}

// AddChild records a spawned child session, preserving insertion order.
func (m *SessionMetadata) AddChild(childSessionID string) {
	for _, id := range m.ChildSessionIDs {
		if id == childSessionID {
			return
		}
	}
	m.ChildSessionIDs = append(m.ChildSessionIDs, childSessionID)
	m.Touch()
}

// SetCustom stores a custom metadata value.
func (m *SessionMetadata) SetCustom(key string, value json.RawMessage) {
	if m.Custom == nil {
		m.Custom = make(map[string]json.RawMessage)
	}
	m.Custom[key] = value
	m.Touch()
}

// GetCustom returns a custom metadata value.
func (m *SessionMetadata) GetCustom(key string) (json.RawMessage, bool) {
	v, ok := m.Custom[key]
	return v, ok
}
