// Agent session management.
//
// AgentSession combines metadata and message history, providing a
// complete view of one agent's conversation state. A running agent owns
// its session exclusively; external metadata writes go through the
// handle so the in-memory copy stays authoritative.

package storage

import (
	"encoding/json"
	"fmt"

	"github.com/HourSense/shadow-agent-framework/llm"
)

// AgentSession tracks conversation history and metadata for one agent.
type AgentSession struct {
	Metadata *SessionMetadata
	Messages []llm.Message

	storage *SessionStorage
}

// NewSession creates a root session and persists its metadata immediately.
func NewSession(sessionID, agentType, name, description string, storage *SessionStorage) (*AgentSession, error) {
	metadata := NewMetadata(sessionID, agentType, name, description)
	if err := storage.SaveMetadata(metadata); err != nil {
		return nil, err
	}
	return &AgentSession{Metadata: metadata, storage: storage}, nil
}

// NewSubagentSession creates a session linked to a parent. The parent's
// metadata is updated to track the child, so both lineage directions hold
// from creation.
func NewSubagentSession(sessionID, agentType, name, description, parentSessionID, parentToolUseID string, storage *SessionStorage) (*AgentSession, error) {
	metadata := NewSubagentMetadata(sessionID, agentType, name, description, parentSessionID, parentToolUseID)
	if err := storage.SaveMetadata(metadata); err != nil {
		return nil, err
	}

	parentMeta, err := storage.LoadMetadata(parentSessionID)
	if err != nil {
		return nil, fmt.Errorf("load parent session: %w", err)
	}
	parentMeta.AddChild(sessionID)
	if err := storage.SaveMetadata(parentMeta); err != nil {
		return nil, fmt.Errorf("update parent session: %w", err)
	}

	return &AgentSession{Metadata: metadata, storage: storage}, nil
}

// LoadSession reads an existing session from storage.
func LoadSession(sessionID string, storage *SessionStorage) (*AgentSession, error) {
	metadata, err := storage.LoadMetadata(sessionID)
	if err != nil {
		return nil, err
	}
	messages, err := storage.LoadMessages(sessionID)
	if err != nil {
		return nil, err
	}
	return &AgentSession{Metadata: metadata, Messages: messages, storage: storage}, nil
}

// SessionID returns the session ID.
func (s *AgentSession) SessionID() string { return s.Metadata.SessionID }

// AgentType returns the agent type.
func (s *AgentSession) AgentType() string { return s.Metadata.AgentType }

// Name returns the agent name.
func (s *AgentSession) Name() string { return s.Metadata.Name }

// Description returns the agent description.
func (s *AgentSession) Description() string { return s.Metadata.Description }

// IsSubagent reports whether this session has a parent.
func (s *AgentSession) IsSubagent() bool { return s.Metadata.IsSubagent() }

// Storage returns the backing storage.
func (s *AgentSession) Storage() *SessionStorage { return s.storage }

// AddMessage appends a message to history, persisting the line and the
// touched metadata before returning.
func (s *AgentSession) AddMessage(message llm.Message) error {
	if err := s.storage.AppendMessage(s.Metadata.SessionID, message); err != nil {
		return err
	}
	s.Messages = append(s.Messages, message)
	s.Metadata.Touch()
	return s.storage.SaveMetadata(s.Metadata)
}

// History returns the conversation history.
func (s *AgentSession) History() []llm.Message {
	return s.Messages
}

// HistoryMut returns the history slice for in-place modification. Direct
// changes are not persisted automatically; call Save afterwards.
func (s *AgentSession) HistoryMut() *[]llm.Message {
	return &s.Messages
}

// Save rewrites metadata and the whole history file.
func (s *AgentSession) Save() error {
	s.Metadata.Touch()
	if err := s.storage.SaveMetadata(s.Metadata); err != nil {
		return err
	}
	return s.storage.SaveMessages(s.Metadata.SessionID, s.Messages)
}

// Reload discards unsaved changes and re-reads the session from disk.
func (s *AgentSession) Reload() error {
	metadata, err := s.storage.LoadMetadata(s.Metadata.SessionID)
	if err != nil {
		return err
	}
	messages, err := s.storage.LoadMessages(s.Metadata.SessionID)
	if err != nil {
		return err
	}
	s.Metadata = metadata
	s.Messages = messages
	return nil
}

// Delete permanently removes the session from storage.
func (s *AgentSession) Delete() error {
	return s.storage.DeleteSession(s.Metadata.SessionID)
}

// SetModel records the model in metadata.
func (s *AgentSession) SetModel(model string) {
	s.Metadata.Model = model
	s.Metadata.Touch()
}

// SetProvider records the provider in metadata.
func (s *AgentSession) SetProvider(provider string) {
	s.Metadata.Provider = provider
	s.Metadata.Touch()
}

// SetCustom stores a custom metadata value and persists metadata.
func (s *AgentSession) SetCustom(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode custom metadata %q: %w", key, err)
	}
	s.Metadata.SetCustom(key, raw)
	return s.storage.SaveMetadata(s.Metadata)
}

// GetCustom returns a custom metadata value.
func (s *AgentSession) GetCustom(key string) (json.RawMessage, bool) {
	return s.Metadata.GetCustom(key)
}

// ConversationName returns the auto-generated conversation name.
func (s *AgentSession) ConversationName() string {
	return s.Metadata.ConversationName
}

// SetConversationName stores the conversation name and persists metadata.
func (s *AgentSession) SetConversationName(name string) error {
	s.Metadata.ConversationName = name
	s.Metadata.Touch()
	return s.storage.SaveMetadata(s.Metadata)
}
