// Session storage helpers.
//
// On-disk layout, per session:
//
//	<root>/<session_id>/metadata.json   whole-file JSON document
//	<root>/<session_id>/history.jsonl   one message per line, append-only

package storage

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/HourSense/shadow-agent-framework/core"
	"github.com/HourSense/shadow-agent-framework/llm"
)

// DefaultSessionsDir is the default root directory for session storage.
const DefaultSessionsDir = "sessions"

const (
	metadataFile = "metadata.json"
	historyFile  = "history.jsonl"
)

// SessionStorage reads and writes session data under a root directory.
type SessionStorage struct {
	baseDir string
}

// NewSessionStorage creates storage rooted at the default directory.
func NewSessionStorage() *SessionStorage {
	return &SessionStorage{baseDir: DefaultSessionsDir}
}

// WithDir creates storage rooted at a custom directory.
func WithDir(dir string) *SessionStorage {
	return &SessionStorage{baseDir: dir}
}

// BaseDir returns the storage root.
func (s *SessionStorage) BaseDir() string {
	return s.baseDir
}

// SessionDir returns the directory of a session.
func (s *SessionStorage) SessionDir(sessionID string) string {
	return filepath.Join(s.baseDir, sessionID)
}

func (s *SessionStorage) metadataPath(sessionID string) string {
	return filepath.Join(s.SessionDir(sessionID), metadataFile)
}

func (s *SessionStorage) historyPath(sessionID string) string {
	return filepath.Join(s.SessionDir(sessionID), historyFile)
}

func (s *SessionStorage) ensureSessionDir(sessionID string) error {
	return os.MkdirAll(s.SessionDir(sessionID), 0o755)
}

// SaveMetadata rewrites the metadata document atomically: the new content
// is written to a temp file in the same directory and renamed over the old
// document.
func (s *SessionStorage) SaveMetadata(metadata *SessionMetadata) error {
	if err := s.ensureSessionDir(metadata.SessionID); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}

	data, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}

	path := s.metadataPath(metadata.SessionID)
	tmp, err := os.CreateTemp(s.SessionDir(metadata.SessionID), metadataFile+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp metadata: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write metadata: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync metadata: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close metadata: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename metadata: %w", err)
	}
	return nil
}

// LoadMetadata reads a session's metadata document.
func (s *SessionStorage) LoadMetadata(sessionID string) (*SessionMetadata, error) {
	data, err := os.ReadFile(s.metadataPath(sessionID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", core.ErrSessionNotFound, sessionID)
		}
		return nil, fmt.Errorf("read metadata: %w", err)
	}

	var metadata SessionMetadata
	if err := json.Unmarshal(data, &metadata); err != nil {
		return nil, fmt.Errorf("parse metadata for %s: %w", sessionID, err)
	}
	return &metadata, nil
}

// AppendMessage appends one message to the history log as a full line
// with a trailing newline, synced before close. Readers never observe a
// half-written line followed by more data.
func (s *SessionStorage) AppendMessage(sessionID string, message llm.Message) error {
	if err := s.ensureSessionDir(sessionID); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}

	line, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	f, err := os.OpenFile(s.historyPath(sessionID), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}

	if _, err := f.Write(append(line, '\n')); err != nil {
		f.Close()
		return fmt.Errorf("append message: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("sync history: %w", err)
	}
	return f.Close()
}

// LoadMessages replays the history log. Blank lines are skipped and a
// trailing partial line (no newline, from a torn write) is tolerated. A
// parse error mid-file terminates iteration and is returned together with
// the messages read so far.
func (s *SessionStorage) LoadMessages(sessionID string) ([]llm.Message, error) {
	f, err := os.Open(s.historyPath(sessionID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open history: %w", err)
	}
	defer f.Close()

	var messages []llm.Message
	reader := bufio.NewReader(f)

	line := 0
	for {
		line++
		text, readErr := reader.ReadString('\n')
		if readErr != nil && readErr != io.EOF {
			return messages, fmt.Errorf("read history: %w", readErr)
		}

		trimmed := strings.TrimRight(text, "\n")
		if trimmed != "" {
			var message llm.Message
			if err := json.Unmarshal([]byte(trimmed), &message); err != nil {
				if readErr == io.EOF {
					// Trailing partial line from a torn append; skip it.
					return messages, nil
				}
				return messages, fmt.Errorf("parse history line %d of %s: %w", line, sessionID, err)
			}
			messages = append(messages, message)
		}

		if readErr == io.EOF {
			return messages, nil
		}
	}
}

// SaveMessages rewrites the entire history log.
func (s *SessionStorage) SaveMessages(sessionID string, messages []llm.Message) error {
	if err := s.ensureSessionDir(sessionID); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}

	f, err := os.Create(s.historyPath(sessionID))
	if err != nil {
		return fmt.Errorf("create history: %w", err)
	}

	w := bufio.NewWriter(f)
	for _, message := range messages {
		line, err := json.Marshal(message)
		if err != nil {
			f.Close()
			return fmt.Errorf("encode message: %w", err)
		}
		if _, err := w.Write(append(line, '\n')); err != nil {
			f.Close()
			return fmt.Errorf("write message: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("flush history: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("sync history: %w", err)
	}
	return f.Close()
}

// GetHistory reads a session's messages without constructing a session
// object or taking any lock.
func (s *SessionStorage) GetHistory(sessionID string) ([]llm.Message, error) {
	if !s.SessionExists(sessionID) {
		return nil, fmt.Errorf("%w: %s", core.ErrSessionNotFound, sessionID)
	}
	return s.LoadMessages(sessionID)
}

// SessionExists reports whether a session has a metadata document.
func (s *SessionStorage) SessionExists(sessionID string) bool {
	_, err := os.Stat(s.metadataPath(sessionID))
	return err == nil
}

// ListSessions returns all session IDs, sorted.
func (s *SessionStorage) ListSessions() ([]string, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read sessions dir: %w", err)
	}

	var sessions []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if s.SessionExists(entry.Name()) {
			sessions = append(sessions, entry.Name())
		}
	}
	sort.Strings(sessions)
	return sessions, nil
}

// ListWithMetadata returns session IDs with their metadata. With
// topLevelOnly, sessions that have a parent are filtered out.
func (s *SessionStorage) ListWithMetadata(topLevelOnly bool) ([]*SessionMetadata, error) {
	ids, err := s.ListSessions()
	if err != nil {
		return nil, err
	}

	var out []*SessionMetadata
	for _, id := range ids {
		metadata, err := s.LoadMetadata(id)
		if err != nil {
			return nil, err
		}
		if topLevelOnly && metadata.ParentSessionID != "" {
			continue
		}
		out = append(out, metadata)
	}
	return out, nil
}

// DeleteSession removes a session's directory.
func (s *SessionStorage) DeleteSession(sessionID string) error {
	dir := s.SessionDir(sessionID)
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return os.RemoveAll(dir)
}
