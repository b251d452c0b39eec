// SQLite session index.
//
// The file store remains the source of truth; the index mirrors session
// metadata into a queryable table for fast listing and search across many
// sessions (the directory scan reads every metadata document).
//
// Information Hiding:
// - SQLite connection management hidden behind the type
// - Schema and migration details encapsulated
// - Thread-safe via sql.DB's built-in connection pooling

package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// IndexEntry is one session row of the index.
type IndexEntry struct {
	SessionID        string
	AgentType        string
	Name             string
	ConversationName string
	ParentSessionID  string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// SQLiteIndex is a queryable mirror of session metadata.
type SQLiteIndex struct {
	db *sql.DB
}

// OpenIndex opens or creates the index database at the given path.
// Parent directories are created if missing.
func OpenIndex(path string) (*SQLiteIndex, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create index directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open index database: %w", err)
	}

	index := &SQLiteIndex{db: db}
	if err := index.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize index schema: %w", err)
	}
	return index, nil
}

// OpenIndexInMemory creates an in-memory index (useful for testing).
func OpenIndexInMemory() (*SQLiteIndex, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open in-memory index: %w", err)
	}

	index := &SQLiteIndex{db: db}
	if err := index.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize index schema: %w", err)
	}
	return index, nil
}

// Close closes the database connection.
func (i *SQLiteIndex) Close() error {
	return i.db.Close()
}

func (i *SQLiteIndex) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS sessions (
			session_id        TEXT PRIMARY KEY,
			agent_type        TEXT NOT NULL,
			name              TEXT NOT NULL,
			conversation_name TEXT NOT NULL DEFAULT '',
			parent_session_id TEXT NOT NULL DEFAULT '',
			created_at        INTEGER NOT NULL,
			updated_at        INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_sessions_updated
		ON sessions(updated_at DESC);

		CREATE INDEX IF NOT EXISTS idx_sessions_parent
		ON sessions(parent_session_id);
	`
	_, err := i.db.Exec(schema)
	return err
}

// Record inserts or refreshes a session's row from its metadata.
func (i *SQLiteIndex) Record(ctx context.Context, metadata *SessionMetadata) error {
	_, err := i.db.ExecContext(ctx, `
		INSERT INTO sessions (session_id, agent_type, name, conversation_name, parent_session_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			agent_type = excluded.agent_type,
			name = excluded.name,
			conversation_name = excluded.conversation_name,
			parent_session_id = excluded.parent_session_id,
			updated_at = excluded.updated_at`,
		metadata.SessionID,
		metadata.AgentType,
		metadata.Name,
		metadata.ConversationName,
		metadata.ParentSessionID,
		metadata.CreatedAt.UnixMilli(),
		metadata.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("record session %s: %w", metadata.SessionID, err)
	}
	return nil
}

// Remove deletes a session's row.
func (i *SQLiteIndex) Remove(ctx context.Context, sessionID string) error {
	if _, err := i.db.ExecContext(ctx, `DELETE FROM sessions WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("remove session %s: %w", sessionID, err)
	}
	return nil
}

// Recent returns up to limit sessions ordered by most recent update,
// optionally restricted to top-level sessions.
func (i *SQLiteIndex) Recent(ctx context.Context, limit int, topLevelOnly bool) ([]IndexEntry, error) {
	query := `SELECT session_id, agent_type, name, conversation_name, parent_session_id, created_at, updated_at
		FROM sessions`
	if topLevelOnly {
		query += ` WHERE parent_session_id = ''`
	}
	query += ` ORDER BY updated_at DESC LIMIT ?`

	rows, err := i.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent sessions: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// Search returns sessions whose name or conversation name contains the
// given term, most recently updated first.
func (i *SQLiteIndex) Search(ctx context.Context, term string, limit int) ([]IndexEntry, error) {
	pattern := "%" + term + "%"
	rows, err := i.db.QueryContext(ctx, `
		SELECT session_id, agent_type, name, conversation_name, parent_session_id, created_at, updated_at
		FROM sessions
		WHERE name LIKE ? OR conversation_name LIKE ?
		ORDER BY updated_at DESC LIMIT ?`,
		pattern, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("search sessions: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// Rebuild repopulates the index from a file store.
func (i *SQLiteIndex) Rebuild(ctx context.Context, store *SessionStorage) error {
	all, err := store.ListWithMetadata(false)
	if err != nil {
		return err
	}
	for _, metadata := range all {
		if err := i.Record(ctx, metadata); err != nil {
			return err
		}
	}
	return nil
}

func scanEntries(rows *sql.Rows) ([]IndexEntry, error) {
	var entries []IndexEntry
	for rows.Next() {
		var e IndexEntry
		var created, updated int64
		if err := rows.Scan(&e.SessionID, &e.AgentType, &e.Name, &e.ConversationName, &e.ParentSessionID, &created, &updated); err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		e.CreatedAt = time.UnixMilli(created).UTC()
		e.UpdatedAt = time.UnixMilli(updated).UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
