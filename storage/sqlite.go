package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/richinex/ixion/llm"
)

// SqliteStore is a CheckpointStore backed by a SQLite database file.
type SqliteStore struct {
	db *sql.DB
}

// OpenSqlite opens (or creates) a checkpoint database at path.
func OpenSqlite(path string) (*SqliteStore, error) {
	return open(path)
}

// NewSqliteInMemory creates a store that vanishes when closed. Used in
// tests.
func NewSqliteInMemory() (*SqliteStore, error) {
	return open(":memory:")
}

func open(dsn string) (*SqliteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dsn == ":memory:" {
		// Each pooled connection would get its own empty database.
		db.SetMaxOpenConns(1)
	}
	s := &SqliteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SqliteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS threads (
		id         TEXT PRIMARY KEY,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE TABLE IF NOT EXISTS messages (
		thread_id    TEXT NOT NULL REFERENCES threads(id) ON DELETE CASCADE,
		seq          INTEGER NOT NULL,
		role         TEXT NOT NULL,
		content      TEXT NOT NULL,
		tool_calls   TEXT,
		tool_call_id TEXT,
		PRIMARY KEY (thread_id, seq)
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Save replaces the thread's transcript in a single transaction.
func (s *SqliteStore) Save(ctx context.Context, threadID string, messages []llm.ChatMessage) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO threads (id) VALUES (?)
		 ON CONFLICT(id) DO UPDATE SET updated_at = CURRENT_TIMESTAMP`, threadID); err != nil {
		return fmt.Errorf("failed to upsert thread: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM messages WHERE thread_id = ?`, threadID); err != nil {
		return fmt.Errorf("failed to clear messages: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO messages (thread_id, seq, role, content, tool_calls, tool_call_id)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, msg := range messages {
		var toolCalls sql.NullString
		if len(msg.ToolCalls) > 0 {
			encoded, err := json.Marshal(msg.ToolCalls)
			if err != nil {
				return fmt.Errorf("failed to encode tool calls: %w", err)
			}
			toolCalls = sql.NullString{String: string(encoded), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, threadID, i, msg.Role, msg.Content, toolCalls, msg.ToolCallID); err != nil {
			return fmt.Errorf("failed to insert message %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// Load reads the transcript back in insertion order.
func (s *SqliteStore) Load(ctx context.Context, threadID string) ([]llm.ChatMessage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT role, content, tool_calls, tool_call_id
		 FROM messages WHERE thread_id = ? ORDER BY seq`, threadID)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []llm.ChatMessage
	for rows.Next() {
		var msg llm.ChatMessage
		var toolCalls sql.NullString
		if err := rows.Scan(&msg.Role, &msg.Content, &toolCalls, &msg.ToolCallID); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		if toolCalls.Valid {
			if err := json.Unmarshal([]byte(toolCalls.String), &msg.ToolCalls); err != nil {
				return nil, fmt.Errorf("failed to decode tool calls: %w", err)
			}
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// Delete removes the thread and its messages.
func (s *SqliteStore) Delete(ctx context.Context, threadID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE thread_id = ?`, threadID); err != nil {
		return fmt.Errorf("failed to delete messages: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM threads WHERE id = ?`, threadID); err != nil {
		return fmt.Errorf("failed to delete thread: %w", err)
	}
	return nil
}

// Exists reports whether the thread has a checkpoint.
func (s *SqliteStore) Exists(ctx context.Context, threadID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM threads WHERE id = ?`, threadID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check thread: %w", err)
	}
	return true, nil
}

// ListThreads returns all thread IDs, most recently updated first.
func (s *SqliteStore) ListThreads(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM threads ORDER BY updated_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list threads: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan thread id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Close closes the underlying database.
func (s *SqliteStore) Close() error { return s.db.Close() }
