// Package memory persists conversation history in SQLite.
package memory

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	apperrors "finsight/internal/errors"
	"finsight/internal/models"
)

// ConversationStore persists chats, their messages, and uploaded-document
// metadata. It is an explicitly constructed handle: opened at process start,
// closed at shutdown.
type ConversationStore struct {
	db *sql.DB
}

// NewConversationStore opens (and if needed initializes) the conversation
// database at dbPath.
func NewConversationStore(dbPath string) (*ConversationStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open conversation database: %w", err)
	}

	store := &ConversationStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize conversation schema: %w", err)
	}

	return store, nil
}

func (s *ConversationStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS chats (
		id TEXT PRIMARY KEY,
		title TEXT,
		created_at TEXT,
		updated_at TEXT
	);

	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		chat_id TEXT,
		role TEXT,
		content TEXT,
		timestamp TEXT,
		FOREIGN KEY (chat_id) REFERENCES chats (id)
	);

	CREATE TABLE IF NOT EXISTS documents (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		chat_id TEXT,
		name TEXT,
		size INTEGER,
		uploaded_at TEXT,
		FOREIGN KEY (chat_id) REFERENCES chats (id)
	);

	CREATE INDEX IF NOT EXISTS idx_messages_chat ON messages(chat_id, timestamp);
	CREATE INDEX IF NOT EXISTS idx_documents_chat ON documents(chat_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *ConversationStore) Close() error {
	return s.db.Close()
}

func isoNow() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// CreateChat creates a chat session. An empty chatID generates a new UUID;
// the returned ID is always the one stored.
func (s *ConversationStore) CreateChat(ctx context.Context, chatID, title string) (string, error) {
	if chatID == "" {
		chatID = uuid.NewString()
	}
	if title == "" {
		title = "New Chat"
	}

	now := isoNow()
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO chats (id, title, created_at, updated_at) VALUES (?, ?, ?, ?)",
		chatID, title, now, now)
	if err != nil {
		return "", apperrors.NewStoreError("create_chat", chatID, err)
	}
	return chatID, nil
}

// SaveMessage appends a message to a chat, creating the chat on first use,
// and bumps the chat's updated_at.
func (s *ConversationStore) SaveMessage(ctx context.Context, chatID, role, content string) error {
	if err := s.ensureChat(ctx, chatID); err != nil {
		return err
	}

	now := isoNow()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewStoreError("save_message", chatID, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO messages (chat_id, role, content, timestamp) VALUES (?, ?, ?, ?)",
		chatID, role, content, now); err != nil {
		return apperrors.NewStoreError("save_message", chatID, err)
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE chats SET updated_at = ? WHERE id = ?", now, chatID); err != nil {
		return apperrors.NewStoreError("save_message", chatID, err)
	}

	return tx.Commit()
}

// SaveDocument records uploaded-document metadata against a chat, creating
// the chat on first use.
func (s *ConversationStore) SaveDocument(ctx context.Context, chatID string, doc models.DocumentMeta) error {
	if err := s.ensureChat(ctx, chatID); err != nil {
		return err
	}

	now := isoNow()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewStoreError("save_document", chatID, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO documents (chat_id, name, size, uploaded_at) VALUES (?, ?, ?, ?)",
		chatID, doc.Name, doc.Size, now); err != nil {
		return apperrors.NewStoreError("save_document", chatID, err)
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE chats SET updated_at = ? WHERE id = ?", now, chatID); err != nil {
		return apperrors.NewStoreError("save_document", chatID, err)
	}

	return tx.Commit()
}

func (s *ConversationStore) ensureChat(ctx context.Context, chatID string) error {
	var id string
	err := s.db.QueryRowContext(ctx, "SELECT id FROM chats WHERE id = ?", chatID).Scan(&id)
	if err == sql.ErrNoRows {
		_, err := s.CreateChat(ctx, chatID, "")
		return err
	}
	if err != nil {
		return apperrors.NewStoreError("ensure_chat", chatID, err)
	}
	return nil
}

// LoadContext returns the last n messages of a chat as a formatted
// transcript in chronological order, each user turn preceded by a separator
// line. n <= 0 loads the full history.
func (s *ConversationStore) LoadContext(ctx context.Context, chatID string, n int) (string, error) {
	var messages []models.Message
	var err error

	if n > 0 {
		messages, err = s.queryMessages(ctx,
			"SELECT role, content, timestamp FROM messages WHERE chat_id = ? ORDER BY timestamp DESC, id DESC LIMIT ?",
			chatID, n)
		// Reverse back to chronological order.
		for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
			messages[i], messages[j] = messages[j], messages[i]
		}
	} else {
		messages, err = s.queryMessages(ctx,
			"SELECT role, content, timestamp FROM messages WHERE chat_id = ? ORDER BY timestamp, id",
			chatID)
	}
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, m := range messages {
		if m.Role == models.RoleUser {
			sb.WriteString("----------------------------------------\n")
		}
		fmt.Fprintf(&sb, "%s: %s\n", m.Role, m.Content)
	}
	return strings.TrimSpace(sb.String()), nil
}

// LoadHistory returns the full message history of a chat in chronological
// order.
func (s *ConversationStore) LoadHistory(ctx context.Context, chatID string) ([]models.Message, error) {
	return s.queryMessages(ctx,
		"SELECT role, content, timestamp FROM messages WHERE chat_id = ? ORDER BY timestamp, id",
		chatID)
}

func (s *ConversationStore) queryMessages(ctx context.Context, query string, args ...any) ([]models.Message, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewStoreError("load_messages", query, err)
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.Role, &m.Content, &m.Timestamp); err != nil {
			return nil, apperrors.NewStoreError("load_messages", "scan", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// ChatInfo returns a chat with its messages and documents. A missing chat
// yields ErrChatNotFound.
func (s *ConversationStore) ChatInfo(ctx context.Context, chatID string) (*models.ChatInfo, error) {
	var info models.ChatInfo
	err := s.db.QueryRowContext(ctx,
		"SELECT id, title, created_at, updated_at FROM chats WHERE id = ?", chatID).
		Scan(&info.ID, &info.Title, &info.CreatedAt, &info.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, apperrors.ErrChatNotFound
	}
	if err != nil {
		return nil, apperrors.NewStoreError("chat_info", chatID, err)
	}

	if info.Messages, err = s.LoadHistory(ctx, chatID); err != nil {
		return nil, err
	}
	if info.Documents, err = s.Documents(ctx, chatID); err != nil {
		return nil, err
	}

	return &info, nil
}

// ListChats returns all chats, most recently updated first, without their
// message bodies.
func (s *ConversationStore) ListChats(ctx context.Context) ([]models.Chat, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, title, created_at, updated_at FROM chats ORDER BY updated_at DESC")
	if err != nil {
		return nil, apperrors.NewStoreError("list_chats", "", err)
	}
	defer rows.Close()

	var chats []models.Chat
	for rows.Next() {
		var c models.Chat
		if err := rows.Scan(&c.ID, &c.Title, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, apperrors.NewStoreError("list_chats", "scan", err)
		}
		chats = append(chats, c)
	}
	return chats, rows.Err()
}

// Documents returns document metadata for a chat in upload order.
func (s *ConversationStore) Documents(ctx context.Context, chatID string) ([]models.DocumentMeta, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT name, size, uploaded_at FROM documents WHERE chat_id = ? ORDER BY uploaded_at, id",
		chatID)
	if err != nil {
		return nil, apperrors.NewStoreError("documents", chatID, err)
	}
	defer rows.Close()

	var docs []models.DocumentMeta
	for rows.Next() {
		var d models.DocumentMeta
		if err := rows.Scan(&d.Name, &d.Size, &d.UploadedAt); err != nil {
			return nil, apperrors.NewStoreError("documents", "scan", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// DeleteChat removes a chat with its messages and documents.
func (s *ConversationStore) DeleteChat(ctx context.Context, chatID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewStoreError("delete_chat", chatID, err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		"DELETE FROM messages WHERE chat_id = ?",
		"DELETE FROM documents WHERE chat_id = ?",
		"DELETE FROM chats WHERE id = ?",
	} {
		if _, err := tx.ExecContext(ctx, stmt, chatID); err != nil {
			return apperrors.NewStoreError("delete_chat", chatID, err)
		}
	}

	return tx.Commit()
}
