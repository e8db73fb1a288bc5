package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/RichardoC/chat-relay/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
    id TEXT PRIMARY KEY,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS messages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    role TEXT NOT NULL,
    content TEXT NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS messages_session_position ON messages(session_id, position);`

// Database stores one conversation log per session id.
type Database struct {
	db *sql.DB
}

func New(dbPath string) (*Database, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows a single writer; one connection avoids SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Database{db: db}, nil
}

// Load returns the stored log for sessionID, oldest first. The bool is false
// if the session was never saved.
func (db *Database) Load(ctx context.Context, sessionID string) ([]models.Message, bool, error) {
	var exists int
	err := db.db.QueryRowContext(ctx, `SELECT 1 FROM sessions WHERE id = ?`, sessionID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to look up session: %w", err)
	}

	rows, err := db.db.QueryContext(ctx, `
        SELECT role, content
        FROM messages
        WHERE session_id = ?
        ORDER BY position ASC`, sessionID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	messages := make([]models.Message, 0)
	for rows.Next() {
		var msg models.Message
		if err := rows.Scan(&msg.Role, &msg.Content); err != nil {
			return nil, false, fmt.Errorf("failed to scan message: %w", err)
		}
		if err := msg.Validate(); err != nil {
			return nil, false, fmt.Errorf("corrupt message %d in session %q: %w", len(messages), sessionID, err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("failed to read messages: %w", err)
	}
	return messages, true, nil
}

// Save replaces the stored log for sessionID with msgs in one transaction.
func (db *Database) Save(ctx context.Context, sessionID string, msgs []models.Message) error {
	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
        INSERT INTO sessions (id, created_at, updated_at)
        VALUES (?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
        ON CONFLICT(id) DO UPDATE SET updated_at = CURRENT_TIMESTAMP`, sessionID); err != nil {
		return fmt.Errorf("failed to upsert session: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM messages WHERE session_id = ?", sessionID); err != nil {
		return fmt.Errorf("failed to delete messages: %w", err)
	}

	if len(msgs) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
            INSERT INTO messages (session_id, position, role, content, created_at)
            VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)`)
		if err != nil {
			return fmt.Errorf("failed to prepare insert: %w", err)
		}
		defer stmt.Close()

		for i, msg := range msgs {
			if _, err := stmt.ExecContext(ctx, sessionID, i, string(msg.Role), msg.Content); err != nil {
				return fmt.Errorf("failed to insert message %d: %w", i, err)
			}
		}
	}

	return tx.Commit()
}

// Sessions lists the ids of all stored sessions.
func (db *Database) Sessions(ctx context.Context) ([]string, error) {
	rows, err := db.db.QueryContext(ctx, `SELECT id FROM sessions ORDER BY updated_at DESC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (db *Database) Ping(ctx context.Context) error {
	return db.db.PingContext(ctx)
}

func (db *Database) Close() error {
	return db.db.Close()
}
