package main

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// The archive is a best-effort local record of completed exchanges. The
// server stays the durability boundary; archive failures are logged and
// swallowed, and the history view only falls back to it when the service is
// unreachable.

const archiveSchema = `
CREATE TABLE IF NOT EXISTS messages (
	id         TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	role       TEXT NOT NULL,
	content    TEXT NOT NULL,
	timestamp  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id);
`

func openArchiveDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open archive db %q: %w", path, err)
	}
	if _, err := db.Exec(archiveSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init archive schema: %w", err)
	}
	return db, nil
}

// archiveExchange appends messages for one session. Insertion order is
// preserved via rowid, which loadArchivedHistory relies on.
func archiveExchange(db *sql.DB, sessionID string, messages []chatMessage) error {
	if sessionID == "" || len(messages) == 0 {
		return nil
	}
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin archive tx: %w", err)
	}
	for _, msg := range messages {
		_, err := tx.Exec(
			`INSERT INTO messages (id, session_id, role, content, timestamp) VALUES (?, ?, ?, ?, ?)`,
			uuid.NewString(), sessionID, msg.role, msg.content, msg.timestamp,
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("insert archived message: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit archive tx: %w", err)
	}
	return nil
}

// loadArchivedHistory returns the archived feed in insertion order, the same
// flat shape the service returns, so it can feed groupBySession directly.
func loadArchivedHistory(db *sql.DB) ([]historyMessage, error) {
	rows, err := db.Query(`SELECT session_id, role, content, timestamp FROM messages ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("query archived messages: %w", err)
	}
	defer rows.Close()

	var flat []historyMessage
	for rows.Next() {
		var record historyMessage
		if err := rows.Scan(&record.SessionID, &record.Role, &record.Content, &record.Timestamp); err != nil {
			return nil, fmt.Errorf("scan archived message: %w", err)
		}
		flat = append(flat, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate archived messages: %w", err)
	}
	return flat, nil
}

// purgeArchivedSession drops local rows for a session deleted on the server,
// so the offline fallback does not resurrect it.
func purgeArchivedSession(db *sql.DB, sessionID string) error {
	if _, err := db.Exec(`DELETE FROM messages WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("purge archived session %q: %w", sessionID, err)
	}
	return nil
}
