package history

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/huddle/chat-hub/internal/protocol"
)

// Archive is the PostgreSQL-backed long-term message store. Schema lives in
// migrations/ and is applied by historyd at startup.
type Archive struct {
	db *sql.DB
}

// NewArchive creates an Archive backed by the given database handle.
func NewArchive(db *sql.DB) *Archive {
	return &Archive{db: db}
}

// Insert persists one message.
func (a *Archive) Insert(ctx context.Context, msg protocol.Message) error {
	const query = `
		INSERT INTO chat_messages (room, user_id, display_name, avatar, body, posted_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := a.db.ExecContext(ctx, query,
		msg.Room,
		msg.UserID,
		msg.DisplayName,
		msg.Avatar,
		msg.Text,
		msg.PostedAt,
	)
	if err != nil {
		return fmt.Errorf("history: insert: %w", err)
	}
	return nil
}

// RecentByRoom returns the most recent n messages for a room, oldest first.
func (a *Archive) RecentByRoom(ctx context.Context, room string, n int) ([]protocol.Message, error) {
	const query = `
		SELECT room, user_id, display_name, avatar, body, posted_at
		FROM (
			SELECT room, user_id, display_name, avatar, body, posted_at, id
			FROM chat_messages
			WHERE room = $1
			ORDER BY id DESC
			LIMIT $2
		) recent
		ORDER BY id ASC`

	rows, err := a.db.QueryContext(ctx, query, room, n)
	if err != nil {
		return nil, fmt.Errorf("history: query room %q: %w", room, err)
	}
	defer rows.Close()

	var msgs []protocol.Message
	for rows.Next() {
		var m protocol.Message
		if err := rows.Scan(&m.Room, &m.UserID, &m.DisplayName, &m.Avatar, &m.Text, &m.PostedAt); err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: rows: %w", err)
	}
	return msgs, nil
}

// CountByRoom returns the number of archived messages for a room.
func (a *Archive) CountByRoom(ctx context.Context, room string) (int64, error) {
	const query = `SELECT COUNT(*) FROM chat_messages WHERE room = $1`

	var n int64
	if err := a.db.QueryRowContext(ctx, query, room).Scan(&n); err != nil {
		return 0, fmt.Errorf("history: count room %q: %w", room, err)
	}
	return n, nil
}
