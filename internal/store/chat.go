package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/matheus3301/chatline/internal/fault"
)

// ListChats returns chats by last message timestamp descending, ties ordered by id.
// One extra row is fetched to compute HasMore and never returned.
func (db *DB) ListChats(ctx context.Context, limit, offset int) (Page[Chat], error) {
	defer observe("list_chats")()
	if limit <= 0 || offset < 0 {
		return Page[Chat]{}, fmt.Errorf("list chats limit=%d offset=%d: %w", limit, offset, fault.ErrInvalidArgument)
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, title, last_message_at, unread_count
		FROM chats
		ORDER BY last_message_at DESC, id ASC
		LIMIT ? OFFSET ?`, limit+1, offset)
	if err != nil {
		return Page[Chat]{}, err
	}
	defer func() { _ = rows.Close() }()

	var chats []Chat
	for rows.Next() {
		var c Chat
		if err := rows.Scan(&c.ID, &c.Title, &c.LastMessageAt, &c.UnreadCount); err != nil {
			return Page[Chat]{}, err
		}
		chats = append(chats, c)
	}
	if err := rows.Err(); err != nil {
		return Page[Chat]{}, err
	}
	return trim(chats, limit), nil
}

// GetChat returns a single chat by id, or nil if it does not exist.
func (db *DB) GetChat(ctx context.Context, id string) (*Chat, error) {
	var c Chat
	err := db.QueryRowContext(ctx, `
		SELECT id, title, last_message_at, unread_count FROM chats WHERE id = ?`, id).
		Scan(&c.ID, &c.Title, &c.LastMessageAt, &c.UnreadCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// MarkChatAsRead resets the unread counter. Unknown ids are ignored.
func (db *DB) MarkChatAsRead(ctx context.Context, id string) error {
	defer observe("mark_read")()
	_, err := db.ExecContext(ctx, `UPDATE chats SET unread_count = 0 WHERE id = ?`, id)
	return err
}

// ChatIDs returns the ids of all chats.
func (db *DB) ChatIDs(ctx context.Context) ([]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT id FROM chats`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ChatCount returns the total number of chats.
func (db *DB) ChatCount(ctx context.Context) (int64, error) {
	var count int64
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chats`).Scan(&count)
	return count, err
}
