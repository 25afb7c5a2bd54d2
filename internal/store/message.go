package store

import (
	"context"
	"fmt"
	"slices"

	"github.com/matheus3301/chatline/internal/fault"
)

const messageColumns = `id, chat_id, ts, sender, body`

// InsertMessage appends a message and bumps its chat in one transaction:
// last_message_at becomes max(current, ts) and unread_count grows by one when
// countUnread is set. Returns fault.ErrNotFound if the chat does not exist.
func (db *DB) InsertMessage(ctx context.Context, m *Message, countUnread bool) error {
	defer observe("insert_message")()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	inc := 0
	if countUnread {
		inc = 1
	}
	res, err := tx.ExecContext(ctx, `
		UPDATE chats SET
			last_message_at = MAX(last_message_at, ?),
			unread_count = unread_count + ?
		WHERE id = ?`, m.TS, inc, m.ChatID)
	if err != nil {
		return fmt.Errorf("update chat %q: %w", m.ChatID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update chat %q: %w", m.ChatID, err)
	}
	if n == 0 {
		return fmt.Errorf("insert message %q: chat %q: %w", m.ID, m.ChatID, fault.ErrNotFound)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO messages (id, chat_id, ts, sender, body) VALUES (?, ?, ?, ?, ?)`,
		m.ID, m.ChatID, m.TS, m.Sender, m.Body); err != nil {
		return fmt.Errorf("insert message %q: %w", m.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ListMessages returns the newest page of a chat's messages older than beforeTs
// (all messages when beforeTs is nil). Rows are fetched newest first and the page
// is returned oldest to newest.
func (db *DB) ListMessages(ctx context.Context, chatID string, limit int, beforeTs *int64) (Page[Message], error) {
	defer observe("list_messages")()
	if limit <= 0 {
		return Page[Message]{}, fmt.Errorf("list messages limit=%d: %w", limit, fault.ErrInvalidArgument)
	}

	q := `SELECT ` + messageColumns + ` FROM messages WHERE chat_id = ?`
	args := []any{chatID}
	if beforeTs != nil {
		q += ` AND ts < ?`
		args = append(args, *beforeTs)
	}
	q += ` ORDER BY ts DESC, seq DESC LIMIT ?`
	args = append(args, limit+1)

	msgs, err := db.queryMessages(ctx, q, args...)
	if err != nil {
		return Page[Message]{}, err
	}
	page := trim(msgs, limit)
	slices.Reverse(page.Items)
	return page, nil
}

// SearchMessages returns messages of a chat whose stored body contains substr
// (case-sensitive), newest first.
func (db *DB) SearchMessages(ctx context.Context, chatID, substr string, limit int) (Page[Message], error) {
	defer observe("search_messages")()
	if limit <= 0 {
		return Page[Message]{}, fmt.Errorf("search messages limit=%d: %w", limit, fault.ErrInvalidArgument)
	}

	// instr() is case-sensitive, unlike LIKE for ASCII.
	msgs, err := db.queryMessages(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE chat_id = ? AND instr(body, ?) > 0
		ORDER BY ts DESC, seq DESC
		LIMIT ?`, chatID, substr, limit+1)
	if err != nil {
		return Page[Message]{}, err
	}
	return trim(msgs, limit), nil
}

// MessageCount returns the total number of messages.
func (db *DB) MessageCount(ctx context.Context) (int64, error) {
	var count int64
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages`).Scan(&count)
	return count, err
}

func (db *DB) queryMessages(ctx context.Context, q string, args ...any) ([]Message, error) {
	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var msgs []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ChatID, &m.TS, &m.Sender, &m.Body); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
