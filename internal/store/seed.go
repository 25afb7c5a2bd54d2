package store

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/matheus3301/chatline/internal/sample"
)

// SeedConfig controls the synthetic dataset written by Seed. Zero values take defaults.
type SeedConfig struct {
	Chats    int
	Messages int
	Window   time.Duration
	Now      func() time.Time
	Rand     *rand.Rand
	Encode   func(string) string
}

// SeedResult reports what Seed wrote.
type SeedResult struct {
	Skipped  bool
	Chats    int
	Messages int
	Duration time.Duration
}

func (c *SeedConfig) applyDefaults() {
	if c.Chats <= 0 {
		c.Chats = 200
	}
	if c.Messages < 0 {
		c.Messages = 0
	} else if c.Messages == 0 {
		c.Messages = 20000
	}
	if c.Window <= 0 {
		c.Window = 30 * 24 * time.Hour
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Rand == nil {
		c.Rand = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), rand.Uint64()))
	}
	if c.Encode == nil {
		c.Encode = func(s string) string { return s }
	}
}

// Seed fills an empty database with synthetic chats and messages in a single
// transaction. If any chat already exists nothing is written and Skipped is set.
func (db *DB) Seed(ctx context.Context, cfg SeedConfig) (*SeedResult, error) {
	defer observe("seed")()
	cfg.applyDefaults()
	start := time.Now()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var existing int64
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM chats`).Scan(&existing); err != nil {
		return nil, fmt.Errorf("count chats: %w", err)
	}
	if existing > 0 {
		return &SeedResult{Skipped: true, Duration: time.Since(start)}, nil
	}

	chatStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chats (id, title, last_message_at, unread_count) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("prepare chat insert: %w", err)
	}
	defer func() { _ = chatStmt.Close() }()

	msgStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO messages (id, chat_id, ts, sender, body) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("prepare message insert: %w", err)
	}
	defer func() { _ = msgStmt.Close() }()

	r := cfg.Rand
	nowMs := cfg.Now().UnixMilli()
	windowMs := cfg.Window.Milliseconds()
	perChat := cfg.Messages / cfg.Chats
	extra := cfg.Messages % cfg.Chats
	n := 0

	for i := range cfg.Chats {
		count := perChat
		if i < extra {
			count++
		}

		chat := Chat{
			ID:          uuid.NewString(),
			Title:       fmt.Sprintf("Chat %d - %s", i+1, sample.Sender(r)),
			UnreadCount: r.IntN(10),
		}

		msgs := make([]Message, count)
		for j := range msgs {
			n++
			msgs[j] = Message{
				ID:     uuid.NewString(),
				ChatID: chat.ID,
				TS:     nowMs - windowMs + r.Int64N(windowMs),
				Sender: sample.Sender(r),
				Body:   cfg.Encode(fmt.Sprintf("%s [%d]", sample.Body(r), n)),
			}
			chat.LastMessageAt = max(chat.LastMessageAt, msgs[j].TS)
		}
		slices.SortStableFunc(msgs, func(a, b Message) int {
			switch {
			case a.TS < b.TS:
				return -1
			case a.TS > b.TS:
				return 1
			}
			return 0
		})

		if _, err := chatStmt.ExecContext(ctx, chat.ID, chat.Title, chat.LastMessageAt, chat.UnreadCount); err != nil {
			return nil, fmt.Errorf("insert chat %d: %w", i+1, err)
		}
		for _, m := range msgs {
			if _, err := msgStmt.ExecContext(ctx, m.ID, m.ChatID, m.TS, m.Sender, m.Body); err != nil {
				return nil, fmt.Errorf("insert message %q: %w", m.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return &SeedResult{Chats: cfg.Chats, Messages: cfg.Messages, Duration: time.Since(start)}, nil
}
