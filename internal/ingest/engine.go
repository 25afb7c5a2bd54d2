// Package ingest commits live messages to the store and announces them.
package ingest

import (
	"context"
	"sync"
	"time"

	"github.com/matheus3301/chatline/internal/bus"
	"github.com/matheus3301/chatline/internal/cipher"
	"github.com/matheus3301/chatline/internal/logging"
	"github.com/matheus3301/chatline/internal/metrics"
	"github.com/matheus3301/chatline/internal/store"
	"github.com/matheus3301/chatline/internal/wire"
	"go.uber.org/zap"
)

// Engine turns NEW_MESSAGE events into stored messages. It is the transport
// client's Handler.
type Engine struct {
	db     *store.DB
	bus    *bus.Bus
	codec  cipher.Codec
	logger *zap.Logger

	mu     sync.RWMutex
	active string
}

// NewEngine creates a new ingest engine.
func NewEngine(db *store.DB, b *bus.Bus, codec cipher.Codec, logger *zap.Logger) *Engine {
	return &Engine{
		db:     db,
		bus:    b,
		codec:  codec,
		logger: logging.OrNop(logger).Named("ingest"),
	}
}

// HandleMessage encodes the body, inserts the message and then publishes
// message.new with the plaintext body. Messages for the active chat do not
// count as unread. Nothing is published when the insert fails.
func (e *Engine) HandleMessage(ctx context.Context, m wire.NewMessage) error {
	msg := store.Message{
		ID:     m.MessageID,
		ChatID: m.ChatID,
		TS:     m.TS,
		Sender: m.Sender,
		Body:   e.codec.Encode(m.Body),
	}
	countUnread := m.ChatID != e.ActiveChat()

	if err := e.db.InsertMessage(ctx, &msg, countUnread); err != nil {
		metrics.MessagesIngested.WithLabelValues("error").Inc()
		return err
	}
	metrics.MessagesIngested.WithLabelValues("ok").Inc()

	msg.Body = e.codec.Decode(msg.Body)
	e.bus.Publish(bus.Event{
		Kind:      bus.KindMessageNew,
		Timestamp: time.Now(),
		Payload:   msg,
	})
	e.logger.Debug("message ingested",
		zap.String("chat_id", msg.ChatID),
		zap.String("message_id", msg.ID),
		zap.Bool("unread", countUnread),
	)
	return nil
}

// SetActiveChat records the chat the user is looking at. Empty clears it.
func (e *Engine) SetActiveChat(chatID string) {
	e.mu.Lock()
	e.active = chatID
	e.mu.Unlock()
}

// ActiveChat returns the selected chat, or "".
func (e *Engine) ActiveChat() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.active
}
