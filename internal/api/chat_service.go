package api

import (
	"context"

	"github.com/matheus3301/chatline/internal/cipher"
	"github.com/matheus3301/chatline/internal/fault"
	"github.com/matheus3301/chatline/internal/logging"
	"github.com/matheus3301/chatline/internal/rpc"
	"github.com/matheus3301/chatline/internal/store"
	"go.uber.org/zap"
)

// DefaultMaxPageSize bounds limit on every paginated call.
const DefaultMaxPageSize = 500

// ChatSelector tracks which chat the user has open.
type ChatSelector interface {
	SetActiveChat(chatID string)
	ActiveChat() string
}

// PopulationTrigger is poked after seeding so new chats receive live messages.
type PopulationTrigger interface {
	Trigger()
}

// ChatService implements chatline.v1.ChatService.
type ChatService struct {
	db       *store.DB
	selector ChatSelector
	trigger  PopulationTrigger
	codec    cipher.Codec
	seed     store.SeedConfig
	maxPage  int
	logger   *zap.Logger
}

// NewChatService creates a new chat service backed by the store.
func NewChatService(db *store.DB, selector ChatSelector, trigger PopulationTrigger, codec cipher.Codec, seed store.SeedConfig, maxPage int, logger *zap.Logger) *ChatService {
	if maxPage <= 0 {
		maxPage = DefaultMaxPageSize
	}
	return &ChatService{
		db:       db,
		selector: selector,
		trigger:  trigger,
		codec:    codec,
		seed:     seed,
		maxPage:  maxPage,
		logger:   logging.OrNop(logger),
	}
}

func (s *ChatService) GetChats(ctx context.Context, req *rpc.GetChatsRequest) (*rpc.GetChatsResponse, error) {
	if err := validateLimit(req.Limit, s.maxPage); err != nil {
		return nil, toStatus("get chats", err)
	}
	if req.Offset < 0 {
		return nil, toStatus("get chats", invalid("offset must not be negative, got %d", req.Offset))
	}

	page, err := s.db.ListChats(ctx, req.Limit, req.Offset)
	if err != nil {
		return nil, toStatus("get chats", err)
	}

	chats := make([]rpc.Chat, 0, len(page.Items))
	for _, c := range page.Items {
		chats = append(chats, chatToRPC(c))
	}
	return &rpc.GetChatsResponse{Chats: chats, HasMore: page.HasMore}, nil
}

func (s *ChatService) MarkChatAsRead(ctx context.Context, req *rpc.ChatRequest) (*rpc.Empty, error) {
	if err := validateChatID(req.ChatID); err != nil {
		return nil, toStatus("mark read", err)
	}
	if err := s.db.MarkChatAsRead(ctx, req.ChatID); err != nil {
		return nil, toStatus("mark read", err)
	}
	return &rpc.Empty{}, nil
}

// SelectChat makes chatId the active chat; live messages for it do not count
// as unread. An empty chatId clears the selection.
func (s *ChatService) SelectChat(ctx context.Context, req *rpc.ChatRequest) (*rpc.Empty, error) {
	if req.ChatID != "" {
		c, err := s.db.GetChat(ctx, req.ChatID)
		if err != nil {
			return nil, toStatus("select chat", err)
		}
		if c == nil {
			return nil, toStatus("select chat", fault.ErrNotFound)
		}
	}
	s.selector.SetActiveChat(req.ChatID)
	return &rpc.Empty{}, nil
}

func (s *ChatService) SeedDatabase(ctx context.Context, _ *rpc.Empty) (*rpc.SeedDatabaseResponse, error) {
	cfg := s.seed
	cfg.Encode = s.codec.Encode

	res, err := s.db.Seed(ctx, cfg)
	if err != nil {
		return nil, toStatus("seed database", err)
	}
	if res.Skipped {
		s.logger.Info("seed skipped, database not empty")
	} else {
		s.logger.Info("database seeded",
			zap.Int("chats", res.Chats),
			zap.Int("messages", res.Messages),
			zap.Duration("duration", res.Duration))
		if s.trigger != nil {
			s.trigger.Trigger()
		}
	}
	return &rpc.SeedDatabaseResponse{
		Skipped:    res.Skipped,
		Chats:      res.Chats,
		Messages:   res.Messages,
		DurationMs: res.Duration.Milliseconds(),
	}, nil
}

func chatToRPC(c store.Chat) rpc.Chat {
	return rpc.Chat{
		ID:            c.ID,
		Title:         c.Title,
		LastMessageAt: c.LastMessageAt,
		UnreadCount:   c.UnreadCount,
	}
}
