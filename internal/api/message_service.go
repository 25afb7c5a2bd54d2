package api

import (
	"context"

	"github.com/matheus3301/chatline/internal/bus"
	"github.com/matheus3301/chatline/internal/rpc"
	"github.com/matheus3301/chatline/internal/store"
	"google.golang.org/grpc"
)

// MessageService implements chatline.v1.MessageService.
type MessageService struct {
	db      *store.DB
	bus     *bus.Bus
	maxPage int
}

// NewMessageService creates a new message service.
func NewMessageService(db *store.DB, b *bus.Bus, maxPage int) *MessageService {
	if maxPage <= 0 {
		maxPage = DefaultMaxPageSize
	}
	return &MessageService{db: db, bus: b, maxPage: maxPage}
}

// GetMessages returns one page oldest to newest; bodies are encoded.
func (s *MessageService) GetMessages(ctx context.Context, req *rpc.GetMessagesRequest) (*rpc.MessagesResponse, error) {
	if err := validateChatID(req.ChatID); err != nil {
		return nil, toStatus("get messages", err)
	}
	if err := validateLimit(req.Limit, s.maxPage); err != nil {
		return nil, toStatus("get messages", err)
	}
	if req.BeforeTs != nil && *req.BeforeTs < 0 {
		return nil, toStatus("get messages", invalid("beforeTs must not be negative, got %d", *req.BeforeTs))
	}

	page, err := s.db.ListMessages(ctx, req.ChatID, req.Limit, req.BeforeTs)
	if err != nil {
		return nil, toStatus("get messages", err)
	}
	return messagesToRPC(page), nil
}

// SearchMessages matches the stored (encoded) body, newest first.
func (s *MessageService) SearchMessages(ctx context.Context, req *rpc.SearchMessagesRequest) (*rpc.MessagesResponse, error) {
	if err := validateChatID(req.ChatID); err != nil {
		return nil, toStatus("search messages", err)
	}
	if err := validateLimit(req.Limit, s.maxPage); err != nil {
		return nil, toStatus("search messages", err)
	}

	page, err := s.db.SearchMessages(ctx, req.ChatID, req.Query, req.Limit)
	if err != nil {
		return nil, toStatus("search messages", err)
	}
	return messagesToRPC(page), nil
}

// WatchMessages streams every ingested message with its plaintext body until
// the client goes away. A slow client misses messages rather than stalling ingest.
func (s *MessageService) WatchMessages(_ *rpc.Empty, stream grpc.ServerStreamingServer[rpc.Message]) error {
	ch, unsub := s.bus.Subscribe(bus.KindMessageNew, 256)
	defer unsub()

	for {
		select {
		case evt := <-ch:
			msg, ok := evt.Payload.(store.Message)
			if !ok {
				continue
			}
			out := messageToRPC(msg)
			if err := stream.Send(&out); err != nil {
				return err
			}
		case <-stream.Context().Done():
			return nil
		}
	}
}

func messagesToRPC(page store.Page[store.Message]) *rpc.MessagesResponse {
	msgs := make([]rpc.Message, 0, len(page.Items))
	for _, m := range page.Items {
		msgs = append(msgs, messageToRPC(m))
	}
	return &rpc.MessagesResponse{Messages: msgs, HasMore: page.HasMore}
}

func messageToRPC(m store.Message) rpc.Message {
	return rpc.Message{
		ID:     m.ID,
		ChatID: m.ChatID,
		TS:     m.TS,
		Sender: m.Sender,
		Body:   m.Body,
	}
}
