// Package rpc is the gateway's wire contract: message types, service
// descriptors and typed clients for gRPC. Messages travel as protobuf
// described by proto/chatline/v1/chatline.proto.
package rpc

import "google.golang.org/protobuf/types/known/emptypb"

// Chat is a chat row as returned by GetChats.
type Chat struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	LastMessageAt int64  `json:"lastMessageAt"`
	UnreadCount   int    `json:"unreadCount"`
}

// Message is a message row. Body is encoded in GetMessages and
// SearchMessages results and plaintext in WatchMessages.
type Message struct {
	ID     string `json:"id"`
	ChatID string `json:"chatId"`
	TS     int64  `json:"ts"`
	Sender string `json:"sender"`
	Body   string `json:"body"`
}

type Empty = emptypb.Empty

type GetChatsRequest struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

type GetChatsResponse struct {
	Chats   []Chat `json:"chats"`
	HasMore bool   `json:"hasMore"`
}

type ChatRequest struct {
	ChatID string `json:"chatId"`
}

type SeedDatabaseResponse struct {
	Skipped    bool  `json:"skipped"`
	Chats      int   `json:"chats"`
	Messages   int   `json:"messages"`
	DurationMs int64 `json:"durationMs"`
}

type GetMessagesRequest struct {
	ChatID   string `json:"chatId"`
	Limit    int    `json:"limit"`
	BeforeTs *int64 `json:"beforeTs,omitempty"`
}

type SearchMessagesRequest struct {
	ChatID string `json:"chatId"`
	Query  string `json:"query"`
	Limit  int    `json:"limit"`
}

type MessagesResponse struct {
	Messages []Message `json:"messages"`
	HasMore  bool      `json:"hasMore"`
}

type StateResponse struct {
	State string `json:"state"`
}

type SimulateDropResponse struct {
	Dropped int `json:"dropped"`
}

// StateEvent is one connection state change.
type StateEvent struct {
	From string `json:"from"`
	To   string `json:"to"`
	AtMs int64  `json:"atMs"`
}

type GetStatusResponse struct {
	State        string `json:"state"`
	Attempt      int    `json:"attempt"`
	StateSinceMs int64  `json:"stateSinceMs"`
	ChatCount    int64  `json:"chatCount"`
	MessageCount int64  `json:"messageCount"`
	UptimeMs     int64  `json:"uptimeMs"`
	Sessions     int    `json:"sessions"`
	ActiveChat   string `json:"activeChat"`
}
