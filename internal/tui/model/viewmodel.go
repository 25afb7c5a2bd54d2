package model

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/matheus3301/chatline/internal/cipher"
	"github.com/matheus3301/chatline/internal/rpc"
)

const (
	ChatPageSize    = 100
	MessagePageSize = 50
	SearchLimit     = 50
)

// ErrNoActiveChat is returned by calls that need an open chat.
var ErrNoActiveChat = errors.New("no chat open")

// Change tells the UI which part of the view model moved.
type Change int

const (
	ChangeChats Change = iota
	ChangeThread
	ChangeState
)

// ViewModel caches gateway state for the viewer. Bodies it holds are always
// plaintext. Every method is safe to call from any goroutine.
type ViewModel struct {
	chat    rpc.ChatServiceClient
	message rpc.MessageServiceClient
	conn    rpc.ConnectionServiceClient
	codec   cipher.Codec

	mu           sync.RWMutex
	chats        []rpc.Chat
	hasMoreChats bool
	active       string
	messages     []rpc.Message
	hasOlder     bool
	results      []rpc.Message
	status       *rpc.GetStatusResponse
	state        string
}

// NewViewModel creates a view model over the daemon's services.
func NewViewModel(c *rpc.Client, codec cipher.Codec) *ViewModel {
	return newViewModel(c.Chat, c.Message, c.Connection, codec)
}

func newViewModel(chat rpc.ChatServiceClient, message rpc.MessageServiceClient, conn rpc.ConnectionServiceClient, codec cipher.Codec) *ViewModel {
	return &ViewModel{chat: chat, message: message, conn: conn, codec: codec}
}

// LoadChats replaces the list with the first page.
func (vm *ViewModel) LoadChats(ctx context.Context) error {
	resp, err := vm.chat.GetChats(ctx, &rpc.GetChatsRequest{Limit: ChatPageSize})
	if err != nil {
		return err
	}
	vm.mu.Lock()
	vm.chats = resp.Chats
	vm.hasMoreChats = resp.HasMore
	vm.mu.Unlock()
	return nil
}

// LoadMoreChats appends the next page. It reports how many chats were added.
func (vm *ViewModel) LoadMoreChats(ctx context.Context) (int, error) {
	vm.mu.RLock()
	offset, more := len(vm.chats), vm.hasMoreChats
	vm.mu.RUnlock()
	if !more {
		return 0, nil
	}

	resp, err := vm.chat.GetChats(ctx, &rpc.GetChatsRequest{Limit: ChatPageSize, Offset: offset})
	if err != nil {
		return 0, err
	}
	vm.mu.Lock()
	defer vm.mu.Unlock()
	seen := make(map[string]bool, len(vm.chats))
	for _, c := range vm.chats {
		seen[c.ID] = true
	}
	added := 0
	for _, c := range resp.Chats {
		if !seen[c.ID] {
			vm.chats = append(vm.chats, c)
			added++
		}
	}
	vm.hasMoreChats = resp.HasMore
	return added, nil
}

// OpenChat selects chatID on the daemon, loads its newest page and marks it read.
func (vm *ViewModel) OpenChat(ctx context.Context, chatID string) error {
	if _, err := vm.chat.SelectChat(ctx, &rpc.ChatRequest{ChatID: chatID}); err != nil {
		return err
	}
	resp, err := vm.message.GetMessages(ctx, &rpc.GetMessagesRequest{ChatID: chatID, Limit: MessagePageSize})
	if err != nil {
		return err
	}
	if _, err := vm.chat.MarkChatAsRead(ctx, &rpc.ChatRequest{ChatID: chatID}); err != nil {
		return err
	}

	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.active = chatID
	vm.messages = vm.decode(resp.Messages)
	vm.hasOlder = resp.HasMore
	vm.results = nil
	if i := vm.chatIndex(chatID); i >= 0 {
		vm.chats[i].UnreadCount = 0
	}
	return nil
}

// CloseChat clears the daemon's active chat.
func (vm *ViewModel) CloseChat(ctx context.Context) error {
	vm.mu.Lock()
	vm.active = ""
	vm.messages = nil
	vm.hasOlder = false
	vm.results = nil
	vm.mu.Unlock()
	_, err := vm.chat.SelectChat(ctx, &rpc.ChatRequest{})
	return err
}

// LoadOlder prepends the page before the oldest loaded message and reports
// how many messages were added.
func (vm *ViewModel) LoadOlder(ctx context.Context) (int, error) {
	vm.mu.RLock()
	chatID, more := vm.active, vm.hasOlder
	var before int64
	if len(vm.messages) > 0 {
		before = vm.messages[0].TS
	}
	vm.mu.RUnlock()
	if chatID == "" {
		return 0, ErrNoActiveChat
	}
	if !more {
		return 0, nil
	}

	resp, err := vm.message.GetMessages(ctx, &rpc.GetMessagesRequest{ChatID: chatID, Limit: MessagePageSize, BeforeTs: &before})
	if err != nil {
		return 0, err
	}
	older := vm.decode(resp.Messages)

	vm.mu.Lock()
	defer vm.mu.Unlock()
	if vm.active != chatID {
		return 0, nil
	}
	vm.messages = append(older, vm.messages...)
	vm.hasOlder = resp.HasMore
	return len(older), nil
}

// Search looks for query in the open chat, newest first.
func (vm *ViewModel) Search(ctx context.Context, query string) ([]rpc.Message, error) {
	chatID := vm.ActiveChat()
	if chatID == "" {
		return nil, ErrNoActiveChat
	}
	resp, err := vm.message.SearchMessages(ctx, &rpc.SearchMessagesRequest{ChatID: chatID, Query: query, Limit: SearchLimit})
	if err != nil {
		return nil, err
	}
	results := vm.decode(resp.Messages)
	vm.mu.Lock()
	vm.results = results
	vm.mu.Unlock()
	return results, nil
}

// Seed asks the daemon to seed and reloads the list when it did.
func (vm *ViewModel) Seed(ctx context.Context) (*rpc.SeedDatabaseResponse, error) {
	resp, err := vm.chat.SeedDatabase(ctx, &rpc.Empty{})
	if err != nil {
		return nil, err
	}
	if !resp.Skipped {
		if err := vm.LoadChats(ctx); err != nil {
			return resp, err
		}
	}
	return resp, nil
}

func (vm *ViewModel) Connect(ctx context.Context) error {
	resp, err := vm.conn.Connect(ctx, &rpc.Empty{})
	if err != nil {
		return err
	}
	vm.setState(resp.State)
	return nil
}

func (vm *ViewModel) Disconnect(ctx context.Context) error {
	resp, err := vm.conn.Disconnect(ctx, &rpc.Empty{})
	if err != nil {
		return err
	}
	vm.setState(resp.State)
	return nil
}

// Drop asks the event server to cut every session and reports how many it cut.
func (vm *ViewModel) Drop(ctx context.Context) (int, error) {
	resp, err := vm.conn.SimulateDrop(ctx, &rpc.Empty{})
	if err != nil {
		return 0, err
	}
	return resp.Dropped, nil
}

// LoadStatus refreshes the header data.
func (vm *ViewModel) LoadStatus(ctx context.Context) error {
	resp, err := vm.conn.GetStatus(ctx, &rpc.Empty{})
	if err != nil {
		vm.mu.Lock()
		vm.status = nil
		vm.mu.Unlock()
		return err
	}
	vm.mu.Lock()
	vm.status = resp
	vm.state = resp.State
	vm.mu.Unlock()
	return nil
}

// ApplyMessage folds a live message into the list and the open thread.
// It reports which views changed.
func (vm *ViewModel) ApplyMessage(m rpc.Message) []Change {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	var changes []Change
	if i := vm.chatIndex(m.ChatID); i >= 0 {
		c := &vm.chats[i]
		c.LastMessageAt = max(c.LastMessageAt, m.TS)
		if m.ChatID != vm.active {
			c.UnreadCount++
		}
		slices.SortStableFunc(vm.chats, func(a, b rpc.Chat) int {
			if n := cmp.Compare(b.LastMessageAt, a.LastMessageAt); n != 0 {
				return n
			}
			return cmp.Compare(a.ID, b.ID)
		})
		changes = append(changes, ChangeChats)
	}

	if m.ChatID == vm.active && !slices.ContainsFunc(vm.messages, func(x rpc.Message) bool { return x.ID == m.ID }) {
		vm.messages = append(vm.messages, m)
		changes = append(changes, ChangeThread)
	}
	return changes
}

// ApplyState records a state change.
func (vm *ViewModel) ApplyState(evt rpc.StateEvent) {
	vm.setState(evt.To)
}

// Watch follows the message and state streams until ctx ends, calling notify
// after every applied change. Broken streams are reopened after retry.
func (vm *ViewModel) Watch(ctx context.Context, retry time.Duration, notify func(Change)) {
	var wg sync.WaitGroup
	wg.Go(func() {
		follow(ctx, retry, func(ctx context.Context) error {
			stream, err := vm.message.WatchMessages(ctx, &rpc.Empty{})
			if err != nil {
				return err
			}
			for {
				m, err := stream.Recv()
				if err != nil {
					return err
				}
				for _, c := range vm.ApplyMessage(*m) {
					notify(c)
				}
			}
		})
	})
	wg.Go(func() {
		follow(ctx, retry, func(ctx context.Context) error {
			stream, err := vm.conn.WatchState(ctx, &rpc.Empty{})
			if err != nil {
				return err
			}
			for {
				evt, err := stream.Recv()
				if err != nil {
					return err
				}
				vm.ApplyState(*evt)
				notify(ChangeState)
			}
		})
	})
	wg.Wait()
}

// follow runs a stream until ctx ends, reopening it after retry whenever it
// breaks (daemon restart, socket gone).
func follow(ctx context.Context, retry time.Duration, run func(context.Context) error) {
	for {
		_ = run(ctx)
		select {
		case <-ctx.Done():
			return
		case <-time.After(retry):
		}
	}
}

// Chats returns a snapshot of the loaded chats.
func (vm *ViewModel) Chats() []rpc.Chat {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return slices.Clone(vm.chats)
}

// HasMoreChats reports whether LoadMoreChats would fetch anything.
func (vm *ViewModel) HasMoreChats() bool {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.hasMoreChats
}

// Chat returns the loaded chat with id, or nil.
func (vm *ViewModel) Chat(id string) *rpc.Chat {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	if i := vm.chatIndex(id); i >= 0 {
		c := vm.chats[i]
		return &c
	}
	return nil
}

// Messages returns the open thread, oldest first.
func (vm *ViewModel) Messages() []rpc.Message {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return slices.Clone(vm.messages)
}

// HasOlder reports whether older messages exist for the open chat.
func (vm *ViewModel) HasOlder() bool {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.hasOlder
}

// ActiveChat returns the open chat id, or "".
func (vm *ViewModel) ActiveChat() string {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.active
}

// Results returns the last search results.
func (vm *ViewModel) Results() []rpc.Message {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return slices.Clone(vm.results)
}

// Status returns the last status, or nil when the daemon was unreachable.
func (vm *ViewModel) Status() *rpc.GetStatusResponse {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	if vm.status == nil {
		return nil
	}
	s := *vm.status
	s.State = vm.state
	return &s
}

// State returns the latest known connection state.
func (vm *ViewModel) State() string {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.state
}

func (vm *ViewModel) setState(s string) {
	vm.mu.Lock()
	vm.state = s
	vm.mu.Unlock()
}

func (vm *ViewModel) chatIndex(id string) int {
	return slices.IndexFunc(vm.chats, func(c rpc.Chat) bool { return c.ID == id })
}

func (vm *ViewModel) decode(msgs []rpc.Message) []rpc.Message {
	out := make([]rpc.Message, len(msgs))
	for i, m := range msgs {
		m.Body = vm.codec.Decode(m.Body)
		out[i] = m
	}
	return out
}

// Describe renders a seed result for the flash bar.
func Describe(res *rpc.SeedDatabaseResponse) string {
	if res.Skipped {
		return "Database already has chats, seed skipped"
	}
	return fmt.Sprintf("Seeded %d chats and %d messages in %dms", res.Chats, res.Messages, res.DurationMs)
}
