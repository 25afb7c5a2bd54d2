package api

import (
	"context"
	"fmt"
	"net"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/matheus3301/chatline/internal/bus"
	"github.com/matheus3301/chatline/internal/cipher"
	"github.com/matheus3301/chatline/internal/ingest"
	"github.com/matheus3301/chatline/internal/rpc"
	"github.com/matheus3301/chatline/internal/status"
	"github.com/matheus3301/chatline/internal/store"
	"github.com/matheus3301/chatline/internal/transport"
	"github.com/matheus3301/chatline/internal/wire"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	grpcstatus "google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

type fakeConnector struct {
	machine *status.Machine

	mu          sync.Mutex
	connects    int
	disconnects int
}

func (f *fakeConnector) Connect() {
	f.mu.Lock()
	f.connects++
	f.mu.Unlock()
	_ = f.machine.Transition(status.Reconnecting)
}

func (f *fakeConnector) Disconnect() {
	f.mu.Lock()
	f.disconnects++
	f.mu.Unlock()
	_ = f.machine.Transition(status.Offline)
}

func (f *fakeConnector) State() status.State { return f.machine.Current() }

func (f *fakeConnector) Info() transport.Info {
	return transport.Info{State: f.machine.Current(), Since: f.machine.Since()}
}

type fakeDropper struct{ sessions int }

func (f *fakeDropper) SimulateConnectionDrop() int { return f.sessions }
func (f *fakeDropper) Sessions() int               { return f.sessions }

type countingTrigger struct{ n int }

func (c *countingTrigger) Trigger() { c.n++ }

type harness struct {
	db      *store.DB
	bus     *bus.Bus
	engine  *ingest.Engine
	conn    *fakeConnector
	trigger *countingTrigger
	client  *rpc.Client
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	b := bus.New()
	h := &harness{
		db:      db,
		bus:     b,
		engine:  ingest.NewEngine(db, b, cipher.Prefix{}, nil),
		conn:    &fakeConnector{machine: status.NewMachine(b)},
		trigger: &countingTrigger{},
	}

	seed := store.SeedConfig{Chats: 5, Messages: 50}
	srv := grpc.NewServer()
	rpc.RegisterChatServiceServer(srv, NewChatService(db, h.engine, h.trigger, cipher.Prefix{}, seed, 100, nil))
	rpc.RegisterMessageServiceServer(srv, NewMessageService(db, b, 100))
	rpc.RegisterConnectionServiceServer(srv, NewConnectionService(h.conn, &fakeDropper{sessions: 2}, h.engine, b, db))

	lis := bufconn.Listen(1 << 20)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	cc, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = cc.Close() })

	h.client = &rpc.Client{
		Chat:       rpc.NewChatServiceClient(cc),
		Message:    rpc.NewMessageServiceClient(cc),
		Connection: rpc.NewConnectionServiceClient(cc),
	}
	return h
}

func (h *harness) chat(t *testing.T, id string, last int64) {
	t.Helper()
	_, err := h.db.ExecContext(context.Background(),
		`INSERT INTO chats (id, title, last_message_at, unread_count) VALUES (?, ?, ?, 0)`,
		id, "Chat "+id, last)
	if err != nil {
		t.Fatal(err)
	}
}

func wantCode(t *testing.T, err error, code codes.Code) {
	t.Helper()
	if got := grpcstatus.Code(err); got != code {
		t.Fatalf("code = %v, want %v (err %v)", got, code, err)
	}
}

func TestGetChatsValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	cases := []struct {
		name string
		req  rpc.GetChatsRequest
	}{
		{"zero limit", rpc.GetChatsRequest{Limit: 0}},
		{"negative limit", rpc.GetChatsRequest{Limit: -1}},
		{"limit above max", rpc.GetChatsRequest{Limit: 101}},
		{"negative offset", rpc.GetChatsRequest{Limit: 10, Offset: -1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.client.Chat.GetChats(ctx, &tc.req)
			wantCode(t, err, codes.InvalidArgument)
		})
	}
}

func TestGetChatsPaginates(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	for i := range 5 {
		h.chat(t, fmt.Sprintf("c%d", i), int64(i*100))
	}

	first, err := h.client.Chat.GetChats(ctx, &rpc.GetChatsRequest{Limit: 3})
	if err != nil {
		t.Fatal(err)
	}
	if len(first.Chats) != 3 || !first.HasMore {
		t.Fatalf("first page = %d chats hasMore=%v", len(first.Chats), first.HasMore)
	}
	if first.Chats[0].ID != "c4" {
		t.Errorf("newest chat = %q, want c4", first.Chats[0].ID)
	}

	second, err := h.client.Chat.GetChats(ctx, &rpc.GetChatsRequest{Limit: 3, Offset: 3})
	if err != nil {
		t.Fatal(err)
	}
	if len(second.Chats) != 2 || second.HasMore {
		t.Fatalf("second page = %d chats hasMore=%v", len(second.Chats), second.HasMore)
	}
}

func TestMarkChatAsRead(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.chat(t, "c1", 0)

	if err := h.engine.HandleMessage(ctx, wire.NewMessage{ChatID: "c1", MessageID: "m1", TS: 10, Sender: "Bob", Body: "hi"}); err != nil {
		t.Fatal(err)
	}
	if _, err := h.client.Chat.MarkChatAsRead(ctx, &rpc.ChatRequest{ChatID: "c1"}); err != nil {
		t.Fatal(err)
	}
	c, err := h.db.GetChat(ctx, "c1")
	if err != nil {
		t.Fatal(err)
	}
	if c.UnreadCount != 0 {
		t.Errorf("unread = %d, want 0", c.UnreadCount)
	}

	_, err = h.client.Chat.MarkChatAsRead(ctx, &rpc.ChatRequest{})
	wantCode(t, err, codes.InvalidArgument)
}

func TestSelectChat(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.chat(t, "c1", 0)

	if _, err := h.client.Chat.SelectChat(ctx, &rpc.ChatRequest{ChatID: "c1"}); err != nil {
		t.Fatal(err)
	}
	if got := h.engine.ActiveChat(); got != "c1" {
		t.Fatalf("active chat = %q", got)
	}

	_, err := h.client.Chat.SelectChat(ctx, &rpc.ChatRequest{ChatID: "nope"})
	wantCode(t, err, codes.NotFound)
	if got := h.engine.ActiveChat(); got != "c1" {
		t.Errorf("active chat changed to %q after failed select", got)
	}

	if _, err := h.client.Chat.SelectChat(ctx, &rpc.ChatRequest{}); err != nil {
		t.Fatal(err)
	}
	if got := h.engine.ActiveChat(); got != "" {
		t.Errorf("active chat = %q, want cleared", got)
	}
}

func TestSeedDatabase(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	res, err := h.client.Chat.SeedDatabase(ctx, &rpc.Empty{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Skipped || res.Chats != 5 || res.Messages != 50 {
		t.Fatalf("seed = %+v", res)
	}
	if h.trigger.n != 1 {
		t.Errorf("population triggers = %d, want 1", h.trigger.n)
	}

	again, err := h.client.Chat.SeedDatabase(ctx, &rpc.Empty{})
	if err != nil {
		t.Fatal(err)
	}
	if !again.Skipped {
		t.Error("second seed should be skipped")
	}
	if h.trigger.n != 1 {
		t.Errorf("skipped seed triggered a refresh")
	}

	chats, err := h.client.Chat.GetChats(ctx, &rpc.GetChatsRequest{Limit: 1})
	if err != nil {
		t.Fatal(err)
	}
	msgs, err := h.client.Message.GetMessages(ctx, &rpc.GetMessagesRequest{ChatID: chats.Chats[0].ID, Limit: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs.Messages) != 1 || !strings.HasPrefix(msgs.Messages[0].Body, cipher.Tag) {
		t.Errorf("seeded body not encoded: %+v", msgs.Messages)
	}
}

func TestGetMessages(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.chat(t, "c1", 0)
	for i := range 5 {
		m := wire.NewMessage{ChatID: "c1", MessageID: fmt.Sprintf("m%d", i), TS: int64(i + 1), Sender: "Bob", Body: fmt.Sprintf("hello %d", i)}
		if err := h.engine.HandleMessage(ctx, m); err != nil {
			t.Fatal(err)
		}
	}

	page, err := h.client.Message.GetMessages(ctx, &rpc.GetMessagesRequest{ChatID: "c1", Limit: 3})
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Messages) != 3 || !page.HasMore {
		t.Fatalf("page = %d messages hasMore=%v", len(page.Messages), page.HasMore)
	}
	if page.Messages[0].ID != "m2" || page.Messages[2].ID != "m4" {
		t.Errorf("page order = %s..%s, want m2..m4", page.Messages[0].ID, page.Messages[2].ID)
	}
	if page.Messages[2].Body != cipher.Encode("hello 4") {
		t.Errorf("body = %q, want encoded", page.Messages[2].Body)
	}

	before := page.Messages[0].TS
	older, err := h.client.Message.GetMessages(ctx, &rpc.GetMessagesRequest{ChatID: "c1", Limit: 3, BeforeTs: &before})
	if err != nil {
		t.Fatal(err)
	}
	if len(older.Messages) != 2 || older.HasMore {
		t.Fatalf("older = %d messages hasMore=%v", len(older.Messages), older.HasMore)
	}

	neg := int64(-1)
	_, err = h.client.Message.GetMessages(ctx, &rpc.GetMessagesRequest{ChatID: "c1", Limit: 3, BeforeTs: &neg})
	wantCode(t, err, codes.InvalidArgument)
	_, err = h.client.Message.GetMessages(ctx, &rpc.GetMessagesRequest{Limit: 3})
	wantCode(t, err, codes.InvalidArgument)
	_, err = h.client.Message.GetMessages(ctx, &rpc.GetMessagesRequest{ChatID: "c1", Limit: 0})
	wantCode(t, err, codes.InvalidArgument)
}

func TestSearchMessages(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.chat(t, "c1", 0)
	for i, body := range []string{"lunch today?", "no thanks", "lunch tomorrow"} {
		m := wire.NewMessage{ChatID: "c1", MessageID: fmt.Sprintf("m%d", i), TS: int64(i + 1), Sender: "Bob", Body: body}
		if err := h.engine.HandleMessage(ctx, m); err != nil {
			t.Fatal(err)
		}
	}

	res, err := h.client.Message.SearchMessages(ctx, &rpc.SearchMessagesRequest{ChatID: "c1", Query: "lunch", Limit: 10})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Messages) != 2 || res.Messages[0].ID != "m2" {
		t.Fatalf("search = %+v", res.Messages)
	}
}

func TestWatchMessages(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	h.chat(t, "c1", 0)

	stream, err := h.client.Message.WatchMessages(ctx, &rpc.Empty{})
	if err != nil {
		t.Fatal(err)
	}
	waitSubscribers(t, h.bus, 1)

	if err := h.engine.HandleMessage(ctx, wire.NewMessage{ChatID: "c1", MessageID: "m1", TS: 1, Sender: "Bob", Body: "hey"}); err != nil {
		t.Fatal(err)
	}
	msg, err := stream.Recv()
	if err != nil {
		t.Fatal(err)
	}
	if msg.ID != "m1" || msg.Body != "hey" {
		t.Errorf("watched message = %+v, want plaintext m1", msg)
	}
}

func TestConnectionLifecycle(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stream, err := h.client.Connection.WatchState(ctx, &rpc.Empty{})
	if err != nil {
		t.Fatal(err)
	}
	initial, err := stream.Recv()
	if err != nil {
		t.Fatal(err)
	}
	if initial.To != string(status.Offline) {
		t.Fatalf("initial state = %q", initial.To)
	}

	resp, err := h.client.Connection.Connect(ctx, &rpc.Empty{})
	if err != nil {
		t.Fatal(err)
	}
	if resp.State != string(status.Reconnecting) {
		t.Errorf("connect state = %q", resp.State)
	}
	evt, err := stream.Recv()
	if err != nil {
		t.Fatal(err)
	}
	if evt.From != string(status.Offline) || evt.To != string(status.Reconnecting) {
		t.Errorf("event = %+v", evt)
	}

	resp, err = h.client.Connection.Disconnect(ctx, &rpc.Empty{})
	if err != nil {
		t.Fatal(err)
	}
	if resp.State != string(status.Offline) {
		t.Errorf("disconnect state = %q", resp.State)
	}

	drop, err := h.client.Connection.SimulateDrop(ctx, &rpc.Empty{})
	if err != nil {
		t.Fatal(err)
	}
	if drop.Dropped != 2 {
		t.Errorf("dropped = %d, want 2", drop.Dropped)
	}
}

func TestGetStatus(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.chat(t, "c1", 0)
	h.engine.SetActiveChat("c1")

	st, err := h.client.Connection.GetStatus(ctx, &rpc.Empty{})
	if err != nil {
		t.Fatal(err)
	}
	if st.State != string(status.Offline) || st.ChatCount != 1 || st.MessageCount != 0 {
		t.Errorf("status = %+v", st)
	}
	if st.Sessions != 2 || st.ActiveChat != "c1" {
		t.Errorf("status = %+v", st)
	}
}

func TestGetStatusSurfacesStoreErrors(t *testing.T) {
	h := newHarness(t)
	if err := h.db.Close(); err != nil {
		t.Fatal(err)
	}

	_, err := h.client.Connection.GetStatus(context.Background(), &rpc.Empty{})
	wantCode(t, err, codes.Internal)
}

func TestSimulateDropWithoutServer(t *testing.T) {
	svc := NewConnectionService(&fakeConnector{machine: status.NewMachine(bus.New())}, nil, nil, bus.New(), nil)
	resp, err := svc.SimulateDrop(context.Background(), &rpc.Empty{})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Dropped != 0 {
		t.Errorf("dropped = %d", resp.Dropped)
	}
}

func waitSubscribers(t *testing.T, b *bus.Bus, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for b.Subscribers() < n {
		if time.Now().After(deadline) {
			t.Fatalf("subscribers = %d, want %d", b.Subscribers(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
