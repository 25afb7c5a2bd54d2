package daemon

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/matheus3301/chatline/internal/cipher"
	"github.com/matheus3301/chatline/internal/config"
	"github.com/matheus3301/chatline/internal/lock"
	"github.com/matheus3301/chatline/internal/paths"
	"github.com/matheus3301/chatline/internal/rpc"
	"github.com/matheus3301/chatline/internal/status"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
)

// tempRoot returns a short data directory so the socket path stays under
// the 104-byte limit on macOS.
func tempRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("/tmp", "chatline-test-*")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	return dir
}

func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()
	return addr
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Log.Level = "warn"
	cfg.Events.Addr = freeAddr(t)
	cfg.Events.FirstMessageDelay = config.Duration{Duration: 20 * time.Millisecond}
	cfg.Events.MinMessageDelay = config.Duration{Duration: 10 * time.Millisecond}
	cfg.Events.MaxMessageDelay = config.Duration{Duration: 30 * time.Millisecond}
	cfg.Transport.URL = "ws://" + cfg.Events.Addr + "/ws"
	cfg.Transport.BackoffBase = config.Duration{Duration: 20 * time.Millisecond}
	cfg.Transport.BackoffJitter = config.Duration{Duration: 10 * time.Millisecond}
	cfg.Store.SeedChats = 3
	cfg.Store.SeedMessages = 30
	return cfg
}

func dial(t *testing.T, root string) *rpc.Client {
	t.Helper()
	c, err := rpc.Dial(paths.New(root).SocketPath())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func waitState(t *testing.T, c *rpc.Client, want status.State) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err := c.Connection.GetState(context.Background(), &rpc.Empty{})
		if err == nil && resp.State == string(want) {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("state never reached %q (last %+v, err %v)", want, resp, err)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestDaemonLifecycle(t *testing.T) {
	root := tempRoot(t)
	app := fxtest.New(t, Module(Params{Root: root, Config: testConfig(t)}))
	app.RequireStart()

	c := dial(t, root)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	waitState(t, c, status.Connected)

	seed, err := c.Chat.SeedDatabase(ctx, &rpc.Empty{})
	if err != nil {
		t.Fatal(err)
	}
	if seed.Skipped || seed.Chats != 3 || seed.Messages != 30 {
		t.Fatalf("seed = %+v", seed)
	}

	// Seeding triggers a population refresh, so live messages start flowing.
	watch, err := c.Message.WatchMessages(ctx, &rpc.Empty{})
	if err != nil {
		t.Fatal(err)
	}
	live, err := watch.Recv()
	if err != nil {
		t.Fatalf("no live message: %v", err)
	}
	if live.Body == "" || strings.HasPrefix(live.Body, cipher.Tag) {
		t.Errorf("live body = %q, want plaintext", live.Body)
	}

	page, err := c.Message.GetMessages(ctx, &rpc.GetMessagesRequest{ChatID: live.ChatID, Limit: 500})
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, m := range page.Messages {
		if m.ID == live.ID {
			found = true
			if m.Body != cipher.Encode(live.Body) {
				t.Errorf("stored body = %q, want %q", m.Body, cipher.Encode(live.Body))
			}
		}
	}
	if !found {
		t.Errorf("live message %s not stored", live.ID)
	}

	st, err := c.Connection.GetStatus(ctx, &rpc.Empty{})
	if err != nil {
		t.Fatal(err)
	}
	if st.ChatCount != 3 || st.MessageCount < 31 || st.Sessions != 1 {
		t.Errorf("status = %+v", st)
	}

	app.RequireStop()

	if _, err := os.Stat(paths.New(root).SocketPath()); !os.IsNotExist(err) {
		t.Errorf("socket not removed: %v", err)
	}
}

func TestDisconnectAndDrop(t *testing.T) {
	root := tempRoot(t)
	app := fxtest.New(t, Module(Params{Root: root, Config: testConfig(t)}))
	app.RequireStart()
	defer app.RequireStop()

	c := dial(t, root)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	waitState(t, c, status.Connected)

	states, err := c.Connection.WatchState(ctx, &rpc.Empty{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := states.Recv(); err != nil {
		t.Fatal(err)
	}

	drop, err := c.Connection.SimulateDrop(ctx, &rpc.Empty{})
	if err != nil {
		t.Fatal(err)
	}
	if drop.Dropped != 1 {
		t.Fatalf("dropped = %d, want 1", drop.Dropped)
	}
	evt, err := states.Recv()
	if err != nil {
		t.Fatal(err)
	}
	if evt.From != string(status.Connected) || evt.To != string(status.Reconnecting) {
		t.Errorf("after drop = %+v", evt)
	}
	waitState(t, c, status.Connected)

	resp, err := c.Connection.Disconnect(ctx, &rpc.Empty{})
	if err != nil {
		t.Fatal(err)
	}
	if resp.State != string(status.Offline) {
		t.Errorf("disconnect state = %q", resp.State)
	}
}

func TestEventServerDisabled(t *testing.T) {
	root := tempRoot(t)
	cfg := testConfig(t)
	cfg.Events.Enabled = false
	cfg.Transport.AutoConnect = false

	app := fxtest.New(t, Module(Params{Root: root, Config: cfg}))
	app.RequireStart()
	defer app.RequireStop()

	c := dial(t, root)
	drop, err := c.Connection.SimulateDrop(context.Background(), &rpc.Empty{})
	if err != nil {
		t.Fatal(err)
	}
	if drop.Dropped != 0 {
		t.Errorf("dropped = %d, want 0", drop.Dropped)
	}
	waitState(t, c, status.Offline)
}

func TestSecondDaemonRefused(t *testing.T) {
	root := tempRoot(t)
	app := fxtest.New(t, Module(Params{Root: root, Config: testConfig(t)}))
	app.RequireStart()
	defer app.RequireStop()

	cfg := testConfig(t)
	second := fx.New(
		Module(Params{Root: root, SocketPath: filepath.Join(root, "second.sock"), Config: cfg}),
		fx.NopLogger,
	)
	err := second.Err()
	var held *lock.HeldError
	if !errors.As(err, &held) {
		t.Fatalf("second daemon err = %v, want HeldError", err)
	}
	if held.Holder.PID != os.Getpid() {
		t.Errorf("holder pid = %d, want %d", held.Holder.PID, os.Getpid())
	}
}
