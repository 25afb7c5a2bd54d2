package transport

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/matheus3301/chatline/internal/bus"
	"github.com/matheus3301/chatline/internal/status"
	"github.com/matheus3301/chatline/internal/wire"
	"go.uber.org/zap"
)

type harness struct {
	client   *Client
	clock    *clockwork.FakeClock
	dialer   *fakeDialer
	states   <-chan bus.Event
	messages chan wire.NewMessage
}

func newHarness(t *testing.T, failures int) *harness {
	t.Helper()
	b := bus.New()
	states, unsub := b.Subscribe("connection.", 64)
	t.Cleanup(unsub)

	h := &harness{
		clock:    clockwork.NewFakeClock(),
		dialer:   newFakeDialer(failures),
		states:   states,
		messages: make(chan wire.NewMessage, 16),
	}
	handler := HandlerFunc(func(ctx context.Context, m wire.NewMessage) error {
		h.messages <- m
		return nil
	})
	h.client = New(DefaultConfig(), h.dialer, handler, status.NewMachine(b), zap.NewNop(),
		WithClock(h.clock),
		WithJitter(func(time.Duration) time.Duration { return 0 }),
	)
	t.Cleanup(h.client.Close)
	return h
}

// expectState reads the next state change and checks its target.
func (h *harness) expectState(t *testing.T, want status.State) {
	t.Helper()
	select {
	case evt := <-h.states:
		if got := evt.Payload.(status.StateChange).To; got != want {
			t.Fatalf("state -> %s, want %s", got, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for state %s (current %s)", want, h.client.State())
	}
}

func (h *harness) expectNoState(t *testing.T) {
	t.Helper()
	select {
	case evt := <-h.states:
		t.Fatalf("unexpected state change %+v", evt.Payload)
	case <-time.After(50 * time.Millisecond):
	}
}

func (h *harness) nextConn(t *testing.T) *fakeConn {
	t.Helper()
	select {
	case c := <-h.dialer.conns:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for dial")
		return nil
	}
}

func (h *harness) connect(t *testing.T) *fakeConn {
	t.Helper()
	h.client.Connect()
	h.expectState(t, status.Reconnecting)
	conn := h.nextConn(t)
	h.expectState(t, status.Connected)
	return conn
}

func heartbeat(t *testing.T, ts int64) []byte {
	t.Helper()
	data, err := wire.EncodeHeartbeat(wire.Heartbeat{Timestamp: ts})
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestBackoffDelay(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},
		{10, 30 * time.Second},
		{100, 30 * time.Second},
	}
	for _, tt := range tests {
		if got := BackoffDelay(time.Second, 30*time.Second, tt.attempt); got != tt.want {
			t.Errorf("BackoffDelay(attempt=%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestRandomJitterRange(t *testing.T) {
	for range 1000 {
		j := RandomJitter(time.Second)
		if j < 0 || j >= time.Second {
			t.Fatalf("jitter %v outside [0,1s)", j)
		}
	}
	if j := RandomJitter(0); j != 0 {
		t.Errorf("RandomJitter(0) = %v, want 0", j)
	}
}

func TestConnectDialsImmediately(t *testing.T) {
	h := newHarness(t, 0)
	h.connect(t)

	if got := h.dialer.calls.Load(); got != 1 {
		t.Errorf("dials = %d, want 1", got)
	}
	if h.client.State() != status.Connected {
		t.Errorf("state = %s, want connected", h.client.State())
	}

	// Idempotent.
	h.client.Connect()
	h.expectNoState(t)
	if got := h.dialer.calls.Load(); got != 1 {
		t.Errorf("dials after second Connect = %d, want 1", got)
	}
}

func TestFailedDialsBackOffExponentially(t *testing.T) {
	h := newHarness(t, 2)

	h.client.Connect()
	h.expectState(t, status.Reconnecting)
	h.expectState(t, status.Reconnecting) // dial 1 failed, 1s scheduled
	if got := h.client.Info().Attempt; got != 1 {
		t.Errorf("attempt = %d, want 1", got)
	}

	h.clock.Advance(999 * time.Millisecond)
	h.expectNoState(t)
	if got := h.dialer.calls.Load(); got != 1 {
		t.Fatalf("dials before backoff elapsed = %d, want 1", got)
	}

	h.clock.Advance(time.Millisecond)
	h.expectState(t, status.Reconnecting) // dial 2 failed, 2s scheduled

	h.clock.Advance(1999 * time.Millisecond)
	h.expectNoState(t)
	if got := h.dialer.calls.Load(); got != 2 {
		t.Fatalf("dials before second backoff elapsed = %d, want 2", got)
	}

	h.clock.Advance(time.Millisecond)
	h.nextConn(t)
	h.expectState(t, status.Connected)
	if got := h.client.Info().Attempt; got != 0 {
		t.Errorf("attempt after connect = %d, want 0", got)
	}
}

func TestJitterIsAdded(t *testing.T) {
	b := bus.New()
	states, unsub := b.Subscribe("connection.", 64)
	defer unsub()
	clock := clockwork.NewFakeClock()
	dialer := newFakeDialer(1)
	c := New(DefaultConfig(), dialer, HandlerFunc(func(context.Context, wire.NewMessage) error { return nil }),
		status.NewMachine(b), zap.NewNop(),
		WithClock(clock),
		WithJitter(func(limit time.Duration) time.Duration { return limit / 2 }),
	)
	defer c.Close()

	c.Connect()
	<-states
	<-states

	clock.Advance(1499 * time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	if got := dialer.calls.Load(); got != 1 {
		t.Fatalf("dials before 1.5s = %d, want 1", got)
	}
	clock.Advance(time.Millisecond)
	select {
	case <-dialer.conns:
	case <-time.After(2 * time.Second):
		t.Fatal("no redial after base+jitter")
	}
}

func TestHeartbeatAckAndWatchdog(t *testing.T) {
	h := newHarness(t, 0)
	conn := h.connect(t)

	h.clock.Advance(29 * time.Second)
	conn.send(heartbeat(t, 42))

	select {
	case data := <-conn.writes:
		evt, err := wire.Decode(data)
		if err != nil {
			t.Fatal(err)
		}
		if evt.Type != wire.TypeHeartbeatAck {
			t.Fatalf("wrote %s, want HEARTBEAT_ACK", evt.Type)
		}
		if want := h.clock.Now().UnixMilli(); evt.HeartbeatAck.Timestamp != want {
			t.Errorf("ack timestamp = %d, want %d", evt.HeartbeatAck.Timestamp, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no heartbeat ack written")
	}
	// Info runs on the loop, after the watchdog was re-armed.
	h.client.Info()

	// 58s since connect, 29s since the last heartbeat.
	h.clock.Advance(29 * time.Second)
	h.expectNoState(t)

	h.clock.Advance(time.Second)
	h.expectState(t, status.Reconnecting)

	select {
	case <-conn.closed:
	case <-time.After(2 * time.Second):
		t.Fatal("session not closed after watchdog expiry")
	}
	if _, _, aborted := conn.closeInfo(); !aborted {
		t.Error("watchdog should close abruptly")
	}

	// Attempt was reset on connect, so the first retry waits Base.
	h.clock.Advance(time.Second)
	h.nextConn(t)
	h.expectState(t, status.Connected)
}

func TestRemoteCloseReconnects(t *testing.T) {
	h := newHarness(t, 0)
	conn := h.connect(t)

	conn.remoteClose()
	h.expectState(t, status.Reconnecting)

	h.clock.Advance(time.Second)
	next := h.nextConn(t)
	h.expectState(t, status.Connected)

	// Frames on the old session no longer reach the client.
	msg, _ := wire.EncodeNewMessage(wire.NewMessage{ChatID: "c", MessageID: "stale", TS: 1})
	select {
	case conn.in <- msg:
	default:
	}
	fresh, _ := wire.EncodeNewMessage(wire.NewMessage{ChatID: "c", MessageID: "fresh", TS: 2})
	next.send(fresh)

	select {
	case m := <-h.messages:
		if m.MessageID != "fresh" {
			t.Errorf("handled %q, want fresh", m.MessageID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("message not handled")
	}
}

func TestMalformedFramesKeepSession(t *testing.T) {
	h := newHarness(t, 0)
	conn := h.connect(t)

	conn.send([]byte("{not json"))
	conn.send([]byte(`{"type":"UNKNOWN"}`))
	conn.send([]byte(`{"type":"NEW_MESSAGE","chatId":"c1"}`))
	good, _ := wire.EncodeNewMessage(wire.NewMessage{ChatID: "c1", MessageID: "m1", TS: 5, Sender: "Bob", Body: "hi"})
	conn.send(good)

	select {
	case m := <-h.messages:
		if m.MessageID != "m1" || m.Body != "hi" {
			t.Errorf("handled %+v", m)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("valid message after malformed frames was not handled")
	}
	h.expectNoState(t)
	select {
	case <-conn.closed:
		t.Error("malformed frames closed the session")
	default:
	}
}

func TestDisconnectCancelsBackoff(t *testing.T) {
	h := newHarness(t, 1)

	h.client.Connect()
	h.expectState(t, status.Reconnecting)
	h.expectState(t, status.Reconnecting)

	h.client.Disconnect()
	h.expectState(t, status.Offline)

	h.clock.Advance(time.Hour)
	h.expectNoState(t)
	if got := h.dialer.calls.Load(); got != 1 {
		t.Errorf("dials after disconnect = %d, want 1", got)
	}
	if h.client.State() != status.Offline {
		t.Errorf("state = %s, want offline", h.client.State())
	}
}

func TestDisconnectWhileConnected(t *testing.T) {
	h := newHarness(t, 0)
	conn := h.connect(t)

	h.client.Disconnect()
	h.expectState(t, status.Offline)

	select {
	case <-conn.closed:
	case <-time.After(2 * time.Second):
		t.Fatal("session not closed on disconnect")
	}
	code, reason, aborted := conn.closeInfo()
	if code != NormalClosure || reason == "" || aborted {
		t.Errorf("close = (%d, %q, aborted=%v), want normal closure", code, reason, aborted)
	}

	// Neither the watchdog nor a reconnect may fire afterwards.
	h.clock.Advance(time.Hour)
	h.expectNoState(t)
	if got := h.dialer.calls.Load(); got != 1 {
		t.Errorf("dials = %d, want 1", got)
	}

	// Idempotent.
	h.client.Disconnect()
	h.expectNoState(t)

	// Reconnect from offline dials immediately again.
	h.client.Connect()
	h.expectState(t, status.Reconnecting)
	h.nextConn(t)
	h.expectState(t, status.Connected)
}

func TestCloseStopsLoop(t *testing.T) {
	h := newHarness(t, 0)
	h.connect(t)

	h.client.Close()
	if h.client.State() != status.Offline {
		t.Errorf("state after Close = %s, want offline", h.client.State())
	}
	// Calls after Close return instead of blocking.
	done := make(chan struct{})
	go func() {
		h.client.Connect()
		h.client.Disconnect()
		_ = h.client.Info()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("calls after Close blocked")
	}
}
