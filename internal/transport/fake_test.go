package transport

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/matheus3301/chatline/internal/fault"
)

// fakeConn is an in-memory session. The test pushes inbound frames with
// send and ends the session with remoteClose.
type fakeConn struct {
	in      chan []byte
	writes  chan []byte
	closed  chan struct{}
	once    sync.Once
	mu      sync.Mutex
	code    int
	reason  string
	aborted bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		in:     make(chan []byte, 16),
		writes: make(chan []byte, 16),
		closed: make(chan struct{}),
	}
}

func (f *fakeConn) Read(ctx context.Context) ([]byte, error) {
	select {
	case data := <-f.in:
		return data, nil
	case <-f.closed:
		return nil, fault.ErrConnection
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *fakeConn) Write(ctx context.Context, data []byte) error {
	select {
	case <-f.closed:
		return fault.ErrConnection
	default:
	}
	f.writes <- data
	return nil
}

func (f *fakeConn) Close(code int, reason string) error {
	f.mu.Lock()
	f.code, f.reason = code, reason
	f.mu.Unlock()
	f.once.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeConn) CloseNow() error {
	f.mu.Lock()
	f.aborted = true
	f.mu.Unlock()
	f.once.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeConn) send(data []byte) { f.in <- data }

func (f *fakeConn) remoteClose() { f.once.Do(func() { close(f.closed) }) }

func (f *fakeConn) closeInfo() (code int, reason string, aborted bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.code, f.reason, f.aborted
}

// fakeDialer fails the first `failures` dials and then hands out fresh fakeConns
// on conns.
type fakeDialer struct {
	failures atomic.Int32
	calls    atomic.Int32
	conns    chan *fakeConn
}

func newFakeDialer(failures int) *fakeDialer {
	d := &fakeDialer{conns: make(chan *fakeConn, 16)}
	d.failures.Store(int32(failures))
	return d
}

func (d *fakeDialer) Dial(ctx context.Context) (Conn, error) {
	d.calls.Add(1)
	if d.failures.Add(-1) >= 0 {
		return nil, errors.Join(fault.ErrConnection, errors.New("connection refused"))
	}
	c := newFakeConn()
	d.conns <- c
	return c, nil
}
