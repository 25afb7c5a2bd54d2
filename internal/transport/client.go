// Package transport keeps a single live session to the event server,
// reconnecting with exponential backoff and detecting dead sessions with a
// heartbeat watchdog.
package transport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/matheus3301/chatline/internal/fault"
	"github.com/matheus3301/chatline/internal/logging"
	"github.com/matheus3301/chatline/internal/metrics"
	"github.com/matheus3301/chatline/internal/status"
	"github.com/matheus3301/chatline/internal/wire"
	"go.uber.org/zap"
)

// NormalClosure is the close code sent on Disconnect.
const NormalClosure = 1000

// Handler receives every NEW_MESSAGE. It runs on the client's event loop.
type Handler interface {
	HandleMessage(ctx context.Context, m wire.NewMessage) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, m wire.NewMessage) error

func (f HandlerFunc) HandleMessage(ctx context.Context, m wire.NewMessage) error { return f(ctx, m) }

// Config holds reconnect and liveness timings.
type Config struct {
	BackoffBase      time.Duration
	BackoffMax       time.Duration
	BackoffJitter    time.Duration
	HeartbeatTimeout time.Duration
	DialTimeout      time.Duration
	WriteTimeout     time.Duration
}

// DefaultConfig returns the production timings.
func DefaultConfig() Config {
	return Config{
		BackoffBase:      time.Second,
		BackoffMax:       30 * time.Second,
		BackoffJitter:    time.Second,
		HeartbeatTimeout: 30 * time.Second,
		DialTimeout:      10 * time.Second,
		WriteTimeout:     5 * time.Second,
	}
}

// Option customizes a Client.
type Option func(*Client)

// WithClock replaces the wall clock used for backoff and watchdog timers.
func WithClock(c clockwork.Clock) Option {
	return func(cl *Client) { cl.clock = c }
}

// WithJitter replaces the random jitter source.
func WithJitter(j Jitter) Option {
	return func(cl *Client) { cl.jitter = j }
}

// Info is a consistent snapshot taken on the event loop.
type Info struct {
	State   status.State
	Attempt int
	Since   time.Time
}

// Client owns the connection state. All state changes happen on one goroutine
// (run); everything else posts events to it.
type Client struct {
	cfg     Config
	dialer  Dialer
	handler Handler
	machine *status.Machine
	clock   clockwork.Clock
	jitter  Jitter
	log     *zap.Logger

	events    chan any
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	ctx       context.Context
	cancel    context.CancelFunc

	// Owned by run.
	wanted      bool
	gen         uint64
	attempt     int
	conn        Conn
	connCancel  context.CancelFunc
	dialCancel  context.CancelFunc
	timerSeq    uint64
	backoffSeq  uint64
	backoff     clockwork.Timer
	watchdogSeq uint64
	watchdog    clockwork.Timer
}

type (
	cmdConnect    struct{ reply chan struct{} }
	cmdDisconnect struct{ reply chan struct{} }
	cmdInfo       struct{ reply chan Info }
	dialResult    struct {
		gen  uint64
		conn Conn
		err  error
	}
	frameReceived struct {
		gen  uint64
		data []byte
	}
	readFailed struct {
		gen uint64
		err error
	}
	backoffFired  struct{ seq uint64 }
	watchdogFired struct{ seq uint64 }
)

// New creates a client in the offline state and starts its event loop.
func New(cfg Config, dialer Dialer, handler Handler, machine *status.Machine, log *zap.Logger, opts ...Option) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		cfg:     cfg,
		dialer:  dialer,
		handler: handler,
		machine: machine,
		clock:   clockwork.NewRealClock(),
		jitter:  RandomJitter,
		log:     logging.OrNop(log).Named("transport"),
		events:  make(chan any, 64),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, opt := range opts {
		opt(c)
	}
	go c.run()
	return c
}

// Connect starts connecting. The first dial begins immediately. No-op when
// already connected or reconnecting.
func (c *Client) Connect() {
	reply := make(chan struct{})
	if c.post(cmdConnect{reply}) {
		c.wait(reply)
	}
}

// Disconnect closes the session and cancels every pending timer. When it
// returns the state is offline and nothing scheduled earlier can change it.
func (c *Client) Disconnect() {
	reply := make(chan struct{})
	if c.post(cmdDisconnect{reply}) {
		c.wait(reply)
	}
}

// State returns the current connection state.
func (c *Client) State() status.State {
	return c.machine.Current()
}

// Info returns the state together with the reconnect attempt counter.
func (c *Client) Info() Info {
	reply := make(chan Info, 1)
	if !c.post(cmdInfo{reply}) {
		return Info{State: c.machine.Current(), Since: c.machine.Since()}
	}
	select {
	case info := <-reply:
		return info
	case <-c.done:
		return Info{State: c.machine.Current(), Since: c.machine.Since()}
	}
}

// Close disconnects and stops the event loop.
func (c *Client) Close() {
	c.Disconnect()
	c.closeOnce.Do(func() {
		close(c.quit)
	})
	<-c.done
}

func (c *Client) post(ev any) bool {
	select {
	case c.events <- ev:
		return true
	case <-c.done:
		return false
	}
}

func (c *Client) wait(reply chan struct{}) {
	select {
	case <-reply:
	case <-c.done:
	}
}

func (c *Client) run() {
	defer close(c.done)
	defer c.cancel()
	for {
		select {
		case <-c.quit:
			return
		case ev := <-c.events:
			c.handle(ev)
		}
	}
}

func (c *Client) handle(ev any) {
	switch ev := ev.(type) {
	case cmdConnect:
		c.onConnect()
		close(ev.reply)
	case cmdDisconnect:
		c.onDisconnect()
		close(ev.reply)
	case cmdInfo:
		ev.reply <- Info{State: c.machine.Current(), Attempt: c.attempt, Since: c.machine.Since()}
	case dialResult:
		c.onDialResult(ev)
	case frameReceived:
		if ev.gen == c.gen && c.conn != nil {
			c.onFrame(ev.data)
		}
	case readFailed:
		if ev.gen == c.gen && c.conn != nil {
			c.lose(ev.err, false)
		}
	case backoffFired:
		if ev.seq == c.backoffSeq && c.wanted && c.conn == nil {
			c.backoffSeq = 0
			c.dial()
		}
	case watchdogFired:
		if ev.seq == c.watchdogSeq && c.conn != nil {
			metrics.HeartbeatTimeouts.Inc()
			c.lose(fmt.Errorf("no heartbeat for %s: %w", c.cfg.HeartbeatTimeout, fault.ErrTimeout), true)
		}
	}
}

func (c *Client) onConnect() {
	if c.wanted {
		return
	}
	c.wanted = true
	c.transition(status.Reconnecting)
	c.dial()
}

func (c *Client) onDisconnect() {
	if !c.wanted {
		return
	}
	c.wanted = false
	c.gen++
	c.stopBackoff()
	c.stopWatchdog()
	if c.dialCancel != nil {
		c.dialCancel()
		c.dialCancel = nil
	}
	if conn := c.conn; conn != nil {
		cancel := c.connCancel
		c.conn, c.connCancel = nil, nil
		// The handshake waits on the peer; keep it off the loop.
		go func() {
			if err := conn.Close(NormalClosure, "client disconnect"); err != nil {
				c.log.Debug("close on disconnect", zap.Error(err))
			}
			cancel()
		}()
	}
	c.attempt = 0
	c.transition(status.Offline)
	c.log.Info("disconnected")
}

func (c *Client) dial() {
	c.gen++
	gen := c.gen
	ctx, cancel := context.WithTimeout(c.ctx, c.cfg.DialTimeout)
	c.dialCancel = cancel

	go func() {
		conn, err := c.dialer.Dial(ctx)
		c.post(dialResult{gen: gen, conn: conn, err: err})
	}()
}

func (c *Client) onDialResult(ev dialResult) {
	if ev.gen != c.gen || !c.wanted {
		if ev.conn != nil {
			_ = ev.conn.CloseNow()
		}
		return
	}
	if c.dialCancel != nil {
		c.dialCancel()
		c.dialCancel = nil
	}

	if ev.err != nil {
		c.log.Warn("dial failed", zap.Int("attempt", c.attempt), zap.Error(ev.err))
		c.scheduleBackoff()
		c.transition(status.Reconnecting)
		return
	}

	ctx, cancel := context.WithCancel(c.ctx)
	c.conn = ev.conn
	c.connCancel = cancel
	c.attempt = 0
	c.armWatchdog()
	go c.readLoop(ctx, c.gen, ev.conn)
	c.transition(status.Connected)
	c.log.Info("connected")
}

func (c *Client) readLoop(ctx context.Context, gen uint64, conn Conn) {
	for {
		data, err := conn.Read(ctx)
		if err != nil {
			c.post(readFailed{gen: gen, err: err})
			return
		}
		if !c.post(frameReceived{gen: gen, data: data}) {
			return
		}
	}
}

func (c *Client) onFrame(data []byte) {
	evt, err := wire.Decode(data)
	if err != nil {
		metrics.MalformedEvents.WithLabelValues("client").Inc()
		c.log.Warn("dropping malformed frame", zap.Error(err))
		return
	}

	switch evt.Type {
	case wire.TypeHeartbeat:
		ack, err := wire.EncodeHeartbeatAck(wire.HeartbeatAck{Timestamp: c.clock.Now().UnixMilli()})
		if err != nil {
			c.log.Error("encode heartbeat ack", zap.Error(err))
			return
		}
		ctx, cancel := context.WithTimeout(c.ctx, c.cfg.WriteTimeout)
		err = c.conn.Write(ctx, ack)
		cancel()
		if err != nil {
			c.lose(fmt.Errorf("write heartbeat ack: %w: %v", fault.ErrConnection, err), true)
			return
		}
		c.armWatchdog()
	case wire.TypeNewMessage:
		if err := c.handler.HandleMessage(c.ctx, *evt.NewMessage); err != nil {
			c.log.Error("handle message",
				zap.String("chat_id", evt.NewMessage.ChatID),
				zap.String("message_id", evt.NewMessage.MessageID),
				zap.Error(err))
		}
	default:
		c.log.Warn("dropping unexpected event", zap.String("type", string(evt.Type)))
	}
}

// lose tears down the live session and schedules a reconnect. abrupt skips
// the closing handshake.
func (c *Client) lose(err error, abrupt bool) {
	conn, cancel := c.conn, c.connCancel
	c.conn, c.connCancel = nil, nil
	c.gen++
	c.stopWatchdog()
	if abrupt {
		_ = conn.CloseNow()
	}
	cancel()

	c.log.Warn("connection lost", zap.Error(err))
	c.scheduleBackoff()
	c.transition(status.Reconnecting)
}

func (c *Client) scheduleBackoff() {
	c.stopBackoff()
	delay := BackoffDelay(c.cfg.BackoffBase, c.cfg.BackoffMax, c.attempt) + c.jitter(c.cfg.BackoffJitter)
	c.attempt++
	metrics.ReconnectAttempts.Inc()

	c.timerSeq++
	seq := c.timerSeq
	c.backoffSeq = seq
	c.backoff = c.clock.AfterFunc(delay, func() { c.post(backoffFired{seq}) })
	c.log.Info("reconnect scheduled", zap.Int("attempt", c.attempt), zap.Duration("delay", delay))
}

func (c *Client) stopBackoff() {
	if c.backoff != nil {
		c.backoff.Stop()
		c.backoff = nil
	}
	c.backoffSeq = 0
}

func (c *Client) armWatchdog() {
	c.stopWatchdog()
	c.timerSeq++
	seq := c.timerSeq
	c.watchdogSeq = seq
	c.watchdog = c.clock.AfterFunc(c.cfg.HeartbeatTimeout, func() { c.post(watchdogFired{seq}) })
}

func (c *Client) stopWatchdog() {
	if c.watchdog != nil {
		c.watchdog.Stop()
		c.watchdog = nil
	}
	c.watchdogSeq = 0
}

func (c *Client) transition(to status.State) {
	if err := c.machine.Transition(to); err != nil {
		c.log.Error("state transition", zap.Error(err))
	}
}
