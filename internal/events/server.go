// Package events runs the WebSocket event server that simulates a remote
// messaging backend: every session receives generated NEW_MESSAGE events and
// periodic HEARTBEATs.
package events

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/matheus3301/chatline/internal/logging"
	"github.com/matheus3301/chatline/internal/metrics"
	"go.uber.org/zap"
)

// DropCode is the close code sent by SimulateConnectionDrop.
const (
	DropCode   = 4000
	DropReason = "simulated drop"
)

const (
	writeWait    = 10 * time.Second
	maxFrameSize = 64 * 1024
)

// Config tunes the generators and the listen address.
type Config struct {
	Addr              string
	FirstMessageDelay time.Duration
	MinMessageDelay   time.Duration
	MaxMessageDelay   time.Duration
	HeartbeatInterval time.Duration
}

// DefaultConfig returns the production timings.
func DefaultConfig() Config {
	return Config{
		Addr:              "127.0.0.1:8765",
		FirstMessageDelay: time.Second,
		MinMessageDelay:   time.Second,
		MaxMessageDelay:   3 * time.Second,
		HeartbeatInterval: 10 * time.Second,
	}
}

// Server accepts WebSocket sessions and feeds them generated events.
type Server struct {
	cfg      Config
	log      *zap.Logger
	upgrader websocket.Upgrader
	chatIDs  atomic.Pointer[[]string]

	mu       sync.Mutex
	sessions map[*session]struct{}
	httpSrv  *http.Server
	ln       net.Listener
	handlers sync.WaitGroup
}

// New creates a server. It does not listen until Start.
func New(cfg Config, log *zap.Logger) *Server {
	s := &Server{
		cfg: cfg,
		log: logging.OrNop(log).Named("events"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		sessions: make(map[*session]struct{}),
	}
	empty := []string{}
	s.chatIDs.Store(&empty)
	return s
}

// Start listens on cfg.Addr and serves in the background.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.httpSrv != nil {
		return errors.New("event server already started")
	}

	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	s.ln = ln
	s.httpSrv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	srv := s.httpSrv
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("event server stopped", zap.Error(err))
		}
	}()
	s.log.Info("event server listening", zap.String("addr", ln.Addr().String()))
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// Stop closes the listener, ends every session and waits for their goroutines.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpSrv
	s.httpSrv = nil
	s.ln = nil
	live := s.snapshotLocked()
	s.mu.Unlock()

	var err error
	if srv != nil {
		err = srv.Shutdown(ctx)
	}
	for _, sess := range live {
		sess.closeWith(websocket.CloseGoingAway, "server shutting down")
	}

	done := make(chan struct{})
	go func() {
		s.handlers.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return err
}

// UpdateChatIDs replaces the population generated messages are addressed to.
func (s *Server) UpdateChatIDs(ids []string) {
	cp := append([]string(nil), ids...)
	s.chatIDs.Store(&cp)
	s.log.Debug("chat population updated", zap.Int("chats", len(cp)))
}

// SimulateConnectionDrop closes every live session with DropCode and returns
// how many were dropped. Clients see a close frame, then the socket ends.
func (s *Server) SimulateConnectionDrop() int {
	s.mu.Lock()
	live := s.snapshotLocked()
	s.mu.Unlock()

	for _, sess := range live {
		sess.closeWith(DropCode, DropReason)
	}
	metrics.SessionsDropped.Add(float64(len(live)))
	s.log.Info("simulated connection drop", zap.Int("sessions", len(live)))
	return len(live)
}

// Sessions returns the number of live sessions.
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Server) snapshotLocked() []*session {
	out := make([]*session, 0, len(s.sessions))
	for sess := range s.sessions {
		out = append(out, sess)
	}
	return out
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied with an HTTP error.
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	conn.SetReadLimit(maxFrameSize)

	s.handlers.Add(1)
	defer s.handlers.Done()

	sess := newSession(conn, s.log.With(zap.String("remote_addr", r.RemoteAddr)))
	s.mu.Lock()
	s.sessions[sess] = struct{}{}
	s.mu.Unlock()
	metrics.SessionsActive.Inc()
	sess.log.Info("session opened")

	var wg sync.WaitGroup
	wg.Go(func() { s.messageLoop(sess) })
	wg.Go(func() { s.heartbeatLoop(sess) })

	s.readLoop(sess)

	sess.closeNow()
	wg.Wait()

	s.mu.Lock()
	delete(s.sessions, sess)
	s.mu.Unlock()
	metrics.SessionsActive.Dec()
	sess.log.Info("session closed")
}

func (s *Server) nextMessageDelay() time.Duration {
	spread := s.cfg.MaxMessageDelay - s.cfg.MinMessageDelay
	if spread <= 0 {
		return s.cfg.MinMessageDelay
	}
	return s.cfg.MinMessageDelay + rand.N(spread)
}
