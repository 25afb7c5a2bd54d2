package events

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/matheus3301/chatline/internal/metrics"
	"github.com/matheus3301/chatline/internal/sample"
	"github.com/matheus3301/chatline/internal/wire"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// session is one accepted WebSocket. writeMu guards every frame written to conn.
type session struct {
	conn    *websocket.Conn
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	writeMu sync.Mutex
	once    sync.Once
}

func newSession(conn *websocket.Conn, log *zap.Logger) *session {
	ctx, cancel := context.WithCancel(context.Background())
	return &session{conn: conn, log: log, ctx: ctx, cancel: cancel}
}

func (s *session) write(data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// closeWith sends a close frame and then closes the socket.
func (s *session) closeWith(code int, reason string) {
	s.once.Do(func() {
		s.cancel()
		s.writeMu.Lock()
		err := s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(code, reason), time.Now().Add(writeWait))
		s.writeMu.Unlock()
		if err != nil {
			s.log.Debug("write close frame", zap.Error(err))
		}
		_ = s.conn.Close()
	})
}

// closeNow closes the socket without a close frame.
func (s *session) closeNow() {
	s.once.Do(func() {
		s.cancel()
		_ = s.conn.Close()
	})
}

func (s *Server) messageLoop(sess *session) {
	timer := time.NewTimer(s.cfg.FirstMessageDelay)
	defer timer.Stop()

	for {
		select {
		case <-sess.ctx.Done():
			return
		case <-timer.C:
		}

		if err := s.sendMessage(sess); err != nil {
			sess.log.Debug("write message failed", zap.Error(err))
			sess.closeNow()
			return
		}
		if sess.ctx.Err() != nil {
			return
		}
		timer.Reset(s.nextMessageDelay())
	}
}

func (s *Server) sendMessage(sess *session) error {
	ids := *s.chatIDs.Load()
	if len(ids) == 0 {
		sess.log.Debug("no chats to address, skipping message")
		return nil
	}

	msg := wire.NewMessage{
		ChatID:    ids[rand.IntN(len(ids))],
		MessageID: ulid.Make().String(),
		TS:        time.Now().UnixMilli(),
		Sender:    sample.Sender(nil),
		Body:      sample.Body(nil),
	}
	data, err := wire.EncodeNewMessage(msg)
	if err != nil {
		return err
	}
	if err := sess.write(data); err != nil {
		return err
	}
	metrics.EventsSent.WithLabelValues(string(wire.TypeNewMessage)).Inc()
	sess.log.Debug("sent message", zap.String("chat_id", msg.ChatID), zap.String("message_id", msg.MessageID))
	return nil
}

func (s *Server) heartbeatLoop(sess *session) {
	ticker := time.NewTicker(s.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-sess.ctx.Done():
			return
		case now := <-ticker.C:
			data, err := wire.EncodeHeartbeat(wire.Heartbeat{Timestamp: now.UnixMilli()})
			if err != nil {
				sess.log.Error("encode heartbeat", zap.Error(err))
				continue
			}
			if err := sess.write(data); err != nil {
				sess.log.Debug("write heartbeat failed", zap.Error(err))
				sess.closeNow()
				return
			}
			metrics.EventsSent.WithLabelValues(string(wire.TypeHeartbeat)).Inc()
		}
	}
}

// readLoop returns when the socket fails or is closed by either side.
func (s *Server) readLoop(sess *session) {
	for {
		mt, data, err := sess.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				sess.log.Info("session read ended", zap.Error(err))
			}
			return
		}
		if mt != websocket.TextMessage {
			sess.log.Warn("ignoring non-text frame", zap.Int("message_type", mt))
			continue
		}

		evt, err := wire.Decode(data)
		if err != nil {
			metrics.MalformedEvents.WithLabelValues("server").Inc()
			sess.log.Warn("dropping malformed frame", zap.Error(err))
			continue
		}
		switch evt.Type {
		case wire.TypeHeartbeatAck:
			sess.log.Debug("heartbeat ack", zap.Int64("timestamp", evt.HeartbeatAck.Timestamp))
		default:
			sess.log.Warn("dropping unexpected event", zap.String("type", string(evt.Type)))
		}
	}
}
