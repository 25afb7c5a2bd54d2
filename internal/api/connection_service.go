package api

import (
	"context"
	"time"

	"github.com/matheus3301/chatline/internal/bus"
	"github.com/matheus3301/chatline/internal/rpc"
	"github.com/matheus3301/chatline/internal/status"
	"github.com/matheus3301/chatline/internal/store"
	"github.com/matheus3301/chatline/internal/transport"
	"google.golang.org/grpc"
)

// Connector is the transport client as seen by the gateway.
type Connector interface {
	Connect()
	Disconnect()
	State() status.State
	Info() transport.Info
}

// Dropper is the event server as seen by the gateway.
type Dropper interface {
	SimulateConnectionDrop() int
	Sessions() int
}

// ConnectionService implements chatline.v1.ConnectionService.
type ConnectionService struct {
	conn      Connector
	dropper   Dropper
	selector  ChatSelector
	bus       *bus.Bus
	db        *store.DB
	startedAt time.Time
}

// NewConnectionService creates a new connection service. dropper may be nil
// when the daemon runs without its embedded event server.
func NewConnectionService(conn Connector, dropper Dropper, selector ChatSelector, b *bus.Bus, db *store.DB) *ConnectionService {
	return &ConnectionService{
		conn:      conn,
		dropper:   dropper,
		selector:  selector,
		bus:       b,
		db:        db,
		startedAt: time.Now(),
	}
}

func (s *ConnectionService) Connect(_ context.Context, _ *rpc.Empty) (*rpc.StateResponse, error) {
	s.conn.Connect()
	return &rpc.StateResponse{State: string(s.conn.State())}, nil
}

func (s *ConnectionService) Disconnect(_ context.Context, _ *rpc.Empty) (*rpc.StateResponse, error) {
	s.conn.Disconnect()
	return &rpc.StateResponse{State: string(s.conn.State())}, nil
}

func (s *ConnectionService) SimulateDrop(_ context.Context, _ *rpc.Empty) (*rpc.SimulateDropResponse, error) {
	if s.dropper == nil {
		return &rpc.SimulateDropResponse{}, nil
	}
	return &rpc.SimulateDropResponse{Dropped: s.dropper.SimulateConnectionDrop()}, nil
}

func (s *ConnectionService) GetState(_ context.Context, _ *rpc.Empty) (*rpc.StateResponse, error) {
	return &rpc.StateResponse{State: string(s.conn.State())}, nil
}

// WatchState sends the current state first and then every change.
func (s *ConnectionService) WatchState(_ *rpc.Empty, stream grpc.ServerStreamingServer[rpc.StateEvent]) error {
	ch, unsub := s.bus.Subscribe(bus.KindStateChanged, 64)
	defer unsub()

	info := s.conn.Info()
	if err := stream.Send(&rpc.StateEvent{To: string(info.State), AtMs: info.Since.UnixMilli()}); err != nil {
		return err
	}

	for {
		select {
		case evt := <-ch:
			change, ok := evt.Payload.(status.StateChange)
			if !ok {
				continue
			}
			if err := stream.Send(&rpc.StateEvent{
				From: string(change.From),
				To:   string(change.To),
				AtMs: evt.Timestamp.UnixMilli(),
			}); err != nil {
				return err
			}
		case <-stream.Context().Done():
			return nil
		}
	}
}

func (s *ConnectionService) GetStatus(ctx context.Context, _ *rpc.Empty) (*rpc.GetStatusResponse, error) {
	info := s.conn.Info()
	resp := &rpc.GetStatusResponse{
		State:        string(info.State),
		Attempt:      info.Attempt,
		StateSinceMs: info.Since.UnixMilli(),
		UptimeMs:     time.Since(s.startedAt).Milliseconds(),
	}
	if s.dropper != nil {
		resp.Sessions = s.dropper.Sessions()
	}
	if s.selector != nil {
		resp.ActiveChat = s.selector.ActiveChat()
	}

	chatCount, err := s.db.ChatCount(ctx)
	if err != nil {
		return nil, toStatus("count chats", err)
	}
	msgCount, err := s.db.MessageCount(ctx)
	if err != nil {
		return nil, toStatus("count messages", err)
	}
	resp.ChatCount = chatCount
	resp.MessageCount = msgCount
	return resp, nil
}
