package daemon

import (
	"context"
	"fmt"
	"net"
	"os"

	"github.com/matheus3301/chatline/internal/api"
	"github.com/matheus3301/chatline/internal/lock"
	"github.com/matheus3301/chatline/internal/metrics"
	"github.com/matheus3301/chatline/internal/paths"
	"github.com/matheus3301/chatline/internal/rpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	grpcstatus "google.golang.org/grpc/status"
)

// Server manages the gRPC gateway lifecycle.
type Server struct {
	grpcServer *grpc.Server
	listener   net.Listener
	socketPath string
	logger     *zap.Logger
}

// NewServer creates a gRPC server bound to the daemon's Unix domain socket.
// The lock must be held: a leftover socket file is removed unconditionally.
func NewServer(
	p Params,
	l paths.Layout,
	_ *lock.Lock,
	logger *zap.Logger,
	chatSvc *api.ChatService,
	messageSvc *api.MessageService,
	connSvc *api.ConnectionService,
) (*Server, error) {
	socketPath := p.SocketPath
	if socketPath == "" {
		if err := l.Validate(); err != nil {
			return nil, err
		}
		socketPath = l.SocketPath()
	}

	// Clean stale socket if it exists.
	if _, err := os.Stat(socketPath); err == nil {
		_ = os.Remove(socketPath)
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("listen unix socket: %w", err)
	}

	// Set socket permissions to 0600.
	if err := os.Chmod(socketPath, 0600); err != nil {
		_ = listener.Close()
		return nil, fmt.Errorf("chmod socket: %w", err)
	}

	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(observeUnary(logger)))
	rpc.RegisterChatServiceServer(srv, chatSvc)
	rpc.RegisterMessageServiceServer(srv, messageSvc)
	rpc.RegisterConnectionServiceServer(srv, connSvc)

	return &Server{
		grpcServer: srv,
		listener:   listener,
		socketPath: socketPath,
		logger:     logger,
	}, nil
}

// Start begins serving gRPC requests. Blocks until stopped.
func (s *Server) Start() error {
	s.logger.Info("gRPC server starting", zap.String("socket", s.socketPath))
	return s.grpcServer.Serve(s.listener)
}

// Stop performs a graceful shutdown and removes the socket file.
func (s *Server) Stop(_ context.Context) {
	s.logger.Info("gRPC server stopping")
	s.grpcServer.GracefulStop()
	_ = os.Remove(s.socketPath)
}

func observeUnary(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		resp, err := handler(ctx, req)
		code := grpcstatus.Code(err)
		metrics.RPCRequestsTotal.WithLabelValues(info.FullMethod, code.String()).Inc()
		if err != nil {
			logger.Debug("rpc failed", zap.String("method", info.FullMethod), zap.Stringer("code", code), zap.Error(err))
		}
		return resp, err
	}
}
