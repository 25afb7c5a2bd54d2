package rpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// ChatServiceClient is the client API for chatline.v1.ChatService.
type ChatServiceClient interface {
	GetChats(ctx context.Context, in *GetChatsRequest, opts ...grpc.CallOption) (*GetChatsResponse, error)
	MarkChatAsRead(ctx context.Context, in *ChatRequest, opts ...grpc.CallOption) (*Empty, error)
	SelectChat(ctx context.Context, in *ChatRequest, opts ...grpc.CallOption) (*Empty, error)
	SeedDatabase(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*SeedDatabaseResponse, error)
}

// MessageServiceClient is the client API for chatline.v1.MessageService.
type MessageServiceClient interface {
	GetMessages(ctx context.Context, in *GetMessagesRequest, opts ...grpc.CallOption) (*MessagesResponse, error)
	SearchMessages(ctx context.Context, in *SearchMessagesRequest, opts ...grpc.CallOption) (*MessagesResponse, error)
	WatchMessages(ctx context.Context, in *Empty, opts ...grpc.CallOption) (grpc.ServerStreamingClient[Message], error)
}

// ConnectionServiceClient is the client API for chatline.v1.ConnectionService.
type ConnectionServiceClient interface {
	Connect(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*StateResponse, error)
	Disconnect(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*StateResponse, error)
	SimulateDrop(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*SimulateDropResponse, error)
	GetState(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*StateResponse, error)
	WatchState(ctx context.Context, in *Empty, opts ...grpc.CallOption) (grpc.ServerStreamingClient[StateEvent], error)
	GetStatus(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*GetStatusResponse, error)
}

type serviceClient struct {
	cc grpc.ClientConnInterface
}

func NewChatServiceClient(cc grpc.ClientConnInterface) ChatServiceClient { return serviceClient{cc} }

func NewMessageServiceClient(cc grpc.ClientConnInterface) MessageServiceClient {
	return serviceClient{cc}
}

func NewConnectionServiceClient(cc grpc.ClientConnInterface) ConnectionServiceClient {
	return serviceClient{cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func watch[Req any, Resp any](ctx context.Context, cc grpc.ClientConnInterface, desc *grpc.StreamDesc, method string, in *Req, opts []grpc.CallOption) (grpc.ServerStreamingClient[Resp], error) {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	stream, err := cc.NewStream(ctx, desc, method, opts...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[Req, Resp]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

func (c serviceClient) GetChats(ctx context.Context, in *GetChatsRequest, opts ...grpc.CallOption) (*GetChatsResponse, error) {
	return invoke[GetChatsResponse](ctx, c.cc, ChatService_GetChats_FullMethodName, in, opts)
}

func (c serviceClient) MarkChatAsRead(ctx context.Context, in *ChatRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c.cc, ChatService_MarkChatAsRead_FullMethodName, in, opts)
}

func (c serviceClient) SelectChat(ctx context.Context, in *ChatRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c.cc, ChatService_SelectChat_FullMethodName, in, opts)
}

func (c serviceClient) SeedDatabase(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*SeedDatabaseResponse, error) {
	return invoke[SeedDatabaseResponse](ctx, c.cc, ChatService_SeedDatabase_FullMethodName, in, opts)
}

func (c serviceClient) GetMessages(ctx context.Context, in *GetMessagesRequest, opts ...grpc.CallOption) (*MessagesResponse, error) {
	return invoke[MessagesResponse](ctx, c.cc, MessageService_GetMessages_FullMethodName, in, opts)
}

func (c serviceClient) SearchMessages(ctx context.Context, in *SearchMessagesRequest, opts ...grpc.CallOption) (*MessagesResponse, error) {
	return invoke[MessagesResponse](ctx, c.cc, MessageService_SearchMessages_FullMethodName, in, opts)
}

func (c serviceClient) WatchMessages(ctx context.Context, in *Empty, opts ...grpc.CallOption) (grpc.ServerStreamingClient[Message], error) {
	return watch[Empty, Message](ctx, c.cc, &MessageService_ServiceDesc.Streams[0], MessageService_WatchMessages_FullMethodName, in, opts)
}

func (c serviceClient) Connect(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*StateResponse, error) {
	return invoke[StateResponse](ctx, c.cc, ConnectionService_Connect_FullMethodName, in, opts)
}

func (c serviceClient) Disconnect(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*StateResponse, error) {
	return invoke[StateResponse](ctx, c.cc, ConnectionService_Disconnect_FullMethodName, in, opts)
}

func (c serviceClient) SimulateDrop(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*SimulateDropResponse, error) {
	return invoke[SimulateDropResponse](ctx, c.cc, ConnectionService_SimulateDrop_FullMethodName, in, opts)
}

func (c serviceClient) GetState(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*StateResponse, error) {
	return invoke[StateResponse](ctx, c.cc, ConnectionService_GetState_FullMethodName, in, opts)
}

func (c serviceClient) WatchState(ctx context.Context, in *Empty, opts ...grpc.CallOption) (grpc.ServerStreamingClient[StateEvent], error) {
	return watch[Empty, StateEvent](ctx, c.cc, &ConnectionService_ServiceDesc.Streams[0], ConnectionService_WatchState_FullMethodName, in, opts)
}

func (c serviceClient) GetStatus(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*GetStatusResponse, error) {
	return invoke[GetStatusResponse](ctx, c.cc, ConnectionService_GetStatus_FullMethodName, in, opts)
}

// Client wraps the connection to the daemon with typed service clients.
type Client struct {
	conn       *grpc.ClientConn
	Chat       ChatServiceClient
	Message    MessageServiceClient
	Connection ConnectionServiceClient
}

// Dial connects to the daemon's Unix domain socket. The connection is lazy:
// errors surface on the first call.
func Dial(socketPath string) (*Client, error) {
	conn, err := grpc.NewClient(
		"unix://"+socketPath,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("dial daemon: %w", err)
	}

	return &Client{
		conn:       conn,
		Chat:       NewChatServiceClient(conn),
		Message:    NewMessageServiceClient(conn),
		Connection: NewConnectionServiceClient(conn),
	}, nil
}

// Close closes the gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
