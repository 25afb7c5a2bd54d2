package rpc

import (
	"context"

	"google.golang.org/grpc"
)

const (
	ChatService_GetChats_FullMethodName       = "/chatline.v1.ChatService/GetChats"
	ChatService_MarkChatAsRead_FullMethodName = "/chatline.v1.ChatService/MarkChatAsRead"
	ChatService_SelectChat_FullMethodName     = "/chatline.v1.ChatService/SelectChat"
	ChatService_SeedDatabase_FullMethodName   = "/chatline.v1.ChatService/SeedDatabase"

	MessageService_GetMessages_FullMethodName    = "/chatline.v1.MessageService/GetMessages"
	MessageService_SearchMessages_FullMethodName = "/chatline.v1.MessageService/SearchMessages"
	MessageService_WatchMessages_FullMethodName  = "/chatline.v1.MessageService/WatchMessages"

	ConnectionService_Connect_FullMethodName      = "/chatline.v1.ConnectionService/Connect"
	ConnectionService_Disconnect_FullMethodName   = "/chatline.v1.ConnectionService/Disconnect"
	ConnectionService_SimulateDrop_FullMethodName = "/chatline.v1.ConnectionService/SimulateDrop"
	ConnectionService_GetState_FullMethodName     = "/chatline.v1.ConnectionService/GetState"
	ConnectionService_WatchState_FullMethodName   = "/chatline.v1.ConnectionService/WatchState"
	ConnectionService_GetStatus_FullMethodName    = "/chatline.v1.ConnectionService/GetStatus"
)

// ChatServiceServer is the server API for chatline.v1.ChatService.
type ChatServiceServer interface {
	GetChats(context.Context, *GetChatsRequest) (*GetChatsResponse, error)
	MarkChatAsRead(context.Context, *ChatRequest) (*Empty, error)
	SelectChat(context.Context, *ChatRequest) (*Empty, error)
	SeedDatabase(context.Context, *Empty) (*SeedDatabaseResponse, error)
}

// MessageServiceServer is the server API for chatline.v1.MessageService.
type MessageServiceServer interface {
	GetMessages(context.Context, *GetMessagesRequest) (*MessagesResponse, error)
	SearchMessages(context.Context, *SearchMessagesRequest) (*MessagesResponse, error)
	WatchMessages(*Empty, grpc.ServerStreamingServer[Message]) error
}

// ConnectionServiceServer is the server API for chatline.v1.ConnectionService.
type ConnectionServiceServer interface {
	Connect(context.Context, *Empty) (*StateResponse, error)
	Disconnect(context.Context, *Empty) (*StateResponse, error)
	SimulateDrop(context.Context, *Empty) (*SimulateDropResponse, error)
	GetState(context.Context, *Empty) (*StateResponse, error)
	WatchState(*Empty, grpc.ServerStreamingServer[StateEvent]) error
	GetStatus(context.Context, *Empty) (*GetStatusResponse, error)
}

// unary builds a MethodDesc that decodes Req and dispatches to call.
func unary[S any, Req any, Resp any](fullMethod string, call func(S, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: methodName(fullMethod),
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(S), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(S), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// serverStream builds a server-streaming StreamDesc.
func serverStream[S any, Req any, Resp any](fullMethod string, call func(S, *Req, grpc.ServerStreamingServer[Resp]) error) grpc.StreamDesc {
	return grpc.StreamDesc{
		StreamName: methodName(fullMethod),
		Handler: func(srv any, stream grpc.ServerStream) error {
			in := new(Req)
			if err := stream.RecvMsg(in); err != nil {
				return err
			}
			return call(srv.(S), in, &grpc.GenericServerStream[Req, Resp]{ServerStream: stream})
		},
		ServerStreams: true,
	}
}

func methodName(fullMethod string) string {
	for i := len(fullMethod) - 1; i >= 0; i-- {
		if fullMethod[i] == '/' {
			return fullMethod[i+1:]
		}
	}
	return fullMethod
}

// ChatService_ServiceDesc is the grpc.ServiceDesc for ChatService.
var ChatService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "chatline.v1.ChatService",
	HandlerType: (*ChatServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(ChatService_GetChats_FullMethodName, ChatServiceServer.GetChats),
		unary(ChatService_MarkChatAsRead_FullMethodName, ChatServiceServer.MarkChatAsRead),
		unary(ChatService_SelectChat_FullMethodName, ChatServiceServer.SelectChat),
		unary(ChatService_SeedDatabase_FullMethodName, ChatServiceServer.SeedDatabase),
	},
	Metadata: schemaPath,
}

// MessageService_ServiceDesc is the grpc.ServiceDesc for MessageService.
var MessageService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "chatline.v1.MessageService",
	HandlerType: (*MessageServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(MessageService_GetMessages_FullMethodName, MessageServiceServer.GetMessages),
		unary(MessageService_SearchMessages_FullMethodName, MessageServiceServer.SearchMessages),
	},
	Streams: []grpc.StreamDesc{
		serverStream(MessageService_WatchMessages_FullMethodName, MessageServiceServer.WatchMessages),
	},
	Metadata: schemaPath,
}

// ConnectionService_ServiceDesc is the grpc.ServiceDesc for ConnectionService.
var ConnectionService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "chatline.v1.ConnectionService",
	HandlerType: (*ConnectionServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(ConnectionService_Connect_FullMethodName, ConnectionServiceServer.Connect),
		unary(ConnectionService_Disconnect_FullMethodName, ConnectionServiceServer.Disconnect),
		unary(ConnectionService_SimulateDrop_FullMethodName, ConnectionServiceServer.SimulateDrop),
		unary(ConnectionService_GetState_FullMethodName, ConnectionServiceServer.GetState),
		unary(ConnectionService_GetStatus_FullMethodName, ConnectionServiceServer.GetStatus),
	},
	Streams: []grpc.StreamDesc{
		serverStream(ConnectionService_WatchState_FullMethodName, ConnectionServiceServer.WatchState),
	},
	Metadata: schemaPath,
}

func RegisterChatServiceServer(s grpc.ServiceRegistrar, srv ChatServiceServer) {
	s.RegisterService(&ChatService_ServiceDesc, srv)
}

func RegisterMessageServiceServer(s grpc.ServiceRegistrar, srv MessageServiceServer) {
	s.RegisterService(&MessageService_ServiceDesc, srv)
}

func RegisterConnectionServiceServer(s grpc.ServiceRegistrar, srv ConnectionServiceServer) {
	s.RegisterService(&ConnectionService_ServiceDesc, srv)
}
