package rpc

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	schemaPath    = "chatline/v1/chatline.proto"
	schemaPackage = "chatline.v1"
)

// File describes proto/chatline/v1/chatline.proto. It is registered in
// protoregistry.GlobalFiles.
var File protoreflect.FileDescriptor

func init() {
	fd, err := protodesc.NewFile(schema(), protoregistry.GlobalFiles)
	if err != nil {
		panic(fmt.Sprintf("rpc: build %s: %v", schemaPath, err))
	}
	if err := protoregistry.GlobalFiles.RegisterFile(fd); err != nil {
		panic(fmt.Sprintf("rpc: register %s: %v", schemaPath, err))
	}
	File = fd
}

var (
	typeString = descriptorpb.FieldDescriptorProto_TYPE_STRING
	typeInt64  = descriptorpb.FieldDescriptorProto_TYPE_INT64
	typeBool   = descriptorpb.FieldDescriptorProto_TYPE_BOOL

	emptyName      = "." + string((&emptypb.Empty{}).ProtoReflect().Descriptor().FullName())
	int64ValueName = "." + string((&wrapperspb.Int64Value{}).ProtoReflect().Descriptor().FullName())
)

func local(name string) string { return "." + schemaPackage + "." + name }

func scalar(name string, number int32, typ descriptorpb.FieldDescriptorProto_Type) *descriptorpb.FieldDescriptorProto {
	return &descriptorpb.FieldDescriptorProto{
		Name:   proto.String(name),
		Number: proto.Int32(number),
		Label:  descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
		Type:   typ.Enum(),
	}
}

func embedded(name string, number int32, typeName string) *descriptorpb.FieldDescriptorProto {
	f := scalar(name, number, descriptorpb.FieldDescriptorProto_TYPE_MESSAGE)
	f.TypeName = proto.String(typeName)
	return f
}

func repeated(name string, number int32, typeName string) *descriptorpb.FieldDescriptorProto {
	f := embedded(name, number, typeName)
	f.Label = descriptorpb.FieldDescriptorProto_LABEL_REPEATED.Enum()
	return f
}

func message(name string, fields ...*descriptorpb.FieldDescriptorProto) *descriptorpb.DescriptorProto {
	return &descriptorpb.DescriptorProto{Name: proto.String(name), Field: fields}
}

func method(name, in, out string, serverStreaming bool) *descriptorpb.MethodDescriptorProto {
	m := &descriptorpb.MethodDescriptorProto{
		Name:       proto.String(name),
		InputType:  proto.String(in),
		OutputType: proto.String(out),
	}
	if serverStreaming {
		m.ServerStreaming = proto.Bool(true)
	}
	return m
}

func service(name string, methods ...*descriptorpb.MethodDescriptorProto) *descriptorpb.ServiceDescriptorProto {
	return &descriptorpb.ServiceDescriptorProto{Name: proto.String(name), Method: methods}
}

// schema mirrors proto/chatline/v1/chatline.proto field for field.
func schema() *descriptorpb.FileDescriptorProto {
	return &descriptorpb.FileDescriptorProto{
		Name:    proto.String(schemaPath),
		Package: proto.String(schemaPackage),
		Syntax:  proto.String("proto3"),
		Dependency: []string{
			emptypb.File_google_protobuf_empty_proto.Path(),
			wrapperspb.File_google_protobuf_wrappers_proto.Path(),
		},
		Options: &descriptorpb.FileOptions{
			GoPackage: proto.String("github.com/matheus3301/chatline/internal/rpc"),
		},
		MessageType: []*descriptorpb.DescriptorProto{
			message("Chat",
				scalar("id", 1, typeString),
				scalar("title", 2, typeString),
				scalar("last_message_at", 3, typeInt64),
				scalar("unread_count", 4, typeInt64),
			),
			message("Message",
				scalar("id", 1, typeString),
				scalar("chat_id", 2, typeString),
				scalar("ts", 3, typeInt64),
				scalar("sender", 4, typeString),
				scalar("body", 5, typeString),
			),
			message("GetChatsRequest",
				scalar("limit", 1, typeInt64),
				scalar("offset", 2, typeInt64),
			),
			message("GetChatsResponse",
				repeated("chats", 1, local("Chat")),
				scalar("has_more", 2, typeBool),
			),
			message("ChatRequest",
				scalar("chat_id", 1, typeString),
			),
			message("SeedDatabaseResponse",
				scalar("skipped", 1, typeBool),
				scalar("chats", 2, typeInt64),
				scalar("messages", 3, typeInt64),
				scalar("duration_ms", 4, typeInt64),
			),
			message("GetMessagesRequest",
				scalar("chat_id", 1, typeString),
				scalar("limit", 2, typeInt64),
				embedded("before_ts", 3, int64ValueName),
			),
			message("SearchMessagesRequest",
				scalar("chat_id", 1, typeString),
				scalar("query", 2, typeString),
				scalar("limit", 3, typeInt64),
			),
			message("MessagesResponse",
				repeated("messages", 1, local("Message")),
				scalar("has_more", 2, typeBool),
			),
			message("StateResponse",
				scalar("state", 1, typeString),
			),
			message("SimulateDropResponse",
				scalar("dropped", 1, typeInt64),
			),
			message("StateEvent",
				scalar("from", 1, typeString),
				scalar("to", 2, typeString),
				scalar("at_ms", 3, typeInt64),
			),
			message("GetStatusResponse",
				scalar("state", 1, typeString),
				scalar("attempt", 2, typeInt64),
				scalar("state_since_ms", 3, typeInt64),
				scalar("chat_count", 4, typeInt64),
				scalar("message_count", 5, typeInt64),
				scalar("uptime_ms", 6, typeInt64),
				scalar("sessions", 7, typeInt64),
				scalar("active_chat", 8, typeString),
			),
		},
		Service: []*descriptorpb.ServiceDescriptorProto{
			service("ChatService",
				method("GetChats", local("GetChatsRequest"), local("GetChatsResponse"), false),
				method("MarkChatAsRead", local("ChatRequest"), emptyName, false),
				method("SelectChat", local("ChatRequest"), emptyName, false),
				method("SeedDatabase", emptyName, local("SeedDatabaseResponse"), false),
			),
			service("MessageService",
				method("GetMessages", local("GetMessagesRequest"), local("MessagesResponse"), false),
				method("SearchMessages", local("SearchMessagesRequest"), local("MessagesResponse"), false),
				method("WatchMessages", emptyName, local("Message"), true),
			),
			service("ConnectionService",
				method("Connect", emptyName, local("StateResponse"), false),
				method("Disconnect", emptyName, local("StateResponse"), false),
				method("SimulateDrop", emptyName, local("SimulateDropResponse"), false),
				method("GetState", emptyName, local("StateResponse"), false),
				method("WatchState", emptyName, local("StateEvent"), true),
				method("GetStatus", emptyName, local("GetStatusResponse"), false),
			),
		},
	}
}
