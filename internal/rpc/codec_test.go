package rpc

import (
	"reflect"
	"strings"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
)

func TestEveryTypeMapsToSchema(t *testing.T) {
	types := []any{
		Chat{}, Message{}, GetChatsRequest{}, GetChatsResponse{}, ChatRequest{},
		SeedDatabaseResponse{}, GetMessagesRequest{}, SearchMessagesRequest{},
		MessagesResponse{}, StateResponse{}, SimulateDropResponse{}, StateEvent{},
		GetStatusResponse{},
	}
	for _, v := range types {
		if _, err := planFor(reflect.TypeOf(v)); err != nil {
			t.Errorf("%T: %v", v, err)
		}
	}
	if got := File.Messages().Len(); got != len(types) {
		t.Errorf("schema has %d messages, %d Go types", got, len(types))
	}
}

func TestServiceDescsMatchSchema(t *testing.T) {
	for _, sd := range []*grpc.ServiceDesc{&ChatService_ServiceDesc, &MessageService_ServiceDesc, &ConnectionService_ServiceDesc} {
		name := strings.TrimPrefix(sd.ServiceName, schemaPackage+".")
		svc := File.Services().ByName(protoreflect.Name(name))
		if svc == nil {
			t.Errorf("schema has no service %s", sd.ServiceName)
			continue
		}
		if got, want := svc.Methods().Len(), len(sd.Methods)+len(sd.Streams); got != want {
			t.Errorf("%s: schema has %d methods, desc has %d", name, got, want)
		}
		for _, m := range sd.Methods {
			md := svc.Methods().ByName(protoreflect.Name(m.MethodName))
			if md == nil || md.IsStreamingServer() {
				t.Errorf("%s.%s: want unary method in schema", name, m.MethodName)
			}
		}
		for _, s := range sd.Streams {
			md := svc.Methods().ByName(protoreflect.Name(s.StreamName))
			if md == nil || !md.IsStreamingServer() {
				t.Errorf("%s.%s: want server-streaming method in schema", name, s.StreamName)
			}
		}
	}
}

func TestBeforeTsPresenceSurvives(t *testing.T) {
	zero, ts := int64(0), int64(1_700_000_000_000)
	tests := []struct {
		name   string
		before *int64
	}{
		{"unset", nil},
		{"zero", &zero},
		{"set", &ts},
	}

	var c protoCodec
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := c.Marshal(&GetMessagesRequest{ChatID: "c1", Limit: 20, BeforeTs: tt.before})
			if err != nil {
				t.Fatal(err)
			}
			var got GetMessagesRequest
			if err := c.Unmarshal(data, &got); err != nil {
				t.Fatal(err)
			}
			if got.ChatID != "c1" || got.Limit != 20 {
				t.Errorf("got %+v", got)
			}
			switch {
			case tt.before == nil && got.BeforeTs != nil:
				t.Errorf("beforeTs = %d, want unset", *got.BeforeTs)
			case tt.before != nil && (got.BeforeTs == nil || *got.BeforeTs != *tt.before):
				t.Errorf("beforeTs = %v, want %d", got.BeforeTs, *tt.before)
			}
		})
	}
}

func TestRepeatedMessagesRoundTrip(t *testing.T) {
	in := &MessagesResponse{
		Messages: []Message{
			{ID: "m1", ChatID: "c1", TS: 1000, Sender: "Alice", Body: "[ENCRYPTED]hi"},
			{ID: "m2", ChatID: "c1", TS: 2000, Sender: "Bob", Body: "[ENCRYPTED]there"},
		},
		HasMore: true,
	}

	var c protoCodec
	data, err := c.Marshal(in)
	if err != nil {
		t.Fatal(err)
	}
	var out MessagesResponse
	if err := c.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(in, &out) {
		t.Errorf("round trip:\n got %+v\nwant %+v", out, *in)
	}
}

func TestFramesAreProtobuf(t *testing.T) {
	var c protoCodec

	data, err := c.Marshal(&GetChatsRequest{Limit: 50, Offset: 10})
	if err != nil {
		t.Fatal(err)
	}
	md := File.Messages().ByName("GetChatsRequest")
	m := dynamicpb.NewMessage(md)
	if err := proto.Unmarshal(data, m); err != nil {
		t.Fatal(err)
	}
	if limit := m.Get(md.Fields().ByName("limit")).Int(); limit != 50 {
		t.Errorf("limit = %d, want 50", limit)
	}
	if offset := m.Get(md.Fields().ByName("offset")).Int(); offset != 10 {
		t.Errorf("offset = %d, want 10", offset)
	}

	// ChatRequest{chat_id: "abc"} written field by field.
	raw := protowire.AppendTag(nil, 1, protowire.BytesType)
	raw = protowire.AppendString(raw, "abc")
	var req ChatRequest
	if err := c.Unmarshal(raw, &req); err != nil {
		t.Fatal(err)
	}
	if req.ChatID != "abc" {
		t.Errorf("chatId = %q, want abc", req.ChatID)
	}
}

func TestEmptyUsesWellKnownType(t *testing.T) {
	var c protoCodec
	data, err := c.Marshal(&Empty{})
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 0 {
		t.Errorf("empty encodes to %d bytes", len(data))
	}
	if err := c.Unmarshal(nil, &Empty{}); err != nil {
		t.Fatal(err)
	}
}

type unlisted struct {
	ID string `json:"id"`
}

func TestUnknownTypeRejected(t *testing.T) {
	var c protoCodec
	if _, err := c.Marshal(&unlisted{ID: "x"}); err == nil {
		t.Error("marshal of a type outside the schema should fail")
	}
	if _, err := c.Marshal(unlisted{ID: "x"}); err == nil {
		t.Error("marshal of a non-pointer should fail")
	}
}
