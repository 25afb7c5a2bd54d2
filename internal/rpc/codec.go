package rpc

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"google.golang.org/grpc/encoding"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
)

// CodecName is the content-subtype clients must select
// ("application/grpc+chatlinepb"). Frames are protobuf-encoded against File.
const CodecName = "chatlinepb"

// protoCodec marshals proto.Message values directly and the plain structs in
// types.go through dynamic messages of the same name in File. Struct fields
// map to proto fields by their json tag, which equals the proto JSON name.
type protoCodec struct{}

func (protoCodec) Name() string { return CodecName }

func (protoCodec) Marshal(v any) ([]byte, error) {
	if m, ok := v.(proto.Message); ok {
		return proto.Marshal(m)
	}
	rv, p, err := target(v)
	if err != nil {
		return nil, err
	}
	m := dynamicpb.NewMessage(p.md)
	if err := p.fill(m, rv); err != nil {
		return nil, err
	}
	return proto.Marshal(m)
}

func (protoCodec) Unmarshal(data []byte, v any) error {
	if m, ok := v.(proto.Message); ok {
		return proto.Unmarshal(data, m)
	}
	rv, p, err := target(v)
	if err != nil {
		return err
	}
	m := dynamicpb.NewMessage(p.md)
	if err := proto.Unmarshal(data, m); err != nil {
		return fmt.Errorf("rpc: unmarshal %s: %w", p.md.FullName(), err)
	}
	return p.read(m, rv)
}

func init() {
	encoding.RegisterCodec(protoCodec{})
}

func target(v any) (reflect.Value, *messagePlan, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return reflect.Value{}, nil, fmt.Errorf("rpc: codec needs a non-nil pointer, got %T", v)
	}
	p, err := planFor(rv.Elem().Type())
	if err != nil {
		return reflect.Value{}, nil, err
	}
	return rv.Elem(), p, nil
}

type fieldPlan struct {
	index int
	fd    protoreflect.FieldDescriptor
}

type messagePlan struct {
	md     protoreflect.MessageDescriptor
	fields []fieldPlan
}

var plans sync.Map // reflect.Type -> *messagePlan

func planFor(t reflect.Type) (*messagePlan, error) {
	if p, ok := plans.Load(t); ok {
		return p.(*messagePlan), nil
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("rpc: %v is not a struct", t)
	}
	md := File.Messages().ByName(protoreflect.Name(t.Name()))
	if md == nil {
		return nil, fmt.Errorf("rpc: %s has no message %q", schemaPath, t.Name())
	}

	p := &messagePlan{md: md}
	for i := range t.NumField() {
		sf := t.Field(i)
		name, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			continue
		}
		fd := md.Fields().ByJSONName(name)
		if fd == nil {
			return nil, fmt.Errorf("rpc: %s has no field for %s.%s", md.FullName(), t.Name(), sf.Name)
		}
		if !compatible(sf.Type, fd) {
			return nil, fmt.Errorf("rpc: %s.%s (%v) does not fit %s", t.Name(), sf.Name, sf.Type, fd.FullName())
		}
		p.fields = append(p.fields, fieldPlan{index: i, fd: fd})
	}
	if len(p.fields) != md.Fields().Len() {
		return nil, fmt.Errorf("rpc: %s maps %d of %d fields", t.Name(), len(p.fields), md.Fields().Len())
	}

	actual, _ := plans.LoadOrStore(t, p)
	return actual.(*messagePlan), nil
}

func compatible(t reflect.Type, fd protoreflect.FieldDescriptor) bool {
	switch {
	case fd.IsList():
		return t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Struct
	case fd.Kind() == protoreflect.MessageKind:
		return "."+string(fd.Message().FullName()) == int64ValueName && t == reflect.TypeFor[*int64]()
	case fd.Kind() == protoreflect.StringKind:
		return t.Kind() == reflect.String
	case fd.Kind() == protoreflect.Int64Kind:
		return t.Kind() == reflect.Int || t.Kind() == reflect.Int64
	case fd.Kind() == protoreflect.BoolKind:
		return t.Kind() == reflect.Bool
	}
	return false
}

func (p *messagePlan) fill(m protoreflect.Message, rv reflect.Value) error {
	for _, f := range p.fields {
		fv := rv.Field(f.index)
		if fv.IsZero() {
			continue
		}
		switch {
		case f.fd.IsList():
			ep, err := planFor(fv.Type().Elem())
			if err != nil {
				return err
			}
			list := m.Mutable(f.fd).List()
			for i := range fv.Len() {
				elem := list.NewElement()
				if err := ep.fill(elem.Message(), fv.Index(i)); err != nil {
					return err
				}
				list.Append(elem)
			}
		case f.fd.Kind() == protoreflect.MessageKind:
			w := m.Mutable(f.fd).Message()
			if x := fv.Elem().Int(); x != 0 {
				w.Set(w.Descriptor().Fields().ByName("value"), protoreflect.ValueOfInt64(x))
			}
		case f.fd.Kind() == protoreflect.StringKind:
			m.Set(f.fd, protoreflect.ValueOfString(fv.String()))
		case f.fd.Kind() == protoreflect.Int64Kind:
			m.Set(f.fd, protoreflect.ValueOfInt64(fv.Int()))
		case f.fd.Kind() == protoreflect.BoolKind:
			m.Set(f.fd, protoreflect.ValueOfBool(fv.Bool()))
		}
	}
	return nil
}

func (p *messagePlan) read(m protoreflect.Message, rv reflect.Value) error {
	for _, f := range p.fields {
		fv := rv.Field(f.index)
		switch {
		case f.fd.IsList():
			list := m.Get(f.fd).List()
			if list.Len() == 0 {
				fv.SetZero()
				continue
			}
			ep, err := planFor(fv.Type().Elem())
			if err != nil {
				return err
			}
			s := reflect.MakeSlice(fv.Type(), list.Len(), list.Len())
			for i := range list.Len() {
				if err := ep.read(list.Get(i).Message(), s.Index(i)); err != nil {
					return err
				}
			}
			fv.Set(s)
		case f.fd.Kind() == protoreflect.MessageKind:
			if !m.Has(f.fd) {
				fv.SetZero()
				continue
			}
			w := m.Get(f.fd).Message()
			x := w.Get(w.Descriptor().Fields().ByName("value")).Int()
			fv.Set(reflect.ValueOf(&x))
		case f.fd.Kind() == protoreflect.StringKind:
			fv.SetString(m.Get(f.fd).String())
		case f.fd.Kind() == protoreflect.Int64Kind:
			fv.SetInt(m.Get(f.fd).Int())
		case f.fd.Kind() == protoreflect.BoolKind:
			fv.SetBool(m.Get(f.fd).Bool())
		}
	}
	return nil
}
