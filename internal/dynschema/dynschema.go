// Package dynschema builds protobuf message descriptors at runtime, so that
// tests and the demo publisher can produce messages without generated code.
package dynschema

import (
	"fmt"
	"github.com/pkg/errors"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/dynamicpb"
)

type Type = descriptorpb.FieldDescriptorProto_Type

const (
	Double   = descriptorpb.FieldDescriptorProto_TYPE_DOUBLE
	Float    = descriptorpb.FieldDescriptorProto_TYPE_FLOAT
	Int32    = descriptorpb.FieldDescriptorProto_TYPE_INT32
	Int64    = descriptorpb.FieldDescriptorProto_TYPE_INT64
	Uint32   = descriptorpb.FieldDescriptorProto_TYPE_UINT32
	Uint64   = descriptorpb.FieldDescriptorProto_TYPE_UINT64
	Sint32   = descriptorpb.FieldDescriptorProto_TYPE_SINT32
	Sint64   = descriptorpb.FieldDescriptorProto_TYPE_SINT64
	Fixed32  = descriptorpb.FieldDescriptorProto_TYPE_FIXED32
	Fixed64  = descriptorpb.FieldDescriptorProto_TYPE_FIXED64
	Sfixed32 = descriptorpb.FieldDescriptorProto_TYPE_SFIXED32
	Sfixed64 = descriptorpb.FieldDescriptorProto_TYPE_SFIXED64
	Bool     = descriptorpb.FieldDescriptorProto_TYPE_BOOL
	String   = descriptorpb.FieldDescriptorProto_TYPE_STRING
	Bytes    = descriptorpb.FieldDescriptorProto_TYPE_BYTES
	Enum     = descriptorpb.FieldDescriptorProto_TYPE_ENUM
	Message  = descriptorpb.FieldDescriptorProto_TYPE_MESSAGE
)

// Field describes one field. TypeName names a message or enum declared in the
// same file and is required for Message and Enum fields.
type Field struct {
	Name     string
	Type     Type
	TypeName string
	Repeated bool
}

type Msg struct {
	Name   string
	Fields []Field
}

type EnumDef struct {
	Name   string
	Values []string
}

type File struct {
	Name     string
	Package  string
	Messages []Msg
	Enums    []EnumDef
}

// Build converts f into a proto3 file descriptor.
func Build(f File) (protoreflect.FileDescriptor, error) {
	fdp := &descriptorpb.FileDescriptorProto{
		Name:    proto.String(f.Name),
		Package: proto.String(f.Package),
		Syntax:  proto.String("proto3"),
	}

	for _, e := range f.Enums {
		ed := &descriptorpb.EnumDescriptorProto{Name: proto.String(e.Name)}
		for i, v := range e.Values {
			ed.Value = append(ed.Value, &descriptorpb.EnumValueDescriptorProto{
				Name:   proto.String(v),
				Number: proto.Int32(int32(i)),
			})
		}
		fdp.EnumType = append(fdp.EnumType, ed)
	}

	for _, m := range f.Messages {
		md := &descriptorpb.DescriptorProto{Name: proto.String(m.Name)}
		for i, field := range m.Fields {
			label := descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL
			if field.Repeated {
				label = descriptorpb.FieldDescriptorProto_LABEL_REPEATED
			}
			fp := &descriptorpb.FieldDescriptorProto{
				Name:   proto.String(field.Name),
				Number: proto.Int32(int32(i + 1)),
				Label:  label.Enum(),
				Type:   field.Type.Enum(),
			}
			if field.Type == Message || field.Type == Enum {
				if field.TypeName == "" {
					return nil, fmt.Errorf("field %s.%s: missing type name", m.Name, field.Name)
				}
				fp.TypeName = proto.String("." + f.Package + "." + field.TypeName)
			}
			md.Field = append(md.Field, fp)
		}
		fdp.MessageType = append(fdp.MessageType, md)
	}

	fd, err := protodesc.NewFile(fdp, new(protoregistry.Files))
	if err != nil {
		return nil, errors.Wrap(err, "new file descriptor")
	}
	return fd, nil
}

// MustBuild is Build for static schemas.
func MustBuild(f File) protoreflect.FileDescriptor {
	fd, err := Build(f)
	if err != nil {
		panic(err)
	}
	return fd
}

// Chain builds a schema whose root message "Root" nests along path, one
// message type per level, and ends in a scalar field of type terminal.
func Chain(pkg string, path []string, terminal Type) (protoreflect.MessageDescriptor, error) {
	if len(path) == 0 {
		return nil, errors.New("empty path")
	}

	var msgs []Msg
	for i, name := range path {
		msgName := "Root"
		if i > 0 {
			msgName = fmt.Sprintf("Level%d", i)
		}

		field := Field{Name: name, Type: terminal}
		if i < len(path)-1 {
			field = Field{Name: name, Type: Message, TypeName: fmt.Sprintf("Level%d", i+1)}
		}
		msgs = append(msgs, Msg{Name: msgName, Fields: []Field{field}})
	}

	fd, err := Build(File{
		Name:     pkg + ".proto",
		Package:  pkg,
		Messages: msgs,
	})
	if err != nil {
		return nil, err
	}
	return fd.Messages().ByName("Root"), nil
}

// Set writes v at path inside msg, creating intermediate messages.
func Set(msg protoreflect.Message, path []string, v protoreflect.Value) error {
	cur := msg
	for i, name := range path {
		fd := cur.Descriptor().Fields().ByName(protoreflect.Name(name))
		if fd == nil {
			return fmt.Errorf("no field %q in %s", name, cur.Descriptor().FullName())
		}
		if i == len(path)-1 {
			cur.Set(fd, v)
			return nil
		}
		cur = cur.Mutable(fd).Message()
	}
	return errors.New("empty path")
}

// Types registers every top-level message of files as a dynamic type, for
// decoding google.protobuf.Any payloads.
func Types(files ...protoreflect.FileDescriptor) (*protoregistry.Types, error) {
	types := new(protoregistry.Types)
	for _, fd := range files {
		msgs := fd.Messages()
		for i := 0; i < msgs.Len(); i++ {
			if err := types.RegisterMessage(dynamicpb.NewMessageType(msgs.Get(i))); err != nil {
				return nil, errors.Wrap(err, "register message")
			}
		}
	}
	return types, nil
}
