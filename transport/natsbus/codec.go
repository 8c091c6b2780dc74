package natsbus

import (
	"github.com/pkg/errors"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/known/anypb"
)

// Resolver finds message types named in google.protobuf.Any payloads.
// *protoregistry.Types satisfies it.
type Resolver interface {
	protoregistry.MessageTypeResolver
	protoregistry.ExtensionTypeResolver
}

// Messages travel as a serialized google.protobuf.Any so that subscribers can
// decode them without knowing the topic's type in advance.
func encode(msg proto.Message) ([]byte, error) {
	wrapped, err := anypb.New(msg)
	if err != nil {
		return nil, errors.Wrap(err, "wrap any")
	}
	data, err := proto.Marshal(wrapped)
	if err != nil {
		return nil, errors.Wrap(err, "marshal")
	}
	return data, nil
}

func decode(data []byte, resolver Resolver) (proto.Message, error) {
	var wrapped anypb.Any
	if err := proto.Unmarshal(data, &wrapped); err != nil {
		return nil, errors.Wrap(err, "unmarshal any")
	}
	msg, err := anypb.UnmarshalNew(&wrapped, proto.UnmarshalOptions{Resolver: resolver})
	if err != nil {
		return nil, errors.Wrapf(err, "unmarshal %s", wrapped.GetTypeUrl())
	}
	return msg, nil
}

type resolverChain []Resolver

// ChainResolvers tries each resolver in order and returns the first match.
func ChainResolvers(resolvers ...Resolver) Resolver {
	return resolverChain(resolvers)
}

func (c resolverChain) FindMessageByName(name protoreflect.FullName) (protoreflect.MessageType, error) {
	for _, r := range c {
		mt, err := r.FindMessageByName(name)
		if err != protoregistry.NotFound {
			return mt, err
		}
	}
	return nil, protoregistry.NotFound
}

func (c resolverChain) FindMessageByURL(url string) (protoreflect.MessageType, error) {
	for _, r := range c {
		mt, err := r.FindMessageByURL(url)
		if err != protoregistry.NotFound {
			return mt, err
		}
	}
	return nil, protoregistry.NotFound
}

func (c resolverChain) FindExtensionByName(field protoreflect.FullName) (protoreflect.ExtensionType, error) {
	for _, r := range c {
		xt, err := r.FindExtensionByName(field)
		if err != protoregistry.NotFound {
			return xt, err
		}
	}
	return nil, protoregistry.NotFound
}

func (c resolverChain) FindExtensionByNumber(message protoreflect.FullName, field protoreflect.FieldNumber) (protoreflect.ExtensionType, error) {
	for _, r := range c {
		xt, err := r.FindExtensionByNumber(message, field)
		if err != protoregistry.NotFound {
			return xt, err
		}
	}
	return nil, protoregistry.NotFound
}
