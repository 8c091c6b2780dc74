package natsbus

import (
	"github.com/minor-industries/protoplot/fieldpath"
	"github.com/minor-industries/protoplot/internal/dynschema"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/dynamicpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
	"testing"
)

func TestCodecCompiledType(t *testing.T) {
	data, err := encode(wrapperspb.Int64(-3))
	require.NoError(t, err)

	msg, err := decode(data, protoregistry.GlobalTypes)
	require.NoError(t, err)
	require.Equal(t, int64(-3), msg.(*wrapperspb.Int64Value).GetValue())
}

func TestCodecDynamicType(t *testing.T) {
	md, err := dynschema.Chain("codec.dynamic", []string{"a", "b", "c"}, dynschema.Double)
	require.NoError(t, err)

	msg := dynamicpb.NewMessage(md)
	require.NoError(t, dynschema.Set(msg, []string{"a", "b", "c"}, protoreflect.ValueOfFloat64(3.25)))

	data, err := encode(msg)
	require.NoError(t, err)

	// unknown to the global registry
	_, err = decode(data, protoregistry.GlobalTypes)
	require.Error(t, err)

	types, err := dynschema.Types(md.ParentFile())
	require.NoError(t, err)

	decoded, err := decode(data, types)
	require.NoError(t, err)

	v, err := fieldpath.Value(decoded.ProtoReflect(), fieldpath.Path{"a", "b", "c"})
	require.NoError(t, err)
	require.Equal(t, 3.25, v)
}

func TestCodecGarbage(t *testing.T) {
	_, err := decode([]byte{0xff, 0xff, 0xff}, protoregistry.GlobalTypes)
	require.Error(t, err)
}

func TestChainResolvers(t *testing.T) {
	md, err := dynschema.Chain("codec.chain", []string{"x"}, dynschema.Int32)
	require.NoError(t, err)
	types, err := dynschema.Types(md.ParentFile())
	require.NoError(t, err)

	resolver := ChainResolvers(protoregistry.GlobalTypes, types)

	msg := dynamicpb.NewMessage(md)
	require.NoError(t, dynschema.Set(msg, []string{"x"}, protoreflect.ValueOfInt32(-7)))
	data, err := encode(msg)
	require.NoError(t, err)

	decoded, err := decode(data, resolver)
	require.NoError(t, err)
	v, err := fieldpath.Value(decoded.ProtoReflect(), fieldpath.Path{"x"})
	require.NoError(t, err)
	require.Equal(t, -7.0, v)

	data, err = encode(wrapperspb.Double(1.5))
	require.NoError(t, err)
	decoded, err = decode(data, resolver)
	require.NoError(t, err)
	require.Equal(t, 1.5, decoded.(*wrapperspb.DoubleValue).GetValue())

	_, err = resolver.FindMessageByName("codec.chain.Missing")
	require.ErrorIs(t, err, protoregistry.NotFound)
}
