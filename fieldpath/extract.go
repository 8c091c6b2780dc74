package fieldpath

import (
	"google.golang.org/protobuf/reflect/protoreflect"
)

type converter func(v protoreflect.Value) float64

func fromFloat(v protoreflect.Value) float64 { return v.Float() }
func fromInt(v protoreflect.Value) float64   { return float64(v.Int()) }
func fromUint(v protoreflect.Value) float64  { return float64(v.Uint()) }

func fromBool(v protoreflect.Value) float64 {
	if v.Bool() {
		return 1
	}
	return 0
}

var converters = map[protoreflect.Kind]converter{
	protoreflect.DoubleKind: fromFloat,
	protoreflect.FloatKind:  fromFloat,

	protoreflect.Int32Kind:    fromInt,
	protoreflect.Sint32Kind:   fromInt,
	protoreflect.Sfixed32Kind: fromInt,
	protoreflect.Int64Kind:    fromInt,
	protoreflect.Sint64Kind:   fromInt,
	protoreflect.Sfixed64Kind: fromInt,

	protoreflect.Uint32Kind:  fromUint,
	protoreflect.Fixed32Kind: fromUint,
	protoreflect.Uint64Kind:  fromUint,
	protoreflect.Fixed64Kind: fromUint,

	protoreflect.BoolKind: fromBool,
}

// Plottable reports whether Extract can convert fd.
func Plottable(fd protoreflect.FieldDescriptor) bool {
	if fd.IsList() || fd.IsMap() {
		return false
	}
	_, ok := converters[fd.Kind()]
	return ok
}

// Extract returns the value of fd in msg as a float64. Unsupported fields
// return 0 along with an *UnsupportedFieldKindError.
func Extract(msg protoreflect.Message, fd protoreflect.FieldDescriptor) (float64, error) {
	if !Plottable(fd) {
		return 0, &UnsupportedFieldKindError{
			Field: fd.FullName(),
			Kind:  fd.Kind(),
			Card:  fd.Cardinality(),
		}
	}
	return converters[fd.Kind()](msg.Get(fd)), nil
}

// Value resolves path in msg and extracts the terminal field.
func Value(msg protoreflect.Message, path Path) (float64, error) {
	owner, fd, err := Resolve(msg, path)
	if err != nil {
		return 0, err
	}
	return Extract(owner, fd)
}
