package fieldpath

import (
	"google.golang.org/protobuf/reflect/protoreflect"
)

// Resolve walks path from msg and returns the message that owns the terminal
// field together with the terminal field descriptor.
func Resolve(
	msg protoreflect.Message,
	path Path,
) (protoreflect.Message, protoreflect.FieldDescriptor, error) {
	if len(path) == 0 {
		return nil, nil, &PathResolutionError{Segment: -1, Reason: "empty path"}
	}

	cur := msg
	last := len(path) - 1

	for i, name := range path[:last] {
		fd, err := lookup(cur, path, i)
		if err != nil {
			return nil, nil, err
		}

		if fd.Kind() != protoreflect.MessageKind && fd.Kind() != protoreflect.GroupKind {
			return nil, nil, resolutionError(cur, path, i, "not a message field ("+fd.Kind().String()+")")
		}
		if fd.IsList() || fd.IsMap() {
			return nil, nil, resolutionError(cur, path, i, "repeated field "+name+" cannot be descended into")
		}

		cur = cur.Get(fd).Message()
	}

	fd, err := lookup(cur, path, last)
	if err != nil {
		return nil, nil, err
	}

	return cur, fd, nil
}

func lookup(msg protoreflect.Message, path Path, i int) (protoreflect.FieldDescriptor, error) {
	fd := msg.Descriptor().Fields().ByName(protoreflect.Name(path[i]))
	if fd == nil {
		return nil, resolutionError(msg, path, i, "no such field")
	}
	return fd, nil
}

func resolutionError(msg protoreflect.Message, path Path, i int, reason string) error {
	return &PathResolutionError{
		Path:    path.Clone(),
		Segment: i,
		Message: msg.Descriptor().FullName(),
		Reason:  reason,
	}
}
