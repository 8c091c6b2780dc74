package fieldpath

import (
	"fmt"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// PathResolutionError reports a path segment that does not name a usable field.
type PathResolutionError struct {
	Path    Path
	Segment int // index into Path, -1 for an empty path
	Message protoreflect.FullName
	Reason  string
}

func (e *PathResolutionError) Error() string {
	if e.Segment < 0 {
		return fmt.Sprintf("resolve field path: %s", e.Reason)
	}
	return fmt.Sprintf(
		"resolve field path %q: segment %d (%q) in %s: %s",
		e.Path.String(), e.Segment, e.Path[e.Segment], e.Message, e.Reason,
	)
}

// UnsupportedFieldKindError reports a terminal field that has no scalar mapping.
type UnsupportedFieldKindError struct {
	Field protoreflect.FullName
	Kind  protoreflect.Kind
	Card  protoreflect.Cardinality
}

func (e *UnsupportedFieldKindError) Error() string {
	if e.Card == protoreflect.Repeated {
		return fmt.Sprintf("field %s: repeated %s is not plottable", e.Field, e.Kind)
	}
	return fmt.Sprintf("field %s: kind %s is not plottable", e.Field, e.Kind)
}
