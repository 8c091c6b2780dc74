// Package fieldpath locates a scalar inside a protobuf message by walking an
// ordered list of field names, and converts it to a float64 for plotting.
//
// Paths are usually given as a single string with the field names joined by
// Delimiter, e.g. "pose-position-x". Field names therefore may not contain '-'.
//
// Resolution only reads the message: intermediate sub-messages that are unset
// resolve to their empty default instance, so their scalar fields read as zero.
package fieldpath
