package pipl

import (
	"errors"
	"fmt"
)

var (
	// ErrBadContainer marks containers that are structurally unparsable.
	ErrBadContainer = errors.New("container structurally unparsable")

	// ErrBadValue marks structurally valid records holding an invalid value.
	ErrBadValue = errors.New("invalid property value")

	// ErrOutOfRange marks a packed field exceeding its declared bit width.
	ErrOutOfRange = errors.New("packed field out of range")
)

// FormatError reports a container that cannot be navigated: bad magic,
// out-of-range offsets, truncated tables, cyclic directories.
type FormatError struct {
	Container string
	Offset    int64
	Msg       string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%s: %s (offset 0x%x)", e.Container, e.Msg, e.Offset)
}

func (e *FormatError) Unwrap() error { return ErrBadContainer }

func formatErrf(container string, offset int64, format string, args ...any) error {
	return &FormatError{Container: container, Offset: offset, Msg: fmt.Sprintf(format, args...)}
}

// DecodeError reports a structurally valid record whose value cannot be
// decoded: wrong declared width, unresolved flag residue, unknown script
// symbol.
type DecodeError struct {
	Tag string
	Msg string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("property %q: %s", e.Tag, e.Msg)
}

func (e *DecodeError) Unwrap() error { return ErrBadValue }

func decodeErrf(tag string, format string, args ...any) error {
	return &DecodeError{Tag: tag, Msg: fmt.Sprintf(format, args...)}
}

// RangeError reports a version field that exceeds its bit width when packing.
type RangeError struct {
	Field string
	Value uint32
	Max   uint32
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("version field %s: value %d exceeds maximum %d", e.Field, e.Value, e.Max)
}

func (e *RangeError) Unwrap() error { return ErrOutOfRange }
