package stitch

import (
	"errors"
	"fmt"
)

// Kind classifies why an entry, page or write was skipped.
type Kind int

const (
	KindInvalidImage Kind = iota + 1
	KindDecodeFailure
	KindResizeFailure
	KindCanvasAllocation
	KindWriteFailure
	KindEmptyInput
)

var (
	ErrInvalidImage     = errors.New("invalid image dimensions")
	ErrDecode           = errors.New("image decode failed")
	ErrResize           = errors.New("resize failed")
	ErrCanvasAllocation = errors.New("canvas allocation failed")
	ErrWrite            = errors.New("page write failed")
	ErrEmptyInput       = errors.New("no images to stitch")
)

func (k Kind) String() string {
	switch k {
	case KindInvalidImage:
		return "invalid_image"
	case KindDecodeFailure:
		return "decode_failure"
	case KindResizeFailure:
		return "resize_failure"
	case KindCanvasAllocation:
		return "canvas_allocation"
	case KindWriteFailure:
		return "write_failure"
	case KindEmptyInput:
		return "empty_input"
	default:
		return "unknown"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindInvalidImage:
		return ErrInvalidImage
	case KindDecodeFailure:
		return ErrDecode
	case KindResizeFailure:
		return ErrResize
	case KindCanvasAllocation:
		return ErrCanvasAllocation
	case KindWriteFailure:
		return ErrWrite
	case KindEmptyInput:
		return ErrEmptyInput
	default:
		return nil
	}
}

// EntryError describes one skipped item. Index is the position of the item in
// the sequence it belonged to (input image, batch or output page), or -1 when
// the error is not tied to one item.
type EntryError struct {
	Kind  Kind
	Index int
	Name  string
	Err   error
}

func newEntryError(kind Kind, index int, name string, err error) *EntryError {
	return &EntryError{Kind: kind, Index: index, Name: name, Err: err}
}

func (e *EntryError) Error() string {
	msg := e.Kind.String()
	if e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Name != "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Name, msg)
	}

	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

// Unwrap exposes both the kind sentinel and the underlying cause, so
// errors.Is works against either.
func (e *EntryError) Unwrap() []error {
	out := make([]error, 0, 2)
	if s := e.Kind.sentinel(); s != nil {
		out = append(out, s)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}

	return out
}
