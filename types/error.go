package types

import (
	"fmt"
)

// ErrDecoderNotFound means no backend accepted the input, or the backend is
// a NullBackend that has nothing to describe.
type ErrDecoderNotFound struct {
	Hint string
}

func (e ErrDecoderNotFound) Error() string {
	if e.Hint == "" {
		return "decoder not found"
	}
	return fmt.Sprintf("decoder not found for '%s'", e.Hint)
}

// ErrUnsupportedFormat means the engine rejected the data or a requested
// output format.
type ErrUnsupportedFormat struct {
	Format string
	Err    error
}

func (e ErrUnsupportedFormat) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unsupported format '%s': %v", e.Format, e.Err)
	}
	return fmt.Sprintf("unsupported format '%s'", e.Format)
}

func (e ErrUnsupportedFormat) Unwrap() error {
	return e.Err
}

// ErrResourceExhausted means a buffer, a device or an SDK instance could
// not be allocated.
type ErrResourceExhausted struct {
	Resource string
	Err      error
}

func (e ErrResourceExhausted) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unable to allocate %s: %v", e.Resource, e.Err)
	}
	return fmt.Sprintf("unable to allocate %s", e.Resource)
}

func (e ErrResourceExhausted) Unwrap() error {
	return e.Err
}

// ErrEngine wraps an opaque failure of an underlying decode engine together
// with the engine's own error code.
type ErrEngine struct {
	Engine string
	Op     string
	Code   int
	Err    error
}

func (e ErrEngine) Error() string {
	return fmt.Sprintf("%s: %s failed (code %d): %v", e.Engine, e.Op, e.Code, e.Err)
}

func (e ErrEngine) Unwrap() error {
	return e.Err
}

type ErrStreamNotFound struct {
	StreamIndex int
}

func (e ErrStreamNotFound) Error() string {
	if e.StreamIndex < 0 {
		return "no video stream found"
	}
	return fmt.Sprintf("stream #%d not found", e.StreamIndex)
}

// ErrEmptyFrame means the frame holds no data (for example, it was
// already released).
type ErrEmptyFrame struct{}

func (ErrEmptyFrame) Error() string {
	return "frame is empty"
}

// ErrUnsupportedInput means the backend cannot consume this kind of input
// source (for example, a write-only stream given to a decoder).
type ErrUnsupportedInput struct {
	Input string
}

func (e ErrUnsupportedInput) Error() string {
	return fmt.Sprintf("unsupported input: %s", e.Input)
}
