package decoder

import (
	"context"
	"io"

	"github.com/xaionaro-go/avdecoder/frame"
	"github.com/xaionaro-go/avdecoder/types"
)

// Backend is a format-specific decoder. A Decoder owns exactly one Backend
// and serializes all calls to it.
type Backend interface {
	// Streams returns the backend's own stream table; the caller may flip
	// Decode before the first NextFrame.
	Streams() []*types.Stream

	// Seek repositions the decoder; the landing frame is documented by
	// each backend. The result is false if the backend cannot seek.
	Seek(ctx context.Context, timestampUS int64) (bool, error)

	// NextFrame returns io.EOF (unwrapped) once the input is exhausted,
	// and keeps returning it on further calls.
	NextFrame(ctx context.Context) (frame.Frame, error)

	VideoInfo(ctx context.Context) (types.VideoInfo, error)

	Close(ctx context.Context) error
}

// NullBackend has no streams and no frames. It is what a Decoder holds
// when nothing was opened.
type NullBackend struct{}

var _ Backend = NullBackend{}

func (NullBackend) Streams() []*types.Stream {
	return nil
}

func (NullBackend) Seek(context.Context, int64) (bool, error) {
	return false, nil
}

func (NullBackend) NextFrame(context.Context) (frame.Frame, error) {
	return frame.Frame{}, io.EOF
}

func (NullBackend) VideoInfo(context.Context) (types.VideoInfo, error) {
	return types.VideoInfo{}, types.ErrDecoderNotFound{}
}

func (NullBackend) Close(context.Context) error {
	return nil
}
