package container

import (
	"context"
	"fmt"

	"github.com/xaionaro-go/avdecoder/decoder"
	"github.com/xaionaro-go/avdecoder/frame"
	"github.com/xaionaro-go/avdecoder/types"
)

// Packet is a demuxed compressed packet owned by the engine.
type Packet interface {
	StreamIndex() int
	Release(ctx context.Context)
}

type Demuxer interface {
	// Streams returns the stream table; it does not change after open.
	Streams() []*types.Stream

	// ReadPacket returns io.EOF at the end of the input. Errors wrapping
	// ErrRecoverable are skipped by the backend.
	ReadPacket(ctx context.Context) (Packet, error)

	// Seek moves to the keyframe at or before timestampUS.
	Seek(ctx context.Context, timestampUS int64) error

	VideoInfo(ctx context.Context) (types.VideoInfo, error)

	Close(ctx context.Context) error
}

// StreamDecoder decodes the packets of one stream with send/receive
// semantics.
type StreamDecoder interface {
	// SendPacket submits a packet; a nil packet enters draining mode.
	// ErrNeedMoreInput means the decoder is full and frames must be
	// received first; the packet is then not consumed.
	SendPacket(ctx context.Context, pkt Packet) error

	// ReceiveFrame returns ErrNeedMoreInput when a packet has to be sent
	// first, and io.EOF once a draining decoder has nothing left.
	ReceiveFrame(ctx context.Context) (frame.Frame, error)

	// Flush drops the buffered state and leaves draining mode.
	Flush(ctx context.Context)

	Close(ctx context.Context) error
}

// Engine is the native library the container backend runs on.
type Engine interface {
	fmt.Stringer

	OpenDemuxer(ctx context.Context, params decoder.OpenParams) (Demuxer, error)

	// OpenStreamDecoder opens a decoder for the stream; with
	// opts.GPUIndex set it is expected to negotiate a hardware device.
	OpenStreamDecoder(
		ctx context.Context,
		demuxer Demuxer,
		stream *types.Stream,
		opts types.DecoderOptions,
	) (StreamDecoder, error)
}

// ErrNeedMoreInput is the "try again" signal of the send/receive protocol.
type ErrNeedMoreInput struct{}

func (ErrNeedMoreInput) Error() string {
	return "need more input"
}

// ErrRecoverable marks demuxer errors after which reading may go on.
type ErrRecoverable struct {
	Err error
}

func (e ErrRecoverable) Error() string {
	return fmt.Sprintf("recoverable error: %v", e.Err)
}

func (e ErrRecoverable) Unwrap() error {
	return e.Err
}
