// Package frame defines the uniform decoded-frame values returned by every
// decoder backend.
package frame

import (
	"context"
	"fmt"
)

type Kind int

const (
	KindOther = Kind(iota)
	KindVideo
	KindAudio
)

func (k Kind) String() string {
	switch k {
	case KindOther:
		return "other"
	case KindVideo:
		return "video"
	case KindAudio:
		return "audio"
	}
	return fmt.Sprintf("unknown_frame_kind_%d", int(k))
}

// Frame is one unit of decoder output. Exactly one of Video and Audio is
// set, according to Kind; an "other" frame carries no payload and only
// tells that a packet of a non-decoded stream went by.
type Frame struct {
	Kind        Kind
	StreamIndex int
	Video       VideoFrame
	Audio       AudioFrame
}

func NewVideo(streamIndex int, v VideoFrame) Frame {
	return Frame{
		Kind:        KindVideo,
		StreamIndex: streamIndex,
		Video:       v,
	}
}

func NewAudio(streamIndex int, a AudioFrame) Frame {
	return Frame{
		Kind:        KindAudio,
		StreamIndex: streamIndex,
		Audio:       a,
	}
}

func NewOther(streamIndex int) Frame {
	return Frame{
		Kind:        KindOther,
		StreamIndex: streamIndex,
	}
}

// TimestampUS is the presentation timestamp of the payload, if known.
func (f Frame) TimestampUS() (int64, bool) {
	switch f.Kind {
	case KindVideo:
		return f.Video.TimestampUS()
	case KindAudio:
		return f.Audio.TimestampUS()
	}
	return 0, false
}

// Release gives the frame's buffers back; the frame must not be used
// afterwards.
func (f Frame) Release(ctx context.Context) {
	switch f.Kind {
	case KindVideo:
		f.Video.Release(ctx)
	case KindAudio:
		f.Audio.Release(ctx)
	}
}

func (f Frame) String() string {
	switch f.Kind {
	case KindVideo:
		return fmt.Sprintf("video#%d(%dx%d %s)", f.StreamIndex, f.Video.Width(), f.Video.Height(), f.Video.PixelFormat())
	case KindAudio:
		return fmt.Sprintf("audio#%d", f.StreamIndex)
	}
	return fmt.Sprintf("other#%d", f.StreamIndex)
}

type AudioFrame interface {
	TimestampUS() (int64, bool)
	BufferSize() uint32
	Release(ctx context.Context)
}

// NullAudioFrame is an audio frame without a timestamp or payload.
type NullAudioFrame struct{}

var _ AudioFrame = NullAudioFrame{}

func (NullAudioFrame) TimestampUS() (int64, bool) { return 0, false }
func (NullAudioFrame) BufferSize() uint32         { return 0 }
func (NullAudioFrame) Release(context.Context)    {}
