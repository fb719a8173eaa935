// Package avdecoder decodes video files (general containers through libav,
// Blackmagic RAW and REDCODE RAW) through one pull interface:
//
//	d, err := avdecoder.Open(ctx, avdecoder.InputURL("A001_C001.braw"), avdecoder.DecoderOptions{})
//	...
//	for {
//		f, err := d.NextFrame(ctx)
//		if err == io.EOF {
//			break
//		}
//		...
//		f.Release(ctx)
//	}
//
// Importing this package links in every backend.
package avdecoder

import (
	"context"

	"github.com/xaionaro-go/avdecoder/decoder"
	_ "github.com/xaionaro-go/avdecoder/decoder/braw"
	_ "github.com/xaionaro-go/avdecoder/decoder/container/libav"
	_ "github.com/xaionaro-go/avdecoder/decoder/r3d"
	"github.com/xaionaro-go/avdecoder/frame"
	"github.com/xaionaro-go/avdecoder/types"
)

type Decoder = decoder.Decoder
type DecoderOptions = types.DecoderOptions
type VideoInfo = types.VideoInfo
type Stream = types.Stream
type Frame = frame.Frame
type VideoFrame = frame.VideoFrame
type AudioFrame = frame.AudioFrame

type Input = decoder.Input
type InputURL = decoder.InputURL
type InputBytes = decoder.InputBytes
type InputReader = decoder.InputReader
type InputReadSeeker = decoder.InputReadSeeker
type InputCallback = decoder.InputCallback
type InputFileList = decoder.InputFileList

// Open picks the backend by the file name of the input (or the "filename"
// custom option) and opens the input with it.
func Open(
	ctx context.Context,
	input Input,
	opts DecoderOptions,
) (*Decoder, error) {
	return decoder.Open(ctx, input, opts)
}

// OpenURL opens a file path or a URL.
func OpenURL(
	ctx context.Context,
	url string,
	opts DecoderOptions,
) (*Decoder, error) {
	return Open(ctx, InputURL(url), opts)
}

const (
	KindOther = frame.KindOther
	KindVideo = frame.KindVideo
	KindAudio = frame.KindAudio
)
