package libav

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/asticode/go-astiav"
	"github.com/asticode/go-astikit"
	"github.com/xaionaro-go/avdecoder/avconv"
	"github.com/xaionaro-go/avdecoder/decoder/container"
	"github.com/xaionaro-go/avdecoder/frame"
	"github.com/xaionaro-go/avdecoder/hwdevice"
	hwlibav "github.com/xaionaro-go/avdecoder/hwdevice/libav"
	"github.com/xaionaro-go/avdecoder/logger"
	"github.com/xaionaro-go/avdecoder/types"
)

// videoThreadCount is the number of frame-threading workers of a software
// video decoder.
const videoThreadCount = 3

type StreamDecoder struct {
	closer       *astikit.Closer
	codec        *astiav.Codec
	codecContext *astiav.CodecContext
	stream       *types.Stream
	timeBase     astiav.Rational
	hardware     hwdevice.Selection

	// scaler is nil unless a size or format conversion was requested
	scaler *scaler

	// downloadWant is the preferred RAM format of hardware frames
	downloadWant types.PixelFormat
}

var _ container.StreamDecoder = (*StreamDecoder)(nil)

func NewStreamDecoder(
	ctx context.Context,
	demuxer *Demuxer,
	stream *types.Stream,
	opts types.DecoderOptions,
) (_ret *StreamDecoder, _err error) {
	logger.Tracef(ctx, "NewStreamDecoder(ctx, %s, %s)", stream, opts)
	defer func() { logger.Tracef(ctx, "/NewStreamDecoder(ctx, %s, %s): %v", stream, opts, _err) }()

	avStream := demuxer.stream(stream.Index)
	if avStream == nil {
		return nil, types.ErrStreamNotFound{StreamIndex: stream.Index}
	}
	codecParameters := avStream.CodecParameters()

	codec := astiav.FindDecoder(codecParameters.CodecID())
	if codec == nil {
		return nil, types.ErrUnsupportedFormat{Format: codecParameters.CodecID().String()}
	}

	d := &StreamDecoder{
		closer:   astikit.NewCloser(),
		codec:    codec,
		stream:   stream,
		timeBase: avStream.TimeBase(),
	}
	defer func() {
		if _err != nil {
			d.closer.Close()
		}
	}()

	d.codecContext = astiav.AllocCodecContext(codec)
	if d.codecContext == nil {
		return nil, types.ErrResourceExhausted{Resource: fmt.Sprintf("a codec context for %s", codec.Name())}
	}
	d.closer.Add(d.codecContext.Free)

	if err := codecParameters.ToCodecContext(d.codecContext); err != nil {
		return nil, engineError("avcodec_parameters_to_context", err)
	}
	d.codecContext.SetTimeBase(d.timeBase)

	if stream.Type == types.StreamTypeVideo {
		d.codecContext.SetThreadCount(videoThreadCount)
		d.codecContext.SetThreadType(astiav.ThreadTypeFrame)
		d.initHardware(ctx, opts)
		d.downloadWant = hwlibav.PixelFormatFromAstiav(codecParameters.PixelFormat())
		if c := parseConversion(ctx, opts); !c.IsNoop() {
			d.scaler = newScaler(c)
			d.closer.Add(d.scaler.free)
			if c.Format != astiav.PixelFormatNone {
				d.downloadWant = hwlibav.PixelFormatFromAstiav(c.Format)
			}
		}
	}

	if err := d.codecContext.Open(codec, nil); err != nil {
		return nil, engineError("avcodec_open2", fmt.Errorf("unable to open the %s decoder: %w", codec.Name(), err))
	}
	logger.Debugf(ctx, "opened the %s decoder of stream #%d (hardware: %s)", codec.Name(), stream.Index, d.hardware)
	return d, nil
}

// initHardware attaches a hardware device if a GPU is requested and any
// of the codec's configs can get one; otherwise the decoder stays in
// software.
func (d *StreamDecoder) initHardware(
	ctx context.Context,
	opts types.DecoderOptions,
) {
	d.hardware = hwdevice.Default().InitializeDecodingWithOptions(
		ctx,
		opts,
		hwlibav.HardwareConfigs(d.codec),
		hwlibav.AttachToCodecContext(d.codecContext),
	)
	if ref := d.hardware.Reference; ref != nil {
		d.closer.Add(ref.Release)
	}
}

func (d *StreamDecoder) String() string {
	return fmt.Sprintf("%s#%d", d.codec.Name(), d.stream.Index)
}

func (d *StreamDecoder) SendPacket(ctx context.Context, pkt container.Packet) error {
	var avPacket *astiav.Packet
	if pkt != nil {
		avPacket = pkt.(*Packet).Packet
	}
	err := d.codecContext.SendPacket(avPacket)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, astiav.ErrEagain):
		return container.ErrNeedMoreInput{}
	case errors.Is(err, astiav.ErrEof):
		logger.Debugf(ctx, "%s is already draining, dropping the packet", d)
		return nil
	default:
		return engineError("avcodec_send_packet", err)
	}
}

func (d *StreamDecoder) ReceiveFrame(ctx context.Context) (frame.Frame, error) {
	f := framePool.Get()
	err := d.codecContext.ReceiveFrame(f)
	switch {
	case err == nil:
	case errors.Is(err, astiav.ErrEagain):
		framePool.Put(f)
		return frame.Frame{}, container.ErrNeedMoreInput{}
	case errors.Is(err, astiav.ErrEof):
		framePool.Put(f)
		return frame.Frame{}, io.EOF
	default:
		framePool.Put(f)
		return frame.Frame{}, engineError("avcodec_receive_frame", err)
	}

	switch d.stream.Type {
	case types.StreamTypeVideo:
		v, err := d.videoFrame(ctx, f)
		if err != nil {
			return frame.Frame{}, err
		}
		return frame.NewVideo(d.stream.Index, v), nil
	case types.StreamTypeAudio:
		return frame.NewAudio(d.stream.Index, newAudioFrame(f, d.timeBase)), nil
	default:
		framePool.Put(f)
		return frame.NewOther(d.stream.Index), nil
	}
}

// videoFrame wraps f, converting it first if requested; hardware
// pictures are passed through as is.
func (d *StreamDecoder) videoFrame(
	ctx context.Context,
	f *astiav.Frame,
) (*VideoFrame, error) {
	if hwlibav.PixelFormatFromAstiav(f.PixelFormat()).IsHardware() {
		v := newVideoFrame(f, d.timeBase)
		if ref := d.hardware.Reference; ref != nil {
			v.device = ref.Device()
		}
		v.downloadWant = d.downloadWant
		return v, nil
	}
	if d.scaler == nil {
		return newVideoFrame(f, d.timeBase), nil
	}
	converted, err := d.scaler.Convert(ctx, f)
	if err != nil {
		framePool.Put(f)
		return nil, fmt.Errorf("unable to convert a frame of %s: %w", d, err)
	}
	if converted == f {
		return newVideoFrame(f, d.timeBase), nil
	}
	metadata := avconv.DictionaryToMap(f.Metadata())
	framePool.Put(f)
	v := newVideoFrame(converted, d.timeBase)
	v.FrameMetadata = metadata
	return v, nil
}

func (d *StreamDecoder) Flush(ctx context.Context) {
	logger.Tracef(ctx, "Flush[%s]", d)
	d.codecContext.FlushBuffers()
}

func (d *StreamDecoder) Close(ctx context.Context) (_err error) {
	logger.Tracef(ctx, "Close[%s]", d)
	defer func() { logger.Tracef(ctx, "/Close[%s]: %v", d, _err) }()
	return d.closer.Close()
}
