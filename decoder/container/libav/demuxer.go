package libav

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/asticode/go-astiav"
	"github.com/asticode/go-astikit"
	"github.com/davecgh/go-spew/spew"
	"github.com/xaionaro-go/avdecoder/avconv"
	"github.com/xaionaro-go/avdecoder/decoder"
	"github.com/xaionaro-go/avdecoder/decoder/container"
	"github.com/xaionaro-go/avdecoder/logger"
	"github.com/xaionaro-go/avdecoder/types"
	"github.com/xaionaro-go/avdecoder/urltools"
	"github.com/xaionaro-go/secret"
	"github.com/xaionaro-go/unsafetools"
)

// optionFormat forces the input format, like "-f" of ffmpeg.
const optionFormat = "f"

// isDecoderOption tells the options consumed by the decoders or by other
// backends, which are not passed to avformat_open_input.
func isDecoderOption(key string) bool {
	switch key {
	case optionFormat,
		types.OptionFilename,
		types.OptionHWAccelDevice,
		types.OptionDecodeResolution,
		types.OptionOutputFormat:
		return true
	}
	for _, prefix := range []string{"libav.", "braw.", "r3d."} {
		if strings.HasPrefix(key, prefix) {
			return true
		}
	}
	return false
}

type Demuxer struct {
	closer        *astikit.Closer
	formatContext *astiav.FormatContext
	ioContext     *astiav.IOContext
	source        *source
	streams       []*types.Stream

	// url may carry credentials
	url secret.String
}

var _ container.Demuxer = (*Demuxer)(nil)

func NewDemuxer(
	ctx context.Context,
	params decoder.OpenParams,
) (_ret *Demuxer, _err error) {
	logger.Tracef(ctx, "NewDemuxer(ctx, %s)", params.Input)
	defer func() { logger.Tracef(ctx, "/NewDemuxer(ctx, %s): %v", params.Input, _err) }()

	src, err := resolveSource(ctx, params.Input)
	if err != nil {
		return nil, err
	}

	d := &Demuxer{
		closer: astikit.NewCloser(),
		source: src,
		url:    secret.New(src.URL),
	}
	defer func() {
		if _err != nil {
			d.closer.Close()
		}
	}()

	inputFormat, err := findInputFormat(ctx, src, params)
	if err != nil {
		return nil, err
	}

	opts := append(src.Options, params.Options.CustomOptions...)
	dict := avconv.DictionaryItemsToAstiav(ctx, opts, isDecoderOption)

	d.formatContext = astiav.AllocFormatContext()
	if d.formatContext == nil {
		return nil, types.ErrResourceExhausted{Resource: "a format context"}
	}
	d.closer.Add(d.formatContext.Free)

	if src.Reader != nil {
		d.ioContext, err = src.newIOContext()
		if err != nil {
			return nil, err
		}
		d.closer.Add(d.ioContext.Free)
		d.formatContext.SetPb(d.ioContext)
	}

	logger.Debugf(ctx, "opening %s", src)
	if err := d.formatContext.OpenInput(d.url.Get(), inputFormat, dict); err != nil {
		if errors.Is(err, astiav.ErrInvaliddata) {
			return nil, types.ErrUnsupportedFormat{Format: src.String(), Err: err}
		}
		return nil, engineError("avformat_open_input", fmt.Errorf("unable to open %s: %w", src, err))
	}
	d.closer.Add(d.formatContext.CloseInput)

	if err := d.formatContext.FindStreamInfo(nil); err != nil {
		return nil, engineError("avformat_find_stream_info", err)
	}

	for _, stream := range d.formatContext.Streams() {
		logger.Tracef(ctx, "input stream #%d: %s", stream.Index(), spew.Sdump(unsafetools.FieldByNameInValue(reflect.ValueOf(stream.CodecParameters()), "c").Elem().Elem().Interface()))
		d.streams = append(d.streams, avconv.Stream(stream))
	}
	return d, nil
}

// findInputFormat honors the "f" option; a nameless input gets the format
// guessed from the file name it was given, since libav has no name to
// probe by.
func findInputFormat(
	ctx context.Context,
	src *source,
	params decoder.OpenParams,
) (*astiav.InputFormat, error) {
	formatName, ok := params.Options.CustomOptions.Get(optionFormat)
	if !ok && src.Reader != nil {
		formatName = urltools.InputFormatNameFromFileName(params.Path)
	}
	if formatName == "" {
		return nil, nil
	}
	inputFormat := astiav.FindInputFormat(formatName)
	if inputFormat == nil {
		if ok {
			return nil, types.ErrUnsupportedFormat{Format: formatName}
		}
		logger.Debugf(ctx, "libav has no input format '%s', probing instead", formatName)
		return nil, nil
	}
	logger.Debugf(ctx, "using format '%s'", inputFormat.Name())
	return inputFormat, nil
}

func (d *Demuxer) Streams() []*types.Stream {
	return d.streams
}

func (d *Demuxer) stream(idx int) *astiav.Stream {
	return avconv.FindStreamByIndex(d.formatContext, idx)
}

// Packet is a demuxed libav packet; Release returns it to the pool.
type Packet struct {
	*astiav.Packet
}

var _ container.Packet = (*Packet)(nil)

func (p *Packet) StreamIndex() int {
	return p.Packet.StreamIndex()
}

func (p *Packet) Release(context.Context) {
	packetPool.Put(p.Packet)
	p.Packet = nil
}

func (d *Demuxer) ReadPacket(ctx context.Context) (container.Packet, error) {
	pkt := packetPool.Get()
	err := d.formatContext.ReadFrame(pkt)
	switch {
	case err == nil:
		return &Packet{Packet: pkt}, nil
	case errors.Is(err, astiav.ErrEof), errors.Is(err, astiav.ErrEio):
		packetPool.Put(pkt)
		return nil, io.EOF
	case errors.Is(err, astiav.ErrEagain), errors.Is(err, astiav.ErrInvaliddata):
		packetPool.Put(pkt)
		return nil, container.ErrRecoverable{Err: err}
	default:
		packetPool.Put(pkt)
		return nil, engineError("av_read_frame", err)
	}
}

func (d *Demuxer) Seek(ctx context.Context, timestampUS int64) (_err error) {
	logger.Tracef(ctx, "Seek(ctx, %d)", timestampUS)
	defer func() { logger.Tracef(ctx, "/Seek(ctx, %d): %v", timestampUS, _err) }()

	// with no stream index the timestamp is in AV_TIME_BASE, which is 1/1e6
	err := d.formatContext.SeekFrame(-1, timestampUS, astiav.NewSeekFlags(astiav.SeekFlagBackward))
	if err != nil {
		return engineError("av_seek_frame", err)
	}
	return nil
}

func (d *Demuxer) videoStream() *astiav.Stream {
	for _, s := range d.formatContext.Streams() {
		if s.CodecParameters().MediaType() == astiav.MediaTypeVideo {
			return s
		}
	}
	return nil
}

func (d *Demuxer) VideoInfo(ctx context.Context) (types.VideoInfo, error) {
	s := d.videoStream()
	if s == nil {
		return types.VideoInfo{}, types.ErrStreamNotFound{StreamIndex: -1}
	}
	cp := s.CodecParameters()

	fps := s.AvgFrameRate().Float64()
	if fps <= 0 || math.IsNaN(fps) || math.IsInf(fps, 0) {
		fps = s.RFrameRate().Float64()
	}

	duration := avconv.ContainerDuration(d.formatContext.Duration())
	if duration <= 0 {
		duration = avconv.StreamDuration(s.Duration(), s.TimeBase())
	}

	frameCount := uint64(0)
	if s.NbFrames() > 0 {
		frameCount = uint64(s.NbFrames())
	} else if fps > 0 {
		frameCount = uint64(math.Round(duration.Seconds() * fps))
	}

	bitrate := cp.BitRate()
	if bitrate <= 0 {
		bitrate = d.formatContext.BitRate()
	}

	streamTags := avconv.DictionaryToMap(s.Metadata())
	info := types.VideoInfo{
		DurationMS:  float64(duration) / float64(time.Millisecond),
		FrameCount:  frameCount,
		FPS:         fps,
		Width:       uint32(cp.Width()),
		Height:      uint32(cp.Height()),
		BitrateMbps: types.BitrateMbpsFromBitsPerSecond(bitrate),
		Rotation:    rotation(ctx, s, streamTags),
		Metadata:    avconv.DictionaryToMap(d.formatContext.Metadata()),
	}
	if createdAt, ok := creationTime(info.Metadata, streamTags); ok {
		info.CreatedAt = &createdAt
	}
	return info, nil
}

// rotation prefers the legacy "rotate" tag over the display matrix; the
// matrix is counter-clockwise, the tag (and the result) clockwise.
func rotation(
	ctx context.Context,
	s *astiav.Stream,
	streamTags map[string]string,
) int {
	if tag, ok := streamTags["rotate"]; ok {
		theta, err := strconv.ParseFloat(tag, 64)
		if err == nil {
			return types.NormalizeRotation(theta)
		}
		logger.Warnf(ctx, "unable to parse the rotate tag '%s': %v", tag, err)
	}
	if m, ok := s.CodecParameters().SideData().DisplayMatrix().Get(); ok {
		return types.NormalizeRotation(-m.Rotation())
	}
	return 0
}

func creationTime(tagSets ...map[string]string) (time.Time, bool) {
	for _, tags := range tagSets {
		v, ok := tags["creation_time"]
		if !ok {
			continue
		}
		t, err := time.Parse(time.RFC3339Nano, v)
		if err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func (d *Demuxer) Close(ctx context.Context) (_err error) {
	logger.Tracef(ctx, "Close")
	defer func() { logger.Tracef(ctx, "/Close: %v", _err) }()
	if err := d.closer.Close(); err != nil {
		return fmt.Errorf("unable to close the libav input: %w", err)
	}
	return nil
}
