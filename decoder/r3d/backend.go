// Package r3d is the REDCODE RAW backend. Like BRAW, a clip is
// index-addressable and Seek lands exactly on round(ts*fps/1e6), clamped
// into the clip. Frames are decoded on the CPU into pooled 16-byte aligned
// buffers; a GPU only speeds the decoding up.
//
// The SDK itself is reached through the Library interface; link a binding
// in with SetLoader.
package r3d

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/xaionaro-go/avdecoder/bufferpool"
	"github.com/xaionaro-go/avdecoder/decoder"
	"github.com/xaionaro-go/avdecoder/frame"
	"github.com/xaionaro-go/avdecoder/logger"
	"github.com/xaionaro-go/avdecoder/types"
)

const backendName = "r3d"

const (
	optionDecodeResolution = "r3d.decode_resolution"
	optionOutputFormat     = "r3d.output_format"

	// defaultFileName is where an unnamed stream is registered.
	defaultFileName = "file.R3D"

	bufferAlignment    = 16
	bufferPoolCapacity = 8
)

func init() {
	decoder.Register(Factory{})
}

func parseDecodeMode(s string) (types.ResolutionScale, bool) {
	scale := types.ParseResolutionScale(s)
	return scale, scale != types.ResolutionScaleUndefined
}

// bufferFormat is the format part of the pool key.
type bufferFormat struct {
	Mode      types.ResolutionScale
	PixelType PixelType
	Size      int
}

type bufferPool = bufferpool.Pool[bufferpool.AlignedBytes, bufferFormat]

type Backend struct {
	clip    Clip
	decoder Decoder
	pool    *bufferPool
	streams []*types.Stream

	fps        float64
	frameCount uint64
	current    uint64

	mode       types.ResolutionScale
	pixelType  PixelType
	bufferSize int
}

var _ decoder.Backend = (*Backend)(nil)

func NewBackend(
	ctx context.Context,
	params decoder.OpenParams,
) (_ret *Backend, _err error) {
	logger.Tracef(ctx, "NewBackend(ctx, %s)", params.Input)
	defer func() { logger.Tracef(ctx, "/NewBackend(ctx, %s): %v", params.Input, _err) }()

	opts := params.Options
	b := &Backend{
		mode:      types.ResolutionScaleFull,
		pixelType: PixelTypeBGRA8,
	}
	defer func() {
		if _err != nil {
			b.Close(ctx)
		}
	}()

	decoder.WarnUnknownOptions(ctx, backendName, opts,
		optionDecodeResolution, types.OptionDecodeResolution,
		optionOutputFormat, types.OptionOutputFormat,
		optionSDKPath, envSDKDir,
	)
	if mode, ok := decoder.ParseOption(ctx, backendName, opts, parseDecodeMode, optionDecodeResolution, types.OptionDecodeResolution); ok {
		b.mode = mode
	}
	if pt, ok := decoder.ParseOption(ctx, backendName, opts, ParsePixelType, optionOutputFormat, types.OptionOutputFormat); ok {
		b.pixelType = pt
	}

	var path string
	err := withLibrary(ctx, opts, func(lib Library) error {
		var err error
		path, err = prepareInput(ctx, lib, params)
		if err != nil {
			return err
		}

		b.clip, err = lib.OpenClip(ctx, path)
		if err != nil {
			return types.ErrUnsupportedFormat{Format: backendName, Err: fmt.Errorf("unable to open clip '%s': %w", path, err)}
		}

		settings := DefaultDecoderSettings()
		settings.Device = selectDevice(ctx, lib, opts.GPU().IsSet(), opts.GPUIndexOrZero())
		b.decoder, err = lib.NewDecoder(ctx, settings)
		if err != nil {
			return types.ErrResourceExhausted{Resource: "an R3D decoder", Err: err}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	b.fps = b.clip.FrameRate()
	b.frameCount = b.clip.FrameCount()
	stream := types.NewVideoStreamFromFPS(b.fps)
	b.streams = []*types.Stream{&stream}

	b.bufferSize, err = b.clip.BufferSize(b.mode, b.pixelType)
	if err != nil {
		return nil, fmt.Errorf("unable to calculate the buffer size for %s %s: %w", b.mode, b.pixelType, err)
	}
	b.pool = bufferpool.New[bufferpool.AlignedBytes, bufferFormat](
		bufferPoolCapacity,
		bufferpool.NewAlignedBytesFactory(bufferAlignment, func(key bufferpool.Key[bufferFormat]) int {
			return key.Format.Size
		}),
	)

	logger.Debugf(ctx, "opened R3D clip '%s': %dx%d, %d frames @ %f fps, decoding %s into %s",
		path, b.clip.Width(), b.clip.Height(), b.frameCount, b.fps, b.mode, b.pixelType)
	return b, nil
}

// prepareInput makes the input readable by the SDK and returns the path
// to open the clip from. In-memory and stream inputs go through the
// custom IO.
func prepareInput(
	ctx context.Context,
	lib Library,
	params decoder.OpenParams,
) (string, error) {
	name := params.Path
	if name == "" {
		name = defaultFileName
	}

	switch input := params.Input.(type) {
	case decoder.InputURL:
		if params.Path != "" {
			return params.Path, nil
		}
		return string(input), nil
	case decoder.InputCallback:
		if input.Open == nil {
			return "", types.ErrUnsupportedInput{Input: input.String()}
		}
		sio, err := streamIO(ctx, lib)
		if err != nil {
			return "", err
		}
		sio.SetCallback(ctx, input.Open)
		return input.Filename, nil
	case decoder.InputBytes:
		sio, err := streamIO(ctx, lib)
		if err != nil {
			return "", err
		}
		sio.Register(ctx, name, bytes.NewReader(input), int64(len(input)))
		return name, nil
	case decoder.InputReadSeeker:
		sio, err := streamIO(ctx, lib)
		if err != nil {
			return "", err
		}
		sio.Register(ctx, name, input.ReadSeeker, input.SizeHint)
		return name, nil
	case decoder.InputFileList:
		return prepareFileList(ctx, lib, input)
	}
	return "", types.ErrUnsupportedInput{Input: fmt.Sprint(params.Input)}
}

func isClipFileName(name string) bool {
	name = strings.ToLower(name)
	return strings.Contains(name, ".r3d") || strings.Contains(name, ".nev")
}

// prepareFileList registers every part of a multi-file clip and returns
// the first clip file name in lexicographic order.
func prepareFileList(
	ctx context.Context,
	lib Library,
	list decoder.InputFileList,
) (string, error) {
	sio, err := streamIO(ctx, lib)
	if err != nil {
		return "", err
	}

	var clipNames []string
	for _, name := range list.Names() {
		switch input := list[name].(type) {
		case decoder.InputURL:
			sio.Alias(ctx, name, string(input))
		case decoder.InputBytes:
			sio.Register(ctx, name, bytes.NewReader(input), int64(len(input)))
		case decoder.InputReadSeeker:
			sio.Register(ctx, name, input.ReadSeeker, input.SizeHint)
		default:
			return "", types.ErrUnsupportedInput{Input: fmt.Sprintf("%s: %s", name, input)}
		}
		if isClipFileName(name) {
			clipNames = append(clipNames, name)
		}
	}
	if len(clipNames) == 0 {
		return "", types.ErrDecoderNotFound{Hint: list.String()}
	}
	sort.Strings(clipNames)
	return clipNames[0], nil
}

// selectDevice prefers CUDA and falls back to OpenCL. With a GPU index
// set, only the device with that index is considered.
func selectDevice(
	ctx context.Context,
	lib Library,
	hasIndex bool,
	gpuIndex int,
) *Device {
	for _, list := range []struct {
		api   DeviceAPI
		fetch func(ctx context.Context) ([]Device, error)
	}{
		{DeviceAPICUDA, lib.CUDADevices},
		{DeviceAPIOpenCL, lib.OpenCLDevices},
	} {
		devices, err := list.fetch(ctx)
		if err != nil {
			logger.Debugf(ctx, "unable to list the %s devices: %v", list.api, err)
			continue
		}
		idx := 0
		if hasIndex {
			idx = gpuIndex
		}
		if idx < 0 || idx >= len(devices) {
			continue
		}
		dev := devices[idx]
		logger.Debugf(ctx, "R3D is using device %s", dev)
		return &dev
	}
	logger.Debugf(ctx, "R3D is decoding on the CPU only")
	return nil
}

func (b *Backend) String() string {
	return backendName
}

func (b *Backend) Streams() []*types.Stream {
	return b.streams
}

func (b *Backend) NextFrame(ctx context.Context) (_ret frame.Frame, _err error) {
	logger.Tracef(ctx, "NextFrame: %d/%d", b.current, b.frameCount)
	defer func() { logger.Tracef(ctx, "/NextFrame: %v %v", _ret, _err) }()

	if b.current >= b.frameCount {
		return frame.Frame{}, io.EOF
	}
	idx := b.current
	if !b.streams[0].Decode {
		b.current++
		return frame.NewOther(0), nil
	}

	width, height := b.mode.Apply(b.clip.Width(), b.clip.Height())
	stride := int(width) * b.pixelType.BytesPerPixel()
	h, err := b.pool.Get(ctx, width, height, stride, bufferFormat{
		Mode:      b.mode,
		PixelType: b.pixelType,
		Size:      b.bufferSize,
	})
	if err != nil {
		return frame.Frame{}, fmt.Errorf("unable to get a %dx%d buffer: %w", width, height, err)
	}

	metadata, err := b.decoder.Decode(ctx, Job{
		Clip:       b.clip,
		Mode:       b.mode,
		PixelType:  b.pixelType,
		FrameIndex: idx,
		Output:     h.Buffer().Resource.Bytes,
	})
	if err != nil {
		h.Release(ctx)
		return frame.Frame{}, fmt.Errorf("unable to decode frame %d: %w", idx, err)
	}
	b.current++

	commons := frame.Commons{
		FrameWidth:       width,
		FrameHeight:      height,
		FramePixelFormat: b.pixelType.PixelFormat(),
		FrameMetadata:    metadata,
	}
	commons.SetTimestampUS(types.FrameTimestampUS(idx, b.fps))
	v := frame.NewPooledVideoFrame(commons, h, frame.AlignedBytesOf[bufferFormat])
	return frame.NewVideo(0, v), nil
}

func (b *Backend) Seek(ctx context.Context, timestampUS int64) (bool, error) {
	b.current = types.FrameIndexAt(timestampUS, b.fps, b.frameCount)
	logger.Debugf(ctx, "R3D seek to %dus: frame %d", timestampUS, b.current)
	return true, nil
}

func (b *Backend) VideoInfo(context.Context) (types.VideoInfo, error) {
	info := types.VideoInfo{
		FrameCount: b.frameCount,
		FPS:        b.fps,
		Width:      b.clip.Width(),
		Height:     b.clip.Height(),
		Metadata:   b.clip.Metadata(),
	}
	if b.fps > 0 {
		info.DurationMS = float64(b.frameCount) * 1000 / b.fps
	}
	return info, nil
}

func (b *Backend) Close(ctx context.Context) (_err error) {
	logger.Tracef(ctx, "Close")
	defer func() { logger.Tracef(ctx, "/Close: %v", _err) }()

	var errs []error
	if b.decoder != nil {
		if err := b.decoder.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("unable to close the decoder: %w", err))
		}
	}
	if b.pool != nil {
		if err := b.pool.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if b.clip != nil {
		if err := b.clip.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("unable to close the clip: %w", err))
		}
	}
	return errors.Join(errs...)
}

type Factory struct{}

var _ decoder.Factory = Factory{}

func (Factory) String() string {
	return backendName
}

func (Factory) Priority() int {
	return decoder.PriorityR3D
}

func (Factory) Match(hint string) bool {
	return decoder.ExtensionMatcher{".r3d", ".nev"}.Match(hint)
}

func (Factory) Open(ctx context.Context, params decoder.OpenParams) (decoder.Backend, error) {
	return NewBackend(ctx, params)
}
