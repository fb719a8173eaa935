// Package braw is the Blackmagic RAW backend. A clip is index-addressable:
// NextFrame decodes the frame at the cursor and advances it, and Seek
// moves the cursor to the frame nearest to the timestamp, so a seek lands
// exactly on round(ts*fps/1e6), clamped into the clip.
//
// The SDK itself is reached through the Library interface; link a binding
// in with SetLibraryLoader.
package braw

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/xaionaro-go/avdecoder/bufferpool"
	"github.com/xaionaro-go/avdecoder/decoder"
	"github.com/xaionaro-go/avdecoder/frame"
	"github.com/xaionaro-go/avdecoder/logger"
	"github.com/xaionaro-go/avdecoder/types"
)

const backendName = "braw"

const (
	optionDecodeResolution = "braw.decode_resolution"
	optionOutputFormat     = "braw.output_format"
)

func init() {
	decoder.Register(Factory{})
}

// outputFormats are the resource formats the SDK can process into.
var outputFormats = map[types.PixelFormat]struct{}{
	types.PixelFormatRgbaU8:       {},
	types.PixelFormatBgraU8:       {},
	types.PixelFormatRgbU16:       {},
	types.PixelFormatRgbaU16:      {},
	types.PixelFormatBgraU16:      {},
	types.PixelFormatRgbU16Planar: {},
	types.PixelFormatRgbF32:       {},
	types.PixelFormatRgbaF32:      {},
	types.PixelFormatBgraF32:      {},
	types.PixelFormatRgbF32Planar: {},
	types.PixelFormatRgbF16:       {},
	types.PixelFormatRgbaF16:      {},
	types.PixelFormatBgraF16:      {},
	types.PixelFormatRgbF16Planar: {},
}

func parseOutputFormat(s string) (types.PixelFormat, bool) {
	pf := types.PixelFormatFromString(s)
	_, ok := outputFormats[pf]
	return pf, ok
}

// parseResolutionScale accepts the scales the SDK has; it has no separate
// fast half mode, and nothing below an eighth.
func parseResolutionScale(s string) (types.ResolutionScale, bool) {
	switch scale := types.ParseResolutionScale(s); scale {
	case types.ResolutionScaleFull,
		types.ResolutionScaleHalf,
		types.ResolutionScaleQuarter,
		types.ResolutionScaleEighth:
		return scale, true
	case types.ResolutionScaleHalfGood:
		return types.ResolutionScaleHalf, true
	}
	return types.ResolutionScaleUndefined, false
}

type Backend struct {
	codec   Codec
	clip    Clip
	device  Device
	manager ResourceManager
	pool    *resourcePool
	streams []*types.Stream

	fps        float64
	frameCount uint64
	current    uint64

	resolutionScale types.ResolutionScale
	outputFormat    types.PixelFormat
}

var _ decoder.Backend = (*Backend)(nil)

func NewBackend(
	ctx context.Context,
	params decoder.OpenParams,
) (_ret *Backend, _err error) {
	logger.Tracef(ctx, "NewBackend(ctx, %s)", params.Input)
	defer func() { logger.Tracef(ctx, "/NewBackend(ctx, %s): %v", params.Input, _err) }()

	path, err := clipPath(params)
	if err != nil {
		return nil, err
	}

	b := &Backend{}
	defer func() {
		if _err != nil {
			b.Close(ctx)
		}
	}()

	err = withLibrary(ctx, func(lib Library) error {
		codec, err := lib.NewCodec(ctx)
		if err != nil {
			return fmt.Errorf("unable to create a codec: %w", err)
		}
		b.codec = codec
		if gpu := params.Options.GPU(); gpu.IsSet() {
			b.device = selectDevice(ctx, lib, codec, gpu.Get())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	b.manager = b.codec.ResourceManager()
	b.clip, err = b.codec.OpenClip(ctx, path)
	if err != nil {
		return nil, types.ErrUnsupportedFormat{Format: backendName, Err: fmt.Errorf("unable to open clip '%s': %w", path, err)}
	}

	b.fps = b.clip.FrameRate()
	b.frameCount = b.clip.FrameCount()
	stream := types.NewVideoStreamFromFPS(b.fps)
	b.streams = []*types.Stream{&stream}

	factory := &resourceFactory{manager: b.manager}
	if b.device != nil {
		factory.context, factory.queue = b.device.Context()
	}
	b.pool = bufferpool.New[Resource, resourceKind](resourcePoolCapacity, factory)

	opts := params.Options
	decoder.WarnUnknownOptions(ctx, backendName, opts,
		optionDecodeResolution, types.OptionDecodeResolution,
		optionOutputFormat, types.OptionOutputFormat,
	)
	if scale, ok := decoder.ParseOption(ctx, backendName, opts, parseResolutionScale, optionDecodeResolution, types.OptionDecodeResolution); ok {
		b.resolutionScale = scale
	}
	if pf, ok := decoder.ParseOption(ctx, backendName, opts, parseOutputFormat, optionOutputFormat, types.OptionOutputFormat); ok {
		b.outputFormat = pf
	}

	logger.Debugf(ctx, "opened BRAW clip '%s': %dx%d, %d frames @ %f fps", path, b.clip.Width(), b.clip.Height(), b.frameCount, b.fps)
	return b, nil
}

// clipPath is where the SDK opens the clip from; it reads files by path
// only.
func clipPath(params decoder.OpenParams) (string, error) {
	switch input := params.Input.(type) {
	case decoder.InputURL, decoder.InputFileList:
		if params.Path != "" {
			return params.Path, nil
		}
	case decoder.InputCallback:
		return input.Filename, nil
	}
	return "", types.ErrUnsupportedInput{Input: fmt.Sprint(params.Input)}
}

// selectDevice walks the pipelines and, skipping the first gpuIndex
// devices of each, creates the first device it can; nil means processing
// on the CPU.
func selectDevice(
	ctx context.Context,
	lib Library,
	codec Codec,
	gpuIndex int,
) Device {
	pipelines, err := lib.Pipelines(ctx)
	if err != nil {
		logger.Warnf(ctx, "unable to list the BRAW pipelines: %v", err)
		return nil
	}
	for _, p := range pipelines {
		devices, err := p.Devices(ctx)
		if err != nil {
			logger.Debugf(ctx, "unable to list the devices of BRAW pipeline %s: %v", p, err)
			continue
		}
		for idx := gpuIndex; idx < len(devices); idx++ {
			dev, err := devices[idx].CreateDevice(ctx)
			if err != nil {
				logger.Warnf(ctx, "unable to create BRAW device %s of pipeline %s: %v", devices[idx], p, err)
				continue
			}
			if err := codec.UseDevice(ctx, dev); err != nil {
				logger.Warnf(ctx, "unable to use BRAW device %s: %v", dev, err)
				dev.Close(ctx)
				continue
			}
			logger.Debugf(ctx, "BRAW is processing on %s (pipeline %s)", dev, p)
			return dev
		}
	}
	logger.Infof(ctx, "no BRAW device #%d is available, processing on the CPU", gpuIndex)
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

	raw, err := b.clip.ReadFrame(ctx, idx)
	if err != nil {
		return frame.Frame{}, fmt.Errorf("unable to read frame %d: %w", idx, err)
	}
	defer raw.Release()

	if b.resolutionScale != types.ResolutionScaleUndefined {
		if err := raw.SetResolutionScale(b.resolutionScale); err != nil {
			return frame.Frame{}, fmt.Errorf("unable to set the resolution scale %s: %w", b.resolutionScale, err)
		}
	}
	if b.outputFormat != types.PixelFormatUnknown {
		if err := raw.SetResourceFormat(b.outputFormat); err != nil {
			return frame.Frame{}, fmt.Errorf("unable to set the output format %s: %w", b.outputFormat, err)
		}
	}

	image, err := raw.DecodeAndProcess(ctx)
	if err != nil {
		return frame.Frame{}, fmt.Errorf("unable to decode frame %d: %w", idx, err)
	}
	b.current++

	v := &VideoFrame{
		Commons: frame.Commons{
			FrameWidth:       image.Width(),
			FrameHeight:      image.Height(),
			FramePixelFormat: image.ResourceFormat(),
		},
		image:   image,
		manager: b.manager,
		pool:    b.pool,
	}
	v.SetTimestampUS(types.FrameTimestampUS(idx, b.fps))
	return frame.NewVideo(0, v), nil
}

func (b *Backend) Seek(ctx context.Context, timestampUS int64) (bool, error) {
	b.current = types.FrameIndexAt(timestampUS, b.fps, b.frameCount)
	logger.Debugf(ctx, "BRAW seek to %dus: frame %d", timestampUS, b.current)
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
	if b.codec != nil {
		if err := b.codec.FlushJobs(ctx); err != nil {
			errs = append(errs, fmt.Errorf("unable to flush the jobs: %w", err))
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
	if b.codec != nil {
		if err := b.codec.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("unable to close the codec: %w", err))
		}
	}
	if b.device != nil {
		if err := b.device.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("unable to close the device: %w", err))
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
	return decoder.PriorityBRAW
}

func (Factory) Match(hint string) bool {
	return decoder.ExtensionMatcher{".braw"}.Match(hint)
}

func (Factory) Open(ctx context.Context, params decoder.OpenParams) (decoder.Backend, error) {
	return NewBackend(ctx, params)
}
