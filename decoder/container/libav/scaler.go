package libav

import (
	"context"
	"fmt"

	"github.com/asticode/go-astiav"
	"github.com/xaionaro-go/avdecoder/decoder"
	hwlibav "github.com/xaionaro-go/avdecoder/hwdevice/libav"
	"github.com/xaionaro-go/avdecoder/logger"
	"github.com/xaionaro-go/avdecoder/types"
)

const (
	optionDecodeResolution = "libav.decode_resolution"
	optionOutputFormat     = "libav.output_format"
)

// conversion is the size and format decoded software pictures are
// converted to; the zero value converts nothing.
type conversion struct {
	Scale  types.ResolutionScale
	Format astiav.PixelFormat
}

func (c conversion) IsNoop() bool {
	return c.Scale.Divisor() <= 1 && c.Format == astiav.PixelFormatNone
}

func parseScale(s string) (types.ResolutionScale, bool) {
	scale := types.ParseResolutionScale(s)
	return scale, scale != types.ResolutionScaleUndefined
}

func parseSoftwareFormat(s string) (astiav.PixelFormat, bool) {
	pf := types.PixelFormatFromString(s)
	if pf == types.PixelFormatUnknown {
		pf = types.PixelFormatFromLibavName(s)
	}
	if pf == types.PixelFormatUnknown || pf.IsHardware() {
		return astiav.PixelFormatNone, false
	}
	avPF := hwlibav.PixelFormatToAstiav(pf)
	return avPF, avPF != astiav.PixelFormatNone
}

func parseConversion(ctx context.Context, opts types.DecoderOptions) conversion {
	c := conversion{Format: astiav.PixelFormatNone}
	if scale, ok := decoder.ParseOption(ctx, engineName, opts, parseScale, optionDecodeResolution, types.OptionDecodeResolution); ok {
		c.Scale = scale
	}
	if pf, ok := decoder.ParseOption(ctx, engineName, opts, parseSoftwareFormat, optionOutputFormat, types.OptionOutputFormat); ok {
		c.Format = pf
	}
	return c
}

type scalerShape struct {
	Width, Height int
	PixelFormat   astiav.PixelFormat
}

func (s scalerShape) String() string {
	return fmt.Sprintf("%dx%d:%s", s.Width, s.Height, s.PixelFormat)
}

// scaler converts pictures with swscale; the context is rebuilt when the
// input shape changes mid-stream.
type scaler struct {
	conversion   conversion
	scaleContext *astiav.SoftwareScaleContext
	src, dst     scalerShape
}

func newScaler(c conversion) *scaler {
	return &scaler{conversion: c}
}

func (s *scaler) String() string {
	return fmt.Sprintf("scaler(%s -> %s)", s.src, s.dst)
}

func (s *scaler) destination(src scalerShape) scalerShape {
	dst := src
	if div := int(s.conversion.Scale.Divisor()); div > 1 {
		dst.Width, dst.Height = max(src.Width/div, 1), max(src.Height/div, 1)
	}
	if s.conversion.Format != astiav.PixelFormatNone {
		dst.PixelFormat = s.conversion.Format
	}
	return dst
}

func (s *scaler) ensure(ctx context.Context, src scalerShape) error {
	if s.scaleContext != nil && src == s.src {
		return nil
	}
	s.free()

	dst := s.destination(src)
	scaleContext, err := astiav.CreateSoftwareScaleContext(
		src.Width, src.Height, src.PixelFormat,
		dst.Width, dst.Height, dst.PixelFormat,
		astiav.NewSoftwareScaleContextFlags(astiav.SoftwareScaleContextFlagBilinear),
	)
	if err != nil {
		return engineError("sws_getContext", fmt.Errorf("unable to create a software scale context %s -> %s: %w", src, dst, err))
	}
	s.scaleContext, s.src, s.dst = scaleContext, src, dst
	logger.Debugf(ctx, "%s is ready", s)
	return nil
}

// Convert returns a new pooled frame with the converted picture; src is
// left untouched. It returns src itself if there is nothing to convert.
func (s *scaler) Convert(
	ctx context.Context,
	src *astiav.Frame,
) (_ret *astiav.Frame, _err error) {
	logger.Tracef(ctx, "Convert")
	defer func() { logger.Tracef(ctx, "/Convert: %v", _err) }()

	shape := scalerShape{Width: src.Width(), Height: src.Height(), PixelFormat: src.PixelFormat()}
	if s.destination(shape) == shape {
		return src, nil
	}
	if err := s.ensure(ctx, shape); err != nil {
		return nil, err
	}

	dst := framePool.Get()
	dst.SetWidth(s.dst.Width)
	dst.SetHeight(s.dst.Height)
	dst.SetPixelFormat(s.dst.PixelFormat)
	if err := dst.AllocBuffer(1); err != nil {
		framePool.Put(dst)
		return nil, engineError("av_frame_get_buffer", err)
	}
	if err := s.scaleContext.ScaleFrame(src, dst); err != nil {
		framePool.Put(dst)
		return nil, engineError("sws_scale_frame", err)
	}
	dst.SetPts(src.Pts())
	return dst, nil
}

func (s *scaler) free() {
	if s.scaleContext == nil {
		return
	}
	s.scaleContext.Free()
	s.scaleContext = nil
}
