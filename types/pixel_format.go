package types

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// PixelFormat is the backend-independent pixel layout of a decoded image.
type PixelFormat int

const (
	PixelFormatUnknown = PixelFormat(iota)

	PixelFormatAYUV64LE
	PixelFormatNV12
	PixelFormatNV21
	PixelFormatNV16
	PixelFormatNV24
	PixelFormatNV42
	PixelFormatP010LE
	PixelFormatP016LE
	PixelFormatP210LE
	PixelFormatP216LE
	PixelFormatP410LE
	PixelFormatP416LE
	PixelFormatYUV420P
	PixelFormatYUV420P10LE
	PixelFormatYUV420P12LE
	PixelFormatYUV420P14LE
	PixelFormatYUV420P16LE
	PixelFormatYUV422P
	PixelFormatYUV422P10LE
	PixelFormatYUV422P12LE
	PixelFormatYUV422P14LE
	PixelFormatYUV422P16LE
	PixelFormatYUV444P
	PixelFormatYUV444P10LE
	PixelFormatYUV444P12LE
	PixelFormatYUV444P14LE
	PixelFormatYUV444P16LE
	PixelFormatUYVY422

	PixelFormatRgbU8
	PixelFormatBgrU8
	PixelFormatRgbaU8
	PixelFormatBgraU8
	PixelFormatRgbU16
	PixelFormatRgbaU16
	PixelFormatBgraU16
	PixelFormatRgbU16Planar
	PixelFormatRgbF16
	PixelFormatRgbaF16
	PixelFormatBgraF16
	PixelFormatRgbF16Planar
	PixelFormatRgbF32
	PixelFormatRgbaF32
	PixelFormatBgraF32
	PixelFormatRgbF32Planar
	PixelFormatDPX10

	PixelFormatCUDA
	PixelFormatVAAPI
	PixelFormatVDPAU
	PixelFormatDXVA2VLD
	PixelFormatD3D11
	PixelFormatD3D11VAVLD
	PixelFormatVideoToolbox
	PixelFormatMediaCodec
	PixelFormatOpenCL
	PixelFormatQSV
	PixelFormatMMAL
	PixelFormatVulkan
	PixelFormatDRMPrime

	endOfPixelFormat
)

type pixelFormatInfo struct {
	Name          string
	LibavName     string
	BytesPerPixel int
	IsHardware    bool
}

var pixelFormatInfos = map[PixelFormat]pixelFormatInfo{
	PixelFormatUnknown:     {Name: "unknown"},
	PixelFormatAYUV64LE:    {Name: "ayuv64le", LibavName: "ayuv64le", BytesPerPixel: 8},
	PixelFormatNV12:        {Name: "nv12", LibavName: "nv12"},
	PixelFormatNV21:        {Name: "nv21", LibavName: "nv21"},
	PixelFormatNV16:        {Name: "nv16", LibavName: "nv16"},
	PixelFormatNV24:        {Name: "nv24", LibavName: "nv24"},
	PixelFormatNV42:        {Name: "nv42", LibavName: "nv42"},
	PixelFormatP010LE:      {Name: "p010le", LibavName: "p010le"},
	PixelFormatP016LE:      {Name: "p016le", LibavName: "p016le"},
	PixelFormatP210LE:      {Name: "p210le", LibavName: "p210le"},
	PixelFormatP216LE:      {Name: "p216le", LibavName: "p216le"},
	PixelFormatP410LE:      {Name: "p410le", LibavName: "p410le"},
	PixelFormatP416LE:      {Name: "p416le", LibavName: "p416le"},
	PixelFormatYUV420P:     {Name: "yuv420p", LibavName: "yuv420p"},
	PixelFormatYUV420P10LE: {Name: "yuv420p10le", LibavName: "yuv420p10le"},
	PixelFormatYUV420P12LE: {Name: "yuv420p12le", LibavName: "yuv420p12le"},
	PixelFormatYUV420P14LE: {Name: "yuv420p14le", LibavName: "yuv420p14le"},
	PixelFormatYUV420P16LE: {Name: "yuv420p16le", LibavName: "yuv420p16le"},
	PixelFormatYUV422P:     {Name: "yuv422p", LibavName: "yuv422p"},
	PixelFormatYUV422P10LE: {Name: "yuv422p10le", LibavName: "yuv422p10le"},
	PixelFormatYUV422P12LE: {Name: "yuv422p12le", LibavName: "yuv422p12le"},
	PixelFormatYUV422P14LE: {Name: "yuv422p14le", LibavName: "yuv422p14le"},
	PixelFormatYUV422P16LE: {Name: "yuv422p16le", LibavName: "yuv422p16le"},
	PixelFormatYUV444P:     {Name: "yuv444p", LibavName: "yuv444p"},
	PixelFormatYUV444P10LE: {Name: "yuv444p10le", LibavName: "yuv444p10le"},
	PixelFormatYUV444P12LE: {Name: "yuv444p12le", LibavName: "yuv444p12le"},
	PixelFormatYUV444P14LE: {Name: "yuv444p14le", LibavName: "yuv444p14le"},
	PixelFormatYUV444P16LE: {Name: "yuv444p16le", LibavName: "yuv444p16le"},
	PixelFormatUYVY422:     {Name: "uyvy422", LibavName: "uyvy422", BytesPerPixel: 2},

	PixelFormatRgbU8:        {Name: "rgb8", LibavName: "rgb24", BytesPerPixel: 3},
	PixelFormatBgrU8:        {Name: "bgr8", LibavName: "bgr24", BytesPerPixel: 3},
	PixelFormatRgbaU8:       {Name: "rgba8", LibavName: "rgba", BytesPerPixel: 4},
	PixelFormatBgraU8:       {Name: "bgra8", LibavName: "bgra", BytesPerPixel: 4},
	PixelFormatRgbU16:       {Name: "rgb16", LibavName: "rgb48le", BytesPerPixel: 6},
	PixelFormatRgbaU16:      {Name: "rgba16", LibavName: "rgba64le", BytesPerPixel: 8},
	PixelFormatBgraU16:      {Name: "bgra16", LibavName: "bgra64le", BytesPerPixel: 8},
	PixelFormatRgbU16Planar: {Name: "rgb16_planar", BytesPerPixel: 2},
	PixelFormatRgbF16:       {Name: "rgbf16", BytesPerPixel: 6},
	PixelFormatRgbaF16:      {Name: "rgbaf16", LibavName: "rgbaf16le", BytesPerPixel: 8},
	PixelFormatBgraF16:      {Name: "bgraf16", BytesPerPixel: 8},
	PixelFormatRgbF16Planar: {Name: "rgbf16_planar", BytesPerPixel: 2},
	PixelFormatRgbF32:       {Name: "rgbf32", LibavName: "rgbf32le", BytesPerPixel: 12},
	PixelFormatRgbaF32:      {Name: "rgbaf32", LibavName: "rgbaf32le", BytesPerPixel: 16},
	PixelFormatBgraF32:      {Name: "bgraf32", BytesPerPixel: 16},
	PixelFormatRgbF32Planar: {Name: "rgbf32_planar", BytesPerPixel: 4},
	PixelFormatDPX10:        {Name: "dpx10", BytesPerPixel: 4},

	PixelFormatCUDA:         {Name: "cuda", LibavName: "cuda", IsHardware: true},
	PixelFormatVAAPI:        {Name: "vaapi", LibavName: "vaapi", IsHardware: true},
	PixelFormatVDPAU:        {Name: "vdpau", LibavName: "vdpau", IsHardware: true},
	PixelFormatDXVA2VLD:     {Name: "dxva2_vld", LibavName: "dxva2_vld", IsHardware: true},
	PixelFormatD3D11:        {Name: "d3d11", LibavName: "d3d11", IsHardware: true},
	PixelFormatD3D11VAVLD:   {Name: "d3d11va_vld", LibavName: "d3d11va_vld", IsHardware: true},
	PixelFormatVideoToolbox: {Name: "videotoolbox_vld", LibavName: "videotoolbox_vld", IsHardware: true},
	PixelFormatMediaCodec:   {Name: "mediacodec", LibavName: "mediacodec", IsHardware: true},
	PixelFormatOpenCL:       {Name: "opencl", LibavName: "opencl", IsHardware: true},
	PixelFormatQSV:          {Name: "qsv", LibavName: "qsv", IsHardware: true},
	PixelFormatMMAL:         {Name: "mmal", LibavName: "mmal", IsHardware: true},
	PixelFormatVulkan:       {Name: "vulkan", LibavName: "vulkan", IsHardware: true},
	PixelFormatDRMPrime:     {Name: "drm_prime", LibavName: "drm_prime", IsHardware: true},
}

func (pf PixelFormat) String() string {
	info, ok := pixelFormatInfos[pf]
	if !ok {
		return fmt.Sprintf("unknown_pixel_format_%d", int(pf))
	}
	return info.Name
}

// LibavName is the libav name of the same layout, or "" if libav has none.
func (pf PixelFormat) LibavName() string {
	return pixelFormatInfos[pf].LibavName
}

// IsHardware reports whether the format is an opaque GPU surface handle
// rather than addressable memory.
func (pf PixelFormat) IsHardware() bool {
	return pixelFormatInfos[pf].IsHardware
}

// BytesPerPixel is defined for packed layouts and for planar layouts
// (where it is per plane); it is 0 for subsampled YUV and hardware formats.
func (pf PixelFormat) BytesPerPixel() int {
	return pixelFormatInfos[pf].BytesPerPixel
}

func PixelFormatFromString(s string) PixelFormat {
	s = strings.Trim(strings.ToLower(s), " \"\n\r\t")
	for pf := PixelFormatUnknown + 1; pf < endOfPixelFormat; pf++ {
		info := pixelFormatInfos[pf]
		if s == info.Name {
			return pf
		}
	}
	return PixelFormatUnknown
}

// PixelFormatFromLibavName maps libav's name onto PixelFormat; the
// full-range "yuvj" variants collapse onto their "yuv" layouts.
func PixelFormatFromLibavName(s string) PixelFormat {
	switch s {
	case "":
		return PixelFormatUnknown
	case "yuvj420p":
		return PixelFormatYUV420P
	case "yuvj422p":
		return PixelFormatYUV422P
	case "yuvj444p":
		return PixelFormatYUV444P
	}
	for pf := PixelFormatUnknown + 1; pf < endOfPixelFormat; pf++ {
		if pixelFormatInfos[pf].LibavName == s {
			return pf
		}
	}
	return PixelFormatUnknown
}

func (pf *PixelFormat) UnmarshalYAML(value *yaml.Node) error {
	v := PixelFormatFromString(value.Value)
	if v == PixelFormatUnknown {
		return fmt.Errorf("unknown pixel format: '%s'", value.Value)
	}
	*pf = v
	return nil
}

func (pf PixelFormat) MarshalYAML() (any, error) {
	return pf.String(), nil
}

type ColorRange int

const (
	ColorRangeUnspecified = ColorRange(iota)
	ColorRangeLimited
	ColorRangeFull
)

func (r ColorRange) String() string {
	switch r {
	case ColorRangeUnspecified:
		return "unspecified"
	case ColorRangeLimited:
		return "limited"
	case ColorRangeFull:
		return "full"
	}
	return fmt.Sprintf("unknown_color_range_%d", int(r))
}

type ColorSpace int

const (
	ColorSpaceUnspecified = ColorSpace(iota)
	ColorSpaceBT601
	ColorSpaceBT709
	ColorSpaceBT2020
)

func (s ColorSpace) String() string {
	switch s {
	case ColorSpaceUnspecified:
		return "unspecified"
	case ColorSpaceBT601:
		return "bt601"
	case ColorSpaceBT709:
		return "bt709"
	case ColorSpaceBT2020:
		return "bt2020"
	}
	return fmt.Sprintf("unknown_color_space_%d", int(s))
}
