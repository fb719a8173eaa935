package r3d

import (
	"fmt"
	"strings"

	"github.com/xaionaro-go/avdecoder/types"
)

// PixelType is an output layout of the SDK.
type PixelType int

const (
	PixelTypeUndefined = PixelType(iota)
	PixelTypeBGRA8
	PixelTypeBGR8
	PixelTypeRGB16
	PixelTypeRGB16Planar
	PixelTypeRGBF16
	PixelTypeRGBF16ACES
	PixelTypeDPX10
	endOfPixelType
)

type pixelTypeInfo struct {
	Name          string
	BytesPerPixel int
	PixelFormat   types.PixelFormat
}

var pixelTypeInfos = [endOfPixelType]pixelTypeInfo{
	PixelTypeUndefined:   {Name: "undefined"},
	PixelTypeBGRA8:       {Name: "bgra8", BytesPerPixel: 4, PixelFormat: types.PixelFormatBgraU8},
	PixelTypeBGR8:        {Name: "bgr8", BytesPerPixel: 3, PixelFormat: types.PixelFormatBgrU8},
	PixelTypeRGB16:       {Name: "rgb16", BytesPerPixel: 6, PixelFormat: types.PixelFormatRgbU16},
	PixelTypeRGB16Planar: {Name: "rgb16_planar", BytesPerPixel: 2, PixelFormat: types.PixelFormatRgbU16Planar},
	PixelTypeRGBF16:      {Name: "rgbf16", BytesPerPixel: 6, PixelFormat: types.PixelFormatRgbF16},
	PixelTypeRGBF16ACES:  {Name: "rgbf16_aces", BytesPerPixel: 6, PixelFormat: types.PixelFormatRgbF16},
	PixelTypeDPX10:       {Name: "dpx10", BytesPerPixel: 4, PixelFormat: types.PixelFormatDPX10},
}

func (pt PixelType) info() pixelTypeInfo {
	if pt < 0 || pt >= endOfPixelType {
		return pixelTypeInfo{}
	}
	return pixelTypeInfos[pt]
}

func (pt PixelType) String() string {
	if info := pt.info(); info.Name != "" {
		return info.Name
	}
	return fmt.Sprintf("unknown_pixel_type_%d", int(pt))
}

// BytesPerPixel is per plane for planar types.
func (pt PixelType) BytesPerPixel() int {
	return pt.info().BytesPerPixel
}

func (pt PixelType) PixelFormat() types.PixelFormat {
	return pt.info().PixelFormat
}

func ParsePixelType(s string) (PixelType, bool) {
	s = strings.TrimSpace(strings.ToLower(s))
	for pt := PixelTypeUndefined + 1; pt < endOfPixelType; pt++ {
		if pixelTypeInfos[pt].Name == s {
			return pt, true
		}
	}
	return PixelTypeUndefined, false
}
