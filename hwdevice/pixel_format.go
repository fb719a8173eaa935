package hwdevice

import (
	"github.com/xaionaro-go/avdecoder/types"
)

// hardware surfaces are downloaded as semi-planar layouts; these are their
// planar equivalents
var semiPlanarPairs = [][2]types.PixelFormat{
	{types.PixelFormatP210LE, types.PixelFormatYUV422P10LE},
	{types.PixelFormatP010LE, types.PixelFormatYUV420P10LE},
	{types.PixelFormatNV12, types.PixelFormatYUV420P},
	{types.PixelFormatNV21, types.PixelFormatYUV420P},
}

// FindBestMatchingPixelFormat picks the format to download a hardware
// surface into: want itself if supported, else its semi-planar/planar
// counterpart, else the first supported format. The result is false if
// supported is empty.
func FindBestMatchingPixelFormat(
	want types.PixelFormat,
	supported []types.PixelFormat,
) (types.PixelFormat, bool) {
	if len(supported) == 0 {
		return types.PixelFormatUnknown, false
	}
	isSupported := func(pf types.PixelFormat) bool {
		for _, candidate := range supported {
			if candidate == pf {
				return true
			}
		}
		return false
	}
	if isSupported(want) {
		return want, true
	}
	for _, pair := range semiPlanarPairs {
		var counterpart types.PixelFormat
		switch want {
		case pair[0]:
			counterpart = pair[1]
		case pair[1]:
			counterpart = pair[0]
		default:
			continue
		}
		if isSupported(counterpart) {
			return counterpart, true
		}
	}
	return supported[0], true
}
