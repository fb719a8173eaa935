package avconv

import (
	"github.com/asticode/go-astiav"
	"github.com/xaionaro-go/avdecoder/types"
)

func ColorRangeFromAstiav(r astiav.ColorRange) types.ColorRange {
	switch r {
	case astiav.ColorRangeMpeg:
		return types.ColorRangeLimited
	case astiav.ColorRangeJpeg:
		return types.ColorRangeFull
	}
	return types.ColorRangeUnspecified
}

func ColorSpaceFromAstiav(s astiav.ColorSpace) types.ColorSpace {
	switch s {
	case astiav.ColorSpaceBt709:
		return types.ColorSpaceBT709
	case astiav.ColorSpaceBt470Bg,
		astiav.ColorSpaceFcc,
		astiav.ColorSpaceSmpte170M,
		astiav.ColorSpaceSmpte240M:
		return types.ColorSpaceBT601
	case astiav.ColorSpaceBt2020Ncl,
		astiav.ColorSpaceBt2020Cl,
		astiav.ColorSpaceChromaDerivedNcl,
		astiav.ColorSpaceChromaDerivedCl,
		astiav.ColorSpaceIctcp:
		return types.ColorSpaceBT2020
	}
	return types.ColorSpaceUnspecified
}
