package types

// PlaneGeometry is the size of one plane of a tightly packed image.
type PlaneGeometry struct {
	Stride int
	Rows   int
}

type planarLayout struct {
	componentBytes int

	// log2 of the chroma subsampling
	chromaShiftX, chromaShiftY int

	// interleaved chroma (NV12-like) instead of separate U and V planes
	semiPlanar bool
}

var planarLayouts = map[PixelFormat]planarLayout{
	PixelFormatYUV420P:     {componentBytes: 1, chromaShiftX: 1, chromaShiftY: 1},
	PixelFormatYUV420P10LE: {componentBytes: 2, chromaShiftX: 1, chromaShiftY: 1},
	PixelFormatYUV420P12LE: {componentBytes: 2, chromaShiftX: 1, chromaShiftY: 1},
	PixelFormatYUV420P14LE: {componentBytes: 2, chromaShiftX: 1, chromaShiftY: 1},
	PixelFormatYUV420P16LE: {componentBytes: 2, chromaShiftX: 1, chromaShiftY: 1},
	PixelFormatYUV422P:     {componentBytes: 1, chromaShiftX: 1},
	PixelFormatYUV422P10LE: {componentBytes: 2, chromaShiftX: 1},
	PixelFormatYUV422P12LE: {componentBytes: 2, chromaShiftX: 1},
	PixelFormatYUV422P14LE: {componentBytes: 2, chromaShiftX: 1},
	PixelFormatYUV422P16LE: {componentBytes: 2, chromaShiftX: 1},
	PixelFormatYUV444P:     {componentBytes: 1},
	PixelFormatYUV444P10LE: {componentBytes: 2},
	PixelFormatYUV444P12LE: {componentBytes: 2},
	PixelFormatYUV444P14LE: {componentBytes: 2},
	PixelFormatYUV444P16LE: {componentBytes: 2},
	PixelFormatNV12:        {componentBytes: 1, chromaShiftX: 1, chromaShiftY: 1, semiPlanar: true},
	PixelFormatNV21:        {componentBytes: 1, chromaShiftX: 1, chromaShiftY: 1, semiPlanar: true},
	PixelFormatNV16:        {componentBytes: 1, chromaShiftX: 1, semiPlanar: true},
	PixelFormatNV24:        {componentBytes: 1, semiPlanar: true},
	PixelFormatNV42:        {componentBytes: 1, semiPlanar: true},
	PixelFormatP010LE:      {componentBytes: 2, chromaShiftX: 1, chromaShiftY: 1, semiPlanar: true},
	PixelFormatP016LE:      {componentBytes: 2, chromaShiftX: 1, chromaShiftY: 1, semiPlanar: true},
	PixelFormatP210LE:      {componentBytes: 2, chromaShiftX: 1, semiPlanar: true},
	PixelFormatP216LE:      {componentBytes: 2, chromaShiftX: 1, semiPlanar: true},
	PixelFormatP410LE:      {componentBytes: 2, semiPlanar: true},
	PixelFormatP416LE:      {componentBytes: 2, semiPlanar: true},
}

func isPlanarRGB(pf PixelFormat) bool {
	switch pf {
	case PixelFormatRgbU16Planar, PixelFormatRgbF16Planar, PixelFormatRgbF32Planar:
		return true
	}
	return false
}

func ceilShift(v, shift int) int {
	return (v + (1 << shift) - 1) >> shift
}

// Planes returns the geometry of the planes of a width x height image with
// no row padding; it is nil for hardware and unknown formats.
func (pf PixelFormat) Planes(width, height uint32) []PlaneGeometry {
	w, h := int(width), int(height)
	if layout, ok := planarLayouts[pf]; ok {
		cw, ch := ceilShift(w, layout.chromaShiftX), ceilShift(h, layout.chromaShiftY)
		luma := PlaneGeometry{Stride: w * layout.componentBytes, Rows: h}
		if layout.semiPlanar {
			return []PlaneGeometry{luma, {Stride: 2 * cw * layout.componentBytes, Rows: ch}}
		}
		chroma := PlaneGeometry{Stride: cw * layout.componentBytes, Rows: ch}
		return []PlaneGeometry{luma, chroma, chroma}
	}
	bpp := pf.BytesPerPixel()
	if bpp == 0 {
		return nil
	}
	if isPlanarRGB(pf) {
		plane := PlaneGeometry{Stride: w * bpp, Rows: h}
		return []PlaneGeometry{plane, plane, plane}
	}
	if pf == PixelFormatUYVY422 {
		return []PlaneGeometry{{Stride: ceilShift(w, 1) * 4, Rows: h}}
	}
	return []PlaneGeometry{{Stride: w * bpp, Rows: h}}
}

// ImageSize is the byte size of a tightly packed image, 0 if unknown.
func (pf PixelFormat) ImageSize(width, height uint32) int {
	var size int
	for _, p := range pf.Planes(width, height) {
		size += p.Stride * p.Rows
	}
	return size
}
