package libav

import (
	"context"
	"fmt"
	"reflect"

	"github.com/asticode/go-astiav"
	"github.com/xaionaro-go/avdecoder/avconv"
	"github.com/xaionaro-go/avdecoder/frame"
	"github.com/xaionaro-go/avdecoder/hwdevice"
	hwlibav "github.com/xaionaro-go/avdecoder/hwdevice/libav"
	"github.com/xaionaro-go/avdecoder/logger"
	"github.com/xaionaro-go/avdecoder/pool"
	"github.com/xaionaro-go/avdecoder/types"
	"github.com/xaionaro-go/unsafetools"
)

var (
	packetPool = pool.New(
		astiav.AllocPacket,
		func(p *astiav.Packet) { p.Unref() },
		func(p *astiav.Packet) { p.Free() },
	)
	framePool = pool.New(
		astiav.AllocFrame,
		func(f *astiav.Frame) { f.Unref() },
		func(f *astiav.Frame) { f.Free() },
	)
)

// VideoFrame is a decoded libav picture, in RAM or (with hardware
// decoding) on the device.
type VideoFrame struct {
	frame.Commons
	avFrame   *astiav.Frame
	cpuPlanes []frame.Plane

	// device produced a GPU-resident frame; downloadWant is the RAM
	// format to prefer when downloading it.
	device       *hwdevice.Device
	downloadWant types.PixelFormat
}

var _ frame.VideoFrame = (*VideoFrame)(nil)

func newVideoFrame(
	f *astiav.Frame,
	timeBase astiav.Rational,
) *VideoFrame {
	v := &VideoFrame{
		Commons: frame.Commons{
			FrameWidth:       uint32(f.Width()),
			FrameHeight:      uint32(f.Height()),
			FramePixelFormat: hwlibav.PixelFormatFromAstiav(f.PixelFormat()),
			FrameColorRange:  avconv.ColorRangeFromAstiav(f.ColorRange()),
			FrameColorSpace:  avconv.ColorSpaceFromAstiav(f.ColorSpace()),
			FrameMetadata:    avconv.DictionaryToMap(f.Metadata()),
		},
		avFrame: f,
	}
	if ts, ok := avconv.Microseconds(f.Pts(), timeBase); ok {
		v.SetTimestampUS(ts)
	}
	return v
}

func (f *VideoFrame) String() string {
	return fmt.Sprintf("libav(%s)", &f.Commons)
}

func (f *VideoFrame) IsGPUResident() bool {
	return f.avFrame != nil && f.FramePixelFormat.IsHardware()
}

// CPUPlanes copies the picture into one tightly packed buffer once and
// returns the per-plane views into it.
func (f *VideoFrame) CPUPlanes(context.Context) ([]frame.Plane, error) {
	if f.avFrame == nil {
		return nil, types.ErrEmptyFrame{}
	}
	if f.IsGPUResident() {
		return nil, frame.ErrNotCPUResident{}
	}
	if f.cpuPlanes != nil {
		return f.cpuPlanes, nil
	}

	size, err := f.avFrame.ImageBufferSize(1)
	if err != nil {
		return nil, engineError("av_image_get_buffer_size", err)
	}
	buf := make([]byte, size)
	if _, err := f.avFrame.ImageCopyToBuffer(buf, 1); err != nil {
		return nil, engineError("av_image_copy_to_buffer", err)
	}

	if f.FramePixelFormat.ImageSize(f.FrameWidth, f.FrameHeight) != size {
		// a layout we do not describe: expose it as is
		f.cpuPlanes = []frame.Plane{{Data: buf}}
		return f.cpuPlanes, nil
	}
	var planes []frame.Plane
	for _, g := range f.FramePixelFormat.Planes(f.FrameWidth, f.FrameHeight) {
		n := g.Stride * g.Rows
		planes = append(planes, frame.Plane{Data: buf[:n:n], Stride: g.Stride})
		buf = buf[n:]
	}
	f.cpuPlanes = planes
	return planes, nil
}

// textureAPIs maps hardware pixel formats to the API of their handles and
// to the AVFrame.data slot holding the handle (-1: the slot of the plane).
var textureAPIs = map[types.PixelFormat]struct {
	API  types.TextureAPI
	Slot int
}{
	types.PixelFormatCUDA:         {types.TextureAPICUDA, -1},
	types.PixelFormatOpenCL:       {types.TextureAPIOpenCL, -1},
	types.PixelFormatD3D11:        {types.TextureAPID3D11, 0},
	types.PixelFormatVAAPI:        {types.TextureAPIVAAPI, 3},
	types.PixelFormatVDPAU:        {types.TextureAPIVDPAU, 3},
	types.PixelFormatDXVA2VLD:     {types.TextureAPIDXVA2, 3},
	types.PixelFormatQSV:          {types.TextureAPIQSV, 3},
	types.PixelFormatVideoToolbox: {types.TextureAPIVideoToolbox, 3},
}

const avNumDataPointers = 8

func (f *VideoFrame) GPUTexture(plane int) (types.Texture, error) {
	if f.avFrame == nil {
		return types.Texture{}, types.ErrEmptyFrame{}
	}
	if !f.IsGPUResident() {
		return types.Texture{}, frame.ErrNotGPUResident{}
	}
	api, ok := textureAPIs[f.FramePixelFormat]
	if !ok {
		return types.Texture{}, types.ErrUnsupportedFormat{Format: f.FramePixelFormat.String()}
	}
	slot := api.Slot
	if slot < 0 {
		slot = plane
	}
	if slot < 0 || slot >= avNumDataPointers {
		return types.Texture{}, fmt.Errorf("plane %d is out of range", plane)
	}
	return types.Texture{
		API:    api.API,
		Handle: dataPointer(f.avFrame, slot),
		Plane:  plane,
	}, nil
}

// dataPointer reads AVFrame.data[slot]; for hardware frames it is a device
// handle, not host memory.
func dataPointer(f *astiav.Frame, slot int) uintptr {
	avFrame := unsafetools.FieldByNameInValue(reflect.ValueOf(f), "c").Elem().Elem()
	return avFrame.FieldByName("data").Index(slot).Pointer()
}

// Download transfers a hardware frame into RAM; a CPU-resident frame is
// returned as is.
func (f *VideoFrame) Download(ctx context.Context) (frame.VideoFrame, error) {
	if f.avFrame == nil {
		return nil, types.ErrEmptyFrame{}
	}
	if !f.IsGPUResident() {
		return f, nil
	}
	ramFrame := framePool.Get()
	ramFormat := f.downloadFormat(ctx)
	ramFrame.SetPixelFormat(ramFormat)
	err := f.avFrame.TransferHardwareData(ramFrame)
	if err != nil && ramFormat != astiav.PixelFormatNone {
		logger.Debugf(ctx, "unable to download into %s, letting libav choose: %v", ramFormat, err)
		ramFrame.SetPixelFormat(astiav.PixelFormatNone)
		err = f.avFrame.TransferHardwareData(ramFrame)
	}
	if err != nil {
		framePool.Put(ramFrame)
		return nil, engineError("av_hwframe_transfer_data", err)
	}
	ramFrame.SetPts(f.avFrame.Pts())
	downloaded := &VideoFrame{
		Commons: f.Commons,
		avFrame: ramFrame,
	}
	downloaded.FramePixelFormat = hwlibav.PixelFormatFromAstiav(ramFrame.PixelFormat())
	return downloaded, nil
}

// downloadFormat is the RAM format matching the device constraints, or
// none to let libav use its default.
func (f *VideoFrame) downloadFormat(ctx context.Context) astiav.PixelFormat {
	if f.device == nil {
		return astiav.PixelFormatNone
	}
	pf, ok := f.device.DownloadFormat(ctx, f.downloadWant, f.FrameWidth, f.FrameHeight)
	if !ok {
		return astiav.PixelFormatNone
	}
	return hwlibav.PixelFormatToAstiav(pf)
}

func (f *VideoFrame) Release(context.Context) {
	if f.avFrame == nil {
		return
	}
	framePool.Put(f.avFrame)
	f.avFrame = nil
	f.cpuPlanes = nil
}

type AudioFrame struct {
	avFrame    *astiav.Frame
	timestamp  int64
	hasTS      bool
	bufferSize uint32
}

var _ frame.AudioFrame = (*AudioFrame)(nil)

func newAudioFrame(
	f *astiav.Frame,
	timeBase astiav.Rational,
) *AudioFrame {
	a := &AudioFrame{
		avFrame:    f,
		bufferSize: uint32(f.NbSamples() * f.ChannelLayout().Channels() * f.SampleFormat().BytesPerSample()),
	}
	a.timestamp, a.hasTS = avconv.Microseconds(f.Pts(), timeBase)
	return a
}

func (a *AudioFrame) TimestampUS() (int64, bool) {
	return a.timestamp, a.hasTS
}

func (a *AudioFrame) BufferSize() uint32 {
	return a.bufferSize
}

func (a *AudioFrame) Release(context.Context) {
	if a.avFrame == nil {
		return
	}
	framePool.Put(a.avFrame)
	a.avFrame = nil
}
