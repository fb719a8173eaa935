package frame

import (
	"context"
	"fmt"

	"github.com/xaionaro-go/avdecoder/types"
)

// Plane is one CPU-addressable plane of an image.
type Plane struct {
	Data   []byte
	Stride int
}

// VideoFrame is a decoded image. It is either CPU-resident (CPUPlanes
// works) or GPU-resident (GPUTexture works); never both. Download turns a
// GPU-resident frame into a CPU-resident one.
type VideoFrame interface {
	Width() uint32
	Height() uint32
	TimestampUS() (int64, bool)
	PixelFormat() types.PixelFormat
	ColorRange() types.ColorRange
	ColorSpace() types.ColorSpace
	Metadata() map[string]string

	IsGPUResident() bool
	CPUPlanes(ctx context.Context) ([]Plane, error)
	GPUTexture(plane int) (types.Texture, error)
	Download(ctx context.Context) (VideoFrame, error)

	Release(ctx context.Context)
}

// Commons are the frame properties every backend fills the same way; embed
// it to get the trivial accessors of VideoFrame.
type Commons struct {
	FrameWidth       uint32
	FrameHeight      uint32
	Timestamp        int64
	HasTimestamp     bool
	FramePixelFormat types.PixelFormat
	FrameColorRange  types.ColorRange
	FrameColorSpace  types.ColorSpace
	FrameMetadata    map[string]string
}

func (c *Commons) Width() uint32                  { return c.FrameWidth }
func (c *Commons) Height() uint32                 { return c.FrameHeight }
func (c *Commons) PixelFormat() types.PixelFormat { return c.FramePixelFormat }
func (c *Commons) ColorRange() types.ColorRange   { return c.FrameColorRange }
func (c *Commons) ColorSpace() types.ColorSpace   { return c.FrameColorSpace }
func (c *Commons) Metadata() map[string]string    { return c.FrameMetadata }

func (c *Commons) TimestampUS() (int64, bool) {
	return c.Timestamp, c.HasTimestamp
}

func (c *Commons) SetTimestampUS(ts int64) {
	c.Timestamp = ts
	c.HasTimestamp = true
}

func (c *Commons) String() string {
	ts := "none"
	if c.HasTimestamp {
		ts = fmt.Sprintf("%dus", c.Timestamp)
	}
	return fmt.Sprintf("%dx%d %s @%s", c.FrameWidth, c.FrameHeight, c.FramePixelFormat, ts)
}

// NullVideoFrame has no size, no timestamp and no data.
type NullVideoFrame struct{}

var _ VideoFrame = NullVideoFrame{}

func (NullVideoFrame) Width() uint32                  { return 0 }
func (NullVideoFrame) Height() uint32                 { return 0 }
func (NullVideoFrame) TimestampUS() (int64, bool)     { return 0, false }
func (NullVideoFrame) PixelFormat() types.PixelFormat { return types.PixelFormatUnknown }
func (NullVideoFrame) ColorRange() types.ColorRange   { return types.ColorRangeUnspecified }
func (NullVideoFrame) ColorSpace() types.ColorSpace   { return types.ColorSpaceUnspecified }
func (NullVideoFrame) Metadata() map[string]string    { return nil }
func (NullVideoFrame) IsGPUResident() bool            { return false }
func (NullVideoFrame) Release(context.Context)        {}

func (NullVideoFrame) CPUPlanes(context.Context) ([]Plane, error) {
	return nil, types.ErrEmptyFrame{}
}

func (NullVideoFrame) GPUTexture(int) (types.Texture, error) {
	return types.Texture{}, types.ErrEmptyFrame{}
}

func (NullVideoFrame) Download(context.Context) (VideoFrame, error) {
	return nil, types.ErrEmptyFrame{}
}

// ErrNotGPUResident is returned by GPUTexture of a CPU-resident frame.
type ErrNotGPUResident struct{}

func (ErrNotGPUResident) Error() string {
	return "the frame is not GPU-resident"
}

// ErrNotCPUResident is returned by CPUPlanes of a GPU-resident frame; use
// Download first.
type ErrNotCPUResident struct{}

func (ErrNotCPUResident) Error() string {
	return "the frame is not CPU-resident, download it first"
}
