package r3d

import (
	"context"
	"fmt"
	"strings"

	"github.com/xaionaro-go/avdecoder/types"
)

// Capability is a set of SDK parts to load at initialization.
type Capability uint

const (
	CapabilityDecoder = Capability(1 << iota)
	CapabilityCUDA
	CapabilityOpenCL
	CapabilityMetal
)

func (c Capability) String() string {
	var parts []string
	for _, item := range []struct {
		flag Capability
		name string
	}{
		{CapabilityDecoder, "decoder"},
		{CapabilityCUDA, "cuda"},
		{CapabilityOpenCL, "opencl"},
		{CapabilityMetal, "metal"},
	} {
		if c&item.flag != 0 {
			parts = append(parts, item.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// ErrAccelLibraryNotFound is returned by a Loader when the SDK itself is
// present but the library of one acceleration capability is not; the SDK
// is then initialized again without it.
type ErrAccelLibraryNotFound struct {
	Capability Capability
}

func (e ErrAccelLibraryNotFound) Error() string {
	return fmt.Sprintf("the R3D %s library is not found", e.Capability)
}

// Loader initializes the SDK from the directory holding its dynamic
// libraries.
type Loader func(ctx context.Context, sdkPath string, caps Capability) (Library, error)

// Library is an initialized REDCODE RAW SDK.
type Library interface {
	// InstallIO routes all file access of the SDK through io. It is
	// called at most once per process.
	InstallIO(ctx context.Context, io *StreamIO) error

	OpenClip(ctx context.Context, path string) (Clip, error)

	CUDADevices(ctx context.Context) ([]Device, error)
	OpenCLDevices(ctx context.Context) ([]Device, error)

	NewDecoder(ctx context.Context, settings DecoderSettings) (Decoder, error)
}

type DeviceAPI int

const (
	DeviceAPIUndefined = DeviceAPI(iota)
	DeviceAPICUDA
	DeviceAPIOpenCL
)

func (api DeviceAPI) String() string {
	switch api {
	case DeviceAPIUndefined:
		return "undefined"
	case DeviceAPICUDA:
		return "cuda"
	case DeviceAPIOpenCL:
		return "opencl"
	}
	return fmt.Sprintf("unknown_device_api_%d", int(api))
}

// Device is a GPU the SDK can decode on.
type Device struct {
	API      DeviceAPI
	Index    int
	Name     string
	Platform string
	BusID    int
}

func (d Device) String() string {
	switch d.API {
	case DeviceAPICUDA:
		return fmt.Sprintf("cuda#%d %s (bus %d)", d.Index, d.Name, d.BusID)
	case DeviceAPIOpenCL:
		return fmt.Sprintf("opencl#%d %s / %s", d.Index, d.Platform, d.Name)
	}
	return fmt.Sprintf("%s#%d %s", d.API, d.Index, d.Name)
}

// DecoderSettings are the options of a new Decoder. Device is nil for
// decoding on the CPU only.
type DecoderSettings struct {
	MemoryPoolSizeMB     int
	GPUMemoryPoolSizeMB  int
	GPUConcurrentFrames  int
	ScratchFolder        string
	DecompressionThreads int
	ConcurrentImages     int
	Device               *Device
}

// DefaultDecoderSettings are what every clip is decoded with; zero thread
// and image counts let the SDK decide, and an empty scratch folder
// disables it.
func DefaultDecoderSettings() DecoderSettings {
	return DecoderSettings{
		MemoryPoolSizeMB:    4096,
		GPUMemoryPoolSizeMB: 4096,
		GPUConcurrentFrames: 3,
	}
}

type Clip interface {
	Width() uint32
	Height() uint32
	FrameRate() float64
	FrameCount() uint64
	Metadata() map[string]string

	// BufferSize is the output size of one frame decoded with the given
	// scale and pixel type.
	BufferSize(scale types.ResolutionScale, pixelType PixelType) (int, error)

	Close(ctx context.Context) error
}

// Job is one frame to decode into Output.
type Job struct {
	Clip       Clip
	Mode       types.ResolutionScale
	PixelType  PixelType
	FrameIndex uint64
	Output     []byte
}

func (j Job) String() string {
	return fmt.Sprintf("frame %d %s %s -> %d bytes", j.FrameIndex, j.Mode, j.PixelType, len(j.Output))
}

type Decoder interface {
	// Decode blocks until the frame is in job.Output and returns the
	// per-frame metadata.
	Decode(ctx context.Context, job Job) (map[string]string, error)

	Close(ctx context.Context) error
}
