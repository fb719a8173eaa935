package braw

import (
	"context"
	"fmt"

	"github.com/xaionaro-go/avdecoder/types"
)

// The interfaces below are the part of the Blackmagic RAW SDK the backend
// uses. A binding package implements them and installs itself with
// SetLibraryLoader.

// Library is the loaded SDK (the IBlackmagicRawFactory).
type Library interface {
	NewCodec(ctx context.Context) (Codec, error)

	// Pipelines lists the processing pipelines in preference order.
	Pipelines(ctx context.Context) ([]Pipeline, error)
}

type Pipeline interface {
	fmt.Stringer
	Devices(ctx context.Context) ([]PipelineDevice, error)
}

// PipelineDevice is an entry of a pipeline's device list, not yet
// created.
type PipelineDevice interface {
	fmt.Stringer
	CreateDevice(ctx context.Context) (Device, error)
}

type Device interface {
	fmt.Stringer

	// Context returns the native context and command queue of the device
	// (for example a CUcontext and a CUstream).
	Context() (nativeContext, queue uintptr)

	Close(ctx context.Context) error
}

type Codec interface {
	// UseDevice makes the codec process on the device instead of the CPU.
	UseDevice(ctx context.Context, device Device) error

	ResourceManager() ResourceManager
	OpenClip(ctx context.Context, path string) (Clip, error)

	// FlushJobs waits for every submitted job.
	FlushJobs(ctx context.Context) error
	Close(ctx context.Context) error
}

type Clip interface {
	Width() uint32
	Height() uint32
	FrameRate() float64
	FrameCount() uint64
	Metadata() map[string]string
	ReadFrame(ctx context.Context, frameIndex uint64) (RawFrame, error)
	Close(ctx context.Context) error
}

// RawFrame is a read but not yet decoded frame.
type RawFrame interface {
	SetResolutionScale(scale types.ResolutionScale) error
	SetResourceFormat(format types.PixelFormat) error

	// DecodeAndProcess blocks until the processed image is ready.
	DecodeAndProcess(ctx context.Context) (ProcessedImage, error)
	Release()
}

type ProcessedImage interface {
	Width() uint32
	Height() uint32
	ResourceFormat() types.PixelFormat
	Resource() Resource
	Release()
}

type ResourceType int

const (
	ResourceTypeUndefined = ResourceType(iota)
	ResourceTypeCPU
	ResourceTypeMetal
	ResourceTypeCUDA
	ResourceTypeOpenCL
)

func (t ResourceType) String() string {
	switch t {
	case ResourceTypeUndefined:
		return "undefined"
	case ResourceTypeCPU:
		return "cpu"
	case ResourceTypeMetal:
		return "metal"
	case ResourceTypeCUDA:
		return "cuda"
	case ResourceTypeOpenCL:
		return "opencl"
	}
	return fmt.Sprintf("unknown_resource_type_%d", int(t))
}

// TextureAPI is the GPU API of the resource type.
func (t ResourceType) TextureAPI() types.TextureAPI {
	switch t {
	case ResourceTypeMetal:
		return types.TextureAPIMetal
	case ResourceTypeCUDA:
		return types.TextureAPICUDA
	case ResourceTypeOpenCL:
		return types.TextureAPIOpenCL
	}
	return types.TextureAPIUndefined
}

// Resource is an SDK-owned memory block: Pointer is a device pointer (or
// MTLBuffer, cl_mem) for GPU types; Data is the host view of a CPU
// resource.
type Resource struct {
	Type    ResourceType
	Context uintptr
	Queue   uintptr
	Pointer uintptr
	Size    int
	Data    []byte
}

type ResourceManager interface {
	CreateResource(ctx context.Context, nativeContext, queue uintptr, size int, resourceType ResourceType) (Resource, error)
	ReleaseResource(ctx context.Context, resource Resource) error

	// CopyResource copies size bytes synchronously.
	CopyResource(ctx context.Context, src, dst Resource, size int) error
}
