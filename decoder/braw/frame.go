package braw

import (
	"context"
	"fmt"

	"github.com/xaionaro-go/avdecoder/frame"
	"github.com/xaionaro-go/avdecoder/types"
)

// VideoFrame is a processed BRAW image. It lives in CPU memory or on the
// processing device, depending on the pipeline the codec runs on.
type VideoFrame struct {
	frame.Commons
	image   ProcessedImage
	manager ResourceManager
	pool    *resourcePool
}

var _ frame.VideoFrame = (*VideoFrame)(nil)

func (f *VideoFrame) String() string {
	return fmt.Sprintf("braw(%s)", &f.Commons)
}

func (f *VideoFrame) resource() (Resource, error) {
	if f.image == nil {
		return Resource{}, types.ErrEmptyFrame{}
	}
	return f.image.Resource(), nil
}

func (f *VideoFrame) IsGPUResident() bool {
	res, err := f.resource()
	return err == nil && res.Type != ResourceTypeCPU
}

func (f *VideoFrame) CPUPlanes(context.Context) ([]frame.Plane, error) {
	res, err := f.resource()
	if err != nil {
		return nil, err
	}
	if res.Type != ResourceTypeCPU {
		return nil, frame.ErrNotCPUResident{}
	}
	return splitPlanes(res.Data, f.FramePixelFormat, f.FrameWidth, f.FrameHeight), nil
}

// splitPlanes cuts a tightly packed image into its planes; data of an
// unexpected size is returned as one plane.
func splitPlanes(
	data []byte,
	pf types.PixelFormat,
	width, height uint32,
) []frame.Plane {
	geometry := pf.Planes(width, height)
	if len(geometry) == 0 || pf.ImageSize(width, height) > len(data) {
		return []frame.Plane{{Data: data}}
	}
	var planes []frame.Plane
	for _, g := range geometry {
		n := g.Stride * g.Rows
		planes = append(planes, frame.Plane{Data: data[:n:n], Stride: g.Stride})
		data = data[n:]
	}
	return planes
}

func (f *VideoFrame) GPUTexture(plane int) (types.Texture, error) {
	res, err := f.resource()
	if err != nil {
		return types.Texture{}, err
	}
	if res.Type == ResourceTypeCPU {
		return types.Texture{}, frame.ErrNotGPUResident{}
	}
	if plane != 0 {
		return types.Texture{}, fmt.Errorf("a BRAW GPU resource has a single plane, requested %d", plane)
	}
	return types.Texture{
		API:    res.Type.TextureAPI(),
		Handle: res.Pointer,
	}, nil
}

// Download copies a GPU-resident image into a pooled CPU resource; the
// result is independent of f and must be released on its own.
func (f *VideoFrame) Download(ctx context.Context) (frame.VideoFrame, error) {
	res, err := f.resource()
	if err != nil {
		return nil, err
	}
	if res.Type == ResourceTypeCPU {
		return f, nil
	}

	kind := resourceKind{
		Type:   ResourceTypeCPU,
		Format: f.FramePixelFormat,
		Size:   res.Size,
	}
	h, err := f.pool.Get(ctx, f.FrameWidth, f.FrameHeight, 0, kind)
	if err != nil {
		return nil, err
	}
	if err := f.manager.CopyResource(ctx, res, h.Buffer().Resource, res.Size); err != nil {
		h.Release(ctx)
		return nil, fmt.Errorf("unable to copy the %s resource to the CPU: %w", res.Type, err)
	}
	return &downloadedFrame{
		PooledVideoFrame: frame.NewPooledVideoFrame(f.Commons, h, resourceBytes),
	}, nil
}

func (f *VideoFrame) Release(context.Context) {
	if f.image == nil {
		return
	}
	f.image.Release()
	f.image = nil
}

// downloadedFrame exposes the planes of planar formats separately.
type downloadedFrame struct {
	*frame.PooledVideoFrame[Resource, resourceKind]
}

func (f *downloadedFrame) CPUPlanes(ctx context.Context) ([]frame.Plane, error) {
	planes, err := f.PooledVideoFrame.CPUPlanes(ctx)
	if err != nil {
		return nil, err
	}
	return splitPlanes(planes[0].Data, f.FramePixelFormat, f.FrameWidth, f.FrameHeight), nil
}

func (f *downloadedFrame) Download(context.Context) (frame.VideoFrame, error) {
	if f.Handle().IsEmpty() {
		return nil, types.ErrEmptyFrame{}
	}
	return f, nil
}
