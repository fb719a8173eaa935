package frame

import (
	"context"

	"github.com/xaionaro-go/avdecoder/bufferpool"
	"github.com/xaionaro-go/avdecoder/types"
)

// PooledVideoFrame is a CPU-resident frame stored in one pooled buffer
// (planar layouts are exposed as a single contiguous plane). Releasing the
// frame returns the buffer to its pool.
type PooledVideoFrame[R any, F comparable] struct {
	Commons
	handle  *bufferpool.Handle[R, F]
	bytesOf func(buf *bufferpool.Buffer[R, F]) []byte
}

var _ VideoFrame = (*PooledVideoFrame[bufferpool.AlignedBytes, int])(nil)

func NewPooledVideoFrame[R any, F comparable](
	commons Commons,
	handle *bufferpool.Handle[R, F],
	bytesOf func(buf *bufferpool.Buffer[R, F]) []byte,
) *PooledVideoFrame[R, F] {
	return &PooledVideoFrame[R, F]{
		Commons: commons,
		handle:  handle,
		bytesOf: bytesOf,
	}
}

// AlignedBytesOf is the bytesOf function for pools of AlignedBytes.
func AlignedBytesOf[F comparable](buf *bufferpool.Buffer[bufferpool.AlignedBytes, F]) []byte {
	return buf.Resource.Bytes
}

func (f *PooledVideoFrame[R, F]) Handle() *bufferpool.Handle[R, F] {
	return f.handle
}

func (f *PooledVideoFrame[R, F]) IsGPUResident() bool {
	return false
}

func (f *PooledVideoFrame[R, F]) CPUPlanes(context.Context) ([]Plane, error) {
	if f.handle.IsEmpty() {
		return nil, types.ErrEmptyFrame{}
	}
	buf := f.handle.Buffer()
	return []Plane{{
		Data:   f.bytesOf(buf),
		Stride: buf.Stride,
	}}, nil
}

func (f *PooledVideoFrame[R, F]) GPUTexture(int) (types.Texture, error) {
	return types.Texture{}, ErrNotGPUResident{}
}

func (f *PooledVideoFrame[R, F]) Download(context.Context) (VideoFrame, error) {
	if f.handle.IsEmpty() {
		return nil, types.ErrEmptyFrame{}
	}
	return f, nil
}

func (f *PooledVideoFrame[R, F]) Release(ctx context.Context) {
	f.handle.Release(ctx)
}
