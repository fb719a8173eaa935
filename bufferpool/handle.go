package bufferpool

import (
	"context"

	"github.com/go-ng/xatomic"
	"github.com/xaionaro-go/avdecoder/internal"
	"github.com/xaionaro-go/avdecoder/types"
)

// Handle is the exclusive owner of one buffer taken from a Pool.
//
// A Handle that is garbage collected without Release or Take returns its
// buffer the same way Release would.
type Handle[R any, F comparable] struct {
	pool   *Pool[R, F]
	key    Key[F]
	buffer *Buffer[R, F]
}

func newHandle[R any, F comparable](
	ctx context.Context,
	pool *Pool[R, F],
	key Key[F],
	buf *Buffer[R, F],
) *Handle[R, F] {
	h := &Handle[R, F]{
		pool:   pool,
		key:    key,
		buffer: buf,
	}
	internal.SetFinalizerLeak(ctx, h, func(ctx context.Context, h *Handle[R, F]) {
		h.Release(ctx)
	})
	return h
}

func (h *Handle[R, F]) Key() Key[F] {
	return h.key
}

// IsEmpty reports whether the buffer was already released or taken.
func (h *Handle[R, F]) IsEmpty() bool {
	return xatomic.LoadPointer(&h.buffer) == nil
}

// Buffer returns the owned buffer; it panics if the handle is empty.
func (h *Handle[R, F]) Buffer() *Buffer[R, F] {
	buf := xatomic.LoadPointer(&h.buffer)
	if buf == nil {
		panic(types.ErrEmptyFrame{})
	}
	return buf
}

// Release gives the buffer back to the pool (or frees it if the bucket is
// full or the pool is closed). Releasing an empty handle is a no-op.
func (h *Handle[R, F]) Release(ctx context.Context) {
	buf := xatomic.SwapPointer(&h.buffer, (*Buffer[R, F])(nil))
	if buf == nil {
		return
	}
	internal.ClearFinalizer(h)
	h.pool.put(ctx, h.key, buf)
}

// Take detaches the buffer from the handle: it will never be returned to
// the pool. Dispose of it with Pool.Discard or manage the resource
// directly. It panics if the handle is empty.
func (h *Handle[R, F]) Take() *Buffer[R, F] {
	buf := xatomic.SwapPointer(&h.buffer, (*Buffer[R, F])(nil))
	if buf == nil {
		panic(types.ErrEmptyFrame{})
	}
	internal.ClearFinalizer(h)
	h.pool.takeCount.Inc()
	return buf
}
