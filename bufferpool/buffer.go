package bufferpool

import (
	"context"
	"fmt"
)

// Key identifies a bucket of interchangeable buffers: a buffer created for
// one key is never handed out for another.
type Key[F comparable] struct {
	Width  uint32
	Height uint32
	Stride int
	Format F
}

func (k Key[F]) String() string {
	return fmt.Sprintf("%dx%d/%d/%v", k.Width, k.Height, k.Stride, k.Format)
}

// Buffer is a pooled entry: the shape it was created for plus the owned
// backend resource. At any time it is owned either by an idle bucket or by
// exactly one Handle (or by whoever Took it).
type Buffer[R any, F comparable] struct {
	Width    uint32
	Height   uint32
	Stride   int
	Format   F
	Resource R
}

func (b *Buffer[R, F]) Key() Key[F] {
	return Key[F]{
		Width:  b.Width,
		Height: b.Height,
		Stride: b.Stride,
		Format: b.Format,
	}
}

// Factory creates and destroys the backend resources behind buffers.
// The pool never calls it concurrently with itself.
type Factory[R any, F comparable] interface {
	Create(ctx context.Context, key Key[F]) (R, error)
	Free(ctx context.Context, buf *Buffer[R, F]) error
}

// FactoryFuncs adapts a pair of functions to Factory. A nil FreeFunc means
// the resource needs no explicit release.
type FactoryFuncs[R any, F comparable] struct {
	CreateFunc func(ctx context.Context, key Key[F]) (R, error)
	FreeFunc   func(ctx context.Context, buf *Buffer[R, F]) error
}

var _ Factory[[]byte, int] = FactoryFuncs[[]byte, int]{}

func (f FactoryFuncs[R, F]) Create(ctx context.Context, key Key[F]) (R, error) {
	return f.CreateFunc(ctx, key)
}

func (f FactoryFuncs[R, F]) Free(ctx context.Context, buf *Buffer[R, F]) error {
	if f.FreeFunc == nil {
		return nil
	}
	return f.FreeFunc(ctx, buf)
}
