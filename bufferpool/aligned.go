package bufferpool

import (
	"context"
	"fmt"
	"unsafe"
)

// AlignedBytes is a CPU memory block whose first byte is aligned to the
// factory's alignment.
type AlignedBytes struct {
	Bytes []byte

	// backing keeps the over-allocated slice alive; Bytes points inside it
	backing []byte
}

// AlignedBytesFactory creates CPU buffers for native decoders that require
// aligned output memory.
type AlignedBytesFactory[F comparable] struct {
	Alignment int

	// SizeFunc returns the byte size of a buffer of the given key.
	SizeFunc func(key Key[F]) int
}

var _ Factory[AlignedBytes, int] = (*AlignedBytesFactory[int])(nil)

func NewAlignedBytesFactory[F comparable](
	alignment int,
	sizeFunc func(key Key[F]) int,
) *AlignedBytesFactory[F] {
	return &AlignedBytesFactory[F]{
		Alignment: alignment,
		SizeFunc:  sizeFunc,
	}
}

func (f *AlignedBytesFactory[F]) Create(
	_ context.Context,
	key Key[F],
) (AlignedBytes, error) {
	size := f.SizeFunc(key)
	if size <= 0 {
		return AlignedBytes{}, fmt.Errorf("invalid buffer size %d for %s", size, key)
	}
	if f.Alignment <= 0 || f.Alignment&(f.Alignment-1) != 0 {
		return AlignedBytes{}, fmt.Errorf("alignment %d is not a power of two", f.Alignment)
	}
	return allocAligned(size, f.Alignment), nil
}

func (f *AlignedBytesFactory[F]) Free(
	_ context.Context,
	buf *Buffer[AlignedBytes, F],
) error {
	buf.Resource = AlignedBytes{}
	return nil
}

func allocAligned(size, alignment int) AlignedBytes {
	backing := make([]byte, size+alignment-1)
	addr := uintptr(unsafe.Pointer(unsafe.SliceData(backing)))
	offset := 0
	if rem := int(addr % uintptr(alignment)); rem != 0 {
		offset = alignment - rem
	}
	return AlignedBytes{
		Bytes:   backing[offset : offset+size : offset+size],
		backing: backing,
	}
}
