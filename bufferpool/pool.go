// Package bufferpool keeps reusable frame buffers bucketed by shape.
//
// A Pool hands out Handles; releasing a Handle returns its buffer to the
// bucket of its key unless that bucket already holds capacityPerKey idle
// buffers, in which case the buffer is freed through the Factory. Closing
// the Pool frees every idle buffer; buffers still held by Handles are
// freed when those Handles are released.
package bufferpool

import (
	"context"
	"fmt"

	"github.com/xaionaro-go/avdecoder/internal"
	"github.com/xaionaro-go/avdecoder/logger"
	"github.com/xaionaro-go/avdecoder/types"
	"github.com/xaionaro-go/xsync"
	"go.uber.org/atomic"
)

type Pool[R any, F comparable] struct {
	capacityPerKey int

	bucketsLocker xsync.Mutex
	buckets       map[Key[F]][]*Buffer[R, F]
	isClosed      bool

	// the factory is not assumed to be reentrant
	factoryLocker xsync.Mutex
	factory       Factory[R, F]

	createCount atomic.Uint64
	freeCount   atomic.Uint64
	reuseCount  atomic.Uint64
	takeCount   atomic.Uint64
}

// New creates a Pool retaining at most capacityPerKey idle buffers per key.
func New[R any, F comparable](
	capacityPerKey int,
	factory Factory[R, F],
) *Pool[R, F] {
	if capacityPerKey < 0 {
		capacityPerKey = 0
	}
	return &Pool[R, F]{
		capacityPerKey: capacityPerKey,
		buckets:        map[Key[F]][]*Buffer[R, F]{},
		factory:        factory,
	}
}

func (p *Pool[R, F]) CapacityPerKey() int {
	return p.capacityPerKey
}

// Get returns a Handle to an idle buffer of the given shape, or to a newly
// created one if the bucket is empty.
func (p *Pool[R, F]) Get(
	ctx context.Context,
	width, height uint32,
	stride int,
	format F,
) (*Handle[R, F], error) {
	return p.GetByKey(ctx, Key[F]{
		Width:  width,
		Height: height,
		Stride: stride,
		Format: format,
	})
}

func (p *Pool[R, F]) GetByKey(
	ctx context.Context,
	key Key[F],
) (_ret *Handle[R, F], _err error) {
	logger.Tracef(ctx, "GetByKey(ctx, %s)", key)
	defer func() { logger.Tracef(ctx, "/GetByKey(ctx, %s): %p %v", key, _ret, _err) }()

	buf, err := xsync.DoR2(ctx, &p.bucketsLocker, func() (*Buffer[R, F], error) {
		if p.isClosed {
			return nil, fmt.Errorf("the pool is closed")
		}
		bucket := p.buckets[key]
		if len(bucket) == 0 {
			return nil, nil
		}
		buf := bucket[len(bucket)-1]
		bucket[len(bucket)-1] = nil
		p.buckets[key] = bucket[:len(bucket)-1]
		return buf, nil
	})
	if err != nil {
		return nil, err
	}

	if buf != nil {
		p.reuseCount.Inc()
		internal.Assert(ctx, buf.Key() == key, buf.Key(), key)
		return newHandle(ctx, p, key, buf), nil
	}

	buf, err = p.create(ctx, key)
	if err != nil {
		return nil, err
	}
	return newHandle(ctx, p, key, buf), nil
}

func (p *Pool[R, F]) create(
	ctx context.Context,
	key Key[F],
) (*Buffer[R, F], error) {
	resource, err := xsync.DoR2(ctx, &p.factoryLocker, func() (R, error) {
		return p.factory.Create(ctx, key)
	})
	if err != nil {
		return nil, types.ErrResourceExhausted{
			Resource: fmt.Sprintf("a buffer %s", key),
			Err:      err,
		}
	}
	p.createCount.Inc()
	return &Buffer[R, F]{
		Width:    key.Width,
		Height:   key.Height,
		Stride:   key.Stride,
		Format:   key.Format,
		Resource: resource,
	}, nil
}

// put returns buf into its bucket, or frees it if the bucket is full or
// the pool is closed.
func (p *Pool[R, F]) put(
	ctx context.Context,
	key Key[F],
	buf *Buffer[R, F],
) {
	kept := xsync.DoR1(ctx, &p.bucketsLocker, func() bool {
		if p.isClosed {
			return false
		}
		bucket := p.buckets[key]
		if len(bucket) >= p.capacityPerKey {
			return false
		}
		p.buckets[key] = append(bucket, buf)
		return true
	})
	if kept {
		return
	}
	p.Discard(ctx, buf)
}

// Discard frees a buffer through the factory; it is how a buffer obtained
// with Handle.Take is disposed of. Errors are logged, not returned.
func (p *Pool[R, F]) Discard(
	ctx context.Context,
	buf *Buffer[R, F],
) {
	err := xsync.DoR1(ctx, &p.factoryLocker, func() error {
		return p.factory.Free(ctx, buf)
	})
	p.freeCount.Inc()
	if err != nil {
		logger.Errorf(ctx, "unable to free a buffer %s: %v", buf.Key(), err)
	}
}

// Close frees all idle buffers. Buffers still held by handles are freed
// (not pooled) on release. Close is idempotent.
func (p *Pool[R, F]) Close(ctx context.Context) error {
	logger.Tracef(ctx, "Close")
	defer func() { logger.Tracef(ctx, "/Close") }()

	var idle []*Buffer[R, F]
	p.bucketsLocker.Do(ctx, func() {
		p.isClosed = true
		for key, bucket := range p.buckets {
			idle = append(idle, bucket...)
			delete(p.buckets, key)
		}
	})
	for _, buf := range idle {
		p.Discard(ctx, buf)
	}
	logger.Debugf(ctx, "freed %d idle buffers", len(idle))
	return nil
}

func (p *Pool[R, F]) IdleCount(ctx context.Context, key Key[F]) int {
	return xsync.DoR1(ctx, &p.bucketsLocker, func() int {
		return len(p.buckets[key])
	})
}

// Stats is a snapshot of the pool's counters. For a pool whose handles were
// all released, Created == Freed + Idle + Taken.
type Stats struct {
	Created uint64
	Freed   uint64
	Reused  uint64
	Taken   uint64
	Idle    uint64
}

func (p *Pool[R, F]) Stats(ctx context.Context) Stats {
	idle := xsync.DoR1(ctx, &p.bucketsLocker, func() uint64 {
		var count uint64
		for _, bucket := range p.buckets {
			count += uint64(len(bucket))
		}
		return count
	})
	return Stats{
		Created: p.createCount.Load(),
		Freed:   p.freeCount.Load(),
		Reused:  p.reuseCount.Load(),
		Taken:   p.takeCount.Load(),
		Idle:    idle,
	}
}
