// Package pool recycles cheap native shells (libav packets and frames)
// through a sync.Pool. A shell the sync.Pool drops is freed by its
// finalizer.
package pool

import (
	"runtime"
	"sync"

	"go.uber.org/atomic"
)

// ReuseMemory disables recycling when false; Put then leaves the items to
// their finalizers.
var ReuseMemory = true

type Pool[T any] struct {
	pool      sync.Pool
	resetFunc func(*T)
	allocated atomic.Uint64
}

func New[T any](
	allocFunc func() *T,
	resetFunc func(*T),
	freeFunc func(*T),
) *Pool[T] {
	p := &Pool[T]{
		resetFunc: resetFunc,
	}
	p.pool.New = func() any {
		v := allocFunc()
		p.allocated.Inc()
		runtime.SetFinalizer(v, freeFunc)
		return v
	}
	return p
}

func (p *Pool[T]) Get() *T {
	return p.pool.Get().(*T)
}

// Put resets the items and makes them available to Get.
func (p *Pool[T]) Put(items ...*T) {
	for _, item := range items {
		if item == nil {
			continue
		}
		p.resetFunc(item)
		if !ReuseMemory {
			continue
		}
		p.pool.Put(item)
	}
}

// Allocated is how many items the pool has allocated so far.
func (p *Pool[T]) Allocated() uint64 {
	return p.allocated.Load()
}
