package internal

import (
	"context"
	"runtime"

	"github.com/xaionaro-go/avdecoder/logger"
)

// SetFinalizerFree makes the garbage collector call Free on a native
// wrapper that nobody closed explicitly.
func SetFinalizerFree[T interface{ Free() }](
	ctx context.Context,
	freer T,
) {
	runtime.SetFinalizer(freer, func(freer T) {
		logger.Debugf(ctx, "freeing %T", freer)
		freer.Free()
	})
}

// SetFinalizerLeak installs onLeak as the finalizer of obj; onLeak is
// expected to return whatever obj still owns.
func SetFinalizerLeak[T any](
	ctx context.Context,
	obj *T,
	onLeak func(ctx context.Context, obj *T),
) {
	runtime.SetFinalizer(obj, func(obj *T) {
		logger.Debugf(ctx, "%T was leaked, reclaiming", obj)
		onLeak(ctx, obj)
	})
}

// ClearFinalizer removes the finalizer installed by SetFinalizerLeak.
func ClearFinalizer[T any](obj *T) {
	runtime.SetFinalizer(obj, nil)
}
