package braw

import (
	"context"
	"fmt"

	"github.com/xaionaro-go/avdecoder/logger"
	"github.com/xaionaro-go/xsync"
)

// LibraryLoader loads the SDK; it is called at most once per process
// unless it fails.
type LibraryLoader func(ctx context.Context) (Library, error)

// ErrNoSDK means no Blackmagic RAW SDK binding is linked in, or it failed
// to load.
type ErrNoSDK struct {
	Err error
}

func (e ErrNoSDK) Error() string {
	if e.Err == nil {
		return "the Blackmagic RAW SDK is not available"
	}
	return fmt.Sprintf("the Blackmagic RAW SDK is not available: %v", e.Err)
}

func (e ErrNoSDK) Unwrap() error {
	return e.Err
}

// library is process-wide: the SDK is loaded once and never unloaded. The
// lock also serializes codec creation and device selection, which the SDK
// factory does not allow concurrently.
var library struct {
	locker xsync.Mutex
	loader LibraryLoader
	loaded Library
}

// SetLibraryLoader installs the SDK binding; a binding package calls it
// from init.
func SetLibraryLoader(loader LibraryLoader) {
	ctx := context.Background()
	library.locker.Do(ctx, func() {
		library.loader = loader
		library.loaded = nil
	})
}

func withLibrary(
	ctx context.Context,
	callback func(Library) error,
) error {
	return xsync.DoR1(ctx, &library.locker, func() error {
		if library.loaded == nil {
			if library.loader == nil {
				return ErrNoSDK{}
			}
			lib, err := library.loader(ctx)
			if err != nil {
				return ErrNoSDK{Err: err}
			}
			logger.Debugf(ctx, "loaded the Blackmagic RAW SDK")
			library.loaded = lib
		}
		return callback(library.loaded)
	})
}
