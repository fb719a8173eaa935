package r3d

import (
	"context"
	"errors"
	"fmt"
	"math/bits"
	"os"
	"path/filepath"
	"runtime"

	"github.com/xaionaro-go/avdecoder/logger"
	"github.com/xaionaro-go/avdecoder/types"
	"github.com/xaionaro-go/xsync"
)

const (
	optionSDKPath    = "r3d.sdk_path"
	envSDKDir        = "R3DSDK_DIR"
	redistributables = "Redistributable"
)

// ErrNoSDK means no REDCODE RAW SDK binding is linked in, or it failed to
// initialize.
type ErrNoSDK struct {
	Err error
}

func (e ErrNoSDK) Error() string {
	if e.Err == nil {
		return "the R3D SDK is not available"
	}
	return fmt.Sprintf("the R3D SDK is not available: %v", e.Err)
}

func (e ErrNoSDK) Unwrap() error {
	return e.Err
}

// sdk is initialized once per process, and so is the outcome: a failed
// initialization is not retried until SetLoader is called again.
var sdk struct {
	locker      xsync.Mutex
	loader      Loader
	initialized bool
	library     Library
	err         error

	io          *StreamIO
	ioInstalled bool
}

// SetLoader installs the SDK binding; a binding package calls it from
// init.
func SetLoader(loader Loader) {
	ctx := context.Background()
	sdk.locker.Do(ctx, func() {
		sdk.loader = loader
		sdk.initialized = false
		sdk.library = nil
		sdk.err = nil
		sdk.io = nil
		sdk.ioInstalled = false
	})
}

// withLibrary runs callback with the SDK under the process-wide lock,
// initializing the SDK first if needed.
func withLibrary(
	ctx context.Context,
	opts types.DecoderOptions,
	callback func(Library) error,
) error {
	return xsync.DoR1(ctx, &sdk.locker, func() error {
		if !sdk.initialized {
			sdk.library, sdk.err = initialize(ctx, sdk.loader, opts)
			sdk.initialized = true
		}
		if sdk.err != nil {
			return sdk.err
		}
		return callback(sdk.library)
	})
}

// streamIO installs the custom IO into the SDK on the first call; it must
// be called from a withLibrary callback.
func streamIO(ctx context.Context, lib Library) (*StreamIO, error) {
	if sdk.ioInstalled {
		return sdk.io, nil
	}
	io := NewStreamIO()
	if err := lib.InstallIO(ctx, io); err != nil {
		return nil, fmt.Errorf("unable to install the custom IO: %w", err)
	}
	sdk.io, sdk.ioInstalled = io, true
	return io, nil
}

func defaultCapabilities(goos string) Capability {
	caps := CapabilityDecoder | CapabilityCUDA | CapabilityOpenCL
	if goos == "darwin" {
		caps |= CapabilityMetal
	}
	return caps
}

func initialize(
	ctx context.Context,
	loader Loader,
	opts types.DecoderOptions,
) (_ret Library, _err error) {
	if loader == nil {
		return nil, ErrNoSDK{}
	}

	customPath, _ := opts.CustomOptions.Get(optionSDKPath, envSDKDir)
	sdkPath := resolveSDKPath(runtime.GOOS, fileExists, ".", os.Getenv(envSDKDir), customPath)
	return loadLibrary(ctx, loader, sdkPath, defaultCapabilities(runtime.GOOS))
}

// loadLibrary drops one acceleration capability per failed attempt, so
// the last attempt is always a CPU-only one.
func loadLibrary(
	ctx context.Context,
	loader Loader,
	sdkPath string,
	caps Capability,
) (Library, error) {
	logger.Debugf(ctx, "trying to load the R3D SDK from '%s' with %s", sdkPath, caps)
	maxAttempts := bits.OnesCount(uint(caps&^CapabilityDecoder)) + 1
	for attempt := 0; attempt < maxAttempts; attempt++ {
		lib, err := loader(ctx, sdkPath, caps)
		if err == nil {
			logger.Debugf(ctx, "initialized the R3D SDK with %s", caps)
			return lib, nil
		}
		var notFound ErrAccelLibraryNotFound
		if !errors.As(err, &notFound) || caps&^CapabilityDecoder&notFound.Capability == 0 {
			logger.Errorf(ctx, "unable to initialize the R3D SDK: %v", err)
			return nil, ErrNoSDK{Err: err}
		}
		logger.Infof(ctx, "the R3D %s library is not found, initializing without it", notFound.Capability)
		caps &^= notFound.Capability
	}
	return nil, ErrNoSDK{Err: fmt.Errorf("unable to load the library after %d attempts", maxAttempts)}
}

// sdkLibrary is the file that tells an SDK directory apart, and the
// platform directory under Redistributable holding it.
func sdkLibrary(goos string) (platformDir, fileName string) {
	switch goos {
	case "windows":
		return "win", "REDCuda-x64.dll"
	case "darwin":
		return "mac", "REDR3D.dylib"
	}
	return "linux", "REDR3D-x64.so"
}

// resolveSDKPath returns the directory with the SDK libraries from the
// first candidate that has them, either under Redistributable/<platform>
// or directly; it falls back to ".".
func resolveSDKPath(
	goos string,
	exists func(path string) bool,
	candidates ...string,
) string {
	platformDir, fileName := sdkLibrary(goos)
	for _, candidate := range candidates {
		if candidate == "" {
			continue
		}
		for _, dir := range []string{
			filepath.Join(candidate, redistributables, platformDir),
			candidate,
		} {
			if exists(filepath.Join(dir, fileName)) {
				return filepath.Clean(dir)
			}
		}
	}
	return "."
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
