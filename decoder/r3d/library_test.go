package r3d

import (
	"context"
	"errors"
	"fmt"
	"math/bits"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/avdecoder/types"
)

func TestResolveSDKPath(t *testing.T) {
	existing := map[string]bool{
		filepath.Join("/opt/r3d", "Redistributable", "linux", "REDR3D-x64.so"): true,
		filepath.Join("/Applications/R3D", "REDR3D.dylib"):                     true,
		filepath.Join("C:/sdk", "Redistributable", "win", "REDCuda-x64.dll"):   true,
	}
	exists := func(path string) bool { return existing[path] }

	for _, tc := range []struct {
		goos       string
		candidates []string
		expected   string
	}{
		{"linux", []string{".", "", "/opt/r3d"}, filepath.Join("/opt/r3d", "Redistributable", "linux")},
		{"linux", []string{".", "/Applications/R3D"}, "."},
		{"darwin", []string{"/opt/r3d", "/Applications/R3D/"}, "/Applications/R3D"},
		{"windows", []string{"C:/sdk"}, filepath.Join("C:/sdk", "Redistributable", "win")},
		{"freebsd", nil, "."},
	} {
		t.Run(tc.goos, func(t *testing.T) {
			require.Equal(t, tc.expected, resolveSDKPath(tc.goos, exists, tc.candidates...))
		})
	}
}

func TestInitializeDowngradesCapabilities(t *testing.T) {
	ctx := context.Background()
	base := defaultCapabilities(runtime.GOOS)
	lib := &fakeLibrary{}

	var calls []Capability
	loader := func(_ context.Context, _ string, caps Capability) (Library, error) {
		calls = append(calls, caps)
		switch {
		case caps&CapabilityCUDA != 0:
			return nil, ErrAccelLibraryNotFound{Capability: CapabilityCUDA}
		case caps&CapabilityOpenCL != 0:
			return nil, ErrAccelLibraryNotFound{Capability: CapabilityOpenCL}
		}
		return lib, nil
	}

	result, err := initialize(ctx, loader, types.DecoderOptions{})
	require.NoError(t, err)
	require.Equal(t, Library(lib), result)
	require.Equal(t, []Capability{
		base,
		base &^ CapabilityCUDA,
		base &^ CapabilityCUDA &^ CapabilityOpenCL,
	}, calls)
}

func TestInitializeFailures(t *testing.T) {
	ctx := context.Background()

	_, err := initialize(ctx, nil, types.DecoderOptions{})
	require.Equal(t, ErrNoSDK{}, err)

	calls := 0
	_, err = initialize(ctx, func(context.Context, string, Capability) (Library, error) {
		calls++
		return nil, ErrAccelLibraryNotFound{Capability: CapabilityCUDA}
	}, types.DecoderOptions{})
	require.True(t, errors.As(err, &ErrNoSDK{}))
	require.True(t, errors.As(err, &ErrAccelLibraryNotFound{}))
	require.Equal(t, 2, calls)

	calls = 0
	_, err = initialize(ctx, func(_ context.Context, _ string, caps Capability) (Library, error) {
		calls++
		// the lowest acceleration capability still requested
		return nil, ErrAccelLibraryNotFound{Capability: caps &^ CapabilityDecoder & -(caps &^ CapabilityDecoder)}
	}, types.DecoderOptions{})
	require.Error(t, err)
	require.Equal(t, bits.OnesCount(uint(defaultCapabilities(runtime.GOOS)&^CapabilityDecoder))+1, calls)
}

func TestLoadLibraryFallsBackToCPUOnDarwin(t *testing.T) {
	ctx := context.Background()
	lib := &fakeLibrary{}

	var calls []Capability
	loader := func(_ context.Context, _ string, caps Capability) (Library, error) {
		calls = append(calls, caps)
		for _, accel := range []Capability{CapabilityCUDA, CapabilityOpenCL, CapabilityMetal} {
			if caps&accel != 0 {
				return nil, ErrAccelLibraryNotFound{Capability: accel}
			}
		}
		return lib, nil
	}

	result, err := loadLibrary(ctx, loader, ".", defaultCapabilities("darwin"))
	require.NoError(t, err)
	require.Equal(t, Library(lib), result)
	require.Len(t, calls, 4)
	require.Equal(t, CapabilityDecoder, calls[3])
}

func TestLoadLibraryDecoderNotFound(t *testing.T) {
	calls := 0
	_, err := loadLibrary(context.Background(), func(context.Context, string, Capability) (Library, error) {
		calls++
		return nil, ErrAccelLibraryNotFound{Capability: CapabilityDecoder}
	}, ".", defaultCapabilities("linux"))
	require.True(t, errors.As(err, &ErrNoSDK{}))
	require.Equal(t, 1, calls)
}

func TestInitializeSDKPathOption(t *testing.T) {
	t.Setenv(envSDKDir, "")
	dir := t.TempDir()
	platformDir, fileName := sdkLibrary(runtime.GOOS)
	libDir := filepath.Join(dir, "Redistributable", platformDir)
	require.NoError(t, os.MkdirAll(libDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(libDir, fileName), nil, 0o644))

	var sdkPath string
	_, err := initialize(context.Background(), func(_ context.Context, path string, _ Capability) (Library, error) {
		sdkPath = path
		return &fakeLibrary{}, nil
	}, types.DecoderOptions{}.WithCustomOption(optionSDKPath, dir))
	require.NoError(t, err)
	require.Equal(t, libDir, sdkPath)
}

func TestWithLibraryCachesFailure(t *testing.T) {
	ctx := context.Background()
	calls := 0
	SetLoader(func(context.Context, string, Capability) (Library, error) {
		calls++
		return nil, fmt.Errorf("no license")
	})
	t.Cleanup(func() { SetLoader(nil) })

	for i := 0; i < 3; i++ {
		err := withLibrary(ctx, types.DecoderOptions{}, func(Library) error {
			t.Fatal("must not be called")
			return nil
		})
		require.True(t, errors.As(err, &ErrNoSDK{}))
	}
	require.Equal(t, 1, calls)
}

func TestCapabilityString(t *testing.T) {
	require.Equal(t, "decoder|cuda|opencl", (CapabilityDecoder | CapabilityCUDA | CapabilityOpenCL).String())
	require.Equal(t, "none", Capability(0).String())
}
