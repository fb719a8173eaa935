package hwdevice

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/avdecoder/types"
)

type fakeNative struct {
	deviceType types.HardwareDeviceType
	name       types.HardwareDeviceName

	locker           sync.Mutex
	constraintsCalls int
	constraintsErr   error
}

func (n *fakeNative) Constraints(context.Context) (*Constraints, error) {
	n.locker.Lock()
	defer n.locker.Unlock()
	n.constraintsCalls++
	if n.constraintsErr != nil {
		err := n.constraintsErr
		n.constraintsErr = nil
		return nil, err
	}
	return &Constraints{
		HardwarePixelFormats: []types.PixelFormat{types.PixelFormatCUDA},
		SoftwarePixelFormats: []types.PixelFormat{types.PixelFormatNV12, types.PixelFormatP010LE},
		MinWidth:             16,
		MinHeight:            16,
		MaxWidth:             8192,
		MaxHeight:            8192,
	}, nil
}

func (n *fakeNative) Free() {}

type fakeCreator struct {
	locker   sync.Mutex
	calls    int
	delay    time.Duration
	failFor  map[types.HardwareDeviceType]error
	failOnce bool
	names    []types.HardwareDeviceName
}

func (c *fakeCreator) Create(
	_ context.Context,
	deviceType types.HardwareDeviceType,
	deviceName types.HardwareDeviceName,
) (NativeContext, error) {
	c.locker.Lock()
	c.calls++
	c.names = append(c.names, deviceName)
	err := c.failFor[deviceType]
	if err != nil && c.failOnce {
		delete(c.failFor, deviceType)
	}
	c.locker.Unlock()
	if c.delay > 0 {
		time.Sleep(c.delay)
	}
	if err != nil {
		return nil, err
	}
	return &fakeNative{deviceType: deviceType, name: deviceName}, nil
}

func (c *fakeCreator) callCount() int {
	c.locker.Lock()
	defer c.locker.Unlock()
	return c.calls
}

func TestCacheDeduplicatesConcurrentCreation(t *testing.T) {
	ctx := context.Background()
	creator := &fakeCreator{delay: 10 * time.Millisecond}
	cache := NewCache(creator)

	const callers = 16
	devices := make([]*Device, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			dev, err := cache.GetOrCreate(ctx, types.HardwareDeviceTypeCUDA, "")
			if err != nil {
				panic(err)
			}
			devices[i] = dev
		}(i)
	}
	wg.Wait()

	require.Equal(t, 1, creator.callCount())
	require.Equal(t, uint64(1), cache.CreateCount())
	for _, dev := range devices {
		require.Same(t, devices[0], dev)
	}
}

func TestCacheDistinguishesNames(t *testing.T) {
	ctx := context.Background()
	creator := &fakeCreator{}
	cache := NewCache(creator)

	a, err := cache.GetOrCreate(ctx, types.HardwareDeviceTypeVAAPI, "/dev/dri/renderD128")
	require.NoError(t, err)
	b, err := cache.GetOrCreate(ctx, types.HardwareDeviceTypeVAAPI, "/dev/dri/renderD129")
	require.NoError(t, err)
	c, err := cache.GetOrCreate(ctx, types.HardwareDeviceTypeVAAPI, "")
	require.NoError(t, err)
	d, err := cache.GetOrCreate(ctx, types.HardwareDeviceTypeCUDA, "")
	require.NoError(t, err)
	again, err := cache.GetOrCreate(ctx, types.HardwareDeviceTypeVAAPI, "/dev/dri/renderD128")
	require.NoError(t, err)

	require.NotSame(t, a, b)
	require.NotSame(t, a, c)
	require.NotSame(t, c, d)
	require.Same(t, a, again)
	require.Equal(t, 4, creator.callCount())
	require.Equal(t, uint32(0), c.Key.NameHash)
	require.Len(t, cache.Devices(ctx), 4)
	require.Same(t, b, cache.Lookup(ctx, types.HardwareDeviceTypeVAAPI, "/dev/dri/renderD129"))
	require.Nil(t, cache.Lookup(ctx, types.HardwareDeviceTypeQSV, ""))
}

func TestCacheRetriesFailedCreation(t *testing.T) {
	ctx := context.Background()
	creator := &fakeCreator{
		failFor:  map[types.HardwareDeviceType]error{types.HardwareDeviceTypeCUDA: fmt.Errorf("no CUDA-capable device is detected")},
		failOnce: true,
	}
	cache := NewCache(creator)

	_, err := cache.GetOrCreate(ctx, types.HardwareDeviceTypeCUDA, "")
	require.Error(t, err)
	var exhausted types.ErrResourceExhausted
	require.True(t, errors.As(err, &exhausted))

	dev, err := cache.GetOrCreate(ctx, types.HardwareDeviceTypeCUDA, "")
	require.NoError(t, err)
	require.NotNil(t, dev)
	require.Equal(t, 2, creator.callCount())
}

func TestCacheWithoutCreator(t *testing.T) {
	_, err := NewCache(nil).GetOrCreate(context.Background(), types.HardwareDeviceTypeCUDA, "")
	require.Error(t, err)

	_, err = NewCache(&fakeCreator{}).GetOrCreate(context.Background(), types.HardwareDeviceTypeNone, "")
	require.Error(t, err)
}

func TestDeviceReferences(t *testing.T) {
	ctx := context.Background()
	cache := NewCache(&fakeCreator{})
	dev, err := cache.GetOrCreate(ctx, types.HardwareDeviceTypeCUDA, "")
	require.NoError(t, err)
	require.Equal(t, int64(1), dev.RefCount())

	a := dev.AddRef()
	b := dev.AddRef()
	require.Equal(t, int64(3), dev.RefCount())
	a.Release()
	a.Release()
	require.Equal(t, int64(2), dev.RefCount())
	b.Release()
	require.Equal(t, int64(1), dev.RefCount())
	require.Same(t, dev, b.Device())
}

func TestDeviceConstraintsAreCached(t *testing.T) {
	ctx := context.Background()
	cache := NewCache(CreatorFunc(func(
		_ context.Context,
		deviceType types.HardwareDeviceType,
		deviceName types.HardwareDeviceName,
	) (NativeContext, error) {
		return &fakeNative{
			deviceType:     deviceType,
			name:           deviceName,
			constraintsErr: fmt.Errorf("transient"),
		}, nil
	}))
	dev, err := cache.GetOrCreate(ctx, types.HardwareDeviceTypeCUDA, "0")
	require.NoError(t, err)
	native := dev.Native().(*fakeNative)

	_, err = dev.Constraints(ctx)
	require.Error(t, err)

	c0, err := dev.Constraints(ctx)
	require.NoError(t, err)
	c1, err := dev.Constraints(ctx)
	require.NoError(t, err)
	require.Same(t, c0, c1)
	require.Equal(t, 2, native.constraintsCalls)
	require.True(t, c0.SupportsSize(1920, 1080))
	require.False(t, c0.SupportsSize(8, 8))
	require.False(t, c0.SupportsSize(16384, 1080))
}

func TestDeviceDownloadFormat(t *testing.T) {
	ctx := context.Background()
	dev, err := NewCache(&fakeCreator{}).GetOrCreate(ctx, types.HardwareDeviceTypeCUDA, "")
	require.NoError(t, err)

	pf, ok := dev.DownloadFormat(ctx, types.PixelFormatYUV420P, 1920, 1080)
	require.True(t, ok)
	require.Equal(t, types.PixelFormatNV12, pf)

	pf, ok = dev.DownloadFormat(ctx, types.PixelFormatYUV420P10LE, 1920, 1080)
	require.True(t, ok)
	require.Equal(t, types.PixelFormatP010LE, pf)

	pf, ok = dev.DownloadFormat(ctx, types.PixelFormatUnknown, 1920, 1080)
	require.True(t, ok)
	require.Equal(t, types.PixelFormatNV12, pf)

	_, ok = dev.DownloadFormat(ctx, types.PixelFormatYUV420P, 8, 8)
	require.False(t, ok)

	broken, err := NewCache(CreatorFunc(func(
		_ context.Context,
		deviceType types.HardwareDeviceType,
		deviceName types.HardwareDeviceName,
	) (NativeContext, error) {
		return &fakeNative{constraintsErr: fmt.Errorf("unsupported")}, nil
	})).GetOrCreate(ctx, types.HardwareDeviceTypeVAAPI, "")
	require.NoError(t, err)
	_, ok = broken.DownloadFormat(ctx, types.PixelFormatYUV420P, 1920, 1080)
	require.False(t, ok)
}

func TestInitializeDecoding(t *testing.T) {
	ctx := context.Background()
	configs := []HardwareConfig{
		{DeviceType: types.HardwareDeviceTypeNone, PixelFormat: types.PixelFormatYUV420P, Methods: ConfigMethodDeviceContext},
		{DeviceType: types.HardwareDeviceTypeVDPAU, PixelFormat: types.PixelFormatVDPAU, Methods: ConfigMethodDeviceContext},
		{DeviceType: types.HardwareDeviceTypeQSV, PixelFormat: types.PixelFormatQSV, Methods: ConfigMethodFramesContext},
		{DeviceType: types.HardwareDeviceTypeCUDA, PixelFormat: types.PixelFormatCUDA, Methods: ConfigMethodDeviceContext | ConfigMethodFramesContext},
	}

	t.Run("first_usable", func(t *testing.T) {
		creator := &fakeCreator{failFor: map[types.HardwareDeviceType]error{
			types.HardwareDeviceTypeVDPAU: fmt.Errorf("no VDPAU"),
		}}
		cache := NewCache(creator)

		var attached []*Reference
		sel := cache.InitializeDecoding(ctx, 0, configs, "", func(_ context.Context, ref *Reference, cfg HardwareConfig) error {
			attached = append(attached, ref)
			return nil
		})
		require.False(t, sel.IsNone())
		require.Equal(t, 3, sel.ConfigIndex)
		require.Equal(t, types.HardwareDeviceTypeCUDA, sel.DeviceType)
		require.Equal(t, types.PixelFormatCUDA, sel.PixelFormat)
		require.Len(t, attached, 1)
		require.Same(t, attached[0], sel.Reference)
		require.Equal(t, int64(2), sel.Reference.Device().RefCount())
	})

	t.Run("start_index", func(t *testing.T) {
		cache := NewCache(&fakeCreator{})
		sel := cache.InitializeDecoding(ctx, 2, configs, "", nil)
		require.Equal(t, 3, sel.ConfigIndex)
	})

	t.Run("attach_failure_moves_on", func(t *testing.T) {
		cache := NewCache(&fakeCreator{})
		sel := cache.InitializeDecoding(ctx, 0, configs, "", func(_ context.Context, ref *Reference, cfg HardwareConfig) error {
			if cfg.DeviceType == types.HardwareDeviceTypeVDPAU {
				return fmt.Errorf("refused")
			}
			return nil
		})
		require.Equal(t, types.HardwareDeviceTypeCUDA, sel.DeviceType)
		vdpau := cache.Lookup(ctx, types.HardwareDeviceTypeVDPAU, "")
		require.NotNil(t, vdpau)
		require.Equal(t, int64(1), vdpau.RefCount())
	})

	t.Run("no_device", func(t *testing.T) {
		cache := NewCache(&fakeCreator{failFor: map[types.HardwareDeviceType]error{
			types.HardwareDeviceTypeVDPAU: fmt.Errorf("no VDPAU"),
			types.HardwareDeviceTypeCUDA:  fmt.Errorf("no CUDA"),
		}})
		sel := cache.InitializeDecoding(ctx, 0, configs, "", nil)
		require.True(t, sel.IsNone())
		require.Nil(t, sel.Reference)
		require.Equal(t, -1, sel.ConfigIndex)
	})

	t.Run("no_configs", func(t *testing.T) {
		sel := NewCache(&fakeCreator{}).InitializeDecoding(ctx, 0, nil, "", nil)
		require.True(t, sel.IsNone())
	})
}

func TestInitializeDecodingWithOptions(t *testing.T) {
	ctx := context.Background()
	configs := []HardwareConfig{
		{DeviceType: types.HardwareDeviceTypeVAAPI, PixelFormat: types.PixelFormatVAAPI, Methods: ConfigMethodDeviceContext},
		{DeviceType: types.HardwareDeviceTypeCUDA, PixelFormat: types.PixelFormatCUDA, Methods: ConfigMethodDeviceContext},
	}

	t.Run("no_gpu", func(t *testing.T) {
		creator := &fakeCreator{}
		sel := NewCache(creator).InitializeDecodingWithOptions(ctx, types.DecoderOptions{}, configs, nil)
		require.True(t, sel.IsNone())
		require.Zero(t, creator.callCount())
	})

	t.Run("default_device", func(t *testing.T) {
		creator := &fakeCreator{}
		cache := NewCache(creator)
		sel := cache.InitializeDecodingWithOptions(ctx, types.DecoderOptions{}.WithGPUIndex(0), configs, nil)
		require.Equal(t, types.HardwareDeviceTypeVAAPI, sel.DeviceType)
		require.Equal(t, []types.HardwareDeviceName{""}, creator.names)
		require.NotNil(t, cache.Lookup(ctx, types.HardwareDeviceTypeVAAPI, ""))
	})

	t.Run("gpu_index_is_start_index", func(t *testing.T) {
		creator := &fakeCreator{}
		sel := NewCache(creator).InitializeDecodingWithOptions(ctx, types.DecoderOptions{}.WithGPUIndex(1), configs, nil)
		require.Equal(t, 1, sel.ConfigIndex)
		require.Equal(t, types.HardwareDeviceTypeCUDA, sel.DeviceType)
		require.Equal(t, []types.HardwareDeviceName{""}, creator.names)
	})

	t.Run("hwaccel_device", func(t *testing.T) {
		creator := &fakeCreator{}
		opts := types.DecoderOptions{}.
			WithGPUIndex(0).
			WithCustomOption(types.OptionHWAccelDevice, "/dev/dri/renderD129")
		sel := NewCache(creator).InitializeDecodingWithOptions(ctx, opts, configs, nil)
		require.Equal(t, types.HardwareDeviceName("/dev/dri/renderD129"), sel.DeviceName)
		require.Equal(t, []types.HardwareDeviceName{"/dev/dri/renderD129"}, creator.names)
	})
}

func TestFindBestMatchingPixelFormat(t *testing.T) {
	for _, tc := range []struct {
		name      string
		want      types.PixelFormat
		supported []types.PixelFormat
		expected  types.PixelFormat
		ok        bool
	}{
		{"empty", types.PixelFormatNV12, nil, types.PixelFormatUnknown, false},
		{"exact", types.PixelFormatNV12, []types.PixelFormat{types.PixelFormatYUV420P, types.PixelFormatNV12}, types.PixelFormatNV12, true},
		{"nv12_to_planar", types.PixelFormatNV12, []types.PixelFormat{types.PixelFormatP010LE, types.PixelFormatYUV420P}, types.PixelFormatYUV420P, true},
		{"planar_to_nv12", types.PixelFormatYUV420P, []types.PixelFormat{types.PixelFormatP010LE, types.PixelFormatNV12}, types.PixelFormatNV12, true},
		{"planar_to_nv21", types.PixelFormatYUV420P, []types.PixelFormat{types.PixelFormatNV21}, types.PixelFormatNV21, true},
		{"p010", types.PixelFormatYUV420P10LE, []types.PixelFormat{types.PixelFormatNV12, types.PixelFormatP010LE}, types.PixelFormatP010LE, true},
		{"p210", types.PixelFormatP210LE, []types.PixelFormat{types.PixelFormatYUV422P10LE}, types.PixelFormatYUV422P10LE, true},
		{"first_supported", types.PixelFormatRgbaU8, []types.PixelFormat{types.PixelFormatP010LE, types.PixelFormatNV12}, types.PixelFormatP010LE, true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			pf, ok := FindBestMatchingPixelFormat(tc.want, tc.supported)
			require.Equal(t, tc.ok, ok)
			require.Equal(t, tc.expected, pf)
		})
	}
}
