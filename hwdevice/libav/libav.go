// Package libav backs the hardware device cache with libav device
// contexts. Importing it installs a Creator into hwdevice.Default.
package libav

import (
	"context"
	"fmt"

	"github.com/asticode/go-astiav"
	"github.com/xaionaro-go/avdecoder/hwdevice"
	"github.com/xaionaro-go/avdecoder/logger"
	"github.com/xaionaro-go/avdecoder/types"
)

func init() {
	hwdevice.SetDefaultCreator(Creator{})
}

// DeviceContext is a libav AVHWDeviceContext held by the cache.
type DeviceContext struct {
	*astiav.HardwareDeviceContext
}

var _ hwdevice.NativeContext = (*DeviceContext)(nil)

func (c *DeviceContext) Constraints(ctx context.Context) (*hwdevice.Constraints, error) {
	constraints := c.HardwareDeviceContext.HardwareFramesConstraints()
	if constraints == nil {
		return nil, fmt.Errorf("libav returned no frames constraints")
	}
	defer constraints.Free()

	result := &hwdevice.Constraints{
		MinWidth:  uint32(constraints.MinWidth()),
		MinHeight: uint32(constraints.MinHeight()),
		MaxWidth:  uint32(constraints.MaxWidth()),
		MaxHeight: uint32(constraints.MaxHeight()),
	}
	for _, pf := range constraints.ValidHardwarePixelFormats() {
		result.HardwarePixelFormats = append(result.HardwarePixelFormats, PixelFormatFromAstiav(pf))
	}
	for _, pf := range constraints.ValidSoftwarePixelFormats() {
		result.SoftwarePixelFormats = append(result.SoftwarePixelFormats, PixelFormatFromAstiav(pf))
	}
	logger.Debugf(ctx, "device constraints: %#+v", result)
	return result, nil
}

// Creator creates libav device contexts. Options are passed to
// av_hwdevice_ctx_create.
type Creator struct {
	Options types.DictionaryItems
	Flags   int
}

var _ hwdevice.Creator = Creator{}

func (c Creator) Create(
	ctx context.Context,
	deviceType types.HardwareDeviceType,
	deviceName types.HardwareDeviceName,
) (_ret hwdevice.NativeContext, _err error) {
	logger.Tracef(ctx, "Create(ctx, %s, '%s')", deviceType, deviceName)
	defer func() { logger.Tracef(ctx, "/Create(ctx, %s, '%s'): %v", deviceType, deviceName, _err) }()

	var options *astiav.Dictionary
	if len(c.Options) > 0 {
		options = astiav.NewDictionary()
		defer options.Free()
		for _, opt := range c.Options {
			logger.Debugf(ctx, "hwdevice.Dictionary['%s'] = '%s'", opt.Key, opt.Value)
			options.Set(opt.Key, opt.Value, 0)
		}
	}

	hwctx, err := astiav.CreateHardwareDeviceContext(
		astiav.HardwareDeviceType(deviceType),
		string(deviceName),
		options,
		c.Flags,
	)
	if err != nil {
		return nil, fmt.Errorf("unable to create hardware (%s:%s) device context: %w", deviceType, deviceName, err)
	}
	logger.Tracef(ctx, "HardwareDeviceContext: %p", hwctx)
	return &DeviceContext{HardwareDeviceContext: hwctx}, nil
}

// HardwareConfigs lists the hardware setups the codec supports, in libav
// preference order.
func HardwareConfigs(codec *astiav.Codec) []hwdevice.HardwareConfig {
	var result []hwdevice.HardwareConfig
	for _, cfg := range codec.HardwareConfigs() {
		var methods hwdevice.ConfigMethod
		flags := cfg.MethodFlags()
		if flags.Has(astiav.CodecHardwareConfigMethodFlagHwDeviceCtx) {
			methods |= hwdevice.ConfigMethodDeviceContext
		}
		if flags.Has(astiav.CodecHardwareConfigMethodFlagHwFramesCtx) {
			methods |= hwdevice.ConfigMethodFramesContext
		}
		if flags.Has(astiav.CodecHardwareConfigMethodFlagInternal) {
			methods |= hwdevice.ConfigMethodInternal
		}
		if flags.Has(astiav.CodecHardwareConfigMethodFlagAdHoc) {
			methods |= hwdevice.ConfigMethodAdHoc
		}
		result = append(result, hwdevice.HardwareConfig{
			DeviceType:  types.HardwareDeviceType(cfg.HardwareDeviceType()),
			PixelFormat: PixelFormatFromAstiav(cfg.PixelFormat()),
			Methods:     methods,
		})
	}
	return result
}

// AttachToCodecContext returns the hwdevice.AttachFunc that gives the
// codec context its own reference to the device and makes libav pick the
// hardware pixel format of the selected config.
func AttachToCodecContext(codecContext *astiav.CodecContext) hwdevice.AttachFunc {
	return func(
		ctx context.Context,
		ref *hwdevice.Reference,
		cfg hwdevice.HardwareConfig,
	) error {
		devCtx, ok := ref.Native().(*DeviceContext)
		if !ok {
			return fmt.Errorf("device %s is not a libav device (%T)", ref.Device(), ref.Native())
		}
		hwPixFmt := PixelFormatToAstiav(cfg.PixelFormat)
		if hwPixFmt == astiav.PixelFormatNone {
			return fmt.Errorf("pixel format %s has no libav counterpart", cfg.PixelFormat)
		}

		codecContext.SetHardwareDeviceContext(devCtx.HardwareDeviceContext)
		codecContext.SetPixelFormatCallback(func(pfs []astiav.PixelFormat) astiav.PixelFormat {
			for _, pf := range pfs {
				if pf == hwPixFmt {
					return pf
				}
			}
			if len(pfs) == 0 {
				return astiav.PixelFormatNone
			}
			logger.Errorf(ctx, "unable to find appropriate pixel format, falling back to %s", pfs[0])
			return pfs[0]
		})
		return nil
	}
}

func PixelFormatFromAstiav(pf astiav.PixelFormat) types.PixelFormat {
	if pf == astiav.PixelFormatNone {
		return types.PixelFormatUnknown
	}
	return types.PixelFormatFromLibavName(pf.String())
}

func PixelFormatToAstiav(pf types.PixelFormat) astiav.PixelFormat {
	name := pf.LibavName()
	if name == "" {
		return astiav.PixelFormatNone
	}
	return astiav.FindPixelFormatByName(name)
}
