package hwdevice

import (
	"context"
	"fmt"

	"github.com/xaionaro-go/avdecoder/logger"
	"github.com/xaionaro-go/avdecoder/types"
)

// ConfigMethod is a bitmask of the ways a codec may use a device.
type ConfigMethod uint

const (
	ConfigMethodDeviceContext = ConfigMethod(1 << iota)
	ConfigMethodFramesContext
	ConfigMethodInternal
	ConfigMethodAdHoc
)

func (m ConfigMethod) Has(flag ConfigMethod) bool {
	return m&flag != 0
}

// HardwareConfig is one entry of a codec's list of hardware setups.
type HardwareConfig struct {
	DeviceType  types.HardwareDeviceType
	PixelFormat types.PixelFormat
	Methods     ConfigMethod
}

func (cfg HardwareConfig) String() string {
	return fmt.Sprintf("%s/%s/%b", cfg.DeviceType, cfg.PixelFormat, cfg.Methods)
}

// Selection is the outcome of InitializeDecoding.
type Selection struct {
	ConfigIndex int
	DeviceType  types.HardwareDeviceType
	DeviceName  types.HardwareDeviceName
	PixelFormat types.PixelFormat

	// Reference is attached to the decode context; it is nil if no device
	// was selected.
	Reference *Reference
}

// IsNone reports whether decoding falls back to software.
func (s Selection) IsNone() bool {
	return s.DeviceType.IsNone()
}

func (s Selection) String() string {
	if s.IsNone() {
		return "software"
	}
	return fmt.Sprintf("#%d:%s:'%s'/%s", s.ConfigIndex, s.DeviceType, s.DeviceName, s.PixelFormat)
}

// AttachFunc gives the decode context its reference to the device.
type AttachFunc func(ctx context.Context, ref *Reference, cfg HardwareConfig) error

// InitializeDecoding walks configs starting at startIndex and attaches the
// first device that can be obtained from the cache (or created). Entries
// of type "none" and entries that do not accept a device context are
// skipped. If no device is obtained the result is a Selection of type
// "none": the caller decodes in software.
func (c *Cache) InitializeDecoding(
	ctx context.Context,
	startIndex int,
	configs []HardwareConfig,
	deviceName types.HardwareDeviceName,
	attach AttachFunc,
) (_ret Selection) {
	logger.Tracef(ctx, "InitializeDecoding(ctx, %d, %v, '%s')", startIndex, configs, deviceName)
	defer func() { logger.Tracef(ctx, "/InitializeDecoding(ctx, %d, %v, '%s'): %s", startIndex, configs, deviceName, _ret) }()

	if startIndex < 0 {
		startIndex = 0
	}
	for idx := startIndex; idx < len(configs); idx++ {
		cfg := configs[idx]
		if cfg.DeviceType.IsNone() {
			continue
		}
		if !cfg.Methods.Has(ConfigMethodDeviceContext) {
			logger.Tracef(ctx, "skipping config %s: no device context support", cfg)
			continue
		}

		dev, err := c.GetOrCreate(ctx, cfg.DeviceType, deviceName)
		if err != nil {
			logger.Debugf(ctx, "unable to get device for config #%d %s: %v", idx, cfg, err)
			continue
		}

		ref := dev.AddRef()
		if attach != nil {
			if err := attach(ctx, ref, cfg); err != nil {
				logger.Warnf(ctx, "unable to attach device %s: %v", dev, err)
				ref.Release()
				continue
			}
		}
		return Selection{
			ConfigIndex: idx,
			DeviceType:  cfg.DeviceType,
			DeviceName:  deviceName,
			PixelFormat: cfg.PixelFormat,
			Reference:   ref,
		}
	}

	logger.Debugf(ctx, "no hardware device is available, decoding in software")
	return Selection{
		ConfigIndex: -1,
		DeviceType:  types.HardwareDeviceTypeNone,
		DeviceName:  deviceName,
	}
}

// InitializeDecodingWithOptions is InitializeDecoding driven by decoder
// options: the GPU index is the config index to start from, and the
// device is the "hwaccel_device" option if set, otherwise the default
// device of each type. Without a GPU index nothing is attached.
func (c *Cache) InitializeDecodingWithOptions(
	ctx context.Context,
	opts types.DecoderOptions,
	configs []HardwareConfig,
	attach AttachFunc,
) Selection {
	gpu := opts.GPU()
	if !gpu.IsSet() {
		return Selection{
			ConfigIndex: -1,
			DeviceType:  types.HardwareDeviceTypeNone,
		}
	}
	deviceName, _ := opts.CustomOptions.Get(types.OptionHWAccelDevice)
	return c.InitializeDecoding(ctx, gpu.Get(), configs, types.HardwareDeviceName(deviceName), attach)
}
