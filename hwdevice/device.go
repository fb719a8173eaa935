package hwdevice

import (
	"context"
	"fmt"

	"github.com/go-ng/xatomic"
	"github.com/xaionaro-go/avdecoder/logger"
	"github.com/xaionaro-go/avdecoder/types"
	"github.com/xaionaro-go/xsync"
	"go.uber.org/atomic"
)

// Key is the identity of a cached device. NameHash is
// types.HardwareDeviceName.Hash, so the empty name (the default device of
// the type) has NameHash 0.
type Key struct {
	Type     types.HardwareDeviceType
	NameHash uint32
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%08x", k.Type, k.NameHash)
}

func NewKey(t types.HardwareDeviceType, name types.HardwareDeviceName) Key {
	return Key{
		Type:     t,
		NameHash: name.Hash(),
	}
}

// Constraints is what the device is able to produce.
type Constraints struct {
	HardwarePixelFormats []types.PixelFormat
	SoftwarePixelFormats []types.PixelFormat
	MinWidth             uint32
	MinHeight            uint32
	MaxWidth             uint32
	MaxHeight            uint32
}

// SupportsSize reports whether a frame of the given size fits into the
// bounds; a zero maximum means "unbounded".
func (c *Constraints) SupportsSize(width, height uint32) bool {
	if width < c.MinWidth || height < c.MinHeight {
		return false
	}
	if c.MaxWidth != 0 && width > c.MaxWidth {
		return false
	}
	if c.MaxHeight != 0 && height > c.MaxHeight {
		return false
	}
	return true
}

// NativeContext is an engine device context (for libav: an
// AVHWDeviceContext).
type NativeContext interface {
	Constraints(ctx context.Context) (*Constraints, error)
	Free()
}

// Device is a cached native device context. It is never freed while the
// cache is alive; consumers hold References to it.
type Device struct {
	Key  Key
	Type types.HardwareDeviceType
	Name types.HardwareDeviceName

	native   NativeContext
	refCount atomic.Int64

	constraintsLocker xsync.Mutex
	constraints       *Constraints
}

func newDevice(
	t types.HardwareDeviceType,
	name types.HardwareDeviceName,
	native NativeContext,
) *Device {
	d := &Device{
		Key:    NewKey(t, name),
		Type:   t,
		Name:   name,
		native: native,
	}
	// the cache's own reference
	d.refCount.Store(1)
	return d
}

func (d *Device) String() string {
	if d.Name == "" {
		return d.Type.String()
	}
	return fmt.Sprintf("%s:%s", d.Type, d.Name)
}

func (d *Device) Native() NativeContext {
	return d.native
}

// RefCount includes the reference held by the cache itself.
func (d *Device) RefCount() int64 {
	return d.refCount.Load()
}

// AddRef takes a new reference to the device; release it with
// Reference.Release once the consumer stops using the device.
func (d *Device) AddRef() *Reference {
	d.refCount.Inc()
	return &Reference{device: d}
}

// Constraints queries the native context once and caches the result.
// Failures are not cached.
func (d *Device) Constraints(ctx context.Context) (_ret *Constraints, _err error) {
	if c := xatomic.LoadPointer(&d.constraints); c != nil {
		return c, nil
	}
	logger.Tracef(ctx, "Constraints[%s]", d)
	defer func() { logger.Tracef(ctx, "/Constraints[%s]: %v", d, _err) }()

	return xsync.DoR2(ctx, &d.constraintsLocker, func() (*Constraints, error) {
		if c := xatomic.LoadPointer(&d.constraints); c != nil {
			return c, nil
		}
		c, err := d.native.Constraints(ctx)
		if err != nil {
			return nil, fmt.Errorf("unable to query the constraints of device %s: %w", d, err)
		}
		xatomic.StorePointer(&d.constraints, c)
		return c, nil
	})
}

// DownloadFormat picks the RAM pixel format for a width x height surface
// of this device, preferring want. The result is false if the device
// reports nothing usable, and the engine should pick on its own.
func (d *Device) DownloadFormat(
	ctx context.Context,
	want types.PixelFormat,
	width, height uint32,
) (types.PixelFormat, bool) {
	c, err := d.Constraints(ctx)
	if err != nil {
		logger.Debugf(ctx, "%v", err)
		return types.PixelFormatUnknown, false
	}
	if !c.SupportsSize(width, height) {
		logger.Debugf(ctx, "%dx%d is out of the bounds of %s", width, height, d)
		return types.PixelFormatUnknown, false
	}
	return FindBestMatchingPixelFormat(want, c.SoftwarePixelFormats)
}

// Reference is one consumer's claim on a Device.
type Reference struct {
	device   *Device
	released atomic.Bool
}

func (r *Reference) Device() *Device {
	return r.device
}

func (r *Reference) Native() NativeContext {
	return r.device.native
}

// Release drops the reference; it is idempotent.
func (r *Reference) Release() {
	if r.released.Swap(true) {
		return
	}
	r.device.refCount.Dec()
}
