// Package hwdevice is the process-wide cache of hardware acceleration
// device contexts.
//
// A device context is created lazily on the first request for its
// (type, name) key and is kept until the process exits. Concurrent requests
// for the same key wait for a single native creation; requests for
// different keys do not block each other beyond the map lookup.
package hwdevice

import (
	"context"
	"fmt"

	"github.com/xaionaro-go/avdecoder/logger"
	"github.com/xaionaro-go/avdecoder/types"
	"github.com/xaionaro-go/xsync"
	"go.uber.org/atomic"
)

// Creator builds native device contexts for a Cache.
type Creator interface {
	Create(
		ctx context.Context,
		deviceType types.HardwareDeviceType,
		deviceName types.HardwareDeviceName,
	) (NativeContext, error)
}

type CreatorFunc func(
	ctx context.Context,
	deviceType types.HardwareDeviceType,
	deviceName types.HardwareDeviceName,
) (NativeContext, error)

func (fn CreatorFunc) Create(
	ctx context.Context,
	deviceType types.HardwareDeviceType,
	deviceName types.HardwareDeviceName,
) (NativeContext, error) {
	return fn(ctx, deviceType, deviceName)
}

type cacheEntry struct {
	locker xsync.Mutex
	device *Device
}

type Cache struct {
	locker  xsync.Mutex
	entries map[Key]*cacheEntry
	creator Creator

	createCount atomic.Uint64
}

func NewCache(creator Creator) *Cache {
	return &Cache{
		entries: map[Key]*cacheEntry{},
		creator: creator,
	}
}

var defaultCache = NewCache(nil)

// Default returns the process-wide cache. Its creator is installed by the
// engine package linked into the binary (see SetDefaultCreator).
func Default() *Cache {
	return defaultCache
}

// SetDefaultCreator installs the creator of the process-wide cache. Devices
// that were already created stay in the cache.
func SetDefaultCreator(creator Creator) {
	defaultCache.SetCreator(creator)
}

func (c *Cache) SetCreator(creator Creator) {
	c.locker.Do(context.Background(), func() {
		c.creator = creator
	})
}

// CreateCount is the number of successful native creations so far.
func (c *Cache) CreateCount() uint64 {
	return c.createCount.Load()
}

// GetOrCreate returns the cached device for (deviceType, deviceName),
// creating the native context on the first call for that key. A failed
// creation is not remembered: the next call tries again.
func (c *Cache) GetOrCreate(
	ctx context.Context,
	deviceType types.HardwareDeviceType,
	deviceName types.HardwareDeviceName,
) (_ret *Device, _err error) {
	logger.Tracef(ctx, "GetOrCreate(ctx, %s, '%s')", deviceType, deviceName)
	defer func() { logger.Tracef(ctx, "/GetOrCreate(ctx, %s, '%s'): %v %v", deviceType, deviceName, _ret, _err) }()

	if deviceType.IsNone() {
		return nil, fmt.Errorf("device type 'none' is not a hardware device")
	}

	key := NewKey(deviceType, deviceName)
	entry, creator := xsync.DoR2(ctx, &c.locker, func() (*cacheEntry, Creator) {
		entry := c.entries[key]
		if entry == nil {
			entry = &cacheEntry{}
			c.entries[key] = entry
		}
		return entry, c.creator
	})

	return xsync.DoR2(ctx, &entry.locker, func() (*Device, error) {
		if entry.device != nil {
			return entry.device, nil
		}
		if creator == nil {
			return nil, fmt.Errorf("no hardware device creator is registered")
		}
		native, err := creator.Create(ctx, deviceType, deviceName)
		if err != nil {
			return nil, types.ErrResourceExhausted{
				Resource: fmt.Sprintf("a hardware device %s:'%s'", deviceType, deviceName),
				Err:      err,
			}
		}
		c.createCount.Inc()
		entry.device = newDevice(deviceType, deviceName, native)
		logger.Debugf(ctx, "created hardware device %s", entry.device)
		return entry.device, nil
	})
}

// Lookup returns the device only if it was already created.
func (c *Cache) Lookup(
	ctx context.Context,
	deviceType types.HardwareDeviceType,
	deviceName types.HardwareDeviceName,
) *Device {
	entry := xsync.DoR1(ctx, &c.locker, func() *cacheEntry {
		return c.entries[NewKey(deviceType, deviceName)]
	})
	if entry == nil {
		return nil
	}
	return xsync.DoR1(ctx, &entry.locker, func() *Device {
		return entry.device
	})
}

// Devices returns every created device.
func (c *Cache) Devices(ctx context.Context) []*Device {
	entries := xsync.DoR1(ctx, &c.locker, func() []*cacheEntry {
		result := make([]*cacheEntry, 0, len(c.entries))
		for _, entry := range c.entries {
			result = append(result, entry)
		}
		return result
	})
	var result []*Device
	for _, entry := range entries {
		if dev := xsync.DoR1(ctx, &entry.locker, func() *Device { return entry.device }); dev != nil {
			result = append(result, dev)
		}
	}
	return result
}
