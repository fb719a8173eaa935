package types

import (
	"hash/crc32"
)

// HardwareDeviceName is the engine-specific device selector (for example
// "/dev/dri/renderD128" or a CUDA ordinal); empty means "default device".
type HardwareDeviceName string

// Hash is the CRC-32 (IEEE) of the name; the empty name hashes to 0 so that
// "no name" and "default device" share one identity.
func (n HardwareDeviceName) Hash() uint32 {
	if n == "" {
		return 0
	}
	return crc32.ChecksumIEEE([]byte(n))
}
