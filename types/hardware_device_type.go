// Package types provides the value types shared by the decoder backends.
package types

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

type HardwareDeviceType int

const (
	// the constants are copied from libav's enum AVHWDeviceType:
	HardwareDeviceTypeCUDA         = HardwareDeviceType(0x2)
	HardwareDeviceTypeD3D11VA      = HardwareDeviceType(0x7)
	HardwareDeviceTypeDRM          = HardwareDeviceType(0x8)
	HardwareDeviceTypeDXVA2        = HardwareDeviceType(0x4)
	HardwareDeviceTypeMediaCodec   = HardwareDeviceType(0xa)
	HardwareDeviceTypeNone         = HardwareDeviceType(0x0)
	HardwareDeviceTypeOpenCL       = HardwareDeviceType(0x9)
	HardwareDeviceTypeQSV          = HardwareDeviceType(0x5)
	HardwareDeviceTypeVAAPI        = HardwareDeviceType(0x3)
	HardwareDeviceTypeVDPAU        = HardwareDeviceType(0x1)
	HardwareDeviceTypeVideoToolbox = HardwareDeviceType(0x6)
	HardwareDeviceTypeVulkan       = HardwareDeviceType(0xb)

	endOfHardwareDeviceType = HardwareDeviceType(0xc)
)

func (t HardwareDeviceType) String() string {
	switch t {
	case HardwareDeviceTypeNone:
		return "none"
	case HardwareDeviceTypeCUDA:
		return "cuda"
	case HardwareDeviceTypeDRM:
		return "drm"
	case HardwareDeviceTypeDXVA2:
		return "dxva2"
	case HardwareDeviceTypeD3D11VA:
		return "d3d11va"
	case HardwareDeviceTypeOpenCL:
		return "opencl"
	case HardwareDeviceTypeQSV:
		return "qsv"
	case HardwareDeviceTypeVAAPI:
		return "vaapi"
	case HardwareDeviceTypeVDPAU:
		return "vdpau"
	case HardwareDeviceTypeVideoToolbox:
		return "videotoolbox"
	case HardwareDeviceTypeMediaCodec:
		return "mediacodec"
	case HardwareDeviceTypeVulkan:
		return "vulkan"
	}
	return fmt.Sprintf("unknown_%X", int64(t))
}

// IsNone reports whether t means "decode in software".
func (t HardwareDeviceType) IsNone() bool {
	return t == HardwareDeviceTypeNone
}

// HardwareDeviceTypeFromString returns -1 if s names no known device type.
func HardwareDeviceTypeFromString(s string) HardwareDeviceType {
	s = strings.Trim(strings.ToLower(s), " \"\n\r\t")
	for candidate := range endOfHardwareDeviceType {
		if s == candidate.String() {
			return candidate
		}
	}
	return -1
}

func (t *HardwareDeviceType) UnmarshalYAML(value *yaml.Node) error {
	v := HardwareDeviceTypeFromString(value.Value)
	if v < 0 {
		return fmt.Errorf("unknown hardware device type: '%s'", value.Value)
	}
	*t = v
	return nil
}

func (t HardwareDeviceType) MarshalYAML() (any, error) {
	return t.String(), nil
}
