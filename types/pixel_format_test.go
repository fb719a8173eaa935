package types

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestPixelFormatNames(t *testing.T) {
	for pf := PixelFormatUnknown + 1; pf < endOfPixelFormat; pf++ {
		t.Run(pf.String(), func(t *testing.T) {
			require.Equal(t, pf, PixelFormatFromString(pf.String()))
			if name := pf.LibavName(); name != "" {
				require.Equal(t, pf, PixelFormatFromLibavName(name))
			}
		})
	}
}

func TestPixelFormatFromLibavName(t *testing.T) {
	require.Equal(t, PixelFormatYUV420P, PixelFormatFromLibavName("yuvj420p"))
	require.Equal(t, PixelFormatBgraU8, PixelFormatFromLibavName("bgra"))
	require.Equal(t, PixelFormatUnknown, PixelFormatFromLibavName("gbrap12be"))
	require.Equal(t, PixelFormatUnknown, PixelFormatFromLibavName(""))
}

func TestPixelFormatIsHardware(t *testing.T) {
	for _, pf := range []PixelFormat{
		PixelFormatCUDA, PixelFormatDXVA2VLD, PixelFormatVDPAU, PixelFormatD3D11,
		PixelFormatD3D11VAVLD, PixelFormatVideoToolbox, PixelFormatMediaCodec,
		PixelFormatOpenCL, PixelFormatQSV, PixelFormatMMAL, PixelFormatVAAPI,
	} {
		require.True(t, pf.IsHardware(), pf.String())
	}
	for _, pf := range []PixelFormat{PixelFormatNV12, PixelFormatYUV420P, PixelFormatRgbaF32, PixelFormatUnknown} {
		require.False(t, pf.IsHardware(), pf.String())
	}
}

func TestPixelFormatYAML(t *testing.T) {
	var v struct {
		Format PixelFormat `yaml:"format"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("format: rgbaf16\n"), &v))
	require.Equal(t, PixelFormatRgbaF16, v.Format)
	require.Error(t, yaml.Unmarshal([]byte("format: nonsense\n"), &v))
}
