package types

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDecoderOptions(t *testing.T) {
	opts, err := LoadDecoderOptions(strings.NewReader(`
gpu_index: 1
custom_options:
  - key: decode_resolution
    value: full
  - key: output_format
    value: rgbaf16
  - key: decode_resolution
    value: half
`))
	require.NoError(t, err)
	require.NotNil(t, opts.GPUIndex)
	require.Equal(t, 1, *opts.GPUIndex)
	require.Equal(t, DictionaryItems{
		{Key: OptionOutputFormat, Value: "rgbaf16"},
		{Key: OptionDecodeResolution, Value: "half"},
	}, opts.CustomOptions)
}

func TestLoadDecoderOptionsEmpty(t *testing.T) {
	opts, err := LoadDecoderOptions(strings.NewReader(""))
	require.NoError(t, err)
	require.Nil(t, opts.GPUIndex)
	require.Zero(t, opts.GPUIndexOrZero())
	require.False(t, opts.GPU().IsSet())
}

func TestLoadDecoderOptionsInvalid(t *testing.T) {
	_, err := LoadDecoderOptions(strings.NewReader("gpu_index: [1, 2]"))
	require.Error(t, err)
}

func TestDecoderOptionsWith(t *testing.T) {
	base := DecoderOptions{}
	opts := base.WithGPUIndex(2).WithCustomOption(OptionFilename, "clip.braw")
	require.Nil(t, base.GPUIndex)
	require.Empty(t, base.CustomOptions)
	require.Equal(t, 2, opts.GPUIndexOrZero())
	require.True(t, opts.GPU().IsSet())
	require.Equal(t, 2, opts.GPU().Get())
	v, ok := opts.CustomOptions.Get(OptionFilename)
	require.True(t, ok)
	require.Equal(t, "clip.braw", v)
}
