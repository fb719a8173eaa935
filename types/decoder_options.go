package types

import (
	"fmt"
	"io"
	"strconv"

	"github.com/xaionaro-go/typing"
	"gopkg.in/yaml.v3"
)

// Well-known custom option keys.
const (
	OptionFilename         = "filename"
	OptionHWAccelDevice    = "hwaccel_device"
	OptionDecodeResolution = "decode_resolution"
	OptionOutputFormat     = "output_format"
)

// DecoderOptions configures a decoder at open time.
type DecoderOptions struct {
	// GPUIndex enables hardware decoding on the N-th suitable device; nil
	// means decode on the CPU.
	GPUIndex *int `yaml:"gpu_index,omitempty"`

	// CustomOptions are passed to the backend; each backend picks the keys
	// it understands (the container backend forwards them to libav).
	CustomOptions DictionaryItems `yaml:"custom_options,omitempty"`
}

func (opts DecoderOptions) WithGPUIndex(idx int) DecoderOptions {
	opts.GPUIndex = &idx
	return opts
}

func (opts DecoderOptions) WithCustomOption(key, value string) DecoderOptions {
	opts.CustomOptions = opts.CustomOptions.With(key, value)
	return opts
}

// GPU is GPUIndex as an optional value.
func (opts DecoderOptions) GPU() typing.Optional[int] {
	if opts.GPUIndex == nil {
		return typing.Optional[int]{}
	}
	return typing.Opt(*opts.GPUIndex)
}

// GPUIndexOrZero is the GPU ordinal to use when the backend must pick a
// device anyway (for example the R3D SDK picks a CUDA device even for CPU
// output).
func (opts DecoderOptions) GPUIndexOrZero() int {
	if opts.GPUIndex == nil {
		return 0
	}
	return *opts.GPUIndex
}

func (opts DecoderOptions) String() string {
	gpu := "none"
	if opts.GPUIndex != nil {
		gpu = strconv.Itoa(*opts.GPUIndex)
	}
	return fmt.Sprintf("gpu_index:%s, custom_options:%v", gpu, opts.CustomOptions)
}

// LoadDecoderOptions parses options from YAML, for example:
//
//	gpu_index: 0
//	custom_options:
//	  - key: decode_resolution
//	    value: half
func LoadDecoderOptions(r io.Reader) (DecoderOptions, error) {
	var opts DecoderOptions
	if err := yaml.NewDecoder(r).Decode(&opts); err != nil {
		if err == io.EOF {
			return opts, nil
		}
		return DecoderOptions{}, fmt.Errorf("unable to parse the decoder options: %w", err)
	}
	opts.CustomOptions = opts.CustomOptions.Deduplicate()
	return opts, nil
}
