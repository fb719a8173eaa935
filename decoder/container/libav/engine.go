// Package libav runs the container backend on libav (through go-astiav).
// Importing it registers the backend as the fallback for every input no
// raw-camera backend claims.
package libav

import (
	"context"
	"errors"
	"fmt"

	"github.com/asticode/go-astiav"
	"github.com/xaionaro-go/avdecoder/decoder"
	"github.com/xaionaro-go/avdecoder/decoder/container"
	_ "github.com/xaionaro-go/avdecoder/hwdevice/libav"
	"github.com/xaionaro-go/avdecoder/types"
)

const engineName = "libav"

func init() {
	decoder.Register(container.Factory{Engine: Engine{}})
}

type Engine struct{}

var _ container.Engine = Engine{}

func (Engine) String() string {
	return engineName
}

func (Engine) OpenDemuxer(
	ctx context.Context,
	params decoder.OpenParams,
) (container.Demuxer, error) {
	return NewDemuxer(ctx, params)
}

func (Engine) OpenStreamDecoder(
	ctx context.Context,
	demuxer container.Demuxer,
	stream *types.Stream,
	opts types.DecoderOptions,
) (container.StreamDecoder, error) {
	d, ok := demuxer.(*Demuxer)
	if !ok {
		return nil, fmt.Errorf("expected a libav demuxer, got %T", demuxer)
	}
	return NewStreamDecoder(ctx, d, stream, opts)
}

// engineError keeps the libav error code of err, if it has one.
func engineError(op string, err error) error {
	result := types.ErrEngine{
		Engine: engineName,
		Op:     op,
		Err:    err,
	}
	var avErr astiav.Error
	if errors.As(err, &avErr) {
		result.Code = int(avErr)
	}
	return result
}
