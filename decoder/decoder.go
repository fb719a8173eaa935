// Package decoder is the front controller of the module: it picks a
// backend for an input (by the file name, in priority order) and exposes
// every backend through the same pull interface.
//
// Backends are linked in by importing their packages (they register
// themselves in DefaultRegistry at init); the root package avdecoder
// imports all of them.
package decoder

import (
	"context"
	"fmt"
	"strings"

	"github.com/xaionaro-go/avdecoder/frame"
	"github.com/xaionaro-go/avdecoder/logger"
	"github.com/xaionaro-go/avdecoder/types"
	"github.com/xaionaro-go/xcontext"
	"github.com/xaionaro-go/xsync"
)

// Decoder is an opened input. Its methods are serialized; frames of one
// stream come out in decode order.
type Decoder struct {
	locker      xsync.Mutex
	backendName string
	backend     Backend
	isClosed    bool
}

// NewDecoder wraps an already opened backend.
func NewDecoder(backendName string, backend Backend) *Decoder {
	if backend == nil {
		backend = NullBackend{}
	}
	return &Decoder{
		backendName: backendName,
		backend:     backend,
	}
}

// Open opens the input with the backends of DefaultRegistry.
func Open(
	ctx context.Context,
	input Input,
	opts types.DecoderOptions,
) (*Decoder, error) {
	return DefaultRegistry().Open(ctx, input, opts)
}

// FileNameHint is the name used to choose a backend: the "filename"
// option, else the input's own name (the first name of a file list).
func FileNameHint(input Input, opts types.DecoderOptions) string {
	if filename, ok := opts.CustomOptions.Get(types.OptionFilename); ok {
		return filename
	}
	if input == nil {
		return ""
	}
	return input.Name()
}

func (r *Registry) Open(
	ctx context.Context,
	input Input,
	opts types.DecoderOptions,
) (_ret *Decoder, _err error) {
	logger.Tracef(ctx, "Open(ctx, %v, %s)", input, opts)
	defer func() { logger.Tracef(ctx, "/Open(ctx, %v, %s): %v", input, opts, _err) }()

	if input == nil {
		return nil, types.ErrUnsupportedInput{Input: "<nil>"}
	}

	hint := FileNameHint(input, opts)
	path := input.Name()
	if path == "" {
		path, _ = opts.CustomOptions.Get(types.OptionFilename)
	}

	if list, ok := input.(InputFileList); ok && len(list) == 1 {
		name := list.Name()
		if hint == "" {
			hint = name
		}
		input = list[name]
		logger.Debugf(ctx, "unwrapped the single-file list: %s", input)
	}

	f := r.Find(hint)
	if f == nil {
		return nil, types.ErrDecoderNotFound{Hint: hint}
	}
	logger.Debugf(ctx, "opening '%s' with backend %s", hint, f)

	backend, err := f.Open(ctx, OpenParams{
		Input:   input,
		Path:    path,
		Hint:    strings.ToLower(hint),
		Options: opts,
	})
	if err != nil {
		return nil, fmt.Errorf("unable to open '%s' with backend %s: %w", hint, f, err)
	}
	return NewDecoder(f.String(), backend), nil
}

func (d *Decoder) String() string {
	return d.backendName
}

func (d *Decoder) BackendName() string {
	return d.backendName
}

func (d *Decoder) Streams(ctx context.Context) []*types.Stream {
	return xsync.DoR1(ctx, &d.locker, func() []*types.Stream {
		return d.backend.Streams()
	})
}

// SetDecodeAll toggles decoding of every stream; it is meant to be called
// before the first NextFrame.
func (d *Decoder) SetDecodeAll(ctx context.Context, decode bool) {
	d.locker.Do(ctx, func() {
		for _, s := range d.backend.Streams() {
			s.Decode = decode
		}
	})
}

func (d *Decoder) Seek(
	ctx context.Context,
	timestampUS int64,
) (_ret bool, _err error) {
	logger.Tracef(ctx, "Seek(ctx, %d)", timestampUS)
	defer func() { logger.Tracef(ctx, "/Seek(ctx, %d): %v %v", timestampUS, _ret, _err) }()
	return xsync.DoR2(ctx, &d.locker, func() (bool, error) {
		if d.isClosed {
			return false, ErrClosed{}
		}
		return d.backend.Seek(ctx, timestampUS)
	})
}

// NextFrame blocks until the next frame is decoded. At the end of input it
// returns io.EOF, on every further call too.
func (d *Decoder) NextFrame(ctx context.Context) (_ret frame.Frame, _err error) {
	logger.Tracef(ctx, "NextFrame")
	defer func() { logger.Tracef(ctx, "/NextFrame: %v %v", _ret, _err) }()
	return xsync.DoR2(ctx, &d.locker, func() (frame.Frame, error) {
		if d.isClosed {
			return frame.Frame{}, ErrClosed{}
		}
		return d.backend.NextFrame(ctx)
	})
}

func (d *Decoder) VideoInfo(ctx context.Context) (types.VideoInfo, error) {
	return xsync.DoR2(ctx, &d.locker, func() (types.VideoInfo, error) {
		if d.isClosed {
			return types.VideoInfo{}, ErrClosed{}
		}
		return d.backend.VideoInfo(ctx)
	})
}

// Close releases the backend: engines are flushed, pooled buffers are
// freed and device references are released. Frames obtained earlier stay
// valid until they are released. Close is idempotent.
func (d *Decoder) Close(ctx context.Context) (_err error) {
	ctx = xcontext.DetachDone(ctx)
	logger.Tracef(ctx, "Close")
	defer func() { logger.Tracef(ctx, "/Close: %v", _err) }()
	return xsync.DoR1(ctx, &d.locker, func() error {
		if d.isClosed {
			return nil
		}
		d.isClosed = true
		backend := d.backend
		d.backend = NullBackend{}
		return backend.Close(ctx)
	})
}

type ErrClosed struct{}

func (ErrClosed) Error() string {
	return "the decoder is closed"
}
