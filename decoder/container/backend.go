// Package container is the backend for general media containers. It pumps
// packets from a Demuxer into per-stream decoders of an Engine:
//
//	PacketFetch -> {Submit -> Drain}* -> EOFFlush -> Exhausted
//
// Seek lands on the keyframe at or before the requested timestamp; the
// frames between that keyframe and the timestamp are returned as usual.
package container

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/facebookincubator/go-belt"
	"github.com/xaionaro-go/avdecoder/decoder"
	"github.com/xaionaro-go/avdecoder/frame"
	"github.com/xaionaro-go/avdecoder/logger"
	"github.com/xaionaro-go/avdecoder/types"
)

const (
	// MaxReadRetries is how many recoverable read errors in a row are
	// skipped before the error is returned.
	MaxReadRetries = 64

	// MaxDrainIterations bounds the send/receive loop of one NextFrame.
	MaxDrainIterations = 1 << 16
)

type streamDecoder struct {
	StreamDecoder
	stream    *types.Stream
	eofSent   bool
	exhausted bool
}

type Backend struct {
	engine  Engine
	demuxer Demuxer
	streams []*types.Stream
	options types.DecoderOptions

	decoders map[int]*streamDecoder

	// heldPacket is read but not yet accepted by its decoder.
	heldPacket Packet

	// draining is the decoder to receive frames from before reading on.
	draining *streamDecoder

	// drainQueue holds the stream indexes still to be drained after the
	// end of input, smallest first.
	drainQueue drainQueue

	ended bool
}

var _ decoder.Backend = (*Backend)(nil)

func NewBackend(
	ctx context.Context,
	engine Engine,
	params decoder.OpenParams,
) (_ret *Backend, _err error) {
	logger.Tracef(ctx, "NewBackend(ctx, %s, %s)", engine, params.Input)
	defer func() { logger.Tracef(ctx, "/NewBackend(ctx, %s, %s): %v", engine, params.Input, _err) }()

	demuxer, err := engine.OpenDemuxer(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("unable to open the demuxer: %w", err)
	}
	b := &Backend{
		engine:   engine,
		demuxer:  demuxer,
		streams:  demuxer.Streams(),
		options:  params.Options,
		decoders: map[int]*streamDecoder{},
	}
	for _, s := range b.streams {
		logger.Debugf(ctx, "stream %s", s)
	}
	return b, nil
}

func (b *Backend) String() string {
	return fmt.Sprintf("container(%s)", b.engine)
}

func (b *Backend) Streams() []*types.Stream {
	return b.streams
}

func (b *Backend) streamByIndex(idx int) *types.Stream {
	for _, s := range b.streams {
		if s.Index == idx {
			return s
		}
	}
	return nil
}

func (b *Backend) getStreamDecoder(
	ctx context.Context,
	stream *types.Stream,
) (*streamDecoder, error) {
	if d := b.decoders[stream.Index]; d != nil {
		return d, nil
	}
	d, err := b.engine.OpenStreamDecoder(ctx, b.demuxer, stream, b.options)
	if err != nil {
		return nil, fmt.Errorf("cannot initialize a decoder for stream %d: %w", stream.Index, err)
	}
	logger.Debugf(ctx, "initialized a decoder for stream %s", stream)
	sd := &streamDecoder{StreamDecoder: d, stream: stream}
	b.decoders[stream.Index] = sd
	return sd, nil
}

func (b *Backend) readPacket(ctx context.Context) (Packet, error) {
	for retry := 0; ; retry++ {
		pkt, err := b.demuxer.ReadPacket(ctx)
		if err == nil {
			return pkt, nil
		}
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		if !errors.As(err, &ErrRecoverable{}) || retry >= MaxReadRetries {
			return nil, fmt.Errorf("unable to read a packet: %w", err)
		}
		logger.Warnf(ctx, "skipping a broken packet: %v", err)
	}
}

func (b *Backend) onEnded(ctx context.Context) {
	logger.Debugf(ctx, "end of input, draining %d decoders", len(b.decoders))
	b.ended = true
	for idx, d := range b.decoders {
		b.drainQueue.push(idx)
		if d.eofSent {
			continue
		}
		d.eofSent = true
		if err := d.SendPacket(ctx, nil); err != nil {
			logger.Warnf(ctx, "unable to send EOF to the decoder of stream %d: %v", idx, err)
		}
	}
}

// nextToDrain pops the next stream decoder that may still hold frames.
func (b *Backend) nextToDrain() *streamDecoder {
	for b.drainQueue.Len() > 0 {
		d := b.decoders[b.drainQueue.pop()]
		if d != nil && !d.exhausted {
			return d
		}
	}
	return nil
}

func (b *Backend) NextFrame(ctx context.Context) (_ret frame.Frame, _err error) {
	logger.Tracef(ctx, "NextFrame")
	defer func() { logger.Tracef(ctx, "/NextFrame: %v %v", _ret, _err) }()

	for i := 0; i < MaxDrainIterations; i++ {
		if d := b.draining; d != nil {
			f, err := d.ReceiveFrame(ctx)
			switch {
			case err == nil:
				return f, nil
			case errors.As(err, &ErrNeedMoreInput{}):
				if d.eofSent {
					d.exhausted = true
				}
				b.draining = nil
			case errors.Is(err, io.EOF):
				d.exhausted = true
				b.draining = nil
			default:
				b.draining = nil
				return frame.Frame{}, fmt.Errorf("unable to receive a frame from stream %d: %w", d.stream.Index, err)
			}
			continue
		}

		if b.heldPacket == nil {
			if b.ended {
				b.draining = b.nextToDrain()
				if b.draining == nil {
					return frame.Frame{}, io.EOF
				}
				continue
			}

			pkt, err := b.readPacket(ctx)
			if err == io.EOF {
				b.onEnded(ctx)
				continue
			}
			if err != nil {
				return frame.Frame{}, err
			}
			b.heldPacket = pkt
		}

		pkt := b.heldPacket
		stream := b.streamByIndex(pkt.StreamIndex())
		if stream == nil || !stream.Decode || !isDecodable(stream.Type) {
			b.dropHeldPacket(ctx)
			return frame.NewOther(pkt.StreamIndex()), nil
		}

		d, err := b.getStreamDecoder(ctx, stream)
		if err != nil {
			b.dropHeldPacket(ctx)
			return frame.Frame{}, err
		}

		err = d.SendPacket(belt.WithField(ctx, "stream", stream.Index), pkt)
		switch {
		case err == nil:
			b.dropHeldPacket(ctx)
		case errors.As(err, &ErrNeedMoreInput{}):
			// the decoder is full: receive first, then resend the same packet
		default:
			b.dropHeldPacket(ctx)
			return frame.Frame{}, fmt.Errorf("unable to decode a packet of stream %d: %w", stream.Index, err)
		}
		b.draining = d
	}
	return frame.Frame{}, fmt.Errorf("no frame after %d send/receive iterations", MaxDrainIterations)
}

func isDecodable(t types.StreamType) bool {
	switch t {
	case types.StreamTypeVideo, types.StreamTypeAudio:
		return true
	}
	return false
}

func (b *Backend) dropHeldPacket(ctx context.Context) {
	if b.heldPacket == nil {
		return
	}
	b.heldPacket.Release(ctx)
	b.heldPacket = nil
}

// Seek lands on the keyframe at or before timestampUS.
func (b *Backend) Seek(
	ctx context.Context,
	timestampUS int64,
) (_ret bool, _err error) {
	logger.Tracef(ctx, "Seek(ctx, %d)", timestampUS)
	defer func() { logger.Tracef(ctx, "/Seek(ctx, %d): %v %v", timestampUS, _ret, _err) }()

	if err := b.demuxer.Seek(ctx, timestampUS); err != nil {
		return false, fmt.Errorf("unable to seek to %dus: %w", timestampUS, err)
	}
	b.dropHeldPacket(ctx)
	b.draining = nil
	b.drainQueue = drainQueue{}
	b.ended = false
	for _, d := range b.decoders {
		d.Flush(ctx)
		d.eofSent = false
		d.exhausted = false
	}
	return true, nil
}

func (b *Backend) VideoInfo(ctx context.Context) (types.VideoInfo, error) {
	return b.demuxer.VideoInfo(ctx)
}

func (b *Backend) Close(ctx context.Context) (_err error) {
	logger.Tracef(ctx, "Close")
	defer func() { logger.Tracef(ctx, "/Close: %v", _err) }()

	b.dropHeldPacket(ctx)
	b.draining = nil

	var errs []error
	for idx, d := range b.decoders {
		if err := d.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("unable to close the decoder of stream %d: %w", idx, err))
		}
		delete(b.decoders, idx)
	}
	if err := b.demuxer.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("unable to close the demuxer: %w", err))
	}
	return errors.Join(errs...)
}

// Factory opens the container backend with the given engine. It matches
// any file name, so it goes last.
type Factory struct {
	Engine Engine
}

var _ decoder.Factory = Factory{}

func (f Factory) String() string {
	return "container"
}

func (Factory) Priority() int {
	return decoder.PriorityContainer
}

func (Factory) Match(string) bool {
	return true
}

func (f Factory) Open(ctx context.Context, params decoder.OpenParams) (decoder.Backend, error) {
	return NewBackend(ctx, f.Engine, params)
}
