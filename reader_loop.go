package avdecoder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/facebookincubator/go-belt/tool/experimental/errmon"
	"github.com/xaionaro-go/avdecoder/logger"
	"github.com/xaionaro-go/observability"
)

// FrameSource is what a read loop pulls from; *Decoder implements it.
type FrameSource interface {
	NextFrame(ctx context.Context) (Frame, error)
}

// ReaderLoop pulls frames from src into outCh until the end of input
// (then it returns nil) or an error. A frame that could not be delivered
// because ctx was cancelled is released.
func ReaderLoop(
	ctx context.Context,
	src FrameSource,
	outCh chan<- Frame,
	stats *Statistics,
) (_err error) {
	logger.Debugf(ctx, "ReaderLoop[%T]: chan %p", src, outCh)
	defer func() { logger.Debugf(ctx, "/ReaderLoop[%T]: chan %p: %v", src, outCh, _err) }()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		startedAt := time.Now()
		f, err := src.NextFrame(ctx)
		if stats != nil {
			stats.observeLatency(ctx, time.Since(startedAt))
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			if stats != nil {
				stats.Errors.Inc()
			}
			return fmt.Errorf("unable to read a frame: %w", err)
		}
		logger.Tracef(ctx, "ReaderLoop[%T]: received %s", src, f)
		if stats != nil {
			stats.add(f)
		}

		select {
		case <-ctx.Done():
			f.Release(ctx)
			return ctx.Err()
		case outCh <- f:
		}
	}
}

// FrameReader runs ReaderLoop in the background.
type FrameReader struct {
	Statistics

	framesCh chan Frame
	errCh    chan error
	cancelFn context.CancelFunc
	wg       sync.WaitGroup
	once     sync.Once
}

// StartReading starts pulling frames from src; the frames are read from
// Frames(), which is closed at the end. The result of the loop comes out
// of Err() once Frames() is closed.
func StartReading(
	ctx context.Context,
	src FrameSource,
	bufferSize int,
) *FrameReader {
	logger.Tracef(ctx, "StartReading[%T]", src)
	defer func() { logger.Tracef(ctx, "/StartReading[%T]", src) }()

	ctx, cancelFn := context.WithCancel(ctx)
	r := &FrameReader{
		framesCh: make(chan Frame, bufferSize),
		errCh:    make(chan error, 1),
		cancelFn: cancelFn,
	}
	r.SmoothLatency(latencyWindow)
	r.wg.Add(1)
	observability.Go(ctx, func(ctx context.Context) {
		defer r.wg.Done()
		defer close(r.framesCh)
		err := ReaderLoop(ctx, src, r.framesCh, &r.Statistics)
		errmon.ObserveErrorCtx(ctx, err)
		r.errCh <- err
		close(r.errCh)
	})
	return r
}

func (r *FrameReader) Frames() <-chan Frame {
	return r.framesCh
}

func (r *FrameReader) Err() <-chan error {
	return r.errCh
}

// Close stops the loop and releases the frames still buffered.
func (r *FrameReader) Close(ctx context.Context) {
	r.once.Do(func() {
		logger.Tracef(ctx, "FrameReader.Close")
		defer logger.Tracef(ctx, "/FrameReader.Close")
		r.cancelFn()
		for f := range r.framesCh {
			f.Release(ctx)
		}
		r.wg.Wait()
	})
}
