package r3d

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/xaionaro-go/avdecoder/decoder"
	"github.com/xaionaro-go/avdecoder/logger"
	"github.com/xaionaro-go/xsync"
)

// File is a file opened by StreamIO.
type File interface {
	io.ReaderAt
	Size() int64
	Close() error
}

// StreamIO resolves the file names the SDK asks for: registered streams
// first, then aliases to other paths, then the callback, and finally the
// file system.
type StreamIO struct {
	locker   xsync.Mutex
	streams  map[string]*sharedStream
	aliases  map[string]string
	callback func(ctx context.Context, name string) (decoder.Input, error)
}

func NewStreamIO() *StreamIO {
	return &StreamIO{
		streams: map[string]*sharedStream{},
		aliases: map[string]string{},
	}
}

// Register makes name readable from rs; sizeHint may be
// decoder.SizeUnknown.
func (s *StreamIO) Register(
	ctx context.Context,
	name string,
	rs io.ReadSeeker,
	sizeHint int64,
) {
	logger.Debugf(ctx, "R3D IO: registering '%s'", name)
	s.locker.Do(ctx, func() {
		s.streams[name] = &sharedStream{readSeeker: rs, size: sizeHint}
	})
}

// Alias makes name read the file at path.
func (s *StreamIO) Alias(ctx context.Context, name, path string) {
	s.locker.Do(ctx, func() {
		s.aliases[name] = path
	})
}

func (s *StreamIO) SetCallback(
	ctx context.Context,
	callback func(ctx context.Context, name string) (decoder.Input, error),
) {
	s.locker.Do(ctx, func() {
		s.callback = callback
	})
}

func (s *StreamIO) Open(ctx context.Context, name string) (_ret File, _err error) {
	logger.Tracef(ctx, "StreamIO.Open(ctx, '%s')", name)
	defer func() { logger.Tracef(ctx, "/StreamIO.Open(ctx, '%s'): %v", name, _err) }()

	var (
		stream   *sharedStream
		path     string
		callback func(ctx context.Context, name string) (decoder.Input, error)
	)
	s.locker.Do(ctx, func() {
		stream, path, callback = s.streams[name], s.aliases[name], s.callback
	})
	if stream != nil {
		return streamFile{stream}, nil
	}
	if path != "" {
		return openOSFile(path)
	}
	if callback != nil {
		input, err := callback(ctx, name)
		switch {
		case err != nil:
			logger.Debugf(ctx, "R3D IO: the callback failed to open '%s': %v", name, err)
		case input == nil:
		default:
			if f, ok := fileFromInput(input); ok {
				return f, nil
			}
			logger.Warnf(ctx, "R3D IO: the callback returned an unsupported input %s for '%s'", input, name)
		}
	}
	return openOSFile(name)
}

func fileFromInput(input decoder.Input) (File, bool) {
	switch input := input.(type) {
	case decoder.InputBytes:
		return streamFile{&sharedStream{readSeeker: bytes.NewReader(input), size: int64(len(input))}}, true
	case decoder.InputReadSeeker:
		return streamFile{&sharedStream{readSeeker: input.ReadSeeker, size: input.SizeHint}}, true
	case decoder.InputURL:
		f, err := openOSFile(string(input))
		return f, err == nil
	}
	return nil, false
}

// sharedStream is a registered stream; every File opened from it shares
// the read position, so reads are serialized.
type sharedStream struct {
	locker     xsync.Mutex
	readSeeker io.ReadSeeker
	size       int64
}

type streamFile struct {
	*sharedStream
}

func (f streamFile) ReadAt(p []byte, off int64) (int, error) {
	ctx := context.Background()
	return xsync.DoR2(ctx, &f.locker, func() (int, error) {
		if _, err := f.readSeeker.Seek(off, io.SeekStart); err != nil {
			return 0, fmt.Errorf("unable to seek to %d: %w", off, err)
		}
		n, err := io.ReadFull(f.readSeeker, p)
		if err == io.ErrUnexpectedEOF {
			err = io.EOF
		}
		return n, err
	})
}

func (f streamFile) Size() int64 {
	ctx := context.Background()
	return xsync.DoR1(ctx, &f.locker, func() int64 {
		if f.size >= 0 {
			return f.size
		}
		cur, err := f.readSeeker.Seek(0, io.SeekCurrent)
		if err != nil {
			return decoder.SizeUnknown
		}
		end, err := f.readSeeker.Seek(0, io.SeekEnd)
		if err != nil {
			return decoder.SizeUnknown
		}
		if _, err := f.readSeeker.Seek(cur, io.SeekStart); err != nil {
			return decoder.SizeUnknown
		}
		f.size = end
		return end
	})
}

// Close keeps the stream registered for the next open.
func (streamFile) Close() error {
	return nil
}

type osFile struct {
	*os.File
	size int64
}

func openOSFile(path string) (File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		return nil, errors.Join(err, f.Close())
	}
	return osFile{File: f, size: info.Size()}, nil
}

func (f osFile) Size() int64 {
	return f.size
}
