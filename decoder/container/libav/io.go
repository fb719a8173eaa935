package libav

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/asticode/go-astiav"
	"github.com/xaionaro-go/avdecoder/decoder"
	"github.com/xaionaro-go/avdecoder/logger"
	"github.com/xaionaro-go/avdecoder/types"
	"github.com/xaionaro-go/avdecoder/urltools"
)

const ioBufferSize = 64 * 1024

// see libavformat/avio.h
const (
	avSeekSize  = 0x10000
	avSeekForce = 0x20000
)

// source is how a Demuxer reaches the bytes of an input: either by URL or
// through custom IO callbacks.
type source struct {
	URL     string
	Options types.DictionaryItems

	// for custom IO; Reader is nil when URL is used
	Reader   io.Reader
	Seeker   io.Seeker
	SizeHint int64
}

func (s *source) String() string {
	if s.Reader == nil {
		return urltools.Redact(s.URL)
	}
	return fmt.Sprintf("io(%T, seekable:%t)", s.Reader, s.Seeker != nil)
}

// resolveSource maps every supported input onto a URL or a reader.
func resolveSource(
	ctx context.Context,
	input decoder.Input,
) (*source, error) {
	switch input := input.(type) {
	case decoder.InputURL:
		if fd, ok := urltools.FileDescriptor(string(input)); ok {
			return &source{
				URL:     "fd:",
				Options: types.DictionaryItems{{Key: "fd", Value: strconv.Itoa(fd)}},
			}, nil
		}
		return &source{URL: string(input)}, nil
	case decoder.InputBytes:
		r := bytes.NewReader(input)
		return &source{Reader: r, Seeker: r, SizeHint: int64(len(input))}, nil
	case decoder.InputReader:
		return &source{Reader: input.Reader, SizeHint: input.SizeHint}, nil
	case decoder.InputReadSeeker:
		return &source{Reader: input.ReadSeeker, Seeker: input.ReadSeeker, SizeHint: input.SizeHint}, nil
	case decoder.InputCallback:
		if input.Open == nil {
			return nil, types.ErrUnsupportedInput{Input: input.String()}
		}
		resolved, err := input.Open(ctx, input.Filename)
		if err != nil {
			return nil, fmt.Errorf("unable to open '%s': %w", input.Filename, err)
		}
		return resolveSource(ctx, resolved)
	case decoder.InputFileList:
		name := input.Name()
		if name == "" {
			return nil, types.ErrUnsupportedInput{Input: input.String()}
		}
		if len(input) > 1 {
			logger.Warnf(ctx, "a container is a single file, using '%s' out of %d files", name, len(input))
		}
		return resolveSource(ctx, input[name])
	}
	return nil, types.ErrUnsupportedInput{Input: fmt.Sprint(input)}
}

func (s *source) read(b []byte) (int, error) {
	for {
		n, err := s.Reader.Read(b)
		switch {
		case n > 0:
			return n, nil
		case errors.Is(err, io.EOF):
			return 0, astiav.ErrEof
		case err != nil:
			return 0, err
		}
	}
}

func (s *source) seek(offset int64, whence int) (int64, error) {
	if whence&avSeekSize != 0 {
		return s.size()
	}
	return s.Seeker.Seek(offset, whence&^avSeekForce)
}

func (s *source) size() (int64, error) {
	if s.SizeHint >= 0 {
		return s.SizeHint, nil
	}
	cur, err := s.Seeker.Seek(0, io.SeekCurrent)
	if err != nil {
		return -1, err
	}
	end, err := s.Seeker.Seek(0, io.SeekEnd)
	if err != nil {
		return -1, err
	}
	if _, err := s.Seeker.Seek(cur, io.SeekStart); err != nil {
		return -1, err
	}
	s.SizeHint = end
	return end, nil
}

func (s *source) newIOContext() (*astiav.IOContext, error) {
	var seekFunc astiav.IOContextSeekFunc
	if s.Seeker != nil {
		seekFunc = s.seek
	}
	ioContext, err := astiav.AllocIOContext(ioBufferSize, false, s.read, seekFunc, nil)
	if err != nil {
		return nil, engineError("avio_alloc_context", err)
	}
	return ioContext, nil
}
