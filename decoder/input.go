package decoder

import (
	"context"
	"fmt"
	"io"
	"sort"
)

// Input is the source a Decoder reads from. It is one of InputURL,
// InputBytes, InputReader, InputReadSeeker, InputWriteSeeker,
// InputCallback and InputFileList.
type Input interface {
	fmt.Stringer

	// Name is the input's own file name, or "" if it has none.
	Name() string

	isInput()
}

// SizeUnknown is the SizeHint of a stream of unknown length.
const SizeUnknown = int64(-1)

// InputURL is a file path or anything libav accepts as a URL (including
// "fd:N").
type InputURL string

func (i InputURL) Name() string   { return string(i) }
func (i InputURL) String() string { return fmt.Sprintf("url:%s", string(i)) }
func (InputURL) isInput()         {}

// InputBytes is an in-memory file.
type InputBytes []byte

func (InputBytes) Name() string     { return "" }
func (i InputBytes) String() string { return fmt.Sprintf("bytes:%d", len(i)) }
func (InputBytes) isInput()         {}

// InputReader is a forward-only stream.
type InputReader struct {
	Reader   io.Reader
	SizeHint int64
}

func (InputReader) Name() string     { return "" }
func (i InputReader) String() string { return fmt.Sprintf("reader:%T", i.Reader) }
func (InputReader) isInput()         {}

// InputReadSeeker is a seekable stream.
type InputReadSeeker struct {
	ReadSeeker io.ReadSeeker
	SizeHint   int64
}

func (InputReadSeeker) Name() string     { return "" }
func (i InputReadSeeker) String() string { return fmt.Sprintf("readseeker:%T", i.ReadSeeker) }
func (InputReadSeeker) isInput()         {}

// InputWriteSeeker is an output stream; decoders reject it with
// types.ErrUnsupportedInput.
type InputWriteSeeker struct {
	WriteSeeker io.WriteSeeker
	SizeHint    int64
}

func (InputWriteSeeker) Name() string     { return "" }
func (i InputWriteSeeker) String() string { return fmt.Sprintf("writeseeker:%T", i.WriteSeeker) }
func (InputWriteSeeker) isInput()         {}

// InputCallback resolves files by name on demand; it is for formats that
// reference sibling files (for example multi-part R3D clips). Filename is
// the file to open first.
type InputCallback struct {
	Filename string
	Open     func(ctx context.Context, name string) (Input, error)
}

func (i InputCallback) Name() string   { return i.Filename }
func (i InputCallback) String() string { return fmt.Sprintf("callback:%s", i.Filename) }
func (InputCallback) isInput()         {}

// InputFileList is a named collection of inputs making up one clip.
type InputFileList map[string]Input

// Name is the first name in lexicographic order.
func (i InputFileList) Name() string {
	names := i.Names()
	if len(names) == 0 {
		return ""
	}
	return names[0]
}

// Names returns the file names sorted lexicographically.
func (i InputFileList) Names() []string {
	names := make([]string, 0, len(i))
	for name := range i {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (i InputFileList) String() string { return fmt.Sprintf("filelist:%v", i.Names()) }
func (InputFileList) isInput()         {}
