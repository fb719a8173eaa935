package decoder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/avdecoder/types"
)

type fakeFactory struct {
	name     string
	priority int
	ExtensionMatcher
	opened []OpenParams
	err    error
}

func (f *fakeFactory) String() string { return f.name }
func (f *fakeFactory) Priority() int  { return f.priority }

func (f *fakeFactory) Open(_ context.Context, params OpenParams) (Backend, error) {
	f.opened = append(f.opened, params)
	if f.err != nil {
		return nil, f.err
	}
	return &fakeBackend{}, nil
}

type fakeBackend struct {
	NullBackend
	closeCount int
}

func (b *fakeBackend) Close(context.Context) error {
	b.closeCount++
	return nil
}

func newTestRegistry() (*Registry, *fakeFactory, *fakeFactory, *fakeFactory) {
	braw := &fakeFactory{name: "braw", priority: PriorityBRAW, ExtensionMatcher: ExtensionMatcher{".braw"}}
	r3d := &fakeFactory{name: "r3d", priority: PriorityR3D, ExtensionMatcher: ExtensionMatcher{".r3d", ".nev"}}
	container := &fakeFactory{name: "container", priority: PriorityContainer}
	// registered out of order on purpose
	return NewRegistry(container, r3d, braw), braw, r3d, container
}

type matchAll struct{ *fakeFactory }

func (matchAll) Match(string) bool { return true }

func TestRegistryOrder(t *testing.T) {
	r, braw, r3d, container := newTestRegistry()
	factories := r.Factories()
	require.Equal(t, []Factory{braw, r3d, container}, factories)
}

func TestRegistryConcurrentRegister(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Register(&fakeFactory{name: fmt.Sprint(i), priority: 100 - i})
			r.Find("clip.mkv")
		}()
	}
	wg.Wait()

	factories := r.Factories()
	require.Len(t, factories, 16)
	for i := 1; i < len(factories); i++ {
		require.LessOrEqual(t, factories[i-1].Priority(), factories[i].Priority())
	}
}

func TestOpenDispatch(t *testing.T) {
	ctx := context.Background()

	for _, tc := range []struct {
		name            string
		input           Input
		opts            types.DecoderOptions
		expectedBackend string
		expectedHint    string
		expectedPath    string
	}{
		{
			name:            "braw_by_url",
			input:           InputURL("/clips/A001_C001.BRAW"),
			expectedBackend: "braw",
			expectedHint:    "/clips/a001_c001.braw",
			expectedPath:    "/clips/A001_C001.BRAW",
		},
		{
			name:            "r3d_nev",
			input:           InputURL("clip.nev"),
			expectedBackend: "r3d",
			expectedHint:    "clip.nev",
			expectedPath:    "clip.nev",
		},
		{
			name:            "filename_option_wins",
			input:           InputURL("stream.bin"),
			opts:            types.DecoderOptions{}.WithCustomOption(types.OptionFilename, "X.R3D"),
			expectedBackend: "r3d",
			expectedHint:    "x.r3d",
			expectedPath:    "stream.bin",
		},
		{
			name:            "bytes_take_filename_as_path",
			input:           InputBytes{0, 0, 0, 0x18},
			opts:            types.DecoderOptions{}.WithCustomOption(types.OptionFilename, "video.mp4"),
			expectedBackend: "container",
			expectedHint:    "video.mp4",
			expectedPath:    "video.mp4",
		},
		{
			name: "file_list_first_sorted_name",
			input: InputFileList{
				"B_002.R3D": InputBytes{1},
				"B_001.R3D": InputBytes{1},
			},
			expectedBackend: "r3d",
			expectedHint:    "b_001.r3d",
			expectedPath:    "B_001.R3D",
		},
		{
			name:            "callback",
			input:           InputCallback{Filename: "A.braw"},
			expectedBackend: "braw",
			expectedHint:    "a.braw",
			expectedPath:    "A.braw",
		},
		{
			name:            "fallback",
			input:           InputReadSeeker{ReadSeeker: bytes.NewReader(nil), SizeHint: SizeUnknown},
			expectedBackend: "container",
			expectedHint:    "",
			expectedPath:    "",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, braw, r3d, container := newTestRegistry()
			r := NewRegistry(braw, r3d, matchAll{container})
			d, err := r.Open(ctx, tc.input, tc.opts)
			require.NoError(t, err)
			require.Equal(t, tc.expectedBackend, d.BackendName())

			var params OpenParams
			for _, f := range []*fakeFactory{braw, r3d, container} {
				if len(f.opened) > 0 {
					params = f.opened[0]
				}
			}
			require.Equal(t, tc.expectedHint, params.Hint)
			require.Equal(t, tc.expectedPath, params.Path)
		})
	}
}

func TestOpenUnwrapsSingleFileList(t *testing.T) {
	ctx := context.Background()
	r, braw, _, _ := newTestRegistry()

	inner := InputBytes{1, 2, 3}
	_, err := r.Open(ctx, InputFileList{"A001.braw": inner}, types.DecoderOptions{})
	require.NoError(t, err)
	require.Len(t, braw.opened, 1)
	require.Equal(t, inner, braw.opened[0].Input)
	require.Equal(t, "A001.braw", braw.opened[0].Path)
}

func TestOpenNotFound(t *testing.T) {
	ctx := context.Background()
	r, _, _, _ := newTestRegistry()

	_, err := r.Open(ctx, InputURL("movie.mkv"), types.DecoderOptions{})
	var notFound types.ErrDecoderNotFound
	require.True(t, errors.As(err, &notFound))
	require.Equal(t, "movie.mkv", notFound.Hint)

	_, err = NewRegistry().Open(ctx, InputURL("a.braw"), types.DecoderOptions{})
	require.True(t, errors.As(err, &notFound))

	_, err = r.Open(ctx, nil, types.DecoderOptions{})
	require.True(t, errors.As(err, &types.ErrUnsupportedInput{}))
}

func TestOpenBackendFailure(t *testing.T) {
	r, braw, _, _ := newTestRegistry()
	braw.err = types.ErrResourceExhausted{Resource: "a BRAW codec", Err: fmt.Errorf("the SDK is missing")}

	_, err := r.Open(context.Background(), InputURL("a.braw"), types.DecoderOptions{})
	require.Error(t, err)
	require.True(t, errors.As(err, &types.ErrResourceExhausted{}))
}

func TestNullBackendDecoder(t *testing.T) {
	ctx := context.Background()
	d := NewDecoder("null", nil)

	require.Empty(t, d.Streams(ctx))
	ok, err := d.Seek(ctx, 0)
	require.NoError(t, err)
	require.False(t, ok)

	for i := 0; i < 3; i++ {
		_, err := d.NextFrame(ctx)
		require.Equal(t, io.EOF, err)
	}

	_, err = d.VideoInfo(ctx)
	require.True(t, errors.As(err, &types.ErrDecoderNotFound{}))
}

func TestDecoderClose(t *testing.T) {
	ctx := context.Background()
	backend := &fakeBackend{}
	d := NewDecoder("fake", backend)

	require.NoError(t, d.Close(ctx))
	require.NoError(t, d.Close(ctx))
	require.Equal(t, 1, backend.closeCount)

	_, err := d.NextFrame(ctx)
	require.Equal(t, ErrClosed{}, err)
	_, err = d.Seek(ctx, 0)
	require.Equal(t, ErrClosed{}, err)
}

type streamsBackend struct {
	NullBackend
	streams []*types.Stream
}

func (b *streamsBackend) Streams() []*types.Stream { return b.streams }

func TestSetDecodeAll(t *testing.T) {
	ctx := context.Background()
	backend := &streamsBackend{streams: []*types.Stream{
		{Type: types.StreamTypeVideo, Index: 0, Decode: true},
		{Type: types.StreamTypeAudio, Index: 1, Decode: true},
	}}
	d := NewDecoder("fake", backend)
	d.SetDecodeAll(ctx, false)
	for _, s := range d.Streams(ctx) {
		require.False(t, s.Decode)
	}
}

func TestParseOption(t *testing.T) {
	ctx := context.Background()
	opts := types.DecoderOptions{}.
		WithCustomOption("decode_resolution", "quarter").
		WithCustomOption("r3d.decode_resolution", "bogus").
		WithCustomOption("braw.decode_resolution", "half")

	parse := func(s string) (types.ResolutionScale, bool) {
		v := types.ParseResolutionScale(s)
		return v, v != types.ResolutionScaleUndefined
	}

	v, ok := ParseOption(ctx, "braw", opts, parse, "braw.decode_resolution", "decode_resolution")
	require.True(t, ok)
	require.Equal(t, types.ResolutionScaleHalf, v)

	_, ok = ParseOption(ctx, "r3d", opts, parse, "r3d.decode_resolution", "decode_resolution")
	require.False(t, ok)

	v, ok = ParseOption(ctx, "other", opts, parse, "other.decode_resolution", "decode_resolution")
	require.True(t, ok)
	require.Equal(t, types.ResolutionScaleQuarter, v)

	WarnUnknownOptions(ctx, "braw", opts, "braw.decode_resolution", "decode_resolution")
}
