package container

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/avdecoder/decoder"
	"github.com/xaionaro-go/avdecoder/frame"
	"github.com/xaionaro-go/avdecoder/types"
)

type fakePacket struct {
	streamIndex int
	ptsUS       int64
	keyFrame    bool
	released    *int
}

func (p *fakePacket) StreamIndex() int { return p.streamIndex }

func (p *fakePacket) Release(context.Context) {
	*p.released++
}

type fakeDemuxer struct {
	streams  []*types.Stream
	packets  []fakePacket
	pos      int
	released int
	failAt   map[int]error
	closed   bool
}

func (d *fakeDemuxer) Streams() []*types.Stream { return d.streams }

func (d *fakeDemuxer) ReadPacket(context.Context) (Packet, error) {
	if err, ok := d.failAt[d.pos]; ok {
		delete(d.failAt, d.pos)
		return nil, err
	}
	if d.pos >= len(d.packets) {
		return nil, io.EOF
	}
	pkt := d.packets[d.pos]
	pkt.released = &d.released
	d.pos++
	return &pkt, nil
}

func (d *fakeDemuxer) Seek(_ context.Context, ts int64) error {
	d.pos = 0
	for idx, pkt := range d.packets {
		if pkt.keyFrame && pkt.ptsUS <= ts {
			d.pos = idx
		}
	}
	return nil
}

func (d *fakeDemuxer) VideoInfo(context.Context) (types.VideoInfo, error) {
	for _, s := range d.streams {
		if s.Type == types.StreamTypeVideo {
			return types.VideoInfo{FPS: s.FrameRate.Float64(), Width: 64, Height: 48}, nil
		}
	}
	return types.VideoInfo{}, types.ErrStreamNotFound{StreamIndex: -1}
}

func (d *fakeDemuxer) Close(context.Context) error {
	d.closed = true
	return nil
}

type fakeVideoFrame struct {
	frame.NullVideoFrame
	ptsUS int64
}

func (f fakeVideoFrame) TimestampUS() (int64, bool) { return f.ptsUS, true }

// fakeStreamDecoder outputs a frame per packet after `delay` packets have
// been buffered, like a decoder with reordering.
type fakeStreamDecoder struct {
	streamIndex int
	delay       int
	rejectSends int
	queue       []int64
	draining    bool
	flushCount  int
	closed      bool
}

func (d *fakeStreamDecoder) SendPacket(_ context.Context, pkt Packet) error {
	if pkt == nil {
		d.draining = true
		return nil
	}
	if d.rejectSends > 0 {
		d.rejectSends--
		return ErrNeedMoreInput{}
	}
	d.queue = append(d.queue, pkt.(*fakePacket).ptsUS)
	return nil
}

func (d *fakeStreamDecoder) ReceiveFrame(context.Context) (frame.Frame, error) {
	if len(d.queue) == 0 || (!d.draining && len(d.queue) <= d.delay) {
		if d.draining {
			return frame.Frame{}, io.EOF
		}
		return frame.Frame{}, ErrNeedMoreInput{}
	}
	ts := d.queue[0]
	d.queue = d.queue[1:]
	return frame.NewVideo(d.streamIndex, fakeVideoFrame{ptsUS: ts}), nil
}

func (d *fakeStreamDecoder) Flush(context.Context) {
	d.queue = nil
	d.draining = false
	d.flushCount++
}

func (d *fakeStreamDecoder) Close(context.Context) error {
	d.closed = true
	return nil
}

type fakeEngine struct {
	demuxer     *fakeDemuxer
	delay       int
	rejectSends int
	decoders    map[int]*fakeStreamDecoder
}

func (e *fakeEngine) String() string { return "fake" }

func (e *fakeEngine) OpenDemuxer(context.Context, decoder.OpenParams) (Demuxer, error) {
	return e.demuxer, nil
}

func (e *fakeEngine) OpenStreamDecoder(
	_ context.Context,
	_ Demuxer,
	stream *types.Stream,
	_ types.DecoderOptions,
) (StreamDecoder, error) {
	if e.decoders == nil {
		e.decoders = map[int]*fakeStreamDecoder{}
	}
	d := &fakeStreamDecoder{streamIndex: stream.Index, delay: e.delay, rejectSends: e.rejectSends}
	e.decoders[stream.Index] = d
	return d, nil
}

func videoStream(idx int) *types.Stream {
	s := types.NewVideoStreamFromFPS(25)
	s.Index = idx
	return &s
}

// videoPackets makes a 25fps stream with a keyframe every 5 packets.
func videoPackets(streamIndex, count int) []fakePacket {
	var result []fakePacket
	for i := 0; i < count; i++ {
		result = append(result, fakePacket{
			streamIndex: streamIndex,
			ptsUS:       int64(i) * 40000,
			keyFrame:    i%5 == 0,
		})
	}
	return result
}

func newTestBackend(t *testing.T, engine *fakeEngine) *Backend {
	b, err := NewBackend(context.Background(), engine, decoder.OpenParams{Input: decoder.InputURL("test.mkv")})
	require.NoError(t, err)
	return b
}

func readAll(t *testing.T, b *Backend) []frame.Frame {
	ctx := context.Background()
	var result []frame.Frame
	for {
		f, err := b.NextFrame(ctx)
		if err == io.EOF {
			return result
		}
		require.NoError(t, err)
		result = append(result, f)
	}
}

func timestamps(frames []frame.Frame) []int64 {
	var result []int64
	for _, f := range frames {
		ts, _ := f.TimestampUS()
		result = append(result, ts)
	}
	return result
}

func TestNextFrameDrainsOnEOF(t *testing.T) {
	for _, delay := range []int{0, 1, 3} {
		t.Run(fmt.Sprintf("delay_%d", delay), func(t *testing.T) {
			demuxer := &fakeDemuxer{
				streams: []*types.Stream{videoStream(0)},
				packets: videoPackets(0, 10),
			}
			engine := &fakeEngine{demuxer: demuxer, delay: delay}
			b := newTestBackend(t, engine)

			frames := readAll(t, b)
			require.Len(t, frames, 10)
			require.Equal(t, int64(0), timestamps(frames)[0])
			require.Equal(t, int64(9*40000), timestamps(frames)[9])
			require.Equal(t, 10, demuxer.released)

			for i := 0; i < 3; i++ {
				_, err := b.NextFrame(context.Background())
				require.Equal(t, io.EOF, err)
			}
		})
	}
}

func TestNextFrameResendsRejectedPacket(t *testing.T) {
	demuxer := &fakeDemuxer{
		streams: []*types.Stream{videoStream(0)},
		packets: videoPackets(0, 7),
	}
	engine := &fakeEngine{demuxer: demuxer, delay: 1, rejectSends: 3}
	b := newTestBackend(t, engine)

	frames := readAll(t, b)
	require.Len(t, frames, 7)
	require.Equal(t, 7, demuxer.released)
	for idx, ts := range timestamps(frames) {
		require.Equal(t, int64(idx)*40000, ts)
	}
}

func TestSeekToZeroYieldsFirstFrame(t *testing.T) {
	ctx := context.Background()
	demuxer := &fakeDemuxer{
		streams: []*types.Stream{videoStream(0)},
		packets: videoPackets(0, 12),
	}
	engine := &fakeEngine{demuxer: demuxer, delay: 1}
	b := newTestBackend(t, engine)

	for i := 0; i < 4; i++ {
		_, err := b.NextFrame(ctx)
		require.NoError(t, err)
	}

	ok, err := b.Seek(ctx, 0)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 1, engine.decoders[0].flushCount)

	f, err := b.NextFrame(ctx)
	require.NoError(t, err)
	ts, ok := f.TimestampUS()
	require.True(t, ok)
	require.Equal(t, int64(0), ts)
}

func TestSeekLandsOnPrecedingKeyframe(t *testing.T) {
	ctx := context.Background()
	demuxer := &fakeDemuxer{
		streams: []*types.Stream{videoStream(0)},
		packets: videoPackets(0, 12),
	}
	b := newTestBackend(t, &fakeEngine{demuxer: demuxer})

	readAll(t, b)
	ok, err := b.Seek(ctx, 7*40000)
	require.NoError(t, err)
	require.True(t, ok)

	frames := readAll(t, b)
	require.Len(t, frames, 7)
	require.Equal(t, int64(5*40000), timestamps(frames)[0])
}

func TestZeroStreams(t *testing.T) {
	b := newTestBackend(t, &fakeEngine{demuxer: &fakeDemuxer{}})
	require.Empty(t, b.Streams())
	_, err := b.NextFrame(context.Background())
	require.Equal(t, io.EOF, err)
}

func TestDisabledStreams(t *testing.T) {
	ctx := context.Background()
	audio := &types.Stream{Type: types.StreamTypeAudio, Index: 1, Decode: true}
	demuxer := &fakeDemuxer{
		streams: []*types.Stream{videoStream(0), audio},
		packets: append(videoPackets(0, 3), fakePacket{streamIndex: 1}, fakePacket{streamIndex: 7}),
	}
	engine := &fakeEngine{demuxer: demuxer}
	b := newTestBackend(t, engine)
	for _, s := range b.Streams() {
		s.Decode = false
	}

	frames := readAll(t, b)
	require.Len(t, frames, 5)
	for _, f := range frames {
		require.Equal(t, frame.KindOther, f.Kind)
	}
	require.Equal(t, 7, frames[4].StreamIndex)
	require.Empty(t, engine.decoders)

	info, err := b.VideoInfo(ctx)
	require.NoError(t, err)
	require.Equal(t, float64(25), info.FPS)
}

func TestRecoverableReadErrors(t *testing.T) {
	demuxer := &fakeDemuxer{
		streams: []*types.Stream{videoStream(0)},
		packets: videoPackets(0, 3),
		failAt: map[int]error{
			1: ErrRecoverable{Err: fmt.Errorf("invalid data")},
		},
	}
	b := newTestBackend(t, &fakeEngine{demuxer: demuxer})
	require.Len(t, readAll(t, b), 3)
}

func TestFatalReadError(t *testing.T) {
	demuxer := &fakeDemuxer{
		streams: []*types.Stream{videoStream(0)},
		packets: videoPackets(0, 3),
		failAt:  map[int]error{0: types.ErrEngine{Engine: "fake", Op: "read", Code: -5}},
	}
	b := newTestBackend(t, &fakeEngine{demuxer: demuxer})
	_, err := b.NextFrame(context.Background())
	require.Error(t, err)
	require.ErrorAs(t, err, &types.ErrEngine{})
}

func TestClose(t *testing.T) {
	ctx := context.Background()
	demuxer := &fakeDemuxer{
		streams: []*types.Stream{videoStream(0)},
		packets: videoPackets(0, 3),
	}
	engine := &fakeEngine{demuxer: demuxer, delay: 2}
	b := newTestBackend(t, engine)
	_, err := b.NextFrame(ctx)
	require.NoError(t, err)

	require.NoError(t, b.Close(ctx))
	require.True(t, demuxer.closed)
	require.True(t, engine.decoders[0].closed)
}

func TestDrainOrderByStreamIndex(t *testing.T) {
	var packets []fakePacket
	for i, pkt := range videoPackets(0, 4) {
		packets = append(packets, pkt, videoPackets(1, 4)[i])
	}
	demuxer := &fakeDemuxer{
		streams: []*types.Stream{videoStream(0), videoStream(1)},
		packets: packets,
	}
	b := newTestBackend(t, &fakeEngine{demuxer: demuxer, delay: 2})

	frames := readAll(t, b)
	require.Len(t, frames, 8)

	var tail []int
	for _, f := range frames[len(frames)-4:] {
		tail = append(tail, f.StreamIndex)
	}
	require.Equal(t, []int{0, 0, 1, 1}, tail)
}

func TestDrainOrderWithStreamsOpenedInReverse(t *testing.T) {
	var packets []fakePacket
	for i := range 3 {
		for _, idx := range []int{2, 1, 0} {
			packets = append(packets, videoPackets(idx, 3)[i])
		}
	}
	demuxer := &fakeDemuxer{
		streams: []*types.Stream{videoStream(0), videoStream(1), videoStream(2)},
		packets: packets,
	}
	b := newTestBackend(t, &fakeEngine{demuxer: demuxer, delay: 1})

	frames := readAll(t, b)
	require.Len(t, frames, 9)

	var tail []int
	for _, f := range frames[len(frames)-3:] {
		tail = append(tail, f.StreamIndex)
	}
	require.Equal(t, []int{0, 1, 2}, tail)
}
