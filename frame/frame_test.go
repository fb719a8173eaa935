package frame

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/avdecoder/bufferpool"
	"github.com/xaionaro-go/avdecoder/types"
)

func TestPooledVideoFrame(t *testing.T) {
	ctx := context.Background()
	pool := bufferpool.New[bufferpool.AlignedBytes, types.PixelFormat](2, bufferpool.NewAlignedBytesFactory(
		16,
		func(key bufferpool.Key[types.PixelFormat]) int { return key.Stride * int(key.Height) },
	))

	h, err := pool.Get(ctx, 4, 2, 16, types.PixelFormatBgraU8)
	require.NoError(t, err)

	var commons Commons
	commons.FrameWidth = 4
	commons.FrameHeight = 2
	commons.FramePixelFormat = types.PixelFormatBgraU8
	commons.SetTimestampUS(41708)
	f := NewPooledVideoFrame(commons, h, AlignedBytesOf[types.PixelFormat])

	fr := NewVideo(0, f)
	ts, ok := fr.TimestampUS()
	require.True(t, ok)
	require.Equal(t, int64(41708), ts)
	require.False(t, f.IsGPUResident())

	planes, err := f.CPUPlanes(ctx)
	require.NoError(t, err)
	require.Len(t, planes, 1)
	require.Len(t, planes[0].Data, 32)
	require.Equal(t, 16, planes[0].Stride)

	_, err = f.GPUTexture(0)
	require.True(t, errors.As(err, &ErrNotGPUResident{}))

	downloaded, err := f.Download(ctx)
	require.NoError(t, err)
	require.Same(t, f, downloaded)

	fr.Release(ctx)
	require.Equal(t, 1, pool.IdleCount(ctx, h.Key()))

	_, err = f.CPUPlanes(ctx)
	require.Equal(t, types.ErrEmptyFrame{}, err)
	fr.Release(ctx)
	require.Equal(t, 1, pool.IdleCount(ctx, h.Key()))
}

func TestNullFrames(t *testing.T) {
	ctx := context.Background()

	v := NullVideoFrame{}
	require.Zero(t, v.Width())
	_, ok := v.TimestampUS()
	require.False(t, ok)
	_, err := v.CPUPlanes(ctx)
	require.Error(t, err)

	other := NewOther(3)
	require.Equal(t, KindOther, other.Kind)
	_, ok = other.TimestampUS()
	require.False(t, ok)
	other.Release(ctx)

	audio := NewAudio(1, NullAudioFrame{})
	require.Equal(t, "audio#1", audio.String())
	audio.Release(ctx)
}
