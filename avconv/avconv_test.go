package avconv

import (
	"testing"
	"time"

	"github.com/asticode/go-astiav"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/avdecoder/logger"
	"github.com/xaionaro-go/avdecoder/types"
)

func TestMicroseconds(t *testing.T) {
	us, ok := Microseconds(90000, astiav.NewRational(1, 90000))
	require.True(t, ok)
	require.Equal(t, int64(1000000), us)

	us, ok = Microseconds(3, astiav.NewRational(1001, 30000))
	require.True(t, ok)
	require.Equal(t, int64(100100), us)

	_, ok = Microseconds(astiav.NoPtsValue, astiav.NewRational(1, 1000))
	require.False(t, ok)

	_, ok = Microseconds(10, astiav.NewRational(0, 0))
	require.False(t, ok)

	require.Equal(t, int64(90000), FromMicroseconds(1000000, astiav.NewRational(1, 90000)))
}

func TestDurations(t *testing.T) {
	require.Equal(t, 2*time.Second, ContainerDuration(2*astiav.TimeBase))
	require.Zero(t, ContainerDuration(astiav.NoPtsValue))
	require.Equal(t, 1500*time.Millisecond, StreamDuration(1500, astiav.NewRational(1, 1000)))
	require.Zero(t, StreamDuration(-1, astiav.NewRational(1, 1000)))
}

func TestRational(t *testing.T) {
	r := types.Rational{Num: 30000, Den: 1001}
	require.Equal(t, r, RationalFromAstiav(RationalToAstiav(r)))
}

func TestColors(t *testing.T) {
	require.Equal(t, types.ColorRangeLimited, ColorRangeFromAstiav(astiav.ColorRangeMpeg))
	require.Equal(t, types.ColorRangeFull, ColorRangeFromAstiav(astiav.ColorRangeJpeg))
	require.Equal(t, types.ColorRangeUnspecified, ColorRangeFromAstiav(astiav.ColorRangeUnspecified))

	for cs, expected := range map[astiav.ColorSpace]types.ColorSpace{
		astiav.ColorSpaceBt709:            types.ColorSpaceBT709,
		astiav.ColorSpaceBt470Bg:          types.ColorSpaceBT601,
		astiav.ColorSpaceSmpte170M:        types.ColorSpaceBT601,
		astiav.ColorSpaceBt2020Ncl:        types.ColorSpaceBT2020,
		astiav.ColorSpaceChromaDerivedNcl: types.ColorSpaceBT2020,
		astiav.ColorSpaceIctcp:            types.ColorSpaceBT2020,
		astiav.ColorSpaceRgb:              types.ColorSpaceUnspecified,
	} {
		require.Equal(t, expected, ColorSpaceFromAstiav(cs))
	}
}

func TestLogLevels(t *testing.T) {
	for _, level := range []logger.Level{
		logger.LevelPanic,
		logger.LevelFatal,
		logger.LevelError,
		logger.LevelWarning,
		logger.LevelInfo,
		logger.LevelDebug,
		logger.LevelTrace,
	} {
		require.Equal(t, level, LogLevelFromAstiav(LogLevelToAstiav(level)), level.String())
	}
	require.Greater(t, LogLevelToAstiav(logger.LevelTrace), astiav.LogLevelDebug)
	require.Equal(t, astiav.LogLevelQuiet, LogLevelToAstiav(logger.LevelUndefined))
}

func TestDictionary(t *testing.T) {
	ctx := t.Context()
	d := DictionaryItemsToAstiav(ctx, types.DictionaryItems{
		{Key: "probesize", Value: "32"},
		{Key: "r3d.sdk_path", Value: "/opt/r3d"},
		{Key: "probesize", Value: "64"},
	}, func(key string) bool { return key == "r3d.sdk_path" })
	require.NotNil(t, d)
	require.Equal(t, map[string]string{"probesize": "64"}, DictionaryToMap(d))

	require.Nil(t, DictionaryItemsToAstiav(ctx, nil, nil))
}
