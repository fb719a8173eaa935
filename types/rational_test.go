package types

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestRationalFromString(t *testing.T) {
	tests := []struct {
		input          string
		expectedNum    int
		expectedDen    int
		expectingError bool
	}{
		{"30", 30, 1, false},
		{"30/1", 30, 1, false},
		{"30000/1001", 30000, 1001, false}, // NTSC
		{"~23.976", 24000, 1001, false},    // NTSC
		{"~29.97", 30000, 1001, false},     // NTSC
		{"~29.93", 2993, 100, false},       // non-NTSC
		{"~25", 25, 1, false},
		{"~119.88", 120000, 1001, false},
		{"0/1", 0, 1, false},
		{"1/0", 0, 0, true},
		{"", 0, 0, true},
		{"invalid", 0, 0, true},
		{"10/invalid", 0, 0, true},
	}

	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			rational, err := RationalFromString(test.input)
			if test.expectingError {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, Rational{Num: test.expectedNum, Den: test.expectedDen}, *rational)
		})
	}
}

func TestRationalInvert(t *testing.T) {
	fps := Rational{Num: 24000, Den: 1001}
	require.Equal(t, Rational{Num: 1001, Den: 24000}, fps.Invert())
	require.InDelta(t, 23.976, fps.Float64(), 0.001)
	require.Zero(t, Rational{}.Float64())
	require.True(t, Rational{Num: 1}.IsZero())
}

func TestRationalYAML(t *testing.T) {
	var v struct {
		Rate Rational `yaml:"rate"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("rate: 30000/1001\n"), &v))
	require.Equal(t, Rational{Num: 30000, Den: 1001}, v.Rate)

	b, err := yaml.Marshal(v)
	require.NoError(t, err)
	require.Equal(t, "rate: 30000/1001\n", string(b))
}

func TestFrameIndexAt(t *testing.T) {
	for _, tc := range []struct {
		name       string
		ts         int64
		fps        float64
		frameCount uint64
		expected   uint64
	}{
		{name: "zero", ts: 0, fps: 25, frameCount: 100, expected: 0},
		{name: "exact", ts: 2_000_000, fps: 25, frameCount: 100, expected: 50},
		{name: "rounds_to_nearest", ts: 1_030_000, fps: 25, frameCount: 100, expected: 26},
		{name: "negative_clamps", ts: -5_000_000, fps: 25, frameCount: 100, expected: 0},
		{name: "past_end_clamps", ts: 60_000_000, fps: 25, frameCount: 100, expected: 99},
		{name: "empty_clip", ts: 1_000_000, fps: 25, frameCount: 0, expected: 0},
	} {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expected, FrameIndexAt(tc.ts, tc.fps, tc.frameCount))
		})
	}
}

func TestFrameTimestampUS(t *testing.T) {
	require.Equal(t, int64(0), FrameTimestampUS(0, 24))
	require.Equal(t, int64(1_000_000), FrameTimestampUS(24, 24))
	require.Equal(t, int64(41708), FrameTimestampUS(1, 23.976))
	require.Equal(t, int64(0), FrameTimestampUS(10, 0))
}
