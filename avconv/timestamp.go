package avconv

import (
	"math"
	"time"

	"github.com/asticode/go-astiav"
)

var microsecondTimeBase = astiav.NewRational(1, 1000000)

// Microseconds converts a timestamp in timeBase units; the result is
// false for AV_NOPTS_VALUE and for an unset time base.
func Microseconds(ts int64, timeBase astiav.Rational) (int64, bool) {
	if ts == astiav.NoPtsValue || timeBase.Num() == 0 || timeBase.Den() == 0 {
		return 0, false
	}
	return astiav.RescaleQ(ts, timeBase, microsecondTimeBase), true
}

// FromMicroseconds is the inverse of Microseconds.
func FromMicroseconds(us int64, timeBase astiav.Rational) int64 {
	return astiav.RescaleQ(us, microsecondTimeBase, timeBase)
}

// ContainerDuration converts a FormatContext duration (in AV_TIME_BASE
// units); negative and unset durations are zero.
func ContainerDuration(d int64) time.Duration {
	if d == astiav.NoPtsValue || d <= 0 {
		return 0
	}
	return time.Duration(float64(d) / float64(astiav.TimeBase) * float64(time.Second))
}

// StreamDuration converts a stream duration in the stream's time base.
func StreamDuration(d int64, timeBase astiav.Rational) time.Duration {
	if d == astiav.NoPtsValue || d <= 0 || timeBase.Den() == 0 {
		return 0
	}
	seconds := float64(d) * timeBase.Float64()
	if seconds > math.MaxInt64/float64(time.Second) {
		return 0
	}
	return time.Duration(seconds * float64(time.Second))
}
