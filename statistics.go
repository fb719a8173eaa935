package avdecoder

import (
	"context"
	"time"

	"go.uber.org/atomic"

	"github.com/xaionaro-go/avdecoder/frame"
	"github.com/xaionaro-go/avdecoder/indicator"
)

const latencyWindow = 32

// FramesStatistics is a snapshot of Statistics.
type FramesStatistics struct {
	Other  uint64 `json:"other"`
	Video  uint64 `json:"video"`
	Audio  uint64 `json:"audio"`
	Errors uint64 `json:"errors"`

	// AudioBytes is the sum of the audio buffer sizes.
	AudioBytes uint64 `json:"audio_bytes"`

	// DecodeLatencyUS is the smoothed time NextFrame takes.
	DecodeLatencyUS int64 `json:"decode_latency_us"`
}

// Statistics counts the frames pulled by a read loop; it is safe for
// concurrent use.
type Statistics struct {
	Other      atomic.Uint64
	Video      atomic.Uint64
	Audio      atomic.Uint64
	Errors     atomic.Uint64
	AudioBytes atomic.Uint64

	DecodeLatencyUS atomic.Int64
	latencyAverage  indicator.MovingAverage[int64]
}

// SmoothLatency makes DecodeLatencyUS a moving average instead of the
// last sample; call it before the loop starts.
func (stats *Statistics) SmoothLatency(window int) {
	stats.latencyAverage = indicator.NewMAMADefault[int64](window)
}

func (stats *Statistics) observeLatency(ctx context.Context, d time.Duration) {
	us := d.Microseconds()
	if stats.latencyAverage != nil {
		us = stats.latencyAverage.Update(ctx, us)
	}
	stats.DecodeLatencyUS.Store(us)
}

func (stats *Statistics) add(f frame.Frame) {
	switch f.Kind {
	case frame.KindVideo:
		stats.Video.Inc()
	case frame.KindAudio:
		stats.Audio.Inc()
		stats.AudioBytes.Add(uint64(f.Audio.BufferSize()))
	default:
		stats.Other.Inc()
	}
}

func (stats *Statistics) Convert() FramesStatistics {
	return FramesStatistics{
		Other:      stats.Other.Load(),
		Video:      stats.Video.Load(),
		Audio:      stats.Audio.Load(),
		Errors:     stats.Errors.Load(),
		AudioBytes: stats.AudioBytes.Load(),

		DecodeLatencyUS: stats.DecodeLatencyUS.Load(),
	}
}

func (stats *Statistics) GetStats() *FramesStatistics {
	return ptr(stats.Convert())
}
