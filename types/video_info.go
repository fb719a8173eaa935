package types

import (
	"math"
	"time"
)

// VideoInfo is the summary of the primary video stream of an input.
type VideoInfo struct {
	DurationMS  float64           `yaml:"duration_ms"`
	FrameCount  uint64            `yaml:"frame_count"`
	FPS         float64           `yaml:"fps"`
	Width       uint32            `yaml:"width"`
	Height      uint32            `yaml:"height"`
	BitrateMbps float64           `yaml:"bitrate_mbps"`
	Rotation    int               `yaml:"rotation"`
	CreatedAt   *time.Time        `yaml:"created_at,omitempty"`
	Metadata    map[string]string `yaml:"metadata,omitempty"`
}

func (i VideoInfo) Duration() time.Duration {
	return time.Duration(i.DurationMS * float64(time.Millisecond))
}

// NormalizeRotation folds an angle in degrees into [-180, 180); angles
// within 0.9 degrees below a full turn come out as 0.
func NormalizeRotation(theta float64) int {
	theta -= 360 * math.Floor(theta/360+0.9/360)
	if theta >= 180 {
		theta -= 360
	}
	return int(theta)
}

// BitrateMbpsFromBitsPerSecond uses binary megabits, as the rest of the
// toolchain reporting this value does.
func BitrateMbpsFromBitsPerSecond(bps int64) float64 {
	return float64(bps) / 1024 / 1024
}
