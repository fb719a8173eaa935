package types

import (
	"fmt"
)

type StreamType int

const (
	StreamTypeOther = StreamType(iota)
	StreamTypeVideo
	StreamTypeAudio
	StreamTypeSubtitle
)

func (t StreamType) String() string {
	switch t {
	case StreamTypeOther:
		return "other"
	case StreamTypeVideo:
		return "video"
	case StreamTypeAudio:
		return "audio"
	case StreamTypeSubtitle:
		return "subtitle"
	}
	return fmt.Sprintf("unknown_stream_type_%d", int(t))
}

// Stream describes one elementary stream of an input. Decode is the only
// field the caller is expected to change: setting it to false makes the
// backend skip the stream's packets without opening a decoder for it.
type Stream struct {
	Type         StreamType
	Index        int
	AvgFrameRate Rational
	FrameRate    Rational
	TimeBase     Rational
	Decode       bool
}

func (s Stream) String() string {
	return fmt.Sprintf("#%d:%s(rate:%s, tb:%s, decode:%t)", s.Index, s.Type, s.FrameRate, s.TimeBase, s.Decode)
}

// NewVideoStreamFromFPS builds the single video stream of an
// index-addressable clip.
func NewVideoStreamFromFPS(fps float64) Stream {
	rate := RationalFromApproxFloat64(fps)
	return Stream{
		Type:         StreamTypeVideo,
		Index:        0,
		AvgFrameRate: rate,
		FrameRate:    rate,
		TimeBase:     rate.Invert(),
		Decode:       true,
	}
}
