package avconv

import (
	"github.com/asticode/go-astiav"
	"github.com/xaionaro-go/avdecoder/types"
)

func FindStreamByIndex(
	fmtCtx *astiav.FormatContext,
	streamIndex int,
) *astiav.Stream {
	for _, stream := range fmtCtx.Streams() {
		if stream.Index() == streamIndex {
			return stream
		}
	}
	return nil
}

func StreamTypeFromMediaType(t astiav.MediaType) types.StreamType {
	switch t {
	case astiav.MediaTypeVideo:
		return types.StreamTypeVideo
	case astiav.MediaTypeAudio:
		return types.StreamTypeAudio
	case astiav.MediaTypeSubtitle:
		return types.StreamTypeSubtitle
	}
	return types.StreamTypeOther
}

// Stream describes a libav stream; every stream starts with Decode set.
func Stream(s *astiav.Stream) *types.Stream {
	return &types.Stream{
		Type:         StreamTypeFromMediaType(s.CodecParameters().MediaType()),
		Index:        s.Index(),
		AvgFrameRate: RationalFromAstiav(s.AvgFrameRate()),
		FrameRate:    RationalFromAstiav(s.RFrameRate()),
		TimeBase:     RationalFromAstiav(s.TimeBase()),
		Decode:       true,
	}
}
