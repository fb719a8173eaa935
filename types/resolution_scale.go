package types

import (
	"fmt"
	"strings"
)

// ResolutionScale is the decode-time downscale of a RAW clip.
type ResolutionScale int

const (
	ResolutionScaleUndefined = ResolutionScale(iota)
	ResolutionScaleFull
	ResolutionScaleHalf
	ResolutionScaleHalfGood
	ResolutionScaleQuarter
	ResolutionScaleEighth
	ResolutionScaleSixteenth
)

func (s ResolutionScale) String() string {
	switch s {
	case ResolutionScaleUndefined:
		return "undefined"
	case ResolutionScaleFull:
		return "full"
	case ResolutionScaleHalf:
		return "half"
	case ResolutionScaleHalfGood:
		return "half_good"
	case ResolutionScaleQuarter:
		return "quarter"
	case ResolutionScaleEighth:
		return "eighth"
	case ResolutionScaleSixteenth:
		return "sixteenth"
	}
	return fmt.Sprintf("unknown_resolution_scale_%d", int(s))
}

// Divisor is how many times each dimension shrinks.
func (s ResolutionScale) Divisor() uint32 {
	switch s {
	case ResolutionScaleHalf, ResolutionScaleHalfGood:
		return 2
	case ResolutionScaleQuarter:
		return 4
	case ResolutionScaleEighth:
		return 8
	case ResolutionScaleSixteenth:
		return 16
	}
	return 1
}

func (s ResolutionScale) Apply(width, height uint32) (uint32, uint32) {
	div := s.Divisor()
	return width / div, height / div
}

// ParseResolutionScale accepts the names and the "1/N" forms
// ("1/2" is the fast half-resolution mode, "half" the premium one).
func ParseResolutionScale(s string) ResolutionScale {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "full", "1":
		return ResolutionScaleFull
	case "half":
		return ResolutionScaleHalf
	case "half_good", "1/2":
		return ResolutionScaleHalfGood
	case "quarter", "1/4":
		return ResolutionScaleQuarter
	case "eighth", "1/8":
		return ResolutionScaleEighth
	case "sixteenth", "1/16":
		return ResolutionScaleSixteenth
	}
	return ResolutionScaleUndefined
}
