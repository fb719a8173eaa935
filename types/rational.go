package types

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"

	dectofrac "github.com/av-elier/go-decimal-to-rational"
	"golang.org/x/exp/constraints"
	"gopkg.in/yaml.v3"
)

// Rational is a frame rate or a time base expressed as Num/Den.
type Rational struct {
	Num int
	Den int
}

func (r Rational) IsZero() bool {
	return r.Num == 0 || r.Den == 0
}

// Invert swaps the numerator and the denominator; a frame rate inverts
// into the matching time base.
func (r Rational) Invert() Rational {
	return Rational{
		Num: r.Den,
		Den: r.Num,
	}
}

func (r Rational) Mul(other Rational) Rational {
	return Rational{
		Num: r.Num * other.Num,
		Den: r.Den * other.Den,
	}
}

func newNTSCRationalFromFloat64(f float64) *big.Rat {
	den := 1001 // common denominator for NTSC frame rates
	num := math.Ceil(f) * 1000
	r := big.NewRat(int64(num), int64(den))
	confirmValue, _ := r.Float64()
	if math.Abs(f-confirmValue) < 1e-2 {
		return r
	}
	return nil
}

// RationalFromApproxFloat64 snaps values close to an NTSC rate
// (23.976, 29.97, 59.94, ...) onto their exact N*1000/1001 form.
func RationalFromApproxFloat64(fps float64) (r Rational) {
	if float64(int(fps)) == fps {
		r.Num = int(fps)
		r.Den = 1
		return
	}

	rat := newNTSCRationalFromFloat64(fps)
	if rat != nil {
		r.Num = int(rat.Num().Int64())
		r.Den = int(rat.Denom().Int64())
		return
	}

	r.Num = int(fps * 1000000)
	r.Den = 1000000

	gcd := big.NewInt(0).GCD(nil, nil, big.NewInt(int64(r.Num)), big.NewInt(int64(r.Den))).Int64()
	r.Num /= int(gcd)
	r.Den /= int(gcd)
	return
}

func RationalFromFloat64(fps float64) Rational {
	var r Rational
	if float64(int(fps)) == fps {
		r.Num = int(fps)
		r.Den = 1
		return r
	}
	rat := dectofrac.NewRatP(fps, 1e-6)
	r.Num = int(rat.Num().Int64())
	r.Den = int(rat.Denom().Int64())
	return r
}

func RationalFromString(s string) (*Rational, error) {
	var r Rational
	switch {
	case len(s) == 0:
		return nil, fmt.Errorf("unable to parse Rational from empty string")
	case strings.Contains(s, "/"):
		if _, err := fmt.Sscanf(s, "%d/%d", &r.Num, &r.Den); err != nil {
			return nil, fmt.Errorf("unable to parse Rational from %q: %w", s, err)
		}
	case s[0] == '~':
		fps, err := strconv.ParseFloat(s[1:], 64)
		if err != nil {
			return nil, fmt.Errorf("unable to parse Rational from %q: %w", s, err)
		}
		r = RationalFromApproxFloat64(fps)
	default:
		fps, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("unable to parse Rational from %q: %w", s, err)
		}
		r = RationalFromFloat64(fps)
	}
	if r.Den == 0 {
		return nil, fmt.Errorf("denominator cannot be zero")
	}
	return &r, nil
}

func (r Rational) Float64() float64 {
	if r.Den == 0 {
		return 0
	}
	return float64(r.Num) / float64(r.Den)
}

func (r Rational) String() string {
	return fmt.Sprintf("%d/%d", r.Num, r.Den)
}

func (r Rational) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

func (r *Rational) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("unable to unmarshal Rational from JSON '%s': %w", b, err)
	}
	v, err := RationalFromString(s)
	if err != nil {
		return fmt.Errorf("unable to unmarshal Rational from string %q: %w", s, err)
	}
	*r = *v
	return nil
}

func (r Rational) MarshalYAML() (any, error) {
	return r.String(), nil
}

func (r *Rational) UnmarshalYAML(value *yaml.Node) error {
	v, err := RationalFromString(strings.TrimSpace(value.Value))
	if err != nil {
		return fmt.Errorf("unable to unmarshal Rational from YAML %q: %w", value.Value, err)
	}
	*r = *v
	return nil
}

// FrameTimestampUS is the presentation time of frame #idx at rate fps.
func FrameTimestampUS(idx uint64, fps float64) int64 {
	if fps <= 0 {
		return 0
	}
	return int64(math.Round(float64(idx) * 1_000_000 / fps))
}

// FrameIndexAt maps a microsecond timestamp onto the nearest frame index of
// a clip with frameCount frames, clamped into [0, frameCount-1].
func FrameIndexAt(timestampUS int64, fps float64, frameCount uint64) uint64 {
	if frameCount == 0 {
		return 0
	}
	idx := int64(math.Round(float64(timestampUS) * fps / 1_000_000))
	return uint64(Clamp(idx, 0, int64(frameCount)-1))
}

func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
