// Package avconv converts values between libav (go-astiav) and the
// module's own types.
package avconv

import (
	"github.com/asticode/go-astiav"
	"github.com/xaionaro-go/avdecoder/types"
)

func RationalToAstiav(r types.Rational) astiav.Rational {
	return astiav.NewRational(r.Num, r.Den)
}

func RationalFromAstiav(r astiav.Rational) types.Rational {
	return types.Rational{
		Num: r.Num(),
		Den: r.Den(),
	}
}
