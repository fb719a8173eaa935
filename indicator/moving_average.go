// Package indicator smooths noisy per-frame measurements (such as decode
// timings) into a value suitable for reporting.
package indicator

import (
	"context"

	"golang.org/x/exp/constraints"
)

type Number interface {
	constraints.Integer | constraints.Float
}

type MovingAverage[T Number] interface {
	// Update feeds a new sample and returns the current average; until the
	// window is filled the sample itself is returned.
	Update(ctx context.Context, v T) T
	Window() int
	Valid(ctx context.Context) bool
}
