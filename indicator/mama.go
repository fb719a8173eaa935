package indicator

import (
	"context"

	indicators "github.com/lmpizarro/go_ehlers_indicators"
	"github.com/xaionaro-go/xsync"
)

const (
	DefaultFastLimit = 0.5
	DefaultSlowLimit = 0.05
)

// MAMA is the MESA adaptive moving average over a sliding window of the
// last samples. It follows sudden jumps quickly and ignores jitter.
type MAMA[T Number] struct {
	FastLimit float64
	SlowLimit float64

	locker  xsync.Mutex
	ring    []float64
	ordered []float64
	next    int
	samples int
}

var _ MovingAverage[int64] = (*MAMA[int64])(nil)

func NewMAMADefault[T Number](window int) *MAMA[T] {
	return NewMAMA[T](window, DefaultFastLimit, DefaultSlowLimit)
}

func NewMAMA[T Number](
	window int,
	fastLimit float64,
	slowLimit float64,
) *MAMA[T] {
	window = max(window, 1)
	return &MAMA[T]{
		FastLimit: fastLimit,
		SlowLimit: slowLimit,
		ring:      make([]float64, window),
		ordered:   make([]float64, window),
	}
}

func (m *MAMA[T]) Update(ctx context.Context, v T) T {
	return xsync.DoR1(xsync.WithNoLogging(ctx, true), &m.locker, func() T {
		return m.update(v)
	})
}

func (m *MAMA[T]) update(v T) T {
	m.ring[m.next] = float64(v)
	m.next = (m.next + 1) % len(m.ring)
	m.samples++
	if m.samples < len(m.ring) {
		return v
	}

	// ring     3 4 5 6 7 0 1 2
	//                    ^ next
	// ordered  0 1 2 3 4 5 6 7
	n := copy(m.ordered, m.ring[m.next:])
	copy(m.ordered[n:], m.ring[:m.next])

	result := indicators.MAMA(m.ordered, m.FastLimit, m.SlowLimit)
	return T(result[len(result)-1])
}

func (m *MAMA[T]) Window() int {
	return len(m.ring)
}

func (m *MAMA[T]) Valid(ctx context.Context) bool {
	return xsync.DoR1(ctx, &m.locker, func() bool {
		return m.samples >= len(m.ring)
	})
}
