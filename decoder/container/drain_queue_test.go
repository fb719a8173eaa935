package container

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDrainQueue(t *testing.T) {
	var q drainQueue
	for _, idx := range []int{3, 0, 2, 5, 1} {
		q.push(idx)
	}
	var popped []int
	for q.Len() > 0 {
		popped = append(popped, q.pop())
	}
	require.Equal(t, []int{0, 1, 2, 3, 5}, popped)
}
