package container

import (
	"container/heap"

	"github.com/go-ng/xsort"
)

// drainQueue is a min-heap of stream indexes.
type drainQueue struct {
	xsort.OrderedAsc[int]
}

var _ heap.Interface = (*drainQueue)(nil)

func (q *drainQueue) Push(v any) {
	q.OrderedAsc = append(q.OrderedAsc, v.(int))
}

func (q *drainQueue) Pop() any {
	last := len(q.OrderedAsc) - 1
	v := q.OrderedAsc[last]
	q.OrderedAsc = q.OrderedAsc[:last]
	return v
}

func (q *drainQueue) push(idx int) {
	heap.Push(q, idx)
}

func (q *drainQueue) pop() int {
	return heap.Pop(q).(int)
}
