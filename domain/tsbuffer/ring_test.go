package tsbuffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRing_PushWithinCapacity(t *testing.T) {
	r := New[int](4)
	r.Push(1)
	r.Push(2)
	r.Push(3)

	assert.Equal(t, 3, r.Len())
	assert.Equal(t, 4, r.Capacity())
	assert.Equal(t, []int{1, 2, 3}, r.Snapshot())
}

func TestRing_PushOverwritesOldest(t *testing.T) {
	r := New[int](3)
	for _, v := range []int{1, 2, 3, 4, 5} {
		r.Push(v)
	}

	assert.Equal(t, 3, r.Len())
	assert.Equal(t, []int{3, 4, 5}, r.Snapshot())
}

func TestRing_IterOldestFirstStopsEarly(t *testing.T) {
	r := New[int](5)
	for _, v := range []int{1, 2, 3, 4, 5} {
		r.Push(v)
	}

	var seen []int
	r.IterOldestFirst(func(v int) bool {
		seen = append(seen, v)
		return len(seen) < 2
	})
	assert.Equal(t, []int{1, 2}, seen)
}

func TestRing_NewPanicsOnNonPositiveCapacity(t *testing.T) {
	assert.Panics(t, func() { New[int](0) })
}
