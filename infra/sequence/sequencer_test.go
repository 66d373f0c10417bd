package sequence

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequencer_NextIsMonotonic(t *testing.T) {
	s := New(0)
	assert.Equal(t, uint64(1), s.Next())
	assert.Equal(t, uint64(2), s.Next())
	assert.Equal(t, uint64(2), s.Current())
}

func TestSequencer_ResetResumesFromValue(t *testing.T) {
	s := New(0)
	s.Reset(100)
	assert.Equal(t, uint64(101), s.Next())
}

func TestSequencer_ConcurrentNextNeverDuplicates(t *testing.T) {
	s := New(0)
	const n = 1000
	seen := make([]uint64, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			seen[i] = s.Next()
		}(i)
	}
	wg.Wait()

	unique := make(map[uint64]struct{}, n)
	for _, v := range seen {
		unique[v] = struct{}{}
	}
	assert.Len(t, unique, n)
}
