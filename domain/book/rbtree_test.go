package book

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRBTree_UpsertIsIdempotentByPrice(t *testing.T) {
	tr := newRBTree()
	l1 := tr.Upsert(50, func() *PriceLevel { return newPriceLevel(50, NewFIFOLevel) })
	l2 := tr.Upsert(50, func() *PriceLevel { return newPriceLevel(50, NewFIFOLevel) })
	assert.Same(t, l1, l2)
	assert.Equal(t, 1, tr.Size())
}

func TestRBTree_MinMax(t *testing.T) {
	tr := newRBTree()
	assert.Nil(t, tr.Min())
	assert.Nil(t, tr.Max())

	for _, p := range []Price{50, 30, 70, 20, 40, 60, 80} {
		tr.Upsert(p, func() *PriceLevel { return newPriceLevel(p, NewFIFOLevel) })
	}

	require.NotNil(t, tr.Min())
	require.NotNil(t, tr.Max())
	assert.Equal(t, Price(20), tr.Min().Price)
	assert.Equal(t, Price(80), tr.Max().Price)
}

func TestRBTree_WalkOrdering(t *testing.T) {
	tr := newRBTree()
	prices := []Price{50, 30, 70, 20, 40, 60, 80}
	for _, p := range prices {
		tr.Upsert(p, func() *PriceLevel { return newPriceLevel(p, NewFIFOLevel) })
	}

	var asc []Price
	tr.WalkAsc(func(l *PriceLevel) bool { asc = append(asc, l.Price); return true })
	assert.Equal(t, []Price{20, 30, 40, 50, 60, 70, 80}, asc)

	var desc []Price
	tr.WalkDesc(func(l *PriceLevel) bool { desc = append(desc, l.Price); return true })
	assert.Equal(t, []Price{80, 70, 60, 50, 40, 30, 20}, desc)
}

func TestRBTree_WalkStopsEarly(t *testing.T) {
	tr := newRBTree()
	for _, p := range []Price{10, 20, 30, 40} {
		tr.Upsert(p, func() *PriceLevel { return newPriceLevel(p, NewFIFOLevel) })
	}

	var seen []Price
	tr.WalkAsc(func(l *PriceLevel) bool {
		seen = append(seen, l.Price)
		return len(seen) < 2
	})
	assert.Equal(t, []Price{10, 20}, seen)
}

func TestRBTree_DeleteRemovesAndKeepsOrdering(t *testing.T) {
	tr := newRBTree()
	prices := []Price{50, 30, 70, 20, 40, 60, 80}
	for _, p := range prices {
		tr.Upsert(p, func() *PriceLevel { return newPriceLevel(p, NewFIFOLevel) })
	}

	assert.True(t, tr.Delete(40))
	assert.False(t, tr.Delete(40), "deleting an absent price is a no-op")
	assert.Nil(t, tr.Find(40))

	var asc []Price
	tr.WalkAsc(func(l *PriceLevel) bool { asc = append(asc, l.Price); return true })
	assert.Equal(t, []Price{20, 30, 50, 60, 70, 80}, asc)
	assert.Equal(t, 6, tr.Size())
}

// A random insert/delete sequence should always leave the tree in
// sorted order — the property that matters for price priority,
// independent of the exact rotation sequence taken to get there.
func TestRBTree_RandomizedInsertDeletePreservesOrder(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	tr := newRBTree()
	live := map[Price]bool{}

	for i := 0; i < 500; i++ {
		p := Price(rng.Intn(200))
		if rng.Intn(3) == 0 && len(live) > 0 {
			for k := range live {
				tr.Delete(k)
				delete(live, k)
				break
			}
			continue
		}
		tr.Upsert(p, func() *PriceLevel { return newPriceLevel(p, NewFIFOLevel) })
		live[p] = true
	}

	var asc []Price
	tr.WalkAsc(func(l *PriceLevel) bool { asc = append(asc, l.Price); return true })
	require.Equal(t, len(live), len(asc))
	for i := 1; i < len(asc); i++ {
		assert.Less(t, asc[i-1], asc[i])
	}
}
