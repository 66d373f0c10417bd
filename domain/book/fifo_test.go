package book

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFIFOLevel_EnqueueMatchOrder(t *testing.T) {
	l := NewFIFOLevel()
	l.Enqueue(&Order{ID: 1, Qty: 10})
	l.Enqueue(&Order{ID: 2, Qty: 10})

	filled, trades, consumed := l.MatchAgainst(100, Sell, 15, 50, NewTimestamp(1))

	assert.Equal(t, Qty(15), filled)
	assert.Equal(t, []OrderID{1}, consumed, "only the fully-drained head is reported consumed")
	assert.Len(t, trades, 2)
	assert.Equal(t, OrderID(1), trades[0].MakerID)
	assert.Equal(t, Qty(10), trades[0].Qty)
	assert.Equal(t, OrderID(2), trades[1].MakerID)
	assert.Equal(t, Qty(5), trades[1].Qty)
	assert.Equal(t, Qty(5), l.TotalQty())
}

func TestFIFOLevel_PartialFillKeepsHeadPriority(t *testing.T) {
	l := NewFIFOLevel()
	l.Enqueue(&Order{ID: 1, Qty: 10})
	l.Enqueue(&Order{ID: 2, Qty: 10})

	filled, trades, consumed := l.MatchAgainst(100, Sell, 4, 50, NewTimestamp(1))
	assert.Equal(t, Qty(4), filled)
	assert.Empty(t, consumed)
	assert.Len(t, trades, 1)
	assert.Equal(t, OrderID(1), trades[0].MakerID)
	assert.Equal(t, 2, l.OrderCount())

	filled, trades, consumed = l.MatchAgainst(100, Sell, 6, 50, NewTimestamp(2))
	assert.Equal(t, Qty(6), filled)
	assert.Equal(t, []OrderID{1}, consumed, "the residual head is drained before order 2")
	assert.Len(t, trades, 1)
	assert.Equal(t, OrderID(1), trades[0].MakerID)
	assert.Equal(t, 1, l.OrderCount())
}

func TestFIFOLevel_CancelPreservesRemainingOrder(t *testing.T) {
	l := NewFIFOLevel()
	l.Enqueue(&Order{ID: 1, Qty: 10})
	l.Enqueue(&Order{ID: 2, Qty: 10})
	l.Enqueue(&Order{ID: 3, Qty: 10})

	removed := l.Cancel(2)
	assert.Equal(t, Qty(10), removed)
	assert.Equal(t, Qty(0), l.Cancel(2), "cancelling an absent order returns 0")

	_, trades, _ := l.MatchAgainst(100, Sell, 20, 50, NewTimestamp(1))
	require.Len(t, trades, 2)
	assert.Equal(t, OrderID(1), trades[0].MakerID)
	assert.Equal(t, OrderID(3), trades[1].MakerID)
}

func TestFIFOLevel_OldestOrderTs(t *testing.T) {
	l := NewFIFOLevel()
	if _, ok := l.OldestOrderTs(); ok {
		t.Fatal("expected no oldest order on an empty level")
	}
	l.Enqueue(&Order{ID: 1, Qty: 10, Ts: NewTimestamp(42)})
	got, ok := l.OldestOrderTs()
	assert.True(t, ok)
	assert.Equal(t, NewTimestamp(42), got)
}

func TestFIFOLevel_RetireCallbackFiresOnceForFullyConsumedAndCancelled(t *testing.T) {
	var retired []OrderID
	l := NewFIFOLevelWithRetire(func(o *Order) { retired = append(retired, o.ID) })
	l.Enqueue(&Order{ID: 1, Qty: 10})
	l.Enqueue(&Order{ID: 2, Qty: 10})

	l.MatchAgainst(100, Sell, 10, 50, NewTimestamp(1))
	l.Cancel(2)

	assert.ElementsMatch(t, []OrderID{1, 2}, retired)
}
