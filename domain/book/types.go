// Package book implements the price-time matching engine: a
// queue-discipline abstraction, a red-black-tree-indexed order book,
// and the value types shared by both.
package book

import "fmt"

// OrderID uniquely identifies a resting or incoming order. Ids are
// only unique over the set of currently-live orders; an id may be
// reused once its previous order has fully left the book.
type OrderID uint64

// Side is which side of the book an order or level belongs to.
type Side uint8

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Buy {
		return "buy"
	}
	return "sell"
}

// Opposite returns the contra side.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// Kind distinguishes limit orders (which carry a resting price) from
// market orders (which do not).
type Kind uint8

const (
	Limit Kind = iota
	Market
)

func (k Kind) String() string {
	if k == Limit {
		return "limit"
	}
	return "market"
}

// Price is a signed integer tick count. One tick is the minimum price
// increment; this engine never handles fractional ticks.
type Price int64

// Qty is a share/contract count. A live resting order always has
// Qty > 0.
type Qty uint64

// Timestamp is nanoseconds since the Unix epoch, held wide enough to
// match the 128-bit contract in the data model even though every
// realistic wall-clock reading fits in the low 64 bits.
type Timestamp struct {
	Hi uint64
	Lo uint64
}

// NewTimestamp builds a Timestamp from a plain nanosecond count.
func NewTimestamp(ns uint64) Timestamp {
	return Timestamp{Lo: ns}
}

// Nanos returns the timestamp truncated to 64 bits, which is
// sufficient for every value this engine actually produces or
// consumes (Hi is reserved for a future wider clock source).
func (t Timestamp) Nanos() uint64 { return t.Lo }

// Before reports whether t sorts strictly earlier than o.
func (t Timestamp) Before(o Timestamp) bool {
	if t.Hi != o.Hi {
		return t.Hi < o.Hi
	}
	return t.Lo < o.Lo
}

// Compare returns -1, 0, or 1 as t is less than, equal to, or greater
// than o.
func (t Timestamp) Compare(o Timestamp) int {
	switch {
	case t.Before(o):
		return -1
	case o.Before(t):
		return 1
	default:
		return 0
	}
}

func (t Timestamp) String() string {
	return fmt.Sprintf("%d", t.Lo)
}

// Order is a single order, live or historical. The engine takes
// ownership of an Order's value the moment it is handed to Place; the
// caller must not retain a pointer to a resting order and mutate it
// out from under the book.
type Order struct {
	ID    OrderID
	Side  Side
	Kind  Kind
	Price Price // meaningful only when Kind == Limit
	Qty   Qty
	Ts    Timestamp

	// intrusive FIFO-level linkage; nil unless resting in a FIFOLevel.
	next, prev *Order
}

// Trade is one execution resulting from a match. Price is always the
// maker's resting price, never the taker's.
type Trade struct {
	TakerID OrderID
	MakerID OrderID
	Price   Price
	Qty     Qty
	Ts      Timestamp
}

// PriceLevelView is a read-only view of one side's aggregate quantity
// at a price, used by DepthSnapshot.
type PriceLevelView struct {
	Price Price
	Qty   Qty
}

// SpreadSample is one (timestamp, bid-ask spread) observation, kept in
// a bounded ring by the driver so a consumer can chart recent spread
// without re-deriving it from raw events.
type SpreadSample struct {
	Ts     Timestamp
	Spread Price
}

// DepthSnapshot is an immutable view of the book between two
// mutations. Bids are sorted price-descending, asks price-ascending,
// each truncated to the configured depth.
type DepthSnapshot struct {
	TsNs    uint64
	BestBid *Price
	BestAsk *Price
	Bids    []PriceLevelView
	Asks    []PriceLevelView
}

// Equal reports structural equality, used by snapshot-purity tests:
// two Snapshot calls with no intervening mutation must be equal.
func (d *DepthSnapshot) Equal(o *DepthSnapshot) bool {
	if d == nil || o == nil {
		return d == o
	}
	if d.TsNs != o.TsNs {
		return false
	}
	if !equalPricePtr(d.BestBid, o.BestBid) || !equalPricePtr(d.BestAsk, o.BestAsk) {
		return false
	}
	return equalLevels(d.Bids, o.Bids) && equalLevels(d.Asks, o.Asks)
}

func equalPricePtr(a, b *Price) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalLevels(a, b []PriceLevelView) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
