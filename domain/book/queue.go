package book

// QueueDiscipline is the per-price-level matching abstraction. The
// reference implementation, FIFOLevel, matches strictly in arrival
// order; a pro-rata or size-priority discipline would satisfy the
// same contract without the order book needing to know the
// difference.
type QueueDiscipline interface {
	// Enqueue appends a resting order to the level.
	Enqueue(o *Order)

	// MatchAgainst consumes up to takerQty from the level at price,
	// crediting fills to takerID in time-ordered trades. It returns
	// the total quantity filled, the trades generated in the order
	// they occurred, and the ids of any maker orders it fully
	// consumed (so the book can drop them from its id index — the
	// level is the only party that knows which makers it removed).
	// When a head order is only partially consumed its residual
	// keeps its existing priority; it is never re-enqueued.
	MatchAgainst(takerID OrderID, takerSide Side, takerQty Qty, price Price, ts Timestamp) (filled Qty, trades []Trade, fullyConsumed []OrderID)

	// Cancel removes a specific resting order, returning the
	// quantity it held at the moment of removal (0 if absent).
	Cancel(id OrderID) Qty

	// TotalQty is the O(1) aggregate resting quantity.
	TotalQty() Qty

	// IsEmpty is O(1).
	IsEmpty() bool

	// OrderCount is the number of resting orders, O(1).
	OrderCount() int

	// OldestOrderTs returns the timestamp of the longest-resting
	// order, or false if the level is empty.
	OldestOrderTs() (Timestamp, bool)
}
