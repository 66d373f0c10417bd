package book

// orderLocation is the id index's value: enough to reach the resting
// order's queue in one lookup without any back-pointer from the order
// or the level.
type orderLocation struct {
	side  Side
	price Price
}

// Option configures a Book at construction time.
type Option func(*OrderBook)

// WithQueueDiscipline overrides the default FIFO queue-discipline
// factory. The factory is called once per newly created price level.
func WithQueueDiscipline(factory func() QueueDiscipline) Option {
	return func(b *OrderBook) { b.queueFactory = factory }
}

// WithDepth sets the number of price levels per side returned by
// Snapshot. The default is 10.
func WithDepth(k int) Option {
	return func(b *OrderBook) { b.depth = k }
}

// WithNoLiquidityIsError makes Place return ErrNoLiquidity for a
// Market order that matched nothing, instead of the default silent
// no-op. See ErrNoLiquidity.
func WithNoLiquidityIsError() Option {
	return func(b *OrderBook) { b.noLiquidityIsError = true }
}

// OrderBook is the matching core: two price-indexed red-black trees
// (bids, asks), each holding one PriceLevel per resting price, plus a
// flat id index mapping every live order to its (side, price). It is
// single-writer: Place and Cancel must never be called concurrently
// with each other or with themselves. Readers call
// BestBid/BestAsk/DepthAt/Snapshot between writes, or via the
// snapshot-handoff slot the driver publishes to.
type OrderBook struct {
	bids *rbTree // keyed ascending; best bid is Max
	asks *rbTree // keyed ascending; best ask is Min
	index map[OrderID]orderLocation

	queueFactory       func() QueueDiscipline
	depth              int
	noLiquidityIsError bool

	lifecycle *orderLifecycle
	lastTs    Timestamp
}

// NewBook constructs an empty book. The default queue discipline is
// FIFO, backed by the book's own pooled order allocator; the default
// snapshot depth is 10, matching the operator surface's own default.
func NewBook(opts ...Option) *OrderBook {
	lifecycle := newOrderLifecycle()
	b := &OrderBook{
		bids:      newRBTree(),
		asks:      newRBTree(),
		index:     make(map[OrderID]orderLocation),
		depth:     10,
		lifecycle: lifecycle,
	}
	b.queueFactory = func() QueueDiscipline { return NewFIFOLevelWithRetire(lifecycle.retireOrder) }
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *OrderBook) treeFor(side Side) *rbTree {
	if side == Buy {
		return b.bids
	}
	return b.asks
}

func (b *OrderBook) oppositeTreeFor(side Side) *rbTree {
	return b.treeFor(side.Opposite())
}

// crosses reports whether a level at levelPrice on the contra side is
// aggressive enough to trade against a taker of side takerSide at
// takerPrice. Market takers cross any non-empty level.
func crosses(takerSide Side, takerKind Kind, takerPrice, levelPrice Price) bool {
	if takerKind == Market {
		return true
	}
	if takerSide == Buy {
		return levelPrice <= takerPrice
	}
	return levelPrice >= takerPrice
}

// topOpposite returns the best-priced level on the contra side of
// takerSide, or nil if that side is empty.
func (b *OrderBook) topOpposite(takerSide Side) *PriceLevel {
	if takerSide == Buy {
		return b.asks.Min()
	}
	return b.bids.Max()
}

func (b *OrderBook) deleteLevelIfEmpty(tree *rbTree, lvl *PriceLevel) {
	if lvl.IsEmpty() {
		tree.Delete(lvl.Price)
	}
}

// Place submits an incoming order for matching. It returns the trades
// generated during the sweep, in the order they occurred. Validation
// failures leave the book completely unchanged; a partial match
// followed by a resting residual is success, not failure.
func (b *OrderBook) Place(o Order) ([]Trade, error) {
	if _, live := b.index[o.ID]; live {
		return nil, ErrDuplicateOrder
	}
	if o.Qty == 0 {
		return nil, ErrInvalidQty
	}
	if o.Kind == Limit && o.Price <= 0 {
		return nil, ErrInvalidPrice
	}

	var trades []Trade
	remaining := o.Qty
	oppTree := b.oppositeTreeFor(o.Side)

	for remaining > 0 {
		lvl := b.topOpposite(o.Side)
		if lvl == nil || !crosses(o.Side, o.Kind, o.Price, lvl.Price) {
			break
		}

		filled, levelTrades, consumed := lvl.queue.MatchAgainst(o.ID, o.Side, remaining, lvl.Price, o.Ts)
		trades = append(trades, levelTrades...)
		remaining -= filled
		for _, id := range consumed {
			delete(b.index, id)
		}
		// Aggregate bookkeeping (queue.TotalQty) is already updated by
		// MatchAgainst before we ever look at IsEmpty, so a sweep
		// across several levels never leaves a stale total in between.
		b.deleteLevelIfEmpty(oppTree, lvl)

		if filled == 0 {
			// A non-empty crossing level that filled nothing would
			// spin forever; the queue discipline contract guarantees
			// this cannot happen while remaining > 0 and the level is
			// non-empty, but bail out defensively rather than loop.
			break
		}
	}

	if remaining > 0 {
		switch o.Kind {
		case Limit:
			ownTree := b.treeFor(o.Side)
			resting := o
			resting.Qty = remaining
			lvl := ownTree.Upsert(o.Price, func() *PriceLevel { return newPriceLevel(o.Price, b.queueFactory) })
			restingOrder := b.lifecycle.alloc(resting)
			lvl.queue.Enqueue(restingOrder)
			b.index[o.ID] = orderLocation{side: o.Side, price: o.Price}
		case Market:
			if b.noLiquidityIsError && len(trades) == 0 {
				return nil, ErrNoLiquidity
			}
			// Market residual is silently dropped rather than left
			// resting or treated as an error.
		}
	}

	b.lastTs = o.Ts
	return trades, nil
}

// Cancel removes a specific live order, returning the quantity it
// held at the moment of removal. Idempotent at the book level: a
// second cancel of the same id fails with ErrUnknownOrder and changes
// nothing.
func (b *OrderBook) Cancel(id OrderID) (Qty, error) {
	loc, live := b.index[id]
	if !live {
		return 0, ErrUnknownOrder
	}

	tree := b.treeFor(loc.side)
	lvl := tree.Find(loc.price)
	delete(b.index, id)
	if lvl == nil {
		return 0, ErrUnknownOrder
	}

	removed := lvl.queue.Cancel(id)
	b.deleteLevelIfEmpty(tree, lvl)
	return removed, nil
}

// BestBid returns the highest bid price with a resting level, or
// false if the buy side is empty.
func (b *OrderBook) BestBid() (Price, bool) {
	lvl := b.bids.Max()
	if lvl == nil {
		return 0, false
	}
	return lvl.Price, true
}

// BestAsk returns the lowest ask price with a resting level, or false
// if the sell side is empty.
func (b *OrderBook) BestAsk() (Price, bool) {
	lvl := b.asks.Min()
	if lvl == nil {
		return 0, false
	}
	return lvl.Price, true
}

// DepthAt returns the aggregate resting quantity at an exact
// (side, price) level, or 0 if there is none.
func (b *OrderBook) DepthAt(side Side, price Price) Qty {
	lvl := b.treeFor(side).Find(price)
	if lvl == nil {
		return 0
	}
	return lvl.TotalQty()
}

// Snapshot materializes the top-K levels per side, in priority order,
// alongside best_bid/best_ask and the timestamp of the last order
// accepted by Place (Cancel does not change it). It never mutates the
// book and runs in O(K log N).
func (b *OrderBook) Snapshot() *DepthSnapshot {
	b.lifecycle.beginRead()
	defer b.lifecycle.endRead()

	snap := &DepthSnapshot{TsNs: b.lastTs.Nanos()}

	if p, ok := b.BestBid(); ok {
		v := p
		snap.BestBid = &v
	}
	if p, ok := b.BestAsk(); ok {
		v := p
		snap.BestAsk = &v
	}

	snap.Bids = make([]PriceLevelView, 0, b.depth)
	b.bids.WalkDesc(func(l *PriceLevel) bool {
		snap.Bids = append(snap.Bids, PriceLevelView{Price: l.Price, Qty: l.TotalQty()})
		return len(snap.Bids) < b.depth
	})

	snap.Asks = make([]PriceLevelView, 0, b.depth)
	b.asks.WalkAsc(func(l *PriceLevel) bool {
		snap.Asks = append(snap.Asks, PriceLevelView{Price: l.Price, Qty: l.TotalQty()})
		return len(snap.Asks) < b.depth
	})

	return snap
}

// AdvanceEpoch drains retired order memory back into the allocator
// pool once no in-flight Snapshot could still observe it. The driver
// calls this periodically; it is not required for correctness of any
// single Place/Cancel call.
func (b *OrderBook) AdvanceEpoch() {
	b.lifecycle.advanceEpoch()
}
