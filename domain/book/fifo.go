package book

// FIFOLevel is the reference QueueDiscipline: a doubly linked list of
// resting orders where fill order equals enqueue order, generalized
// behind QueueDiscipline and carrying the total-qty and
// oldest-order-timestamp bookkeeping a latency report needs.
type FIFOLevel struct {
	head, tail *Order
	count      int
	total      Qty
	onRetire   func(*Order)
}

// NewFIFOLevel constructs an empty FIFO level with no retire hook.
// NewBook's default factory is NewFIFOLevelWithRetire, not this one.
func NewFIFOLevel() QueueDiscipline {
	return &FIFOLevel{}
}

// NewFIFOLevelWithRetire is the factory NewBook actually wires up: onRetire
// is invoked, once, for every order the level fully removes (whether by
// complete fill or by cancel), handing the *Order back to the book's
// allocator so its memory can be pooled instead of left for the GC.
func NewFIFOLevelWithRetire(onRetire func(*Order)) QueueDiscipline {
	return &FIFOLevel{onRetire: onRetire}
}

func (l *FIFOLevel) Enqueue(o *Order) {
	o.next, o.prev = nil, nil
	if l.tail != nil {
		l.tail.next = o
		o.prev = l.tail
	} else {
		l.head = o
	}
	l.tail = o
	l.count++
	l.total += o.Qty
}

func (l *FIFOLevel) unlink(o *Order) {
	if o.prev != nil {
		o.prev.next = o.next
	} else {
		l.head = o.next
	}
	if o.next != nil {
		o.next.prev = o.prev
	} else {
		l.tail = o.prev
	}
	o.next, o.prev = nil, nil
	l.count--
	if l.onRetire != nil {
		l.onRetire(o)
	}
}

func (l *FIFOLevel) MatchAgainst(takerID OrderID, takerSide Side, takerQty Qty, price Price, ts Timestamp) (Qty, []Trade, []OrderID) {
	var filled Qty
	var trades []Trade
	var fullyConsumed []OrderID

	for takerQty > 0 && l.head != nil {
		maker := l.head
		tradeQty := takerQty
		if maker.Qty < tradeQty {
			tradeQty = maker.Qty
		}

		trades = append(trades, Trade{
			TakerID: takerID,
			MakerID: maker.ID,
			Price:   price,
			Qty:     tradeQty,
			Ts:      ts,
		})

		maker.Qty -= tradeQty
		takerQty -= tradeQty
		filled += tradeQty
		l.total -= tradeQty

		if maker.Qty == 0 {
			fullyConsumed = append(fullyConsumed, maker.ID)
			l.unlink(maker)
		}
		// A partially filled head keeps its priority: it stays at
		// the front of the list with its reduced qty, so the next
		// loop iteration drains it again before anything else.
	}

	return filled, trades, fullyConsumed
}

func (l *FIFOLevel) Cancel(id OrderID) Qty {
	for o := l.head; o != nil; o = o.next {
		if o.ID == id {
			removed := o.Qty
			l.total -= removed
			l.unlink(o)
			return removed
		}
	}
	return 0
}

func (l *FIFOLevel) TotalQty() Qty { return l.total }

func (l *FIFOLevel) IsEmpty() bool { return l.head == nil }

func (l *FIFOLevel) OrderCount() int { return l.count }

func (l *FIFOLevel) OldestOrderTs() (Timestamp, bool) {
	if l.head == nil {
		return Timestamp{}, false
	}
	return l.head.Ts, true
}
