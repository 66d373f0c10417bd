package book

// PriceLevel is the aggregate of all resting orders at one price on
// one side. It owns its queue discipline; it never points back to the
// tree node or map that indexes it.
type PriceLevel struct {
	Price Price
	queue QueueDiscipline
}

func newPriceLevel(price Price, factory func() QueueDiscipline) *PriceLevel {
	return &PriceLevel{Price: price, queue: factory()}
}

func (l *PriceLevel) TotalQty() Qty { return l.queue.TotalQty() }
func (l *PriceLevel) IsEmpty() bool { return l.queue.IsEmpty() }
