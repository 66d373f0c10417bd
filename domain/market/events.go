// Package market defines the event model a replay source produces
// and the DataSource contract the engine driver pulls from.
package market

import "tickbook/domain/book"

// EventKind tags which variant a MarketEvent carries.
type EventKind uint8

const (
	EventTrade EventKind = iota
	EventQuote
	EventOrder
	EventCancel
)

func (k EventKind) String() string {
	switch k {
	case EventTrade:
		return "trade"
	case EventQuote:
		return "quote"
	case EventOrder:
		return "order"
	case EventCancel:
		return "cancel"
	default:
		return "unknown"
	}
}

// TradeEvent is a reference-tape print, distinct from a book.Trade
// produced by the matching engine itself.
type TradeEvent struct {
	Price   book.Price
	Qty     book.Qty
	Side    book.Side
	TradeID uint64
}

// QuoteEvent is a top-of-book snapshot from an external feed.
type QuoteEvent struct {
	BidPrice book.Price
	AskPrice book.Price
	BidQty   book.Qty
	AskQty   book.Qty
}

// OrderEvent instructs the driver to place an order.
type OrderEvent struct {
	OrderID book.OrderID
	Side    book.Side
	Qty     book.Qty
	Price   book.Price // meaningful only when Kind == Limit
	Kind    book.Kind
}

// CancelEvent instructs the driver to cancel a resting order.
type CancelEvent struct {
	OrderID book.OrderID
	Reason  string
}

// MarketEvent is one decoded record from a DataSource. Exactly one of
// the typed fields is populated, selected by Kind; TsNs is always
// present.
type MarketEvent struct {
	Kind   EventKind
	TsNs   uint64
	Trade  TradeEvent
	Quote  QuoteEvent
	Order  OrderEvent
	Cancel CancelEvent
}

// AffectsBook reports whether the driver must dispatch this event to
// the matching engine, as opposed to merely feeding it to auxiliary
// observers (the spread ring, telemetry).
func (e MarketEvent) AffectsBook() bool {
	return e.Kind == EventOrder || e.Kind == EventCancel
}

// IsMarketData reports whether this event is a reference-feed
// observation (trade print or quote) rather than an instruction to
// mutate the book.
func (e MarketEvent) IsMarketData() bool {
	return e.Kind == EventTrade || e.Kind == EventQuote
}
