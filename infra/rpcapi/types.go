package rpcapi

import "tickbook/domain/book"

// PlaceOrderRequest mirrors book.Order's wire-relevant fields. Kept as
// a distinct type (rather than reusing book.Order directly) so the
// operator surface can evolve its request shape without dragging the
// domain type's field set along with it.
type PlaceOrderRequest struct {
	OrderID book.OrderID `json:"order_id"`
	Side    book.Side    `json:"side"`
	Kind    book.Kind    `json:"kind"`
	Price   book.Price   `json:"price,omitempty"`
	Qty     book.Qty     `json:"qty"`
}

type Trade struct {
	TakerID book.OrderID `json:"taker_id"`
	MakerID book.OrderID `json:"maker_id"`
	Price   book.Price   `json:"price"`
	Qty     book.Qty     `json:"qty"`
}

type PlaceOrderResponse struct {
	Trades []Trade `json:"trades,omitempty"`
}

type CancelOrderRequest struct {
	OrderID book.OrderID `json:"order_id"`
}

type CancelOrderResponse struct {
	RemovedQty book.Qty `json:"removed_qty"`
}

type GetSnapshotRequest struct {
	Depth int `json:"depth,omitempty"`
}

type PriceLevel struct {
	Price book.Price `json:"price"`
	Qty   book.Qty   `json:"qty"`
}

type SpreadSample struct {
	TsNs   uint64     `json:"ts_ns"`
	Spread book.Price `json:"spread"`
}

type GetSnapshotResponse struct {
	TsNs    uint64         `json:"ts_ns"`
	BestBid *book.Price    `json:"best_bid,omitempty"`
	BestAsk *book.Price    `json:"best_ask,omitempty"`
	Bids    []PriceLevel   `json:"bids,omitempty"`
	Asks    []PriceLevel   `json:"asks,omitempty"`
	Spreads []SpreadSample `json:"spreads,omitempty"`
}

func tradesFromDomain(in []book.Trade) []Trade {
	if len(in) == 0 {
		return nil
	}
	out := make([]Trade, len(in))
	for i, t := range in {
		out[i] = Trade{TakerID: t.TakerID, MakerID: t.MakerID, Price: t.Price, Qty: t.Qty}
	}
	return out
}

func spreadsFromDomain(in []book.SpreadSample) []SpreadSample {
	if len(in) == 0 {
		return nil
	}
	out := make([]SpreadSample, len(in))
	for i, s := range in {
		out[i] = SpreadSample{TsNs: s.Ts.Nanos(), Spread: s.Spread}
	}
	return out
}

func snapshotFromDomain(snap *book.DepthSnapshot) GetSnapshotResponse {
	resp := GetSnapshotResponse{TsNs: snap.TsNs, BestBid: snap.BestBid, BestAsk: snap.BestAsk}
	if len(snap.Bids) > 0 {
		resp.Bids = make([]PriceLevel, len(snap.Bids))
		for i, l := range snap.Bids {
			resp.Bids[i] = PriceLevel{Price: l.Price, Qty: l.Qty}
		}
	}
	if len(snap.Asks) > 0 {
		resp.Asks = make([]PriceLevel, len(snap.Asks))
		for i, l := range snap.Asks {
			resp.Asks[i] = PriceLevel{Price: l.Price, Qty: l.Qty}
		}
	}
	return resp
}
