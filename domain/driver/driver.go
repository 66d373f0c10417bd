// Package driver binds a market.DataSource to a book.OrderBook: it is
// the single goroutine allowed to call the book's mutating operations,
// which is what makes the engine's single-writer concurrency model
// hold in practice.
package driver

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"tickbook/domain/book"
	"tickbook/domain/market"
	"tickbook/domain/tsbuffer"
	"tickbook/infra/metrics"
)

// TradeSink receives every trade a Place call produces, in order,
// for a broadcaster or telemetry collaborator to consume.
type TradeSink interface {
	OnTrades(trades []book.Trade)
}

// SnapshotPublisher receives a freshly materialized snapshot after
// each processed event, alongside the current bid/ask spread history,
// for the snapshot-handoff slot to publish.
type SnapshotPublisher interface {
	Publish(snap *book.DepthSnapshot, spreads []book.SpreadSample)
}

// Command is an external request to mutate the book, submitted from
// outside the driver goroutine (e.g. the gRPC operator surface) and
// executed on the driver's own goroutine to preserve single-writer
// semantics.
type Command struct {
	Place  *book.Order
	Cancel *book.OrderID
	Result chan<- CommandResult
}

// CommandResult is delivered on Command.Result once the driver has
// executed the command.
type CommandResult struct {
	Trades []book.Trade
	Qty    book.Qty
	Err    error
}

// Driver runs the replay loop: pull an event (observing playback
// timing), dispatch it to the book, publish a snapshot, and repeat
// until the source is exhausted or ctx is cancelled.
type Driver struct {
	source  market.DataSource
	engine  *book.OrderBook
	trades  TradeSink
	snaps   SnapshotPublisher
	spreads *tsbuffer.Ring[book.SpreadSample]
	log     *logrus.Logger
	cmds    chan Command

	rowErrors    uint64
	epochCounter uint64
}

// New constructs a Driver. spreadHistory is the capacity of the
// bid/ask spread ring the driver maintains from Quote and Trade events; pass 0
// to disable it.
func New(source market.DataSource, engine *book.OrderBook, trades TradeSink, snaps SnapshotPublisher, spreadHistory int, log *logrus.Logger) *Driver {
	if log == nil {
		log = logrus.StandardLogger()
	}
	d := &Driver{
		source: source,
		engine: engine,
		trades: trades,
		snaps:  snaps,
		log:    log,
		cmds:   make(chan Command, 64),
	}
	if spreadHistory > 0 {
		d.spreads = tsbuffer.New[book.SpreadSample](spreadHistory)
	}
	return d
}

// Commands returns the channel external callers submit Command values
// to. It is buffered but unbounded blocking is possible if the driver
// loop stops draining it; callers should respect ctx cancellation.
func (d *Driver) Commands() chan<- Command { return d.cmds }

// RowErrors returns the count of recoverable data-source errors
// encountered so far.
func (d *Driver) RowErrors() uint64 { return d.rowErrors }

// Healthy implements httpapi.HealthReporter. The driver reports
// unhealthy once malformed rows dominate the tape, which is the only
// failure mode Run tolerates rather than exiting on.
func (d *Driver) Healthy() (bool, string) {
	const rowErrorBudget = 10000
	if d.rowErrors > rowErrorBudget {
		return false, "row error budget exceeded"
	}
	return true, ""
}

type pumpResult struct {
	ev  market.MarketEvent
	err error
}

// Run drives the source-to-engine loop until ctx is cancelled or the
// source is exhausted. It is the only goroutine that may call
// d.engine's mutating methods; external mutation requests must arrive
// through Commands(). A dedicated pump goroutine is the sole caller of
// d.source.NextEvent, one call at a time, so a playback-speed wait
// there never blocks command processing on the main loop.
func (d *Driver) Run(ctx context.Context) error {
	defer d.source.Close()

	events := make(chan pumpResult)
	go d.pump(ctx, events)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd := <-d.cmds:
			d.handleCommand(cmd)
		case r := <-events:
			if r.err != nil {
				if errors.Is(r.err, market.ErrEndOfStream) {
					return nil
				}
				var rowErr *market.RowError
				if errors.As(r.err, &rowErr) {
					d.rowErrors++
					metrics.RowErrorObserved()
					d.log.WithFields(logrus.Fields{"line": rowErr.Line, "err": rowErr.Err}).Warn("skipping malformed replay row")
					continue
				}
				d.log.WithError(r.err).Error("fatal data source error")
				return r.err
			}

			d.dispatch(r.ev)
			d.publishSnapshot()

			// Periodically reclaim retired order memory; cheap and
			// bounded, safe to call every tick since AdvanceEpoch is a
			// no-op when nothing is pending.
			d.epochCounter++
			if d.epochCounter%256 == 0 {
				d.engine.AdvanceEpoch()
			}
		}
	}
}

func (d *Driver) pump(ctx context.Context, out chan<- pumpResult) {
	for {
		ev, err := d.source.NextEvent(ctx)
		select {
		case out <- pumpResult{ev: ev, err: err}:
		case <-ctx.Done():
			return
		}
		if err != nil {
			// A *RowError is recoverable: keep pulling past the bad row.
			var rowErr *market.RowError
			if !errors.As(err, &rowErr) {
				return
			}
		}
	}
}

// dispatch routes an event to the engine when ev.AffectsBook, or to an
// auxiliary observer (currently just the spread ring) when
// ev.IsMarketData; trade prints themselves are never fed back into the
// engine, only used to sample the book's current spread.
func (d *Driver) dispatch(ev market.MarketEvent) {
	switch ev.Kind {
	case market.EventOrder:
		o := book.Order{
			ID:    ev.Order.OrderID,
			Side:  ev.Order.Side,
			Kind:  ev.Order.Kind,
			Price: ev.Order.Price,
			Qty:   ev.Order.Qty,
			Ts:    book.NewTimestamp(ev.TsNs),
		}
		start := time.Now()
		trades, err := d.engine.Place(o)
		metrics.ObservePlaceDuration(time.Since(start).Seconds())
		if err != nil {
			metrics.OrderRejected(err.Error())
			d.log.WithFields(logrus.Fields{"order_id": o.ID, "err": err}).Warn("rejected replayed order")
			return
		}
		metrics.OrderPlaced(o.Side.String())
		metrics.TradesObserved(len(trades))
		if len(trades) > 0 && d.trades != nil {
			d.trades.OnTrades(trades)
		}
	case market.EventCancel:
		if _, err := d.engine.Cancel(ev.Cancel.OrderID); err != nil {
			metrics.CancelObserved("rejected")
			d.log.WithFields(logrus.Fields{"order_id": ev.Cancel.OrderID, "err": err}).Warn("rejected replayed cancel")
		} else {
			metrics.CancelObserved("ok")
		}
	case market.EventQuote:
		d.sampleSpread(ev.TsNs, ev.Quote.AskPrice-ev.Quote.BidPrice)
	case market.EventTrade:
		if bb, bbOk := d.engine.BestBid(); bbOk {
			if ba, baOk := d.engine.BestAsk(); baOk {
				d.sampleSpread(ev.TsNs, ba-bb)
			}
		}
	}
}

// sampleSpread records one (ts, spread) observation, a no-op when
// spread history tracking is disabled.
func (d *Driver) sampleSpread(tsNs uint64, spread book.Price) {
	if d.spreads == nil {
		return
	}
	d.spreads.Push(book.SpreadSample{Ts: book.NewTimestamp(tsNs), Spread: spread})
}

func (d *Driver) handleCommand(cmd Command) {
	var res CommandResult
	switch {
	case cmd.Place != nil:
		start := time.Now()
		res.Trades, res.Err = d.engine.Place(*cmd.Place)
		metrics.ObservePlaceDuration(time.Since(start).Seconds())
		if res.Err != nil {
			metrics.OrderRejected(res.Err.Error())
			break
		}
		metrics.OrderPlaced(cmd.Place.Side.String())
		metrics.TradesObserved(len(res.Trades))
		if len(res.Trades) > 0 && d.trades != nil {
			d.trades.OnTrades(res.Trades)
		}
	case cmd.Cancel != nil:
		res.Qty, res.Err = d.engine.Cancel(*cmd.Cancel)
		if res.Err != nil {
			metrics.CancelObserved("rejected")
		} else {
			metrics.CancelObserved("ok")
		}
	}
	if cmd.Result != nil {
		cmd.Result <- res
	}
	d.publishSnapshot()
}

func (d *Driver) publishSnapshot() {
	if d.snaps == nil {
		return
	}
	d.snaps.Publish(d.engine.Snapshot(), d.SpreadHistory())
}

// SpreadHistory returns the most recent bid/ask spread observations,
// oldest first, or nil if spread tracking is disabled.
func (d *Driver) SpreadHistory() []book.SpreadSample {
	if d.spreads == nil {
		return nil
	}
	return d.spreads.Snapshot()
}
