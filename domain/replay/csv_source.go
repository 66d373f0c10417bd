// Package replay implements the streaming CSV market-data source: a
// line-oriented, event_type-dispatched format read one row at a time,
// with wall-clock-locked playback and an optional pebble-backed
// timestamp index for accelerated seeking.
package replay

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"tickbook/domain/book"
	"tickbook/domain/market"
)

// CSVSource implements market.DataSource over a CSV schema with a
// header row naming at least event_type and timestamp, followed by
// one row per event. It reads one line at a time and never buffers
// the whole file.
type CSVSource struct {
	path string
	f    *os.File
	br   *bufio.Reader

	header         map[string]int
	dataStartOffset int64
	byteOffset      int64
	lineNo          int
	finished        bool

	speed       float64
	haveBase    bool
	baseWall    time.Time
	baseEventTs uint64

	index *TimestampIndex
}

// Option configures a CSVSource at Open time.
type Option func(*CSVSource)

// WithTimestampIndex attaches a prebuilt TimestampIndex, used to
// accelerate SeekToTime. The index is not closed by CSVSource.Close;
// the caller owns its lifetime.
func WithTimestampIndex(idx *TimestampIndex) Option {
	return func(s *CSVSource) { s.index = idx }
}

// Open opens path and reads its header row. Playback speed defaults
// to 1.0 (wall-clock-locked), matching the operator surface's own
// default.
func Open(path string, opts ...Option) (*CSVSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", market.ErrIoError, err)
	}

	s := &CSVSource{path: path, f: f, br: bufio.NewReader(f), speed: 1.0}
	header, headerLen, err := readHeader(s.br)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %v", market.ErrIoError, err)
	}
	if _, ok := header["event_type"]; !ok {
		f.Close()
		return nil, fmt.Errorf("%w: csv header missing event_type column", market.ErrSchemaError)
	}
	if _, ok := header["timestamp"]; !ok {
		f.Close()
		return nil, fmt.Errorf("%w: csv header missing timestamp column", market.ErrSchemaError)
	}
	s.header = header
	s.dataStartOffset = int64(headerLen)
	s.byteOffset = s.dataStartOffset

	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func readHeader(br *bufio.Reader) (map[string]int, int, error) {
	line, err := br.ReadString('\n')
	if line == "" && err != nil {
		return nil, 0, err
	}
	trimmed := strings.TrimRight(line, "\r\n")
	cols := strings.Split(trimmed, ",")
	header := make(map[string]int, len(cols))
	for i, c := range cols {
		header[strings.TrimSpace(c)] = i
	}
	return header, len(line), nil
}

// NextEvent reads and decodes the next row, honoring the configured
// playback speed. A recoverable row failure is returned as a
// *market.RowError wrapping ErrParseError or ErrSchemaError; the
// cursor has already advanced past that row.
func (s *CSVSource) NextEvent(ctx context.Context) (market.MarketEvent, error) {
	if s.finished {
		return market.MarketEvent{}, market.ErrEndOfStream
	}

	line, readErr := s.br.ReadString('\n')
	s.byteOffset += int64(len(line))
	if line == "" && readErr != nil {
		s.finished = true
		return market.MarketEvent{}, market.ErrEndOfStream
	}
	s.lineNo++

	cols := strings.Split(strings.TrimRight(line, "\r\n"), ",")
	col := func(name string) (string, bool) {
		i, ok := s.header[name]
		if !ok || i >= len(cols) {
			return "", false
		}
		return cols[i], true
	}

	if readErr != nil && readErr != io.EOF {
		return market.MarketEvent{}, fmt.Errorf("%w: %v", market.ErrIoError, readErr)
	}

	evType, ok := col("event_type")
	if !ok {
		return market.MarketEvent{}, s.rowErr(market.ErrParseError, "missing event_type")
	}
	tsRaw, ok := col("timestamp")
	if !ok {
		return market.MarketEvent{}, s.rowErr(market.ErrParseError, "missing timestamp")
	}
	tsNs, err := strconv.ParseUint(tsRaw, 10, 64)
	if err != nil {
		return market.MarketEvent{}, s.rowErr(market.ErrParseError, "invalid timestamp")
	}

	ev := market.MarketEvent{TsNs: tsNs}
	switch evType {
	case "trade":
		te, err := s.parseTrade(col)
		if err != nil {
			return market.MarketEvent{}, err
		}
		ev.Kind = market.EventTrade
		ev.Trade = te
	case "quote":
		qe, err := s.parseQuote(col)
		if err != nil {
			return market.MarketEvent{}, err
		}
		ev.Kind = market.EventQuote
		ev.Quote = qe
	case "order":
		oe, err := s.parseOrder(col)
		if err != nil {
			return market.MarketEvent{}, err
		}
		ev.Kind = market.EventOrder
		ev.Order = oe
	case "cancel":
		ce, err := s.parseCancel(col)
		if err != nil {
			return market.MarketEvent{}, err
		}
		ev.Kind = market.EventCancel
		ev.Cancel = ce
	default:
		return market.MarketEvent{}, s.rowErr(market.ErrSchemaError, fmt.Sprintf("unknown event_type %q", evType))
	}

	if err := s.waitForSchedule(ctx, tsNs); err != nil {
		return market.MarketEvent{}, err
	}
	return ev, nil
}

func (s *CSVSource) rowErr(kind error, msg string) error {
	return &market.RowError{Line: s.lineNo, Err: fmt.Errorf("%w: %s", kind, msg)}
}

func (s *CSVSource) parseTrade(col func(string) (string, bool)) (market.TradeEvent, error) {
	price, err := s.parsePrice(col, "price")
	if err != nil {
		return market.TradeEvent{}, err
	}
	qty, err := s.parseQty(col, "qty")
	if err != nil {
		return market.TradeEvent{}, err
	}
	side, err := s.parseSide(col, "side")
	if err != nil {
		return market.TradeEvent{}, err
	}
	tradeIDRaw, ok := col("trade_id")
	if !ok {
		return market.TradeEvent{}, s.rowErr(market.ErrParseError, "missing trade_id")
	}
	tradeID, err := strconv.ParseUint(tradeIDRaw, 10, 64)
	if err != nil {
		return market.TradeEvent{}, s.rowErr(market.ErrParseError, "invalid trade_id")
	}
	return market.TradeEvent{Price: price, Qty: qty, Side: side, TradeID: tradeID}, nil
}

func (s *CSVSource) parseQuote(col func(string) (string, bool)) (market.QuoteEvent, error) {
	bidPrice, err := s.parsePrice(col, "bid_price")
	if err != nil {
		return market.QuoteEvent{}, err
	}
	askPrice, err := s.parsePrice(col, "ask_price")
	if err != nil {
		return market.QuoteEvent{}, err
	}
	bidQty, err := s.parseQty(col, "bid_qty")
	if err != nil {
		return market.QuoteEvent{}, err
	}
	askQty, err := s.parseQty(col, "ask_qty")
	if err != nil {
		return market.QuoteEvent{}, err
	}
	return market.QuoteEvent{BidPrice: bidPrice, AskPrice: askPrice, BidQty: bidQty, AskQty: askQty}, nil
}

func (s *CSVSource) parseOrder(col func(string) (string, bool)) (market.OrderEvent, error) {
	idRaw, ok := col("order_id")
	if !ok {
		return market.OrderEvent{}, s.rowErr(market.ErrParseError, "missing order_id")
	}
	id, err := strconv.ParseUint(idRaw, 10, 64)
	if err != nil {
		return market.OrderEvent{}, s.rowErr(market.ErrParseError, "invalid order_id")
	}
	side, err := s.parseSide(col, "side")
	if err != nil {
		return market.OrderEvent{}, err
	}
	qty, err := s.parseQty(col, "qty")
	if err != nil {
		return market.OrderEvent{}, err
	}
	kindRaw, ok := col("kind")
	if !ok {
		return market.OrderEvent{}, s.rowErr(market.ErrParseError, "missing kind")
	}
	var kind book.Kind
	switch kindRaw {
	case "limit":
		kind = book.Limit
	case "market":
		kind = book.Market
	default:
		return market.OrderEvent{}, s.rowErr(market.ErrParseError, fmt.Sprintf("invalid kind %q", kindRaw))
	}
	var price book.Price
	if kind == book.Limit {
		price, err = s.parsePrice(col, "price")
		if err != nil {
			return market.OrderEvent{}, err
		}
	}
	return market.OrderEvent{OrderID: book.OrderID(id), Side: side, Qty: qty, Price: price, Kind: kind}, nil
}

func (s *CSVSource) parseCancel(col func(string) (string, bool)) (market.CancelEvent, error) {
	idRaw, ok := col("order_id")
	if !ok {
		return market.CancelEvent{}, s.rowErr(market.ErrParseError, "missing order_id")
	}
	id, err := strconv.ParseUint(idRaw, 10, 64)
	if err != nil {
		return market.CancelEvent{}, s.rowErr(market.ErrParseError, "invalid order_id")
	}
	reason, _ := col("reason")
	return market.CancelEvent{OrderID: book.OrderID(id), Reason: reason}, nil
}

func (s *CSVSource) parsePrice(col func(string) (string, bool), name string) (book.Price, error) {
	raw, ok := col(name)
	if !ok {
		return 0, s.rowErr(market.ErrParseError, "missing "+name)
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, s.rowErr(market.ErrParseError, "invalid "+name)
	}
	return book.Price(v), nil
}

func (s *CSVSource) parseQty(col func(string) (string, bool), name string) (book.Qty, error) {
	raw, ok := col(name)
	if !ok {
		return 0, s.rowErr(market.ErrParseError, "missing "+name)
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, s.rowErr(market.ErrParseError, "invalid "+name)
	}
	return book.Qty(v), nil
}

func (s *CSVSource) parseSide(col func(string) (string, bool), name string) (book.Side, error) {
	raw, ok := col(name)
	if !ok {
		return 0, s.rowErr(market.ErrParseError, "missing "+name)
	}
	switch raw {
	case "buy":
		return book.Buy, nil
	case "sell":
		return book.Sell, nil
	default:
		return 0, s.rowErr(market.ErrParseError, fmt.Sprintf("invalid %s %q", name, raw))
	}
}

// waitForSchedule blocks until wall-clock time reaches the scheduled
// moment for tsNs under the current playback speed. It is the only
// sanctioned blocking point in the driver loop, and it is cancellable
// via ctx.
func (s *CSVSource) waitForSchedule(ctx context.Context, tsNs uint64) error {
	if math.IsInf(s.speed, 1) {
		return nil
	}
	if !s.haveBase {
		s.baseWall = time.Now()
		s.baseEventTs = tsNs
		s.haveBase = true
		return nil
	}

	var deltaEvent int64
	if tsNs >= s.baseEventTs {
		deltaEvent = int64(tsNs - s.baseEventTs)
	}
	target := s.baseWall.Add(time.Duration(float64(deltaEvent) / s.speed))
	wait := time.Until(target)
	if wait <= 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SetPlaybackSpeed sets the wall-clock multiplier. multiplier must be
// > 0; use math.Inf(1) for "as fast as possible".
func (s *CSVSource) SetPlaybackSpeed(multiplier float64) error {
	if multiplier <= 0 {
		return fmt.Errorf("replay: playback speed must be > 0, got %v", multiplier)
	}
	s.speed = multiplier
	return nil
}

// SeekToTime advances the cursor to the first event with timestamp >=
// tsNs. When a TimestampIndex is attached it jumps directly; otherwise
// it rescans from the start of the data.
func (s *CSVSource) SeekToTime(ctx context.Context, tsNs uint64) error {
	if s.index != nil {
		if offset, ok, err := s.index.Lookup(tsNs); err == nil && ok {
			return s.seekToOffset(offset)
		}
	}
	return s.seekLinear(tsNs)
}

func (s *CSVSource) seekLinear(target uint64) error {
	if err := s.seekToOffset(s.dataStartOffset); err != nil {
		return err
	}
	tsCol, ok := s.header["timestamp"]
	if !ok {
		return fmt.Errorf("%w: csv header missing timestamp column", market.ErrSchemaError)
	}

	for {
		offset := s.byteOffset
		line, readErr := s.br.ReadString('\n')
		s.byteOffset += int64(len(line))
		if line == "" && readErr != nil {
			s.finished = true
			return nil
		}
		cols := strings.Split(strings.TrimRight(line, "\r\n"), ",")
		if tsCol >= len(cols) {
			continue
		}
		ts, err := strconv.ParseUint(cols[tsCol], 10, 64)
		if err != nil {
			continue
		}
		if ts >= target {
			return s.seekToOffset(offset)
		}
	}
}

func (s *CSVSource) seekToOffset(offset int64) error {
	if _, err := s.f.Seek(offset, io.SeekStart); err != nil {
		return fmt.Errorf("%w: %v", market.ErrIoError, err)
	}
	s.br = bufio.NewReader(s.f)
	s.byteOffset = offset
	s.finished = false
	s.haveBase = false
	return nil
}

// IsFinished reports whether NextEvent has returned ErrEndOfStream.
func (s *CSVSource) IsFinished() bool { return s.finished }

// Close releases the underlying file handle.
func (s *CSVSource) Close() error { return s.f.Close() }
