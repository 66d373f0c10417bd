package rpcapi

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tickbook/domain/book"
	"tickbook/domain/driver"
	"tickbook/domain/market"
	"tickbook/infra/snaphandoff"
)

type noopSource struct{ stop chan struct{} }

func (s *noopSource) NextEvent(ctx context.Context) (market.MarketEvent, error) {
	select {
	case <-s.stop:
		return market.MarketEvent{}, market.ErrEndOfStream
	case <-ctx.Done():
		return market.MarketEvent{}, ctx.Err()
	}
}
func (s *noopSource) SeekToTime(ctx context.Context, tsNs uint64) error { return nil }
func (s *noopSource) SetPlaybackSpeed(multiplier float64) error        { return nil }
func (s *noopSource) IsFinished() bool                                 { return false }
func (s *noopSource) Close() error                                     { return nil }

func startTestDriver(t *testing.T) (*driver.Driver, *snaphandoff.Slot, func()) {
	t.Helper()
	src := &noopSource{stop: make(chan struct{})}
	engine := book.NewBook()
	slot := &snaphandoff.Slot{}
	d := driver.New(src, engine, nil, slot, 0, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	stop := func() {
		close(src.stop)
		cancel()
		<-done
	}
	return d, slot, stop
}

func TestServer_PlaceOrderThenCancel(t *testing.T) {
	d, slot, stop := startTestDriver(t)
	defer stop()

	s := NewServer(d, slot, 10)

	resp, err := s.PlaceOrder(context.Background(), &PlaceOrderRequest{
		OrderID: 1, Side: book.Buy, Kind: book.Limit, Price: 100, Qty: 5,
	})
	require.NoError(t, err)
	assert.Empty(t, resp.Trades)

	cancelResp, err := s.CancelOrder(context.Background(), &CancelOrderRequest{OrderID: 1})
	require.NoError(t, err)
	assert.Equal(t, book.Qty(5), cancelResp.RemovedQty)
}

func TestServer_PlaceOrderCrossProducesTrade(t *testing.T) {
	d, slot, stop := startTestDriver(t)
	defer stop()

	s := NewServer(d, slot, 10)

	_, err := s.PlaceOrder(context.Background(), &PlaceOrderRequest{
		OrderID: 1, Side: book.Sell, Kind: book.Limit, Price: 100, Qty: 5,
	})
	require.NoError(t, err)

	resp, err := s.PlaceOrder(context.Background(), &PlaceOrderRequest{
		OrderID: 2, Side: book.Buy, Kind: book.Limit, Price: 100, Qty: 5,
	})
	require.NoError(t, err)
	require.Len(t, resp.Trades, 1)
	assert.Equal(t, book.OrderID(1), resp.Trades[0].MakerID)
}

func TestServer_CancelUnknownOrderReturnsNotFound(t *testing.T) {
	d, slot, stop := startTestDriver(t)
	defer stop()

	s := NewServer(d, slot, 10)
	_, err := s.CancelOrder(context.Background(), &CancelOrderRequest{OrderID: 999})
	require.Error(t, err)
}

func TestServer_GetSnapshotBeforeAnyPublishIsEmpty(t *testing.T) {
	slot := &snaphandoff.Slot{}
	s := &Server{cmds: make(chan driver.Command, 1), snaps: slot, defaultDepth: 10}

	resp, err := s.GetSnapshot(context.Background(), &GetSnapshotRequest{})
	require.NoError(t, err)
	assert.Nil(t, resp.BestBid)
	assert.Empty(t, resp.Bids)
}

func TestServer_GetSnapshotTruncatesToDepth(t *testing.T) {
	d, slot, stop := startTestDriver(t)
	defer stop()

	s := NewServer(d, slot, 1)
	for i, price := range []book.Price{101, 102, 103} {
		_, err := s.PlaceOrder(context.Background(), &PlaceOrderRequest{
			OrderID: book.OrderID(i + 1), Side: book.Sell, Kind: book.Limit, Price: price, Qty: 1,
		})
		require.NoError(t, err)
	}

	resp, err := s.GetSnapshot(context.Background(), &GetSnapshotRequest{})
	require.NoError(t, err)
	require.Len(t, resp.Asks, 1)
	assert.Equal(t, book.Price(101), resp.Asks[0].Price)
}

func TestServer_SubmitTimesOutWhenDriverUnavailable(t *testing.T) {
	s := &Server{cmds: make(chan driver.Command), snaps: &snaphandoff.Slot{}, defaultDepth: 10}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := s.submit(ctx, driver.Command{})
	require.Error(t, err)
}
