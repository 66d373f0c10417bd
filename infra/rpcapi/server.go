// Package rpcapi is the operator-facing gRPC surface: PlaceOrder,
// CancelOrder, and GetSnapshot. It has no protoc-generated stubs to
// build against, so it defines its own grpc.ServiceDesc by hand and
// forces the JSON codec in jsonCodec, trading protobuf's compactness
// for a service that a hand-written client can drive with plain JSON
// bodies over HTTP/2.
package rpcapi

import (
	"context"
	"errors"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"tickbook/domain/book"
	"tickbook/domain/driver"
	"tickbook/infra/snaphandoff"
)

// CommandTimeout bounds how long a request waits for the driver
// goroutine to service a submitted Command before failing with
// codes.Unavailable (command not accepted in time) or
// codes.DeadlineExceeded (accepted but not answered in time). The
// driver services its Commands channel on
// every loop iteration, so this only trips if the driver has stalled
// or its channel is saturated.
const CommandTimeout = 2 * time.Second

// Server implements the OrderService RPCs against a driver.Driver.
// Mutating calls are submitted through the driver's Commands channel
// so they execute on the driver's single writer goroutine, exactly
// like replayed events; GetSnapshot reads the most recently published
// snapshot straight out of the handoff slot with no locking.
type Server struct {
	cmds         chan<- driver.Command
	snaps        *snaphandoff.Slot
	defaultDepth int
}

// NewServer builds a Server bound to a running driver's command
// channel and its snapshot-handoff slot.
func NewServer(d *driver.Driver, snaps *snaphandoff.Slot, defaultDepth int) *Server {
	return &Server{cmds: d.Commands(), snaps: snaps, defaultDepth: defaultDepth}
}

func (s *Server) PlaceOrder(ctx context.Context, req *PlaceOrderRequest) (*PlaceOrderResponse, error) {
	order := book.Order{
		ID:    req.OrderID,
		Side:  req.Side,
		Kind:  req.Kind,
		Price: req.Price,
		Qty:   req.Qty,
		Ts:    book.NewTimestamp(uint64(time.Now().UnixNano())),
	}
	res, err := s.submit(ctx, driver.Command{Place: &order})
	if err != nil {
		return nil, err
	}
	if res.Err != nil {
		return nil, domainErrToStatus(res.Err)
	}
	return &PlaceOrderResponse{Trades: tradesFromDomain(res.Trades)}, nil
}

func (s *Server) CancelOrder(ctx context.Context, req *CancelOrderRequest) (*CancelOrderResponse, error) {
	id := req.OrderID
	res, err := s.submit(ctx, driver.Command{Cancel: &id})
	if err != nil {
		return nil, err
	}
	if res.Err != nil {
		return nil, domainErrToStatus(res.Err)
	}
	return &CancelOrderResponse{RemovedQty: res.Qty}, nil
}

func (s *Server) GetSnapshot(ctx context.Context, req *GetSnapshotRequest) (*GetSnapshotResponse, error) {
	snap, spreads, ok := s.snaps.Load()
	if !ok {
		return &GetSnapshotResponse{}, nil
	}
	resp := snapshotFromDomain(snap)
	resp.Spreads = spreadsFromDomain(spreads)
	depth := req.Depth
	if depth <= 0 {
		depth = s.defaultDepth
	}
	if depth > 0 {
		if len(resp.Bids) > depth {
			resp.Bids = resp.Bids[:depth]
		}
		if len(resp.Asks) > depth {
			resp.Asks = resp.Asks[:depth]
		}
	}
	return &resp, nil
}

func (s *Server) submit(ctx context.Context, cmd driver.Command) (driver.CommandResult, error) {
	result := make(chan driver.CommandResult, 1)
	cmd.Result = result

	timeout, cancel := context.WithTimeout(ctx, CommandTimeout)
	defer cancel()

	select {
	case s.cmds <- cmd:
	case <-timeout.Done():
		return driver.CommandResult{}, status.Error(codes.Unavailable, "driver did not accept command in time")
	}

	select {
	case res := <-result:
		return res, nil
	case <-timeout.Done():
		return driver.CommandResult{}, status.Error(codes.DeadlineExceeded, "driver did not respond in time")
	}
}

func domainErrToStatus(err error) error {
	switch {
	case errors.Is(err, book.ErrDuplicateOrder):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, book.ErrUnknownOrder):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, book.ErrInvalidPrice), errors.Is(err, book.ErrInvalidQty):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, book.ErrNoLiquidity):
		return status.Error(codes.FailedPrecondition, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// orderServiceHandler is the marker interface grpc.Server.RegisterService
// checks the registered implementation against; Server satisfies it
// trivially since it declares no methods of its own.
type orderServiceHandler interface{}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: "tickbook.OrderService",
	HandlerType: (*orderServiceHandler)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "PlaceOrder", Handler: placeOrderHandler},
		{MethodName: "CancelOrder", Handler: cancelOrderHandler},
		{MethodName: "GetSnapshot", Handler: getSnapshotHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "infra/rpcapi/server.go",
}

func placeOrderHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(PlaceOrderRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*Server).PlaceOrder(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/tickbook.OrderService/PlaceOrder"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(*Server).PlaceOrder(ctx, req.(*PlaceOrderRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func cancelOrderHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(CancelOrderRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*Server).CancelOrder(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/tickbook.OrderService/CancelOrder"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(*Server).CancelOrder(ctx, req.(*CancelOrderRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func getSnapshotHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(GetSnapshotRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*Server).GetSnapshot(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/tickbook.OrderService/GetSnapshot"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(*Server).GetSnapshot(ctx, req.(*GetSnapshotRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// NewGRPCServer builds a *grpc.Server with the OrderService registered
// and the JSON codec forced for every call, then hands it back so the
// caller controls when to Serve and how to shut it down.
func NewGRPCServer(impl *Server) *grpc.Server {
	srv := grpc.NewServer(grpc.ForceServerCodec(jsonCodec{}))
	srv.RegisterService(&serviceDesc, impl)
	return srv
}
