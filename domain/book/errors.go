package book

import "errors"

// Engine errors. All are caller errors: none indicate internal
// corruption, and on any of them the book is left completely
// unchanged.
var (
	ErrDuplicateOrder = errors.New("book: order id already live")
	ErrUnknownOrder   = errors.New("book: unknown order id")
	ErrInvalidQty     = errors.New("book: quantity must be > 0")
	ErrInvalidPrice   = errors.New("book: limit price must be > 0")

	// ErrNoLiquidity is returned by Place for a Market order that
	// matched nothing at all, when the book is constructed with
	// WithNoLiquidityIsError. The default keeps the silent no-op
	// behavior and this error is opt-in.
	ErrNoLiquidity = errors.New("book: market order found no contra-side liquidity")
)
