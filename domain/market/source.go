package market

import (
	"context"
	"errors"
)

// Data-source error taxonomy. IoError is fatal to the source that
// raised it; ParseError and SchemaError are row-level and recoverable;
// EndOfStream is terminal but not a failure.
var (
	ErrIoError     = errors.New("market: io error")
	ErrParseError  = errors.New("market: parse error")
	ErrSchemaError = errors.New("market: schema error")
	ErrEndOfStream = errors.New("market: end of stream")
)

// RowError wraps a recoverable per-row failure with the input line it
// came from, so callers can log-and-continue with useful context.
type RowError struct {
	Line int
	Err  error
}

func (e *RowError) Error() string { return e.Err.Error() }
func (e *RowError) Unwrap() error { return e.Err }

// DataSource produces a time-ordered sequence of MarketEvents. All
// methods operate on a single cursor; a DataSource is not safe for
// concurrent use by multiple goroutines. NextEvent returning
// ErrEndOfStream is the sole non-error terminal condition; a *RowError
// wrapping ErrParseError or ErrSchemaError is recoverable and the
// cursor has already advanced past the bad row.
type DataSource interface {
	// NextEvent returns the next event, or an error. Recoverable
	// row-level failures are returned as *RowError; the caller may
	// call NextEvent again to continue past them.
	NextEvent(ctx context.Context) (MarketEvent, error)

	// SeekToTime advances the cursor to the first event with
	// timestamp >= tsNs. Deterministic and idempotent.
	SeekToTime(ctx context.Context, tsNs uint64) error

	// SetPlaybackSpeed sets the wall-clock multiplier applied to the
	// gap between consecutive event timestamps. 1.0 is real-time,
	// values > 1.0 replay faster, and math.Inf(1) means as fast as
	// possible. Multiplier must be > 0.
	SetPlaybackSpeed(multiplier float64) error

	// IsFinished reports whether NextEvent has already returned
	// ErrEndOfStream.
	IsFinished() bool

	// Close releases any resources (open files, index handles) held
	// by the source.
	Close() error
}
