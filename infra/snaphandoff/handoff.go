// Package snaphandoff implements a writer-publishes /
// readers-atomically-read discipline instead of
// locking the live book: the driver publishes an immutable
// book.DepthSnapshot, together with the current spread history, to a
// shared slot after every processed event and every executed command,
// and any number of readers may
// load it concurrently without ever touching the live book.
package snaphandoff

import (
	"sync/atomic"

	"tickbook/domain/book"
)

// published is one atomically swapped (snapshot, spread history) pair.
type published struct {
	snap    *book.DepthSnapshot
	spreads []book.SpreadSample
}

// Slot holds the most recently published snapshot. The zero value is
// ready to use and starts out empty (Load returns nil, nil, false).
type Slot struct {
	current atomic.Pointer[published]
}

// Publish makes snap and spreads the current values, visible to any
// subsequent Load. Only the driver goroutine should call this.
func (s *Slot) Publish(snap *book.DepthSnapshot, spreads []book.SpreadSample) {
	s.current.Store(&published{snap: snap, spreads: spreads})
}

// Load returns the most recently published snapshot and spread
// history, or (nil, nil, false) if nothing has been published yet.
// Safe for any number of concurrent callers.
func (s *Slot) Load() (*book.DepthSnapshot, []book.SpreadSample, bool) {
	p := s.current.Load()
	if p == nil {
		return nil, nil, false
	}
	return p.snap, p.spreads, true
}
