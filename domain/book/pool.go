package book

import "tickbook/infra/memory"

// orderLifecycle owns the pool/retire-ring pair backing resting order
// memory. An order removed from the book (full fill or cancel) is
// never freed directly on the writer's hot path: it is pushed onto
// the retire ring and only returned to the pool once AdvanceEpoch
// confirms no reader snapshot could still be observing it. A
// long-lived reader can only ever delay reclamation of
// already-departed orders, never grow the book's own memory
// footprint.
type orderLifecycle struct {
	pool   *memory.Pool[Order]
	retire *memory.RetireRing
	reader *memory.ReaderEpoch
}

func newOrderLifecycle() *orderLifecycle {
	return &orderLifecycle{
		pool:   memory.NewPool(func() *Order { return &Order{} }),
		retire: memory.NewRetireRing(4096),
		reader: &memory.ReaderEpoch{},
	}
}

func (m *orderLifecycle) alloc(o Order) *Order {
	obj := m.pool.Get()
	*obj = o
	obj.next, obj.prev = nil, nil
	return obj
}

func (m *orderLifecycle) retireOrder(o *Order) {
	o.next, o.prev = nil, nil
	if !m.retire.Enqueue(o) {
		// Ring saturated: fall back to letting the GC reclaim it
		// rather than blocking the single writer.
		return
	}
}

// beginRead / endRead bracket a Snapshot call so AdvanceEpoch knows no
// retired order is still visible to an in-flight reader.
func (m *orderLifecycle) beginRead() { m.reader.Enter() }
func (m *orderLifecycle) endRead()   { m.reader.Exit() }

// AdvanceEpoch is invoked periodically (e.g. by the engine driver) to
// drain the retire ring back into the pool.
func (m *orderLifecycle) advanceEpoch() {
	memory.AdvanceEpochAndReclaim(m.retire, m.pool, m.reader)
}
