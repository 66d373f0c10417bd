package broadcaster

import "tickbook/domain/book"

// MultiPublisher fans a single driver.SnapshotPublisher call out to
// several targets — the local handoff slot, the Kafka snapshot topic,
// the websocket hub — so the driver only needs to hold one publisher.
type MultiPublisher struct {
	targets []interface {
		Publish(*book.DepthSnapshot, []book.SpreadSample)
	}
}

// NewMultiPublisher combines any number of snapshot targets.
func NewMultiPublisher(targets ...interface {
	Publish(*book.DepthSnapshot, []book.SpreadSample)
}) *MultiPublisher {
	return &MultiPublisher{targets: targets}
}

// Publish forwards snap and spreads to every target in order.
func (m *MultiPublisher) Publish(snap *book.DepthSnapshot, spreads []book.SpreadSample) {
	for _, t := range m.targets {
		t.Publish(snap, spreads)
	}
}
