package broadcaster

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"tickbook/domain/book"
)

// SnapshotProducer implements driver.SnapshotPublisher by pushing each
// published depth snapshot onto a raw Kafka topic with kafka-go,
// separate from the sarama-backed trade tape so a slow snapshot
// consumer can never back-pressure trade delivery.
type SnapshotProducer struct {
	writer *kafka.Writer
	log    *logrus.Logger
}

// NewSnapshotProducer dials brokers for the given topic.
func NewSnapshotProducer(brokers []string, topic string, log *logrus.Logger) *SnapshotProducer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &SnapshotProducer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			RequiredAcks: kafka.RequireOne,
			Async:        true,
			BatchTimeout: 10 * time.Millisecond,
		},
		log: log,
	}
}

// snapshotWireMessage is the payload written to the raw snapshot
// topic: the depth snapshot plus the driver's bounded spread history
// (its most recent samples, oldest first).
type snapshotWireMessage struct {
	Snapshot *book.DepthSnapshot `json:"snapshot"`
	Spreads  []book.SpreadSample `json:"spreads,omitempty"`
}

// Publish marshals snap and spreads and writes them asynchronously;
// snapshot fan-out is best-effort, so a write error is logged rather
// than surfaced to the driver loop.
func (p *SnapshotProducer) Publish(snap *book.DepthSnapshot, spreads []book.SpreadSample) {
	payload, err := json.Marshal(snapshotWireMessage{Snapshot: snap, Spreads: spreads})
	if err != nil {
		p.log.WithError(err).Error("failed to marshal snapshot")
		return
	}
	err = p.writer.WriteMessages(context.Background(), kafka.Message{Value: payload})
	if err != nil {
		p.log.WithError(err).Warn("dropped snapshot broadcast")
	}
}

// Close shuts down the underlying writer.
func (p *SnapshotProducer) Close() error {
	return p.writer.Close()
}
