// Package broadcaster fans engine output — trades and depth snapshots
// — out to external consumers: a Kafka trade tape, a raw depth-snapshot
// topic, and a websocket feed for live viewers.
package broadcaster

import (
	"encoding/json"
	"strconv"

	"github.com/IBM/sarama"
	"github.com/sirupsen/logrus"

	"tickbook/domain/book"
	"tickbook/infra/sequence"
)

// TradeEvent is the wire shape published to the trade-tape topic, one
// per execution. SeqID is assigned by the publisher's own sequencer,
// not the engine, so a consumer can detect a gap in the tape even
// though the engine itself never numbers trades.
type TradeEvent struct {
	SeqID   uint64 `json:"seq_id"`
	TakerID uint64 `json:"taker_id"`
	MakerID uint64 `json:"maker_id"`
	Price   int64  `json:"price"`
	Qty     uint64 `json:"qty"`
	TsNs    uint64 `json:"ts_ns"`
}

// TradePublisher implements driver.TradeSink by publishing every fill
// to a Kafka topic with sarama's synchronous producer, so OnTrades
// returns only once each message has been acknowledged or has failed.
// A failed send is logged and dropped; the caller is not told.
type TradePublisher struct {
	producer sarama.SyncProducer
	topic    string
	log      *logrus.Logger
	seq      *sequence.Sequencer
}

// NewTradePublisher dials brokers and returns a ready TradePublisher.
func NewTradePublisher(brokers []string, topic string, log *logrus.Logger) (*TradePublisher, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &TradePublisher{producer: producer, topic: topic, log: log, seq: sequence.New(0)}, nil
}

// OnTrades publishes each trade as its own message, keyed on maker id
// so all fills against the same resting order land on the same
// partition and preserve their relative order.
func (p *TradePublisher) OnTrades(trades []book.Trade) {
	for _, t := range trades {
		payload, err := json.Marshal(TradeEvent{
			SeqID:   p.seq.Next(),
			TakerID: uint64(t.TakerID),
			MakerID: uint64(t.MakerID),
			Price:   int64(t.Price),
			Qty:     uint64(t.Qty),
			TsNs:    t.Ts.Nanos(),
		})
		if err != nil {
			p.log.WithError(err).Error("failed to marshal trade event")
			continue
		}
		msg := &sarama.ProducerMessage{
			Topic: p.topic,
			Key:   sarama.StringEncoder(strconv.FormatUint(uint64(t.MakerID), 10)),
			Value: sarama.ByteEncoder(payload),
		}
		if _, _, err := p.producer.SendMessage(msg); err != nil {
			p.log.WithFields(logrus.Fields{"maker_id": t.MakerID, "err": err}).Warn("dropped trade-tape message")
		}
	}
}

// Close shuts down the underlying producer.
func (p *TradePublisher) Close() error {
	return p.producer.Close()
}
