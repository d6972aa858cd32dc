// Package telemetry streams pipeline events to Kafka so dashboards can
// follow runs live. Delivery is best effort; the pipeline never blocks on
// telemetry.
package telemetry

import (
	"encoding/json"
	"log"
	"time"

	"github.com/IBM/sarama"

	"medscribe/types"
)

// Producer publishes run events to a single topic, keyed by run id so one
// run's events stay ordered within a partition.
type Producer struct {
	producer sarama.SyncProducer
	topic    string
}

// NewProducer connects a synchronous producer to the given brokers.
func NewProducer(brokers []string, topic string) (*Producer, error) {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V3_6_0_0
	cfg.Producer.RequiredAcks = sarama.WaitForLocal
	cfg.Producer.Retry.Max = 3
	cfg.Producer.Return.Successes = true
	cfg.Producer.Timeout = 5 * time.Second

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}
	return &Producer{producer: producer, topic: topic}, nil
}

// Emit publishes one log entry. Errors are logged and swallowed.
func (p *Producer) Emit(entry types.LogEntry) {
	payload, err := json.Marshal(entry)
	if err != nil {
		log.Printf("telemetry: marshal event: %v", err)
		return
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Value: sarama.ByteEncoder(payload),
	}
	if runID := entry.Metadata["run_id"]; runID != "" {
		msg.Key = sarama.StringEncoder(runID)
	}

	if _, _, err := p.producer.SendMessage(msg); err != nil {
		log.Printf("telemetry: send event: %v", err)
	}
}

// Sink adapts the producer to the pipeline's log sink signature.
func (p *Producer) Sink() func(types.LogEntry) {
	return p.Emit
}

// Close flushes and shuts down the producer.
func (p *Producer) Close() error {
	return p.producer.Close()
}
