package events

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"
)

// TransfersTopic is the topic transfer events are published to.
const TransfersTopic = "ledger.transfers"

// KafkaPublisher delivers transfer events to a Kafka topic.
type KafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisher builds a publisher writing to TransfersTopic on the given
// brokers.
func NewKafkaPublisher(brokers []string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    TransfersTopic,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

// Publish serializes the event as JSON keyed by user id.
func (p *KafkaPublisher) Publish(ctx context.Context, event TransferRecorded) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.UserID),
		Value: data,
	})
}

// Close flushes and closes the underlying writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
