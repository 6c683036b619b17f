package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/confluentinc/confluent-kafka-go/kafka"

	"github.com/spacesedan/sentiserve/internal/models"
)

const (
	produceRetries = 3
	flushTimeoutMs = 5000
)

// MessageProducer is the part of *kafka.Producer the notifier uses.
type MessageProducer interface {
	Produce(msg *kafka.Message, deliveryChan chan kafka.Event) error
	Flush(timeoutMs int) int
	Close()
}

type KafkaNotifier struct {
	producer MessageProducer
	topic    string
}

func NewKafkaProducer(broker string) (*kafka.Producer, error) {
	slog.Info("[KafkaNotifier] Initializing Kafka Producer...",
		slog.String("broker", broker))

	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers":   broker,
		"security.protocol":   "PLAINTEXT",
		"api.version.request": "true",
		"enable.idempotence":  true,
		"acks":                "all",
	})
	if err != nil {
		return nil, fmt.Errorf("[KafkaNotifier] Failed to create producer: %w", err)
	}

	slog.Info("[KafkaNotifier] Kafka Producer initialized successfully")
	return p, nil
}

func NewKafkaNotifier(producer MessageProducer, topic string) *KafkaNotifier {
	return &KafkaNotifier{producer: producer, topic: topic}
}

// BatchCompleted produces the completion as JSON keyed by batch id and
// waits for its delivery report.
func (n *KafkaNotifier) BatchCompleted(ctx context.Context, c models.BatchCompletion) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("[KafkaNotifier] failed to marshal completion: %w", err)
	}

	msg := &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &n.topic, Partition: kafka.PartitionAny},
		Key:            []byte(c.BatchID),
		Value:          data,
	}

	delivery := make(chan kafka.Event, 1)
	for i := 0; i < produceRetries; i++ {
		err = n.producer.Produce(msg, delivery)
		if err == nil {
			break
		}
		slog.Warn("[KafkaNotifier] Failed to produce message, retrying...",
			slog.Int("attempt", i+1),
			slog.String("error", err.Error()))
	}
	if err != nil {
		return fmt.Errorf("[KafkaNotifier] failed to produce after %d attempts: %w", produceRetries, err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case ev := <-delivery:
		if m, ok := ev.(*kafka.Message); ok && m.TopicPartition.Error != nil {
			return fmt.Errorf("[KafkaNotifier] delivery failed: %w", m.TopicPartition.Error)
		}
	}

	slog.Info("[KafkaNotifier] Published batch completion",
		slog.String("topic", n.topic),
		slog.String("batch_id", c.BatchID))
	return nil
}

func (n *KafkaNotifier) Close() {
	slog.Info("[KafkaNotifier] Flushing Kafka producer before shutdown...")
	if remaining := n.producer.Flush(flushTimeoutMs); remaining > 0 {
		slog.Warn("[KafkaNotifier] Not all messages were delivered before shutdown",
			slog.Int("remaining", remaining))
	}
	n.producer.Close()
}
