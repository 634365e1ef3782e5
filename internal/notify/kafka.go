package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/paddockpulse/stablehand/internal/logging"
)

// KafkaOptions configures the downstream event topic.
type KafkaOptions struct {
	Brokers []string
	Topic   string
}

// KafkaAdapter publishes events to a Kafka topic, keyed by session so a
// session's events land on one partition in order.
type KafkaAdapter struct {
	writer *kafka.Writer
	log    *logging.Logger
}

func NewKafkaAdapter(opts KafkaOptions, log *logging.Logger) *KafkaAdapter {
	return &KafkaAdapter{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(opts.Brokers...),
			Topic:    opts.Topic,
			Balancer: &kafka.LeastBytes{},
		},
		log: log.Sub("notify.kafka"),
	}
}

func (a *KafkaAdapter) Name() string { return "kafka" }

func (a *KafkaAdapter) Notify(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	key := ev.SessionID
	if key == "" {
		key = ev.Kind
	}

	if err := a.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: data,
	}); err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}

	a.log.Debug().Str("kind", ev.Kind).Str("key", key).Msg("notification published")
	return nil
}

// Close flushes and closes the underlying writer.
func (a *KafkaAdapter) Close() error {
	return a.writer.Close()
}
