package events

import (
	"context"
	"encoding/json"
	"time"

	kafkaGo "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// KafkaPublisher writes event envelopes to a topic keyed by event type.
type KafkaPublisher struct {
	writer *kafkaGo.Writer
	logger *zap.Logger
}

func NewKafkaPublisher(brokers []string, topic string, logger *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafkaGo.Writer{
			Addr:         kafkaGo.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafkaGo.LeastBytes{},
			Async:        true,
			BatchTimeout: 50 * time.Millisecond,
			Completion: func(messages []kafkaGo.Message, err error) {
				if err != nil {
					logger.Error("failed to deliver events to kafka",
						zap.Int("count", len(messages)),
						zap.Error(err))
				}
			},
		},
		logger: logger,
	}
}

func (k *KafkaPublisher) Publish(ctx context.Context, evs ...Event) {
	msgs := make([]kafkaGo.Message, 0, len(evs))
	for _, e := range evs {
		payload, err := json.Marshal(NewEnvelope(e))
		if err != nil {
			k.logger.Error("failed to marshal event", zap.String("event", e.EventType()), zap.Error(err))
			continue
		}
		msgs = append(msgs, kafkaGo.Message{Key: []byte(e.EventType()), Value: payload})
	}
	if len(msgs) == 0 {
		return
	}
	// Async writer: errors surface through Completion.
	if err := k.writer.WriteMessages(ctx, msgs...); err != nil {
		k.logger.Error("failed to enqueue events for kafka", zap.Error(err))
	}
}

func (k *KafkaPublisher) Close() error {
	return k.writer.Close()
}
