// internal/infra/queue/producer.go
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"birthday_notification_service/internal/app"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// Producer publishes due-notification messages to a Kafka topic. It is
// the dispatcher's Publisher when the producer/consumer split is on.
type Producer struct {
	writer *kafka.Writer
	logger *logrus.Entry
}

func NewProducer(brokers []string, topic string, logger *logrus.Entry) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.Hash{},
		},
		logger: logger,
	}
}

// PublishBatch writes one message per due occurrence, keyed by user ID
// so all occurrences of one user land on one partition.
func (p *Producer) PublishBatch(ctx context.Context, msgs []app.OutboundMessage) error {
	if len(msgs) == 0 {
		return nil
	}

	kafkaMsgs := make([]kafka.Message, 0, len(msgs))
	for _, m := range msgs {
		value, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("failed to marshal outbound message for occurrence %d: %w", m.OccurrenceID, err)
		}
		kafkaMsgs = append(kafkaMsgs, kafka.Message{
			Key:   []byte(strconv.FormatInt(m.UserID, 10)),
			Value: value,
		})
	}

	if err := p.writer.WriteMessages(ctx, kafkaMsgs...); err != nil {
		return fmt.Errorf("failed to write messages: %w", err)
	}
	p.logger.Infof("Published %d messages to topic %s.", len(kafkaMsgs), p.writer.Topic)
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
