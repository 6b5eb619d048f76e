// internal/infra/queue/consumer.go
package queue

import (
	"context"
	"encoding/json"
	"errors"

	"birthday_notification_service/internal/app"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// Consumer reads published notification messages and delivers them.
// Status transitions go through the shared Deliverer, so the retry cap
// and the terminal-state rules are the same as in-process dispatch.
type Consumer struct {
	reader    *kafka.Reader
	deliverer *app.Deliverer
	logger    *logrus.Entry
}

func NewConsumer(brokers []string, topic, groupID string, d *app.Deliverer, logger *logrus.Entry) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers: brokers,
			Topic:   topic,
			GroupID: groupID,
		}),
		deliverer: d,
		logger:    logger,
	}
}

// Run consumes until the context is cancelled. Messages are committed
// whether or not delivery succeeded: failure accounting lives in the
// occurrence row, not in Kafka offsets, so a poisoned message never
// blocks the partition.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Infof("Queue consumer started on topic %s.", c.reader.Config().Topic)
	defer c.reader.Close()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				c.logger.Info("Queue consumer stopped.")
				return nil
			}
			return err
		}

		var out app.OutboundMessage
		if err := json.Unmarshal(msg.Value, &out); err != nil {
			c.logger.Errorf("Skipping undecodable message at offset %d: %v", msg.Offset, err)
		} else {
			c.deliverer.Deliver(ctx, out.OccurrenceID, out.FirstName, out.LastName)
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Errorf("Failed to commit offset %d: %v", msg.Offset, err)
		}
	}
}
