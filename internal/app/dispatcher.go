// internal/app/dispatcher.go
package app

import (
	"context"
	"fmt"
	"time"

	"birthday_notification_service/internal/domain/schedule"

	"github.com/sirupsen/logrus"
)

// OutboundMessage is the payload handed to a queue publisher when
// selection and delivery are split across processes.
type OutboundMessage struct {
	OccurrenceID int64  `json:"notificationId"`
	UserID       int64  `json:"userId"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
}

// Publisher hands a batch of due notifications to a message queue for a
// separate consumer process to deliver.
type Publisher interface {
	PublishBatch(ctx context.Context, msgs []OutboundMessage) error
}

// DispatchResult reports what one dispatch window did, for the periodic
// trigger's logs.
type DispatchResult struct {
	Found     int
	Sent      int
	Failed    int
	Published int
}

// Dispatcher finds due occurrences inside a time window and delivers
// them, either in-process through the Deliverer or by publishing to a
// queue when a Publisher is configured.
type Dispatcher struct {
	scheduleRepo schedule.Repository
	deliverer    *Deliverer
	publisher    Publisher // nil means deliver in-process
	logger       *logrus.Entry
}

func NewDispatcher(sr schedule.Repository, d *Deliverer, pub Publisher, logger *logrus.Entry) *Dispatcher {
	return &Dispatcher{
		scheduleRepo: sr,
		deliverer:    d,
		publisher:    pub,
		logger:       logger,
	}
}

// Dispatch processes all pending occurrences due in [from, to]. A
// failure on one occurrence never aborts the rest of the batch, and
// every transition is persisted as it happens so a crash mid-batch
// leaves correctly-attributed partial progress.
func (d *Dispatcher) Dispatch(ctx context.Context, from, to time.Time) (DispatchResult, error) {
	result := DispatchResult{}

	due, err := d.scheduleRepo.FindDueInRange(ctx, from, to)
	if err != nil {
		return result, fmt.Errorf("failed to find due occurrences: %w", err)
	}
	result.Found = len(due)
	if len(due) == 0 {
		return result, nil
	}
	d.logger.Infof("Found %d due occurrences in window [%s, %s].", len(due), from.Format(time.RFC3339), to.Format(time.RFC3339))

	if d.publisher != nil {
		result.Published = d.publish(ctx, due)
		return result, nil
	}

	for _, occ := range due {
		if occ.User == nil {
			// No matching user: malformed row, skip without retry.
			d.logger.Warnf("Occurrence %d has no associated user. Skipping.", occ.ID)
			continue
		}
		if err := d.scheduleRepo.MarkProcessing(ctx, []int64{occ.ID}); err != nil {
			d.logger.Errorf("Failed to mark occurrence %d processing: %v", occ.ID, err)
			continue
		}
		if d.deliverer.Deliver(ctx, occ.ID, occ.User.FirstName, occ.User.LastName) {
			result.Sent++
		} else {
			result.Failed++
		}
	}

	d.logger.Infof("Dispatch complete: %d found, %d sent, %d failed.", result.Found, result.Sent, result.Failed)
	return result, nil
}

// publish marks the whole batch processing and hands it to the queue.
// A publish failure leaves the rows in processing; the recovery sweep
// picks them up once they turn stale.
func (d *Dispatcher) publish(ctx context.Context, due []*schedule.Occurrence) int {
	ids := make([]int64, 0, len(due))
	msgs := make([]OutboundMessage, 0, len(due))
	for _, occ := range due {
		if occ.User == nil {
			d.logger.Warnf("Occurrence %d has no associated user. Skipping.", occ.ID)
			continue
		}
		ids = append(ids, occ.ID)
		msgs = append(msgs, OutboundMessage{
			OccurrenceID: occ.ID,
			UserID:       occ.UserID,
			FirstName:    occ.User.FirstName,
			LastName:     occ.User.LastName,
		})
	}
	if len(msgs) == 0 {
		return 0
	}

	if err := d.scheduleRepo.MarkProcessing(ctx, ids); err != nil {
		d.logger.Errorf("Failed to mark batch processing before publish: %v", err)
		return 0
	}

	if err := d.publisher.PublishBatch(ctx, msgs); err != nil {
		d.logger.Errorf("Failed to publish batch of %d messages: %v", len(msgs), err)
		return 0
	}

	d.logger.Infof("Published %d messages for queued delivery.", len(msgs))
	return len(msgs)
}
