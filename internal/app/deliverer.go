// internal/app/deliverer.go
package app

import (
	"context"
	"time"

	"birthday_notification_service/internal/domain/notify"
	"birthday_notification_service/internal/domain/schedule"

	"github.com/sirupsen/logrus"
)

// Deliverer performs one delivery attempt for one occurrence and
// persists the resulting status transition. It is shared by the
// dispatcher, the recovery sweep and the queue consumer so the retry
// accounting is identical no matter which path delivers a message.
type Deliverer struct {
	scheduleRepo schedule.Repository
	notifier     notify.Notifier
	logger       *logrus.Entry
	now          func() time.Time
}

func NewDeliverer(sr schedule.Repository, n notify.Notifier, logger *logrus.Entry) *Deliverer {
	return &Deliverer{
		scheduleRepo: sr,
		notifier:     n,
		logger:       logger,
		now:          time.Now,
	}
}

// Deliver sends the birthday message for one occurrence and records the
// outcome. Exactly one outbound attempt is made per call.
//
// On success the occurrence is marked sent. A failed status write after
// a successful send is logged but not retried here: the row stays
// non-terminal and the recovery sweep will re-attempt, which is the
// accepted at-least-once window.
//
// On send failure the attempt counter is incremented; the occurrence
// becomes failed once the cap is reached, otherwise it returns to
// pending for the next periodic run.
func (d *Deliverer) Deliver(ctx context.Context, occurrenceID int64, firstName, lastName string) bool {
	if err := d.notifier.Send(ctx, firstName, lastName); err != nil {
		d.logger.Errorf("Delivery failed for occurrence %d (%s %s): %v", occurrenceID, firstName, lastName, err)
		d.recordFailure(ctx, occurrenceID)
		return false
	}

	if err := d.scheduleRepo.MarkSent(ctx, occurrenceID, d.now()); err != nil {
		d.logger.Errorf("Sent occurrence %d but failed to persist status: %v", occurrenceID, err)
		return false
	}
	return true
}

func (d *Deliverer) recordFailure(ctx context.Context, occurrenceID int64) {
	attempts, err := d.scheduleRepo.IncrementAttempts(ctx, occurrenceID)
	if err != nil {
		d.logger.Errorf("Failed to increment attempts for occurrence %d: %v", occurrenceID, err)
		return
	}

	if attempts >= schedule.MaxAttempts {
		if err := d.scheduleRepo.MarkFailed(ctx, occurrenceID); err != nil {
			d.logger.Errorf("Failed to mark occurrence %d failed: %v", occurrenceID, err)
		} else {
			d.logger.Warnf("Occurrence %d marked failed after %d attempts; left for recovery sweep.", occurrenceID, attempts)
		}
		return
	}

	if err := d.scheduleRepo.MarkPending(ctx, occurrenceID); err != nil {
		d.logger.Errorf("Failed to return occurrence %d to pending: %v", occurrenceID, err)
	}
}
