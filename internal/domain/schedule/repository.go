package schedule

import (
	"context"
	"time"
)

// Repository defines the persistence operations the scheduling engine
// needs, independent of the backing store. All list methods return
// occurrences with the owning User attached in a single round trip.
type Repository interface {
	Create(ctx context.Context, o *Occurrence) error
	GetByID(ctx context.Context, id int64) (*Occurrence, error)
	GetByUserAndKind(ctx context.Context, userID int64, kind Kind) (*Occurrence, error)

	// FindDueInRange returns pending occurrences with scheduled_for in
	// [from, to]. Failed occurrences are deliberately excluded: once the
	// retry cap is hit only the recovery sweep may touch a row again.
	FindDueInRange(ctx context.Context, from, to time.Time) ([]*Occurrence, error)

	// FindStaleBefore returns non-terminal occurrences (pending,
	// processing or failed) whose scheduled_for is older than cutoff.
	FindStaleBefore(ctx context.Context, cutoff time.Time) ([]*Occurrence, error)

	// FindSentBefore returns sent occurrences whose scheduled_for is
	// older than cutoff, i.e. rows due for their yearly rollover.
	FindSentBefore(ctx context.Context, cutoff time.Time) ([]*Occurrence, error)

	MarkProcessing(ctx context.Context, ids []int64) error
	MarkSent(ctx context.Context, id int64, sentAt time.Time) error
	MarkFailed(ctx context.Context, id int64) error
	MarkPending(ctx context.Context, id int64) error
	IncrementAttempts(ctx context.Context, id int64) (int, error)

	// Reschedule rewrites scheduled_for, resets the status to pending
	// and zeroes the attempt counter.
	Reschedule(ctx context.Context, id int64, newInstant time.Time) error
}
