// internal/app/recovery.go
package app

import (
	"context"
	"fmt"
	"time"

	"birthday_notification_service/internal/domain/schedule"

	"github.com/sirupsen/logrus"
)

// DefaultSweepLookback is the horizon past which a stale occurrence is
// rescheduled without any delivery attempt, regardless of its local
// calendar day. Guarantees nothing stays stuck indefinitely.
const DefaultSweepLookback = 7 * 24 * time.Hour

// rolloverDelay is how long a sent occurrence keeps its terminal status
// before the sweep rewrites it for next year.
const rolloverDelay = 24 * time.Hour

// SweepResult reports what one recovery pass did.
type SweepResult struct {
	Inspected   int
	Delivered   int
	Rescheduled int
	RolledOver  int
	Skipped     int
}

// RecoverySweep reconciles occurrences the dispatcher missed: rows
// whose scheduled_for has passed without reaching a terminal state, and
// sent rows due for their yearly rewrite. It runs once at startup and
// on a daily timer, and is idempotent: with no intervening writes a
// second pass classifies every row the same way and writes nothing new.
type RecoverySweep struct {
	scheduleRepo schedule.Repository
	deliverer    *Deliverer
	logger       *logrus.Entry
	sendHour     int
	sendMinute   int
	now          func() time.Time
}

func NewRecoverySweep(sr schedule.Repository, d *Deliverer, logger *logrus.Entry, sendHour, sendMinute int) *RecoverySweep {
	return &RecoverySweep{
		scheduleRepo: sr,
		deliverer:    d,
		logger:       logger,
		sendHour:     sendHour,
		sendMinute:   sendMinute,
		now:          time.Now,
	}
}

// Sweep runs the stuck-occurrence pass followed by the rollover pass.
// The lookback bounds how far past its send time a stale occurrence may
// still be delivered late; older rows are rescheduled unconditionally.
func (s *RecoverySweep) Sweep(ctx context.Context, lookback time.Duration) (SweepResult, error) {
	result := SweepResult{}
	now := s.now()

	if err := s.sweepStale(ctx, now, lookback, &result); err != nil {
		return result, err
	}
	if err := s.rolloverSent(ctx, now, &result); err != nil {
		return result, err
	}

	s.logger.Infof("Recovery sweep complete: %d inspected, %d delivered, %d rescheduled, %d rolled over, %d skipped.",
		result.Inspected, result.Delivered, result.Rescheduled, result.RolledOver, result.Skipped)
	return result, nil
}

// sweepStale classifies every non-terminal occurrence whose send time
// has passed. If the user's local calendar still shows the birthday, the
// delivery window is open and the message goes out late; otherwise the
// window has closed and the row is rewritten for next year. Rows older
// than the lookback are rewritten unconditionally.
func (s *RecoverySweep) sweepStale(ctx context.Context, now time.Time, lookback time.Duration, result *SweepResult) error {
	stale, err := s.scheduleRepo.FindStaleBefore(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to find stale occurrences: %w", err)
	}
	result.Inspected = len(stale)

	for _, occ := range stale {
		if occ.User == nil {
			s.logger.Warnf("Stale occurrence %d has no associated user. Skipping.", occ.ID)
			result.Skipped++
			continue
		}

		loc, err := time.LoadLocation(occ.User.Timezone)
		if err != nil {
			s.logger.Errorf("Stale occurrence %d has invalid timezone %q. Skipping.", occ.ID, occ.User.Timezone)
			result.Skipped++
			continue
		}

		birthMonth := occ.User.BirthDate.Month()
		birthDay := occ.User.BirthDate.Day()

		if now.Sub(occ.ScheduledFor) <= lookback && schedule.IsObservedDay(birthMonth, birthDay, loc, now) {
			s.logger.Warnf("Recovering missed birthday for user %d (occurrence %d); still within local day.", occ.UserID, occ.ID)
			if s.deliverer.Deliver(ctx, occ.ID, occ.User.FirstName, occ.User.LastName) {
				result.Delivered++
			}
			continue
		}

		next := schedule.NextOccurrence(birthMonth, birthDay, loc, s.sendHour, s.sendMinute, now)
		if err := s.scheduleRepo.Reschedule(ctx, occ.ID, next); err != nil {
			s.logger.Errorf("Failed to reschedule occurrence %d: %v", occ.ID, err)
			continue
		}
		s.logger.Infof("Occurrence %d window closed; rescheduled to %s.", occ.ID, next.Format(time.RFC3339))
		result.Rescheduled++
	}
	return nil
}

// rolloverSent rewrites sent rows for the following year once their
// send time is comfortably past. This is the lifecycle recompute step:
// one row per (user, kind), reused year after year.
func (s *RecoverySweep) rolloverSent(ctx context.Context, now time.Time, result *SweepResult) error {
	sent, err := s.scheduleRepo.FindSentBefore(ctx, now.Add(-rolloverDelay))
	if err != nil {
		return fmt.Errorf("failed to find sent occurrences for rollover: %w", err)
	}

	for _, occ := range sent {
		if occ.User == nil {
			s.logger.Warnf("Sent occurrence %d has no associated user. Skipping rollover.", occ.ID)
			result.Skipped++
			continue
		}
		loc, err := time.LoadLocation(occ.User.Timezone)
		if err != nil {
			s.logger.Errorf("Sent occurrence %d has invalid timezone %q. Skipping rollover.", occ.ID, occ.User.Timezone)
			result.Skipped++
			continue
		}

		next := schedule.NextOccurrence(occ.User.BirthDate.Month(), occ.User.BirthDate.Day(), loc, s.sendHour, s.sendMinute, now)
		if err := s.scheduleRepo.Reschedule(ctx, occ.ID, next); err != nil {
			s.logger.Errorf("Failed to roll over occurrence %d: %v", occ.ID, err)
			continue
		}
		result.RolledOver++
	}
	return nil
}
