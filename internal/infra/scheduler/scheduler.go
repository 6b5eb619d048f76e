package scheduler

import (
	"context"
	"time"

	"birthday_notification_service/internal/app"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// The core has no notion of wall-clock triggering; this wrapper owns
// the timers and calls the dispatcher and recovery sweep entry points
// with concrete windows.
type NotificationScheduler struct {
	cronEngine       *cron.Cron
	dispatcher       *app.Dispatcher
	recovery         *app.RecoverySweep
	logger           *logrus.Entry
	cronSpecDispatch string
	cronSpecRecovery string
	dispatchWindow   time.Duration // lookback width of each dispatch window
	sweepLookback    time.Duration // late-delivery horizon handed to the recovery sweep
}

func NewNotificationScheduler(
	dispatcher *app.Dispatcher,
	recovery *app.RecoverySweep,
	logger *logrus.Entry,
	cronSpecDispatch string, // e.g., "*/15 * * * *" (every 15 minutes)
	cronSpecRecovery string, // e.g., "0 10 * * *" (10:00 AM daily)
	dispatchWindow time.Duration,
	sweepLookback time.Duration,
) *NotificationScheduler {
	return &NotificationScheduler{
		cronEngine:       cron.New(cron.WithLocation(time.UTC)), // scheduled_for is stored in UTC
		dispatcher:       dispatcher,
		recovery:         recovery,
		logger:           logger,
		cronSpecDispatch: cronSpecDispatch,
		cronSpecRecovery: cronSpecRecovery,
		dispatchWindow:   dispatchWindow,
		sweepLookback:    sweepLookback,
	}
}

func (s *NotificationScheduler) Start() {
	s.logger.Info("Starting notification scheduler...")

	// Job for the periodic due-window dispatch
	_, err := s.cronEngine.AddFunc(s.cronSpecDispatch, func() {
		s.logger.Debug("Cron job triggered for due-window dispatch.")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		now := time.Now().UTC()
		result, err := s.dispatcher.Dispatch(ctx, now.Add(-s.dispatchWindow), now)
		if err != nil {
			s.logger.Errorf("Error during due-window dispatch: %v", err)
			return
		}
		if result.Found > 0 {
			s.logger.Infof("Dispatch window done: found=%d sent=%d failed=%d published=%d",
				result.Found, result.Sent, result.Failed, result.Published)
		}
	})
	if err != nil {
		s.logger.Fatalf("FATAL: Could not add dispatch cron job: %v", err)
	}

	// Job for the daily recovery sweep
	_, err = s.cronEngine.AddFunc(s.cronSpecRecovery, func() {
		s.logger.Info("Cron job triggered for recovery sweep.")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		if _, err := s.recovery.Sweep(ctx, s.sweepLookback); err != nil {
			s.logger.Errorf("Error during recovery sweep: %v", err)
		}
	})
	if err != nil {
		s.logger.Fatalf("FATAL: Could not add recovery sweep cron job: %v", err)
	}

	s.cronEngine.Start()
	s.logger.Info("Notification scheduler started with jobs.")
}

// RunStartupSweep performs the catch-up pass for downtime before the
// periodic timers take over.
func (s *NotificationScheduler) RunStartupSweep(ctx context.Context) {
	s.logger.Info("Running startup recovery sweep...")
	if _, err := s.recovery.Sweep(ctx, s.sweepLookback); err != nil {
		s.logger.Errorf("Error during startup recovery sweep: %v", err)
	}
}

func (s *NotificationScheduler) Stop() {
	s.logger.Info("Stopping notification scheduler...")
	ctx := s.cronEngine.Stop() // Stops the scheduler from adding new jobs, waits for running jobs.
	<-ctx.Done()               // Wait for graceful shutdown
	s.logger.Info("Notification scheduler gracefully stopped.")
}
