package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"birthday_notification_service/internal/app"
	"birthday_notification_service/internal/domain/notify"
	"birthday_notification_service/internal/infra/config"
	idb "birthday_notification_service/internal/infra/database"
	"birthday_notification_service/internal/infra/httpapi"
	"birthday_notification_service/internal/infra/logger"
	infranotify "birthday_notification_service/internal/infra/notify"
	"birthday_notification_service/internal/infra/queue"
	"birthday_notification_service/internal/infra/scheduler"

	"gopkg.in/telebot.v3"
)

// Width of each periodic dispatch window. Matches the default dispatch
// cron cadence so consecutive windows tile the timeline.
const dispatchWindow = 15 * time.Minute

func main() {
	fmt.Println("Birthday Notification Service starting...")

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Could not load application configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg)
	mainLog := logger.Component("main")
	mainLog.Infof("Configuration loaded. LogLevel: %s, Environment: %s, Notifier: %s", cfg.LogLevel, cfg.Environment, cfg.Notifier)

	// Initialize Database Connection
	db, err := idb.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		mainLog.Fatalf("FATAL: Could not connect to database: %v", err)
	}
	defer db.Close()
	mainLog.Info("Database connection established successfully.")

	// Initialize Repositories
	userRepo := idb.NewPostgresUserRepository(db)
	scheduleRepo := idb.NewPostgresScheduleRepository(db)
	mainLog.Info("Repositories initialized.")

	// Initialize Notifier
	notifier, err := buildNotifier(cfg)
	if err != nil {
		mainLog.Fatalf("FATAL: Could not create notifier: %v", err)
	}
	mainLog.Infof("Notifier initialized (%s).", cfg.Notifier)

	deliverer := app.NewDeliverer(scheduleRepo, notifier, logger.Component("deliverer"))

	// Optional Kafka producer/consumer split
	var publisher app.Publisher
	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	defer stopConsumer()
	if len(cfg.KafkaBrokers) > 0 {
		producer := queue.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic, logger.Component("queue-producer"))
		defer producer.Close()
		publisher = producer

		consumer := queue.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroupID, deliverer, logger.Component("queue-consumer"))
		go func() {
			if err := consumer.Run(consumerCtx); err != nil {
				mainLog.Errorf("Queue consumer stopped with error: %v", err)
			}
		}()
		mainLog.Infof("Kafka transport enabled (topic %s).", cfg.KafkaTopic)
	}

	// Initialize Services
	dispatcher := app.NewDispatcher(scheduleRepo, deliverer, publisher, logger.Component("dispatcher"))
	recovery := app.NewRecoverySweep(scheduleRepo, deliverer, logger.Component("recovery"), cfg.SendHour, cfg.SendMinute)
	userService := app.NewUserService(userRepo, scheduleRepo, logger.Component("users"), cfg.SendHour, cfg.SendMinute)

	// Initialize NotificationScheduler
	notifScheduler := scheduler.NewNotificationScheduler(
		dispatcher,
		recovery,
		logger.Component("scheduler"),
		cfg.CronSpecDispatch,
		cfg.CronSpecRecovery,
		dispatchWindow,
		app.DefaultSweepLookback,
	)

	// Catch-up pass for downtime before the timers take over.
	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 10*time.Minute)
	notifScheduler.RunStartupSweep(startupCtx)
	cancelStartup()

	notifScheduler.Start()

	// HTTP surface for the user CRUD collaborator
	userHandler := httpapi.NewUserHandler(userService, logger.Component("http"))
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: httpapi.NewRouter(userHandler),
	}
	go func() {
		mainLog.Infof("HTTP server listening on %s.", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			mainLog.Fatalf("FATAL: HTTP server failed: %v", err)
		}
	}()

	mainLog.Info("Application setup complete.")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit // Block until a signal is received

	mainLog.Info("Shutting down application...")
	notifScheduler.Stop()
	stopConsumer()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		mainLog.Errorf("HTTP server shutdown error: %v", err)
	}
	// db.Close() is handled by defer
	mainLog.Info("Application shut down gracefully.")
}

func buildNotifier(cfg *config.AppConfig) (notify.Notifier, error) {
	switch cfg.Notifier {
	case config.NotifierTelegram:
		// Send-only bot: no poller is attached and Start is never called.
		bot, err := telebot.NewBot(telebot.Settings{Token: cfg.TelegramToken})
		if err != nil {
			return nil, fmt.Errorf("could not create Telegram bot: %w", err)
		}
		return infranotify.NewTelegramNotifier(bot, cfg.TelegramChatID), nil
	default:
		return infranotify.NewWebhookNotifier(cfg.WebhookURL), nil
	}
}
