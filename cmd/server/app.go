package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/dozo/internal/api/middleware"
	"github.com/phrazzld/dozo/internal/config"
	"github.com/phrazzld/dozo/internal/notification"
	"github.com/phrazzld/dozo/internal/notify"
	"github.com/phrazzld/dozo/internal/platform/sqlstore"
	"github.com/phrazzld/dozo/internal/scheduler"
	"github.com/phrazzld/dozo/internal/service"
	"github.com/phrazzld/dozo/internal/service/auth"
	"github.com/phrazzld/dozo/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/crypto/bcrypt"
)

const (
	metricsNamespace = "dozo"
	// schedulerDrainTimeout bounds how long shutdown waits for a running tick.
	schedulerDrainTimeout = 30 * time.Second
)

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	registry    *prometheus.Registry
	httpMetrics *middleware.HTTPMetrics

	userStore store.UserStore
	taskStore store.TaskStore

	notifier    *notify.Notifier
	userService service.UserService
	taskService service.TaskService
	engine      *notification.Engine
	scheduler   *scheduler.Scheduler
}

// newApplication creates a new application instance with all dependencies initialized.
// The database must already be open and migrated.
func newApplication(cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	dialect, err := sqlstore.ParseDialect(cfg.Database.Driver)
	if err != nil {
		return nil, err
	}

	app := &application{
		config:    cfg,
		logger:    logger,
		db:        db,
		registry:  prometheus.NewRegistry(),
		userStore: sqlstore.NewUserStore(db, dialect, logger),
		taskStore: sqlstore.NewTaskStore(db, dialect, logger),
	}
	app.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	app.notifier, err = notify.NewNotifier(newTransport(cfg.Mail, logger), cfg.Mail.AppURL, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize notifier: %w", err)
	}

	app.userService, err = service.NewUserService(
		app.userStore,
		auth.NewBcryptHasher(bcrypt.DefaultCost),
		app.notifier,
		db,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize user service: %w", err)
	}
	app.taskService, err = service.NewTaskService(app.taskStore, app.userStore, db, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize task service: %w", err)
	}

	observer, err := notification.NewPrometheusObserver(metricsNamespace, app.registry)
	if err != nil {
		return nil, fmt.Errorf("failed to register notification metrics: %w", err)
	}
	app.engine = notification.NewEngine(
		app.taskStore,
		app.userStore,
		app.notifier,
		notification.ConfigFrom(cfg.Scheduler),
		notification.WithLogger(logger),
		notification.WithObserver(observer),
	)

	app.httpMetrics, err = middleware.NewHTTPMetrics(metricsNamespace, app.registry)
	if err != nil {
		return nil, fmt.Errorf("failed to register HTTP metrics: %w", err)
	}

	jobs, err := notificationJobs(cfg.Scheduler, app.engine)
	if err != nil {
		return nil, err
	}
	app.scheduler = scheduler.New(logger, jobs...)

	logger.Info("Application initialized successfully",
		"mail_transport", transportName(cfg.Mail),
		"delivery_concurrency", cfg.Scheduler.DeliveryConcurrency)
	return app, nil
}

// newTransport selects SMTP when a mail host is configured and the logging
// transport otherwise.
func newTransport(cfg config.MailConfig, logger *slog.Logger) notify.Transport {
	if cfg.Host == "" {
		return notify.NewLogTransport(logger)
	}
	return notify.NewSMTPTransport(notify.SMTPConfig{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Username: cfg.Username,
		Password: cfg.Password,
		From:     cfg.From,
		Timeout:  time.Duration(cfg.TimeoutSeconds) * time.Second,
	})
}

func transportName(cfg config.MailConfig) string {
	if cfg.Host == "" {
		return "log"
	}
	return "smtp"
}

// notificationJobs builds the short-interval reminder job and the daily
// digest job.
func notificationJobs(cfg config.SchedulerConfig, engine *notification.Engine) ([]scheduler.Job, error) {
	daily, err := scheduler.DailyAt(cfg.DigestHour, cfg.DigestMinute)
	if err != nil {
		return nil, fmt.Errorf("invalid digest schedule: %w", err)
	}
	return []scheduler.Job{
		{
			Name:     notification.JobReminders,
			Schedule: scheduler.Every(cfg.Interval()),
			Grace:    cfg.ReminderGrace(),
			Run: func(ctx context.Context) error {
				_, err := engine.RunReminderTick(ctx)
				return err
			},
		},
		{
			Name:     notification.JobDigest,
			Schedule: daily,
			Grace:    cfg.DigestGrace(),
			Run: func(ctx context.Context) error {
				_, err := engine.RunDigestTick(ctx)
				return err
			},
		},
	}, nil
}

// Run starts the scheduler (when enabled) and serves HTTP until ctx is
// cancelled, then shuts everything down.
func (app *application) Run(ctx context.Context) error {
	if app.config.Scheduler.Enabled {
		if err := app.scheduler.Start(ctx); err != nil {
			app.cleanup()
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		app.logger.Info("Scheduler started",
			"interval_minutes", app.config.Scheduler.IntervalMinutes,
			"digest_hour", app.config.Scheduler.DigestHour,
			"digest_minute", app.config.Scheduler.DigestMinute)
	} else {
		app.logger.Info("Scheduler disabled; ticks run only via the admin endpoints")
	}

	err := app.startHTTPServer(ctx, app.setupRouter())
	app.cleanup()
	if err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if app.scheduler != nil {
		app.scheduler.Stop()
		waitCtx, cancel := context.WithTimeout(context.Background(), schedulerDrainTimeout)
		if err := app.scheduler.Wait(waitCtx); err != nil {
			app.logger.Warn("Scheduler did not drain before timeout", "error", err)
		}
		cancel()
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Error closing database connection", "error", err)
		}
	}

	app.logger.Info("Application shutdown completed")
}
