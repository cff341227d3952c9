package notification

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"cloud.google.com/go/civil"
	"github.com/phrazzld/dozo/internal/domain"
	"github.com/phrazzld/dozo/internal/platform/logger"
	"github.com/phrazzld/dozo/internal/redact"
	"github.com/phrazzld/dozo/internal/store"
	"golang.org/x/sync/errgroup"
)

// Job names reported to the Observer.
const (
	JobReminders = "reminders"
	JobDigest    = "digest"
)

// Notifier sends the scheduled notification kinds. Each method returns true
// only when the message was handed to the transport.
type Notifier interface {
	SendReminder(ctx context.Context, user *domain.User, task *domain.Task) bool
	SendOverdue(ctx context.Context, user *domain.User, task *domain.Task) bool
	SendDigest(ctx context.Context, user *domain.User, digest *domain.Digest) bool
}

// TickReport summarizes one tick.
type TickReport struct {
	Evaluated int `json:"evaluated"`
	Sent      int `json:"sent"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

func (r *TickReport) add(o TickReport) {
	r.Evaluated += o.Evaluated
	r.Sent += o.Sent
	r.Skipped += o.Skipped
	r.Failed += o.Failed
}

// Engine runs reminder, overdue and digest ticks.
type Engine struct {
	tasks     store.TaskStore
	users     store.UserStore
	notifier  Notifier
	cfg       Config
	evaluator *Evaluator
	gate      *Gate
	digests   *DigestAggregator
	observer  Observer
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithObserver sets the metrics observer.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		if o != nil {
			e.observer = o
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine creates an Engine.
func NewEngine(tasks store.TaskStore, users store.UserStore, notifier Notifier, cfg Config, opts ...Option) *Engine {
	e := &Engine{
		tasks:    tasks,
		users:    users,
		notifier: notifier,
		cfg:      cfg.withDefaults(),
		observer: nopObserver{},
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With(slog.String("component", "notification_engine"))
	e.evaluator = NewEvaluator(tasks, users, e.cfg.ReminderLookahead, e.logger)
	e.gate = NewGate(tasks, e.logger)
	e.digests = NewDigestAggregator(tasks, e.cfg.DigestLookaheadDays, e.cfg.DigestUpcomingLimit)
	return e
}

// RunReminderTick runs the reminder scan and then the overdue scan. A
// failed scan ends only that scan; the other still runs and the errors are
// joined.
func (e *Engine) RunReminderTick(ctx context.Context) (TickReport, error) {
	start := time.Now()
	now := e.now()
	ctx = logger.WithLogger(ctx, e.logger)

	var report TickReport
	var errs []error

	scans := []struct {
		kind domain.NotificationKind
		scan func(context.Context, time.Time) ([]Event, error)
	}{
		{domain.KindReminder, e.evaluator.EvaluateReminders},
		{domain.KindOverdue, e.evaluator.EvaluateOverdue},
	}
	for _, s := range scans {
		events, err := s.scan(ctx, now)
		if err != nil {
			e.logger.ErrorContext(ctx, "scan failed",
				slog.String("kind", s.kind.String()),
				slog.String("error", redact.Error(err)))
			errs = append(errs, err)
			continue
		}
		report.add(e.deliverAll(ctx, events))
	}

	e.observer.TickCompleted(JobReminders, time.Since(start))
	e.logger.InfoContext(ctx, "reminder tick completed",
		slog.Int("evaluated", report.Evaluated),
		slog.Int("sent", report.Sent),
		slog.Int("skipped", report.Skipped),
		slog.Int("failed", report.Failed))
	return report, errors.Join(errs...)
}

// deliverAll pushes events through the gate with bounded concurrency. One
// event's failure never stops the others.
func (e *Engine) deliverAll(ctx context.Context, events []Event) TickReport {
	var (
		mu     sync.Mutex
		report = TickReport{Evaluated: len(events)}
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.DeliveryConcurrency)

	for _, ev := range events {
		g.Go(func() error {
			outcome := e.deliver(gctx, ev)
			mu.Lock()
			defer mu.Unlock()
			switch outcome {
			case Delivered:
				report.Sent++
			case SendFailed, StoreFailed:
				report.Failed++
			default:
				report.Skipped++
			}
			return nil
		})
	}
	_ = g.Wait()
	return report
}

func (e *Engine) deliver(ctx context.Context, ev Event) Outcome {
	send := e.notifier.SendReminder
	if ev.Kind == domain.KindOverdue {
		send = e.notifier.SendOverdue
	}
	log := e.logger.With(
		slog.String("kind", ev.Kind.String()),
		slog.String("task_id", ev.Task.ID.String()),
		slog.String("user_id", ev.User.ID.String()))

	outcome, err := e.gate.TryDeliver(ctx, ev.Task, ev.User, ev.Kind, send)
	switch {
	case outcome == Delivered:
		e.observer.NotificationSent(ev.Kind)
		if err != nil {
			e.observer.NotificationFailed(ev.Kind)
			log.ErrorContext(ctx, "notification sent but flag not recorded",
				slog.String("error", redact.Error(err)))
			return Delivered
		}
		log.InfoContext(ctx, "notification delivered")
	case outcome == SendFailed:
		e.observer.NotificationFailed(ev.Kind)
		log.WarnContext(ctx, "notification not sent; will retry next tick")
	case err != nil:
		e.observer.NotificationFailed(ev.Kind)
		log.ErrorContext(ctx, "notification delivery aborted",
			slog.String("outcome", outcome.String()),
			slog.String("error", redact.Error(err)))
	default:
		e.observer.NotificationSkipped(ev.Kind, outcome.String())
		log.DebugContext(ctx, "notification skipped", slog.String("outcome", outcome.String()))
	}
	return outcome
}

// RunDigestTick sends the daily digest to every subscribed user with at
// least one task in a bucket. The digest has no delivery flag: running it
// twice on the same day sends twice.
func (e *Engine) RunDigestTick(ctx context.Context) (TickReport, error) {
	start := time.Now()
	today := domain.Today(e.now())
	ctx = logger.WithLogger(ctx, e.logger)

	subscribed := true
	users, err := e.users.Find(ctx, store.UserFilter{DigestEnabled: &subscribed})
	if err != nil {
		e.logger.ErrorContext(ctx, "digest user scan failed", slog.String("error", redact.Error(err)))
		e.observer.TickCompleted(JobDigest, time.Since(start))
		return TickReport{}, err
	}

	var (
		mu     sync.Mutex
		report = TickReport{Evaluated: len(users)}
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.DeliveryConcurrency)

	for _, user := range users {
		g.Go(func() error {
			outcome := e.deliverDigest(gctx, user, today)
			mu.Lock()
			defer mu.Unlock()
			switch outcome {
			case Delivered:
				report.Sent++
			case SendFailed, StoreFailed:
				report.Failed++
			default:
				report.Skipped++
			}
			return nil
		})
	}
	_ = g.Wait()

	e.observer.TickCompleted(JobDigest, time.Since(start))
	e.logger.InfoContext(ctx, "digest tick completed",
		slog.String("date", today.String()),
		slog.Int("users", report.Evaluated),
		slog.Int("sent", report.Sent),
		slog.Int("skipped", report.Skipped),
		slog.Int("failed", report.Failed))
	return report, nil
}

func (e *Engine) deliverDigest(ctx context.Context, user *domain.User, today civil.Date) Outcome {
	log := e.logger.With(slog.String("user_id", user.ID.String()))
	if !user.Preferences.Allows(domain.KindDigest) {
		e.observer.NotificationSkipped(domain.KindDigest, Unsubscribed.String())
		return Unsubscribed
	}
	digest, err := e.digests.BuildDigest(ctx, user, today)
	if err != nil {
		e.observer.NotificationFailed(domain.KindDigest)
		log.ErrorContext(ctx, "digest build failed", slog.String("error", redact.Error(err)))
		return StoreFailed
	}
	if digest.IsEmpty() {
		e.observer.NotificationSkipped(domain.KindDigest, Empty.String())
		log.DebugContext(ctx, "digest empty; not sent")
		return Empty
	}
	if !e.notifier.SendDigest(ctx, user, digest) {
		e.observer.NotificationFailed(domain.KindDigest)
		log.WarnContext(ctx, "digest not sent")
		return SendFailed
	}
	e.observer.NotificationSent(domain.KindDigest)
	log.InfoContext(ctx, "digest delivered",
		slog.Int("overdue", len(digest.Overdue)),
		slog.Int("due_today", len(digest.DueToday)),
		slog.Int("upcoming", len(digest.Upcoming)))
	return Delivered
}
