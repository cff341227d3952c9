package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/phrazzld/dozo/internal/redact"
)

// ErrNoJobs is returned by Start when nothing was registered.
var ErrNoJobs = errors.New("scheduler has no jobs")

// Job is a named periodic task.
type Job struct {
	Name     string
	Schedule Schedule
	// Grace is how late a fire may be noticed and still run.
	Grace time.Duration
	Run   func(ctx context.Context) error
}

// State is the lifecycle state of a Scheduler.
type State int

const (
	StateStopped State = iota
	StateRunning
)

func (s State) String() string {
	if s == StateRunning {
		return "running"
	}
	return "stopped"
}

// Scheduler owns a fixed set of jobs. A job never overlaps itself, also
// across Stop and Start: a fire that finds the previous run still going is
// skipped.
type Scheduler struct {
	jobs   []Job
	busy   []atomic.Bool
	logger *slog.Logger

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	// done is closed once the loops of the latest Start and of every
	// earlier one have exited.
	done chan struct{}
}

// New creates a stopped scheduler. If logger is nil, a default logger
// will be used.
func New(logger *slog.Logger, jobs ...Job) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		jobs:   jobs,
		busy:   make([]atomic.Bool, len(jobs)),
		logger: logger.With(slog.String("component", "scheduler")),
	}
}

// State returns the current lifecycle state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start launches one loop per job. Calling Start on a running scheduler
// does nothing.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateRunning {
		return nil
	}
	if len(s.jobs) == 0 {
		return ErrNoJobs
	}
	for _, job := range s.jobs {
		if job.Name == "" || job.Schedule == nil || job.Run == nil {
			return fmt.Errorf("invalid job %q", job.Name)
		}
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.state = StateRunning

	var wg sync.WaitGroup
	for i := range s.jobs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.loop(loopCtx, i)
		}()
	}
	prev, done := s.done, make(chan struct{})
	s.done = done
	go func() {
		wg.Wait()
		if prev != nil {
			<-prev
		}
		close(done)
	}()
	s.logger.Info("scheduler started", slog.Int("jobs", len(s.jobs)))
	return nil
}

// Stop cancels all job loops without waiting. A job already running keeps
// going with an uncancelled context; use Wait to block until it returns.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateRunning {
		return
	}
	s.cancel()
	s.cancel = nil
	s.state = StateStopped
	s.logger.Info("scheduler stopped")
}

// Wait blocks until every job loop has exited or ctx is done. It returns
// immediately if the scheduler was never started.
func (s *Scheduler) Wait(ctx context.Context) error {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) loop(ctx context.Context, i int) {
	job, busy := s.jobs[i], &s.busy[i]
	log := s.logger.With(slog.String("job", job.Name))

	due := job.Schedule.Next(time.Now())
	for {
		timer := time.NewTimer(time.Until(due))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		now := time.Now()
		run, next := nextSlot(job.Schedule, due, now, job.Grace)
		if !run {
			log.Warn("missed run skipped",
				slog.Time("scheduled_for", due),
				slog.Duration("late_by", now.Sub(due)),
				slog.Time("next", next))
			due = next
			continue
		}
		due = next
		if !busy.CompareAndSwap(false, true) {
			log.Warn("previous run still in progress, skipping", slog.Time("next", next))
			continue
		}
		s.runJob(context.WithoutCancel(ctx), job, log)
		busy.Store(false)
	}
}

func (s *Scheduler) runJob(ctx context.Context, job Job, log *slog.Logger) {
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			log.Error("job panicked",
				slog.Any("panic", p),
				slog.String("stack", string(debug.Stack())))
		}
	}()

	if err := job.Run(ctx); err != nil {
		log.Error("job failed",
			slog.Duration("duration", time.Since(start)),
			slog.String("error", redact.Error(err)))
		return
	}
	log.Debug("job finished", slog.Duration("duration", time.Since(start)))
}
