// Package scheduler runs the ledger's periodic background jobs: streak
// risk sweeps and cache maintenance.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/academy-hub/academy-ledger/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// JOB AND SCHEDULE
// ══════════════════════════════════════════════════════════════════════════════

// Job is a unit of periodic work.
type Job interface {
	// Name returns the unique job name.
	Name() string

	// Run executes the job. The context is cancelled on scheduler stop.
	Run(ctx context.Context) error
}

// Schedule decides when a job runs next.
type Schedule interface {
	// Next returns the first run time strictly after t.
	Next(t time.Time) time.Time
}

// Every runs a job at a fixed interval.
type Every time.Duration

// Next implements Schedule.
func (e Every) Next(t time.Time) time.Time {
	return t.Add(time.Duration(e))
}

// DailyAt runs a job once per UTC day at the given hour and minute.
type DailyAt struct {
	Hour   int
	Minute int
}

// Next implements Schedule.
func (d DailyAt) Next(t time.Time) time.Time {
	t = t.UTC()
	next := time.Date(t.Year(), t.Month(), t.Day(), d.Hour, d.Minute, 0, 0, time.UTC)
	if !next.After(t) {
		next = next.Add(24 * time.Hour)
	}
	return next
}

// ══════════════════════════════════════════════════════════════════════════════
// SCHEDULER
// ══════════════════════════════════════════════════════════════════════════════

// Scheduler owns a set of registered jobs and runs each on its schedule in
// its own goroutine. A panicking or failing job is logged and rescheduled,
// never fatal.
type Scheduler struct {
	mu      sync.Mutex
	jobs    []*entry
	log     *logger.Logger
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

type entry struct {
	job      Job
	schedule Schedule

	mu       sync.Mutex
	lastRun  time.Time
	lastErr  error
	runCount int64
}

// New creates a scheduler.
func New(log *logger.Logger) *Scheduler {
	if log == nil {
		log = logger.Default()
	}
	return &Scheduler{log: log.With(logger.Component("scheduler"))}
}

// Register adds a job. Must be called before Start.
func (s *Scheduler) Register(job Job, schedule Schedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("scheduler: cannot register %q while running", job.Name())
	}
	for _, e := range s.jobs {
		if e.job.Name() == job.Name() {
			return fmt.Errorf("scheduler: job %q already registered", job.Name())
		}
	}
	s.jobs = append(s.jobs, &entry{job: job, schedule: schedule})
	return nil
}

// Start launches all registered jobs.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("scheduler: already running")
	}
	s.running = true

	ctx, s.cancel = context.WithCancel(ctx)
	for _, e := range s.jobs {
		s.wg.Add(1)
		go s.loop(ctx, e)
	}
	s.log.Info("scheduler started", logger.Int("jobs", len(s.jobs)))
	return nil
}

// Stop cancels all jobs and waits for them to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	s.mu.Unlock()

	cancel()
	s.wg.Wait()
	s.log.Info("scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context, e *entry) {
	defer s.wg.Done()

	timer := time.NewTimer(time.Until(e.schedule.Next(time.Now())))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			s.runOne(ctx, e)
			timer.Reset(time.Until(e.schedule.Next(time.Now())))
		}
	}
}

func (s *Scheduler) runOne(ctx context.Context, e *entry) {
	start := time.Now()
	err := s.safeRun(ctx, e.job)

	e.mu.Lock()
	e.lastRun = start
	e.lastErr = err
	e.runCount++
	e.mu.Unlock()

	if err != nil {
		s.log.Error("job failed",
			logger.String("job", e.job.Name()),
			logger.Latency(time.Since(start)),
			logger.Err(err),
		)
		return
	}
	s.log.Info("job completed",
		logger.String("job", e.job.Name()),
		logger.Latency(time.Since(start)),
	)
}

func (s *Scheduler) safeRun(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("scheduler: job %q panicked: %v", job.Name(), r)
		}
	}()
	return job.Run(ctx)
}

// JobStatus reports one job's last execution.
type JobStatus struct {
	Name     string
	LastRun  time.Time
	LastErr  error
	RunCount int64
}

// Status returns the last-run state of every registered job.
func (s *Scheduler) Status() []JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]JobStatus, 0, len(s.jobs))
	for _, e := range s.jobs {
		e.mu.Lock()
		out = append(out, JobStatus{
			Name:     e.job.Name(),
			LastRun:  e.lastRun,
			LastErr:  e.lastErr,
			RunCount: e.runCount,
		})
		e.mu.Unlock()
	}
	return out
}
