package cron

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Job is one recurring housekeeping task.
type Job struct {
	Name     string
	Interval time.Duration
	Fn       func(ctx context.Context) error
}

// Scheduler runs housekeeping jobs on fixed intervals, each on its own
// goroutine. Job errors are logged, never fatal.
type Scheduler struct {
	jobs    []Job
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
}

func NewScheduler() *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		ctx:    ctx,
		cancel: cancel,
	}
}

// AddJob registers a job. Must be called before Start.
func (s *Scheduler) AddJob(name string, interval time.Duration, fn func(ctx context.Context) error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.jobs = append(s.jobs, Job{
		Name:     name,
		Interval: interval,
		Fn:       fn,
	})
	slog.Info("cron job registered", "name", name, "interval", interval)
}

// Start launches every registered job. Calling it twice is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true

	for _, job := range s.jobs {
		s.wg.Add(1)
		go s.runJob(job)
	}

	slog.Info("cron scheduler started", "job_count", len(s.jobs))
}

// Stop cancels all job loops and waits for them to drain.
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	slog.Info("cron scheduler stopped")
}

func (s *Scheduler) runJob(job Job) {
	defer s.wg.Done()

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	// First pass right away; the ticker drives the rest.
	s.executeJob(job)

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.executeJob(job)
		}
	}
}

func (s *Scheduler) executeJob(job Job) {
	start := time.Now()

	if err := job.Fn(s.ctx); err != nil {
		slog.Error("cron job failed", "name", job.Name, "error", err, "duration", time.Since(start))
	} else {
		slog.Debug("cron job completed", "name", job.Name, "duration", time.Since(start))
	}
}

// RunOnce executes every job a single time, synchronously. Lets tests hit
// job logic without the timer machinery.
func (s *Scheduler) RunOnce(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, job := range s.jobs {
		if err := job.Fn(ctx); err != nil {
			slog.Error("cron job failed", "name", job.Name, "error", err)
		}
	}
}
