// Package scheduler runs background jobs on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is a unit of background work. An empty Schedule registers the job
// for on-demand runs only.
type Job interface {
	Name() string
	Schedule() string
	Execute(ctx context.Context) error
}

type Scheduler struct {
	cron    *cron.Cron
	jobs    []Job
	timeout time.Duration
}

func NewScheduler() *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		jobs:    make([]Job, 0),
		timeout: 5 * time.Minute,
	}
}

// Register adds a job and schedules it when it carries a cron spec.
func (s *Scheduler) Register(job Job) error {
	if spec := job.Schedule(); spec != "" {
		_, err := s.cron.AddFunc(spec, func() {
			ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
			defer cancel()
			s.run(ctx, job)
		})
		if err != nil {
			return fmt.Errorf("schedule job %s: %w", job.Name(), err)
		}
		slog.Info("job scheduled", "job", job.Name(), "schedule", spec)
	}

	s.jobs = append(s.jobs, job)
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	slog.Info("scheduler started", "jobs", len(s.jobs))
}

// Stop stops the cron loop and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	slog.Info("scheduler stopped")
}

// RunByName runs a registered job immediately.
func (s *Scheduler) RunByName(ctx context.Context, name string) error {
	for _, job := range s.jobs {
		if job.Name() == name {
			return s.run(ctx, job)
		}
	}
	return fmt.Errorf("job %q is not registered", name)
}

func (s *Scheduler) Jobs() []string {
	names := make([]string, len(s.jobs))
	for i, job := range s.jobs {
		names[i] = job.Name()
	}
	return names
}

func (s *Scheduler) run(ctx context.Context, job Job) error {
	start := time.Now()
	if err := job.Execute(ctx); err != nil {
		slog.Error("job failed", "job", job.Name(), "error", err)
		return err
	}
	slog.Info("job completed", "job", job.Name(), "duration", time.Since(start))
	return nil
}
