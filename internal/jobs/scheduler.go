package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Job is a task run on a fixed interval.
type Job struct {
	Name  string
	Every time.Duration
	Run   func(ctx context.Context)
}

type Scheduler struct {
	sched  gocron.Scheduler
	jobs   []Job
	logger *slog.Logger
}

func NewScheduler(logger *slog.Logger, jobs ...Job) (*Scheduler, error) {
	s, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("jobs.NewScheduler: %w", err)
	}

	return &Scheduler{sched: s, jobs: jobs, logger: logger}, nil
}

// Run registers the jobs, runs each once immediately and then on its
// interval until ctx is cancelled. Overlapping runs of a job are skipped.
func (s *Scheduler) Run(ctx context.Context) error {
	const op = "jobs.Scheduler.Run"

	for _, j := range s.jobs {
		j := j
		_, err := s.sched.NewJob(
			gocron.DurationJob(j.Every),
			gocron.NewTask(func() { j.Run(ctx) }),
			gocron.WithName(j.Name),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
			gocron.WithStartAt(gocron.WithStartImmediately()),
		)
		if err != nil {
			return fmt.Errorf("%s: %s: %w", op, j.Name, err)
		}
	}

	s.sched.Start()
	s.logger.Info("scheduler started", "jobs", len(s.sched.Jobs()))

	<-ctx.Done()

	if err := s.sched.Shutdown(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
