package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/velib-indicators/internal/velib"
)

// Runner runs one station batch.
type Runner interface {
	RunBatch(ctx context.Context) (velib.Batch, error)
}

// Scheduler periodically runs station batches and retries failed ones.
type Scheduler struct {
	scheduler  *gocron.Scheduler
	runner     Runner
	interval   time.Duration
	retries    int
	retryDelay time.Duration
	timeout    time.Duration
}

// New creates a new Scheduler. timeout bounds each attempt; retries is the number of extra attempts per tick.
func New(interval time.Duration, retries int, retryDelay, timeout time.Duration, runner Runner) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler:  s,
		runner:     runner,
		interval:   interval,
		retries:    retries,
		retryDelay: retryDelay,
		timeout:    timeout,
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
// The first batch runs immediately; a tick is skipped while the previous one is still running.
func (s *Scheduler) Start() error {
	if s.runner == nil {
		log.Println("scheduler: no runner configured; nothing to schedule")
		return nil
	}

	interval := s.interval
	if interval <= 0 {
		interval = time.Minute
	}

	_, err := s.scheduler.Every(interval).SingletonMode().Do(func() {
		log.Println("scheduler: running station batch job")
		if err := s.RunOnce(context.Background()); err != nil {
			log.Printf("scheduler: batch failed after %d attempt(s): %v", s.retries+1, err)
			return
		}
		log.Println("scheduler: completed station batch job")
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// RunOnce runs a single tick: one batch plus up to retries re-runs while it keeps failing.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	var err error
	for attempt := 0; attempt <= s.retries; attempt++ {
		if attempt > 0 {
			log.Printf("scheduler: retrying batch in %s (attempt %d/%d): %v", s.retryDelay, attempt+1, s.retries+1, err)
			timer := time.NewTimer(s.retryDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}

		if err = s.attempt(ctx); err == nil {
			return nil
		}
	}
	return err
}

func (s *Scheduler) attempt(ctx context.Context) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	_, err := s.runner.RunBatch(ctx)
	return err
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
