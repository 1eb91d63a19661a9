// Package scheduler provides the timer-driven job runner: a daily job at a
// fixed local clock time and a fixed-interval job. Jobs run to completion
// in their own goroutine loops; a slow run delays only its own next tick.
package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Job is a scheduled unit of work. The context carries the per-run timeout.
type Job func(ctx context.Context)

type dailyJob struct {
	name string
	hour int
	min  int
	job  Job
}

type intervalJob struct {
	name     string
	interval time.Duration
	job      Job
}

// Scheduler runs registered jobs until stopped.
type Scheduler struct {
	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup

	logger     zerolog.Logger
	location   *time.Location
	jobTimeout time.Duration

	daily     []dailyJob
	intervals []intervalJob
}

// New creates a scheduler whose daily jobs fire in the given location.
func New(location *time.Location, logger zerolog.Logger) *Scheduler {
	if location == nil {
		location = time.UTC
	}
	return &Scheduler{
		logger:     logger.With().Str("component", "scheduler").Logger(),
		location:   location,
		jobTimeout: 5 * time.Minute,
	}
}

// RunDaily registers a job firing once per day at "HH:MM" local time.
// Must be called before Start.
func (s *Scheduler) RunDaily(name, clock string, job Job) error {
	hour, min, err := parseClock(clock)
	if err != nil {
		return fmt.Errorf("daily job %s: %w", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.daily = append(s.daily, dailyJob{name: name, hour: hour, min: min, job: job})
	return nil
}

// RunEvery registers a job firing at a fixed interval. The first run
// happens immediately after Start. Must be called before Start.
func (s *Scheduler) RunEvery(name string, interval time.Duration, job Job) error {
	if interval <= 0 {
		return fmt.Errorf("interval job %s: non-positive interval", name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.intervals = append(s.intervals, intervalJob{name: name, interval: interval, job: job})
	return nil
}

// Start launches all registered job loops.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("scheduler already running")
	}
	s.running = true
	s.stopChan = make(chan struct{})
	daily := s.daily
	intervals := s.intervals
	s.mu.Unlock()

	for _, d := range daily {
		s.wg.Add(1)
		go s.runDailyLoop(d)
	}
	for _, iv := range intervals {
		s.wg.Add(1)
		go s.runIntervalLoop(iv)
	}

	s.logger.Info().
		Int("daily_jobs", len(daily)).
		Int("interval_jobs", len(intervals)).
		Msg("scheduler started")

	return nil
}

// Stop halts all job loops and waits for in-flight runs to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopChan)
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info().Msg("scheduler stopped")
}

func (s *Scheduler) runDailyLoop(d dailyJob) {
	defer s.wg.Done()

	for {
		wait := time.Until(s.nextDaily(d))

		select {
		case <-time.After(wait):
			s.runJob(d.name, d.job)
		case <-s.stopChan:
			return
		}
	}
}

func (s *Scheduler) runIntervalLoop(iv intervalJob) {
	defer s.wg.Done()

	ticker := time.NewTicker(iv.interval)
	defer ticker.Stop()

	// Run immediately
	s.runJob(iv.name, iv.job)

	for {
		select {
		case <-ticker.C:
			s.runJob(iv.name, iv.job)
		case <-s.stopChan:
			return
		}
	}
}

func (s *Scheduler) runJob(name string, job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
	defer cancel()

	start := time.Now()
	job(ctx)
	s.logger.Debug().Str("job", name).Dur("took", time.Since(start)).Msg("job finished")
}

// nextDaily returns the next occurrence of the job's clock time in the
// scheduler's location.
func (s *Scheduler) nextDaily(d dailyJob) time.Time {
	now := time.Now().In(s.location)
	next := time.Date(now.Year(), now.Month(), now.Day(), d.hour, d.min, 0, 0, s.location)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func parseClock(clock string) (int, int, error) {
	parts := strings.SplitN(clock, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid clock time %q", clock)
	}
	hour, err1 := strconv.Atoi(parts[0])
	min, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || hour < 0 || hour > 23 || min < 0 || min > 59 {
		return 0, 0, fmt.Errorf("invalid clock time %q", clock)
	}
	return hour, min, nil
}
